package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/fystack/identity-minter/pkg/common/logger"
)

type slotReport struct {
	Network   string `json:"network"`
	Estimated uint64 `json:"estimated"`
	ChainTip  uint64 `json:"chainTip,omitempty"`
	// chain tip minus estimate; a candidate for networks.<name>.slot.offset
	Drift int64 `json:"drift,omitempty"`
}

var slotCmd = &cobra.Command{
	Use:   "slot",
	Short: "Compare the wall-clock slot estimate with the chain tip",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		report := slotReport{Network: string(a.cfg.Network)}
		g, ctx := errgroup.WithContext(cmd.Context())
		g.Go(func() error {
			s, err := a.wallClock.CurrentSlot(ctx)
			report.Estimated = s
			return err
		})
		g.Go(func() error {
			block, err := a.chain.GetLatestBlock(ctx)
			if err != nil {
				logger.Warn("Chain tip unavailable", "error", err)
				return nil
			}
			report.ChainTip = block.Slot
			return nil
		})
		if err := g.Wait(); err != nil {
			return fmt.Errorf("estimate slot: %w", err)
		}
		if report.ChainTip > 0 {
			report.Drift = int64(report.ChainTip) - int64(report.Estimated)
		}
		return printJSON(cmd.OutOrStdout(), report)
	},
}

func init() {
	rootCmd.AddCommand(slotCmd)
}
