package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"

	"github.com/fystack/identity-minter/pkg/common/logger"
	"github.com/fystack/identity-minter/pkg/events"
	"github.com/fystack/identity-minter/pkg/infra"
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Print minted events published on NATS",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		nc, err := infra.GetNATSConnection(cfg.Services.Nats, cfg.Environment)
		if err != nil {
			return fmt.Errorf("connect nats: %w", err)
		}
		defer nc.Close()

		subject := events.Subject(cfg.Services.Nats.SubjectPrefix)
		out := cmd.OutOrStdout()
		sub, err := nc.Subscribe(subject, func(msg *nats.Msg) {
			var e events.MintedEvent
			if err := json.Unmarshal(msg.Data, &e); err != nil {
				logger.Warn("Skipping malformed event", "subject", msg.Subject, "error", err)
				return
			}
			fmt.Fprintf(out, "[%s] %s %s owner=%s tx=%s\n", msg.Subject, e.Network, e.Unit, e.Owner, e.TxHash)
		})
		if err != nil {
			return fmt.Errorf("subscribe %s: %w", subject, err)
		}
		defer func() { _ = sub.Unsubscribe() }()

		logger.Info("Subscribed", "subject", subject)
		<-ctx.Done()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(eventsCmd)
}
