package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fystack/identity-minter/internal/balance"
	"github.com/fystack/identity-minter/internal/ledger"
)

var balanceJSON bool

var balanceCmd = &cobra.Command{
	Use:   "balance [cbor-hex]",
	Short: "Decode a CIP-30 balance, or show the balance of the signing key",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var wb balance.WalletBalance
		owner := ""
		if len(args) == 1 {
			wb = balance.Decode(args[0])
		} else {
			a, err := newApp(cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			conn, err := a.connectWallet(cmd.Context(), nil)
			if err != nil {
				return err
			}
			owner = conn.ChangeAddress.String()
			if wb, _, err = balance.NewFetcher(conn).Refresh(cmd.Context()); err != nil {
				return err
			}
		}

		if balanceJSON {
			return printJSON(cmd.OutOrStdout(), wb)
		}
		out := cmd.OutOrStdout()
		if owner != "" {
			fmt.Fprintf(out, "%s\n", ledger.ShortAddress(owner))
		}
		fmt.Fprintf(out, "%s ADA (%s lovelace)\n", wb.Formatted(), wb.Lovelace)
		for _, as := range wb.Assets {
			fmt.Fprintf(out, "  %s %s.%s\n", as.Quantity, as.PolicyID, as.AssetName)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(balanceCmd)
	balanceCmd.Flags().BoolVar(&balanceJSON, "json", false, "Print the decoded balance as JSON")
}
