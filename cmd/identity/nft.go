package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fystack/identity-minter/internal/identity"
	"github.com/fystack/identity-minter/internal/rpc/cardano"
)

var nftCmd = &cobra.Command{
	Use:   "nft",
	Short: "Inspect minted identity NFTs",
}

type nftView struct {
	*cardano.Asset
	ImageAvailable *bool `json:"imageAvailable,omitempty"`
}

var nftShowCmd = &cobra.Command{
	Use:   "show <unit>",
	Short: "Show the on-chain metadata of an asset",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		asset, err := a.chain.GetAsset(cmd.Context(), strings.TrimSpace(args[0]))
		if err != nil {
			if errors.Is(err, cardano.ErrNotFound) {
				return fmt.Errorf("no asset %s on %s", args[0], a.cfg.Network)
			}
			return err
		}
		view := nftView{Asset: asset}
		if image, ok := asset.OnchainMetadata["image"].(string); ok && image != "" {
			available := a.fetcher.Exists(cmd.Context(), image)
			view.ImageAvailable = &available
		}
		return printJSON(cmd.OutOrStdout(), view)
	},
}

var nftCheckFlags struct {
	owner     string
	requester string
}

var nftCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Check whether an address may view a stored identity",
	RunE: func(cmd *cobra.Command, args []string) error {
		if nftCheckFlags.owner == "" || nftCheckFlags.requester == "" {
			return errors.New("--owner and --requester are required")
		}
		a, err := newApp(cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		nft, err := a.identities.Get(nftCheckFlags.owner)
		if err != nil {
			if errors.Is(err, identity.ErrNotFound) {
				return fmt.Errorf("no identity recorded for %s", nftCheckFlags.owner)
			}
			return err
		}
		return printJSON(cmd.OutOrStdout(), map[string]any{
			"unit":    nft.Unit,
			"privacy": nft.Metadata.Privacy,
			"allowed": identity.CheckAccess(*nft, nftCheckFlags.requester),
		})
	},
}

var nftListCmd = &cobra.Command{
	Use:   "list",
	Short: "List identities minted from this machine",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		nfts, err := a.identities.List()
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), nfts)
	},
}

func init() {
	rootCmd.AddCommand(nftCmd)
	nftCmd.AddCommand(nftShowCmd, nftCheckCmd, nftListCmd)

	nftCheckCmd.Flags().StringVar(&nftCheckFlags.owner, "owner", "", "Owner address of the identity")
	nftCheckCmd.Flags().StringVar(&nftCheckFlags.requester, "requester", "", "Address asking for access")
}
