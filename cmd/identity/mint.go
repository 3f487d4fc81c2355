package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/fystack/identity-minter/internal/identity"
	"github.com/fystack/identity-minter/internal/minter"
	"github.com/fystack/identity-minter/pkg/common/enum"
	"github.com/fystack/identity-minter/pkg/common/logger"
)

// mintRequest is the identity a user asks to mint, shared by the CLI and
// the HTTP API.
type mintRequest struct {
	Image               string            `json:"image"`
	Privacy             enum.PrivacyLevel `json:"privacy"`
	Name                string            `json:"name,omitempty"`
	Description         string            `json:"description,omitempty"`
	Encrypted           bool              `json:"encrypted,omitempty"`
	AuthorizedAddresses []string          `json:"authorizedAddresses,omitempty"`
}

func (r mintRequest) metadata(now func() time.Time) (identity.Metadata, error) {
	privacy := r.Privacy
	if privacy == "" {
		privacy = enum.PrivacyPublic
	}
	return identity.NewMetadata(r.Image, privacy, identity.Options{
		Name:                r.Name,
		Description:         r.Description,
		Encrypted:           r.Encrypted,
		AuthorizedAddresses: r.AuthorizedAddresses,
		Now:                 now,
	})
}

func identityRecord(res *minter.Result, meta identity.Metadata, network enum.Network, mintedAt time.Time) identity.NFT {
	return identity.NFT{
		PolicyID:  res.PolicyID,
		AssetName: res.AssetName,
		Unit:      res.Unit,
		TxHash:    res.TxHash,
		Owner:     res.Owner,
		Network:   network,
		Metadata:  meta,
		MintedAt:  mintedAt.UTC(),
	}
}

var mintFlags struct {
	image       string
	file        string
	privacy     string
	name        string
	description string
	encrypted   bool
	authorized  []string
}

var mintCmd = &cobra.Command{
	Use:   "mint",
	Short: "Mint an identity NFT with the configured signing key",
	Example: `  identity mint --file avatar.jpg --privacy selective --authorized addr_test1...
  identity mint --image QmYwAPJzv5CZsnA625s3Xf2nemtYgPpHdWEz79ojWnPbdG`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if (mintFlags.image == "") == (mintFlags.file == "") {
			return errors.New("exactly one of --image or --file is required")
		}
		ctx := cmd.Context()

		a, err := newApp(cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		conn, err := a.connectWallet(ctx, nil)
		if err != nil {
			return err
		}

		image := mintFlags.image
		if mintFlags.file != "" {
			data, err := os.ReadFile(mintFlags.file)
			if err != nil {
				return err
			}
			up, err := a.uploader.Upload(ctx, data, filepath.Base(mintFlags.file))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "uploaded %s -> %s\n", mintFlags.file, up.URL)
			image = up.CID
		}

		req := mintRequest{
			Image:               image,
			Privacy:             enum.PrivacyLevel(strings.ToLower(mintFlags.privacy)),
			Name:                mintFlags.name,
			Description:         mintFlags.description,
			Encrypted:           mintFlags.encrypted,
			AuthorizedAddresses: mintFlags.authorized,
		}
		meta, err := req.metadata(time.Now)
		if err != nil {
			return err
		}

		res, err := a.newMinter(conn.API).Mint(ctx, meta, func(p minter.Progress) {
			fmt.Fprintf(cmd.ErrOrStderr(), "  %s\n", p.Message)
		})
		if err != nil {
			return err
		}
		if err := a.identities.Save(identityRecord(res, meta, a.cfg.Network, time.Now())); err != nil {
			logger.Warn("Saving identity record failed", "unit", res.Unit, "error", err)
		}
		return printJSON(cmd.OutOrStdout(), res)
	},
}

func init() {
	rootCmd.AddCommand(mintCmd)

	f := mintCmd.Flags()
	f.StringVar(&mintFlags.image, "image", "", "IPFS CID (or ipfs:// URI) of an uploaded image")
	f.StringVar(&mintFlags.file, "file", "", "Image file to upload before minting")
	f.StringVar(&mintFlags.privacy, "privacy", string(enum.PrivacyPublic), "Privacy level: public, private or selective")
	f.StringVar(&mintFlags.name, "name", "", "NFT name")
	f.StringVar(&mintFlags.description, "description", "", "NFT description")
	f.BoolVar(&mintFlags.encrypted, "encrypted", false, "Mark the image as encrypted")
	f.StringSliceVar(&mintFlags.authorized, "authorized", nil, "Addresses allowed to view a selective identity")
}
