package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/fystack/identity-minter/internal/balance"
	"github.com/fystack/identity-minter/internal/wallet"
	"github.com/fystack/identity-minter/pkg/common/config"
	"github.com/fystack/identity-minter/pkg/common/logger"
)

var (
	servePort int
	serveHost string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the identity HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := newApp(cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		deps := handlerDeps{
			Version:    version,
			Network:    a.cfg.Network,
			Slots:      a.slots,
			Uploader:   a.uploader,
			Assets:     a.chain,
			Identities: a.identities,
			MaxUpload:  a.cfg.IPFS.MaxUploadBytes,
		}
		httpCfg := a.cfg.Services.HTTP
		if servePort != 0 {
			httpCfg.Port = servePort
		}
		if serveHost != "" {
			httpCfg.Host = serveHost
		}
		deps.AuthToken = httpCfg.AuthToken

		// a key wallet under serve has no terminal to prompt on
		mountMint := !a.cfg.Wallet.ConfirmSign
		if err := checkExposure(httpCfg, mountMint); err != nil {
			return err
		}
		var approver wallet.Approver
		if mountMint {
			approver = wallet.AutoApprove()
		} else {
			logger.Warn("confirm_sign is set and serve cannot prompt, /mint is not mounted")
		}
		var api wallet.API
		if conn, err := a.connectWallet(ctx, approver); err != nil {
			logger.Warn("Serving without a wallet, /mint and /balance are unavailable", "error", err)
		} else {
			api = conn
			deps.Balances = balance.NewFetcher(conn)
		}
		if mountMint {
			deps.Minter = a.newMinter(api)
		}

		server := &http.Server{
			Addr:              httpCfg.Addr(),
			Handler:           NewIdentityHTTPHandler(deps).Routes(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			logger.Info("Identity HTTP server started",
				"addr", server.Addr,
				"auth", httpCfg.AuthToken != "",
				"network", a.cfg.Network,
				"health_endpoint", "/health",
			)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			logger.Info("Shutting down HTTP server")
			return server.Shutdown(shutdownCtx)
		})
		return g.Wait()
	},
}

// checkExposure refuses to serve the auto-signing mint route beyond
// loopback without a bearer token.
func checkExposure(c config.HTTPConfig, mountMint bool) error {
	if !mountMint || c.AuthToken != "" || c.Loopback() {
		return nil
	}
	return fmt.Errorf("refusing to serve /mint on %s without services.http.auth_token", c.Addr())
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Listen port (defaults to services.http.port)")
	serveCmd.Flags().StringVar(&serveHost, "host", "", "Listen host (defaults to services.http.host)")
}
