// cmd/docgen/serve.go
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/julianshen/docgen/internal/server"
)

const shutdownTimeout = 15 * time.Second

func serveCmd() *cobra.Command {
	var addrFlag string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the documentation API over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := setup()
			if err != nil {
				return err
			}
			addr := a.cfg.Server.Addr
			if addrFlag != "" {
				addr = addrFlag
			}

			srv := server.New(server.Config{
				Addr:        addr,
				Run:         a.run,
				Store:       a.store,
				Branches:    a.resolver,
				MaxBodySize: a.cfg.Server.MaxBodySize,
				ReadTimeout: a.cfg.Server.ReadTimeout.Std(),
				Logger:      a.logger,
			})

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, srv)
		},
	}

	cmd.Flags().StringVar(&addrFlag, "addr", "", "listen address (default from config, :8000)")

	return cmd
}

// httpServer is the part of server.Server that serve drives.
type httpServer interface {
	Start() error
	Shutdown(ctx context.Context) error
}

// serve runs srv until ctx is done or the listener fails, then shuts it
// down gracefully.
func serve(ctx context.Context, srv httpServer) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.Start)
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
