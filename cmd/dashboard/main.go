package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"macrodash/internal/bootstrap"
	"macrodash/internal/dashboard"
	"macrodash/internal/server"
	"macrodash/internal/store/memory"
)

var cfgFile string

func main() {
	if err := newRootCmd().Execute(); err != nil {
		color.New(color.FgRed, color.Bold).Fprintf(os.Stderr, "dashboard: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "dashboard",
		Short:         "Serve the macroeconomic indicator dashboard API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./macrodash.yaml)")
	root.AddCommand(newServeCmd())
	return root
}

func newServeCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")
	return cmd
}

func serve(ctx context.Context, addr string) error {
	rt, err := bootstrap.Init(ctx, cfgFile)
	if err != nil {
		return err
	}
	defer rt.Close(context.Background())

	orchestrator, err := rt.Orchestrator()
	if err != nil {
		return err
	}

	snapshots := memory.New()
	defer snapshots.Close()

	svc := dashboard.New(orchestrator, snapshots, rt.Logger)
	e := server.New(svc, rt.Catalog, server.Options{
		Logger:      rt.Logger,
		OTelEnabled: rt.Config.Telemetry.Enabled,
		ServiceName: rt.Config.Telemetry.ServiceName,
	})

	if addr == "" {
		addr = rt.Config.Server.Addr
	}
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           e,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		rt.Logger.Info("server starting", zap.String("addr", addr), zap.String("version", bootstrap.Version))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	rt.Logger.Info("server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), rt.Config.Server.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return err
	}
	rt.Logger.Info("server exited")
	return nil
}
