package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/letwinventory/harnessgraph/internal/api"
	"github.com/letwinventory/harnessgraph/internal/config"
)

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		Long: `Serve the harness command and query API over HTTP, with Prometheus
metrics at /metrics.

Example:
  harnessctl serve --db ./harness.db --addr :8080`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(rootOpts, cmd)
		},
	}

	cmd.Flags().String("addr", "", "listen address (default :8080)")
	_ = rootOpts.viper.BindPFlag(config.KeyHTTPAddr, cmd.Flags().Lookup("addr"))

	return cmd
}

func runServe(opts *RootOptions, cmd *cobra.Command) error {
	logger := opts.Logger

	eng, closeFn, err := opts.openEngine()
	if err != nil {
		return err
	}
	defer closeFn()
	logger.Info("database ready", "path", opts.Config.DBPath)

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	srv := api.NewServer(eng, logger, opts.Config.Actor)
	fmt.Fprintf(cmd.OutOrStdout(), "Listening on %s\n", opts.Config.HTTPAddr)
	if err := srv.Run(ctx, opts.Config.HTTPAddr); err != nil {
		return WrapExitError(ExitCommandError, "server error", err)
	}
	logger.Info("server stopped gracefully")
	return nil
}
