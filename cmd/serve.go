package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/datasync-solution/bmc-analyst/internal/server"
	"github.com/datasync-solution/bmc-analyst/internal/telemetry"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API for the web client",
	Long: `Starts the JSON API that backs the BMC Analyst web client. One process
serves one planning session; history is persisted in the data directory.

Stop it with Ctrl+C. In-flight requests get a few seconds to finish.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime(nil)
		if err != nil {
			return err
		}
		defer rt.Close()

		srv := server.New(rt.session, server.Config{
			Port:           rt.cfg.Server.Port,
			AllowedOrigins: rt.cfg.Server.AllowedOrigins,
		}, rt.metrics, slog.Default())

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		var wg sync.WaitGroup
		errChan := make(chan error, 1)
		srv.Start(&wg, errChan)
		rt.telemetry.Track(telemetry.EventServerStarted, telemetry.Properties{"storage": rt.cfg.Storage.Backend})

		fmt.Fprintf(cmd.OutOrStdout(), "🚀 BMC Analyst API on http://localhost%s (data: %s)\n", srv.Addr(), rt.cfg.Storage.Path)

		select {
		case <-ctx.Done():
			slog.Info("shutting down")
		case err = <-errChan:
			slog.Error("server stopped", "error", err)
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if serr := srv.Shutdown(shutdownCtx); serr != nil {
			slog.Warn("graceful shutdown failed", "error", serr)
		}
		wg.Wait()
		return err
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().IntP("port", "p", 0, "port to listen on (default 8765)")
	_ = viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
}
