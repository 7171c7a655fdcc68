package cli

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/scbrown/semmatch/internal/server"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start an HTTP server exposing tagging, matching and the term index",
	Long: `Start an HTTP server over the local SQLite database. It provides a JSON
API at /api/v1/ for tagging text, matching attributes, scoring collections,
reviewing candidates, and looking up ontology terms, plus background jobs
that tag or match whole collections. A health check is available at
/api/v1/health and Prometheus metrics at /metrics.

Other semmatch instances can use this server as their ontology index with
semmatch config index_mode remote and index_url pointing here.`,
	Example: `  # Start server on default port
  semmatch serve

  # Start on a custom address with a specific database
  semmatch serve --addr localhost:9090 --db /data/semmatch.db`,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()
		e, err := openEngine(cmd.Context(), s)
		if err != nil {
			return err
		}

		srv := server.New(e, s, server.WithLogger(logger))

		// Listen first so we can report the actual address.
		ln, err := net.Listen("tcp", serveAddr)
		if err != nil {
			return fmt.Errorf("listen %s: %w", serveAddr, err)
		}

		fmt.Fprintf(os.Stderr, "semmatch serve listening on %s\n", ln.Addr())
		logger.Info("server started", zap.String("addr", ln.Addr().String()), zap.String("db", dbPath))

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		errCh := make(chan error, 1)
		go func() {
			errCh <- srv.Serve(ln)
		}()

		select {
		case <-ctx.Done():
			fmt.Fprintln(os.Stderr, "shutting down...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		case err := <-errCh:
			return err
		}
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":7274", "address to listen on (host:port)")
	rootCmd.AddCommand(serveCmd)
}
