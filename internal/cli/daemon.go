package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/mcpline/internal/daemonrt"
	"github.com/mvp-joe/mcpline/internal/mcptransport"
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Daemon-side controls",
}

var daemonRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the connection daemon in the foreground",
	Long: `Run starts the daemon: it binds the IPC endpoint, writes the PID and
config fingerprint files, and serves requests until it idles out, is
asked to shut down, or receives SIGINT/SIGTERM.

This is what internal/daemon's lifecycle manager spawns as a detached
subprocess; it is also safe to invoke directly for local testing.`,
	RunE: runDaemonRun,
}

func init() {
	rootCmd.AddCommand(daemonCmd)
	daemonCmd.AddCommand(daemonRunCmd)
}

func runDaemonRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	e, err := endpoint()
	if err != nil {
		return err
	}
	log := logger()

	srv, err := daemonrt.New(cfg, e, mcptransport.NewFactory(cfg), log)
	if err != nil {
		return fmt.Errorf("start daemon: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	return srv.Run(ctx)
}
