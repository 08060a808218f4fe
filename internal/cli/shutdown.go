package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/mcpline/internal/daemon"
	"github.com/mvp-joe/mcpline/internal/protocol"
)

var shutdownCmd = &cobra.Command{
	Use:   "shutdown",
	Short: "Ask a running daemon to shut down",
	Long: `Shutdown sends a shutdown request directly to the daemon, if one is
listening. Unlike ensure/ping/tools it never spawns a daemon: a missing
daemon is treated as already shut down.`,
	RunE: runShutdown,
}

func init() {
	rootCmd.AddCommand(shutdownCmd)
}

func runShutdown(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	e, err := endpoint()
	if err != nil {
		return err
	}

	h, err := daemon.EnsureDaemon(cmd.Context(), daemon.EnsureConfig{
		Endpoint: e,
		Config:   cfg,
		Mode:     daemon.ModeRequireDaemon,
	})
	if err != nil {
		if err == daemon.ErrNoDaemon {
			fmt.Println("no daemon running")
			return nil
		}
		return fmt.Errorf("shutdown: %w", err)
	}
	defer h.Close()

	resp, err := h.Send(cmd.Context(), protocol.NewShutdownRequest())
	if err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if errResp := resp.AsError(); errResp != nil {
		return fmt.Errorf("shutdown: %s", errResp.Message)
	}

	fmt.Println("daemon shutting down")
	return nil
}
