package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/mcpline/internal/protocol"
)

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Ensure a daemon is running and round-trip a ping to it",
	RunE:  runPing,
}

func init() {
	rootCmd.AddCommand(pingCmd)
}

func runPing(cmd *cobra.Command, args []string) error {
	h, err := ensureDaemon(cmd.Context())
	if err != nil {
		return err
	}
	defer h.Close()

	resp, err := h.Send(cmd.Context(), protocol.NewPingRequest())
	if err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	if errResp := resp.AsError(); errResp != nil {
		return fmt.Errorf("ping: %s", errResp.Message)
	}

	fmt.Println("pong")
	return nil
}
