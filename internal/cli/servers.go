package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/mcpline/internal/protocol"
)

var serversCmd = &cobra.Command{
	Use:   "servers",
	Short: "Inspect configured MCP servers",
}

var serversListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the configured server names",
	RunE:  runServersList,
}

func init() {
	serversCmd.AddCommand(serversListCmd)
	rootCmd.AddCommand(serversCmd)
}

func runServersList(cmd *cobra.Command, args []string) error {
	h, err := ensureDaemon(cmd.Context())
	if err != nil {
		return err
	}
	defer h.Close()

	resp, err := h.Send(cmd.Context(), protocol.NewListServersRequest())
	if err != nil {
		return fmt.Errorf("list servers: %w", err)
	}
	if errResp := resp.AsError(); errResp != nil {
		return fmt.Errorf("list servers: %s", errResp.Message)
	}

	for _, name := range resp.Servers {
		fmt.Println(name)
	}
	return nil
}
