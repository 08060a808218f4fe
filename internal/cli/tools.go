package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/mcpline/internal/protocol"
)

var toolCallArgs string

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List and invoke tools on a configured MCP server",
}

var toolsListCmd = &cobra.Command{
	Use:   "list <server>",
	Short: "List the tools a configured server exposes",
	Args:  cobra.ExactArgs(1),
	RunE:  runToolsList,
}

var toolsCallCmd = &cobra.Command{
	Use:   "call <server> <tool>",
	Short: "Invoke a tool on a configured server",
	Args:  cobra.ExactArgs(2),
	RunE:  runToolsCall,
}

func init() {
	toolsCallCmd.Flags().StringVar(&toolCallArgs, "args", "{}", "tool arguments as a JSON object")
	toolsCmd.AddCommand(toolsListCmd, toolsCallCmd)
	rootCmd.AddCommand(toolsCmd)
}

func runToolsList(cmd *cobra.Command, args []string) error {
	h, err := ensureDaemon(cmd.Context())
	if err != nil {
		return err
	}
	defer h.Close()

	resp, err := h.Send(cmd.Context(), protocol.NewListToolsRequest(args[0]))
	if err != nil {
		return fmt.Errorf("list tools: %w", err)
	}
	if errResp := resp.AsError(); errResp != nil {
		return fmt.Errorf("list tools: %s", errResp.Message)
	}

	for _, tool := range resp.Tools {
		if tool.Description != "" {
			fmt.Printf("%s - %s\n", tool.Name, tool.Description)
		} else {
			fmt.Println(tool.Name)
		}
	}
	return nil
}

func runToolsCall(cmd *cobra.Command, args []string) error {
	if !json.Valid([]byte(toolCallArgs)) {
		return fmt.Errorf("--args must be valid JSON")
	}

	h, err := ensureDaemon(cmd.Context())
	if err != nil {
		return err
	}
	defer h.Close()

	resp, err := h.Send(cmd.Context(), protocol.NewExecuteToolRequest(args[0], args[1], json.RawMessage(toolCallArgs)))
	if err != nil {
		return fmt.Errorf("call tool: %w", err)
	}
	if errResp := resp.AsError(); errResp != nil {
		return fmt.Errorf("call tool: %s", errResp.Message)
	}

	fmt.Println(string(resp.Result))
	return nil
}
