// Package cli wires the mcpline binary's cobra command tree. Every
// subcommand below the root either runs the daemon in the foreground
// (`daemon run`) or speaks to one through internal/daemon's lifecycle
// manager and a short-lived internal/ipc connection.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	cfgFile  string
	appName  string
	logLevel string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "mcpline",
	Short: "mcpline is the connection daemon and CLI for a local MCP client",
	Long: `mcpline keeps one long-lived connection pool to a set of configured
MCP servers and exposes it to short-lived CLI invocations over a local
IPC endpoint, so a daemon's stdio/HTTP connections are reused instead
of rebuilt on every call.`,
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main(). It only needs to happen
// once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./config.yaml or $HOME/.config/mcpline/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&appName, "app", "mcpline", "application name; selects the IPC endpoint and runtime directory")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
}
