package cli

import (
	"fmt"
	"os"

	"github.com/mvp-joe/mcpline/internal/config"
	"github.com/mvp-joe/mcpline/internal/ipc"
	"github.com/mvp-joe/mcpline/internal/mlog"
	"github.com/mvp-joe/mcpline/internal/protocol"
)

// loadConfig reads the configured protocol.Config, exiting the caller's
// context with a clear message on a malformed file rather than a bare
// Go error trace.
func loadConfig() (protocol.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return protocol.Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// endpoint derives this invocation's IPC endpoint from the --app flag.
func endpoint() (ipc.Endpoint, error) {
	e, err := ipc.NewEndpoint(appName)
	if err != nil {
		return ipc.Endpoint{}, fmt.Errorf("resolve endpoint: %w", err)
	}
	return e, nil
}

func logger() *mlog.Logger {
	return mlog.New(os.Stderr, mlog.ParseLevel(logLevel))
}
