package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/phuslu/log"
	"github.com/spf13/cobra"

	"github.com/golovatskygroup/atlassian-lens/internal/config"
)

var version = "dev"

// errReported marks a failure the host already showed to the user.
var errReported = errors.New("command failed")

type rootOptions struct {
	configPath string
	logLevel   string
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	err := newRootCmd().ExecuteContext(ctx)
	cancel()
	if err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "atlassian-lens",
		Short:         "Jira and Confluence search for MCP clients and the terminal",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to config file (default "+config.DefaultPath()+")")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn, error")

	root.AddCommand(newServeCmd(opts), newRunCmd(opts), newCommandsCmd(opts))
	return root
}

// store opens the config file and points the default logger at stderr.
// stdout belongs to the MCP channel.
func (o *rootOptions) store() *config.FileStore {
	store := config.NewFileStore(o.configPath)

	level := o.logLevel
	if level == "" {
		level = store.GetConfigValue(config.KeyLogLevel)
	}
	if level == "" {
		level = "info"
	}
	log.DefaultLogger = log.Logger{
		Level:  log.ParseLevel(strings.ToLower(level)),
		Writer: &log.IOWriter{Writer: os.Stderr},
	}
	return store
}
