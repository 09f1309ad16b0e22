package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/phuslu/log"
	"github.com/spf13/cobra"

	"github.com/golovatskygroup/atlassian-lens/internal/atlassian"
	"github.com/golovatskygroup/atlassian-lens/internal/commands"
	"github.com/golovatskygroup/atlassian-lens/internal/host"
	"github.com/golovatskygroup/atlassian-lens/internal/server"
	"github.com/golovatskygroup/atlassian-lens/internal/tools"
	"github.com/golovatskygroup/atlassian-lens/pkg/mcp"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the Jira and Confluence search tools over MCP stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store := opts.store()
			client := atlassian.NewClientFromConfig(store)

			handler := tools.NewHandler(store, client, client)
			srv := server.New(os.Stdin, os.Stdout, handler, mcp.ServerInfo{Name: "atlassian-lens", Version: version})
			log.Info().Str("version", version).Msg("starting MCP server")
			if err := srv.Run(cmd.Context()); err != nil {
				return fmt.Errorf("server: %w", err)
			}
			return nil
		},
	}
}

func newRegistry(opts *rootOptions) *commands.Registry {
	store := opts.store()
	term := host.NewTerminal(os.Stdin, os.Stdout)
	reg := commands.NewRegistry(term)
	// Registration of the fixed defaults into an empty registry cannot collide.
	if err := commands.RegisterDefaults(reg, store, atlassian.NewClientFromConfig(store)); err != nil {
		panic(err)
	}
	return reg
}

func newRunCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run <command-id|query>",
		Short: "Run a command by id or by a fuzzy query",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg := newRegistry(opts)
			c, err := reg.Resolve(strings.Join(args, " "))
			if err != nil {
				return err
			}
			if err := reg.Run(cmd.Context(), c.ID); err != nil {
				return errReported
			}
			return nil
		},
	}
}

func newCommandsCmd(opts *rootOptions) *cobra.Command {
	var limit int
	c := &cobra.Command{
		Use:   "commands [query]",
		Short: "List available commands",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg := newRegistry(opts)
			out := cmd.OutOrStdout()
			for _, c := range reg.Search(strings.Join(args, " "), limit) {
				fmt.Fprintf(out, "%-45s %s\n", c.ID, c.Description)
			}
			return nil
		},
	}
	c.Flags().IntVar(&limit, "limit", 10, "Maximum number of commands to list")
	return c
}
