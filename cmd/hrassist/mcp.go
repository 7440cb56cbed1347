package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/tailored-agentic-units/hrassist/mcpserver"
)

func newMCPCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Run as an MCP server on stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			// stdout carries the protocol; logs stay on stderr.
			app, err := g.openApp(ctx)
			if err != nil {
				return err
			}
			defer app.Close(context.WithoutCancel(ctx))

			s := mcpserver.New(app.Coordinator, app.Searcher, app.Config.Search.Top)
			return mcpserver.Serve(s)
		},
	}
}
