package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/tailored-agentic-units/hrassist/rpc"
	"github.com/tailored-agentic-units/hrassist/server"
)

func newServeCmd(g *globalFlags) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the websocket chat and RPC server",
		Long: `Serve the assistant over HTTP:

  GET  /ws?session_id=...                 websocket chat
  GET  /health                            liveness
  POST /hrassist.v1.AssistantService/*    Connect RPC (Ask, AskStream)`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			app, err := g.openApp(ctx)
			if err != nil {
				return err
			}
			defer app.Close(context.WithoutCancel(ctx))

			if addr == "" {
				addr = app.Config.Addr
			}

			rpcPath, rpcHandler := rpc.NewHandler(app.Coordinator)
			srv := server.New(app.Coordinator,
				server.WithLogger(app.Logger),
				server.WithAgentID(app.Config.Engine.AgentID),
				server.WithHandler(rpcPath, rpcHandler),
			)
			return srv.ListenAndServe(ctx, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides config)")
	return cmd
}
