package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/tailored-agentic-units/hrassist/assistant"
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configFile string
	envFile    string
	stateDir   string
	verbose    bool
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}
	af := &askFlags{}

	root := &cobra.Command{
		Use:   "hrassist [question]",
		Short: "Ask the HR policy assistant",
		Long: `hrassist answers HR policy questions from the indexed policy documents.

Follow-up questions continue the previous conversation: the thread is
remembered per session in the thread directory and in the local state
directory.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return cmd.Help()
			}
			return runAskCmd(cmd, g, af, args[0])
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&g.configFile, "config", "", "Path to a JSON or YAML config file")
	pf.StringVar(&g.envFile, "env-file", "", "Path to a .env file (default: ./.env)")
	pf.StringVar(&g.stateDir, "state-dir", "", "Local state directory (overrides config)")
	pf.BoolVarP(&g.verbose, "verbose", "v", false, "Enable verbose logging to stderr")

	af.register(root)

	root.AddCommand(
		newAskCmd(g),
		newServeCmd(g),
		newMCPCmd(g),
	)
	return root
}

func (g *globalFlags) logger() *slog.Logger {
	level := slog.LevelInfo
	if g.verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// loadConfig layers defaults, the config file, the environment and flags.
func (g *globalFlags) loadConfig() (*assistant.Config, error) {
	cfg := assistant.DefaultConfig()
	if g.configFile != "" {
		loaded, err := assistant.LoadConfig(g.configFile)
		if err != nil {
			return nil, err
		}
		cfg = *loaded
	}

	var envFiles []string
	if g.envFile != "" {
		envFiles = append(envFiles, g.envFile)
	}
	cfg.Merge(assistant.ConfigFromEnv(envFiles...))

	if g.stateDir != "" {
		cfg.State.Root = g.stateDir
		cfg.Directory.Path = filepath.Join(g.stateDir, "directory.db")
	}
	return &cfg, nil
}

func (g *globalFlags) openApp(ctx context.Context, opts ...assistant.Option) (*assistant.App, error) {
	cfg, err := g.loadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger := g.logger()
	slog.SetDefault(logger)

	app, err := assistant.New(ctx, cfg, append([]assistant.Option{assistant.WithLogger(logger)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to start assistant: %w", err)
	}
	return app, nil
}
