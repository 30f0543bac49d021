// Package cli is the eocatr command tree.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/nstehr/eocatr-core/agent"
	"github.com/nstehr/eocatr-core/config"
	"github.com/nstehr/eocatr-core/store"
)

var (
	cfgFile    string
	jsonOutput bool
	cfg        *config.Config
	rootCmd    = &cobra.Command{
		Use:   "eocatr",
		Short: "EOCATR rule induction and causal-chain decision engine",
		Long: `eocatr learns causal rules from Environment/Object/Characteristic/
Action/Tool/Result experiences and plans action chains toward goals.

Learn from a file of experiences:
  eocatr learn experiences.yaml

Plan for a goal:
  eocatr decide request.yaml

Serve agents over a unix socket:
  eocatr serve`,
		SilenceUsage: true,
	}
)

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "print results as JSON instead of YAML")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(learnCmd)
	rootCmd.AddCommand(decideCmd)
	rootCmd.AddCommand(rulesCmd)
	rootCmd.AddCommand(consumeCmd)
	rootCmd.AddCommand(publishCmd)
}

func initConfig() {
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	setupLogging(cfg.Logging)
}

func setupLogging(l config.Logging) {
	lvl, _ := l.SlogLevel()
	opts := &slog.HandlerOptions{Level: lvl}
	var h slog.Handler
	if strings.EqualFold(l.Format, "json") {
		h = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		h = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(h))
}

func openStore(ctx context.Context) (store.Store, error) {
	st, err := store.Open(ctx, cfg.Storage.Driver, cfg.Storage.DSN())
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Storage.Driver, err)
	}
	return st, nil
}

// openAgent builds an agent and loads the stored rules into it.
func openAgent(ctx context.Context) (*agent.Agent, store.Store, error) {
	st, err := openStore(ctx)
	if err != nil {
		return nil, nil, err
	}
	a := agent.New(cfg.AgentConfig())
	n, err := a.Load(ctx, st)
	if err != nil {
		_ = st.Close()
		return nil, nil, err
	}
	slog.Debug("rules loaded", "driver", cfg.Storage.Driver, "rules", n)
	return a, st, nil
}

func printResult(w io.Writer, v any) error {
	if jsonOutput {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}
