package main

import (
	"fmt"

	"github.com/aretw0/introspection"
	"github.com/spf13/cobra"

	"github.com/noteq/noteq"
)

var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Show the state of caches, stores and the quiz",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		app, ctx := openApp(cmd)
		defer app.Close()
		// A missing quiz is not an error here.
		_ = app.Quiz.Resume(ctx)

		out := make([]map[string]any, 0)
		for _, c := range app.Components() {
			entry := map[string]any{"state": c.State()}
			if comp, ok := c.(introspection.Component); ok {
				entry["type"] = comp.ComponentType()
			}
			out = append(out, entry)
		}
		printJSON(map[string]any{
			"config":     app.Config,
			"components": out,
			"metrics":    app.Client.Metrics().Summary(),
		})
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the resolved configuration",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := noteq.LoadConfig(options()...)
		if err != nil {
			fatal("Invalid configuration", err)
		}
		if jsonOutput {
			printJSON(cfg)
			return
		}
		fmt.Printf("backend:   %s\nml:        %s\nstate dir: %s\nstore:     %s\ntimeout:   %s\nrefresh:   %s\n",
			cfg.BackendURL, cfg.MLURL, cfg.StateDir, cfg.Store, cfg.Timeout, cfg.RefreshInterval)
	},
}

var configSaveCmd = &cobra.Command{
	Use:   "save",
	Short: "Write the resolved configuration to config.yaml in the state directory",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := noteq.LoadConfig(options()...)
		if err != nil {
			fatal("Invalid configuration", err)
		}
		if err := cfg.Save(); err != nil {
			fatal("Error saving configuration", err)
		}
		fmt.Printf("Saved %s/config.yaml\n", cfg.StateDir)
	},
}

func init() {
	configCmd.AddCommand(configSaveCmd)
	rootCmd.AddCommand(stateCmd, configCmd)
}
