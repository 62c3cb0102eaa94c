package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/noteq/noteq"
	"github.com/noteq/noteq/pkg/notify"
)

var (
	verbose    bool
	backendURL string
	mlURL      string
	stateDir   string
	storeKind  string
	storeDSN   string
	envFile    string
)

var terminal = notify.NewTerminal()

var rootCmd = &cobra.Command{
	Use:   "noteq",
	Short: "Notes and quizzes from the command line",
	Long: `noteq keeps your study notes on the learning backend and quizzes you on them.
Login state, caches and the quiz in progress are kept between invocations.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}

		opts := &slog.HandlerOptions{
			Level: level,
		}
		logger := slog.New(slog.NewTextHandler(os.Stderr, opts))
		slog.SetDefault(logger)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	flags.StringVar(&backendURL, "backend", "", "Backend base URL (env NOTEQ_BACKEND_URL)")
	flags.StringVar(&mlURL, "ml", "", "ML service base URL (env NOTEQ_ML_URL)")
	flags.StringVar(&stateDir, "state-dir", "", "Directory for login state and caches (env NOTEQ_STATE_DIR)")
	flags.StringVar(&storeKind, "store", "", "State storage: fs, sqlite, postgres, redis or memory (env NOTEQ_STORE)")
	flags.StringVar(&storeDSN, "store-dsn", "", "Connection string for sqlite, postgres or redis (env NOTEQ_STORE_DSN)")
	flags.StringVar(&envFile, "env-file", "", "Load environment variables from this file instead of .env")
}

func options() []noteq.Option {
	opts := []noteq.Option{
		noteq.WithLogger(slog.Default()),
		noteq.WithNotifier(terminal),
	}
	if backendURL != "" {
		opts = append(opts, noteq.WithBackendURL(backendURL))
	}
	if mlURL != "" {
		opts = append(opts, noteq.WithMLURL(mlURL))
	}
	if stateDir != "" {
		opts = append(opts, noteq.WithStateDir(stateDir))
	}
	if storeKind != "" {
		opts = append(opts, noteq.WithStore(storeKind))
	}
	if storeDSN != "" {
		opts = append(opts, noteq.WithStoreDSN(storeDSN))
	}
	if envFile != "" {
		opts = append(opts, noteq.WithEnvFile(envFile))
	}
	return opts
}

// openApp builds the client from the persistent flags. Callers defer app.Close().
func openApp(cmd *cobra.Command) (*noteq.App, context.Context) {
	app, err := noteq.New(options()...)
	if err != nil {
		fatal("Error initializing noteq", err)
	}
	return app, notify.WithNotifier(cmd.Context(), terminal)
}
