package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/noteq/noteq/pkg/devserver"
)

var (
	devAddr  string
	devSeeds []string
)

var devserverCmd = &cobra.Command{
	Use:   "devserver",
	Short: "Run an in-memory backend and ML service for local development",
	Long: `Run an in-memory stand-in for the backend and the ML service on one port.
Questions are placeholders and familiarity is the share of correct answers.
Data is lost on exit.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		logger := slog.Default()
		dev := devserver.New(devserver.WithLogger(logger))
		for _, seed := range devSeeds {
			parts := strings.SplitN(seed, ":", 3)
			if len(parts) != 3 {
				fatal("Invalid --user", fmt.Errorf("%q is not username:email:password", seed))
			}
			if _, err := dev.Seed(parts[0], parts[1], parts[2]); err != nil {
				fatal("Error seeding user", err)
			}
			logger.Info("seeded user", "username", parts[0], "email", parts[1])
		}

		srv := &http.Server{
			Addr:              devAddr,
			Handler:           dev.Handler(),
			ReadHeaderTimeout: 5 * time.Second,
		}

		g, ctx := errgroup.WithContext(cmd.Context())
		g.Go(func() error {
			logger.Info("devserver listening", "addr", devAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
		if err := g.Wait(); err != nil {
			fatal("Devserver failed", err)
		}
	},
}

func init() {
	devserverCmd.Flags().StringVar(&devAddr, "addr", "127.0.0.1:8000", "Listen address")
	devserverCmd.Flags().StringArrayVar(&devSeeds, "user", nil, "Create a user, as username:email:password (repeatable)")
	rootCmd.AddCommand(devserverCmd)
}
