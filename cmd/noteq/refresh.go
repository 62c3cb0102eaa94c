package main

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

var metricsAddr string

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Keep notes and familiarity caches warm until interrupted",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		app, ctx := openApp(cmd)
		defer app.Close()

		if _, err := app.Account.Session(ctx); err != nil {
			fatal("Cannot refresh", err)
		}
		if metricsAddr != "" {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.HandlerFor(app.Client.Metrics().Registry, promhttp.HandlerOpts{}))
			srv := &http.Server{Addr: metricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					slog.Error("metrics server failed", "error", err)
				}
			}()
			defer srv.Close()
			slog.Info("serving metrics", "addr", metricsAddr)
		}

		if err := app.Refresh.Start(ctx); err != nil {
			fatal("Cannot refresh", err)
		}
		slog.Info("refreshing", "interval", app.Config.RefreshInterval)
		<-ctx.Done()
	},
}

func init() {
	refreshCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve client metrics on this address, e.g. :9090")
	rootCmd.AddCommand(refreshCmd)
}
