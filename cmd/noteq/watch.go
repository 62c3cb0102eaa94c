package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/noteq/noteq/pkg/adapters/lifecycle"
	"github.com/noteq/noteq/pkg/core"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print changes made to the local state by other processes",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		app, ctx := openApp(cmd)
		defer app.Close()

		watchable, ok := app.Local.(core.Watchable)
		if !ok {
			fatal("Cannot watch", fmt.Errorf("the %s store does not report changes", app.Config.Store))
		}
		events, err := watchable.Watch(ctx)
		if err != nil {
			fatal("Cannot watch", err)
		}

		src := lifecycle.NewSource(events)
		if err := src.Start(ctx); err != nil {
			fatal("Cannot watch", err)
		}
		fmt.Printf("Watching %s (Ctrl+C to stop)\n", app.Config.StateDir)
		for e := range src.Events() {
			se, ok := e.(core.StoreEvent)
			if !ok {
				continue
			}
			fmt.Printf("%s  %s changed\n", time.Unix(se.Timestamp, 0).Format(time.TimeOnly), se.Key)
		}
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
