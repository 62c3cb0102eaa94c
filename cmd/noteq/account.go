package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var refreshFamiliarity bool

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Show the logged in user",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		app, ctx := openApp(cmd)
		defer app.Close()

		p, err := app.Account.Profile(ctx)
		if err != nil {
			fatal("Error loading profile", err)
		}
		sess, err := app.Account.Session(ctx)
		if err != nil {
			fatal("Error loading session", err)
		}
		if jsonOutput {
			printJSON(map[string]any{"profile": p, "paid": sess.IsPaid})
			return
		}
		fmt.Printf("Name:       %s\nEmail:      %s\nRegistered: %s\nPaid:       %t\n", p.Name, p.Email, p.RegisterDate, sess.IsPaid)
	},
}

var familiarityCmd = &cobra.Command{
	Use:   "familiarity",
	Short: "Show how well each quiz topic is known",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		app, ctx := openApp(cmd)
		defer app.Close()

		fetch := app.Account.Familiarity
		if refreshFamiliarity {
			fetch = app.Account.RefreshFamiliarity
		}
		list, err := fetch(ctx)
		if err != nil {
			fatal("Error loading familiarity", err)
		}
		if jsonOutput {
			printJSON(list)
			return
		}
		w := newTable()
		fmt.Fprintln(w, "TOPIC\tFAMILIARITY")
		for _, f := range list {
			fmt.Fprintf(w, "%s\t%.0f%%\n", f.Name, f.Familiarity)
		}
		flush(w)
	},
}

var paymentCmd = &cobra.Command{
	Use:   "payment [merchant-trade-no]",
	Short: "Check a payment and update the paid flag",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		app, ctx := openApp(cmd)
		defer app.Close()

		tradeNo := ""
		if len(args) == 1 {
			tradeNo = args[0]
		}
		status, err := app.Account.PaymentStatus(ctx, tradeNo)
		if err != nil {
			fatal("Error checking payment", err)
		}
		fmt.Printf("Payment %s\n", status)
	},
}

func init() {
	familiarityCmd.Flags().BoolVar(&refreshFamiliarity, "refresh", false, "Bypass the cache")
	rootCmd.AddCommand(profileCmd, familiarityCmd, paymentCmd)
}
