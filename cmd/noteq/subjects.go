package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var subjectsCmd = &cobra.Command{
	Use:   "subjects",
	Short: "List subjects",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		app, ctx := openApp(cmd)
		defer app.Close()

		list, err := app.Notes.SubjectsWithIDs(ctx)
		if err != nil {
			fatal("Error listing subjects", err)
		}
		if jsonOutput {
			printJSON(list)
			return
		}
		for _, s := range list {
			fmt.Printf("%d\t%s\n", s.ID, s.Name)
		}
	},
}

var subjectAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Create a subject",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		app, ctx := openApp(cmd)
		defer app.Close()

		p, err := app.Notes.AddSubject(ctx, args[0])
		if err != nil {
			fatal("Subject not added", err)
		}
		await(p)
		fmt.Printf("Subject %s added\n", args[0])
	},
}

var subjectRmCmd = &cobra.Command{
	Use:   "rm <name>",
	Short: "Delete a subject",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		app, ctx := openApp(cmd)
		defer app.Close()

		if !assumeYes {
			ok, err := terminal.Confirm(ctx, fmt.Sprintf("Delete subject %s?", args[0]))
			if err != nil {
				fatal("Error reading input", err)
			}
			if !ok {
				return
			}
		}
		p, err := app.Notes.DeleteSubject(ctx, args[0])
		if err != nil {
			fatal("Subject not deleted", err)
		}
		await(p)
		fmt.Printf("Subject %s deleted\n", args[0])
	},
}

func init() {
	subjectRmCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Do not ask for confirmation")
	subjectsCmd.AddCommand(subjectAddCmd, subjectRmCmd)
	rootCmd.AddCommand(subjectsCmd)
}
