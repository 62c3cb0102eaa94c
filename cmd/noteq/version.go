package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/noteq/noteq"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of noteq",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("noteq version %s\n", strings.TrimSpace(noteq.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
