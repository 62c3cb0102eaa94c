package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/noteq/noteq/pkg/core"
	"github.com/noteq/noteq/pkg/export"
	"github.com/noteq/noteq/pkg/optimistic"
)

var (
	exportSubject string
	importSubject string
	importDryRun  bool
)

func isWorkbook(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".xlsx")
}

var exportCmd = &cobra.Command{
	Use:   "export <notes.xlsx | dir>",
	Short: "Export notes to an Excel workbook or a directory of Markdown files",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		app, ctx := openApp(cmd)
		defer app.Close()

		var list []core.Note
		var err error
		if exportSubject != "" {
			list, err = app.Notes.NotesBySubject(ctx, exportSubject)
		} else {
			list, err = app.Notes.Notes(ctx)
		}
		if err != nil {
			fatal("Error listing notes", err)
		}

		target := args[0]
		if isWorkbook(target) {
			f, err := os.Create(target)
			if err != nil {
				fatal("Error creating workbook", err)
			}
			if err := export.WriteXLSX(f, list); err != nil {
				f.Close()
				fatal("Error writing workbook", err)
			}
			if err := f.Close(); err != nil {
				fatal("Error writing workbook", err)
			}
			fmt.Printf("Exported %d notes to %s\n", len(list), target)
			return
		}

		n, err := export.WriteDir(target, list)
		if err != nil {
			fatal("Error exporting notes", err)
		}
		fmt.Printf("Exported %d notes to %s\n", n, target)
	},
}

var importCmd = &cobra.Command{
	Use:   "import <notes.xlsx | dir>",
	Short: "Import notes from an Excel workbook or a directory of Markdown files",
	Long: `Import notes. Workbooks use the layout written by "noteq export": ID, Subject,
Title, Content. Markdown files take their title and subject from the YAML
frontmatter. Missing subjects are created.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		app, ctx := openApp(cmd)
		defer app.Close()

		var res *export.ImportResult
		var err error
		if source := args[0]; isWorkbook(source) {
			f, openErr := os.Open(source)
			if openErr != nil {
				fatal("Error opening workbook", openErr)
			}
			res, err = export.ReadXLSX(f)
			f.Close()
		} else {
			res, err = export.ReadDir(source, importSubject)
		}
		if err != nil {
			fatal("Error reading notes", err)
		}
		for _, msg := range res.Errors {
			fmt.Fprintf(os.Stderr, "skipped %s\n", msg)
		}
		if importDryRun {
			fmt.Printf("%d of %d notes would be imported\n", len(res.Notes), res.TotalProcessed)
			return
		}

		subjects, err := app.Notes.Subjects(ctx)
		if err != nil {
			fatal("Error listing subjects", err)
		}
		known := make(map[string]bool, len(subjects))
		for _, s := range subjects {
			known[s] = true
		}

		var pending []*optimistic.Pending
		for _, in := range res.Notes {
			if !known[in.Subject] {
				p, err := app.Notes.AddSubject(ctx, in.Subject)
				if err != nil {
					fatal("Subject not added", err)
				}
				await(p)
				known[in.Subject] = true
			}
			p, err := app.Notes.Add(ctx, in)
			if err != nil {
				fmt.Fprintf(os.Stderr, "skipped %q: %s\n", in.Title, describe(err))
				continue
			}
			pending = append(pending, p)
		}
		imported := 0
		for _, p := range pending {
			if p.Wait() == nil {
				imported++
			}
		}
		fmt.Printf("Imported %d of %d notes\n", imported, res.TotalProcessed)
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportSubject, "subject", "s", "", "Only notes of this subject")
	importCmd.Flags().StringVarP(&importSubject, "subject", "s", "", "Subject for Markdown files without one")
	importCmd.Flags().BoolVar(&importDryRun, "dry-run", false, "Only validate the input")
	rootCmd.AddCommand(exportCmd, importCmd)
}
