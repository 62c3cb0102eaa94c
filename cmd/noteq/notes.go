package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/noteq/noteq/pkg/core"
	"github.com/noteq/noteq/pkg/markdown"
	"github.com/noteq/noteq/pkg/notes"
	"github.com/noteq/noteq/pkg/optimistic"
)

var (
	noteSubject string
	noteFilter  string
	noteTitle   string
	noteContent string
	noteFile    string
	noteHTML    bool
	assumeYes   bool
)

// await blocks until a background save finishes. The notifier has already
// reported a failure, so only the exit code is left to set.
func await(p *optimistic.Pending) {
	if err := p.Wait(); err != nil {
		os.Exit(1)
	}
}

func parseID(arg string) int64 {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		fatal("Invalid note id", core.Invalid("id", "%q is not a number", arg))
	}
	return id
}

// readContent takes the content from --content, --file or stdin ("-").
func readContent() string {
	switch {
	case noteContent != "":
		return noteContent
	case noteFile == "-":
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			fatal("Error reading stdin", err)
		}
		return string(data)
	case noteFile != "":
		data, err := os.ReadFile(noteFile)
		if err != nil {
			fatal("Error reading file", err)
		}
		return string(data)
	}
	return ""
}

var notesCmd = &cobra.Command{
	Use:     "notes",
	Aliases: []string{"ls"},
	Short:   "List notes",
	Args:    cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		app, ctx := openApp(cmd)
		defer app.Close()

		var list []core.Note
		var err error
		if noteSubject != "" {
			list, err = app.Notes.NotesBySubject(ctx, noteSubject)
		} else {
			list, err = app.Notes.Notes(ctx)
		}
		if err != nil {
			fatal("Error listing notes", err)
		}
		list, err = notes.Filter(list, noteFilter)
		if err != nil {
			fatal("Error filtering notes", err)
		}

		if jsonOutput {
			printJSON(list)
			return
		}
		w := newTable()
		fmt.Fprintln(w, "ID\tSUBJECT\tTITLE\tUPDATED")
		for _, n := range list {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", n.ID, n.Subject, n.Title, n.UpdatedAt.Local().Format("2006-01-02 15:04"))
		}
		flush(w)
	},
}

var noteShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print a note",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		app, ctx := openApp(cmd)
		defer app.Close()

		n, err := app.Notes.Note(ctx, parseID(args[0]))
		if err != nil {
			fatal("Error reading note", err)
		}
		if jsonOutput {
			printJSON(n)
			return
		}
		if noteHTML {
			fmt.Print(markdown.Render(n.Content))
			return
		}
		fmt.Printf("# %s\n(%s)\n\n%s\n", n.Title, n.Subject, markdown.CleanText(n.Content))
	},
}

var noteAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Write a new note",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		app, ctx := openApp(cmd)
		defer app.Close()

		p, err := app.Notes.Add(ctx, core.NoteInput{Title: noteTitle, Content: readContent(), Subject: noteSubject})
		if err != nil {
			fatal("Note not added", err)
		}
		await(p)
		fmt.Println("Note added")
	},
}

var noteEditCmd = &cobra.Command{
	Use:   "edit <id>",
	Short: "Replace the title or content of a note",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		app, ctx := openApp(cmd)
		defer app.Close()

		id := parseID(args[0])
		current, err := app.Notes.Note(ctx, id)
		if err != nil {
			fatal("Error reading note", err)
		}
		title, content := current.Title, current.Content
		if cmd.Flags().Changed("title") {
			title = noteTitle
		}
		if c := readContent(); c != "" {
			content = c
		}
		p, err := app.Notes.Update(ctx, id, title, content)
		if err != nil {
			fatal("Note not updated", err)
		}
		await(p)
		fmt.Println("Note updated")
	},
}

var noteRmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Delete a note",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		app, ctx := openApp(cmd)
		defer app.Close()

		id := parseID(args[0])
		if !assumeYes {
			ok, err := terminal.Confirm(ctx, fmt.Sprintf("Delete note %d?", id))
			if err != nil {
				fatal("Error reading input", err)
			}
			if !ok {
				return
			}
		}
		p, err := app.Notes.Delete(ctx, id)
		if err != nil {
			fatal("Note not deleted", err)
		}
		await(p)
		fmt.Println("Note deleted")
	},
}

var noteMvCmd = &cobra.Command{
	Use:   "mv <id> <subject>",
	Short: "Move a note to another subject",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		app, ctx := openApp(cmd)
		defer app.Close()

		p, err := app.Notes.Move(ctx, parseID(args[0]), args[1])
		if err != nil {
			fatal("Note not moved", err)
		}
		await(p)
		fmt.Printf("Note moved to %s\n", strings.TrimSpace(args[1]))
	},
}

var noteTopicCmd = &cobra.Command{
	Use:   "topic <id>",
	Short: "Generate a quiz topic from a note for the next quiz",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		app, ctx := openApp(cmd)
		defer app.Close()

		topic, err := app.Notes.GenerateTopic(ctx, parseID(args[0]))
		if err != nil {
			fatal("Error generating topic", err)
		}
		fmt.Printf("Next quiz topic: %s\n", topic)
	},
}

func init() {
	notesCmd.Flags().StringVarP(&noteSubject, "subject", "s", "", "Only notes of this subject")
	notesCmd.Flags().StringVar(&noteFilter, "filter", "", "Glob matched against the subject, e.g. 'bio*'")
	noteShowCmd.Flags().BoolVar(&noteHTML, "html", false, "Render the content as HTML")
	for _, c := range []*cobra.Command{noteAddCmd, noteEditCmd} {
		c.Flags().StringVarP(&noteTitle, "title", "t", "", "Note title")
		c.Flags().StringVarP(&noteContent, "content", "c", "", "Note content")
		c.Flags().StringVarP(&noteFile, "file", "f", "", "Read the content from a file, '-' for stdin")
	}
	noteAddCmd.Flags().StringVarP(&noteSubject, "subject", "s", "", "Subject of the note")
	noteRmCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Do not ask for confirmation")

	notesCmd.AddCommand(noteShowCmd, noteAddCmd, noteEditCmd, noteRmCmd, noteMvCmd, noteTopicCmd)
	rootCmd.AddCommand(notesCmd)
}
