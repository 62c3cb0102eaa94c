package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/noteq/noteq"
	"github.com/noteq/noteq/pkg/core"
	"github.com/noteq/noteq/pkg/quiz"
)

var (
	quizTopic      string
	quizDifficulty string
	quizCount      int
	quizExplain    bool
)

// resumeQuiz reloads the attempt saved by an earlier invocation.
func resumeQuiz(ctx context.Context, app *noteq.App) {
	if err := app.Quiz.Resume(ctx); err != nil {
		fatal("Error loading quiz", err)
	}
}

func printQuestion(f *quiz.Flow) {
	q, pos, err := f.Current()
	if err != nil {
		fatal("No question", err)
	}
	fmt.Printf("Question %d/%d: %s\n", pos, f.Total(), q.Title)
	for _, letter := range []string{"A", "B", "C", "D"} {
		fmt.Printf("  %s) %s\n", letter, q.Option(letter))
	}
}

func printResults(res quiz.Results) {
	if jsonOutput {
		printJSON(res)
		return
	}
	fmt.Printf("Topic: %s\n", res.Topic)
	for i, item := range res.Items {
		mark := "✗"
		if item.Correct {
			mark = "✓"
		}
		fmt.Printf("%s %2d. %s\n", mark, i+1, item.Question.Title)
		if !item.Correct {
			fmt.Printf("      you: %s  expected: %s\n", item.Selected, item.Question.AIAnswer)
		}
		if quizExplain && item.Question.ExplanationText != "" {
			fmt.Printf("      %s\n", item.Question.ExplanationText)
		}
	}
	fmt.Printf("Score: %d/%d (%.0f%%)  Familiarity: %.0f%%\n", res.Correct, len(res.Items), res.Score(), res.Familiarity)
}

// afterAnswer shows the next question or says the quiz can be submitted.
func afterAnswer(f *quiz.Flow) {
	if f.CanComplete() {
		fmt.Println("Every question is answered. Run `noteq quiz complete` to submit.")
		return
	}
	printQuestion(f)
}

var quizCmd = &cobra.Command{
	Use:   "quiz",
	Short: "Show the quiz in progress",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		app, ctx := openApp(cmd)
		defer app.Close()
		resumeQuiz(ctx, app)

		if app.Quiz.Stage() == quiz.StageResults {
			res, err := app.Quiz.Results()
			if err != nil {
				fatal("Error loading results", err)
			}
			printResults(res)
			return
		}
		if jsonOutput {
			printJSON(app.Quiz.State())
			return
		}
		printQuestion(app.Quiz)
	},
}

var quizStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Generate a new quiz",
	Long: `Generate a new quiz. Without --topic the topic generated from a note with
"noteq notes topic" is used.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		app, ctx := openApp(cmd)
		defer app.Close()

		req := quiz.StartRequest{Topic: quizTopic, Difficulty: quizDifficulty, Count: quizCount}
		if err := app.Quiz.Start(ctx, req); err != nil {
			fatal("Quiz not started", err)
		}
		printQuestion(app.Quiz)
	},
}

var quizAnswerCmd = &cobra.Command{
	Use:   "answer <A|B|C|D>",
	Short: "Answer the current question",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		app, ctx := openApp(cmd)
		defer app.Close()
		resumeQuiz(ctx, app)

		if err := app.Quiz.Answer(ctx, args[0]); err != nil {
			fatal("Answer not recorded", err)
		}
		afterAnswer(app.Quiz)
	},
}

var quizBackCmd = &cobra.Command{
	Use:   "back",
	Short: "Go back to the previous question",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		app, ctx := openApp(cmd)
		defer app.Close()
		resumeQuiz(ctx, app)

		if err := app.Quiz.Back(ctx); err != nil {
			fatal("Cannot go back", err)
		}
		printQuestion(app.Quiz)
	},
}

var quizCompleteCmd = &cobra.Command{
	Use:   "complete",
	Short: "Submit every answer and show the results",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		app, ctx := openApp(cmd)
		defer app.Close()
		resumeQuiz(ctx, app)

		res, err := app.Quiz.Complete(ctx)
		if err != nil {
			fatal("Quiz not submitted", err)
		}
		printResults(res)
	},
}

var quizPlayCmd = &cobra.Command{
	Use:   "play",
	Short: "Answer the quiz in progress interactively",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		app, ctx := openApp(cmd)
		defer app.Close()
		resumeQuiz(ctx, app)

		for app.Quiz.Stage() == quiz.StageAnswering && !app.Quiz.CanComplete() {
			printQuestion(app.Quiz)
			answer, err := terminal.Prompt(ctx, "Answer (A-D, < to go back)", "")
			if err != nil {
				fatal("Error reading input", err)
			}
			if strings.TrimSpace(answer) == "<" {
				err = app.Quiz.Back(ctx)
			} else {
				err = app.Quiz.Answer(ctx, answer)
			}
			if core.IsValidation(err) || errors.Is(err, core.ErrInvalidState) {
				fmt.Println(describe(err))
				continue
			}
			if err != nil {
				fatal("Answer not recorded", err)
			}
		}
		if app.Quiz.Stage() == quiz.StageAnswering {
			res, err := app.Quiz.Complete(ctx)
			if err != nil {
				fatal("Quiz not submitted", err)
			}
			printResults(res)
		}
	},
}

var quizFavoriteCmd = &cobra.Command{
	Use:   "favorite",
	Short: "Save the explanation of the current question as a note",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		app, ctx := openApp(cmd)
		defer app.Close()
		resumeQuiz(ctx, app)

		q, _, err := app.Quiz.Current()
		if err != nil {
			fatal("No question", err)
		}
		if err := app.Quiz.AddFavorite(ctx, q.ID, q.ExplanationText); err != nil {
			fatal("Favorite not saved", err)
		}
		app.Notes.ClearCache(ctx)
		fmt.Println("Saved to your notes")
	},
}

func init() {
	quizStartCmd.Flags().StringVarP(&quizTopic, "topic", "t", "", "Quiz topic")
	quizStartCmd.Flags().StringVarP(&quizDifficulty, "difficulty", "d", "medium", "easy, medium or hard")
	quizStartCmd.Flags().IntVarP(&quizCount, "count", "n", 5, fmt.Sprintf("Number of questions (1-%d)", quiz.MaxQuestions))
	for _, c := range []*cobra.Command{quizCmd, quizCompleteCmd, quizPlayCmd} {
		c.Flags().BoolVar(&quizExplain, "explain", false, "Show the explanation of each question")
	}

	quizCmd.AddCommand(quizStartCmd, quizAnswerCmd, quizBackCmd, quizCompleteCmd, quizPlayCmd, quizFavoriteCmd)
	rootCmd.AddCommand(quizCmd)
}
