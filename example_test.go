package noteq_test

import (
	"context"
	"fmt"
	"log"
	"net/http/httptest"

	"github.com/noteq/noteq"
	"github.com/noteq/noteq/pkg/core"
	"github.com/noteq/noteq/pkg/devserver"
	"github.com/noteq/noteq/pkg/quiz"
)

// Example_basic logs in against an in-process backend, writes a note and answers a quiz.
func Example_basic() {
	dev := devserver.New()
	srv := httptest.NewServer(dev.Handler())
	defer srv.Close()
	if _, err := dev.Seed("ada", "ada@example.com", "secret1"); err != nil {
		log.Fatal(err)
	}

	app, err := noteq.New(
		noteq.WithBackendURL(srv.URL),
		noteq.WithMLURL(srv.URL),
		noteq.WithStore("memory"),
		noteq.WithForceTemp(true),
	)
	if err != nil {
		log.Fatal(err)
	}
	defer app.Close()

	ctx := context.Background()
	if _, err := app.Account.Login(ctx, "ada@example.com", "secret1"); err != nil {
		log.Fatal(err)
	}

	// 1. Create a subject and a note in it
	p, err := app.Notes.AddSubject(ctx, "Astronomy")
	if err != nil {
		log.Fatal(err)
	}
	if err := p.Wait(); err != nil {
		log.Fatal(err)
	}
	p, err = app.Notes.Add(ctx, core.NoteInput{Content: "Planets move in ellipses.", Subject: "Astronomy"})
	if err != nil {
		log.Fatal(err)
	}
	if err := p.Wait(); err != nil {
		log.Fatal(err)
	}

	notes, err := app.Notes.Notes(ctx)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("%s / %s\n", notes[0].Subject, notes[0].Title)

	// 2. Answer a two question quiz
	if err := app.Quiz.Start(ctx, quiz.StartRequest{Topic: "Astronomy", Difficulty: "easy", Count: 2}); err != nil {
		log.Fatal(err)
	}
	for !app.Quiz.CanComplete() {
		q, _, err := app.Quiz.Current()
		if err != nil {
			log.Fatal(err)
		}
		if err := app.Quiz.Answer(ctx, q.AIAnswer); err != nil {
			log.Fatal(err)
		}
	}
	res, err := app.Quiz.Complete(ctx)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("score: %.0f%%\n", res.Score())
	// Output:
	// Astronomy / Planets move in ellipses.
	// score: 100%
}
