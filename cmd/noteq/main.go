package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/noteq/noteq/pkg/api"
	"github.com/noteq/noteq/pkg/core"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	Execute(ctx)
}

func fatal(msg string, err error) {
	fmt.Fprintf(os.Stderr, "%s: %s\n", msg, describe(err))
	os.Exit(1)
}

// describe turns an error into the message shown to the user.
func describe(err error) string {
	switch {
	case errors.Is(err, core.ErrUnauthenticated):
		return "not logged in (run `noteq login`)"
	case errors.Is(err, core.ErrNoQuiz):
		return "no quiz in progress (run `noteq quiz start`)"
	case core.IsValidation(err):
		return err.Error()
	}
	return api.ErrorMessage(err)
}
