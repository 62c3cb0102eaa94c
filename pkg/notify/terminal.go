package notify

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"
)

// ErrNotInteractive is returned when a question cannot be asked.
var ErrNotInteractive = errors.New("input is not interactive")

// Terminal asks questions on a terminal.
type Terminal struct {
	In  io.Reader
	Out io.Writer
	// Fd is the descriptor used to read passwords without echo.
	Fd int

	once   sync.Once
	reader *bufio.Reader
}

// NewTerminal returns a Terminal on stdin/stderr.
func NewTerminal() *Terminal {
	return &Terminal{In: os.Stdin, Out: os.Stderr, Fd: int(os.Stdin.Fd())}
}

func (t *Terminal) lines() *bufio.Reader {
	t.once.Do(func() {
		t.reader = bufio.NewReader(t.In)
	})
	return t.reader
}

func (t *Terminal) readLine() (string, error) {
	line, err := t.lines().ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// Alert implements Notifier.
func (t *Terminal) Alert(_ context.Context, msg string) {
	fmt.Fprintln(t.Out, msg)
}

// Confirm implements Notifier. Only "y" and "yes" confirm.
func (t *Terminal) Confirm(_ context.Context, msg string) (bool, error) {
	fmt.Fprintf(t.Out, "%s [y/N]: ", msg)
	answer, err := t.readLine()
	if err != nil {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}

// Prompt implements Notifier.
func (t *Terminal) Prompt(_ context.Context, msg, def string) (string, error) {
	if def != "" {
		fmt.Fprintf(t.Out, "%s [%s]: ", msg, def)
	} else {
		fmt.Fprintf(t.Out, "%s: ", msg)
	}
	answer, err := t.readLine()
	if err != nil {
		return "", err
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return def, nil
	}
	return answer, nil
}

// Password implements Notifier. Input falls back to a plain line when In is not a terminal.
func (t *Terminal) Password(_ context.Context, msg string) (string, error) {
	fmt.Fprintf(t.Out, "%s: ", msg)
	if f, ok := t.In.(*os.File); ok && term.IsTerminal(t.Fd) && int(f.Fd()) == t.Fd {
		secret, err := term.ReadPassword(t.Fd)
		fmt.Fprintln(t.Out)
		if err != nil {
			return "", err
		}
		return string(secret), nil
	}
	return t.readLine()
}
