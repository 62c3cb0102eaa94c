package main

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noteq/noteq/pkg/core"
)

func TestDescribe(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"unauthenticated", fmt.Errorf("profile: %w", core.ErrUnauthenticated), "not logged in (run `noteq login`)"},
		{"no quiz", core.ErrNoQuiz, "no quiz in progress (run `noteq quiz start`)"},
		{"validation", core.Invalid("count", "must be at most 15"), "count: must be at most 15"},
		{"backend message", &core.HTTPError{Status: http.StatusBadRequest, Body: `{"error":"Invalid credentials"}`}, "Invalid credentials"},
		{"plain", fmt.Errorf("dial tcp: refused"), "dial tcp: refused"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, describe(tt.err))
		})
	}
}

func TestCommandsRegistered(t *testing.T) {
	for _, path := range [][]string{
		{"login"}, {"logout"}, {"register"}, {"password"}, {"profile"}, {"familiarity"},
		{"notes", "add"}, {"notes", "mv"}, {"notes", "topic"}, {"subjects", "rm"},
		{"quiz", "start"}, {"quiz", "answer"}, {"quiz", "complete"}, {"quiz", "play"},
		{"export"}, {"import"}, {"devserver"}, {"watch"}, {"refresh"}, {"state"}, {"config", "save"},
	} {
		cmd, _, err := rootCmd.Find(path)
		if assert.NoError(t, err, path) {
			assert.Equal(t, path[len(path)-1], cmd.Name())
		}
	}
}
