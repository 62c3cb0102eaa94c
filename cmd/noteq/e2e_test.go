package main

import (
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noteq/noteq/pkg/devserver"
)

// buildBinary builds the noteq binary into dir and returns its path.
func buildBinary(t *testing.T, dir string) string {
	t.Helper()
	bin := filepath.Join(dir, "noteq.exe")
	buildCmd := exec.Command("go", "build", "-o", bin, ".")
	if out, err := buildCmd.CombinedOutput(); err != nil {
		t.Fatalf("Failed to build noteq: %v\n%s", err, string(out))
	}
	return bin
}

type cli struct {
	t    *testing.T
	bin  string
	args []string
}

func (c cli) run(stdin string, args ...string) string {
	c.t.Helper()
	cmd := exec.Command(c.bin, append(append([]string{}, c.args...), args...)...)
	cmd.Stdin = strings.NewReader(stdin)
	cmd.Env = append(os.Environ(), "NOTEQ_STORE=", "NOTEQ_STORE_DSN=")
	out, err := cmd.CombinedOutput()
	require.NoError(c.t, err, "noteq %s\n%s", strings.Join(args, " "), out)
	return string(out)
}

func TestCLI_EndToEnd(t *testing.T) {
	if testing.Short() {
		t.Skip("builds the binary")
	}
	dev := devserver.New()
	srv := httptest.NewServer(dev.Handler())
	defer srv.Close()
	_, err := dev.Seed("ada", "ada@example.com", "secret1")
	require.NoError(t, err)

	tempDir := t.TempDir()
	stateDir := filepath.Join(tempDir, "state")
	c := cli{t: t, bin: buildBinary(t, tempDir), args: []string{
		"--backend", srv.URL, "--ml", srv.URL, "--state-dir", stateDir,
	}}

	assert.Contains(t, c.run("", "version"), "noteq version")
	assert.Contains(t, c.run("secret1\n", "login", "--email", "ada@example.com"), "Logged in")
	assert.FileExists(t, filepath.Join(stateDir, "local.json"))

	c.run("", "subjects", "add", "Astronomy")
	c.run("", "notes", "add", "-s", "Astronomy", "-t", "Orbits", "-c", "Planets move in ellipses.")
	list := c.run("", "notes")
	assert.Contains(t, list, "Astronomy")
	assert.Contains(t, list, "Orbits")

	assert.Contains(t, c.run("", "quiz", "start", "-t", "Astronomy", "-d", "easy", "-n", "2"), "Question 1/2")
	assert.Contains(t, c.run("", "quiz", "answer", "A"), "Question 2/2")
	assert.Contains(t, c.run("", "quiz", "answer", "B"), "noteq quiz complete")
	assert.Contains(t, c.run("", "quiz", "complete"), "Score:")
	assert.Contains(t, c.run("", "quiz"), "Topic: Astronomy", "results survive the process")

	exportDir := filepath.Join(tempDir, "export")
	assert.Contains(t, c.run("", "export", exportDir), "Exported 1 notes")
	matches, err := filepath.Glob(filepath.Join(exportDir, "astronomy", "*-orbits.md"))
	require.NoError(t, err)
	assert.Len(t, matches, 1)

	c.run("", "logout")
	_, err = os.Stat(filepath.Join(stateDir, "local.json"))
	require.NoError(t, err)
	data, err := os.ReadFile(filepath.Join(stateDir, "local.json"))
	require.NoError(t, err)
	assert.NotContains(t, string(data), "token")
}
