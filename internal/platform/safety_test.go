package platform

import (
	"os"
	"path/filepath"
	"testing"
)

func TestResolveStateDir(t *testing.T) {
	t.Parallel()

	tempRoot := os.TempDir()
	devBase := filepath.Join(tempRoot, "noteq-dev")

	tests := []struct {
		name      string
		dir       string
		forceTemp bool
		expected  string
	}{
		{name: "Normal Mode - Current Dir", dir: ".", expected: "."},
		{name: "Normal Mode - Empty", dir: "", expected: "."},
		{name: "Normal Mode - Specific Path", dir: "/home/ada/.config/noteq", expected: "/home/ada/.config/noteq"},
		{name: "Dev Mode - Empty Path", dir: "", forceTemp: true, expected: filepath.Join(devBase, "default")},
		{name: "Dev Mode - Current Dir", dir: ".", forceTemp: true, expected: filepath.Join(devBase, "default")},
		{name: "Dev Mode - Real Config Dir", dir: "/home/ada/.config/noteq", forceTemp: true, expected: filepath.Join(devBase, "noteq")},
		{name: "Dev Mode - Clean Name", dir: "../bad/path", forceTemp: true, expected: filepath.Join(devBase, "path")},
		{name: "Dev Mode - Exception for Temp Dir", dir: filepath.Join(tempRoot, "my-test"), forceTemp: true, expected: filepath.Join(tempRoot, "my-test")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveStateDir(tt.dir, tt.forceTemp)
			if got != tt.expected {
				t.Errorf("ResolveStateDir(%q, %v) = %q; want %q", tt.dir, tt.forceTemp, got, tt.expected)
			}
		})
	}
}

func TestIsDevRun(t *testing.T) {
	if !IsDevRun() {
		t.Errorf("IsDevRun() = false; want true inside go test")
	}
}
