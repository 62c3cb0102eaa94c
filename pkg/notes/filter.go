package notes

import (
	"fmt"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/noteq/noteq/pkg/core"
)

// Filter keeps the notes whose subject matches a glob pattern such as "bio*"
// or "{math,physics}". Matching ignores case. An empty pattern keeps everything.
func Filter(notes []core.Note, pattern string) ([]core.Note, error) {
	if pattern == "" {
		return notes, nil
	}
	pattern = strings.ToLower(pattern)
	if !doublestar.ValidatePattern(pattern) {
		return nil, core.Invalid("pattern", "invalid glob %q", pattern)
	}
	var out []core.Note
	for _, n := range notes {
		ok, err := doublestar.Match(pattern, strings.ToLower(n.Subject))
		if err != nil {
			return nil, fmt.Errorf("match %q: %w", pattern, err)
		}
		if ok {
			out = append(out, n)
		}
	}
	return out, nil
}
