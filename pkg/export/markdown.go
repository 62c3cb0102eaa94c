// Package export converts notes to and from Markdown files and Excel workbooks.
package export

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/noteq/noteq/pkg/adapters/fs"
	"github.com/noteq/noteq/pkg/core"
)

// Frontmatter is the YAML header of an exported note.
type Frontmatter struct {
	ID      int64     `yaml:"id,omitempty"`
	Title   string    `yaml:"title"`
	Subject string    `yaml:"subject"`
	Created time.Time `yaml:"created,omitempty"`
	Updated time.Time `yaml:"updated,omitempty"`
}

// MarshalMarkdown renders a note as Markdown with a YAML frontmatter.
func MarshalMarkdown(n core.Note) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("---\n")
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(Frontmatter{
		ID:      n.ID,
		Title:   n.Title,
		Subject: n.Subject,
		Created: n.CreatedAt,
		Updated: n.UpdatedAt,
	}); err != nil {
		return nil, fmt.Errorf("failed to encode frontmatter: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	buf.WriteString("---\n")
	buf.WriteString(n.Content)
	if !strings.HasSuffix(n.Content, "\n") {
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

// UnmarshalMarkdown parses a Markdown note. Files without frontmatter are
// accepted; their subject must then be supplied by the caller.
func UnmarshalMarkdown(data []byte) (Frontmatter, string, error) {
	data = bytes.ReplaceAll(data, []byte("\r\n"), []byte("\n"))
	if !bytes.HasPrefix(data, []byte("---\n")) {
		return Frontmatter{}, string(data), nil
	}
	rest := data[len("---\n"):]
	end := bytes.Index(rest, []byte("\n---"))
	if end < 0 {
		return Frontmatter{}, "", errors.New("frontmatter started but no closing delimiter found")
	}
	var fm Frontmatter
	if err := yaml.Unmarshal(rest[:end], &fm); err != nil {
		return Frontmatter{}, "", fmt.Errorf("failed to parse frontmatter: %w", err)
	}
	body := rest[end+len("\n---"):]
	body = bytes.TrimPrefix(body, []byte("\n"))
	return fm, string(body), nil
}

var unsafeChars = regexp.MustCompile(`[^a-z0-9]+`)

// Filename returns the file name a note is exported under.
func Filename(n core.Note) string {
	slug := strings.Trim(unsafeChars.ReplaceAllString(strings.ToLower(n.Title), "-"), "-")
	if len(slug) > 60 {
		slug = strings.TrimRight(slug[:60], "-")
	}
	if slug == "" {
		slug = "note"
	}
	return fmt.Sprintf("%d-%s.md", n.ID, slug)
}

// WriteDir exports every note to dir/<subject>/<file>.md.
func WriteDir(dir string, notes []core.Note) (int, error) {
	written := 0
	for _, n := range notes {
		data, err := MarshalMarkdown(n)
		if err != nil {
			return written, err
		}
		sub := strings.Trim(unsafeChars.ReplaceAllString(strings.ToLower(n.Subject), "-"), "-")
		if sub == "" {
			sub = "unfiled"
		}
		target := filepath.Join(dir, sub)
		if err := os.MkdirAll(target, 0o755); err != nil {
			return written, fmt.Errorf("failed to create %s: %w", target, err)
		}
		if err := fs.WriteFileAtomic(filepath.Join(target, Filename(n)), data, 0o644); err != nil {
			return written, err
		}
		written++
	}
	return written, nil
}

// ReadDir imports every .md file below dir. defaultSubject is used for files
// without a subject in their frontmatter.
func ReadDir(dir, defaultSubject string) (*ImportResult, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.EqualFold(filepath.Ext(path), ".md") {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", dir, err)
	}
	sort.Strings(paths)

	res := &ImportResult{}
	for _, p := range paths {
		res.TotalProcessed++
		data, err := os.ReadFile(p)
		if err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("%s: %v", p, err))
			continue
		}
		fm, body, err := UnmarshalMarkdown(data)
		if err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("%s: %v", p, err))
			continue
		}
		in := core.NoteInput{Title: fm.Title, Content: strings.TrimSpace(body), Subject: fm.Subject}
		if in.Subject == "" {
			in.Subject = defaultSubject
		}
		if err := core.Validate(in); err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("%s: %v", p, err))
			continue
		}
		res.Notes = append(res.Notes, in)
	}
	return res, nil
}
