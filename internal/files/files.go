// Package files is the filesystem skill: listing, previewing, and
// creating entries inside a configured workspace directory. Paths from
// the classifier never escape the workspace root.
package files

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const (
	// maxListingChars caps the directory listing sent to chat.
	maxListingChars = 2000

	// previewLines is how many lines of a file a preview shows.
	previewLines = 10
)

// ErrOutsideWorkspace rejects paths that resolve outside the
// workspace root.
var ErrOutsideWorkspace = errors.New("path escapes the workspace")

// Workspace performs file operations rooted at one directory.
type Workspace struct {
	root string
}

// New creates a workspace rooted at dir.
func New(dir string) *Workspace {
	return &Workspace{root: filepath.Clean(dir)}
}

// resolve joins rel onto the root and verifies the result stays
// inside it.
func (w *Workspace) resolve(rel string) (string, error) {
	abs := filepath.Clean(filepath.Join(w.root, rel))
	if abs != w.root && !strings.HasPrefix(abs, w.root+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q", ErrOutsideWorkspace, rel)
	}
	return abs, nil
}

// List returns the entries of a directory, directories first, each
// directory marked with a trailing separator. rel may be empty for
// the root.
func (w *Workspace) List(rel string) (string, error) {
	abs, err := w.resolve(rel)
	if err != nil {
		return "", err
	}

	entries, err := os.ReadDir(abs)
	if err != nil {
		return "", fmt.Errorf("list %q: %w", rel, err)
	}
	if len(entries) == 0 {
		return "(empty directory)", nil
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() {
			name += string(filepath.Separator)
		}
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		di := strings.HasSuffix(names[i], string(filepath.Separator))
		dj := strings.HasSuffix(names[j], string(filepath.Separator))
		if di != dj {
			return di
		}
		return names[i] < names[j]
	})

	out := strings.Join(names, "\n")
	if len(out) > maxListingChars {
		out = out[:maxListingChars] + "\n… (truncated)"
	}
	return out, nil
}

// Preview returns the first lines of a file.
func (w *Workspace) Preview(rel string) (string, error) {
	abs, err := w.resolve(rel)
	if err != nil {
		return "", err
	}

	f, err := os.Open(abs)
	if err != nil {
		return "", fmt.Errorf("open %q: %w", rel, err)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() && len(lines) < previewLines {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("read %q: %w", rel, err)
	}
	if len(lines) == 0 {
		return "(empty file)", nil
	}
	return strings.Join(lines, "\n"), nil
}

// CreateFolder makes a directory (and parents) inside the workspace.
func (w *Workspace) CreateFolder(rel string) error {
	if strings.TrimSpace(rel) == "" {
		return fmt.Errorf("folder name is required")
	}
	abs, err := w.resolve(rel)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return fmt.Errorf("create folder %q: %w", rel, err)
	}
	return nil
}
