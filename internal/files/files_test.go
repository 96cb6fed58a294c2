package files

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newWorkspace(t *testing.T) (*Workspace, string) {
	t.Helper()
	dir := t.TempDir()
	return New(dir), dir
}

func TestListMarksDirectories(t *testing.T) {
	w, dir := newWorkspace(t)
	os.MkdirAll(filepath.Join(dir, "notes"), 0o755)
	os.WriteFile(filepath.Join(dir, "todo.txt"), []byte("x"), 0o644)

	out, err := w.List("")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if !strings.Contains(out, "notes"+string(filepath.Separator)) {
		t.Errorf("directory not marked:\n%s", out)
	}
	if !strings.Contains(out, "todo.txt") {
		t.Errorf("file missing:\n%s", out)
	}
	// Directories sort first.
	if strings.Index(out, "notes") > strings.Index(out, "todo.txt") {
		t.Errorf("directories not listed first:\n%s", out)
	}
}

func TestListEmpty(t *testing.T) {
	w, _ := newWorkspace(t)
	out, err := w.List("")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if out != "(empty directory)" {
		t.Errorf("got %q", out)
	}
}

func TestPreviewFirstLines(t *testing.T) {
	w, dir := newWorkspace(t)
	var content strings.Builder
	for i := 1; i <= 20; i++ {
		fmt.Fprintf(&content, "line %d\n", i)
	}
	os.WriteFile(filepath.Join(dir, "long.txt"), []byte(content.String()), 0o644)

	out, err := w.Preview("long.txt")
	if err != nil {
		t.Fatalf("Preview: %v", err)
	}
	if got := len(strings.Split(out, "\n")); got != previewLines {
		t.Errorf("preview has %d lines, want %d", got, previewLines)
	}
}

func TestCreateFolder(t *testing.T) {
	w, dir := newWorkspace(t)
	if err := w.CreateFolder("projects/2026"); err != nil {
		t.Fatalf("CreateFolder: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "projects", "2026")); err != nil {
		t.Errorf("folder not created: %v", err)
	}
}

func TestEscapeRejected(t *testing.T) {
	w, _ := newWorkspace(t)
	for _, rel := range []string{"../outside", "a/../../outside", "../../etc/passwd"} {
		if _, err := w.List(rel); !errors.Is(err, ErrOutsideWorkspace) {
			t.Errorf("List(%q) error = %v, want ErrOutsideWorkspace", rel, err)
		}
		if err := w.CreateFolder(rel); !errors.Is(err, ErrOutsideWorkspace) {
			t.Errorf("CreateFolder(%q) error = %v, want ErrOutsideWorkspace", rel, err)
		}
	}
}
