package emit

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Writer persists resolved files.
type Writer interface {
	Write(ctx context.Context, path string, data []byte) error
	// Clean removes a previously generated directory. A missing directory is
	// not an error.
	Clean(ctx context.Context, dir string) error
}

// DirWriter writes below Root on the local file system, creating parent
// directories as needed.
type DirWriter struct {
	Root string
	Perm os.FileMode // file mode; 0644 when zero
}

func (w DirWriter) path(p string) (string, error) {
	if filepath.IsAbs(p) || w.Root == "" {
		return filepath.Clean(p), nil
	}
	full := filepath.Join(w.Root, p)
	rel, err := filepath.Rel(w.Root, full)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("emit: path %q escapes %q", p, w.Root)
	}
	return full, nil
}

func (w DirWriter) Write(_ context.Context, p string, data []byte) error {
	full, err := w.path(p)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("creating output dir: %w", err)
	}
	perm := w.Perm
	if perm == 0 {
		perm = 0o644
	}
	if err := os.WriteFile(full, data, perm); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}
	return nil
}

func (w DirWriter) Clean(_ context.Context, dir string) error {
	full, err := w.path(dir)
	if err != nil {
		return err
	}
	if full == filepath.Clean(w.Root) {
		return fmt.Errorf("emit: refusing to clean output root %q", w.Root)
	}
	return os.RemoveAll(full)
}

// MemWriter keeps files in memory.
type MemWriter struct {
	Files   map[string][]byte
	Cleaned []string
}

// NewMemWriter returns an empty MemWriter.
func NewMemWriter() *MemWriter { return &MemWriter{Files: map[string][]byte{}} }

func (w *MemWriter) Write(_ context.Context, p string, data []byte) error {
	w.Files[p] = append([]byte(nil), data...)
	return nil
}

func (w *MemWriter) Clean(_ context.Context, dir string) error {
	w.Cleaned = append(w.Cleaned, dir)
	prefix := strings.TrimSuffix(dir, "/") + "/"
	for p := range w.Files {
		if strings.HasPrefix(p, prefix) {
			delete(w.Files, p)
		}
	}
	return nil
}

// Paths returns the written paths in sorted order.
func (w *MemWriter) Paths() []string {
	out := make([]string, 0, len(w.Files))
	for p := range w.Files {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
