// Package output delivers formatted results to stdout or a file.
package output

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Writer sends formatted content to Path, or to Stdout when Path is empty.
type Writer struct {
	Path   string
	Stdout io.Writer
	// Status receives human-oriented notices such as the written file path.
	Status io.Writer
}

// New creates a Writer bound to the process streams.
func New(path string) *Writer {
	return &Writer{Path: path, Stdout: os.Stdout, Status: os.Stderr}
}

// Write delivers content. A trailing newline is added for terminal output.
func (w *Writer) Write(content string) error {
	if w.Path == "" {
		if !strings.HasSuffix(content, "\n") {
			content += "\n"
		}
		if _, err := io.WriteString(w.Stdout, content); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		return nil
	}

	if dir := filepath.Dir(w.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	if err := os.WriteFile(w.Path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to write to file: %w", err)
	}
	if w.Status != nil {
		fmt.Fprintf(w.Status, "Output written to: %s\n", w.Path)
	}
	return nil
}
