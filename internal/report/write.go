package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Format selects the report output format.
type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatHTML     Format = "html"
)

// ParseFormat accepts "markdown", "md" or "html".
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "markdown", "md":
		return FormatMarkdown, nil
	case "html":
		return FormatHTML, nil
	}
	return "", fmt.Errorf("unknown report format %q (want markdown or html)", s)
}

// FormatForPath infers the format from a file extension, defaulting to markdown.
func FormatForPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm":
		return FormatHTML
	}
	return FormatMarkdown
}

// Render writes the snapshot to w in the given format.
func Render(w io.Writer, s Snapshot, f Format) error {
	switch f {
	case FormatHTML:
		return HTML(w, s)
	case FormatMarkdown, "":
		_, err := io.WriteString(w, Markdown(s))
		return err
	}
	return fmt.Errorf("unknown report format %q", f)
}

// WriteFile renders the snapshot into path, creating parent directories.
func WriteFile(path string, s Snapshot, f Format) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating report directory: %w", err)
	}
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating report file: %w", err)
	}
	defer out.Close()

	if err := Render(out, s, f); err != nil {
		return err
	}
	return out.Close()
}
