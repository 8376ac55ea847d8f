package pipeline

import (
	"fmt"
	"os"
	"strings"
)

// WriteLinks stores the discovered links, one per line.
func WriteLinks(path string, links []string) error {
	if err := ensureDir(path); err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte(strings.Join(links, "\n")), 0o644); err != nil {
		return fmt.Errorf("write links: %w", err)
	}
	return nil
}

// RunLog appends plain-text lines to the per-run log file.
type RunLog struct {
	path string
}

// NewRunLog returns a RunLog writing to path. The file is created on first append.
func NewRunLog(path string) *RunLog {
	return &RunLog{path: path}
}

// Path returns the log file location.
func (l *RunLog) Path() string {
	return l.path
}

// Append adds text to the end of the log without a trailing newline of its own.
func (l *RunLog) Append(text string) error {
	if l == nil || l.path == "" {
		return nil
	}
	if err := ensureDir(l.path); err != nil {
		return err
	}
	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open run log: %w", err)
	}
	if _, err := f.WriteString(text); err != nil {
		f.Close()
		return fmt.Errorf("append run log: %w", err)
	}
	return f.Close()
}

// Appendf formats and appends one line.
func (l *RunLog) Appendf(format string, args ...any) error {
	return l.Append(fmt.Sprintf(format, args...) + "\n")
}
