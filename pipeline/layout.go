package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Layout is the per-run directory tree under the data root.
type Layout struct {
	Root string
	Date string
}

// NewLayout returns the layout for the run that started at now.
func NewLayout(dataPath string, now time.Time) Layout {
	return Layout{
		Root: dataPath,
		Date: RunDate(now),
	}
}

// RunDate formats the date stamp used in directory and file names.
func RunDate(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

func (l Layout) RunDir() string             { return filepath.Join(l.Root, l.Date) }
func (l Layout) LinksDir() string           { return filepath.Join(l.RunDir(), "links") }
func (l Layout) AppDataDir() string         { return filepath.Join(l.RunDir(), "app-data") }
func (l Layout) SiteSnapshotsDir() string   { return filepath.Join(l.RunDir(), "site-snapshots") }
func (l Layout) PolicySnapshotsDir() string { return filepath.Join(l.RunDir(), "privacy-policy-snapshots") }
func (l Layout) LogsDir() string            { return filepath.Join(l.RunDir(), "logs") }

func (l Layout) LinksFile() string { return filepath.Join(l.LinksDir(), "links.txt") }
func (l Layout) LogFile() string   { return filepath.Join(l.LogsDir(), "logs.txt") }

// DatasetFile returns the dataset path for the given extension (json or csv).
func (l Layout) DatasetFile(ext string) string {
	return filepath.Join(l.AppDataDir(), fmt.Sprintf("zoom_marketplace_%s.%s", l.Date, ext))
}

// Ensure creates every directory of the layout.
func (l Layout) Ensure() error {
	for _, dir := range []string{l.LinksDir(), l.AppDataDir(), l.SiteSnapshotsDir(), l.PolicySnapshotsDir(), l.LogsDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}
