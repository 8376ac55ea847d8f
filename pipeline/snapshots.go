package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
)

// SnapshotStore persists raw page markup for audit.
type SnapshotStore struct {
	siteDir   string
	policyDir string
	date      string
}

// NewSnapshotStore writes into the snapshot directories of layout.
func NewSnapshotStore(layout Layout) *SnapshotStore {
	return &SnapshotStore{
		siteDir:   layout.SiteSnapshotsDir(),
		policyDir: layout.PolicySnapshotsDir(),
		date:      layout.Date,
	}
}

// SaveSite writes an app detail page as {key}_{date}.html and returns its path.
func (s *SnapshotStore) SaveSite(key, html string) (string, error) {
	return s.write(filepath.Join(s.siteDir, fmt.Sprintf("%s_%s.html", key, s.date)), html)
}

// SavePolicy writes a privacy policy page as {key}_privacy_policy_{date}.html.
func (s *SnapshotStore) SavePolicy(key, html string) (string, error) {
	return s.write(filepath.Join(s.policyDir, fmt.Sprintf("%s_privacy_policy_%s.html", key, s.date)), html)
}

func (s *SnapshotStore) write(path, html string) (string, error) {
	if err := ensureDir(path); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, []byte(html), 0o644); err != nil {
		return "", fmt.Errorf("write snapshot %s: %w", path, err)
	}
	return path, nil
}
