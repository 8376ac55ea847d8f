package archive

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/klauspost/compress/zip"
)

func TestZipDir(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "site-snapshots")
	files := map[string]string{
		"AcmeNotes_2024-03-05.html":    "<html>acme</html>",
		"BetaBoard_2024-03-05.html":    "<html>beta</html>",
		"nested/Extra_2024-03-05.html": "<html>extra</html>",
	}
	for name, body := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	dest := filepath.Join(root, "site-snapshots.zip")
	n, err := ZipDir(dir, dest)
	if err != nil {
		t.Fatalf("zip dir: %v", err)
	}
	if n != len(files) {
		t.Fatalf("archived %d files, want %d", n, len(files))
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Fatalf("source directory should be removed, stat err = %v", err)
	}

	zr, err := zip.OpenReader(dest)
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	defer zr.Close()

	got := make(map[string]string, len(zr.File))
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("open %s: %v", f.Name, err)
		}
		body, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatalf("read %s: %v", f.Name, err)
		}
		got[f.Name] = string(body)
	}
	if diff := cmp.Diff(files, got); diff != "" {
		t.Fatalf("archive contents mismatch (-want +got):\n%s", diff)
	}
}

func TestZipDirEmpty(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "privacy-policy-snapshots")
	if err := os.Mkdir(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	dest := filepath.Join(root, "privacy-policy-snapshots.zip")
	n, err := ZipDir(dir, dest)
	if err != nil {
		t.Fatalf("zip dir: %v", err)
	}
	if n != 0 {
		t.Fatalf("archived %d files, want 0", n)
	}

	zr, err := zip.OpenReader(dest)
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	defer zr.Close()
	if len(zr.File) != 0 {
		t.Fatalf("unexpected entries: %d", len(zr.File))
	}
}

func TestZipDirMissing(t *testing.T) {
	root := t.TempDir()
	if _, err := ZipDir(filepath.Join(root, "absent"), filepath.Join(root, "absent.zip")); err == nil {
		t.Fatalf("expected error for a missing directory")
	}
	if _, err := os.Stat(filepath.Join(root, "absent.zip")); !os.IsNotExist(err) {
		t.Fatalf("no archive should be created for a missing directory")
	}
}
