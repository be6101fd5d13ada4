package datadir

import (
	"os"
	"path/filepath"
	"testing"
)

func TestInitCreatesFullLayout(t *testing.T) {
	root := filepath.Join(t.TempDir(), "data")

	if err := Init(root); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	missing, err := Verify(root)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if len(missing) != 0 {
		t.Errorf("expected no missing directories after Init, got %v", missing)
	}

	for _, name := range []string{"README.md", ".gitignore"} {
		if _, err := os.Stat(filepath.Join(root, name)); err != nil {
			t.Errorf("expected %s to exist: %v", name, err)
		}
	}
	if _, err := os.Stat(filepath.Join(root, "cache", ".gitkeep")); err != nil {
		t.Errorf("expected cache/.gitkeep to exist: %v", err)
	}
}

func TestInitIdempotent(t *testing.T) {
	root := t.TempDir()
	if err := Init(root); err != nil {
		t.Fatalf("first Init failed: %v", err)
	}
	if err := Init(root); err != nil {
		t.Fatalf("second Init failed: %v", err)
	}
}

func TestVerifyReportsMissing(t *testing.T) {
	root := t.TempDir()
	if err := Init(root); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	if err := os.RemoveAll(filepath.Join(root, "historical", "odds_history")); err != nil {
		t.Fatalf("removing directory: %v", err)
	}
	if err := os.RemoveAll(filepath.Join(root, "raw", "fixtures")); err != nil {
		t.Fatalf("removing directory: %v", err)
	}

	missing, err := Verify(root)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if len(missing) != 2 {
		t.Fatalf("expected 2 missing directories, got %v", missing)
	}
	if missing[0] != "historical/odds_history" || missing[1] != "raw/fixtures" {
		t.Errorf("unexpected missing set: %v", missing)
	}
}

func TestVerifyMissingRoot(t *testing.T) {
	if _, err := Verify(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Error("expected error for missing root, got nil")
	}
}

func TestVerifyFileInPlaceOfDir(t *testing.T) {
	root := t.TempDir()
	if err := Init(root); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	cache := filepath.Join(root, "cache")
	if err := os.RemoveAll(cache); err != nil {
		t.Fatalf("removing cache: %v", err)
	}
	if err := os.WriteFile(cache, []byte("not a directory"), 0o644); err != nil {
		t.Fatalf("writing file: %v", err)
	}

	missing, err := Verify(root)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if len(missing) != 1 || missing[0] != "cache" {
		t.Errorf("expected cache reported missing, got %v", missing)
	}
}
