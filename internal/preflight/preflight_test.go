package preflight

import (
	"os"
	"path/filepath"
	"testing"

	"jellyplex/internal/library"
	"jellyplex/internal/logging"
)

func TestCheckSourcePopulated(t *testing.T) {
	root := t.TempDir()

	if res := CheckSourcePopulated(root); res.Passed {
		t.Fatal("empty source must not pass")
	}

	if err := os.Mkdir(filepath.Join(root, "Heat (1995) [tmdbid-949]"), 0o755); err != nil {
		t.Fatal(err)
	}
	if res := CheckSourcePopulated(root); !res.Passed {
		t.Fatalf("populated source failed: %s", res.Detail)
	}
}

func TestCheckSourcePopulatedIgnoresFiles(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "stray.mkv"), []byte("v"), 0o644); err != nil {
		t.Fatal(err)
	}
	if res := CheckSourcePopulated(root); res.Passed {
		t.Fatal("files alone must not count as movie folders")
	}
}

func TestCheckSourcePopulatedAccessError(t *testing.T) {
	// A missing root reads like a failed mount and must fail conservatively.
	if res := CheckSourcePopulated(filepath.Join(t.TempDir(), "absent")); res.Passed {
		t.Fatal("inaccessible source must not pass")
	}
}

func TestSameFilesystemSameTempDir(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a")
	b := filepath.Join(dir, "b")
	for _, p := range []string{a, b} {
		if err := os.Mkdir(p, 0o755); err != nil {
			t.Fatal(err)
		}
	}

	same, union := SameFilesystem(a, b)
	if !same {
		t.Fatal("paths in one temp dir must share a filesystem")
	}
	if union {
		t.Fatal("temp dir is not a union mount")
	}
}

func TestSameFilesystemStatFailure(t *testing.T) {
	dir := t.TempDir()
	same, union := SameFilesystem(filepath.Join(dir, "absent"), dir)
	if same || union {
		t.Fatalf("stat failure must report different, not union: same=%v union=%v", same, union)
	}
}

func TestCheckSameFilesystemResult(t *testing.T) {
	dir := t.TempDir()
	res, union := CheckSameFilesystem(dir, dir)
	if !res.Passed || union {
		t.Fatalf("result: %+v union=%v", res, union)
	}

	res, _ = CheckSameFilesystem(filepath.Join(dir, "absent"), dir)
	if res.Passed {
		t.Fatal("expected failure for missing path")
	}
}

func TestCheckColocationPlainFilesystem(t *testing.T) {
	sourceRoot := t.TempDir()
	targetRoot := t.TempDir()
	folder := filepath.Join(sourceRoot, "Heat (1995) [tmdbid-949]")
	if err := os.Mkdir(folder, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(folder, "Heat (1995) [tmdbid-949].mkv"), []byte("v"), 0o644); err != nil {
		t.Fatal(err)
	}

	source := library.New(sourceRoot, library.Jellyfin, logging.NewNop())
	target := library.New(targetRoot, library.Plex, logging.NewNop())

	res := CheckColocation(source, target, logging.NewNop())
	if !res.Passed {
		t.Fatalf("plain filesystem must pass colocation: %s", res.Detail)
	}
}

func TestCheckColocationEmptyLibrary(t *testing.T) {
	source := library.New(t.TempDir(), library.Jellyfin, logging.NewNop())
	target := library.New(t.TempDir(), library.Plex, logging.NewNop())

	res := CheckColocation(source, target, logging.NewNop())
	if !res.Passed {
		t.Fatalf("empty library must pass: %s", res.Detail)
	}
}
