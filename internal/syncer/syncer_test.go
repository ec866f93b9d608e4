package syncer

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"jellyplex/internal/hardlink"
	"jellyplex/internal/library"
	"jellyplex/internal/logging"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func newTestSyncer(t *testing.T, srcConv, dstConv library.Convention, opts Options) (*Syncer, string, string) {
	t.Helper()
	srcRoot := t.TempDir()
	dstRoot := t.TempDir()
	logger := logging.NewNop()
	source := library.New(srcRoot, srcConv, logger)
	target := library.New(dstRoot, dstConv, logger)
	return New(source, target, opts, logger), srcRoot, dstRoot
}

func TestRunLinksJellyfinToPlex(t *testing.T) {
	s, srcRoot, dstRoot := newTestSyncer(t, library.Jellyfin, library.Plex, Options{})
	src := filepath.Join(srcRoot, "Title (2020) [tmdbid-999]", "Title (2020) [tmdbid-999].mkv")
	writeFile(t, src, "video payload")
	writeFile(t, filepath.Join(srcRoot, "Title (2020) [tmdbid-999]", "Title (2020) [tmdbid-999].en.srt"), "subs")

	summary, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Movies != 1 {
		t.Fatalf("Movies = %d, want 1", summary.Movies)
	}
	if summary.Linked != 2 {
		t.Fatalf("Linked = %d, want 2", summary.Linked)
	}

	dst := filepath.Join(dstRoot, "Title (2020) {tmdb-999}", "Title (2020) {tmdb-999}.mkv")
	same, err := hardlink.SameFile(src, dst)
	if err != nil {
		t.Fatalf("SameFile: %v", err)
	}
	if !same {
		t.Fatalf("%s is not hardlinked to %s", dst, src)
	}
	if _, err := os.Stat(filepath.Join(dstRoot, "Title (2020) {tmdb-999}", "Title (2020) {tmdb-999}.en.srt")); err != nil {
		t.Fatalf("sidecar not linked: %v", err)
	}
}

func TestRunIsIdempotent(t *testing.T) {
	s, srcRoot, _ := newTestSyncer(t, library.Jellyfin, library.Plex, Options{Delete: true})
	writeFile(t, filepath.Join(srcRoot, "Title (2020) [tmdbid-7]", "Title (2020) [tmdbid-7].mkv"), "payload")

	if _, err := s.Run(context.Background()); err != nil {
		t.Fatalf("first run: %v", err)
	}
	summary, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if summary.Linked != 0 || summary.Removed != 0 || summary.Repaired != 0 {
		t.Fatalf("second run mutated: linked=%d removed=%d repaired=%d",
			summary.Linked, summary.Removed, summary.Repaired)
	}
	if summary.Verified == 0 {
		t.Fatal("second run verified nothing")
	}
}

func TestConflictingPlanMutatesNothing(t *testing.T) {
	s, srcRoot, dstRoot := newTestSyncer(t, library.Plex, library.Jellyfin, Options{})
	// Both editions collapse onto the same Jellyfin folder name.
	writeFile(t, filepath.Join(srcRoot, "Title (2020) {tmdb-1} {edition-Extended}", "a.mkv"), "a")
	writeFile(t, filepath.Join(srcRoot, "Title (2020) {tmdb-1} {edition-Uncut}", "b.mkv"), "b")

	summary, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Movies != 0 || summary.Linked != 0 {
		t.Fatalf("conflicted plan processed movies: %+v", summary)
	}
	entries, err := os.ReadDir(dstRoot)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Fatalf("target was mutated: %d entries", len(entries))
	}
}

func TestDryRunMutatesNothing(t *testing.T) {
	s, srcRoot, dstRoot := newTestSyncer(t, library.Jellyfin, library.Plex, Options{DryRun: true, Delete: true})
	writeFile(t, filepath.Join(srcRoot, "Title (2020) [tmdbid-9]", "Title (2020) [tmdbid-9].mkv"), "payload")
	writeFile(t, filepath.Join(dstRoot, "Stray (1999)", "junk.mkv"), "junk")

	summary, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Linked != 0 || summary.Removed != 0 {
		t.Fatalf("dry run counted completed actions: linked=%d removed=%d", summary.Linked, summary.Removed)
	}
	if _, err := os.Stat(filepath.Join(dstRoot, "Title (2020) {tmdb-9}")); err == nil {
		t.Fatal("dry run created the target folder")
	}
	if _, err := os.Stat(filepath.Join(dstRoot, "Stray (1999)")); err != nil {
		t.Fatal("dry run removed the stray folder")
	}
}

func TestStrayFolderRemoved(t *testing.T) {
	s, srcRoot, dstRoot := newTestSyncer(t, library.Jellyfin, library.Plex, Options{Delete: true})
	writeFile(t, filepath.Join(srcRoot, "Title (2020) [tmdbid-9]", "Title (2020) [tmdbid-9].mkv"), "payload")
	writeFile(t, filepath.Join(dstRoot, "Stray (1999)", "junk.mkv"), "junk")

	summary, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Removed != 1 {
		t.Fatalf("Removed = %d, want 1", summary.Removed)
	}
	if _, err := os.Stat(filepath.Join(dstRoot, "Stray (1999)")); !os.IsNotExist(err) {
		t.Fatal("stray folder still present")
	}
}

func TestStaleLinkPreservedOnEditionMismatch(t *testing.T) {
	s, srcRoot, dstRoot := newTestSyncer(t, library.Jellyfin, library.Plex, Options{Delete: true})
	src := filepath.Join(srcRoot, "Title (2020) [tmdbid-1]", "Title (2020) [tmdbid-1] - Extended.mkv")
	writeFile(t, src, "payload")

	// A valid hardlink already in place, but named without the edition tag.
	stale := filepath.Join(dstRoot, "Title (2020) {tmdb-1}", "Title (2020) {tmdb-1}.mkv")
	if err := os.MkdirAll(filepath.Dir(stale), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.Link(src, stale); err != nil {
		t.Fatal(err)
	}

	summary, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if _, err := os.Stat(stale); err != nil {
		t.Fatal("stale hardlink was not preserved")
	}
	wanted := filepath.Join(dstRoot, "Title (2020) {tmdb-1}", "Title (2020) {tmdb-1} {edition-Extended}.mkv")
	if _, err := os.Stat(wanted); err == nil {
		t.Fatal("a second link was created instead of preserving the stale one")
	}
	if summary.Linked != 0 {
		t.Fatalf("Linked = %d, want 0", summary.Linked)
	}
}

func TestStaleLinkRenamedWithUpdateFilenames(t *testing.T) {
	s, srcRoot, dstRoot := newTestSyncer(t, library.Jellyfin, library.Plex, Options{UpdateFilenames: true})
	src := filepath.Join(srcRoot, "Title (2020) [tmdbid-1]", "Title (2020) [tmdbid-1] - Extended.mkv")
	writeFile(t, src, "payload")

	stale := filepath.Join(dstRoot, "Title (2020) {tmdb-1}", "Title (2020) {tmdb-1}.mkv")
	if err := os.MkdirAll(filepath.Dir(stale), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.Link(src, stale); err != nil {
		t.Fatal(err)
	}

	summary, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	wanted := filepath.Join(dstRoot, "Title (2020) {tmdb-1}", "Title (2020) {tmdb-1} {edition-Extended}.mkv")
	same, err := hardlink.SameFile(src, wanted)
	if err != nil {
		t.Fatalf("renamed file missing: %v", err)
	}
	if !same {
		t.Fatal("renamed file lost the hardlink")
	}
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Fatal("stale name still present after rename")
	}
	if summary.Linked != 0 {
		t.Fatalf("Linked = %d, want 0 (rename, not link)", summary.Linked)
	}
}

func TestStaleRenameDragsSidecars(t *testing.T) {
	s, srcRoot, dstRoot := newTestSyncer(t, library.Jellyfin, library.Plex, Options{UpdateFilenames: true})
	src := filepath.Join(srcRoot, "Title (2020) [tmdbid-1]", "Title (2020) [tmdbid-1] - Extended.mkv")
	writeFile(t, src, "payload")

	targetDir := filepath.Join(dstRoot, "Title (2020) {tmdb-1}")
	stale := filepath.Join(targetDir, "Title (2020) {tmdb-1}.mkv")
	if err := os.MkdirAll(targetDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.Link(src, stale); err != nil {
		t.Fatal(err)
	}
	writeFile(t, filepath.Join(targetDir, "Title (2020) {tmdb-1}.en.srt"), "subs")

	if _, err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	renamed := filepath.Join(targetDir, "Title (2020) {tmdb-1} {edition-Extended}.en.srt")
	if _, err := os.Stat(renamed); err != nil {
		t.Fatalf("sidecar did not follow the rename: %v", err)
	}
}

func TestZeroByteVideoNeverLinked(t *testing.T) {
	s, srcRoot, dstRoot := newTestSyncer(t, library.Jellyfin, library.Plex, Options{})
	writeFile(t, filepath.Join(srcRoot, "Title (2020) [tmdbid-5]", "Title (2020) [tmdbid-5].mkv"), "")

	summary, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Linked != 0 {
		t.Fatalf("Linked = %d, want 0", summary.Linked)
	}
	if _, err := os.Stat(filepath.Join(dstRoot, "Title (2020) {tmdb-5}", "Title (2020) {tmdb-5}.mkv")); err == nil {
		t.Fatal("zero-byte file was linked")
	}
}

func TestVerifyOnlyReportsUnlinkedTarget(t *testing.T) {
	s, srcRoot, dstRoot := newTestSyncer(t, library.Jellyfin, library.Plex, Options{VerifyOnly: true})
	writeFile(t, filepath.Join(srcRoot, "Title (2020) [tmdbid-2]", "Title (2020) [tmdbid-2].mkv"), "payload")
	// Byte-identical copy at the destination, not a hardlink.
	writeFile(t, filepath.Join(dstRoot, "Title (2020) {tmdb-2}", "Title (2020) {tmdb-2}.mkv"), "payload")

	summary, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Broken != 1 {
		t.Fatalf("Broken = %d, want 1", summary.Broken)
	}
	if summary.Linked != 0 || summary.Repaired != 0 {
		t.Fatal("verify-only mutated the target")
	}
}

func TestAssetTreeMirrored(t *testing.T) {
	s, srcRoot, dstRoot := newTestSyncer(t, library.Jellyfin, library.Plex, Options{})
	movie := filepath.Join(srcRoot, "Title (2020) [tmdbid-3]")
	writeFile(t, filepath.Join(movie, "Title (2020) [tmdbid-3].mkv"), "payload")
	writeFile(t, filepath.Join(movie, "extras", "interview.mkv"), "extra")
	writeFile(t, filepath.Join(movie, "extras", "behind the scenes", "bts.mkv"), "bts")

	if _, err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	target := filepath.Join(dstRoot, "Title (2020) {tmdb-3}")
	for _, rel := range []string{
		filepath.Join("extras", "interview.mkv"),
		filepath.Join("extras", "behind the scenes", "bts.mkv"),
	} {
		same, err := hardlink.SameFile(filepath.Join(movie, rel), filepath.Join(target, rel))
		if err != nil {
			t.Fatalf("%s: %v", rel, err)
		}
		if !same {
			t.Fatalf("%s is not hardlinked", rel)
		}
	}
}

func TestSingleItemRun(t *testing.T) {
	s, srcRoot, dstRoot := newTestSyncer(t, library.Jellyfin, library.Plex, Options{Only: "Title (2020) [tmdbid-4]"})
	writeFile(t, filepath.Join(srcRoot, "Title (2020) [tmdbid-4]", "Title (2020) [tmdbid-4].mkv"), "payload")
	writeFile(t, filepath.Join(srcRoot, "Other (2021) [tmdbid-8]", "Other (2021) [tmdbid-8].mkv"), "other")

	summary, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Movies != 1 {
		t.Fatalf("Movies = %d, want 1", summary.Movies)
	}
	if _, err := os.Stat(filepath.Join(dstRoot, "Other (2021) {tmdb-8}")); err == nil {
		t.Fatal("single-item run synced an unrelated movie")
	}
}

func TestMissingTargetWithoutCreateFails(t *testing.T) {
	srcRoot := t.TempDir()
	logger := logging.NewNop()
	writeFile(t, filepath.Join(srcRoot, "Title (2020) [tmdbid-1]", "Title (2020) [tmdbid-1].mkv"), "payload")
	source := library.New(srcRoot, library.Jellyfin, logger)
	target := library.New(filepath.Join(t.TempDir(), "missing"), library.Plex, logger)

	s := New(source, target, Options{}, logger)
	if _, err := s.Run(context.Background()); err == nil {
		t.Fatal("expected a validation error for missing target")
	}

	s = New(source, target, Options{Create: true}, logger)
	if _, err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run with --create: %v", err)
	}
	if _, err := os.Stat(target.Root); err != nil {
		t.Fatal("target root was not created")
	}
}

func TestResolveMovieFolder(t *testing.T) {
	srcRoot := t.TempDir()
	folder := filepath.Join(srcRoot, "Title (2020) [tmdbid-1]")
	if err := os.MkdirAll(folder, 0o755); err != nil {
		t.Fatal(err)
	}
	source := library.New(srcRoot, library.Jellyfin, logging.NewNop())

	if got, ok := ResolveMovieFolder(source, folder); !ok || got != folder {
		t.Fatalf("containment resolve = %q, %v", got, ok)
	}
	// A remapped path resolves through its base name.
	if got, ok := ResolveMovieFolder(source, "/movies/Title (2020) [tmdbid-1]"); !ok || got != folder {
		t.Fatalf("base-name resolve = %q, %v", got, ok)
	}
	if _, ok := ResolveMovieFolder(source, "/movies/No Such Movie (1999)"); ok {
		t.Fatal("resolved a nonexistent folder")
	}
}
