package syncer

import (
	"os"
	"path/filepath"
	"strings"

	"jellyplex/internal/library"
)

// ResolveMovieFolder resolves a partial path to a movie folder inside the
// source library. The path is accepted when it exists and lies under the
// source root; otherwise its base name is tried directly under the root,
// which handles path remapping between the caller's view and this process
// (container bind mounts).
func ResolveMovieFolder(source *library.Library, partial string) (string, bool) {
	if partial == "" {
		return "", false
	}

	if info, err := os.Stat(partial); err == nil && info.IsDir() {
		if abs, err := filepath.Abs(partial); err == nil && underRoot(source.Root, abs) {
			return abs, true
		}
	}

	candidate := filepath.Join(source.Root, filepath.Base(filepath.Clean(partial)))
	if info, err := os.Stat(candidate); err == nil && info.IsDir() {
		return candidate, true
	}
	return "", false
}

func underRoot(root, path string) bool {
	rootAbs, err := filepath.Abs(root)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(rootAbs, path)
	if err != nil {
		return false
	}
	return rel != "." && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
