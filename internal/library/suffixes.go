package library

import (
	"path/filepath"
	"strings"
)

// Video container extensions the sync engine links.
var videoSuffixes = map[string]struct{}{
	".avi":  {},
	".m4v":  {},
	".mkv":  {},
	".mov":  {},
	".mp4":  {},
	".mpeg": {},
	".mpg":  {},
	".ts":   {},
	".webm": {},
	".wmv":  {},
}

// Sidecar extensions kept in lockstep with their video's filename stem.
var sidecarSuffixes = map[string]struct{}{
	".ass":  {},
	".idx":  {},
	".jpg":  {},
	".jpeg": {},
	".nfo":  {},
	".png":  {},
	".srt":  {},
	".ssa":  {},
	".sub":  {},
	".txt":  {},
	".vtt":  {},
}

// IsVideo reports whether the filename carries an accepted video extension.
func IsVideo(name string) bool {
	_, ok := videoSuffixes[strings.ToLower(filepath.Ext(name))]
	return ok
}

// IsSidecar reports whether the filename carries an accepted sidecar extension.
func IsSidecar(name string) bool {
	_, ok := sidecarSuffixes[strings.ToLower(filepath.Ext(name))]
	return ok
}
