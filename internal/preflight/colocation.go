package preflight

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"jellyplex/internal/library"
	"jellyplex/internal/logging"
	"jellyplex/internal/mergerfs"
)

// colocationSampleLimit bounds how many source files the preflight samples.
const colocationSampleLimit = 10

// CheckColocation samples representative source files and verifies each can
// be hardlinked into its translated target directory on the same physical
// branch. It catches target trees pre-created on the wrong MergerFS branch
// before any mutation happens; a single failing sample fails the check.
func CheckColocation(source, target *library.Library, logger *slog.Logger) Result {
	const name = "Branch colocation"
	log := logging.NewComponentLogger(logger, "preflight")

	entries, err := source.Scan()
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("cannot scan source library: %v", err)}
	}
	if len(entries) == 0 {
		log.Warn("no movies found for colocation check")
		return Result{Name: name, Passed: true, Detail: "nothing to sample"}
	}

	checked := 0
	failed := 0
	for _, entry := range entries {
		if checked >= colocationSampleLimit {
			break
		}
		samplePath, ok := sampleFile(entry.Path)
		if !ok {
			continue
		}
		targetDir := target.MoviePath(entry.Movie)
		colocated, reason := mergerfs.IsColocated(samplePath, filepath.Join(targetDir, filepath.Base(samplePath)))
		if !colocated {
			log.Error("colocation check failed",
				logging.String("folder", entry.Name),
				logging.String("reason", reason))
			failed++
		} else {
			log.Debug("colocation ok", logging.String("folder", entry.Name))
		}
		checked++
	}

	if failed > 0 {
		return Result{
			Name:   name,
			Detail: fmt.Sprintf("%d/%d sampled files are on a different branch than their target directory", failed, checked),
		}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%d/%d samples colocated", checked, checked)}
}

// sampleFile returns the first regular file directly inside dir.
func sampleFile(dir string) (string, bool) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", false
	}
	for _, entry := range entries {
		if entry.Type().IsRegular() {
			return filepath.Join(dir, entry.Name()), true
		}
	}
	return "", false
}
