package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"jellyplex/internal/config"
	"jellyplex/internal/services"
)

// Radarr exports these when invoking a custom script.
const (
	envRadarrEvent     = "radarr_eventtype"
	envRadarrMoviePath = "radarr_movie_path"
)

// radarrItem interprets the Radarr custom-script environment and returns the
// movie folder the run should be restricted to. doSync is false for events
// that need no work: the connection test and event types that carry no movie
// path (health checks, application updates).
func radarrItem(cfg *config.Config, sourceRoot string) (path string, doSync bool, err error) {
	event := strings.TrimSpace(os.Getenv(envRadarrEvent))
	if event == "" {
		return "", false, services.Wrap(services.ErrUsage, "radarr", "event",
			envRadarrEvent+" is not set; --radarr only works as a Radarr custom script", nil)
	}
	if strings.EqualFold(event, "Test") {
		return "", false, nil
	}

	moviePath := strings.TrimSpace(os.Getenv(envRadarrMoviePath))
	if moviePath == "" {
		return "", false, nil
	}

	mapped := cfg.MapPath(moviePath)
	abs, err := filepath.Abs(mapped)
	if err != nil {
		return "", false, services.Wrap(services.ErrValidation, "radarr", "path",
			fmt.Sprintf("cannot resolve movie path %q", moviePath), err)
	}
	if !containedIn(sourceRoot, abs) {
		return "", false, services.Wrap(services.ErrValidation, "radarr", "path",
			fmt.Sprintf("movie path %q lies outside the source library %s", moviePath, sourceRoot), nil)
	}
	return abs, true, nil
}

func containedIn(root, path string) bool {
	rel, err := filepath.Rel(filepath.Clean(root), filepath.Clean(path))
	if err != nil {
		return false
	}
	return rel != "." && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
