package library

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// NamePlex is the short name of the Plex naming convention.
const NamePlex = "plex"

// Plex names movies with curly-brace ID and edition tags:
//
//	Title (2020) {tmdb-999}/Title (2020) {tmdb-999} {edition-Extended}.mkv
var Plex Convention = plexConvention{}

type plexConvention struct{}

var (
	plexEditionRe = regexp.MustCompile(` ?\{edition-([^}]+)\}`)
	plexMovieRe   = regexp.MustCompile(`^(.+) \((\d{4})\)(?: \{([A-Za-z0-9]+)-([^}]+)\})?$`)
	plexMarkerRe  = regexp.MustCompile(`\(\d{4}\)|\{[A-Za-z0-9]+-[^}]+\}`)
)

func (plexConvention) Name() string { return NamePlex }

func (c plexConvention) MovieName(m Movie) string {
	name := c.baseName(m)
	if m.Edition != "" {
		name += fmt.Sprintf(" {edition-%s}", m.Edition)
	}
	return name
}

func (plexConvention) baseName(m Movie) string {
	name := fmt.Sprintf("%s (%d)", m.Title, m.Year)
	if m.Provider != "" && m.ID != "" {
		name = fmt.Sprintf("%s {%s-%s}", name, m.Provider, m.ID)
	}
	return name
}

func (plexConvention) ParseMovieName(name string) (Movie, bool) {
	// The edition tag is extracted first so the generic {provider-id} match
	// cannot swallow it.
	var edition string
	if match := plexEditionRe.FindStringSubmatch(name); match != nil {
		edition = match[1]
		name = plexEditionRe.ReplaceAllString(name, "")
	}

	match := plexMovieRe.FindStringSubmatch(name)
	if match == nil {
		return Movie{}, false
	}
	year, err := strconv.Atoi(match[2])
	if err != nil {
		return Movie{}, false
	}
	return Movie{
		Title:    match[1],
		Year:     year,
		Provider: strings.ToLower(match[3]),
		ID:       match[4],
		Edition:  edition,
	}, true
}

func (c plexConvention) VideoName(m Movie, v Video) string {
	name := c.baseName(m)
	if v.Edition != "" {
		name += fmt.Sprintf(" {edition-%s}", v.Edition)
	}
	return name + v.Extension
}

func (plexConvention) ParseVideoName(name string) (Video, bool) {
	ext := strings.ToLower(filepath.Ext(name))
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	if !plexMarkerRe.MatchString(stem) {
		return Video{}, false
	}
	video := Video{Extension: ext}
	if match := plexEditionRe.FindStringSubmatch(stem); match != nil {
		video.Edition = match[1]
	}
	return video, true
}
