package library

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// NameJellyfin is the short name of the Jellyfin naming convention.
const NameJellyfin = "jellyfin"

// Jellyfin names movies with a bracketed external-ID tag:
//
//	Title (2020) [tmdbid-999]/Title (2020) [tmdbid-999] - Extended.mkv
var Jellyfin Convention = jellyfinConvention{}

type jellyfinConvention struct{}

var (
	jellyfinMovieRe = regexp.MustCompile(`^(.+) \((\d{4})\)(?: \[([A-Za-z]+)id-([^\]]+)\])?$`)
	// An edition suffix is only recognized after the closing year paren or the
	// bracketed ID tag, never inside the title itself.
	jellyfinEditionRe = regexp.MustCompile(`(?:\(\d{4}\)|\[[A-Za-z]+id-[^\]]+\]) - (.+)$`)
	jellyfinMarkerRe  = regexp.MustCompile(`\(\d{4}\)|\[[A-Za-z]+id-[^\]]+\]`)
)

func (jellyfinConvention) Name() string { return NameJellyfin }

func (jellyfinConvention) MovieName(m Movie) string {
	name := fmt.Sprintf("%s (%d)", m.Title, m.Year)
	if m.Provider != "" && m.ID != "" {
		name = fmt.Sprintf("%s [%sid-%s]", name, m.Provider, m.ID)
	}
	return name
}

func (jellyfinConvention) ParseMovieName(name string) (Movie, bool) {
	match := jellyfinMovieRe.FindStringSubmatch(name)
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
	}, true
}

func (c jellyfinConvention) VideoName(m Movie, v Video) string {
	name := c.MovieName(m)
	if v.Edition != "" {
		name += " - " + v.Edition
	}
	return name + v.Extension
}

func (jellyfinConvention) ParseVideoName(name string) (Video, bool) {
	ext := strings.ToLower(filepath.Ext(name))
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	if !jellyfinMarkerRe.MatchString(stem) {
		return Video{}, false
	}
	video := Video{Extension: ext}
	if match := jellyfinEditionRe.FindStringSubmatch(stem); match != nil {
		video.Edition = match[1]
	}
	return video, true
}
