package library

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"jellyplex/internal/logging"
)

// Movie is the metadata a convention parses out of a movie folder name. The
// sync engine treats it as an immutable value and never inspects it beyond
// passing it back to a convention.
type Movie struct {
	Title    string
	Year     int
	Provider string // external-ID provider, e.g. "tmdb" or "imdb"
	ID       string
	Edition  string
}

// Video is the per-file metadata parsed from a video filename. Extension is
// always set (lower-case, with leading dot); Edition may be empty.
type Video struct {
	Extension string
	Edition   string
}

// Convention translates between Movie/Video records and on-disk names.
type Convention interface {
	// Name is the short identifier used in flags and logs ("jellyfin", "plex").
	Name() string
	MovieName(m Movie) string
	ParseMovieName(name string) (Movie, bool)
	VideoName(m Movie, v Video) string
	ParseVideoName(name string) (Video, bool)
}

// ForName resolves a convention short name.
func ForName(name string) (Convention, error) {
	switch name {
	case NameJellyfin:
		return Jellyfin, nil
	case NamePlex:
		return Plex, nil
	default:
		return nil, fmt.Errorf("unknown naming convention %q", name)
	}
}

// Opposite returns the counterpart convention, the default sync target.
func Opposite(c Convention) Convention {
	if c.Name() == NameJellyfin {
		return Plex
	}
	return Jellyfin
}

// Entry is one movie folder discovered by a library scan.
type Entry struct {
	Path  string // absolute folder path
	Name  string // folder base name
	Movie Movie
}

// Library binds a root directory to a naming convention. Identity is the root
// path: two libraries rooted at the same directory are the same library.
type Library struct {
	Root   string
	conv   Convention
	logger *slog.Logger
}

// New constructs a library rooted at root using the given convention.
func New(root string, conv Convention, logger *slog.Logger) *Library {
	return &Library{
		Root:   filepath.Clean(root),
		conv:   conv,
		logger: logging.NewComponentLogger(logger, "library"),
	}
}

func (l *Library) Convention() Convention { return l.conv }

// DisplayName is the convention name in display casing for log output.
func (l *Library) DisplayName() string {
	return cases.Title(language.Und).String(l.conv.Name())
}

// Scan lists the library root and parses each subdirectory into a movie
// record. Folders the convention cannot parse are skipped.
func (l *Library) Scan() ([]Entry, error) {
	dirents, err := os.ReadDir(l.Root)
	if err != nil {
		return nil, fmt.Errorf("scan library %s: %w", l.Root, err)
	}

	var entries []Entry
	for _, dirent := range dirents {
		if !dirent.IsDir() {
			continue
		}
		name := dirent.Name()
		movie, ok := l.conv.ParseMovieName(name)
		if !ok {
			l.logger.Debug("skipping unparseable folder",
				logging.String("folder", name),
				logging.String("convention", l.conv.Name()))
			continue
		}
		entries = append(entries, Entry{
			Path:  filepath.Join(l.Root, name),
			Name:  name,
			Movie: movie,
		})
	}
	return entries, nil
}

func (l *Library) MovieName(m Movie) string {
	return l.conv.MovieName(m)
}

func (l *Library) MoviePath(m Movie) string {
	return filepath.Join(l.Root, l.conv.MovieName(m))
}

func (l *Library) VideoPath(m Movie, v Video) string {
	return filepath.Join(l.MoviePath(m), l.conv.VideoName(m, v))
}

func (l *Library) ParseMoviePath(path string) (Movie, bool) {
	return l.conv.ParseMovieName(filepath.Base(path))
}

func (l *Library) ParseVideoPath(path string) (Video, bool) {
	return l.conv.ParseVideoName(filepath.Base(path))
}
