package library

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// detectSampleLimit bounds how many video filenames detection inspects so
// large libraries stay cheap to classify.
const detectSampleLimit = 100

var (
	detectBracketIDRe  = regexp.MustCompile(`(?i)\[[a-z]+id-[^\]]+\]`)
	detectBraceIDRe    = regexp.MustCompile(`(?i)\{[a-z]+-[^}]+\}`)
	detectEditionRe    = regexp.MustCompile(`(?i)\{edition-[^}]+\}`)
	detectYearRe       = regexp.MustCompile(`\(\d{4}\)`)
	detectResolutionRe = regexp.MustCompile(`(?i)\[\d{3,4}[pi]\]`)
	detectClusterRe    = regexp.MustCompile(`(?i)\[[a-z0-9.,]+\]`)
)

// Detect classifies the naming convention of the library rooted at root by
// sampling video filenames. A bracketed external-ID tag is a definitive
// Jellyfin marker; a curly-brace ID or edition tag is a definitive Plex
// marker. Without a definitive marker the weighted hints decide; a tie means
// the convention must be specified explicitly.
func Detect(root string) (Convention, bool) {
	jellyfinHints := 0
	plexHints := 0

	for _, name := range sampleVideoNames(root, detectSampleLimit) {
		stem := strings.TrimSuffix(name, filepath.Ext(name))

		if detectBracketIDRe.MatchString(stem) {
			return Jellyfin, true
		}
		if detectBraceIDRe.MatchString(stem) {
			return Plex, true
		}
		if detectEditionRe.MatchString(stem) {
			return Plex, true
		}

		// A " - " variant without a trailing year reads like a Jellyfin
		// edition suffix.
		parts := strings.Split(stem, " - ")
		if len(parts) > 1 && !detectYearRe.MatchString(parts[len(parts)-1]) {
			jellyfinHints++
		}
		if detectResolutionRe.MatchString(stem) {
			plexHints++
		}
		if detectClusterRe.MatchString(stem) {
			plexHints++
		}
	}

	switch {
	case plexHints > jellyfinHints:
		return Plex, true
	case jellyfinHints > plexHints:
		return Jellyfin, true
	default:
		return nil, false
	}
}

// sampleVideoNames walks the tree breadth-first collecting up to limit video
// filenames. Breadth-first keeps the sample spread across movie folders
// instead of exhausting the limit inside the first one.
func sampleVideoNames(root string, limit int) []string {
	var names []string
	queue := []string{root}

	for len(queue) > 0 && len(names) < limit {
		dir := queue[0]
		queue = queue[1:]

		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			if len(names) >= limit {
				break
			}
			if entry.Type()&os.ModeSymlink != 0 {
				continue
			}
			if entry.IsDir() {
				queue = append(queue, filepath.Join(dir, entry.Name()))
				continue
			}
			if IsVideo(entry.Name()) {
				names = append(names, entry.Name())
			}
		}
	}
	return names
}
