package syncer

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"jellyplex/internal/library"
	"jellyplex/internal/logging"
)

// planItem is one matched movie ready for reconciliation.
type planItem struct {
	SourcePath string
	TargetPath string
	Movie      library.Movie
}

// plan maps every source movie folder to its translated target name. The
// mapping must be injective: when two or more source folders translate to the
// same target name, every collision is logged and the plan comes back empty —
// the caller must not mutate anything for this run.
func (s *Syncer) plan() (items []planItem, expected map[string]struct{}, err error) {
	entries, err := s.source.Scan()
	if err != nil {
		return nil, nil, err
	}

	mapped := make(map[string]library.Entry, len(entries))
	conflicts := map[string][]string{}
	order := make([]string, 0, len(entries))

	for _, entry := range entries {
		targetName := s.target.MovieName(entry.Movie)
		if prior, taken := mapped[targetName]; taken {
			if _, seen := conflicts[targetName]; !seen {
				conflicts[targetName] = []string{prior.Name}
			}
			conflicts[targetName] = append(conflicts[targetName], entry.Name)
			continue
		}
		mapped[targetName] = entry
		order = append(order, targetName)
	}

	if len(conflicts) > 0 {
		for targetName, sources := range conflicts {
			quoted := make([]string, len(sources))
			for i, src := range sources {
				quoted[i] = fmt.Sprintf("%q", src)
			}
			s.logger.Error("conflicting folders",
				logging.String("sources", strings.Join(quoted, ", ")),
				logging.String("target", targetName))
		}
		s.logger.Info("you have to solve the conflicts first to proceed")
		return nil, nil, nil
	}

	expected = make(map[string]struct{}, len(mapped))
	items = make([]planItem, 0, len(mapped))
	for _, targetName := range order {
		entry := mapped[targetName]
		expected[targetName] = struct{}{}
		items = append(items, planItem{
			SourcePath: entry.Path,
			TargetPath: filepath.Join(s.target.Root, targetName),
			Movie:      entry.Movie,
		})
	}
	return items, expected, nil
}

// cleanLibraryStrays removes (or reports) direct children of the target root
// that no source movie maps to. Unlike the per-movie pass, stray presence is
// logged here even when deletion is off, as long as the run is not a dry run.
func (s *Syncer) cleanLibraryStrays(expected map[string]struct{}) int {
	entries, err := os.ReadDir(s.target.Root)
	if err != nil {
		s.logger.Warn("cannot list target library", logging.Error(err))
		return 0
	}

	removed := 0
	for _, entry := range entries {
		name := entry.Name()
		if _, ok := expected[name]; ok {
			continue
		}
		if entry.Type()&os.ModeSymlink != 0 {
			s.logger.Debug("skipping symlink", logging.String("name", name))
			continue
		}
		path := filepath.Join(s.target.Root, name)
		switch {
		case s.opts.Delete && !s.opts.VerifyOnly:
			if s.opts.DryRun {
				s.logger.Info("DELETE", logging.String("path", path))
				continue
			}
			s.logger.Info("removing stray item in target library", logging.String("name", name))
			if err := os.RemoveAll(path); err != nil {
				s.logger.Error("failed to remove stray item", logging.String("name", name), logging.Error(err))
				continue
			}
			removed++
		case !s.opts.DryRun:
			s.logger.Info("stray item found", logging.String("name", name))
		}
	}
	return removed
}
