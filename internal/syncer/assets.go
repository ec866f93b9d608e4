package syncer

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"jellyplex/internal/hardlink"
	"jellyplex/internal/logging"
)

// processAssets mirrors an asset folder (extras, subs, artwork) file by
// file. Asset names carry no convention so they transfer verbatim; the
// recursion covers nested folders.
func (s *Syncer) processAssets(ctx context.Context, sourceDir, targetDir string) Stats {
	var stats Stats

	dirents, err := os.ReadDir(sourceDir)
	if err != nil {
		s.logger.Error("failed to scan asset folder", logging.String("path", sourceDir), logging.Error(err))
		return stats
	}

	if _, err := os.Stat(targetDir); err != nil {
		if s.opts.VerifyOnly {
			return stats
		}
		if s.opts.DryRun {
			s.logger.Info("MKDIR", logging.String("path", targetDir))
		} else if err := os.MkdirAll(targetDir, 0o755); err != nil {
			s.logger.Error("failed to create asset folder", logging.String("path", targetDir), logging.Error(err))
			return stats
		}
	}

	expected := map[string]struct{}{}
	for _, dirent := range dirents {
		if ctx.Err() != nil {
			return stats
		}
		name := dirent.Name()
		if dirent.Type()&os.ModeSymlink != 0 {
			s.logger.Debug("skipping symlink", logging.String("name", name))
			continue
		}
		if dirent.IsDir() {
			if strings.HasPrefix(name, ".") {
				continue
			}
			expected[name] = struct{}{}
			sub := s.processAssets(ctx, filepath.Join(sourceDir, name), filepath.Join(targetDir, name))
			stats.Add(sub)
			continue
		}
		if !dirent.Type().IsRegular() {
			continue
		}
		expected[name] = struct{}{}
		s.syncFile(filepath.Join(sourceDir, name), filepath.Join(targetDir, name), &stats)
	}

	if s.opts.Delete && !s.opts.VerifyOnly {
		entries, err := os.ReadDir(targetDir)
		if err != nil {
			return stats
		}
		for _, entry := range entries {
			name := entry.Name()
			if _, ok := expected[name]; ok {
				continue
			}
			if entry.Type()&os.ModeSymlink != 0 {
				continue
			}
			if s.opts.DryRun {
				s.logger.Info("DELETE", logging.String("path", filepath.Join(targetDir, name)))
				continue
			}
			s.logger.Info("removing stray asset",
				logging.String("name", name),
				logging.String("folder", filepath.Base(targetDir)))
			if err := os.RemoveAll(filepath.Join(targetDir, name)); err != nil {
				s.logger.Error("failed to remove stray asset", logging.String("name", name), logging.Error(err))
				continue
			}
			stats.Removed++
		}
	}

	return stats
}

// syncFile brings one destination file in line with its source: verify and
// repair when already linked, relink when a different file sits at the
// destination, link when nothing does.
func (s *Syncer) syncFile(src, dst string, stats *Stats) {
	info, err := os.Lstat(src)
	if err != nil {
		s.logger.Warn("cannot stat source file", logging.String("path", src), logging.Error(err))
		return
	}
	if info.Mode()&os.ModeSymlink != 0 {
		return
	}
	if info.Size() == 0 {
		s.logger.Debug("skipping zero-byte file", logging.String("name", filepath.Base(src)))
		return
	}
	stats.Items++

	if _, err := os.Stat(dst); err == nil {
		same, err := hardlink.SameFile(src, dst)
		if err != nil {
			s.logger.Warn("cannot check file", logging.String("path", dst), logging.Error(err))
			return
		}
		if same {
			if s.opts.SkipVerify {
				return
			}
			stats.Verified++
			if !s.links.Verify(src, dst) {
				stats.Broken++
				if s.opts.VerifyOnly {
					s.logger.Warn("broken hard link (would repair)",
						logging.String("target", dst),
						logging.String("source", src))
				} else if s.links.Repair(src, dst) {
					stats.Repaired++
				}
			}
			return
		}
		if s.opts.VerifyOnly {
			s.logger.Warn("target exists but is not linked to source", logging.String("target", dst))
			stats.Broken++
			return
		}
		if s.opts.DryRun {
			s.logger.Info("RELINK", logging.String("path", dst))
			return
		}
		s.logger.Info("replacing file", logging.String("name", filepath.Base(dst)))
		if err := os.Remove(dst); err != nil {
			s.logger.Error("failed to remove target file", logging.String("path", dst), logging.Error(err))
			return
		}
		if err := s.links.Link(src, dst); err != nil {
			s.logger.Error("hardlink failed", logging.Error(err))
			return
		}
		stats.Linked++
		return
	}

	if s.opts.VerifyOnly {
		return
	}
	if s.opts.DryRun {
		s.logger.Info("LINK", logging.String("path", dst))
		return
	}
	if err := s.links.Link(src, dst); err != nil {
		s.logger.Error("hardlink failed", logging.Error(err))
		return
	}
	stats.Linked++
}
