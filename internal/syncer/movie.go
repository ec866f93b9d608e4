package syncer

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"jellyplex/internal/hardlink"
	"jellyplex/internal/library"
	"jellyplex/internal/logging"
)

type filePair struct {
	src string
	dst string
}

// processMovie reconciles one matched movie folder: videos with stale-link
// detection, their sidecar files, and asset subtrees. A conflict between two
// source videos mapping to the same destination name aborts this movie only,
// with the filesystem left untouched.
func (s *Syncer) processMovie(ctx context.Context, sourcePath string, movie library.Movie) Stats {
	targetPath := s.target.MoviePath(movie)
	s.logger.Debug("processing movie",
		logging.String("source", filepath.Base(sourcePath)),
		logging.String("target", filepath.Base(targetPath)))

	var stats Stats

	dirents, err := os.ReadDir(sourcePath)
	if err != nil {
		s.logger.Error("failed to scan movie folder", logging.String("path", sourcePath), logging.Error(err))
		return Stats{}
	}

	videos := map[string]filePair{}
	var videoOrder []string
	sidecars := map[string]filePair{}
	var sidecarOrder []string
	assetDirs := map[string]filePair{}
	var assetOrder []string

	for _, dirent := range dirents {
		name := dirent.Name()
		if dirent.Type()&os.ModeSymlink != 0 {
			s.logger.Debug("skipping symlink", logging.String("name", name))
			continue
		}
		if dirent.IsDir() {
			if strings.HasPrefix(name, ".") {
				s.logger.Debug("ignoring hidden folder", logging.String("name", name))
				continue
			}
			assetDirs[name] = filePair{
				src: filepath.Join(sourcePath, name),
				dst: filepath.Join(targetPath, name),
			}
			assetOrder = append(assetOrder, name)
			continue
		}
		if !dirent.Type().IsRegular() || !library.IsVideo(name) {
			continue
		}

		video, ok := s.source.ParseVideoPath(name)
		if !ok {
			// Unparseable video names still get linked with their extension.
			video = library.Video{Extension: strings.ToLower(filepath.Ext(name))}
		}
		destName := s.target.Convention().VideoName(movie, video)
		if _, dup := videos[destName]; dup {
			s.logger.Error("conflicting video file, aborting movie",
				logging.String("name", name),
				logging.String("target", destName))
			return Stats{}
		}
		videos[destName] = filePair{
			src: filepath.Join(sourcePath, name),
			dst: filepath.Join(targetPath, destName),
		}
		videoOrder = append(videoOrder, destName)
		stats.Items++

		srcStem := strings.TrimSuffix(name, filepath.Ext(name))
		dstStem := strings.TrimSuffix(destName, filepath.Ext(destName))
		for _, sidecar := range dirents {
			scName := sidecar.Name()
			if scName == name || !sidecar.Type().IsRegular() {
				continue
			}
			if !strings.HasPrefix(scName, srcStem+".") || !library.IsSidecar(scName) {
				continue
			}
			// The tail after the stem (language code, format) survives the
			// stem translation.
			destSidecar := dstStem + scName[len(srcStem):]
			if _, dup := sidecars[destSidecar]; dup {
				continue
			}
			sidecars[destSidecar] = filePair{
				src: filepath.Join(sourcePath, scName),
				dst: filepath.Join(targetPath, destSidecar),
			}
			sidecarOrder = append(sidecarOrder, destSidecar)
		}
	}

	if _, err := os.Stat(targetPath); err != nil {
		if s.opts.VerifyOnly {
			// Nothing to verify without a target directory.
			return stats
		}
		if s.opts.DryRun {
			s.logger.Info("MKDIR", logging.String("path", targetPath))
		} else if err := os.MkdirAll(targetPath, 0o755); err != nil {
			s.logger.Error("failed to create target folder", logging.String("path", targetPath), logging.Error(err))
			return stats
		}
	}

	// One pass over the destination builds the inode index for stale-link
	// detection and the name list for sidecar preservation.
	existingInodes := map[uint64]string{}
	var targetNames []string
	if targetEntries, err := os.ReadDir(targetPath); err == nil {
		for _, entry := range targetEntries {
			if !entry.Type().IsRegular() {
				continue
			}
			targetNames = append(targetNames, entry.Name())
			if !library.IsVideo(entry.Name()) {
				continue
			}
			if ino, err := hardlink.Ino(filepath.Join(targetPath, entry.Name())); err == nil {
				existingInodes[ino] = entry.Name()
			}
		}
	}

	preserved := map[string]struct{}{}

	for _, destName := range videoOrder {
		if ctx.Err() != nil {
			return stats
		}
		item := videos[destName]

		if _, err := os.Stat(item.dst); err == nil {
			if done := s.reconcileExisting(item, &stats); done {
				continue
			}
			// The differing destination was deleted (or its deletion logged);
			// fall through to recreate the link.
		} else {
			srcIno, inoErr := hardlink.Ino(item.src)
			staleName := ""
			if inoErr == nil {
				staleName = existingInodes[srcIno]
			}
			if staleName != "" {
				intended, intendedOK := s.target.ParseVideoPath(destName)
				candidate, candidateOK := s.target.ParseVideoPath(staleName)
				editionsMatch := intendedOK && candidateOK && intended.Edition == candidate.Edition

				if s.opts.UpdateFilenames || editionsMatch {
					s.renameStale(targetPath, staleName, destName, targetNames)
					delete(existingInodes, srcIno)
					continue
				}

				s.logger.Warn("stale hardlink needs rename",
					logging.String("current", staleName),
					logging.String("wanted", destName),
					logging.String("hint", "use --update-filenames to fix"))
				preserved[staleName] = struct{}{}
				staleStem := strings.TrimSuffix(staleName, filepath.Ext(staleName))
				for _, name := range targetNames {
					if strings.HasPrefix(name, staleStem+".") && library.IsSidecar(name) {
						preserved[name] = struct{}{}
					}
				}
				continue
			}
		}

		if s.opts.VerifyOnly {
			continue
		}
		if info, err := os.Stat(item.src); err != nil || info.Size() == 0 {
			s.logger.Debug("skipping zero-byte video", logging.String("name", filepath.Base(item.src)))
			continue
		}
		if s.opts.DryRun {
			s.logger.Info("LINK", logging.String("path", item.dst))
			continue
		}
		s.logger.Info("linking video file",
			logging.String("source", filepath.Base(item.src)),
			logging.String("target", destName))
		if err := s.links.Link(item.src, item.dst); err != nil {
			s.logger.Error("hardlink failed", logging.Error(err))
			continue
		}
		stats.Linked++
	}

	if s.opts.Delete && !s.opts.VerifyOnly {
		if entries, err := os.ReadDir(targetPath); err == nil {
			for _, entry := range entries {
				name := entry.Name()
				if _, ok := videos[name]; ok {
					continue
				}
				if _, ok := sidecars[name]; ok {
					continue
				}
				if _, ok := assetDirs[name]; ok {
					continue
				}
				if _, ok := preserved[name]; ok {
					continue
				}
				if entry.Type()&os.ModeSymlink != 0 {
					continue
				}
				if s.opts.DryRun {
					s.logger.Info("DELETE", logging.String("path", filepath.Join(targetPath, name)))
					continue
				}
				s.logger.Info("removing stray item in movie folder",
					logging.String("name", name),
					logging.String("folder", filepath.Base(targetPath)))
				if err := os.RemoveAll(filepath.Join(targetPath, name)); err != nil {
					s.logger.Error("failed to remove stray item", logging.String("name", name), logging.Error(err))
					continue
				}
				stats.Removed++
			}
		}
	}

	for _, name := range assetOrder {
		if ctx.Err() != nil {
			return stats
		}
		pair := assetDirs[name]
		sub := s.processAssets(ctx, pair.src, pair.dst)
		stats.Add(sub)
	}
	for _, destName := range sidecarOrder {
		if ctx.Err() != nil {
			return stats
		}
		pair := sidecars[destName]
		s.syncFile(pair.src, pair.dst, &stats)
	}

	return stats
}

// reconcileExisting handles a destination that already exists. It returns
// true when the video is fully handled; false means the caller should fall
// through and (re)create the link.
func (s *Syncer) reconcileExisting(item filePair, stats *Stats) bool {
	same, err := hardlink.SameFile(item.src, item.dst)
	if err != nil {
		s.logger.Warn("cannot check file", logging.String("path", item.dst), logging.Error(err))
		return true
	}

	if same {
		if !s.opts.SkipVerify {
			stats.Verified++
			if !s.links.Verify(item.src, item.dst) {
				stats.Broken++
				if s.opts.VerifyOnly {
					s.logger.Warn("broken hard link (would repair)",
						logging.String("target", item.dst),
						logging.String("source", item.src))
				} else if s.links.Repair(item.src, item.dst) {
					stats.Repaired++
				}
			}
		}
		s.logger.Debug("target video file already exists", logging.String("name", filepath.Base(item.dst)))
		return true
	}

	if s.opts.VerifyOnly {
		s.logger.Warn("target exists but is not linked to source", logging.String("target", item.dst))
		stats.Broken++
		return true
	}

	s.logger.Info("replacing video file",
		logging.String("source", filepath.Base(item.src)),
		logging.String("target", filepath.Base(item.dst)))
	if s.opts.DryRun {
		s.logger.Info("DELETE", logging.String("path", item.dst))
		return false
	}
	if err := os.Remove(item.dst); err != nil {
		s.logger.Error("failed to remove target file", logging.String("path", item.dst), logging.Error(err))
		return true
	}
	return false
}

// renameStale moves a stale video (a valid hardlink whose on-disk name no
// longer matches the intended destination) to its new name, dragging along
// any sidecar that shares the stale stem.
func (s *Syncer) renameStale(targetDir, staleName, destName string, targetNames []string) {
	if s.opts.DryRun {
		s.logger.Info("RENAME",
			logging.String("from", staleName),
			logging.String("to", destName))
	} else {
		if err := os.Rename(filepath.Join(targetDir, staleName), filepath.Join(targetDir, destName)); err != nil {
			s.logger.Error("failed to rename video file", logging.String("name", staleName), logging.Error(err))
			return
		}
		s.logger.Info("renamed video file",
			logging.String("from", staleName),
			logging.String("to", destName))
	}

	staleStem := strings.TrimSuffix(staleName, filepath.Ext(staleName))
	destStem := strings.TrimSuffix(destName, filepath.Ext(destName))
	for _, name := range targetNames {
		if name == staleName || name == destName {
			continue
		}
		if !strings.HasPrefix(name, staleStem+".") || !library.IsSidecar(name) {
			continue
		}
		newName := destStem + name[len(staleStem):]
		if s.opts.DryRun {
			s.logger.Info("RENAME",
				logging.String("from", name),
				logging.String("to", newName))
			continue
		}
		if err := os.Rename(filepath.Join(targetDir, name), filepath.Join(targetDir, newName)); err != nil {
			s.logger.Warn("failed to rename sidecar file", logging.String("name", name), logging.Error(err))
			continue
		}
		s.logger.Info("renamed sidecar file",
			logging.String("from", name),
			logging.String("to", newName))
	}
}
