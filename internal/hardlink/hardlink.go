// Package hardlink creates, verifies, and repairs hardlinks. Link validity is
// judged by device and inode equality alone; names and content never decide.
// On MergerFS mounts a cross-device failure is retried once on the physical
// branch resolved from xattr metadata.
package hardlink

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"

	"jellyplex/internal/logging"
	"jellyplex/internal/mergerfs"
)

// Manager performs link operations. With dryRun set, mutating operations log
// intent and touch nothing.
type Manager struct {
	logger *slog.Logger
	dryRun bool
}

func NewManager(logger *slog.Logger, dryRun bool) *Manager {
	return &Manager{
		logger: logging.NewComponentLogger(logger, "hardlink"),
		dryRun: dryRun,
	}
}

// DevIno returns the device and inode numbers for path.
func DevIno(path string) (dev, ino uint64, err error) {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return 0, 0, &os.PathError{Op: "stat", Path: path, Err: err}
	}
	return uint64(st.Dev), st.Ino, nil
}

// Ino returns the inode number for path.
func Ino(path string) (uint64, error) {
	_, ino, err := DevIno(path)
	return ino, err
}

// SameFile is the cheap directory-entry pre-filter: it reports whether both
// paths stat to the same file. Verify remains the authority on link validity.
func SameFile(a, b string) (bool, error) {
	infoA, err := os.Stat(a)
	if err != nil {
		return false, err
	}
	infoB, err := os.Stat(b)
	if err != nil {
		return false, err
	}
	return os.SameFile(infoA, infoB), nil
}

// Link creates target as a hardlink to source. A cross-device failure falls
// back to physical-branch resolution; every other failure class gets its own
// diagnostic and is recoverable at the caller (skip the file, continue).
func (m *Manager) Link(source, target string) error {
	err := os.Link(source, target)
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, unix.EXDEV):
		m.logger.Debug("cross-device link on merged path, resolving physical branch",
			logging.String("source", source),
			logging.String("target", target))
		return m.linkPhysical(source, target)
	case errors.Is(err, fs.ErrPermission):
		return fmt.Errorf("permission denied creating hardlink %s -> %s: check file permissions and ownership: %w", source, target, err)
	case errors.Is(err, fs.ErrExist):
		return fmt.Errorf("target already exists: %s: %w", target, err)
	case errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("source file not found: %s: %w", source, err)
	default:
		return fmt.Errorf("create hardlink %s -> %s: %w", source, target, err)
	}
}

// linkPhysical retries a cross-device link on the physical branch: the pool
// mount root is the source path minus its pool-relative suffix, and the
// physical target is the source's branch root plus the target's path relative
// to that mount root. Any step failing is a hard failure for this file; there
// is no blind retry.
func (m *Manager) linkPhysical(source, target string) error {
	branch, relpath, ok := mergerfs.Info(source)
	if !ok {
		return fmt.Errorf("cross-device link %s -> %s: no branch metadata on source; paths must share a filesystem or live on a MergerFS mount with xattr support", source, target)
	}
	physSource, ok := mergerfs.FullPath(source)
	if !ok {
		return fmt.Errorf("cross-device link %s -> %s: cannot resolve physical source path", source, target)
	}

	rel := "/" + strings.TrimLeft(relpath, "/")
	if !strings.HasSuffix(source, rel) {
		return fmt.Errorf("cross-device link %s -> %s: source path does not end with pool-relative path %q", source, target, relpath)
	}
	mountRoot := strings.TrimSuffix(source, rel)

	targetRel, err := filepath.Rel(mountRoot, target)
	if err != nil || targetRel == ".." || strings.HasPrefix(targetRel, "../") {
		return fmt.Errorf("cross-device link %s -> %s: target not under pool mount %s", source, target, mountRoot)
	}
	physTarget := filepath.Join(branch, targetRel)

	if err := os.MkdirAll(filepath.Dir(physTarget), 0o755); err != nil {
		return fmt.Errorf("cross-device link %s -> %s: create physical parent: %w", source, target, err)
	}
	if err := os.Link(physSource, physTarget); err != nil {
		return fmt.Errorf("cross-device link %s -> %s: physical link %s -> %s failed; ensure the target tree is pre-created on the same branch as the source: %w",
			source, target, physSource, physTarget, err)
	}

	m.logger.Info("created physical hardlink",
		logging.String("source", physSource),
		logging.String("target", physTarget),
		logging.String("branch", branch))
	return nil
}

// Verify reports whether target is a valid hardlink to source. Both sides are
// resolved to their physical branch paths when available so MergerFS inode
// virtualization cannot produce false negatives. This is the sole authority
// for link validity.
func (m *Manager) Verify(source, target string) bool {
	srcDev, srcIno, err := DevIno(mergerfs.PhysicalPath(source))
	if err != nil {
		return false
	}
	dstDev, dstIno, err := DevIno(mergerfs.PhysicalPath(target))
	if err != nil {
		return false
	}
	return srcDev == dstDev && srcIno == dstIno
}

// Repair deletes target and recreates the link. Returns true only when the
// link was actually recreated; a dry run reports the intent and returns false.
func (m *Manager) Repair(source, target string) bool {
	if m.dryRun {
		m.logger.Info("REPAIR", logging.String("target", target))
		return false
	}
	if err := os.Remove(target); err != nil {
		m.logger.Error("failed to remove broken link", logging.String("target", target), logging.Error(err))
		return false
	}
	if err := m.Link(source, target); err != nil {
		m.logger.Error("failed to recreate link", logging.String("target", target), logging.Error(err))
		return false
	}
	m.logger.Info("repaired hard link", logging.String("target", target))
	return true
}
