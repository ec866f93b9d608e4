// Package mergerfs reads the branch metadata a MergerFS mount exposes through
// extended attributes. On a pooled filesystem the merged view and the physical
// branch view diverge; these helpers recover the physical side. Every caller
// must tolerate the metadata being absent (plain filesystem, xattrs
// unsupported) and fall back to ordinary device-ID reasoning.
package mergerfs

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"
)

// Well-known MergerFS extended attribute names.
const (
	XattrBasePath = "user.mergerfs.basepath"
	XattrRelPath  = "user.mergerfs.relpath"
	XattrFullPath = "user.mergerfs.fullpath"
)

// Info returns the physical branch root and pool-relative path for a path on
// a MergerFS mount. ok is false when the path is not on a MergerFS mount or
// the metadata cannot be read.
func Info(path string) (branch, relpath string, ok bool) {
	branch, err := getxattr(path, XattrBasePath)
	if err != nil {
		return "", "", false
	}
	relpath, err = getxattr(path, XattrRelPath)
	if err != nil {
		return "", "", false
	}
	return branch, relpath, true
}

// FullPath returns the full physical path on the underlying branch.
func FullPath(path string) (string, bool) {
	full, err := getxattr(path, XattrFullPath)
	if err != nil {
		return "", false
	}
	return full, true
}

// PhysicalPath resolves path to its physical branch location, or returns path
// unchanged when no branch metadata is available.
func PhysicalPath(path string) string {
	if full, ok := FullPath(path); ok {
		return full
	}
	return path
}

// IsColocated checks whether srcFile and the destination directory dstDir live
// on the same physical branch. Hardlinks across branches are impossible, so a
// mismatch means the target tree was pre-created on the wrong disk. For paths
// without branch metadata the check always passes; reason is non-empty only
// on failure.
func IsColocated(srcFile, dstDir string) (bool, string) {
	srcBranch, _, ok := Info(srcFile)
	if !ok {
		return true, ""
	}

	// A file-shaped destination is judged by its parent directory.
	dir := dstDir
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		dir = filepath.Dir(dir)
	}
	if _, err := os.Stat(dir); err != nil {
		// Destination not created yet; colocation cannot be verified and the
		// link attempt itself will surface a cross-branch failure.
		return true, ""
	}

	dstBranch, _, ok := Info(dir)
	if !ok {
		return true, ""
	}

	if srcBranch != dstBranch {
		return false, fmt.Sprintf(
			"cross-branch hardlink: source on %q, destination directory on %q; the target must live on the same physical disk as the source",
			srcBranch, dstBranch)
	}
	return true, ""
}

func getxattr(path, name string) (string, error) {
	buf := make([]byte, 256)
	for {
		n, err := unix.Getxattr(path, name, buf)
		if err == unix.ERANGE {
			buf = make([]byte, len(buf)*2)
			continue
		}
		if err != nil {
			return "", err
		}
		// MergerFS may include a trailing NUL.
		value := strings.TrimRight(string(buf[:n]), "\x00")
		if value == "" {
			return "", fmt.Errorf("xattr %s: empty value", name)
		}
		return value, nil
	}
}
