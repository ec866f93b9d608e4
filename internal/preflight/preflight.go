// Package preflight contains the safety guards that gate a sync run before
// any filesystem mutation.
package preflight

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"jellyplex/internal/mergerfs"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// MinSourceItems is the minimum number of immediate subdirectories the source
// must contain before destructive deletion is permitted. It protects the
// target from being wiped when the source mount silently failed.
const MinSourceItems = 1

// CheckSourcePopulated verifies the source root does not look empty or
// unmounted. Counting short-circuits as soon as the minimum is reached; any
// access error is treated conservatively as an unmounted source.
func CheckSourcePopulated(root string) Result {
	const name = "Source populated"
	entries, err := os.ReadDir(root)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("cannot access source directory %s: %v", root, err)}
	}
	count := 0
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		count++
		if count >= MinSourceItems {
			return Result{Name: name, Passed: true, Detail: "source contains movie folders"}
		}
	}
	return Result{Name: name, Detail: fmt.Sprintf("source directory %s appears empty or unmounted", root)}
}

// SameFilesystem reports whether two paths can host hardlinks to each other.
// When either side exposes MergerFS branch metadata the base-directory device
// comparison is meaningless (create policies put directories on arbitrary
// branches), so the answer is "same" and real validation is deferred to
// per-file colocation checks. Otherwise device IDs decide; a stat failure is
// conservatively "different".
func SameFilesystem(a, b string) (same bool, union bool) {
	if _, _, ok := mergerfs.Info(a); ok {
		return true, true
	}
	if _, _, ok := mergerfs.Info(b); ok {
		return true, true
	}

	var stA, stB unix.Stat_t
	if err := unix.Stat(a, &stA); err != nil {
		return false, false
	}
	if err := unix.Stat(b, &stB); err != nil {
		return false, false
	}
	return stA.Dev == stB.Dev, false
}

// CheckSameFilesystem wraps SameFilesystem as a preflight result. A failed
// check is a hard gate: hardlinks require a common filesystem.
func CheckSameFilesystem(source, target string) (Result, bool) {
	const name = "Same filesystem"
	same, union := SameFilesystem(source, target)
	if !same {
		return Result{
			Name: name,
			Detail: fmt.Sprintf(
				"source %s and target %s are on different filesystems; hardlinks require both to share one filesystem", source, target),
		}, union
	}
	detail := "device IDs match"
	if union {
		detail = "MergerFS detected, per-file colocation checks apply"
	}
	return Result{Name: name, Passed: true, Detail: detail}, union
}
