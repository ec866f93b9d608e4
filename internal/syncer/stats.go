package syncer

import (
	"fmt"
	"strings"
)

// Stats counts the outcomes within one reconciliation scope. Scopes compose
// by addition; counters only reflect completed actions, never dry-run intent.
type Stats struct {
	Items    int // files considered for linking
	Linked   int
	Removed  int
	Verified int
	Broken   int
	Repaired int
}

// Add merges a child scope's counters into s.
func (s *Stats) Add(other Stats) {
	s.Items += other.Items
	s.Linked += other.Linked
	s.Removed += other.Removed
	s.Verified += other.Verified
	s.Broken += other.Broken
	s.Repaired += other.Repaired
}

// Summary is the whole-run aggregate reported to the user.
type Summary struct {
	Movies int
	Stats
}

// Describe renders the run summary line matching the active mode.
func (s Summary) Describe(verifyOnly, skipVerify bool) string {
	if verifyOnly {
		return fmt.Sprintf("Verification complete: %d movies checked, %d links verified, %d broken links found.",
			s.Movies, s.Verified, s.Broken)
	}
	if skipVerify {
		return fmt.Sprintf("Summary: %d movies found, %d files updated, %d files removed. (inode verification skipped)",
			s.Movies, s.Linked, s.Removed)
	}
	parts := []string{
		fmt.Sprintf("Summary: %d movies found", s.Movies),
		fmt.Sprintf("%d files updated", s.Linked),
		fmt.Sprintf("%d files removed", s.Removed),
	}
	if s.Verified > 0 {
		parts = append(parts, fmt.Sprintf("%d links verified", s.Verified))
	}
	if s.Broken > 0 {
		parts = append(parts, fmt.Sprintf("%d broken links found", s.Broken))
	}
	if s.Repaired > 0 {
		parts = append(parts, fmt.Sprintf("%d links repaired", s.Repaired))
	}
	return strings.Join(parts, ", ") + "."
}
