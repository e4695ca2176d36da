// ABOUTME: Semantic version comparison for settings schema versions
// ABOUTME: Numeric per segment, missing segments treated as zero

package store

import (
	"strconv"
	"strings"
)

// CompareVersions compares two major.minor.patch version strings.
// Returns a negative value if a < b, zero if equal, positive if a > b.
// Missing segments count as zero, so "1.3" equals "1.3.0". Non-numeric
// segments also count as zero.
func CompareVersions(a, b string) int {
	as := strings.Split(a, ".")
	bs := strings.Split(b, ".")
	n := len(as)
	if len(bs) > n {
		n = len(bs)
	}
	for i := 0; i < n; i++ {
		av := versionSegment(as, i)
		bv := versionSegment(bs, i)
		if av != bv {
			if av < bv {
				return -1
			}
			return 1
		}
	}
	return 0
}

func versionSegment(parts []string, i int) int {
	if i >= len(parts) {
		return 0
	}
	n, err := strconv.Atoi(strings.TrimSpace(parts[i]))
	if err != nil {
		return 0
	}
	return n
}
