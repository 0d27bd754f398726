// Package zone ranks compute zones by a configurable prefix priority order.
package zone

import (
	"sort"
	"strings"
)

// Wildcard stands in for zones that match none of the listed prefixes.
const Wildcard = "*"

// DefaultOrder prefers European zones, then US, then everything else, with
// Asian zones last.
var DefaultOrder = []string{"europe", "us", Wildcard, "asia"}

// Priority returns a scoring function over zone names. A zone scores the
// index of the first prefix in order that it starts with, so lower is
// better. Zones matching no prefix score at the wildcard's position, or past
// the end of the list when no wildcard is present.
func Priority(order []string) func(zone string) int {
	wildcard := len(order)
	for i, prefix := range order {
		if prefix == Wildcard {
			wildcard = i
			break
		}
	}

	return func(zone string) int {
		for i, prefix := range order {
			if prefix == Wildcard {
				continue
			}
			if strings.HasPrefix(zone, prefix) {
				return i
			}
		}
		return wildcard
	}
}

// Rank returns the zones sorted by ascending priority score. The sort is
// stable: zones with equal scores keep their input order, so ranking an
// already ranked slice changes nothing.
func Rank(zones []string, order []string) []string {
	if len(order) == 0 {
		order = DefaultOrder
	}
	score := Priority(order)

	ranked := make([]string, len(zones))
	copy(ranked, zones)
	sort.SliceStable(ranked, func(i, j int) bool {
		return score(ranked[i]) < score(ranked[j])
	})
	return ranked
}
