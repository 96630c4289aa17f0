package domain

import (
	"fmt"
	"strings"
)

var slugSuffixes = map[string]bool{
	"jr": true, "sr": true, "ii": true, "iii": true, "iv": true,
}

// SlugCandidates returns url slug candidates for a normalized name, in
// preference order: first-last, then with middle names added one at a time.
// Generational suffixes are ignored. The caller probes each candidate for
// uniqueness and falls back to NumberedSlug when all collide.
func SlugCandidates(normalized string) []string {
	parts := make([]string, 0, 4)
	for _, p := range strings.Fields(normalized) {
		if slugSuffixes[p] {
			continue
		}
		parts = append(parts, p)
	}

	switch len(parts) {
	case 0:
		return nil
	case 1:
		return []string{parts[0]}
	}

	first, last := parts[0], parts[len(parts)-1]
	middles := parts[1 : len(parts)-1]

	candidates := make([]string, 0, len(middles)+1)
	candidates = append(candidates, first+"-"+last)
	for i := range middles {
		withMiddles := append([]string{first}, middles[:i+1]...)
		withMiddles = append(withMiddles, last)
		candidates = append(candidates, strings.Join(withMiddles, "-"))
	}
	return candidates
}

// NumberedSlug appends the collision counter: base-2, base-3, ...
func NumberedSlug(base string, n int) string {
	return fmt.Sprintf("%s-%d", base, n)
}
