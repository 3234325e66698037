// Package sanitize turns arbitrary strings into safe filename segments.
package sanitize

import (
	"slices"
	"strings"
)

// denied holds every code point that may not appear in a filename, sorted
// ascending so membership is a binary search.
var denied = []rune{
	0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15,
	16, 17, 18, 19, 20, 21, 22, 23, 24, 25, 26, 27, 28, 29, 30, 31,
	'"', '*', '/', ':', '<', '>', '?', '\\', '|',
}

// Denied reports whether r is stripped by Filename.
func Denied(r rune) bool {
	_, found := slices.BinarySearch(denied, r)
	return found
}

// Filename returns s with every denied character removed, preserving the
// order of the rest. An all-denied input yields "", which is not a usable
// filename; callers must check for it.
func Filename(s string) string {
	if strings.IndexFunc(s, Denied) < 0 {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if !Denied(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
