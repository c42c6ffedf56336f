package domain

import "strings"

// MaxNameLength caps player and court names after normalization.
const MaxNameLength = 50

// NormalizeName trims leading/trailing whitespace and collapses internal
// runs of whitespace to a single space. An empty result means the input was
// not a usable name.
func NormalizeName(raw string) string {
	return strings.Join(strings.Fields(raw), " ")
}

// FoldName returns the case-folded lookup key for a normalized name.
// Stored names keep their original casing; uniqueness and lookups use
// this key.
func FoldName(name string) string {
	return strings.ToLower(name)
}
