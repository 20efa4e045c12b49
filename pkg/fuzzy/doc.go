// Package fuzzy decides whether two entity names denote the same thing.
//
// Scores are in [0, 1]:
//
//	identical strings                      1.00
//	equal after Normalize                  0.98
//	otherwise 1 - d/(L+1), capped at 0.97
//
// where d is the Levenshtein distance between the normalized forms and L
// the longer normalized length in runes. A one-character typo on a
// six-character name scores 1-1/7 ≈ 0.857 and clears the default 0.85.
//
// An Index buckets names by normalized length so that lookups against a
// pool of a few thousand names skip buckets that cannot reach the
// threshold. Skipping never changes the outcome of a lookup.
package fuzzy
