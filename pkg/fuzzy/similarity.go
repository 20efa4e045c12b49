package fuzzy

import (
	"unicode/utf8"

	"github.com/agnivade/levenshtein"

	"github.com/agentstation/graphmerge/pkg/constants"
)

// Similarity scores how likely a and b name the same entity.
func Similarity(a, b string) float64 {
	return score(newTerm(a), newTerm(b))
}

// IsMatch reports whether Similarity(a, b) reaches threshold. The boundary
// is inclusive.
func IsMatch(a, b string, threshold float64) bool {
	return Similarity(a, b) >= threshold
}

// BestMatch returns the pool entry most similar to candidate, provided its
// score reaches threshold. Ties go to the earliest pool entry.
func BestMatch(candidate string, pool []string, threshold float64) (string, float64, bool) {
	c := newTerm(candidate)
	best, bestScore, found := "", 0.0, false
	for _, name := range pool {
		s := score(c, newTerm(name))
		if s >= threshold && (!found || s > bestScore) {
			best, bestScore, found = name, s, true
		}
	}
	return best, bestScore, found
}

// term is a name with its normalized form precomputed.
type term struct {
	raw  string
	norm string
	size int
}

func newTerm(s string) term {
	n := Normalize(s)
	return term{raw: s, norm: n, size: utf8.RuneCountInString(n)}
}

func score(a, b term) float64 {
	if a.raw == b.raw {
		return 1.0
	}
	if a.size == 0 || b.size == 0 {
		return 0.0
	}
	if a.norm == b.norm {
		return constants.CaseInsensitiveScore
	}
	longest := max(a.size, b.size)
	d := levenshtein.ComputeDistance(a.norm, b.norm)
	return min(editScore(d, longest), constants.MaxEditScore)
}

func editScore(distance, longest int) float64 {
	return 1.0 - float64(distance)/float64(longest+1)
}

// ceiling is the best score any pair with these normalized lengths can reach.
func ceiling(la, lb int) float64 {
	if la == lb {
		return 1.0
	}
	diff := la - lb
	if diff < 0 {
		diff = -diff
	}
	return min(editScore(diff, max(la, lb)), constants.MaxEditScore)
}
