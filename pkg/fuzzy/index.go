package fuzzy

import (
	"sort"
)

// Match is a lookup hit: the indexed name, the reference it was added
// under, and its score.
type Match struct {
	Name  string
	Ref   int
	Score float64
}

// Index is a pool of names grouped by normalized length. Several names may
// share a reference (for example every variation of one entity).
type Index struct {
	threshold float64
	buckets   map[int][]term
	refs      map[int][]int // parallel to buckets
	lengths   []int         // sorted bucket keys
	size      int
}

func newIndex(threshold float64) *Index {
	return &Index{
		threshold: threshold,
		buckets:   make(map[int][]term),
		refs:      make(map[int][]int),
	}
}

// Add indexes name under ref.
func (ix *Index) Add(name string, ref int) {
	t := newTerm(name)
	if _, ok := ix.buckets[t.size]; !ok {
		i := sort.SearchInts(ix.lengths, t.size)
		ix.lengths = append(ix.lengths, 0)
		copy(ix.lengths[i+1:], ix.lengths[i:])
		ix.lengths[i] = t.size
	}
	ix.buckets[t.size] = append(ix.buckets[t.size], t)
	ix.refs[t.size] = append(ix.refs[t.size], ref)
	ix.size++
}

// Len returns the number of indexed names.
func (ix *Index) Len() int { return ix.size }

// Matches returns every reference with at least one name scoring at or
// above the threshold against candidate. Each reference appears once with
// its best-scoring name, ordered by score descending then reference
// ascending.
func (ix *Index) Matches(candidate string) []Match {
	c := newTerm(candidate)
	best := make(map[int]Match)
	for _, l := range ix.lengths {
		if ceiling(c.size, l) < ix.threshold {
			continue
		}
		refs := ix.refs[l]
		for i, t := range ix.buckets[l] {
			s := score(c, t)
			if s < ix.threshold {
				continue
			}
			ref := refs[i]
			if prev, ok := best[ref]; !ok || s > prev.Score {
				best[ref] = Match{Name: t.raw, Ref: ref, Score: s}
			}
		}
	}

	out := make([]Match, 0, len(best))
	for _, m := range best {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Ref < out[j].Ref
	})
	return out
}

// BestMatch returns the highest-scoring match for candidate, if any.
func (ix *Index) BestMatch(candidate string) (Match, bool) {
	matches := ix.Matches(candidate)
	if len(matches) == 0 {
		return Match{}, false
	}
	return matches[0], true
}
