package fuzzy

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/agentstation/graphmerge/pkg/constants"
)

// Normalize folds a name into its comparison form: diacritics stripped,
// lowercased, punctuation and symbols removed, whitespace collapsed, and
// each token reduced by a simple plural rule ("ies" to "y" on tokens longer
// than four runes, otherwise a trailing single "s" when at least three runes
// remain).
func Normalize(s string) string {
	folded, _, err := transform.String(diacriticFolder(), s)
	if err != nil {
		folded = s
	}

	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range strings.ToLower(folded) {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
	}

	tokens := strings.Fields(b.String())
	for i, tok := range tokens {
		tokens[i] = singular(tok)
	}
	return strings.Join(tokens, " ")
}

// Key returns the canonical key of a name. It is Normalize under the name
// used by grouping and identity code.
func Key(name string) string {
	return Normalize(name)
}

// diacriticFolder is built per call; transform.Chain carries state and is
// not safe for concurrent use.
func diacriticFolder() transform.Transformer {
	return transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
}

func singular(tok string) string {
	rs := []rune(tok)
	n := len(rs)
	if n > 4 && strings.HasSuffix(tok, "ies") {
		return string(rs[:n-3]) + "y"
	}
	if n-1 >= constants.MinStemLength && rs[n-1] == 's' && rs[n-2] != 's' {
		return string(rs[:n-1])
	}
	return tok
}
