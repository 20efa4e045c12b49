package fuzzy

import (
	"github.com/agentstation/graphmerge/pkg/constants"
	"github.com/agentstation/graphmerge/pkg/errors"
)

// Matcher applies a fixed similarity threshold.
type Matcher struct {
	threshold float64
}

type options struct {
	threshold float64
}

// Option configures a Matcher.
type Option func(*options) error

// WithThreshold sets the inclusive match threshold. It must lie in [0, 1].
func WithThreshold(threshold float64) Option {
	return func(o *options) error {
		if threshold < 0 || threshold > 1 {
			return &errors.ValidationError{
				Field:   "threshold",
				Value:   threshold,
				Message: "must be within [0, 1]",
			}
		}
		o.threshold = threshold
		return nil
	}
}

// New creates a Matcher. The default threshold is constants.DefaultThreshold.
func New(opts ...Option) (*Matcher, error) {
	o := &options{threshold: constants.DefaultThreshold}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	return &Matcher{threshold: o.threshold}, nil
}

// Default returns a Matcher with the default threshold.
func Default() *Matcher {
	return &Matcher{threshold: constants.DefaultThreshold}
}

// Threshold returns the match threshold.
func (m *Matcher) Threshold() float64 { return m.threshold }

// Similarity scores a against b.
func (m *Matcher) Similarity(a, b string) float64 { return Similarity(a, b) }

// IsMatch reports whether a and b score at or above the threshold.
func (m *Matcher) IsMatch(a, b string) bool { return IsMatch(a, b, m.threshold) }

// AnyMatch reports whether any name in as matches any name in bs.
func (m *Matcher) AnyMatch(as, bs []string) bool {
	for _, a := range as {
		ta := newTerm(a)
		for _, b := range bs {
			if score(ta, newTerm(b)) >= m.threshold {
				return true
			}
		}
	}
	return false
}

// NewIndex returns an empty Index using the matcher's threshold.
func (m *Matcher) NewIndex() *Index {
	return newIndex(m.threshold)
}
