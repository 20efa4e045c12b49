package dedup

import (
	"github.com/rs/zerolog"

	"github.com/agentstation/graphmerge/pkg/errors"
	"github.com/agentstation/graphmerge/pkg/logging"
	"github.com/agentstation/graphmerge/pkg/provenance"
)

type options struct {
	tracker provenance.Tracker
	logger  *zerolog.Logger
}

func defaultOptions() *options {
	return &options{
		tracker: provenance.NewTracker(false),
		logger:  logging.Default(),
	}
}

// Option configures a Deduplicator.
type Option func(*options) error

func (o *options) apply(opts ...Option) (*options, error) {
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// WithProvenance records every merge decision in tracker.
func WithProvenance(tracker provenance.Tracker) Option {
	return func(o *options) error {
		if tracker == nil {
			return &errors.ValidationError{Field: "tracker", Message: "cannot be nil"}
		}
		o.tracker = tracker
		return nil
	}
}

// WithLogger sets the logger used for skip and ambiguity warnings.
func WithLogger(logger *zerolog.Logger) Option {
	return func(o *options) error {
		if logger == nil {
			return &errors.ValidationError{Field: "logger", Message: "cannot be nil"}
		}
		o.logger = logger
		return nil
	}
}
