package app

import (
	"time"

	"github.com/google/uuid"
)

const defaultPracticeTTL = 86400 * time.Second

type options struct {
	now         func() time.Time
	newID       func() string
	events      EventPublisher
	draftTTL    time.Duration
	practiceTTL time.Duration
}

// Option configures the quiz, attempt and practice services.
type Option func(*options)

// WithClock is used by tests for deterministic timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithIDGenerator replaces the uuid generator.
func WithIDGenerator(newID func() string) Option {
	return func(o *options) { o.newID = newID }
}

func WithEvents(events EventPublisher) Option {
	return func(o *options) {
		if events != nil {
			o.events = events
		}
	}
}

// WithDraftTTL sets the expiry of quizzes that have not started yet. Zero keeps them forever.
func WithDraftTTL(ttl time.Duration) Option {
	return func(o *options) { o.draftTTL = ttl }
}

// WithPracticeTTL sets the expiry of practice quiz records.
func WithPracticeTTL(ttl time.Duration) Option {
	return func(o *options) {
		if ttl > 0 {
			o.practiceTTL = ttl
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{
		now:         time.Now,
		newID:       uuid.NewString,
		events:      noopPublisher{},
		practiceTTL: defaultPracticeTTL,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func (o options) timestamp() time.Time {
	return o.now().UTC().Round(0)
}
