package app

import (
	"context"
	"errors"
	"time"

	"github.com/golang/glog"

	"khaos-quiz-service/internal/domain"
)

// Store is the key-value system of record. Values are JSON documents.
type Store interface {
	// Get returns domain.ErrKeyNotFound when the key is absent or expired.
	Get(ctx context.Context, key string) ([]byte, error)
	// Put writes value; a zero ttl stores the key without expiry.
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Update reads the current value, passes it to fn and writes the result.
	// Stores with conditional writes retry fn on conflict, so fn must only
	// depend on its argument. An error from fn aborts the write.
	Update(ctx context.Context, key string, fn func(current []byte) ([]byte, time.Duration, error)) error
}

// CourseDirectory resolves courses and records quiz ownership.
type CourseDirectory interface {
	GetCourse(ctx context.Context, callerID, courseID string) (domain.Course, error)
	AddQuiz(ctx context.Context, courseID, quizID string) error
}

// UserDirectory resolves authenticated callers.
type UserDirectory interface {
	GetUser(ctx context.Context, userID string) (domain.User, error)
}

// QuestionGenerator is the AI collaborator producing questions, feedback and scores.
type QuestionGenerator interface {
	FirstQuestion(ctx context.Context, course domain.CourseSnapshot, prompt string) (domain.Message, error)
	NextQuestion(ctx context.Context, course domain.CourseSnapshot, prompt string, history []domain.Message) (domain.Message, error)
	Feedback(ctx context.Context, course domain.CourseSnapshot, history []domain.Message, answer string) (domain.Message, error)
	AttemptScore(ctx context.Context, transcript []domain.Message) (domain.Message, error)
	PracticeScore(ctx context.Context, history []domain.Message) (domain.Message, error)
}

// EventPublisher receives lifecycle events after successful writes.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.Event) error
}

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, domain.Event) error { return nil }

// documents stores one aggregate type as JSON under prefix+id.
type documents[T any] struct {
	store  Store
	prefix string
	kind   string
	encode func(*T) ([]byte, error)
	decode func(id string, data []byte) (*T, error)
}

func (d documents[T]) key(id string) string { return d.prefix + id }

func (d documents[T]) get(ctx context.Context, id string) (*T, error) {
	data, err := d.store.Get(ctx, d.key(id))
	if errors.Is(err, domain.ErrKeyNotFound) {
		return nil, domain.NotFound("No " + d.kind + " found by that Id")
	}
	if err != nil {
		glog.Errorf("load %s %s: %v", d.kind, id, err)
		return nil, domain.Internal("Error loading "+d.kind+" state", err)
	}
	v, err := d.decode(id, data)
	if err != nil {
		glog.Errorf("decode %s %s: %v", d.kind, id, err)
		return nil, domain.Internal("Error parsing "+d.kind+" from store", err)
	}
	return v, nil
}

func (d documents[T]) put(ctx context.Context, id string, v *T, ttl time.Duration) error {
	data, err := d.encode(v)
	if err != nil {
		return domain.Internal("Error encoding "+d.kind+" state", err)
	}
	if err := d.store.Put(ctx, d.key(id), data, ttl); err != nil {
		glog.Errorf("save %s %s: %v", d.kind, id, err)
		return domain.Internal("Error saving "+d.kind+" state", err)
	}
	return nil
}

// update re-reads the record, applies fn to the fresh copy and writes it back.
// It is only as atomic as the underlying Store.Update.
func (d documents[T]) update(ctx context.Context, id string, ttl func(*T) time.Duration, fn func(*T) error) (*T, error) {
	var out *T
	err := d.store.Update(ctx, d.key(id), func(current []byte) ([]byte, time.Duration, error) {
		v, err := d.decode(id, current)
		if err != nil {
			return nil, 0, domain.Internal("Error parsing "+d.kind+" from store", err)
		}
		if err := fn(v); err != nil {
			return nil, 0, err
		}
		data, err := d.encode(v)
		if err != nil {
			return nil, 0, domain.Internal("Error encoding "+d.kind+" state", err)
		}
		out = v
		return data, ttl(v), nil
	})
	if err == nil {
		return out, nil
	}

	var de *domain.Error
	switch {
	case errors.As(err, &de):
		return nil, err
	case errors.Is(err, domain.ErrKeyNotFound):
		return nil, domain.NotFound("No " + d.kind + " found by that Id")
	default:
		glog.Errorf("update %s %s: %v", d.kind, id, err)
		return nil, domain.Internal("Error saving "+d.kind+" state", err)
	}
}

// lookupError converts a directory failure into a typed error.
func lookupError(err error, what string) error {
	var de *domain.Error
	switch {
	case errors.As(err, &de):
		return err
	case errors.Is(err, domain.ErrKeyNotFound):
		return domain.NotFound("No " + what + " found by that Id")
	default:
		glog.Errorf("resolve %s: %v", what, err)
		return domain.Internal("Error loading "+what, err)
	}
}

func publish(ctx context.Context, events EventPublisher, event domain.Event) {
	if err := events.Publish(ctx, event); err != nil {
		glog.Warningf("publish %s for quiz %s: %v", event.Type, event.QuizID, err)
	}
}
