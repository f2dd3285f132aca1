package memory

import (
	"context"
	"sync"

	"github.com/golang/glog"

	"khaos-quiz-service/internal/domain"
)

// Directory is a static course and user directory backed by maps (useful for tests/demos).
type Directory struct {
	mu      sync.RWMutex
	courses map[string]domain.Course
	users   map[string]domain.User
}

func NewDirectory(courses []domain.Course, users []domain.User) *Directory {
	d := &Directory{
		courses: make(map[string]domain.Course, len(courses)),
		users:   make(map[string]domain.User, len(users)),
	}
	for _, c := range courses {
		c = c.Clone()
		d.courses[c.ID] = c
	}
	for _, u := range users {
		d.users[u.ID] = u
	}
	return d
}

func (d *Directory) LoadCourse(_ context.Context, courseID string) (domain.Course, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	c, ok := d.courses[courseID]
	if !ok {
		return domain.Course{}, domain.ErrKeyNotFound
	}
	return c.Clone(), nil
}

func (d *Directory) GetCourse(ctx context.Context, callerID, courseID string) (domain.Course, error) {
	glog.V(3).Infof("user %s resolving course %s", callerID, courseID)
	return d.LoadCourse(ctx, courseID)
}

func (d *Directory) AddQuiz(_ context.Context, courseID, quizID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	c, ok := d.courses[courseID]
	if !ok {
		return domain.ErrKeyNotFound
	}
	c.QuizIDs.Add(quizID)
	d.courses[courseID] = c
	return nil
}

func (d *Directory) GetUser(_ context.Context, userID string) (domain.User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	u, ok := d.users[userID]
	if !ok {
		return domain.User{}, domain.ErrKeyNotFound
	}
	return u, nil
}
