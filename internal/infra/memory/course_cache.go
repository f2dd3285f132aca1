package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/golang/glog"
	"golang.org/x/sync/singleflight"

	"khaos-quiz-service/internal/domain"
)

// CourseSource is the backing course directory (e.g., Postgres).
type CourseSource interface {
	LoadCourse(ctx context.Context, courseID string) (domain.Course, error)
	AddQuiz(ctx context.Context, courseID, quizID string) error
}

// CourseCache caches courses with TTL to avoid repeated directory hits. A zero TTL disables caching.
type CourseCache struct {
	source CourseSource
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group

	mu    sync.RWMutex
	rnd   *rand.Rand
	cache map[string]cachedCourse
}

type cachedCourse struct {
	course    domain.Course
	expiresAt time.Time
}

func NewCourseCache(source CourseSource, ttl time.Duration) *CourseCache {
	return &CourseCache{
		source: source,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedCourse),
	}
}

func (c *CourseCache) cached(courseID string, now time.Time) (domain.Course, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.cache[courseID]
	if !ok || !entry.expiresAt.After(now) {
		return domain.Course{}, false
	}
	return entry.course.Clone(), true
}

func (c *CourseCache) GetCourse(ctx context.Context, callerID, courseID string) (domain.Course, error) {
	if course, ok := c.cached(courseID, c.clock()); ok {
		return course, nil
	}

	result, err, _ := c.sf.Do(courseID, func() (interface{}, error) {
		now := c.clock()
		if course, ok := c.cached(courseID, now); ok {
			return course, nil
		}

		glog.V(3).Infof("course cache miss for %s (caller %s)", courseID, callerID)
		course, err := c.source.LoadCourse(ctx, courseID)
		if err != nil {
			return domain.Course{}, err
		}

		c.mu.Lock()
		c.cache[courseID] = cachedCourse{course: course.Clone(), expiresAt: now.Add(c.ttlWithJitter())}
		c.mu.Unlock()
		return course, nil
	})
	if err != nil {
		return domain.Course{}, err
	}
	return result.(domain.Course).Clone(), nil
}

// AddQuiz writes through to the source and drops the cached course.
func (c *CourseCache) AddQuiz(ctx context.Context, courseID, quizID string) error {
	if err := c.source.AddQuiz(ctx, courseID, quizID); err != nil {
		return err
	}
	c.mu.Lock()
	delete(c.cache, courseID)
	c.mu.Unlock()
	return nil
}

// ttlWithJitter must be called with mu held.
func (c *CourseCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
