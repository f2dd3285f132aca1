package redis

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/golang/glog"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"khaos-quiz-service/internal/domain"
)

// CourseSource is the backing course directory (e.g., Postgres).
type CourseSource interface {
	LoadCourse(ctx context.Context, courseID string) (domain.Course, error)
	AddQuiz(ctx context.Context, courseID, quizID string) error
}

// CourseCache caches course documents in Redis and falls back to the source on cache miss.
// Courses are stored as: SET course:{courseID} {json} EX ttl
type CourseCache struct {
	client *redis.Client
	source CourseSource
	ttl    time.Duration
	sf     singleflight.Group

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewCourseCache(client *redis.Client, source CourseSource, ttl time.Duration) *CourseCache {
	return &CourseCache{
		client: client,
		source: source,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *CourseCache) GetCourse(ctx context.Context, callerID, courseID string) (domain.Course, error) {
	if course, ok := c.cached(ctx, courseID); ok {
		return course, nil
	}

	result, err, _ := c.sf.Do(courseID, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if course, ok := c.cached(ctx, courseID); ok {
			return course, nil
		}

		glog.V(3).Infof("course cache miss for %s (caller %s)", courseID, callerID)
		course, err := c.source.LoadCourse(ctx, courseID)
		if err != nil {
			return domain.Course{}, err
		}

		if ttl := c.ttlWithJitter(); ttl > 0 {
			data, err := json.Marshal(course)
			if err == nil {
				err = c.client.Set(ctx, c.key(courseID), data, ttl).Err()
			}
			if err != nil {
				glog.Warningf("cache course %s: %v", courseID, err)
			}
		}
		return course, nil
	})
	if err != nil {
		return domain.Course{}, err
	}
	return result.(domain.Course).Clone(), nil
}

func (c *CourseCache) cached(ctx context.Context, courseID string) (domain.Course, bool) {
	data, err := c.client.Get(ctx, c.key(courseID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			glog.Warningf("read cached course %s: %v", courseID, err)
		}
		return domain.Course{}, false
	}
	var course domain.Course
	if err := json.Unmarshal(data, &course); err != nil {
		glog.Warningf("decode cached course %s: %v", courseID, err)
		return domain.Course{}, false
	}
	return course, true
}

// AddQuiz writes through to the source and drops the cached course.
func (c *CourseCache) AddQuiz(ctx context.Context, courseID, quizID string) error {
	if err := c.source.AddQuiz(ctx, courseID, quizID); err != nil {
		return err
	}
	return c.client.Del(ctx, c.key(courseID)).Err()
}

func (c *CourseCache) key(courseID string) string {
	return "course:" + courseID
}

func (c *CourseCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
