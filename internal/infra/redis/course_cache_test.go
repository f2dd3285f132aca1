package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"

	"khaos-quiz-service/internal/domain"
	"khaos-quiz-service/internal/infra/memory"
)

func TestCourseCacheCachesInRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	ctx := context.Background()
	source := &countingSource{Directory: memory.NewDirectory([]domain.Course{sampleCourse()}, nil)}
	cache := NewCourseCache(newClient(mr), source, time.Minute)

	course, err := cache.GetCourse(ctx, "i1", "c1")
	if err != nil {
		t.Fatalf("get course: %v", err)
	}
	if source.calls != 1 || !course.StudentIDs.Has("s1") {
		t.Fatalf("expected loader called once, got %d", source.calls)
	}
	if !mr.Exists("course:c1") {
		t.Fatalf("expected course cached in redis")
	}

	// Second call should hit cache, loader not incremented.
	cached, _ := cache.GetCourse(ctx, "i1", "c1")
	if source.calls != 1 {
		t.Fatalf("expected cache hit, loader calls=%d", source.calls)
	}
	if cached.Description != course.Description || !cached.StudentIDs.Has("s2") {
		t.Fatalf("unexpected cached course %+v", cached)
	}

	if err := cache.AddQuiz(ctx, "c1", "q1"); err != nil {
		t.Fatalf("add quiz: %v", err)
	}
	if mr.Exists("course:c1") {
		t.Fatalf("expected cached course dropped after AddQuiz")
	}
	course, _ = cache.GetCourse(ctx, "i1", "c1")
	if !course.QuizIDs.Has("q1") || source.calls != 2 {
		t.Fatalf("expected reload with new quiz, calls=%d", source.calls)
	}
}

type countingSource struct {
	*memory.Directory
	calls int
}

func (s *countingSource) LoadCourse(ctx context.Context, courseID string) (domain.Course, error) {
	s.calls++
	return s.Directory.LoadCourse(ctx, courseID)
}

func sampleCourse() domain.Course {
	return domain.Course{
		ID:             "c1",
		InstructorID:   "i1",
		Name:           "Mobile Computing",
		EducationLevel: domain.University,
		Description:    "Principles of mobile computing",
		StudentIDs:     domain.NewIDSet("s1", "s2"),
		QuizIDs:        domain.NewIDSet(),
	}
}
