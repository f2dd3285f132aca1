package app

import (
	"context"
	"time"

	"github.com/golang/glog"
	"golang.org/x/sync/errgroup"

	"khaos-quiz-service/internal/domain"
)

const quizLoadConcurrency = 8

var weekdayKeys = [...]string{"sun", "mon", "tues", "wed", "thurs", "fri", "sat"}

// CourseService lists the quizzes of the caller's course.
type CourseService struct {
	courses CourseDirectory
	quizzes *QuizService
	opts    options
}

func NewCourseService(courses CourseDirectory, quizzes *QuizService, opts ...Option) *CourseService {
	return &CourseService{courses: courses, quizzes: quizzes, opts: buildOptions(opts)}
}

// loadQuizzes fetches every quiz of the user's course. Quizzes that no longer
// exist, such as expired drafts, are skipped.
func (s *CourseService) loadQuizzes(ctx context.Context, user domain.User) ([]*Quiz, error) {
	course, err := s.courses.GetCourse(ctx, user.ID, user.CourseID)
	if err != nil {
		return nil, lookupError(err, "course")
	}

	ids := course.QuizIDs.Sorted()
	loaded := make([]*Quiz, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(quizLoadConcurrency)
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			quiz, err := s.quizzes.Get(gctx, id)
			if domain.KindOf(err) == domain.KindNotFound {
				glog.V(2).Infof("course %s lists missing quiz %s", course.ID, id)
				return nil
			}
			if err != nil {
				return err
			}
			loaded[i] = quiz
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	quizzes := loaded[:0]
	for _, q := range loaded {
		if q != nil {
			quizzes = append(quizzes, q)
		}
	}
	return quizzes, nil
}

// InstructorQuizzes returns the instructor view of every quiz in the caller's course.
func (s *CourseService) InstructorQuizzes(ctx context.Context, user domain.User) ([]QuizInstructorView, error) {
	if !user.IsInstructor() {
		return nil, domain.Forbidden("Only the course instructor can view details on all the quizzes")
	}
	quizzes, err := s.loadQuizzes(ctx, user)
	if err != nil {
		return nil, err
	}
	if len(quizzes) == 0 {
		return nil, domain.NotFound("No quizzes found for this course")
	}

	views := make([]QuizInstructorView, len(quizzes))
	for i, q := range quizzes {
		views[i] = q.instructorView()
	}
	return views, nil
}

// StudentQuizzes returns the student view of every quiz in the caller's course.
func (s *CourseService) StudentQuizzes(ctx context.Context, user domain.User) ([]QuizStudentView, error) {
	quizzes, err := s.loadQuizzes(ctx, user)
	if err != nil {
		return nil, err
	}
	if len(quizzes) == 0 {
		return nil, domain.NotFound("No quizzes found for this course")
	}

	views := make([]QuizStudentView, len(quizzes))
	for i, q := range quizzes {
		views[i] = q.studentView(user.ID)
	}
	return views, nil
}

// AttemptScore is one scored attempt in a weekly summary.
type AttemptScore struct {
	QuizAttemptID string `json:"quizAttemptId"`
	Score         int    `json:"score"`
}

// DaySummary aggregates the scores of one weekday.
type DaySummary struct {
	AverageScore float64        `json:"averageScore"`
	Quizzes      []AttemptScore `json:"quizzes"`
}

// WeeklySummary groups the caller's scores from the last seven days by UTC weekday.
// Every weekday key is present, empty days have an average of zero.
func (s *CourseService) WeeklySummary(ctx context.Context, user domain.User) (map[string]DaySummary, error) {
	quizzes, err := s.loadQuizzes(ctx, user)
	if err != nil {
		return nil, err
	}

	now := s.opts.timestamp()
	return weeklySummary(quizzes, user.ID, now), nil
}

func weeklySummary(quizzes []*Quiz, studentID string, now time.Time) map[string]DaySummary {
	since := now.Add(-7 * 24 * time.Hour)
	summary := make(map[string]DaySummary, len(weekdayKeys))
	for _, key := range weekdayKeys {
		summary[key] = DaySummary{Quizzes: []AttemptScore{}}
	}

	totals := map[string]int{}
	for _, q := range quizzes {
		attempt, ok := q.FinishedAttempts[studentID]
		if !ok {
			continue
		}
		submitted := attempt.SubmittedOn.UTC()
		if submitted.Before(since) || submitted.After(now) {
			continue
		}
		key := weekdayKeys[submitted.Weekday()]
		day := summary[key]
		day.Quizzes = append(day.Quizzes, AttemptScore{QuizAttemptID: attempt.AttemptID, Score: attempt.Score})
		summary[key] = day
		totals[key] += attempt.Score
	}

	for key, day := range summary {
		if n := len(day.Quizzes); n > 0 {
			day.AverageScore = float64(totals[key]) / float64(n)
			summary[key] = day
		}
	}
	return summary
}
