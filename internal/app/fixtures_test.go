package app_test

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"testing"
	"time"

	"khaos-quiz-service/internal/app"
	"khaos-quiz-service/internal/domain"
	"khaos-quiz-service/internal/infra/memory"
)

var (
	instructor = domain.User{ID: "i1", CourseID: "c1", Name: "Ada", Type: domain.UserInstructor}
	student    = domain.User{ID: "s1", CourseID: "c1", Name: "Sam", Type: domain.UserStudent}
	classmate  = domain.User{ID: "s2", CourseID: "c1", Name: "Kim", Type: domain.UserStudent}
	outsider   = domain.User{ID: "s9", CourseID: "c2", Name: "Lee", Type: domain.UserStudent}

	fixedNow = time.Date(2024, 11, 20, 15, 0, 0, 0, time.UTC) // a Wednesday
)

type fakeGenerator struct {
	mu            sync.Mutex
	err           error
	scoreReply    string
	practiceReply string
	calls         int
}

func (g *fakeGenerator) reply(content string) (domain.Message, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	if g.err != nil {
		return domain.Message{}, g.err
	}
	return domain.Message{Role: domain.RoleAssistant, Content: content}, nil
}

func (g *fakeGenerator) FirstQuestion(_ context.Context, course domain.CourseSnapshot, prompt string) (domain.Message, error) {
	return g.reply("1. " + prompt + "?")
}

func (g *fakeGenerator) NextQuestion(_ context.Context, _ domain.CourseSnapshot, prompt string, history []domain.Message) (domain.Message, error) {
	return g.reply(fmt.Sprintf("%d. more %s?", len(history)+1, prompt))
}

func (g *fakeGenerator) Feedback(_ context.Context, _ domain.CourseSnapshot, _ []domain.Message, answer string) (domain.Message, error) {
	return g.reply("feedback on " + answer)
}

func (g *fakeGenerator) AttemptScore(context.Context, []domain.Message) (domain.Message, error) {
	return g.reply(g.scoreReply)
}

func (g *fakeGenerator) PracticeScore(context.Context, []domain.Message) (domain.Message, error) {
	return g.reply(g.practiceReply)
}

func (g *fakeGenerator) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

type recordingEvents struct {
	mu     sync.Mutex
	events []domain.Event
}

func (r *recordingEvents) Publish(_ context.Context, e domain.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recordingEvents) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}

type harness struct {
	store     *memory.Store
	directory *memory.Directory
	gen       *fakeGenerator
	events    *recordingEvents
	quizzes   *app.QuizService
	attempts  *app.AttemptService
	practices *app.PracticeService
	courses   *app.CourseService
	now       time.Time
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		store: memory.NewStore(),
		directory: memory.NewDirectory([]domain.Course{{
			ID:             "c1",
			InstructorID:   instructor.ID,
			Name:           "Mobile Computing",
			EducationLevel: domain.University,
			Description:    "Principles of mobile computing",
			StudentIDs:     domain.NewIDSet(student.ID, classmate.ID),
			QuizIDs:        domain.NewIDSet(),
		}}, []domain.User{instructor, student, classmate, outsider}),
		gen:    &fakeGenerator{scoreReply: `{"score": 7}`, practiceReply: `{"score": 9}`},
		events: &recordingEvents{},
		now:    fixedNow,
	}

	var seq int
	var mu sync.Mutex
	opts := []app.Option{
		app.WithClock(func() time.Time { return h.now }),
		app.WithIDGenerator(func() string {
			mu.Lock()
			defer mu.Unlock()
			seq++
			return "id-" + strconv.Itoa(seq)
		}),
		app.WithEvents(h.events),
	}
	h.quizzes = app.NewQuizService(h.store, h.directory, h.gen, opts...)
	h.attempts = app.NewAttemptService(h.store, h.quizzes, h.gen, opts...)
	h.practices = app.NewPracticeService(h.store, h.directory, h.gen, opts...)
	h.courses = app.NewCourseService(h.directory, h.quizzes, opts...)
	return h
}

// startedQuiz creates a quiz with limit questions and starts it.
func (h *harness) startedQuiz(t *testing.T, limit int) *app.Quiz {
	t.Helper()
	ctx := context.Background()
	quiz, err := h.quizzes.Create(ctx, instructor, app.QuizOptions{Name: "Week 1", QuestionLimit: limit, Prompt: "activities"})
	if err != nil {
		t.Fatalf("create quiz: %v", err)
	}
	for i := 1; i < limit; i++ {
		if _, err := h.quizzes.NextQuestion(ctx, quiz.ID, instructor); err != nil {
			t.Fatalf("next question: %v", err)
		}
	}
	if err := h.quizzes.Start(ctx, quiz.ID, instructor); err != nil {
		t.Fatalf("start quiz: %v", err)
	}
	quiz, err = h.quizzes.Get(ctx, quiz.ID)
	if err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	return quiz
}

func expectKind(t *testing.T, err error, kind domain.Kind, message string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error %q, got nil", kind, message)
	}
	if got := domain.KindOf(err); got != kind {
		t.Fatalf("expected %s error, got %s: %v", kind, got, err)
	}
	if message != "" && domain.PublicMessage(err) != message {
		t.Fatalf("expected message %q, got %q", message, domain.PublicMessage(err))
	}
}

func domainOptions(limit int) app.QuizOptions {
	return app.QuizOptions{Name: "Draft", QuestionLimit: limit, Prompt: "services"}
}
