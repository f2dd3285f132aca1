package app

import (
	"context"
	"time"
	"unicode/utf8"

	"github.com/golang/glog"

	"khaos-quiz-service/internal/domain"
	"khaos-quiz-service/internal/generator"
)

const attemptKeyPrefix = "attempt:"

// QuizAttempt is one student's attempt at a quiz. QuizQuestions is frozen when the attempt starts.
type QuizAttempt struct {
	ID            string
	QuizID        string
	CourseID      string
	StudentID     string
	QuizQuestions []domain.Message
	Score         int
	UserAnswers   []string
	SubmittedOn   *time.Time
}

func (a *QuizAttempt) Submitted() bool { return a.SubmittedOn != nil }

func (a *QuizAttempt) validateSubmission(user domain.User, answers []string) error {
	if user.ID != a.StudentID {
		return domain.Forbidden("Only the student who started this quizAttempt may submit it")
	}
	if a.Submitted() {
		return domain.Invalid("quizAttempt has already been submitted")
	}
	if len(answers) > len(a.QuizQuestions) {
		return domain.Invalid("You've got too many answers in your response, remove %d", len(answers)-len(a.QuizQuestions))
	}
	if len(answers) < len(a.QuizQuestions) {
		return domain.Invalid("You're missing answers from your quiz, add %d more", len(a.QuizQuestions)-len(answers))
	}
	for _, answer := range answers {
		if utf8.RuneCountInString(answer) > MaxContentLength {
			return domain.Invalid("Please shorten your answers")
		}
	}
	return nil
}

func (a *QuizAttempt) snapshot() domain.FinishedUserAttempt {
	return domain.FinishedUserAttempt{
		AttemptID:   a.ID,
		StudentID:   a.StudentID,
		Score:       a.Score,
		SubmittedOn: *a.SubmittedOn,
	}
}

// AttemptView is the question/answer view of an attempt.
type AttemptView struct {
	Questions []string `json:"questions"`
	Answers   []string `json:"answers"`
	Submitted bool     `json:"submitted"`
}

// View is available to the attempt's student and to instructors of its course.
func (a *QuizAttempt) View(user domain.User) (AttemptView, error) {
	ownAttempt := user.ID == a.StudentID
	courseInstructor := user.IsInstructor() && user.CourseID == a.CourseID
	if !ownAttempt && !courseInstructor {
		return AttemptView{}, domain.Forbidden("You don't have access to this quizAttempt")
	}

	questions := make([]string, len(a.QuizQuestions))
	for i, q := range a.QuizQuestions {
		questions[i] = q.Content
	}
	return AttemptView{
		Questions: questions,
		Answers:   append([]string{}, a.UserAnswers...),
		Submitted: a.Submitted(),
	}, nil
}

// AttemptStart is returned when a student begins a quiz.
type AttemptStart struct {
	Attempt  *QuizAttempt
	QuizName string
}

// AttemptService contains the student attempt use cases.
type AttemptService struct {
	attempts  documents[QuizAttempt]
	quizzes   *QuizService
	generator QuestionGenerator
	opts      options
}

func NewAttemptService(store Store, quizzes *QuizService, generator QuestionGenerator, opts ...Option) *AttemptService {
	return &AttemptService{
		attempts: documents[QuizAttempt]{
			store:  store,
			prefix: attemptKeyPrefix,
			kind:   "quizAttempt",
			encode: encodeAttempt,
			decode: decodeAttempt,
		},
		quizzes:   quizzes,
		generator: generator,
		opts:      buildOptions(opts),
	}
}

func noExpiry(*QuizAttempt) time.Duration { return 0 }

// Create registers the student on a started quiz and stores a new attempt
// holding a copy of the quiz's questions.
func (s *AttemptService) Create(ctx context.Context, user domain.User, quizID string) (AttemptStart, error) {
	quiz, err := s.quizzes.Get(ctx, quizID)
	if err != nil {
		return AttemptStart{}, err
	}
	if user.IsInstructor() || user.CourseID != quiz.CourseID {
		return AttemptStart{}, domain.Forbidden("Only students of this quiz's course may attempt this quiz")
	}

	quiz, err = s.quizzes.AddStartedAttempt(ctx, quizID, user.ID)
	if err != nil {
		return AttemptStart{}, err
	}

	attempt := &QuizAttempt{
		ID:            s.opts.newID(),
		QuizID:        quiz.ID,
		CourseID:      quiz.CourseID,
		StudentID:     user.ID,
		QuizQuestions: append([]domain.Message{}, quiz.Questions...),
		Score:         0,
		UserAnswers:   []string{},
	}
	if err := s.attempts.put(ctx, attempt.ID, attempt, 0); err != nil {
		return AttemptStart{}, domain.Internal("Error creating new quizAttempt", err)
	}

	glog.V(2).Infof("student %s started attempt %s on quiz %s", user.ID, attempt.ID, quizID)
	return AttemptStart{Attempt: attempt, QuizName: quiz.Name}, nil
}

func (s *AttemptService) Get(ctx context.Context, attemptID string) (*QuizAttempt, error) {
	return s.attempts.get(ctx, attemptID)
}

// View loads an attempt and projects it for user.
func (s *AttemptService) View(ctx context.Context, attemptID string, user domain.User) (AttemptView, error) {
	attempt, err := s.attempts.get(ctx, attemptID)
	if err != nil {
		return AttemptView{}, err
	}
	return attempt.View(user)
}

// Submit scores the answers with the generator, stores the result and
// propagates it to the owning quiz. A failed AI call or unparseable score
// leaves the attempt unsubmitted.
func (s *AttemptService) Submit(ctx context.Context, attemptID string, user domain.User, answers []string) (int, error) {
	attempt, err := s.attempts.get(ctx, attemptID)
	if err != nil {
		return 0, err
	}
	if err := attempt.validateSubmission(user, answers); err != nil {
		return 0, err
	}

	quiz, err := s.quizzes.Get(ctx, attempt.QuizID)
	if err != nil {
		return 0, err
	}
	if quiz.Finished() {
		return 0, domain.Invalid("Quiz has already finished, submissions are closed")
	}

	reply, err := s.generator.AttemptScore(ctx, generator.Transcript(attempt.QuizQuestions, answers))
	if err != nil {
		glog.Errorf("score attempt %s: %v", attemptID, err)
		return 0, domain.Internal("Error generating score", err)
	}
	score, err := generator.ParseScore(reply.Content)
	if err != nil {
		glog.Errorf("parse score for attempt %s: %v", attemptID, err)
		return 0, domain.Internal("Error parsing final score for quizAttempt", err)
	}

	now := s.opts.timestamp()
	submitted, err := s.attempts.update(ctx, attemptID, noExpiry, func(fresh *QuizAttempt) error {
		if fresh.Submitted() {
			return domain.Invalid("quizAttempt has already been submitted")
		}
		fresh.UserAnswers = append([]string{}, answers...)
		fresh.Score = score
		fresh.SubmittedOn = &now
		return nil
	})
	if err != nil {
		return 0, err
	}

	if err := s.quizzes.AddFinishedAttempt(ctx, submitted.QuizID, submitted.snapshot()); err != nil {
		return 0, err
	}

	glog.V(2).Infof("attempt %s submitted with score %d", attemptID, score)
	publish(ctx, s.opts.events, domain.Event{
		Type:       domain.EventAttemptSubmitted,
		QuizID:     submitted.QuizID,
		CourseID:   submitted.CourseID,
		OccurredAt: now,
		Payload:    submitted.snapshot(),
	})
	return score, nil
}
