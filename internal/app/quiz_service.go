package app

import (
	"context"
	"time"

	"github.com/golang/glog"

	"khaos-quiz-service/internal/domain"
)

const quizKeyPrefix = "quiz:"

// QuizService contains the instructor-authored quiz use cases.
// Every operation loads the quiz from the store, applies one transition and writes it back.
type QuizService struct {
	quizzes   documents[Quiz]
	courses   CourseDirectory
	generator QuestionGenerator
	opts      options
}

func NewQuizService(store Store, courses CourseDirectory, generator QuestionGenerator, opts ...Option) *QuizService {
	return &QuizService{
		quizzes: documents[Quiz]{
			store:  store,
			prefix: quizKeyPrefix,
			kind:   "quiz",
			encode: encodeQuiz,
			decode: decodeQuiz,
		},
		courses:   courses,
		generator: generator,
		opts:      buildOptions(opts),
	}
}

// ttl keeps drafts on the configured expiry and started or finished quizzes forever.
func (s *QuizService) ttl(q *Quiz) time.Duration {
	if q.Started() || q.Finished() {
		return 0
	}
	return s.opts.draftTTL
}

// Create generates the first question and stores a new quiz for the author's course.
func (s *QuizService) Create(ctx context.Context, author domain.User, opts QuizOptions) (*Quiz, error) {
	if !author.IsInstructor() {
		return nil, domain.Forbidden("Only instructors can create quizzes")
	}
	if err := opts.validate(); err != nil {
		return nil, err
	}

	course, err := s.courses.GetCourse(ctx, author.ID, author.CourseID)
	if err != nil {
		return nil, lookupError(err, "course")
	}
	snapshot := course.Snapshot()

	question, err := s.generator.FirstQuestion(ctx, snapshot, opts.Prompt)
	if err != nil {
		glog.Errorf("generate first question for course %s: %v", course.ID, err)
		return nil, domain.Internal("Error generating question", err)
	}

	quiz := &Quiz{
		ID:               s.opts.newID(),
		AuthorID:         author.ID,
		CourseID:         course.ID,
		CourseInfo:       snapshot,
		Prompt:           opts.Prompt,
		QuestionLimit:    opts.QuestionLimit,
		Name:             opts.Name,
		Questions:        []domain.Message{question},
		StartedAttempts:  domain.NewIDSet(),
		FinishedAttempts: map[string]domain.FinishedUserAttempt{},
	}
	if err := s.quizzes.put(ctx, quiz.ID, quiz, s.ttl(quiz)); err != nil {
		return nil, err
	}
	if err := s.courses.AddQuiz(ctx, course.ID, quiz.ID); err != nil {
		glog.Errorf("register quiz %s on course %s: %v", quiz.ID, course.ID, err)
		return nil, domain.Internal("Error adding quiz to course", err)
	}

	glog.V(2).Infof("instructor %s created quiz %s", author.ID, quiz.ID)
	publish(ctx, s.opts.events, domain.Event{Type: domain.EventQuizCreated, QuizID: quiz.ID, CourseID: quiz.CourseID, OccurredAt: s.opts.timestamp()})
	return quiz, nil
}

// Get loads a quiz by id.
func (s *QuizService) Get(ctx context.Context, quizID string) (*Quiz, error) {
	return s.quizzes.get(ctx, quizID)
}

// NextQuestion generates and appends one more question, returning its text.
// Each successful call appends a new question, so retries are not idempotent.
func (s *QuizService) NextQuestion(ctx context.Context, quizID string, user domain.User) (string, error) {
	quiz, err := s.quizzes.get(ctx, quizID)
	if err != nil {
		return "", err
	}
	if err := quiz.checkCanAddQuestion(user); err != nil {
		return "", err
	}

	question, err := s.generator.NextQuestion(ctx, quiz.CourseInfo, quiz.Prompt, quiz.Questions)
	if err != nil {
		glog.Errorf("generate next question for quiz %s: %v", quizID, err)
		return "", domain.Internal("Error generating question", err)
	}

	_, err = s.quizzes.update(ctx, quizID, s.ttl, func(fresh *Quiz) error {
		if err := fresh.checkCanAddQuestion(user); err != nil {
			return err
		}
		fresh.Questions = append(fresh.Questions, question)
		return nil
	})
	if err != nil {
		return "", err
	}
	return question.Content, nil
}

// EditQuestions replaces every question with author-written content before the quiz starts.
func (s *QuizService) EditQuestions(ctx context.Context, quizID string, user domain.User, questions []string) error {
	_, err := s.quizzes.update(ctx, quizID, s.ttl, func(fresh *Quiz) error {
		return fresh.ReplaceQuestions(user, questions)
	})
	return err
}

// Start opens the quiz for attempts.
func (s *QuizService) Start(ctx context.Context, quizID string, user domain.User) error {
	now := s.opts.timestamp()
	quiz, err := s.quizzes.update(ctx, quizID, s.ttl, func(fresh *Quiz) error {
		return fresh.Start(user, now)
	})
	if err != nil {
		return err
	}
	glog.V(2).Infof("quiz %s started by %s", quizID, user.ID)
	publish(ctx, s.opts.events, domain.Event{Type: domain.EventQuizStarted, QuizID: quizID, CourseID: quiz.CourseID, OccurredAt: now})
	return nil
}

// AddStartedAttempt registers studentID on the quiz and returns the updated quiz.
func (s *QuizService) AddStartedAttempt(ctx context.Context, quizID, studentID string) (*Quiz, error) {
	return s.quizzes.update(ctx, quizID, s.ttl, func(fresh *Quiz) error {
		return fresh.AddStartedAttempt(studentID)
	})
}

// AddFinishedAttempt re-reads the quiz and records a scored attempt on it,
// leaving every other field as currently stored.
func (s *QuizService) AddFinishedAttempt(ctx context.Context, quizID string, attempt domain.FinishedUserAttempt) error {
	_, err := s.quizzes.update(ctx, quizID, s.ttl, func(fresh *Quiz) error {
		fresh.AddFinishedAttempt(attempt)
		return nil
	})
	return err
}

// Finish closes the quiz and backfills a zero score for every student who never finished.
func (s *QuizService) Finish(ctx context.Context, quizID string, user domain.User) error {
	quiz, err := s.quizzes.get(ctx, quizID)
	if err != nil {
		return err
	}
	if !quiz.isAuthor(user) {
		return domain.Forbidden("Only the quiz author can finish the quiz")
	}
	if quiz.Finished() {
		return domain.Invalid("Quiz has already finished")
	}

	course, err := s.courses.GetCourse(ctx, user.ID, quiz.CourseID)
	if err != nil {
		return lookupError(err, "course")
	}

	now := s.opts.timestamp()
	if _, err := s.quizzes.update(ctx, quizID, s.ttl, func(fresh *Quiz) error {
		return fresh.Finish(user, course.StudentIDs, now)
	}); err != nil {
		return err
	}
	glog.V(2).Infof("quiz %s finished by %s", quizID, user.ID)
	publish(ctx, s.opts.events, domain.Event{Type: domain.EventQuizFinished, QuizID: quizID, CourseID: quiz.CourseID, OccurredAt: now})
	return nil
}

func (s *QuizService) StudentView(ctx context.Context, quizID string, user domain.User) (QuizStudentView, error) {
	quiz, err := s.quizzes.get(ctx, quizID)
	if err != nil {
		return QuizStudentView{}, err
	}
	return quiz.StudentView(user)
}

func (s *QuizService) InstructorView(ctx context.Context, quizID string, user domain.User) (QuizInstructorView, error) {
	quiz, err := s.quizzes.get(ctx, quizID)
	if err != nil {
		return QuizInstructorView{}, err
	}
	return quiz.InstructorView(user)
}

// ScoreView returns the caller's finished attempt on the quiz.
func (s *QuizService) ScoreView(ctx context.Context, quizID string, user domain.User) (domain.FinishedUserAttempt, error) {
	quiz, err := s.quizzes.get(ctx, quizID)
	if err != nil {
		return domain.FinishedUserAttempt{}, err
	}
	return quiz.ScoreView(user)
}
