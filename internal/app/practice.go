package app

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/golang/glog"

	"khaos-quiz-service/internal/domain"
	"khaos-quiz-service/internal/generator"
)

const (
	practiceKeyPrefix = "practice:"
	// PracticeQuestionLimit is the fixed length of every practice quiz.
	PracticeQuestionLimit = 3
)

// PracticeState is the position of a practice quiz in its question/feedback loop.
type PracticeState string

const (
	AwaitingUserResponse PracticeState = "awaitingUserResponse"
	AssistantResponded   PracticeState = "assistantResponded"
	Completed            PracticeState = "completed"
)

// PracticeQuiz is an ungraded single-user quiz. History alternates generated
// questions with the user's answers and the feedback given on them; the final
// score message is appended last.
type PracticeQuiz struct {
	ID                    string
	UserID                string
	CourseInfo            domain.CourseSnapshot
	Prompt                string
	QuestionLimit         int
	CurrentQuestionNumber int
	History               []domain.Message
	State                 PracticeState
}

func (p *PracticeQuiz) LatestContent() string {
	if len(p.History) == 0 {
		return ""
	}
	return p.History[len(p.History)-1].Content
}

func (p *PracticeQuiz) checkOwner(user domain.User) error {
	if user.ID != p.UserID {
		return domain.Forbidden("You don't have access to this practiceQuiz")
	}
	return nil
}

func (p *PracticeQuiz) checkCanGiveFeedback(answer string) error {
	if answer == "" {
		return domain.Invalid("No answer specified!")
	}
	if utf8.RuneCountInString(answer) > MaxContentLength {
		return domain.Invalid("Please shorten your answer")
	}
	if p.State == AssistantResponded {
		return domain.Invalid("Awaiting user response, cannot give feedback")
	}
	if p.State == Completed {
		return domain.Invalid("Cannot give feedback, quiz has finished")
	}
	return nil
}

// PracticeStep is the outcome of continuing a practice quiz: either the next
// question or, once the last question is done, the final score.
type PracticeStep struct {
	Message   string `json:"message"`
	Completed bool   `json:"completed"`
	Score     *int   `json:"score,omitempty"`
}

// PracticeService contains the practice quiz use cases.
type PracticeService struct {
	practices documents[PracticeQuiz]
	courses   CourseDirectory
	generator QuestionGenerator
	opts      options
}

func NewPracticeService(store Store, courses CourseDirectory, generator QuestionGenerator, opts ...Option) *PracticeService {
	return &PracticeService{
		practices: documents[PracticeQuiz]{
			store:  store,
			prefix: practiceKeyPrefix,
			kind:   "practiceQuiz",
			encode: encodePractice,
			decode: decodePractice,
		},
		courses:   courses,
		generator: generator,
		opts:      buildOptions(opts),
	}
}

func (s *PracticeService) save(ctx context.Context, p *PracticeQuiz) error {
	return s.practices.put(ctx, p.ID, p, s.opts.practiceTTL)
}

// Create poses the first question on prompt for the user's course.
func (s *PracticeService) Create(ctx context.Context, user domain.User, prompt string) (*PracticeQuiz, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, domain.Invalid("No prompt specified!")
	}
	if utf8.RuneCountInString(prompt) > MaxPromptLength {
		return nil, domain.Invalid("Prompt is too long")
	}

	course, err := s.courses.GetCourse(ctx, user.ID, user.CourseID)
	if err != nil {
		return nil, lookupError(err, "course")
	}
	snapshot := course.Snapshot()

	question, err := s.generator.FirstQuestion(ctx, snapshot, prompt)
	if err != nil {
		glog.Errorf("generate practice question for user %s: %v", user.ID, err)
		return nil, domain.Internal("Error generating question", err)
	}

	p := &PracticeQuiz{
		ID:                    s.opts.newID(),
		UserID:                user.ID,
		CourseInfo:            snapshot,
		Prompt:                prompt,
		QuestionLimit:         PracticeQuestionLimit,
		CurrentQuestionNumber: 1,
		History:               []domain.Message{question},
		State:                 AwaitingUserResponse,
	}
	if err := s.save(ctx, p); err != nil {
		return nil, domain.Internal("Error creating new practiceQuiz", err)
	}
	glog.V(2).Infof("user %s created practice quiz %s", user.ID, p.ID)
	return p, nil
}

// Get loads a practice quiz by id without an ownership check.
func (s *PracticeService) Get(ctx context.Context, id string) (*PracticeQuiz, error) {
	return s.practices.get(ctx, id)
}

func (s *PracticeService) load(ctx context.Context, id string, user domain.User) (*PracticeQuiz, error) {
	p, err := s.practices.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := p.checkOwner(user); err != nil {
		return nil, err
	}
	return p, nil
}

// View returns the latest message of the owner's practice quiz.
func (s *PracticeService) View(ctx context.Context, id string, user domain.User) (string, error) {
	p, err := s.load(ctx, id, user)
	if err != nil {
		return "", err
	}
	return p.LatestContent(), nil
}

// Continue poses the next question, or finalizes once the last question is reached.
func (s *PracticeService) Continue(ctx context.Context, id string, user domain.User) (PracticeStep, error) {
	p, err := s.load(ctx, id, user)
	if err != nil {
		return PracticeStep{}, err
	}
	if p.State == Completed {
		return PracticeStep{}, domain.Invalid("Cannot continue, quiz has finished")
	}
	if p.CurrentQuestionNumber >= p.QuestionLimit {
		score, err := s.finalize(ctx, p)
		if err != nil {
			return PracticeStep{}, err
		}
		return PracticeStep{Message: p.LatestContent(), Completed: true, Score: &score}, nil
	}
	if p.State == AwaitingUserResponse {
		return PracticeStep{}, domain.Invalid("Awaiting user response, cannot continue")
	}

	question, err := s.generator.NextQuestion(ctx, p.CourseInfo, p.Prompt, p.History)
	if err != nil {
		glog.Errorf("generate next practice question for %s: %v", id, err)
		return PracticeStep{}, domain.Internal("Error generating question", err)
	}
	p.History = append(p.History, question)
	p.State = AwaitingUserResponse
	p.CurrentQuestionNumber++
	if err := s.save(ctx, p); err != nil {
		return PracticeStep{}, err
	}
	return PracticeStep{Message: question.Content}, nil
}

// GiveFeedback records the user's answer to the current question together with generated feedback.
func (s *PracticeService) GiveFeedback(ctx context.Context, id string, user domain.User, answer string) (string, error) {
	p, err := s.load(ctx, id, user)
	if err != nil {
		return "", err
	}
	if err := p.checkCanGiveFeedback(answer); err != nil {
		return "", err
	}

	feedback, err := s.generator.Feedback(ctx, p.CourseInfo, p.History, answer)
	if err != nil {
		glog.Errorf("generate feedback for %s: %v", id, err)
		return "", domain.Internal("Error generating feedback", err)
	}
	p.History = append(p.History, domain.Message{Role: domain.RoleUser, Content: answer}, feedback)
	p.State = AssistantResponded
	if err := s.save(ctx, p); err != nil {
		return "", err
	}
	return feedback.Content, nil
}

// Finalize scores a practice quiz whose last question has been posed.
func (s *PracticeService) Finalize(ctx context.Context, id string, user domain.User) (int, error) {
	p, err := s.load(ctx, id, user)
	if err != nil {
		return 0, err
	}
	if p.State == Completed {
		return 0, domain.Invalid("Practice quiz has already been scored")
	}
	if p.CurrentQuestionNumber < p.QuestionLimit {
		return 0, domain.Invalid("Practice quiz has %d questions remaining", p.QuestionLimit-p.CurrentQuestionNumber)
	}
	return s.finalize(ctx, p)
}

// finalize appends the score message and completes p. Nothing is written if the score cannot be parsed.
func (s *PracticeService) finalize(ctx context.Context, p *PracticeQuiz) (int, error) {
	reply, err := s.generator.PracticeScore(ctx, p.History)
	if err != nil {
		glog.Errorf("score practice quiz %s: %v", p.ID, err)
		return 0, domain.Internal("Error generating score", err)
	}
	score, err := generator.ParseScore(reply.Content)
	if err != nil {
		glog.Errorf("parse score for practice quiz %s: %v", p.ID, err)
		return 0, domain.Internal("Error parsing final score for practiceQuiz", err)
	}

	p.History = append(p.History, reply)
	p.State = Completed
	if err := s.save(ctx, p); err != nil {
		return 0, err
	}
	return score, nil
}
