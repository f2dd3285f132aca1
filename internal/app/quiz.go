package app

import (
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"khaos-quiz-service/internal/domain"
)

const (
	MaxPromptLength  = 40
	MaxQuestionLimit = 5
	// MaxContentLength bounds every question and answer written by a person.
	MaxContentLength = 300
)

// QuizOptions are supplied by the instructor when creating a quiz.
type QuizOptions struct {
	Name          string `json:"name"`
	QuestionLimit int    `json:"questionLimit"`
	Prompt        string `json:"prompt"`
}

func (o QuizOptions) validate() error {
	if strings.TrimSpace(o.Prompt) == "" {
		return domain.Invalid("No prompt specified!")
	}
	if utf8.RuneCountInString(o.Prompt) > MaxPromptLength {
		return domain.Invalid("Prompt is too long")
	}
	if o.QuestionLimit > MaxQuestionLimit {
		return domain.Invalid("Question limit cannot be more than %d", MaxQuestionLimit)
	}
	if o.QuestionLimit < 1 {
		return domain.Invalid("Question limit must be at least 1")
	}
	return nil
}

// Quiz is an instructor-authored quiz and the attempts made on it.
//
// Lifecycle: unstarted (questions accumulate) -> started (attempts accepted,
// questions locked) -> finished (read-only, every course student scored).
type Quiz struct {
	ID            string
	AuthorID      string
	CourseID      string
	CourseInfo    domain.CourseSnapshot
	Prompt        string
	QuestionLimit int
	Name          string
	Questions     []domain.Message

	// A student id is in at most one of StartedAttempts and FinishedAttempts.
	StartedAttempts  domain.IDSet
	FinishedAttempts map[string]domain.FinishedUserAttempt

	StartedAt  *time.Time
	FinishedAt *time.Time
}

func (q *Quiz) Started() bool  { return q.StartedAt != nil }
func (q *Quiz) Finished() bool { return q.FinishedAt != nil }

func (q *Quiz) isAuthor(user domain.User) bool { return user.ID == q.AuthorID }
func (q *Quiz) inCourse(user domain.User) bool { return user.CourseID == q.CourseID }

func (q *Quiz) checkCanAddQuestion(user domain.User) error {
	if !q.isAuthor(user) {
		return domain.Forbidden("Only the quiz author can add questions")
	}
	if q.Finished() {
		return domain.Invalid("Quiz has already finished")
	}
	if q.Started() {
		return domain.Invalid("Quiz has already started, questions can no longer change")
	}
	if len(q.Questions) >= q.QuestionLimit {
		return domain.Invalid("Quiz already has all %d of its questions", q.QuestionLimit)
	}
	return nil
}

// ReplaceQuestions overrides the generated questions with author-written ones.
func (q *Quiz) ReplaceQuestions(user domain.User, questions []string) error {
	if !q.isAuthor(user) {
		return domain.Forbidden("Only the quiz author can edit questions")
	}
	if q.Finished() {
		return domain.Invalid("Quiz has already finished")
	}
	if q.Started() {
		return domain.Invalid("Quiz has already started, questions can no longer change")
	}
	if err := questionCountError(len(questions), q.QuestionLimit); err != nil {
		return err
	}
	for _, content := range questions {
		if utf8.RuneCountInString(content) > MaxContentLength {
			return domain.Invalid("Please shorten your questions")
		}
	}

	replaced := make([]domain.Message, len(questions))
	for i, content := range questions {
		replaced[i] = domain.Message{Role: domain.RoleUser, Content: content}
	}
	q.Questions = replaced
	return nil
}

// Start locks the questions and opens the quiz for attempts.
func (q *Quiz) Start(user domain.User, now time.Time) error {
	if !q.isAuthor(user) {
		return domain.Forbidden("Only the quiz author can start the quiz")
	}
	if q.Finished() {
		return domain.Invalid("Quiz has already finished")
	}
	if err := questionCountError(len(q.Questions), q.QuestionLimit); err != nil {
		return err
	}
	if q.Started() {
		return domain.Invalid("Quiz has already started")
	}
	q.StartedAt = &now
	return nil
}

func questionCountError(have, want int) error {
	switch {
	case have < want:
		return domain.Invalid("Quiz is missing questions, add %d more", want-have)
	case have > want:
		return domain.Invalid("Quiz has too many questions, remove %d", have-want)
	}
	return nil
}

// AddStartedAttempt registers a student as having begun the quiz.
func (q *Quiz) AddStartedAttempt(studentID string) error {
	if !q.Started() {
		return domain.Invalid("Quiz has not started yet")
	}
	if q.Finished() {
		return domain.Invalid("Quiz has already finished")
	}
	if _, done := q.FinishedAttempts[studentID]; done || q.StartedAttempts.Has(studentID) {
		return domain.Invalid("You have already attempted this quiz")
	}
	q.StartedAttempts.Add(studentID)
	return nil
}

// AddFinishedAttempt records a scored attempt, replacing the started marker.
func (q *Quiz) AddFinishedAttempt(attempt domain.FinishedUserAttempt) {
	q.StartedAttempts.Remove(attempt.StudentID)
	q.FinishedAttempts[attempt.StudentID] = attempt
}

// Finish closes the quiz. Every course student without a finished attempt gets a zero.
func (q *Quiz) Finish(user domain.User, students domain.IDSet, now time.Time) error {
	if !q.isAuthor(user) {
		return domain.Forbidden("Only the quiz author can finish the quiz")
	}
	if q.Finished() {
		return domain.Invalid("Quiz has already finished")
	}

	q.StartedAttempts = domain.NewIDSet()
	for studentID := range students {
		if _, ok := q.FinishedAttempts[studentID]; ok {
			continue
		}
		q.FinishedAttempts[studentID] = domain.FinishedUserAttempt{
			AttemptID:   "",
			StudentID:   studentID,
			Score:       0,
			SubmittedOn: now,
		}
	}
	q.FinishedAt = &now
	return nil
}

// QuizStudentView is what a course member sees of a quiz.
type QuizStudentView struct {
	ID           string                      `json:"id"`
	AuthorID     string                      `json:"authorId"`
	Name         string                      `json:"name"`
	Started      bool                        `json:"started"`
	Finished     bool                        `json:"finished"`
	UsersAttempt *domain.FinishedUserAttempt `json:"usersAttempt"`
}

// QuizInstructorView is the author's full view, question content included.
type QuizInstructorView struct {
	ID                     string                       `json:"id"`
	AuthorID               string                       `json:"authorId"`
	Name                   string                       `json:"name"`
	Prompt                 string                       `json:"prompt"`
	QuestionLimit          int                          `json:"questionLimit"`
	Started                bool                         `json:"started"`
	Finished               bool                         `json:"finished"`
	StartedAt              *time.Time                   `json:"startedAt,omitempty"`
	FinishedAt             *time.Time                   `json:"finishedAt,omitempty"`
	Questions              []domain.Message             `json:"questions"`
	StartedAttemptsUserIDs []string                     `json:"startedAttemptsUserIds"`
	FinishedUserAttempts   []domain.FinishedUserAttempt `json:"finishedUserAttempts"`
}

func (q *Quiz) StudentView(user domain.User) (QuizStudentView, error) {
	if !q.inCourse(user) {
		return QuizStudentView{}, domain.Forbidden("Only members of this quiz's course may view it")
	}
	return q.studentView(user.ID), nil
}

func (q *Quiz) studentView(studentID string) QuizStudentView {
	view := QuizStudentView{
		ID:       q.ID,
		AuthorID: q.AuthorID,
		Name:     q.Name,
		Started:  q.Started(),
		Finished: q.Finished(),
	}
	if attempt, ok := q.FinishedAttempts[studentID]; ok {
		view.UsersAttempt = &attempt
	}
	return view
}

func (q *Quiz) InstructorView(user domain.User) (QuizInstructorView, error) {
	if !q.isAuthor(user) {
		return QuizInstructorView{}, domain.Forbidden("Only the quiz author can view quiz details")
	}
	return q.instructorView(), nil
}

func (q *Quiz) instructorView() QuizInstructorView {
	finished := make([]domain.FinishedUserAttempt, 0, len(q.FinishedAttempts))
	for _, attempt := range q.FinishedAttempts {
		finished = append(finished, attempt)
	}
	sort.Slice(finished, func(i, j int) bool { return finished[i].StudentID < finished[j].StudentID })

	return QuizInstructorView{
		ID:                     q.ID,
		AuthorID:               q.AuthorID,
		Name:                   q.Name,
		Prompt:                 q.Prompt,
		QuestionLimit:          q.QuestionLimit,
		Started:                q.Started(),
		Finished:               q.Finished(),
		StartedAt:              q.StartedAt,
		FinishedAt:             q.FinishedAt,
		Questions:              append([]domain.Message(nil), q.Questions...),
		StartedAttemptsUserIDs: q.StartedAttempts.Sorted(),
		FinishedUserAttempts:   finished,
	}
}

// ScoreView returns the caller's finished attempt.
func (q *Quiz) ScoreView(user domain.User) (domain.FinishedUserAttempt, error) {
	if !q.inCourse(user) {
		return domain.FinishedUserAttempt{}, domain.Forbidden("Only members of this quiz's course may view scores")
	}
	if attempt, ok := q.FinishedAttempts[user.ID]; ok {
		return attempt, nil
	}
	if q.StartedAttempts.Has(user.ID) {
		return domain.FinishedUserAttempt{}, domain.NotFound("Your attempt has not been submitted yet")
	}
	return domain.FinishedUserAttempt{}, domain.NotFound("You have not attempted this quiz")
}
