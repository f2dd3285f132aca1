package app

import (
	"encoding/json"
	"fmt"
	"time"

	"khaos-quiz-service/internal/domain"
)

// Record versions. Records written before versioning decode as version 1.
const (
	quizRecordVersion     = 1
	attemptRecordVersion  = 1
	practiceRecordVersion = 1
)

type quizRecord struct {
	Version                int                                   `json:"version"`
	AuthorID               string                                `json:"authorId"`
	CourseID               string                                `json:"courseId"`
	SavedAuthorsCourseInfo domain.CourseSnapshot                 `json:"savedAuthorsCourseInfo"`
	Prompt                 string                                `json:"prompt"`
	QuestionLimit          int                                   `json:"questionLimit"`
	Name                   string                                `json:"name"`
	Questions              []domain.Message                      `json:"questions"`
	StartedAttemptsUserIDs domain.IDSet                          `json:"startedAttemptsUserIds"`
	FinishedUserAttempts   map[string]domain.FinishedUserAttempt `json:"finishedUserAttempts"`
	StartedAt              *time.Time                            `json:"startedAt,omitempty"`
	FinishedAt             *time.Time                            `json:"finishedAt,omitempty"`
}

func encodeQuiz(q *Quiz) ([]byte, error) {
	return json.Marshal(quizRecord{
		Version:                quizRecordVersion,
		AuthorID:               q.AuthorID,
		CourseID:               q.CourseID,
		SavedAuthorsCourseInfo: q.CourseInfo,
		Prompt:                 q.Prompt,
		QuestionLimit:          q.QuestionLimit,
		Name:                   q.Name,
		Questions:              q.Questions,
		StartedAttemptsUserIDs: q.StartedAttempts,
		FinishedUserAttempts:   q.FinishedAttempts,
		StartedAt:              q.StartedAt,
		FinishedAt:             q.FinishedAt,
	})
}

func decodeQuiz(id string, data []byte) (*Quiz, error) {
	var rec quizRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	if err := checkVersion("quiz", rec.Version, quizRecordVersion); err != nil {
		return nil, err
	}

	q := &Quiz{
		ID:               id,
		AuthorID:         rec.AuthorID,
		CourseID:         rec.CourseID,
		CourseInfo:       rec.SavedAuthorsCourseInfo,
		Prompt:           rec.Prompt,
		QuestionLimit:    rec.QuestionLimit,
		Name:             rec.Name,
		Questions:        rec.Questions,
		StartedAttempts:  rec.StartedAttemptsUserIDs,
		FinishedAttempts: rec.FinishedUserAttempts,
		StartedAt:        rec.StartedAt,
		FinishedAt:       rec.FinishedAt,
	}
	if q.Questions == nil {
		q.Questions = []domain.Message{}
	}
	if q.StartedAttempts == nil {
		q.StartedAttempts = domain.NewIDSet()
	}
	if q.FinishedAttempts == nil {
		q.FinishedAttempts = map[string]domain.FinishedUserAttempt{}
	}
	return q, nil
}

type attemptRecord struct {
	Version       int              `json:"version"`
	QuizID        string           `json:"quizId"`
	CourseID      string           `json:"courseId"`
	StudentID     string           `json:"studentId"`
	QuizQuestions []domain.Message `json:"quizQuestions"`
	Score         int              `json:"score"`
	UserAnswers   []string         `json:"userAnswers"`
	SubmittedOn   *time.Time       `json:"submittedOn,omitempty"`
}

func encodeAttempt(a *QuizAttempt) ([]byte, error) {
	return json.Marshal(attemptRecord{
		Version:       attemptRecordVersion,
		QuizID:        a.QuizID,
		CourseID:      a.CourseID,
		StudentID:     a.StudentID,
		QuizQuestions: a.QuizQuestions,
		Score:         a.Score,
		UserAnswers:   a.UserAnswers,
		SubmittedOn:   a.SubmittedOn,
	})
}

func decodeAttempt(id string, data []byte) (*QuizAttempt, error) {
	var rec attemptRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	if err := checkVersion("quizAttempt", rec.Version, attemptRecordVersion); err != nil {
		return nil, err
	}

	a := &QuizAttempt{
		ID:            id,
		QuizID:        rec.QuizID,
		CourseID:      rec.CourseID,
		StudentID:     rec.StudentID,
		QuizQuestions: rec.QuizQuestions,
		Score:         rec.Score,
		UserAnswers:   rec.UserAnswers,
		SubmittedOn:   rec.SubmittedOn,
	}
	if a.QuizQuestions == nil {
		a.QuizQuestions = []domain.Message{}
	}
	if a.UserAnswers == nil {
		a.UserAnswers = []string{}
	}
	return a, nil
}

type practiceRecord struct {
	Version               int                   `json:"version"`
	UserID                string                `json:"userId"`
	SavedUsersCourseInfo  domain.CourseSnapshot `json:"savedUsersCourseInfo"`
	Prompt                string                `json:"prompt"`
	QuestionLimit         int                   `json:"questionLimit"`
	State                 PracticeState         `json:"state"`
	CurrentQuestionNumber int                   `json:"currentQuestionNumber"`
	History               []domain.Message      `json:"history"`
}

func encodePractice(p *PracticeQuiz) ([]byte, error) {
	return json.Marshal(practiceRecord{
		Version:               practiceRecordVersion,
		UserID:                p.UserID,
		SavedUsersCourseInfo:  p.CourseInfo,
		Prompt:                p.Prompt,
		QuestionLimit:         p.QuestionLimit,
		State:                 p.State,
		CurrentQuestionNumber: p.CurrentQuestionNumber,
		History:               p.History,
	})
}

func decodePractice(id string, data []byte) (*PracticeQuiz, error) {
	var rec practiceRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	if err := checkVersion("practiceQuiz", rec.Version, practiceRecordVersion); err != nil {
		return nil, err
	}
	switch rec.State {
	case AwaitingUserResponse, AssistantResponded, Completed:
	default:
		return nil, fmt.Errorf("unknown practiceQuiz state %q", rec.State)
	}

	p := &PracticeQuiz{
		ID:                    id,
		UserID:                rec.UserID,
		CourseInfo:            rec.SavedUsersCourseInfo,
		Prompt:                rec.Prompt,
		QuestionLimit:         rec.QuestionLimit,
		State:                 rec.State,
		CurrentQuestionNumber: rec.CurrentQuestionNumber,
		History:               rec.History,
	}
	if p.History == nil {
		p.History = []domain.Message{}
	}
	return p, nil
}

func checkVersion(kind string, got, current int) error {
	if got > current {
		return fmt.Errorf("unsupported %s record version %d (max %d)", kind, got, current)
	}
	return nil
}
