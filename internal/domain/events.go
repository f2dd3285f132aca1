package domain

import "time"

// Event types published after successful lifecycle writes.
const (
	EventQuizCreated      = "quiz.created"
	EventQuizStarted      = "quiz.started"
	EventQuizFinished     = "quiz.finished"
	EventAttemptSubmitted = "attempt.submitted"
)

// Event is a lifecycle notification. Payload must be JSON-serializable.
type Event struct {
	Type       string    `json:"type"`
	QuizID     string    `json:"quizId"`
	CourseID   string    `json:"courseId"`
	OccurredAt time.Time `json:"occurredAt"`
	Payload    any       `json:"payload,omitempty"`
}
