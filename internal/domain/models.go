package domain

import "time"

// Role tags a message in a generator conversation.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one role-tagged chat message. Quiz questions are stored as messages.
type Message struct {
	Content string `json:"content"`
	Role    Role   `json:"role"`
}

// UserType distinguishes students from instructors.
type UserType string

const (
	UserStudent    UserType = "student"
	UserInstructor UserType = "instructor"
)

// User is the authenticated caller as resolved by the user directory.
type User struct {
	ID       string   `json:"id"`
	CourseID string   `json:"courseId"`
	Name     string   `json:"name"`
	Type     UserType `json:"type"`
}

func (u User) IsInstructor() bool { return u.Type == UserInstructor }

// EducationLevel of a course, used to pitch generated questions.
type EducationLevel string

const (
	University EducationLevel = "University"
	Elementary EducationLevel = "Elementary"
	HighSchool EducationLevel = "HighSchool"
)

// Course is owned by the course directory.
type Course struct {
	ID             string         `json:"id"`
	InstructorID   string         `json:"instructorId"`
	Name           string         `json:"name"`
	EducationLevel EducationLevel `json:"educationLevel"`
	Description    string         `json:"description"`
	StudentIDs     IDSet          `json:"studentIds"`
	QuizIDs        IDSet          `json:"quizIds"`
}

// Clone copies c so that the id sets are not shared.
func (c Course) Clone() Course {
	c.StudentIDs = c.StudentIDs.Clone()
	c.QuizIDs = c.QuizIDs.Clone()
	return c
}

// Snapshot captures the course context embedded into quizzes at creation time.
func (c Course) Snapshot() CourseSnapshot {
	return CourseSnapshot{ID: c.ID, EducationLevel: c.EducationLevel, Description: c.Description}
}

// CourseSnapshot is an immutable copy of the course metadata a quiz was generated against.
type CourseSnapshot struct {
	ID             string         `json:"id"`
	EducationLevel EducationLevel `json:"educationLevel"`
	Description    string         `json:"description"`
}

// FinishedUserAttempt records a student's final score on a quiz.
// AttemptID is empty for zero scores backfilled when the quiz finished.
type FinishedUserAttempt struct {
	AttemptID   string    `json:"attemptId"`
	StudentID   string    `json:"studentId"`
	Score       int       `json:"score"`
	SubmittedOn time.Time `json:"submittedOn"`
}
