package cli

import "khaos-quiz-service/internal/domain"

const (
	sampleCourseID     = "njpeDyOco4HhEFpTAKkr"
	sampleInstructorID = "rkIyTsb1avUYH5QYmIArZbxqQgE2"
)

// sampleCourse seeds an empty directory so the service is usable without Postgres.
func sampleCourse() domain.Course {
	return domain.Course{
		ID:             sampleCourseID,
		InstructorID:   sampleInstructorID,
		Name:           "Mobile Computing",
		EducationLevel: domain.University,
		Description:    "Principles of mobile computing and the concepts and techniques underlying the design and development of mobile computing applications utilizing Kotlin and android.",
		StudentIDs:     domain.NewIDSet("student-1", "student-2"),
		QuizIDs:        domain.NewIDSet(),
	}
}

func sampleUsers() []domain.User {
	return []domain.User{
		{ID: sampleInstructorID, CourseID: sampleCourseID, Name: "Course Instructor", Type: domain.UserInstructor},
		{ID: "student-1", CourseID: sampleCourseID, Name: "First Student", Type: domain.UserStudent},
		{ID: "student-2", CourseID: sampleCourseID, Name: "Second Student", Type: domain.UserStudent},
	}
}
