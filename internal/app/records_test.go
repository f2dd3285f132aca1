package app

import (
	"reflect"
	"strings"
	"testing"
	"time"

	"khaos-quiz-service/internal/domain"
)

func TestQuizRecordRoundTrip(t *testing.T) {
	started := time.Date(2024, 11, 18, 9, 0, 0, 0, time.UTC)
	finished := map[string]domain.FinishedUserAttempt{
		"s1": {AttemptID: "a1", StudentID: "s1", Score: 8, SubmittedOn: started.Add(time.Hour)},
	}
	quiz := &Quiz{
		ID:               "q1",
		AuthorID:         "i1",
		CourseID:         "c1",
		CourseInfo:       domain.CourseSnapshot{ID: "c1", EducationLevel: domain.HighSchool, Description: "biology"},
		Prompt:           "cells",
		QuestionLimit:    1,
		Name:             "Cells",
		Questions:        []domain.Message{{Role: domain.RoleAssistant, Content: "1. What is a cell?"}},
		StartedAttempts:  domain.NewIDSet("s2"),
		FinishedAttempts: finished,
		StartedAt:        &started,
	}

	data, err := encodeQuiz(quiz)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	for _, key := range []string{`"savedAuthorsCourseInfo"`, `"startedAttemptsUserIds":["s2"]`, `"finishedUserAttempts"`, `"version":1`} {
		if !strings.Contains(string(data), key) {
			t.Fatalf("expected %s in %s", key, data)
		}
	}
	if strings.Contains(string(data), "finishedAt") {
		t.Fatalf("unset finishedAt should be omitted: %s", data)
	}

	decoded, err := decodeQuiz("q1", data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !reflect.DeepEqual(quiz, decoded) {
		t.Fatalf("round trip mismatch:\nwant %+v\ngot  %+v", quiz, decoded)
	}
}

func TestDecodeLegacyQuizRecord(t *testing.T) {
	decoded, err := decodeQuiz("q1", []byte(`{"authorId":"i1","courseId":"c1","questionLimit":2}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.Questions == nil || decoded.StartedAttempts == nil || decoded.FinishedAttempts == nil {
		t.Fatalf("expected empty collections, got %+v", decoded)
	}

	if _, err := decodeQuiz("q1", []byte(`{"version":2}`)); err == nil {
		t.Fatalf("expected newer record version to be rejected")
	}
}

func TestPracticeRecordRejectsUnknownState(t *testing.T) {
	if _, err := decodePractice("p1", []byte(`{"userId":"u1","state":"paused"}`)); err == nil {
		t.Fatalf("expected unknown state error")
	}

	p := &PracticeQuiz{
		ID:                    "p1",
		UserID:                "u1",
		Prompt:                "cells",
		QuestionLimit:         PracticeQuestionLimit,
		CurrentQuestionNumber: 2,
		History:               []domain.Message{{Role: domain.RoleAssistant, Content: "Q"}},
		State:                 AssistantResponded,
	}
	data, err := encodePractice(p)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	decoded, err := decodePractice("p1", data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !reflect.DeepEqual(p, decoded) {
		t.Fatalf("round trip mismatch: %+v vs %+v", p, decoded)
	}
}

func TestAttemptRecordRoundTrip(t *testing.T) {
	submitted := time.Date(2024, 11, 19, 10, 30, 0, 0, time.UTC)
	a := &QuizAttempt{
		ID:            "a1",
		QuizID:        "q1",
		CourseID:      "c1",
		StudentID:     "s1",
		QuizQuestions: []domain.Message{{Role: domain.RoleUser, Content: "Q1"}},
		Score:         5,
		UserAnswers:   []string{"A1"},
		SubmittedOn:   &submitted,
	}
	data, err := encodeAttempt(a)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	decoded, err := decodeAttempt("a1", data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !reflect.DeepEqual(a, decoded) {
		t.Fatalf("round trip mismatch: %+v vs %+v", a, decoded)
	}
}
