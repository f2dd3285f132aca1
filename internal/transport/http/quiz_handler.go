package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"khaos-quiz-service/internal/app"
)

type success struct {
	Success bool `json:"success"`
}

func (h *handler) createQuiz(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Options app.QuizOptions `json:"options"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	quiz, err := h.Quizzes.Create(r.Context(), userFrom(r), body.Options)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"quizId": quiz.ID})
}

func (h *handler) nextQuestion(w http.ResponseWriter, r *http.Request) {
	question, err := h.Quizzes.NextQuestion(r.Context(), chi.URLParam(r, "quizID"), userFrom(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"question": question})
}

func (h *handler) editQuestions(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Questions []string `json:"questions"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	if err := h.Quizzes.EditQuestions(r.Context(), chi.URLParam(r, "quizID"), userFrom(r), body.Questions); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, success{Success: true})
}

func (h *handler) startQuiz(w http.ResponseWriter, r *http.Request) {
	if err := h.Quizzes.Start(r.Context(), chi.URLParam(r, "quizID"), userFrom(r)); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, success{Success: true})
}

func (h *handler) finishQuiz(w http.ResponseWriter, r *http.Request) {
	if err := h.Quizzes.Finish(r.Context(), chi.URLParam(r, "quizID"), userFrom(r)); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, success{Success: true})
}

func (h *handler) instructorView(w http.ResponseWriter, r *http.Request) {
	view, err := h.Quizzes.InstructorView(r.Context(), chi.URLParam(r, "quizID"), userFrom(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"quiz": view})
}

func (h *handler) studentView(w http.ResponseWriter, r *http.Request) {
	view, err := h.Quizzes.StudentView(r.Context(), chi.URLParam(r, "quizID"), userFrom(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"quiz": view})
}

func (h *handler) scoreView(w http.ResponseWriter, r *http.Request) {
	attempt, err := h.Quizzes.ScoreView(r.Context(), chi.URLParam(r, "quizID"), userFrom(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"usersAttempt": attempt})
}
