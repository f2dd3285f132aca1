package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (h *handler) createAttempt(w http.ResponseWriter, r *http.Request) {
	start, err := h.Attempts.Create(r.Context(), userFrom(r), chi.URLParam(r, "quizID"))
	if err != nil {
		writeError(w, err)
		return
	}
	questions := make([]string, len(start.Attempt.QuizQuestions))
	for i, q := range start.Attempt.QuizQuestions {
		questions[i] = q.Content
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"quizName":      start.QuizName,
		"quizAttemptId": start.Attempt.ID,
		"questions":     questions,
	})
}

func (h *handler) attemptView(w http.ResponseWriter, r *http.Request) {
	view, err := h.Attempts.View(r.Context(), chi.URLParam(r, "attemptID"), userFrom(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"quizAttempt": view})
}

func (h *handler) submitAttempt(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Answers []string `json:"answers"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	score, err := h.Attempts.Submit(r.Context(), chi.URLParam(r, "attemptID"), userFrom(r), body.Answers)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"score": score})
}
