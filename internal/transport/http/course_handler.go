package http

import "net/http"

func (h *handler) instructorQuizzes(w http.ResponseWriter, r *http.Request) {
	views, err := h.Courses.InstructorQuizzes(r.Context(), userFrom(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"quizzes": views})
}

func (h *handler) studentQuizzes(w http.ResponseWriter, r *http.Request) {
	views, err := h.Courses.StudentQuizzes(r.Context(), userFrom(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"quizzes": views})
}

func (h *handler) weeklySummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.Courses.WeeklySummary(r.Context(), userFrom(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"weeklySummary": summary})
}
