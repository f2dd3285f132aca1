package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (h *handler) createPractice(w http.ResponseWriter, r *http.Request) {
	p, err := h.Practices.Create(r.Context(), userFrom(r), r.URL.Query().Get("prompt"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"problem": p.LatestContent(), "practiceQuizId": p.ID})
}

func (h *handler) practiceView(w http.ResponseWriter, r *http.Request) {
	message, err := h.Practices.View(r.Context(), chi.URLParam(r, "practiceID"), userFrom(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": message})
}

func (h *handler) practiceFeedback(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Answer string `json:"answer"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	message, err := h.Practices.GiveFeedback(r.Context(), chi.URLParam(r, "practiceID"), userFrom(r), body.Answer)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": message})
}

func (h *handler) practiceContinue(w http.ResponseWriter, r *http.Request) {
	step, err := h.Practices.Continue(r.Context(), chi.URLParam(r, "practiceID"), userFrom(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, step)
}
