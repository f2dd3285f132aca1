package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/golang/glog"
	"github.com/gorilla/websocket"

	"khaos-quiz-service/internal/app"
	"khaos-quiz-service/internal/domain"
)

// PracticeWSHandler runs a practice quiz over a websocket: the client sends
// answers and continue requests, the server replies with feedback, the next
// question or the final score.
type PracticeWSHandler struct {
	practices *app.PracticeService
	upgrader  websocket.Upgrader
}

func NewPracticeWSHandler(practices *app.PracticeService, allowedOrigins []string) *PracticeWSHandler {
	return &PracticeWSHandler{
		practices: practices,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 {
		return func(r *http.Request) bool { return true }
	}
	hosts := make(map[string]struct{}, len(allowed))
	for _, origin := range allowed {
		if origin == "*" {
			return func(r *http.Request) bool { return true }
		}
		hosts[origin] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		_, ok := hosts[u.Scheme+"://"+u.Host]
		return ok
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type answerPayload struct {
	Answer string `json:"answer"`
}

type outboundMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type messagePayload struct {
	Message string `json:"message"`
}

type wsErrorPayload struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
}

func errorMessage(err error) outboundMessage {
	return outboundMessage{Type: "error", Payload: wsErrorPayload{Status: statusOf(err), Message: domain.PublicMessage(err)}}
}

// ServeWS upgrades the request once the caller is known to own the practice quiz.
func (h *PracticeWSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "practiceID")
	user := userFrom(r)

	latest, err := h.practices.View(r.Context(), id, user)
	if err != nil {
		writeError(w, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		glog.Warningf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	send := make(chan outboundMessage, 16)
	writerDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				glog.Warningf("ws write error: %v", err)
				return
			}
		}
	}()

	if !deliver(send, writerDone, outboundMessage{Type: "question", Payload: messagePayload{Message: latest}}) {
		return
	}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		if !deliver(send, writerDone, h.handleInbound(r.Context(), id, user, inbound)) {
			return
		}
	}

	close(send)
	<-writerDone
}

// deliver queues msg for the writer and reports false once the writer has stopped.
func deliver(send chan<- outboundMessage, writerDone <-chan struct{}, msg outboundMessage) bool {
	select {
	case send <- msg:
		return true
	case <-writerDone:
		return false
	}
}

func (h *PracticeWSHandler) handleInbound(ctx context.Context, id string, user domain.User, inbound inboundMessage) outboundMessage {
	switch inbound.Type {
	case "answer":
		var payload answerPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			return errorMessage(domain.Invalid("invalid answer payload"))
		}
		feedback, err := h.practices.GiveFeedback(ctx, id, user, payload.Answer)
		if err != nil {
			return errorMessage(err)
		}
		return outboundMessage{Type: "feedback", Payload: messagePayload{Message: feedback}}
	case "continue":
		step, err := h.practices.Continue(ctx, id, user)
		if err != nil {
			return errorMessage(err)
		}
		if step.Completed {
			return outboundMessage{Type: "completed", Payload: step}
		}
		return outboundMessage{Type: "question", Payload: messagePayload{Message: step.Message}}
	default:
		return errorMessage(domain.Invalid("unsupported message type"))
	}
}
