package http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"khaos-quiz-service/internal/app"
	"khaos-quiz-service/internal/metrics"
)

// Services are the use cases exposed over HTTP.
type Services struct {
	Quizzes   *app.QuizService
	Attempts  *app.AttemptService
	Practices *app.PracticeService
	Courses   *app.CourseService
}

// RouterConfig carries the cross-cutting pieces of the router.
type RouterConfig struct {
	Auth           *Authenticator
	Metrics        *metrics.Metrics
	AllowedOrigins []string
	// Health is called by /healthz; nil always reports ok.
	Health func(ctx context.Context) error
}

type handler struct {
	Services
}

// NewRouter builds the HTTP surface. Every route except /healthz and /metrics requires a caller.
func NewRouter(services Services, cfg RouterConfig) http.Handler {
	h := &handler{Services: services}
	ws := NewPracticeWSHandler(services.Practices, cfg.AllowedOrigins)

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware)
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type", UserHeader},
		MaxAge:         300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if cfg.Health != nil {
			if err := cfg.Health(r.Context()); err != nil {
				writeStatus(w, http.StatusServiceUnavailable, "unhealthy")
				return
			}
		}
		_, _ = w.Write([]byte("ok"))
	})
	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics.Handler())
	}

	r.Group(func(r chi.Router) {
		r.Use(cfg.Auth.Middleware)

		r.Route("/quizzes", func(r chi.Router) {
			r.Post("/", h.createQuiz)
			r.Route("/{quizID}", func(r chi.Router) {
				r.Put("/", h.editQuestions)
				r.Post("/next-question", h.nextQuestion)
				r.Post("/start", h.startQuiz)
				r.Post("/finish", h.finishQuiz)
				r.Get("/instructor", h.instructorView)
				r.Get("/student", h.studentView)
				r.Post("/attempts", h.createAttempt)
				r.Get("/attempts/score", h.scoreView)
			})
		})

		r.Route("/attempts/{attemptID}", func(r chi.Router) {
			r.Get("/", h.attemptView)
			r.Post("/submit", h.submitAttempt)
		})

		r.Route("/practice-quizzes", func(r chi.Router) {
			r.Post("/", h.createPractice)
			r.Route("/{practiceID}", func(r chi.Router) {
				r.Get("/", h.practiceView)
				r.Post("/feedback", h.practiceFeedback)
				r.Post("/continue", h.practiceContinue)
				r.Get("/ws", ws.ServeWS)
			})
		})

		r.Route("/courses/quizzes", func(r chi.Router) {
			r.Get("/instructor", h.instructorQuizzes)
			r.Get("/student", h.studentQuizzes)
			r.Get("/weekly-summary", h.weeklySummary)
		})
	})
	return r
}
