package http

import (
	"net/http"
	"time"

	"duotoeic/internal/auth"
	"duotoeic/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type API struct {
	Service *service.Service
	Auth    *auth.Manager
	Origins []string
}

func (a *API) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(loggingMiddleware)
	r.Use(a.corsMiddleware)

	r.Get("/health", a.handleHealth)
	r.Get("/users", a.handleListUsers)
	r.Post("/session", a.handleCreateSession)

	r.Group(func(r chi.Router) {
		r.Use(a.authMiddleware)
		r.Get("/me", a.handleMe)

		r.Route("/plan", func(r chi.Router) {
			r.Get("/", a.handleGetPlan)
			r.Put("/penalty", a.handleSetPenalty)
			r.Post("/periods", a.handleStartPeriod)
			r.Route("/users/{owner}/goals", func(r chi.Router) {
				r.Post("/", a.handleAddGoal)
				r.Delete("/{id}", a.goalHandler(a.Service.DeleteGoal))
				r.Post("/{id}/complete", a.goalHandler(a.Service.ToggleCompletion))
				r.Post("/{id}/verify", a.goalHandler(a.Service.ToggleVerification))
			})
		})
		r.Route("/logs", func(r chi.Router) {
			r.Get("/", a.handleListLogs)
			r.Post("/", a.handleAddLog)
			r.Get("/summary", a.handleSummary)
		})
		r.Route("/coach", func(r chi.Router) {
			r.Get("/topic", a.handleDailyTopic)
			r.Get("/question", a.handleSpeakingQuestion)
			r.Post("/writing", a.handleCheckWriting)
			r.Post("/speaking", a.handleCheckSpeaking)
		})
	})

	return r
}
