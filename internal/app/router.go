package app

import (
	"database/sql"
	"net/http"
	"time"

	"aptisurvey/internal/app/observability"
	"aptisurvey/internal/auth"
	"aptisurvey/internal/scoring"
	"aptisurvey/internal/survey"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewAuthService maps the app config onto the auth service. Built once at
// startup and shared between bootstrap and the router.
func NewAuthService(cfg Config, db *sql.DB) *auth.Service {
	return auth.NewService(db, auth.ServiceConfig{
		JWTSecret:         cfg.JWTSecret,
		TokenTTL:          time.Duration(cfg.TokenTTLHours) * time.Hour,
		BootstrapUsername: cfg.BootstrapUser,
		BootstrapPassword: cfg.BootstrapPass,
	})
}

func NewRouter(cfg Config, db *sql.DB, authSvc *auth.Service) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	collector := observability.NewCollector(db)
	r.Use(collector.Middleware)

	authHandler := auth.NewHandler(authSvc)

	store := survey.NewSQLStore(db)
	surveySvc := survey.NewService(store)
	surveyHandler := survey.NewHandler(surveySvc)

	scoringSvc := scoring.NewService(store, scoring.NewSQLSubmissionStore(db))
	scoringHandler := scoring.NewHandler(scoringSvc)

	loginLimiter := NewIPRateLimiter(cfg.AuthRateLimitPerMin, time.Minute)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	})
	r.Get("/metrics", collector.MetricsHandler)

	r.Route("/api/v1", func(api chi.Router) {
		api.With(RateLimitMiddleware(loginLimiter)).Post("/auth/login", authHandler.Login)

		api.Get("/surveys/{type}", surveyHandler.PublishedSurvey)
		api.Post("/surveys/{type}/submit", scoringHandler.Submit)

		api.Group(func(secure chi.Router) {
			secure.Use(authHandler.RequireAuth)
			secure.Get("/auth/me", authHandler.Me)

			secure.Group(func(admin chi.Router) {
				admin.Use(authHandler.RequireRoles("admin"))

				admin.Route("/admin/question-sets", func(sets chi.Router) {
					sets.Post("/", surveyHandler.CreateQuestionSet)
					sets.Get("/", surveyHandler.ListQuestionSets)
					sets.Get("/{id}", surveyHandler.GetQuestionSet)
					sets.Put("/{id}", surveyHandler.UpdateQuestionSet)
					sets.Delete("/{id}", surveyHandler.DeleteQuestionSet)
					sets.Post("/{id}/publish", surveyHandler.PublishQuestionSet)
					sets.Post("/{id}/clone", surveyHandler.CloneQuestionSet)
					sets.Get("/{id}/part-counts", surveyHandler.QuestionCountsByPart)
					sets.Get("/{id}/export", surveyHandler.ExportQuestionSet)
					sets.Post("/{id}/questions", surveyHandler.AddQuestion)
				})

				admin.Route("/admin/questions/{questionID}", func(q chi.Router) {
					q.Put("/", surveyHandler.UpdateQuestion)
					q.Delete("/", surveyHandler.DeleteQuestion)
					q.Post("/reorder", surveyHandler.ReorderQuestion)
					q.Post("/options", surveyHandler.AddOption)
				})

				admin.Route("/admin/options/{optionID}", func(o chi.Router) {
					o.Put("/", surveyHandler.UpdateOption)
					o.Delete("/", surveyHandler.DeleteOption)
					o.Post("/reorder", surveyHandler.ReorderOption)
				})

				admin.Get("/admin/submissions", scoringHandler.ListSubmissions)
			})
		})
	})

	return r
}
