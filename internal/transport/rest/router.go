// Package rest exposes health, metrics, the Telegram webhook and the operator API over HTTP.
package rest

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"surveybot/internal/logger"
	"surveybot/internal/model"
	"surveybot/internal/repository"
	"surveybot/internal/service"
	"surveybot/internal/transport/rest/handler"
	"surveybot/internal/transport/rest/middleware"
	"surveybot/internal/transport/telegram"
	"surveybot/internal/transport/ws"
)

// Container holds all dependencies for the router
type Container struct {
	AuthService   *service.AuthService
	Conversations handler.ConversationInspector
	Questionnaire *model.Questionnaire
	Submissions   repository.SubmissionRepository // Nil when the archive is disabled
	Webhook       *telegram.WebhookHandler        // Nil in polling mode
	WSHub         *ws.Hub
	Metrics       prometheus.Gatherer
	CORSOrigins   string
	Logger        *logger.Logger
}

// NewRouter creates the API router with all endpoints
func NewRouter(c *Container) http.Handler {
	r := mux.NewRouter()

	authHandler := handler.NewAuthHandler(c.AuthService)
	respondentHandler := handler.NewRespondentHandler(c.Conversations, c.Logger)
	questionnaireHandler := handler.NewQuestionnaireHandler(c.Questionnaire)
	submissionHandler := handler.NewSubmissionHandler(c.Submissions, c.Logger)

	authMW := middleware.NewAuthMiddleware(c.AuthService)

	r.Use(middleware.Logging(c.Logger))
	r.Use(corsMiddleware(c.CORSOrigins))

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	if c.Metrics != nil {
		r.Handle("/metrics", promhttp.HandlerFor(c.Metrics, promhttp.HandlerOpts{})).Methods("GET")
	}

	if c.Webhook != nil {
		r.HandleFunc("/telegram/webhook", c.Webhook.Receive).Methods("POST")
		r.HandleFunc("/telegram/webhook", c.Webhook.Status).Methods("GET")
	}

	v1 := r.PathPrefix("/v1").Subrouter()

	// Public routes
	v1.HandleFunc("/auth/login", authHandler.Login).Methods("POST", "OPTIONS")

	// The feed validates its own token from the query string
	if c.WSHub != nil {
		wsHandler := ws.NewHandler(c.WSHub, c.AuthService, c.Logger)
		v1.HandleFunc("/ws/feed", wsHandler.FeedWS).Methods("GET")
	}

	operator := v1.NewRoute().Subrouter()
	operator.Use(authMW.RequireOperator)

	operator.HandleFunc("/questionnaire", questionnaireHandler.Get).Methods("GET", "OPTIONS")
	operator.HandleFunc("/respondents/{id}/state", respondentHandler.State).Methods("GET", "OPTIONS")
	operator.HandleFunc("/respondents/{id}", respondentHandler.Reset).Methods("DELETE", "OPTIONS")
	operator.HandleFunc("/submissions", submissionHandler.List).Methods("GET", "OPTIONS")
	operator.HandleFunc("/submissions/{id}", submissionHandler.Get).Methods("GET", "OPTIONS")

	return r
}

func corsMiddleware(allowedOrigins string) mux.MiddlewareFunc {
	if allowedOrigins == "" {
		allowedOrigins = "*"
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", allowedOrigins)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
