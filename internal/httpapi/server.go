// Package httpapi exposes the dashboard reads and mutations as JSON endpoints.
//
// Every /api route requires the X-User-ID header and acts in the
// organization named by X-Organization-ID, or the caller's first one.
package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/goliatone/go-tagcache/internal/actions"
	"github.com/goliatone/go-tagcache/internal/auth"
	"github.com/goliatone/go-tagcache/internal/data"
	"github.com/goliatone/go-tagcache/internal/metrics"
)

// Deps are the collaborators of the HTTP layer. Metrics is optional.
type Deps struct {
	Reader      *data.Reader
	Actions     *actions.Actions
	Resolver    *auth.Resolver
	Logger      *slog.Logger
	Metrics     *metrics.Metrics
	MetricsPath string
}

type Server struct {
	reader   *data.Reader
	actions  *actions.Actions
	resolver *auth.Resolver
	logger   *slog.Logger
	metrics  *metrics.Metrics
	router   chi.Router
}

// NewServer builds the router.
func NewServer(deps Deps) *Server {
	s := &Server{
		reader:   deps.Reader,
		actions:  deps.Actions,
		resolver: deps.Resolver,
		logger:   loggerOrDefault(deps.Logger),
		metrics:  deps.Metrics,
	}

	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(chimw.RealIP)
	r.Use(s.observe)
	r.Use(chimw.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if s.metrics != nil {
		path := deps.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.Method(http.MethodGet, path, s.metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(s.session)

		r.Get("/profile", s.getProfile)
		r.Put("/profile/personal-details", s.updatePersonalDetails)
		r.Put("/profile/preferences", s.updatePreferences)
		r.Get("/organizations", s.getOrganizations)
		r.Get("/organization/social-media", s.getSocialMedia)
		r.Put("/organization/social-media", s.updateSocialMedia)

		r.Get("/members", s.getMembers)
		r.Post("/members/transfer-ownership", s.transferOwnership)

		r.Get("/contacts", s.getContacts)
		r.Post("/contacts", s.addContact)
		r.Post("/contacts/delete", s.deleteContacts)
		r.Route("/contacts/{contactID}", func(r chi.Router) {
			r.Get("/", s.getContact)
			r.Put("/", s.updateContact)
			r.Get("/notes", s.getContactNotes)
			r.Post("/notes", s.addContactNote)
			r.Get("/tasks", s.getContactTasks)
			r.Post("/tasks", s.addContactTask)
			r.Get("/favorite", s.isFavorite)
			r.Put("/favorite", s.addFavorite)
			r.Delete("/favorite", s.removeFavorite)
			r.Get("/timeline", s.getContactTimeline)
			r.Post("/timeline/comments", s.addContactComment)
			r.Post("/visits", s.recordContactVisit)
		})
		r.Put("/tasks/{taskID}/status", s.updateTaskStatus)

		r.Get("/favorites", s.getFavorites)
		r.Get("/lead-generation", s.getLeadGeneration)
		r.Get("/home/most-visited", s.getMostVisited)
		r.Get("/home/least-visited", s.getLeastVisited)

		r.Get("/webhooks", s.getWebhooks)
		r.Post("/webhooks", s.addWebhook)
		r.Delete("/webhooks/{webhookID}", s.deleteWebhook)
	})

	s.router = r
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
