package api

import (
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jobtrail-io/jobtrail/internal/auth"
	"github.com/jobtrail-io/jobtrail/internal/config"
	"github.com/jobtrail-io/jobtrail/internal/pro"
	"github.com/jobtrail-io/jobtrail/internal/store"
)

type Api struct {
	Config config.Config
	Router *chi.Mux

	store  *store.Store
	auth   *auth.Service
	pro    *pro.Service
	tokens *auth.TokenManager
}

func NewApi(cfg config.Config, st *store.Store, authSvc *auth.Service, proSvc *pro.Service, tm *auth.TokenManager) *Api {
	api := &Api{
		Config: cfg,
		Router: chi.NewRouter(),
		store:  st,
		auth:   authSvc,
		pro:    proSvc,
		tokens: tm,
	}
	api.setupRoutes()
	return api
}

func (api *Api) setupRoutes() {
	r := api.Router

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   api.Config.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Heartbeat("/heartbeat"))

	// Session-mutating endpoints: cookie-carried refresh secret, declared
	// origin must be on the allow-list.
	r.Group(func(r chi.Router) {
		r.Use(api.OriginCheckMiddleware)
		r.Post("/auth/register", api.RegisterHandler)
		r.Post("/auth/login", api.LoginHandler)
		r.Post("/auth/refresh", api.RefreshHandler)
		r.Post("/auth/logout", api.LogoutHandler)
	})

	r.Get("/auth/csrf", api.CSRFHandler)
	r.Get("/auth/verify-email", api.VerifyEmailHandler)

	// Bearer-token endpoints. The middleware re-checks the account's active
	// flag on every request; access tokens themselves cannot be revoked.
	r.Group(func(r chi.Router) {
		r.Use(api.AuthMiddleware)

		r.Get("/auth/me", api.MeHandler)
		r.Post("/auth/deactivate", api.DeactivateHandler)
		r.Delete("/auth/account", api.DeleteAccountHandler)

		r.Post("/pro/request", api.RequestProHandler)

		r.Post("/applications", api.CreateApplicationHandler)
		r.Get("/applications", api.ListApplicationsHandler)
		r.Get("/applications/{id}", api.GetApplicationHandler)
		r.Put("/applications/{id}", api.UpdateApplicationHandler)
		r.Delete("/applications/{id}", api.DeleteApplicationHandler)

		r.Group(func(r chi.Router) {
			r.Use(api.RequireAdmin)
			r.Post("/pro/requests/{id}/approve", api.ApproveProHandler)
			r.Post("/pro/requests/{id}/deny", api.DenyProHandler)
			r.Post("/pro/requests/{id}/credits", api.GrantCreditsHandler)
		})
	})
}

// OriginCheckMiddleware rejects session-mutating requests whose declared
// origin is off the allow-list. Requests without an Origin header
// (non-browser clients) pass; the CSRF double-submit still protects them.
func (api *Api) OriginCheckMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && !originAllowed(origin, api.Config.AllowedOrigins) {
			writeError(w, http.StatusForbidden, "origin_not_allowed", "request origin is not allowed")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func originAllowed(origin string, allowed []string) bool {
	for _, pattern := range allowed {
		if matchOrigin(pattern, origin) {
			return true
		}
	}
	return false
}

// matchOrigin supports the same single-wildcard patterns go-chi/cors accepts,
// e.g. "http://localhost:*".
func matchOrigin(pattern, origin string) bool {
	if pattern == "*" || pattern == origin {
		return true
	}
	i := strings.IndexByte(pattern, '*')
	if i < 0 {
		return false
	}
	prefix, suffix := pattern[:i], pattern[i+1:]
	return len(origin) >= len(prefix)+len(suffix) &&
		strings.HasPrefix(origin, prefix) &&
		strings.HasSuffix(origin, suffix)
}

func (api *Api) Serve() {
	addr := fmt.Sprintf("0.0.0.0:%d", api.Config.APIPort)
	log.Printf("Starting API server on %s", addr)
	log.Fatal(http.ListenAndServe(addr, api.Router))
}
