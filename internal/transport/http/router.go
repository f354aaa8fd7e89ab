// Package http composes the feature handlers into one router.
package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	authzhandler "watchpost/internal/authz/handler"
	"watchpost/internal/device"
	"watchpost/internal/ingest"
	"watchpost/internal/media"
	"watchpost/internal/platform/middleware"
	sightinghandler "watchpost/internal/sighting/handler"
	validationhandler "watchpost/internal/validation/handler"
)

// Deps carries everything the router mounts. Media and Ingest are optional;
// nil skips their routes.
type Deps struct {
	Logger       *slog.Logger
	JWTValidator middleware.JWTValidator
	Device       *device.Service
	AdminToken   string

	Sightings   *sightinghandler.Handler
	Validations *validationhandler.Handler
	Authz       *authzhandler.Handler
	Media       *media.Handler
	Ingest      *ingest.Handler
}

// New builds the HTTP router: public map routes, token-gated principal
// routes, and operator routes behind the admin token.
func New(deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.ClientMetadata)
	r.Use(middleware.Logger(deps.Logger))
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", promhttp.Handler())

	// Public API: submissions and the map are open to everyone; validations
	// additionally resolve a device identity.
	r.Group(func(public chi.Router) {
		public.Use(middleware.ContentTypeJSON)
		public.Use(middleware.OptionalAuth(deps.JWTValidator, deps.Logger))
		public.Use(middleware.DeviceIdentity(deps.Device))

		deps.Sightings.Register(public)
		deps.Validations.Register(public)
		deps.Authz.RegisterPublic(public)
		if deps.Media != nil {
			deps.Media.Register(public)
		}
	})

	// Principal API: confirm override, invites, role changes. The service
	// layer enforces roles; the middleware only authenticates.
	r.Group(func(authed chi.Router) {
		authed.Use(middleware.ContentTypeJSON)
		authed.Use(middleware.RequireAuth(deps.JWTValidator, deps.Logger))

		deps.Authz.RegisterAuthenticated(authed)
	})

	// Operator API: shared-token surface for deployment tooling.
	if deps.Ingest != nil {
		r.Route("/admin", func(admin chi.Router) {
			admin.Use(middleware.ContentTypeJSON)
			admin.Use(middleware.RequireAdminToken(deps.AdminToken, deps.Logger))

			deps.Ingest.Register(admin)
		})
	}

	return r
}
