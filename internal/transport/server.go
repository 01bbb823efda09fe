package transport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nospoilers/core/internal/authsvc"
	"github.com/nospoilers/core/internal/contentsvc"
)

// Config controls how NewServer assembles the router.
type Config struct {
	AllowedOrigins []string
	CookieName     string
	DevMode        bool
	WebPlatform    bool
}

// Server is the assembled HTTP surface: a chi.Mux carrying the full
// middleware stack plus the auth and content route groups. Grounded
// on the teacher's internal/httpserver.Server, generalized away from
// its Postgres/tenant-specific readiness checks (this service has no
// database to ping) down to the parts that carry over directly: the
// middleware stack and the pattern of mounting health/metrics
// endpoints alongside a versioned API router.
type Server struct {
	Router    *chi.Mux
	startedAt time.Time
}

// NewServer builds the router, wiring authSvc and contentSvc behind
// chi route groups and registering reg's collectors at /metrics.
func NewServer(cfg Config, logger *slog.Logger, reg *prometheus.Registry, authSvc *authsvc.Service, contentSvc *contentsvc.Service) *Server {
	r := chi.NewRouter()

	r.Use(RequestID)
	r.Use(Logger(logger))
	r.Use(Metrics)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	srv := &Server{Router: r, startedAt: time.Now()}

	r.Get("/healthz", srv.handleHealthz)
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	authHandlers := &AuthHandlers{Service: authSvc, DevMode: cfg.DevMode, CookieName: cfg.CookieName, WebPlatform: cfg.WebPlatform}
	contentHandlers := &ContentHandlers{Service: contentSvc}
	requireAuth := RequireAuth(authSvc)

	r.Route("/api/v1", func(api chi.Router) {
		api.Route("/auth", func(auth chi.Router) {
			auth.Post("/phone/start", authHandlers.StartPhoneLogin)
			auth.Post("/phone/verify", authHandlers.VerifyPhoneCode)
			auth.Post("/oauth/login", authHandlers.LoginWithOAuth)
			auth.Post("/email/login", authHandlers.LoginWithEmailPassword)
			auth.Get("/username/availability", authHandlers.CheckUsernameAvailability)
			auth.Post("/session/refresh", authHandlers.RefreshSession)

			auth.Group(func(protected chi.Router) {
				protected.Use(requireAuth)
				protected.Post("/username/reserve", authHandlers.ReserveUsername)
				protected.Patch("/profile", authHandlers.UpdateProfile)
				protected.Post("/avatar/upload-plan", authHandlers.CreateAvatarUploadPlan)
				protected.Post("/avatar/{uploadId}/finalize", authHandlers.FinalizeAvatarUpload)
				protected.Post("/session/logout", authHandlers.Logout)
			})
		})

		api.Route("/content", func(content chi.Router) {
			content.Use(requireAuth)
			content.Post("/media", contentHandlers.CreateMediaItem)
			content.Post("/media/{mediaItemId}/units", contentHandlers.CreateMediaUnit)
			content.Post("/groups/{groupId}/selection", contentHandlers.SelectGroupMedia)
			content.Post("/groups/{groupId}/posts", contentHandlers.CreatePost)
			content.Get("/groups/{groupId}/media/{mediaItemId}/feed", contentHandlers.GetFeedForUser)
			content.Post("/groups/{groupId}/progress/mark-read", contentHandlers.MarkAsRead)
			content.Post("/progress/rollback", contentHandlers.RollbackProgress)
			content.Get("/groups/{groupId}/media/{mediaItemId}/progress/audit", contentHandlers.GetProgressAuditTrail)
		})
	})

	return srv
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	Respond(w, http.StatusOK, map[string]any{
		"status": "ok",
		"uptime": time.Since(s.startedAt).String(),
	})
}

// Shutdown is a hook for graceful shutdown; the in-memory services
// this server wires have nothing to flush, unlike the teacher's
// Postgres/Redis-backed server, but the method is kept so cmd/main's
// shutdown sequence reads the same regardless of backend.
func (s *Server) Shutdown(_ context.Context) error {
	return nil
}
