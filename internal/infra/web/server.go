package web

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"webgpt-server/internal/domain/ports/repository"
	"webgpt-server/internal/usecase"
)

type Server struct {
	chatUC   usecase.ChatUseCase
	authUC   usecase.AuthUseCase
	adminUC  usecase.AdminUseCase
	sessions repository.SessionStore
	auth     *AuthManager
	proxy    *ImageProxy
	log      *zerolog.Logger
}

func NewServer(
	chatUC usecase.ChatUseCase,
	authUC usecase.AuthUseCase,
	adminUC usecase.AdminUseCase,
	sessions repository.SessionStore,
	auth *AuthManager,
	logger *zerolog.Logger,
) *Server {
	return &Server{
		chatUC:   chatUC,
		authUC:   authUC,
		adminUC:  adminUC,
		sessions: sessions,
		auth:     auth,
		proxy:    NewImageProxy(10 * time.Second),
		log:      logger,
	}
}

// Router assembles the full route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(TraceID())
	r.Use(RequestLog(s.log))
	r.Use(Recover(s.log))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/login", s.handleLogin)
		r.Post("/auth/register", s.handleRegister)
		r.Get("/auth/me", s.handleMe)
		r.Post("/auth/logout", s.handleLogout)

		r.Group(func(r chi.Router) {
			r.Use(RequireAuth(s.auth))

			r.Post("/auth/renew", s.handleRenew)
			r.Post("/chat", s.handleChat)
			r.Get("/models", s.handleListModels)
			r.Get("/image-proxy", s.proxy.Handle)

			r.Route("/sessions", func(r chi.Router) {
				r.Get("/", s.handleListSessions)
				r.Put("/", s.handleSaveSessions)
				r.Delete("/", s.handleClearSessions)
				r.Get("/stats", s.handleSessionStats)
				r.Get("/{sessionID}", s.handleGetSession)
				r.Put("/{sessionID}", s.handleUpdateSession)
				r.Delete("/{sessionID}", s.handleDeleteSession)
			})

			r.Route("/admin", func(r chi.Router) {
				r.Use(RequireAdmin())
				r.Post("/tokens", s.handleMintToken)
				r.Get("/tokens", s.handleListTokens)
				r.Get("/users", s.handleListUsers)
			})
		})
	})

	return r
}
