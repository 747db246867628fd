package handler

import (
	"net/http"
	"slices"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/moodtherapist/backend/internal/auth"
	"github.com/moodtherapist/backend/internal/config"
	"github.com/moodtherapist/backend/internal/handler/chat"
	"github.com/moodtherapist/backend/internal/handler/dashboard"
	"github.com/moodtherapist/backend/internal/handler/health"
	"github.com/moodtherapist/backend/internal/handler/modes"
	"github.com/moodtherapist/backend/internal/handler/music"
	"github.com/moodtherapist/backend/internal/handler/stream"
	"github.com/moodtherapist/backend/internal/logging"
	middlewarePkg "github.com/moodtherapist/backend/internal/middleware"
	modesModel "github.com/moodtherapist/backend/internal/model/modes"
	chatService "github.com/moodtherapist/backend/internal/service/chat"
)

// Deps carries everything the HTTP layer talks to.
type Deps struct {
	Modes     modesModel.Store
	Chat      *chatService.Service
	Dashboard dashboard.StatsProvider
	Music     music.Recommender
	Health    *health.Handler
	Verifier  auth.Verifier
	Logger    logrus.FieldLogger
}

// NewRouter wires HTTP routes to core services.
func NewRouter(cfg config.Config, deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS(cfg.Server.AllowedOrigins))

	if deps.Health != nil {
		deps.Health.RegisterRoutes(r)
	}

	r.Route("/api", func(api chi.Router) {
		api.Use(auth.Middleware(deps.Verifier, cfg.Auth.Required, logging.Component(deps.Logger, "auth")))

		modes.New(deps.Modes).RegisterRoutes(api)

		chat.New(deps.Chat, deps.Modes, logging.Component(deps.Logger, "chat_handler"), originChecker(cfg.Server.AllowedOrigins)).RegisterRoutes(api)
		stream.New(deps.Chat, logging.Component(deps.Logger, "stream")).RegisterRoutes(api)

		if deps.Dashboard != nil {
			dashboard.New(deps.Dashboard, logging.Component(deps.Logger, "dashboard")).RegisterRoutes(api)
		}
		music.New(deps.Music, logging.Component(deps.Logger, "music")).RegisterRoutes(api)

		if deps.Health != nil {
			deps.Health.RegisterRoutes(api)
		}
	})

	return r
}

// originChecker applies the CORS allow-list to websocket upgrades.
func originChecker(allowed []string) func(*http.Request) bool {
	if len(allowed) == 0 || slices.Contains(allowed, "*") {
		return nil
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || slices.Contains(allowed, origin)
	}
}
