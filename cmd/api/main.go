package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/moodtherapist/backend/internal/auth"
	"github.com/moodtherapist/backend/internal/config"
	"github.com/moodtherapist/backend/internal/handler"
	"github.com/moodtherapist/backend/internal/handler/health"
	"github.com/moodtherapist/backend/internal/logging"
	"github.com/moodtherapist/backend/internal/model/modes"
	"github.com/moodtherapist/backend/internal/service/ai"
	"github.com/moodtherapist/backend/internal/service/chat"
	"github.com/moodtherapist/backend/internal/service/chatlog"
	"github.com/moodtherapist/backend/internal/service/dashboard"
	"github.com/moodtherapist/backend/internal/service/external"
	"github.com/moodtherapist/backend/internal/store/redisstream"
	"github.com/moodtherapist/backend/internal/store/sqlite"
	"github.com/moodtherapist/backend/internal/store/supabase"
)

const outboundTimeout = 30 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		logrus.WithError(err).Warn("no .env file loaded, continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("failed to load configuration")
	}

	logger := logging.New(cfg.Log)
	httpClient := &http.Client{Timeout: outboundTimeout}

	// Chat log persistence
	backend, err := openChatLog(cfg, httpClient)
	if err != nil {
		logger.WithError(err).WithField("backend", cfg.ChatLog.Backend).Fatal("failed to open chat log backend")
	}
	defer backend.Close()

	var writer *chatlog.Writer
	var recorder chat.Recorder
	if backend.sink != nil {
		writer = chatlog.NewWriter(backend.sink, chatlog.Options{
			QueueSize:    cfg.ChatLog.QueueSize,
			WriteTimeout: cfg.ChatLog.WriteTimeout,
		}, logging.Component(logger, "chatlog"))
		recorder = writer
	}
	logger.WithField("backend", cfg.ChatLog.Backend).Info("chat log backend ready")

	// Generation provider
	var chatModel model.BaseChatModel
	if cfg.AI.Enabled() {
		chatModel, err = ai.NewChatModel(ctx, cfg.AI, logging.Component(logger, "ai"))
		if err != nil {
			logger.WithError(err).Warn("failed to initialize generation provider, continuing with fallback replies")
			chatModel = nil
		} else {
			logger.WithField("provider", cfg.AI.Provider).Info("generation provider initialized")
		}
	} else {
		logger.WithField("provider", cfg.AI.Provider).Warn("generation credentials not configured, every reply will be the apology message")
	}

	// External content
	spotify := external.NewSpotifyClient(cfg.External, httpClient)
	trigger := external.NewTrigger(
		external.NewNewsClient(cfg.External, httpClient),
		spotify,
		cfg.Chat.MusicTrigger,
		logging.Component(logger, "external"),
	)

	chatSvc, err := chat.NewService(ctx, cfg.Chat, chat.Deps{
		ChatModel: chatModel,
		External:  trigger,
		Recorder:  recorder,
		Logger:    logging.Component(logger, "chat"),
	})
	if err != nil {
		logger.WithError(err).Fatal("failed to initialize chat service")
	}

	var verifier auth.Verifier
	if v := auth.NewSupabaseVerifier(cfg.Supabase, httpClient); v != nil {
		verifier = v
	} else if cfg.Auth.Required {
		logger.Fatal("AUTH_REQUIRED is set but Supabase is not configured")
	}

	var stats health.StatsSource
	if writer != nil {
		stats = writer
	}

	router := handler.NewRouter(*cfg, handler.Deps{
		Modes:     modes.NewMemoryStore(modes.Seed()),
		Chat:      chatSvc,
		Dashboard: dashboard.NewService(backend.reader, time.Local),
		Music:     spotify,
		Health:    health.New(cfg.ChatLog.Backend, chatSvc.Enabled(), stats, backend.pinger, logging.Component(logger, "health")),
		Verifier:  verifier,
		Logger:    logger,
	})

	startServer(ctx, cfg.Server, router, logger)

	if writer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := writer.Close(shutdownCtx); err != nil {
			logger.WithError(err).Warn("chat log writer did not drain")
		}
	}
}

// chatLogBackend bundles the capabilities of the selected persistence backend.
type chatLogBackend struct {
	sink   chatlog.Sink
	reader chatlog.Reader
	pinger chatlog.Pinger
	closer io.Closer
}

func (b chatLogBackend) Close() {
	if b.closer != nil {
		_ = b.closer.Close()
	}
}

func openChatLog(cfg *config.Config, httpClient *http.Client) (chatLogBackend, error) {
	switch cfg.ChatLog.Backend {
	case config.BackendSupabase:
		store, err := supabase.New(cfg.Supabase)
		if err != nil {
			return chatLogBackend{}, err
		}
		return chatLogBackend{sink: store, reader: store, pinger: store}, nil
	case config.BackendSQLite:
		store, err := sqlite.Open(cfg.ChatLog.SQLitePath)
		if err != nil {
			return chatLogBackend{}, err
		}
		return chatLogBackend{sink: store, reader: store, pinger: store, closer: store}, nil
	case config.BackendRedis:
		sink, err := redisstream.Dial(cfg.ChatLog.RedisURL, cfg.ChatLog.RedisStream)
		if err != nil {
			return chatLogBackend{}, err
		}
		return chatLogBackend{sink: sink, pinger: sink, closer: sink}, nil
	case config.BackendNone:
		return chatLogBackend{}, nil
	default:
		return chatLogBackend{}, fmt.Errorf("unsupported chat log backend %q", cfg.ChatLog.Backend)
	}
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler, logger *logrus.Logger) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	logger.WithField("addr", addr).Info("mood therapist backend listening")
	if err := runServer(ctx, srv); err != nil {
		logger.WithError(err).Fatal("server error")
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
