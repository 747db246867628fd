package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/moodtherapist/backend/internal/analysis/mood"
	"github.com/moodtherapist/backend/internal/config"
	"github.com/moodtherapist/backend/internal/model/chat"
	"github.com/moodtherapist/backend/internal/model/chatlog"
	"github.com/moodtherapist/backend/internal/service/ai"
	"github.com/moodtherapist/backend/internal/service/prompt"
	"github.com/moodtherapist/backend/internal/service/render"
)

// ContentFetcher attaches supplementary content to a reply.
type ContentFetcher interface {
	Fetch(ctx context.Context, message string, mood chat.Mood) *chat.External
}

// Recorder accepts exchanges for background persistence.
type Recorder interface {
	Submit(record chatlog.Record) bool
}

// Event names emitted by RespondWithEvents.
const (
	EventMood     = "mood"
	EventExternal = "external"
	EventReply    = "reply"
)

// Event is a progress notification for streaming transports.
type Event struct {
	Name string
	Data any
}

// Deps are the collaborators of the service. ChatModel nil means no provider is configured.
type Deps struct {
	ChatModel model.BaseChatModel
	External  ContentFetcher
	Recorder  Recorder
	Logger    *logrus.Entry
}

// Service produces one companion reply per request.
type Service struct {
	cfg      config.ChatConfig
	builder  *prompt.Builder
	chains   map[chat.Mode]compose.Runnable[map[string]any, *schema.Message]
	external ContentFetcher
	recorder Recorder
	log      *logrus.Entry
}

// NewService compiles one template -> model chain per mode.
func NewService(ctx context.Context, cfg config.ChatConfig, deps Deps) (*Service, error) {
	log := deps.Logger
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}

	s := &Service{
		cfg:      cfg,
		builder:  prompt.NewBuilder(cfg.HistoryWindow),
		external: deps.External,
		recorder: deps.Recorder,
		log:      log,
	}

	if deps.ChatModel == nil {
		return s, nil
	}

	s.chains = make(map[chat.Mode]compose.Runnable[map[string]any, *schema.Message], 3)
	for _, mode := range []chat.Mode{chat.ModeDefault, chat.ModeMoodCheck, chat.ModeAffirmations} {
		chain := compose.NewChain[map[string]any, *schema.Message]()
		chain.AppendChatTemplate(s.builder.Template(mode))
		chain.AppendChatModel(deps.ChatModel)

		runnable, err := chain.Compile(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to compile %s chain: %w", mode, err)
		}
		s.chains[mode] = runnable
	}
	return s, nil
}

// Enabled reports whether a generation provider is wired.
func (s *Service) Enabled() bool {
	return s.chains != nil
}

// Respond always returns a reply; every failure degrades to fallback text.
func (s *Service) Respond(ctx context.Context, req chat.Request) chat.Reply {
	return s.RespondWithEvents(ctx, req, nil)
}

// RespondWithEvents is Respond with progress notifications. emit may be called from a
// goroutine other than the caller's, but never concurrently with itself.
func (s *Service) RespondWithEvents(ctx context.Context, req chat.Request, emit func(Event)) chat.Reply {
	if emit == nil {
		emit = func(Event) {}
	}
	if req.Mode == "" {
		req.Mode = chat.ModeDefault
	}

	started := time.Now()
	decision := mood.Analyze(req.Message, req.History)
	log := s.log.WithFields(logrus.Fields{
		"mode":      req.Mode,
		"mood":      decision.Mood,
		"score":     decision.Score,
		"has_user":  req.UserID != "",
		"history_n": len(req.History),
	})
	emit(Event{Name: EventMood, Data: decision.Mood})

	if !s.Enabled() {
		return s.apologize(req, decision.Mood, log, emit)
	}

	var (
		external *chat.External
		raw      string
		genErr   error
	)

	var g errgroup.Group
	if s.external != nil {
		g.Go(func() error {
			external = s.external.Fetch(ctx, req.Message, decision.Mood)
			if external != nil {
				emit(Event{Name: EventExternal, Data: external})
			}
			return nil
		})
	}
	g.Go(func() error {
		raw, genErr = s.generate(ctx, req, decision.Mood)
		return nil
	})
	_ = g.Wait()

	if errors.Is(genErr, config.ErrMissingAPIKey) {
		return s.apologize(req, decision.Mood, log, emit)
	}

	reply := chat.Reply{Mood: decision.Mood, External: external}
	switch {
	case genErr != nil:
		log.WithError(genErr).WithField("timeout", errors.Is(genErr, ai.ErrTimeout)).
			Warn("generation failed, using canned reply")
		reply.Text = outageReply(decision.Mood, req.Message, external)
	case req.Mode.Structured():
		text, err := render.Parse(raw, req.Mode)
		if err != nil {
			log.WithError(err).Warn("structured reply unusable, using mode fallback")
			text = render.Fallback(req.Mode)
		}
		reply.Text = text
	default:
		reply.Text = strings.TrimSpace(raw)
		if reply.Text == "" {
			log.Warn("empty generation, using canned reply")
			reply.Text = outageReply(decision.Mood, req.Message, external)
		}
	}

	s.persist(req, reply, log)
	log.WithField("duration", time.Since(started).Round(time.Millisecond)).Info("reply ready")
	emit(Event{Name: EventReply, Data: reply})
	return reply
}

func (s *Service) apologize(req chat.Request, label chat.Mood, log *logrus.Entry, emit func(Event)) chat.Reply {
	log.Warn("generation provider not configured, returning apology")
	reply := chat.Reply{Text: MissingKeyReply, Mood: label}
	if s.cfg.PersistOnMissingKey {
		s.persist(req, reply, log)
	}
	emit(Event{Name: EventReply, Data: reply})
	return reply
}

// Preview renders the prompt that would be sent for req.
func (s *Service) Preview(ctx context.Context, req chat.Request) (string, error) {
	return s.builder.Build(ctx, s.promptInput(req, mood.Classify(req.Message, req.History)))
}

func (s *Service) generate(ctx context.Context, req chat.Request, label chat.Mood) (string, error) {
	chain, ok := s.chains[req.Mode]
	if !ok {
		chain = s.chains[chat.ModeDefault]
	}

	msg, err := chain.Invoke(ctx, s.builder.Variables(s.promptInput(req, label)))
	if err != nil {
		return "", fmt.Errorf("failed to run %s chain: %w", req.Mode, err)
	}
	if msg == nil {
		return "", fmt.Errorf("failed to run %s chain: %w", req.Mode, ai.ErrMalformedResponse)
	}
	return msg.Content, nil
}

func (s *Service) promptInput(req chat.Request, label chat.Mood) prompt.Input {
	return prompt.Input{
		Message: req.Message,
		Mood:    label,
		History: req.History,
		Mode:    req.Mode,
	}
}

func (s *Service) persist(req chat.Request, reply chat.Reply, log *logrus.Entry) {
	if s.recorder == nil {
		return
	}
	if req.UserID == "" && s.cfg.RequireUserIDForPersistence {
		log.Debug("anonymous exchange, skipping chat log")
		return
	}

	var userID *string
	if req.UserID != "" {
		id := req.UserID
		userID = &id
	}
	if !s.recorder.Submit(chatlog.Record{
		UserID:       userID,
		UserMessage:  req.Message,
		BotResponse:  reply.Text,
		DetectedMood: reply.Mood,
	}) {
		log.Warn("chat log record not queued")
	}
}
