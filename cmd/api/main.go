package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/formfill/chatbot/backend/internal/config"
	"github.com/formfill/chatbot/backend/internal/handler"
	"github.com/formfill/chatbot/backend/internal/model/bot"
	"github.com/formfill/chatbot/backend/internal/platform/metrics"
	"github.com/formfill/chatbot/backend/internal/service/catalog"
	"github.com/formfill/chatbot/backend/internal/service/conversation"
	"github.com/formfill/chatbot/backend/internal/service/dialogue"
	"github.com/formfill/chatbot/backend/internal/service/session"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		logger.Warn("no .env file loaded, using system environment", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	m := metrics.New()

	store, err := newCredentialStore(cfg.Auth)
	if err != nil {
		logger.Error("failed to initialize credential store", "error", err)
		os.Exit(1)
	}

	identity := session.NewHTTPIdentityClient(cfg.Auth.BaseURL, cfg.Auth.RequestTimeout)
	sessions := session.NewManager(identity, store, logger, m)

	bots, registry := buildBots(ctx, cfg, logger)

	conversations := conversation.NewService(registry, cfg.Dialogue.Timeout, logger, m)
	sessions.OnLogout(conversations.ClearSession)

	forms := catalog.Load(cfg.Dialogue.CatalogPath, logger)

	router := handler.NewRouter(handler.Deps{
		Sessions:      sessions,
		Conversations: conversations,
		Bots:          bots,
		Registry:      registry,
		Catalog:       forms,
	})

	startServer(ctx, logger, cfg.Server, router)
}

// newCredentialStore picks the Redis backing when configured, otherwise the
// in-process store.
func newCredentialStore(cfg config.AuthConfig) (session.CredentialStore, error) {
	if cfg.RedisAddr == "" {
		return session.NewMemoryStore(cfg.SessionTTL), nil
	}
	return session.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, cfg.SessionTTL)
}

// buildBots assembles the bot lineup and binds each bot to its configured
// dialogue backend; bots without a backend stay out of the selection list.
func buildBots(ctx context.Context, cfg *config.Config, logger *slog.Logger) (bot.Store, *dialogue.Registry) {
	lineup := bot.Seed()
	registry := dialogue.NewRegistry()
	httpClient := &http.Client{Timeout: cfg.Dialogue.Timeout}

	for i, b := range lineup {
		switch b.Kind {
		case bot.KindRest:
			if cfg.Dialogue.FormbotURL == "" {
				logger.Warn("no webhook configured, bot disabled", "bot", b.ID)
				continue
			}
			registry.Register(b.ID, dialogue.NewRESTBackend(cfg.Dialogue.FormbotURL, httpClient))
			if cfg.Auth.AdminGroupID != "" {
				lineup[i].RequiredGroups = []string{cfg.Auth.AdminGroupID}
			}
		case bot.KindQA:
			if cfg.Dialogue.QABotURL == "" {
				logger.Warn("no qa endpoint configured, bot disabled", "bot", b.ID)
				continue
			}
			registry.Register(b.ID, dialogue.NewQABackend(cfg.Dialogue.QABotURL, httpClient))
		case bot.KindLLM:
			if !cfg.AI.Enabled() {
				logger.Warn("chat-model credentials missing, bot disabled", "bot", b.ID)
				continue
			}
			chatModel, err := cfg.AI.NewChatModel(ctx)
			if err != nil {
				logger.Warn("failed to create chat model, bot disabled", "bot", b.ID, "error", err)
				continue
			}
			backend, err := dialogue.NewLLMBackend(ctx, chatModel, b.SystemPrompt)
			if err != nil {
				logger.Warn("failed to build llm backend, bot disabled", "bot", b.ID, "error", err)
				continue
			}
			registry.Register(b.ID, backend)
		}
	}

	return bot.NewMemoryStore(lineup), registry
}

func startServer(ctx context.Context, logger *slog.Logger, serverCfg config.ServerConfig, router http.Handler) {
	srv := &http.Server{
		Addr:              serverCfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	logger.Info("chatbot gateway listening", "addr", serverCfg.Addr)
	if err := runServer(ctx, srv); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
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
