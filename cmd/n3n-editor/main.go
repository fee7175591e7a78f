package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	app "github.com/aiinpocket/n3n/editor"
	"github.com/aiinpocket/n3n/editor/internal/client"
	"github.com/aiinpocket/n3n/editor/internal/config"
	"github.com/aiinpocket/n3n/editor/internal/persist"
	"github.com/aiinpocket/n3n/editor/internal/registry"
	"github.com/aiinpocket/n3n/editor/internal/server"
	"github.com/aiinpocket/n3n/editor/pkg/log"
)

type editorService struct {
	cfg        *config.Config
	store      *persist.RedisStore
	registry   *registry.Registry
	services   *registry.ServiceCatalog
	engine     client.ExecutionClient
	apiServer  *server.Server
	httpServer *http.Server
	quit       chan os.Signal
}

var (
	ErrCreateStore    = errors.New("failed to create version store")
	ErrCreateRegistry = errors.New("failed to create node registry")
	ErrCreateCatalog  = errors.New("failed to create service catalog")
)

var logLevels = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

func main() {
	_ = godotenv.Load()

	cfg := config.NewDefaultConfig()
	if err := cfg.LoadFromEnv(); err != nil {
		slog.Error("Invalid configuration", log.Error(err))
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("Invalid configuration", log.Error(err))
		os.Exit(1)
	}

	s := &editorService{
		cfg:  cfg,
		quit: make(chan os.Signal, 1),
	}
	s.setupLogging()

	if err := s.run(); err != nil {
		slog.Error("Failed to start application", log.Error(err))
		os.Exit(1)
	}
}

func (s *editorService) run() error {
	if err := s.initializeStore(); err != nil {
		return err
	}

	if err := s.initializeCatalogs(); err != nil {
		return err
	}
	s.engine = client.NewHTTPClient(s.cfg.EngineBaseURL, s.cfg.EngineTimeout)
	s.startServer()

	signal.Notify(s.quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(s.quit)
	<-s.quit

	s.shutdown()
	return nil
}

func (s *editorService) setupLogging() {
	level, ok := logLevels[s.cfg.LogLevel]
	if !ok {
		level = slog.LevelInfo
	}

	env := os.Getenv("ENV")
	logger := log.NewWithLevel(app.Name, env, app.Version, level)
	slog.SetDefault(logger)
	slog.SetLogLoggerLevel(level)

	slog.Info("Flow editor starting",
		slog.String("log_level", s.cfg.LogLevel))

	slog.Info("Configuration loaded",
		slog.String("redis_addr", s.cfg.Store.Addr),
		slog.Int("redis_db", s.cfg.Store.DB),
		slog.String("engine_base_url", s.cfg.EngineBaseURL),
		slog.Duration("autosave_delay", s.cfg.AutoSaveDelay),
		slog.String("api_host", s.cfg.APIHost),
		slog.Int("api_port", s.cfg.APIPort))
}

func (s *editorService) initializeStore() error {
	store := persist.NewRedisStore(s.cfg.Store)
	if err := store.Ping(context.Background()); err != nil {
		_ = store.Close()
		return fmt.Errorf("%w: %w", ErrCreateStore, err)
	}

	s.store = store
	return nil
}

func (s *editorService) initializeCatalogs() error {
	reg, err := registry.New()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrCreateRegistry, err)
	}
	s.registry = reg

	services, err := registry.NewDefaultServiceCatalog()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrCreateCatalog, err)
	}
	s.services = services
	return nil
}

func (s *editorService) startServer() {
	s.apiServer = server.NewServer(
		s.store, s.registry, s.services, s.engine,
		persist.WithAutoSaveDelay(s.cfg.AutoSaveDelay),
	)
	mux := s.apiServer.SetupRoutes()

	s.httpServer = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", s.cfg.APIHost, s.cfg.APIPort),
		Handler: mux,
	}

	go func() {
		slog.Info("HTTP server starting",
			slog.String("addr", s.httpServer.Addr))
		err := s.httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", log.Error(err))
		}
	}()
}

func (s *editorService) shutdown() {
	slog.Info("Shutting down")

	ctx, cancel := context.WithTimeout(
		context.Background(), s.cfg.ShutdownTimeout,
	)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		slog.Error("Shutdown failed", log.Error(err))
	}

	s.apiServer.Close()

	if err := s.store.Close(); err != nil {
		slog.Error("Store shutdown failed", log.Error(err))
	}

	slog.Info("Server exited")
}
