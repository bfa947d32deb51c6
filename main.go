package main

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/abdusco/linkwatch/internal/auth"
	"github.com/abdusco/linkwatch/internal/checker"
	"github.com/abdusco/linkwatch/internal/db"
	"github.com/abdusco/linkwatch/internal/fetcher"
	"github.com/abdusco/linkwatch/internal/handler"
	"github.com/abdusco/linkwatch/internal/health"
	"github.com/abdusco/linkwatch/internal/llm"
	"github.com/abdusco/linkwatch/internal/logger"
	"github.com/abdusco/linkwatch/internal/repo"
	"github.com/abdusco/linkwatch/internal/scheduler"
	"github.com/abdusco/linkwatch/internal/summarizer"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

type Config struct {
	Host          string
	Port          string
	DBPath        string
	AdminCreds    string `json:"-"`
	JWTSecret     string `json:"-"`
	LogLevel      string
	Debug         bool
	LLMAPIKey     string `json:"-"`
	LLMBaseURL    string
	LLMModel      string
	CheckSchedule string
	FetchTimeout  time.Duration
	UserAgent     string
}

func newConfigFromEnv() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := Config{
		Host:          cmp.Or(os.Getenv("HOST"), "localhost"),
		Port:          cmp.Or(os.Getenv("PORT"), "8080"),
		DBPath:        cmp.Or(os.Getenv("DB_PATH"), "linkwatch.db"),
		AdminCreds:    os.Getenv("ADMIN_CREDENTIALS"),
		JWTSecret:     os.Getenv("JWT_SECRET"),
		LogLevel:      cmp.Or(os.Getenv("LOG_LEVEL"), "info"),
		Debug:         os.Getenv("DEBUG") == "1",
		LLMAPIKey:     os.Getenv("ANTHROPIC_API_KEY"),
		LLMBaseURL:    os.Getenv("ANTHROPIC_BASE_URL"),
		LLMModel:      cmp.Or(os.Getenv("LLM_MODEL"), llm.DefaultModel),
		CheckSchedule: os.Getenv("CHECK_SCHEDULE"),
		FetchTimeout:  fetcher.DefaultTimeout,
		UserAgent:     cmp.Or(os.Getenv("USER_AGENT"), fetcher.DefaultUserAgent),
	}

	if raw := os.Getenv("FETCH_TIMEOUT"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return Config{}, fmt.Errorf("invalid FETCH_TIMEOUT %q: %w", raw, err)
		}
		cfg.FetchTimeout = d
	}

	if cfg.AdminCreds == "" {
		log.Warn().Msg("ADMIN_CREDENTIALS not set - API is unauthenticated")
	} else if cfg.JWTSecret == "" {
		cfg.JWTSecret = cfg.AdminCreds
		log.Warn().Msg("using ADMIN_CREDENTIALS as JWT_SECRET - set JWT_SECRET for production")
	}

	if cfg.LLMAPIKey == "" {
		log.Warn().Msg("ANTHROPIC_API_KEY not set - summaries will be unavailable")
	}

	return cfg, nil
}

func main() {
	cfg, err := newConfigFromEnv()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to parse configuration from environment")
	}

	if err := logger.Setup(cfg.LogLevel, cfg.Debug); err != nil {
		log.Fatal().Err(err).Str("level", cfg.LogLevel).Msg("failed to parse log level")
	}

	log.Info().
		Interface("config", cfg).
		Msg("current configuration")

	ctx := context.Background()
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg); err != nil {
		log.Fatal().Err(err).Msg("application error")
	}
}

func run(ctx context.Context, cfg Config) error {
	log.Info().
		Str("version", version).
		Str("build_time", buildTime).
		Msg("starting application")

	dbInstance, err := db.Init(ctx, cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer dbInstance.Close()

	linksRepo := repo.NewLinksRepo(dbInstance)
	snapshotsRepo := repo.NewSnapshotsRepo(dbInstance)
	checksRepo := repo.NewChecksRepo(dbInstance)

	llmClient := llm.New(llm.Config{
		APIKey:  cfg.LLMAPIKey,
		BaseURL: cfg.LLMBaseURL,
		Model:   cfg.LLMModel,
	})
	pageFetcher := fetcher.New(fetcher.Config{
		Timeout:   cfg.FetchTimeout,
		UserAgent: cfg.UserAgent,
	})
	summ := summarizer.New(checksRepo, llmClient)
	chk := checker.New(linksRepo, snapshotsRepo, checksRepo, pageFetcher, summ)

	if cfg.CheckSchedule != "" {
		sched, err := scheduler.New(ctx, cfg.CheckSchedule, chk)
		if err != nil {
			return err
		}
		sched.Start()
		defer sched.Stop()
	}

	e := echo.New()
	defer e.Close()

	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = customErrorHandler

	e.Use(middleware.RequestLogger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	api := e.Group("/api")

	if cfg.AdminCreds != "" {
		credentials, err := auth.NewCredentials(cfg.AdminCreds)
		if err != nil {
			return fmt.Errorf("failed to parse admin credentials: %w", err)
		}
		authenticator := auth.NewAuthenticator(credentials, cfg.JWTSecret)
		authHandler := handler.NewAuthHandler(authenticator)

		e.POST("/login", authHandler.Login)
		e.GET("/logout", authHandler.Logout)
		api.Use(auth.NewAuthMiddleware(authenticator))
	}

	linkHandler := handler.NewLinkHandler(linksRepo, checksRepo, snapshotsRepo)
	api.GET("/links", linkHandler.ListLinks)
	api.POST("/links", linkHandler.AddLinks)
	api.DELETE("/links", linkHandler.DeleteLink)
	api.DELETE("/links/:id", linkHandler.DeleteLink)
	api.GET("/links/:id/checks", linkHandler.ListChecks)
	api.GET("/links/:id/snapshots", linkHandler.ListSnapshots)

	checkHandler := handler.NewCheckHandler(chk, summ)
	api.POST("/check", checkHandler.RunCheck)
	api.POST("/analyze", checkHandler.Analyze)

	statusHandler := handler.NewStatusHandler(health.NewProbe(linksRepo, llmClient))
	e.GET("/api/status", statusHandler.Status)

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	address := cfg.Host + ":" + cfg.Port
	log.Info().Str("address", address).Msg("server starting")

	// Run server and handle graceful shutdown
	runServer(ctx, e, address)

	return nil
}

func runServer(ctx context.Context, e *echo.Echo, address string) {
	serverErr := make(chan error, 1)
	go func() {
		serverErr <- e.Start(address)
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received, gracefully shutting down...")
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("server error")
		}
		return
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("error during graceful shutdown")
	}

	if err := <-serverErr; err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error().Err(err).Msg("server error")
	}

	log.Info().Msg("server stopped")
}

func customErrorHandler(err error, c echo.Context) {
	code := http.StatusInternalServerError
	message := "internal server error"

	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		code = httpErr.Code
		if msg, ok := httpErr.Message.(string); ok {
			message = msg
		}
	}

	event := log.Warn()
	if code >= http.StatusInternalServerError {
		event = log.Error()
	}
	event.
		Int("code", code).
		Str("method", c.Request().Method).
		Str("path", c.Request().URL.Path).
		Err(err).
		Msg("http error")

	if c.Response().Committed {
		return
	}

	if c.Request().Method == http.MethodHead {
		c.NoContent(code)
		return
	}

	c.JSON(code, map[string]any{
		"error": message,
	})
}
