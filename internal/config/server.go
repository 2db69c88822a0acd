package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"AccessAI/database"
	sessionHandler "AccessAI/internal/api/session/handler"
	sessionService "AccessAI/internal/api/session/service"
	translationHandler "AccessAI/internal/api/translation/handler"
	translationRepository "AccessAI/internal/api/translation/repository"
	translationService "AccessAI/internal/api/translation/service"
	"AccessAI/internal/middleware"
	"AccessAI/pkg/command"
	"AccessAI/pkg/gemini"
	"AccessAI/pkg/oracle"
	"AccessAI/pkg/redis"
	"AccessAI/pkg/utils"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
)

type ServerOption func(*Server) error

type Server struct {
	engine       *fiber.App
	db           *sqlx.DB
	log          *logrus.Logger
	middleware   middleware.Middleware
	validator    *validator.Validate
	utils        utils.IUtils
	handlers     []handler
	redisServer  redis.IRedis
	geminiClient gemini.IGemini
	sessions     sessionService.ISessionService
}

type handler interface {
	Start(srv fiber.Router)
}

func NewServer(options ...ServerOption) (*Server, error) {
	server := &Server{}

	for _, option := range options {
		if err := option(server); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	if server.engine == nil {
		return nil, fmt.Errorf("fiber app is required")
	}
	if server.log == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if server.db == nil {
		return nil, fmt.Errorf("database is required")
	}
	if server.validator == nil {
		server.validator = NewValidator()
	}
	if server.utils == nil {
		server.utils = utils.New()
	}
	if server.middleware == nil {
		server.middleware = middleware.New(server.log)
	}

	return server, nil
}

func WithFiber(fiberApp *fiber.App) ServerOption {
	return func(s *Server) error {
		s.engine = fiberApp
		return nil
	}
}

func WithLogger(logger *logrus.Logger) ServerOption {
	return func(s *Server) error {
		s.log = logger
		return nil
	}
}

func WithValidator(validator *validator.Validate) ServerOption {
	return func(s *Server) error {
		s.validator = validator
		return nil
	}
}

// WithDatabase opens DB_DRIVER/DB_DSN, sqlite by default.
func WithDatabase() ServerOption {
	return func(s *Server) error {
		db, err := database.NewFromEnv()
		if err != nil {
			if s.log != nil {
				s.log.Errorf("Failed to connect to database: %v", err)
			}
			return fmt.Errorf("failed to create database connection: %w", err)
		}
		s.db = db
		return nil
	}
}

func WithDB(db *sqlx.DB) ServerOption {
	return func(s *Server) error {
		s.db = db
		return nil
	}
}

// WithRedisServer enables the sentence cache. A nil server is ignored.
func WithRedisServer(redisServer redis.IRedis) ServerOption {
	return func(s *Server) error {
		s.redisServer = redisServer
		return nil
	}
}

func WithMiddleware() ServerOption {
	return func(s *Server) error {
		if s.log == nil {
			return fmt.Errorf("logger must be initialized before middleware")
		}
		s.middleware = middleware.New(s.log)
		return nil
	}
}

// WithGeminiClient enables remote sentence generation. Without an API key
// the server runs on the local tables only.
func WithGeminiClient() ServerOption {
	return func(s *Server) error {
		client, err := gemini.NewGeminiClient(context.Background())
		if errors.Is(err, gemini.ErrMissingAPIKey) {
			if s.log != nil {
				s.log.Warn("GEMINI_API_KEY not set, translations use local tables only")
			}
			return nil
		}
		if err != nil {
			if s.log != nil {
				s.log.Errorf("Failed to create Gemini client: %v", err)
			}
			return fmt.Errorf("failed to create Gemini client: %w", err)
		}
		s.geminiClient = client
		return nil
	}
}

func WithUtils() ServerOption {
	return func(s *Server) error {
		s.utils = utils.New()
		return nil
	}
}

func (s *Server) RegisterHandler() error {
	translator, err := s.newOracle()
	if err != nil {
		return err
	}

	vocabularies, err := loadVocabularies()
	if err != nil {
		return err
	}

	// Translation Domain
	translationRepo := translationRepository.New(s.db, s.log)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := translationRepo.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to migrate history table: %w", err)
	}
	translationServices := translationService.NewTranslationService(s.log, translationRepo, translator, s.utils)
	translationHandlers := translationHandler.New(s.log, s.validator, s.middleware, translationServices)

	// Mode Sessions
	s.sessions = sessionService.NewSessionService(s.log, s.utils, sessionService.Options{
		Vocabularies: vocabularies,
		Translator:   translator,
		History:      translationServices,
	})
	sessionHandlers := sessionHandler.New(s.log, s.validator, s.middleware, s.sessions)

	s.setupHealthCheck(translator.Strategy())
	s.handlers = append(s.handlers, translationHandlers, sessionHandlers)

	s.log.WithFields(logrus.Fields{
		"strategy": translator.Strategy().Mode,
		"timeout":  translator.Strategy().Timeout.String(),
		"cache":    s.redisServer != nil,
	}).Info("Handlers registered")

	return nil
}

// newOracle builds the sentence oracle. ORACLE_FILE replaces the built-in
// tables; the remote generator is Gemini, or TRANSLATE_URL when no Gemini
// key is configured.
func (s *Server) newOracle() (*oracle.Oracle, error) {
	var opts []oracle.Option

	if path := os.Getenv("ORACLE_FILE"); path != "" {
		tables, err := oracle.LoadTables(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load oracle tables: %w", err)
		}
		opts = append(opts, oracle.WithTables(tables))
	}

	var remote oracle.Generator
	switch {
	case s.geminiClient != nil:
		remote = oracle.NewModelGenerator(s.geminiClient)
	case os.Getenv("TRANSLATE_URL") != "":
		remote = oracle.NewHTTPGenerator(os.Getenv("TRANSLATE_URL"), 0)
	}

	if remote != nil {
		timeout := oracle.DefaultTimeout
		if v := os.Getenv("TRANSLATE_TIMEOUT"); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				return nil, fmt.Errorf("invalid TRANSLATE_TIMEOUT: %w", err)
			}
			timeout = d
		}

		mode := os.Getenv("TRANSLATE_STRATEGY")
		if mode == "" {
			mode = string(oracle.ModeTimeBoxed)
		}
		strategy, err := oracle.ParseStrategy(mode, timeout)
		if err != nil {
			return nil, err
		}

		if s.redisServer != nil {
			remote = oracle.NewCachedGenerator(remote, s.redisServer, redis.DefaultSentenceTTL, s.log)
		}
		opts = append(opts, oracle.WithRemote(remote, strategy))
	}

	return oracle.New(s.log, opts...), nil
}

func loadVocabularies() (*command.Set, error) {
	set, err := command.Load(os.Getenv("VOCABULARY_FILE"))
	if err != nil {
		return nil, fmt.Errorf("failed to load vocabularies: %w", err)
	}
	return set, nil
}

func (s *Server) mount() {
	s.engine.Use(s.middleware.NewRequestIDMiddleware())
	s.engine.Use(middleware.LoggerConfig())

	router := s.engine.Group("/api")
	for _, h := range s.handlers {
		h.Start(router)
	}
}

func (s *Server) Run() error {
	s.mount()

	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "5000"
	}

	return s.engine.Listen(fmt.Sprintf(":%s", port))
}

// Shutdown closes live sessions first so their clients see a final state.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.sessions != nil {
		s.sessions.Shutdown()
	}

	var errs []error
	if err := s.engine.ShutdownWithContext(ctx); err != nil {
		errs = append(errs, err)
	}
	if s.geminiClient != nil {
		if err := s.geminiClient.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if s.redisServer != nil {
		if err := s.redisServer.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := s.db.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (s *Server) setupHealthCheck(strategy oracle.Strategy) {
	s.engine.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.JSON(fiber.Map{
			"message":  "Server is Healthy!",
			"strategy": strategy.Mode,
		})
	})
}
