package config

import (
	"HotelClaimBot/database/postgres"
	hotelHandler "HotelClaimBot/internal/api/hotel/handler"
	hotelRepository "HotelClaimBot/internal/api/hotel/repository"
	hotelService "HotelClaimBot/internal/api/hotel/service"
	"HotelClaimBot/internal/middleware"
	"HotelClaimBot/pkg/events"
	"HotelClaimBot/pkg/fuzzy"
	"HotelClaimBot/pkg/google"
	"HotelClaimBot/pkg/redis"
	"HotelClaimBot/pkg/whatsapp"
	"context"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
)

type ServerOption func(*Server) error

type Server struct {
	engine         *fiber.App
	db             *sqlx.DB
	log            *logrus.Logger
	middleware     middleware.Middleware
	validator      *validator.Validate
	bot            *BotConfig
	handlers       []handler
	redisServer    redis.IRedis
	recordStore    hotelRepository.RecordStore
	sessionStore   hotelRepository.SessionStore
	eventBus       *events.Bus
	whatsappClient whatsapp.IWhatsappClient
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
	if server.bot == nil {
		return nil, fmt.Errorf("bot config is required")
	}
	if server.recordStore == nil || server.sessionStore == nil {
		return nil, fmt.Errorf("record and session stores are required")
	}
	if server.middleware == nil {
		server.middleware = middleware.New(server.log)
	}
	if server.validator == nil {
		server.validator = NewValidator()
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

func WithBotConfig(cfg *BotConfig) ServerOption {
	return func(s *Server) error {
		s.bot = cfg
		return nil
	}
}

func WithDatabase() ServerOption {
	return func(s *Server) error {
		db, err := postgres.New()
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

func WithEventBus() ServerOption {
	return func(s *Server) error {
		if s.log == nil {
			return fmt.Errorf("logger must be initialized before event bus")
		}
		s.eventBus = events.New(s.log)
		return nil
	}
}

// WithRecordStore builds the configured hotel list backend behind a short
// lived read cache.
func WithRecordStore(ctx context.Context) ServerOption {
	return func(s *Server) error {
		if s.bot == nil || s.log == nil {
			return fmt.Errorf("logger and bot config must be initialized before record store")
		}

		var store hotelRepository.RecordStore
		switch s.bot.RecordBackend {
		case BackendPostgres:
			if s.db == nil {
				return fmt.Errorf("postgres record backend requires a database connection")
			}
			if err := hotelRepository.EnsureSchema(ctx, s.db); err != nil {
				return fmt.Errorf("failed to prepare hotel table: %w", err)
			}
			store = hotelRepository.NewPostgresStore(s.db, s.log)
		default:
			raw, err := google.CredentialsJSON(s.bot.ServiceAccountJSON)
			if err != nil {
				return err
			}
			svc, err := google.NewSheetsService(ctx, raw)
			if err != nil {
				s.log.Errorf("Failed to create Google Sheets client: %v", err)
				return err
			}
			store = hotelRepository.NewSheetsStore(svc, s.bot.SpreadsheetID, s.bot.SheetName, s.log)
		}

		s.recordStore = hotelRepository.NewCachedStore(store, s.bot.RecordCacheTTL, s.log)
		return nil
	}
}

func WithSessionStore() ServerOption {
	return func(s *Server) error {
		if s.bot == nil {
			return fmt.Errorf("bot config must be initialized before session store")
		}

		switch s.bot.SessionBackend {
		case BackendRedis:
			if s.redisServer == nil {
				return fmt.Errorf("redis session backend requires a redis server")
			}
			s.sessionStore = hotelRepository.NewRedisSessionStore(s.redisServer, s.bot.SessionWindow, time.Now, s.log)
		default:
			s.sessionStore = hotelRepository.NewMemorySessionStore(s.bot.SessionWindow, time.Now)
		}
		return nil
	}
}

func WithWhatsappClient(ctx context.Context) ServerOption {
	return func(s *Server) error {
		client, err := whatsapp.New(ctx, postgres.FormatDSN(), s.log)
		if err != nil {
			if s.log != nil {
				s.log.Errorf("Failed to initialize WhatsApp client: %v", err)
			}
			return fmt.Errorf("failed to create WhatsApp client: %w", err)
		}
		s.whatsappClient = client
		return nil
	}
}

func (s *Server) RegisterHandler(ctx context.Context) error {
	// Hotel Domain
	var publisher events.IPublisher
	if s.eventBus != nil {
		publisher = s.eventBus
	}

	matcher := fuzzy.New(s.bot.Matcher)
	hotelServices := hotelService.NewHotelService(
		s.log,
		s.recordStore,
		s.sessionStore,
		matcher,
		publisher,
		&hotelService.HotelConfig{
			Questions:    s.bot.Questions,
			StoreTimeout: s.bot.StoreTimeout,
		},
		time.Now,
	)
	hotelHandlers := hotelHandler.New(s.log, s.validator, s.middleware, hotelServices)

	if s.whatsappClient != nil {
		dispatcher := hotelHandler.NewWhatsAppDispatcher(s.log, hotelServices, s.whatsappClient, s.bot.SessionWindow)
		s.whatsappClient.OnMessage(dispatcher.HandleIncoming)
	}

	if s.eventBus != nil {
		if err := s.eventBus.Subscribe(ctx, events.TopicHotelAppended, hotelHandler.NewAuditHandler(s.log)); err != nil {
			return fmt.Errorf("failed to subscribe audit handler: %w", err)
		}
		if s.whatsappClient != nil && s.bot.NotifyPhone != "" {
			notify := hotelHandler.NewNotifyHandler(s.whatsappClient, s.bot.NotifyPhone)
			if err := s.eventBus.Subscribe(ctx, events.TopicHotelAppended, notify); err != nil {
				return fmt.Errorf("failed to subscribe notify handler: %w", err)
			}
		}
	}

	s.setupHealthCheck()
	s.handlers = append(s.handlers, hotelHandlers)
	return nil
}

func (s *Server) Run() error {
	s.mount()

	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "3000"
	}

	if err := s.engine.Listen(fmt.Sprintf(":%s", port)); err != nil {
		s.Shutdown()
		return err
	}

	return nil
}

func (s *Server) mount() {
	s.engine.Use(s.middleware.NewRequestIDMiddleware())
	s.engine.Use(s.middleware.NewLoggingMiddleware())
	router := s.engine.Group("/api/v1")

	for _, h := range s.handlers {
		h.Start(router)
	}
}

// Shutdown stops the listener and releases the chat and broker connections.
func (s *Server) Shutdown() {
	if err := s.engine.ShutdownWithTimeout(10 * time.Second); err != nil {
		s.log.Errorf("Failed to shut down http server: %v", err)
	}
	if s.whatsappClient != nil {
		s.whatsappClient.Disconnect()
	}
	if s.eventBus != nil {
		if err := s.eventBus.Close(); err != nil {
			s.log.Errorf("Failed to close event bus: %v", err)
		}
	}
	if s.db != nil {
		s.db.Close()
	}
}

func (s *Server) setupHealthCheck() {
	s.engine.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.JSON(fiber.Map{
			"message": "Server is Healthy!",
		})
	})
}
