package main

import (
	"HotelClaimBot/internal/config"
	"HotelClaimBot/pkg/log"
	"HotelClaimBot/pkg/redis"
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		panic(err)
	}
	logger := log.NewLogger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	bot, err := config.LoadBotConfig()
	if err != nil {
		logger.Fatalf("Invalid configuration: %v", err)
	}

	fiberApp := config.NewFiber(logger)
	validator := config.NewValidator()

	options := []config.ServerOption{
		config.WithFiber(fiberApp),
		config.WithLogger(logger),
		config.WithValidator(validator),
		config.WithBotConfig(bot),
		config.WithMiddleware(),
		config.WithEventBus(),
	}
	if bot.RecordBackend == config.BackendPostgres {
		options = append(options, config.WithDatabase())
	}
	if bot.SessionBackend == config.BackendRedis {
		options = append(options, config.WithRedisServer(redis.New()))
	}
	options = append(options, config.WithRecordStore(ctx), config.WithSessionStore())
	if bot.WhatsAppEnabled {
		options = append(options, config.WithWhatsappClient(ctx))
	}

	server, err := config.NewServer(options...)
	if err != nil {
		logger.Fatal(err)
	}

	if err := server.RegisterHandler(ctx); err != nil {
		logger.Fatal(err)
	}

	go func() {
		if err := server.Run(); err != nil {
			logger.Fatalf("Error starting server: %v", err)
		}
	}()

	logger.Info("Server started successfully")

	<-ctx.Done()
	logger.Info("Shutting down server...")
	server.Shutdown()
}
