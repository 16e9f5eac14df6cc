package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chat-relay/internal"
	"chat-relay/moderation"
	"chat-relay/observability"
	"chat-relay/relay"
	"chat-relay/repositories"
	"chat-relay/runtime/workers"
	"chat-relay/services"
	"chat-relay/transport"

	"github.com/Netflix/go-env"
	"github.com/blugelabs/bluge"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run initializes all components, manages the server lifecycle, and centralizes error reporting.
// This pattern is preferred over calling os.Exit or panic directly because:
// 1. It ensures all 'defer' statements (like database cleanup) are executed before the program exits.
// 2. It improves testability by decoupling the initialization logic from the main entry point.
// 3. It provides a structured way to handle graceful shutdowns for the server and background workers.
func run() error {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Database (BadgerDB)
	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
		WithLoggingLevel(badger.WARNING))
	if err != nil {
		return fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	// 3. Search index (bluge)
	writer, err := bluge.OpenWriter(bluge.DefaultConfig(config.BlugeFilepath))
	if err != nil {
		return fmt.Errorf("search index opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing search index...")
		_ = writer.Close()
	}()

	// 4. Moderation
	censoredChar, err := internal.CharacterRune(config.CharReplacement)
	if err != nil {
		return err
	}
	words, err := moderation.LoadDefaultWords()
	if err != nil {
		return fmt.Errorf("censored word lists: %w", err)
	}
	moderator, err := moderation.NewModerator(words, censoredChar, log)
	if err != nil {
		return fmt.Errorf("moderation setup failed: %w", err)
	}

	// 5. Relay core
	monitoring := observability.NewMonitoringManager()
	messages := repositories.NewMessageRepository(db, log, config.LimitMessages)
	conversations := repositories.NewConversationRepository(db, log)
	users := repositories.NewUserRepository(db)
	search := repositories.NewSearchIndex(writer, log)

	broker := relay.NewRoomBroker(log, monitoring)
	typing := relay.NewTypingCoordinator(log, broker, config.TypingWindow, monitoring)
	registry := relay.NewSessionRegistry(log, broker, typing, monitoring)
	pipeline := relay.NewPipeline(log, messages, conversations, users, search,
		broker, &moderator, monitoring)

	// 6. Services & transport
	authService := services.NewAuthService(log, users, search, config.AuthTokenDuration)
	chatService := services.NewChatService(log, conversations, registry, broker)
	handlers := transport.NewHTTPHandlers(log, authService, chatService, pipeline, search, monitoring)
	gateway := transport.NewWSGateway(log, registry, broker, typing, pipeline,
		conversations, config.ConnectionBufferSize)
	app := transport.NewApp(handlers, gateway)

	// 7. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 8. Background workers
	sup := workers.NewSupervisor(log)
	sup.Add(workers.NewTelemetryWorker(log, monitoring, config.MetricInterval))
	go sup.Run(ctx)

	if config.DebugPort > 0 {
		internal.StartDebugServer(db, config.DebugPort, internal.MessageKeyMapper, func() map[string]any {
			stats := monitoring.GetLatest()
			return map[string]any{
				"open_connections": stats.OpenConnections,
				"broadcasts":       stats.Broadcasts,
				"persisted":        stats.MessagesPersisted,
			}
		})
		log.Info("Debug inspector started", "port", config.DebugPort)
	}

	// 9. HTTP & websocket server
	address := fmt.Sprintf("%s:%d", config.Host, config.Port)
	errChan := make(chan error, 1)
	go func() {
		log.Info("Starting server", "address", address, "at", time.Now().UTC())
		if err := app.Listen(address); err != nil {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	// 10. Wait for Stop or Error
	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
	case err := <-errChan:
		return err
	}

	// 11. Final Cleanup
	if err := app.ShutdownWithTimeout(5 * time.Second); err != nil {
		log.Warn("Server shutdown incomplete", "error", err)
	}
	sup.Stop()
	log.Info("Program stopped cleanly")

	return nil
}
