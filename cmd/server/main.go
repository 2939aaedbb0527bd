// Command server runs the newsletter subscription service.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/redis/go-redis/v9"

	"github.com/ignite/newsletter/internal/api"
	"github.com/ignite/newsletter/internal/config"
	"github.com/ignite/newsletter/internal/domain"
	"github.com/ignite/newsletter/internal/email"
	"github.com/ignite/newsletter/internal/newsletter"
	"github.com/ignite/newsletter/internal/pkg/distlock"
	"github.com/ignite/newsletter/internal/pkg/logger"
	"github.com/ignite/newsletter/internal/store"
	"github.com/ignite/newsletter/internal/subscription"
)

// checkPortAvailable verifies that the target port is not already in use.
func checkPortAvailable(host string, port int) error {
	addr := fmt.Sprintf("%s:%d", host, port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("port %d is already in use (addr %s): %v", port, addr, err)
	}
	ln.Close()
	return nil
}

func buildSender(ctx context.Context, cfg *config.Config, senderAddr domain.SubscriberEmail) (email.Sender, error) {
	switch cfg.Email.Provider {
	case config.ProviderSES:
		return email.NewSESSender(ctx, cfg.Email.SES, senderAddr, cfg.Email.Timeout())
	default:
		return email.NewClient(cfg.Email.Postmark.BaseURL, senderAddr, cfg.Email.Postmark.ServerToken, cfg.Email.Timeout())
	}
}

func main() {
	configPath := "config/config.yaml"
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}

	cfg, err := config.LoadFromEnv(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger.Init(logger.ParseLevel(cfg.Log.Level), !cfg.Log.DisablePIIRedaction)

	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}
	logger.Info("connected to database")

	// Redis is optional; without it the dispatch lock falls back to
	// Postgres advisory locks.
	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			logger.Warn("redis unreachable, dispatch lock falls back to Postgres", "err", err.Error())
			redisClient = nil
		}
	}

	senderAddr, err := domain.ParseEmail(cfg.Email.Sender)
	if err != nil {
		log.Fatalf("Invalid sender address %q: %v", cfg.Email.Sender, err)
	}
	sender, err := buildSender(context.Background(), cfg, senderAddr)
	if err != nil {
		log.Fatalf("Failed to build email sender: %v", err)
	}

	var storeOpts []store.Option
	if ttl := cfg.Subscription.TokenTTL(); ttl > 0 {
		storeOpts = append(storeOpts, store.WithTokenTTL(ttl))
	}
	st := store.NewStore(db, storeOpts...)

	subscriptions := subscription.NewService(st, sender, cfg.Server.BaseURL)
	dispatcher := newsletter.NewDispatcher(st, sender,
		func() distlock.DistLock {
			return distlock.NewLock(redisClient, db, newsletter.LockKey, 10*time.Minute)
		},
		newsletter.NewMetrics(),
	)

	server := api.NewServer(api.NewHandlers(subscriptions, dispatcher))

	host := cfg.Server.GetHost()
	if err := checkPortAvailable(host, cfg.Server.Port); err != nil {
		log.Fatalf("Preflight failed: %v", err)
	}
	addr := fmt.Sprintf("%s:%d", host, cfg.Server.Port)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", addr, "email_provider", string(cfg.Email.Provider))
		errCh <- server.ListenAndServe(addr)
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-stop:
		logger.Info("shutting down", "signal", sig.String())
	case err := <-errCh:
		logger.Error("server stopped unexpectedly", "err", err.Error())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "err", err.Error())
	}
	if err := logger.Shutdown(shutdownCtx); err != nil {
		log.Printf("log flush incomplete: %v", err)
	}
}
