package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/clipdesk/clipdesk-agent/internal/api"
	"github.com/clipdesk/clipdesk-agent/internal/chat"
	"github.com/clipdesk/clipdesk-agent/internal/config"
	"github.com/clipdesk/clipdesk-agent/internal/db"
	"github.com/clipdesk/clipdesk-agent/internal/handoff"
	"github.com/clipdesk/clipdesk-agent/internal/history"
	"github.com/clipdesk/clipdesk-agent/internal/logging"
	"github.com/clipdesk/clipdesk-agent/internal/preview"
	"github.com/clipdesk/clipdesk-agent/internal/probe"
	"github.com/clipdesk/clipdesk-agent/internal/remote"
	"github.com/clipdesk/clipdesk-agent/internal/store"
	"github.com/clipdesk/clipdesk-agent/internal/ui"
	"github.com/clipdesk/clipdesk-agent/internal/watcher"
	"github.com/clipdesk/clipdesk-agent/internal/workflow"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("fatal error: %v", err)
	}
}

func run() error {
	startTime := time.Now()

	cfg, err := config.New()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := os.MkdirAll(cfg.DataDir(), 0755); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}
	if err := os.MkdirAll(cfg.ExportDir(), 0755); err != nil {
		return fmt.Errorf("failed to create export dir: %w", err)
	}

	logger := logging.NewLogger(cfg.LogLevel())
	logger.Info("starting clipdesk agent", "version", config.Version, "data_dir", cfg.DataDir())

	database, err := db.New(cfg.DBPath(), logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer database.Close()

	settings := store.NewSQLiteConfig(database.Conn())

	deviceID, err := ensureSecret(settings, "device_id", 16)
	if err != nil {
		return fmt.Errorf("failed to ensure device ID: %w", err)
	}
	authToken, err := ensureSecret(settings, api.AuthTokenKey, 32)
	if err != nil {
		return fmt.Errorf("failed to ensure auth token: %w", err)
	}

	fmt.Println()
	fmt.Println("╔═══════════════════════════════════════════════════════════════════════════╗")
	fmt.Printf("║  CLIPDESK AGENT v%-56s ║\n", config.Version)
	fmt.Println("╠═══════════════════════════════════════════════════════════════════════════╣")
	fmt.Printf("║  API URL:    http://127.0.0.1:%-43d ║\n", cfg.Port())
	fmt.Printf("║  Auth Token: %-60s ║\n", authToken)
	fmt.Printf("║  Device ID:  %-60s ║\n", deviceID[:16]+"...")
	fmt.Println("╚═══════════════════════════════════════════════════════════════════════════╝")
	fmt.Println()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sessionKV, closeKV, err := openSessionStore(ctx, cfg, database, logger)
	if err != nil {
		return err
	}
	defer closeKV()

	client := newRemoteClient(cfg, logger)

	var prober probe.Prober = probe.Unavailable{}
	if ff, err := probe.NewFFprobe(cfg.FFprobePath(), 0, logger); err != nil {
		logger.Warn("ffprobe unavailable, durations will not be shown", "error", err)
	} else {
		prober = ff
	}

	previews := preview.NewRegistry(logger)
	trims := history.NewRepository(database.Conn())
	hand := handoff.New(sessionKV, cfg.HandoffKey(), logger)

	session := workflow.NewSession(workflow.Options{
		Media:    client,
		Handoff:  hand,
		Previews: previews,
		Prober:   prober,
		Watcher:  watcher.NewFileWatcher(logger),
		History:  trims,
		Logger:   logger,
	})
	defer session.Close()

	apiServer := api.NewServer(api.ServerConfig{
		Port:      cfg.Port(),
		Session:   session,
		Previews:  previews,
		Handoff:   hand,
		History:   trims,
		Chat:      chat.NewService(client, logging.WithComponent(logger, "chat")),
		Tokens:    settings,
		ExportDir: cfg.ExportDir(),
		RateLimit: cfg.RateLimit(),
		Logger:    logger,
		StartTime: startTime,
		DeviceID:  deviceID,
	})

	ctx, quit := context.WithCancel(ctx)
	defer quit()

	if cfg.Headless() {
		logger.Info("running in headless mode (no system tray)")
	} else {
		tray := ui.NewTray(ui.TrayConfig{
			Session: session,
			Logger:  logger,
			OnOpen: func() error {
				logger.Info("workspace available", "url", fmt.Sprintf("http://127.0.0.1:%d/session", cfg.Port()))
				return nil
			},
			OnQuit: quit,
		})
		go tray.Run()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(apiServer.Start)
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("initiating graceful shutdown")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := apiServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("failed to shutdown HTTP server", "error", err)
		}
		return nil
	})

	err = g.Wait()
	logger.Info("shutdown complete")
	return err
}

// openSessionStore picks the backend holding the trim handoff.
func openSessionStore(ctx context.Context, cfg config.Config, database *db.DB, logger *slog.Logger) (store.KV, func(), error) {
	switch cfg.SessionStore() {
	case config.StoreMemory:
		return store.NewMemory(), func() {}, nil
	case config.StoreRedis:
		r, err := store.NewRedis(ctx, store.RedisConfig{
			Addr:     cfg.RedisAddr(),
			Password: cfg.RedisPassword(),
			DB:       cfg.RedisDB(),
			Prefix:   cfg.RedisPrefix(),
			TTL:      cfg.RedisTTL(),
		}, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open session store: %w", err)
		}
		return r, func() { r.Close() }, nil
	case config.StoreSQLite, "":
		return store.NewSQLiteSession(database.Conn()), func() {}, nil
	default:
		return nil, nil, errors.New("unknown session store " + cfg.SessionStore())
	}
}

func newRemoteClient(cfg config.Config, logger *slog.Logger) remote.Client {
	if cfg.RemoteBaseURL() == "" {
		logger.Warn("no remote media service configured, using local stub")
		return remote.NewStubClient(logger)
	}
	logger.Info("remote media service configured", "base_url", cfg.RemoteBaseURL())
	return remote.NewHTTPClient(cfg.RemoteBaseURL(), cfg.RemoteToken(), cfg.RemoteTimeout(), logger)
}

// ensureSecret returns the stored value for key, creating a random hex
// value of n bytes on first run.
func ensureSecret(kv store.KV, key string, n int) (string, error) {
	ctx := context.Background()

	existing, ok, err := kv.Get(ctx, key)
	if err == nil && ok && existing != "" {
		return existing, nil
	}

	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	value := hex.EncodeToString(buf)

	if err := kv.Set(ctx, key, value); err != nil {
		return "", err
	}
	return value, nil
}
