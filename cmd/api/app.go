package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/ewilliams-labs/emotune/internal/adapters/camera"
	"github.com/ewilliams-labs/emotune/internal/adapters/detector"
	"github.com/ewilliams-labs/emotune/internal/adapters/mqtt"
	"github.com/ewilliams-labs/emotune/internal/adapters/redis"
	"github.com/ewilliams-labs/emotune/internal/adapters/spotify"
	"github.com/ewilliams-labs/emotune/internal/adapters/sqlite"
	"github.com/ewilliams-labs/emotune/internal/config"
	"github.com/ewilliams-labs/emotune/internal/core/ports"
	"github.com/ewilliams-labs/emotune/internal/core/services"
	"github.com/ewilliams-labs/emotune/internal/worker"
)

// app is the fully wired process.
type app struct {
	engine *services.Engine
	tracks ports.TrackRepository
	pool   *worker.Pool

	closers []func() error
	logger  *zap.Logger
}

func newMusicClient(cfg config.Config, log *zap.Logger) *spotify.Client {
	return spotify.NewClient(spotify.Config{
		ClientID:     cfg.SpotifyClientID,
		ClientSecret: cfg.SpotifyClientSecret,
		RedirectURL:  cfg.SpotifyRedirectURI,
		APIURL:       cfg.SpotifyAPIURL,
		AccountsURL:  cfg.SpotifyAccountsURL,
		Market:       cfg.SpotifyMarket,
		MaxRetries:   cfg.SpotifyMaxRetries,
		RetryBackoff: cfg.SpotifyRetryBackoff,
		Logger:       log,
	})
}

// openTokenStore returns the configured token store and its closer.
func openTokenStore(ctx context.Context, cfg config.Config) (ports.TokenStore, func() error, error) {
	switch cfg.StorageDriver {
	case config.DriverRedis:
		store, err := redis.Connect(ctx, redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Key:      cfg.TokenKey,
			TTL:      cfg.TokenTTL,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		return store, store.Close, nil
	case config.DriverSQLite:
		db, err := sqlite.NewAdapter(cfg.SQLitePath, cfg.TokenKey)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		return db, db.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage driver: %s", cfg.StorageDriver)
	}
}

// buildApp wires adapters into the core services. The track cache always
// lives in SQLite; STORAGE_DRIVER only picks where the token is kept.
func buildApp(ctx context.Context, cfg config.Config, log *zap.Logger) (*app, error) {
	a := &app{logger: log}

	// 1. Driven adapters
	db, err := sqlite.NewAdapter(cfg.SQLitePath, cfg.TokenKey)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	a.closers = append(a.closers, db.Close)
	a.tracks = db

	var tokens ports.TokenStore = db
	if cfg.StorageDriver != config.DriverSQLite {
		store, closeStore, err := openTokenStore(ctx, cfg)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.closers = append(a.closers, closeStore)
		tokens = store
	}

	music := newMusicClient(cfg, log)

	// 2. Background preview analysis
	a.pool = worker.NewPool(db, cfg.WorkerQueue, log)
	a.pool.Start(cfg.WorkerCount)

	// 3. Core services
	errs := &services.ErrorSlot{}
	auth := services.NewAuth(music, tokens, cfg.SpotifyClientID, errs, log)
	orch := services.NewOrchestrator(music, auth, db, a.pool, errs, log)
	a.engine = services.NewEngine(auth, orch, errs, log, services.WithAutoPlay(cfg.AutoPlay))

	// 4. Detection pipeline
	if cfg.DetectorURL != "" {
		httpClient := &http.Client{Timeout: 10 * time.Second}
		frames := camera.NewSnapshot(httpClient, cfg.CameraSnapshotURL, log)
		classifier := detector.NewClient(httpClient, cfg.DetectorURL, log)
		a.engine.AttachSampler(services.NewSampler(frames, classifier, cfg.SampleInterval, nil, log))
	} else {
		log.Info("DETECTOR_URL is not set; only manual emotion selection is available")
	}

	// 5. Optional mood events
	if cfg.MQTTBroker != "" {
		pub, err := mqtt.Connect(ctx, mqtt.Options{
			Broker:   cfg.MQTTBroker,
			ClientID: cfg.MQTTClientID,
			Topic:    cfg.MQTTTopic,
			QoS:      cfg.MQTTQoS,
		}, log)
		if err != nil {
			a.Close()
			return nil, err
		}
		unsubscribe := a.engine.Subscribe(pub.OnSnapshot)
		a.closers = append(a.closers, func() error {
			unsubscribe()
			return pub.Close()
		})
	}

	return a, nil
}

// Close stops background work, then releases storage in reverse order.
func (a *app) Close() {
	if a.engine != nil {
		a.engine.Close()
	}
	if a.pool != nil {
		a.pool.Stop()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("close failed", zap.Error(err))
		}
	}
}
