package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"gorm.io/gorm"

	"costbook/internal/catalog"
	"costbook/internal/config"
	"costbook/internal/db"
	"costbook/internal/db/mock"
	"costbook/internal/events"
	applog "costbook/internal/log"
	"costbook/internal/prefs"
	"costbook/internal/server"
	"costbook/internal/units"
)

type serverLifecycle interface {
	Start() error
	Stop() error
}

var (
	loadConfigFunc      = config.Load
	setLogLevelFunc     = applog.SetLevel
	newMockDatabaseFunc = mock.New
	configureDatabase   = db.Configure
	dialPublisherFunc   = func(ctx context.Context, cfg config.RedisConfig) (events.Publisher, func() error, error) {
		publisher, err := events.DialRedis(ctx, cfg.URL, cfg.Channel)
		if err != nil {
			return nil, nil, err
		}
		return publisher, publisher.Close, nil
	}
	newServerFunc = func(cfg server.Config) (serverLifecycle, error) {
		return server.New(cfg)
	}
	subscribeShutdownSig = func() (<-chan os.Signal, func()) {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, syscall.SIGTERM, syscall.SIGINT)
		return ch, func() { signal.Stop(ch) }
	}
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		applog.Warn(context.Background(), "failed to load .env file", "error", err)
	}
	os.Exit(run(context.Background()))
}

func run(ctx context.Context) int {
	cfg, err := loadConfigFunc()
	if err != nil {
		applog.Error(ctx, "failed to load configuration", "error", err)
		return 1
	}
	if err := setLogLevelFunc(cfg.Logging.Level); err != nil {
		applog.Error(ctx, "invalid log level", "level", cfg.Logging.Level, "error", err)
		return 1
	}

	var database *gorm.DB
	if cfg.Database.UseMock {
		applog.Info(ctx, "using in-memory mock database")
		database, err = newMockDatabaseFunc(ctx)
	} else {
		database, err = configureDatabase(cfg.Database)
	}
	if err != nil {
		applog.Error(ctx, "failed to configure database", "error", err)
		return 1
	}

	var publisher events.Publisher = events.Nop{}
	if cfg.Redis.URL != "" {
		redisPublisher, closePublisher, err := dialPublisherFunc(ctx, cfg.Redis)
		if err != nil {
			applog.Error(ctx, "failed to connect cost change publisher", "error", err)
			return 1
		}
		defer func() {
			if err := closePublisher(); err != nil {
				applog.Warn(ctx, "failed to close cost change publisher", "error", err)
			}
		}()
		publisher = redisPublisher
		applog.Info(ctx, "publishing cost changes", "channel", cfg.Redis.Channel)
	}

	fallback := units.ParseSystem(cfg.Preferences.DefaultUnitSystem)
	srv, err := newServerFunc(server.Config{
		Addr: cfg.Server.Addr,
		Session: server.SessionConfig{
			Lifetime:     cfg.Auth.Session.Lifetime,
			CookieName:   cfg.Auth.Session.CookieName,
			CookieDomain: cfg.Auth.Session.CookieDomain,
			CookieSecure: cfg.Auth.Session.CookieSecure,
		},
		Catalog:     catalog.New(database, publisher),
		Preferences: prefs.NewCached(prefs.NewStore(database, fallback), cfg.Preferences.CacheTTL),
	})
	if err != nil {
		applog.Error(ctx, "failed to build server", "error", err)
		return 1
	}

	signals, unsubscribe := subscribeShutdownSig()
	defer unsubscribe()

	errCh := make(chan error, 1)
	go func() {
		applog.Info(ctx, "starting http server", "addr", cfg.Server.Addr)
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			applog.Error(ctx, "server encountered an error", "error", err)
			return 1
		}
		return 0
	case sig := <-signals:
		applog.Info(ctx, "shutting down http server", "signal", sig.String())
	case <-ctx.Done():
		applog.Info(ctx, "context cancelled, shutting down http server")
	}

	if err := srv.Stop(); err != nil {
		applog.Error(ctx, "graceful shutdown failed", "error", err)
		return 1
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		applog.Error(ctx, "server stopped with error", "error", err)
		return 1
	}
	return 0
}
