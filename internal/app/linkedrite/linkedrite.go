// Package linkedrite собирает основное приложение: хранилище, кеш,
// брокер, сервисы и HTTP-сервер.
package linkedrite

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/robfig/cron/v3"
	"github.com/streadway/amqp"

	"github.com/linkedrite/linkedrite/internal/cache"
	"github.com/linkedrite/linkedrite/internal/completion"
	"github.com/linkedrite/linkedrite/internal/config"
	"github.com/linkedrite/linkedrite/internal/lib/jwt"
	"github.com/linkedrite/linkedrite/internal/lib/password"
	"github.com/linkedrite/linkedrite/internal/lib/sl"
	"github.com/linkedrite/linkedrite/internal/migrations"
	"github.com/linkedrite/linkedrite/internal/rabbitmq"
	authservice "github.com/linkedrite/linkedrite/internal/services/auth"
	notifierservice "github.com/linkedrite/linkedrite/internal/services/notifier"
	rewriteservice "github.com/linkedrite/linkedrite/internal/services/rewrite"
	subscriptionservice "github.com/linkedrite/linkedrite/internal/services/subscription"
	usageservice "github.com/linkedrite/linkedrite/internal/services/usage"
	"github.com/linkedrite/linkedrite/internal/storage"
)

const (
	rabbitMQMaxRetries = 5
	rabbitMQRetryDelay = 2 * time.Second
)

// App — основное приложение с HTTP-сервером и фоновым расписанием.
type App struct {
	server *http.Server
	logger *slog.Logger
	db     *storage.Storage
	conn   *amqp.Connection
	ch     *amqp.Channel
	cron   *cron.Cron
}

// New инициализирует все зависимости и возвращает готовое приложение.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := storage.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, err
	}
	if err = migrations.Run(db.DB, "./migrations"); err != nil {
		return nil, err
	}

	if err = ensureAdmin(ctx, db, cfg, logger); err != nil {
		return nil, err
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		return nil, err
	}

	conn, err := rabbitmq.Connect(cfg.RabbitMQURL, rabbitMQMaxRetries, rabbitMQRetryDelay)
	if err != nil {
		return nil, err
	}
	ch, err := rabbitmq.SetupChannel(conn)
	if err != nil {
		conn.Close()
		return nil, err
	}

	jwtMaker := jwt.NewJWTMaker(cfg.JWTSecretKey, cfg.TokenTTL)
	notifier := notifierservice.New(ch, logger)

	subscriptionService := subscriptionservice.New(db, cacheRedis, logger,
		cfg.FreeDailyLimit, cfg.GatePremiumOnActive)
	usageService := usageservice.New(db, subscriptionService, logger)
	authService := authservice.New(db, db, subscriptionService, notifier, jwtMaker, logger, cfg.AppDomain)
	rewriteService := rewriteservice.New(completion.New(cfg.Completion), usageService, logger)

	scheduler := cron.New()
	// Ежедневная чистка просроченных одноразовых токенов.
	_, err = scheduler.AddFunc("0 3 * * *", func() {
		purgeCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		n, err := db.PurgeExpiredTokens(purgeCtx, time.Now().UTC())
		if err != nil {
			logger.Error("failed to purge expired tokens", sl.Err(err))
			return
		}
		logger.Info("expired tokens purged", slog.Int("count", n))
	})
	if err != nil {
		return nil, err
	}

	router := chi.NewRouter()
	RegisterRoutes(router, logger, cfg, jwtMaker, db,
		authService, subscriptionService, usageService, rewriteService)

	srv := &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &App{
		server: srv,
		logger: logger,
		db:     db,
		conn:   conn,
		ch:     ch,
		cron:   scheduler,
	}, nil
}

// Run запускает HTTP-сервер и расписание, блокируется до отмены
// контекста и завершает всё корректно.
func (a *App) Run(ctx context.Context) error {
	a.cron.Start()

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		<-a.cron.Stop().Done()
		if cerr := a.ch.Close(); cerr != nil {
			a.logger.Error("failed to close channel", sl.Err(cerr))
		}
		if cerr := a.conn.Close(); cerr != nil {
			a.logger.Error("failed to close connection", sl.Err(cerr))
		}
		a.db.DB.Close()
		return err
	}
}

// ensureAdmin создаёт или обновляет учётную запись администратора.
// Операция идемпотентна: повторный запуск с теми же данными ничего
// не меняет.
func ensureAdmin(ctx context.Context, db *storage.Storage, cfg *config.Config, logger *slog.Logger) error {
	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		logger.Warn("admin credentials are not configured, skipping bootstrap")
		return nil
	}
	hash, err := password.GetHash(cfg.AdminPassword)
	if err != nil {
		return err
	}
	if err := db.EnsureAdmin(ctx, cfg.AdminEmail, hash); err != nil {
		return err
	}
	logger.Info("admin account ensured", slog.String("email", cfg.AdminEmail))
	return nil
}
