package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"rideon-backend/internal/config"
	"rideon-backend/internal/db"
	"rideon-backend/internal/events"
	"rideon-backend/internal/logging"
	"rideon-backend/internal/server"

	"github.com/apex/log"
	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

var mainDepsProvider = defaultDeps
var mainRunner = realMain

func main() {
	mainRunner(mainDepsProvider())
}

type mainDeps struct {
	loadConfig      func() config.Config
	connectPostgres func(config.Config) (*pgxpool.Pool, error)
	connectRedis    func(config.Config) *redis.Client
	connectEvents   func(config.Config) (events.Publisher, error)
	ensureSchema    func(context.Context, db.Querier) error
	notify          func(chan<- os.Signal, ...os.Signal)
	run             func(context.Context, config.Config, *pgxpool.Pool, *redis.Client, events.Publisher, <-chan os.Signal, ListenFunc) error
}

func defaultDeps() mainDeps {
	return mainDeps{
		loadConfig:      config.Load,
		connectPostgres: db.ConnectPostgres,
		connectRedis:    db.ConnectRedis,
		connectEvents:   connectEvents,
		ensureSchema:    db.EnsureSchema,
		notify:          signal.Notify,
		run:             Run,
	}
}

func connectEvents(cfg config.Config) (events.Publisher, error) {
	if cfg.RabbitMQURL == "" {
		return events.Nop{}, nil
	}
	return events.NewRabbit(cfg.RabbitMQURL)
}

func realMain(deps mainDeps) {
	cfg := deps.loadConfig()
	logging.Setup(cfg)

	pg, err := deps.connectPostgres(cfg)
	if err != nil {
		log.WithError(err).Warn("postgres connection failed")
		pg = nil
	}
	if pg != nil {
		if err := deps.ensureSchema(context.Background(), pg); err != nil {
			log.WithError(err).Error("schema setup failed")
		}
	}

	rdb := deps.connectRedis(cfg)

	pub, err := deps.connectEvents(cfg)
	if err != nil {
		log.WithError(err).Warn("event broker unavailable, ride events disabled")
		pub = events.Nop{}
	}

	signals := make(chan os.Signal, 1)
	deps.notify(signals, syscall.SIGINT, syscall.SIGTERM)

	if err := deps.run(context.Background(), cfg, pg, rdb, pub, signals, nil); err != nil {
		log.WithError(err).Error("server exited with error")
	}
}

type ListenFunc func(app *fiber.App, addr string) error

var defaultListen ListenFunc = func(app *fiber.App, addr string) error {
	return app.Listen(addr)
}

var shutdownFn = func(app *fiber.App, ctx context.Context) error {
	return app.ShutdownWithContext(ctx)
}

// Run starts the HTTP server and waits for termination signals.
func Run(ctx context.Context, cfg config.Config, pg *pgxpool.Pool, rdb *redis.Client, pub events.Publisher, signals <-chan os.Signal, listen ListenFunc) error {
	srv := server.NewServer(cfg, pg, rdb, pub)

	if listen == nil {
		listen = defaultListen
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- listen(srv.App, cfg.ServerPort)
	}()

	select {
	case <-signals:
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := shutdownFn(srv.App, shutdownCtx); err != nil {
		return err
	}
	_ = srv.Stream.Close()
	if pg != nil {
		pg.Close()
	}
	if rdb != nil {
		_ = rdb.Close()
	}
	if closer, ok := pub.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			log.WithError(err).Warn("event broker close failed")
		}
	}
	log.Info("server stopped")
	return nil
}
