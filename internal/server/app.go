// Package server wires configuration, storage, services and the HTTP API
// into a runnable application and handles graceful shutdown.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/gophtodo/internal/common"
	"github.com/dmitrijs2005/gophtodo/internal/logging"
	"github.com/dmitrijs2005/gophtodo/internal/server/auth"
	"github.com/dmitrijs2005/gophtodo/internal/server/config"
	"github.com/dmitrijs2005/gophtodo/internal/server/events"
	"github.com/dmitrijs2005/gophtodo/internal/server/httpapi"
	"github.com/dmitrijs2005/gophtodo/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophtodo/internal/server/services"
	"github.com/gin-gonic/gin"
)

type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB
	bus    events.Bus
	server *httpapi.HTTPServer
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {

	logger := logging.NewJSON(os.Stdout, !c.Production)

	if c.InsecureSecret {
		logger.Warn(ctx, "JWT_SECRET is not set, signing session tokens with the development key")
	}

	if c.Production {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := repomanager.Open(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	bus, err := newBus(ctx, c, logger)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	as := services.NewAuthService(db, rm,
		auth.NewPasswordHasher(c.BcryptCost),
		auth.NewTokenCodec([]byte(c.SecretKey), c.TokenLifetime),
		newCookieTransport(c),
		logger,
	)
	ts := services.NewTodoService(db, rm, as, bus, logger)

	srv := httpapi.NewHTTPServer(c.EndpointAddrHTTP, logger, as, ts, bus, c.AllowedOrigins())

	return &App{config: c, logger: logger, db: db, bus: bus, server: srv}, nil
}

// newCookieTransport keeps the cookie Max-Age at the fixed session lifetime
// regardless of the configured token lifetime.
func newCookieTransport(c *config.Config) *auth.CookieTransport {
	return auth.NewCookieTransport(common.DefaultSessionLifetime, c.Production)
}

// newBus picks the event transport: Redis when configured, otherwise an
// in-process hub.
func newBus(ctx context.Context, c *config.Config, logger logging.Logger) (events.Bus, error) {
	if c.RedisURL == "" {
		return events.NewHub(events.DefaultBuffer), nil
	}

	client, err := events.DialRedis(ctx, c.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("event bus init error: %w", err)
	}
	logger.Info(ctx, "Using Redis for todo events")
	return events.NewRedisBus(client, logger), nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := app.server.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run serves until a termination signal arrives or ctx is cancelled, then
// releases the event bus and the database pool.
func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()

	if err := app.bus.Close(); err != nil {
		app.logger.Error(ctx, "error closing event bus", "error", err)
	}
	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "error closing database", "error", err)
	}

	app.logger.Info(ctx, "App stopped")
}
