// Package server wires the lost-and-found components together: the Postgres
// repositories, the S3 asset store, Google sign-in with signed session
// cookies, the HTTP API and the optional gRPC health endpoint. It also
// handles graceful shutdown.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/dmitrijs2005/lostfound/internal/logging"
	"github.com/dmitrijs2005/lostfound/internal/server/assets"
	"github.com/dmitrijs2005/lostfound/internal/server/auth"
	"github.com/dmitrijs2005/lostfound/internal/server/config"
	"github.com/dmitrijs2005/lostfound/internal/server/httpapi"
	"github.com/dmitrijs2005/lostfound/internal/server/metrics"
	"github.com/dmitrijs2005/lostfound/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/lostfound/internal/server/services"

	gs "github.com/dmitrijs2005/lostfound/internal/server/grpc"
)

const (
	shutdownTimeout   = 10 * time.Second
	healthInterval    = 15 * time.Second
	certsFetchTimeout = 10 * time.Second
)

type App struct {
	config  *config.Config
	logger  logging.Logger
	db      *sql.DB
	redis   *redis.Client
	handler http.Handler
	health  *gs.HealthServer
}

// NewApp connects to the database, applies migrations and assembles the
// HTTP handler. Nothing listens until Run is called.
func NewApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {
	db, err := sql.Open("pgx", c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db migrations error: %w", err)
	}

	rdb, denylist, err := newDenylist(c.RedisURL)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	store, err := assets.NewS3Store(ctx, assets.S3Options{
		Region:        c.S3Region,
		AccessKey:     c.S3RootUser,
		SecretKey:     c.S3RootPassword,
		Endpoint:      c.S3BaseEndpoint,
		Bucket:        c.S3Bucket,
		PublicBaseURL: c.S3PublicBaseURL,
	})
	if err != nil {
		_ = db.Close()
		if rdb != nil {
			_ = rdb.Close()
		}
		return nil, fmt.Errorf("asset store init error: %w", err)
	}

	app := &App{config: c, logger: logger, db: db, redis: rdb}
	app.handler, err = app.buildHandler(ctx, rm, store, denylist, http.DefaultTransport)
	if err != nil {
		app.close(ctx)
		return nil, err
	}
	if c.GRPCHealthAddr != "" {
		app.health = gs.NewHealthServer(c.GRPCHealthAddr, logger, db, healthInterval)
	}

	logger.Info(ctx, "application initialised",
		"http_addr", c.HTTPAddr,
		"grpc_health_addr", c.GRPCHealthAddr,
		"denylist", rdb != nil,
		"items_require_auth", c.RequireAuthForItems,
	)
	return app, nil
}

// newDenylist returns a Redis-backed denylist when url is set and a no-op
// one otherwise. The client is returned so it can be closed on shutdown.
func newDenylist(url string) (*redis.Client, auth.Denylist, error) {
	if url == "" {
		return nil, auth.NopDenylist{}, nil
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, nil, fmt.Errorf("redis url: %w", err)
	}
	client := redis.NewClient(opts)
	return client, auth.NewRedisDenylist(client), nil
}

func (app *App) buildHandler(ctx context.Context, rm repomanager.RepositoryManager, store assets.ObjectStore,
	denylist auth.Denylist, certsTransport http.RoundTripper) (http.Handler, error) {
	c := app.config

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewDBStatsCollector(app.db, "lostfound"),
	)
	mtr := metrics.New(reg)

	verifier, err := auth.NewGoogleVerifier(ctx, c.GoogleClientID, c.GoogleCertsURL,
		&http.Client{Timeout: certsFetchTimeout, Transport: certsTransport}, app.logger)
	if err != nil {
		return nil, err
	}
	sessions := auth.NewSessionManager([]byte(c.SessionSecret), c.SessionTTL, c.Production)

	authSvc := services.NewAuthService(app.db, rm, verifier, sessions, denylist, app.logger, mtr)
	itemSvc := services.NewItemService(app.db, rm, assets.NewIngester(store, c.AssetNamespace), app.logger, mtr)

	h := httpapi.New(httpapi.Options{
		AllowedOrigins:      c.AllowedOrigins,
		RequestTimeout:      c.RequestTimeout,
		MaxUploadBytes:      c.MaxUploadBytes,
		RequireAuthForItems: c.RequireAuthForItems,
	}, authSvc, itemSvc, app.db, reg, app.logger, mtr)

	return h.Router(), nil
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

// Run serves until ctx is cancelled, a termination signal arrives or one of
// the servers fails. Connections are closed before it returns.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")
	app.initSignalHandler(cancelFunc)

	defer app.close(ctx)

	lis, err := net.Listen("tcp", app.config.HTTPAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", app.config.HTTPAddr, err)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return app.serveHTTP(ctx, lis)
	})
	if app.health != nil {
		g.Go(func() error {
			return app.health.Run(ctx)
		})
	}

	return g.Wait()
}

func (app *App) serveHTTP(ctx context.Context, lis net.Listener) error {
	srv := &http.Server{
		Handler:           app.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		app.logger.Info(ctx, "Starting HTTP server", "address", lis.Addr().String())
		errCh <- srv.Serve(lis)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	app.logger.Info(ctx, "Stopping HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}

func (app *App) close(ctx context.Context) {
	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			app.logger.Warn(ctx, "failed to close redis client", "error", err)
		}
	}
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Warn(ctx, "failed to close database", "error", err)
		}
	}
}
