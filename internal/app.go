package internal

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/gorilla/mux"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
	process "github.com/s-larionov/process-manager"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/EngageMedia-video/featured-storage/internal/config"
	"github.com/EngageMedia-video/featured-storage/internal/media"
	"github.com/EngageMedia-video/featured-storage/internal/schedule"
	"github.com/EngageMedia-video/featured-storage/internal/secrets"
	"github.com/EngageMedia-video/featured-storage/internal/storage"
	"github.com/EngageMedia-video/featured-storage/migrations"
	"github.com/EngageMedia-video/featured-storage/pkg/health"
	"github.com/EngageMedia-video/featured-storage/pkg/prometheus"
)

type Application struct {
	sigChan <-chan os.Signal
	manager *process.Manager
	cfg     config.App
	db      *gorm.DB
	nc      *nats.Conn

	versions *media.VersionCache
	ms       *media.Service
}

func NewApplication(cfg config.App) (*Application, error) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	a := &Application{
		sigChan: sigChan,
		cfg:     cfg,
		manager: process.NewManager(),
	}

	err := a.bootstrap()
	if err != nil {
		return nil, err
	}

	return a, nil
}

func (a *Application) Run() {
	a.manager.StartAll()
	a.registerShutdown()
}

func (a *Application) bootstrap() error {
	initializers := []func() error{
		a.initDB,
		a.runMigrations,

		// Init Dependencies
		a.initServices,

		// Init Workers: Application
		a.initAPI,

		// Init Workers: System
		a.initPrometheusWorker,
		a.initHealthWorker,
	}

	for _, initializer := range initializers {
		if err := initializer(); err != nil {
			return err
		}
	}

	return nil
}

func (a *Application) initDB() error {
	dsn := a.cfg.DB.DSN
	if a.cfg.Vault.Token != "" {
		var err error
		dsn, err = secrets.DatabaseDSN(a.cfg.Vault)
		if err != nil {
			return fmt.Errorf("resolve database dsn: %w", err)
		}
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return err
	}

	ps, err := db.DB()
	if err != nil {
		return err
	}
	ps.SetMaxOpenConns(a.cfg.DB.MaxOpenConnections)

	a.db = db
	if a.cfg.DB.Debug {
		a.db = db.Debug()
	}

	return err
}

func (a *Application) runMigrations() error {
	sqlDB, err := a.db.DB()
	if err != nil {
		return err
	}

	driver, err := migratepg.WithInstance(sqlDB, &migratepg.Config{})
	if err != nil {
		return fmt.Errorf("create migrate driver: %w", err)
	}

	src, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return fmt.Errorf("create migrate source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}

	return nil
}

func (a *Application) initServices() error {
	nc, err := nats.Connect(
		a.cfg.Nats.URL,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(a.cfg.Nats.MaxReconnects),
		nats.ReconnectWait(a.cfg.Nats.ReconnectTimeout),
	)
	if err != nil {
		return err
	}

	a.nc = nc

	a.initMedia()

	return nil
}

func (a *Application) initMedia() {
	mediaRepo := media.NewRepo(a.db)
	scheduleRepo := schedule.NewRepo(a.db)
	txm := storage.NewManager(a.db)

	a.versions = media.NewVersionCache()
	a.ms = media.NewService(
		mediaRepo,
		scheduleRepo,
		txm,
		a.versions,
		media.NewNatsNotifier(a.nc),
	)
}

func (a *Application) initAPI() error {
	router := mux.NewRouter()
	router.Use(media.MetricsMiddleware)

	media.NewServer(a.ms, a.versions).Register(router)

	srv := &http.Server{
		Addr:         a.cfg.API.Bind,
		Handler:      router,
		ReadTimeout:  a.cfg.API.ReadTimeout,
		WriteTimeout: a.cfg.API.WriteTimeout,
	}

	a.manager.AddWorker(process.NewServerWorker("API", srv))

	return nil
}

func (a *Application) initPrometheusWorker() error {
	srv := prometheus.NewServer(a.cfg.Prometheus.Listen, "/metrics")
	a.manager.AddWorker(process.NewServerWorker("prometheus", srv))

	return nil
}

func (a *Application) initHealthWorker() error {
	srv := health.NewHealthCheckServer(a.cfg.Health.Listen, "/status", health.DefaultHandler())
	a.manager.AddWorker(process.NewServerWorker("health", srv))

	return nil
}

func (a *Application) registerShutdown() {
	go func(manager *process.Manager) {
		<-a.sigChan

		manager.StopAll()

		if a.nc != nil {
			a.nc.Close()
		}
	}(a.manager)

	a.manager.AwaitAll()

	log.Info().Msg("application stopped")
}
