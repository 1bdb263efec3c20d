package app

import (
	"context"
	"database/sql"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/firasbarkia/energy-connect-hub/internal/config"
	"github.com/firasbarkia/energy-connect-hub/internal/events"
	httpserver "github.com/firasbarkia/energy-connect-hub/internal/http"
	"github.com/firasbarkia/energy-connect-hub/internal/http/handlers"
	"github.com/firasbarkia/energy-connect-hub/internal/pricing"
	"github.com/firasbarkia/energy-connect-hub/internal/reconciler"
	"github.com/firasbarkia/energy-connect-hub/internal/redisstore"
	"github.com/firasbarkia/energy-connect-hub/internal/repository"
	"github.com/firasbarkia/energy-connect-hub/internal/service"
	"github.com/firasbarkia/energy-connect-hub/internal/ws"
	libdb "github.com/firasbarkia/energy-connect-hub/libs/db"
	libredis "github.com/firasbarkia/energy-connect-hub/libs/redis"
)

// App wires the marketplace dependencies.
type App struct {
	server      *httpserver.Server
	reconciler  *reconciler.Reconciler
	feed        *ws.Hub
	db          *sql.DB
	redisClient *redis.Client
	logger      *zap.Logger
}

// New constructs the application graph.
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	sqlDB, err := libdb.NewPostgresDB(cfg.Database.DSN)
	if err != nil {
		return nil, err
	}

	redisClient, err := libredis.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		sqlDB.Close()
		return nil, err
	}

	sessionRepo := repository.NewSessionRepository(sqlDB)
	reservationRepo := repository.NewReservationRepository(sqlDB)
	stationRepo := repository.NewStationRepository(sqlDB)
	revenueRepo := repository.NewRevenueRepository(sqlDB)

	holdStore := redisstore.NewHoldStore(redisClient, cfg.Reservation.HoldTTL)
	feed := ws.NewHub(logger)
	sink := events.MultiSink{
		events.NewRedisSink(redisClient, "", logger),
		feed,
	}

	engine := pricing.NewEngine(cfg.Pricing)
	snapshots := pricing.NewSnapshotProvider(sessionRepo)
	pricingService := service.NewPricingService(engine, snapshots, revenueRepo, logger)

	reservationsService := service.NewReservationsService(
		sessionRepo,
		reservationRepo,
		stationRepo,
		revenueRepo,
		pricingService,
		holdStore,
		sink,
		logger,
		cfg.Reservation.HoldTTL,
	)

	sweeper := reconciler.New(sessionRepo, holdStore, sink, logger, cfg.Reservation.SweepInterval)

	sessionsHandler := handlers.NewSessionsHandler(reservationsService, logger)
	routes := httpserver.Routes{
		AvailableSessions: sessionsHandler.HandleAvailable,
		Reserve:           sessionsHandler.HandleReserve,
		Confirm:           sessionsHandler.HandleConfirm,
		Cancel:            sessionsHandler.HandleCancel,
		Complete:          sessionsHandler.HandleComplete,
		ReservationsMe:    handlers.NewReservationsMeHandler(reservationsService),
		StationRevenue:    handlers.NewStationRevenueHandler(reservationsService),
		SessionFeed:       feed.Handler(),
		Health:            handlers.NewHealthHandler(),
	}

	router := httpserver.NewRouter(routes)
	server := httpserver.NewServer(cfg.HTTPAddress(), router, logger)

	return &App{
		server:      server,
		reconciler:  sweeper,
		feed:        feed,
		db:          sqlDB,
		redisClient: redisClient,
		logger:      logger,
	}, nil
}

// Run starts the expiry reconciler and the HTTP server.
func (a *App) Run(ctx context.Context) error {
	go a.reconciler.Run(ctx)
	return a.server.Run(ctx)
}

// Close releases resources.
func (a *App) Close() {
	a.feed.Close()
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn("failed to close db", zap.Error(err))
		}
	}
	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.logger.Warn("failed to close redis", zap.Error(err))
		}
	}
}
