package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"zala/internal/api"
	"zala/internal/config"
	"zala/internal/database"
	"zala/internal/domain"
	"zala/internal/events"
	"zala/internal/export"
	"zala/internal/google"
	"zala/internal/logging"
	"zala/internal/metrics"
	"zala/internal/models"
	"zala/internal/repository"
	"zala/internal/service"
	"zala/internal/worker"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v2"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, logger, closer, err := loadConfigAndLogger("api-main")
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func() { _ = closer.Close() })()
	}

	if !cfg.API.Enabled {
		logger.Warn().Msg("api is disabled in config, but starting the api binary anyway")
	}

	if err := prepareDirectories(cfg); err != nil {
		return err
	}

	db, err := database.NewDB(cfg.Database.Path, &logger)
	if err != nil {
		logger.Error().Err(err).Str("db_path", cfg.Database.Path).Msg("init database")
		return err
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	loc, err := cfg.Booking.Location()
	if err != nil {
		return err
	}

	redisClient, cache := initScheduleCache(ctx, cfg, &logger)
	if redisClient != nil {
		defer redisClient.Close()
	}

	syncWorker := initSyncWorker(ctx, cfg, db, redisClient, loc, logger)
	eventBus := events.NewBus()
	events.SubscribeAuditLog(eventBus, logging.Component(&logger, "audit"))

	services, err := buildServices(cfg, db, cache, eventBus, syncWorker, &logger)
	if err != nil {
		return err
	}

	if err := seedRooms(ctx, cfg, services.rooms, &logger); err != nil {
		return err
	}

	exporter := export.NewExporter(cfg.Exports.Path, loc, logging.Component(&logger, "export"))
	httpServer := api.NewHTTPServer(cfg.API, services.bookings, services.rooms, services.users, exporter, logging.Component(&logger, "api"))

	startMetrics(ctx, cfg, &logger)

	if cfg.Backup.Enabled {
		backupService := database.NewBackupService(db, cfg.Backup, &logger)
		go backupService.Start(ctx)
	}

	go func() {
		if err := httpServer.Start(); err != nil {
			logger.Error().Err(err).Msg("http server stopped")
		}
	}()

	logger.Info().Int("port", cfg.API.Port).Msg("api server started")

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = httpServer.Shutdown(shutdownCtx)

	logger.Info().Msg("api server stopped")
	return nil
}

type appServices struct {
	bookings *service.BookingService
	rooms    *service.RoomService
	users    *service.UserService
}

func buildServices(cfg *config.Config, db *database.DB, cache domain.ScheduleCache, eventBus *events.Bus, syncWorker *worker.SyncWorker, logger *zerolog.Logger) (*appServices, error) {
	loc, err := cfg.Booking.Location()
	if err != nil {
		return nil, err
	}
	weekdays, err := cfg.Booking.WeekdaySet()
	if err != nil {
		return nil, err
	}
	validator, err := service.NewValidator(loc, weekdays, cfg.Booking.WorkStart, cfg.Booking.WorkEnd)
	if err != nil {
		return nil, err
	}

	policy := service.BookingPolicy{
		BlockingStatuses:        cfg.Booking.BlockingStatuses,
		ApproveBlockingStatuses: cfg.Booking.ApproveBlockingStatuses,
	}

	// Assign only a non-nil worker so the service sees a nil interface.
	var sync domain.SyncWorker
	if syncWorker != nil {
		sync = syncWorker
	}

	return &appServices{
		bookings: service.NewBookingService(db, cache, eventBus, sync, validator, policy, logger),
		rooms:    service.NewRoomService(db, logger),
		users:    service.NewUserService(db).WithRoster(cfg.Staff, cfg.Blacklist),
	}, nil
}

func loadConfigAndLogger(component string) (*config.Config, zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("load config: %w", err)
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("init logger: %w", err)
	}
	logger := baseLogger.With().Str("component", component).Logger()

	return cfg, logger, closer, nil
}

func prepareDirectories(cfg *config.Config) error {
	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		return fmt.Errorf("create database dir: %w", err)
	}
	if err := os.MkdirAll(cfg.Exports.Path, 0o755); err != nil {
		return fmt.Errorf("create exports dir: %w", err)
	}
	return nil
}

// seedRooms upserts the configured room inventory, merging the main
// config with an optional standalone rooms file (ROOMS_PATH).
func seedRooms(ctx context.Context, cfg *config.Config, rooms *service.RoomService, logger *zerolog.Logger) error {
	seed := append([]models.Room(nil), cfg.Rooms...)

	roomsPath := os.Getenv("ROOMS_PATH")
	if roomsPath != "" {
		data, err := os.ReadFile(roomsPath)
		if err != nil {
			logger.Error().Err(err).Str("rooms_path", roomsPath).Msg("read rooms file")
			return err
		}
		var roomsFile struct {
			Rooms []models.Room `yaml:"rooms"`
		}
		if err := yaml.Unmarshal(data, &roomsFile); err != nil {
			logger.Error().Err(err).Str("rooms_path", roomsPath).Msg("parse rooms file")
			return err
		}
		seed = append(seed, roomsFile.Rooms...)
	}

	if len(seed) == 0 {
		return nil
	}
	if err := config.ValidateRooms(seed); err != nil {
		return err
	}
	if err := rooms.SeedRooms(ctx, seed); err != nil {
		logger.Error().Err(err).Msg("seed rooms")
		return err
	}
	logger.Info().Int("count", len(seed)).Msg("rooms seeded")
	return nil
}

func initScheduleCache(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*redis.Client, domain.ScheduleCache) {
	ttl := time.Duration(models.ScheduleCacheTTL) * time.Second
	fallback := repository.NewMemoryScheduleCache(ttl)

	if !cfg.Redis.Enabled || cfg.Redis.Address == "" {
		return nil, fallback
	}

	redisClient := repository.NewRedisClient(cfg.Redis)
	if err := repository.Ping(ctx, redisClient); err != nil {
		logger.Warn().Err(err).Msg("redis unavailable, schedule cache degrades to memory")
	} else {
		logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	}

	primary := repository.NewRedisScheduleCache(redisClient, ttl)
	return redisClient, repository.NewFailoverScheduleCache(primary, fallback, logger)
}

func initSyncWorker(ctx context.Context, cfg *config.Config, db *database.DB, redisClient *redis.Client, loc *time.Location, logger zerolog.Logger) *worker.SyncWorker {
	if !cfg.Google.Enabled {
		return nil
	}
	if cfg.Google.GoogleCredentialsFile == "" || cfg.Google.BookingSpreadSheetID == "" {
		logger.Warn().Msg("google sync enabled but credentials or spreadsheet id missing")
		return nil
	}

	sheets, err := google.NewSheetsService(
		cfg.Google.GoogleCredentialsFile,
		cfg.Google.BookingSpreadSheetID,
		cfg.Google.ScheduleSheetName,
		loc,
	)
	if err != nil {
		logger.Warn().Err(err).Msg("google sheets init failed, continuing without sync")
		return nil
	}
	if err := sheets.TestConnection(ctx); err != nil {
		logger.Warn().Err(err).Msg("google sheets unreachable, continuing without sync")
		return nil
	}
	logger.Info().Msg("google sheets connected")

	syncWorker := worker.NewSyncWorker(db, sheets, redisClient, loc, worker.RetryPolicy{}, logging.Component(&logger, "sync-worker"))
	go syncWorker.Start(ctx)
	return syncWorker
}

func startMetrics(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) {
	if !cfg.Monitoring.PrometheusEnabled {
		return
	}

	metrics.Register()
	port := cfg.Monitoring.PrometheusPort
	if port == 0 {
		port = 9090
	}
	go startMetricsServer(ctx, port, logger)
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
