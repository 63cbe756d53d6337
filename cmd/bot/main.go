package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"zala/internal/bot"
	"zala/internal/config"
	"zala/internal/database"
	"zala/internal/domain"
	"zala/internal/events"
	"zala/internal/google"
	"zala/internal/logging"
	"zala/internal/models"
	"zala/internal/repository"
	"zala/internal/service"
	"zala/internal/worker"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, logger, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func() { _ = closer.Close() })()
	}

	if !cfg.Telegram.Enabled {
		return errors.New("telegram is disabled in config")
	}
	if cfg.Telegram.BotToken == "" {
		return errors.New("telegram bot token is not set")
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		return fmt.Errorf("create database dir: %w", err)
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

	weekdays, err := cfg.Booking.WeekdaySet()
	if err != nil {
		return err
	}
	validator, err := service.NewValidator(loc, weekdays, cfg.Booking.WorkStart, cfg.Booking.WorkEnd)
	if err != nil {
		return err
	}

	policy := service.BookingPolicy{
		BlockingStatuses:        cfg.Booking.BlockingStatuses,
		ApproveBlockingStatuses: cfg.Booking.ApproveBlockingStatuses,
	}

	var sync domain.SyncWorker
	if syncWorker != nil {
		sync = syncWorker
	}

	bookings := service.NewBookingService(db, cache, eventBus, sync, validator, policy, &logger)
	rooms := service.NewRoomService(db, &logger)
	users := service.NewUserService(db).WithRoster(cfg.Staff, cfg.Blacklist)

	if len(cfg.Rooms) > 0 {
		if err := rooms.SeedRooms(ctx, cfg.Rooms); err != nil {
			logger.Error().Err(err).Msg("seed rooms")
			return err
		}
	}

	if cfg.Backup.Enabled {
		backupService := database.NewBackupService(db, cfg.Backup, &logger)
		go backupService.Start(ctx)
	}

	botAPI, err := tgbotapi.NewBotAPI(cfg.Telegram.BotToken)
	if err != nil {
		logger.Error().Err(err).Msg("create bot api")
		return err
	}
	botAPI.Debug = cfg.Telegram.Debug

	telegramBot := bot.NewBot(
		bot.WrapAPI(botAPI), cfg.Bot,
		bookings, rooms, users,
		cache, loc,
		logging.Component(&logger, "bot"),
	)

	logger.Info().Msg("bot started")
	telegramBot.Start(ctx)

	logger.Info().Msg("shutdown complete")
	return nil
}

func loadConfigAndLogger() (*config.Config, zerolog.Logger, io.Closer, error) {
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
	logger := baseLogger.With().Str("component", "bot-main").Logger()

	return cfg, logger, closer, nil
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
