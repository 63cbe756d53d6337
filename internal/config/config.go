package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"zala/internal/database"
	"zala/internal/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App        AppConfig             `yaml:"app"`
	Database   DatabaseConfig        `yaml:"database"`
	Redis      RedisConfig           `yaml:"redis"`
	Backup     database.BackupConfig `yaml:"backup"`
	Monitoring MonitoringConfig      `yaml:"monitoring"`
	Logging    LoggingConfig         `yaml:"logging"`
	API        APIConfig             `yaml:"api"`
	Booking    BookingConfig         `yaml:"booking"`
	Rooms      []models.Room         `yaml:"rooms"`
	Staff      []int64               `yaml:"staff"`
	Blacklist  []int64               `yaml:"blacklist"`
	Exports    ExportConfig          `yaml:"exports"`
	Google     GoogleConfig          `yaml:"google"`
	Telegram   TelegramConfig        `yaml:"telegram"`
	Bot        BotConfig             `yaml:"bot"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port"`
	HealthCheckPort   int  `yaml:"health_check_port"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

type APIConfig struct {
	Enabled   bool               `yaml:"enabled"`
	Port      int                `yaml:"port"`
	Auth      APIAuthConfig      `yaml:"auth"`
	RateLimit APIRateLimitConfig `yaml:"rate_limit"`
}

type APIAuthConfig struct {
	Enabled      bool           `yaml:"enabled"`
	HeaderAPIKey string         `yaml:"header_api_key"`
	APIKeys      []APIClientKey `yaml:"api_keys"`
}

type APIClientKey struct {
	Key         string   `yaml:"key"`
	Name        string   `yaml:"name"`
	Permissions []string `yaml:"permissions"`
}

type APIRateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

// BookingConfig is the working-hours and conflict policy. Workdays are
// lowercase English day names; times are wall-clock "15:04" strings in
// Timezone.
type BookingConfig struct {
	Timezone                string   `yaml:"timezone"`
	Workdays                []string `yaml:"workdays"`
	WorkStart               string   `yaml:"work_start"`
	WorkEnd                 string   `yaml:"work_end"`
	BlockingStatuses        []string `yaml:"blocking_statuses"`
	ApproveBlockingStatuses []string `yaml:"approve_blocking_statuses"`
}

type ExportConfig struct {
	Path string `yaml:"path"`
}

type GoogleConfig struct {
	Enabled               bool   `yaml:"enabled"`
	GoogleCredentialsFile string `yaml:"credentials_file"`
	BookingSpreadSheetID  string `yaml:"bookings_spreadsheet_id"`
	ScheduleSheetName     string `yaml:"schedule_sheet_name"`
}

type TelegramConfig struct {
	Enabled  bool   `yaml:"enabled"`
	BotToken string `yaml:"bot_token"`
	Debug    bool   `yaml:"debug"`
}

type BotConfig struct {
	PaginationSize    int `yaml:"pagination_size"`
	RateLimitMessages int `yaml:"rate_limit_messages"`
	RateLimitWindow   int `yaml:"rate_limit_window"`
}

var dayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

func Load(configPath string) (*Config, error) {
	if err := godotenv.Load(".env"); err != nil && !os.IsNotExist(err) {
		return nil, err
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	// Environment variables are substituted before parsing so secrets can
	// stay out of the yaml file.
	expandedData := []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(expandedData, &config); err != nil {
		return nil, err
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return errors.New("database path is required")
	}

	if c.Telegram.Enabled && c.Telegram.BotToken == "" {
		return errors.New("telegram bot token is required when the bot is enabled")
	}

	if c.API.Auth.Enabled && len(c.API.Auth.APIKeys) == 0 {
		return errors.New("api auth is enabled but no api keys are configured")
	}

	if _, err := c.Booking.Location(); err != nil {
		return err
	}
	if _, err := c.Booking.WeekdaySet(); err != nil {
		return err
	}
	for _, status := range append(append([]string{}, c.Booking.BlockingStatuses...), c.Booking.ApproveBlockingStatuses...) {
		switch status {
		case models.StatusPending, models.StatusApproved, models.StatusRejected, models.StatusCancelled:
		default:
			return fmt.Errorf("unknown booking status %q in blocking policy", status)
		}
	}

	return ValidateRooms(c.Rooms)
}

// ValidateRooms rejects seed lists with blank or duplicate room names.
func ValidateRooms(rooms []models.Room) error {
	names := make(map[string]bool, len(rooms))
	for _, room := range rooms {
		name := strings.TrimSpace(room.Name)
		if name == "" {
			return errors.New("room with empty name in config")
		}
		if names[name] {
			return fmt.Errorf("duplicate room name in config: %s", name)
		}
		names[name] = true
	}
	return nil
}

// Location resolves the booking timezone.
func (b *BookingConfig) Location() (*time.Location, error) {
	if b.Timezone == "" || b.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(b.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid booking timezone %q: %w", b.Timezone, err)
	}
	return loc, nil
}

// WeekdaySet parses the configured day names.
func (b *BookingConfig) WeekdaySet() ([]time.Weekday, error) {
	days := make([]time.Weekday, 0, len(b.Workdays))
	for _, name := range b.Workdays {
		day, ok := dayNames[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			return nil, fmt.Errorf("unknown workday %q", name)
		}
		days = append(days, day)
	}
	return days, nil
}

func (c *Config) applyDefaults() {
	if c.API.Port == 0 {
		c.API.Port = 8080
	}
	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}
	if c.API.Auth.HeaderAPIKey == "" {
		c.API.Auth.HeaderAPIKey = "x-api-key"
	}
	if c.API.RateLimit.RPS == 0 {
		c.API.RateLimit.RPS = float64(models.RateLimitRequests) / float64(models.RateLimitWindow)
	}
	if c.API.RateLimit.Burst == 0 {
		c.API.RateLimit.Burst = 10
	}

	if c.Booking.Timezone == "" {
		c.Booking.Timezone = models.DefaultTimezone
	}
	if len(c.Booking.Workdays) == 0 {
		c.Booking.Workdays = []string{"monday", "tuesday", "wednesday", "thursday", "friday"}
	}
	if c.Booking.WorkStart == "" {
		c.Booking.WorkStart = models.DefaultWorkStart
	}
	if c.Booking.WorkEnd == "" {
		c.Booking.WorkEnd = models.DefaultWorkEnd
	}
	if len(c.Booking.BlockingStatuses) == 0 {
		c.Booking.BlockingStatuses = models.ActiveStatuses
	}

	if c.Exports.Path == "" {
		c.Exports.Path = "exports"
	}
	if c.Google.ScheduleSheetName == "" {
		c.Google.ScheduleSheetName = "Schedule"
	}

	if c.Bot.PaginationSize == 0 {
		c.Bot.PaginationSize = 5
	}
	if c.Bot.RateLimitMessages == 0 {
		c.Bot.RateLimitMessages = models.RateLimitRequests
	}
	if c.Bot.RateLimitWindow == 0 {
		c.Bot.RateLimitWindow = models.RateLimitWindow
	}
}
