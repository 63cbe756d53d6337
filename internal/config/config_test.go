package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"zala/internal/models"
)

func TestLoadConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
database:
  path: "test.db"
booking:
  timezone: "UTC"
  workdays: [monday, tuesday, wednesday]
  work_start: "09:00"
  work_end: "18:00"
rooms:
  - name: "Atlas"
    capacity: 8
    is_active: true
`
	if err := os.WriteFile(configPath, []byte(yamlContent), 0o644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Database.Path != "test.db" {
		t.Errorf("expected database path test.db, got %s", cfg.Database.Path)
	}
	if cfg.Booking.WorkStart != "09:00" {
		t.Errorf("expected work_start 09:00, got %s", cfg.Booking.WorkStart)
	}
	if len(cfg.Rooms) != 1 || cfg.Rooms[0].Name != "Atlas" {
		t.Errorf("expected 1 room named Atlas, got %+v", cfg.Rooms)
	}

	days, err := cfg.Booking.WeekdaySet()
	if err != nil {
		t.Fatalf("WeekdaySet: %v", err)
	}
	if len(days) != 3 || days[0] != time.Monday {
		t.Errorf("unexpected weekday set: %v", days)
	}
}

func TestValidateConfig(t *testing.T) {
	valid := Config{
		Database: DatabaseConfig{Path: "path"},
		Booking: BookingConfig{
			Timezone: "UTC",
			Workdays: []string{"monday"},
		},
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"valid config", func(c *Config) {}, false},
		{"missing database path", func(c *Config) { c.Database.Path = "" }, true},
		{"bot enabled without token", func(c *Config) { c.Telegram.Enabled = true }, true},
		{"auth enabled without keys", func(c *Config) { c.API.Auth.Enabled = true }, true},
		{"bad timezone", func(c *Config) { c.Booking.Timezone = "Mars/Olympus" }, true},
		{"bad workday", func(c *Config) { c.Booking.Workdays = []string{"crunchday"} }, true},
		{"bad blocking status", func(c *Config) { c.Booking.BlockingStatuses = []string{"maybe"} }, true},
		{"duplicate room", func(c *Config) {
			c.Rooms = []models.Room{{Name: "Atlas"}, {Name: "Atlas"}}
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.applyDefaults()

	if cfg.API.Port != 8080 {
		t.Errorf("expected default api port 8080, got %d", cfg.API.Port)
	}
	if cfg.Booking.WorkStart != models.DefaultWorkStart || cfg.Booking.WorkEnd != models.DefaultWorkEnd {
		t.Errorf("expected default work hours %s-%s, got %s-%s",
			models.DefaultWorkStart, models.DefaultWorkEnd, cfg.Booking.WorkStart, cfg.Booking.WorkEnd)
	}
	if len(cfg.Booking.Workdays) != 5 {
		t.Errorf("expected monday-friday default workdays, got %v", cfg.Booking.Workdays)
	}
	if len(cfg.Booking.BlockingStatuses) != len(models.ActiveStatuses) {
		t.Errorf("expected active statuses as default blocking set, got %v", cfg.Booking.BlockingStatuses)
	}
	if cfg.API.Auth.HeaderAPIKey != "x-api-key" {
		t.Errorf("expected default api key header, got %s", cfg.API.Auth.HeaderAPIKey)
	}
}

func TestValidateRooms(t *testing.T) {
	if err := ValidateRooms([]models.Room{{Name: "Atlas"}, {Name: "Borei"}}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := ValidateRooms([]models.Room{{Name: "  "}}); err == nil {
		t.Error("expected error for blank room name")
	}
	if err := ValidateRooms([]models.Room{{Name: "Atlas"}, {Name: "Atlas"}}); err == nil {
		t.Error("expected error for duplicate room name")
	}
}
