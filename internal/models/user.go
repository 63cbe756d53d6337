package models

import "time"

// User is a staff directory entry. Authentication lives outside the core;
// handlers resolve the caller and pass the user id into the services.
type User struct {
	ID            int64     `json:"id"`
	Username      string    `json:"username"`
	FullName      string    `json:"full_name"`
	TelegramID    int64     `json:"telegram_id,omitempty"`
	IsStaff       bool      `json:"is_staff"`
	IsBlacklisted bool      `json:"is_blacklisted"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
