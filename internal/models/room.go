package models

import "time"

// Room is a bookable meeting room. Name is unique across rooms.
type Room struct {
	ID              int64     `yaml:"id" json:"id"`
	Name            string    `yaml:"name" json:"name"`
	Capacity        int64     `yaml:"capacity" json:"capacity"`
	HasProjector    bool      `yaml:"has_projector" json:"has_projector"`
	HasSpeakerphone bool      `yaml:"has_speakerphone" json:"has_speakerphone"`
	HasScreen       bool      `yaml:"has_screen" json:"has_screen"`
	HasWhiteboard   bool      `yaml:"has_whiteboard" json:"has_whiteboard"`
	IsActive        bool      `yaml:"is_active" json:"is_active"`
	SortOrder       int64     `yaml:"sort_order" json:"sort_order"`
	CreatedAt       time.Time `yaml:"-" json:"created_at"`
	UpdatedAt       time.Time `yaml:"-" json:"updated_at"`
}
