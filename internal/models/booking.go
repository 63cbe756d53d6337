package models

import "time"

// Booking reserves a room for the half-open interval [Start, End).
// RoomName and UserName are denormalized for exports and calendar feeds.
type Booking struct {
	ID         int64      `json:"id"`
	RoomID     int64      `json:"room_id"`
	RoomName   string     `json:"room_name"`
	UserID     int64      `json:"user_id"`
	UserName   string     `json:"user_name"`
	Start      time.Time  `json:"start"`
	End        time.Time  `json:"end"`
	Status     string     `json:"status"`
	Title      string     `json:"title,omitempty"`
	Comment    string     `json:"comment,omitempty"`
	ApprovedBy *int64     `json:"approved_by,omitempty"`
	ApprovedAt *time.Time `json:"approved_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	Version    int64      `json:"version"`
}

// transitions lists the allowed status changes. Rejected and cancelled
// are terminal.
var transitions = map[string][]string{
	StatusPending:  {StatusApproved, StatusRejected, StatusCancelled},
	StatusApproved: {StatusCancelled},
}

// CanTransition reports whether a booking may move from one status to another.
func CanTransition(from, to string) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the status admits no further transitions.
func IsTerminal(status string) bool {
	return status == StatusRejected || status == StatusCancelled
}

// IsActive reports whether a booking with this status blocks overlapping
// bookings for the same room.
func (b *Booking) IsActive() bool {
	return b.Status == StatusPending || b.Status == StatusApproved
}

// Overlaps reports whether two half-open intervals intersect. Back-to-back
// bookings that touch at a boundary do not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && aEnd.After(bStart)
}
