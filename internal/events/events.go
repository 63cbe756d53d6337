package events

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Booking lifecycle event types.
const (
	EventBookingCreated   = "booking_created"
	EventBookingApproved  = "booking_approved"
	EventBookingRejected  = "booking_rejected"
	EventBookingCancelled = "booking_cancelled"
)

// Sync task types consumed by the sheets worker.
const (
	TaskUpsert          = "upsert"
	TaskUpdateStatus    = "update_status"
	TaskScheduleRefresh = "schedule_refresh"
)

// BookingEventPayload is the booking snapshot handed to event consumers.
type BookingEventPayload struct {
	BookingID int64     `json:"booking_id"`
	RoomID    int64     `json:"room_id"`
	RoomName  string    `json:"room_name"`
	UserID    int64     `json:"user_id"`
	UserName  string    `json:"user_name"`
	Status    string    `json:"status"`
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	ActorID   int64     `json:"actor_id,omitempty"`
}

// Event is a lightweight domain event.
type Event struct {
	Type      string
	Payload   []byte
	CreatedAt time.Time
}

// Handler reacts to one event.
type Handler func(event *Event) error

// Bus is an in-process pub/sub for booking events. Handlers run
// synchronously on the publisher's goroutine.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[string][]Handler
}

func NewBus() *Bus {
	return &Bus{subscribers: make(map[string][]Handler)}
}

func (b *Bus) Subscribe(eventType string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
}

func (b *Bus) Publish(event *Event) {
	b.mu.RLock()
	handlers := append([]Handler(nil), b.subscribers[event.Type]...)
	b.mu.RUnlock()

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	for _, handler := range handlers {
		_ = handler(event)
	}
}

// SubscribeAuditLog logs every booking lifecycle event as a structured
// audit record.
func SubscribeAuditLog(bus *Bus, logger zerolog.Logger) {
	handler := func(event *Event) error {
		var payload BookingEventPayload
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			logger.Error().Err(err).Str("event", event.Type).Msg("decode event payload")
			return nil
		}
		logger.Info().
			Str("event", event.Type).
			Int64("booking_id", payload.BookingID).
			Int64("room_id", payload.RoomID).
			Int64("user_id", payload.UserID).
			Int64("actor_id", payload.ActorID).
			Str("status", payload.Status).
			Time("start", payload.Start).
			Time("end", payload.End).
			Msg("booking event")
		return nil
	}

	for _, eventType := range []string{
		EventBookingCreated,
		EventBookingApproved,
		EventBookingRejected,
		EventBookingCancelled,
	} {
		bus.Subscribe(eventType, handler)
	}
}

// PublishJSON serializes the payload and publishes it under eventType.
func (b *Bus) PublishJSON(eventType string, payload any) error {
	if b == nil {
		return nil
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	b.Publish(&Event{Type: eventType, Payload: raw, CreatedAt: time.Now()})
	return nil
}
