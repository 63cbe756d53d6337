package service

import (
	"context"
	"time"

	"zala/internal/database"
	"zala/internal/domain"
	"zala/internal/events"
	"zala/internal/models"

	"github.com/rs/zerolog"
)

// BookingService is the conflict resolver: it decides whether a proposed
// or state-transitioning booking is legal and performs the transition
// atomically with respect to concurrent callers on the same room.
type BookingService struct {
	repo            domain.Repository
	cache           domain.ScheduleCache
	eventBus        domain.EventPublisher
	syncWorker      domain.SyncWorker
	validator       *Validator
	blocking        []string
	approveBlocking []string
	logger          *zerolog.Logger
	now             func() time.Time
}

// BookingPolicy carries the configurable pieces of the conflict rules.
// BlockingStatuses is the "active" set that blocks new proposals;
// ApproveBlockingStatuses is the set consulted when re-checking a pending
// booking at approval time (some deployments only count approved ones).
type BookingPolicy struct {
	BlockingStatuses        []string
	ApproveBlockingStatuses []string
}

func NewBookingService(repo domain.Repository, cache domain.ScheduleCache, eventBus domain.EventPublisher, syncWorker domain.SyncWorker, validator *Validator, policy BookingPolicy, logger *zerolog.Logger) *BookingService {
	blocking := policy.BlockingStatuses
	if len(blocking) == 0 {
		blocking = models.ActiveStatuses
	}
	approveBlocking := policy.ApproveBlockingStatuses
	if len(approveBlocking) == 0 {
		approveBlocking = blocking
	}

	return &BookingService{
		repo:            repo,
		cache:           cache,
		eventBus:        eventBus,
		syncWorker:      syncWorker,
		validator:       validator,
		blocking:        blocking,
		approveBlocking: approveBlocking,
		logger:          logger,
		now:             time.Now,
	}
}

// WithClock overrides the time source, for tests.
func (s *BookingService) WithClock(now func() time.Time) *BookingService {
	s.now = now
	return s
}

// ProposeBooking validates the interval, checks the room's active bookings
// for overlap and creates a pending booking. The overlap check and the
// insert are atomic per room.
func (s *BookingService) ProposeBooking(ctx context.Context, roomID, requesterID int64, start, end time.Time, title, comment string) (*models.Booking, error) {
	if err := s.validator.ValidateInterval(start, end); err != nil {
		return nil, err
	}

	room, err := s.repo.GetRoomByID(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if !room.IsActive {
		return nil, database.ErrRoomInactive
	}

	requester, err := s.repo.GetUserByID(ctx, requesterID)
	if err != nil {
		return nil, err
	}
	if requester.IsBlacklisted {
		return nil, database.ErrForbidden
	}

	booking := &models.Booking{
		RoomID:   room.ID,
		RoomName: room.Name,
		UserID:   requester.ID,
		UserName: requester.Username,
		Start:    start,
		End:      end,
		Title:    title,
		Comment:  comment,
	}

	if err := s.repo.CreateBookingLocked(ctx, booking, s.blocking); err != nil {
		return nil, err
	}

	s.invalidateSchedule(ctx, booking)
	s.publishEvent(events.EventBookingCreated, booking, requester.ID)
	s.enqueueSync(ctx, events.TaskUpsert, booking, "")

	return booking, nil
}

// ApproveBooking re-validates the stored interval (the policy may have
// changed since creation), re-checks overlap excluding the booking itself
// and flips it to approved.
func (s *BookingService) ApproveBooking(ctx context.Context, bookingID, approverID int64) (*models.Booking, error) {
	booking, err := s.repo.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.Status != models.StatusPending {
		return nil, database.ErrInvalidTransition
	}

	if err := s.validator.ValidateInterval(booking.Start, booking.End); err != nil {
		return nil, err
	}

	if err := s.repo.ApproveBookingLocked(ctx, booking, approverID, s.now(), s.approveBlocking); err != nil {
		return nil, err
	}

	s.invalidateSchedule(ctx, booking)
	s.publishEvent(events.EventBookingApproved, booking, approverID)
	s.enqueueSync(ctx, events.TaskUpdateStatus, booking, booking.Status)

	return booking, nil
}

// RejectBooking declines a pending booking. Freeing a slot can never
// create a conflict, so no overlap check is run.
func (s *BookingService) RejectBooking(ctx context.Context, bookingID, approverID int64) (*models.Booking, error) {
	booking, err := s.repo.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.Status != models.StatusPending {
		return nil, database.ErrInvalidTransition
	}

	at := s.now()
	if err := s.repo.UpdateBookingStatusWithVersion(ctx, booking.ID, booking.Version, models.StatusRejected, &approverID, &at); err != nil {
		return nil, err
	}
	booking.Status = models.StatusRejected
	booking.ApprovedBy = &approverID
	booking.ApprovedAt = &at
	booking.Version++

	s.invalidateSchedule(ctx, booking)
	s.publishEvent(events.EventBookingRejected, booking, approverID)
	s.enqueueSync(ctx, events.TaskUpdateStatus, booking, booking.Status)

	return booking, nil
}

// CancelBooking cancels a booking on behalf of its owner or a staff
// member. Cancelling an already cancelled or rejected booking is a no-op
// success.
func (s *BookingService) CancelBooking(ctx context.Context, bookingID, callerID int64) (*models.Booking, error) {
	booking, err := s.repo.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	if booking.UserID != callerID {
		caller, err := s.repo.GetUserByID(ctx, callerID)
		if err != nil {
			return nil, err
		}
		if !caller.IsStaff {
			return nil, database.ErrForbidden
		}
	}

	if models.IsTerminal(booking.Status) {
		return booking, nil
	}

	if err := s.repo.UpdateBookingStatusWithVersion(ctx, booking.ID, booking.Version, models.StatusCancelled, nil, nil); err != nil {
		return nil, err
	}
	booking.Status = models.StatusCancelled
	booking.Version++

	s.invalidateSchedule(ctx, booking)
	s.publishEvent(events.EventBookingCancelled, booking, callerID)
	s.enqueueSync(ctx, events.TaskUpdateStatus, booking, booking.Status)

	return booking, nil
}

func (s *BookingService) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	return s.repo.GetBooking(ctx, id)
}

func (s *BookingService) GetUserBookings(ctx context.Context, userID int64) ([]*models.Booking, error) {
	return s.repo.GetUserBookings(ctx, userID)
}

func (s *BookingService) GetBookingsByDateRange(ctx context.Context, start, end time.Time) ([]*models.Booking, error) {
	return s.repo.GetBookingsByDateRange(ctx, start, end)
}

func (s *BookingService) GetDailyBookings(ctx context.Context, start, end time.Time) (map[string][]*models.Booking, error) {
	return s.repo.GetDailyBookings(ctx, start, end, s.validator.Location())
}

// GetRoomSchedule returns a room's bookings for one local calendar day,
// served from the schedule cache when possible.
func (s *BookingService) GetRoomSchedule(ctx context.Context, roomID int64, day time.Time) ([]*models.Booking, error) {
	loc := s.validator.Location()
	localDay := day.In(loc)
	dayKey := localDay.Format("2006-01-02")

	if s.cache != nil {
		if bookings, ok, err := s.cache.GetRoomDay(ctx, roomID, dayKey); err == nil && ok {
			return bookings, nil
		}
	}

	dayStart := time.Date(localDay.Year(), localDay.Month(), localDay.Day(), 0, 0, 0, 0, loc)
	bookings, err := s.repo.GetRoomBookings(ctx, roomID, dayStart, dayStart.AddDate(0, 0, 1))
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetRoomDay(ctx, roomID, dayKey, bookings); err != nil && s.logger != nil {
			s.logger.Warn().Err(err).Int64("room_id", roomID).Msg("schedule cache set failed")
		}
	}
	return bookings, nil
}

func (s *BookingService) invalidateSchedule(ctx context.Context, booking *models.Booking) {
	if s.cache == nil {
		return
	}
	dayKey := booking.Start.In(s.validator.Location()).Format("2006-01-02")
	if err := s.cache.InvalidateRoomDay(ctx, booking.RoomID, dayKey); err != nil && s.logger != nil {
		s.logger.Warn().Err(err).Int64("room_id", booking.RoomID).Str("day", dayKey).Msg("schedule cache invalidate failed")
	}
}

func (s *BookingService) publishEvent(eventType string, booking *models.Booking, actorID int64) {
	if s.eventBus == nil {
		return
	}

	payload := events.BookingEventPayload{
		BookingID: booking.ID,
		RoomID:    booking.RoomID,
		RoomName:  booking.RoomName,
		UserID:    booking.UserID,
		UserName:  booking.UserName,
		Status:    booking.Status,
		Start:     booking.Start,
		End:       booking.End,
		ActorID:   actorID,
	}
	if err := s.eventBus.PublishJSON(eventType, payload); err != nil && s.logger != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Int64("booking_id", booking.ID).Msg("publish event error")
	}
}

func (s *BookingService) enqueueSync(ctx context.Context, taskType string, booking *models.Booking, status string) {
	if s.syncWorker == nil {
		return
	}
	if err := s.syncWorker.EnqueueTask(ctx, taskType, booking, status); err != nil && s.logger != nil {
		s.logger.Error().Err(err).Int64("booking_id", booking.ID).Str("task", taskType).Msg("sync enqueue error")
	}
}
