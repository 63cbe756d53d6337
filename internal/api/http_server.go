package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"zala/internal/config"
	"zala/internal/database"
	"zala/internal/export"
	"zala/internal/metrics"
	"zala/internal/models"
	"zala/internal/service"

	"github.com/rs/zerolog"
)

// HTTPServer is the REST surface of the booking engine.
type HTTPServer struct {
	cfg      config.APIConfig
	bookings *service.BookingService
	rooms    *service.RoomService
	users    *service.UserService
	exporter *export.Exporter
	server   *http.Server
	auth     *HTTPAuth
	logger   zerolog.Logger
}

func NewHTTPServer(cfg config.APIConfig, bookings *service.BookingService, rooms *service.RoomService, users *service.UserService, exporter *export.Exporter, logger zerolog.Logger) *HTTPServer {
	srv := &HTTPServer{
		cfg:      cfg,
		bookings: bookings,
		rooms:    rooms,
		users:    users,
		exporter: exporter,
		auth:     NewHTTPAuth(cfg),
		logger:   logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/rooms", srv.handleListRooms)
	mux.HandleFunc("POST /api/v1/rooms", srv.handleCreateRoom)
	mux.HandleFunc("PUT /api/v1/rooms/{id}", srv.handleUpdateRoom)
	mux.HandleFunc("DELETE /api/v1/rooms/{id}", srv.handleDeleteRoom)
	mux.HandleFunc("GET /api/v1/rooms/{id}/schedule", srv.handleRoomSchedule)

	mux.HandleFunc("POST /api/v1/bookings", srv.handleProposeBooking)
	mux.HandleFunc("GET /api/v1/bookings/{id}", srv.handleGetBooking)
	mux.HandleFunc("POST /api/v1/bookings/{id}/approve", srv.handleApproveBooking)
	mux.HandleFunc("POST /api/v1/bookings/{id}/reject", srv.handleRejectBooking)
	mux.HandleFunc("POST /api/v1/bookings/{id}/cancel", srv.handleCancelBooking)

	mux.HandleFunc("GET /api/v1/calendar", srv.handleCalendar)
	mux.HandleFunc("GET /api/v1/export", srv.handleExport)
	mux.HandleFunc("GET /healthz", srv.handleHealth)

	handler := requestIDMiddleware(loggingMiddleware(logger, srv.auth.Wrap(mux)))

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
	}
	return srv
}

func (s *HTTPServer) Start() error {
	s.logger.Info().Str("addr", s.server.Addr).Msg("http api listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Handler exposes the wired handler stack, for tests.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *HTTPServer) handleListRooms(w http.ResponseWriter, r *http.Request) {
	var (
		rooms []*models.Room
		err   error
	)
	if r.URL.Query().Get("all") == "1" {
		rooms, err = s.rooms.GetAllRooms(r.Context())
	} else {
		rooms, err = s.rooms.GetActiveRooms(r.Context())
	}
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"rooms": rooms})
}

func (s *HTTPServer) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	var room models.Room
	if err := decodeBody(r, &room); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.rooms.CreateRoom(r.Context(), &room); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, &room)
}

func (s *HTTPServer) handleUpdateRoom(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var room models.Room
	if err := decodeBody(r, &room); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	room.ID = id
	if err := s.rooms.UpdateRoom(r.Context(), &room); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, &room)
}

func (s *HTTPServer) handleDeleteRoom(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	// Deactivation is the default; history is kept. ?purge=1 drops the
	// room and cascades to its bookings.
	if r.URL.Query().Get("purge") == "1" {
		err = s.rooms.DeleteRoom(r.Context(), id)
	} else {
		err = s.rooms.DeactivateRoom(r.Context(), id)
	}
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *HTTPServer) handleRoomSchedule(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	day := time.Now()
	if dateStr := strings.TrimSpace(r.URL.Query().Get("date")); dateStr != "" {
		day, err = time.Parse("2006-01-02", dateStr)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid date format; expected YYYY-MM-DD")
			return
		}
	}

	bookings, err := s.bookings.GetRoomSchedule(r.Context(), id, day)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"bookings": bookings})
}

type proposeRequest struct {
	RoomID  int64     `json:"room_id"`
	UserID  int64     `json:"user_id"`
	Start   time.Time `json:"start"`
	End     time.Time `json:"end"`
	Title   string    `json:"title"`
	Comment string    `json:"comment"`
}

func (s *HTTPServer) handleProposeBooking(w http.ResponseWriter, r *http.Request) {
	var req proposeRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	booking, err := s.bookings.ProposeBooking(r.Context(), req.RoomID, req.UserID, req.Start, req.End, req.Title, req.Comment)
	if err != nil {
		metrics.IncBooking("propose", "error")
		s.writeServiceError(w, r, err)
		return
	}
	metrics.IncBooking("propose", "ok")
	writeJSON(w, http.StatusCreated, booking)
}

func (s *HTTPServer) handleGetBooking(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	booking, err := s.bookings.GetBooking(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

type actorRequest struct {
	ActorID int64 `json:"actor_id"`
}

func (s *HTTPServer) handleApproveBooking(w http.ResponseWriter, r *http.Request) {
	s.handleTransition(w, r, "approve", s.bookings.ApproveBooking)
}

func (s *HTTPServer) handleRejectBooking(w http.ResponseWriter, r *http.Request) {
	s.handleTransition(w, r, "reject", s.bookings.RejectBooking)
}

func (s *HTTPServer) handleCancelBooking(w http.ResponseWriter, r *http.Request) {
	s.handleTransition(w, r, "cancel", s.bookings.CancelBooking)
}

func (s *HTTPServer) handleTransition(w http.ResponseWriter, r *http.Request, operation string, apply func(context.Context, int64, int64) (*models.Booking, error)) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req actorRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.ActorID == 0 {
		writeError(w, http.StatusBadRequest, "actor_id is required")
		return
	}

	// Approve and reject are staff operations; cancel checks ownership
	// in the service.
	if operation != "cancel" && !s.users.IsStaff(r.Context(), req.ActorID) {
		metrics.IncBooking(operation, "forbidden")
		writeError(w, http.StatusForbidden, "staff permission required")
		return
	}

	booking, err := apply(r.Context(), id, req.ActorID)
	if err != nil {
		metrics.IncBooking(operation, "error")
		s.writeServiceError(w, r, err)
		return
	}
	metrics.IncBooking(operation, "ok")
	writeJSON(w, http.StatusOK, booking)
}

// calendarEntry is one event in the calendar feed, colored by status.
type calendarEntry struct {
	ID       int64     `json:"id"`
	RoomID   int64     `json:"room_id"`
	RoomName string    `json:"room_name"`
	Title    string    `json:"title"`
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
	Status   string    `json:"status"`
	Color    string    `json:"color"`
	Own      bool      `json:"own"`
}

var statusColors = map[string]string{
	models.StatusPending:   "#ffc107",
	models.StatusApproved:  "#28a745",
	models.StatusRejected:  "#dc3545",
	models.StatusCancelled: "#6c757d",
}

// handleCalendar serves the booking feed for [start, end]. Staff viewers
// see every booking; everyone else sees approved bookings plus their own.
func (s *HTTPServer) handleCalendar(w http.ResponseWriter, r *http.Request) {
	start, end, err := parseRange(r, 7)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var viewerID int64
	isStaff := false
	if raw := strings.TrimSpace(r.URL.Query().Get("viewer_id")); raw != "" {
		viewerID, err = strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid viewer_id")
			return
		}
		isStaff = s.users.IsStaff(r.Context(), viewerID)
	}

	bookings, err := s.bookings.GetBookingsByDateRange(r.Context(), start, end)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	entries := make([]calendarEntry, 0, len(bookings))
	for _, booking := range bookings {
		own := viewerID != 0 && booking.UserID == viewerID
		if !isStaff && !own && booking.Status != models.StatusApproved {
			continue
		}

		title := booking.Title
		if title == "" {
			title = booking.UserName
		}
		entries = append(entries, calendarEntry{
			ID:       booking.ID,
			RoomID:   booking.RoomID,
			RoomName: booking.RoomName,
			Title:    title,
			Start:    booking.Start,
			End:      booking.End,
			Status:   booking.Status,
			Color:    statusColors[booking.Status],
			Own:      own,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": entries})
}

func (s *HTTPServer) handleExport(w http.ResponseWriter, r *http.Request) {
	start, end, err := parseRange(r, models.DefaultExportRangeDays)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	daily, err := s.bookings.GetDailyBookings(r.Context(), start, end)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	rooms, err := s.rooms.GetActiveRooms(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	filePath, err := s.exporter.ExportBookings(daily, rooms, start, end)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	w.Header().Set("Content-Disposition", "attachment; filename=bookings.xlsx")
	http.ServeFile(w, r, filePath)
}

// parseRange reads start/end query params, defaulting to today plus
// defaultDays when absent.
func parseRange(r *http.Request, defaultDays int) (time.Time, time.Time, error) {
	now := time.Now()
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	end := start.AddDate(0, 0, defaultDays)

	var err error
	if raw := strings.TrimSpace(r.URL.Query().Get("start")); raw != "" {
		start, err = time.Parse("2006-01-02", raw)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid start date; expected YYYY-MM-DD")
		}
		end = start.AddDate(0, 0, defaultDays)
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("end")); raw != "" {
		end, err = time.Parse("2006-01-02", raw)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid end date; expected YYYY-MM-DD")
		}
		// The end day is inclusive in the feed.
		end = end.AddDate(0, 0, 1)
	}
	if !end.After(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("end must be after start")
	}
	return start, end, nil
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id")
	}
	return id, nil
}

func decodeBody(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}

// writeServiceError maps service errors onto HTTP status codes.
func (s *HTTPServer) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, database.ErrTimeConflict):
		metrics.IncConflict()
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, database.ErrConcurrentModification):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, database.ErrInvalidTransition):
		writeError(w, http.StatusConflict, err.Error())
	case database.IsValidationError(err):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, database.ErrRoomInactive):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, database.ErrRoomNotFound), errors.Is(err, database.ErrBookingNotFound), errors.Is(err, sql.ErrNoRows):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, database.ErrForbidden):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, database.ErrConstraintViolation):
		writeError(w, http.StatusConflict, err.Error())
	default:
		s.logger.Error().Err(err).Str("path", r.URL.Path).Msg("internal error")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}
