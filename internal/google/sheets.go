package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"zala/internal/models"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

const bookingsSheet = "Bookings"

var errRowNotFound = errors.New("booking row not found")

// SheetsService mirrors bookings into a Google spreadsheet. The Bookings
// sheet holds one row per booking keyed by ID in column A; the schedule
// sheet is a room/day grid rewritten wholesale on refresh.
type SheetsService struct {
	service       *sheets.Service
	spreadsheetID string
	scheduleSheet string
	loc           *time.Location
	rowCache      map[int64]int
	cacheMu       sync.RWMutex
}

// NewSheetsService authenticates with a service account credentials file.
func NewSheetsService(credentialsFile, spreadsheetID, scheduleSheet string, loc *time.Location) (*SheetsService, error) {
	ctx := context.Background()

	credentialsJSON, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read credentials file: %w", err)
	}

	jwtConfig, err := google.JWTConfigFromJSON(credentialsJSON, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse credentials: %w", err)
	}

	srv, err := sheets.NewService(ctx, option.WithHTTPClient(jwtConfig.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("unable to create sheets service: %w", err)
	}

	if loc == nil {
		loc = time.Local
	}

	service := &SheetsService{
		service:       srv,
		spreadsheetID: spreadsheetID,
		scheduleSheet: scheduleSheet,
		loc:           loc,
		rowCache:      make(map[int64]int),
	}

	// First cache fill is best effort, lookups fall back to a column scan.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		_ = service.WarmUpCache(ctx)
	}()

	return service, nil
}

// TestConnection reads a single cell to verify credentials and access.
func (s *SheetsService) TestConnection(ctx context.Context) error {
	_, err := s.service.Spreadsheets.Values.Get(s.spreadsheetID, bookingsSheet+"!A1").Context(ctx).Do()
	return err
}

// WarmUpCache populates the row index cache from the ID column.
func (s *SheetsService) WarmUpCache(ctx context.Context) error {
	resp, err := s.service.Spreadsheets.Values.Get(s.spreadsheetID, bookingsSheet+"!A:A").Context(ctx).Do()
	if err != nil {
		return err
	}

	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	s.rowCache = make(map[int64]int)

	for i, row := range resp.Values {
		if id := cellID(row); id > 0 {
			s.rowCache[id] = i + 1
		}
	}
	return nil
}

func cellID(row []interface{}) int64 {
	if len(row) == 0 {
		return 0
	}
	var id int64
	switch v := row[0].(type) {
	case float64:
		id = int64(v)
	case string:
		fmt.Sscanf(v, "%d", &id)
	}
	return id
}

// UpsertBooking updates the booking's row, appending one if it is new.
func (s *SheetsService) UpsertBooking(ctx context.Context, booking *models.Booking) error {
	if booking == nil {
		return fmt.Errorf("booking is nil")
	}

	rowIdx, err := s.findBookingRow(ctx, booking.ID)
	if err != nil {
		if errors.Is(err, errRowNotFound) {
			return s.appendBooking(ctx, booking)
		}
		return err
	}

	rangeData := fmt.Sprintf("%s!A%d:K%d", bookingsSheet, rowIdx, rowIdx)
	_, err = s.service.Spreadsheets.Values.Update(s.spreadsheetID, rangeData, &sheets.ValueRange{
		Values: [][]interface{}{s.bookingRowValues(booking)},
	}).ValueInputOption("RAW").Context(ctx).Do()
	return err
}

func (s *SheetsService) appendBooking(ctx context.Context, booking *models.Booking) error {
	resp, err := s.service.Spreadsheets.Values.Append(s.spreadsheetID, bookingsSheet+"!A:A", &sheets.ValueRange{
		Values: [][]interface{}{s.bookingRowValues(booking)},
	}).ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return err
	}

	if resp.Updates != nil {
		var row int
		if _, err := fmt.Sscanf(resp.Updates.UpdatedRange, bookingsSheet+"!A%d", &row); err == nil && row > 0 {
			s.setCachedRow(booking.ID, row)
		}
	}
	return nil
}

// UpdateBookingStatus rewrites the status and updated-at cells in place.
func (s *SheetsService) UpdateBookingStatus(ctx context.Context, bookingID int64, status string) error {
	rowIdx, err := s.findBookingRow(ctx, bookingID)
	if err != nil {
		return err
	}

	statusRange := fmt.Sprintf("%s!H%d:H%d", bookingsSheet, rowIdx, rowIdx)
	_, err = s.service.Spreadsheets.Values.Update(s.spreadsheetID, statusRange, &sheets.ValueRange{
		Values: [][]interface{}{{status}},
	}).ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return err
	}

	updatedRange := fmt.Sprintf("%s!K%d:K%d", bookingsSheet, rowIdx, rowIdx)
	_, err = s.service.Spreadsheets.Values.Update(s.spreadsheetID, updatedRange, &sheets.ValueRange{
		Values: [][]interface{}{{time.Now().In(s.loc).Format("2006-01-02 15:04:05")}},
	}).ValueInputOption("RAW").Context(ctx).Do()
	return err
}

// UpdateScheduleSheet rewrites the room/day grid for the given window.
func (s *SheetsService) UpdateScheduleSheet(ctx context.Context, start, end time.Time, daily map[string][]*models.Booking, rooms []*models.Room) error {
	days := int(end.Sub(start).Hours()/24) + 1
	if days <= 0 {
		return fmt.Errorf("invalid date range: start %s, end %s", start, end)
	}

	clearRange := s.scheduleSheet + "!A:Z"
	if _, err := s.service.Spreadsheets.Values.Clear(s.spreadsheetID, clearRange, &sheets.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
		return fmt.Errorf("unable to clear schedule sheet: %w", err)
	}

	header := []interface{}{fmt.Sprintf("Schedule %s - %s",
		start.In(s.loc).Format("02.01.2006"), end.In(s.loc).Format("02.01.2006"))}

	dateRow := []interface{}{""}
	dayKeys := make([]string, 0, days)
	for day := start.In(s.loc); !day.After(end.In(s.loc)); day = day.AddDate(0, 0, 1) {
		dateRow = append(dateRow, day.Format("02.01"))
		dayKeys = append(dayKeys, day.Format("2006-01-02"))
	}

	data := [][]interface{}{header, dateRow}
	for _, room := range rooms {
		row := []interface{}{room.Name}
		for _, dayKey := range dayKeys {
			row = append(row, s.scheduleCell(daily[dayKey], room.ID))
		}
		data = append(data, row)
	}

	writeRange := fmt.Sprintf("%s!A1", s.scheduleSheet)
	_, err := s.service.Spreadsheets.Values.Update(s.spreadsheetID, writeRange, &sheets.ValueRange{
		Values: data,
	}).ValueInputOption("RAW").Context(ctx).Do()
	return err
}

func (s *SheetsService) scheduleCell(bookings []*models.Booking, roomID int64) string {
	var cell string
	for _, booking := range bookings {
		if booking.RoomID != roomID || !booking.IsActive() {
			continue
		}
		if cell != "" {
			cell += "\n"
		}
		cell += fmt.Sprintf("%s-%s %s (%s)",
			booking.Start.In(s.loc).Format("15:04"),
			booking.End.In(s.loc).Format("15:04"),
			booking.UserName,
			booking.Status)
	}
	return cell
}

// findBookingRow locates the 1-based row for a booking ID in column A.
func (s *SheetsService) findBookingRow(ctx context.Context, bookingID int64) (int, error) {
	if bookingID == 0 {
		return 0, fmt.Errorf("booking id is required")
	}

	if row, ok := s.getCachedRow(bookingID); ok {
		return row, nil
	}

	resp, err := s.service.Spreadsheets.Values.Get(s.spreadsheetID, bookingsSheet+"!A:A").Context(ctx).Do()
	if err != nil {
		return 0, err
	}

	for i, row := range resp.Values {
		if cellID(row) == bookingID {
			rowIdx := i + 1
			s.setCachedRow(bookingID, rowIdx)
			return rowIdx, nil
		}
	}
	return 0, errRowNotFound
}

func (s *SheetsService) getCachedRow(id int64) (int, bool) {
	s.cacheMu.RLock()
	defer s.cacheMu.RUnlock()
	row, ok := s.rowCache[id]
	return row, ok
}

func (s *SheetsService) setCachedRow(id int64, row int) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	s.rowCache[id] = row
}

func (s *SheetsService) bookingRowValues(booking *models.Booking) []interface{} {
	return []interface{}{
		booking.ID,
		booking.RoomID,
		booking.RoomName,
		booking.UserID,
		booking.UserName,
		booking.Start.In(s.loc).Format("2006-01-02 15:04"),
		booking.End.In(s.loc).Format("2006-01-02 15:04"),
		booking.Status,
		booking.Title,
		booking.CreatedAt.In(s.loc).Format("2006-01-02 15:04:05"),
		booking.UpdatedAt.In(s.loc).Format("2006-01-02 15:04:05"),
	}
}
