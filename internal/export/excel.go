package export

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"zala/internal/models"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
)

const sheetName = "Bookings"

// Exporter renders a room/day grid of bookings into an xlsx file. Rows
// are rooms, columns are calendar days, cells list that day's bookings.
type Exporter struct {
	path   string
	loc    *time.Location
	logger zerolog.Logger
}

func NewExporter(path string, loc *time.Location, logger zerolog.Logger) *Exporter {
	if loc == nil {
		loc = time.Local
	}
	return &Exporter{path: path, loc: loc, logger: logger}
}

// ExportBookings writes the grid for [start, end] and returns the file path.
// daily is keyed by local "2006-01-02" day.
func (e *Exporter) ExportBookings(daily map[string][]*models.Booking, rooms []*models.Room, start, end time.Time) (string, error) {
	if err := os.MkdirAll(e.path, 0o755); err != nil {
		return "", fmt.Errorf("error creating export directory: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return "", fmt.Errorf("error creating sheet: %w", err)
	}
	f.SetActiveSheet(index)

	_ = f.SetCellValue(sheetName, "A1", fmt.Sprintf("Period: %s - %s",
		start.Format("02.01.2006"), end.Format("02.01.2006")))

	dateCols := e.writeDateHeaders(f, start, end)
	e.writeRoomHeaders(f, rooms)
	e.writeBookingCells(f, daily, rooms, dateCols)

	_ = f.SetColWidth(sheetName, "A", "A", 25)
	if len(dateCols) > 0 {
		lastCol, _ := excelize.ColumnNumberToName(len(dateCols) + 1)
		_ = f.SetColWidth(sheetName, "B", lastCol, 24)
		_ = f.MergeCell(sheetName, "A1", lastCol+"1")
	}

	titleStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	_ = f.SetCellStyle(sheetName, "A1", "A1", titleStyle)

	_ = f.DeleteSheet("Sheet1")

	fileName := fmt.Sprintf("bookings_%s_to_%s.xlsx",
		start.Format("2006-01-02"), end.Format("2006-01-02"))
	filePath := filepath.Join(e.path, fileName)

	if err := f.SaveAs(filePath); err != nil {
		return "", fmt.Errorf("error saving file: %w", err)
	}

	e.logger.Info().Str("file_path", filePath).Msg("excel export created")
	return filePath, nil
}

func (e *Exporter) writeDateHeaders(f *excelize.File, start, end time.Time) map[string]int {
	headerStyle, _ := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})

	col := 2
	dateCols := make(map[string]int)
	for day := start.In(e.loc); !day.After(end.In(e.loc)); day = day.AddDate(0, 0, 1) {
		cell, _ := excelize.CoordinatesToCellName(col, 2)
		_ = f.SetCellValue(sheetName, cell, day.Format("02.01"))
		_ = f.SetCellStyle(sheetName, cell, cell, headerStyle)
		dateCols[day.Format("2006-01-02")] = col
		col++
	}
	return dateCols
}

func (e *Exporter) writeRoomHeaders(f *excelize.File, rooms []*models.Room) {
	roomStyle, _ := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E2EFDA"}, Pattern: 1},
		Font: &excelize.Font{Bold: true},
	})

	for i, room := range rooms {
		cell, _ := excelize.CoordinatesToCellName(1, i+3)
		_ = f.SetCellValue(sheetName, cell, fmt.Sprintf("%s (%d)", room.Name, room.Capacity))
		_ = f.SetCellStyle(sheetName, cell, cell, roomStyle)
	}
}

func (e *Exporter) writeBookingCells(f *excelize.File, daily map[string][]*models.Booking, rooms []*models.Room, dateCols map[string]int) {
	for dateKey, bookings := range daily {
		col, exists := dateCols[dateKey]
		if !exists {
			continue
		}

		byRoom := make(map[int64][]*models.Booking)
		for _, booking := range bookings {
			byRoom[booking.RoomID] = append(byRoom[booking.RoomID], booking)
		}

		for i, room := range rooms {
			cell, _ := excelize.CoordinatesToCellName(col, i+3)
			roomBookings := activeBookings(byRoom[room.ID])

			var cellValue string
			for _, booking := range roomBookings {
				cellValue += fmt.Sprintf("%s-%s %s %s\n",
					booking.Start.In(e.loc).Format("15:04"),
					booking.End.In(e.loc).Format("15:04"),
					booking.UserName,
					statusIcon(booking.Status))
				if booking.Title != "" {
					cellValue += "   " + booking.Title + "\n"
				}
			}
			if cellValue == "" {
				cellValue = "free"
			}
			_ = f.SetCellValue(sheetName, cell, cellValue)

			if styleID, err := e.cellStyle(f, roomBookings); err == nil {
				_ = f.SetCellStyle(sheetName, cell, cell, styleID)
			}
		}
	}
}

func activeBookings(bookings []*models.Booking) []*models.Booking {
	var active []*models.Booking
	for _, booking := range bookings {
		if booking.IsActive() {
			active = append(active, booking)
		}
	}
	return active
}

func statusIcon(status string) string {
	switch status {
	case models.StatusApproved:
		return "✅"
	case models.StatusPending:
		return "⏳"
	default:
		return "❌"
	}
}

// cellStyle picks the fill: white for a free day, yellow when any
// booking still awaits approval, green when everything is approved.
func (e *Exporter) cellStyle(f *excelize.File, bookings []*models.Booking) (int, error) {
	color := "#FFFFFF"
	if len(bookings) > 0 {
		color = "#C6EFCE"
		for _, booking := range bookings {
			if booking.Status == models.StatusPending {
				color = "#FFEB9C"
				break
			}
		}
	}

	return f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: 1},
		Alignment: &excelize.Alignment{
			Horizontal: "left",
			Vertical:   "top",
			WrapText:   true,
		},
	})
}
