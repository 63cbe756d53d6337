package bot

import (
	"context"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"zala/internal/config"
	"zala/internal/database"
	"zala/internal/models"
	"zala/internal/service"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockTelegram struct {
	updates   chan tgbotapi.Update
	sent      []tgbotapi.Chattable
	requested []tgbotapi.Chattable
}

func (m *mockTelegram) GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return m.updates
}

func (m *mockTelegram) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	m.sent = append(m.sent, c)
	return tgbotapi.Message{}, nil
}

func (m *mockTelegram) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	m.requested = append(m.requested, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (m *mockTelegram) GetSelf() tgbotapi.User {
	return tgbotapi.User{UserName: "test_bot"}
}

func (m *mockTelegram) messageTexts() []string {
	var texts []string
	for _, c := range m.sent {
		if msg, ok := c.(tgbotapi.MessageConfig); ok {
			texts = append(texts, msg.Text)
		}
	}
	return texts
}

type botEnv struct {
	bot *Bot
	tg  *mockTelegram
	db  *database.DB
}

func newBotEnv(t *testing.T) *botEnv {
	t.Helper()
	logger := zerolog.Nop()

	db, err := database.NewDB(filepath.Join(t.TempDir(), "test.db"), &logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	validator, err := service.NewValidator(time.UTC,
		[]time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday},
		"08:00", "20:00")
	require.NoError(t, err)

	bookings := service.NewBookingService(db, nil, nil, nil, validator, service.BookingPolicy{}, &logger)
	rooms := service.NewRoomService(db, &logger)
	users := service.NewUserService(db)

	tg := &mockTelegram{updates: make(chan tgbotapi.Update, 1)}
	cfg := config.BotConfig{PaginationSize: 5, RateLimitMessages: 30, RateLimitWindow: 60}
	return &botEnv{
		bot: NewBot(tg, cfg, bookings, rooms, users, nil, time.UTC, logger),
		tg:  tg,
		db:  db,
	}
}

func (e *botEnv) seedUser(t *testing.T, telegramID int64, staff bool) *models.User {
	t.Helper()
	user := &models.User{
		Username:   "user_" + strconv.FormatInt(telegramID, 10),
		FullName:   "User " + strconv.FormatInt(telegramID, 10),
		TelegramID: telegramID,
		IsStaff:    staff,
	}
	require.NoError(t, e.db.CreateOrUpdateUser(context.Background(), user))
	stored, err := e.db.GetUserByTelegramID(context.Background(), telegramID)
	require.NoError(t, err)
	return stored
}

func (e *botEnv) seedPendingBooking(t *testing.T, owner *models.User) *models.Booking {
	t.Helper()
	room := &models.Room{Name: "Atlas", Capacity: 8, IsActive: true}
	require.NoError(t, e.db.CreateRoom(context.Background(), room))

	// 2025-06-02 is a Monday inside work hours.
	start := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	booking, err := e.bot.bookings.ProposeBooking(context.Background(),
		room.ID, owner.ID, start, start.Add(time.Hour), "standup", "")
	require.NoError(t, err)
	return booking
}

func messageUpdate(telegramID int64, text string) tgbotapi.Update {
	entities := []tgbotapi.MessageEntity{}
	if strings.HasPrefix(text, "/") {
		cmd := strings.Fields(text)[0]
		entities = append(entities, tgbotapi.MessageEntity{Type: "bot_command", Offset: 0, Length: len(cmd)})
	}
	return tgbotapi.Update{
		Message: &tgbotapi.Message{
			From:     &tgbotapi.User{ID: telegramID, UserName: "user_" + strconv.FormatInt(telegramID, 10)},
			Chat:     &tgbotapi.Chat{ID: telegramID},
			Text:     text,
			Entities: entities,
		},
	}
}

func callbackUpdate(telegramID int64, data string) tgbotapi.Update {
	return tgbotapi.Update{
		CallbackQuery: &tgbotapi.CallbackQuery{
			ID:   "cb-1",
			From: &tgbotapi.User{ID: telegramID},
			Data: data,
			Message: &tgbotapi.Message{
				MessageID: 42,
				Chat:      &tgbotapi.Chat{ID: telegramID},
			},
		},
	}
}

func TestStartRegistersUser(t *testing.T) {
	env := newBotEnv(t)

	env.bot.processUpdate(context.Background(), messageUpdate(100, "/start"))

	user, err := env.db.GetUserByTelegramID(context.Background(), 100)
	require.NoError(t, err)
	assert.Equal(t, "user_100", user.Username)

	texts := env.tg.messageTexts()
	require.Len(t, texts, 1)
	assert.Contains(t, texts[0], "/rooms")
	assert.NotContains(t, texts[0], "/pending")
}

func TestHelpShowsPendingForStaff(t *testing.T) {
	env := newBotEnv(t)
	env.seedUser(t, 100, true)

	env.bot.processUpdate(context.Background(), messageUpdate(100, "/help"))

	texts := env.tg.messageTexts()
	require.Len(t, texts, 1)
	assert.Contains(t, texts[0], "/pending")
}

func TestScheduleCommand(t *testing.T) {
	env := newBotEnv(t)
	owner := env.seedUser(t, 100, false)
	env.seedPendingBooking(t, owner)

	env.bot.processUpdate(context.Background(), messageUpdate(100, "/schedule Atlas 2025-06-02"))

	texts := env.tg.messageTexts()
	require.Len(t, texts, 1)
	assert.Contains(t, texts[0], "Atlas on 02.06.2025")
	assert.Contains(t, texts[0], "10:00-11:00")
}

func TestScheduleUnknownRoom(t *testing.T) {
	env := newBotEnv(t)
	env.seedUser(t, 100, false)

	env.bot.processUpdate(context.Background(), messageUpdate(100, "/schedule Nowhere"))

	texts := env.tg.messageTexts()
	require.Len(t, texts, 1)
	assert.Contains(t, texts[0], "not found")
}

func TestPendingRequiresStaff(t *testing.T) {
	env := newBotEnv(t)
	env.seedUser(t, 100, false)

	env.bot.processUpdate(context.Background(), messageUpdate(100, "/pending"))

	texts := env.tg.messageTexts()
	require.Len(t, texts, 1)
	assert.Contains(t, texts[0], "staff only")
}

func TestPendingListsBookingsWithButtons(t *testing.T) {
	env := newBotEnv(t)
	owner := env.seedUser(t, 100, false)
	staff := env.seedUser(t, 200, true)
	booking := env.seedPendingBooking(t, owner)

	env.bot.processUpdate(context.Background(), messageUpdate(staff.TelegramID, "/pending"))

	require.Len(t, env.tg.sent, 1)
	msg, ok := env.tg.sent[0].(tgbotapi.MessageConfig)
	require.True(t, ok)
	assert.Contains(t, msg.Text, "Atlas")

	keyboard, ok := msg.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	require.True(t, ok)
	require.Len(t, keyboard.InlineKeyboard, 1)
	require.Len(t, keyboard.InlineKeyboard[0], 2)
	assert.Equal(t, "approve:"+strconv.FormatInt(booking.ID, 10), *keyboard.InlineKeyboard[0][0].CallbackData)
	assert.Equal(t, "reject:"+strconv.FormatInt(booking.ID, 10), *keyboard.InlineKeyboard[0][1].CallbackData)
}

func TestApproveCallback(t *testing.T) {
	env := newBotEnv(t)
	owner := env.seedUser(t, 100, false)
	staff := env.seedUser(t, 200, true)
	booking := env.seedPendingBooking(t, owner)

	data := "approve:" + strconv.FormatInt(booking.ID, 10)
	env.bot.processUpdate(context.Background(), callbackUpdate(staff.TelegramID, data))

	stored, err := env.db.GetBooking(context.Background(), booking.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, stored.Status)

	require.Len(t, env.tg.requested, 1)
	cb, ok := env.tg.requested[0].(tgbotapi.CallbackConfig)
	require.True(t, ok)
	assert.Contains(t, cb.Text, models.StatusApproved)

	// The originating message is edited to show the new status.
	require.Len(t, env.tg.sent, 1)
	edit, ok := env.tg.sent[0].(tgbotapi.EditMessageTextConfig)
	require.True(t, ok)
	assert.Contains(t, edit.Text, models.StatusApproved)
}

func TestApproveCallbackNonStaff(t *testing.T) {
	env := newBotEnv(t)
	owner := env.seedUser(t, 100, false)
	booking := env.seedPendingBooking(t, owner)

	data := "approve:" + strconv.FormatInt(booking.ID, 10)
	env.bot.processUpdate(context.Background(), callbackUpdate(owner.TelegramID, data))

	stored, err := env.db.GetBooking(context.Background(), booking.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, stored.Status)

	require.Len(t, env.tg.requested, 1)
	cb := env.tg.requested[0].(tgbotapi.CallbackConfig)
	assert.Equal(t, "Staff only", cb.Text)
}

func TestCancelCallbackStrangerForbidden(t *testing.T) {
	env := newBotEnv(t)
	owner := env.seedUser(t, 100, false)
	stranger := env.seedUser(t, 300, false)
	booking := env.seedPendingBooking(t, owner)

	data := "cancel:" + strconv.FormatInt(booking.ID, 10)
	env.bot.processUpdate(context.Background(), callbackUpdate(stranger.TelegramID, data))

	stored, err := env.db.GetBooking(context.Background(), booking.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, stored.Status)

	require.Len(t, env.tg.requested, 1)
	cb := env.tg.requested[0].(tgbotapi.CallbackConfig)
	assert.Equal(t, "Not your booking", cb.Text)
}

func TestMyBookingsCancelButton(t *testing.T) {
	env := newBotEnv(t)
	owner := env.seedUser(t, 100, false)
	booking := env.seedPendingBooking(t, owner)

	env.bot.processUpdate(context.Background(), messageUpdate(owner.TelegramID, "/my"))

	require.Len(t, env.tg.sent, 1)
	msg := env.tg.sent[0].(tgbotapi.MessageConfig)
	keyboard, ok := msg.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	require.True(t, ok)
	assert.Equal(t, "cancel:"+strconv.FormatInt(booking.ID, 10), *keyboard.InlineKeyboard[0][0].CallbackData)
}

// denyCache rejects every rate limit check.
type denyCache struct{}

func (denyCache) GetRoomDay(ctx context.Context, roomID int64, day string) ([]*models.Booking, bool, error) {
	return nil, false, nil
}

func (denyCache) SetRoomDay(ctx context.Context, roomID int64, day string, bookings []*models.Booking) error {
	return nil
}

func (denyCache) InvalidateRoomDay(ctx context.Context, roomID int64, day string) error {
	return nil
}

func (denyCache) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	return false, nil
}

func TestRateLimitBlocksMessages(t *testing.T) {
	env := newBotEnv(t)
	env.bot.cache = denyCache{}

	env.bot.processUpdate(context.Background(), messageUpdate(100, "/rooms"))

	texts := env.tg.messageTexts()
	require.Len(t, texts, 1)
	assert.Contains(t, texts[0], "Too many requests")
}

func TestStartLoopStopsOnCancel(t *testing.T) {
	env := newBotEnv(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		env.bot.Start(ctx)
		close(done)
	}()

	env.tg.updates <- messageUpdate(100, "/help")
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("bot did not stop on context cancel")
	}
}
