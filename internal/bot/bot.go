package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"zala/internal/config"
	"zala/internal/database"
	"zala/internal/domain"
	"zala/internal/models"
	"zala/internal/service"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// TelegramAPI is the slice of the bot API the handlers use.
type TelegramAPI interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetSelf() tgbotapi.User
}

// Bot is the staff-facing Telegram surface: staff review and approve
// pending bookings, users inspect schedules and cancel their own.
type Bot struct {
	tg       TelegramAPI
	cfg      config.BotConfig
	bookings *service.BookingService
	rooms    *service.RoomService
	users    *service.UserService
	cache    domain.ScheduleCache
	loc      *time.Location
	logger   zerolog.Logger
}

func NewBot(tg TelegramAPI, cfg config.BotConfig, bookings *service.BookingService, rooms *service.RoomService, users *service.UserService, cache domain.ScheduleCache, loc *time.Location, logger zerolog.Logger) *Bot {
	if loc == nil {
		loc = time.Local
	}
	return &Bot{
		tg:       tg,
		cfg:      cfg,
		bookings: bookings,
		rooms:    rooms,
		users:    users,
		cache:    cache,
		loc:      loc,
		logger:   logger,
	}
}

func (b *Bot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.tg.GetUpdatesChan(u)

	b.logger.Info().Str("username", b.tg.GetSelf().UserName).Msg("bot authorized")

	for {
		select {
		case <-ctx.Done():
			b.logger.Info().Msg("bot stopping")
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			b.processUpdate(ctx, update)
		}
	}
}

func (b *Bot) processUpdate(ctx context.Context, update tgbotapi.Update) {
	updateCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	logger := b.logger.With().Str("request_id", uuid.NewString()).Logger()

	defer func() {
		if r := recover(); r != nil {
			logger.Error().Interface("panic", r).Msg("recovered in update handler")
		}
	}()

	switch {
	case update.Message != nil:
		b.handleMessage(updateCtx, logger, update.Message)
	case update.CallbackQuery != nil:
		b.handleCallback(updateCtx, logger, update.CallbackQuery)
	}
}

func (b *Bot) handleMessage(ctx context.Context, logger zerolog.Logger, msg *tgbotapi.Message) {
	if !b.allowMessage(ctx, msg.From.ID) {
		b.reply(msg.Chat.ID, "Too many requests, try again in a minute.")
		return
	}

	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		logger.Error().Err(err).Int64("telegram_id", msg.From.ID).Msg("register user")
		b.reply(msg.Chat.ID, "Something went wrong, try again later.")
		return
	}

	switch msg.Command() {
	case "start", "help":
		b.reply(msg.Chat.ID, helpText(user.IsStaff))
	case "rooms":
		b.sendRooms(ctx, msg.Chat.ID)
	case "schedule":
		b.sendSchedule(ctx, msg.Chat.ID, msg.CommandArguments())
	case "my":
		b.sendMyBookings(ctx, msg.Chat.ID, user)
	case "pending":
		if !user.IsStaff {
			b.reply(msg.Chat.ID, "This command is for staff only.")
			return
		}
		b.sendPending(ctx, msg.Chat.ID)
	default:
		b.reply(msg.Chat.ID, "Unknown command, see /help.")
	}
}

func helpText(isStaff bool) string {
	text := "Meeting room bot:\n" +
		"/rooms - list rooms\n" +
		"/schedule <room> [YYYY-MM-DD] - day schedule\n" +
		"/my - your bookings (with cancel buttons)"
	if isStaff {
		text += "\n/pending - review pending bookings"
	}
	return text
}

// ensureUser registers or refreshes the Telegram sender in storage.
func (b *Bot) ensureUser(ctx context.Context, from *tgbotapi.User) (*models.User, error) {
	user := &models.User{
		Username:   from.UserName,
		FullName:   strings.TrimSpace(from.FirstName + " " + from.LastName),
		TelegramID: from.ID,
	}
	if user.Username == "" {
		user.Username = fmt.Sprintf("tg_%d", from.ID)
	}

	if existing, err := b.users.GetUserByTelegramID(ctx, from.ID); err == nil {
		user.IsStaff = existing.IsStaff
		user.IsBlacklisted = existing.IsBlacklisted
	}
	if err := b.users.SaveUser(ctx, user); err != nil {
		return nil, err
	}
	return b.users.GetUserByTelegramID(ctx, from.ID)
}

func (b *Bot) allowMessage(ctx context.Context, telegramID int64) bool {
	if b.cache == nil {
		return true
	}
	key := "tg:" + strconv.FormatInt(telegramID, 10)
	window := time.Duration(b.cfg.RateLimitWindow) * time.Second
	allowed, err := b.cache.CheckRateLimit(ctx, key, b.cfg.RateLimitMessages, window)
	if err != nil {
		// Rate limiter is advisory: a broken cache must not block the bot.
		return true
	}
	return allowed
}

func (b *Bot) sendRooms(ctx context.Context, chatID int64) {
	rooms, err := b.rooms.GetActiveRooms(ctx)
	if err != nil {
		b.reply(chatID, "Failed to load rooms.")
		return
	}
	if len(rooms) == 0 {
		b.reply(chatID, "No rooms configured.")
		return
	}

	var sb strings.Builder
	sb.WriteString("Rooms:\n")
	for _, room := range rooms {
		sb.WriteString(fmt.Sprintf("- %s (seats %d)%s\n", room.Name, room.Capacity, roomFeatures(room)))
	}
	b.reply(chatID, sb.String())
}

func roomFeatures(room *models.Room) string {
	var features []string
	if room.HasProjector {
		features = append(features, "projector")
	}
	if room.HasScreen {
		features = append(features, "screen")
	}
	if room.HasSpeakerphone {
		features = append(features, "speakerphone")
	}
	if room.HasWhiteboard {
		features = append(features, "whiteboard")
	}
	if len(features) == 0 {
		return ""
	}
	return ", " + strings.Join(features, ", ")
}

func (b *Bot) sendSchedule(ctx context.Context, chatID int64, args string) {
	fields := strings.Fields(args)
	if len(fields) == 0 {
		b.reply(chatID, "Usage: /schedule <room> [YYYY-MM-DD]")
		return
	}

	day := time.Now().In(b.loc)
	roomName := fields[0]
	if len(fields) > 1 {
		parsed, err := time.ParseInLocation("2006-01-02", fields[1], b.loc)
		if err != nil {
			b.reply(chatID, "Invalid date, expected YYYY-MM-DD.")
			return
		}
		day = parsed
	}

	room, err := b.rooms.GetRoomByName(ctx, roomName)
	if err != nil {
		b.reply(chatID, fmt.Sprintf("Room %q not found.", roomName))
		return
	}

	bookings, err := b.bookings.GetRoomSchedule(ctx, room.ID, day)
	if err != nil {
		b.reply(chatID, "Failed to load the schedule.")
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s on %s:\n", room.Name, day.Format("02.01.2006")))
	empty := true
	for _, booking := range bookings {
		if !booking.IsActive() {
			continue
		}
		empty = false
		sb.WriteString(fmt.Sprintf("%s-%s %s (%s)\n",
			booking.Start.In(b.loc).Format("15:04"),
			booking.End.In(b.loc).Format("15:04"),
			booking.UserName, booking.Status))
	}
	if empty {
		sb.WriteString("free all day")
	}
	b.reply(chatID, sb.String())
}

func (b *Bot) sendMyBookings(ctx context.Context, chatID int64, user *models.User) {
	bookings, err := b.bookings.GetUserBookings(ctx, user.ID)
	if err != nil {
		b.reply(chatID, "Failed to load your bookings.")
		return
	}

	sent := 0
	for _, booking := range bookings {
		if !booking.IsActive() {
			continue
		}
		msg := tgbotapi.NewMessage(chatID, formatBooking(booking, b.loc))
		msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("Cancel", "cancel:"+strconv.FormatInt(booking.ID, 10)),
			),
		)
		if _, err := b.tg.Send(msg); err == nil {
			sent++
		}
		if sent >= b.cfg.PaginationSize {
			break
		}
	}
	if sent == 0 {
		b.reply(chatID, "You have no active bookings.")
	}
}

func (b *Bot) sendPending(ctx context.Context, chatID int64) {
	now := time.Now()
	bookings, err := b.bookings.GetBookingsByDateRange(ctx, now.AddDate(0, 0, -1), now.AddDate(0, 1, 0))
	if err != nil {
		b.reply(chatID, "Failed to load pending bookings.")
		return
	}

	sent := 0
	for _, booking := range bookings {
		if booking.Status != models.StatusPending {
			continue
		}
		msg := tgbotapi.NewMessage(chatID, formatBooking(booking, b.loc))
		id := strconv.FormatInt(booking.ID, 10)
		msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("Approve", "approve:"+id),
				tgbotapi.NewInlineKeyboardButtonData("Reject", "reject:"+id),
			),
		)
		if _, err := b.tg.Send(msg); err == nil {
			sent++
		}
		if sent >= b.cfg.PaginationSize {
			break
		}
	}
	if sent == 0 {
		b.reply(chatID, "No pending bookings.")
	}
}

func formatBooking(booking *models.Booking, loc *time.Location) string {
	text := fmt.Sprintf("#%d %s\n%s %s-%s\n%s (%s)",
		booking.ID, booking.RoomName,
		booking.Start.In(loc).Format("02.01.2006"),
		booking.Start.In(loc).Format("15:04"),
		booking.End.In(loc).Format("15:04"),
		booking.UserName, booking.Status)
	if booking.Title != "" {
		text += "\n" + booking.Title
	}
	return text
}

func (b *Bot) handleCallback(ctx context.Context, logger zerolog.Logger, query *tgbotapi.CallbackQuery) {
	action, idStr, ok := strings.Cut(query.Data, ":")
	if !ok {
		b.answerCallback(query.ID, "Unknown action")
		return
	}
	bookingID, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		b.answerCallback(query.ID, "Unknown booking")
		return
	}

	actor, err := b.users.GetUserByTelegramID(ctx, query.From.ID)
	if err != nil {
		b.answerCallback(query.ID, "Send /start first")
		return
	}

	var booking *models.Booking
	switch action {
	case "approve":
		if !actor.IsStaff {
			b.answerCallback(query.ID, "Staff only")
			return
		}
		booking, err = b.bookings.ApproveBooking(ctx, bookingID, actor.ID)
	case "reject":
		if !actor.IsStaff {
			b.answerCallback(query.ID, "Staff only")
			return
		}
		booking, err = b.bookings.RejectBooking(ctx, bookingID, actor.ID)
	case "cancel":
		booking, err = b.bookings.CancelBooking(ctx, bookingID, actor.ID)
	default:
		b.answerCallback(query.ID, "Unknown action")
		return
	}

	if err != nil {
		logger.Warn().Err(err).Str("action", action).Int64("booking_id", bookingID).Msg("callback action failed")
		b.answerCallback(query.ID, callbackError(err))
		return
	}

	b.answerCallback(query.ID, "Done: "+booking.Status)
	if query.Message != nil {
		edit := tgbotapi.NewEditMessageText(query.Message.Chat.ID, query.Message.MessageID, formatBooking(booking, b.loc))
		if _, err := b.tg.Send(edit); err != nil {
			logger.Warn().Err(err).Msg("edit message failed")
		}
	}
}

func callbackError(err error) string {
	switch {
	case errors.Is(err, database.ErrTimeConflict):
		return "Slot already taken"
	case errors.Is(err, database.ErrInvalidTransition):
		return "Already processed"
	case errors.Is(err, database.ErrForbidden):
		return "Not your booking"
	case errors.Is(err, database.ErrBookingNotFound):
		return "Booking not found"
	default:
		return "Action failed"
	}
}

func (b *Bot) answerCallback(callbackID, text string) {
	if _, err := b.tg.Request(tgbotapi.NewCallback(callbackID, text)); err != nil {
		b.logger.Warn().Err(err).Msg("answer callback failed")
	}
}

func (b *Bot) reply(chatID int64, text string) {
	if _, err := b.tg.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		b.logger.Warn().Err(err).Int64("chat_id", chatID).Msg("send message failed")
	}
}
