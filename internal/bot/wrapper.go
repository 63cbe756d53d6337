package bot

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// APIWrapper adapts *tgbotapi.BotAPI to the TelegramAPI interface; the
// stock client exposes its identity as a field rather than a method.
type APIWrapper struct {
	*tgbotapi.BotAPI
}

func WrapAPI(api *tgbotapi.BotAPI) *APIWrapper {
	return &APIWrapper{BotAPI: api}
}

func (w *APIWrapper) GetSelf() tgbotapi.User {
	return w.Self
}
