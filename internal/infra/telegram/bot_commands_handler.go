// internal/infra/telegram/bot_commands_handler.go
package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"homework_status_bot/internal/domain/pollstate"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

const statusTimeLayout = "2006-01-02 15:04:05 MST"

// RegisterBotCommands registers /start and /status. Only the configured chat is served.
func RegisterBotCommands(
	ctx context.Context,
	b *telebot.Bot,
	chatID int64,
	stateRepo pollstate.Repository,
	baseLogger *logrus.Entry,
) {
	commandsLogger := baseLogger.WithField("handler_group", "commands")

	g := b.Group()
	g.Use(OnlyChat(chatID))

	g.Handle("/start", func(c telebot.Context) error {
		commandsLogger.WithField("command", "/start").WithField("chat_id", c.Chat().ID).Info("Processing /start command")
		return c.Send("Привет! Я сообщаю об изменении статуса проверки домашних работ. /status покажет состояние опроса.")
	})

	g.Handle("/status", func(c telebot.Context) error {
		logCtx := commandsLogger.WithField("command", "/status").WithField("chat_id", c.Chat().ID)
		logCtx.Info("Processing /status command")

		st, err := stateRepo.Load(ctx)
		if err != nil && !errors.Is(err, pollstate.ErrStateNotFound) {
			logCtx.WithError(err).Error("Error loading poll state for /status command")
			return c.Send("Не удалось получить состояние опроса. Попробуйте позже.")
		}
		return c.Send(FormatStatus(st))
	})
}

// OnlyChat drops updates that did not come from chatID. It matches on the chat,
// not the sender, so any member of a configured group can use the commands.
func OnlyChat(chatID int64) telebot.MiddlewareFunc {
	return func(next telebot.HandlerFunc) telebot.HandlerFunc {
		return func(c telebot.Context) error {
			if c.Chat() == nil || c.Chat().ID != chatID {
				return nil
			}
			return next(c)
		}
	}
}

// FormatStatus renders poll state for the /status command. st may be nil.
func FormatStatus(st *pollstate.State) string {
	if st == nil {
		return "Опрос ещё не выполнялся."
	}

	var sb strings.Builder
	if st.Cursor > 0 {
		fmt.Fprintf(&sb, "Обновления запрашиваются с: %s\n", time.Unix(st.Cursor, 0).Format(statusTimeLayout))
	}
	if st.LastSuccessAt.IsZero() {
		sb.WriteString("Успешных опросов пока не было.\n")
	} else {
		fmt.Fprintf(&sb, "Последний успешный опрос: %s\n", st.LastSuccessAt.Format(statusTimeLayout))
	}
	if st.LastDiagnostic == "" {
		sb.WriteString("Ошибок не было.")
	} else {
		fmt.Fprintf(&sb, "Последняя ошибка: %s", st.LastDiagnostic)
	}
	return sb.String()
}
