package telegram

// Client sends plain text messages to a Telegram chat.
// The homework service depends on this instead of a concrete bot library.
type Client interface {
	SendMessage(chatID int64, text string) error
}
