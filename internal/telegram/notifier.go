package telegram

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// maxMessageLen is Telegram's limit on the text of a single message.
const maxMessageLen = 4096

type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Notifier delivers text digests to Telegram chats.
type Notifier struct {
	api    sender
	logger *zap.Logger
}

func New(token string, logger *zap.Logger) (*Notifier, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Info("telegram bot authorized", zap.String("account", api.Self.UserName))
	return &Notifier{api: api, logger: logger}, nil
}

// SendDigest posts an HTML-formatted digest, split across messages when it
// exceeds the per-message limit.
func (n *Notifier) SendDigest(ctx context.Context, chatID int64, text string) error {
	for i, part := range split(text, maxMessageLen) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		msg := tgbotapi.NewMessage(chatID, part)
		msg.ParseMode = tgbotapi.ModeHTML
		msg.DisableWebPagePreview = true
		if _, err := n.api.Send(msg); err != nil {
			return fmt.Errorf("send digest part %d to chat %d: %w", i+1, chatID, err)
		}
		n.logger.Debug("telegram digest part sent", zap.Int64("chat_id", chatID), zap.Int("part", i+1))
	}
	return nil
}

// split breaks text on line boundaries into chunks of at most limit runes.
// A single line longer than limit is cut by runes.
func split(text string, limit int) []string {
	text = strings.TrimSpace(text)
	if utf8.RuneCountInString(text) <= limit {
		return []string{text}
	}

	var parts []string
	var b strings.Builder
	size := 0
	flush := func() {
		if b.Len() > 0 {
			parts = append(parts, strings.TrimRight(b.String(), "\n"))
			b.Reset()
			size = 0
		}
	}
	for _, line := range strings.SplitAfter(text, "\n") {
		n := utf8.RuneCountInString(line)
		if size+n > limit {
			flush()
		}
		for n > limit {
			r := []rune(line)
			parts = append(parts, string(r[:limit]))
			line = string(r[limit:])
			n -= limit
		}
		b.WriteString(line)
		size += n
	}
	flush()
	return parts
}
