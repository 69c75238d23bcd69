// Package notify pushes settlement notifications to Telegram.
package notify

import (
	"fmt"
	"os"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"github.com/RaghavSood/multiswap/swaps"
)

var log zerolog.Logger

func init() {
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	log = zerolog.New(out).With().Timestamp().Str("component", "notify").Logger()
}

// Telegram sends settlement messages to a single chat.
type Telegram struct {
	api    *tgbotapi.BotAPI
	chatID int64
}

// NewTelegram connects to the Telegram bot API.
func NewTelegram(token string, chatID int64) (*Telegram, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("connecting to telegram: %w", err)
	}
	return &Telegram{api: api, chatID: chatID}, nil
}

// SwapSettled reports a swap that reached a terminal status.
func (t *Telegram) SwapSettled(rec swaps.SwapRecord) {
	var text string
	switch rec.Status {
	case swaps.StatusCompleted:
		amount := "unknown amount"
		if rec.AmountOut != nil {
			amount = fmt.Sprintf("%s %s", rec.AmountOut.String(), rec.TokenOut.Symbol)
		}
		text = fmt.Sprintf("✅ Swap complete: %s %s → %s via %s",
			rec.AmountIn.String(), rec.TokenIn.Symbol, amount, rec.ProviderName)
	case swaps.StatusRefunded:
		text = fmt.Sprintf("↩️ Swap refunded: %s %s via %s",
			rec.AmountIn.String(), rec.TokenIn.Symbol, rec.ProviderName)
	case swaps.StatusFailed:
		text = fmt.Sprintf("❌ Swap failed: %s %s → %s via %s",
			rec.AmountIn.String(), rec.TokenIn.Symbol, rec.TokenOut.Symbol, rec.ProviderName)
	default:
		return
	}

	msg := tgbotapi.NewMessage(t.chatID, text)
	if _, err := t.api.Send(msg); err != nil {
		log.Warn().Err(err).Str("swap", rec.ID).Msg("sending telegram notification")
	}
}
