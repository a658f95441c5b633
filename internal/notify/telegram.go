package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/digitalvishon/taskpay/internal/config"
	"github.com/digitalvishon/taskpay/internal/models/user"
	"github.com/digitalvishon/taskpay/internal/models/withdrawal"
	"github.com/digitalvishon/taskpay/pkg/limiter"
	"github.com/digitalvishon/taskpay/pkg/logger"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Telegram delivers admin notifications through the platform bot.
// Sends are rate limited; the Bot API allows rough 30 msg/sec and
// answers 429 with a retry-after when exceeded.
type Telegram struct {
	bot     *tgbotapi.BotAPI
	limiter *limiter.DynamicRateLimiter
	logger  logger.Logger
	chatID  int64
}

func NewTelegram(cfg *config.Config, logger logger.Logger) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPI(cfg.Telegram.BotToken)
	if err != nil {
		return nil, fmt.Errorf("telegram bot api: %w", err)
	}

	return &Telegram{
		bot:     bot,
		limiter: limiter.NewDynamicRateLimiter(cfg.Telegram.SendInterval, 1),
		logger:  logger,
		chatID:  cfg.Telegram.AdminChatID,
	}, nil
}

// WithdrawalRequested tells the admin chat about a new pending
// withdrawal. Callers treat failures as non-fatal.
func (t *Telegram) WithdrawalRequested(ctx context.Context, u *user.User, w *withdrawal.Withdrawal) error {
	if err := t.limiter.Wait(ctx); err != nil {
		return err
	}

	text := fmt.Sprintf(
		"New withdrawal request %s\n\n"+
			"User: %s (%d)\n"+
			"Amount: %s\n"+
			"Net payout: %s\n"+
			"Method: %s\n"+
			"Account: %s",
		w.DisplayID, u.FirstName, u.TelegramID,
		w.Amount, w.NetAmount, w.Method, w.AccountNumber,
	)

	_, err := t.bot.Send(tgbotapi.NewMessage(t.chatID, text))
	if err != nil {
		var tgErr *tgbotapi.Error
		if errors.As(err, &tgErr) && tgErr.RetryAfter > 0 {
			// Back off to the interval Telegram asked for.
			t.limiter.Update(time.Duration(tgErr.RetryAfter)*time.Second, 1)
		}
		return fmt.Errorf("send withdrawal notification: %w", err)
	}

	return nil
}

// Noop is used when no bot token is configured.
type Noop struct{}

func (Noop) WithdrawalRequested(context.Context, *user.User, *withdrawal.Withdrawal) error {
	return nil
}
