package middleware

import (
	"context"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// Sender throttles outgoing Telegram API calls with a global token
// bucket, staying under the Bot API flood limits when many users are
// answered at once.
type Sender struct {
	bot     *tgbotapi.BotAPI
	limiter *rate.Limiter
	logger  *logrus.Logger
}

// NewSender wraps the bot API with a messages-per-second send budget.
func NewSender(bot *tgbotapi.BotAPI, perSecond float64, burst int, logger *logrus.Logger) *Sender {
	return &Sender{
		bot:     bot,
		limiter: rate.NewLimiter(rate.Limit(perSecond), burst),
		logger:  logger,
	}
}

// Send delivers a message once the limiter admits it.
func (s *Sender) Send(ctx context.Context, msg tgbotapi.Chattable) (tgbotapi.Message, error) {
	if err := s.wait(ctx); err != nil {
		return tgbotapi.Message{}, err
	}
	return s.bot.Send(msg)
}

// Request performs a raw API call (callback answers, webhook teardown)
// under the same budget.
func (s *Sender) Request(ctx context.Context, c tgbotapi.Chattable) error {
	if err := s.wait(ctx); err != nil {
		return err
	}
	_, err := s.bot.Request(c)
	return err
}

func (s *Sender) wait(ctx context.Context) error {
	waitCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := s.limiter.Wait(waitCtx); err != nil {
		s.logger.WithError(err).Warn("Outbound send limiter wait aborted")
		return err
	}
	return nil
}

// Bot exposes the wrapped API client for read-only calls.
func (s *Sender) Bot() *tgbotapi.BotAPI {
	return s.bot
}
