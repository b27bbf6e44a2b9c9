package handlers

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"github.com/cubik-ai/cubik-bot/internal/config"
	"github.com/cubik-ai/cubik-bot/internal/i18n"
	"github.com/cubik-ai/cubik-bot/internal/middleware"
	"github.com/cubik-ai/cubik-bot/internal/models"
	"github.com/cubik-ai/cubik-bot/internal/session"
	"github.com/cubik-ai/cubik-bot/pkg/logger"
	"github.com/cubik-ai/cubik-bot/pkg/markdown"
)

// MessageHandler routes plain text messages through the session
// orchestrator and renders the outcome.
type MessageHandler struct {
	config    *config.Config
	sender    *middleware.Sender
	orch      *session.Orchestrator
	metrics   *middleware.Metrics
	localizer *i18n.Localizer
	logger    *logrus.Logger
}

// NewMessageHandler creates a message handler.
func NewMessageHandler(
	cfg *config.Config,
	sender *middleware.Sender,
	orch *session.Orchestrator,
	metrics *middleware.Metrics,
	localizer *i18n.Localizer,
	log *logrus.Logger,
) *MessageHandler {
	return &MessageHandler{
		config:    cfg,
		sender:    sender,
		orch:      orch,
		metrics:   metrics,
		localizer: localizer,
		logger:    log,
	}
}

// HandleMessage processes one incoming text message.
func (h *MessageHandler) HandleMessage(ctx context.Context, update *tgbotapi.Update) error {
	message := update.Message
	if message == nil || message.IsCommand() || message.Text == "" {
		return nil
	}
	if message.From == nil || message.From.ID == h.sender.Bot().Self.ID {
		return nil
	}

	chatID := message.Chat.ID
	userID := message.From.ID
	lang := userLang(message.From.LanguageCode)
	log := logger.WithUser(h.logger, chatID, userID)

	result := h.orch.HandleMessage(ctx, userID, message.Text)
	h.metrics.RecordOutcome(result.Kind.String(), h.orch.TierOf(userID).String())

	switch result.Kind {
	case models.OutcomeDisabled:
		msg := tgbotapi.NewMessage(chatID, h.localizer.Get(lang, i18n.MsgAIDisabledAsk, nil))
		msg.ReplyMarkup = activateKeyboard(h.localizer, lang)
		_, err := h.sender.Send(ctx, msg)
		return err

	case models.OutcomeQuotaExceeded:
		msg := tgbotapi.NewMessage(chatID, h.localizer.Get(lang, i18n.MsgQuotaExceeded, nil))
		msg.ReplyMarkup = buyKeyboard(h.localizer, lang)
		_, err := h.sender.Send(ctx, msg)
		return err

	case models.OutcomeRateLimited:
		msg := tgbotapi.NewMessage(chatID, h.localizer.Get(lang, i18n.MsgRateLimited, nil))
		msg.ReplyMarkup = buyKeyboard(h.localizer, lang)
		_, err := h.sender.Send(ctx, msg)
		return err
	}

	if result.Failed {
		log.Warn("Answering with technical-error apology")
		_, err := h.sender.Send(ctx, tgbotapi.NewMessage(chatID, h.localizer.Get(lang, i18n.MsgTechError, nil)))
		return err
	}

	return h.sendAnswer(ctx, chatID, lang, result)
}

// sendAnswer renders the model reply as Telegram HTML with the quota
// footer for Standard tier, falling back to plain text when the converted
// markup is rejected.
func (h *MessageHandler) sendAnswer(ctx context.Context, chatID int64, lang string, result models.Result) error {
	html, plain := renderAnswer(h.localizer, lang, result, h.orch.QuotaCap(), h.config.Bot.Version)

	msg := tgbotapi.NewMessage(chatID, html)
	msg.ParseMode = tgbotapi.ModeHTML
	if _, err := h.sender.Send(ctx, msg); err != nil {
		h.logger.WithError(err).Debug("HTML send failed, retrying as plain text")
		_, err = h.sender.Send(ctx, tgbotapi.NewMessage(chatID, plain))
		return err
	}
	return nil
}

// renderAnswer builds both renditions of a reply body: converted HTML
// for the first attempt and the raw text for the fallback. The quota
// footer belongs to both, so an answer that trips the HTML parser still
// tells the user how many requests are left.
func renderAnswer(loc *i18n.Localizer, lang string, result models.Result, quotaCap int, version string) (html, plain string) {
	footer := ""
	if !result.Unlimited {
		footer = loc.Get(lang, i18n.MsgAnswerFooter, map[string]interface{}{
			"Remaining": result.Remaining,
			"Cap":       quotaCap,
			"Version":   version,
		})
	}
	html = "Cubik: " + markdown.ToTelegramHTML(result.Response) + footer
	plain = "Cubik: " + result.Response + footer
	return html, plain
}
