package handlers

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"github.com/cubik-ai/cubik-bot/internal/config"
	"github.com/cubik-ai/cubik-bot/internal/i18n"
	"github.com/cubik-ai/cubik-bot/internal/middleware"
	"github.com/cubik-ai/cubik-bot/internal/models"
	"github.com/cubik-ai/cubik-bot/internal/session"
	"github.com/cubik-ai/cubik-bot/pkg/logger"
)

// CommandHandler handles slash commands and inline keyboard callbacks.
type CommandHandler struct {
	config    *config.Config
	sender    *middleware.Sender
	orch      *session.Orchestrator
	metrics   *middleware.Metrics
	localizer *i18n.Localizer
	logger    *logrus.Logger
}

// NewCommandHandler creates a command handler.
func NewCommandHandler(
	cfg *config.Config,
	sender *middleware.Sender,
	orch *session.Orchestrator,
	metrics *middleware.Metrics,
	localizer *i18n.Localizer,
	log *logrus.Logger,
) *CommandHandler {
	return &CommandHandler{
		config:    cfg,
		sender:    sender,
		orch:      orch,
		metrics:   metrics,
		localizer: localizer,
		logger:    log,
	}
}

// HandleCommand dispatches a slash command.
func (h *CommandHandler) HandleCommand(ctx context.Context, message *tgbotapi.Message) error {
	if message.From == nil {
		return nil
	}

	chatID := message.Chat.ID
	userID := message.From.ID
	lang := userLang(message.From.LanguageCode)

	switch message.Command() {
	case "start":
		h.trackReferral(userID, message.CommandArguments())
		h.orch.SetAIEnabled(userID, true)
		return h.sendMainMenu(ctx, chatID, userID, message.From.FirstName, lang)
	case "stopai":
		h.orch.SetAIEnabled(userID, false)
		msg := tgbotapi.NewMessage(chatID, h.localizer.Get(lang, i18n.MsgAIDisabled, nil))
		msg.ReplyMarkup = activateKeyboard(h.localizer, lang)
		_, err := h.sender.Send(ctx, msg)
		return err
	case "history":
		text := h.historyText(ctx, userID, lang)
		msg := tgbotapi.NewMessage(chatID, text)
		msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData(h.localizer.Get(lang, i18n.BtnClearHistory, nil), cbClearHistory),
			),
		)
		_, err := h.sender.Send(ctx, msg)
		return err
	case "clear":
		h.orch.ClearHistory(ctx, userID)
		_, err := h.sender.Send(ctx, tgbotapi.NewMessage(chatID, h.localizer.Get(lang, i18n.MsgHistoryCleared, nil)))
		return err
	case "ref":
		text := h.referralText(userID, lang)
		msg := tgbotapi.NewMessage(chatID, text)
		msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonURL(
					h.localizer.Get(lang, i18n.BtnShare, nil),
					fmt.Sprintf("tg://msg_url?url=%s", referralLink(h.sender.Bot().Self.UserName, userID)),
				),
			),
		)
		_, err := h.sender.Send(ctx, msg)
		return err
	case "restart":
		h.orch.ClearHistory(ctx, userID)
		h.orch.SetAIEnabled(userID, false)
		msg := tgbotapi.NewMessage(chatID, h.localizer.Get(lang, i18n.MsgRestartDone, nil))
		msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData(h.localizer.Get(lang, i18n.BtnRestart, nil), cbMainMenu),
			),
		)
		_, err := h.sender.Send(ctx, msg)
		return err
	case "fd":
		msg := tgbotapi.NewMessage(chatID, h.localizer.Get(lang, i18n.MsgDocxMenu, nil))
		msg.ReplyMarkup = backKeyboard(h.localizer, lang)
		_, err := h.sender.Send(ctx, msg)
		return err
	default:
		_, err := h.sender.Send(ctx, tgbotapi.NewMessage(chatID, h.localizer.Get(lang, i18n.MsgUnknownCommand, nil)))
		return err
	}
}

// HandleCallbackQuery dispatches an inline keyboard press.
func (h *CommandHandler) HandleCallbackQuery(ctx context.Context, callback *tgbotapi.CallbackQuery) error {
	if callback.Message == nil || callback.From == nil {
		return nil
	}

	chatID := callback.Message.Chat.ID
	messageID := callback.Message.MessageID
	userID := callback.From.ID
	lang := userLang(callback.From.LanguageCode)

	// Acknowledge the press so the client drops its loading state.
	if err := h.sender.Request(ctx, tgbotapi.NewCallback(callback.ID, "")); err != nil {
		h.logger.WithError(err).Debug("Failed to answer callback query")
	}

	switch callback.Data {
	case cbActivateAI:
		h.orch.SetAIEnabled(userID, true)
		return h.editMainMenu(ctx, chatID, messageID, userID, callback.From.FirstName, lang)
	case cbMainMenu:
		return h.editMainMenu(ctx, chatID, messageID, userID, callback.From.FirstName, lang)
	case cbUnlimited:
		text := h.localizer.Get(lang, i18n.MsgPremiumPitch, map[string]interface{}{"UserID": userID})
		markup := tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonURL(h.localizer.Get(lang, i18n.BtnBuy, nil), h.config.Bot.BuyURL),
			),
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData(h.localizer.Get(lang, i18n.BtnBack, nil), cbMainMenu),
			),
		)
		_, err := h.sender.Send(ctx, tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, text, markup))
		return err
	case cbInvite:
		text := h.referralText(userID, lang)
		_, err := h.sender.Send(ctx, tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, text, backKeyboard(h.localizer, lang)))
		return err
	case cbMyHistory:
		text := h.historyText(ctx, userID, lang)
		markup := tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData(h.localizer.Get(lang, i18n.BtnClearHistory, nil), cbClearHistory),
			),
		)
		_, err := h.sender.Send(ctx, tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, text, markup))
		return err
	case cbClearHistory:
		h.orch.ClearHistory(ctx, userID)
		edit := tgbotapi.NewEditMessageText(chatID, messageID, h.localizer.Get(lang, i18n.MsgHistoryCleared, nil))
		_, err := h.sender.Send(ctx, edit)
		return err
	case cbFeatures:
		text := h.localizer.Get(lang, i18n.MsgFeatures, map[string]interface{}{"Cap": h.orch.QuotaCap()})
		markup := tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData(h.localizer.Get(lang, i18n.BtnMainMenu, nil), cbMainMenu),
			),
		)
		_, err := h.sender.Send(ctx, tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, text, markup))
		return err
	}

	return nil
}

// trackReferral parses a ref_<id> deep-link payload from /start.
func (h *CommandHandler) trackReferral(userID int64, payload string) {
	if !strings.HasPrefix(payload, "ref_") {
		return
	}
	inviter, err := strconv.ParseInt(strings.TrimPrefix(payload, "ref_"), 10, 64)
	if err != nil {
		return
	}
	if h.orch.AddReferral(inviter, userID) {
		h.logger.WithFields(logrus.Fields{
			"inviter": inviter,
			"invitee": userID,
		}).Info("Referral recorded")
	}
}

func (h *CommandHandler) mainMenu(userID int64, name, lang string) (string, tgbotapi.InlineKeyboardMarkup) {
	tier := h.orch.TierOf(userID)
	var text string
	if tier == models.TierGold {
		text = h.localizer.Get(lang, i18n.MsgWelcomeGold, map[string]interface{}{
			"Name":      name,
			"Referrals": h.orch.Referrals(userID),
		})
	} else {
		remaining, _ := h.orch.Remaining(userID)
		text = h.localizer.Get(lang, i18n.MsgWelcomeStandard, map[string]interface{}{
			"Name":      name,
			"Remaining": remaining,
			"Cap":       h.orch.QuotaCap(),
		})
	}
	return text, mainMenuKeyboard(h.localizer, lang, tier, h.config.Bot.NewsURL, h.config.Bot.CommandsURL)
}

func (h *CommandHandler) sendMainMenu(ctx context.Context, chatID, userID int64, name, lang string) error {
	text, markup := h.mainMenu(userID, name, lang)
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = markup
	_, err := h.sender.Send(ctx, msg)
	return err
}

func (h *CommandHandler) editMainMenu(ctx context.Context, chatID int64, messageID int, userID int64, name, lang string) error {
	text, markup := h.mainMenu(userID, name, lang)
	_, err := h.sender.Send(ctx, tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, text, markup))
	return err
}

// historyText renders the last displayed turns with short previews.
func (h *CommandHandler) historyText(ctx context.Context, userID int64, lang string) string {
	title := h.localizer.Get(lang, i18n.MsgHistoryTitle, map[string]interface{}{
		"Count": h.config.History.DisplayedTurns,
	})

	turns, err := h.orch.History(ctx, userID)
	if err != nil {
		logger.WithUser(h.logger, 0, userID).WithError(err).Warn("History read failed")
	}
	if len(turns) == 0 {
		return title + "\n\n" + h.localizer.Get(lang, i18n.MsgHistoryEmpty, nil)
	}

	if len(turns) > h.config.History.DisplayedTurns {
		turns = turns[len(turns)-h.config.History.DisplayedTurns:]
	}

	var sb strings.Builder
	sb.WriteString(title)
	sb.WriteString("\n")
	for i, turn := range turns {
		sb.WriteString(fmt.Sprintf("\n%d. [%s]\nYou: %s\nBot: %s\n",
			i+1,
			turn.Timestamp.Format("2006-01-02"),
			preview(turn.User, 50),
			preview(turn.Bot, 50),
		))
	}
	return sb.String()
}

func (h *CommandHandler) referralText(userID int64, lang string) string {
	return h.localizer.Get(lang, i18n.MsgReferralInfo, map[string]interface{}{
		"Link":      referralLink(h.sender.Bot().Self.UserName, userID),
		"Referrals": h.orch.Referrals(userID),
	})
}
