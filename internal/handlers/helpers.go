package handlers

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/cubik-ai/cubik-bot/internal/i18n"
	"github.com/cubik-ai/cubik-bot/internal/models"
)

// Callback tokens carried in inline keyboard buttons.
const (
	cbActivateAI   = "activate_ai"
	cbUnlimited    = "unlimited"
	cbInvite       = "invite"
	cbMyHistory    = "my_history"
	cbClearHistory = "clear_history"
	cbMainMenu     = "main_menu"
	cbFeatures     = "features"
)

// userLang picks a supported catalog language from Telegram's language
// code hint.
func userLang(code string) string {
	if strings.HasPrefix(strings.ToLower(code), "ru") {
		return "ru"
	}
	return "en"
}

// preview truncates text for history listings, rune-safe.
func preview(text string, max int) string {
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max]) + "..."
}

func referralLink(botUsername string, userID int64) string {
	return fmt.Sprintf("https://t.me/%s?start=ref_%d", botUsername, userID)
}

func activateKeyboard(loc *i18n.Localizer, lang string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(loc.Get(lang, i18n.BtnActivateAI, nil), cbActivateAI),
		),
	)
}

func buyKeyboard(loc *i18n.Localizer, lang string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(loc.Get(lang, i18n.BtnBuyGold, nil), cbUnlimited),
		),
	)
}

func backKeyboard(loc *i18n.Localizer, lang string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(loc.Get(lang, i18n.BtnBack, nil), cbMainMenu),
		),
	)
}

func mainMenuKeyboard(loc *i18n.Localizer, lang string, tier models.Tier, newsURL, commandsURL string) tgbotapi.InlineKeyboardMarkup {
	rows := [][]tgbotapi.InlineKeyboardButton{
		{
			tgbotapi.NewInlineKeyboardButtonURL(loc.Get(lang, i18n.BtnNews, nil), newsURL),
			tgbotapi.NewInlineKeyboardButtonURL(loc.Get(lang, i18n.BtnCommands, nil), commandsURL),
		},
		{
			tgbotapi.NewInlineKeyboardButtonData(loc.Get(lang, i18n.BtnInvite, nil), cbInvite),
		},
	}
	if tier != models.TierGold {
		rows = append(rows, []tgbotapi.InlineKeyboardButton{
			tgbotapi.NewInlineKeyboardButtonData(loc.Get(lang, i18n.BtnBuyGold, nil), cbUnlimited),
			tgbotapi.NewInlineKeyboardButtonData(loc.Get(lang, i18n.BtnFeatures, nil), cbFeatures),
		})
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}
