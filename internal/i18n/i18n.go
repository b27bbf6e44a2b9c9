package i18n

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"

	"github.com/cubik-ai/cubik-bot/internal/config"
)

// Message IDs for all user-visible strings.
const (
	MsgWelcomeStandard = "welcome_standard"
	MsgWelcomeGold     = "welcome_gold"
	MsgAnswerFooter    = "answer_footer"
	MsgRateLimited     = "rate_limited"
	MsgQuotaExceeded   = "quota_exceeded"
	MsgTechError       = "tech_error"
	MsgAIDisabled      = "ai_disabled"
	MsgAIDisabledAsk   = "ai_disabled_ask"
	MsgHistoryTitle    = "history_title"
	MsgHistoryEmpty    = "history_empty"
	MsgHistoryCleared  = "history_cleared"
	MsgDocGoldOnly     = "doc_gold_only"
	MsgDocWrongFormat  = "doc_wrong_format"
	MsgDocLoaded       = "doc_loaded"
	MsgDocFailed       = "doc_failed"
	MsgReferralInfo    = "referral_info"
	MsgPremiumPitch    = "premium_pitch"
	MsgFeatures        = "features"
	MsgRestartDone     = "restart_done"
	MsgDocxMenu        = "docx_menu"
	MsgUnknownCommand  = "unknown_command"

	BtnNews         = "btn_news"
	BtnCommands     = "btn_commands"
	BtnInvite       = "btn_invite"
	BtnBuyGold      = "btn_buy_gold"
	BtnFeatures     = "btn_features"
	BtnActivateAI   = "btn_activate_ai"
	BtnBack         = "btn_back"
	BtnMainMenu     = "btn_main_menu"
	BtnClearHistory = "btn_clear_history"
	BtnShare        = "btn_share"
	BtnBuy          = "btn_buy"
	BtnRestart      = "btn_restart"
)

// Localizer manages the message catalogs.
type Localizer struct {
	bundle          *i18n.Bundle
	defaultLanguage string
	localizers      map[string]*i18n.Localizer
}

// NewLocalizer loads the configured language files.
func NewLocalizer(cfg *config.I18nConfig) (*Localizer, error) {
	bundle := i18n.NewBundle(language.English)
	bundle.RegisterUnmarshalFunc("json", json.Unmarshal)

	for _, lang := range cfg.Languages {
		path := filepath.Join(cfg.Directory, lang+".json")
		if _, err := bundle.LoadMessageFile(path); err != nil {
			return nil, fmt.Errorf("failed to load language file %s: %w", path, err)
		}
	}

	localizers := make(map[string]*i18n.Localizer)
	for _, lang := range cfg.Languages {
		localizers[lang] = i18n.NewLocalizer(bundle, lang)
	}

	return &Localizer{
		bundle:          bundle,
		defaultLanguage: cfg.DefaultLanguage,
		localizers:      localizers,
	}, nil
}

// Get returns the localized message, falling back to the default language
// and finally to the message ID itself.
func (l *Localizer) Get(lang, messageID string, data map[string]interface{}) string {
	localizer, exists := l.localizers[lang]
	if !exists {
		localizer = l.localizers[l.defaultLanguage]
	}

	msg, err := localizer.Localize(&i18n.LocalizeConfig{
		MessageID:    messageID,
		TemplateData: data,
	})
	if err != nil {
		return messageID
	}
	return msg
}
