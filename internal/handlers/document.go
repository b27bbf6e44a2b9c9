package handlers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"github.com/cubik-ai/cubik-bot/internal/i18n"
	"github.com/cubik-ai/cubik-bot/internal/middleware"
	"github.com/cubik-ai/cubik-bot/internal/models"
	"github.com/cubik-ai/cubik-bot/internal/services/docx"
	"github.com/cubik-ai/cubik-bot/internal/session"
	"github.com/cubik-ai/cubik-bot/pkg/logger"
)

// maxDocumentBytes bounds the downloaded file size; the stored text is
// truncated far below this anyway.
const maxDocumentBytes = 20 << 20

// DocumentHandler processes uploaded documents for Gold-tier users.
type DocumentHandler struct {
	sender     *middleware.Sender
	orch       *session.Orchestrator
	metrics    *middleware.Metrics
	localizer  *i18n.Localizer
	logger     *logrus.Logger
	httpClient *http.Client
}

// NewDocumentHandler creates a document handler.
func NewDocumentHandler(
	sender *middleware.Sender,
	orch *session.Orchestrator,
	metrics *middleware.Metrics,
	localizer *i18n.Localizer,
	log *logrus.Logger,
) *DocumentHandler {
	return &DocumentHandler{
		sender:     sender,
		orch:       orch,
		metrics:    metrics,
		localizer:  localizer,
		logger:     log,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

// HandleDocument validates tier and format, extracts the document text
// and stores it in the user's document slot.
func (h *DocumentHandler) HandleDocument(ctx context.Context, update *tgbotapi.Update) error {
	message := update.Message
	if message == nil || message.Document == nil || message.From == nil {
		return nil
	}

	chatID := message.Chat.ID
	userID := message.From.ID
	lang := userLang(message.From.LanguageCode)
	log := logger.WithUser(h.logger, chatID, userID)

	if h.orch.TierOf(userID) != models.TierGold {
		h.metrics.RecordDocumentUpload("not_gold")
		msg := tgbotapi.NewMessage(chatID, h.localizer.Get(lang, i18n.MsgDocGoldOnly, nil))
		msg.ReplyMarkup = buyKeyboard(h.localizer, lang)
		_, err := h.sender.Send(ctx, msg)
		return err
	}

	if !strings.HasSuffix(strings.ToLower(message.Document.FileName), ".docx") {
		h.metrics.RecordDocumentUpload("wrong_format")
		_, err := h.sender.Send(ctx, tgbotapi.NewMessage(chatID, h.localizer.Get(lang, i18n.MsgDocWrongFormat, nil)))
		return err
	}

	text, err := h.fetchAndExtract(ctx, message.Document.FileID)
	if err != nil {
		h.metrics.RecordDocumentUpload("failed")
		log.WithError(err).Warn("Document processing failed")
		reply := h.localizer.Get(lang, i18n.MsgDocFailed, map[string]interface{}{"Error": err.Error()})
		_, sendErr := h.sender.Send(ctx, tgbotapi.NewMessage(chatID, reply))
		return sendErr
	}

	h.orch.HandleDocument(userID, text)
	h.metrics.RecordDocumentUpload("success")
	log.WithField("chars", len(text)).Info("Document stored")

	_, err = h.sender.Send(ctx, tgbotapi.NewMessage(chatID, h.localizer.Get(lang, i18n.MsgDocLoaded, nil)))
	return err
}

func (h *DocumentHandler) fetchAndExtract(ctx context.Context, fileID string) (string, error) {
	url, err := h.sender.Bot().GetFileDirectURL(fileID)
	if err != nil {
		return "", fmt.Errorf("failed to resolve file: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := h.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to download file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("file download returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentBytes))
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}

	return docx.ExtractText(data)
}
