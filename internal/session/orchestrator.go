package session

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/cubik-ai/cubik-bot/internal/models"
)

// Apology is the fixed user-visible reply for backend failures. Never
// retried beyond the backend's own single retry, never propagated as a
// crash.
const Apology = "Technical issues. Please try again later."

// Backend produces a response for an assembled prompt. Implementations
// are expected to bound their own latency.
type Backend interface {
	Generate(ctx context.Context, messages []models.Message, userID int64) (string, error)
}

// HistoryStore is the durable conversation log. Failures are degraded to
// "no history" / "save skipped"; the request still completes on volatile
// state.
type HistoryStore interface {
	Load(ctx context.Context) (map[int64][]models.ConversationTurn, error)
	Turns(ctx context.Context, userID int64) ([]models.ConversationTurn, error)
	Append(ctx context.Context, userID int64, turn models.ConversationTurn) error
	Clear(ctx context.Context, userID int64) error
}

// ResponseCache short-circuits repeat questions before they reach the
// backend. A nil cache disables it.
type ResponseCache interface {
	Get(ctx context.Context, question, model string) (string, bool)
	Set(ctx context.Context, question, model, answer string) error
}

// Options carries the orchestrator's collaborators and policy knobs.
type Options struct {
	Store     *Store
	Rate      *RateLimiter
	Quota     *QuotaTracker
	Documents *DocumentContext
	History   HistoryStore
	Backend   Backend
	Cache     ResponseCache
	Clock     Clock
	Logger    *logrus.Logger

	// IsGold reports unlimited-tier membership.
	IsGold func(userID int64) bool
	// SystemPrompt is the rule block prepended to every prompt.
	SystemPrompt string
	// ModelName is used only as the response-cache key.
	ModelName string
	// BufferCap bounds the volatile rolling buffer per user.
	BufferCap int
}

// Orchestrator composes the per-user components to decide, for each
// incoming message, whether AI is enabled, whether rate and quota policy
// admit the request, what prompt to send, and how to record the outcome.
type Orchestrator struct {
	opts Options
}

// NewOrchestrator creates an orchestrator from its collaborators.
func NewOrchestrator(opts Options) *Orchestrator {
	if opts.Clock == nil {
		opts.Clock = SystemClock
	}
	if opts.IsGold == nil {
		opts.IsGold = func(int64) bool { return false }
	}
	return &Orchestrator{opts: opts}
}

// TierOf returns the user's access tier.
func (o *Orchestrator) TierOf(userID int64) models.Tier {
	if o.opts.IsGold(userID) {
		return models.TierGold
	}
	return models.TierStandard
}

// HandleMessage runs the full admission-and-answer pipeline for one
// incoming text message. The user's session lock is held throughout, so
// rapid double-sends from the same user serialize instead of racing the
// windows or the rolling buffer.
func (o *Orchestrator) HandleMessage(ctx context.Context, userID int64, text string) models.Result {
	s := o.opts.Store.Get(userID)
	s.Lock()
	defer s.Unlock()

	s.pushMessage(models.RoleUser, text, o.opts.BufferCap)

	if !s.aiEnabled {
		return models.Result{Kind: models.OutcomeDisabled}
	}

	gold := o.opts.IsGold(userID)
	if !gold {
		if !o.opts.Quota.Allow(s) {
			return models.Result{Kind: models.OutcomeQuotaExceeded}
		}
		if !o.opts.Rate.Allow(s) {
			return models.Result{Kind: models.OutcomeRateLimited}
		}
		// Both checks passed: the request is dispatched, consume a
		// weekly slot. A later backend failure still counts.
		o.opts.Quota.Record(s)
	}

	response, failed := o.generate(ctx, s, userID, text)

	s.pushMessage(models.RoleAssistant, response, o.opts.BufferCap)
	o.appendDurable(ctx, userID, text, response)

	res := models.Result{
		Kind:     models.OutcomeAnswered,
		Response: response,
		Failed:   failed,
	}
	if gold {
		res.Unlimited = true
	} else {
		res.Remaining = o.opts.Quota.Remaining(s)
	}
	return res
}

// generate builds the prompt and calls the backend, consulting the
// response cache first. Returns the reply text and whether it is the
// failure apology.
func (o *Orchestrator) generate(ctx context.Context, s *Session, userID int64, text string) (string, bool) {
	if o.opts.Cache != nil {
		if answer, ok := o.opts.Cache.Get(ctx, text, o.opts.ModelName); ok {
			return answer, false
		}
	}

	prompt := o.buildPrompt(s, text)
	response, err := o.opts.Backend.Generate(ctx, prompt, userID)
	if err != nil {
		o.log().WithError(err).WithField("user_id", userID).Error("Backend request failed")
		return Apology, true
	}

	if o.opts.Cache != nil {
		if err := o.opts.Cache.Set(ctx, text, o.opts.ModelName, response); err != nil {
			o.log().WithError(err).Warn("Failed to cache response")
		}
	}
	return response, false
}

// buildPrompt assembles system rules + document fragment + prior turns +
// the current message. The current message is already the last buffer
// entry, pushed by HandleMessage, so it is not appended twice.
func (o *Orchestrator) buildPrompt(s *Session, text string) []models.Message {
	system := o.opts.SystemPrompt + o.opts.Documents.PromptFragment(s)
	messages := make([]models.Message, 0, len(s.buffer)+1)
	messages = append(messages, models.Message{Role: models.RoleSystem, Content: system})
	messages = append(messages, s.promptTurns()...)
	return messages
}

func (o *Orchestrator) appendDurable(ctx context.Context, userID int64, text, response string) {
	turn := models.ConversationTurn{
		Timestamp: o.opts.Clock.Now(),
		User:      text,
		Bot:       response,
	}
	if err := o.opts.History.Append(ctx, userID, turn); err != nil {
		o.log().WithError(err).WithField("user_id", userID).Error("History save skipped")
	}
}

// HandleDocument stores extracted document text for the user. Tier
// enforcement lives in the transport-side document handler.
func (o *Orchestrator) HandleDocument(userID int64, text string) {
	o.opts.Store.With(userID, func(s *Session) {
		o.opts.Documents.Set(s, text)
	})
}

// Document returns the stored document text, or empty.
func (o *Orchestrator) Document(userID int64) string {
	var text string
	o.opts.Store.With(userID, func(s *Session) {
		text = o.opts.Documents.Get(s)
	})
	return text
}

// SetAIEnabled toggles the user's AI availability. The flag is held in
// memory only; a restart re-enables AI for everyone.
func (o *Orchestrator) SetAIEnabled(userID int64, enabled bool) {
	o.opts.Store.With(userID, func(s *Session) {
		s.aiEnabled = enabled
	})
}

// AIEnabled reports the user's AI availability.
func (o *Orchestrator) AIEnabled(userID int64) bool {
	var enabled bool
	o.opts.Store.With(userID, func(s *Session) {
		enabled = s.aiEnabled
	})
	return enabled
}

// Remaining returns the unused weekly quota for the user, or unlimited
// for Gold tier.
func (o *Orchestrator) Remaining(userID int64) (remaining int, unlimited bool) {
	if o.opts.IsGold(userID) {
		return 0, true
	}
	o.opts.Store.With(userID, func(s *Session) {
		remaining = o.opts.Quota.Remaining(s)
	})
	return remaining, false
}

// QuotaCap returns the configured weekly cap.
func (o *Orchestrator) QuotaCap() int {
	return o.opts.Quota.Cap()
}

// ClearHistory empties the durable log, the volatile buffer and the
// document slot for the user. Idempotent: clearing an already-empty user
// leaves the same empty state.
func (o *Orchestrator) ClearHistory(ctx context.Context, userID int64) error {
	var err error
	o.opts.Store.With(userID, func(s *Session) {
		s.clearBuffer()
		o.opts.Documents.Clear(s)
		err = o.opts.History.Clear(ctx, userID)
	})
	if err != nil {
		o.log().WithError(err).WithField("user_id", userID).Error("Failed to clear durable history")
	}
	return err
}

// History returns the user's durable turns, oldest first.
func (o *Orchestrator) History(ctx context.Context, userID int64) ([]models.ConversationTurn, error) {
	return o.opts.History.Turns(ctx, userID)
}

// AddReferral records that invitee started the bot through inviter's
// referral link. Self-referrals and duplicates are ignored.
func (o *Orchestrator) AddReferral(inviter, invitee int64) bool {
	var added bool
	o.opts.Store.With(inviter, func(s *Session) {
		added = s.addReferral(invitee)
	})
	return added
}

// Referrals returns how many users the inviter has referred.
func (o *Orchestrator) Referrals(inviter int64) int {
	var n int
	o.opts.Store.With(inviter, func(s *Session) {
		n = len(s.referrals)
	})
	return n
}

// LoadHistory seeds the volatile rolling buffers from the durable log.
// Called once at startup; a load failure means starting with empty
// memory, not a crash.
func (o *Orchestrator) LoadHistory(ctx context.Context) error {
	users, err := o.opts.History.Load(ctx)
	if err != nil {
		o.log().WithError(err).Error("History load failed, starting empty")
		return err
	}
	for userID, turns := range users {
		o.opts.Store.With(userID, func(s *Session) {
			for _, turn := range turns {
				s.pushMessage(models.RoleUser, turn.User, o.opts.BufferCap)
				s.pushMessage(models.RoleAssistant, turn.Bot, o.opts.BufferCap)
			}
		})
	}
	o.log().WithField("users", len(users)).Info("History loaded")
	return nil
}

func (o *Orchestrator) log() *logrus.Logger {
	if o.opts.Logger != nil {
		return o.opts.Logger
	}
	return logrus.StandardLogger()
}
