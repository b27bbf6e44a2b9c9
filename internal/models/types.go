package models

import (
	"time"
)

// Message represents a single prompt segment sent to the inference backend.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Prompt message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ConversationTurn is one durable user/bot exchange. Serialized into the
// history store as a human-readable object with an ISO-8601 timestamp.
type ConversationTurn struct {
	Timestamp time.Time `json:"timestamp"`
	User      string    `json:"user"`
	Bot       string    `json:"bot"`
}

// Tier is the access class of a user.
type Tier int

const (
	// TierStandard users are subject to per-minute and weekly limits.
	TierStandard Tier = iota
	// TierGold users bypass all limits and may upload documents.
	TierGold
)

func (t Tier) String() string {
	if t == TierGold {
		return "gold"
	}
	return "standard"
}

// OutcomeKind classifies what happened to an incoming message.
type OutcomeKind int

const (
	// OutcomeAnswered means the backend produced a response (possibly the
	// fixed technical-error apology).
	OutcomeAnswered OutcomeKind = iota
	// OutcomeDisabled means the user has switched the AI off.
	OutcomeDisabled
	// OutcomeQuotaExceeded means the weekly cap is exhausted.
	OutcomeQuotaExceeded
	// OutcomeRateLimited means the per-minute cap is exhausted.
	OutcomeRateLimited
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeAnswered:
		return "answered"
	case OutcomeDisabled:
		return "disabled"
	case OutcomeQuotaExceeded:
		return "quota_exceeded"
	case OutcomeRateLimited:
		return "rate_limited"
	default:
		return "unknown"
	}
}

// Result is the outcome of handling one message.
type Result struct {
	Kind OutcomeKind
	// Response is set only for OutcomeAnswered.
	Response string
	// Remaining is the weekly quota left after this request. Meaningless
	// when Unlimited is true.
	Remaining int
	// Unlimited is true for Gold-tier users.
	Unlimited bool
	// Failed is true when the backend errored and Response carries the
	// fixed apology text.
	Failed bool
}

// CacheEntry represents a cached backend response.
type CacheEntry struct {
	Question  string
	Answer    string
	Model     string
	CreatedAt time.Time
}
