package session

import "fmt"

// DocumentContext manages the per-user single-slot cache of extracted
// document text. Tier enforcement (Gold only) lives in the document
// handler, not here. All methods require the session lock.
type DocumentContext struct {
	maxChars      int
	fragmentChars int
}

// NewDocumentContext creates a document context with the given storage
// and prompt-fragment budgets, in characters.
func NewDocumentContext(maxChars, fragmentChars int) *DocumentContext {
	return &DocumentContext{maxChars: maxChars, fragmentChars: fragmentChars}
}

// Set stores text truncated to the storage budget, replacing any prior
// document.
func (d *DocumentContext) Set(s *Session, text string) {
	s.document = truncate(text, d.maxChars)
}

// Get returns the stored text, or empty if none.
func (d *DocumentContext) Get(s *Session) string {
	return s.document
}

// PromptFragment returns a labeled block holding a bounded prefix of the
// document for prompt injection, or empty if no document is stored.
func (d *DocumentContext) PromptFragment(s *Session) string {
	if s.document == "" {
		return ""
	}
	return fmt.Sprintf("\n\n[USER_DOCUMENT CONTENT]:\n%s", truncate(s.document, d.fragmentChars))
}

// Clear empties the slot.
func (d *DocumentContext) Clear(s *Session) {
	s.document = ""
}

// truncate cuts s to at most n runes. The budgets are character counts,
// so slicing has to respect rune boundaries.
func truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
