package session

import (
	"strings"
	"testing"
)

func TestDocumentTruncation(t *testing.T) {
	docs := NewDocumentContext(15000, 2000)
	s := NewStore().Get(1)

	s.Lock()
	defer s.Unlock()

	docs.Set(s, strings.Repeat("a", 20000))
	if got := len([]rune(docs.Get(s))); got != 15000 {
		t.Errorf("stored %d chars, want exactly 15000", got)
	}

	// Short documents are stored untouched.
	docs.Set(s, "short")
	if docs.Get(s) != "short" {
		t.Errorf("short document mangled: %q", docs.Get(s))
	}
}

func TestDocumentTruncationRuneSafe(t *testing.T) {
	docs := NewDocumentContext(5, 3)
	s := NewStore().Get(1)

	s.Lock()
	defer s.Unlock()

	docs.Set(s, "привет мир")
	if got := docs.Get(s); got != "приве" {
		t.Errorf("got %q, want %q", got, "приве")
	}
}

func TestPromptFragment(t *testing.T) {
	docs := NewDocumentContext(15000, 2000)
	s := NewStore().Get(1)

	s.Lock()
	defer s.Unlock()

	if got := docs.PromptFragment(s); got != "" {
		t.Errorf("empty slot should yield empty fragment, got %q", got)
	}

	docs.Set(s, strings.Repeat("b", 10000))
	fragment := docs.PromptFragment(s)
	if !strings.Contains(fragment, "[USER_DOCUMENT CONTENT]:") {
		t.Error("fragment missing label block")
	}
	body := strings.TrimPrefix(fragment, "\n\n[USER_DOCUMENT CONTENT]:\n")
	if len([]rune(body)) != 2000 {
		t.Errorf("fragment body has %d chars of document text, want 2000", len([]rune(body)))
	}
}

func TestDocumentReplaceAndClear(t *testing.T) {
	docs := NewDocumentContext(15000, 2000)
	s := NewStore().Get(1)

	s.Lock()
	defer s.Unlock()

	docs.Set(s, "first")
	docs.Set(s, "second")
	if docs.Get(s) != "second" {
		t.Error("new upload must replace the prior document")
	}

	docs.Clear(s)
	if docs.Get(s) != "" {
		t.Error("Clear must empty the slot")
	}
	docs.Clear(s)
	if docs.Get(s) != "" {
		t.Error("Clear must be idempotent")
	}
}
