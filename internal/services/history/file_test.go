package history

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/cubik-ai/cubik-bot/internal/models"
)

func newTestFileStorage(t *testing.T) *FileStorage {
	t.Helper()
	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetLevel(logrus.PanicLevel)
	return NewFileStorage(filepath.Join(t.TempDir(), "chat_history.json"), 20, log)
}

func turn(i int) models.ConversationTurn {
	return models.ConversationTurn{
		Timestamp: time.Date(2025, 6, 1, 12, 0, i, 0, time.UTC),
		User:      fmt.Sprintf("question-%d", i),
		Bot:       fmt.Sprintf("answer-%d", i),
	}
}

func TestFileStorageMissingFileIsEmpty(t *testing.T) {
	storage := newTestFileStorage(t)

	users, err := storage.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(users) != 0 {
		t.Errorf("missing file should load as empty store, got %d users", len(users))
	}
}

func TestFileStorageAppendCapsAtTwenty(t *testing.T) {
	storage := newTestFileStorage(t)
	ctx := context.Background()

	for i := 0; i < 25; i++ {
		if err := storage.Append(ctx, 1, turn(i)); err != nil {
			t.Fatalf("Append %d: %v", i, err)
		}
	}

	turns, err := storage.Turns(ctx, 1)
	if err != nil {
		t.Fatalf("Turns: %v", err)
	}
	if len(turns) != 20 {
		t.Fatalf("log holds %d turns, want 20", len(turns))
	}
	if turns[0].User != "question-5" {
		t.Errorf("oldest kept turn = %q, want question-5", turns[0].User)
	}
	if turns[19].User != "question-24" {
		t.Errorf("newest turn = %q, want question-24", turns[19].User)
	}
}

func TestFileStorageRoundTrip(t *testing.T) {
	storage := newTestFileStorage(t)
	ctx := context.Background()

	want := turn(0)
	if err := storage.Append(ctx, 7, want); err != nil {
		t.Fatalf("Append: %v", err)
	}

	// A fresh storage over the same file sees the same data.
	reopened := NewFileStorage(storage.path, 20, storage.logger)
	users, err := reopened.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	turns := users[7]
	if len(turns) != 1 {
		t.Fatalf("got %d turns, want 1", len(turns))
	}
	if turns[0].User != want.User || turns[0].Bot != want.Bot || !turns[0].Timestamp.Equal(want.Timestamp) {
		t.Errorf("round-trip mismatch: %+v != %+v", turns[0], want)
	}
}

func TestFileStorageOnDiskFormat(t *testing.T) {
	storage := newTestFileStorage(t)
	ctx := context.Background()

	if err := storage.Append(ctx, 123, turn(0)); err != nil {
		t.Fatalf("Append: %v", err)
	}

	data, err := os.ReadFile(storage.path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}

	// User IDs are decimal string keys; timestamps are ISO-8601 strings.
	var raw map[string][]map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("file is not the expected JSON shape: %v", err)
	}
	turns, ok := raw["123"]
	if !ok || len(turns) != 1 {
		t.Fatalf("missing turns under key %q: %v", "123", raw)
	}
	if _, err := time.Parse(time.RFC3339, turns[0]["timestamp"]); err != nil {
		t.Errorf("timestamp %q is not ISO-8601: %v", turns[0]["timestamp"], err)
	}
}

func TestFileStorageClear(t *testing.T) {
	storage := newTestFileStorage(t)
	ctx := context.Background()

	storage.Append(ctx, 1, turn(0))
	storage.Append(ctx, 2, turn(1))

	if err := storage.Clear(ctx, 1); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if turns, _ := storage.Turns(ctx, 1); len(turns) != 0 {
		t.Error("user 1 should be cleared")
	}
	if turns, _ := storage.Turns(ctx, 2); len(turns) != 1 {
		t.Error("user 2 must be untouched")
	}

	// Clearing an already-absent user is a no-op, not an error.
	if err := storage.Clear(ctx, 1); err != nil {
		t.Errorf("second Clear: %v", err)
	}
}

func TestFileStorageRecoversFromCorruptFile(t *testing.T) {
	storage := newTestFileStorage(t)
	ctx := context.Background()

	if err := os.WriteFile(storage.path, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	// Append starts a fresh store rather than failing forever.
	if err := storage.Append(ctx, 1, turn(0)); err != nil {
		t.Fatalf("Append over corrupt file: %v", err)
	}
	turns, err := storage.Turns(ctx, 1)
	if err != nil {
		t.Fatalf("Turns: %v", err)
	}
	if len(turns) != 1 {
		t.Errorf("got %d turns, want 1", len(turns))
	}
}
