package history

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/cubik-ai/cubik-bot/internal/models"
)

// FileStorage keeps the whole log in one human-readable JSON file: a map
// from decimal user ID to an ordered array of turns. Every append is a
// full read-modify-write, so a single process-wide mutex serializes all
// access; without it two users' flushes would silently lose updates.
type FileStorage struct {
	mu       sync.Mutex
	path     string
	maxTurns int
	logger   *logrus.Logger
}

// NewFileStorage creates a file-backed log at path, capping each user at
// maxTurns most-recent entries.
func NewFileStorage(path string, maxTurns int, logger *logrus.Logger) *FileStorage {
	return &FileStorage{path: path, maxTurns: maxTurns, logger: logger}
}

func (f *FileStorage) Load(ctx context.Context) (map[int64][]models.ConversationTurn, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.read()
}

func (f *FileStorage) Turns(ctx context.Context, userID int64) ([]models.ConversationTurn, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	users, err := f.read()
	if err != nil {
		return nil, err
	}
	return users[userID], nil
}

func (f *FileStorage) Append(ctx context.Context, userID int64, turn models.ConversationTurn) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	users, err := f.read()
	if err != nil {
		f.logger.WithError(err).Warn("History unreadable, starting a fresh file")
		users = make(map[int64][]models.ConversationTurn)
	}

	turns := append(users[userID], turn)
	if len(turns) > f.maxTurns {
		turns = turns[len(turns)-f.maxTurns:]
	}
	users[userID] = turns

	return f.write(users)
}

func (f *FileStorage) Clear(ctx context.Context, userID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	users, err := f.read()
	if err != nil {
		return err
	}
	if _, ok := users[userID]; !ok {
		return nil
	}
	delete(users, userID)
	return f.write(users)
}

// read parses the store file. A missing file is an empty store.
func (f *FileStorage) read() (map[int64][]models.ConversationTurn, error) {
	data, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		return make(map[int64][]models.ConversationTurn), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read history file: %w", err)
	}

	var raw map[string][]models.ConversationTurn
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse history file: %w", err)
	}

	users := make(map[int64][]models.ConversationTurn, len(raw))
	for key, turns := range raw {
		id, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			f.logger.WithField("key", key).Warn("Skipping malformed user key in history file")
			continue
		}
		users[id] = turns
	}
	return users, nil
}

// write replaces the store file via a temp file and rename, so a crash
// mid-write leaves the previous version intact rather than a torn file.
func (f *FileStorage) write(users map[int64][]models.ConversationTurn) error {
	raw := make(map[string][]models.ConversationTurn, len(users))
	for id, turns := range users {
		raw[strconv.FormatInt(id, 10)] = turns
	}

	data, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal history: %w", err)
	}

	dir := filepath.Dir(f.path)
	tmp, err := os.CreateTemp(dir, ".history-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp history file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write history: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp history file: %w", err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace history file: %w", err)
	}
	return nil
}
