package history

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/cubik-ai/cubik-bot/internal/config"
	"github.com/cubik-ai/cubik-bot/internal/middleware"
	"github.com/cubik-ai/cubik-bot/internal/models"
)

// Storage is the durable conversation log, a mapping from user ID to an
// ordered sequence of turns capped at a fixed number of most-recent
// entries per user.
type Storage interface {
	Load(ctx context.Context) (map[int64][]models.ConversationTurn, error)
	Turns(ctx context.Context, userID int64) ([]models.ConversationTurn, error)
	Append(ctx context.Context, userID int64, turn models.ConversationTurn) error
	Clear(ctx context.Context, userID int64) error
}

// Manager selects and fronts a storage backend, recording operation
// metrics along the way.
type Manager struct {
	storage Storage
	metrics *middleware.Metrics
	logger  *logrus.Logger
}

// NewManager creates a history manager for the configured backend type.
func NewManager(cfg *config.HistoryConfig, metrics *middleware.Metrics, logger *logrus.Logger) (*Manager, error) {
	var storage Storage

	switch strings.ToLower(cfg.Type) {
	case "file":
		storage = NewFileStorage(cfg.File.Path, cfg.MaxTurns, logger)
	case "redis":
		redisStorage, err := NewRedisStorage(&cfg.Redis, cfg.MaxTurns, logger)
		if err != nil {
			return nil, err
		}
		storage = redisStorage
	default:
		return nil, fmt.Errorf("unsupported history storage type: %s", cfg.Type)
	}

	return &Manager{storage: storage, metrics: metrics, logger: logger}, nil
}

func (m *Manager) Load(ctx context.Context) (map[int64][]models.ConversationTurn, error) {
	users, err := m.storage.Load(ctx)
	m.record("load", err)
	return users, err
}

func (m *Manager) Turns(ctx context.Context, userID int64) ([]models.ConversationTurn, error) {
	turns, err := m.storage.Turns(ctx, userID)
	m.record("read", err)
	return turns, err
}

func (m *Manager) Append(ctx context.Context, userID int64, turn models.ConversationTurn) error {
	err := m.storage.Append(ctx, userID, turn)
	m.record("append", err)
	return err
}

func (m *Manager) Clear(ctx context.Context, userID int64) error {
	err := m.storage.Clear(ctx, userID)
	m.record("clear", err)
	return err
}

func (m *Manager) record(operation string, err error) {
	if m.metrics == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.metrics.RecordHistoryOperation(operation, status)
}
