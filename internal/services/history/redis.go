package history

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"github.com/cubik-ai/cubik-bot/internal/config"
	"github.com/cubik-ai/cubik-bot/internal/models"
)

const historyKeyPrefix = "history:"

// RedisStorage keeps each user's log under its own key, so appends touch
// one user at a time instead of rewriting the whole store. The mutex
// still serializes in-process read-modify-writes per the single-writer
// contract.
type RedisStorage struct {
	mu       sync.Mutex
	client   *redis.Client
	maxTurns int
	logger   *logrus.Logger
}

// NewRedisStorage connects to Redis and verifies the connection.
func NewRedisStorage(cfg *config.RedisConfig, maxTurns int, logger *logrus.Logger) (*RedisStorage, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisStorage{client: client, maxTurns: maxTurns, logger: logger}, nil
}

func (r *RedisStorage) Load(ctx context.Context) (map[int64][]models.ConversationTurn, error) {
	users := make(map[int64][]models.ConversationTurn)

	iter := r.client.Scan(ctx, 0, historyKeyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		id, err := strconv.ParseInt(strings.TrimPrefix(key, historyKeyPrefix), 10, 64)
		if err != nil {
			r.logger.WithField("key", key).Warn("Skipping malformed history key")
			continue
		}
		turns, err := r.turns(ctx, id)
		if err != nil {
			return nil, err
		}
		users[id] = turns
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan history keys: %w", err)
	}
	return users, nil
}

func (r *RedisStorage) Turns(ctx context.Context, userID int64) ([]models.ConversationTurn, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.turns(ctx, userID)
}

func (r *RedisStorage) Append(ctx context.Context, userID int64, turn models.ConversationTurn) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	turns, err := r.turns(ctx, userID)
	if err != nil {
		r.logger.WithError(err).Warn("History unreadable, starting fresh for user")
		turns = nil
	}

	turns = append(turns, turn)
	if len(turns) > r.maxTurns {
		turns = turns[len(turns)-r.maxTurns:]
	}

	data, err := json.Marshal(turns)
	if err != nil {
		return fmt.Errorf("failed to marshal history: %w", err)
	}
	return r.client.Set(ctx, r.key(userID), data, 0).Err()
}

func (r *RedisStorage) Clear(ctx context.Context, userID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.client.Del(ctx, r.key(userID)).Err()
}

func (r *RedisStorage) turns(ctx context.Context, userID int64) ([]models.ConversationTurn, error) {
	data, err := r.client.Get(ctx, r.key(userID)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var turns []models.ConversationTurn
	if err := json.Unmarshal([]byte(data), &turns); err != nil {
		return nil, fmt.Errorf("failed to parse history for user %d: %w", userID, err)
	}
	return turns, nil
}

func (r *RedisStorage) key(userID int64) string {
	return historyKeyPrefix + strconv.FormatInt(userID, 10)
}
