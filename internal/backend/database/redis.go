package database

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisKey is the list holding history records
const DefaultRedisKey = "ocrgateway:history"

// RedisStore keeps history as a redis list; RPUSH preserves insertion order
type RedisStore struct {
	client *redis.Client
	key    string
	now    func() time.Time
}

// NewRedisStore connects using a redis:// URL
func NewRedisStore(connectionString string) (HistoryStore, error) {
	opts, err := redis.ParseURL(connectionString)
	if err != nil {
		return nil, fmt.Errorf("invalid redis connection string: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}
	return NewRedisStoreWithClient(client, DefaultRedisKey), nil
}

func NewRedisStoreWithClient(client *redis.Client, key string) *RedisStore {
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisStore{client: client, key: key, now: time.Now}
}

func (s *RedisStore) ListAll(ctx context.Context) ([]Record, error) {
	lines, err := s.client.LRange(ctx, s.key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("reading history list: %w", err)
	}
	records := make([]Record, 0, len(lines))
	for i, line := range lines {
		record, err := ParseRecord([]byte(line))
		if err != nil {
			return nil, fmt.Errorf("history entry %d: %w", i, err)
		}
		records = append(records, record)
	}
	return records, nil
}

func (s *RedisStore) Append(ctx context.Context, record Record) (Record, error) {
	stamped := stamp(record, s.now())
	line, err := encodeRecord(stamped)
	if err != nil {
		return nil, err
	}
	if err := s.client.RPush(ctx, s.key, line[:len(line)-1]).Err(); err != nil {
		return nil, fmt.Errorf("appending history record: %w", err)
	}
	return stamped, nil
}

func (s *RedisStore) Clear(ctx context.Context) error {
	return s.client.Del(ctx, s.key).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
