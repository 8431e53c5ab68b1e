package snapshot

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/pinto1232/pos-stock-ledger/core/stock"
)

const snapshotKeyPrefix = "snapshot:"

type RedisStore struct {
	client *redis.Client
	key    string
}

// NewRedisStore persists snapshots as one JSON value under snapshot:<key>.
func NewRedisStore(client *redis.Client, key string) *RedisStore {
	return &RedisStore{client: client, key: snapshotKeyPrefix + key}
}

func (s *RedisStore) Load(ctx context.Context) (*stock.Snapshot, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, errors.WithStack(err)
	}

	snap := &stock.Snapshot{}
	if err := json.Unmarshal(data, snap); err != nil {
		return nil, errors.WithMessage(err, "failed to parse snapshot value")
	}
	return snap, nil
}

func (s *RedisStore) Save(ctx context.Context, snap *stock.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return errors.WithStack(err)
	}
	return errors.WithStack(s.client.Set(ctx, s.key, data, 0).Err())
}
