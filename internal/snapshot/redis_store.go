package snapshot

import (
	"context"
	"encoding/json"
	"time"

	pkgerrors "github.com/aarluxe/pos-cart/pkg/errors"
	"github.com/aarluxe/pos-cart/pkg/redis"
)

// RedisStore keeps snapshots as JSON strings with a TTL.
type RedisStore struct {
	kv  redis.KV
	ttl time.Duration
}

func NewRedisStore(kv redis.KV, ttl time.Duration) *RedisStore {
	return &RedisStore{kv: kv, ttl: ttl}
}

func (s *RedisStore) Load(ctx context.Context, terminalID string) (*State, error) {
	raw, err := s.kv.Get(ctx, s.kv.CartSnapshotKey(terminalID))
	if err != nil {
		if redis.IsNil(err) {
			return nil, errNotFound(terminalID)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart snapshot")
	}

	var state State
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decode cart snapshot")
	}
	return &state, nil
}

func (s *RedisStore) Save(ctx context.Context, terminalID string, state State) error {
	payload, err := json.Marshal(state)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode cart snapshot")
	}
	if err := s.kv.Set(ctx, s.kv.CartSnapshotKey(terminalID), string(payload), s.ttl); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save cart snapshot")
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, terminalID string) error {
	if err := s.kv.Del(ctx, s.kv.CartSnapshotKey(terminalID)); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete cart snapshot")
	}
	return nil
}
