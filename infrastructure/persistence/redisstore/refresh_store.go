package redisstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/techstore/storefront/application/port/outbound"
	"github.com/techstore/storefront/domain/entity"
)

const keyPrefix = "refresh:"

// refreshStore keeps one hash per principal. The key expires together with
// the refresh token it points at.
type refreshStore struct {
	client *redis.Client
}

func NewRefreshStore(client *redis.Client) outbound.RefreshStore {
	return &refreshStore{client: client}
}

func refreshKey(principalID string) string {
	return keyPrefix + principalID
}

func (s *refreshStore) FindRefreshPointer(ctx context.Context, principalID string) (*entity.RefreshRecord, error) {
	values, err := s.client.HGetAll(ctx, refreshKey(principalID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read refresh pointer: %w", err)
	}
	tokenID := values["token_id"]
	if tokenID == "" {
		return nil, outbound.ErrRefreshRecordNotFound
	}

	issuedAt, err := parseUnix(values["issued_at"])
	if err != nil {
		return nil, fmt.Errorf("corrupt refresh pointer for %s: %w", principalID, err)
	}
	expiresAt, err := parseUnix(values["expires_at"])
	if err != nil {
		return nil, fmt.Errorf("corrupt refresh pointer for %s: %w", principalID, err)
	}

	return entity.NewRefreshRecord(principalID, tokenID, issuedAt, expiresAt), nil
}

// UpdateRefreshPointer replaces the hash in one MULTI/EXEC. There is no
// WATCH: the last writer wins.
func (s *refreshStore) UpdateRefreshPointer(ctx context.Context, record *entity.RefreshRecord) error {
	if record == nil || record.PrincipalID == "" || record.TokenID == "" {
		return fmt.Errorf("refresh record requires principal and token id")
	}
	key := refreshKey(record.PrincipalID)

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key,
			"token_id", record.TokenID,
			"issued_at", record.IssuedAt.Unix(),
			"expires_at", record.ExpiresAt.Unix(),
		)
		pipe.ExpireAt(ctx, key, record.ExpiresAt)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to write refresh pointer: %w", err)
	}
	return nil
}

func (s *refreshStore) ClearRefreshPointer(ctx context.Context, principalID string) error {
	if err := s.client.Del(ctx, refreshKey(principalID)).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("failed to clear refresh pointer: %w", err)
	}
	return nil
}

func parseUnix(value string) (time.Time, error) {
	var seconds int64
	if _, err := fmt.Sscan(value, &seconds); err != nil {
		return time.Time{}, err
	}
	return time.Unix(seconds, 0).UTC(), nil
}
