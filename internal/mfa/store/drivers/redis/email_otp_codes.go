// Package redis stores email one-time codes in Redis. Each user has at most
// one hash under mfa:email_otp:{user_id}; issuing a new code overwrites it and
// the key expires together with the code.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aussiebroadwan/bartab-mfa/internal/mfa/domain"
	"github.com/aussiebroadwan/bartab-mfa/internal/mfa/store"
	goredis "github.com/redis/go-redis/v9"
)

const keyPrefix = "mfa:email_otp:"

// markUsed flips used to 1 only when the stored id matches and the code is
// still unused. Returns 1 on success.
var markUsed = goredis.NewScript(`
local id = redis.call("HGET", KEYS[1], "id")
if id ~= ARGV[1] then
  return 0
end
if redis.call("HGET", KEYS[1], "used") ~= "0" then
  return 0
end
redis.call("HSET", KEYS[1], "used", "1")
return 1
`)

// EmailOTPCodes implements store.EmailOTPCodes on top of a Redis client.
type EmailOTPCodes struct {
	client goredis.UniversalClient
}

var _ store.EmailOTPCodes = (*EmailOTPCodes)(nil)

func NewEmailOTPCodes(client goredis.UniversalClient) *EmailOTPCodes {
	return &EmailOTPCodes{client: client}
}

// Connect parses a redis:// URL and verifies the server is reachable.
func Connect(ctx context.Context, url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := goredis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

func key(userID string) string { return keyPrefix + userID }

func (s *EmailOTPCodes) ReplaceEmailOTPCode(ctx context.Context, code domain.EmailOTPCode) error {
	k := key(code.UserID)

	_, err := s.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Del(ctx, k)
		pipe.HSet(ctx, k,
			"id", code.ID,
			"user_id", code.UserID,
			"code_hash", code.CodeHash,
			"expires_at", code.ExpiresAt.UTC().Format(time.RFC3339Nano),
			"used", "0",
			"created_at", code.CreatedAt.UTC().Format(time.RFC3339Nano),
		)
		pipe.ExpireAt(ctx, k, code.ExpiresAt)
		return nil
	})
	return err
}

func (s *EmailOTPCodes) GetActiveEmailOTPCode(ctx context.Context, userID string, now time.Time) (domain.EmailOTPCode, error) {
	fields, err := s.client.HGetAll(ctx, key(userID)).Result()
	if err != nil {
		return domain.EmailOTPCode{}, err
	}
	if len(fields) == 0 {
		return domain.EmailOTPCode{}, store.ErrNotFound
	}

	code, err := decode(fields)
	if err != nil {
		return domain.EmailOTPCode{}, err
	}
	if !code.Active(now) {
		return domain.EmailOTPCode{}, store.ErrNotFound
	}
	return code, nil
}

func (s *EmailOTPCodes) MarkEmailOTPCodeUsed(ctx context.Context, userID, id string) (bool, error) {
	n, err := markUsed.Run(ctx, s.client, []string{key(userID)}, id).Int()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return false, nil
		}
		return false, err
	}
	return n == 1, nil
}

// DeleteExpiredEmailOTPCodes is a no-op; keys carry their own TTL.
func (s *EmailOTPCodes) DeleteExpiredEmailOTPCodes(ctx context.Context, now time.Time) error {
	return nil
}

func decode(fields map[string]string) (domain.EmailOTPCode, error) {
	expiresAt, err := time.Parse(time.RFC3339Nano, fields["expires_at"])
	if err != nil {
		return domain.EmailOTPCode{}, fmt.Errorf("decode expires_at: %w", err)
	}
	createdAt, err := time.Parse(time.RFC3339Nano, fields["created_at"])
	if err != nil {
		return domain.EmailOTPCode{}, fmt.Errorf("decode created_at: %w", err)
	}
	used, err := strconv.ParseBool(fields["used"])
	if err != nil {
		return domain.EmailOTPCode{}, fmt.Errorf("decode used: %w", err)
	}

	return domain.EmailOTPCode{
		ID:        fields["id"],
		UserID:    fields["user_id"],
		CodeHash:  fields["code_hash"],
		ExpiresAt: expiresAt,
		Used:      used,
		CreatedAt: createdAt,
	}, nil
}
