package session

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/tokelabs/sessiond/internal/auth/domain"
)

const keyPrefix = "session:"

// Hash field names for a stored session record.
const (
	fieldUserID     = "user_id"
	fieldAccess     = "access_token"
	fieldAccessExp  = "access_expiration"
	fieldRefresh    = "refresh_token"
	fieldRefreshExp = "refresh_expiration"
)

// rotateScript compares the stored refresh token before replacing the
// record, making rotation a single atomic step on the Redis side. Two
// requests racing to rotate the same session cannot both win.
//
// Returns 0 when the key is missing, 1 on refresh-token mismatch, 2 when the
// record was replaced.
var rotateScript = redis.NewScript(`
local cur = redis.call("HGET", KEYS[1], "refresh_token")
if not cur then
  return 0
end
if cur ~= ARGV[1] then
  return 1
end
redis.call("DEL", KEYS[1])
redis.call("HSET", KEYS[1],
  "user_id", ARGV[2],
  "access_token", ARGV[3],
  "access_expiration", ARGV[4],
  "refresh_token", ARGV[5],
  "refresh_expiration", ARGV[6])
redis.call("EXPIREAT", KEYS[1], ARGV[6])
return 2
`)

const (
	rotateStatusNotFound int64 = 0
	rotateStatusConflict int64 = 1
	rotateStatusRotated  int64 = 2
)

// RedisStore persists session records as Redis hashes keyed by session id,
// with the key TTL pinned to the refresh expiration so abandoned sessions
// evict themselves.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Get(ctx context.Context, sid string) (domain.Session, error) {
	fields, err := s.client.HGetAll(ctx, keyPrefix+sid).Result()
	if err != nil {
		return domain.Session{}, fmt.Errorf("session: get %q: %w", sid, err)
	}
	if len(fields) == 0 {
		return domain.Session{}, ErrNotFound
	}
	return decodeFields(fields)
}

func (s *RedisStore) Put(ctx context.Context, sid string, rec domain.Session) error {
	key := keyPrefix + sid
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key,
			fieldUserID, rec.UserID.String(),
			fieldAccess, rec.AccessToken,
			fieldAccessExp, rec.AccessExpiration,
			fieldRefresh, rec.RefreshToken,
			fieldRefreshExp, rec.RefreshExpiration,
		)
		pipe.ExpireAt(ctx, key, time.Unix(rec.RefreshExpiration, 0))
		return nil
	})
	if err != nil {
		return fmt.Errorf("session: put %q: %w", sid, err)
	}
	return nil
}

func (s *RedisStore) Rotate(ctx context.Context, sid, expectedRefresh string, rec domain.Session) error {
	status, err := rotateScript.Run(ctx, s.client,
		[]string{keyPrefix + sid},
		expectedRefresh,
		rec.UserID.String(),
		rec.AccessToken,
		rec.AccessExpiration,
		rec.RefreshToken,
		rec.RefreshExpiration,
	).Int64()
	if err != nil {
		return fmt.Errorf("session: rotate %q: %w", sid, err)
	}
	switch status {
	case rotateStatusRotated:
		return nil
	case rotateStatusConflict:
		return ErrRotationConflict
	default:
		return ErrNotFound
	}
}

func (s *RedisStore) Delete(ctx context.Context, sid string) error {
	if err := s.client.Del(ctx, keyPrefix+sid).Err(); err != nil {
		return fmt.Errorf("session: delete %q: %w", sid, err)
	}
	return nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func decodeFields(fields map[string]string) (domain.Session, error) {
	userID, err := domain.ParseID[domain.User](fields[fieldUserID])
	if err != nil {
		return domain.Session{}, fmt.Errorf("session: corrupt record: %w", err)
	}
	accessExp, err := strconv.ParseInt(fields[fieldAccessExp], 10, 64)
	if err != nil {
		return domain.Session{}, fmt.Errorf("session: corrupt record: bad access expiration: %w", err)
	}
	refreshExp, err := strconv.ParseInt(fields[fieldRefreshExp], 10, 64)
	if err != nil {
		return domain.Session{}, fmt.Errorf("session: corrupt record: bad refresh expiration: %w", err)
	}
	return domain.Session{
		UserID:            userID,
		AccessToken:       fields[fieldAccess],
		AccessExpiration:  accessExp,
		RefreshToken:      fields[fieldRefresh],
		RefreshExpiration: refreshExp,
	}, nil
}
