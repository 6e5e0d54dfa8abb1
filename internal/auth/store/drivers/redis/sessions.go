package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/ehsh01/it-ops-dashboard/internal/auth/domain"
	"github.com/ehsh01/it-ops-dashboard/internal/auth/store"
	goredis "github.com/redis/go-redis/v9"
)

const (
	sessionPrefix     = "session:"
	userSessionPrefix = "user_sessions:"
)

type sessionRecord struct {
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Sessions implements store.Sessions. Each session is a JSON value under
// session:{fingerprint}; user_sessions:{userID} is a set of the user's
// fingerprints used for bulk revocation.
type Sessions struct {
	rdb goredis.UniversalClient
	now func() time.Time
}

func NewSessions(rdb goredis.UniversalClient) *Sessions {
	return &Sessions{rdb: rdb, now: time.Now}
}

var _ store.Sessions = (*Sessions)(nil)

func (s *Sessions) CreateSession(ctx context.Context, sess domain.Session) error {
	ttl := sess.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return nil
	}

	raw, err := json.Marshal(sessionRecord{
		UserID:    sess.UserID,
		CreatedAt: sess.CreatedAt.UTC(),
		ExpiresAt: sess.ExpiresAt.UTC(),
	})
	if err != nil {
		return err
	}

	key := sessionPrefix + sess.ID
	set := userSessionPrefix + sess.UserID

	ok, err := s.rdb.SetNX(ctx, key, raw, ttl).Result()
	if err != nil {
		return err
	}
	if !ok {
		return store.ErrAlreadyExists
	}

	_, err = s.rdb.TxPipelined(ctx, func(p goredis.Pipeliner) error {
		p.SAdd(ctx, set, sess.ID)
		// The index lives at least as long as its newest session.
		p.ExpireGT(ctx, set, ttl)
		p.ExpireNX(ctx, set, ttl)
		return nil
	})
	return err
}

func (s *Sessions) GetSession(ctx context.Context, idHash string) (domain.Session, error) {
	raw, err := s.rdb.Get(ctx, sessionPrefix+idHash).Bytes()
	if errors.Is(err, goredis.Nil) {
		return domain.Session{}, store.ErrNotFound
	}
	if err != nil {
		return domain.Session{}, err
	}

	var rec sessionRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return domain.Session{}, err
	}

	sess := domain.Session{
		ID:        idHash,
		UserID:    rec.UserID,
		CreatedAt: rec.CreatedAt,
		ExpiresAt: rec.ExpiresAt,
	}
	if sess.IsExpired(s.now()) {
		return domain.Session{}, store.ErrNotFound
	}
	return sess, nil
}

func (s *Sessions) DeleteSession(ctx context.Context, idHash string) error {
	key := sessionPrefix + idHash

	raw, err := s.rdb.GetDel(ctx, key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil
	}
	if err != nil {
		return err
	}

	var rec sessionRecord
	if err := json.Unmarshal(raw, &rec); err != nil || rec.UserID == "" {
		return nil
	}
	return s.rdb.SRem(ctx, userSessionPrefix+rec.UserID, idHash).Err()
}

func (s *Sessions) DeleteUserSessions(ctx context.Context, userID string) error {
	set := userSessionPrefix + userID

	ids, err := s.rdb.SMembers(ctx, set).Result()
	if err != nil {
		return err
	}

	keys := make([]string, 0, len(ids)+1)
	for _, id := range ids {
		keys = append(keys, sessionPrefix+id)
	}
	keys = append(keys, set)
	return s.rdb.Del(ctx, keys...).Err()
}

// DeleteExpiredSessions is a no-op; Redis expires session keys itself.
func (s *Sessions) DeleteExpiredSessions(context.Context) error { return nil }

// Ping lets readiness checks cover the session backend.
func (s *Sessions) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}
