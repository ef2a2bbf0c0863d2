package cache

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/ekarpov/bookvault/internal/errs"
)

const (
	downloadPrefix = "download:"
	statePrefix    = "oidc-state:"

	DownloadTokenTTL = 10 * time.Minute
	StateTTL         = 5 * time.Minute
)

// TokenStore keeps the short-lived opaque tokens the service hands out:
// one-time download tokens and OIDC login state. Both expire on their own;
// redemption is a GETDEL so a token can never be used twice.
type TokenStore struct {
	rdb *redis.Client
}

func NewTokenStore(rdb *redis.Client) *TokenStore {
	return &TokenStore{rdb: rdb}
}

// IssueDownloadToken stores storageKey under a fresh opaque token.
func (s *TokenStore) IssueDownloadToken(ctx context.Context, storageKey string) (string, error) {
	token := uuid.NewString()
	if err := s.rdb.Set(ctx, downloadPrefix+token, storageKey, DownloadTokenTTL).Err(); err != nil {
		return "", errors.Wrap(err, "issue download token")
	}
	return token, nil
}

// RedeemDownloadToken atomically consumes the token and returns the storage
// key it was bound to. A second redemption of the same token fails.
func (s *TokenStore) RedeemDownloadToken(ctx context.Context, token string) (string, error) {
	key, err := s.rdb.GetDel(ctx, downloadPrefix+token).Result()
	if errors.Is(err, redis.Nil) {
		return "", errs.NotFound("download token is expired or already used")
	}
	if err != nil {
		return "", errors.Wrap(err, "redeem download token")
	}
	return key, nil
}

// SaveState records an OIDC login state together with the redirect URI the
// flow started with.
func (s *TokenStore) SaveState(ctx context.Context, state, redirectURI string) error {
	if err := s.rdb.Set(ctx, statePrefix+state, redirectURI, StateTTL).Err(); err != nil {
		return errors.Wrap(err, "save oidc state")
	}
	return nil
}

// TakeState consumes the state and returns the stored redirect URI. Unknown
// or replayed states fail.
func (s *TokenStore) TakeState(ctx context.Context, state string) (string, error) {
	uri, err := s.rdb.GetDel(ctx, statePrefix+state).Result()
	if errors.Is(err, redis.Nil) {
		return "", errs.Validation("unknown or expired oidc state")
	}
	if err != nil {
		return "", errors.Wrap(err, "take oidc state")
	}
	return uri, nil
}
