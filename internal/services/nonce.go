package services

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const nonceTTL = 15 * time.Minute

// NonceStore issues single-use checkout nonces. Classic-layout checkout and
// the status poll endpoint must present one; the block-layout flow is keyed
// by the order key instead.
type NonceStore struct {
	cache *RedisCache
}

func NewNonceStore(cache *RedisCache) *NonceStore {
	return &NonceStore{cache: cache}
}

func (s *NonceStore) Issue(ctx context.Context) (string, error) {
	nonce := uuid.NewString()
	if err := s.cache.Set(ctx, "checkout_nonce:"+nonce, "1", nonceTTL); err != nil {
		return "", err
	}
	return nonce, nil
}

// Verify checks a nonce without consuming it; the same nonce covers the
// checkout submit and the poll requests that follow it within the TTL.
func (s *NonceStore) Verify(ctx context.Context, nonce string) (bool, error) {
	if nonce == "" {
		return false, nil
	}
	return s.cache.Exists(ctx, "checkout_nonce:"+nonce)
}
