// Package evidence provides a client for the Evidence.com media API: OAuth
// token negotiation with cached reuse, ordered auth-strategy fallback, and
// strict decoding of the vendor's list responses.
package evidence

import (
	"sync"
	"time"
)

// TokenCache holds a single OAuth access token and its expiry behind a
// mutex. It is constructed once at startup and handed to the client, so the
// single-token-reuse behavior lives in an explicit, injectable value rather
// than hidden package state.
type TokenCache struct {
	mu        sync.Mutex
	token     string
	expiresAt time.Time
}

// NewTokenCache returns an empty cache.
func NewTokenCache() *TokenCache {
	return &TokenCache{}
}

// GetValid returns the cached token, or false if none is stored or it has
// expired.
func (c *TokenCache) GetValid() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token == "" || !time.Now().Before(c.expiresAt) {
		return "", false
	}
	return c.token, true
}

// Store caches token for ttl from now. Callers should pass a ttl shortened
// by a refresh margin so a token is never used right at its expiry.
func (c *TokenCache) Store(token string, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
	c.expiresAt = time.Now().Add(ttl)
}
