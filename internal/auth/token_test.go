package auth

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memRegistry is an in-memory SessionRegistry for tests.
type memRegistry struct {
	mu      sync.Mutex
	entries map[string]string
	ttls    map[string]time.Duration
}

func newMemRegistry() *memRegistry {
	return &memRegistry{
		entries: make(map[string]string),
		ttls:    make(map[string]time.Duration),
	}
}

func (m *memRegistry) Set(_ context.Context, userID, token string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[userID] = token
	m.ttls[userID] = ttl
	return nil
}

func (m *memRegistry) Get(_ context.Context, userID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	token, ok := m.entries[userID]
	if !ok {
		return "", ErrNoSession
	}
	return token, nil
}

func (m *memRegistry) Delete(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, userID)
	delete(m.ttls, userID)
	return nil
}

// fakeClock returns successive instants on each call.
type fakeClock struct {
	mu  sync.Mutex
	t   time.Time
	per time.Duration
}

func (c *fakeClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.t
	c.t = c.t.Add(c.per)
	return t
}

func TestIssue_RegistersTokenWithRemainingLifetime(t *testing.T) {
	registry := newMemRegistry()
	issuer := NewIssuer("secret", 24*time.Hour, registry)

	identity := Identity{ID: "64f0c0ffee0000000000aa01", Username: "ada"}
	token, expiresAt, err := issuer.Issue(context.Background(), identity)

	require.NoError(t, err)
	require.NotEmpty(t, token)
	assert.WithinDuration(t, time.Now().Add(24*time.Hour), expiresAt, time.Minute)

	// Round-trip: the registry holds exactly the issued token.
	stored, err := registry.Get(context.Background(), identity.ID)
	require.NoError(t, err)
	assert.Equal(t, token, stored)

	// Registry TTL mirrors the remaining token lifetime.
	assert.InDelta(t, (24 * time.Hour).Seconds(), registry.ttls[identity.ID].Seconds(), 5)
}

func TestIssue_SecondLoginSupersedesFirst(t *testing.T) {
	registry := newMemRegistry()
	issuer := NewIssuer("secret", 24*time.Hour, registry)
	// Distinct issue times produce distinct token strings.
	issuer.now = (&fakeClock{t: time.Now(), per: time.Second}).now

	identity := Identity{ID: "64f0c0ffee0000000000aa02", Username: "bob"}

	first, _, err := issuer.Issue(context.Background(), identity)
	require.NoError(t, err)
	second, _, err := issuer.Issue(context.Background(), identity)
	require.NoError(t, err)
	require.NotEqual(t, first, second)

	// Only the second token is live; the first still verifies
	// cryptographically but no longer matches the registry.
	stored, err := registry.Get(context.Background(), identity.ID)
	require.NoError(t, err)
	assert.Equal(t, second, stored)
	assert.NotEqual(t, first, stored)

	verifier := NewVerifier("secret")
	_, err = verifier.Verify(first)
	assert.NoError(t, err)
}

func TestIssue_NonPositiveLifetimeFails(t *testing.T) {
	registry := newMemRegistry()
	issuer := NewIssuer("secret", time.Hour, registry)
	// The clock jumps past the expiry between signing and the TTL
	// computation, simulating severe skew.
	issuer.now = (&fakeClock{t: time.Now(), per: 2 * time.Hour}).now

	_, _, err := issuer.Issue(context.Background(), Identity{ID: "u1", Username: "eve"})
	require.ErrorIs(t, err, ErrTokenLifetime)

	// No registry write on failure.
	_, err = registry.Get(context.Background(), "u1")
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestVerify_DecodesClaims(t *testing.T) {
	registry := newMemRegistry()
	issuer := NewIssuer("secret", time.Hour, registry)

	token, _, err := issuer.Issue(context.Background(), Identity{ID: "u42", Username: "grace"})
	require.NoError(t, err)

	claims, err := NewVerifier("secret").Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "u42", claims.ID)
	assert.Equal(t, "grace", claims.Username)
}

func TestVerify_RejectsWrongSecret(t *testing.T) {
	registry := newMemRegistry()
	issuer := NewIssuer("secret", time.Hour, registry)

	token, _, err := issuer.Issue(context.Background(), Identity{ID: "u1", Username: "mallory"})
	require.NoError(t, err)

	_, err = NewVerifier("other-secret").Verify(token)
	assert.Error(t, err)
}
