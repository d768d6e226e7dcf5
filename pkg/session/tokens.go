// Package session manages the bearer token lifecycle: an in-memory
// access token with an optional durable mirror, and a single-slot
// session-expired notification.
package session

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/pokedexlabs/pokedex-client/pkg/cache"
)

// mirrorKey is the single durable key holding the raw token string when
// mirroring is enabled. No envelope, just the bearer value. It lives
// outside the response-cache namespace so cache sweeps never touch it.
const mirrorKey = "pokedex_session:access_token"

// Tokens owns the access token. The in-memory value is the source of
// truth; when a mirror store is configured the value is written through
// on every set and read back only when memory is empty (e.g. after a
// process restart). The refresh credential itself is never held here:
// it is an HTTP-only cookie managed by the server and carried by the
// client's cookie jar.
type Tokens struct {
	mu        sync.Mutex
	token     string
	mirror    cache.Store
	logger    zerolog.Logger
	onExpired func()
}

// Option configures a Tokens service.
type Option func(*Tokens)

// WithMirror enables the durable token mirror backed by store.
func WithMirror(store cache.Store) Option {
	return func(s *Tokens) { s.mirror = store }
}

// WithLogger overrides the component logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Tokens) { s.logger = logger }
}

// New creates a token service. Without WithMirror the token lives in
// memory only.
func New(opts ...Option) *Tokens {
	s := &Tokens{
		logger: log.With().Str("component", "session").Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AccessToken returns the current token, or "" when unauthenticated.
// When memory is empty and a mirror is configured, the mirrored copy is
// promoted into memory.
func (s *Tokens) AccessToken(ctx context.Context) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token != "" || s.mirror == nil {
		return s.token
	}

	raw, err := s.mirror.Get(ctx, mirrorKey)
	if err != nil {
		if err != cache.ErrNotFound {
			s.logger.Warn().Err(err).Msg("Token mirror read failed")
		}
		return ""
	}

	s.token = string(raw)
	s.logger.Debug().Msg("Access token restored from mirror")
	return s.token
}

// SetAccessToken replaces the current token. An empty token clears the
// session. Mirror failures are logged, never propagated: the in-memory
// token remains authoritative.
func (s *Tokens) SetAccessToken(ctx context.Context, token string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.token = token
	if s.mirror == nil {
		return
	}

	var err error
	if token == "" {
		err = s.mirror.Delete(ctx, mirrorKey)
	} else {
		err = s.mirror.Set(ctx, mirrorKey, []byte(token))
	}
	if err != nil {
		s.logger.Warn().Err(err).Msg("Token mirror write failed")
	}
}

// Clear drops the token from memory and the mirror.
func (s *Tokens) Clear(ctx context.Context) {
	s.SetAccessToken(ctx, "")
}

// OnExpired registers the session-expired callback. The slot holds at
// most one listener; registering overwrites any previous one.
func (s *Tokens) OnExpired(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onExpired = fn
}

// ClearOnExpired removes the registered callback.
func (s *Tokens) ClearOnExpired() {
	s.OnExpired(nil)
}

// NotifyExpired invokes the registered callback, if any. Safe to call
// with no listener. The caller (the request pipeline) guarantees one
// invocation per failed-refresh episode.
func (s *Tokens) NotifyExpired() {
	s.mu.Lock()
	fn := s.onExpired
	s.mu.Unlock()

	if fn != nil {
		fn()
	}
}
