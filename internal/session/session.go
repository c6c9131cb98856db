// Package session owns the authenticated identity and the token pair.
//
// One [Manager] is created at startup and injected into every component that
// needs a token; it is the sole writer of the token repository. Callers must
// not read [Manager.IsAuthenticated] until [Manager.Hydrate] has resolved and
// [Manager.State] reports [StateReady].
package session

import (
	"context"
	"net/url"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/encore/internal/services"
	"github.com/desertthunder/encore/internal/shared"
	"golang.org/x/oauth2"
)

// State reports whether hydration has resolved yet.
type State int

const (
	StateLoading State = iota
	StateReady
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	default:
		return ""
	}
}

// ProfileFetcher validates an access token by resolving the user it belongs
// to. [services.APIService] implements it.
type ProfileFetcher interface {
	Profile(ctx context.Context, token string) (*services.UserProfile, error)
}

// TokenStore is the durable store for the token pair.
// [repositories.TokenRepository] implements it.
type TokenStore interface {
	Persist(token *oauth2.Token) error
	Load() *oauth2.Token
	Clear() error
}

// Manager holds the session: user profile, token pair, and hydration state.
type Manager struct {
	api    ProfileFetcher
	store  TokenStore
	logger *log.Logger

	mu    sync.RWMutex
	user  *services.UserProfile
	token oauth2.Token
	state State
}

// NewManager creates a Manager in the loading state.
func NewManager(api ProfileFetcher, store TokenStore, logger *log.Logger) *Manager {
	return &Manager{
		api:    api,
		store:  store,
		logger: logger,
		state:  StateLoading,
	}
}

// Hydrate establishes the session once at startup.
//
// Priority order: tokens carried by a login redirect URL win over tokens in
// the durable store; with neither, the session stays unauthenticated. Any
// candidate access token is validated against the backend, and a failed
// validation, invalid token and unreachable backend alike, clears the pair
// from memory and storage. The state becomes ready when Hydrate returns,
// whatever the outcome.
//
// redirect may be nil. When present, its access/refresh query parameters are
// consumed here and must not be displayed or logged by the caller afterwards
// (see shared.RedactURL).
func (m *Manager) Hydrate(ctx context.Context, redirect *url.URL) {
	defer m.setReady()

	if redirect != nil {
		if access := redirect.Query().Get("access"); access != "" {
			refresh := redirect.Query().Get("refresh")
			m.adopt(ctx, access, refresh)
			return
		}
	}

	stored := m.store.Load()
	if stored.AccessToken == "" {
		return
	}
	m.adopt(ctx, stored.AccessToken, stored.RefreshToken)
}

// Login adopts a freshly issued token pair, persists it, and validates it.
// Used by the interactive login flow once the callback server has captured
// the redirect parameters.
func (m *Manager) Login(ctx context.Context, access, refresh string) error {
	defer m.setReady()

	if m.adopt(ctx, access, refresh) {
		return nil
	}
	return shared.ErrAuthFailed
}

// adopt persists a candidate pair and validates it. Returns true when the
// session ends up authenticated.
func (m *Manager) adopt(ctx context.Context, access, refresh string) bool {
	pair := oauth2.Token{AccessToken: access, RefreshToken: refresh}

	m.mu.Lock()
	m.token = pair
	m.mu.Unlock()

	if err := m.store.Persist(&pair); err != nil && m.logger != nil {
		m.logger.Warnf("failed to persist tokens: %v", err)
	}

	profile, err := m.api.Profile(ctx, access)
	if err != nil {
		// Server down and token invalid are treated identically here.
		if m.logger != nil {
			m.logger.Warnf("token validation failed: %v", err)
		}
		m.clear()
		return false
	}

	m.mu.Lock()
	m.user = profile
	m.mu.Unlock()
	return true
}

// SetTokens replaces the token pair in memory and storage as a unit without
// touching the user profile. Intended for token-refresh flows.
func (m *Manager) SetTokens(access, refresh string) {
	pair := oauth2.Token{AccessToken: access, RefreshToken: refresh}

	m.mu.Lock()
	m.token = pair
	m.mu.Unlock()

	if err := m.store.Persist(&pair); err != nil && m.logger != nil {
		m.logger.Warnf("failed to persist tokens: %v", err)
	}
}

// Logout clears the profile, both tokens, and the durable store. Idempotent.
func (m *Manager) Logout() {
	m.clear()
}

func (m *Manager) clear() {
	m.mu.Lock()
	m.user = nil
	m.token = oauth2.Token{}
	m.mu.Unlock()

	if err := m.store.Clear(); err != nil && m.logger != nil {
		m.logger.Warnf("failed to clear stored tokens: %v", err)
	}
}

func (m *Manager) setReady() {
	m.mu.Lock()
	m.state = StateReady
	m.mu.Unlock()
}

// State reports whether hydration has resolved.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// IsAuthenticated reports whether a user profile and an access token are both
// present. Meaningless while State is [StateLoading].
func (m *Manager) IsAuthenticated() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.user != nil && m.token.AccessToken != ""
}

// User returns the current profile snapshot, nil when unauthenticated.
func (m *Manager) User() *services.UserProfile {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.user
}

// AccessToken returns the current access token, empty when absent. Callers
// treat the value as immutable for the duration of one request.
func (m *Manager) AccessToken() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.token.AccessToken
}

// Token returns a copy of the current token pair.
func (m *Manager) Token() oauth2.Token {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.token
}
