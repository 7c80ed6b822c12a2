package liveactivity

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// Source reports where the current start token came from.
type Source string

const (
	// SourceFresh marks a start token received from the platform this session.
	SourceFresh Source = "fresh"
	// SourceCached marks a start token loaded from storage because the
	// fresh fetch did not complete in time, or failed.
	SourceCached Source = "cached"
	// SourceNone marks the absence of a usable start token.
	SourceNone Source = "none"
)

// TokenSource yields push tokens from the host platform.
type TokenSource interface {
	// Supported reports whether the platform can mint live-activity tokens.
	Supported() bool

	// StartToken resolves once with the first available push-to-start
	// token, or fails.
	StartToken(ctx context.Context) (string, error)

	// UpdateTokens returns a stream of push-to-update tokens for the
	// currently running activity instance. The stream may yield nothing
	// for an unbounded period; re-subscribing restarts it.
	UpdateTokens(ctx context.Context) (<-chan string, error)
}

// TokenCache persists the long-lived start token across process restarts.
// Load returns ErrNotCached when the key has no stored value.
type TokenCache interface {
	Save(ctx context.Context, key, value string) error
	Load(ctx context.Context, key string) (string, error)
	Remove(ctx context.Context, key string) error
}

// StartTokenKey is the cache key under which the start token is stored.
const StartTokenKey = "liveactivity_start_token"

// DefaultInitTimeout bounds how long Initialize waits for a fresh start
// token before falling back to the cache.
const DefaultInitTimeout = 3 * time.Second

// Option configures a TokenManager.
type Option func(*TokenManager)

// WithLogger sets a custom logger for the manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *TokenManager) {
		m.logger = logger
	}
}

// WithInitTimeout overrides the bounded wait for a fresh start token.
func WithInitTimeout(timeout time.Duration) Option {
	return func(m *TokenManager) {
		m.timeout = timeout
	}
}

// TokenManager produces a best-effort start token within a bounded time
// and, once an activity is running, acquires the per-session update token.
type TokenManager struct {
	source  TokenSource
	cache   TokenCache
	timeout time.Duration
	logger  *slog.Logger

	mu          sync.Mutex
	settled     bool
	ready       bool
	startToken  string
	startSource Source
	updateToken string
	stopWatch   context.CancelFunc
}

// NewTokenManager builds a TokenManager over the platform token source and
// a durable cache.
func NewTokenManager(source TokenSource, cache TokenCache, opts ...Option) *TokenManager {
	m := &TokenManager{
		source:      source,
		cache:       cache,
		timeout:     DefaultInitTimeout,
		logger:      slog.Default(),
		startSource: SourceNone,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Initialize resolves the start token: a fresh fetch races a bounded
// timeout, with the cached token as fallback. The first resolution wins
// and is final; a fresh token arriving after the timeout has fired is
// discarded so the state cannot flip once callers have proceeded.
//
// On platforms without live-activity support it short-circuits to a ready
// state with no token and performs no storage or network activity.
func (m *TokenManager) Initialize(ctx context.Context) {
	if !m.source.Supported() {
		m.settle("", SourceNone)
		return
	}

	cached, err := m.cache.Load(ctx, StartTokenKey)
	if err != nil {
		if !errors.Is(err, ErrNotCached) {
			m.logger.Warn("loading cached start token", "error", err)
		}
		cached = ""
	}

	type fetchResult struct {
		token string
		err   error
	}
	fresh := make(chan fetchResult, 1)
	go func() {
		token, err := m.source.StartToken(ctx)
		fresh <- fetchResult{token: token, err: err}
	}()

	timer := time.NewTimer(m.timeout)
	defer timer.Stop()

	select {
	case res := <-fresh:
		if res.err != nil || res.token == "" {
			if res.err != nil {
				m.logger.Warn("fresh start token fetch failed", "error", res.err)
			}
			m.settleFallback(cached)
			return
		}
		if m.settle(res.token, SourceFresh) {
			if err := m.cache.Save(ctx, StartTokenKey, res.token); err != nil {
				m.logger.Warn("persisting start token", "error", err)
			}
		}
	case <-timer.C:
		m.logger.Warn("start token fetch timed out, using cached value", "timeout", m.timeout)
		m.settleFallback(cached)
	case <-ctx.Done():
		m.settleFallback(cached)
	}
}

// settle records the terminal (token, source, ready) triple. Only the
// first call wins; later resolutions report false and are dropped.
func (m *TokenManager) settle(token string, source Source) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.settled {
		return false
	}
	m.settled = true
	m.startToken = token
	m.startSource = source
	m.ready = true
	return true
}

func (m *TokenManager) settleFallback(cached string) {
	if cached != "" {
		m.settle(cached, SourceCached)
		return
	}
	m.settle("", SourceNone)
}

// StartToken returns the resolved start token and its source tag.
func (m *TokenManager) StartToken() (string, Source) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.startToken, m.startSource
}

// Ready reports whether start-token initialization has resolved.
func (m *TokenManager) Ready() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ready
}

// WatchUpdateTokens subscribes to the platform's update-token stream and
// records tokens as they are minted. The stream may stay silent until the
// platform confirms the activity was created, so subscription errors are
// logged and swallowed rather than surfaced. An identical token is not
// re-stored. The watch stops when ctx is cancelled, when a new watch
// replaces it, or on Close.
func (m *TokenManager) WatchUpdateTokens(ctx context.Context) {
	if !m.source.Supported() {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	m.mu.Lock()
	if m.stopWatch != nil {
		m.stopWatch()
	}
	m.stopWatch = cancel
	m.mu.Unlock()

	tokens, err := m.source.UpdateTokens(ctx)
	if err != nil {
		m.logger.Warn("subscribing to update tokens", "error", err)
		cancel()
		return
	}

	go func() {
		defer cancel()
		for {
			select {
			case token, ok := <-tokens:
				if !ok {
					return
				}
				m.storeUpdateToken(token)
			case <-ctx.Done():
				return
			}
		}
	}()
}

func (m *TokenManager) storeUpdateToken(token string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if token == "" || token == m.updateToken {
		return
	}
	m.updateToken = token
	m.logger.Debug("update token acquired")
}

// UpdateToken returns the current session's update token, or "" before
// the platform has minted one.
func (m *TokenManager) UpdateToken() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updateToken
}

// ClearUpdateToken discards the session update token and stops the watch.
// Called when the owning activity ends; the token is only meaningful
// while that activity is running.
func (m *TokenManager) ClearUpdateToken() {
	m.mu.Lock()
	m.updateToken = ""
	stop := m.stopWatch
	m.stopWatch = nil
	m.mu.Unlock()
	if stop != nil {
		stop()
	}
}

// Close cancels any running update-token watch.
func (m *TokenManager) Close() {
	m.mu.Lock()
	stop := m.stopWatch
	m.stopWatch = nil
	m.mu.Unlock()
	if stop != nil {
		stop()
	}
}
