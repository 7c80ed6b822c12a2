package liveactivity

import (
	"context"
	"fmt"
	"sync"
)

// Relay sends live-activity transitions to the dispatch relay.
type Relay interface {
	Start(ctx context.Context, token string, content ContentState) error
	Update(ctx context.Context, token string, content ContentState) error
	End(ctx context.Context, token string) error
}

// Session tracks whether a live activity is running for this client
// process and gates start/update/end calls on the required token. At most
// one activity per session; transient states are a busy flag, not
// observable states of their own.
type Session struct {
	tokens *TokenManager
	relay  Relay

	mu     sync.Mutex
	active bool
	busy   bool
}

// NewSession builds a Session over an initialized token manager and a
// relay implementation.
func NewSession(tokens *TokenManager, relay Relay) *Session {
	return &Session{tokens: tokens, relay: relay}
}

// Active reports whether a live activity is currently running.
func (s *Session) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Loading reports whether a transition call is in flight.
func (s *Session) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busy
}

// Start creates a live activity. Allowed only while idle, with a resolved
// start token and structurally valid content; guard failures return before
// any relay call. On relay failure the session stays idle, since the
// activity is presumed not to have been created. On success the manager
// begins watching for the per-session update token.
func (s *Session) Start(ctx context.Context, content ContentState) error {
	token, _ := s.tokens.StartToken()

	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		return ErrBusy
	}
	if s.active {
		s.mu.Unlock()
		return ErrAlreadyActive
	}
	if token == "" {
		s.mu.Unlock()
		return ErrNoStartToken
	}
	if err := content.Validate(); err != nil {
		s.mu.Unlock()
		return err
	}
	s.busy = true
	s.mu.Unlock()

	err := s.relay.Start(ctx, token, content)

	s.mu.Lock()
	s.busy = false
	if err == nil {
		s.active = true
	}
	s.mu.Unlock()

	if err != nil {
		return fmt.Errorf("starting live activity: %w", err)
	}

	// The update token only exists once the platform confirms the
	// activity, so the watch outlives this call.
	s.tokens.WatchUpdateTokens(context.Background())
	return nil
}

// Update refreshes the displayed content of the running activity. Allowed
// only while active and once the update token has been minted. A relay
// failure leaves the session active; the remote state is then unknown.
func (s *Session) Update(ctx context.Context, content ContentState) error {
	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		return ErrBusy
	}
	if !s.active {
		s.mu.Unlock()
		return ErrNotActive
	}
	token := s.tokens.UpdateToken()
	if token == "" {
		s.mu.Unlock()
		return ErrNoUpdateToken
	}
	if err := content.Validate(); err != nil {
		s.mu.Unlock()
		return err
	}
	s.busy = true
	s.mu.Unlock()

	err := s.relay.Update(ctx, token, content)

	s.mu.Lock()
	s.busy = false
	s.mu.Unlock()

	if err != nil {
		return fmt.Errorf("updating live activity: %w", err)
	}
	return nil
}

// End tears down the running activity. On success the update token is
// discarded and the session returns to idle; a second End fails with
// ErrNotActive and performs no relay call.
func (s *Session) End(ctx context.Context) error {
	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		return ErrBusy
	}
	if !s.active {
		s.mu.Unlock()
		return ErrNotActive
	}
	token := s.tokens.UpdateToken()
	if token == "" {
		s.mu.Unlock()
		return ErrNoUpdateToken
	}
	s.busy = true
	s.mu.Unlock()

	err := s.relay.End(ctx, token)

	s.mu.Lock()
	s.busy = false
	if err == nil {
		s.active = false
	}
	s.mu.Unlock()

	if err != nil {
		return fmt.Errorf("ending live activity: %w", err)
	}

	s.tokens.ClearUpdateToken()
	return nil
}
