package liveactivity

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeRelay struct {
	mu          sync.Mutex
	startCalls  int
	updateCalls int
	endCalls    int
	startErr    error
	updateErr   error
	endErr      error
	lastToken   string
	blockStart  chan struct{} // when non-nil, Start blocks until closed
}

func (f *fakeRelay) Start(ctx context.Context, token string, content ContentState) error {
	f.mu.Lock()
	f.startCalls++
	f.lastToken = token
	block := f.blockStart
	err := f.startErr
	f.mu.Unlock()
	if block != nil {
		<-block
	}
	return err
}

func (f *fakeRelay) Update(ctx context.Context, token string, content ContentState) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updateCalls++
	f.lastToken = token
	return f.updateErr
}

func (f *fakeRelay) End(ctx context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.endCalls++
	f.lastToken = token
	return f.endErr
}

func (f *fakeRelay) counts() (int, int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.startCalls, f.updateCalls, f.endCalls
}

func validContent() ContentState {
	return ContentState{Type: ContentTypePreGame, Title: "Game", StartTimeMs: 1000, EndTimeMs: 2000}
}

// newTestSession returns a session whose manager resolved a fresh start
// token and whose source will mint "update-token" once an activity runs.
func newTestSession(t *testing.T, relay *fakeRelay) (*Session, *TokenManager) {
	t.Helper()
	updates := make(chan string, 1)
	updates <- "update-token"
	source := &fakeSource{supported: true, startToken: "start-token", updates: updates}
	manager := NewTokenManager(source, newMemCache(), WithInitTimeout(time.Second))
	manager.Initialize(context.Background())
	t.Cleanup(manager.Close)
	return NewSession(manager, relay), manager
}

func waitForUpdateToken(t *testing.T, manager *TokenManager) {
	t.Helper()
	require.Eventually(t, func() bool {
		return manager.UpdateToken() != ""
	}, time.Second, 10*time.Millisecond)
}

func TestStartFromIdleSucceeds(t *testing.T) {
	relay := &fakeRelay{}
	session, manager := newTestSession(t, relay)

	require.NoError(t, session.Start(context.Background(), validContent()))
	require.True(t, session.Active())
	require.Equal(t, "start-token", relay.lastToken)

	// A successful start triggers update-token acquisition.
	waitForUpdateToken(t, manager)
}

func TestStartTwiceFailsUntilEnd(t *testing.T) {
	relay := &fakeRelay{}
	session, manager := newTestSession(t, relay)

	require.NoError(t, session.Start(context.Background(), validContent()))
	err := session.Start(context.Background(), validContent())
	require.ErrorIs(t, err, ErrAlreadyActive)

	starts, _, _ := relay.counts()
	require.Equal(t, 1, starts)

	waitForUpdateToken(t, manager)
	require.NoError(t, session.End(context.Background()))
	require.NoError(t, session.Start(context.Background(), validContent()))
}

func TestStartWithoutTokenFailsFast(t *testing.T) {
	relay := &fakeRelay{}
	source := &fakeSource{supported: true, startErr: errors.New("unavailable")}
	manager := NewTokenManager(source, newMemCache(), WithInitTimeout(time.Second))
	manager.Initialize(context.Background())
	session := NewSession(manager, relay)

	err := session.Start(context.Background(), validContent())
	require.ErrorIs(t, err, ErrNoStartToken)

	starts, _, _ := relay.counts()
	require.Zero(t, starts, "guard failures must not reach the relay")
}

func TestStartWithInvalidContentMakesNoRelayCall(t *testing.T) {
	relay := &fakeRelay{}
	session, _ := newTestSession(t, relay)

	invalid := validContent()
	invalid.Title = "   "
	err := session.Start(context.Background(), invalid)

	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	require.Equal(t, "title", validationErr.Field)

	starts, _, _ := relay.counts()
	require.Zero(t, starts)
	require.False(t, session.Active())
}

func TestStartRevertsToIdleOnRelayFailure(t *testing.T) {
	relay := &fakeRelay{startErr: errors.New("provider down")}
	session, _ := newTestSession(t, relay)

	err := session.Start(context.Background(), validContent())
	require.Error(t, err)
	require.False(t, session.Active(), "failed start must revert to idle")

	relay.startErr = nil
	require.NoError(t, session.Start(context.Background(), validContent()))
	require.True(t, session.Active())
}

func TestUpdateRequiresActiveSession(t *testing.T) {
	relay := &fakeRelay{}
	session, _ := newTestSession(t, relay)

	err := session.Update(context.Background(), validContent())
	require.ErrorIs(t, err, ErrNotActive)

	_, updates, _ := relay.counts()
	require.Zero(t, updates)
}

func TestUpdateRequiresUpdateToken(t *testing.T) {
	relay := &fakeRelay{}
	// A source whose update stream never yields.
	source := &fakeSource{supported: true, startToken: "start-token", updates: make(chan string)}
	manager := NewTokenManager(source, newMemCache(), WithInitTimeout(time.Second))
	manager.Initialize(context.Background())
	t.Cleanup(manager.Close)
	session := NewSession(manager, relay)

	require.NoError(t, session.Start(context.Background(), validContent()))
	err := session.Update(context.Background(), validContent())
	require.ErrorIs(t, err, ErrNoUpdateToken)
}

func TestUpdateStaysActiveOnRelayFailure(t *testing.T) {
	relay := &fakeRelay{updateErr: errors.New("provider down")}
	session, manager := newTestSession(t, relay)

	require.NoError(t, session.Start(context.Background(), validContent()))
	waitForUpdateToken(t, manager)

	err := session.Update(context.Background(), validContent())
	require.Error(t, err)
	require.True(t, session.Active(), "remote state is unknown, local stays active")
}

func TestEndClearsTokenAndSecondEndFails(t *testing.T) {
	relay := &fakeRelay{}
	session, manager := newTestSession(t, relay)

	require.NoError(t, session.Start(context.Background(), validContent()))
	waitForUpdateToken(t, manager)

	require.NoError(t, session.End(context.Background()))
	require.False(t, session.Active())
	require.Empty(t, manager.UpdateToken())

	err := session.End(context.Background())
	require.ErrorIs(t, err, ErrNotActive)

	_, _, ends := relay.counts()
	require.Equal(t, 1, ends, "second end must not reach the relay")
}

func TestEndStaysActiveOnRelayFailure(t *testing.T) {
	relay := &fakeRelay{endErr: errors.New("provider down")}
	session, manager := newTestSession(t, relay)

	require.NoError(t, session.Start(context.Background(), validContent()))
	waitForUpdateToken(t, manager)

	err := session.End(context.Background())
	require.Error(t, err)
	require.True(t, session.Active())
	require.NotEmpty(t, manager.UpdateToken(), "token kept while remote state is unknown")
}

func TestCallsWhileBusyFailFast(t *testing.T) {
	block := make(chan struct{})
	relay := &fakeRelay{blockStart: block}
	session, _ := newTestSession(t, relay)

	done := make(chan error, 1)
	go func() {
		done <- session.Start(context.Background(), validContent())
	}()

	require.Eventually(t, session.Loading, time.Second, 5*time.Millisecond)

	require.ErrorIs(t, session.Start(context.Background(), validContent()), ErrBusy)
	require.ErrorIs(t, session.Update(context.Background(), validContent()), ErrBusy)
	require.ErrorIs(t, session.End(context.Background()), ErrBusy)

	close(block)
	require.NoError(t, <-done)
	require.True(t, session.Active())
	require.False(t, session.Loading())
}
