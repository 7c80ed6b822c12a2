package apns

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/sideshow/apns2"
	"github.com/stretchr/testify/require"

	"github.com/Renegades-Studio/live-activity-demo/pkg/liveactivity"
)

type stubClient struct {
	resp  *apns2.Response
	err   error
	calls int
	last  *apns2.Notification
}

func (s *stubClient) PushWithContext(ctx apns2.Context, n *apns2.Notification) (*apns2.Response, error) {
	s.calls++
	s.last = n
	return s.resp, s.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDispatcherSelectsEnvironment(t *testing.T) {
	sandbox := &stubClient{resp: &apns2.Response{StatusCode: http.StatusOK, ApnsID: "id-1"}}
	production := &stubClient{resp: &apns2.Response{StatusCode: http.StatusOK, ApnsID: "id-2"}}
	d := NewDispatcherWithClients(sandbox, production, discardLogger())

	n := BuildNotification(EventStart, "device-token", liveactivity.ContentState{
		Type: liveactivity.ContentTypePreGame, Title: "T", StartTimeMs: 1, EndTimeMs: 2,
	}, time.Now())

	require.NoError(t, d.Send(context.Background(), n, true))
	require.Equal(t, 1, sandbox.calls)
	require.Zero(t, production.calls)

	require.NoError(t, d.Send(context.Background(), n, false))
	require.Equal(t, 1, production.calls)
}

func TestDispatcherSurfacesProviderRejection(t *testing.T) {
	sandbox := &stubClient{resp: &apns2.Response{StatusCode: http.StatusGone, Reason: apns2.ReasonUnregistered}}
	d := NewDispatcherWithClients(sandbox, &stubClient{}, discardLogger())

	err := d.Send(context.Background(), &apns2.Notification{}, true)

	var providerErr *ProviderError
	require.ErrorAs(t, err, &providerErr)
	require.Equal(t, http.StatusGone, providerErr.StatusCode)
	require.Equal(t, apns2.ReasonUnregistered, providerErr.Reason)
}

func TestDispatcherSurfacesTransportError(t *testing.T) {
	production := &stubClient{err: errors.New("connection refused")}
	d := NewDispatcherWithClients(&stubClient{}, production, discardLogger())

	err := d.Send(context.Background(), &apns2.Notification{}, false)

	var providerErr *ProviderError
	require.ErrorAs(t, err, &providerErr)
	require.Zero(t, providerErr.StatusCode)
	require.Contains(t, providerErr.Reason, "connection refused")
}
