package apns

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sideshow/apns2"
	"github.com/sideshow/apns2/token"
)

// Config carries APNs token-authentication credentials. It is injected at
// construction time; the dispatcher holds no process-wide provider state.
type Config struct {
	KeyFile string
	KeyID   string
	TeamID  string
}

// ProviderError reports a delivery attempt the push provider rejected or
// that failed in transit. It is surfaced to the caller without retrying.
type ProviderError struct {
	StatusCode int
	Reason     string
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("apns: %s (status %d)", e.Reason, e.StatusCode)
	}
	return "apns: " + e.Reason
}

// Client is the subset of the apns2 client the dispatcher uses, extracted
// so tests can substitute a double.
type Client interface {
	PushWithContext(ctx apns2.Context, n *apns2.Notification) (*apns2.Response, error)
}

// Dispatcher submits notifications to APNs, selecting the sandbox or
// production environment per request.
type Dispatcher struct {
	sandbox    Client
	production Client
	logger     *slog.Logger
}

// NewDispatcher builds a Dispatcher holding one client per environment,
// both authenticated with the signing key named in cfg.
func NewDispatcher(cfg Config, logger *slog.Logger) (*Dispatcher, error) {
	authKey, err := token.AuthKeyFromFile(cfg.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("loading APNs auth key: %w", err)
	}
	authToken := &token.Token{
		AuthKey: authKey,
		KeyID:   cfg.KeyID,
		TeamID:  cfg.TeamID,
	}
	return NewDispatcherWithClients(
		apns2.NewTokenClient(authToken).Development(),
		apns2.NewTokenClient(authToken).Production(),
		logger,
	), nil
}

// NewDispatcherWithClients wires pre-built clients, one per environment.
func NewDispatcherWithClients(sandbox, production Client, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{sandbox: sandbox, production: production, logger: logger}
}

// Send submits the notification to the selected environment. Failures are
// returned as *ProviderError with the provider's reason attached; the
// caller decides whether to retry.
func (d *Dispatcher) Send(ctx context.Context, n *apns2.Notification, sandbox bool) error {
	client, environment := d.production, "production"
	if sandbox {
		client, environment = d.sandbox, "sandbox"
	}

	resp, err := client.PushWithContext(ctx, n)
	if err != nil {
		d.logger.Error("push delivery failed", "environment", environment, "error", err)
		return &ProviderError{Reason: err.Error()}
	}
	if !resp.Sent() {
		d.logger.Error("push rejected by provider",
			"environment", environment,
			"status", resp.StatusCode,
			"reason", resp.Reason,
		)
		return &ProviderError{StatusCode: resp.StatusCode, Reason: resp.Reason}
	}

	d.logger.Info("notification sent",
		"environment", environment,
		"apns_id", resp.ApnsID,
		"priority", n.Priority,
	)
	return nil
}
