// Command demo walks one live-activity session end to end against a
// running relay, standing in for the mobile app: it initializes the token
// manager with a SQLite cache and a simulated platform token source, then
// starts, updates and ends an activity.
//
// Real device tokens can be supplied via LIVE_ACTIVITY_START_TOKEN and
// LIVE_ACTIVITY_UPDATE_TOKEN; without them, random tokens are generated
// and APNs will reject the dispatch while still exercising the full path.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/Renegades-Studio/live-activity-demo/internal/tokencache"
	"github.com/Renegades-Studio/live-activity-demo/pkg/liveactivity"
)

// simulatedSource stands in for the OS token capability.
type simulatedSource struct {
	startToken  string
	updateToken string
	startDelay  time.Duration
}

func (s *simulatedSource) Supported() bool { return true }

func (s *simulatedSource) StartToken(ctx context.Context) (string, error) {
	select {
	case <-time.After(s.startDelay):
		return s.startToken, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (s *simulatedSource) UpdateTokens(ctx context.Context) (<-chan string, error) {
	ch := make(chan string, 1)
	ch <- s.updateToken
	return ch, nil
}

func main() {
	var (
		relayURL = flag.String("relay", "http://localhost:3000", "base URL of the dispatch relay")
		sandbox  = flag.Bool("sandbox", true, "use the sandbox push environment")
		title    = flag.String("title", "Demo Game", "activity title")
		duration = flag.Duration("duration", 10*time.Minute, "countdown duration")
	)
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	ctx := context.Background()

	cacheDir, err := os.UserCacheDir()
	if err != nil {
		cacheDir = os.TempDir()
	}
	cacheDir = filepath.Join(cacheDir, "liveactivity-demo")
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		logger.Error("creating cache dir", "error", err)
		os.Exit(1)
	}
	cache, err := tokencache.Open(filepath.Join(cacheDir, "tokens.db"))
	if err != nil {
		logger.Error("opening token cache", "error", err)
		os.Exit(1)
	}
	defer cache.Close()

	source := &simulatedSource{
		startToken:  envOr("LIVE_ACTIVITY_START_TOKEN", uuid.NewString()),
		updateToken: envOr("LIVE_ACTIVITY_UPDATE_TOKEN", uuid.NewString()),
		startDelay:  500 * time.Millisecond,
	}

	manager := liveactivity.NewTokenManager(source, cache, liveactivity.WithLogger(logger))
	defer manager.Close()
	manager.Initialize(ctx)

	token, tokenSource := manager.StartToken()
	logger.Info("token initialization resolved", "source", tokenSource, "token_len", len(token))

	relay := liveactivity.NewRelayClient(*relayURL, liveactivity.WithSandbox(*sandbox))
	session := liveactivity.NewSession(manager, relay)

	if err := session.Start(ctx, liveactivity.CountdownContent(*title, *duration)); err != nil {
		logger.Error("start failed", "error", err)
		os.Exit(1)
	}
	logger.Info("live activity started")

	// Give the simulated platform a moment to mint the update token.
	waitForUpdateToken(manager, 5*time.Second)

	if err := session.Update(ctx, liveactivity.CountdownContent(*title, *duration/2)); err != nil {
		logger.Error("update failed", "error", err)
	} else {
		logger.Info("live activity updated")
	}

	if err := session.End(ctx); err != nil {
		logger.Error("end failed", "error", err)
		os.Exit(1)
	}
	logger.Info("live activity ended")
}

func waitForUpdateToken(manager *liveactivity.TokenManager, timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if manager.UpdateToken() != "" {
			return
		}
		time.Sleep(100 * time.Millisecond)
	}
}

func envOr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
