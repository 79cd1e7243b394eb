package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/danmuck/wsmux/internal/logging"
	"github.com/danmuck/wsmux/internal/transport"
)

func TestSessionSurfacesDialErrorWithinOneDeadline(t *testing.T) {
	logging.ConfigureTests()
	cfg := defaultClientConfig()
	cfg.ConnectTimeout = 200 * time.Millisecond

	dialErr := errors.New("connection refused")
	dial := transport.DialFunc(func(context.Context) (transport.MessageStream, error) {
		return nil, dialErr
	})

	start := time.Now()
	err := session(context.Background(), logging.Component("test"), cfg, dial, "")
	if !errors.Is(err, dialErr) {
		t.Fatalf("expected dial error, got %v", err)
	}
	// One connect deadline, not two.
	if elapsed := time.Since(start); elapsed > 3*cfg.ConnectTimeout/2 {
		t.Fatalf("session waited %v past the connect deadline", elapsed)
	}
}
