package gsi

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/gametimer/go/clients/gsi_client"
)

// Transport fetches one raw game state payload.
type Transport interface {
	Fetch(ctx context.Context) ([]byte, error)
}

// HTTPTransport polls the integration server's game state endpoint.
type HTTPTransport struct {
	client *gsi_client.GSIClient
}

// NewHTTPTransport creates a transport for baseURL. The client timeout is a
// backstop; each poll is also bounded by the feed's poll timeout.
func NewHTTPTransport(baseURL string, timeout time.Duration) *HTTPTransport {
	return &HTTPTransport{client: gsi_client.NewGSIClient(baseURL, timeout)}
}

func (t *HTTPTransport) Fetch(ctx context.Context) ([]byte, error) {
	return t.client.GetGameState(ctx)
}

// TransportFunc adapts a function to Transport.
type TransportFunc func(ctx context.Context) ([]byte, error)

func (f TransportFunc) Fetch(ctx context.Context) ([]byte, error) {
	return f(ctx)
}

// DefaultPushMaxAge is how long a pushed payload stays fresh.
const DefaultPushMaxAge = 5 * time.Second

// PushTransport buffers payloads pushed by the host process (HTTP POST or
// message bus) and hands the latest one to the feed on each poll, so pushed
// data goes through the same validation and state machine as polled data.
type PushTransport struct {
	clock  clockwork.Clock
	maxAge time.Duration

	mu         sync.Mutex
	latest     []byte
	receivedAt time.Time
}

// NewPushTransport creates an empty push buffer. A nil clock uses the real clock.
func NewPushTransport(maxAge time.Duration, clock clockwork.Clock) *PushTransport {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if maxAge <= 0 {
		maxAge = DefaultPushMaxAge
	}
	return &PushTransport{clock: clock, maxAge: maxAge}
}

// Push stores a copy of raw as the latest payload. It is not validated here.
func (t *PushTransport) Push(raw []byte) {
	buf := make([]byte, len(raw))
	copy(buf, raw)

	t.mu.Lock()
	defer t.mu.Unlock()
	t.latest = buf
	t.receivedAt = t.clock.Now()
}

func (t *PushTransport) Fetch(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.latest == nil || t.clock.Since(t.receivedAt) > t.maxAge {
		return nil, ErrNoRecentPush
	}
	return t.latest, nil
}
