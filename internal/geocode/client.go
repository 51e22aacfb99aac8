// Package geocode turns address strings into coordinates through the
// OpenStreetMap Nominatim search API.
package geocode

import (
	"context"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"branch-address-scraper/internal/observability"
)

const (
	DefaultBaseURL   = "https://nominatim.openstreetmap.org/search"
	DefaultUserAgent = "branch-address-scraper/1.0"
)

// Coordinates is a WGS84 point.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Geocoder resolves an address. ok is false when the address is unknown or
// the lookup failed; failures are never returned to the caller.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (Coordinates, bool)
}

// Option configures a Nominatim client.
type Option func(*Nominatim)

// WithBaseURL points the client at another search endpoint.
func WithBaseURL(u string) Option {
	return func(n *Nominatim) {
		n.baseURL = u
	}
}

// WithUserAgent sets the identification Nominatim's usage policy requires.
func WithUserAgent(ua string) Option {
	return func(n *Nominatim) {
		n.userAgent = ua
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(n *Nominatim) {
		n.httpClient = hc
	}
}

// WithMinDelay sets the minimum time between two requests. Zero disables
// the delay.
func WithMinDelay(d time.Duration) Option {
	return func(n *Nominatim) {
		if d <= 0 {
			n.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		n.limiter = rate.NewLimiter(rate.Every(d), 1)
	}
}

// WithMaxRetries sets how many times a transient failure is retried.
func WithMaxRetries(n int) Option {
	return func(c *Nominatim) {
		if n >= 0 {
			c.maxRetries = n
		}
	}
}

// WithErrorWait sets the pause after a transient failure.
func WithErrorWait(d time.Duration) Option {
	return func(n *Nominatim) {
		n.errorWait = d
	}
}

// WithLogger sets the logger used for swallowed failures.
func WithLogger(l *observability.Logger) Option {
	return func(n *Nominatim) {
		n.logger = l
	}
}

// Nominatim is a rate limited Nominatim client. Calls are serialized: at
// most one request is in flight and consecutive requests are spaced by the
// minimum delay, no matter how many goroutines share the client.
type Nominatim struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	limiter    *rate.Limiter
	maxRetries int
	errorWait  time.Duration
	logger     *observability.Logger

	mu sync.Mutex
}

// NewNominatim creates a client with a 2s minimum delay, 3 retries and a 10s
// wait after transient errors unless overridden.
func NewNominatim(opts ...Option) *Nominatim {
	n := &Nominatim{
		baseURL:    DefaultBaseURL,
		userAgent:  DefaultUserAgent,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		limiter:    rate.NewLimiter(rate.Every(2*time.Second), 1),
		maxRetries: 3,
		errorWait:  10 * time.Second,
		logger:     observability.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Geocode implements Geocoder.
func (n *Nominatim) Geocode(ctx context.Context, address string) (Coordinates, bool) {
	if address == "" {
		return Coordinates{}, false
	}

	c, err := n.lookup(ctx, address)
	if err != nil {
		n.logger.Warn("Geocoding failed", "address", address, "error", err.Error())
		return Coordinates{}, false
	}
	if c == nil {
		n.logger.Debug("Address not found by geocoder", "address", address)
		return Coordinates{}, false
	}
	return *c, true
}

func (n *Nominatim) lookup(ctx context.Context, address string) (*Coordinates, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	for attempt := 0; ; attempt++ {
		if err := n.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		c, err := n.search(ctx, address)
		if err == nil {
			return c, nil
		}
		if !IsTransient(err) || attempt >= n.maxRetries || ctx.Err() != nil {
			return nil, err
		}

		n.logger.Warn("Retrying geocode request",
			"address", address,
			"attempt", attempt+1,
			"error", err.Error(),
		)

		timer := time.NewTimer(n.errorWait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

// Lazy builds its Geocoder on first use and keeps it for the life of the
// process. Reset drops it; the next call builds a fresh one.
type Lazy struct {
	build func() Geocoder

	mu sync.Mutex
	g  Geocoder
}

func NewLazy(build func() Geocoder) *Lazy {
	return &Lazy{build: build}
}

// Geocode implements Geocoder.
func (l *Lazy) Geocode(ctx context.Context, address string) (Coordinates, bool) {
	return l.get().Geocode(ctx, address)
}

func (l *Lazy) Reset() {
	l.mu.Lock()
	l.g = nil
	l.mu.Unlock()
}

func (l *Lazy) get() Geocoder {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.g == nil {
		l.g = l.build()
	}
	return l.g
}

// Disabled never resolves anything.
type Disabled struct{}

// Geocode implements Geocoder.
func (Disabled) Geocode(context.Context, string) (Coordinates, bool) {
	return Coordinates{}, false
}
