package geocode

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(srv *httptest.Server, opts ...Option) *Nominatim {
	base := []Option{
		WithBaseURL(srv.URL + "/search"),
		WithHTTPClient(srv.Client()),
		WithMinDelay(0),
		WithErrorWait(time.Millisecond),
	}
	return NewNominatim(append(base, opts...)...)
}

func TestGeocodeSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "123 Main Street, Springfield, IL 62701", r.URL.Query().Get("q"))
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		assert.Equal(t, "1", r.URL.Query().Get("limit"))
		assert.Equal(t, DefaultUserAgent, r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte(`[{"lat":"39.7817","lon":"-89.6501","display_name":"Springfield"}]`))
	}))
	defer srv.Close()

	c, ok := newTestClient(srv).Geocode(context.Background(), "123 Main Street, Springfield, IL 62701")
	require.True(t, ok)
	assert.InDelta(t, 39.7817, c.Latitude, 1e-9)
	assert.InDelta(t, -89.6501, c.Longitude, 1e-9)
}

func TestGeocodeNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	_, ok := newTestClient(srv).Geocode(context.Background(), "nowhere")
	assert.False(t, ok)
}

func TestGeocodeEmptyAddressSkipsRequest(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer srv.Close()

	_, ok := newTestClient(srv).Geocode(context.Background(), "")
	assert.False(t, ok)
	assert.Zero(t, atomic.LoadInt32(&calls))
}

func TestGeocodeRetriesTransientErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`[{"lat":"1.5","lon":"2.5"}]`))
	}))
	defer srv.Close()

	c, ok := newTestClient(srv).Geocode(context.Background(), "addr")
	require.True(t, ok)
	assert.Equal(t, Coordinates{Latitude: 1.5, Longitude: 2.5}, c)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestGeocodeGivesUpAfterMaxRetries(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, ok := newTestClient(srv, WithMaxRetries(2)).Geocode(context.Background(), "addr")
	assert.False(t, ok)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestGeocodeDoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	_, ok := newTestClient(srv).Geocode(context.Background(), "addr")
	assert.False(t, ok)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestGeocodeMalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"lat":"north","lon":"2"}]`))
	}))
	defer srv.Close()

	_, ok := newTestClient(srv).Geocode(context.Background(), "addr")
	assert.False(t, ok)
}

func TestGeocodeSerializesRequests(t *testing.T) {
	var inFlight, maxInFlight int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&inFlight, 1)
		for {
			m := atomic.LoadInt32(&maxInFlight)
			if n <= m || atomic.CompareAndSwapInt32(&maxInFlight, m, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt32(&inFlight, -1)
		_, _ = w.Write([]byte(`[{"lat":"1","lon":"1"}]`))
	}))
	defer srv.Close()

	client := newTestClient(srv)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, ok := client.Geocode(context.Background(), "addr")
			assert.True(t, ok)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&maxInFlight))
}

func TestGeocodeHonorsMinDelay(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"lat":"1","lon":"1"}]`))
	}))
	defer srv.Close()

	client := newTestClient(srv, WithMinDelay(60*time.Millisecond))

	start := time.Now()
	for i := 0; i < 3; i++ {
		_, ok := client.Geocode(context.Background(), "addr")
		require.True(t, ok)
	}
	assert.GreaterOrEqual(t, time.Since(start), 110*time.Millisecond)
}

func TestGeocodeCanceledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"lat":"1","lon":"1"}]`))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, ok := newTestClient(srv).Geocode(ctx, "addr")
	assert.False(t, ok)
}

func TestIsTransient(t *testing.T) {
	assert.False(t, IsTransient(nil))
	assert.False(t, IsTransient(errors.New("plain")))
	assert.True(t, IsTransient(NewTransientError(errors.New("busy"), 503)))

	var te *TransientError
	wrapped := errors.Join(errors.New("outer"), NewTransientError(errors.New("busy"), 429))
	require.True(t, errors.As(wrapped, &te))
	assert.Equal(t, 429, te.StatusCode)
}

type countingGeocoder struct {
	id int
}

func (c *countingGeocoder) Geocode(context.Context, string) (Coordinates, bool) {
	return Coordinates{Latitude: float64(c.id)}, true
}

func TestLazyBuildsOnceAndResets(t *testing.T) {
	var builds int
	lazy := NewLazy(func() Geocoder {
		builds++
		return &countingGeocoder{id: builds}
	})
	assert.Zero(t, builds)

	c1, _ := lazy.Geocode(context.Background(), "a")
	c2, _ := lazy.Geocode(context.Background(), "b")
	assert.Equal(t, 1, builds)
	assert.Equal(t, c1, c2)

	lazy.Reset()
	c3, _ := lazy.Geocode(context.Background(), "c")
	assert.Equal(t, 2, builds)
	assert.Equal(t, 2.0, c3.Latitude)
}

func TestDisabled(t *testing.T) {
	_, ok := Disabled{}.Geocode(context.Background(), "123 Main Street")
	assert.False(t, ok)
}
