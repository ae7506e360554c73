package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(opts Options, breakers *Breakers) (*Client, *[]time.Duration) {
	c := NewClient(opts, breakers, nil)
	var waits []time.Duration
	c.sleep = func(ctx context.Context, d time.Duration) error {
		waits = append(waits, d)
		return nil
	}
	return c, &waits
}

func TestRetryUsesLinearBackoff(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("<html>ok</html>"))
	}))
	defer srv.Close()

	c, waits := newTestClient(Options{MaxRetries: 3, RetryBaseDelay: time.Second}, nil)

	body, err := c.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "<html>ok</html>", body)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, *waits)
}

func TestRetriesExhausted(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c, waits := newTestClient(Options{MaxRetries: 3, RetryBaseDelay: time.Millisecond}, nil)

	_, err := c.Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRetriesExhausted)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	assert.Len(t, *waits, 2)
}

func TestClientErrorsAreNotRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c, _ := newTestClient(Options{MaxRetries: 3}, nil)

	_, err := c.Fetch(context.Background(), srv.URL)
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusNotFound, statusErr.StatusCode)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestHeadersAreSent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "jobharvest-test", r.Header.Get("User-Agent"))
		assert.Equal(t, "secret", r.Header.Get("X-RapidAPI-Key"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		json.NewEncoder(w).Encode(map[string]int{"count": 2})
	}))
	defer srv.Close()

	c, _ := newTestClient(Options{UserAgent: "jobharvest-test"}, nil)

	var out struct {
		Count int `json:"count"`
	}
	require.NoError(t, c.GetJSON(context.Background(), srv.URL, map[string]string{"X-RapidAPI-Key": "secret"}, &out))
	assert.Equal(t, 2, out.Count)
}

func TestPostJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var in map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		assert.Equal(t, "actuary", in["searchText"])
		w.Write([]byte(`{"total": 7}`))
	}))
	defer srv.Close()

	c, _ := newTestClient(Options{}, nil)

	var out struct {
		Total int `json:"total"`
	}
	require.NoError(t, c.PostJSON(context.Background(), srv.URL, nil, map[string]string{"searchText": "actuary"}, &out))
	assert.Equal(t, 7, out.Total)
}

func TestRequestDelaySpacesRequests(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	c, _ := newTestClient(Options{RequestDelay: 40 * time.Millisecond}, nil)

	start := time.Now()
	for i := 0; i < 3; i++ {
		_, err := c.Fetch(context.Background(), srv.URL)
		require.NoError(t, err)
	}
	assert.GreaterOrEqual(t, time.Since(start), 75*time.Millisecond)
}

func TestCancelledContextStopsRetrying(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	c := NewClient(Options{MaxRetries: 5, RetryBaseDelay: time.Hour}, nil, nil)

	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := c.Fetch(ctx, srv.URL)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBreakerOpensAfterFailures(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	breakers := NewBreakers(2, time.Hour)
	c, _ := newTestClient(Options{MaxRetries: 5}, breakers)

	_, err := c.Fetch(context.Background(), srv.URL)
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	assert.Equal(t, CircuitOpen, breakers.State(domainOf(srv.URL)))
}

func TestBreakerHalfOpenAfterReset(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	b := NewBreakers(1, time.Minute)
	b.now = func() time.Time { return now }

	b.RecordFailure("example.com")
	assert.False(t, b.Allow("example.com"))

	now = now.Add(2 * time.Minute)
	assert.True(t, b.Allow("EXAMPLE.com"))
	assert.Equal(t, CircuitHalfOpen, b.State("example.com"))

	b.RecordSuccess("example.com")
	assert.Equal(t, CircuitClosed, b.State("example.com"))
}

type flakyEngine struct {
	calls int
	fails int
}

func (f *flakyEngine) Fetch(ctx context.Context, url string) (string, error) {
	f.calls++
	if f.calls <= f.fails {
		return "", errors.New("render timeout")
	}
	return "<html/>", nil
}

func TestPacedEngineRetries(t *testing.T) {
	c, waits := newTestClient(Options{MaxRetries: 3, RetryBaseDelay: time.Second}, nil)
	engine := &flakyEngine{fails: 1}

	html, err := c.Paced(engine).Fetch(context.Background(), "https://example.com/jobs")
	require.NoError(t, err)
	assert.Equal(t, "<html/>", html)
	assert.Equal(t, 2, engine.calls)
	assert.Equal(t, []time.Duration{time.Second}, *waits)
}

func TestClientErrorsDoNotTripBreaker(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	breakers := NewBreakers(1, time.Hour)
	c, _ := newTestClient(Options{MaxRetries: 3}, breakers)

	for i := 0; i < 3; i++ {
		_, err := c.Fetch(context.Background(), srv.URL)
		var statusErr *StatusError
		require.True(t, errors.As(err, &statusErr))
	}
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	assert.Equal(t, CircuitClosed, breakers.State(domainOf(srv.URL)))
}

func TestMalformedURLIsNotRetried(t *testing.T) {
	c, waits := newTestClient(Options{MaxRetries: 3, RetryBaseDelay: time.Second}, nil)

	_, err := c.Fetch(context.Background(), "http://[::1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrRetriesExhausted)
	assert.Empty(t, *waits)
}

func TestRetryableClassification(t *testing.T) {
	assert.True(t, retryable(&StatusError{StatusCode: http.StatusTooManyRequests}))
	assert.True(t, retryable(&StatusError{StatusCode: http.StatusBadGateway}))
	assert.False(t, retryable(&StatusError{StatusCode: http.StatusBadRequest}))
	assert.True(t, retryable(transient(errors.New("render timeout"))))
	assert.False(t, retryable(errors.New("invalid character '<' looking for beginning of value")))
	assert.False(t, retryable(context.Canceled))
}
