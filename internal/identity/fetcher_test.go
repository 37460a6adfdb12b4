package identity

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingTimer struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (r *recordingTimer) After(d time.Duration) <-chan time.Time {
	r.mu.Lock()
	r.delays = append(r.delays, d)
	r.mu.Unlock()
	ch := make(chan time.Time, 1)
	ch <- time.Now()
	return ch
}

func TestFetcherRateLimitedThenSuccess(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{"isp":"Example Telecom"}`))
	}))
	defer srv.Close()

	f := NewFetcher(FetcherOptions{Attempts: 2})
	p := NewGenericJSON(f, srv.URL, "")

	start := time.Now()
	id, err := p.Query(context.Background())
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.Equal(t, "Example Telecom", id.ISP)
	assert.Equal(t, srv.URL, id.Provider)
	assert.GreaterOrEqual(t, elapsed, time.Second)
	assert.EqualValues(t, 2, calls.Load())
}

func TestFetcherRetryAfterClamped(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "120")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	timer := &recordingTimer{}
	f := NewFetcher(FetcherOptions{Attempts: 2, Timer: timer})

	_, err := f.FetchJSON(context.Background(), srv.URL)
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, KindRateLimited, se.Kind())
	assert.Equal(t, []time.Duration{60 * time.Second}, timer.delays)
}

func TestFetcherServerErrorLinearBackoff(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"isp":"Recovered"}`))
	}))
	defer srv.Close()

	timer := &recordingTimer{}
	f := NewFetcher(FetcherOptions{Attempts: 3, Timer: timer})

	doc, err := f.FetchJSON(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "Recovered", doc["isp"])
	assert.Equal(t, []time.Duration{500 * time.Millisecond, time.Second}, timer.delays)
}

func TestFetcherServerErrorExhausted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	f := NewFetcher(FetcherOptions{Attempts: 2, Timer: &recordingTimer{}})
	_, err := f.FetchJSON(context.Background(), srv.URL)

	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, KindServer, se.Kind())
	assert.Equal(t, http.StatusServiceUnavailable, se.Code)
}

func TestFetcherClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	f := NewFetcher(FetcherOptions{Attempts: 3, Timer: &recordingTimer{}})
	_, err := f.FetchJSON(context.Background(), srv.URL)

	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, KindClient, se.Kind())
	assert.EqualValues(t, 1, calls.Load())
}

func TestFetcherRequiresOK(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	f := NewFetcher(FetcherOptions{Attempts: 3, Timer: &recordingTimer{}})
	_, err := f.FetchJSON(context.Background(), srv.URL)

	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusNoContent, se.Code)
	assert.NotErrorIs(t, err, ErrMalformedBody)
	assert.EqualValues(t, 1, calls.Load(), "2xx other than 200 is not retried")
}

func TestFetcherDeclaredTooLarge(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		body := `{"isp":"` + strings.Repeat("x", 2048) + `"}`
		w.Header().Set("Content-Length", fmt.Sprint(len(body)))
		_, _ = w.Write([]byte(body))
	}))
	defer srv.Close()

	f := NewFetcher(FetcherOptions{Attempts: 3, MaxBodyBytes: 1024})
	_, err := f.FetchJSON(context.Background(), srv.URL)

	assert.ErrorIs(t, err, ErrResponseTooLarge)
	assert.EqualValues(t, 1, calls.Load())
}

func TestFetcherStreamedTooLarge(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// flushing before the body forces chunked encoding, so no length is declared
		w.WriteHeader(http.StatusOK)
		w.(http.Flusher).Flush()
		_, _ = w.Write([]byte(`{"isp":"` + strings.Repeat("y", 4096) + `"}`))
	}))
	defer srv.Close()

	f := NewFetcher(FetcherOptions{Attempts: 1, MaxBodyBytes: 1024})
	_, err := f.FetchJSON(context.Background(), srv.URL)

	assert.ErrorIs(t, err, ErrResponseTooLarge)
}

func TestFetcherMalformedJSON(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`<html>nope</html>`))
	}))
	defer srv.Close()

	f := NewFetcher(FetcherOptions{Attempts: 3})
	_, err := f.FetchJSON(context.Background(), srv.URL)

	assert.ErrorIs(t, err, ErrMalformedBody)
	assert.EqualValues(t, 1, calls.Load())
}

func TestFetcherTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	timer := &recordingTimer{}
	f := NewFetcher(FetcherOptions{Attempts: 2, Timer: timer})
	_, err := f.FetchJSON(context.Background(), url)

	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, url, te.URL)
	assert.Len(t, timer.delays, 1)
}

func TestFetcherSendsUserAgent(t *testing.T) {
	var ua string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ua = r.UserAgent()
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	_, err := NewFetcher(FetcherOptions{}).FetchJSON(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, UserAgent, ua)
}

func TestParseRetryAfter(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"1", time.Second},
		{" 30 ", 30 * time.Second},
		{"600", 60 * time.Second},
		{"", 0},
		{"-5", 0},
		{"Wed, 21 Oct 2015 07:28:00 GMT", 0},
	}
	for _, tt := range tests {
		if got := parseRetryAfter(tt.in); got != tt.want {
			t.Errorf("parseRetryAfter(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestRetryDelayFallsBackWithoutRetryAfter(t *testing.T) {
	err := &StatusError{Code: http.StatusTooManyRequests}
	assert.Equal(t, time.Second, retryDelay(2, err))
	assert.Equal(t, 500*time.Millisecond, retryDelay(1, errors.New("boom")))
}
