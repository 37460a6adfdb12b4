package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"

	"github.com/MrSnakeDoc/checkvpn/internal/logger"
	"github.com/MrSnakeDoc/checkvpn/internal/utils"
)

const (
	DefaultAttempts     = 2
	DefaultMaxBodyBytes = 5 * 1024 * 1024

	fetchBackoff  = 500 * time.Millisecond
	maxRetryAfter = 60 * time.Second
)

// FetcherOptions configures a Fetcher. Zero values fall back to defaults.
type FetcherOptions struct {
	Client       *http.Client
	Attempts     uint
	MaxBodyBytes int64
	UserAgent    string
	Logger       logger.Logger
	Timer        retry.Timer
}

// Fetcher performs a bounded, retried GET and decodes the JSON object body.
// Every provider goes through one.
type Fetcher struct {
	client    *http.Client
	attempts  uint
	maxBytes  int64
	userAgent string
	log       logger.Logger
	timer     retry.Timer
}

func NewFetcher(opts FetcherOptions) *Fetcher {
	f := &Fetcher{
		client:    opts.Client,
		attempts:  max(opts.Attempts, 1),
		maxBytes:  opts.MaxBodyBytes,
		userAgent: opts.UserAgent,
		log:       opts.Logger,
		timer:     opts.Timer,
	}
	if f.client == nil {
		f.client = NewHTTPClient(DefaultHTTPTimeout)
	}
	if f.maxBytes <= 0 {
		f.maxBytes = DefaultMaxBodyBytes
	}
	if f.userAgent == "" {
		f.userAgent = UserAgent
	}
	if f.log == nil {
		f.log = logger.Nop()
	}
	return f
}

// FetchJSON GETs url and returns the decoded top-level object.
func (f *Fetcher) FetchJSON(ctx context.Context, url string) (map[string]any, error) {
	body, err := f.fetch(ctx, url)
	if err != nil {
		return nil, err
	}

	var doc map[string]any
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedBody, err)
	}
	return doc, nil
}

func (f *Fetcher) fetch(ctx context.Context, url string) ([]byte, error) {
	var made uint
	opts := []retry.Option{
		retry.Context(ctx),
		retry.Attempts(f.attempts),
		retry.LastErrorOnly(true),
		retry.DelayType(func(_ uint, err error, _ *retry.Config) time.Duration {
			return retryDelay(made, err)
		}),
		retry.OnRetry(func(_ uint, err error) {
			f.log.Debug("identity request failed, retrying",
				logger.String("url", url),
				logger.Uint("attempt", made),
				logger.Error(err))
		}),
	}
	if f.timer != nil {
		opts = append(opts, retry.WithTimer(f.timer))
	}

	return retry.DoWithData(func() ([]byte, error) {
		made++
		return f.fetchOnce(ctx, url)
	}, opts...)
}

// retryDelay waits a linear 500ms per attempt made, unless the server asked
// for a specific pause through Retry-After.
func retryDelay(made uint, err error) time.Duration {
	var se *StatusError
	if errors.As(err, &se) && se.Kind() == KindRateLimited && se.RetryAfter > 0 {
		return se.RetryAfter
	}
	return time.Duration(made) * fetchBackoff
}

func (f *Fetcher) fetchOnce(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, retry.Unrecoverable(fmt.Errorf("build request for %s: %w", url, err))
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, retry.Unrecoverable(ctx.Err())
		}
		return nil, &TransportError{URL: url, Err: err}
	}
	defer utils.Close(resp.Body)

	if resp.StatusCode != http.StatusOK {
		se := &StatusError{URL: url, Code: resp.StatusCode}
		if se.Kind() == KindRateLimited {
			se.RetryAfter = parseRetryAfter(resp.Header.Get("Retry-After"))
		}
		if !se.Retryable() {
			return nil, retry.Unrecoverable(se)
		}
		return nil, se
	}

	if resp.ContentLength > f.maxBytes {
		return nil, retry.Unrecoverable(fmt.Errorf("%w: %s declared %d bytes, limit is %d",
			ErrResponseTooLarge, url, resp.ContentLength, f.maxBytes))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, &TransportError{URL: url, Err: fmt.Errorf("read body: %w", err)}
	}
	if int64(len(body)) > f.maxBytes {
		return nil, retry.Unrecoverable(fmt.Errorf("%w: %s sent more than %d bytes",
			ErrResponseTooLarge, url, f.maxBytes))
	}
	return body, nil
}

// parseRetryAfter accepts integer seconds only and clamps to one minute.
func parseRetryAfter(v string) time.Duration {
	secs, err := strconv.ParseUint(strings.TrimSpace(v), 10, 32)
	if err != nil {
		return 0
	}
	return min(time.Duration(secs)*time.Second, maxRetryAfter)
}
