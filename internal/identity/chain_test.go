package identity

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	name  string
	isp   string
	err   error
	calls int
}

func (s *stubProvider) Name() string { return s.name }

func (s *stubProvider) Query(context.Context) (Identity, error) {
	s.calls++
	if s.err != nil {
		return Identity{}, s.err
	}
	return Identity{ISP: s.isp, Provider: s.name}, nil
}

func TestChainFailingThenSucceeding(t *testing.T) {
	bad := &stubProvider{name: "bad", err: &StatusError{URL: "http://bad", Code: 503}}
	good := &stubProvider{name: "good", isp: "Carrier"}

	id, err := NewChain([]Provider{bad, good}).Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Identity{ISP: "Carrier", Provider: "good"}, id)
	assert.Equal(t, 1, bad.calls)
}

func TestChainStopsAtFirstSuccess(t *testing.T) {
	good := &stubProvider{name: "good", isp: "Carrier"}
	never := &stubProvider{name: "never", isp: "Other"}

	id, err := NewChain([]Provider{good, never}).Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "good", id.Provider)
	assert.Zero(t, never.calls)
}

func TestChainExhausted(t *testing.T) {
	first := &stubProvider{name: "first", err: ErrMalformedBody}
	last := &stubProvider{name: "last", err: ErrResponseTooLarge}

	var hooked []string
	chain := NewChain([]Provider{first, last}, WithFailureHook(func(name string, _ error) {
		hooked = append(hooked, name)
	}))

	_, err := chain.Resolve(context.Background())
	var exhausted *ChainExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Len(t, exhausted.Failures, 2)
	assert.Equal(t, "last: "+ErrResponseTooLarge.Error(), err.Error())
	assert.Contains(t, exhausted.Summary(), "first: ")
	assert.ErrorIs(t, err, ErrMalformedBody)
	assert.ErrorIs(t, err, ErrResponseTooLarge)
	assert.Equal(t, []string{"first", "last"}, hooked)
}

func TestChainEmpty(t *testing.T) {
	_, err := NewChain(nil).Resolve(context.Background())
	assert.ErrorIs(t, err, ErrNoProviders)
	assert.Equal(t, "no providers configured", err.Error())
}

func TestChainStopsWhenCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	first := &stubProvider{name: "first", err: context.Canceled}
	second := &stubProvider{name: "second", isp: "x"}
	cancel()

	_, err := NewChain([]Provider{first, second}).Resolve(ctx)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Zero(t, second.calls)
}

func TestBuildChainOrder(t *testing.T) {
	f := NewFetcher(FetcherOptions{})
	tests := []struct {
		name string
		opts ChainOptions
		want []string
	}{
		{
			name: "defaults",
			want: []string{"ip-api", "ifconfig.co"},
		},
		{
			name: "everything",
			opts: ChainOptions{
				ProviderURLs:     []string{"https://a.example/json", "https://b.example/json"},
				CustomJSONServer: "https://custom.example/",
				CustomJSONKey:    "carrier",
			},
			want: []string{"https://a.example/json", "https://b.example/json", "https://custom.example/", "ip-api", "ifconfig.co"},
		},
		{
			name: "builtins disabled",
			opts: ChainOptions{DisableIPAPI: true, DisableIfconfigCo: true, ProviderURLs: []string{"https://only.example"}},
			want: []string{"https://only.example"},
		},
		{
			name: "nothing left",
			opts: ChainOptions{DisableIPAPI: true, DisableIfconfigCo: true},
			want: []string{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BuildChain(tt.opts, f).Names())
		})
	}
}

func TestGenericJSONKeyOrder(t *testing.T) {
	f := NewFetcher(FetcherOptions{})
	assert.Equal(t, []string{"carrier", "isp", "asn_org", "org"}, NewGenericJSON(f, "u", "carrier").Keys())
	assert.Equal(t, []string{"org", "isp", "asn_org"}, NewGenericJSON(f, "u", "org").Keys())
	assert.Equal(t, []string{"isp", "asn_org", "org"}, NewGenericJSON(f, "u", " ").Keys())
}

func TestProviderFieldFallback(t *testing.T) {
	tests := []struct {
		name     string
		provider func(*Fetcher, string) *JSONProvider
		body     string
		want     string
		wantErr  error
	}{
		{
			name:     "ifconfig.co asn_org fallback",
			provider: func(f *Fetcher, u string) *JSONProvider { return NewIfconfigCo(f).WithURL(u) },
			body:     `{"ip":"203.0.113.7","asn_org":"Transit AS"}`,
			want:     "Transit AS",
		},
		{
			name:     "ip-api requires isp",
			provider: func(f *Fetcher, u string) *JSONProvider { return NewIPAPI(f).WithURL(u) },
			body:     `{"org":"Something"}`,
			wantErr:  ErrMalformedBody,
		},
		{
			name:     "generic org fallback",
			provider: func(f *Fetcher, u string) *JSONProvider { return NewGenericJSON(f, u, "") },
			body:     `{"isp":"","org":"Org Name"}`,
			want:     "Org Name",
		},
		{
			name:     "generic non-string value skipped",
			provider: func(f *Fetcher, u string) *JSONProvider { return NewGenericJSON(f, u, "carrier") },
			body:     `{"carrier":42,"isp":"Fallback ISP"}`,
			want:     "Fallback ISP",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			id, err := tt.provider(NewFetcher(FetcherOptions{Attempts: 1}), srv.URL).Query(context.Background())
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, id.ISP)
		})
	}
}
