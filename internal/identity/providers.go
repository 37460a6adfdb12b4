package identity

import (
	"context"
	"fmt"
	"slices"
	"strings"
)

const (
	IPAPIURL      = "http://ip-api.com/json"
	IfconfigCoURL = "https://ifconfig.co/json"
)

// Identity is the public network identity seen for this host.
type Identity struct {
	ISP      string `json:"isp"`
	Provider string `json:"provider"`
}

// Provider is one upstream identity source.
type Provider interface {
	Name() string
	Query(ctx context.Context) (Identity, error)
}

// JSONProvider covers every supported source: they differ only by URL and
// by the ordered list of fields holding the ISP name.
type JSONProvider struct {
	name    string
	url     string
	keys    []string
	fetcher *Fetcher
}

func NewIPAPI(f *Fetcher) *JSONProvider {
	return &JSONProvider{name: "ip-api", url: IPAPIURL, keys: []string{"isp"}, fetcher: f}
}

func NewIfconfigCo(f *Fetcher) *JSONProvider {
	return &JSONProvider{name: "ifconfig.co", url: IfconfigCoURL, keys: []string{"isp", "asn_org"}, fetcher: f}
}

// NewGenericJSON queries url and looks at preferredKey first, then the usual
// isp, asn_org and org fields. The provider is named after its URL.
func NewGenericJSON(f *Fetcher, url, preferredKey string) *JSONProvider {
	keys := make([]string, 0, 4)
	if k := strings.TrimSpace(preferredKey); k != "" {
		keys = append(keys, k)
	}
	for _, k := range []string{"isp", "asn_org", "org"} {
		if !slices.Contains(keys, k) {
			keys = append(keys, k)
		}
	}
	return &JSONProvider{name: url, url: url, keys: keys, fetcher: f}
}

// WithURL points a provider at a different endpoint, keeping its name.
func (p *JSONProvider) WithURL(url string) *JSONProvider {
	cp := *p
	cp.url = url
	return &cp
}

func (p *JSONProvider) Name() string   { return p.name }
func (p *JSONProvider) Keys() []string { return append([]string(nil), p.keys...) }

func (p *JSONProvider) Query(ctx context.Context) (Identity, error) {
	doc, err := p.fetcher.FetchJSON(ctx, p.url)
	if err != nil {
		return Identity{}, err
	}
	isp, ok := pickString(doc, p.keys...)
	if !ok {
		return Identity{}, fmt.Errorf("%w: none of %s present", ErrMalformedBody, strings.Join(p.keys, ", "))
	}
	return Identity{ISP: isp, Provider: p.name}, nil
}

func pickString(doc map[string]any, keys ...string) (string, bool) {
	for _, k := range keys {
		if s, ok := doc[k].(string); ok {
			if s = strings.TrimSpace(s); s != "" {
				return s, true
			}
		}
	}
	return "", false
}
