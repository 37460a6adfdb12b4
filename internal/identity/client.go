package identity

import (
	"crypto/tls"
	"net"
	"net/http"
	"time"
)

const (
	DefaultHTTPTimeout = 5 * time.Second
	UserAgent          = "checkvpn/0.1"
)

// NewHTTPClient returns the client every provider shares. Connections are
// not reused between cycles so each lookup goes out on the current route.
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultHTTPTimeout
	}
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   timeout,
				KeepAlive: -1,
			}).DialContext,
			TLSHandshakeTimeout: timeout,
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
			DisableKeepAlives: true,
		},
	}
}
