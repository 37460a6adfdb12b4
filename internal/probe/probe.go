package probe

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"

	"github.com/MrSnakeDoc/checkvpn/internal/logger"
)

const (
	DefaultTimeout = 2 * time.Second
	DefaultRetries = 2

	attemptBackoff = 200 * time.Millisecond
)

// DefaultPorts are tried, in order, for endpoints that carry no port.
var DefaultPorts = []uint16{443, 53, 80}

// Config describes one reachability check.
type Config struct {
	Endpoints []string
	Ports     []uint16
	Timeout   time.Duration
	Retries   uint
}

// Resolver is the subset of *net.Resolver the prober needs.
type Resolver interface {
	LookupHost(ctx context.Context, host string) ([]string, error)
}

// Prober answers "is the network up" with plain TCP connects.
type Prober struct {
	resolver Resolver
	log      logger.Logger
	timer    retry.Timer
}

type Option func(*Prober)

func WithResolver(r Resolver) Option { return func(p *Prober) { p.resolver = r } }

func WithLogger(l logger.Logger) Option { return func(p *Prober) { p.log = l } }

// WithTimer replaces the clock used for backoff waits.
func WithTimer(t retry.Timer) Option { return func(p *Prober) { p.timer = t } }

func New(opts ...Option) *Prober {
	p := &Prober{
		resolver: net.DefaultResolver,
		log:      logger.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

type candidate struct {
	host string
	port string
}

func (c candidate) String() string { return net.JoinHostPort(c.host, c.port) }

// IsOnline reports whether any candidate accepted a TCP connection.
// A name that cannot be resolved aborts the whole check with a *DNSError.
func (p *Prober) IsOnline(ctx context.Context, cfg Config) (bool, error) {
	ports := cfg.Ports
	if len(ports) == 0 {
		ports = DefaultPorts
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	attempts := max(cfg.Retries, 1)

	for _, ep := range cfg.Endpoints {
		for _, c := range candidates(ep, ports) {
			ok, err := p.tryCandidate(ctx, c, timeout, attempts)
			if err != nil {
				return false, err
			}
			if ok {
				p.log.Debug("endpoint reachable", logger.String("candidate", c.String()))
				return true, nil
			}
		}
	}
	return false, nil
}

func (p *Prober) tryCandidate(ctx context.Context, c candidate, timeout time.Duration, attempts uint) (bool, error) {
	var made uint
	opts := []retry.Option{
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.LastErrorOnly(true),
		retry.DelayType(func(_ uint, _ error, _ *retry.Config) time.Duration {
			return time.Duration(made) * attemptBackoff
		}),
		retry.OnRetry(func(_ uint, err error) {
			p.log.Debug("connect attempt failed",
				logger.String("candidate", c.String()),
				logger.Uint("attempt", made),
				logger.Error(err))
		}),
	}
	if p.timer != nil {
		opts = append(opts, retry.WithTimer(p.timer))
	}

	err := retry.Do(func() error {
		made++
		return p.connect(ctx, c, timeout)
	}, opts...)
	if err == nil {
		return true, nil
	}

	var dnsErr *DNSError
	if errors.As(err, &dnsErr) {
		return false, dnsErr
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return false, ctxErr
	}
	return false, nil
}

func (p *Prober) connect(ctx context.Context, c candidate, timeout time.Duration) error {
	addrs, err := p.resolver.LookupHost(ctx, c.host)
	if err != nil {
		if ctx.Err() != nil {
			return retry.Unrecoverable(ctx.Err())
		}
		return retry.Unrecoverable(&DNSError{Host: c.host, Err: err})
	}
	if len(addrs) == 0 {
		return retry.Unrecoverable(&DNSError{Host: c.host, Err: errors.New("no addresses")})
	}

	dialer := net.Dialer{Timeout: timeout, KeepAlive: -1}
	var lastErr error
	for _, addr := range addrs {
		conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(addr, c.port))
		if err != nil {
			lastErr = err
			continue
		}
		_ = conn.Close()
		return nil
	}
	return fmt.Errorf("connect %s: %w", c, lastErr)
}

// candidates expands an endpoint into host/port pairs. An endpoint that
// already names a port yields only that pair.
func candidates(endpoint string, ports []uint16) []candidate {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return nil
	}
	if host, port, err := net.SplitHostPort(endpoint); err == nil && host != "" && port != "" {
		return []candidate{{host: host, port: port}}
	}

	host := strings.Trim(endpoint, "[]")
	out := make([]candidate, 0, len(ports))
	for _, port := range ports {
		out = append(out, candidate{host: host, port: strconv.Itoa(int(port))})
	}
	return out
}
