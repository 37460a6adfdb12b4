package identity

import (
	"context"

	"github.com/MrSnakeDoc/checkvpn/internal/logger"
)

// Chain evaluates providers in order and stops at the first success.
type Chain struct {
	providers []Provider
	log       logger.Logger
	onFailure func(provider string, err error)
}

type ChainOption func(*Chain)

func WithChainLogger(l logger.Logger) ChainOption { return func(c *Chain) { c.log = l } }

// WithFailureHook is called once per failed provider, e.g. to count failures.
func WithFailureHook(fn func(provider string, err error)) ChainOption {
	return func(c *Chain) { c.onFailure = fn }
}

func NewChain(providers []Provider, opts ...ChainOption) *Chain {
	c := &Chain{
		providers: providers,
		log:       logger.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Names lists provider names in evaluation order.
func (c *Chain) Names() []string {
	names := make([]string, 0, len(c.providers))
	for _, p := range c.providers {
		names = append(names, p.Name())
	}
	return names
}

// Resolve returns the first identity any provider produces. When all fail the
// error is a *ChainExhaustedError; an empty chain yields ErrNoProviders.
func (c *Chain) Resolve(ctx context.Context) (Identity, error) {
	if len(c.providers) == 0 {
		return Identity{}, ErrNoProviders
	}

	failures := make([]ProviderFailure, 0, len(c.providers))
	for _, p := range c.providers {
		id, err := p.Query(ctx)
		if err == nil {
			if len(failures) > 0 {
				c.log.Info("identity resolved after provider failures",
					logger.String("provider", p.Name()),
					logger.Int("failed", len(failures)))
			}
			return id, nil
		}

		c.log.Warn("identity provider failed",
			logger.String("provider", p.Name()),
			logger.Error(err))
		if c.onFailure != nil {
			c.onFailure(p.Name(), err)
		}
		failures = append(failures, ProviderFailure{Provider: p.Name(), Err: err})

		if ctx.Err() != nil {
			break
		}
	}
	return Identity{}, &ChainExhaustedError{Failures: failures}
}

// ChainOptions selects and orders the providers of a chain.
type ChainOptions struct {
	ProviderURLs      []string
	CustomJSONServer  string
	CustomJSONKey     string
	DisableIPAPI      bool
	DisableIfconfigCo bool
}

// BuildChain orders providers as: explicit URLs, the custom JSON server,
// then ip-api and ifconfig.co unless disabled.
func BuildChain(opts ChainOptions, f *Fetcher, chainOpts ...ChainOption) *Chain {
	providers := make([]Provider, 0, len(opts.ProviderURLs)+3)
	for _, url := range opts.ProviderURLs {
		providers = append(providers, NewGenericJSON(f, url, ""))
	}
	if opts.CustomJSONServer != "" {
		providers = append(providers, NewGenericJSON(f, opts.CustomJSONServer, opts.CustomJSONKey))
	}
	if !opts.DisableIPAPI {
		providers = append(providers, NewIPAPI(f))
	}
	if !opts.DisableIfconfigCo {
		providers = append(providers, NewIfconfigCo(f))
	}
	return NewChain(providers, chainOpts...)
}
