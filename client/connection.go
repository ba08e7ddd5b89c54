package client

import (
	"net/http"
	"net/url"

	"github.com/pkg/errors"

	"github.com/get402/get402-go/auth"
	"github.com/get402/get402-go/transport"
	thttp "github.com/get402/get402-go/transport/http"
)

// Connection binds principals to a metering service endpoint. There is no
// process-wide service address: every App carries its Connection, so the same
// binary can talk to production and a test server at once.
type Connection interface {
	Channel() transport.Channel
	// Domain is signed into every authorization envelope made over this
	// connection.
	Domain() string
}

// Option is an option configuring a connection.
type Option func(cfg *connConfig) error

type connConfig struct {
	channel transport.Channel
	client  *http.Client
	domain  string
}

// WithHTTPClient configures the HTTP client used to reach the service.
func WithHTTPClient(c *http.Client) Option {
	return func(cfg *connConfig) error {
		cfg.client = c
		return nil
	}
}

// WithChannel replaces the transport channel entirely.
func WithChannel(ch transport.Channel) Option {
	return func(cfg *connConfig) error {
		cfg.channel = ch
		return nil
	}
}

// WithDomain overrides the domain bound into authorization envelopes.
func WithDomain(domain string) Option {
	return func(cfg *connConfig) error {
		cfg.domain = domain
		return nil
	}
}

// NewConnection creates a connection to the metering service at the given
// endpoint URL.
func NewConnection(endpoint string, options ...Option) (Connection, error) {
	cfg := connConfig{domain: auth.DefaultDomain}
	for _, opt := range options {
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}
	if cfg.channel == nil {
		u, err := url.Parse(endpoint)
		if err != nil {
			return nil, errors.Wrap(err, "parsing endpoint URL")
		}
		var chopts []thttp.Option
		if cfg.client != nil {
			chopts = append(chopts, thttp.WithClient(cfg.client))
		}
		cfg.channel = thttp.NewHTTPChannel(u, chopts...)
	}
	return &conn{channel: cfg.channel, domain: cfg.domain}, nil
}

type conn struct {
	channel transport.Channel
	domain  string
}

func (c *conn) Channel() transport.Channel {
	return c.channel
}

func (c *conn) Domain() string {
	return c.domain
}
