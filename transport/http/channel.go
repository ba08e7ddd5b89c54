package http

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/get402/get402-go/transport"
)

// Option is an option configuring a HTTP channel.
type Option func(cfg *chanConfig)

type chanConfig struct {
	client *http.Client
}

// WithClient configures the HTTP client the channel should use to make
// requests.
func WithClient(c *http.Client) Option {
	return func(cfg *chanConfig) {
		cfg.client = c
	}
}

type channel struct {
	endpoint *url.URL
	client   *http.Client
}

func (c *channel) Request(ctx context.Context, req transport.HTTPRequest) (transport.HTTPResponse, error) {
	u := c.endpoint.JoinPath(req.Path())
	hr, err := http.NewRequestWithContext(ctx, req.Method(), u.String(), req.Body())
	if err != nil {
		return nil, fmt.Errorf("creating HTTP request: %w", err)
	}

	for k, vs := range req.Headers() {
		hr.Header[k] = vs
	}
	res, err := c.client.Do(hr)
	if err != nil {
		return nil, fmt.Errorf("doing HTTP request: %w", err)
	}

	return NewResponse(res.StatusCode, res.Body, res.Header), nil
}

// NewHTTPChannel creates a channel bound to the given service endpoint.
func NewHTTPChannel(endpoint *url.URL, options ...Option) transport.Channel {
	cfg := chanConfig{}
	for _, opt := range options {
		opt(&cfg)
	}
	if cfg.client == nil {
		cfg.client = &http.Client{}
	}
	return &channel{
		endpoint: endpoint,
		client:   cfg.client,
	}
}
