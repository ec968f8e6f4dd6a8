package options

import "net/http"

type ModelOptions struct {
	dimensions int
	httpClient *http.Client
}

// Dimensions is the requested embedding size, 0 for the model default.
func (c *ModelOptions) Dimensions() int {
	return c.dimensions
}

func (c *ModelOptions) HTTPClient() *http.Client {
	return c.httpClient
}

type Opt func(*ModelOptions)

func WithDimensions(n int) Opt {
	return func(cfg *ModelOptions) {
		cfg.dimensions = n
	}
}

// WithHTTPClient overrides the HTTP client used to reach the API.
func WithHTTPClient(c *http.Client) Opt {
	return func(cfg *ModelOptions) {
		cfg.httpClient = c
	}
}

// Apply folds opts into a ModelOptions value.
func Apply(opts ...Opt) ModelOptions {
	var o ModelOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
