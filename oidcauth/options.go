package oidcauth

import (
	"net/http"
	"time"

	"github.com/hashicorp/go-hclog"
)

// Option defines a common functional options type
type Option func(interface{})

// ApplyOpts takes a pointer to the options struct as a set of default options
// and applies the slice of opts as overrides.
func ApplyOpts(opts interface{}, opt ...Option) {
	for _, o := range opt {
		if o == nil {
			continue
		}
		o(opts)
	}
}

// providerOptions is the set of available options for provider constructors.
type providerOptions struct {
	withLogger     hclog.Logger
	withHTTPClient *http.Client
	withNowFunc    func() time.Time
}

func providerDefaults() providerOptions {
	return providerOptions{}
}

func getProviderOpts(opt ...Option) providerOptions {
	opts := providerDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}

// WithLogger provides an optional logger for a provider and the clients it
// constructs.  When no logger is provided, logging is discarded.
func WithLogger(l hclog.Logger) Option {
	return func(o interface{}) {
		if o, ok := o.(*providerOptions); ok {
			o.withLogger = l
		}
	}
}

// WithHTTPClient provides an optional http client, overriding the client the
// provider would otherwise build from its settings.  Useful for tests and for
// hosts that manage their own transport.
func WithHTTPClient(c *http.Client) Option {
	return func(o interface{}) {
		if o, ok := o.(*providerOptions); ok {
			o.withHTTPClient = c
		}
	}
}

// WithNow provides an optional time source, overriding time.Now.
func WithNow(now func() time.Time) Option {
	return func(o interface{}) {
		if o, ok := o.(*providerOptions); ok {
			o.withNowFunc = now
		}
	}
}
