// Package network provides the HTTP client used to fetch playlists, segments and progressive files.
//
// Requests are retried on transient failures with exponential backoff and jitter.
// Everything else, including context cancellation, is returned immediately.
package network

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/anisan-cli/anidl/constant"
	"github.com/anisan-cli/anidl/key"
	"github.com/anisan-cli/anidl/log"
	"github.com/avast/retry-go/v4"
	"github.com/spf13/viper"
)

// Options configures a Client.
type Options struct {
	// Attempts is the total number of tries per request, including the first one.
	Attempts int
	// Delay is the base backoff delay, doubled on every retry.
	Delay time.Duration
	// MaxDelay caps the backoff delay.
	MaxDelay time.Duration
	// HeaderTimeout bounds the wait for response headers. Bodies are never cut short.
	HeaderTimeout time.Duration
	// Fingerprint enables the Chrome TLS fingerprint transport.
	Fingerprint bool
}

// DefaultOptions mirrors the defaults registered in the config package.
var DefaultOptions = Options{
	Attempts:      3,
	Delay:         300 * time.Millisecond,
	MaxDelay:      2 * time.Second,
	HeaderTimeout: 30 * time.Second,
}

// OptionsFromConfig reads the network.* keys.
func OptionsFromConfig() Options {
	return Options{
		Attempts:      viper.GetInt(key.NetworkRetries),
		Delay:         viper.GetDuration(key.NetworkRetryDelay),
		MaxDelay:      viper.GetDuration(key.NetworkRetryMaxDelay),
		HeaderTimeout: viper.GetDuration(key.NetworkTimeout),
		Fingerprint:   viper.GetBool(key.NetworkTLSFingerprint),
	}
}

// Client is a retrying HTTP GET client. It is safe for concurrent use.
type Client struct {
	http    *http.Client
	options Options
}

// New creates a Client. Zero option fields fall back to DefaultOptions.
func New(options Options) *Client {
	if options.Attempts <= 0 {
		options.Attempts = DefaultOptions.Attempts
	}
	if options.Delay <= 0 {
		options.Delay = DefaultOptions.Delay
	}
	if options.MaxDelay <= 0 {
		options.MaxDelay = DefaultOptions.MaxDelay
	}
	if options.HeaderTimeout <= 0 {
		options.HeaderTimeout = DefaultOptions.HeaderTimeout
	}

	var transport http.RoundTripper = newTransport(options.HeaderTimeout)
	if options.Fingerprint {
		transport = newFingerprintTransport(options.HeaderTimeout)
	}

	return &Client{
		http:    &http.Client{Transport: transport},
		options: options,
	}
}

// Get issues a GET request and returns the response once a 2xx status is received.
// The caller must close the response body.
func (c *Client) Get(ctx context.Context, url string, headers map[string]string) (*http.Response, error) {
	return retry.DoWithData(
		func() (*http.Response, error) {
			return c.get(ctx, url, headers)
		},
		c.retryOptions(ctx, url)...,
	)
}

// GetBytes fetches the full body of url. Failures while reading the body are retried too.
func (c *Client) GetBytes(ctx context.Context, url string, headers map[string]string) ([]byte, error) {
	return retry.DoWithData(
		func() ([]byte, error) {
			resp, err := c.get(ctx, url, headers)
			if err != nil {
				return nil, err
			}
			defer resp.Body.Close()

			data, err := io.ReadAll(resp.Body)
			if err != nil {
				return nil, classify(fmt.Errorf("read body: %w", err))
			}
			return data, nil
		},
		c.retryOptions(ctx, url)...,
	)
}

// GetText fetches url and returns the body together with the final URL after redirects.
func (c *Client) GetText(ctx context.Context, url string, headers map[string]string) (body string, final string, err error) {
	type page struct {
		body, final string
	}

	p, err := retry.DoWithData(
		func() (page, error) {
			resp, err := c.get(ctx, url, headers)
			if err != nil {
				return page{}, err
			}
			defer resp.Body.Close()

			data, err := io.ReadAll(resp.Body)
			if err != nil {
				return page{}, classify(fmt.Errorf("read body: %w", err))
			}
			return page{body: string(data), final: resp.Request.URL.String()}, nil
		},
		c.retryOptions(ctx, url)...,
	)

	return p.body, p.final, err
}

func (c *Client) get(ctx context.Context, url string, headers map[string]string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", constant.UserAgent)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, classify(err)
	}

	if err := statusErr(url, resp.StatusCode); err != nil {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))
		_ = resp.Body.Close()
		return nil, err
	}

	return resp, nil
}

func (c *Client) retryOptions(ctx context.Context, url string) []retry.Option {
	return []retry.Option{
		retry.Context(ctx),
		retry.Attempts(uint(c.options.Attempts)),
		retry.Delay(c.options.Delay),
		retry.MaxDelay(c.options.MaxDelay),
		retry.MaxJitter(c.options.Delay / 4),
		retry.DelayType(retry.CombineDelay(retry.BackOffDelay, retry.RandomDelay)),
		retry.LastErrorOnly(true),
		retry.RetryIf(IsTransient),
		retry.OnRetry(func(n uint, err error) {
			log.Debugf("retrying %s (attempt %d): %v", url, n+1, err)
		}),
	}
}
