package fetcher

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"context"

	fhttp "github.com/bogdanfinn/fhttp"
	tls_client "github.com/bogdanfinn/tls-client"
	"github.com/bogdanfinn/tls-client/profiles"
	"github.com/ifpanel/ifpanel-go/internal/domain"
)

// Client is the authenticated HTTP client all static workflows run on. It
// wraps tls-client with a Chrome TLS profile and a process-wide cookie jar.
// Redirect following is disabled: the panel signals success and failure
// through redirect targets, so callers must see 3xx responses as-is.
type Client struct {
	tlsClient tls_client.HttpClient
	userAgent string
	retrier   *Retrier
}

// ClientOptions contains options for creating a Client
type ClientOptions struct {
	Timeout    time.Duration
	MaxRetries int
	UserAgent  string
	ProxyURL   string
}

// DefaultClientOptions returns default client options
func DefaultClientOptions() ClientOptions {
	return ClientOptions{
		Timeout:    30 * time.Second,
		MaxRetries: 3,
	}
}

// NewClient creates a new authenticated HTTP client
func NewClient(opts ClientOptions) (*Client, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}

	tlsOpts := []tls_client.HttpClientOption{
		tls_client.WithTimeoutSeconds(int(opts.Timeout.Seconds())),
		tls_client.WithClientProfile(profiles.Chrome_131),
		tls_client.WithRandomTLSExtensionOrder(),
		tls_client.WithNotFollowRedirects(),
		tls_client.WithCookieJar(tls_client.NewCookieJar()),
	}

	if opts.ProxyURL != "" {
		tlsOpts = append(tlsOpts, tls_client.WithProxyUrl(opts.ProxyURL))
	}

	tlsClient, err := tls_client.NewHttpClient(tls_client.NewNoopLogger(), tlsOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create tls client: %w", err)
	}

	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = RandomUserAgent()
	}

	retrier := NewRetrier(RetrierOptions{
		MaxRetries:      opts.MaxRetries,
		InitialInterval: 1 * time.Second,
		MaxInterval:     30 * time.Second,
		Multiplier:      2.0,
	})

	return &Client{
		tlsClient: tlsClient,
		userAgent: userAgent,
		retrier:   retrier,
	}, nil
}

// Get fetches a page. Transient statuses (429, 5xx) are retried with backoff;
// everything else, redirects included, is returned for classification.
func (c *Client) Get(ctx context.Context, targetURL string) (*domain.Response, error) {
	return RetryWithValue(ctx, c.retrier, func() (*domain.Response, error) {
		return c.doRequest(ctx, fhttp.MethodGet, targetURL, "", nil)
	})
}

// PostForm submits a urlencoded form. Not retried: re-submitting a write to
// the panel is never safe to do silently.
func (c *Client) PostForm(ctx context.Context, targetURL string, form url.Values, headers map[string]string) (*domain.Response, error) {
	return c.doRequest(ctx, fhttp.MethodPost, targetURL, form.Encode(), headers)
}

// doRequest performs the actual HTTP request
func (c *Client) doRequest(ctx context.Context, method, targetURL, body string, extraHeaders map[string]string) (*domain.Response, error) {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}

	req, err := fhttp.NewRequestWithContext(ctx, method, targetURL, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	for k, v := range StealthHeaders(c.userAgent) {
		req.Header.Set(k, v)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	for k, v := range extraHeaders {
		req.Header.Set(k, v)
	}

	resp, err := c.tlsClient.Do(req)
	if err != nil {
		return nil, &domain.FetchError{
			URL: targetURL,
			Err: fmt.Errorf("request failed: %w", err),
		}
	}
	defer resp.Body.Close()

	if method == fhttp.MethodGet && ShouldRetryStatus(resp.StatusCode) {
		return nil, &domain.RetryableError{
			Err:        &domain.FetchError{URL: targetURL, StatusCode: resp.StatusCode, Err: fmt.Errorf("HTTP %d", resp.StatusCode)},
			RetryAfter: int(ParseRetryAfter(resp.Header.Get("Retry-After")).Seconds()),
		}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	httpHeaders := make(http.Header)
	for k, v := range resp.Header {
		httpHeaders[k] = v
	}

	return &domain.Response{
		StatusCode: resp.StatusCode,
		Body:       data,
		Headers:    httpHeaders,
		URL:        targetURL,
	}, nil
}

// SetCookies installs cookies into the client's jar for the given URL
func (c *Client) SetCookies(rawURL string, cookies []*http.Cookie) error {
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid cookie URL: %w", err)
	}

	converted := make([]*fhttp.Cookie, len(cookies))
	for i, cookie := range cookies {
		converted[i] = &fhttp.Cookie{
			Name:     cookie.Name,
			Value:    cookie.Value,
			Path:     cookie.Path,
			Domain:   cookie.Domain,
			Expires:  cookie.Expires,
			Secure:   cookie.Secure,
			HttpOnly: cookie.HttpOnly,
		}
	}
	c.tlsClient.SetCookies(parsedURL, converted)
	return nil
}

// Cookies exports the jar's cookies for a URL (for browser replay)
func (c *Client) Cookies(rawURL string) []*http.Cookie {
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return nil
	}
	cookies := c.tlsClient.GetCookies(parsedURL)
	result := make([]*http.Cookie, len(cookies))
	for i, cookie := range cookies {
		result[i] = &http.Cookie{
			Name:     cookie.Name,
			Value:    cookie.Value,
			Path:     cookie.Path,
			Domain:   cookie.Domain,
			Expires:  cookie.Expires,
			Secure:   cookie.Secure,
			HttpOnly: cookie.HttpOnly,
		}
	}
	return result
}

// UserAgent returns the active user agent string
func (c *Client) UserAgent() string {
	return c.userAgent
}

// SetUserAgent replaces the active user agent
func (c *Client) SetUserAgent(ua string) {
	if ua != "" {
		c.userAgent = ua
	}
}

// Close releases client resources
func (c *Client) Close() error {
	c.tlsClient.CloseIdleConnections()
	return nil
}

var _ domain.Fetcher = (*Client)(nil)
