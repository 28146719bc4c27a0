package domain

import (
	"context"
	"net/http"
	"net/url"
	"strings"
)

// Fetcher is the authenticated HTTP client the workflow operations run on.
// Implementations never follow redirects; 3xx and 4xx responses are returned
// to the caller so the per-operation classification tables own status handling.
type Fetcher interface {
	// Get fetches a page
	Get(ctx context.Context, url string) (*Response, error)
	// PostForm submits a urlencoded form with extra headers (Referer/Origin)
	PostForm(ctx context.Context, url string, form url.Values, headers map[string]string) (*Response, error)
	// SetCookies installs cookies into the client's jar for the given URL
	SetCookies(rawURL string, cookies []*http.Cookie) error
	// Cookies exports the jar's cookies for a URL (for browser replay)
	Cookies(rawURL string) []*http.Cookie
	// UserAgent returns the active user agent string
	UserAgent() string
	// SetUserAgent replaces the active user agent (remote CAPTCHA solves
	// must reuse the agent the solver's browser presented)
	SetUserAgent(ua string)
	// Close releases resources
	Close() error
}

// Response represents an HTTP response
type Response struct {
	StatusCode int
	Body       []byte
	Headers    http.Header
	URL        string
}

// IsRedirect reports whether the response is an HTTP redirect.
func (r *Response) IsRedirect() bool {
	return r.StatusCode >= 300 && r.StatusCode < 400
}

// Location returns the redirect target, or "" when not a redirect.
func (r *Response) Location() string {
	if r == nil || r.Headers == nil {
		return ""
	}
	return r.Headers.Get("Location")
}

// RedirectsTo reports whether the response redirects to a URL containing the
// given path fragment.
func (r *Response) RedirectsTo(fragment string) bool {
	return r.IsRedirect() && strings.Contains(r.Location(), fragment)
}

// Registrar runs the dynamic multi-step registration workflows that need a
// live JavaScript runtime. Each call owns a full browser lifecycle.
type Registrar interface {
	// Extensions fetches the free-subdomain suffix catalog
	Extensions(ctx context.Context, accountID string) ([]Extension, error)
	// RegisterFree registers subdomain.extension as a new free domain
	RegisterFree(ctx context.Context, accountID, subdomain, extension string) (*OperationResult, error)
	// RegisterCustom registers subdomain.parentDomain under an owned parent
	RegisterCustom(ctx context.Context, accountID, parentDomain, subdomain string) (*OperationResult, error)
	// DeleteDomain removes a domain from the account
	DeleteDomain(ctx context.Context, accountID, domain string) (*OperationResult, error)
}
