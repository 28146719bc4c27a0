// Package session owns the authenticated-cookie state against the panel and
// the strategies that establish it. A Session is an explicit value passed
// into every workflow operation; callers needing isolation construct one per
// logical user. Mutation is not synchronized, so overlapping calls against
// one Session must be serialized by the caller.
package session

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/ifpanel/ifpanel-go/internal/domain"
)

// Session is the process's current authentication state against the panel.
type Session struct {
	BaseURL       string
	Client        domain.Fetcher
	Authenticated bool
}

// New creates an unauthenticated session on the given client
func New(baseURL string, client domain.Fetcher) *Session {
	return &Session{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  client,
	}
}

// Invalidate flips the session back to unauthenticated so the next operation
// re-establishes it. Called by any operation that detects an authentication
// failure mid-flight.
func (s *Session) Invalidate() {
	s.Authenticated = false
}

// URL joins a path onto the panel base URL
func (s *Session) URL(path string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return s.BaseURL + path
}

// ParseCookieString splits a browser-copied cookie header into individual
// cookies. Pairs are semicolon separated; surrounding whitespace is trimmed,
// and segments without an "=" are skipped. Order is preserved.
func ParseCookieString(cookieString string) []*http.Cookie {
	var cookies []*http.Cookie

	for _, pair := range strings.Split(cookieString, ";") {
		trimmed := strings.TrimSpace(pair)
		if trimmed == "" {
			continue
		}
		idx := strings.Index(trimmed, "=")
		if idx == -1 {
			continue
		}
		cookies = append(cookies, &http.Cookie{
			Name:  trimmed[:idx],
			Value: trimmed[idx+1:],
		})
	}

	return cookies
}

// InstallCookieString parses a pre-captured cookie string and installs each
// cookie into the session's jar, scoped to the panel's registrable domain.
// Returns the number of cookies installed.
func (s *Session) InstallCookieString(cookieString string) (int, error) {
	parsed, err := url.Parse(s.BaseURL)
	if err != nil {
		return 0, fmt.Errorf("invalid base URL: %w", err)
	}

	cookieDomain := parentDomain(parsed.Hostname())

	cookies := ParseCookieString(cookieString)
	for _, cookie := range cookies {
		cookie.Domain = cookieDomain
		cookie.Path = "/"
	}

	if err := s.Client.SetCookies(s.BaseURL, cookies); err != nil {
		return 0, err
	}
	return len(cookies), nil
}

// parentDomain drops the first label so cookies cover sibling subdomains
// (dash.example.com -> .example.com). Hosts with fewer than three labels are
// already the registrable domain and pass through unchanged.
func parentDomain(host string) string {
	parts := strings.Split(host, ".")
	if len(parts) < 3 {
		return host
	}
	return "." + strings.Join(parts[1:], ".")
}

// EnsureAuthenticated establishes the session if it is not already
// authenticated. Idempotent; a no-op on an authenticated session.
func EnsureAuthenticated(ctx context.Context, s *Session, auth Authenticator) error {
	if s.Authenticated {
		return nil
	}
	if auth == nil {
		return domain.NewAuthError("none", "no authentication strategy configured", domain.ErrConfigurationMissing)
	}
	if err := auth.Establish(ctx, s); err != nil {
		return err
	}
	s.Authenticated = true
	return nil
}
