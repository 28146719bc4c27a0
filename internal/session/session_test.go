package session

import (
	"context"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ifpanel/ifpanel-go/internal/domain"
)

// fakeFetcher replays canned responses keyed by (method, url) and records
// every call for assertions.
type fakeFetcher struct {
	responses map[string]*domain.Response
	cookies   []*http.Cookie
	userAgent string

	gets  []string
	posts []postCall
}

type postCall struct {
	url  string
	form url.Values
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		responses: make(map[string]*domain.Response),
		userAgent: "test-agent",
	}
}

func (f *fakeFetcher) Get(ctx context.Context, rawURL string) (*domain.Response, error) {
	f.gets = append(f.gets, rawURL)
	if resp, ok := f.responses["GET "+rawURL]; ok {
		return resp, nil
	}
	return &domain.Response{StatusCode: 404, URL: rawURL}, nil
}

func (f *fakeFetcher) PostForm(ctx context.Context, rawURL string, form url.Values, headers map[string]string) (*domain.Response, error) {
	f.posts = append(f.posts, postCall{url: rawURL, form: form})
	if resp, ok := f.responses["POST "+rawURL]; ok {
		return resp, nil
	}
	return &domain.Response{StatusCode: 404, URL: rawURL}, nil
}

func (f *fakeFetcher) SetCookies(rawURL string, cookies []*http.Cookie) error {
	f.cookies = append(f.cookies, cookies...)
	return nil
}

func (f *fakeFetcher) Cookies(rawURL string) []*http.Cookie { return f.cookies }
func (f *fakeFetcher) UserAgent() string                    { return f.userAgent }
func (f *fakeFetcher) SetUserAgent(ua string)               { f.userAgent = ua }
func (f *fakeFetcher) Close() error                         { return nil }

func TestParseCookieString(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []*http.Cookie
	}{
		{
			name:  "two cookies",
			input: "a=1; b=2",
			expected: []*http.Cookie{
				{Name: "a", Value: "1"},
				{Name: "b", Value: "2"},
			},
		},
		{
			name:  "segments without equals are skipped",
			input: "a=1; garbage; b=2; ;",
			expected: []*http.Cookie{
				{Name: "a", Value: "1"},
				{Name: "b", Value: "2"},
			},
		},
		{
			name:  "value containing equals",
			input: "token=abc=def",
			expected: []*http.Cookie{
				{Name: "token", Value: "abc=def"},
			},
		},
		{
			name:     "empty string",
			input:    "",
			expected: nil,
		},
		{
			name:  "whitespace trimmed",
			input: "  session = xyz  ",
			expected: []*http.Cookie{
				{Name: "session ", Value: " xyz"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseCookieString(tt.input))
		})
	}
}

func TestInstallCookieString(t *testing.T) {
	f := newFakeFetcher()
	s := New("https://dash.example.com", f)

	n, err := s.InstallCookieString("PHPSESSID=abc; __cf=xyz")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	require.Len(t, f.cookies, 2)

	// cookies are scoped to the parent domain so sibling hosts see them
	assert.Equal(t, ".example.com", f.cookies[0].Domain)
	assert.Equal(t, "/", f.cookies[0].Path)
}

func TestInstallCookieString_BareDomain(t *testing.T) {
	f := newFakeFetcher()
	s := New("https://example.com", f)

	n, err := s.InstallCookieString("PHPSESSID=abc")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.Len(t, f.cookies, 1)

	// a two-label host is already the registrable domain; never ".com"
	assert.Equal(t, "example.com", f.cookies[0].Domain)
}

func TestSessionURL(t *testing.T) {
	s := New("https://dash.example.com/", newFakeFetcher())
	assert.Equal(t, "https://dash.example.com/accounts", s.URL("/accounts"))
	assert.Equal(t, "https://dash.example.com/accounts", s.URL("accounts"))
}

func TestEnsureAuthenticated(t *testing.T) {
	t.Run("no strategy configured", func(t *testing.T) {
		s := New("https://dash.example.com", newFakeFetcher())
		err := EnsureAuthenticated(context.Background(), s, nil)
		assert.ErrorIs(t, err, domain.ErrConfigurationMissing)
	})

	t.Run("cookie strategy marks session authenticated", func(t *testing.T) {
		s := New("https://dash.example.com", newFakeFetcher())
		auth := &CookieAuthenticator{CookieString: "a=1"}

		require.NoError(t, EnsureAuthenticated(context.Background(), s, auth))
		assert.True(t, s.Authenticated)
	})

	t.Run("idempotent once authenticated", func(t *testing.T) {
		f := newFakeFetcher()
		s := New("https://dash.example.com", f)
		auth := &CookieAuthenticator{CookieString: "a=1"}

		require.NoError(t, EnsureAuthenticated(context.Background(), s, auth))
		require.NoError(t, EnsureAuthenticated(context.Background(), s, auth))
		assert.Len(t, f.cookies, 1)
	})

	t.Run("invalidate forces re-establishment", func(t *testing.T) {
		f := newFakeFetcher()
		s := New("https://dash.example.com", f)
		auth := &CookieAuthenticator{CookieString: "a=1"}

		require.NoError(t, EnsureAuthenticated(context.Background(), s, auth))
		s.Invalidate()
		require.NoError(t, EnsureAuthenticated(context.Background(), s, auth))
		assert.Len(t, f.cookies, 2)
	})
}

func TestCredentialAuthenticator_Establish(t *testing.T) {
	loginPage := `<form action="/login"><input name="_token" value="tok123"></form>`

	t.Run("redirect away from login succeeds", func(t *testing.T) {
		f := newFakeFetcher()
		f.responses["GET https://dash.example.com/login"] = &domain.Response{
			StatusCode: 200, Body: []byte(loginPage),
		}
		f.responses["POST https://dash.example.com/login"] = &domain.Response{
			StatusCode: 302,
			Headers:    http.Header{"Location": []string{"/accounts"}},
		}

		s := New("https://dash.example.com", f)
		auth := &CredentialAuthenticator{Email: "a@b.c", Password: "pw"}
		require.NoError(t, auth.Establish(context.Background(), s))

		require.Len(t, f.posts, 1)
		assert.Equal(t, "tok123", f.posts[0].form.Get("_token"))
		assert.Equal(t, "a@b.c", f.posts[0].form.Get("email"))
		assert.Empty(t, f.posts[0].form.Get("cf-turnstile-response"))
	})

	t.Run("redirect back to login is rejected", func(t *testing.T) {
		f := newFakeFetcher()
		f.responses["GET https://dash.example.com/login"] = &domain.Response{
			StatusCode: 200, Body: []byte(loginPage),
		}
		f.responses["POST https://dash.example.com/login"] = &domain.Response{
			StatusCode: 302,
			Headers:    http.Header{"Location": []string{"/login"}},
		}

		s := New("https://dash.example.com", f)
		auth := &CredentialAuthenticator{Email: "a@b.c", Password: "pw"}

		var authErr *domain.AuthError
		require.ErrorAs(t, auth.Establish(context.Background(), s), &authErr)
	})

	t.Run("error banner surfaces in AuthError", func(t *testing.T) {
		f := newFakeFetcher()
		f.responses["GET https://dash.example.com/login"] = &domain.Response{
			StatusCode: 200, Body: []byte(loginPage),
		}
		f.responses["POST https://dash.example.com/login"] = &domain.Response{
			StatusCode: 200,
			Body:       []byte(`<div class="alert-danger">These credentials do not match our records.</div>`),
		}

		s := New("https://dash.example.com", f)
		auth := &CredentialAuthenticator{Email: "a@b.c", Password: "pw"}

		err := auth.Establish(context.Background(), s)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "These credentials do not match our records.")
	})

	t.Run("missing token on login page issues no POST", func(t *testing.T) {
		f := newFakeFetcher()
		f.responses["GET https://dash.example.com/login"] = &domain.Response{
			StatusCode: 200, Body: []byte(`<form action="/login"></form>`),
		}

		s := New("https://dash.example.com", f)
		auth := &CredentialAuthenticator{Email: "a@b.c", Password: "pw"}

		err := auth.Establish(context.Background(), s)
		assert.ErrorIs(t, err, domain.ErrTokenNotFound)
		assert.Empty(t, f.posts)
	})
}

func TestSelect(t *testing.T) {
	tests := []struct {
		name     string
		cookies  string
		email    string
		password string
		expected string
		wantErr  bool
	}{
		{name: "cookies win", cookies: "a=1", email: "e", password: "p", expected: "cookie-bundle"},
		{name: "plain credentials", email: "e", password: "p", expected: "credential-login"},
		{name: "nothing configured", wantErr: true},
		{name: "email without password", email: "e", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			auth, err := Select(tt.cookies, tt.email, tt.password, nil, nil)
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrConfigurationMissing)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, auth.Name())
		})
	}
}
