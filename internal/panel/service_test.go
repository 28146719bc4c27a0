package panel

import (
	"context"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ifpanel/ifpanel-go/internal/domain"
	"github.com/ifpanel/ifpanel-go/internal/session"
	"github.com/ifpanel/ifpanel-go/internal/utils"
)

const baseURL = "https://dash.example.com"

const dashboardPage = `<title>Accounts</title><div class="account-card">
	<a href="/accounts/if0_40106205">Main Site</a></div>`

const loginPage = `<title>Sign In</title><form action="/login"><input id="email"></form>`

// scriptedFetcher pops canned responses from per-endpoint queues, so a test
// can serve different bodies to successive requests against the same URL.
type scriptedFetcher struct {
	queues  map[string][]*domain.Response
	cookies []*http.Cookie

	gets  []string
	posts []postCall
}

type postCall struct {
	url  string
	form url.Values
}

func newScriptedFetcher() *scriptedFetcher {
	return &scriptedFetcher{queues: make(map[string][]*domain.Response)}
}

func (f *scriptedFetcher) enqueue(method, rawURL string, resp *domain.Response) {
	key := method + " " + rawURL
	f.queues[key] = append(f.queues[key], resp)
}

func (f *scriptedFetcher) pop(method, rawURL string) *domain.Response {
	key := method + " " + rawURL
	queue := f.queues[key]
	if len(queue) == 0 {
		return &domain.Response{StatusCode: 404, URL: rawURL}
	}
	resp := queue[0]
	f.queues[key] = queue[1:]
	return resp
}

func (f *scriptedFetcher) Get(ctx context.Context, rawURL string) (*domain.Response, error) {
	f.gets = append(f.gets, rawURL)
	return f.pop("GET", rawURL), nil
}

func (f *scriptedFetcher) PostForm(ctx context.Context, rawURL string, form url.Values, headers map[string]string) (*domain.Response, error) {
	f.posts = append(f.posts, postCall{url: rawURL, form: form})
	return f.pop("POST", rawURL), nil
}

func (f *scriptedFetcher) SetCookies(rawURL string, cookies []*http.Cookie) error {
	f.cookies = append(f.cookies, cookies...)
	return nil
}

func (f *scriptedFetcher) Cookies(rawURL string) []*http.Cookie { return f.cookies }
func (f *scriptedFetcher) UserAgent() string                    { return "test-agent" }
func (f *scriptedFetcher) SetUserAgent(ua string)               {}
func (f *scriptedFetcher) Close() error                         { return nil }

// fakeRegistrar counts calls and returns canned results.
type fakeRegistrar struct {
	extensions     []domain.Extension
	extensionCalls int
	extensionsErr  error

	registerResult *domain.OperationResult
	registerErr    error
}

func (r *fakeRegistrar) Extensions(ctx context.Context, accountID string) ([]domain.Extension, error) {
	r.extensionCalls++
	if r.extensionsErr != nil {
		return nil, r.extensionsErr
	}
	return r.extensions, nil
}

func (r *fakeRegistrar) RegisterFree(ctx context.Context, accountID, subdomain, extension string) (*domain.OperationResult, error) {
	return r.registerResult, r.registerErr
}

func (r *fakeRegistrar) RegisterCustom(ctx context.Context, accountID, parentDomain, subdomain string) (*domain.OperationResult, error) {
	return r.registerResult, r.registerErr
}

func (r *fakeRegistrar) DeleteDomain(ctx context.Context, accountID, domainName string) (*domain.OperationResult, error) {
	return r.registerResult, r.registerErr
}

func newTestService(f *scriptedFetcher, reg domain.Registrar) *Service {
	sess := session.New(baseURL, f)
	auth := &session.CookieAuthenticator{CookieString: "PHPSESSID=test"}
	return NewService(sess, auth, reg, "if0_40106205", utils.NewDefaultLogger())
}

func TestVerify(t *testing.T) {
	t.Run("account data means authenticated", func(t *testing.T) {
		f := newScriptedFetcher()
		f.enqueue("GET", baseURL+"/accounts", &domain.Response{StatusCode: 200, Body: []byte(dashboardPage)})

		svc := newTestService(f, &fakeRegistrar{})
		result, err := svc.Verify(context.Background())
		require.NoError(t, err)
		assert.True(t, result.Authenticated)
	})

	t.Run("login page means unauthenticated", func(t *testing.T) {
		f := newScriptedFetcher()
		f.enqueue("GET", baseURL+"/accounts", &domain.Response{StatusCode: 200, Body: []byte(loginPage)})

		svc := newTestService(f, &fakeRegistrar{})
		result, err := svc.Verify(context.Background())
		require.NoError(t, err)
		assert.False(t, result.Authenticated)
	})

	t.Run("redirect to login means unauthenticated", func(t *testing.T) {
		f := newScriptedFetcher()
		f.enqueue("GET", baseURL+"/accounts", &domain.Response{
			StatusCode: 302,
			Headers:    http.Header{"Location": []string{baseURL + "/login"}},
		})

		svc := newTestService(f, &fakeRegistrar{})
		result, err := svc.Verify(context.Background())
		require.NoError(t, err)
		assert.False(t, result.Authenticated)
	})

	t.Run("redirect to login invalidates an authenticated session", func(t *testing.T) {
		f := newScriptedFetcher()
		f.enqueue("GET", baseURL+"/accounts", &domain.Response{
			StatusCode: 302,
			Headers:    http.Header{"Location": []string{baseURL + "/login"}},
		})

		svc := newTestService(f, &fakeRegistrar{})
		svc.sess.Authenticated = true
		result, err := svc.Verify(context.Background())
		require.NoError(t, err)
		assert.False(t, result.Authenticated)
		assert.False(t, svc.sess.Authenticated)
	})

	t.Run("login page body invalidates an authenticated session", func(t *testing.T) {
		f := newScriptedFetcher()
		f.enqueue("GET", baseURL+"/accounts", &domain.Response{StatusCode: 200, Body: []byte(loginPage)})

		svc := newTestService(f, &fakeRegistrar{})
		svc.sess.Authenticated = true
		result, err := svc.Verify(context.Background())
		require.NoError(t, err)
		assert.False(t, result.Authenticated)
		assert.False(t, svc.sess.Authenticated)
	})

	t.Run("neither marker is inconclusive", func(t *testing.T) {
		f := newScriptedFetcher()
		f.enqueue("GET", baseURL+"/accounts", &domain.Response{StatusCode: 200, Body: []byte("<p>503</p>")})

		svc := newTestService(f, &fakeRegistrar{})
		_, err := svc.Verify(context.Background())
		assert.ErrorIs(t, err, domain.ErrVerificationInconclusive)
	})
}

func TestListAccounts(t *testing.T) {
	f := newScriptedFetcher()
	f.enqueue("GET", baseURL+"/accounts", &domain.Response{StatusCode: 200, Body: []byte(dashboardPage)})

	svc := newTestService(f, &fakeRegistrar{})
	accounts, err := svc.ListAccounts(context.Background())
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, "if0_40106205", accounts[0].ID)
}

func TestListAccounts_ReauthOnExpiry(t *testing.T) {
	f := newScriptedFetcher()
	// first fetch lands on the login page, the retry after re-auth succeeds
	f.enqueue("GET", baseURL+"/accounts", &domain.Response{StatusCode: 200, Body: []byte(loginPage)})
	f.enqueue("GET", baseURL+"/accounts", &domain.Response{StatusCode: 200, Body: []byte(dashboardPage)})

	svc := newTestService(f, &fakeRegistrar{})
	accounts, err := svc.ListAccounts(context.Background())
	require.NoError(t, err)
	assert.Len(t, accounts, 1)
	assert.Len(t, f.gets, 2)
}

func TestListDomains(t *testing.T) {
	f := newScriptedFetcher()
	f.enqueue("GET", baseURL+"/accounts/if0_40106205", &domain.Response{
		StatusCode: 200,
		Body: []byte(`<title>Accounts</title><div class="account">
			<a href="/accounts/if0_40106205/domains/example.xo.je">example.xo.je</a>
			<a href="/accounts/if0_40106205/domains/create">Add</a></div>`),
	})

	svc := newTestService(f, &fakeRegistrar{})
	domains, err := svc.ListDomains(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, []string{"example.xo.je"}, domains)
}

func TestCreateCNAME(t *testing.T) {
	createURL := baseURL + "/accounts/if0_40106205/domains/example.xo.je/cnameRecords/create"
	postURL := baseURL + "/accounts/if0_40106205/domains/example.xo.je/cnameRecords"
	tokenPage := `<title>Accounts</title><div class="account-form">
		<input name="_token" value="tok-1"></div>`

	t.Run("redirect to records listing succeeds", func(t *testing.T) {
		f := newScriptedFetcher()
		f.enqueue("GET", createURL, &domain.Response{StatusCode: 200, Body: []byte(tokenPage)})
		f.enqueue("POST", postURL, &domain.Response{
			StatusCode: 302,
			Headers:    http.Header{"Location": []string{baseURL + "/accounts/if0_40106205/domains/example.xo.je/dnsRecords"}},
		})

		svc := newTestService(f, &fakeRegistrar{})
		result, err := svc.CreateCNAME(context.Background(), "", "example.xo.je", "www", "target.example.com")
		require.NoError(t, err)
		assert.True(t, result.Confirmed)
		assert.Contains(t, result.Message, "www")

		require.Len(t, f.posts, 1)
		assert.Equal(t, "tok-1", f.posts[0].form.Get("_token"))
		assert.Equal(t, "www", f.posts[0].form.Get("name"))
		assert.Equal(t, "target.example.com", f.posts[0].form.Get("target"))
	})

	t.Run("error banner fails with its exact text", func(t *testing.T) {
		f := newScriptedFetcher()
		f.enqueue("GET", createURL, &domain.Response{StatusCode: 200, Body: []byte(tokenPage)})
		f.enqueue("POST", postURL, &domain.Response{
			StatusCode: 200,
			Body:       []byte(`<div class="alert-danger">Host already exists</div>`),
		})

		svc := newTestService(f, &fakeRegistrar{})
		_, err := svc.CreateCNAME(context.Background(), "", "example.xo.je", "www", "target.example.com")
		banner, rejected := domain.IsRemoteRejected(err)
		require.True(t, rejected)
		assert.Equal(t, "Host already exists", banner)
	})

	t.Run("missing token issues no POST", func(t *testing.T) {
		f := newScriptedFetcher()
		f.enqueue("GET", createURL, &domain.Response{
			StatusCode: 200,
			Body:       []byte(`<title>Accounts</title><div class="account-form">no token here</div>`),
		})

		svc := newTestService(f, &fakeRegistrar{})
		_, err := svc.CreateCNAME(context.Background(), "", "example.xo.je", "www", "target.example.com")
		assert.ErrorIs(t, err, domain.ErrTokenNotFound)
		assert.Empty(t, f.posts)
	})
}

func TestCreateMXAndTXT_FormFields(t *testing.T) {
	tokenPage := `<title>Accounts</title><div class="account-form"><input name="_token" value="tok-2"></div>`
	redirect := &domain.Response{
		StatusCode: 302,
		Headers:    http.Header{"Location": []string{"/dnsRecords"}},
	}

	f := newScriptedFetcher()
	f.enqueue("GET", baseURL+"/accounts/if0_40106205/domains/example.xo.je/mxRecords/create",
		&domain.Response{StatusCode: 200, Body: []byte(tokenPage)})
	f.enqueue("POST", baseURL+"/accounts/if0_40106205/domains/example.xo.je/mxRecords", redirect)
	f.enqueue("GET", baseURL+"/accounts/if0_40106205/domains/example.xo.je/txtRecords/create",
		&domain.Response{StatusCode: 200, Body: []byte(tokenPage)})
	f.enqueue("POST", baseURL+"/accounts/if0_40106205/domains/example.xo.je/txtRecords", redirect)

	svc := newTestService(f, &fakeRegistrar{})

	_, err := svc.CreateMX(context.Background(), "", "example.xo.je", "10", "mail.example.com")
	require.NoError(t, err)
	_, err = svc.CreateTXT(context.Background(), "", "example.xo.je", "@", "v=spf1 -all")
	require.NoError(t, err)

	require.Len(t, f.posts, 2)
	assert.Equal(t, "10", f.posts[0].form.Get("priority"))
	assert.Equal(t, "mail.example.com", f.posts[0].form.Get("target"))
	assert.Equal(t, "@", f.posts[1].form.Get("name"))
	assert.Equal(t, "v=spf1 -all", f.posts[1].form.Get("content"))
}

func TestDeleteDNSRecord(t *testing.T) {
	handle := baseURL + "/accounts/if0_40106205/domains/example.xo.je/dnsRecords/42"
	tokenPage := `<title>Accounts</title><div class="account-form"><input name="_token" value="tok-3"></div>`

	t.Run("ambiguous response is lenient success", func(t *testing.T) {
		f := newScriptedFetcher()
		f.enqueue("GET", handle, &domain.Response{StatusCode: 200, Body: []byte(tokenPage)})
		f.enqueue("POST", handle, &domain.Response{StatusCode: 200, Body: []byte(`<title>Accounts</title><div class="account">rows</div>`)})

		svc := newTestService(f, &fakeRegistrar{})
		result, err := svc.DeleteDNSRecord(context.Background(), "", handle)
		require.NoError(t, err)
		assert.False(t, result.Confirmed)

		require.Len(t, f.posts, 1)
		assert.Equal(t, "DELETE", f.posts[0].form.Get("_method"))
	})

	t.Run("relative handle is resolved against the panel", func(t *testing.T) {
		f := newScriptedFetcher()
		f.enqueue("GET", handle, &domain.Response{StatusCode: 200, Body: []byte(tokenPage)})
		f.enqueue("POST", handle, &domain.Response{
			StatusCode: 302,
			Headers:    http.Header{"Location": []string{"/dnsRecords"}},
		})

		svc := newTestService(f, &fakeRegistrar{})
		result, err := svc.DeleteDNSRecord(context.Background(), "", "/accounts/if0_40106205/domains/example.xo.je/dnsRecords/42")
		require.NoError(t, err)
		assert.True(t, result.Confirmed)
	})

	t.Run("empty handle is rejected", func(t *testing.T) {
		svc := newTestService(newScriptedFetcher(), &fakeRegistrar{})
		_, err := svc.DeleteDNSRecord(context.Background(), "", "")
		assert.ErrorIs(t, err, domain.ErrConfigurationMissing)
	})
}

func TestListAvailableExtensions_Cached(t *testing.T) {
	reg := &fakeRegistrar{extensions: []domain.Extension{{Value: ".xo.je", Label: ".xo.je"}}}
	svc := newTestService(newScriptedFetcher(), reg)

	first, err := svc.ListAvailableExtensions(context.Background(), "")
	require.NoError(t, err)
	second, err := svc.ListAvailableExtensions(context.Background(), "")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, reg.extensionCalls, "catalog should be fetched once per process")
}

func TestListAvailableExtensions_EmptyCatalogCached(t *testing.T) {
	reg := &fakeRegistrar{}
	svc := newTestService(newScriptedFetcher(), reg)

	first, err := svc.ListAvailableExtensions(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, first)

	_, err = svc.ListAvailableExtensions(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, 1, reg.extensionCalls, "an empty catalog is still a catalog")
}

func TestListAvailableExtensions_ErrorNotCached(t *testing.T) {
	reg := &fakeRegistrar{extensionsErr: domain.ErrControlNotFound}
	svc := newTestService(newScriptedFetcher(), reg)

	_, err := svc.ListAvailableExtensions(context.Background(), "")
	require.Error(t, err)

	reg.extensionsErr = nil
	reg.extensions = []domain.Extension{{Value: ".rf.gd", Label: ".rf.gd"}}
	extensions, err := svc.ListAvailableExtensions(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, extensions, 1)
	assert.Equal(t, 2, reg.extensionCalls)
}

func TestAccountResolution(t *testing.T) {
	svc := NewService(session.New(baseURL, newScriptedFetcher()),
		&session.CookieAuthenticator{CookieString: "a=1"}, &fakeRegistrar{}, "", utils.NewDefaultLogger())

	_, err := svc.ListDomains(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrConfigurationMissing)
}

func TestRegisterFreeDomain_Delegates(t *testing.T) {
	reg := &fakeRegistrar{registerResult: &domain.OperationResult{
		Message:   "Subdomain mysite.xo.je registered successfully",
		Domain:    "mysite.xo.je",
		Confirmed: true,
	}}
	svc := newTestService(newScriptedFetcher(), reg)

	result, err := svc.RegisterFreeDomain(context.Background(), "", "mysite", "xo.je")
	require.NoError(t, err)
	assert.Equal(t, "mysite.xo.je", result.Domain)
}
