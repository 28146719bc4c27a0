package session

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/ifpanel/ifpanel-go/internal/captcha"
	"github.com/ifpanel/ifpanel-go/internal/domain"
	"github.com/ifpanel/ifpanel-go/internal/scrape"
)

// Authenticator establishes an authenticated session. The variant is chosen
// once at configuration time; operations never branch on strategy mid-flow.
type Authenticator interface {
	// Name identifies the strategy in logs and error messages
	Name() string
	// Establish makes the session authenticated or fails with an AuthError
	Establish(ctx context.Context, s *Session) error
}

// CookieAuthenticator installs a pre-captured cookie string and marks the
// session authenticated without further verification.
type CookieAuthenticator struct {
	CookieString string
}

// Name identifies the strategy
func (a *CookieAuthenticator) Name() string { return "cookie-bundle" }

// Establish parses and installs the configured cookie string
func (a *CookieAuthenticator) Establish(ctx context.Context, s *Session) error {
	if a.CookieString == "" {
		return domain.NewAuthError(a.Name(), "cookie string not configured", domain.ErrConfigurationMissing)
	}
	n, err := s.InstallCookieString(a.CookieString)
	if err != nil {
		return domain.NewAuthError(a.Name(), "failed to install cookies", err)
	}
	if n == 0 {
		return domain.NewAuthError(a.Name(), "cookie string contained no cookies", domain.ErrConfigurationMissing)
	}
	return nil
}

// CredentialAuthenticator performs a scraped-form login: fetch the login
// page, extract the CSRF token, submit credentials, classify the result.
type CredentialAuthenticator struct {
	Email    string
	Password string
}

// Name identifies the strategy
func (a *CredentialAuthenticator) Name() string { return "credential-login" }

// Establish performs the login flow
func (a *CredentialAuthenticator) Establish(ctx context.Context, s *Session) error {
	if a.Email == "" || a.Password == "" {
		return domain.NewAuthError(a.Name(), "email and password not configured", domain.ErrConfigurationMissing)
	}
	return submitLogin(ctx, s, a.Name(), a.Email, a.Password, "")
}

// BypassAuthenticator is a credential login that first obtains a solved
// challenge token from a token-only bypass endpoint.
type BypassAuthenticator struct {
	Email    string
	Password string
	Solver   captcha.Solver
}

// Name identifies the strategy
func (a *BypassAuthenticator) Name() string { return "credential-login+bypass" }

// Establish solves the challenge, then performs the login flow
func (a *BypassAuthenticator) Establish(ctx context.Context, s *Session) error {
	if a.Email == "" || a.Password == "" {
		return domain.NewAuthError(a.Name(), "email and password not configured", domain.ErrConfigurationMissing)
	}

	solution, err := a.Solver.Solve(ctx, s.URL("/login"))
	if err != nil {
		return domain.NewAuthError(a.Name(), "challenge not solved", err)
	}
	return submitLogin(ctx, s, a.Name(), a.Email, a.Password, solution.Token)
}

// RemoteSolveAuthenticator is a credential login through a remote browser:
// the solver loads the login page in a real browser, and the cookies and user
// agent it observed are merged into the session before the form is submitted.
// Cookies and user agent must match or the panel discards the solve.
type RemoteSolveAuthenticator struct {
	Email    string
	Password string
	Solver   captcha.Solver
}

// Name identifies the strategy
func (a *RemoteSolveAuthenticator) Name() string { return "credential-login+remote-solve" }

// Establish solves remotely, merges the solver's browser state, then logs in
func (a *RemoteSolveAuthenticator) Establish(ctx context.Context, s *Session) error {
	if a.Email == "" || a.Password == "" {
		return domain.NewAuthError(a.Name(), "email and password not configured", domain.ErrConfigurationMissing)
	}

	solution, err := a.Solver.Solve(ctx, s.URL("/login"))
	if err != nil {
		return domain.NewAuthError(a.Name(), "remote solve failed", err)
	}

	if len(solution.Cookies) > 0 {
		if err := s.Client.SetCookies(s.BaseURL, solution.Cookies); err != nil {
			return domain.NewAuthError(a.Name(), "failed to merge solver cookies", err)
		}
	}
	s.Client.SetUserAgent(solution.UserAgent)

	return submitLogin(ctx, s, a.Name(), a.Email, a.Password, solution.Token)
}

// submitLogin runs the shared login flow: fetch the login page, extract the
// CSRF token, POST the form (with the solved captcha token when present) and
// classify the outcome.
func submitLogin(ctx context.Context, s *Session, strategy, email, password, captchaToken string) error {
	loginURL := s.URL("/login")

	page, err := s.Client.Get(ctx, loginURL)
	if err != nil {
		return domain.NewAuthError(strategy, "failed to fetch login page", err)
	}

	token, err := scrape.CSRFToken(page.Body)
	if err != nil {
		return domain.NewAuthError(strategy, "CSRF token not found on login page", err)
	}

	form := url.Values{
		"_token":   {token},
		"email":    {email},
		"password": {password},
	}
	if captchaToken != "" {
		form.Set("cf-turnstile-response", captchaToken)
	}

	resp, err := s.Client.PostForm(ctx, loginURL, form, map[string]string{
		"Referer": loginURL,
		"Origin":  s.BaseURL,
	})
	if err != nil {
		return domain.NewAuthError(strategy, "login request failed", err)
	}

	// A redirect anywhere but back to the login page means we are in.
	if resp.IsRedirect() {
		if !strings.Contains(resp.Location(), "/login") {
			return nil
		}
		return domain.NewAuthError(strategy, "login rejected (redirected back to login)", nil)
	}

	if resp.StatusCode == 200 {
		doc, derr := scrape.Document(resp.Body)
		if derr == nil {
			if msg := scrape.ErrorBanner(doc); msg != "" {
				return domain.NewAuthError(strategy, fmt.Sprintf("login rejected: %s", msg), nil)
			}
		}
		state, serr := scrape.ClassifyAuthPage(resp.Body)
		if serr == nil && state == scrape.AuthStateAuthenticated {
			return nil
		}
	}

	return domain.NewAuthError(strategy, "login failed", domain.NewUnexpectedResponseError("login", resp.StatusCode, ""))
}

// Select picks exactly one authentication strategy from the configured
// credential bundle, in precedence order: pre-captured cookie string, then
// credentials through a remote solver, then credentials through a bypass
// endpoint, then plain credentials.
func Select(cookieString, email, password string, browserSolver, tokenSolver captcha.Solver) (Authenticator, error) {
	switch {
	case cookieString != "":
		return &CookieAuthenticator{CookieString: cookieString}, nil
	case email != "" && password != "" && browserSolver != nil:
		return &RemoteSolveAuthenticator{Email: email, Password: password, Solver: browserSolver}, nil
	case email != "" && password != "" && tokenSolver != nil:
		return &BypassAuthenticator{Email: email, Password: password, Solver: tokenSolver}, nil
	case email != "" && password != "":
		return &CredentialAuthenticator{Email: email, Password: password}, nil
	default:
		return nil, errors.Join(domain.ErrConfigurationMissing,
			errors.New("set auth.cookies or auth.email/auth.password"))
	}
}
