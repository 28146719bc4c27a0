// Package captcha integrates external CAPTCHA handling for credential logins.
// Two delegation shapes exist: a token-only bypass endpoint, and a remote
// browser (FlareSolverr-style) that solves the challenge in a real page and
// hands back the cookies and user agent it observed.
package captcha

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Solution is the result of a solved challenge. Token is always set; Cookies
// and UserAgent are only populated by solvers that ran a real browser, and
// must be merged into the session before the login is replayed.
type Solution struct {
	Token     string
	Cookies   []*http.Cookie
	UserAgent string
}

// Solver solves the login page's challenge.
type Solver interface {
	// Name identifies the solver in logs and error messages
	Name() string
	// Solve solves the challenge protecting pageURL
	Solve(ctx context.Context, pageURL string) (*Solution, error)
}

// BrowserSolver delegates to a remote browser endpoint speaking the
// FlareSolverr request.get protocol.
type BrowserSolver struct {
	endpoint string
	timeout  time.Duration
	client   *http.Client
}

// NewBrowserSolver creates a solver against a remote browser endpoint
func NewBrowserSolver(endpoint string, timeout time.Duration) *BrowserSolver {
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &BrowserSolver{
		endpoint: endpoint,
		timeout:  timeout,
		client:   &http.Client{Timeout: timeout + 15*time.Second},
	}
}

// Name identifies the solver
func (s *BrowserSolver) Name() string { return "remote-browser" }

type solverRequest struct {
	Cmd        string `json:"cmd"`
	URL        string `json:"url"`
	MaxTimeout int    `json:"maxTimeout"`
}

type solverResponse struct {
	Status   string `json:"status"`
	Message  string `json:"message"`
	Solution struct {
		URL       string `json:"url"`
		Status    int    `json:"status"`
		UserAgent string `json:"userAgent"`
		Response  string `json:"response"`
		Cookies   []struct {
			Name   string `json:"name"`
			Value  string `json:"value"`
			Domain string `json:"domain"`
			Path   string `json:"path"`
		} `json:"cookies"`
	} `json:"solution"`
}

// Solve asks the remote browser to load pageURL and clear its challenge.
func (s *BrowserSolver) Solve(ctx context.Context, pageURL string) (*Solution, error) {
	payload, err := json.Marshal(solverRequest{
		Cmd:        "request.get",
		URL:        pageURL,
		MaxTimeout: int(s.timeout.Milliseconds()),
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("solver request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("solver response unreadable: %w", err)
	}

	var parsed solverResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("solver response invalid: %w", err)
	}
	if parsed.Status != "ok" {
		return nil, fmt.Errorf("solver reported %q: %s", parsed.Status, parsed.Message)
	}

	solution := &Solution{UserAgent: parsed.Solution.UserAgent}
	for _, c := range parsed.Solution.Cookies {
		solution.Cookies = append(solution.Cookies, &http.Cookie{
			Name:   c.Name,
			Value:  c.Value,
			Domain: c.Domain,
			Path:   c.Path,
		})
		// The clearance cookie doubles as the challenge token the login
		// form expects.
		if c.Name == "cf_clearance" {
			solution.Token = c.Value
		}
	}

	return solution, nil
}

// TokenSolver delegates to a bypass endpoint that returns a challenge token
// without running a browser.
type TokenSolver struct {
	endpoint string
	client   *http.Client
}

// NewTokenSolver creates a token-only bypass solver
func NewTokenSolver(endpoint string, timeout time.Duration) *TokenSolver {
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &TokenSolver{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

// Name identifies the solver
func (s *TokenSolver) Name() string { return "token-bypass" }

// Solve requests a solved token for pageURL
func (s *TokenSolver) Solve(ctx context.Context, pageURL string) (*Solution, error) {
	payload, err := json.Marshal(map[string]string{"url": pageURL})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("bypass request failed: %w", err)
	}
	defer resp.Body.Close()

	var parsed struct {
		Token string `json:"token"`
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("bypass response invalid: %w", err)
	}
	if parsed.Error != "" {
		return nil, fmt.Errorf("bypass failed: %s", parsed.Error)
	}
	if parsed.Token == "" {
		return nil, fmt.Errorf("bypass returned no token")
	}

	return &Solution{Token: parsed.Token}, nil
}
