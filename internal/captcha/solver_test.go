package captcha

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBrowserSolver_Solve(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "request.get", req["cmd"])
		assert.Equal(t, "https://dash.example.com/login", req["url"])

		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"status": "ok",
			"solution": map[string]interface{}{
				"userAgent": "Mozilla/5.0 solver",
				"cookies": []map[string]string{
					{"name": "cf_clearance", "value": "clear-123", "domain": ".example.com", "path": "/"},
					{"name": "PHPSESSID", "value": "sess-456"},
				},
			},
		})
	}))
	defer srv.Close()

	solver := NewBrowserSolver(srv.URL, time.Minute)
	solution, err := solver.Solve(context.Background(), "https://dash.example.com/login")
	require.NoError(t, err)

	assert.Equal(t, "clear-123", solution.Token)
	assert.Equal(t, "Mozilla/5.0 solver", solution.UserAgent)
	require.Len(t, solution.Cookies, 2)
	assert.Equal(t, ".example.com", solution.Cookies[0].Domain)
}

func TestBrowserSolver_Failure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"status":  "error",
			"message": "challenge not solved in time",
		})
	}))
	defer srv.Close()

	solver := NewBrowserSolver(srv.URL, time.Minute)
	_, err := solver.Solve(context.Background(), "https://dash.example.com/login")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "challenge not solved in time")
}

func TestTokenSolver_Solve(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "https://dash.example.com/login", req["url"])

		_ = json.NewEncoder(w).Encode(map[string]string{"token": "turnstile-789"})
	}))
	defer srv.Close()

	solver := NewTokenSolver(srv.URL, time.Minute)
	solution, err := solver.Solve(context.Background(), "https://dash.example.com/login")
	require.NoError(t, err)
	assert.Equal(t, "turnstile-789", solution.Token)
	assert.Empty(t, solution.Cookies)
}

func TestTokenSolver_Errors(t *testing.T) {
	t.Run("endpoint error is surfaced", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "rate limited"})
		}))
		defer srv.Close()

		solver := NewTokenSolver(srv.URL, time.Minute)
		_, err := solver.Solve(context.Background(), "https://dash.example.com/login")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "rate limited")
	})

	t.Run("empty token is an error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]string{})
		}))
		defer srv.Close()

		solver := NewTokenSolver(srv.URL, time.Minute)
		_, err := solver.Solve(context.Background(), "https://dash.example.com/login")
		assert.Error(t, err)
	})
}
