// Package server exposes the panel operations as a JSON HTTP API for
// external consumers (chat bots, scripts). Routes and payload shapes follow
// the bot-facing contract; errors map onto HTTP status codes by type.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/ifpanel/ifpanel-go/internal/config"
	"github.com/ifpanel/ifpanel-go/internal/panel"
	"github.com/ifpanel/ifpanel-go/internal/store"
	"github.com/ifpanel/ifpanel-go/internal/utils"
	"github.com/ifpanel/ifpanel-go/pkg/version"
)

// Server is the HTTP facade over one panel service and ownership store.
type Server struct {
	svc   *panel.Service
	store *store.Store
	log   *utils.Logger

	httpServer *http.Server
}

// New builds the server and its route table.
func New(cfg config.ServerConfig, svc *panel.Service, st *store.Store, log *utils.Logger) *Server {
	s := &Server{
		svc:   svc,
		store: st,
		log:   log.WithComponent("server"),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("POST /api/verify-auth", s.handleVerifyAuth)

	mux.HandleFunc("GET /accounts", s.handleAccounts)
	mux.HandleFunc("GET /accounts/{accountId}/domains", s.handleDomains)
	mux.HandleFunc("GET /accounts/{accountId}/subdomain-extensions", s.handleExtensions)

	mux.HandleFunc("GET /api/dns-records", s.handleListDNS)
	mux.HandleFunc("DELETE /api/dns-records", s.handleDeleteDNS)
	mux.HandleFunc("POST /api/create-cname", s.handleCreateCNAME)
	mux.HandleFunc("POST /api/create-mx", s.handleCreateMX)
	mux.HandleFunc("POST /api/create-txt", s.handleCreateTXT)

	mux.HandleFunc("GET /api/subdomain-extensions", s.handleExtensions)
	mux.HandleFunc("POST /api/register-domain", s.handleRegisterDomain)
	mux.HandleFunc("POST /api/register-subdomain", s.handleRegisterSubdomain)
	mux.HandleFunc("DELETE /api/delete-domain", s.handleDeleteDomain)

	mux.HandleFunc("GET /api/users/{userId}/domains", s.handleUserDomains)
	mux.HandleFunc("POST /api/users/{userId}", s.handleUpsertUser)

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:           s.logRequests(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the route table, for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start blocks serving requests until Shutdown or a listener error.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.httpServer.Addr).Str("version", version.Version).Msg("HTTP API listening")
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests and stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// logRequests wraps the mux with structured per-request logging.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("elapsed", time.Since(start)).
			Msg("request")
	})
}
