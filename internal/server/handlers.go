package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/ifpanel/ifpanel-go/internal/domain"
	"github.com/ifpanel/ifpanel-go/pkg/version"
)

// statusFor maps operation errors onto HTTP status codes. The typed errors
// carry enough to distinguish caller mistakes from panel-side failures.
func statusFor(err error) int {
	var authErr *domain.AuthError
	var rejected *domain.RemoteRejectedError
	var unexpected *domain.UnexpectedResponseError

	switch {
	case errors.Is(err, domain.ErrConfigurationMissing):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrSessionExpired), errors.As(err, &authErr):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.As(err, &rejected):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, domain.ErrTokenNotFound),
		errors.Is(err, domain.ErrVerificationInconclusive),
		errors.Is(err, domain.ErrControlNotFound),
		errors.As(err, &unexpected):
		return http.StatusBadGateway
	case errors.Is(err, domain.ErrBrowserNotFound):
		return http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrTimeout):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	s.log.Error().Err(err).Msg("request failed")
	writeJSON(w, statusFor(err), map[string]interface{}{
		"success": false,
		"error":   err.Error(),
	})
}

func decodeBody(r *http.Request, into interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(into)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"status":  "ok",
		"version": version.Version,
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleVerifyAuth(w http.ResponseWriter, r *http.Request) {
	result, err := s.svc.Verify(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":       true,
		"authenticated": result.Authenticated,
		"detail":        result.Detail,
	})
}

func (s *Server) handleAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := s.svc.ListAccounts(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"accounts": accounts,
	})
}

func (s *Server) handleDomains(w http.ResponseWriter, r *http.Request) {
	domains, err := s.svc.ListDomains(r.Context(), r.PathValue("accountId"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"domains": domains,
	})
}

func (s *Server) handleExtensions(w http.ResponseWriter, r *http.Request) {
	accountID := r.PathValue("accountId")
	if accountID == "" {
		accountID = r.URL.Query().Get("accountId")
	}
	extensions, err := s.svc.ListAvailableExtensions(r.Context(), accountID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":    true,
		"extensions": extensions,
	})
}

func (s *Server) handleListDNS(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	records, err := s.svc.ListDNSRecords(r.Context(), q.Get("accountId"), q.Get("domain"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"records": records,
	})
}

func (s *Server) handleCreateCNAME(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AccountID string `json:"accountId"`
		Domain    string `json:"domain"`
		Host      string `json:"host"`
		Target    string `json:"target"`
	}
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	result, err := s.svc.CreateCNAME(r.Context(), req.AccountID, req.Domain, req.Host, req.Target)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeResult(w, result)
}

func (s *Server) handleCreateMX(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AccountID string `json:"accountId"`
		Domain    string `json:"domain"`
		Priority  string `json:"priority"`
		Target    string `json:"target"`
	}
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	result, err := s.svc.CreateMX(r.Context(), req.AccountID, req.Domain, req.Priority, req.Target)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeResult(w, result)
}

func (s *Server) handleCreateTXT(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AccountID string `json:"accountId"`
		Domain    string `json:"domain"`
		Name      string `json:"name"`
		Content   string `json:"content"`
	}
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	result, err := s.svc.CreateTXT(r.Context(), req.AccountID, req.Domain, req.Name, req.Content)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeResult(w, result)
}

func (s *Server) handleDeleteDNS(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AccountID string `json:"accountId"`
		DeleteID  string `json:"deleteId"`
	}
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	result, err := s.svc.DeleteDNSRecord(r.Context(), req.AccountID, req.DeleteID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeResult(w, result)
}

func (s *Server) handleRegisterDomain(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AccountID       string `json:"accountId"`
		Subdomain       string `json:"subdomain"`
		DomainExtension string `json:"domainExtension"`
		UserID          int64  `json:"userId,omitempty"`
	}
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	result, err := s.svc.RegisterFreeDomain(r.Context(), req.AccountID, req.Subdomain, req.DomainExtension)
	if err != nil {
		s.writeError(w, err)
		return
	}

	if req.UserID != 0 && s.store != nil {
		owned := domain.OwnedDomain{
			Domain:    result.Domain,
			Subdomain: req.Subdomain,
			Extension: req.DomainExtension,
			Status:    ownershipStatus(result),
		}
		if err := s.store.AddDomain(r.Context(), req.UserID, owned); err != nil {
			s.log.Error().Err(err).Int64("user", req.UserID).Msg("failed to record domain ownership")
		}
	}
	writeResult(w, result)
}

func (s *Server) handleRegisterSubdomain(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AccountID string `json:"accountId"`
		Domain    string `json:"domain"`
		Subdomain string `json:"subdomain"`
	}
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	result, err := s.svc.RegisterCustomSubdomain(r.Context(), req.AccountID, req.Domain, req.Subdomain)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeResult(w, result)
}

func (s *Server) handleDeleteDomain(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AccountID string `json:"accountId"`
		Domain    string `json:"domain"`
		UserID    int64  `json:"userId,omitempty"`
	}
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	result, err := s.svc.DeleteDomain(r.Context(), req.AccountID, req.Domain)
	if err != nil {
		s.writeError(w, err)
		return
	}

	if req.UserID != 0 && s.store != nil {
		err := s.store.RemoveDomain(r.Context(), req.UserID, req.Domain)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			s.log.Error().Err(err).Int64("user", req.UserID).Msg("failed to drop domain ownership")
		}
	}
	writeResult(w, result)
}

func parseUserID(r *http.Request) (int64, error) {
	userID, err := strconv.ParseInt(r.PathValue("userId"), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid user id %q: %w", r.PathValue("userId"), domain.ErrConfigurationMissing)
	}
	return userID, nil
}

func (s *Server) handleUserDomains(w http.ResponseWriter, r *http.Request) {
	userID, err := parseUserID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	domains, err := s.store.UserDomains(r.Context(), userID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"domains": domains,
	})
}

func (s *Server) handleUpsertUser(w http.ResponseWriter, r *http.Request) {
	userID, err := parseUserID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	var req struct {
		Username  string `json:"username"`
		FirstName string `json:"firstName"`
		LastName  string `json:"lastName"`
	}
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	user := domain.ChatUser{
		ID:        userID,
		Username:  req.Username,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	}
	if err := s.store.UpsertUser(r.Context(), user); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

func writeResult(w http.ResponseWriter, result *domain.OperationResult) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":   true,
		"message":   result.Message,
		"domain":    result.Domain,
		"confirmed": result.Confirmed,
	})
}

func ownershipStatus(result *domain.OperationResult) string {
	if result.Confirmed {
		return "active"
	}
	return "pending"
}
