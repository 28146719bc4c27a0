// Package panel composes sessions, scraping, and browser workflows into the
// end-to-end operations the CLI and HTTP surface expose. All methods are safe
// to call before authentication is established; each one ensures the session
// first and retries exactly once when the panel signals mid-flight expiry.
package panel

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/ifpanel/ifpanel-go/internal/domain"
	"github.com/ifpanel/ifpanel-go/internal/scrape"
	"github.com/ifpanel/ifpanel-go/internal/session"
	"github.com/ifpanel/ifpanel-go/internal/utils"
)

const recordsListingPath = "dnsRecords"

// Service is the high-level operation surface over one panel session.
// Methods are not safe for concurrent use; callers serialize access.
type Service struct {
	sess      *session.Session
	auth      session.Authenticator
	registrar domain.Registrar
	log       *utils.Logger

	defaultAccount string

	// extension catalog, fetched once per process on first use
	extMu      sync.Mutex
	extensions []domain.Extension
	extFetched bool
}

// NewService wires a Service over an established (or establishable) session.
func NewService(sess *session.Session, auth session.Authenticator, registrar domain.Registrar, defaultAccount string, log *utils.Logger) *Service {
	return &Service{
		sess:           sess,
		auth:           auth,
		registrar:      registrar,
		defaultAccount: defaultAccount,
		log:            log.WithComponent("panel"),
	}
}

// account resolves an explicit account ID against the configured default.
func (s *Service) account(accountID string) (string, error) {
	if accountID != "" {
		return accountID, nil
	}
	if s.defaultAccount != "" {
		return s.defaultAccount, nil
	}
	return "", fmt.Errorf("no account ID given and no default configured: %w", domain.ErrConfigurationMissing)
}

// withAuth ensures the session and runs fn. When fn reports session expiry
// the session is invalidated, re-established, and fn retried exactly once.
func (s *Service) withAuth(ctx context.Context, fn func() error) error {
	if err := session.EnsureAuthenticated(ctx, s.sess, s.auth); err != nil {
		return err
	}

	err := fn()
	if err == nil || !errors.Is(err, domain.ErrSessionExpired) {
		return err
	}

	s.log.Warn().Msg("session expired mid operation, re-authenticating")
	s.sess.Invalidate()
	if err := session.EnsureAuthenticated(ctx, s.sess, s.auth); err != nil {
		return err
	}
	return fn()
}

// fetchPage GETs an authenticated panel page and converts login-page responses
// into ErrSessionExpired so withAuth can recover.
func (s *Service) fetchPage(ctx context.Context, pageURL string) (*domain.Response, error) {
	resp, err := s.sess.Client.Get(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	if resp.RedirectsTo("/login") {
		return nil, domain.ErrSessionExpired
	}
	if resp.StatusCode == 200 {
		state, err := scrape.ClassifyAuthPage(resp.Body)
		if err != nil {
			return nil, err
		}
		if state == scrape.AuthStateLoginPage {
			return nil, domain.ErrSessionExpired
		}
	}
	return resp, nil
}

// Verify probes a protected page and classifies the authentication state.
// Unlike the other operations it does not attempt to establish the session
// first; it reports on the cookies as they stand.
func (s *Service) Verify(ctx context.Context) (*domain.VerifyResult, error) {
	resp, err := s.sess.Client.Get(ctx, s.sess.URL("/accounts"))
	if err != nil {
		return nil, err
	}

	if resp.RedirectsTo("/login") {
		s.sess.Invalidate()
		return &domain.VerifyResult{Authenticated: false, Detail: "redirected to login page"}, nil
	}

	state, err := scrape.ClassifyAuthPage(resp.Body)
	if err != nil {
		return nil, err
	}
	switch state {
	case scrape.AuthStateAuthenticated:
		s.sess.Authenticated = true
		return &domain.VerifyResult{Authenticated: true, Detail: "account data visible"}, nil
	case scrape.AuthStateLoginPage:
		s.sess.Invalidate()
		return &domain.VerifyResult{Authenticated: false, Detail: "login page returned"}, nil
	default:
		return nil, fmt.Errorf("page shows neither login form nor account data (status %d): %w",
			resp.StatusCode, domain.ErrVerificationInconclusive)
	}
}

// ListAccounts returns the hosting accounts visible to the session.
func (s *Service) ListAccounts(ctx context.Context) ([]domain.Account, error) {
	var accounts []domain.Account
	err := s.withAuth(ctx, func() error {
		resp, err := s.fetchPage(ctx, s.sess.URL("/accounts"))
		if err != nil {
			return err
		}
		accounts, err = scrape.Accounts(resp.Body)
		return err
	})
	return accounts, err
}

// ListDomains returns the domains attached to one hosting account.
func (s *Service) ListDomains(ctx context.Context, accountID string) ([]string, error) {
	id, err := s.account(accountID)
	if err != nil {
		return nil, err
	}

	var domains []string
	err = s.withAuth(ctx, func() error {
		resp, err := s.fetchPage(ctx, s.sess.URL(fmt.Sprintf("/accounts/%s", id)))
		if err != nil {
			return err
		}
		domains, err = scrape.Domains(resp.Body)
		return err
	})
	return domains, err
}

// ListDNSRecords returns the DNS records table for one domain, in page order.
func (s *Service) ListDNSRecords(ctx context.Context, accountID, domainName string) ([]domain.DNSRecord, error) {
	id, err := s.account(accountID)
	if err != nil {
		return nil, err
	}

	var records []domain.DNSRecord
	err = s.withAuth(ctx, func() error {
		resp, err := s.fetchPage(ctx, s.sess.URL(fmt.Sprintf("/accounts/%s/domains/%s/dnsRecords", id, domainName)))
		if err != nil {
			return err
		}
		records, err = scrape.DNSRecords(resp.Body)
		return err
	})
	return records, err
}

// submitRecord runs the fetch-token-then-submit protocol for a record write:
// GET the creation page, pull the CSRF token, POST the form with browser-like
// Referer and Origin headers, and classify the response. A missing token
// fails the call before any POST is issued.
func (s *Service) submitRecord(ctx context.Context, op, createURL, postURL string, form url.Values, fallbackMsg string) (*domain.OperationResult, error) {
	var result *domain.OperationResult
	err := s.withAuth(ctx, func() error {
		page, err := s.fetchPage(ctx, createURL)
		if err != nil {
			return err
		}
		token, err := scrape.CSRFToken(page.Body)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}

		form.Set("_token", token)
		headers := map[string]string{
			"Referer": createURL,
			"Origin":  s.sess.BaseURL,
		}
		resp, err := s.sess.Client.PostForm(ctx, postURL, form, headers)
		if err != nil {
			return err
		}

		outcome, err := scrape.ClassifySubmit(op, resp, recordsListingPath)
		if err != nil {
			return err
		}
		msg := outcome.Message
		if msg == "" {
			msg = fallbackMsg
		}
		result = &domain.OperationResult{Message: msg, Confirmed: outcome.Confirmed}
		return nil
	})
	return result, err
}

// CreateCNAME creates a CNAME record host -> target on the domain.
func (s *Service) CreateCNAME(ctx context.Context, accountID, domainName, host, target string) (*domain.OperationResult, error) {
	id, err := s.account(accountID)
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("domain", domainName).Str("host", host).Str("target", target).Msg("creating CNAME record")

	base := s.sess.URL(fmt.Sprintf("/accounts/%s/domains/%s/cnameRecords", id, domainName))
	form := url.Values{"name": {host}, "target": {target}}
	return s.submitRecord(ctx, "create CNAME record", base+"/create", base, form,
		fmt.Sprintf("CNAME record %s created successfully", host))
}

// CreateMX creates an MX record with the given priority pointing at target.
func (s *Service) CreateMX(ctx context.Context, accountID, domainName, priority, target string) (*domain.OperationResult, error) {
	id, err := s.account(accountID)
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("domain", domainName).Str("priority", priority).Str("target", target).Msg("creating MX record")

	base := s.sess.URL(fmt.Sprintf("/accounts/%s/domains/%s/mxRecords", id, domainName))
	form := url.Values{"priority": {priority}, "target": {target}}
	return s.submitRecord(ctx, "create MX record", base+"/create", base, form,
		fmt.Sprintf("MX record for %s created successfully", target))
}

// CreateTXT creates a TXT record name -> content on the domain.
func (s *Service) CreateTXT(ctx context.Context, accountID, domainName, name, content string) (*domain.OperationResult, error) {
	id, err := s.account(accountID)
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("domain", domainName).Str("name", name).Msg("creating TXT record")

	base := s.sess.URL(fmt.Sprintf("/accounts/%s/domains/%s/txtRecords", id, domainName))
	form := url.Values{"name": {name}, "content": {content}}
	return s.submitRecord(ctx, "create TXT record", base+"/create", base, form,
		fmt.Sprintf("TXT record %s created successfully", name))
}

// DeleteDNSRecord deletes a record through its scraped delete handle: fetch
// the handle's confirmation page for a token, then submit the deletion form.
// Classification is lenient; an ambiguous response is reported as success
// with Confirmed=false rather than an error.
func (s *Service) DeleteDNSRecord(ctx context.Context, accountID, deleteHandle string) (*domain.OperationResult, error) {
	if _, err := s.account(accountID); err != nil {
		return nil, err
	}
	if deleteHandle == "" {
		return nil, fmt.Errorf("delete handle is required: %w", domain.ErrConfigurationMissing)
	}

	handle := deleteHandle
	if !strings.HasPrefix(handle, "http") {
		handle = s.sess.URL(handle)
	}
	s.log.Info().Str("handle", handle).Msg("deleting DNS record")

	var result *domain.OperationResult
	err := s.withAuth(ctx, func() error {
		page, err := s.fetchPage(ctx, handle)
		if err != nil {
			return err
		}
		token, err := scrape.CSRFToken(page.Body)
		if err != nil {
			return fmt.Errorf("delete DNS record: %w", err)
		}

		form := url.Values{"_token": {token}, "_method": {"DELETE"}}
		headers := map[string]string{
			"Referer": handle,
			"Origin":  s.sess.BaseURL,
		}
		resp, err := s.sess.Client.PostForm(ctx, handle, form, headers)
		if err != nil {
			return err
		}

		outcome, err := scrape.ClassifyDelete("delete DNS record", resp, recordsListingPath)
		if err != nil {
			return err
		}
		msg := outcome.Message
		if msg == "" {
			msg = "DNS record deleted"
			if !outcome.Confirmed {
				msg = "DNS record deletion request sent"
			}
		}
		result = &domain.OperationResult{Message: msg, Confirmed: outcome.Confirmed}
		return nil
	})
	return result, err
}

// ListAvailableExtensions returns the free-subdomain suffix catalog. The
// catalog is stable for the life of the panel session, and fetching it costs
// a full browser launch, so the first successful fetch is cached for the
// process. A failed fetch is not cached and the next call retries.
func (s *Service) ListAvailableExtensions(ctx context.Context, accountID string) ([]domain.Extension, error) {
	id, err := s.account(accountID)
	if err != nil {
		return nil, err
	}

	s.extMu.Lock()
	defer s.extMu.Unlock()
	if s.extFetched {
		return s.extensions, nil
	}

	var extensions []domain.Extension
	err = s.withAuth(ctx, func() error {
		var err error
		extensions, err = s.registrar.Extensions(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.extensions = extensions
	s.extFetched = true
	return extensions, nil
}

// RegisterFreeDomain registers subdomain.extension as a new free domain.
func (s *Service) RegisterFreeDomain(ctx context.Context, accountID, subdomain, extension string) (*domain.OperationResult, error) {
	id, err := s.account(accountID)
	if err != nil {
		return nil, err
	}

	var result *domain.OperationResult
	err = s.withAuth(ctx, func() error {
		var err error
		result, err = s.registrar.RegisterFree(ctx, id, subdomain, extension)
		return err
	})
	return result, err
}

// RegisterCustomSubdomain registers subdomain.parentDomain under a domain the
// account already owns.
func (s *Service) RegisterCustomSubdomain(ctx context.Context, accountID, parentDomain, subdomain string) (*domain.OperationResult, error) {
	id, err := s.account(accountID)
	if err != nil {
		return nil, err
	}

	var result *domain.OperationResult
	err = s.withAuth(ctx, func() error {
		var err error
		result, err = s.registrar.RegisterCustom(ctx, id, parentDomain, subdomain)
		return err
	})
	return result, err
}

// DeleteDomain removes a domain from the account through the browser workflow.
func (s *Service) DeleteDomain(ctx context.Context, accountID, domainName string) (*domain.OperationResult, error) {
	id, err := s.account(accountID)
	if err != nil {
		return nil, err
	}

	var result *domain.OperationResult
	err = s.withAuth(ctx, func() error {
		var err error
		result, err = s.registrar.DeleteDomain(ctx, id, domainName)
		return err
	})
	return result, err
}
