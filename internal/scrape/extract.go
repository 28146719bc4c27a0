// Package scrape holds every selector and pattern the service depends on,
// one extraction contract per page type. Workflow operations never touch
// HTML directly: when the panel's markup changes, this package is the only
// thing that needs to follow it.
package scrape

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/ifpanel/ifpanel-go/internal/domain"
)

var (
	// Account detail links look like /accounts/if0_40106205
	accountLinkPattern = regexp.MustCompile(`/accounts/(if0_\d+)`)

	// Domain detail links end in the hostname: /accounts/<id>/domains/example.xo.je
	domainLinkPattern = regexp.MustCompile(`/domains/([^/]+)/?$`)
)

// creationRoute is the reserved path segment for the domain creation page.
// It matches the domain-link pattern but is never a hostname.
const creationRoute = "create"

// Document parses an HTML response body
func Document(body []byte) (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(bytes.NewReader(body))
}

// CSRFToken extracts the anti-forgery token from a fetched page: the first
// token-bearing hidden input, falling back to the csrf meta tag. Returns
// domain.ErrTokenNotFound when neither is present.
func CSRFToken(body []byte) (string, error) {
	doc, err := Document(body)
	if err != nil {
		return "", err
	}

	if token, ok := doc.Find(`input[name="_token"]`).First().Attr("value"); ok && token != "" {
		return token, nil
	}
	if token, ok := doc.Find(`meta[name="csrf-token"]`).Attr("content"); ok && token != "" {
		return token, nil
	}
	return "", domain.ErrTokenNotFound
}

// SuccessBanner returns the inline success message, or "" when absent
func SuccessBanner(doc *goquery.Document) string {
	return strings.TrimSpace(doc.Find(".alert-success").Text())
}

// ErrorBanner returns the inline error message, or "" when absent
func ErrorBanner(doc *goquery.Document) string {
	if msg := strings.TrimSpace(doc.Find(".alert-danger").Text()); msg != "" {
		return msg
	}
	return strings.TrimSpace(doc.Find(".error").Text())
}

// AuthState classifies what a fetched page says about the session.
type AuthState int

const (
	// AuthStateUnknown means neither login nor dashboard markers were found
	AuthStateUnknown AuthState = iota
	// AuthStateLoginPage means the page is the login form
	AuthStateLoginPage
	// AuthStateAuthenticated means the page carries authenticated-area markers
	AuthStateAuthenticated
)

// ClassifyAuthPage decides whether an HTTP 200 body is the dashboard or the
// login page. The panel serves both with status 200, so marker presence is
// the only reliable signal: a login form without account data means the
// session is gone; account data wins otherwise.
func ClassifyAuthPage(body []byte) (AuthState, error) {
	doc, err := Document(body)
	if err != nil {
		return AuthStateUnknown, err
	}

	title := strings.ToLower(doc.Find("title").Text())
	lower := strings.ToLower(string(body))

	hasLoginForm := doc.Find(`form[action*="login"]`).Length() > 0 ||
		doc.Find("#email").Length() > 0

	hasAccountData := doc.Find(`[class*="account"]`).Length() > 0 ||
		strings.Contains(lower, "dashboard") ||
		strings.Contains(lower, "hosting accounts") ||
		strings.Contains(title, "accounts")

	switch {
	case hasLoginForm && !hasAccountData:
		return AuthStateLoginPage, nil
	case hasAccountData:
		return AuthStateAuthenticated, nil
	default:
		return AuthStateUnknown, nil
	}
}

// Accounts extracts the hosting accounts from the account listing page.
// Duplicate links to the same account id are suppressed; first-occurrence
// document order is preserved.
func Accounts(body []byte) ([]domain.Account, error) {
	doc, err := Document(body)
	if err != nil {
		return nil, err
	}

	var accounts []domain.Account
	seen := make(map[string]bool)

	doc.Find(`a[href*="/accounts/if0_"]`).Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok {
			return
		}
		match := accountLinkPattern.FindStringSubmatch(href)
		if match == nil {
			return
		}
		id := match[1]
		if seen[id] {
			return
		}
		seen[id] = true

		name := strings.TrimSpace(sel.Text())
		if name == "" {
			name = id
		}
		accounts = append(accounts, domain.Account{ID: id, Name: name})
	})

	return accounts, nil
}

// Domains extracts the hostnames from an account detail page. The creation
// sub-route matches the link pattern but is excluded; duplicates are
// suppressed in first-occurrence order.
func Domains(body []byte) ([]string, error) {
	doc, err := Document(body)
	if err != nil {
		return nil, err
	}

	var domains []string
	seen := make(map[string]bool)

	doc.Find(`a[href*="/domains/"]`).Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok {
			return
		}
		match := domainLinkPattern.FindStringSubmatch(href)
		if match == nil {
			return
		}
		name := match[1]
		if strings.Contains(name, creationRoute) || seen[name] {
			return
		}
		seen[name] = true
		domains = append(domains, name)
	})

	return domains, nil
}

// DNSRecords extracts the record rows from a domain's records listing. Each
// row carries host, type and target cells; when the row has an inline delete
// form, its action URL becomes the record's delete handle.
func DNSRecords(body []byte) ([]domain.DNSRecord, error) {
	doc, err := Document(body)
	if err != nil {
		return nil, err
	}

	var records []domain.DNSRecord

	doc.Find("table tbody tr").Each(func(_ int, row *goquery.Selection) {
		var cells []string
		row.Find("td").Each(func(_ int, cell *goquery.Selection) {
			cells = append(cells, strings.TrimSpace(cell.Text()))
		})
		if len(cells) < 3 {
			return
		}

		record := domain.DNSRecord{
			Host:   cells[0],
			Type:   cells[1],
			Target: cells[2],
		}
		if action, ok := row.Find("form").First().Attr("action"); ok {
			record.DeleteHandle = action
		}
		records = append(records, record)
	})

	return records, nil
}

// SelectOptions extracts the (value, label) pairs of the first select element,
// skipping placeholder options with empty values.
func SelectOptions(body []byte) ([]domain.Extension, error) {
	doc, err := Document(body)
	if err != nil {
		return nil, err
	}

	var extensions []domain.Extension
	doc.Find("select").First().Find("option").Each(func(_ int, opt *goquery.Selection) {
		value, _ := opt.Attr("value")
		if strings.TrimSpace(value) == "" {
			return
		}
		extensions = append(extensions, domain.Extension{
			Value: value,
			Label: strings.TrimSpace(opt.Text()),
		})
	})

	return extensions, nil
}
