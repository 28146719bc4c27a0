package browser

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ifpanel/ifpanel-go/internal/domain"
	"github.com/ifpanel/ifpanel-go/internal/scrape"
	"github.com/ifpanel/ifpanel-go/internal/session"
	"github.com/ifpanel/ifpanel-go/internal/utils"
)

// Control keywords for the domain creation page's mode selection. The panel
// renders these as Livewire action buttons.
const (
	controlFreeSubdomain   = "selectDomainType('subdomain')"
	controlCustomSubdomain = "selectDomainType('customDomain')"
	controlCreateDomain    = "Create Domain"

	selectorSubdomainInput = `input[placeholder="your-name"]`
	selectorCustomInput    = `input[type="text"]`
	selectorExtension      = "select"
)

// automation is the slice of Driver the workflows run on; injected in tests.
type automation interface {
	ReplayCookies(pageURL string, cookies []*http.Cookie) error
	Navigate(targetURL string) error
	DismissConsent() bool
	ClickControl(keywords ...string) error
	WaitVisible(selector string, timeout time.Duration) error
	TypeInto(selector, text string) error
	SelectValue(selector, value string) error
	Submit(keyword, urlFragment string) (int, error)
	ClickDeleteControl() error
	ConfirmDialog() bool
	CurrentURL() string
	HTML() ([]byte, error)
	Settle()
	Close() error
}

// Registrar implements the dynamic multi-step workflows on one-shot browser
// acquisitions. Each call launches (or connects), runs a single page
// lifecycle, and unconditionally releases the browser.
type Registrar struct {
	sess *session.Session
	opts Options
	log  *utils.Logger

	open func(ctx context.Context) (automation, error)
}

// NewRegistrar creates a Registrar over the given session
func NewRegistrar(sess *session.Session, opts Options, log *utils.Logger) *Registrar {
	return &Registrar{
		sess: sess,
		opts: opts,
		log:  log.WithComponent("browser"),
		open: func(ctx context.Context) (automation, error) {
			return Open(ctx, opts)
		},
	}
}

// start acquires a page on the domain creation flow: open browser, replay the
// session's cookies, navigate, and best-effort dismiss the consent overlay.
func (r *Registrar) start(ctx context.Context, targetURL string) (automation, error) {
	drv, err := r.open(ctx)
	if err != nil {
		return nil, err
	}

	if err := drv.ReplayCookies(r.sess.BaseURL, r.sess.Client.Cookies(r.sess.BaseURL)); err != nil {
		drv.Close()
		return nil, err
	}
	if err := drv.Navigate(targetURL); err != nil {
		drv.Close()
		return nil, err
	}
	if drv.DismissConsent() {
		r.log.Debug().Msg("privacy overlay dismissed")
	}
	return drv, nil
}

func (r *Registrar) createURL(accountID string) string {
	return r.sess.URL(fmt.Sprintf("/accounts/%s/domains/create", accountID))
}

// Extensions walks the creation form far enough for the extension selector to
// materialize and extracts its option list. The expensive part is the full
// browser launch; the panel service caches the result for the process.
func (r *Registrar) Extensions(ctx context.Context, accountID string) ([]domain.Extension, error) {
	drv, err := r.start(ctx, r.createURL(accountID))
	if err != nil {
		return nil, err
	}
	defer drv.Close()

	if err := drv.ClickControl(controlFreeSubdomain, "subdomain"); err != nil {
		return nil, err
	}
	if err := drv.WaitVisible(selectorExtension, 10*time.Second); err != nil {
		return nil, err
	}
	drv.Settle()

	html, err := drv.HTML()
	if err != nil {
		return nil, err
	}
	extensions, err := scrape.SelectOptions(html)
	if err != nil {
		return nil, err
	}

	r.log.Info().Int("count", len(extensions)).Msg("extension catalog fetched")
	return extensions, nil
}

// RegisterFree registers subdomain.extension through the creation form.
func (r *Registrar) RegisterFree(ctx context.Context, accountID, subdomain, extension string) (*domain.OperationResult, error) {
	fullDomain := subdomain + "." + extension
	log := r.log.WithOperation("register-free")
	log.Info().Str("domain", fullDomain).Msg("registering free subdomain")

	drv, err := r.start(ctx, r.createURL(accountID))
	if err != nil {
		return nil, err
	}
	defer drv.Close()

	if err := drv.ClickControl(controlFreeSubdomain, "subdomain"); err != nil {
		return nil, err
	}
	if err := drv.WaitVisible(selectorSubdomainInput, 10*time.Second); err != nil {
		return nil, err
	}
	if err := drv.TypeInto(selectorSubdomainInput, subdomain); err != nil {
		return nil, err
	}
	if err := drv.SelectValue(selectorExtension, extension); err != nil {
		return nil, err
	}

	return r.finishRegistration(drv, "register free subdomain", fullDomain)
}

// RegisterCustom registers subdomain.parentDomain under an owned parent.
func (r *Registrar) RegisterCustom(ctx context.Context, accountID, parentDomain, subdomain string) (*domain.OperationResult, error) {
	fullDomain := subdomain + "." + parentDomain
	log := r.log.WithOperation("register-custom")
	log.Info().Str("domain", fullDomain).Msg("registering custom subdomain")

	drv, err := r.start(ctx, r.createURL(accountID))
	if err != nil {
		return nil, err
	}
	defer drv.Close()

	if err := drv.ClickControl(controlCustomSubdomain, "custom domain"); err != nil {
		return nil, err
	}
	if err := drv.WaitVisible(selectorCustomInput, 10*time.Second); err != nil {
		return nil, err
	}
	if err := drv.TypeInto(selectorCustomInput, fullDomain); err != nil {
		return nil, err
	}

	return r.finishRegistration(drv, "register custom subdomain", fullDomain)
}

// finishRegistration submits the creation form and applies the ordered
// outcome rules: error banner, then detail-page URL, then success banner,
// then (weakest) a success-range async response.
func (r *Registrar) finishRegistration(drv automation, op, fullDomain string) (*domain.OperationResult, error) {
	asyncStatus, err := drv.Submit(controlCreateDomain, "/domains")
	if err != nil && asyncStatus == 0 {
		return nil, err
	}

	html, err := drv.HTML()
	if err != nil {
		return nil, err
	}
	doc, err := scrape.Document(html)
	if err != nil {
		return nil, err
	}

	if msg := scrape.ErrorBanner(doc); msg != "" {
		return nil, domain.NewRemoteRejectedError(op, msg)
	}

	currentURL := drv.CurrentURL()
	if strings.Contains(currentURL, "/domains/") && !strings.Contains(currentURL, "/create") {
		return &domain.OperationResult{
			Message:   fmt.Sprintf("Subdomain %s registered successfully", fullDomain),
			Domain:    fullDomain,
			Confirmed: true,
		}, nil
	}

	if msg := scrape.SuccessBanner(doc); msg != "" {
		return &domain.OperationResult{Message: msg, Domain: fullDomain, Confirmed: true}, nil
	}

	if asyncStatus == 200 || asyncStatus == 204 {
		return &domain.OperationResult{
			Message:   fmt.Sprintf("Subdomain %s registered successfully", fullDomain),
			Domain:    fullDomain,
			Confirmed: true,
		}, nil
	}

	return nil, domain.NewUnexpectedResponseError(op, asyncStatus, "no success signal after submission")
}

// DeleteDomain opens the domain's detail page, hunts for a delete action,
// confirms the dialog when one appears, and accepts three tiers of success
// evidence: a success banner, the domain vanishing from the page, or the
// lenient "request sent" fallback.
func (r *Registrar) DeleteDomain(ctx context.Context, accountID, domainName string) (*domain.OperationResult, error) {
	log := r.log.WithOperation("delete-domain")
	log.Info().Str("domain", domainName).Msg("deleting domain")

	detailURL := r.sess.URL(fmt.Sprintf("/accounts/%s/domains/%s", accountID, domainName))
	drv, err := r.start(ctx, detailURL)
	if err != nil {
		return nil, err
	}
	defer drv.Close()

	if err := drv.ClickDeleteControl(); err != nil {
		return nil, err
	}
	if drv.ConfirmDialog() {
		log.Debug().Msg("confirmation dialog accepted")
	}
	drv.Settle()

	html, err := drv.HTML()
	if err != nil {
		return nil, err
	}
	doc, err := scrape.Document(html)
	if err != nil {
		return nil, err
	}

	if msg := scrape.ErrorBanner(doc); msg != "" {
		return nil, domain.NewRemoteRejectedError("delete domain", msg)
	}
	if msg := scrape.SuccessBanner(doc); msg != "" {
		return &domain.OperationResult{Message: msg, Domain: domainName, Confirmed: true}, nil
	}
	if !strings.Contains(string(html), domainName) {
		return &domain.OperationResult{
			Message:   fmt.Sprintf("Domain %s deleted", domainName),
			Domain:    domainName,
			Confirmed: true,
		}, nil
	}

	return &domain.OperationResult{
		Message:   fmt.Sprintf("Deletion request sent for %s", domainName),
		Domain:    domainName,
		Confirmed: false,
	}, nil
}

var _ domain.Registrar = (*Registrar)(nil)
