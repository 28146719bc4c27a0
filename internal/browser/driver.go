// Package browser drives the panel's Livewire-rendered pages through a real
// browser. Every dynamic workflow acquires its own browser, uses one page,
// and tears everything down before returning: a one-shot disposable resource,
// never pooled.
package browser

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/ifpanel/ifpanel-go/internal/domain"
)

// Options configures a one-shot browser acquisition
type Options struct {
	// Path is the browser executable; auto-discovered when empty
	Path string
	// RemoteURL connects to a running browser instead of launching one
	RemoteURL string
	Headless  bool
	NoSandbox bool
	// NavTimeout bounds navigation and page-load waits
	NavTimeout time.Duration
	// ResponseTimeout bounds waits for the framework's async responses
	ResponseTimeout time.Duration
	// SettleDelay is the pause after interactions before reading state
	SettleDelay time.Duration
}

// DefaultOptions returns default driver options
func DefaultOptions() Options {
	return Options{
		Headless:        true,
		NavTimeout:      45 * time.Second,
		ResponseTimeout: 30 * time.Second,
		SettleDelay:     3 * time.Second,
	}
}

// Driver owns one browser and one page for the duration of a single workflow.
type Driver struct {
	browser  *rod.Browser
	launcher *launcher.Launcher
	page     *rod.Page
	opts     Options
}

// Open acquires a browser (launch or remote connect) and a fresh stealth page.
// The caller must Close the driver on every exit path.
func Open(ctx context.Context, opts Options) (*Driver, error) {
	if opts.NavTimeout <= 0 {
		opts.NavTimeout = DefaultOptions().NavTimeout
	}
	if opts.ResponseTimeout <= 0 {
		opts.ResponseTimeout = DefaultOptions().ResponseTimeout
	}
	if opts.SettleDelay <= 0 {
		opts.SettleDelay = DefaultOptions().SettleDelay
	}

	d := &Driver{opts: opts}

	if opts.RemoteURL != "" {
		d.browser = rod.New().ControlURL(opts.RemoteURL).Context(ctx)
	} else {
		bin, err := FindExecutable(opts.Path)
		if err != nil {
			return nil, err
		}
		l := launcher.New().
			Bin(bin).
			Headless(opts.Headless).
			Set("disable-dev-shm-usage").
			Set("disable-blink-features", "AutomationControlled")
		if opts.NoSandbox {
			l = l.NoSandbox(true)
		}
		controlURL, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("failed to launch browser: %w", err)
		}
		d.launcher = l
		d.browser = rod.New().ControlURL(controlURL).Context(ctx)
	}

	if err := d.browser.Connect(); err != nil {
		d.Close()
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}

	page, err := stealth.Page(d.browser)
	if err != nil {
		d.Close()
		return nil, fmt.Errorf("failed to open page: %w", err)
	}
	d.page = page.Context(ctx)

	return d, nil
}

// ReplayCookies installs the session's cookies into the browser so it
// inherits the already-authenticated state.
func (d *Driver) ReplayCookies(pageURL string, cookies []*http.Cookie) error {
	parsed, err := url.Parse(pageURL)
	if err != nil {
		return fmt.Errorf("invalid page URL for cookies: %w", err)
	}

	params := make([]*proto.NetworkCookieParam, 0, len(cookies))
	for _, cookie := range cookies {
		cookieDomain := cookie.Domain
		if cookieDomain == "" {
			cookieDomain = parsed.Hostname()
		}
		path := cookie.Path
		if path == "" {
			path = "/"
		}
		param := &proto.NetworkCookieParam{
			Name:     cookie.Name,
			Value:    cookie.Value,
			Domain:   cookieDomain,
			Path:     path,
			Secure:   cookie.Secure,
			HTTPOnly: cookie.HttpOnly,
		}
		if !cookie.Expires.IsZero() {
			param.Expires = proto.TimeSinceEpoch(cookie.Expires.Unix())
		}
		params = append(params, param)
	}

	return d.page.SetCookies(params)
}

// Navigate loads a URL and waits for the initial content to settle
func (d *Driver) Navigate(targetURL string) error {
	page := d.page.Timeout(d.opts.NavTimeout)
	if err := page.Navigate(targetURL); err != nil {
		return domain.NewFetchError(targetURL, 0, fmt.Errorf("navigation failed: %w", err))
	}
	if err := page.WaitLoad(); err != nil {
		return fmt.Errorf("%w: page load", domain.ErrTimeout)
	}
	wait := page.WaitRequestIdle(time.Second, nil, nil, nil)
	wait()
	return nil
}

// DismissConsent clicks the first-run privacy overlay's confirm button when
// one is present. Absence is not an error.
func (d *Driver) DismissConsent() bool {
	buttons, err := d.page.Timeout(5 * time.Second).Elements("button")
	if err != nil {
		return false
	}
	for _, btn := range buttons {
		text, terr := btn.Text()
		if terr != nil {
			continue
		}
		if strings.Contains(strings.ToUpper(text), "CONFIRM") {
			if cerr := btn.Click(proto.InputMouseButtonLeft, 1); cerr == nil {
				time.Sleep(d.opts.SettleDelay)
				return true
			}
		}
	}
	return false
}

// ClickControl locates a button whose visible text or embedded action
// attribute matches any of the keywords, case-insensitively, and clicks it.
// This is the most fragile contact point with the remote markup, so a naming
// change there surfaces as one diagnosable ErrControlNotFound.
func (d *Driver) ClickControl(keywords ...string) error {
	buttons, err := d.page.Timeout(10 * time.Second).Elements("button")
	if err != nil {
		return fmt.Errorf("%w: no buttons on page", domain.ErrControlNotFound)
	}

	for _, btn := range buttons {
		if matchesControl(btn, keywords) {
			if err := btn.Click(proto.InputMouseButtonLeft, 1); err != nil {
				return fmt.Errorf("control click failed: %w", err)
			}
			return nil
		}
	}

	return fmt.Errorf("%w: no control matching %v", domain.ErrControlNotFound, keywords)
}

// matchesControl checks an element's text and wire:click action attribute
// against the keyword set
func matchesControl(el *rod.Element, keywords []string) bool {
	text, _ := el.Text()
	action := ""
	if attr, err := el.Attribute("wire:click"); err == nil && attr != nil {
		action = *attr
	}
	for _, kw := range keywords {
		lower := strings.ToLower(kw)
		if strings.Contains(strings.ToLower(text), lower) ||
			strings.Contains(strings.ToLower(action), lower) {
			return true
		}
	}
	return false
}

// WaitVisible polls for a selector to materialize, bounded by timeout
func (d *Driver) WaitVisible(selector string, timeout time.Duration) error {
	el, err := d.page.Timeout(timeout).Element(selector)
	if err != nil {
		return fmt.Errorf("%w: waiting for %q", domain.ErrTimeout, selector)
	}
	if err := el.WaitVisible(); err != nil {
		return fmt.Errorf("%w: waiting for %q to become visible", domain.ErrTimeout, selector)
	}
	return nil
}

// TypeInto focuses the element at selector and types text into it
func (d *Driver) TypeInto(selector, text string) error {
	el, err := d.page.Timeout(10 * time.Second).Element(selector)
	if err != nil {
		return fmt.Errorf("%w: input %q", domain.ErrControlNotFound, selector)
	}
	return el.Input(text)
}

// SelectValue sets the value of a select element and fires the input/change
// events the reactive framework listens for.
func (d *Driver) SelectValue(selector, value string) error {
	js := `(sel, value) => {
		const el = document.querySelector(sel);
		if (!el) return false;
		el.value = value;
		el.dispatchEvent(new Event('input', { bubbles: true }));
		el.dispatchEvent(new Event('change', { bubbles: true }));
		return true;
	}`
	result, err := d.page.Eval(js, selector, value)
	if err != nil {
		return fmt.Errorf("select failed: %w", err)
	}
	if !result.Value.Bool() {
		return fmt.Errorf("%w: select %q", domain.ErrControlNotFound, selector)
	}
	return nil
}

// frameworkEndpoint is the Livewire message endpoint whose responses signal
// that a dynamic form submission was processed
const frameworkEndpoint = "/livewire/message/"

// Submit clicks the control matching keyword and waits for either the
// framework's async response or a navigation to a URL containing urlFragment,
// whichever resolves first, bounded by the response timeout. Returns the
// async response status when one was observed (0 otherwise).
func (d *Driver) Submit(keyword, urlFragment string) (int, error) {
	startURL := d.CurrentURL()
	statusCh := make(chan int, 1)
	stop := make(chan struct{})

	go d.page.EachEvent(func(e *proto.NetworkResponseReceived) bool {
		select {
		case <-stop:
			return true
		default:
		}
		if strings.Contains(e.Response.URL, frameworkEndpoint) {
			select {
			case statusCh <- e.Response.Status:
			default:
			}
			return true
		}
		return false
	})()
	defer close(stop)

	if err := d.ClickControl(keyword); err != nil {
		return 0, err
	}

	deadline := time.After(d.opts.ResponseTimeout)
	tick := time.NewTicker(500 * time.Millisecond)
	defer tick.Stop()

	asyncStatus := 0
	for {
		select {
		case status := <-statusCh:
			asyncStatus = status
		case <-deadline:
			return asyncStatus, fmt.Errorf("%w: waiting for submission response", domain.ErrTimeout)
		case <-tick.C:
		}

		if asyncStatus != 0 || navigatedTo(startURL, d.CurrentURL(), urlFragment) {
			time.Sleep(d.opts.SettleDelay)
			return asyncStatus, nil
		}
	}
}

// navigatedTo reports whether the page has left startURL for a URL containing
// fragment. The form page's own URL usually contains the fragment already
// (the create route lives under the listing route), so only a changed URL
// counts as navigation.
func navigatedTo(startURL, currentURL, fragment string) bool {
	if currentURL == "" || currentURL == startURL {
		return false
	}
	return strings.Contains(currentURL, fragment)
}

// ClickDeleteControl searches broadly across buttons and links for any
// element suggesting a delete action and clicks the first match.
func (d *Driver) ClickDeleteControl() error {
	for _, selector := range []string{"button", "a", `input[type="submit"]`} {
		elements, err := d.page.Timeout(5 * time.Second).Elements(selector)
		if err != nil {
			continue
		}
		for _, el := range elements {
			if matchesControl(el, []string{"delete", "remove", "deleteDomain"}) {
				if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
					continue
				}
				return nil
			}
		}
	}
	return fmt.Errorf("%w: no delete control on page", domain.ErrControlNotFound)
}

// ConfirmDialog waits briefly for a confirmation dialog and clicks a
// confirm-like control when one appears. Returns whether one was clicked.
func (d *Driver) ConfirmDialog() bool {
	time.Sleep(2 * time.Second)
	err := d.ClickControl("confirm", "yes, delete", "delete")
	if err == nil {
		time.Sleep(d.opts.SettleDelay)
	}
	return err == nil
}

// CurrentURL returns the page's current URL
func (d *Driver) CurrentURL() string {
	info, err := d.page.Info()
	if err != nil {
		return ""
	}
	return info.URL
}

// HTML returns the page's rendered HTML
func (d *Driver) HTML() ([]byte, error) {
	html, err := d.page.HTML()
	if err != nil {
		return nil, fmt.Errorf("failed to read page HTML: %w", err)
	}
	return []byte(html), nil
}

// Settle pauses for the configured settle delay
func (d *Driver) Settle() {
	time.Sleep(d.opts.SettleDelay)
}

// Close releases the page and the browser, in that order. Safe to call on a
// partially constructed driver and on every exit path.
func (d *Driver) Close() error {
	if d.page != nil {
		_ = d.page.Close()
		d.page = nil
	}
	var err error
	if d.browser != nil {
		err = d.browser.Close()
		d.browser = nil
	}
	if d.launcher != nil {
		d.launcher.Cleanup()
		d.launcher = nil
	}
	return err
}
