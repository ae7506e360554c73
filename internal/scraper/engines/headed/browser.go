// Package headed renders pages in a stealth Chromium instance for boards that
// build their listings with JavaScript.
package headed

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"jobharvest/internal/config"
	"jobharvest/internal/logging"
	"jobharvest/internal/scraper/captcha"
)

// ErrChallenge is returned when a page is still behind a challenge after solving
var ErrChallenge = errors.New("page blocked by challenge")

// settleDelay gives client-side rendering time to populate listings after load
const settleDelay = 2 * time.Second

// Engine fetches rendered HTML through a single shared browser. Each Fetch
// opens its own stealth page, so concurrent calls are safe.
type Engine struct {
	headless  bool
	userAgent string
	timeout   time.Duration
	solver    captcha.Solver
	logger    logging.Logger

	launcher *launcher.Launcher
	browser  *rod.Browser
	mu       sync.Mutex
}

// New creates a browser engine. The browser is launched on first use. solver
// may be nil to disable captcha solving.
func New(cfg *config.Config, solver captcha.Solver, logger logging.Logger) *Engine {
	return &Engine{
		headless:  cfg.Scraper.HeadlessMode,
		userAgent: cfg.Scraper.UserAgent,
		timeout:   cfg.Scraper.RequestTimeout,
		solver:    solver,
		logger:    logger,
	}
}

// Fetch navigates to url and returns the rendered document
func (e *Engine) Fetch(ctx context.Context, url string) (string, error) {
	browser, err := e.connect()
	if err != nil {
		return "", err
	}

	page, err := e.newPage(browser)
	if err != nil {
		return "", err
	}
	defer page.Close()

	navCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	page = page.Context(navCtx)

	if err := page.Navigate(url); err != nil {
		return "", fmt.Errorf("navigate %s: %w", url, err)
	}
	if err := page.WaitLoad(); err != nil {
		return "", fmt.Errorf("wait load %s: %w", url, err)
	}

	if err := sleepContext(navCtx, settleDelay); err != nil {
		return "", err
	}

	html, err := page.HTML()
	if err != nil {
		return "", fmt.Errorf("read html %s: %w", url, err)
	}

	challenge := captcha.Detect(html)
	if challenge.Kind == captcha.KindNone {
		return html, nil
	}

	return e.resolveChallenge(navCtx, page, url, challenge)
}

func (e *Engine) resolveChallenge(ctx context.Context, page *rod.Page, url string, challenge captcha.Challenge) (string, error) {
	e.logger.Warn("Challenge detected", map[string]interface{}{
		"url":  url,
		"kind": string(challenge.Kind),
	})

	if e.solver == nil || !challenge.Solvable() {
		return "", fmt.Errorf("%w: %s", ErrChallenge, challenge.Kind)
	}

	token, err := e.solver.Solve(ctx, challenge, url)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrChallenge, err)
	}

	if _, err := page.Eval(injectScript, string(challenge.Kind), token); err != nil {
		return "", fmt.Errorf("inject captcha token: %w", err)
	}

	if err := page.WaitLoad(); err != nil {
		return "", fmt.Errorf("wait after captcha: %w", err)
	}
	if err := sleepContext(ctx, settleDelay); err != nil {
		return "", err
	}

	html, err := page.HTML()
	if err != nil {
		return "", err
	}
	if captcha.Detect(html).Kind != captcha.KindNone {
		return "", fmt.Errorf("%w: still present after solving", ErrChallenge)
	}
	return html, nil
}

// injectScript writes the solved token into the widget's response field and
// submits the enclosing form
const injectScript = `(kind, token) => {
	const name = kind === 'turnstile' ? 'cf-turnstile-response' : 'g-recaptcha-response';
	let field = document.querySelector('[name="' + name + '"]');
	if (!field) {
		field = document.createElement('input');
		field.type = 'hidden';
		field.name = name;
		const widget = document.querySelector('.g-recaptcha, .cf-turnstile, [data-sitekey]');
		(widget || document.body).appendChild(field);
	}
	field.value = token;
	field.innerHTML = token;

	const widget = document.querySelector('[data-callback]');
	if (widget) {
		const cb = window[widget.getAttribute('data-callback')];
		if (typeof cb === 'function') { cb(token); return; }
	}
	const form = field.closest('form');
	if (form) { form.submit(); }
}`

func (e *Engine) connect() (*rod.Browser, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.browser != nil {
		return e.browser, nil
	}

	l := launcher.New().
		Headless(e.headless).
		NoSandbox(true).
		Set("disable-blink-features", "AutomationControlled").
		Set("disable-gpu").
		Set("disable-dev-shm-usage")

	if chromePath := systemChromePath(); chromePath != "" {
		l = l.Bin(chromePath)
	}
	if e.userAgent != "" {
		l = l.Set("user-agent", e.userAgent)
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Cleanup()
		return nil, fmt.Errorf("connect browser: %w", err)
	}

	e.logger.Info("Browser launched", map[string]interface{}{
		"headless": strconv.FormatBool(e.headless),
	})

	e.launcher = l
	e.browser = browser
	return browser, nil
}

func (e *Engine) newPage(browser *rod.Browser) (*rod.Page, error) {
	page, err := stealth.Page(browser)
	if err != nil {
		return nil, fmt.Errorf("create stealth page: %w", err)
	}

	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             1920,
		Height:            1080,
		DeviceScaleFactor: 1,
	}); err != nil {
		e.logger.Debug("Failed to set viewport", map[string]interface{}{"error": err.Error()})
	}

	if e.userAgent != "" {
		if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
			UserAgent:      e.userAgent,
			AcceptLanguage: "en-US,en;q=0.9",
		}); err != nil {
			e.logger.Debug("Failed to set user agent", map[string]interface{}{"error": err.Error()})
		}
	}

	return page, nil
}

// Close shuts the browser down
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.browser == nil {
		return nil
	}

	err := e.browser.Close()
	e.launcher.Cleanup()
	e.browser = nil
	e.launcher = nil
	return err
}

// systemChromePath prefers CHROME_BIN or CHROME_PATH, then well-known install locations
func systemChromePath() string {
	for _, env := range []string{"CHROME_BIN", "CHROME_PATH"} {
		if p := os.Getenv(env); p != "" {
			if _, err := os.Stat(p); err == nil {
				return p
			}
		}
	}

	for _, p := range []string{
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/usr/bin/google-chrome",
		"/usr/bin/google-chrome-stable",
		"/opt/google/chrome/chrome",
		"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
	} {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
