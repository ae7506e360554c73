// Package captcha detects challenge pages and solves them through 2captcha.
package captcha

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	api2captcha "github.com/2captcha/2captcha-go"

	"jobharvest/internal/config"
	"jobharvest/internal/logging"
)

// ErrSolverDisabled is returned when auto-solve is off or no API key is configured
var ErrSolverDisabled = errors.New("captcha solving disabled")

// Kind identifies the challenge type found on a page
type Kind string

const (
	KindNone       Kind = ""
	KindRecaptcha  Kind = "recaptcha"
	KindTurnstile  Kind = "turnstile"
	KindCloudflare Kind = "cloudflare"
)

// Challenge describes a captcha found on a page
type Challenge struct {
	Kind    Kind
	SiteKey string
}

// Solvable reports whether a token can be requested for the challenge
func (c Challenge) Solvable() bool {
	return (c.Kind == KindRecaptcha || c.Kind == KindTurnstile) && c.SiteKey != ""
}

// Solver returns a response token for a challenge
type Solver interface {
	Solve(ctx context.Context, challenge Challenge, pageURL string) (string, error)
}

type solveClient interface {
	Solve(req api2captcha.Request) (string, string, error)
}

// TwoCaptchaSolver solves reCAPTCHA v2 and Turnstile challenges with 2captcha
type TwoCaptchaSolver struct {
	client  solveClient
	enabled bool
	logger  logging.Logger
}

// NewTwoCaptchaSolver creates a solver from the scraper captcha config
func NewTwoCaptchaSolver(cfg *config.Config, logger logging.Logger) *TwoCaptchaSolver {
	client := api2captcha.NewClient(cfg.Scraper.Captcha.APIKey)

	timeout := int(cfg.Scraper.Captcha.Timeout.Seconds())
	if timeout > 0 {
		client.DefaultTimeout = timeout
		client.RecaptchaTimeout = timeout
	}
	client.PollingInterval = 5

	return &TwoCaptchaSolver{
		client:  client,
		enabled: cfg.Scraper.Captcha.EnableAutoSolve && cfg.Scraper.Captcha.APIKey != "",
		logger:  logger,
	}
}

// Solve requests a token for challenge. The 2captcha client blocks while
// polling, so cancellation returns early but leaves the poll running.
func (s *TwoCaptchaSolver) Solve(ctx context.Context, challenge Challenge, pageURL string) (string, error) {
	if !s.enabled {
		return "", ErrSolverDisabled
	}
	if !challenge.Solvable() {
		return "", fmt.Errorf("unsupported challenge %q", challenge.Kind)
	}

	var req api2captcha.Request
	switch challenge.Kind {
	case KindRecaptcha:
		captcha := api2captcha.ReCaptcha{SiteKey: challenge.SiteKey, Url: pageURL}
		req = captcha.ToRequest()
	case KindTurnstile:
		captcha := api2captcha.CloudflareTurnstile{SiteKey: challenge.SiteKey, Url: pageURL}
		req = captcha.ToRequest()
	}

	type result struct {
		code string
		id   string
		err  error
	}
	done := make(chan result, 1)
	start := time.Now()

	go func() {
		code, id, err := s.client.Solve(req)
		done <- result{code, id, err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-done:
		if r.err != nil {
			s.logger.Error("Captcha solve failed", map[string]interface{}{
				"kind":       string(challenge.Kind),
				"page_url":   pageURL,
				"captcha_id": r.id,
				"error":      r.err.Error(),
			})
			return "", fmt.Errorf("solve %s: %w", challenge.Kind, r.err)
		}

		s.logger.Info("Captcha solved", map[string]interface{}{
			"kind":         string(challenge.Kind),
			"page_url":     pageURL,
			"solving_time": time.Since(start).String(),
		})
		return r.code, nil
	}
}

var (
	recaptchaKey = []*regexp.Regexp{
		regexp.MustCompile(`data-sitekey="([^"]+)"`),
		regexp.MustCompile(`data-sitekey='([^']+)'`),
		regexp.MustCompile(`"sitekey"\s*:\s*"([^"]+)"`),
	}
	turnstileKey = []*regexp.Regexp{
		regexp.MustCompile(`cf-turnstile[^>]*data-sitekey=['"]([^'"]+)['"]`),
		regexp.MustCompile(`data-sitekey=['"]([^'"]+)['"][^>]*cf-turnstile`),
		regexp.MustCompile(`challenges\.cloudflare\.com[^"]*/(0x[0-9a-zA-Z_-]{10,})/`),
	}
	challengeMarkers = []string{
		"cf-challenge",
		"just a moment",
		"checking your browser",
		"cf-browser-verification",
		"__cf_chl_jschl_tk__",
		"performance & security by cloudflare",
	}
)

// Detect inspects page HTML for a captcha or interstitial challenge
func Detect(html string) Challenge {
	lower := strings.ToLower(html)

	if strings.Contains(lower, "cf-turnstile") || strings.Contains(lower, "turnstile") {
		if key := firstMatch(html, turnstileKey); key != "" {
			return Challenge{Kind: KindTurnstile, SiteKey: key}
		}
	}

	if strings.Contains(lower, "g-recaptcha") || strings.Contains(lower, "recaptcha") {
		if key := firstMatch(html, recaptchaKey); key != "" {
			return Challenge{Kind: KindRecaptcha, SiteKey: key}
		}
	}

	for _, marker := range challengeMarkers {
		if strings.Contains(lower, marker) {
			if key := firstMatch(html, turnstileKey); key != "" {
				return Challenge{Kind: KindTurnstile, SiteKey: key}
			}
			return Challenge{Kind: KindCloudflare}
		}
	}

	return Challenge{}
}

func firstMatch(s string, patterns []*regexp.Regexp) string {
	for _, p := range patterns {
		if m := p.FindStringSubmatch(s); len(m) > 1 {
			if key := strings.TrimSpace(m[1]); key != "" {
				return key
			}
		}
	}
	return ""
}
