package fetch

import (
	"net/url"
	"strings"
	"sync"
	"time"
)

// CircuitState represents the state of a circuit breaker
type CircuitState int

const (
	CircuitClosed CircuitState = iota
	CircuitOpen
	CircuitHalfOpen
)

func (s CircuitState) String() string {
	switch s {
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half_open"
	default:
		return "closed"
	}
}

type breaker struct {
	failures     int
	lastFailTime time.Time
	state        CircuitState
}

// Breakers tracks consecutive failures per domain. Once a domain reaches
// maxFailures it is rejected until resetTimeout has passed, after which a
// single trial request is let through (half-open).
type Breakers struct {
	maxFailures  int
	resetTimeout time.Duration
	domains      map[string]*breaker
	now          func() time.Time
	mu           sync.Mutex
}

// NewBreakers creates a breaker set. maxFailures <= 0 disables breaking.
func NewBreakers(maxFailures int, resetTimeout time.Duration) *Breakers {
	return &Breakers{
		maxFailures:  maxFailures,
		resetTimeout: resetTimeout,
		domains:      make(map[string]*breaker),
		now:          time.Now,
	}
}

// Allow reports whether a request to domain may be attempted
func (b *Breakers) Allow(domain string) bool {
	if b == nil || b.maxFailures <= 0 {
		return true
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	br, ok := b.domains[strings.ToLower(domain)]
	if !ok {
		return true
	}

	switch br.state {
	case CircuitOpen:
		if b.now().Sub(br.lastFailTime) >= b.resetTimeout {
			br.state = CircuitHalfOpen
			return true
		}
		return false
	default:
		return true
	}
}

// RecordSuccess closes the breaker for domain
func (b *Breakers) RecordSuccess(domain string) {
	if b == nil {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if br, ok := b.domains[strings.ToLower(domain)]; ok {
		br.state = CircuitClosed
		br.failures = 0
	}
}

// RecordFailure counts a failure and opens the breaker at the threshold. A
// failure while half-open reopens it immediately.
func (b *Breakers) RecordFailure(domain string) {
	if b == nil || b.maxFailures <= 0 {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	domain = strings.ToLower(domain)
	br, ok := b.domains[domain]
	if !ok {
		br = &breaker{}
		b.domains[domain] = br
	}

	br.failures++
	br.lastFailTime = b.now()
	if br.state == CircuitHalfOpen || br.failures >= b.maxFailures {
		br.state = CircuitOpen
	}
}

// State returns the breaker state for domain
func (b *Breakers) State(domain string) CircuitState {
	b.mu.Lock()
	defer b.mu.Unlock()

	if br, ok := b.domains[strings.ToLower(domain)]; ok {
		return br.state
	}
	return CircuitClosed
}

func domainOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}
