package fetch

import (
	"context"
	"net/url"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// PoliteLimiter paces requests per host. The discovery core only reports
// crawl-delay values; callers feed resolved delays in here (or into their
// own scheduler) to honor them.
type PoliteLimiter struct {
	mu       sync.RWMutex
	limiters map[string]*rate.Limiter
	delay    time.Duration
}

// NewPoliteLimiter creates a limiter with a default per-host delay.
func NewPoliteLimiter(defaultDelay time.Duration) *PoliteLimiter {
	return &PoliteLimiter{
		limiters: make(map[string]*rate.Limiter),
		delay:    defaultDelay,
	}
}

// Wait blocks until a request to rawURL's host may proceed.
func (p *PoliteLimiter) Wait(ctx context.Context, rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return err
	}
	return p.limiter(u.Host).Wait(ctx)
}

// SetHostDelay applies a host-specific delay, typically the crawl-delay
// reported by the robots resolver. Non-positive delays reset to the
// default.
func (p *PoliteLimiter) SetHostDelay(host string, delay time.Duration) {
	if delay <= 0 {
		delay = p.delay
	}
	p.mu.Lock()
	p.limiters[host] = rate.NewLimiter(rate.Every(delay), 1)
	p.mu.Unlock()
}

func (p *PoliteLimiter) limiter(host string) *rate.Limiter {
	p.mu.RLock()
	limiter, ok := p.limiters[host]
	p.mu.RUnlock()
	if ok {
		return limiter
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if limiter, ok := p.limiters[host]; ok {
		return limiter
	}
	limiter = rate.NewLimiter(rate.Every(p.delay), 1)
	p.limiters[host] = limiter
	return limiter
}
