// Package ratelimit implements the dual token-bucket limiter from spec.md
// §4.6: a requests-per-minute bucket and an optional tokens-per-minute
// bucket, with rollback-on-denial semantics so a request that consumes a
// request token but fails the token-budget check gives its request token
// back.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Config controls bucket sizing. TokensPerMinute of 0 disables TPM limiting.
type Config struct {
	RequestsPerMinute int
	TokensPerMinute   int
}

// DefaultConfig allows 60 requests per minute with no token-budget limit.
func DefaultConfig() Config {
	return Config{RequestsPerMinute: 60}
}

// OpenAITier1 mirrors a conservative 60 RPM / 60k TPM provider tier.
func OpenAITier1() Config {
	return Config{RequestsPerMinute: 60, TokensPerMinute: 60000}
}

// OpenAITier2 mirrors a higher 3000 RPM / 250k TPM provider tier.
func OpenAITier2() Config {
	return Config{RequestsPerMinute: 3000, TokensPerMinute: 250000}
}

// Unlimited disables request-rate limiting entirely, for local/offline use.
func Unlimited() Config {
	return Config{RequestsPerMinute: 1 << 30}
}

// tokenBucket is a floating-point token bucket refilled continuously based
// on elapsed wall-clock time since the last refill.
type tokenBucket struct {
	mu         sync.Mutex
	tokens     float64
	maxTokens  float64
	refillRate float64 // tokens per second
	lastUpdate time.Time
	now        func() time.Time
}

func newTokenBucket(maxTokens, refillRate float64, now func() time.Time) *tokenBucket {
	return &tokenBucket{
		tokens:     maxTokens,
		maxTokens:  maxTokens,
		refillRate: refillRate,
		lastUpdate: now(),
		now:        now,
	}
}

// refill must be called with mu held.
func (b *tokenBucket) refill() {
	n := b.now()
	elapsed := n.Sub(b.lastUpdate).Seconds()
	b.tokens += elapsed * b.refillRate
	if b.tokens > b.maxTokens {
		b.tokens = b.maxTokens
	}
	b.lastUpdate = n
}

// tryConsume refills, then consumes amount if available.
func (b *tokenBucket) tryConsume(amount float64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refill()
	if b.tokens >= amount {
		b.tokens -= amount
		return true
	}
	return false
}

// refund gives tokens back, e.g. after a downstream bucket denies a request
// that already consumed from this one.
func (b *tokenBucket) refund(amount float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tokens += amount
	if b.tokens > b.maxTokens {
		b.tokens = b.maxTokens
	}
}

// timeUntilAvailable reports how long to wait for amount tokens to refill.
func (b *tokenBucket) timeUntilAvailable(amount float64) time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refill()
	if b.tokens >= amount {
		return 0
	}
	needed := amount - b.tokens
	return time.Duration(needed / b.refillRate * float64(time.Second))
}

// Limiter enforces a dual token-bucket request/token budget.
type Limiter struct {
	config        Config
	requestBucket *tokenBucket
	tokenBucket   *tokenBucket // nil when TPM limiting is disabled
}

// New constructs a Limiter from the given config using the real clock.
func New(config Config) *Limiter {
	return newWithClock(config, time.Now)
}

func newWithClock(config Config, now func() time.Time) *Limiter {
	rpm := float64(config.RequestsPerMinute)
	l := &Limiter{
		config:        config,
		requestBucket: newTokenBucket(rpm, rpm/60.0, now),
	}
	if config.TokensPerMinute > 0 {
		tpm := float64(config.TokensPerMinute)
		l.tokenBucket = newTokenBucket(tpm, tpm/60.0, now)
	}
	return l
}

// Config returns the limiter's configuration.
func (l *Limiter) Config() Config {
	return l.config
}

// Acquire blocks until both the request bucket and, if configured, the
// token bucket can accommodate the call, or until ctx is cancelled. A
// tokenCount of 0 skips TPM accounting for this call.
func (l *Limiter) Acquire(ctx context.Context, tokenCount int) error {
	for {
		if l.requestBucket.tryConsume(1.0) {
			if l.tokenBucket != nil && tokenCount > 0 {
				if l.tokenBucket.tryConsume(float64(tokenCount)) {
					return nil
				}
				// Token budget denied it: give the request token back.
				l.requestBucket.refund(1.0)
			} else {
				return nil
			}
		}

		wait := l.requestBucket.timeUntilAvailable(1.0)
		if l.tokenBucket != nil && tokenCount > 0 {
			if tw := l.tokenBucket.timeUntilAvailable(float64(tokenCount)); tw > wait {
				wait = tw
			}
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// TryAcquire attempts to consume both buckets without waiting. It returns
// false immediately if either bucket lacks sufficient tokens, rolling back
// any request token already consumed.
func (l *Limiter) TryAcquire(tokenCount int) bool {
	if !l.requestBucket.tryConsume(1.0) {
		return false
	}
	if l.tokenBucket != nil && tokenCount > 0 {
		if !l.tokenBucket.tryConsume(float64(tokenCount)) {
			l.requestBucket.refund(1.0)
			return false
		}
	}
	return true
}
