/**
 * @description
 * Adaptive per-credential rate limiter for the snapshot API. Each token
 * carries its own delay (AIMD: doubled on 429, decayed by 10% after ten
 * straight successes) and cooldown window, so one penalized credential
 * never slows the rest of the pool.
 *
 * Token selection is uniformly random among tokens that are not cooling
 * down, which keeps concurrent fetchers from hammering the same credential
 * in lockstep. When every token is cooling, the one closest to being free
 * is returned and the caller waits out the remainder.
 */

package snapshot

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/tf2-stack/listings-backend/internal/logger"
)

const (
	MinDelay         = 500 * time.Millisecond
	MaxDelay         = 60 * time.Second
	BackoffFactor    = 2
	CooldownOn429    = 30 * time.Second
	SuccessThreshold = 10
	RewardFactor     = 0.9
)

type tokenState struct {
	delay         time.Duration
	cooldownUntil time.Time
	successCount  int
}

// SmartRateLimiter tracks request pacing per credential. Safe for
// concurrent use.
type SmartRateLimiter struct {
	mu     sync.Mutex
	tokens []string
	states map[string]*tokenState
	now    func() time.Time
}

// NewSmartRateLimiter creates a limiter over the given credential pool.
func NewSmartRateLimiter(tokens []string) *SmartRateLimiter {
	states := make(map[string]*tokenState, len(tokens))
	for _, token := range tokens {
		states[token] = &tokenState{delay: MinDelay}
	}
	return &SmartRateLimiter{
		tokens: tokens,
		states: states,
		now:    time.Now,
	}
}

// HasTokens reports whether any credentials are configured.
func (r *SmartRateLimiter) HasTokens() bool {
	return len(r.tokens) > 0
}

// PickToken selects a credential for the next request: uniformly random
// among tokens not cooling down, else the one whose cooldown ends first.
func (r *SmartRateLimiter) PickToken() string {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.tokens) == 0 {
		return ""
	}

	now := r.now()
	available := make([]string, 0, len(r.tokens))
	for _, token := range r.tokens {
		if !r.states[token].cooldownUntil.After(now) {
			available = append(available, token)
		}
	}
	if len(available) > 0 {
		return available[rand.Intn(len(available))]
	}

	best := r.tokens[0]
	for _, token := range r.tokens[1:] {
		if r.states[token].cooldownUntil.Before(r.states[best].cooldownUntil) {
			best = token
		}
	}
	return best
}

// WaitForToken blocks for the token's current pacing interval: the larger
// of its base delay and the time left on its cooldown.
func (r *SmartRateLimiter) WaitForToken(ctx context.Context, token string) error {
	r.mu.Lock()
	state := r.state(token)
	wait := state.delay
	if remaining := state.cooldownUntil.Sub(r.now()); remaining > wait {
		wait = remaining
	}
	r.mu.Unlock()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(wait):
		return nil
	}
}

// OnRateLimited penalizes a token after an HTTP 429: delay doubles (capped)
// and the token enters a cooldown window.
func (r *SmartRateLimiter) OnRateLimited(token string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	state := r.state(token)
	state.delay *= BackoffFactor
	if state.delay > MaxDelay {
		state.delay = MaxDelay
	}
	state.cooldownUntil = r.now().Add(CooldownOn429)
	state.successCount = 0

	logger.Error("Rate limited; increasing delay for token %s to %.2fs", maskToken(token), state.delay.Seconds())
}

// OnSuccess rewards a token; after SuccessThreshold consecutive successes
// its delay decays toward MinDelay and any cooldown is cleared.
func (r *SmartRateLimiter) OnSuccess(token string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	state := r.state(token)
	state.successCount++
	if state.successCount < SuccessThreshold {
		return
	}

	state.successCount = 0
	state.cooldownUntil = time.Time{}
	decayed := time.Duration(float64(state.delay) * RewardFactor)
	if decayed < MinDelay {
		decayed = MinDelay
	}
	if decayed != state.delay {
		state.delay = decayed
		logger.Info("Decreasing delay for token %s to %.2fs", maskToken(token), state.delay.Seconds())
	}
}

// state returns the tracking entry for a token, creating one on first use.
// Caller must hold r.mu.
func (r *SmartRateLimiter) state(token string) *tokenState {
	s, ok := r.states[token]
	if !ok {
		s = &tokenState{delay: MinDelay}
		r.states[token] = s
		r.tokens = append(r.tokens, token)
	}
	return s
}

// maskToken keeps log lines from leaking credentials.
func maskToken(token string) string {
	if len(token) <= 5 {
		return token + "***"
	}
	return token[:5] + "***"
}
