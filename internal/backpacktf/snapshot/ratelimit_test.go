package snapshot

import (
	"context"
	"testing"
	"time"
)

func TestWaitForTokenBaseDelay(t *testing.T) {
	t.Parallel()

	r := NewSmartRateLimiter([]string{"token-a"})

	start := time.Now()
	if err := r.WaitForToken(context.Background(), "token-a"); err != nil {
		t.Fatalf("WaitForToken returned error: %v", err)
	}
	elapsed := time.Since(start)
	if elapsed < MinDelay {
		t.Errorf("waited %v, expected at least %v", elapsed, MinDelay)
	}
	if elapsed > MinDelay+300*time.Millisecond {
		t.Errorf("waited %v, expected roughly %v", elapsed, MinDelay)
	}
}

func TestWaitForTokenCanceled(t *testing.T) {
	t.Parallel()

	r := NewSmartRateLimiter([]string{"token-a"})
	r.OnRateLimited("token-a") // 30s cooldown would block far too long

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := r.WaitForToken(ctx, "token-a")
	if err == nil {
		t.Fatal("expected context error")
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("cancellation took too long: %v", elapsed)
	}
}

func TestPickTokenAvoidsCoolingTokens(t *testing.T) {
	r := NewSmartRateLimiter([]string{"token-a", "token-b"})

	current := time.Unix(1000, 0)
	r.now = func() time.Time { return current }

	r.OnRateLimited("token-a")
	for i := 0; i < 50; i++ {
		if got := r.PickToken(); got != "token-b" {
			t.Fatalf("expected cooling token to be skipped, got %q", got)
		}
	}

	// With every token cooling, the one closest to free wins.
	current = current.Add(10 * time.Second)
	r.OnRateLimited("token-b")
	if got := r.PickToken(); got != "token-a" {
		t.Errorf("expected earliest-free token, got %q", got)
	}

	// Once its cooldown lapses, token-a is selectable again.
	current = current.Add(25 * time.Second)
	if got := r.PickToken(); got != "token-a" {
		t.Errorf("expected token-a to be free again, got %q", got)
	}
}

func TestBackoffDoublesAndCaps(t *testing.T) {
	r := NewSmartRateLimiter([]string{"token-a"})
	r.now = func() time.Time { return time.Unix(1000, 0) }

	r.OnRateLimited("token-a")
	if got := r.states["token-a"].delay; got != time.Second {
		t.Fatalf("expected delay 1s after first 429, got %v", got)
	}
	r.OnRateLimited("token-a")
	if got := r.states["token-a"].delay; got != 2*time.Second {
		t.Fatalf("expected delay 2s after second 429, got %v", got)
	}

	for i := 0; i < 10; i++ {
		r.OnRateLimited("token-a")
	}
	if got := r.states["token-a"].delay; got != MaxDelay {
		t.Errorf("expected delay capped at %v, got %v", MaxDelay, got)
	}
}

func TestRewardAfterSuccessStreak(t *testing.T) {
	r := NewSmartRateLimiter([]string{"token-a"})
	r.now = func() time.Time { return time.Unix(1000, 0) }

	r.OnRateLimited("token-a")
	r.OnRateLimited("token-a") // delay 2s, cooling

	for i := 0; i < SuccessThreshold; i++ {
		r.OnSuccess("token-a")
	}
	state := r.states["token-a"]
	if want := time.Duration(float64(2*time.Second) * RewardFactor); state.delay != want {
		t.Errorf("expected decayed delay %v, got %v", want, state.delay)
	}
	if !state.cooldownUntil.IsZero() {
		t.Error("expected cooldown cleared after reward")
	}
	if state.successCount != 0 {
		t.Errorf("expected success counter reset, got %d", state.successCount)
	}

	// Delay never dips under the floor.
	state.delay = MinDelay
	for i := 0; i < SuccessThreshold; i++ {
		r.OnSuccess("token-a")
	}
	if state.delay != MinDelay {
		t.Errorf("expected delay floored at %v, got %v", MinDelay, state.delay)
	}
}

func TestRateLimitResetsSuccessStreak(t *testing.T) {
	r := NewSmartRateLimiter([]string{"token-a"})
	r.now = func() time.Time { return time.Unix(1000, 0) }

	for i := 0; i < SuccessThreshold-1; i++ {
		r.OnSuccess("token-a")
	}
	r.OnRateLimited("token-a")
	for i := 0; i < SuccessThreshold-1; i++ {
		r.OnSuccess("token-a")
	}

	// 9 + 9 successes with a 429 between them never reach the threshold.
	if got := r.states["token-a"].delay; got != time.Second {
		t.Errorf("expected delay unchanged at 1s, got %v", got)
	}
	if got := r.states["token-a"].successCount; got != SuccessThreshold-1 {
		t.Errorf("expected counter at %d, got %d", SuccessThreshold-1, got)
	}
}
