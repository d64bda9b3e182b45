package worker

import (
	"context"
	"testing"
	"time"
)

func TestLimiter_New(t *testing.T) {
	limiter := NewLimiter(10, 5)
	if limiter.defaultBurst != 5 {
		t.Errorf("expected burst 5, got %d", limiter.defaultBurst)
	}

	l2 := NewLimiter(10, -1)
	if l2.defaultBurst != 5 {
		t.Errorf("expected default burst 5 for negative input, got %d", l2.defaultBurst)
	}
}

func TestLimiter_Wait(t *testing.T) {
	limiter := NewLimiter(100, 1)
	ctx := context.Background()

	if err := limiter.Wait(ctx, "https://drug-info.p.rapidapi.com/1/druginfo?drug=x"); err != nil {
		t.Errorf("wait failed: %v", err)
	}
	if err := limiter.Wait(ctx, "https://generativelanguage.googleapis.com"); err != nil {
		t.Errorf("wait failed: %v", err)
	}
}

// waitBriefly reports whether a Wait succeeds within a short deadline
func waitBriefly(l *Limiter, url string) bool {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	return l.Wait(ctx, url) == nil
}

func TestLimiter_RateLimit(t *testing.T) {
	limiter := NewLimiter(0.1, 1)
	url := "https://api.example.com/druginfo"

	if !waitBriefly(limiter, url) {
		t.Errorf("first wait failed")
	}
	if waitBriefly(limiter, url) {
		t.Errorf("expected second wait to exceed the deadline (exhausted tokens)")
	}
	if !waitBriefly(limiter, "https://other.example.com") {
		t.Errorf("expected other host to pass")
	}
}

func TestLimiter_Unlimited(t *testing.T) {
	limiter := NewLimiter(0, 1)
	for i := 0; i < 20; i++ {
		if !waitBriefly(limiter, "https://api.example.com") {
			t.Fatalf("request %d throttled by unlimited limiter", i)
		}
	}
}

func TestLimiter_Nil(t *testing.T) {
	var limiter *Limiter
	if err := limiter.Wait(context.Background(), "https://api.example.com"); err != nil {
		t.Errorf("nil limiter should not block: %v", err)
	}
}

func TestLimiter_InvalidURL(t *testing.T) {
	limiter := NewLimiter(10, 1)
	if err := limiter.Wait(context.Background(), "/relative/path"); err == nil {
		t.Error("expected error for URL without host")
	}
}

func TestHostOf(t *testing.T) {
	host, err := hostOf("https://example.com/foo")
	if err != nil {
		t.Fatalf("hostOf failed: %v", err)
	}
	if host != "example.com" {
		t.Errorf("expected example.com, got %s", host)
	}

	if _, err := hostOf("::invalid"); err == nil {
		t.Errorf("expected error for invalid URL")
	}
	if _, err := hostOf("/relative/path"); err == nil {
		t.Errorf("expected error for URL without host")
	}
}
