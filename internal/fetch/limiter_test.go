package fetch

import (
	"context"
	"testing"
	"time"
)

func TestPoliteLimiterPacesPerHost(t *testing.T) {
	limiter := NewPoliteLimiter(50 * time.Millisecond)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 3; i++ {
		if err := limiter.Wait(ctx, "https://example.com/page"); err != nil {
			t.Fatalf("Wait: %v", err)
		}
	}
	if elapsed := time.Since(start); elapsed < 90*time.Millisecond {
		t.Errorf("three requests took %v, want at least two delay intervals", elapsed)
	}
}

func TestPoliteLimiterHostsAreIndependent(t *testing.T) {
	limiter := NewPoliteLimiter(time.Second)
	ctx := context.Background()

	start := time.Now()
	if err := limiter.Wait(ctx, "https://a.example.com/"); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if err := limiter.Wait(ctx, "https://b.example.com/"); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("different hosts blocked each other: %v", elapsed)
	}
}

func TestPoliteLimiterSetHostDelay(t *testing.T) {
	limiter := NewPoliteLimiter(10 * time.Millisecond)
	limiter.SetHostDelay("slow.example.com", 100*time.Millisecond)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 2; i++ {
		if err := limiter.Wait(ctx, "https://slow.example.com/"); err != nil {
			t.Fatalf("Wait: %v", err)
		}
	}
	if elapsed := time.Since(start); elapsed < 90*time.Millisecond {
		t.Errorf("host delay not honored: %v", elapsed)
	}
}

func TestPoliteLimiterCancelled(t *testing.T) {
	limiter := NewPoliteLimiter(time.Hour)
	ctx := context.Background()

	// First request is immediate; the second would wait an hour.
	if err := limiter.Wait(ctx, "https://example.com/"); err != nil {
		t.Fatalf("Wait: %v", err)
	}

	cancelled, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	if err := limiter.Wait(cancelled, "https://example.com/"); err == nil {
		t.Error("Wait with cancelled context returned nil")
	}
}
