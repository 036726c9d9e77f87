package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestInMemoryRateLimiter_IsLimited_IsPerKey(t *testing.T) {
	ctx := context.Background()
	limiter := NewInMemoryRateLimiter(1, time.Second)

	limited, err := limiter.IsLimited(ctx, "client-a")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if limited {
		t.Fatalf("first request for client-a should not be limited")
	}

	limited, err = limiter.IsLimited(ctx, "client-a")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !limited {
		t.Fatalf("second immediate request for client-a should be limited")
	}

	limited, err = limiter.IsLimited(ctx, "client-b")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if limited {
		t.Fatalf("first request for client-b should not be limited (per-key limiter)")
	}
}

func TestInMemoryRateLimiter_EmptyKeySharesBucket(t *testing.T) {
	ctx := context.Background()
	limiter := NewInMemoryRateLimiter(1, time.Minute)

	if limited, _ := limiter.IsLimited(ctx, ""); limited {
		t.Fatalf("first anonymous request should pass")
	}
	if limited, _ := limiter.IsLimited(ctx, ""); !limited {
		t.Fatalf("second anonymous request should share the bucket and be limited")
	}
}

func TestNewRateLimiter_FallsBackToInMemory(t *testing.T) {
	limiter := NewRateLimiter(&RateLimitConfig{Requests: 30, Window: time.Minute})

	if _, ok := limiter.(*InMemoryRateLimiter); !ok {
		t.Fatalf("expected in-memory limiter without Redis, got %T", limiter)
	}

	requests, window := limiter.GetLimitDetails()
	if requests != 30 || window != time.Minute {
		t.Fatalf("unexpected limit details: %d/%s", requests, window)
	}
}
