package limiter

import (
	"context"
	"testing"
	"time"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func TestMemory_BlocksAtThresholdAndExpires(t *testing.T) {
	c := &clock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	l := NewMemory(15*time.Minute, 3, 10*time.Minute).WithClock(c.now)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if blocked, _, _ := l.Failure(ctx, "a@x.com"); blocked {
			t.Fatalf("blocked too early at %d", i)
		}
	}
	blocked, dur, _ := l.Failure(ctx, "A@X.COM")
	if !blocked || dur != 10*time.Minute {
		t.Fatalf("want block at threshold: blocked=%v dur=%v", blocked, dur)
	}
	if ok, retry, _ := l.Allow(ctx, "a@x.com"); ok || retry != 10*time.Minute {
		t.Fatalf("want blocked: ok=%v retry=%v", ok, retry)
	}
	if ok, _, _ := l.Allow(ctx, "b@x.com"); !ok {
		t.Fatalf("other accounts unaffected")
	}

	c.t = c.t.Add(11 * time.Minute)
	if ok, _, _ := l.Allow(ctx, "a@x.com"); !ok {
		t.Fatalf("block must expire")
	}
}

func TestMemory_WindowResetsCount(t *testing.T) {
	c := &clock{t: time.Now()}
	l := NewMemory(time.Minute, 2, time.Hour).WithClock(c.now)
	ctx := context.Background()

	_, _, _ = l.Failure(ctx, "a@x.com")
	c.t = c.t.Add(2 * time.Minute)
	if blocked, _, _ := l.Failure(ctx, "a@x.com"); blocked {
		t.Fatalf("failure outside window must restart the count")
	}
}

func TestMemory_SuccessResets(t *testing.T) {
	l := NewMemory(time.Minute, 2, time.Hour)
	ctx := context.Background()

	_, _, _ = l.Failure(ctx, "a@x.com")
	_ = l.Success(ctx, "a@x.com")
	if blocked, _, _ := l.Failure(ctx, "a@x.com"); blocked {
		t.Fatalf("success must reset failures")
	}
}

func TestMemory_Disabled(t *testing.T) {
	l := NewMemory(time.Minute, 0, time.Hour)
	ctx := context.Background()
	for i := 0; i < 10; i++ {
		if blocked, _, _ := l.Failure(ctx, "a@x.com"); blocked {
			t.Fatalf("disabled limiter must never block")
		}
	}
	if ok, _, _ := l.Allow(ctx, "a@x.com"); !ok {
		t.Fatalf("disabled limiter must allow")
	}
}
