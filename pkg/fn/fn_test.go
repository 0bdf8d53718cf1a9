package fn

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestResult_OkErr(t *testing.T) {
	r := Ok(42)
	if !r.IsOk() || r.IsErr() {
		t.Fatal("expected ok result")
	}
	v, err := r.Unwrap()
	if v != 42 || err != nil {
		t.Fatalf("unwrap = (%d, %v)", v, err)
	}

	e := Err[int](errors.New("boom"))
	if e.IsOk() || !e.IsErr() {
		t.Fatal("expected err result")
	}
	if got := e.UnwrapOr(7); got != 7 {
		t.Fatalf("UnwrapOr = %d, want 7", got)
	}
}

func TestFromPair(t *testing.T) {
	if r := FromPair("x", nil); r.IsErr() {
		t.Fatal("expected ok")
	}
	if r := FromPair("", errors.New("nope")); r.IsOk() {
		t.Fatal("expected err")
	}
}

func TestThen_ShortCircuits(t *testing.T) {
	fail := errors.New("stage one failed")
	first := func(context.Context, int) Result[int] { return Err[int](fail) }
	secondRan := false
	second := func(_ context.Context, v int) Result[string] {
		secondRan = true
		return Ok("done")
	}

	r := Then(first, second)(context.Background(), 1)
	if secondRan {
		t.Fatal("second stage ran after first failed")
	}
	if _, err := r.Unwrap(); !errors.Is(err, fail) {
		t.Fatalf("err = %v, want %v", err, fail)
	}
}

func TestThen_ChainsValues(t *testing.T) {
	double := func(_ context.Context, v int) Result[int] { return Ok(v * 2) }
	inc := func(_ context.Context, v int) Result[int] { return Ok(v + 1) }
	r := Then(double, inc)(context.Background(), 10)
	if v, _ := r.Unwrap(); v != 21 {
		t.Fatalf("got %d, want 21", v)
	}
}

func TestTap_PassesThrough(t *testing.T) {
	var seen int
	stage := Tap(func(_ context.Context, v int) { seen = v })
	r := stage(context.Background(), 9)
	if v, _ := r.Unwrap(); v != 9 || seen != 9 {
		t.Fatalf("tap saw %d, result %d", seen, v)
	}
}

func TestRetry_SucceedsAfterFailures(t *testing.T) {
	attempts := 0
	opts := RetryOpts{MaxAttempts: 3, InitialWait: time.Millisecond, MaxWait: 5 * time.Millisecond}
	r := Retry(context.Background(), opts, func(context.Context) Result[int] {
		attempts++
		if attempts < 3 {
			return Errf[int]("attempt %d", attempts)
		}
		return Ok(attempts)
	})
	if v, err := r.Unwrap(); err != nil || v != 3 {
		t.Fatalf("got (%d, %v), want (3, nil)", v, err)
	}
}

func TestRetry_ExhaustsAttempts(t *testing.T) {
	attempts := 0
	opts := RetryOpts{MaxAttempts: 2, InitialWait: time.Millisecond, MaxWait: time.Millisecond}
	r := Retry(context.Background(), opts, func(context.Context) Result[int] {
		attempts++
		return Errf[int]("always fails")
	})
	if r.IsOk() {
		t.Fatal("expected failure")
	}
	if attempts != 2 {
		t.Fatalf("attempts = %d, want 2", attempts)
	}
}

func TestRetry_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	opts := RetryOpts{MaxAttempts: 5, InitialWait: time.Hour, MaxWait: time.Hour}
	r := Retry(ctx, opts, func(context.Context) Result[int] {
		return Errf[int]("fail")
	})
	if _, err := r.Unwrap(); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}
