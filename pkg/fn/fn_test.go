package fn

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestResultOkErr(t *testing.T) {
	r := Ok(42)
	if !r.IsOk() || r.IsErr() {
		t.Fatal("Ok result should be ok")
	}
	v, err := r.Unwrap()
	if err != nil || v != 42 {
		t.Fatalf("unexpected unwrap: %v %v", v, err)
	}

	e := Err[int](errors.New("boom"))
	if e.IsOk() {
		t.Fatal("Err result should not be ok")
	}
	if got := e.UnwrapOr(7); got != 7 {
		t.Fatalf("UnwrapOr = %d, want 7", got)
	}
}

func TestFromPair(t *testing.T) {
	if r := FromPair("x", nil); r.IsErr() {
		t.Fatal("nil error should produce Ok")
	}
	if r := FromPair("", errors.New("bad")); r.IsOk() {
		t.Fatal("non-nil error should produce Err")
	}
}

func TestRetrySucceedsAfterFailures(t *testing.T) {
	calls := 0
	result := Retry(context.Background(), RetryOpts{MaxAttempts: 3, InitialWait: time.Millisecond, MaxWait: 2 * time.Millisecond}, func(context.Context) Result[string] {
		calls++
		if calls < 3 {
			return Errf[string]("attempt %d", calls)
		}
		return Ok("done")
	})
	v, err := result.Unwrap()
	if err != nil || v != "done" {
		t.Fatalf("unexpected result: %v %v", v, err)
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
}

func TestRetryExhausted(t *testing.T) {
	result := Retry(context.Background(), RetryOpts{MaxAttempts: 2, InitialWait: time.Millisecond}, func(context.Context) Result[int] {
		return Errf[int]("always fails")
	})
	if result.IsOk() {
		t.Fatal("expected exhausted retry to fail")
	}
}

func TestRetryRespectsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	result := Retry(ctx, RetryOpts{MaxAttempts: 5, InitialWait: time.Second}, func(context.Context) Result[int] {
		return Errf[int]("nope")
	})
	_, err := result.Unwrap()
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestSliceHelpers(t *testing.T) {
	doubled := Map([]int{1, 2, 3}, func(n int) int { return n * 2 })
	if doubled[2] != 6 {
		t.Fatalf("Map result = %v", doubled)
	}

	evens := Filter([]int{1, 2, 3, 4}, func(n int) bool { return n%2 == 0 })
	if len(evens) != 2 {
		t.Fatalf("Filter result = %v", evens)
	}

	picked := FilterMap([]string{"a", "", "b"}, func(s string) (string, bool) { return s, s != "" })
	if len(picked) != 2 {
		t.Fatalf("FilterMap result = %v", picked)
	}

	flat := FlatMap([][]int{{1}, {2, 3}}, func(s []int) []int { return s })
	if len(flat) != 3 {
		t.Fatalf("FlatMap result = %v", flat)
	}

	uniq := Unique([]string{"x", "y", "x", "z", "y"})
	if len(uniq) != 3 || uniq[0] != "x" {
		t.Fatalf("Unique result = %v", uniq)
	}
}

func TestParMapPreservesOrder(t *testing.T) {
	in := []int{5, 4, 3, 2, 1}
	out := ParMap(in, 2, func(n int) int { return n * 10 })
	for i, v := range out {
		if v != in[i]*10 {
			t.Fatalf("out[%d] = %d, want %d", i, v, in[i]*10)
		}
	}
}
