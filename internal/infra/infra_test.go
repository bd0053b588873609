package infra

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestBackoff(t *testing.T) {
	base := 500 * time.Millisecond
	max := 30 * time.Second

	tests := []struct {
		name    string
		base    time.Duration
		max     time.Duration
		attempt int
		want    time.Duration
	}{
		{"first retry", base, max, 0, 500 * time.Millisecond},
		{"second retry", base, max, 1, time.Second},
		{"third retry", base, max, 2, 2 * time.Second},
		{"capped", base, max, 10, 30 * time.Second},
		{"deep attempt stays capped", base, max, 60, 30 * time.Second},
		{"zero base disables delay", 0, max, 5, 0},
		{"base above max clamps", time.Minute, time.Second, 0, time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Backoff(tt.base, tt.max, tt.attempt); got != tt.want {
				t.Errorf("Backoff(%v, %v, %d) = %v, want %v", tt.base, tt.max, tt.attempt, got, tt.want)
			}
		})
	}
}

func TestBackoffNonDecreasing(t *testing.T) {
	prev := time.Duration(0)
	for attempt := 0; attempt < 20; attempt++ {
		d := Backoff(100*time.Millisecond, 5*time.Second, attempt)
		if d < prev {
			t.Fatalf("Backoff decreased at attempt %d: %v after %v", attempt, d, prev)
		}
		prev = d
	}
}

func TestRateLimiterStartsFull(t *testing.T) {
	rl := NewRateLimiter(3, time.Minute)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 3; i++ {
		if err := rl.Wait(ctx); err != nil {
			t.Fatalf("Wait %d: %v", i, err)
		}
	}
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Errorf("first %d waits took %v, want immediate", 3, elapsed)
	}
}

func TestRateLimiterBlocksWhenDrained(t *testing.T) {
	rl := NewRateLimiter(1, time.Hour)
	if err := rl.Wait(context.Background()); err != nil {
		t.Fatalf("first Wait: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := rl.Wait(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("drained Wait = %v, want deadline exceeded", err)
	}
}

func TestRateLimiterRefills(t *testing.T) {
	rl := NewRateLimiter(1, 30*time.Millisecond)
	ctx := context.Background()

	if err := rl.Wait(ctx); err != nil {
		t.Fatalf("first Wait: %v", err)
	}

	waitCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := rl.Wait(waitCtx); err != nil {
		t.Fatalf("Wait after refill window: %v", err)
	}
}

func TestDoGet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("User-Agent"); got != DefaultUserAgent {
			t.Errorf("User-Agent = %q", got)
		}
		if got := r.Header.Get("X-Test"); got != "custom" {
			t.Errorf("X-Test = %q, want custom header forwarded", got)
		}
		io.WriteString(w, `{"ok":true}`)
	}))
	defer srv.Close()

	data, status, err := DoGet(context.Background(), srv.URL, map[string]string{"X-Test": "custom"})
	if err != nil {
		t.Fatalf("DoGet: %v", err)
	}
	if status != http.StatusOK {
		t.Errorf("status = %d", status)
	}
	if string(data) != `{"ok":true}` {
		t.Errorf("body = %q", data)
	}
}

func TestDoGetErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exhausted for key", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, status, err := DoGet(context.Background(), srv.URL, nil)
	if status != http.StatusTooManyRequests {
		t.Errorf("status = %d", status)
	}
	var httpErr *ErrHTTP
	if !errors.As(err, &httpErr) {
		t.Fatalf("err = %T, want *ErrHTTP", err)
	}
	if httpErr.StatusCode != http.StatusTooManyRequests {
		t.Errorf("StatusCode = %d", httpErr.StatusCode)
	}
	if !strings.Contains(httpErr.Body, "quota exhausted") {
		t.Errorf("Body = %q, want the response text captured", httpErr.Body)
	}
}

func TestDoGetTruncatesErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		io.WriteString(w, strings.Repeat("x", 4096))
	}))
	defer srv.Close()

	_, _, err := DoGet(context.Background(), srv.URL, nil)
	var httpErr *ErrHTTP
	if !errors.As(err, &httpErr) {
		t.Fatalf("err = %T, want *ErrHTTP", err)
	}
	if len(httpErr.Body) != 1024 {
		t.Errorf("error body length = %d, want capped at 1024", len(httpErr.Body))
	}
}

func TestDoGetCancelledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(time.Second)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, _, err := DoGet(ctx, srv.URL, nil); err == nil {
		t.Fatal("DoGet with cancelled context succeeded")
	}
}
