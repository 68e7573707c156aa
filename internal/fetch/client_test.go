package fetch

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/KaramelBytes/bpsloom-cli/internal/fetch/fetchtest"
)

func fastConfig() Config {
	return Config{UserAgent: "test-agent", Timeout: 2 * time.Second, MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}
}

func TestGet_RetriesOn503ThenSucceeds(t *testing.T) {
	var calls int32
	srv := fetchtest.New(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") != "test-agent" {
			t.Errorf("user agent = %q", r.Header.Get("User-Agent"))
		}
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/vnd.ms-excel")
		_, _ = w.Write([]byte("payload"))
	}))
	res, err := New(fastConfig(), nil).Get(context.Background(), srv.URL+"/file.xls")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(res.Data) != "payload" || res.ContentType != "application/vnd.ms-excel" {
		t.Fatalf("unexpected resource: %+v", res)
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
}

func TestGet_NoRetryOn404(t *testing.T) {
	var calls int32
	srv := fetchtest.New(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.NotFound(w, r)
	}))
	_, err := New(fastConfig(), nil).Get(context.Background(), srv.URL+"/missing.xls")
	var se *StatusError
	if !errors.As(err, &se) || se.StatusCode != http.StatusNotFound {
		t.Fatalf("err = %v, want StatusError 404", err)
	}
	if se.Temporary() {
		t.Error("404 should not be temporary")
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}

func TestGet_GivesUpAfterMaxAttempts(t *testing.T) {
	var calls int32
	srv := fetchtest.New(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Header().Set("Retry-After", "0")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	_, err := New(fastConfig(), nil).Get(context.Background(), srv.URL)
	var se *StatusError
	if !errors.As(err, &se) || se.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("err = %v", err)
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
}

func TestGet_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := New(fastConfig(), nil).Get(ctx, "http://127.0.0.1:1/x"); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestProbeSize(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/head", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "974848")
		if r.Method == http.MethodGet {
			_, _ = w.Write(make([]byte, 974848))
		}
	})
	mux.HandleFunc("/range", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if r.Header.Get("Range") != "bytes=0-0" {
			t.Errorf("range header = %q", r.Header.Get("Range"))
		}
		w.Header().Set("Content-Range", "bytes 0-0/1258291")
		w.WriteHeader(http.StatusPartialContent)
		_, _ = w.Write([]byte{0})
	})
	srv := fetchtest.New(t, mux)
	c := New(fastConfig(), nil)
	for path, want := range map[string]int64{"/head": 974848, "/range": 1258291} {
		got, err := c.ProbeSize(context.Background(), srv.URL+path)
		if err != nil {
			t.Fatalf("%s: %v", path, err)
		}
		if got != want {
			t.Errorf("%s: size = %d, want %d", path, got, want)
		}
	}
}

func TestContentRangeTotal(t *testing.T) {
	if n, ok := contentRangeTotal("bytes 0-0/12345"); !ok || n != 12345 {
		t.Fatalf("got %d %v", n, ok)
	}
	if _, ok := contentRangeTotal("bytes 0-0/*"); ok {
		t.Fatal("unknown total should not parse")
	}
}

func TestCheckRobots(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte(strings.Repeat("Disallow: /private\n", 15)))
	})
	srv := fetchtest.New(t, mux)
	reps := New(fastConfig(), nil).CheckRobots(context.Background(), []string{srv.URL + "/robots.txt", srv.URL + "/none.txt"})
	if len(reps) != 2 {
		t.Fatalf("reports = %d", len(reps))
	}
	if reps[0].Err != nil || reps[0].GetStatus != 200 || len(reps[0].Preview) != 10 {
		t.Fatalf("robots report = %+v", reps[0])
	}
	if reps[1].HeadStatus != http.StatusNotFound || len(reps[1].Preview) != 0 {
		t.Fatalf("missing robots report = %+v", reps[1])
	}
}

func TestParseRetryAfterSeconds(t *testing.T) {
	if s, err := parseRetryAfterSeconds("7"); err != nil || s != 7 {
		t.Fatalf("got %d %v", s, err)
	}
	if _, err := parseRetryAfterSeconds("soon"); err == nil {
		t.Fatal("expected error")
	}
}
