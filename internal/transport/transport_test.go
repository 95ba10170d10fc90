package transport

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestHTTPClientReturnsErrorStatusesAsResponses(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Echo-Method", r.Method)
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("missing"))
	}))
	defer srv.Close()

	c := NewHTTPClient(Options{Timeout: 5 * time.Second})
	resp, err := c.Do(context.Background(), &Request{Method: http.MethodGet, URL: srv.URL + "/x"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Status != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.Status)
	}
	if string(resp.Body) != "missing" {
		t.Errorf("body = %q", resp.Body)
	}
	if resp.Header.Get("X-Echo-Method") != http.MethodGet {
		t.Errorf("missing echoed header")
	}
}

func TestHTTPClientSendsBodyAndHeaders(t *testing.T) {
	var gotBody, gotType, gotHost string
	var gotLen int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		gotType = r.Header.Get("Content-Type")
		gotLen = r.ContentLength
		gotHost = r.Host
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewHTTPClient(Options{})
	h := http.Header{}
	h.Set("Content-Type", "text/plain")
	h.Set("Host", "acct.example.test")
	_, err := c.Do(context.Background(), &Request{Method: http.MethodPut, URL: srv.URL, Header: h, Body: []byte("hello")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotBody != "hello" || gotType != "text/plain" || gotLen != 5 {
		t.Errorf("server saw body=%q type=%q len=%d", gotBody, gotType, gotLen)
	}
	if gotHost != "acct.example.test" {
		t.Errorf("host = %q, want override", gotHost)
	}
}

func TestHTTPClientTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := NewHTTPClient(Options{Timeout: time.Second})
	if _, err := c.Do(context.Background(), &Request{Method: http.MethodGet, URL: url}); err == nil {
		t.Fatal("expected connection error")
	}
}

func TestWrapIsApplied(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	called := false
	c := NewHTTPClient(Options{Wrap: func(next http.RoundTripper) http.RoundTripper {
		return roundTripFunc(func(r *http.Request) (*http.Response, error) {
			called = true
			return next.RoundTrip(r)
		})
	}})
	if _, err := c.Do(context.Background(), &Request{Method: http.MethodGet, URL: srv.URL}); err != nil {
		t.Fatal(err)
	}
	if !called {
		t.Fatal("wrapped round tripper was not used")
	}
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }
