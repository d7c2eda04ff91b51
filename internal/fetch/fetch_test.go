package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

func testClient(primary, fallback *http.Client) *Client {
	if primary == nil {
		primary = http.DefaultClient
	}
	if fallback == nil {
		fallback = http.DefaultClient
	}
	return &Client{Primary: primary, Fallback: fallback, DisableDelay: true}
}

func TestFetch_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") == "" {
			t.Error("expected a user agent header")
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte("<html><body>hello</body></html>"))
	}))
	defer srv.Close()

	c := testClient(nil, nil)
	body, err := c.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(body, "hello") {
		t.Fatalf("unexpected body: %q", body)
	}
}

func TestFetch_Forbidden(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	c := testClient(nil, nil)
	_, err := c.Fetch(context.Background(), srv.URL)
	var restricted *AccessRestrictedError
	if !errors.As(err, &restricted) {
		t.Fatalf("expected AccessRestrictedError, got %v", err)
	}
	if !strings.Contains(restricted.Error(), srv.URL) {
		t.Fatalf("error must embed the url: %v", restricted)
	}
	if calls != 1 {
		t.Fatalf("403 must not be retried, got %d calls", calls)
	}
}

func TestFetch_NonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := testClient(nil, nil)
	_, err := c.Fetch(context.Background(), srv.URL)
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if se.Status != 404 {
		t.Fatalf("expected status 404, got %d", se.Status)
	}
}

// failingTransport simulates a dead primary transport so the fallback path
// can be observed.
type failingTransport struct{}

func (failingTransport) RoundTrip(*http.Request) (*http.Response, error) {
	return nil, errors.New("connection reset")
}

func TestFetch_FallbackAfterTransportError(t *testing.T) {
	var fallbackCalls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fallbackCalls++
		_, _ = w.Write([]byte("<html>via fallback</html>"))
	}))
	defer srv.Close()

	c := testClient(&http.Client{Transport: failingTransport{}}, nil)
	body, err := c.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("expected fallback success, got %v", err)
	}
	if fallbackCalls != 1 {
		t.Fatalf("expected exactly one fallback call, got %d", fallbackCalls)
	}
	if !strings.Contains(body, "via fallback") {
		t.Fatalf("unexpected body: %q", body)
	}
}

func TestFetch_BothTransportsFail(t *testing.T) {
	c := testClient(
		&http.Client{Transport: failingTransport{}},
		&http.Client{Transport: failingTransport{}},
	)
	_, err := c.Fetch(context.Background(), "http://unreachable.invalid/")
	var te *TransportError
	if !errors.As(err, &te) {
		t.Fatalf("expected TransportError, got %v", err)
	}
}

func TestHeaderProfile_ReferenceHostsAreStable(t *testing.T) {
	for i := 0; i < 10; i++ {
		h := headerProfile("en.wikipedia.org")
		if got := h.Get("User-Agent"); got != compliantAgent {
			t.Fatalf("reference hosts must use the compliant agent, got %q", got)
		}
	}
}

func TestHeaderProfile_BrowserAgentsRotate(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		seen[headerProfile("example.com").Get("User-Agent")] = true
	}
	if len(seen) < 2 {
		t.Fatalf("expected rotation across agents, saw %d", len(seen))
	}
	for ua := range seen {
		if ua == compliantAgent {
			t.Fatalf("compliant agent must not rotate into generic traffic")
		}
	}
}

func TestRewriteReferenceURL(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"https://en.wikipedia.org/wiki/Paris", "https://en.wikipedia.org/api/rest_v1/page/html/Paris"},
		{"https://en.wikipedia.org/wiki/G%C3%B6del", "https://en.wikipedia.org/api/rest_v1/page/html/G%C3%B6del"},
		// Namespace and nested paths stay untouched.
		{"https://en.wikipedia.org/wiki/Special:Random", "https://en.wikipedia.org/wiki/Special:Random"},
		{"https://en.wikipedia.org/w/index.php?title=Paris", "https://en.wikipedia.org/w/index.php?title=Paris"},
		// Non-reference hosts stay untouched.
		{"https://example.com/wiki/Paris", "https://example.com/wiki/Paris"},
	}
	for _, tc := range cases {
		u, err := url.Parse(tc.in)
		if err != nil {
			t.Fatalf("parse %q: %v", tc.in, err)
		}
		if got := rewriteReferenceURL(u); got != tc.want {
			t.Fatalf("rewrite(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
