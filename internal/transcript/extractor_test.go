package transcript

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestExtractVideoID(t *testing.T) {
	cases := []struct {
		url, want string
	}{
		{"https://www.youtube.com/watch?v=abc123", "abc123"},
		{"https://youtu.be/abc123", "abc123"},
		{"https://www.youtube.com/embed/abc123", "abc123"},
		{"https://www.youtube.com/v/abc123", "abc123"},
		{"https://www.youtube.com/watch?v=abc123&t=42s", "abc123"},
		{"https://m.youtube.com/watch?app=m&v=abc123", "abc123"},
		{"https://www.youtube.com/channel/UC123", ""},
		{"https://example.com/watch?v=abc123", ""},
	}
	for _, tc := range cases {
		if got := ExtractVideoID(tc.url); got != tc.want {
			t.Fatalf("ExtractVideoID(%q) = %q, want %q", tc.url, got, tc.want)
		}
	}
}

// countingTransport fails every request while recording how many were made.
type countingTransport struct{ calls atomic.Int64 }

func (c *countingTransport) RoundTrip(*http.Request) (*http.Response, error) {
	c.calls.Add(1)
	return nil, errors.New("no network in this test")
}

func TestFetch_NoVideoID_NoNetwork(t *testing.T) {
	ct := &countingTransport{}
	e := &Extractor{HTTPClient: &http.Client{Transport: ct}, Sleep: func(time.Duration) {}}
	_, err := e.Fetch(context.Background(), "https://youtube.com/channel/UC123")
	var un *Unavailable
	if !errors.As(err, &un) {
		t.Fatalf("expected Unavailable, got %v", err)
	}
	if !strings.Contains(un.Reason, "could not extract video id") {
		t.Fatalf("unexpected reason: %q", un.Reason)
	}
	if n := ct.calls.Load(); n != 0 {
		t.Fatalf("expected zero network calls, got %d", n)
	}
}

// captionServer serves a watch page advertising the given tracks plus the
// caption payloads themselves.
func captionServer(t *testing.T, tracksJSON func(base string) string, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	mux.HandleFunc("/watch", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<html><script>var ytInitialPlayerResponse = {"captions":{"playerCaptionsTracklistRenderer":{"captionTracks":%s}}};</script></html>`, tracksJSON(srv.URL))
	})
	mux.HandleFunc("/caption", handler)
	mux.HandleFunc("/api/timedtext", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	})
	return srv
}

func TestFetch_ManualTrackJSON3(t *testing.T) {
	srv := captionServer(t,
		func(base string) string {
			return fmt.Sprintf(`[{"baseUrl":"%s/caption?lang=en","languageCode":"en","kind":""}]`, base)
		},
		func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Query().Get("fmt") != "json3" {
				http.Error(w, "bad format", http.StatusNotFound)
				return
			}
			_, _ = w.Write([]byte(`{"events":[{"segs":[{"utf8":"a manual transcript"}]}]}`))
		})

	e := &Extractor{WatchBase: srv.URL, TimedTextBase: srv.URL, Sleep: func(time.Duration) {}}
	res, err := e.Fetch(context.Background(), "https://www.youtube.com/watch?v=abc123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Source != SourceManual {
		t.Fatalf("expected manual source, got %s", res.Source)
	}
	if res.Text != "a manual transcript" {
		t.Fatalf("unexpected text: %q", res.Text)
	}
	if res.VideoID != "abc123" {
		t.Fatalf("unexpected video id: %q", res.VideoID)
	}
}

func TestFetch_AutoGeneratedWhenNoManual(t *testing.T) {
	srv := captionServer(t,
		func(base string) string {
			return fmt.Sprintf(`[{"baseUrl":"%s/caption","languageCode":"en","kind":"asr"}]`, base)
		},
		func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"events":[{"segs":[{"utf8":"auto captions"}]}]}`))
		})

	e := &Extractor{WatchBase: srv.URL, TimedTextBase: srv.URL, Sleep: func(time.Duration) {}}
	res, err := e.Fetch(context.Background(), "https://www.youtube.com/watch?v=abc123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Source != SourceAutomatic {
		t.Fatalf("expected automatic source, got %s", res.Source)
	}
}

func TestFetch_VTTWhenJSON3Unavailable(t *testing.T) {
	srv := captionServer(t,
		func(base string) string {
			return fmt.Sprintf(`[{"baseUrl":"%s/caption","languageCode":"en-GB","kind":""}]`, base)
		},
		func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Query().Get("fmt") {
			case "vtt":
				_, _ = w.Write([]byte("WEBVTT\n\n00:00:00.000 --> 00:00:01.000\nfrom vtt\n"))
			default:
				http.Error(w, "bad format", http.StatusNotFound)
			}
		})

	e := &Extractor{WatchBase: srv.URL, TimedTextBase: srv.URL, Sleep: func(time.Duration) {}}
	res, err := e.Fetch(context.Background(), "https://www.youtube.com/watch?v=abc123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Text != "from vtt" {
		t.Fatalf("unexpected text: %q", res.Text)
	}
}

func TestFetch_NoEnglishTracks_SurfacesPrimaryError(t *testing.T) {
	var timedtextCalls atomic.Int64
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()
	mux.HandleFunc("/watch", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>"captionTracks":[{"baseUrl":"x","languageCode":"fr","kind":""}]</html>`))
	})
	mux.HandleFunc("/api/timedtext", func(w http.ResponseWriter, r *http.Request) {
		timedtextCalls.Add(1)
		http.Error(w, "no captions", http.StatusNotFound)
	})

	var slept []time.Duration
	e := &Extractor{
		WatchBase:     srv.URL,
		TimedTextBase: srv.URL,
		Sleep:         func(d time.Duration) { slept = append(slept, d) },
	}
	_, err := e.Fetch(context.Background(), "https://www.youtube.com/watch?v=abc123")
	var un *Unavailable
	if !errors.As(err, &un) {
		t.Fatalf("expected Unavailable, got %v", err)
	}
	// The primary strategy's reason wins even after the fallback exhausts
	// its attempts.
	if un.Reason != "no English subtitles or captions available" {
		t.Fatalf("unexpected reason: %q", un.Reason)
	}
	if timedtextCalls.Load() == 0 {
		t.Fatal("fallback strategy was never attempted")
	}
	if len(slept) != 2 {
		t.Fatalf("expected backoff between 3 attempts (2 sleeps), got %d", len(slept))
	}
	if slept[0] >= slept[1] {
		t.Fatalf("expected increasing backoff, got %v", slept)
	}
}

func TestFetch_EmptyTrack(t *testing.T) {
	srv := captionServer(t,
		func(base string) string {
			return fmt.Sprintf(`[{"baseUrl":"%s/caption","languageCode":"en","kind":""}]`, base)
		},
		func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Query().Get("fmt") != "json3" {
				http.Error(w, "bad format", http.StatusNotFound)
				return
			}
			_, _ = w.Write([]byte(`{"events":[]}`))
		})

	e := &Extractor{WatchBase: srv.URL, TimedTextBase: srv.URL, Sleep: func(time.Duration) {}}
	_, err := e.Fetch(context.Background(), "https://www.youtube.com/watch?v=abc123")
	var un *Unavailable
	if !errors.As(err, &un) {
		t.Fatalf("expected Unavailable, got %v", err)
	}
	if un.Reason != "transcript extracted but empty" {
		t.Fatalf("unexpected reason: %q", un.Reason)
	}
}

func TestFetch_TimedTextFallback(t *testing.T) {
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()
	// Watch page with no caption section at all.
	mux.HandleFunc("/watch", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body>nothing here</body></html>`))
	})
	mux.HandleFunc("/api/timedtext", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("type") == "list" {
			_, _ = w.Write([]byte(`<transcript_list><track lang_code="en"/></transcript_list>`))
			return
		}
		_, _ = w.Write([]byte(`<transcript><text start="0" dur="1">rescued by fallback</text></transcript>`))
	})

	e := &Extractor{WatchBase: srv.URL, TimedTextBase: srv.URL, Sleep: func(time.Duration) {}}
	res, err := e.Fetch(context.Background(), "https://youtu.be/abc123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Source != SourceFallback {
		t.Fatalf("expected fallback source, got %s", res.Source)
	}
	if res.Text != "rescued by fallback" {
		t.Fatalf("unexpected text: %q", res.Text)
	}
}
