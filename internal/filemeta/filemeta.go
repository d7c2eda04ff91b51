// Package filemeta resolves size and filename metadata for PDF and other
// binary URLs without downloading their bodies.
package filemeta

import (
	"context"
	"fmt"
	"math"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Info describes a remote file.
type Info struct {
	FileName string
	URL      string
	SizeMB   float64
}

// Resolver issues metadata-only HEAD requests. A non-2xx response is a
// hard failure: these requests are cheap and their failures (usually 404)
// are terminal, so there is no fallback path.
type Resolver struct {
	HTTPClient *http.Client
}

func (r *Resolver) client() *http.Client {
	if r.HTTPClient != nil {
		return r.HTTPClient
	}
	return &http.Client{Timeout: 15 * time.Second}
}

// Resolve populates Info from the Content-Length and Content-Disposition
// headers, defaulting to size 0 and the URL's last path segment.
func (r *Resolver) Resolve(ctx context.Context, rawURL string) (Info, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, rawURL, nil)
	if err != nil {
		return Info{}, fmt.Errorf("head request: %w", err)
	}
	resp, err := r.client().Do(req)
	if err != nil {
		return Info{}, fmt.Errorf("head %s: %w", rawURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Info{}, fmt.Errorf("head %s: status %d", rawURL, resp.StatusCode)
	}

	var sizeBytes int64
	if v := resp.Header.Get("Content-Length"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			sizeBytes = n
		}
	}
	return Info{
		FileName: fileName(resp.Header.Get("Content-Disposition"), rawURL),
		URL:      rawURL,
		SizeMB:   math.Round(float64(sizeBytes)/(1<<20)*100) / 100,
	}, nil
}

func fileName(disposition, rawURL string) string {
	if disposition != "" {
		if _, params, err := mime.ParseMediaType(disposition); err == nil {
			if name := strings.TrimSpace(params["filename"]); name != "" {
				return name
			}
		}
	}
	if u, err := url.Parse(rawURL); err == nil {
		if segs := strings.Split(strings.Trim(u.Path, "/"), "/"); len(segs) > 0 && segs[len(segs)-1] != "" {
			return segs[len(segs)-1]
		}
	}
	return rawURL
}
