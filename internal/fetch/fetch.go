package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/net/html/charset"
)

// AccessRestrictedError reports a 403; these are never retried because the
// site has made an explicit decision about automated clients.
type AccessRestrictedError struct {
	URL string
}

func (e *AccessRestrictedError) Error() string {
	return fmt.Sprintf("access restricted (403), the site may be blocking automated requests, visit directly: %s", e.URL)
}

// StatusError reports a non-200, non-403 HTTP response.
type StatusError struct {
	URL    string
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fetch failed, status=%d: %s", e.Status, e.URL)
}

// TransportError wraps a network-level failure after the transports for a
// request have been exhausted.
type TransportError struct {
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("could not reach %s: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Client retrieves raw HTML. The primary transport is a pooled keep-alive
// client; the fallback is a fresh single-shot client with a generous
// response-header limit, used when the primary fails or when the host is
// on the social allow-list.
type Client struct {
	// Primary and Fallback override the built-in transports; tests use
	// them to point at stub servers.
	Primary  *http.Client
	Fallback *http.Client
	// DisableDelay skips the randomized pre-request pause.
	DisableDelay bool

	once           sync.Once
	primaryClient  *http.Client
	fallbackClient *http.Client
}

const (
	totalTimeout   = 30 * time.Second
	connectTimeout = 10 * time.Second
	redirectCap    = 10
)

func (c *Client) init() {
	c.once.Do(func() {
		c.primaryClient = c.Primary
		if c.primaryClient == nil {
			c.primaryClient = &http.Client{
				Timeout: totalTimeout,
				Transport: &http.Transport{
					MaxIdleConns:           100,
					MaxIdleConnsPerHost:    30,
					MaxConnsPerHost:        30,
					IdleConnTimeout:        300 * time.Second,
					MaxResponseHeaderBytes: 64 << 10,
					DialContext: (&net.Dialer{
						Timeout:   connectTimeout,
						KeepAlive: 30 * time.Second,
					}).DialContext,
					TLSHandshakeTimeout: connectTimeout,
				},
				CheckRedirect: limitRedirects,
			}
		}
		c.fallbackClient = c.Fallback
		if c.fallbackClient == nil {
			c.fallbackClient = &http.Client{
				Timeout: totalTimeout,
				Transport: &http.Transport{
					DisableKeepAlives:      true,
					MaxResponseHeaderBytes: 1 << 20,
					DialContext: (&net.Dialer{
						Timeout: connectTimeout,
					}).DialContext,
				},
				CheckRedirect: limitRedirects,
			}
		}
	})
}

func limitRedirects(req *http.Request, via []*http.Request) error {
	if len(via) >= redirectCap {
		return errors.New("too many redirects")
	}
	return nil
}

// Fetch retrieves the decoded HTML body for rawURL. Every failure mode is
// returned as one of the typed errors above so the pipeline can render it
// for the user instead of surfacing a raw transport fault.
func (c *Client) Fetch(ctx context.Context, rawURL string) (string, error) {
	c.init()
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", &TransportError{URL: rawURL, Err: errors.New("invalid url")}
	}
	target := rewriteReferenceURL(u)
	headers := headerProfile(u.Hostname())

	if hostMatches(u.Hostname(), socialHosts) {
		log.Debug().Str("url", rawURL).Msg("social host, skipping primary transport")
		return c.do(ctx, c.fallbackClient, target, headers)
	}

	c.pause(ctx)
	body, err := c.do(ctx, c.primaryClient, target, headers)
	if err == nil {
		return body, nil
	}
	var te *TransportError
	if !errors.As(err, &te) {
		// HTTP-level outcome (403, 404, ...): final, no second transport.
		return "", err
	}
	if isOversizedHeaderErr(te.Err) {
		log.Debug().Str("url", target).Msg("oversized response headers, retrying via fallback")
	} else {
		log.Debug().Err(te.Err).Str("url", target).Msg("primary transport failed, retrying via fallback")
	}
	return c.do(ctx, c.fallbackClient, target, headers)
}

// do issues a single GET and applies the shared status-code policy.
func (c *Client) do(ctx context.Context, hc *http.Client, target string, headers http.Header) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", &TransportError{URL: target, Err: err}
	}
	for k, vs := range headers {
		for _, v := range vs {
			req.Header.Set(k, v)
		}
	}
	resp, err := hc.Do(req)
	if err != nil {
		return "", &TransportError{URL: target, Err: err}
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		r, err := charset.NewReader(resp.Body, resp.Header.Get("Content-Type"))
		if err != nil {
			r = resp.Body
		}
		b, err := io.ReadAll(r)
		if err != nil {
			return "", &TransportError{URL: target, Err: fmt.Errorf("read body: %w", err)}
		}
		return string(b), nil
	case http.StatusForbidden:
		return "", &AccessRestrictedError{URL: target}
	default:
		return "", &StatusError{URL: target, Status: resp.StatusCode}
	}
}

// pause inserts the randomized 0.5-2.0s delay before a primary request to
// keep request rates under per-host limits.
func (c *Client) pause(ctx context.Context) {
	if c.DisableDelay {
		return
	}
	d := 500*time.Millisecond + time.Duration(rand.Int63n(int64(1500*time.Millisecond)))
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}

// isOversizedHeaderErr matches the transport error emitted when a server
// sends more response-header bytes than the client allows.
func isOversizedHeaderErr(err error) bool {
	return err != nil && strings.Contains(err.Error(), "response headers exceeded")
}
