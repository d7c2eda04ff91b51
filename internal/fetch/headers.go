package fetch

import (
	"math/rand"
	"net/http"
	"strings"
)

// referenceHosts are encyclopedia-style sites whose usage policy asks
// automated clients to identify themselves with a stable user agent.
// They get the compliant profile and never a rotated browser identity.
var referenceHosts = []string{
	"wikipedia.org",
	"wikimedia.org",
	"wiktionary.org",
}

// socialHosts aggressively block plain HTTP clients or require JavaScript
// rendering; the pooled transport is pointless for them, so requests go
// straight to the fallback transport.
var socialHosts = []string{
	"twitter.com",
	"x.com",
	"facebook.com",
	"instagram.com",
	"reddit.com",
	"linkedin.com",
}

const compliantAgent = "qubecrawl/1.0 (https://github.com/qubelab/qubecrawl; contact@qubelab.dev)"

// browserAgents are realistic desktop identities rotated per request for
// hosts outside the reference allow-list.
var browserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:125.0) Gecko/20100101 Firefox/125.0",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36",
}

func hostMatches(host string, list []string) bool {
	host = strings.ToLower(host)
	for _, d := range list {
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

// headerProfile builds the request headers for a host. Reference hosts get
// the static compliant agent; everything else gets a rotated browser
// identity with matching Accept headers.
func headerProfile(host string) http.Header {
	h := http.Header{}
	if hostMatches(host, referenceHosts) {
		h.Set("User-Agent", compliantAgent)
		h.Set("Accept", "text/html,application/xhtml+xml")
		return h
	}
	h.Set("User-Agent", browserAgents[rand.Intn(len(browserAgents))])
	h.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	h.Set("Accept-Language", "en-US,en;q=0.9")
	h.Set("Referer", "https://www.google.com/")
	return h
}
