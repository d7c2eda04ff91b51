package classify

import (
	"fmt"
	"net/url"
	"strings"
)

// Kind selects the extraction strategy for a URL.
type Kind int

const (
	// KindGeneric routes through the HTML fetch + markdown path.
	KindGeneric Kind = iota
	// KindPDF routes through the metadata-only HEAD path.
	KindPDF
	// KindYouTube routes through the transcript extractor.
	KindYouTube
)

func (k Kind) String() string {
	switch k {
	case KindPDF:
		return "pdf"
	case KindYouTube:
		return "youtube"
	default:
		return "generic"
	}
}

// youtubeHosts is the domain allow-list for the transcript path. Matching
// includes subdomains (www., m., music.).
var youtubeHosts = []string{"youtube.com", "youtu.be"}

// Classify decides which extraction strategy applies to rawURL. A URL with
// a missing scheme or host is rejected here so that no branch of the
// pipeline ever attempts a network call for it.
func Classify(rawURL string) (Kind, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return KindGeneric, fmt.Errorf("parse url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return KindGeneric, fmt.Errorf("url %q is missing a scheme or host", rawURL)
	}
	if strings.HasSuffix(strings.ToLower(u.Path), ".pdf") {
		return KindPDF, nil
	}
	host := strings.ToLower(u.Hostname())
	for _, d := range youtubeHosts {
		if host == d || strings.HasSuffix(host, "."+d) {
			return KindYouTube, nil
		}
	}
	return KindGeneric, nil
}
