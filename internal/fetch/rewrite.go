package fetch

import (
	"net/url"
	"strings"
)

// rewriteReferenceURL maps an article-path URL on a reference host to that
// site's structured content API, which serves the article body without the
// surrounding chrome. Only plain /wiki/<title> paths qualify; anything
// with extra segments (files, special pages) is fetched as-is.
func rewriteReferenceURL(u *url.URL) string {
	if !hostMatches(u.Hostname(), referenceHosts) {
		return u.String()
	}
	title, ok := strings.CutPrefix(u.EscapedPath(), "/wiki/")
	if !ok || title == "" || strings.Contains(title, "/") || strings.Contains(title, ":") {
		return u.String()
	}
	api := *u
	api.Path = ""
	api.RawPath = ""
	api.Opaque = ""
	api.RawQuery = ""
	api.Fragment = ""
	return api.String() + "/api/rest_v1/page/html/" + title
}
