// Package normalize strips boilerplate from fetched HTML and converts the
// remaining content to Markdown, the canonical format handed to the
// prompt/LLM layer.
package normalize

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/PuerkitoBio/goquery"
)

// structuralSelector lists tags that never carry article content.
const structuralSelector = "nav, header, footer, form, button, input, script, label, style, select, textarea, option, meta, canvas"

// boilerplatePattern matches class/id values of navigation, ads, social
// widgets, tracking pixels, consent banners, modals, carousels and loading
// placeholders. Substring matching is intentional: real-world class names
// compose these keywords ("main-navigation", "cookie-banner__inner").
var boilerplatePattern = regexp.MustCompile(`(?i)nav|menu|navbar|sidebar|drawer|breadcrumb|side-nav|sidenav|header|footer|bottom-bar|top-bar|ad-|ads-|advertisement|banner|promo|sponsored|ads|social|share|tweet|facebook|linkedin|instagram|pinterest|comment|disqus|discuss|reaction|rating|review-form|popup|modal|overlay|dialog|toast|alert|notification|tracking|analytics|pixel|beacon|tag-manager|disclaimer|newsletter|subscribe|signup|mailing-list|related|suggested|recommended|similar|more-like-this|search|login|register|sign-in|cart|checkout|auth|cookie|gdpr|consent|privacy|terms|copyright|hidden|display-none|invisible|spacer|gap|background|decoration|ornament|pattern|gradient|carousel|slider|lightbox|tooltip|dropdown|skeleton|placeholder|loading|shimmer|spinner`)

var blankRuns = regexp.MustCompile(`\n{3,}`)

// mdConverter runs with escaping disabled so that feeding already-converted
// Markdown back through Normalize leaves it unchanged instead of sprouting
// backslashes before "#", "![" and list markers.
var mdConverter = converter.NewConverter(
	converter.WithPlugins(
		base.NewBasePlugin(),
		commonmark.NewCommonmarkPlugin(),
	),
	converter.WithEscapeMode(converter.EscapeModeDisabled),
)

// Normalize converts raw HTML into clean Markdown. It is deterministic,
// performs no network access, and always returns a string; pages with no
// extractable content yield "".
func Normalize(rawHTML, baseURL string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return ""
	}
	root := contentRoot(doc)

	root.Find(structuralSelector).Remove()
	root.Find(`[aria-hidden="true"]`).Remove()
	root.Find("[class],[id]").Each(func(_ int, s *goquery.Selection) {
		if v, ok := s.Attr("class"); ok && boilerplatePattern.MatchString(v) {
			s.Remove()
			return
		}
		if v, ok := s.Attr("id"); ok && boilerplatePattern.MatchString(v) {
			s.Remove()
		}
	})

	// Flatten figure/figcaption pairs into a single annotated image.
	root.Find("figure").Each(func(_ int, fig *goquery.Selection) {
		img := fig.Find("img").First()
		if img.Length() == 0 {
			return
		}
		if caption := strings.TrimSpace(fig.Find("figcaption").First().Text()); caption != "" {
			img.SetAttr("alt", caption)
		}
		fig.ReplaceWithSelection(img)
	})

	// Unlabeled images add nothing for a text-only consumer.
	root.Find("img").Each(func(_ int, s *goquery.Selection) {
		if alt, ok := s.Attr("alt"); !ok || strings.TrimSpace(alt) == "" {
			s.Remove()
		}
	})

	// Relative links are meaningless outside the page context.
	if base, err := url.Parse(baseURL); err == nil && base.IsAbs() {
		absolutize(root, base, "img", "src")
		absolutize(root, base, "img", "data-src")
		absolutize(root, base, "a", "href")
	}

	// The downstream consumer wants prose, not link or emphasis markup.
	unwrap(root, "a")
	unwrap(root, "em, strong, i, b")

	fragment, err := goquery.OuterHtml(root)
	if err != nil {
		return ""
	}
	md, err := mdConverter.ConvertString(fragment)
	if err != nil {
		return ""
	}
	md = blankRuns.ReplaceAllString(md, "\n\n")
	return strings.TrimSpace(md)
}

// contentRoot picks the most specific content container available.
func contentRoot(doc *goquery.Document) *goquery.Selection {
	for _, tag := range []string{"main", "article", "body"} {
		if s := doc.Find(tag).First(); s.Length() > 0 {
			return s
		}
	}
	return doc.Selection
}

func absolutize(root *goquery.Selection, base *url.URL, tag, attr string) {
	root.Find(tag + "[" + attr + "]").Each(func(_ int, s *goquery.Selection) {
		v, _ := s.Attr(attr)
		ref, err := url.Parse(strings.TrimSpace(v))
		if err != nil {
			return
		}
		s.SetAttr(attr, base.ResolveReference(ref).String())
	})
}

// unwrap replaces each matched element by its children; empty elements are
// dropped outright.
func unwrap(root *goquery.Selection, selector string) {
	root.Find(selector).Each(func(_ int, s *goquery.Selection) {
		if c := s.Contents(); c.Length() > 0 {
			c.Unwrap()
		} else {
			s.Remove()
		}
	})
}
