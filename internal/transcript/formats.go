package transcript

import (
	"bufio"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"html"
	"regexp"
	"strings"
)

var tagPattern = regexp.MustCompile(`<[^>]*>`)
var digitsOnly = regexp.MustCompile(`^\d+$`)

// parseJSON3 concatenates segs[].utf8 across events[].
func parseJSON3(body []byte) (string, error) {
	var doc struct {
		Events []struct {
			Segs []struct {
				UTF8 string `json:"utf8"`
			} `json:"segs"`
		} `json:"events"`
	}
	if err := json.Unmarshal(body, &doc); err != nil {
		return "", fmt.Errorf("json3: %w", err)
	}
	if doc.Events == nil {
		return "", fmt.Errorf("json3: no events field")
	}
	var b strings.Builder
	for _, ev := range doc.Events {
		for _, seg := range ev.Segs {
			b.WriteString(seg.UTF8)
			b.WriteByte(' ')
		}
	}
	return collapse(b.String()), nil
}

// parseVTT drops the WEBVTT header, NOTE blocks, cue numbers and timestamp
// lines, and strips inline tags from what remains.
func parseVTT(body []byte) string {
	if !strings.HasPrefix(strings.TrimSpace(string(body)), "WEBVTT") {
		return ""
	}
	var b strings.Builder
	sc := bufio.NewScanner(strings.NewReader(string(body)))
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		switch {
		case line == "",
			strings.HasPrefix(line, "WEBVTT"),
			strings.HasPrefix(line, "NOTE"),
			strings.HasPrefix(line, "STYLE"),
			strings.Contains(line, "-->"),
			digitsOnly.MatchString(line):
			continue
		}
		b.WriteString(tagPattern.ReplaceAllString(line, ""))
		b.WriteByte(' ')
	}
	return collapse(b.String())
}

// parseSRV1 concatenates the character data of <text> elements.
func parseSRV1(body []byte) (string, error) {
	var doc struct {
		XMLName xml.Name `xml:"transcript"`
		Texts   []struct {
			Value string `xml:",chardata"`
		} `xml:"text"`
	}
	if err := xml.Unmarshal(body, &doc); err != nil {
		return "", fmt.Errorf("srv1: %w", err)
	}
	var b strings.Builder
	for _, t := range doc.Texts {
		// Caption XML frequently double-escapes entities.
		b.WriteString(html.UnescapeString(t.Value))
		b.WriteByte(' ')
	}
	return collapse(b.String()), nil
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
