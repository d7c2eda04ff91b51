// Package transcript retrieves YouTube captions through two extraction
// strategies: the caption-track list embedded in the watch page, then the
// timedtext endpoint as a bounded-retry fallback.
package transcript

import (
	"bytes"
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog/log"
)

// Source tags how a transcript was obtained.
type Source string

const (
	SourceManual    Source = "manual"
	SourceAutomatic Source = "automatic"
	SourceFallback  Source = "fallback"
)

// Result is a successfully extracted transcript.
type Result struct {
	Text    string
	VideoID string
	URL     string
	Source  Source
}

// Unavailable is the terminal failure of both strategies. It always
// carries a human-readable reason; the extractor never returns any other
// error type.
type Unavailable struct {
	Reason  string
	VideoID string
	URL     string
}

func (e *Unavailable) Error() string { return e.Reason }

// languagePreference is checked in order; manually authored tracks win
// over auto-generated ones in the same language.
var languagePreference = []string{"en", "en-US", "en-GB", "en-CA", "en-AU"}

// Extractor downloads and parses captions. The base URLs default to the
// public youtube.com endpoints and are overridable for tests.
type Extractor struct {
	HTTPClient    *http.Client
	WatchBase     string
	TimedTextBase string
	// FallbackAttempts bounds strategy-B retries; zero means 3.
	FallbackAttempts int
	// Sleep is swapped out in tests; nil means time.Sleep.
	Sleep func(time.Duration)
}

func (e *Extractor) client() *http.Client {
	if e.HTTPClient != nil {
		return e.HTTPClient
	}
	return &http.Client{Timeout: 30 * time.Second}
}

func (e *Extractor) watchBase() string {
	if e.WatchBase != "" {
		return e.WatchBase
	}
	return "https://www.youtube.com"
}

func (e *Extractor) timedTextBase() string {
	if e.TimedTextBase != "" {
		return e.TimedTextBase
	}
	return "https://www.youtube.com"
}

func (e *Extractor) sleep(d time.Duration) {
	if e.Sleep != nil {
		e.Sleep(d)
		return
	}
	time.Sleep(d)
}

// Fetch resolves the video id and runs the two strategies in sequence.
// When both fail, the primary strategy's error is surfaced because it is
// usually the more diagnostic one.
func (e *Extractor) Fetch(ctx context.Context, rawURL string) (*Result, error) {
	id := ExtractVideoID(rawURL)
	if id == "" {
		return nil, &Unavailable{Reason: "could not extract video id", URL: rawURL}
	}
	res, primaryErr := e.fromCaptionTracks(ctx, id, rawURL)
	if primaryErr == nil {
		return res, nil
	}
	log.Debug().Str("video_id", id).Str("reason", primaryErr.Reason).Msg("caption tracks failed, trying timedtext fallback")
	if res, err := e.fromTimedText(ctx, id, rawURL); err == nil {
		return res, nil
	}
	return nil, primaryErr
}

type captionTrack struct {
	BaseURL      string `json:"baseUrl"`
	LanguageCode string `json:"languageCode"`
	Kind         string `json:"kind"` // "asr" marks auto-generated tracks
}

// fromCaptionTracks is the primary strategy: read the caption track list
// out of the watch page, pick the best English track, and download it in
// the preferred wire format.
func (e *Extractor) fromCaptionTracks(ctx context.Context, id, rawURL string) (*Result, *Unavailable) {
	page, err := e.get(ctx, e.watchBase()+"/watch?v="+url.QueryEscape(id))
	if err != nil {
		return nil, &Unavailable{Reason: fmt.Sprintf("caption track query failed: %v", err), VideoID: id, URL: rawURL}
	}
	tracks, err := parseCaptionTracks(page)
	if err != nil {
		return nil, &Unavailable{Reason: fmt.Sprintf("caption track query failed: %v", err), VideoID: id, URL: rawURL}
	}
	track, source := pickTrack(tracks)
	if track == nil {
		return nil, &Unavailable{Reason: "no English subtitles or captions available", VideoID: id, URL: rawURL}
	}
	text := e.downloadTrack(ctx, track.BaseURL)
	if text == "" {
		return nil, &Unavailable{Reason: "transcript extracted but empty", VideoID: id, URL: rawURL}
	}
	return &Result{Text: text, VideoID: id, URL: rawURL, Source: source}, nil
}

// parseCaptionTracks locates the "captionTracks" array inside the watch
// page's embedded player response and decodes just that value.
func parseCaptionTracks(page []byte) ([]captionTrack, error) {
	const marker = `"captionTracks":`
	i := bytes.Index(page, []byte(marker))
	if i < 0 {
		return nil, nil // player response present but no caption section
	}
	dec := json.NewDecoder(bytes.NewReader(page[i+len(marker):]))
	var tracks []captionTrack
	if err := dec.Decode(&tracks); err != nil {
		return nil, fmt.Errorf("decode caption tracks: %w", err)
	}
	return tracks, nil
}

// pickTrack applies the language preference, manual before auto-generated.
func pickTrack(tracks []captionTrack) (*captionTrack, Source) {
	for _, lang := range languagePreference {
		for i := range tracks {
			if tracks[i].LanguageCode == lang && tracks[i].Kind != "asr" {
				return &tracks[i], SourceManual
			}
		}
	}
	for _, lang := range languagePreference {
		for i := range tracks {
			if tracks[i].LanguageCode == lang && tracks[i].Kind == "asr" {
				return &tracks[i], SourceAutomatic
			}
		}
	}
	return nil, ""
}

// downloadTrack tries the track in json3, then vtt, then the bare srv1
// form, returning the first non-empty parse.
func (e *Extractor) downloadTrack(ctx context.Context, trackURL string) string {
	if body, err := e.get(ctx, withFormat(trackURL, "json3")); err == nil {
		if text, err := parseJSON3(body); err == nil && text != "" {
			return text
		}
	}
	if body, err := e.get(ctx, withFormat(trackURL, "vtt")); err == nil {
		if text := parseVTT(body); text != "" {
			return text
		}
	}
	if body, err := e.get(ctx, trackURL); err == nil {
		if text, err := parseSRV1(body); err == nil && text != "" {
			return text
		}
	}
	return ""
}

func withFormat(trackURL, format string) string {
	u, err := url.Parse(trackURL)
	if err != nil {
		return trackURL
	}
	q := u.Query()
	q.Set("fmt", format)
	u.RawQuery = q.Encode()
	return u.String()
}

// fromTimedText is the fallback strategy: up to three attempts against the
// timedtext endpoint with increasing backoff. Within each attempt the
// default resolution is tried first, then explicit English variants, then
// whatever English-prefixed language the track list advertises.
func (e *Extractor) fromTimedText(ctx context.Context, id, rawURL string) (*Result, error) {
	attempts := e.FallbackAttempts
	if attempts <= 0 {
		attempts = 3
	}
	var lastErr error = fmt.Errorf("no timedtext transcript")
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			e.sleep(time.Second + 500*time.Millisecond*time.Duration(attempt))
		}
		for _, lang := range []string{"", "en", "en-US", "en-GB"} {
			text, err := e.timedText(ctx, id, lang)
			if err != nil {
				lastErr = err
				continue
			}
			if text != "" {
				return &Result{Text: text, VideoID: id, URL: rawURL, Source: SourceFallback}, nil
			}
		}
		langs, err := e.timedTextLanguages(ctx, id)
		if err != nil {
			lastErr = err
			continue
		}
		for _, lang := range langs {
			if len(lang) < 2 || lang[:2] != "en" {
				continue
			}
			text, err := e.timedText(ctx, id, lang)
			if err != nil {
				lastErr = err
				continue
			}
			if text != "" {
				return &Result{Text: text, VideoID: id, URL: rawURL, Source: SourceFallback}, nil
			}
		}
	}
	return nil, lastErr
}

func (e *Extractor) timedText(ctx context.Context, id, lang string) (string, error) {
	q := url.Values{"v": {id}}
	if lang != "" {
		q.Set("lang", lang)
	}
	body, err := e.get(ctx, e.timedTextBase()+"/api/timedtext?"+q.Encode())
	if err != nil {
		return "", err
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return "", nil
	}
	return parseSRV1(body)
}

func (e *Extractor) timedTextLanguages(ctx context.Context, id string) ([]string, error) {
	q := url.Values{"type": {"list"}, "v": {id}}
	body, err := e.get(ctx, e.timedTextBase()+"/api/timedtext?"+q.Encode())
	if err != nil {
		return nil, err
	}
	var list struct {
		XMLName xml.Name `xml:"transcript_list"`
		Tracks  []struct {
			LangCode string `xml:"lang_code,attr"`
		} `xml:"track"`
	}
	if err := xml.Unmarshal(body, &list); err != nil {
		return nil, fmt.Errorf("timedtext list: %w", err)
	}
	langs := make([]string, 0, len(list.Tracks))
	for _, t := range list.Tracks {
		langs = append(langs, t.LangCode)
	}
	return langs, nil
}

func (e *Extractor) get(ctx context.Context, target string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	resp, err := e.client().Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d for %s", resp.StatusCode, target)
	}
	return io.ReadAll(resp.Body)
}
