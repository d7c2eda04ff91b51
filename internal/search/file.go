package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
)

// FileProvider replays canned results from disk so the pipeline can run
// without a Serper key. Two layouts are accepted: a bare JSON array of
// Result objects, or a captured Serper response body (the "organic"
// envelope), so recorded API fixtures work unmodified.
type FileProvider struct {
	Path string
}

func (f *FileProvider) Name() string { return "file" }

func (f *FileProvider) Search(_ context.Context, query string, limit int) ([]Result, error) {
	if strings.TrimSpace(f.Path) == "" {
		return nil, errors.New("file provider: no path configured")
	}
	b, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, fmt.Errorf("file provider: %w", err)
	}
	all, err := decodeCanned(b)
	if err != nil {
		return nil, fmt.Errorf("file provider: parse %s: %w", f.Path, err)
	}

	terms := strings.Fields(strings.ToLower(query))
	out := make([]Result, 0, len(all))
	for _, r := range all {
		if r.URL == "" || !matchesAll(r, terms) {
			continue
		}
		r.Source = f.Name()
		r.Position = len(out) + 1
		out = append(out, r)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// decodeCanned sniffs the first non-blank byte to tell an envelope from a
// bare array.
func decodeCanned(b []byte) ([]Result, error) {
	if trimmed := bytes.TrimLeft(b, " \t\r\n"); len(trimmed) > 0 && trimmed[0] == '{' {
		var sr serperResponse
		if err := json.Unmarshal(b, &sr); err != nil {
			return nil, err
		}
		out := make([]Result, 0, len(sr.Organic))
		for _, r := range sr.Organic {
			out = append(out, Result{
				Title:    strings.TrimSpace(r.Title),
				URL:      strings.TrimSpace(r.Link),
				Snippet:  strings.TrimSpace(r.Snippet),
				Position: r.Position,
			})
		}
		return out, nil
	}
	var arr []Result
	if err := json.Unmarshal(b, &arr); err != nil {
		return nil, err
	}
	return arr, nil
}

// matchesAll requires every query term to occur in the title or snippet;
// an empty query matches everything.
func matchesAll(r Result, terms []string) bool {
	hay := strings.ToLower(r.Title + " " + r.Snippet)
	for _, t := range terms {
		if !strings.Contains(hay, t) {
			return false
		}
	}
	return true
}
