package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Serper implements Provider against the Serper.dev Google search API.
type Serper struct {
	APIKey     string
	BaseURL    string // defaults to the public endpoint
	HTTPClient *http.Client
}

const serperEndpoint = "https://google.serper.dev/search"

func (s *Serper) Name() string { return "serper" }

func (s *Serper) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	if s.APIKey == "" {
		return nil, fmt.Errorf("missing serper api key")
	}
	if limit <= 0 {
		limit = 10
	}
	endpoint := s.BaseURL
	if endpoint == "" {
		endpoint = serperEndpoint
	}
	payload, err := json.Marshal(map[string]string{"q": query})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-API-KEY", s.APIKey)
	req.Header.Set("Content-Type", "application/json")

	hc := s.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	resp, err := hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("serper status: %d", resp.StatusCode)
	}
	var sr serperResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, err
	}
	out := make([]Result, 0, len(sr.Organic))
	for _, r := range sr.Organic {
		if r.Link == "" {
			continue
		}
		out = append(out, Result{
			Title:    strings.TrimSpace(r.Title),
			URL:      strings.TrimSpace(r.Link),
			Snippet:  strings.TrimSpace(r.Snippet),
			Position: r.Position,
			Source:   s.Name(),
		})
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

type serperResponse struct {
	Organic []struct {
		Title    string `json:"title"`
		Link     string `json:"link"`
		Snippet  string `json:"snippet"`
		Position int    `json:"position"`
	} `json:"organic"`
}
