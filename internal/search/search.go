package search

import (
	"context"
)

// Result represents a single ranked hit from any provider.
type Result struct {
	Title    string `json:"title"`
	URL      string `json:"url"`
	Snippet  string `json:"snippet"`
	Position int    `json:"position"`
	Source   string `json:"source,omitempty"` // provider name for observability
}

// Provider is the minimal interface the pipeline consumes. It returns
// results in rank order; the pipeline only reads URL values by position.
type Provider interface {
	Search(ctx context.Context, query string, limit int) ([]Result, error)
	Name() string
}
