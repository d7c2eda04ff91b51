// Package pipeline wires URL classification, fetching, normalization, and
// transcript extraction into the two memoized entry points the rest of the
// system calls.
package pipeline

import (
	"context"
	"errors"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/qubelab/qubecrawl/internal/classify"
	"github.com/qubelab/qubecrawl/internal/fetch"
	"github.com/qubelab/qubecrawl/internal/filemeta"
	"github.com/qubelab/qubecrawl/internal/normalize"
	"github.com/qubelab/qubecrawl/internal/search"
	"github.com/qubelab/qubecrawl/internal/transcript"
)

// cacheSize bounds each memo cache; eviction is least-recently-used.
const cacheSize = 20

// SearchKey identifies a search-and-fetch outcome.
type SearchKey struct {
	Query string
	Index int
}

// Pipeline is safe for concurrent use. Concurrent calls for the same key
// coalesce: the second caller waits for the first in-flight computation
// instead of fetching again.
type Pipeline struct {
	provider    search.Provider
	fetcher     *fetch.Client
	transcripts *transcript.Extractor
	files       *filemeta.Resolver

	searchCache *lru.Cache[SearchKey, FetchResult]
	urlCache    *lru.Cache[string, FetchResult]
	resultSets  *lru.Cache[string, []search.Result]
	flight      singleflight.Group
}

// New builds a Pipeline around the given collaborators.
func New(provider search.Provider, fetcher *fetch.Client, transcripts *transcript.Extractor, files *filemeta.Resolver) *Pipeline {
	searchCache, _ := lru.New[SearchKey, FetchResult](cacheSize)
	urlCache, _ := lru.New[string, FetchResult](cacheSize)
	resultSets, _ := lru.New[string, []search.Result](cacheSize)
	return &Pipeline{
		provider:    provider,
		fetcher:     fetcher,
		transcripts: transcripts,
		files:       files,
		searchCache: searchCache,
		urlCache:    urlCache,
		resultSets:  resultSets,
	}
}

// ExtractVideoID is exposed for URL-accessibility pre-checks.
func ExtractVideoID(url string) string { return transcript.ExtractVideoID(url) }

// FetchForSearch resolves a (query, result index) pair: search, pick the
// link by position, and run the fetch branch for it.
func (p *Pipeline) FetchForSearch(ctx context.Context, query string, index int) FetchResult {
	key := SearchKey{Query: query, Index: index}
	if v, ok := p.searchCache.Get(key); ok {
		return v
	}
	v, _, _ := p.flight.Do(fmt.Sprintf("search\x00%s\x00%d", query, index), func() (any, error) {
		if v, ok := p.searchCache.Get(key); ok {
			return v, nil
		}
		res := p.searchAndFetch(ctx, query, index)
		if cacheable(res) {
			p.searchCache.Add(key, res)
		}
		return res, nil
	})
	return v.(FetchResult)
}

// FetchForURL resolves a bare URL (revisit path).
func (p *Pipeline) FetchForURL(ctx context.Context, url string) FetchResult {
	if v, ok := p.urlCache.Get(url); ok {
		return v
	}
	v, _, _ := p.flight.Do("url\x00"+url, func() (any, error) {
		if v, ok := p.urlCache.Get(url); ok {
			return v, nil
		}
		res := p.resolve(ctx, url)
		if cacheable(res) {
			p.urlCache.Add(url, res)
		}
		return res, nil
	})
	return v.(FetchResult)
}

// Results returns the ranked result set for a query, memoized alongside
// the fetch outcomes so the session layer can display it without a second
// provider round-trip.
func (p *Pipeline) Results(ctx context.Context, query string) ([]search.Result, error) {
	if rs, ok := p.resultSets.Get(query); ok {
		return rs, nil
	}
	rs, err := p.provider.Search(ctx, query, 10)
	if err != nil {
		return nil, err
	}
	p.resultSets.Add(query, rs)
	return rs, nil
}

// Reset drops all memoized state; the conversation layer calls this on an
// explicit session reset.
func (p *Pipeline) Reset() {
	p.searchCache.Purge()
	p.urlCache.Purge()
	p.resultSets.Purge()
}

func (p *Pipeline) searchAndFetch(ctx context.Context, query string, index int) FetchResult {
	results, err := p.Results(ctx, query)
	if err != nil {
		return FetchError{Message: fmt.Sprintf("search failed: %v", err)}
	}
	if len(results) == 0 {
		return FetchError{Message: fmt.Sprintf("no search results for %q", query)}
	}
	if index < 0 || index >= len(results) {
		log.Warn().Str("query", query).Int("index", index).Int("results", len(results)).Msg("result index out of range, using first result")
		index = 0
	}
	return p.resolve(ctx, results[index].URL)
}

// resolve runs the classified branch for a URL. It never returns an error:
// every fault becomes a typed result variant.
func (p *Pipeline) resolve(ctx context.Context, url string) FetchResult {
	kind, err := classify.Classify(url)
	if err != nil {
		return FetchError{Message: err.Error(), URL: url}
	}
	log.Debug().Str("url", url).Stringer("kind", kind).Msg("resolving")
	switch kind {
	case classify.KindPDF:
		info, err := p.files.Resolve(ctx, url)
		if err != nil {
			return FetchError{Message: fmt.Sprintf("file metadata unavailable: %v", err), URL: url}
		}
		return FileInfo{FileName: info.FileName, URL: info.URL, SizeMB: info.SizeMB}
	case classify.KindYouTube:
		res, err := p.transcripts.Fetch(ctx, url)
		if err != nil {
			var un *transcript.Unavailable
			if errors.As(err, &un) {
				return TranscriptError{Reason: un.Reason, VideoID: un.VideoID, URL: url}
			}
			return TranscriptError{Reason: err.Error(), URL: url}
		}
		return Transcript{Text: res.Text, VideoID: res.VideoID, URL: url, Source: res.Source}
	default:
		html, err := p.fetcher.Fetch(ctx, url)
		if err != nil {
			return FetchError{Message: err.Error(), URL: url}
		}
		return Markdown{Text: normalize.Normalize(html, url), SourceURL: url}
	}
}

// cacheable reports whether a result should be memoized. Failures are
// recomputed on the next call so a transient fault does not stick for the
// cache's lifetime.
func cacheable(res FetchResult) bool {
	switch res.(type) {
	case Markdown, FileInfo, Transcript:
		return true
	default:
		return false
	}
}
