package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/qubelab/qubecrawl/internal/app"
	"github.com/qubelab/qubecrawl/internal/fetch"
	"github.com/qubelab/qubecrawl/internal/filemeta"
	"github.com/qubelab/qubecrawl/internal/history"
	"github.com/qubelab/qubecrawl/internal/llm"
	"github.com/qubelab/qubecrawl/internal/pipeline"
	"github.com/qubelab/qubecrawl/internal/search"
	"github.com/qubelab/qubecrawl/internal/transcript"
)

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	var (
		configPath string
		cfg        app.Config
		serve      bool
		query      string
		index      int
		rawURL     string
	)

	flag.StringVar(&configPath, "config", "", "Path to YAML config file")
	flag.StringVar(&cfg.SerperKey, "serper.key", os.Getenv("SERPER_API_KEY"), "Serper.dev API key")
	flag.StringVar(&cfg.SearchFile, "search.file", os.Getenv("SEARCH_FILE"), "Path to JSON file for offline file-based search provider")
	flag.StringVar(&cfg.LLMBaseURL, "llm.base", os.Getenv("LLM_BASE_URL"), "OpenAI-compatible base URL (optional)")
	flag.StringVar(&cfg.LLMModel, "llm.model", os.Getenv("LLM_MODEL"), "Model name")
	flag.StringVar(&cfg.LLMAPIKey, "llm.key", os.Getenv("LLM_API_KEY"), "API key for the OpenAI-compatible server")
	flag.StringVar(&cfg.HistoryPath, "history", "history.json", "Path to the conversation history file")
	flag.StringVar(&cfg.Listen, "listen", ":8080", "HTTP listen address for -serve")
	flag.BoolVar(&cfg.Verbose, "v", false, "Verbose logging")
	flag.BoolVar(&serve, "serve", false, "Run the HTTP API instead of a one-shot fetch")
	flag.StringVar(&query, "query", "", "One-shot: search query to resolve")
	flag.IntVar(&index, "index", 0, "One-shot: search result index to fetch")
	flag.StringVar(&rawURL, "url", "", "One-shot: fetch a single URL directly")
	flag.Parse()

	if configPath != "" {
		fc, err := app.LoadFileConfig(configPath)
		if err != nil {
			log.Fatal().Err(err).Str("path", configPath).Msg("config load failed")
		}
		cfg.Merge(fc)
	}
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if cfg.Verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	var provider search.Provider
	if cfg.SearchFile != "" {
		provider = &search.FileProvider{Path: cfg.SearchFile}
	} else {
		provider = &search.Serper{APIKey: cfg.SerperKey}
	}

	p := pipeline.New(provider, &fetch.Client{}, &transcript.Extractor{}, &filemeta.Resolver{})

	var answerer *llm.Answerer
	if cfg.LLMModel != "" {
		answerer = &llm.Answerer{
			Client: llm.NewOpenAIClient(cfg.LLMBaseURL, cfg.LLMAPIKey),
			Model:  cfg.LLMModel,
		}
	}

	if serve {
		runServer(cfg, p, answerer)
		return
	}
	runOnce(p, answerer, query, index, rawURL)
}

func runServer(cfg app.Config, p *pipeline.Pipeline, answerer *llm.Answerer) {
	if dir := filepath.Dir(cfg.HistoryPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.Fatal().Err(err).Msg("history directory")
		}
	}
	srv := &app.Server{
		Pipeline: p,
		Answerer: answerer,
		History:  &history.Store{Path: cfg.HistoryPath},
		Session:  &app.Session{},
	}
	httpServer := &http.Server{
		Addr:              cfg.Listen,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	log.Info().Str("listen", cfg.Listen).Msg("serving")
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("server failed")
	}
}

func runOnce(p *pipeline.Pipeline, answerer *llm.Answerer, query string, index int, rawURL string) {
	if query == "" && rawURL == "" {
		fmt.Fprintln(os.Stderr, "provide -query or -url (or -serve)")
		os.Exit(2)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	var res pipeline.FetchResult
	if rawURL != "" {
		res = p.FetchForURL(ctx, rawURL)
	} else {
		res = p.FetchForSearch(ctx, query, index)
	}

	if answerer != nil && query != "" {
		if answer, err := answerer.Answer(ctx, query, res); err == nil {
			fmt.Println(answer)
			return
		} else {
			log.Warn().Err(err).Msg("answer synthesis failed, printing raw context")
		}
	}
	fmt.Println(res.Render())
}
