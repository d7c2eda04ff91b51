// Package app glues the fetch pipeline, search provider, answer renderer
// and conversation history behind a small HTTP API.
package app

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/qubelab/qubecrawl/internal/history"
	"github.com/qubelab/qubecrawl/internal/llm"
	"github.com/qubelab/qubecrawl/internal/pipeline"
)

// Message mirrors the chat client's wire shape.
type Message struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	CreatedAt string `json:"createdAt"`
}

type chatRequest struct {
	Messages []Message `json:"messages"`
}

type chatResponse struct {
	Answer string `json:"answer"`
	URL    string `json:"url"`
}

// Server handles the HTTP surface. Answerer may be nil, in which case the
// rendered pipeline output is returned directly.
type Server struct {
	Pipeline *pipeline.Pipeline
	Answerer *llm.Answerer
	History  *history.Store
	Session  *Session
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/chat/{index}", s.handleChat)
	mux.HandleFunc("GET /api/chat/history", s.handleHistoryList)
	mux.HandleFunc("DELETE /api/chat/history", s.handleHistoryDeleteAll)
	mux.HandleFunc("DELETE /api/chat/history/{created}", s.handleHistoryDelete)
	mux.HandleFunc("PATCH /api/chat/reset", s.handleReset)
	mux.HandleFunc("DELETE /api/chat/delete", s.handleClear)
	mux.HandleFunc("GET /api/chat/info", s.handleInfo)
	return mux
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		http.Error(w, "index must be an integer", http.StatusBadRequest)
		return
	}
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Messages) == 0 {
		http.Error(w, "request must carry at least one message", http.StatusBadRequest)
		return
	}

	res, question := s.resolveTurn(r.Context(), s.Session, req.Messages, index)

	first := req.Messages[0]
	if err := s.History.Append(history.Entry{
		CreatedTime:  first.CreatedAt,
		UserQuestion: first.Content,
		URL:          res.ResultURL(),
	}); err != nil {
		log.Warn().Err(err).Msg("history append failed")
	}

	answer := res.Render()
	if s.Answerer != nil {
		if a, err := s.Answerer.Answer(r.Context(), question, res); err == nil {
			answer = a
		} else {
			log.Warn().Err(err).Msg("answer synthesis failed, returning raw context")
		}
	}
	writeJSON(w, chatResponse{Answer: answer, URL: res.ResultURL()})
}

// resolveTurn picks the pipeline entry point for this turn. A first
// message triggers search-and-fetch; a repeated first message with a new
// index revisits a different link; follow-up questions are answered from
// the session's grounding URL, which the cache serves without refetching.
// Session state is read and written under its lock, but the fetch itself
// runs unlocked so slow pages do not serialize unrelated turns.
func (s *Server) resolveTurn(ctx context.Context, sess *Session, msgs []Message, index int) (pipeline.FetchResult, string) {
	first := msgs[0].Content
	question := msgs[len(msgs)-1].Content

	query, url, searched := sess.state()

	switch {
	case !searched && len(msgs) == 1:
		res := s.Pipeline.FetchForSearch(ctx, first, index)
		sess.record(first, res.ResultURL())
		return res, question
	case len(msgs) == 1 || url == "":
		results, err := s.Pipeline.Results(ctx, query)
		if err != nil || len(results) == 0 {
			res := s.Pipeline.FetchForSearch(ctx, query, index)
			sess.setURL(res.ResultURL())
			return res, question
		}
		if index < 0 || index >= len(results) {
			index = 0
		}
		target := results[index].URL
		res := s.Pipeline.FetchForURL(ctx, target)
		sess.setURL(target)
		return res, question
	default:
		return s.Pipeline.FetchForURL(ctx, url), question
	}
}

func (s *Server) handleHistoryList(w http.ResponseWriter, r *http.Request) {
	entries, err := s.History.All()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, entries)
}

func (s *Server) handleHistoryDeleteAll(w http.ResponseWriter, r *http.Request) {
	if err := s.History.DeleteAll(); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleHistoryDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.History.DeleteByDatePrefix(r.PathValue("created")); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.Session.reset()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	s.Session.clear()
	s.Pipeline.Reset()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	query, _, _ := s.Session.state()
	if query == "" {
		writeJSON(w, s.Session.snapshot(nil))
		return
	}
	rs, err := s.Pipeline.Results(r.Context(), query)
	if err != nil {
		log.Warn().Err(err).Str("query", query).Msg("result set lookup failed")
	}
	writeJSON(w, s.Session.snapshot(rs))
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("response encode failed")
	}
}
