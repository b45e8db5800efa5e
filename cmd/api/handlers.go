package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/pairents/edge/engine/catalog"
	"github.com/pairents/edge/engine/domain"
	"github.com/pairents/edge/engine/extract"
	"github.com/pairents/edge/engine/guidance"
	"github.com/pairents/edge/engine/identity"
	"github.com/pairents/edge/engine/images"
)

const (
	defaultBlogLimit = 60
	maxBlogLimit     = 300
)

type server struct {
	log      *slog.Logger
	catalog  *catalog.Service
	images   *images.Resolver
	extract  *extract.Service
	guidance *guidance.Orchestrator
	identity *identity.Verifier
}

func (s *server) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /v1/blogs", s.handleBlogs)
	mux.HandleFunc("GET /v1/blog-image", s.handleBlogImage)
	mux.HandleFunc("HEAD /v1/blog-image", s.handleBlogImage)
	mux.HandleFunc("GET /v1/blog-content", s.handleBlogContent)
	mux.HandleFunc("HEAD /v1/blog-content", s.handleBlogContent)
	mux.HandleFunc("POST /v1/ask", s.handleGuidance(domain.ModeAsk))
	mux.HandleFunc("POST /v1/checkin", s.handleGuidance(domain.ModeCheckin))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

type errBody struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func writeError(w http.ResponseWriter, status int, msg, details string) {
	writeJSON(w, status, errBody{Error: msg, Details: details})
}

func (s *server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "service": serviceName})
}

// blogsResponse lists catalog items for a (possibly filtered) query.
// total counts the whole catalog, matched the items the query hit.
type blogsResponse struct {
	Items   []domain.ArticleSummary `json:"items"`
	Total   int                     `json:"total"`
	Matched int                     `json:"matched"`
	Error   string                  `json:"error,omitempty"`
}

func (s *server) handleBlogs(w http.ResponseWriter, r *http.Request) {
	limit := defaultBlogLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid limit", raw)
			return
		}
		limit = n
	}
	if limit < 1 {
		limit = 1
	}
	if limit > maxBlogLimit {
		limit = maxBlogLimit
	}

	query := r.URL.Query().Get("q")
	matches, err := s.catalog.Search(r.Context(), query)
	if err != nil {
		// Degrade instead of failing: the app renders an empty list
		// with the error surfaced.
		s.log.Error("blog search failed", "err", err)
		writeJSON(w, http.StatusOK, blogsResponse{Items: []domain.ArticleSummary{}, Error: "catalog unavailable"})
		return
	}

	total := len(matches)
	if strings.TrimSpace(query) != "" {
		if all, err := s.catalog.Catalog(r.Context()); err == nil {
			total = len(all)
		}
	}
	matched := len(matches)
	if len(matches) > limit {
		matches = matches[:limit]
	}
	writeJSON(w, http.StatusOK, blogsResponse{Items: matches, Total: total, Matched: matched})
}

func (s *server) handleBlogImage(w http.ResponseWriter, r *http.Request) {
	link := r.URL.Query().Get("link")
	if link == "" {
		writeError(w, http.StatusBadRequest, "link is required", "")
		return
	}
	res, err := s.images.Resolve(r.Context(), link)
	if err != nil {
		writeError(w, http.StatusNotFound, "unknown article", link)
		return
	}
	w.Header().Set("Content-Type", res.ContentType)
	w.Header().Set("Cache-Control", res.CacheControl)
	w.Header().Set("Content-Length", strconv.Itoa(len(res.Body)))
	if r.Method == http.MethodHead {
		w.WriteHeader(http.StatusOK)
		return
	}
	w.Write(res.Body)
}

func (s *server) handleBlogContent(w http.ResponseWriter, r *http.Request) {
	link := r.URL.Query().Get("link")
	if link == "" {
		writeError(w, http.StatusBadRequest, "link is required", "")
		return
	}
	body, err := s.extract.Article(r.Context(), link)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "unknown article", link)
		return
	case err != nil:
		s.log.Error("article extraction failed", "link", link, "err", err)
		writeError(w, http.StatusBadGateway, "article unavailable", "")
		return
	}
	if r.Method == http.MethodHead {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		return
	}
	writeJSON(w, http.StatusOK, body)
}

// guidanceRequest is the JSON body for POST /v1/ask and /v1/checkin.
// The parent input arrives as "question" on ask and "summary" on
// check-in; "text" is accepted as an alias on both.
type guidanceRequest struct {
	Question            string `json:"question,omitempty"`
	Summary             string `json:"summary,omitempty"`
	Text                string `json:"text,omitempty"`
	MilestoneContext    string `json:"milestoneContext,omitempty"`
	ConversationContext string `json:"conversationContext,omitempty"`
	ParentContext       string `json:"parentContext,omitempty"`
	ChildAgeMonths      int    `json:"childAgeMonths,omitempty"`
	FocusDomain         string `json:"focusDomain,omitempty"`
}

// input picks the mode's canonical field, falling back to the alias.
func (g guidanceRequest) input(mode domain.GuidanceMode) string {
	if mode == domain.ModeCheckin && g.Summary != "" {
		return g.Summary
	}
	if mode == domain.ModeAsk && g.Question != "" {
		return g.Question
	}
	return g.Text
}

// guidanceResponse is the success body for the guidance endpoints.
type guidanceResponse struct {
	UID         string                `json:"uid"`
	Provider    string                `json:"provider"`
	Response    domain.FivePartAnswer `json:"response"`
	Citations   []domain.Citation     `json:"citations"`
	Uncertainty domain.Uncertainty    `json:"uncertainty"`
	Quality     domain.ParseMode      `json:"quality"`
}

func (s *server) handleGuidance(mode domain.GuidanceMode) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, err := s.identity.Verify(r.Context(), bearerToken(r))
		if err != nil {
			writeError(w, http.StatusUnauthorized, "authentication required", "")
			return
		}

		var req guidanceRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body", "")
			return
		}

		env, err := s.guidance.Guide(r.Context(), domain.GuidanceInput{
			Mode:                mode,
			Text:                req.input(mode),
			MilestoneContext:    req.MilestoneContext,
			ConversationContext: req.ConversationContext,
			ParentContext:       req.ParentContext,
			ChildAgeMonths:      req.ChildAgeMonths,
			FocusDomain:         req.FocusDomain,
		})
		switch {
		case errors.Is(err, domain.ErrPolicyViolation):
			writeError(w, http.StatusBadRequest, "input rejected by policy", policyDetail(err))
			return
		case err != nil:
			s.log.Error("guidance failed", "mode", mode, "err", err)
			writeError(w, http.StatusBadGateway, "guidance unavailable", fmt.Sprintf("%v", err))
			return
		}

		writeJSON(w, http.StatusOK, guidanceResponse{
			UID:         uid,
			Provider:    env.Provider,
			Response:    env.Answer,
			Citations:   env.Citations,
			Uncertainty: env.Uncertainty,
			Quality:     env.ParseMode,
		})
	}
}

func policyDetail(err error) string {
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		return ve.Field
	}
	return ""
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return ""
}
