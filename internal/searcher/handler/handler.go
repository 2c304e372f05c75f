// Package handler exposes the lookup service over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/sitesearch/internal/domain"
	"github.com/Adithya-Monish-Kumar-K/sitesearch/internal/searcher/processor"
	"github.com/Adithya-Monish-Kumar-K/sitesearch/internal/searcher/request"
	"github.com/Adithya-Monish-Kumar-K/sitesearch/internal/store"
	apperrors "github.com/Adithya-Monish-Kumar-K/sitesearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/sitesearch/pkg/logger"
)

// Lookup is the service behind the handler.
type Lookup interface {
	Search(ctx context.Context, raw string, opts request.Options) ([]processor.Result, error)
	SearchCounts(ctx context.Context, raw string, opts request.Options) (map[string]int, error)
	Autocomplete(ctx context.Context, raw string, opts request.Options) ([]processor.Suggestion, error)
	Tags(ctx context.Context, opts request.Options) (map[string]domain.TagLabel, error)
	Sitemap(ctx context.Context, opts request.Options) ([]store.SitemapEntry, error)
	Invalidate(ctx context.Context, domain string) error
	CacheStats() (hits, misses int64, enabled bool)
}

type Handler struct {
	lookup Lookup
	logger *slog.Logger
}

func New(lookup Lookup) *Handler {
	return &Handler{
		lookup: lookup,
		logger: slog.Default().With("component", "search-handler"),
	}
}

// Register mounts the lookup routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/search", h.Search)
	mux.HandleFunc("GET /api/v1/search/counts", h.SearchCounts)
	mux.HandleFunc("GET /api/v1/autocomplete", h.Autocomplete)
	mux.HandleFunc("GET /api/v1/tags", h.Tags)
	mux.HandleFunc("GET /api/v1/sitemap", h.Sitemap)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)
}

type searchResponse struct {
	Query   string             `json:"query"`
	Results []processor.Result `json:"results"`
}

type autocompleteResponse struct {
	Query       string                 `json:"query"`
	Suggestions []processor.Suggestion `json:"suggestions"`
}

type sitemapEntry struct {
	URL      string  `json:"url"`
	LastMod  string  `json:"lastmod"`
	Priority float64 `json:"priority"`
}

func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	opts, err := parseOptions(r.URL.Query())
	if err != nil {
		h.writeError(r.Context(), w, err)
		return
	}
	q := r.URL.Query().Get("q")
	results, err := h.lookup.Search(r.Context(), q, opts)
	if err != nil {
		h.writeError(r.Context(), w, err)
		return
	}
	if results == nil {
		results = []processor.Result{}
	}
	h.writeJSON(w, http.StatusOK, searchResponse{Query: q, Results: results})
}

func (h *Handler) SearchCounts(w http.ResponseWriter, r *http.Request) {
	opts, err := parseOptions(r.URL.Query())
	if err != nil {
		h.writeError(r.Context(), w, err)
		return
	}
	counts, err := h.lookup.SearchCounts(r.Context(), r.URL.Query().Get("q"), opts)
	if err != nil {
		h.writeError(r.Context(), w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, counts)
}

func (h *Handler) Autocomplete(w http.ResponseWriter, r *http.Request) {
	opts, err := parseOptions(r.URL.Query())
	if err != nil {
		h.writeError(r.Context(), w, err)
		return
	}
	q := r.URL.Query().Get("q")
	suggestions, err := h.lookup.Autocomplete(r.Context(), q, opts)
	if err != nil {
		h.writeError(r.Context(), w, err)
		return
	}
	if suggestions == nil {
		suggestions = []processor.Suggestion{}
	}
	h.writeJSON(w, http.StatusOK, autocompleteResponse{Query: q, Suggestions: suggestions})
}

func (h *Handler) Tags(w http.ResponseWriter, r *http.Request) {
	opts, err := parseOptions(r.URL.Query())
	if err != nil {
		h.writeError(r.Context(), w, err)
		return
	}
	tags, err := h.lookup.Tags(r.Context(), opts)
	if err != nil {
		h.writeError(r.Context(), w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, tags)
}

func (h *Handler) Sitemap(w http.ResponseWriter, r *http.Request) {
	opts, err := parseOptions(r.URL.Query())
	if err != nil {
		h.writeError(r.Context(), w, err)
		return
	}
	entries, err := h.lookup.Sitemap(r.Context(), opts)
	if err != nil {
		h.writeError(r.Context(), w, err)
		return
	}
	out := make([]sitemapEntry, len(entries))
	for i, e := range entries {
		out[i] = sitemapEntry{URL: e.URL, LastMod: e.Timestamp.UTC().Format("2006-01-02"), Priority: e.Priority}
	}
	h.writeJSON(w, http.StatusOK, out)
}

func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	hits, misses, enabled := h.lookup.CacheStats()
	if !enabled {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}
	total := hits + misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"hits":     hits,
		"misses":   misses,
		"total":    total,
		"hit_rate": fmt.Sprintf("%.1f%%", hitRate),
	})
}

func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("domain")
	if name == "" {
		h.writeError(r.Context(), w, apperrors.Invalid("query parameter 'domain' is required"))
		return
	}
	if err := h.lookup.Invalidate(r.Context(), name); err != nil {
		h.writeError(r.Context(), w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "invalidated", "domain": name})
}

// parseOptions reads the common lookup options. additionalWhere is not
// accepted over HTTP.
func parseOptions(v url.Values) (request.Options, error) {
	opts := request.Options{
		Domain:   v.Get("domain"),
		Site:     v.Get("site"),
		Language: v.Get("lang"),
	}
	if tags := v.Get("tags"); tags != "" {
		for _, t := range strings.Split(tags, ",") {
			if t = strings.TrimSpace(t); t != "" {
				opts.Tags = append(opts.Tags, t)
			}
		}
	}
	ints := []struct {
		name string
		dst  *int
	}{
		{"limit", &opts.MaxItems},
		{"offset", &opts.Offset},
		{"maxTagItems", &opts.MaxTagItems},
		{"contentMatchLength", &opts.ContentMatchLength},
	}
	for _, p := range ints {
		raw := v.Get(p.name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			return request.Options{}, apperrors.Invalid("%s must be an integer", p.name)
		}
		*p.dst = n
	}
	return opts, nil
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, err error) {
	status := apperrors.HTTPStatusCode(err)
	message := err.Error()
	if status >= http.StatusInternalServerError {
		logger.FromContext(ctx).Error("lookup failed", "error", err)
		message = http.StatusText(status)
	}
	h.writeJSON(w, status, map[string]string{"error": message})
}
