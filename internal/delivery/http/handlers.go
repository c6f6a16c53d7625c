package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"

	"github.com/Indranil2020/search/internal/search"
)

type Handler struct {
	engine *search.Engine
	logger *log.Logger
}

func NewHandler(engine *search.Engine, logger *log.Logger) *Handler {
	return &Handler{engine: engine, logger: logger}
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// Health reports liveness.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Search runs a blocking federated search and returns the full result.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	var req search.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, "Query is required")
		return
	}

	result, err := h.engine.Search(r.Context(), req, nil)
	if err != nil {
		h.logger.Error("search failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Search failed")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// sseEvent is one frame on the stream endpoint.
type sseEvent struct {
	Type    string               `json:"type"`
	Phase   search.Phase         `json:"phase,omitempty"`
	Source  string               `json:"source,omitempty"`
	Status  string               `json:"status,omitempty"`
	Count   int                  `json:"count,omitempty"`
	Message string               `json:"message,omitempty"`
	Data    *search.SearchResult `json:"data,omitempty"`
	Error   string               `json:"error,omitempty"`
}

// SearchStream runs a federated search while streaming progress as
// server-sent events. The stream ends with a result or error event.
func (h *Handler) SearchStream(w http.ResponseWriter, r *http.Request) {
	var req search.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, "Query is required")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "Streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	// Progress callbacks run on source goroutines; events funnel through a
	// channel so only this handler touches the ResponseWriter.
	events := make(chan sseEvent, 64)

	go func() {
		defer close(events)
		result, err := h.engine.Search(r.Context(), req, func(u search.ProgressUpdate) {
			events <- sseEvent{
				Type:    "progress",
				Phase:   u.Phase,
				Source:  u.Source,
				Status:  u.Status,
				Count:   u.Count,
				Message: u.Message,
			}
		})
		if err != nil {
			events <- sseEvent{Type: "error", Error: err.Error()}
			return
		}
		events <- sseEvent{Type: "result", Data: result}
	}()

	for event := range events {
		payload, err := json.Marshal(event)
		if err != nil {
			continue
		}
		fmt.Fprintf(w, "data: %s\n\n", payload)
		flusher.Flush()
	}
}

// idSources routes a paper id prefix to the source that minted it.
var idSources = map[string]string{
	"pubmed_":   "PubMed",
	"s2_":       "Semantic Scholar",
	"arxiv_":    "arXiv",
	"openalex_": "OpenAlex",
	"crossref_": "CrossRef",
	"core_":     "CORE",
	"base_":     "BASE",
	"europmc_":  "Europe PMC",
}

// GetPaper fetches one record by its prefixed id. Bare DOIs resolve through
// OpenAlex.
func (h *Handler) GetPaper(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	// DOI-bearing ids arrive with the slash percent-encoded.
	if decoded, err := url.PathUnescape(id); err == nil {
		id = decoded
	}
	if id == "" {
		writeError(w, http.StatusBadRequest, "Paper id is required")
		return
	}

	var sourceName string
	for prefix, name := range idSources {
		if strings.HasPrefix(id, prefix) {
			sourceName = name
			break
		}
	}
	if sourceName == "" && strings.HasPrefix(id, "10.") {
		sourceName = "OpenAlex"
	}
	if sourceName == "" {
		writeError(w, http.StatusBadRequest, "Unrecognized paper id")
		return
	}

	paper, err := h.engine.GetByID(r.Context(), sourceName, id)
	if err != nil {
		h.logger.Error("paper lookup failed", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "Lookup failed")
		return
	}
	if paper == nil {
		writeError(w, http.StatusNotFound, "Paper not found")
		return
	}

	writeJSON(w, http.StatusOK, paper)
}
