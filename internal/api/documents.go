package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/calegray/codedown/internal/engine"
	"github.com/calegray/codedown/internal/model"
)

const maxBodySize = 1 << 20 // 1 MB

// createDocumentRequest is the JSON body for POST /v1/documents. Posting an
// existing id re-parses the document in place; sessions survive the
// re-parse.
type createDocumentRequest struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

type createDocumentResponse struct {
	DocumentID string   `json:"document_id"`
	ChunkIDs   []string `json:"chunk_ids"`
}

// runRequest is the JSON body for the run endpoints.
type runRequest struct {
	WorkDir string `json:"work_dir"`
}

// chunkView is the JSON shape of a chunk.
type chunkView struct {
	ID         string `json:"id"`
	Language   string `json:"language"`
	Code       string `json:"code"`
	SourceLine int    `json:"source_line"`
	Status     string `json:"status"`
	Hide       bool   `json:"hide"`
	RunOnSave  bool   `json:"run_on_save"`
	Rendered   string `json:"rendered,omitempty"`
	Error      string `json:"error,omitempty"`
}

func viewOf(c *model.Chunk) chunkView {
	return chunkView{
		ID:         c.ID,
		Language:   c.Language,
		Code:       c.Code,
		SourceLine: c.SourceLine,
		Status:     c.Status,
		Hide:       c.Attrs.Hide,
		RunOnSave:  c.Attrs.RunOnSave,
		Rendered:   c.RenderedResult,
		Error:      c.Error,
	}
}

func (s *Server) handleCreateDocument(w http.ResponseWriter, r *http.Request) {
	var req createDocumentRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	docID := req.ID
	if docID == "" {
		docID = model.NewID()
	}

	m := s.registry.Get(docID)
	chunkIDs := m.Parse(req.Text)
	if chunkIDs == nil {
		chunkIDs = []string{}
	}

	s.writeJSON(w, http.StatusCreated, createDocumentResponse{
		DocumentID: docID,
		ChunkIDs:   chunkIDs,
	})
}

func (s *Server) handleReleaseDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if _, ok := s.registry.Lookup(id); !ok {
		s.writeError(w, http.StatusNotFound, "document not found")
		return
	}

	s.registry.Release(id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListChunks(w http.ResponseWriter, r *http.Request) {
	m, ok := s.lookupManager(w, r)
	if !ok {
		return
	}

	chunks := []chunkView{}
	for _, id := range m.ChunkIDs() {
		if c, ok := m.GetChunk(id); ok {
			chunks = append(chunks, viewOf(c))
		}
	}

	s.writeJSON(w, http.StatusOK, map[string]any{"chunks": chunks})
}

func (s *Server) handleGetChunk(w http.ResponseWriter, r *http.Request) {
	m, ok := s.lookupManager(w, r)
	if !ok {
		return
	}

	c, ok := m.GetChunk(chi.URLParam(r, "chunkID"))
	if !ok {
		s.writeError(w, http.StatusNotFound, "chunk not found")
		return
	}

	s.writeJSON(w, http.StatusOK, viewOf(c))
}

func (s *Server) handleRunChunk(w http.ResponseWriter, r *http.Request) {
	m, ok := s.lookupManager(w, r)
	if !ok {
		return
	}

	req, ok := s.decodeRunRequest(w, r)
	if !ok {
		return
	}

	result, err := m.RunChunk(r.Context(), chi.URLParam(r, "chunkID"), req.WorkDir)
	if errors.Is(err, engine.ErrChunkNotFound) {
		s.writeError(w, http.StatusNotFound, "chunk not found")
		return
	}
	if err != nil {
		s.logger.Error("run chunk", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to run chunk")
		return
	}

	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleRunAll(w http.ResponseWriter, r *http.Request) {
	m, ok := s.lookupManager(w, r)
	if !ok {
		return
	}

	req, ok := s.decodeRunRequest(w, r)
	if !ok {
		return
	}

	results := m.RunAll(r.Context(), req.WorkDir)
	if results == nil {
		results = []model.ChunkResult{}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

func (s *Server) handleRunOnSave(w http.ResponseWriter, r *http.Request) {
	m, ok := s.lookupManager(w, r)
	if !ok {
		return
	}

	req, ok := s.decodeRunRequest(w, r)
	if !ok {
		return
	}

	results := m.RunOnSave(r.Context(), req.WorkDir)
	if results == nil {
		results = []model.ChunkResult{}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

// lookupManager resolves the document manager from the route, writing a 404
// when the document is unknown.
func (s *Server) lookupManager(w http.ResponseWriter, r *http.Request) (*engine.Manager, bool) {
	id := chi.URLParam(r, "id")
	m, ok := s.registry.Lookup(id)
	if !ok {
		s.writeError(w, http.StatusNotFound, "document not found")
		return nil, false
	}
	return m, true
}

// decodeRunRequest reads an optional run body. An empty body means default
// options.
func (s *Server) decodeRunRequest(w http.ResponseWriter, r *http.Request) (runRequest, bool) {
	var req runRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return runRequest{}, false
	}
	return req, true
}

// writeJSON writes a JSON response with the given status code.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("encode response", "error", err)
	}
}

// writeError writes a JSON error response.
func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

// parseIntQuery parses an integer query parameter with a default value.
func parseIntQuery(r *http.Request, key string, defaultVal int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	return v
}
