package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/dgallion1/docexport/internal/convert"
	"github.com/dgallion1/docexport/internal/markup"
	"github.com/dgallion1/docexport/internal/store"
	"github.com/go-chi/chi/v5"
)

const docxContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

// ExportRequest is the body for POST /api/export.
type ExportRequest struct {
	DocID    string `json:"doc_id"`
	SourceID string `json:"source_id"`
	Title    string `json:"title"`
	Content  string `json:"content"`
	Format   string `json:"format"` // "html" (default) or "markdown"
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)

	var req ExportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.DocID == "" {
		jsonError(w, "doc_id is required", http.StatusBadRequest)
		return
	}
	if req.Title == "" {
		req.Title = "Untitled"
	}

	content := req.Content
	switch req.Format {
	case "", "html":
	case "markdown":
		rendered, err := markup.FromMarkdown(content)
		if err != nil {
			jsonError(w, "markdown conversion failed: "+err.Error(), http.StatusBadRequest)
			return
		}
		content = rendered
	default:
		jsonError(w, fmt.Sprintf("unsupported format: %s", req.Format), http.StatusBadRequest)
		return
	}

	data, err := s.supervisor.GetOrGenerate(r.Context(), req.DocID, content, req.SourceID, req.Title)
	if err != nil {
		switch {
		case errors.Is(err, convert.ErrTimeout):
			jsonError(w, "generation timed out", http.StatusGatewayTimeout)
		case errors.Is(err, convert.ErrWriteFailure), errors.Is(err, convert.ErrStructuralCorruption):
			jsonError(w, err.Error(), http.StatusInternalServerError)
		default:
			jsonError(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}

	serveArtifact(w, req.DocID, data)
}

func (s *Server) handleGetArtifact(w http.ResponseWriter, r *http.Request) {
	docID := chi.URLParam(r, "docID")
	data, err := s.supervisor.Store().Read(docID)
	if errors.Is(err, store.ErrNotFound) {
		jsonError(w, "no cached artifact for "+docID, http.StatusNotFound)
		return
	}
	if err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	serveArtifact(w, docID, data)
}

func (s *Server) handleEvict(w http.ResponseWriter, r *http.Request) {
	docID := chi.URLParam(r, "docID")
	if err := s.supervisor.Store().Evict(docID); err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"evicted": docID})
}

func serveArtifact(w http.ResponseWriter, docID string, data []byte) {
	w.Header().Set("Content-Type", docxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.docx"`, docID))
	w.Header().Set("Content-Length", fmt.Sprint(len(data)))
	w.Write(data)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
