package sync

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/rs/zerolog"
)

// Server implements the three sync endpoints over net/http's enhanced
// ServeMux: plain net/http + encoding/json rather than grpc+protobuf, so
// the wire payload stays the same opaque, forward-compatible blob the
// storage layer already uses. It never decrypts a request body;
// VersionStore stores and forwards bytes only.
type Server struct {
	store *VersionStore
	log zerolog.Logger
}

// NewServer returns a Server backed by store.
func NewServer(store *VersionStore, log zerolog.Logger) *Server {
	return &Server{store: store, log: log}
}

// Handler returns the http.Handler routing the three sync endpoints.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/client/get-child-version/{parent}", s.handleGetChildVersion)
	mux.HandleFunc("POST /v1/client/add-version/{parent}", s.handleAddVersion)
	mux.HandleFunc("POST /v1/client/add-snapshot/{version}", s.handleAddSnapshot)
	return mux
}

type childVersionResponse struct {
	ChildVersionID string `json:"child_version_id"`
	Blob []byte `json:"blob,omitempty"`
}

// urlUnescapeVersion reverses the client's placeholder for the empty root
// version id, which an HTTP path cannot carry as an empty segment.
func urlUnescapeVersion(s string) string {
	if s == "-" {
		return ""
	}
	return s
}

func (s *Server) handleGetChildVersion(w http.ResponseWriter, r *http.Request) {
	parent := urlUnescapeVersion(r.PathValue("parent"))
	child, blob, ok, err := s.store.ChildOf(parent)
	if err != nil {
		s.log.Error().Err(err).Str("parent", parent).Msg("get-child-version failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if !ok {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, childVersionResponse{ChildVersionID: child, Blob: blob})
}

func (s *Server) handleAddVersion(w http.ResponseWriter, r *http.Request) {
	parent := urlUnescapeVersion(r.PathValue("parent"))
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "bad request body", http.StatusBadRequest)
		return
	}
	child, ok, conflictID, conflictBlob, err := s.store.AddVersion(parent, body)
	if err != nil {
		s.log.Error().Err(err).Str("parent", parent).Msg("add-version failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if !ok {
		writeJSON(w, http.StatusConflict, childVersionResponse{ChildVersionID: conflictID, Blob: conflictBlob})
		return
	}
	writeJSON(w, http.StatusOK, childVersionResponse{ChildVersionID: child})
}

func (s *Server) handleAddSnapshot(w http.ResponseWriter, r *http.Request) {
	version := r.PathValue("version")
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "bad request body", http.StatusBadRequest)
		return
	}
	if err := s.store.AddSnapshot(version, body); err != nil {
		s.log.Error().Err(err).Str("version", version).Msg("add-snapshot failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
