package web

import (
	"net/http"

	"github.com/gorilla/mux"

	"rentdesk/internal/model"
	"rentdesk/internal/snippet"
)

type snippetRequest struct {
	Title   string   `json:"title" validate:"required,max=200"`
	Content string   `json:"content" validate:"max=100000"`
	Tags    []string `json:"tags" validate:"max=50,dive,max=64"`
}

// GET /api/snippets?q=term
func (s *Server) handleListSnippets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.snippets.Search(r.URL.Query().Get("q")))
}

func (s *Server) handleCreateSnippet(w http.ResponseWriter, r *http.Request) {
	var req snippetRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	sn, err := s.snippets.Add(snippet.New(req.Title, req.Content, req.Tags))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sn)
}

func (s *Server) handleGetSnippet(w http.ResponseWriter, r *http.Request) {
	sn, ok := s.snippets.Get(mux.Vars(r)["id"])
	if !ok {
		writeStoreError(w, snippet.ErrNotFound)
		return
	}
	writeJSON(w, http.StatusOK, sn)
}

func (s *Server) handleUpdateSnippet(w http.ResponseWriter, r *http.Request) {
	var req snippetRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	tags := req.Tags
	if tags == nil {
		tags = []string{}
	}
	sn := model.Snippet{ID: mux.Vars(r)["id"], Title: req.Title, Content: req.Content, Tags: tags}
	if err := s.snippets.Update(sn); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sn)
}

func (s *Server) handleDeleteSnippet(w http.ResponseWriter, r *http.Request) {
	if err := s.snippets.Delete(mux.Vars(r)["id"]); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
