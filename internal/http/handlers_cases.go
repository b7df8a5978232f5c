package http

import (
	"net/http"

	"lawdesk/internal/services"
)

func (s *Server) handleListCases(w http.ResponseWriter, r *http.Request) {
	p := NewRequestParser(r)
	f := caseFilter(p)
	lq := ParseListQuery(r.URL.Query(), s.cfg.ItemsPerPage)
	if err := p.Err(); err != nil {
		writeError(w, r, err)
		return
	}
	page, err := s.Cases.List(r.Context(), f, lq)
	if err != nil {
		writeError(w, r, err)
		return
	}
	Paginated("cases", page, lq).Write(w)
}

func (s *Server) handleGetCase(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	c, err := s.Cases.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Field("case", c).Write(w)
}

func (s *Server) handleCreateCase(w http.ResponseWriter, r *http.Request) {
	var in services.NewCase
	if err := DecodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	c, err := s.Cases.Create(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Message("case created").Field("case", c).Write(w)
}

func (s *Server) handleUpdateCase(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var p services.CasePatch
	if err := DecodeJSON(w, r, &p); err != nil {
		writeError(w, r, err)
		return
	}
	c, err := s.Cases.Update(r.Context(), id, p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Message("case updated").Field("case", c).Write(w)
}

func (s *Server) handleDeleteCase(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.Cases.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Message("case deleted").Write(w)
}
