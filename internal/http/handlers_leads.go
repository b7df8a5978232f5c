package http

import (
	"net/http"

	"lawdesk/internal/services"
)

func (s *Server) handleListLeads(w http.ResponseWriter, r *http.Request) {
	p := NewRequestParser(r)
	f := leadFilter(p)
	lq := ParseListQuery(r.URL.Query(), s.cfg.ItemsPerPage)
	if err := p.Err(); err != nil {
		writeError(w, r, err)
		return
	}
	page, err := s.Leads.List(r.Context(), f, lq)
	if err != nil {
		writeError(w, r, err)
		return
	}
	Paginated("leads", page, lq).Write(w)
}

func (s *Server) handleGetLead(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	lead, err := s.Leads.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Field("lead", lead).Write(w)
}

func (s *Server) handleCreateLead(w http.ResponseWriter, r *http.Request) {
	var in services.NewLead
	if err := DecodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	lead, err := s.Leads.Create(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Message("lead created").Field("lead", lead).Write(w)
}

func (s *Server) handleUpdateLead(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var p services.LeadPatch
	if err := DecodeJSON(w, r, &p); err != nil {
		writeError(w, r, err)
		return
	}
	lead, err := s.Leads.Update(r.Context(), id, p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Message("lead updated").Field("lead", lead).Write(w)
}

func (s *Server) handleDeleteLead(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.Leads.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Message("lead deleted").Write(w)
}

// handleConvertLead turns a lead into a client. The body is optional.
func (s *Server) handleConvertLead(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var in services.ConvertLead
	if err := DecodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	conv, err := s.Leads.Convert(r.Context(), id, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().
		Status(http.StatusCreated).
		Message("lead converted to client").
		Field("client", conv.Client).
		Field("lead", conv.Lead).
		Write(w)
}
