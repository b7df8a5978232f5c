package http

import (
	"net/http"

	"lawdesk/internal/services"
)

func (s *Server) handleListClients(w http.ResponseWriter, r *http.Request) {
	p := NewRequestParser(r)
	f := clientFilter(p)
	lq := ParseListQuery(r.URL.Query(), s.cfg.ItemsPerPage)
	if err := p.Err(); err != nil {
		writeError(w, r, err)
		return
	}
	page, err := s.Clients.List(r.Context(), f, lq)
	if err != nil {
		writeError(w, r, err)
		return
	}
	Paginated("clients", page, lq).Write(w)
}

func (s *Server) handleGetClient(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	client, err := s.Clients.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Field("client", client).Write(w)
}

func (s *Server) handleCreateClient(w http.ResponseWriter, r *http.Request) {
	var in services.NewClient
	if err := DecodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	client, err := s.Clients.Create(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Message("client created").Field("client", client).Write(w)
}

func (s *Server) handleUpdateClient(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var p services.ClientPatch
	if err := DecodeJSON(w, r, &p); err != nil {
		writeError(w, r, err)
		return
	}
	client, err := s.Clients.Update(r.Context(), id, p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Message("client updated").Field("client", client).Write(w)
}

func (s *Server) handleDeleteClient(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.Clients.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Message("client deleted").Write(w)
}

func (s *Server) handleClientCases(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	cases, err := s.Clients.Cases(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Field("cases", cases).Write(w)
}

func (s *Server) handleClientTransactions(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	txs, err := s.Clients.Transactions(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Field("transactions", txs).Write(w)
}
