package http

import (
	"net/http"

	"lawdesk/internal/services"
)

func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	p := NewRequestParser(r)
	f := eventFilter(p)
	lq := ParseListQuery(r.URL.Query(), s.cfg.ItemsPerPage)
	if err := p.Err(); err != nil {
		writeError(w, r, err)
		return
	}
	page, err := s.Calendar.List(r.Context(), f, lq)
	if err != nil {
		writeError(w, r, err)
		return
	}
	Paginated("events", page, lq).Write(w)
}

func (s *Server) handleGetEvent(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	e, err := s.Calendar.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Field("event", e).Write(w)
}

func (s *Server) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	var in services.NewEvent
	if err := DecodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	e, err := s.Calendar.Create(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Message("event created").Field("event", e).Write(w)
}

func (s *Server) handleUpdateEvent(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var p services.EventPatch
	if err := DecodeJSON(w, r, &p); err != nil {
		writeError(w, r, err)
		return
	}
	e, err := s.Calendar.Update(r.Context(), id, p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Message("event updated").Field("event", e).Write(w)
}

func (s *Server) handleDeleteEvent(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.Calendar.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Message("event deleted").Write(w)
}

func (s *Server) handleUpcomingEvents(w http.ResponseWriter, r *http.Request) {
	p := NewRequestParser(r)
	days := p.Int("days", services.DefaultUpcomingDays)
	limit := p.Int("limit", services.DefaultUpcomingLimit)
	if err := p.Err(); err != nil {
		writeError(w, r, err)
		return
	}
	events, err := s.Calendar.Upcoming(r.Context(), days, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Field("events", events).Write(w)
}
