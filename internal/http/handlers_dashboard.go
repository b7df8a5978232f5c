package http

import "net/http"

func (s *Server) handleDashboardStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.Dashboard.Stats(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Raw(stats).Write(w)
}
