package http

import (
	"net/http"

	"lawdesk/internal/auth"
	"lawdesk/internal/backup"
	"lawdesk/internal/core"
)

const outboxListLimit = 200

// handleRunBackup runs a backup on the server's own job. A run already in
// flight yields 409.
func (s *Server) handleRunBackup(w http.ResponseWriter, r *http.Request) {
	if err := s.Policy.Check(r.Context(), auth.ActionManage, auth.KindBackup); err != nil {
		writeError(w, r, err)
		return
	}
	if s.Backups == nil {
		NotFoundError("backups are not configured").Write(w)
		return
	}
	res, err := s.Backups.Run(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	msg := "backup created"
	if res.Skipped {
		msg = "database file not found, backup skipped"
	}
	NewJSONResponse().Status(http.StatusCreated).Message(msg).Field("backup", res).Write(w)
}

func (s *Server) handleListBackups(w http.ResponseWriter, r *http.Request) {
	if err := s.Policy.Check(r.Context(), auth.ActionManage, auth.KindBackup); err != nil {
		writeError(w, r, err)
		return
	}
	if s.Backups == nil {
		NotFoundError("backups are not configured").Write(w)
		return
	}
	infos, err := backup.List(s.Backups.Dir())
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Field("backups", infos).Field("last_run", s.Backups.Last()).Write(w)
}

func (s *Server) handleListOutbox(w http.ResponseWriter, r *http.Request) {
	if err := s.Policy.Check(r.Context(), auth.ActionManage, auth.KindTransaction); err != nil {
		writeError(w, r, err)
		return
	}
	p := NewRequestParser(r)
	status := core.OutboxStatus(p.String("status"))
	limit := p.Int("limit", outboxListLimit)
	if err := p.Err(); err != nil {
		writeError(w, r, err)
		return
	}
	if limit < 1 || limit > outboxListLimit {
		limit = outboxListLimit
	}
	entries, err := s.Repo.ListOutbox(r.Context(), status, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	stats, err := s.Repo.OutboxStats(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Field("entries", entries).Field("stats", stats).Write(w)
}

// handleRetryOutbox moves failed entries back to pending for the sync worker.
func (s *Server) handleRetryOutbox(w http.ResponseWriter, r *http.Request) {
	if err := s.Policy.Check(r.Context(), auth.ActionManage, auth.KindTransaction); err != nil {
		writeError(w, r, err)
		return
	}
	n, err := s.Repo.RetryFailedOutbox(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Message("failed entries requeued").Field("requeued", n).Write(w)
}
