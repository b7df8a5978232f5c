package http

import (
	"net/http"
	"time"

	"lawdesk/internal/core"
	"lawdesk/internal/ledger"
	"lawdesk/internal/services"
)

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	p := NewRequestParser(r)
	f := transactionFilter(p)
	lq := ParseListQuery(r.URL.Query(), s.cfg.ItemsPerPage)
	if err := p.Err(); err != nil {
		writeError(w, r, err)
		return
	}
	page, err := s.Ledger.ListTransactions(r.Context(), f, lq)
	if err != nil {
		writeError(w, r, err)
		return
	}
	Paginated("transactions", services.Page[ledger.TransactionView]{Items: page.Transactions, Total: page.Total}, lq).Write(w)
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	view, err := s.Ledger.GetTransaction(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Field("transaction", view).Write(w)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var in ledger.NewTransaction
	if err := DecodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	view, err := s.Ledger.CreateTransaction(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Message("transaction created").Field("transaction", view).Write(w)
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var p ledger.TransactionPatch
	if err := DecodeJSON(w, r, &p); err != nil {
		writeError(w, r, err)
		return
	}
	view, err := s.Ledger.UpdateTransaction(r.Context(), id, p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Message("transaction updated").Field("transaction", view).Write(w)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.Ledger.DeleteTransaction(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Message("transaction deleted").Write(w)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	p := NewRequestParser(r)
	start, end := p.DateOrNil("start_date"), p.DateOrNil("end_date")
	report, err := s.Ledger.Report(r.Context(), start, end)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Raw(report).Write(w)
}

func (s *Server) handleListInstallments(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	insts, err := s.Ledger.ListInstallments(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Field("installments", insts).Write(w)
}

func (s *Server) handleAppendInstallments(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var in struct {
		Installments []ledger.ScheduleEntry `json:"installments"`
	}
	if err := DecodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	created, err := s.Ledger.CreateInstallmentSchedule(r.Context(), id, in.Installments)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Message("installments added").Field("installments", created).Write(w)
}

func (s *Server) handleUpdateInstallment(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	instID, err := PathID(r, "instId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var upd ledger.InstallmentUpdate
	if err := DecodeJSON(w, r, &upd); err != nil {
		writeError(w, r, err)
		return
	}
	inst, err := s.Ledger.RecordInstallmentPayment(r.Context(), id, instID, upd)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Message("installment updated").Field("installment", inst).Write(w)
}

// handleOverdueInstallments lists unpaid installments due before as_of,
// today when absent.
func (s *Server) handleOverdueInstallments(w http.ResponseWriter, r *http.Request) {
	p := NewRequestParser(r)
	asOf := p.Date("as_of")
	if err := p.Err(); err != nil {
		writeError(w, r, err)
		return
	}
	day := core.DateOf(time.Now())
	if asOf != nil {
		day = *asOf
	}
	insts, err := s.Ledger.ListOverdueInstallments(r.Context(), day)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Field("installments", insts).Field("as_of", day).Write(w)
}
