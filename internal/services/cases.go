package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"lawdesk/internal/auth"
	"lawdesk/internal/core"
	"lawdesk/internal/storage"
)

type (
	NewCase struct {
		CaseNumber    string          `json:"case_number"`
		ClientID      int64           `json:"client_id"`
		LawyerID      *int64          `json:"lawyer_id"`
		CaseType      core.CaseType   `json:"case_type"`
		CourtName     string          `json:"court_name"`
		Subject       string          `json:"subject"`
		OpposingParty string          `json:"opposing_party"`
		Status        core.CaseStatus `json:"status"`
		StartDate     *core.Date      `json:"start_date"`
		EndDate       *core.Date      `json:"end_date"`
		NextHearingAt *time.Time      `json:"next_hearing_at"`
		CaseValue     *core.Money     `json:"case_value"`
		Notes         string          `json:"notes"`
	}

	CasePatch struct {
		CaseNumber    *string          `json:"case_number"`
		ClientID      *int64           `json:"client_id"`
		LawyerID      *int64           `json:"lawyer_id"`
		CaseType      *core.CaseType   `json:"case_type"`
		CourtName     *string          `json:"court_name"`
		Subject       *string          `json:"subject"`
		OpposingParty *string          `json:"opposing_party"`
		Status        *core.CaseStatus `json:"status"`
		StartDate     *core.Date       `json:"start_date"`
		EndDate       *core.Date       `json:"end_date"`
		NextHearingAt *time.Time       `json:"next_hearing_at"`
		CaseValue     *core.Money      `json:"case_value"`
		Notes         *string          `json:"notes"`
	}
)

type CaseService struct {
	repo   *storage.SQLiteRepository
	policy *auth.Policy
	now    func() time.Time
}

func NewCaseService(repo *storage.SQLiteRepository, policy *auth.Policy) *CaseService {
	return &CaseService{repo: repo, policy: policy, now: time.Now}
}

// FormatCaseNumber renders the generated YYYY/NNNN case number.
func FormatCaseNumber(year, seq int) string {
	return fmt.Sprintf("%d/%04d", year, seq)
}

func (s *CaseService) List(ctx context.Context, f core.CaseFilter, lq core.ListQuery) (Page[core.Case], error) {
	if err := s.policy.Check(ctx, auth.ActionRead, auth.KindCase); err != nil {
		return Page[core.Case]{}, err
	}
	items, total, err := s.repo.ListCases(ctx, f, normalizeQuery(lq))
	if err != nil {
		return Page[core.Case]{}, err
	}
	return Page[core.Case]{Items: items, Total: total}, nil
}

// Get returns the case with client, lawyer and ledger totals.
func (s *CaseService) Get(ctx context.Context, id int64) (core.Case, error) {
	if err := s.policy.Check(ctx, auth.ActionRead, auth.KindCase); err != nil {
		return core.Case{}, err
	}
	return s.repo.GetCase(ctx, id)
}

// Create inserts a case. Without a case number the next YYYY/NNNN number of
// the current year is assigned inside the same write transaction.
func (s *CaseService) Create(ctx context.Context, in NewCase) (core.Case, error) {
	if err := s.policy.Check(ctx, auth.ActionCreate, auth.KindCase); err != nil {
		return core.Case{}, err
	}
	c := core.Case{
		CaseNumber:    strings.TrimSpace(in.CaseNumber),
		ClientID:      in.ClientID,
		LawyerID:      in.LawyerID,
		CaseType:      in.CaseType,
		CourtName:     strings.TrimSpace(in.CourtName),
		Subject:       strings.TrimSpace(in.Subject),
		OpposingParty: strings.TrimSpace(in.OpposingParty),
		Status:        in.Status,
		StartDate:     in.StartDate,
		EndDate:       in.EndDate,
		NextHearingAt: in.NextHearingAt,
		CaseValue:     in.CaseValue,
		Notes:         in.Notes,
	}
	if c.Status == "" {
		c.Status = core.CaseOpen
	}
	if c.LawyerID == nil {
		c.LawyerID = actorID(ctx)
	}
	if err := c.Validate(); err != nil {
		return core.Case{}, err
	}

	var created core.Case
	err := s.repo.InTx(ctx, func(q *storage.Queries) error {
		if _, err := q.GetClient(ctx, c.ClientID); err != nil {
			return err
		}
		if c.CaseNumber == "" {
			year := s.now().UTC().Year()
			seq, err := q.MaxCaseSequence(ctx, year)
			if err != nil {
				return err
			}
			c.CaseNumber = FormatCaseNumber(year, seq+1)
		}
		var err error
		created, err = q.CreateCase(ctx, c)
		return err
	})
	if err != nil {
		return core.Case{}, err
	}
	slog.InfoContext(ctx, "Case created", "case_id", created.ID, "case_number", created.CaseNumber)
	return created, nil
}

func (s *CaseService) Update(ctx context.Context, id int64, p CasePatch) (core.Case, error) {
	if err := s.policy.Check(ctx, auth.ActionUpdate, auth.KindCase); err != nil {
		return core.Case{}, err
	}
	c, err := s.repo.GetCase(ctx, id)
	if err != nil {
		return core.Case{}, err
	}
	trimPtr(&c.CaseNumber, p.CaseNumber)
	trimPtr(&c.CourtName, p.CourtName)
	trimPtr(&c.Subject, p.Subject)
	trimPtr(&c.OpposingParty, p.OpposingParty)
	if p.ClientID != nil {
		c.ClientID = *p.ClientID
	}
	if p.LawyerID != nil {
		c.LawyerID = p.LawyerID
	}
	if p.CaseType != nil {
		c.CaseType = *p.CaseType
	}
	if p.Status != nil {
		c.Status = *p.Status
	}
	if p.StartDate != nil {
		c.StartDate = p.StartDate
	}
	if p.EndDate != nil {
		c.EndDate = p.EndDate
	}
	if p.NextHearingAt != nil {
		c.NextHearingAt = p.NextHearingAt
	}
	if p.CaseValue != nil {
		c.CaseValue = p.CaseValue
	}
	if p.Notes != nil {
		c.Notes = *p.Notes
	}
	if c.CaseNumber == "" {
		return core.Case{}, core.NewValidationError("case_number", "case number cannot be empty")
	}
	if err := c.Validate(); err != nil {
		return core.Case{}, err
	}
	if err := s.repo.UpdateCase(ctx, c); err != nil {
		return core.Case{}, err
	}
	return s.repo.GetCase(ctx, id)
}

// Delete removes a case that has no ledger transactions.
func (s *CaseService) Delete(ctx context.Context, id int64) error {
	if err := s.policy.Check(ctx, auth.ActionDelete, auth.KindCase); err != nil {
		return err
	}
	err := s.repo.InTx(ctx, func(q *storage.Queries) error {
		n, err := q.CountCaseTransactions(ctx, id)
		if err != nil {
			return err
		}
		if n > 0 {
			return core.Conflict("case %d has %d transactions and cannot be deleted", id, n)
		}
		return q.DeleteCase(ctx, id)
	})
	if err != nil {
		return err
	}
	slog.InfoContext(ctx, "Case deleted", "case_id", id)
	return nil
}
