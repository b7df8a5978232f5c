package services

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"lawdesk/internal/auth"
	"lawdesk/internal/core"
	"lawdesk/internal/storage"
)

type (
	NewLead struct {
		Name           string          `json:"name"`
		ContactInfo    string          `json:"contact_info"`
		CaseType       string          `json:"case_type"`
		Description    string          `json:"description"`
		Source         core.LeadSource `json:"source"`
		Status         core.LeadStatus `json:"status"`
		EstimatedValue *core.Money     `json:"estimated_value"`
		FollowUpDate   *core.Date      `json:"follow_up_date"`
		Notes          string          `json:"notes"`
	}

	LeadPatch struct {
		Name           *string          `json:"name"`
		ContactInfo    *string          `json:"contact_info"`
		CaseType       *string          `json:"case_type"`
		Description    *string          `json:"description"`
		Source         *core.LeadSource `json:"source"`
		Status         *core.LeadStatus `json:"status"`
		EstimatedValue *core.Money      `json:"estimated_value"`
		FollowUpDate   *core.Date       `json:"follow_up_date"`
		Notes          *string          `json:"notes"`
	}

	// ConvertLead overrides the client fields derived from the lead.
	ConvertLead struct {
		Name    *string `json:"name"`
		Surname *string `json:"surname"`
		Phone   *string `json:"phone"`
		Email   *string `json:"email"`
	}

	Conversion struct {
		Client core.Client `json:"client"`
		Lead   core.Lead   `json:"lead"`
	}
)

type LeadService struct {
	repo   *storage.SQLiteRepository
	policy *auth.Policy
	now    func() time.Time
}

func NewLeadService(repo *storage.SQLiteRepository, policy *auth.Policy) *LeadService {
	return &LeadService{repo: repo, policy: policy, now: time.Now}
}

func (s *LeadService) today() core.Date {
	return core.DateOf(s.now())
}

func (s *LeadService) List(ctx context.Context, f core.LeadFilter, lq core.ListQuery) (Page[core.Lead], error) {
	if err := s.policy.Check(ctx, auth.ActionRead, auth.KindLead); err != nil {
		return Page[core.Lead]{}, err
	}
	items, total, err := s.repo.ListLeads(ctx, f, normalizeQuery(lq))
	if err != nil {
		return Page[core.Lead]{}, err
	}
	today := s.today()
	for i := range items {
		items[i].Derive(today)
	}
	return Page[core.Lead]{Items: items, Total: total}, nil
}

func (s *LeadService) Get(ctx context.Context, id int64) (core.Lead, error) {
	if err := s.policy.Check(ctx, auth.ActionRead, auth.KindLead); err != nil {
		return core.Lead{}, err
	}
	l, err := s.repo.GetLead(ctx, id)
	if err != nil {
		return core.Lead{}, err
	}
	l.Derive(s.today())
	return l, nil
}

func (s *LeadService) Create(ctx context.Context, in NewLead) (core.Lead, error) {
	if err := s.policy.Check(ctx, auth.ActionCreate, auth.KindLead); err != nil {
		return core.Lead{}, err
	}
	l := core.Lead{
		Name:           strings.TrimSpace(in.Name),
		ContactInfo:    strings.TrimSpace(in.ContactInfo),
		CaseType:       strings.TrimSpace(in.CaseType),
		Description:    in.Description,
		Source:         in.Source,
		Status:         in.Status,
		EstimatedValue: in.EstimatedValue,
		FollowUpDate:   in.FollowUpDate,
		Notes:          in.Notes,
		CreatedBy:      actorID(ctx),
	}
	if l.Status == "" {
		l.Status = core.LeadNew
	}
	if l.Status == core.LeadConverted {
		return core.Lead{}, core.NewValidationError("status", "use the convert operation to convert a lead")
	}
	if err := l.Validate(); err != nil {
		return core.Lead{}, err
	}
	created, err := s.repo.CreateLead(ctx, l)
	if err != nil {
		return core.Lead{}, err
	}
	created.Derive(s.today())
	slog.InfoContext(ctx, "Lead created", "lead_id", created.ID, "source", created.Source)
	return created, nil
}

func (s *LeadService) Update(ctx context.Context, id int64, p LeadPatch) (core.Lead, error) {
	if err := s.policy.Check(ctx, auth.ActionUpdate, auth.KindLead); err != nil {
		return core.Lead{}, err
	}
	l, err := s.repo.GetLead(ctx, id)
	if err != nil {
		return core.Lead{}, err
	}
	trimPtr(&l.Name, p.Name)
	trimPtr(&l.ContactInfo, p.ContactInfo)
	trimPtr(&l.CaseType, p.CaseType)
	if p.Description != nil {
		l.Description = *p.Description
	}
	if p.Source != nil {
		l.Source = *p.Source
	}
	if p.Status != nil {
		if *p.Status == core.LeadConverted && l.ConvertedClientID == nil {
			return core.Lead{}, core.NewValidationError("status", "use the convert operation to convert a lead")
		}
		l.Status = *p.Status
	}
	if p.EstimatedValue != nil {
		l.EstimatedValue = p.EstimatedValue
	}
	if p.FollowUpDate != nil {
		l.FollowUpDate = p.FollowUpDate
	}
	if p.Notes != nil {
		l.Notes = *p.Notes
	}
	if err := l.Validate(); err != nil {
		return core.Lead{}, err
	}
	if err := s.repo.UpdateLead(ctx, l); err != nil {
		return core.Lead{}, err
	}
	return s.Get(ctx, id)
}

func (s *LeadService) Delete(ctx context.Context, id int64) error {
	if err := s.policy.Check(ctx, auth.ActionDelete, auth.KindLead); err != nil {
		return err
	}
	return s.repo.DeleteLead(ctx, id)
}

// SplitName splits a full name at the first space into name and surname.
func SplitName(full string) (name, surname string) {
	name, surname, _ = strings.Cut(strings.TrimSpace(full), " ")
	return name, strings.TrimSpace(surname)
}

// Convert turns a lead into an active client. The client insert and the lead
// update commit together.
func (s *LeadService) Convert(ctx context.Context, id int64, in ConvertLead) (Conversion, error) {
	if err := s.policy.Check(ctx, auth.ActionUpdate, auth.KindLead); err != nil {
		return Conversion{}, err
	}
	if err := s.policy.Check(ctx, auth.ActionCreate, auth.KindClient); err != nil {
		return Conversion{}, err
	}

	var out Conversion
	err := s.repo.InTx(ctx, func(q *storage.Queries) error {
		lead, err := q.GetLead(ctx, id)
		if err != nil {
			return err
		}
		if lead.Status == core.LeadConverted {
			return core.Conflict("lead %d is already converted", id)
		}

		name, surname := SplitName(lead.Name)
		c := core.Client{
			Name:      name,
			Surname:   surname,
			Phone:     lead.ContactInfo,
			Notes:     strings.TrimSpace("Converted from lead. " + lead.Description),
			Status:    core.ClientActive,
			CreatedBy: actorID(ctx),
		}
		trimPtr(&c.Name, in.Name)
		trimPtr(&c.Surname, in.Surname)
		trimPtr(&c.Phone, in.Phone)
		trimPtr(&c.Email, in.Email)
		if err := c.Validate(); err != nil {
			return err
		}
		client, err := q.CreateClient(ctx, c)
		if err != nil {
			return err
		}

		lead.Status = core.LeadConverted
		lead.ConvertedClientID = &client.ID
		if err := q.UpdateLead(ctx, lead); err != nil {
			return err
		}
		lead, err = q.GetLead(ctx, id)
		if err != nil {
			return err
		}
		out = Conversion{Client: client, Lead: lead}
		return nil
	})
	if err != nil {
		return Conversion{}, err
	}
	out.Lead.Derive(s.today())
	slog.InfoContext(ctx, "Lead converted", "lead_id", id, "client_id", out.Client.ID)
	return out, nil
}
