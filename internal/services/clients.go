package services

import (
	"context"
	"log/slog"
	"strings"

	"lawdesk/internal/auth"
	"lawdesk/internal/core"
	"lawdesk/internal/storage"
)

type (
	NewClient struct {
		NationalID *string           `json:"national_id"`
		Name       string            `json:"name"`
		Surname    string            `json:"surname"`
		Email      string            `json:"email"`
		Phone      string            `json:"phone"`
		Address    string            `json:"address"`
		BirthDate  *core.Date        `json:"birth_date"`
		Occupation string            `json:"occupation"`
		Notes      string            `json:"notes"`
		Status     core.ClientStatus `json:"status"`
	}

	ClientPatch struct {
		NationalID *string            `json:"national_id"`
		Name       *string            `json:"name"`
		Surname    *string            `json:"surname"`
		Email      *string            `json:"email"`
		Phone      *string            `json:"phone"`
		Address    *string            `json:"address"`
		BirthDate  *core.Date         `json:"birth_date"`
		Occupation *string            `json:"occupation"`
		Notes      *string            `json:"notes"`
		Status     *core.ClientStatus `json:"status"`
	}
)

type ClientService struct {
	repo   *storage.SQLiteRepository
	policy *auth.Policy
}

func NewClientService(repo *storage.SQLiteRepository, policy *auth.Policy) *ClientService {
	return &ClientService{repo: repo, policy: policy}
}

func (s *ClientService) List(ctx context.Context, f core.ClientFilter, lq core.ListQuery) (Page[core.Client], error) {
	if err := s.policy.Check(ctx, auth.ActionRead, auth.KindClient); err != nil {
		return Page[core.Client]{}, err
	}
	items, total, err := s.repo.ListClients(ctx, f, normalizeQuery(lq))
	if err != nil {
		return Page[core.Client]{}, err
	}
	return Page[core.Client]{Items: items, Total: total}, nil
}

func (s *ClientService) Get(ctx context.Context, id int64) (core.Client, error) {
	if err := s.policy.Check(ctx, auth.ActionRead, auth.KindClient); err != nil {
		return core.Client{}, err
	}
	return s.repo.GetClient(ctx, id)
}

func (in NewClient) client() core.Client {
	c := core.Client{
		NationalID: in.NationalID,
		Name:       strings.TrimSpace(in.Name),
		Surname:    strings.TrimSpace(in.Surname),
		Email:      strings.TrimSpace(in.Email),
		Phone:      strings.TrimSpace(in.Phone),
		Address:    strings.TrimSpace(in.Address),
		BirthDate:  in.BirthDate,
		Occupation: strings.TrimSpace(in.Occupation),
		Notes:      in.Notes,
		Status:     in.Status,
	}
	if c.Status == "" {
		c.Status = core.ClientActive
	}
	return c
}

// Create inserts a client. A duplicate national id is a Conflict.
func (s *ClientService) Create(ctx context.Context, in NewClient) (core.Client, error) {
	if err := s.policy.Check(ctx, auth.ActionCreate, auth.KindClient); err != nil {
		return core.Client{}, err
	}
	c := in.client()
	c.CreatedBy = actorID(ctx)
	if err := c.Validate(); err != nil {
		return core.Client{}, err
	}
	created, err := s.repo.CreateClient(ctx, c)
	if err != nil {
		return core.Client{}, err
	}
	slog.InfoContext(ctx, "Client created", "client_id", created.ID)
	return created, nil
}

func (s *ClientService) Update(ctx context.Context, id int64, p ClientPatch) (core.Client, error) {
	if err := s.policy.Check(ctx, auth.ActionUpdate, auth.KindClient); err != nil {
		return core.Client{}, err
	}
	c, err := s.repo.GetClient(ctx, id)
	if err != nil {
		return core.Client{}, err
	}
	if p.NationalID != nil {
		c.NationalID = p.NationalID
	}
	trimPtr(&c.Name, p.Name)
	trimPtr(&c.Surname, p.Surname)
	trimPtr(&c.Email, p.Email)
	trimPtr(&c.Phone, p.Phone)
	trimPtr(&c.Address, p.Address)
	trimPtr(&c.Occupation, p.Occupation)
	if p.Notes != nil {
		c.Notes = *p.Notes
	}
	if p.BirthDate != nil {
		c.BirthDate = p.BirthDate
	}
	if p.Status != nil {
		c.Status = *p.Status
	}
	if err := c.Validate(); err != nil {
		return core.Client{}, err
	}
	if err := s.repo.UpdateClient(ctx, c); err != nil {
		return core.Client{}, err
	}
	return s.repo.GetClient(ctx, id)
}

// Delete removes a client without cases.
func (s *ClientService) Delete(ctx context.Context, id int64) error {
	if err := s.policy.Check(ctx, auth.ActionDelete, auth.KindClient); err != nil {
		return err
	}
	n, err := s.repo.CountClientCases(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return core.Conflict("client %d has %d cases and cannot be deleted", id, n)
	}
	if err := s.repo.DeleteClient(ctx, id); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Client deleted", "client_id", id)
	return nil
}

// Cases lists every case of the client.
func (s *ClientService) Cases(ctx context.Context, id int64) ([]core.Case, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	cases, _, err := s.repo.ListCases(ctx, core.CaseFilter{ClientID: &id}, core.ListQuery{})
	return cases, err
}

// Transactions lists every transaction of the client, newest first.
func (s *ClientService) Transactions(ctx context.Context, id int64) ([]core.Transaction, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	if err := s.policy.Check(ctx, auth.ActionRead, auth.KindTransaction); err != nil {
		return nil, err
	}
	txs, _, err := s.repo.ListTransactions(ctx, core.TransactionFilter{ClientID: &id}, core.ListQuery{})
	return txs, err
}
