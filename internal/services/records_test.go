package services

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"lawdesk/internal/auth"
	"lawdesk/internal/core"
)

func TestFormatCaseNumber(t *testing.T) {
	tests := []struct {
		year, seq int
		want      string
	}{
		{2025, 1, "2025/0001"},
		{2025, 42, "2025/0042"},
		{2026, 12345, "2026/12345"},
	}
	for _, tt := range tests {
		if got := FormatCaseNumber(tt.year, tt.seq); got != tt.want {
			t.Errorf("FormatCaseNumber(%d, %d) = %q, want %q", tt.year, tt.seq, got, tt.want)
		}
	}
}

func TestSplitName(t *testing.T) {
	tests := []struct {
		in, name, surname string
	}{
		{"Ahmet Yilmaz", "Ahmet", "Yilmaz"},
		{"  Ayse Nur Demir ", "Ayse", "Nur Demir"},
		{"Cher", "Cher", ""},
		{"", "", ""},
	}
	for _, tt := range tests {
		name, surname := SplitName(tt.in)
		if name != tt.name || surname != tt.surname {
			t.Errorf("SplitName(%q) = %q, %q; want %q, %q", tt.in, name, surname, tt.name, tt.surname)
		}
	}
}

func TestClientLifecycle(t *testing.T) {
	repo := newTestRepo(t)
	policy := auth.DefaultPolicy()
	clients := NewClientService(repo, policy)
	cases := NewCaseService(repo, policy)
	lawyer := seedUser(t, repo, "lawyer@example.com", core.RoleLawyer)
	secretary := seedUser(t, repo, "sec@example.com", core.RoleSecretary)
	ctx := as(lawyer)

	nid := "12345678901"
	c, err := clients.Create(ctx, NewClient{NationalID: &nid, Name: " Ali ", Surname: "Veli"})
	if err != nil {
		t.Fatalf("create client: %v", err)
	}
	if c.Name != "Ali" || c.Status != core.ClientActive || c.CreatedBy == nil || *c.CreatedBy != lawyer.ID {
		t.Fatalf("unexpected client %+v", c)
	}
	if _, err := clients.Create(ctx, NewClient{NationalID: &nid, Name: "Dup", Surname: "Licate"}); !errors.Is(err, core.ErrConflict) {
		t.Fatalf("expected duplicate national id conflict, got %v", err)
	}
	if _, err := clients.Create(ctx, NewClient{Name: "NoSurname"}); !errors.Is(err, core.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	if _, err := cases.Create(ctx, NewCase{ClientID: c.ID, CaseType: "civil", Subject: "Tenancy dispute"}); err != nil {
		t.Fatalf("create case: %v", err)
	}
	if err := clients.Delete(as(secretary), c.ID); !errors.Is(err, core.ErrAuthorization) {
		t.Fatalf("expected secretary delete to be denied, got %v", err)
	}
	if err := clients.Delete(ctx, c.ID); !errors.Is(err, core.ErrConflict) {
		t.Fatalf("expected conflict deleting a client with cases, got %v", err)
	}

	related, err := clients.Cases(ctx, c.ID)
	if err != nil || len(related) != 1 {
		t.Fatalf("expected one case, got %d (%v)", len(related), err)
	}

	page, err := clients.List(ctx, core.ClientFilter{Search: "vel"}, core.ListQuery{})
	if err != nil || page.Total != 1 || len(page.Items) != 1 {
		t.Fatalf("expected search to match, got %+v %v", page, err)
	}
}

func TestCaseNumbering(t *testing.T) {
	repo := newTestRepo(t)
	policy := auth.DefaultPolicy()
	lawyer := seedUser(t, repo, "lawyer@example.com", core.RoleLawyer)
	ctx := as(lawyer)
	client, err := NewClientService(repo, policy).Create(ctx, NewClient{Name: "Ali", Surname: "Veli"})
	if err != nil {
		t.Fatal(err)
	}

	cases := NewCaseService(repo, policy)
	cases.now = func() time.Time { return time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC) }

	for i := 1; i <= 3; i++ {
		c, err := cases.Create(ctx, NewCase{ClientID: client.ID, CaseType: "civil", Subject: fmt.Sprintf("Case %d", i)})
		if err != nil {
			t.Fatalf("create case %d: %v", i, err)
		}
		if want := fmt.Sprintf("2025/%04d", i); c.CaseNumber != want {
			t.Fatalf("case %d: got number %q, want %q", i, c.CaseNumber, want)
		}
		if c.LawyerID == nil || *c.LawyerID != lawyer.ID {
			t.Fatalf("expected lawyer to default to the caller, got %v", c.LawyerID)
		}
	}

	if _, err := cases.Create(ctx, NewCase{CaseNumber: "2025/0002", ClientID: client.ID, CaseType: "civil", Subject: "dup"}); !errors.Is(err, core.ErrConflict) {
		t.Fatalf("expected duplicate number conflict, got %v", err)
	}
	if _, err := cases.Create(ctx, NewCase{ClientID: 9999, CaseType: "civil", Subject: "orphan"}); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected missing client to be NotFound, got %v", err)
	}

	empty := ""
	if _, err := cases.Update(ctx, 1, CasePatch{CaseNumber: &empty}); !errors.Is(err, core.ErrValidation) {
		t.Fatalf("expected empty case number to be rejected, got %v", err)
	}
}

func TestCaseDeleteWithTransactions(t *testing.T) {
	repo := newTestRepo(t)
	policy := auth.DefaultPolicy()
	lawyer := seedUser(t, repo, "lawyer@example.com", core.RoleLawyer)
	ctx := as(lawyer)
	client, err := NewClientService(repo, policy).Create(ctx, NewClient{Name: "Ali", Surname: "Veli"})
	if err != nil {
		t.Fatal(err)
	}
	cases := NewCaseService(repo, policy)
	c, err := cases.Create(ctx, NewCase{ClientID: client.ID, CaseType: "labor", Subject: "Severance"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := repo.InsertTransaction(ctx, core.Transaction{
		Type: core.Income, Category: "case_fee", Amount: core.Money{Cents: 5000}, Currency: "TRY",
		Date: core.NewDate(2025, 1, 1), Status: core.TxPending, CaseID: &c.ID,
	}); err != nil {
		t.Fatal(err)
	}
	if err := cases.Delete(ctx, c.ID); !errors.Is(err, core.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestLeadConvert(t *testing.T) {
	repo := newTestRepo(t)
	policy := auth.DefaultPolicy()
	leads := NewLeadService(repo, policy)
	leads.now = func() time.Time { return time.Date(2025, 5, 20, 0, 0, 0, 0, time.UTC) }
	lawyer := seedUser(t, repo, "lawyer@example.com", core.RoleLawyer)
	ctx := as(lawyer)

	followUp := core.NewDate(2025, 5, 1)
	lead, err := leads.Create(ctx, NewLead{
		Name: "Zeynep Arslan", ContactInfo: "555 0000", Description: "Divorce inquiry",
		Source: "referral", FollowUpDate: &followUp,
	})
	if err != nil {
		t.Fatalf("create lead: %v", err)
	}
	if lead.Status != core.LeadNew || !lead.NeedsFollowUp || lead.IsConverted {
		t.Fatalf("unexpected derived flags %+v", lead)
	}

	converted := core.LeadConverted
	if _, err := leads.Update(ctx, lead.ID, LeadPatch{Status: &converted}); !errors.Is(err, core.ErrValidation) {
		t.Fatalf("expected direct conversion via update to be rejected, got %v", err)
	}

	email := "zeynep@example.com"
	conv, err := leads.Convert(ctx, lead.ID, ConvertLead{Email: &email})
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if conv.Client.Name != "Zeynep" || conv.Client.Surname != "Arslan" || conv.Client.Email != email {
		t.Fatalf("unexpected client %+v", conv.Client)
	}
	if conv.Client.Phone != "555 0000" || conv.Client.Status != core.ClientActive {
		t.Fatalf("expected contact info and active status, got %+v", conv.Client)
	}
	if conv.Lead.Status != core.LeadConverted || conv.Lead.ConvertedClientID == nil || *conv.Lead.ConvertedClientID != conv.Client.ID {
		t.Fatalf("lead not linked to client: %+v", conv.Lead)
	}
	if !conv.Lead.IsConverted || conv.Lead.NeedsFollowUp {
		t.Fatalf("unexpected derived flags after conversion %+v", conv.Lead)
	}

	if _, err := leads.Convert(ctx, lead.ID, ConvertLead{}); !errors.Is(err, core.ErrConflict) {
		t.Fatalf("expected second conversion to conflict, got %v", err)
	}
}

func TestLeadConvertSingleNameRollsBack(t *testing.T) {
	repo := newTestRepo(t)
	policy := auth.DefaultPolicy()
	leads := NewLeadService(repo, policy)
	lawyer := seedUser(t, repo, "lawyer@example.com", core.RoleLawyer)
	ctx := as(lawyer)

	lead, err := leads.Create(ctx, NewLead{Name: "Madonna"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := leads.Convert(ctx, lead.ID, ConvertLead{}); !errors.Is(err, core.ErrValidation) {
		t.Fatalf("expected missing surname to fail validation, got %v", err)
	}
	got, err := leads.Get(ctx, lead.ID)
	if err != nil || got.Status != core.LeadNew {
		t.Fatalf("expected lead untouched, got %+v %v", got, err)
	}

	surname := "Ciccone"
	if _, err := leads.Convert(ctx, lead.ID, ConvertLead{Surname: &surname}); err != nil {
		t.Fatalf("convert with surname override: %v", err)
	}
}
