package core

import "slices"

type (
	Role              string
	TransactionType   string
	TransactionStatus string
	InstallmentStatus string
	PaymentMethod     string
	ClientStatus      string
	CaseType          string
	CaseStatus        string
	LeadStatus        string
	LeadSource        string
	DocumentType      string
	EventType         string
	EventStatus       string
	TemplateType      string
	TemplateCategory  string

	// Option is a code and its display label, served by the lookup endpoints.
	Option struct {
		Value string `json:"value"`
		Label string `json:"label"`
	}
)

const (
	RoleAdmin     Role = "admin"
	RoleLawyer    Role = "lawyer"
	RoleSecretary Role = "secretary"
	RoleIntern    Role = "intern"

	Income  TransactionType = "income"
	Expense TransactionType = "expense"

	TxPending   TransactionStatus = "pending"
	TxPaid      TransactionStatus = "paid"
	TxPartial   TransactionStatus = "partial"
	TxCancelled TransactionStatus = "cancelled"

	InstPending InstallmentStatus = "pending"
	InstPaid    InstallmentStatus = "paid"
	InstOverdue InstallmentStatus = "overdue"

	ClientActive    ClientStatus = "active"
	ClientPassive   ClientStatus = "passive"
	ClientPotential ClientStatus = "potential"

	CaseOpen       CaseStatus = "open"
	CasePending    CaseStatus = "pending"
	CaseInProgress CaseStatus = "in_progress"
	CaseWon        CaseStatus = "won"
	CaseLost       CaseStatus = "lost"
	CaseSettled    CaseStatus = "settled"
	CaseClosed     CaseStatus = "closed"
	CaseAppealed   CaseStatus = "appealed"

	LeadNew         LeadStatus = "new"
	LeadContacted   LeadStatus = "contacted"
	LeadQualified   LeadStatus = "qualified"
	LeadProposal    LeadStatus = "proposal"
	LeadNegotiation LeadStatus = "negotiation"
	LeadConverted   LeadStatus = "converted"
	LeadLost        LeadStatus = "lost"

	EventHearing EventType = "hearing"

	EventScheduled EventStatus = "scheduled"
	EventCompleted EventStatus = "completed"
	EventCancelled EventStatus = "cancelled"
	EventPostponed EventStatus = "postponed"

	TemplateGeneral TemplateCategory = "general"
)

const (
	DefaultCurrency = "TRY"
	DefaultReminder = 60

	RelatedClient = "client"
	RelatedCase   = "case"
)

var (
	RoleOptions = []Option{
		{"admin", "Administrator"},
		{"lawyer", "Lawyer"},
		{"secretary", "Secretary"},
		{"intern", "Intern"},
	}

	IncomeCategoryOptions = []Option{
		{"consultation_fee", "Consultation fee"},
		{"case_fee", "Case fee"},
		{"retainer_fee", "Retainer fee"},
		{"court_expense_refund", "Court expense refund"},
		{"other_income", "Other income"},
	}

	ExpenseCategoryOptions = []Option{
		{"court_expense", "Court expense"},
		{"travel_expense", "Travel expense"},
		{"office_expense", "Office expense"},
		{"personnel_expense", "Personnel expense"},
		{"tax_payment", "Tax payment"},
		{"other_expense", "Other expense"},
	}

	PaymentMethodOptions = []Option{
		{"cash", "Cash"},
		{"bank_transfer", "Bank transfer"},
		{"credit_card", "Credit card"},
		{"check", "Check"},
	}

	TransactionStatusOptions = []Option{
		{"pending", "Pending"},
		{"paid", "Paid"},
		{"partial", "Partially paid"},
		{"cancelled", "Cancelled"},
	}

	ClientStatusOptions = []Option{
		{"active", "Active"},
		{"passive", "Passive"},
		{"potential", "Potential"},
	}

	CaseTypeOptions = []Option{
		{"criminal", "Criminal"},
		{"civil", "Civil"},
		{"family", "Family"},
		{"labor", "Labor"},
		{"commercial", "Commercial"},
		{"administrative", "Administrative"},
		{"tax", "Tax"},
		{"execution", "Enforcement"},
		{"other", "Other"},
	}

	CaseStatusOptions = []Option{
		{"open", "Open"},
		{"pending", "Pending"},
		{"in_progress", "In progress"},
		{"won", "Won"},
		{"lost", "Lost"},
		{"settled", "Settled"},
		{"closed", "Closed"},
		{"appealed", "Appealed"},
	}

	LeadStatusOptions = []Option{
		{"new", "New"},
		{"contacted", "Contacted"},
		{"qualified", "Qualified"},
		{"proposal", "Proposal sent"},
		{"negotiation", "Negotiation"},
		{"converted", "Converted"},
		{"lost", "Lost"},
	}

	LeadSourceOptions = []Option{
		{"referral", "Referral"},
		{"website", "Website"},
		{"social_media", "Social media"},
		{"advertisement", "Advertisement"},
		{"walk_in", "Walk-in"},
		{"phone", "Phone"},
		{"other", "Other"},
	}

	DocumentTypeOptions = []Option{
		{"petition", "Petition"},
		{"contract", "Contract"},
		{"court_decision", "Court decision"},
		{"evidence", "Evidence"},
		{"correspondence", "Correspondence"},
		{"power_of_attorney", "Power of attorney"},
		{"identity", "Identity document"},
		{"invoice", "Invoice"},
		{"other", "Other"},
	}

	EventTypeOptions = []Option{
		{"hearing", "Hearing"},
		{"meeting", "Meeting"},
		{"deadline", "Deadline"},
		{"appointment", "Appointment"},
		{"reminder", "Reminder"},
		{"other", "Other"},
	}

	EventStatusOptions = []Option{
		{"scheduled", "Scheduled"},
		{"completed", "Completed"},
		{"cancelled", "Cancelled"},
		{"postponed", "Postponed"},
	}

	TemplateTypeOptions = []Option{
		{"petition", "Petition"},
		{"contract", "Contract"},
		{"power_of_attorney", "Power of attorney"},
		{"letter", "Letter"},
		{"invoice", "Invoice"},
		{"other", "Other"},
	}

	TemplateCategoryOptions = []Option{
		{"criminal", "Criminal"},
		{"civil", "Civil"},
		{"family", "Family"},
		{"labor", "Labor"},
		{"commercial", "Commercial"},
		{"administrative", "Administrative"},
		{"general", "General"},
	}
)

func inOptions(opts []Option, v string) bool {
	return slices.ContainsFunc(opts, func(o Option) bool { return o.Value == v })
}

func (r Role) Valid() bool              { return inOptions(RoleOptions, string(r)) }
func (t TransactionType) Valid() bool   { return t == Income || t == Expense }
func (s TransactionStatus) Valid() bool { return inOptions(TransactionStatusOptions, string(s)) }
func (p PaymentMethod) Valid() bool     { return inOptions(PaymentMethodOptions, string(p)) }
func (s ClientStatus) Valid() bool      { return inOptions(ClientStatusOptions, string(s)) }
func (c CaseType) Valid() bool          { return inOptions(CaseTypeOptions, string(c)) }
func (s CaseStatus) Valid() bool        { return inOptions(CaseStatusOptions, string(s)) }
func (s LeadStatus) Valid() bool        { return inOptions(LeadStatusOptions, string(s)) }
func (s LeadSource) Valid() bool        { return inOptions(LeadSourceOptions, string(s)) }
func (d DocumentType) Valid() bool      { return inOptions(DocumentTypeOptions, string(d)) }
func (e EventType) Valid() bool         { return inOptions(EventTypeOptions, string(e)) }
func (s EventStatus) Valid() bool       { return inOptions(EventStatusOptions, string(s)) }
func (t TemplateType) Valid() bool      { return inOptions(TemplateTypeOptions, string(t)) }
func (c TemplateCategory) Valid() bool  { return inOptions(TemplateCategoryOptions, string(c)) }

func (s InstallmentStatus) Valid() bool {
	return s == InstPending || s == InstPaid || s == InstOverdue
}

// IsActive reports whether a case in this status is still being worked.
func (s CaseStatus) IsActive() bool {
	switch s {
	case CaseOpen, CasePending, CaseInProgress, CaseAppealed:
		return true
	}
	return false
}

// ActiveCaseStatuses lists the statuses counted as active.
func ActiveCaseStatuses() []CaseStatus {
	return []CaseStatus{CaseOpen, CasePending, CaseInProgress, CaseAppealed}
}

// ValidCategory reports whether category belongs to the category set of t.
func ValidCategory(t TransactionType, category string) bool {
	switch t {
	case Income:
		return inOptions(IncomeCategoryOptions, category)
	case Expense:
		return inOptions(ExpenseCategoryOptions, category)
	}
	return false
}
