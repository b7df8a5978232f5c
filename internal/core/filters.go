package core

import "time"

type (
	// ListQuery carries paging and an optional sort for list endpoints.
	ListQuery struct {
		Page Page
		Sort Sort
	}

	TransactionFilter struct {
		Type     TransactionType
		Status   TransactionStatus
		ClientID *int64
		CaseID   *int64
		Start    *Date
		End      *Date
	}

	// AmountQuery selects transactions for aggregation. Empty fields match all.
	AmountQuery struct {
		Type   TransactionType
		Status TransactionStatus
		Start  *Date
		End    *Date
	}

	UserFilter struct {
		Search   string
		Role     Role
		IsActive *bool
	}

	ClientFilter struct {
		Search string
		Status ClientStatus
	}

	CaseFilter struct {
		Search   string
		Status   CaseStatus
		CaseType CaseType
		ClientID *int64
		LawyerID *int64
	}

	LeadFilter struct {
		Search string
		Status LeadStatus
		Source LeadSource
	}

	DocumentFilter struct {
		Search       string
		DocumentType DocumentType
		RelatedTo    string
		RelatedID    *int64
	}

	EventFilter struct {
		EventType EventType
		Status    EventStatus
		RelatedTo string
		RelatedID *int64
		From      *time.Time
		To        *time.Time
	}

	// TemplateFilter lists public templates plus those owned by ViewerID.
	TemplateFilter struct {
		Search       string
		TemplateType TemplateType
		Category     TemplateCategory
		ViewerID     int64
	}
)
