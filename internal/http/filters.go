package http

import "lawdesk/internal/core"

// Query string filters per resource. Enum values are passed through; storage
// matches them exactly, so an unknown value yields an empty list.

func userFilter(p *RequestParser) core.UserFilter {
	return core.UserFilter{
		Search:   p.String("search"),
		Role:     core.Role(p.String("role")),
		IsActive: p.Bool("is_active"),
	}
}

func clientFilter(p *RequestParser) core.ClientFilter {
	return core.ClientFilter{
		Search: p.String("search"),
		Status: core.ClientStatus(p.String("status")),
	}
}

func caseFilter(p *RequestParser) core.CaseFilter {
	return core.CaseFilter{
		Search:   p.String("search"),
		Status:   core.CaseStatus(p.String("status")),
		CaseType: core.CaseType(p.String("case_type")),
		ClientID: p.Int64("client_id"),
		LawyerID: p.Int64("lawyer_id"),
	}
}

func transactionFilter(p *RequestParser) core.TransactionFilter {
	return core.TransactionFilter{
		Type:     core.TransactionType(p.String("type")),
		Status:   core.TransactionStatus(p.String("status")),
		ClientID: p.Int64("client_id"),
		CaseID:   p.Int64("case_id"),
		Start:    p.Date("start_date"),
		End:      p.Date("end_date"),
	}
}

func leadFilter(p *RequestParser) core.LeadFilter {
	return core.LeadFilter{
		Search: p.String("search"),
		Status: core.LeadStatus(p.String("status")),
		Source: core.LeadSource(p.String("source")),
	}
}

func documentFilter(p *RequestParser) core.DocumentFilter {
	return core.DocumentFilter{
		Search:       p.String("search"),
		DocumentType: core.DocumentType(p.String("document_type")),
		RelatedTo:    p.String("related_to"),
		RelatedID:    p.Int64("related_id"),
	}
}

func eventFilter(p *RequestParser) core.EventFilter {
	return core.EventFilter{
		EventType: core.EventType(p.String("event_type")),
		Status:    core.EventStatus(p.String("status")),
		RelatedTo: p.String("related_to"),
		RelatedID: p.Int64("related_id"),
		From:      p.DateTime("start_date"),
		To:        p.DateTime("end_date"),
	}
}

func templateFilter(p *RequestParser) core.TemplateFilter {
	return core.TemplateFilter{
		Search:       p.String("search"),
		TemplateType: core.TemplateType(p.String("template_type")),
		Category:     core.TemplateCategory(p.String("category")),
	}
}
