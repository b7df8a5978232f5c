package services

import (
	"context"
	"strings"

	"lawdesk/internal/auth"
	"lawdesk/internal/core"
)

// actorID returns the caller's user id, or nil for system principals.
func actorID(ctx context.Context) *int64 {
	p, ok := auth.PrincipalFrom(ctx)
	if !ok || p.UserID == 0 {
		return nil
	}
	id := p.UserID
	return &id
}

func principal(ctx context.Context) auth.Principal {
	p, _ := auth.PrincipalFrom(ctx)
	return p
}

// trimPtr trims a patched string field in place.
func trimPtr(dst *string, src *string) {
	if src != nil {
		*dst = strings.TrimSpace(*src)
	}
}

// Page is one page of list results with the total match count.
type Page[T any] struct {
	Items []T
	Total int
}

func normalizeQuery(lq core.ListQuery) core.ListQuery {
	if lq.Page.Number < 1 {
		lq.Page.Number = 1
	}
	if lq.Page.PerPage < 1 {
		lq.Page.PerPage = DefaultPerPage
	}
	if lq.Page.PerPage > MaxPerPage {
		lq.Page.PerPage = MaxPerPage
	}
	return lq
}

const (
	DefaultPerPage = 10
	// MaxPerPage caps every paginated list.
	MaxPerPage = 100
)
