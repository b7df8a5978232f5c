package auth

import (
	"context"
	"fmt"

	"lawdesk/internal/core"
)

type (
	Action string
	Kind   string
)

const (
	ActionRead   Action = "read"
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
	ActionManage Action = "manage"

	KindUser        Kind = "user"
	KindClient      Kind = "client"
	KindCase        Kind = "case"
	KindTransaction Kind = "transaction"
	KindLead        Kind = "lead"
	KindDocument    Kind = "document"
	KindEvent       Kind = "event"
	KindTemplate    Kind = "template"
	KindReport      Kind = "report"
	KindBackup      Kind = "backup"
)

var businessKinds = []Kind{
	KindClient, KindCase, KindTransaction, KindLead,
	KindDocument, KindEvent, KindTemplate,
}

type permission struct {
	action Action
	kind   Kind
}

// Policy maps each role to the actions it may take on each resource kind.
// Admins are granted everything.
type Policy struct {
	grants map[core.Role]map[permission]bool
}

// DefaultPolicy is the office policy: lawyers do everything on business data,
// secretaries cannot delete, interns cannot touch the ledger or reports.
func DefaultPolicy() *Policy {
	p := NewPolicy()
	for _, k := range businessKinds {
		p.Grant(core.RoleLawyer, k, ActionRead, ActionCreate, ActionUpdate, ActionDelete)
		p.Grant(core.RoleSecretary, k, ActionRead, ActionCreate, ActionUpdate)
		p.Grant(core.RoleIntern, k, ActionRead)
		if k != KindTransaction {
			p.Grant(core.RoleIntern, k, ActionCreate, ActionUpdate)
		}
	}
	p.Grant(core.RoleLawyer, KindReport, ActionRead)
	p.Grant(core.RoleSecretary, KindReport, ActionRead)
	for _, r := range []core.Role{core.RoleLawyer, core.RoleSecretary, core.RoleIntern} {
		p.Grant(r, KindUser, ActionRead)
	}
	return p
}

// NewPolicy returns a policy granting nothing beyond admin.
func NewPolicy() *Policy {
	return &Policy{grants: make(map[core.Role]map[permission]bool)}
}

func (p *Policy) Grant(role core.Role, kind Kind, actions ...Action) {
	set, ok := p.grants[role]
	if !ok {
		set = make(map[permission]bool)
		p.grants[role] = set
	}
	for _, a := range actions {
		set[permission{a, kind}] = true
	}
}

// Allows reports whether role may perform action on kind.
func (p *Policy) Allows(role core.Role, action Action, kind Kind) bool {
	if role == core.RoleAdmin {
		return true
	}
	return p.grants[role][permission{action, kind}]
}

// Authorize returns an AuthorizationError when principal may not act.
func (p *Policy) Authorize(principal Principal, action Action, kind Kind) error {
	if !principal.Active {
		return core.Forbidden("user account is disabled")
	}
	if !p.Allows(principal.Role, action, kind) {
		return core.Forbidden(fmt.Sprintf("role %s may not %s %s", principal.Role, action, kind))
	}
	return nil
}

// Check authorizes the principal carried by ctx.
func (p *Policy) Check(ctx context.Context, action Action, kind Kind) error {
	principal, ok := PrincipalFrom(ctx)
	if !ok {
		return core.Forbidden("authentication required")
	}
	return p.Authorize(principal, action, kind)
}
