package usecase

import "strings"

const RoleCashier = "cashier"

// RolePolicy gates every role on an open shift except the exempt ones.
type RolePolicy struct {
	exempt map[string]bool
}

func NewRolePolicy(exemptRoles ...string) RolePolicy {
	p := RolePolicy{exempt: make(map[string]bool, len(exemptRoles))}
	for _, r := range exemptRoles {
		p.exempt[strings.ToLower(strings.TrimSpace(r))] = true
	}
	delete(p.exempt, RoleCashier)
	return p
}

func (p RolePolicy) RequiresOpenShift(role string) bool {
	role = strings.ToLower(strings.TrimSpace(role))
	if role == "" {
		role = RoleCashier
	}
	return !p.exempt[role]
}

// CashierOnlyPolicy gates only the cashier role.
type CashierOnlyPolicy struct{}

func (CashierOnlyPolicy) RequiresOpenShift(role string) bool {
	role = strings.ToLower(strings.TrimSpace(role))
	return role == "" || role == RoleCashier
}
