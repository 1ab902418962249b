package authz

import (
	"fmt"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	"github.com/cmlabs-hris/payroll-engine/internal/domain/user"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/apperror"
)

const rbacModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = r.sub == p.sub && r.obj == p.obj && r.act == p.act
`

// Authorizer checks actor permissions before any side effect.
type Authorizer interface {
	Authorize(actor user.Actor, perm user.Permission) error
}

type casbinAuthorizer struct {
	enforcer *casbin.Enforcer
}

// NewAuthorizer builds an enforcer seeded from a role to permission map.
func NewAuthorizer(policy map[user.Role][]user.Permission) (Authorizer, error) {
	m, err := model.NewModelFromString(rbacModel)
	if err != nil {
		return nil, fmt.Errorf("failed to load authz model: %w", err)
	}
	enforcer, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("failed to create enforcer: %w", err)
	}

	var rules [][]string
	for role, perms := range policy {
		for _, p := range perms {
			obj, act := split(p)
			rules = append(rules, []string{SubjectFromRole(role), obj, act})
		}
	}
	if len(rules) > 0 {
		if _, err := enforcer.AddPolicies(rules); err != nil {
			return nil, fmt.Errorf("failed to seed policies: %w", err)
		}
	}

	return &casbinAuthorizer{enforcer: enforcer}, nil
}

func SubjectFromRole(role user.Role) string {
	slug := strings.TrimSpace(strings.ToLower(string(role)))
	if slug == "" {
		slug = "anonymous"
	}
	return "role:" + slug
}

// split turns "payroll.approve" into ("payroll", "approve").
func split(p user.Permission) (string, string) {
	obj, act, ok := strings.Cut(string(p), ".")
	if !ok {
		return string(p), "*"
	}
	return obj, act
}

func (a *casbinAuthorizer) Authorize(actor user.Actor, perm user.Permission) error {
	obj, act := split(perm)
	ok, err := a.enforcer.Enforce(SubjectFromRole(actor.Role), obj, act)
	if err != nil {
		return fmt.Errorf("failed to evaluate permission %s: %w", perm, err)
	}
	if !ok {
		return &apperror.PermissionError{Permission: string(perm), Role: string(actor.Role)}
	}
	return nil
}
