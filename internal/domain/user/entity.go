package user

import "context"

type Role string

const (
	RoleOwner          Role = "owner"           // Company owner - full access
	RoleHRAdmin        Role = "hr_admin"        // Maintains salary structures and drafts
	RolePayrollManager Role = "payroll_manager" // Reviews and approves payroll
	RoleFinanceAdmin   Role = "finance_admin"   // Pays, locks and reopens payroll
	RoleEmployee       Role = "employee"        // Regular employee
	RoleSystem         Role = "system"          // Background jobs
)

// Actor is the authenticated caller of an engine operation.
type Actor struct {
	ID   string
	Role Role
}

// SystemActor is used by scheduled and queued jobs.
var SystemActor = Actor{ID: "system", Role: RoleSystem}

type actorKey struct{}

func WithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, a)
}

func ActorFromContext(ctx context.Context) (Actor, error) {
	a, ok := ctx.Value(actorKey{}).(Actor)
	if !ok || a.ID == "" {
		return Actor{}, ErrActorMissing
	}
	return a, nil
}
