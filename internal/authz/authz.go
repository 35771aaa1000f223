// Package authz decides whether a principal may perform an action.
package authz

import (
	"context"

	"github.com/noah-isme/courselab-api/internal/models"
	appErrors "github.com/noah-isme/courselab-api/pkg/errors"
)

// Principal is the authenticated caller.
type Principal struct {
	UserID string
	Role   models.UserRole
}

// Anonymous reports whether no caller is attached.
func (p Principal) Anonymous() bool {
	return p.UserID == "" || !p.Role.Valid()
}

type principalKey struct{}

// WithPrincipal stores p on ctx.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// FromContext returns the principal stored on ctx.
func FromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok && !p.Anonymous()
}

// Action names an operation subject to authorization.
type Action string

const (
	CourseCreate   Action = "course:create"
	CourseUpdate   Action = "course:update"
	CourseDelete   Action = "course:delete"
	CourseRoster   Action = "course:roster"
	EnrollCreate   Action = "enrollment:create"
	EnrollRead     Action = "enrollment:read"
	EnrollComplete Action = "enrollment:complete"
	EnrollDrop     Action = "enrollment:drop"
	EnrollGrade    Action = "enrollment:grade"
	EnrollListAll  Action = "enrollment:list_all"

	StudentRead       Action = "student:read"
	StudentUpdate     Action = "student:update"
	StudentDeactivate Action = "student:deactivate"
	StudentDelete     Action = "student:delete"

	InstructorUpdate     Action = "instructor:update"
	InstructorDeactivate Action = "instructor:deactivate"
	InstructorDelete     Action = "instructor:delete"

	DashboardStudent Action = "dashboard:student"
	DashboardTeacher Action = "dashboard:teacher"
	DashboardAdmin   Action = "dashboard:admin"

	UserList     Action = "user:list"
	UserManage   Action = "user:manage"
	FeedbackList Action = "feedback:list"
)

// Scope describes how far a role's permission reaches.
type Scope int

const (
	// ScopeNone denies the action.
	ScopeNone Scope = iota
	// ScopeOwn allows the action on resources the principal owns.
	ScopeOwn
	// ScopeAny allows the action on every resource.
	ScopeAny
)

// Decision is the outcome of an authorization check.
type Decision bool

const (
	Deny  Decision = false
	Allow Decision = true
)

type grants map[models.UserRole]Scope

var policy = map[Action]grants{
	CourseCreate:   {models.RoleTeacher: ScopeAny, models.RoleAdmin: ScopeAny},
	CourseUpdate:   {models.RoleTeacher: ScopeOwn, models.RoleAdmin: ScopeAny},
	CourseDelete:   {models.RoleAdmin: ScopeAny},
	CourseRoster:   {models.RoleTeacher: ScopeOwn, models.RoleAdmin: ScopeAny},
	EnrollCreate:   {models.RoleStudent: ScopeOwn, models.RoleAdmin: ScopeAny},
	EnrollRead:     {models.RoleStudent: ScopeOwn, models.RoleTeacher: ScopeOwn, models.RoleAdmin: ScopeAny},
	EnrollComplete: {models.RoleTeacher: ScopeOwn, models.RoleAdmin: ScopeAny},
	EnrollDrop:     {models.RoleStudent: ScopeOwn, models.RoleTeacher: ScopeOwn, models.RoleAdmin: ScopeAny},
	EnrollGrade:    {models.RoleTeacher: ScopeOwn, models.RoleAdmin: ScopeAny},
	EnrollListAll:  {models.RoleAdmin: ScopeAny},

	StudentRead:       {models.RoleStudent: ScopeOwn, models.RoleTeacher: ScopeAny, models.RoleAdmin: ScopeAny},
	StudentUpdate:     {models.RoleStudent: ScopeOwn, models.RoleAdmin: ScopeAny},
	StudentDeactivate: {models.RoleAdmin: ScopeAny},
	StudentDelete:     {models.RoleAdmin: ScopeAny},

	InstructorUpdate:     {models.RoleTeacher: ScopeOwn, models.RoleAdmin: ScopeAny},
	InstructorDeactivate: {models.RoleAdmin: ScopeAny},
	InstructorDelete:     {models.RoleAdmin: ScopeAny},

	DashboardStudent: {models.RoleStudent: ScopeOwn},
	DashboardTeacher: {models.RoleTeacher: ScopeOwn},
	DashboardAdmin:   {models.RoleAdmin: ScopeAny},

	UserList:     {models.RoleAdmin: ScopeAny},
	UserManage:   {models.RoleAdmin: ScopeAny},
	FeedbackList: {models.RoleAdmin: ScopeAny},
}

// ScopeOf returns the scope granted to role for action.
func ScopeOf(role models.UserRole, action Action) Scope {
	return policy[action][role]
}

// Permits reports whether role may perform action on at least some resource.
// Route gates use it before ownership is known.
func Permits(role models.UserRole, action Action) bool {
	return ScopeOf(role, action) != ScopeNone
}

// Authorize decides whether p may perform action on a resource owned by any
// of owners. Own-scoped grants need p.UserID among owners.
func Authorize(p Principal, action Action, owners ...string) Decision {
	if p.Anonymous() {
		return Deny
	}
	switch ScopeOf(p.Role, action) {
	case ScopeAny:
		return Allow
	case ScopeOwn:
		for _, owner := range owners {
			if owner != "" && owner == p.UserID {
				return Allow
			}
		}
	}
	return Deny
}

// Require is Authorize returning ErrForbidden on deny.
func Require(p Principal, action Action, owners ...string) error {
	if Authorize(p, action, owners...) == Allow {
		return nil
	}
	return appErrors.ErrForbidden
}
