// Package authz is the authorization gate. Roles are a closed enum, each role
// maps to a fixed capability set, and Require aborts the request before the
// guarded handler runs. Own-versus-any scoping (a member may only touch their
// own transactions) is finished in the services via Caller.
package authz

import (
	"github.com/gin-gonic/gin"

	"library-backend/internal/platform/apperr"
	"library-backend/internal/platform/auth"
)

type Role string

const (
	RoleMember    Role = "member"
	RoleLibrarian Role = "librarian"
)

func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleMember, RoleLibrarian:
		return Role(s), true
	}
	return "", false
}

type Capability string

const (
	CapViewCatalog   Capability = "view_catalog"
	CapMutateCatalog Capability = "mutate_catalog"
	CapCreateOwnLoan Capability = "create_own_loan"
	CapViewOwnLoans  Capability = "view_own_loans"
	CapViewAllLoans  Capability = "view_all_loans"
	CapMutateLoans   Capability = "mutate_loans"
	CapManageMembers Capability = "manage_members"
	CapRunIngestion  Capability = "run_ingestion"
)

var memberCaps = map[Capability]struct{}{
	CapViewCatalog:   {},
	CapCreateOwnLoan: {},
	CapViewOwnLoans:  {},
}

var librarianCaps = map[Capability]struct{}{
	CapViewCatalog:   {},
	CapCreateOwnLoan: {},
	CapViewOwnLoans:  {},
	CapMutateCatalog: {},
	CapViewAllLoans:  {},
	CapMutateLoans:   {},
	CapManageMembers: {},
	CapRunIngestion:  {},
}

var grants = map[Role]map[Capability]struct{}{
	RoleMember:    memberCaps,
	RoleLibrarian: librarianCaps,
}

func (r Role) Can(c Capability) bool {
	caps, ok := grants[r]
	if !ok {
		return false
	}
	_, ok = caps[c]
	return ok
}

// Caller is the session profile resolved by auth.RequireAuth.
type Caller struct {
	MemberID int64
	Role     Role
	Active   bool
}

// IsLibrarian reports whether the caller may act on records other than their own.
func (c Caller) IsLibrarian() bool { return c.Role == RoleLibrarian }

// CallerFrom reads the resolved profile out of the gin context.
func CallerFrom(c *gin.Context) (Caller, error) {
	id, ok := c.Get(auth.CtxMemberIDKey)
	if !ok {
		return Caller{}, apperr.ErrUnauthorized("missing session")
	}
	memberID, ok := id.(int64)
	if !ok || memberID <= 0 {
		return Caller{}, apperr.ErrUnauthorized("invalid session")
	}

	roleVal, _ := c.Get(auth.CtxRoleKey)
	roleStr, _ := roleVal.(string)
	role, ok := ParseRole(roleStr)
	if !ok {
		return Caller{}, apperr.ErrUnauthorized("unknown role")
	}

	active := false
	if v, ok := c.Get(auth.CtxActiveKey); ok {
		active, _ = v.(bool)
	}

	return Caller{MemberID: memberID, Role: role, Active: active}, nil
}

// Require aborts with 403 unless the caller's role grants the capability.
// It must be registered after auth.RequireAuth on the route.
func Require(cap Capability) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, err := CallerFrom(c)
		if err != nil {
			c.AbortWithStatusJSON(apperr.ToHTTPStatus(err), apperr.BodyFrom(err))
			return
		}
		if !caller.Role.Can(cap) {
			err := apperr.ErrUnauthorized("role " + string(caller.Role) + " lacks " + string(cap))
			c.AbortWithStatusJSON(apperr.ToHTTPStatus(err), apperr.BodyFrom(err))
			return
		}
		c.Next()
	}
}
