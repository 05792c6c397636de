package auth

import (
	"github.com/gin-gonic/gin"

	"rental-portal/admin-portal-backend/pkg/jsonid"
)

type Role string

const (
	RoleSuperAdmin      Role = "SUPER_ADMIN"
	RoleAdmin           Role = "ADMIN"
	RolePropertyManager Role = "PROPERTY_MANAGER"
	RoleCustomer        Role = "CUSTOMER"
)

// AdminRoles may use the admin surface.
var AdminRoles = []Role{RoleAdmin, RoleSuperAdmin}

// User is the identity carried by a session.
type User struct {
	ID        jsonid.ID `json:"id"`
	Role      Role      `json:"role"`
	Email     string    `json:"email,omitempty"`
	FirstName string    `json:"firstName,omitempty"`
	LastName  string    `json:"lastName,omitempty"`
}

// Session is the JSON document stored in the auth cookie.
type Session struct {
	User            *User `json:"user"`
	IsAuthenticated bool  `json:"isAuthenticated"`
}

func (u *User) IsAdmin() bool {
	return u != nil && (u.Role == RoleAdmin || u.Role == RoleSuperAdmin)
}

// OwnsProperty reports whether u may manage a property managed by managerID.
func (u *User) OwnsProperty(managerID string) bool {
	if u == nil {
		return false
	}
	if u.IsAdmin() {
		return true
	}
	return u.Role == RolePropertyManager && managerID != "" && u.ID.String() == managerID
}

const contextUserKey = "auth.user"

// SetUser stores the authenticated user on the request context.
func SetUser(c *gin.Context, user *User) {
	c.Set(contextUserKey, user)
}

// CurrentUser returns the user placed on the context by the middleware.
func CurrentUser(c *gin.Context) *User {
	v, ok := c.Get(contextUserKey)
	if !ok {
		return nil
	}
	user, _ := v.(*User)
	return user
}
