package auth

import (
	"context"
	"strings"
)

const (
	RoleAdmin   = "admin"
	RoleDoctor  = "doctor"
	RolePatient = "patient"
	RoleCarer   = "carer"
	RoleGuest   = "guest"
)

// Roles lists every account role in declaration order.
var Roles = []string{RoleAdmin, RoleDoctor, RolePatient, RoleCarer, RoleGuest}

const (
	GuestUserName = "guest_user"
	GuestFullName = "Guest"
)

// Caller is the identity a request acts as. It is resolved once per request
// and carried in the request context; tools read it, never write it.
type Caller struct {
	UserName string `json:"user_name"`
	FullName string `json:"full_name"`
	Role     string `json:"role"`
}

func GuestCaller() Caller {
	return Caller{UserName: GuestUserName, FullName: GuestFullName, Role: RoleGuest}
}

// NewCaller fills gaps the way a partially known identity is displayed: no
// user name means guest, no full name falls back to the user name, no role
// means guest.
func NewCaller(userName, fullName, role string) Caller {
	userName = strings.TrimSpace(userName)
	if userName == "" {
		return GuestCaller()
	}
	fullName = strings.TrimSpace(fullName)
	if fullName == "" {
		fullName = userName
	}
	role = strings.ToLower(strings.TrimSpace(role))
	if role == "" {
		role = RoleGuest
	}
	return Caller{UserName: userName, FullName: fullName, Role: role}
}

func (c Caller) HasRole(roles ...string) bool {
	for _, r := range roles {
		if c.Role == r {
			return true
		}
	}
	return false
}

const callerKey contextKey = "caller"

func WithCaller(ctx context.Context, c Caller) context.Context {
	return context.WithValue(ctx, callerKey, c)
}

// CallerFromContext returns the bound caller, or the guest identity.
func CallerFromContext(ctx context.Context) Caller {
	if c, ok := ctx.Value(callerKey).(Caller); ok {
		return c
	}
	return GuestCaller()
}
