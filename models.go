package authgate

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Baseline role names seeded at startup.
const (
	// RoleUser is the base tier every principal holds.
	RoleUser = "USER"
	// RoleAdmin gates admin paths and admin-only service operations.
	RoleAdmin = "ADMIN"
	// RoleActuatorAdmin gates non-public operational endpoints.
	RoleActuatorAdmin = "ACTUATOR_ADMIN"
)

// User is the persisted principal record. Role membership lives in the
// user_roles join table; there is no back-reference from Role to User.
// Principals are never hard-deleted, they are disabled via Enabled.
type User struct {
	bun.BaseModel `bun:"table:users,alias:usr"`

	ID           uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Username     string     `bun:"username,notnull,unique" json:"username,omitempty"`
	PasswordHash string     `bun:"password_hash,notnull" json:"-"`
	Enabled      bool       `bun:"enabled,notnull" json:"enabled"`
	Roles        []*Role    `bun:"m2m:user_roles,join:User=Role" json:"roles,omitempty"`
	CreatedAt    *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt    *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// RoleNames returns the role names in the insertion order of the user's
// role set. This is the order the roles claim carries.
func (u *User) RoleNames() []string {
	names := make([]string, 0, len(u.Roles))
	for _, r := range u.Roles {
		if r != nil {
			names = append(names, r.Name)
		}
	}
	return names
}

// HasRole checks role membership by exact name.
func (u *User) HasRole(name string) bool {
	for _, r := range u.Roles {
		if r != nil && r.Name == name {
			return true
		}
	}
	return false
}

// IsEnabled reports whether the principal may authenticate.
func (u *User) IsEnabled() bool {
	return u.Enabled
}

// Role is a named permission tier. Created once, immutable thereafter.
type Role struct {
	bun.BaseModel `bun:"table:roles,alias:rol"`

	ID   int64  `bun:"id,pk,autoincrement" json:"id,omitempty"`
	Name string `bun:"name,notnull,unique" json:"name,omitempty"`
}

// UserRole is the surrogate-id join table backing the many-to-many
// principal/role relation.
type UserRole struct {
	bun.BaseModel `bun:"table:user_roles,alias:uro"`

	UserID uuid.UUID `bun:"user_id,pk,type:uuid"`
	User   *User     `bun:"rel:belongs-to,join:user_id=id"`
	RoleID int64     `bun:"role_id,pk"`
	Role   *Role     `bun:"rel:belongs-to,join:role_id=id"`
}

// accountPrincipal adapts a persisted User to the Principal interface the
// token and chain layers consume. It is a value snapshot, so handing it to
// concurrent request workers never exposes the bun model.
type accountPrincipal struct {
	username string
	roles    []string
	enabled  bool
}

// NewPrincipal snapshots a user record into a Principal.
func NewPrincipal(u *User) Principal {
	if u == nil {
		return nil
	}
	return &accountPrincipal{
		username: u.Username,
		roles:    u.RoleNames(),
		enabled:  u.Enabled,
	}
}

func (p *accountPrincipal) Username() string { return p.username }

func (p *accountPrincipal) RoleNames() []string { return p.roles }

func (p *accountPrincipal) IsEnabled() bool { return p.enabled }

// HasRole checks the snapshot's role set by exact name.
func (p *accountPrincipal) HasRole(name string) bool {
	for _, r := range p.roles {
		if r == name {
			return true
		}
	}
	return false
}

// RoleChecker is implemented by principals that can answer role membership
// directly. Chain rule enforcement uses it when available and falls back
// to scanning RoleNames.
type RoleChecker interface {
	HasRole(name string) bool
}

// PrincipalHasRole reports role membership for any Principal.
func PrincipalHasRole(p Principal, role string) bool {
	if p == nil {
		return false
	}
	if rc, ok := p.(RoleChecker); ok {
		return rc.HasRole(role)
	}
	for _, r := range p.RoleNames() {
		if r == role {
			return true
		}
	}
	return false
}
