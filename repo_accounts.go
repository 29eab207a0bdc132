package authgate

import (
	"context"
	"database/sql"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ErrUserNotFound is returned when a principal lookup matches no record.
var ErrUserNotFound = errors.New("user not found", errors.CategoryNotFound).
	WithCode(errors.CodeNotFound)

// AccountStore is the persistence boundary for principals and roles.
// Implementations must be safe for concurrent readers; Seed runs once at
// startup before the gateway accepts authenticated traffic and is a no-op
// on every later invocation.
type AccountStore interface {
	PrincipalResolver

	GetByUsername(ctx context.Context, username string) (*User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	ListUsers(ctx context.Context) ([]*User, error)
	CreateUser(ctx context.Context, user *User) (*User, error)
	UpdateUser(ctx context.Context, user *User) error
	GetOrCreateRole(ctx context.Context, name string) (*Role, error)
	GrantRole(ctx context.Context, userID uuid.UUID, roleID int64) error
	Seed(ctx context.Context) error
}

type accounts struct {
	db     *bun.DB
	logger Logger
}

// Verify interface compliance
var _ AccountStore = (*accounts)(nil)

// NewAccountStore wraps a bun DB handle. The user_roles join model is
// registered here so relation queries can traverse the m2m table.
func NewAccountStore(db *bun.DB, logger Logger) AccountStore {
	if logger == nil {
		logger = defLogger{}
	}
	db.RegisterModel((*UserRole)(nil))
	return &accounts{db: db, logger: logger}
}

// InitSchema creates the principal, role, and join tables if missing.
func InitSchema(ctx context.Context, db *bun.DB) error {
	db.RegisterModel((*UserRole)(nil))
	models := []any{(*User)(nil), (*Role)(nil), (*UserRole)(nil)}
	for _, m := range models {
		if _, err := db.NewCreateTable().Model(m).IfNotExists().Exec(ctx); err != nil {
			return errors.Wrap(err, errors.CategoryInternal, "failed to create account tables")
		}
	}
	return nil
}

func (a *accounts) GetByUsername(ctx context.Context, username string) (*User, error) {
	user := &User{}
	err := a.db.NewSelect().
		Model(user).
		Relation("Roles", orderRolesByID).
		Where("usr.username = ?", username).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to load user by username")
	}
	return user, nil
}

func (a *accounts) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	user := &User{}
	err := a.db.NewSelect().
		Model(user).
		Relation("Roles", orderRolesByID).
		Where("usr.id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to load user by id")
	}
	return user, nil
}

func (a *accounts) ListUsers(ctx context.Context) ([]*User, error) {
	var users []*User
	err := a.db.NewSelect().
		Model(&users).
		Relation("Roles", orderRolesByID).
		Order("usr.username ASC").
		Scan(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to list users")
	}
	return users, nil
}

func (a *accounts) CreateUser(ctx context.Context, user *User) (*User, error) {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	if _, err := a.db.NewInsert().Model(user).Exec(ctx); err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to create user")
	}

	for _, role := range user.Roles {
		if role == nil {
			continue
		}
		if err := a.GrantRole(ctx, user.ID, role.ID); err != nil {
			return nil, err
		}
	}
	return user, nil
}

func (a *accounts) UpdateUser(ctx context.Context, user *User) error {
	now := time.Now()
	user.UpdatedAt = &now
	_, err := a.db.NewUpdate().
		Model(user).
		Column("password_hash", "enabled", "updated_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to update user")
	}
	return nil
}

// GetOrCreateRole looks a role up by name, creating it when missing.
// Safe to call repeatedly; the name column is unique.
func (a *accounts) GetOrCreateRole(ctx context.Context, name string) (*Role, error) {
	role := &Role{}
	err := a.db.NewSelect().
		Model(role).
		Where("rol.name = ?", name).
		Limit(1).
		Scan(ctx)
	if err == nil {
		return role, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to load role")
	}

	role = &Role{Name: name}
	if _, err := a.db.NewInsert().Model(role).Exec(ctx); err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to create role")
	}
	return role, nil
}

// GrantRole adds role membership. Granting an already-held role is a
// no-op, which keeps seeding and repeated grants idempotent.
func (a *accounts) GrantRole(ctx context.Context, userID uuid.UUID, roleID int64) error {
	link := &UserRole{UserID: userID, RoleID: roleID}
	_, err := a.db.NewInsert().
		Model(link).
		On("CONFLICT DO NOTHING").
		Exec(ctx)
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to grant role")
	}
	return nil
}

// ResolvePrincipal loads a user and snapshots it into a Principal.
func (a *accounts) ResolvePrincipal(ctx context.Context, username string) (Principal, error) {
	user, err := a.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	return NewPrincipal(user), nil
}

// Seed ensures the baseline roles and principals exist: USER, ADMIN and
// ACTUATOR_ADMIN roles, an admin user holding all three, and a standard
// user holding only USER. Existing records are left untouched, so running
// Seed any number of times is a no-op once the baseline is in place.
func (a *accounts) Seed(ctx context.Context) error {
	userRole, err := a.GetOrCreateRole(ctx, RoleUser)
	if err != nil {
		return err
	}
	adminRole, err := a.GetOrCreateRole(ctx, RoleAdmin)
	if err != nil {
		return err
	}
	actuatorRole, err := a.GetOrCreateRole(ctx, RoleActuatorAdmin)
	if err != nil {
		return err
	}

	if err := a.seedUser(ctx, "admin", "admin", userRole, adminRole, actuatorRole); err != nil {
		return err
	}
	return a.seedUser(ctx, "user", "password", userRole)
}

func (a *accounts) seedUser(ctx context.Context, username, password string, roles ...*Role) error {
	_, err := a.GetByUsername(ctx, username)
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrUserNotFound) {
		return err
	}

	hash, err := HashPassword(password)
	if err != nil {
		return err
	}

	_, err = a.CreateUser(ctx, &User{
		Username:     username,
		PasswordHash: hash,
		Enabled:      true,
		Roles:        roles,
	})
	if err != nil {
		return err
	}

	a.logger.Info("seeded baseline principal %q with %d roles", username, len(roles))
	return nil
}

func orderRolesByID(q *bun.SelectQuery) *bun.SelectQuery {
	return q.OrderExpr("rol.id ASC")
}
