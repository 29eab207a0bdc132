package authgate_test

import (
	"context"
	"database/sql"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"github.com/bastion-labs/authgate"
)

var testDBSeq atomic.Int64

// newTestDB opens a private in-memory database with the schema applied.
// A single connection keeps the in-memory database alive for the test.
func newTestDB(t *testing.T) *bun.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:authgate_test_%d?mode=memory&cache=shared", testDBSeq.Add(1))
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { db.Close() })

	require.NoError(t, authgate.InitSchema(context.Background(), db))
	return db
}

func newSeededStore(t *testing.T) authgate.AccountStore {
	t.Helper()
	store := authgate.NewAccountStore(newTestDB(t), nil)
	require.NoError(t, store.Seed(context.Background()))
	return store
}

func TestAccountStore_Seed(t *testing.T) {
	ctx := context.Background()
	store := newSeededStore(t)

	t.Run("admin holds all three roles in grant order", func(t *testing.T) {
		admin, err := store.GetByUsername(ctx, "admin")
		require.NoError(t, err)
		assert.True(t, admin.Enabled)
		assert.Equal(t, []string{
			authgate.RoleUser,
			authgate.RoleAdmin,
			authgate.RoleActuatorAdmin,
		}, admin.RoleNames())
	})

	t.Run("standard user holds only USER", func(t *testing.T) {
		user, err := store.GetByUsername(ctx, "user")
		require.NoError(t, err)
		assert.True(t, user.Enabled)
		assert.Equal(t, []string{authgate.RoleUser}, user.RoleNames())
	})

	t.Run("seeded passwords verify", func(t *testing.T) {
		admin, err := store.GetByUsername(ctx, "admin")
		require.NoError(t, err)
		assert.NoError(t, authgate.ComparePasswordAndHash("admin", admin.PasswordHash))

		user, err := store.GetByUsername(ctx, "user")
		require.NoError(t, err)
		assert.NoError(t, authgate.ComparePasswordAndHash("password", user.PasswordHash))
	})

	t.Run("seeding again is a no-op", func(t *testing.T) {
		before, err := store.GetByUsername(ctx, "admin")
		require.NoError(t, err)

		require.NoError(t, store.Seed(ctx))
		require.NoError(t, store.Seed(ctx))

		after, err := store.GetByUsername(ctx, "admin")
		require.NoError(t, err)
		assert.Equal(t, before.ID, after.ID)
		assert.Equal(t, before.PasswordHash, after.PasswordHash)
		assert.Equal(t, before.RoleNames(), after.RoleNames())

		users, err := store.ListUsers(ctx)
		require.NoError(t, err)
		assert.Len(t, users, 2)
	})
}

func TestAccountStore_Lookups(t *testing.T) {
	ctx := context.Background()
	store := newSeededStore(t)

	t.Run("unknown username", func(t *testing.T) {
		_, err := store.GetByUsername(ctx, "nobody")
		assert.ErrorIs(t, err, authgate.ErrUserNotFound)
	})

	t.Run("get by id", func(t *testing.T) {
		admin, err := store.GetByUsername(ctx, "admin")
		require.NoError(t, err)

		byID, err := store.GetByID(ctx, admin.ID)
		require.NoError(t, err)
		assert.Equal(t, "admin", byID.Username)
		assert.Equal(t, admin.RoleNames(), byID.RoleNames())
	})

	t.Run("unknown id", func(t *testing.T) {
		_, err := store.GetByID(ctx, uuid.New())
		assert.ErrorIs(t, err, authgate.ErrUserNotFound)
	})

	t.Run("resolve principal snapshots the record", func(t *testing.T) {
		principal, err := store.ResolvePrincipal(ctx, "admin")
		require.NoError(t, err)
		assert.Equal(t, "admin", principal.Username())
		assert.True(t, principal.IsEnabled())
		assert.True(t, authgate.PrincipalHasRole(principal, authgate.RoleActuatorAdmin))
	})

	t.Run("list is ordered by username", func(t *testing.T) {
		users, err := store.ListUsers(ctx)
		require.NoError(t, err)
		require.Len(t, users, 2)
		assert.Equal(t, "admin", users[0].Username)
		assert.Equal(t, "user", users[1].Username)
	})
}

func TestAccountStore_RolesAndGrants(t *testing.T) {
	ctx := context.Background()
	store := newSeededStore(t)

	t.Run("get or create returns the existing role", func(t *testing.T) {
		first, err := store.GetOrCreateRole(ctx, "AUDITOR")
		require.NoError(t, err)
		second, err := store.GetOrCreateRole(ctx, "AUDITOR")
		require.NoError(t, err)
		assert.Equal(t, first.ID, second.ID)
	})

	t.Run("granting a held role is idempotent", func(t *testing.T) {
		user, err := store.GetByUsername(ctx, "user")
		require.NoError(t, err)
		role, err := store.GetOrCreateRole(ctx, authgate.RoleUser)
		require.NoError(t, err)

		require.NoError(t, store.GrantRole(ctx, user.ID, role.ID))
		require.NoError(t, store.GrantRole(ctx, user.ID, role.ID))

		reloaded, err := store.GetByUsername(ctx, "user")
		require.NoError(t, err)
		assert.Equal(t, []string{authgate.RoleUser}, reloaded.RoleNames())
	})

	t.Run("granting a new role extends the ordered set", func(t *testing.T) {
		user, err := store.GetByUsername(ctx, "user")
		require.NoError(t, err)
		admin, err := store.GetOrCreateRole(ctx, authgate.RoleAdmin)
		require.NoError(t, err)

		require.NoError(t, store.GrantRole(ctx, user.ID, admin.ID))

		reloaded, err := store.GetByUsername(ctx, "user")
		require.NoError(t, err)
		assert.Equal(t, []string{authgate.RoleUser, authgate.RoleAdmin}, reloaded.RoleNames())
	})
}

func TestAccountStore_UpdateUser(t *testing.T) {
	ctx := context.Background()
	store := newSeededStore(t)

	user, err := store.GetByUsername(ctx, "user")
	require.NoError(t, err)

	hash, err := authgate.HashPassword("rotated")
	require.NoError(t, err)
	user.PasswordHash = hash
	user.Enabled = false
	user.UpdatedAt = nil

	before := time.Now().Add(-time.Second)
	require.NoError(t, store.UpdateUser(ctx, user))

	reloaded, err := store.GetByUsername(ctx, "user")
	require.NoError(t, err)
	assert.False(t, reloaded.Enabled)
	assert.NoError(t, authgate.ComparePasswordAndHash("rotated", reloaded.PasswordHash))
	// Role membership is untouched by a record update.
	assert.Equal(t, []string{authgate.RoleUser}, reloaded.RoleNames())

	// The update stamps the modification time itself.
	require.NotNil(t, reloaded.UpdatedAt)
	assert.True(t, reloaded.UpdatedAt.After(before))
}
