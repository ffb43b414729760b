package postgres

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/lorrc/repair-desk-backend/internal/core/domain"
	apperrors "github.com/lorrc/repair-desk-backend/internal/core/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// uniqueName returns a username no other test will use.
func uniqueName(prefix string) string {
	return prefix + "-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

func createTestUser(t *testing.T, ctx context.Context) *domain.User {
	t.Helper()
	require.NotNil(t, testPool, "testPool is nil. TestMain may not have run.")

	user, err := NewUserRepository(testPool).Create(ctx, &domain.User{
		Username:       uniqueName("tech"),
		HashedPassword: "hashedpassword",
	})
	require.NoError(t, err)
	return user
}

func TestUserRepository_CreateGet(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(testPool)
	name := uniqueName("Alice")

	created, err := repo.Create(ctx, &domain.User{Username: name, HashedPassword: "hash"})
	require.NoError(t, err)
	assert.Positive(t, created.ID)
	assert.False(t, created.CreatedAt.IsZero())

	byName, err := repo.GetByUsername(ctx, strings.ToLower(name))
	require.NoError(t, err)
	assert.Equal(t, created.ID, byName.ID)
	assert.Equal(t, name, byName.Username)
	assert.Equal(t, "hash", byName.HashedPassword)

	byID, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, name, byID.Username)
}

func TestUserRepository_DuplicateUsername(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(testPool)
	name := uniqueName("bob")

	_, err := repo.Create(ctx, &domain.User{Username: name, HashedPassword: "hash"})
	require.NoError(t, err)

	_, err = repo.Create(ctx, &domain.User{Username: strings.ToUpper(name), HashedPassword: "hash"})
	assert.ErrorIs(t, err, apperrors.ErrUserExists)
}

func TestUserRepository_NotFound(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(testPool)

	_, err := repo.GetByUsername(ctx, uniqueName("nobody"))
	assert.ErrorIs(t, err, apperrors.ErrUserNotFound)

	_, err = repo.GetByID(ctx, -1)
	assert.ErrorIs(t, err, apperrors.ErrUserNotFound)
}
