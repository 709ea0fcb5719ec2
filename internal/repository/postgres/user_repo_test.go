package postgres_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/dom/accounts-api/internal/domain"
	"github.com/dom/accounts-api/internal/repository"
	"github.com/dom/accounts-api/internal/repository/postgres"
	"github.com/dom/accounts-api/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserRepository_Create(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	repo := postgres.NewUserRepository(testDB.DB)
	ctx := context.Background()

	tests := []struct {
		name    string
		user    *domain.User
		wantErr error
	}{
		{
			name: "successful creation",
			user: &domain.User{
				ID:           uuid.New(),
				Username:     "testuser",
				Email:        "test@example.com",
				PasswordHash: "hashedpassword",
				FullName:     "Test User",
				Avatar:       "https://cdn.test/avatar/1.png",
			},
		},
		{
			name: "duplicate username",
			user: &domain.User{
				ID:           uuid.New(),
				Username:     "testuser", // Same as above
				Email:        "other@example.com",
				PasswordHash: "hashedpassword2",
				FullName:     "Other User",
				Avatar:       "https://cdn.test/avatar/2.png",
			},
			wantErr: repository.ErrDuplicate,
		},
		{
			name: "duplicate email",
			user: &domain.User{
				ID:           uuid.New(),
				Username:     "someoneelse",
				Email:        "test@example.com",
				PasswordHash: "hashedpassword3",
				FullName:     "Someone Else",
				Avatar:       "https://cdn.test/avatar/3.png",
			},
			wantErr: repository.ErrDuplicate,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := repo.Create(ctx, tt.user)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
				assert.False(t, tt.user.CreatedAt.IsZero())
			}
		})
	}
}

func TestUserRepository_Lookup(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	repo := postgres.NewUserRepository(testDB.DB)
	ctx := context.Background()

	user, _ := testutil.NewUserBuilder().
		WithUsername("lookup_user").
		WithEmail("lookup@example.com").
		Build(t, repo)

	t.Run("by id", func(t *testing.T) {
		found, err := repo.GetByID(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, "lookup_user", found.Username)
		assert.Equal(t, user.PasswordHash, found.PasswordHash)
	})

	t.Run("by id not found", func(t *testing.T) {
		_, err := repo.GetByID(ctx, uuid.New())
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})

	t.Run("by username", func(t *testing.T) {
		found, err := repo.GetByUsernameOrEmail(ctx, "lookup_user", "")
		require.NoError(t, err)
		assert.Equal(t, user.ID, found.ID)
	})

	t.Run("by email", func(t *testing.T) {
		found, err := repo.GetByUsernameOrEmail(ctx, "", "lookup@example.com")
		require.NoError(t, err)
		assert.Equal(t, user.ID, found.ID)
	})

	t.Run("no identifiers", func(t *testing.T) {
		_, err := repo.GetByUsernameOrEmail(ctx, "", "")
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})

	t.Run("exists other", func(t *testing.T) {
		taken, err := repo.ExistsOther(ctx, uuid.New(), "lookup_user", "nobody@example.com")
		require.NoError(t, err)
		assert.True(t, taken)

		taken, err = repo.ExistsOther(ctx, user.ID, "lookup_user", "lookup@example.com")
		require.NoError(t, err)
		assert.False(t, taken)
	})
}

func TestUserRepository_RotateRefreshToken(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	repo := postgres.NewUserRepository(testDB.DB)
	ctx := context.Background()

	user, _ := testutil.NewUserBuilder().Build(t, repo)
	require.NoError(t, repo.SetRefreshToken(ctx, user.ID, "token-1"))

	t.Run("stale token does not rotate", func(t *testing.T) {
		ok, err := repo.RotateRefreshToken(ctx, user.ID, "stale", "token-x")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("current token rotates once", func(t *testing.T) {
		ok, err := repo.RotateRefreshToken(ctx, user.ID, "token-1", "token-2")
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = repo.RotateRefreshToken(ctx, user.ID, "token-1", "token-3")
		require.NoError(t, err)
		assert.False(t, ok)

		found, err := repo.GetByID(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, "token-2", found.RefreshToken)
	})

	t.Run("concurrent rotations have a single winner", func(t *testing.T) {
		var wins atomic.Int32
		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				ok, err := repo.RotateRefreshToken(ctx, user.ID, "token-2", uuid.NewString())
				if err == nil && ok {
					wins.Add(1)
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, int32(1), wins.Load())
	})

	t.Run("cleared token never matches", func(t *testing.T) {
		require.NoError(t, repo.SetRefreshToken(ctx, user.ID, ""))
		ok, err := repo.RotateRefreshToken(ctx, user.ID, "", "token-4")
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestUserRepository_Updates(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	repo := postgres.NewUserRepository(testDB.DB)
	ctx := context.Background()

	user, _ := testutil.NewUserBuilder().Build(t, repo)
	other, _ := testutil.NewUserBuilder().WithUsername("other_user").Build(t, repo)

	require.NoError(t, repo.UpdatePassword(ctx, user.ID, "new-hash"))
	require.NoError(t, repo.UpdateAvatar(ctx, user.ID, "https://cdn.test/avatar/new.png"))
	require.NoError(t, repo.UpdateCoverImage(ctx, user.ID, "https://cdn.test/coverImage/new.png"))
	require.NoError(t, repo.UpdateDetails(ctx, user.ID, "renamed", "renamed@example.com", "Renamed"))

	found, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "new-hash", found.PasswordHash)
	assert.Equal(t, "https://cdn.test/avatar/new.png", found.Avatar)
	assert.Equal(t, "https://cdn.test/coverImage/new.png", found.CoverImage)
	assert.Equal(t, "renamed", found.Username)
	assert.Equal(t, "renamed@example.com", found.Email)
	assert.Equal(t, "Renamed", found.FullName)

	err = repo.UpdateDetails(ctx, user.ID, other.Username, "x@example.com", "Clash")
	assert.ErrorIs(t, err, repository.ErrDuplicate)

	err = repo.UpdatePassword(ctx, uuid.New(), "hash")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	require.NoError(t, repo.Delete(ctx, user.ID))
	_, err = repo.GetByID(ctx, user.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
