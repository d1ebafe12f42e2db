package accounts

import (
	"context"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophaccounts/internal/common"
	"github.com/dmitrijs2005/gophaccounts/internal/server/models"
	"github.com/dmitrijs2005/gophaccounts/internal/server/repositories/repotest"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSQLiteRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	return NewSQLiteRepository(repotest.OpenSQLite(t))
}

func account(uid, tenant, login string, level int) *models.Account {
	return &models.Account{
		UID:         uid,
		TenantCode:  tenant,
		LoginCode:   login,
		LoginSecret: "$2a$04$hash",
		AdminLevel:  level,
		CreatedAt:   time.Date(2026, 5, 4, 3, 2, 1, 123456000, time.UTC),
	}
}

func TestSQLite_CreateAndGet(t *testing.T) {
	repo := newSQLiteRepo(t)
	ctx := context.Background()

	in := account("uid000000000001", "acme", "jantje@gmail.com", 2)
	created, err := repo.Create(ctx, in)
	require.NoError(t, err)
	require.NotZero(t, created.ID)

	byCode, err := repo.GetByLoginCode(ctx, "jantje@gmail.com")
	require.NoError(t, err)
	if diff := cmp.Diff(created, byCode); diff != "" {
		t.Fatalf("GetByLoginCode mismatch (-want +got):\n%s", diff)
	}

	byID, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	if diff := cmp.Diff(created, byID); diff != "" {
		t.Fatalf("GetByID mismatch (-want +got):\n%s", diff)
	}
}

func TestSQLite_DuplicateLoginCodeIsConflict(t *testing.T) {
	repo := newSQLiteRepo(t)
	ctx := context.Background()

	_, err := repo.Create(ctx, account("uid000000000001", "acme", "dup@x", 0))
	require.NoError(t, err)

	_, err = repo.Create(ctx, account("uid000000000002", "other", "dup@x", 0))
	require.ErrorIs(t, err, common.ErrorAlreadyExists)

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestSQLite_NotFound(t *testing.T) {
	repo := newSQLiteRepo(t)
	ctx := context.Background()

	_, err := repo.GetByLoginCode(ctx, "missing")
	require.ErrorIs(t, err, common.ErrorNotFound)
	_, err = repo.GetByID(ctx, 12345)
	require.ErrorIs(t, err, common.ErrorNotFound)
	require.ErrorIs(t, repo.Lock(ctx, 12345), common.ErrorNotFound)
	require.ErrorIs(t, repo.UpdateLoginSecret(ctx, 12345, "x"), common.ErrorNotFound)
}

func TestSQLite_UpdateLoginSecret(t *testing.T) {
	repo := newSQLiteRepo(t)
	ctx := context.Background()

	a, err := repo.Create(ctx, account("uid000000000001", "acme", "a@x", 0))
	require.NoError(t, err)

	require.NoError(t, repo.UpdateLoginSecret(ctx, a.ID, "$2a$04$other"))

	got, err := repo.GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "$2a$04$other", got.LoginSecret)
}

func TestSQLite_EmptySecretRejected(t *testing.T) {
	repo := newSQLiteRepo(t)

	a := account("uid000000000001", "acme", "a@x", 0)
	a.LoginSecret = ""
	_, err := repo.Create(context.Background(), a)
	require.Error(t, err)
	assert.NotErrorIs(t, err, common.ErrorAlreadyExists)
}

func TestSQLite_ListByTenant(t *testing.T) {
	repo := newSQLiteRepo(t)
	ctx := context.Background()

	for i, a := range []*models.Account{
		account("uid000000000001", "acme", "a@acme", 2),
		account("uid000000000002", "other", "a@other", 0),
		account("uid000000000003", "acme", "b@acme", 0),
	} {
		_, err := repo.Create(ctx, a)
		require.NoError(t, err, "account %d", i)
	}

	got, err := repo.ListByTenant(ctx, "acme")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a@acme", got[0].LoginCode)
	assert.Equal(t, "b@acme", got[1].LoginCode)

	none, err := repo.ListByTenant(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, none)
}
