package users

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oss-listings/claims-backend/internal/forge"
)

const testUserID = "0a1b2c3d-4e5f-4a6b-8c7d-9e0f1a2b3c4d"

func newMock(t *testing.T) (pgxmock.PgxPoolIface, *Repo) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		mock.Close()
	})
	return mock, NewRepo(mock)
}

func TestEnsureUser(t *testing.T) {
	t.Run("requires firebase uid", func(t *testing.T) {
		_, repo := newMock(t)
		_, err := repo.EnsureUser(context.Background(), UpsertUser{})
		assert.Error(t, err)
	})

	t.Run("returns id from upsert", func(t *testing.T) {
		mock, repo := newMock(t)
		mock.ExpectQuery(regexp.QuoteMeta("on conflict (firebase_uid) do update")).
			WithArgs("fb-1", "a@example.com", "", "").
			WillReturnRows(mock.NewRows([]string{"id"}).AddRow(testUserID))

		id, err := repo.EnsureUser(context.Background(), UpsertUser{FirebaseUID: "fb-1", Email: "a@example.com"})
		require.NoError(t, err)
		assert.Equal(t, testUserID, id)
	})
}

func TestRole(t *testing.T) {
	t.Run("malformed id", func(t *testing.T) {
		_, repo := newMock(t)
		_, err := repo.Role(context.Background(), "demo-user")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("stored role", func(t *testing.T) {
		mock, repo := newMock(t)
		mock.ExpectQuery(regexp.QuoteMeta("select role::text from users")).
			WithArgs(testUserID).
			WillReturnRows(mock.NewRows([]string{"role"}).AddRow("moderator"))

		role, err := repo.Role(context.Background(), testUserID)
		require.NoError(t, err)
		assert.Equal(t, RoleModerator, role)
	})

	t.Run("unknown user", func(t *testing.T) {
		mock, repo := newMock(t)
		mock.ExpectQuery(regexp.QuoteMeta("select role::text from users")).
			WithArgs(testUserID).
			WillReturnError(pgx.ErrNoRows)

		_, err := repo.Role(context.Background(), testUserID)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestIdentities(t *testing.T) {
	cols := []string{"host", "forge_user_id", "login", "access_token", "refresh_token", "scopes", "expires_at"}

	t.Run("list", func(t *testing.T) {
		mock, repo := newMock(t)
		exp := time.Date(2026, 12, 1, 0, 0, 0, 0, time.UTC)
		mock.ExpectQuery(regexp.QuoteMeta("from forge_identities where user_id = $1::uuid")).
			WithArgs(testUserID).
			WillReturnRows(mock.NewRows(cols).
				AddRow("github", "42", "octo", "gho_x", "", []string{"repo"}, pgtype.Timestamptz{}).
				AddRow("gitlab", "7", "octo", "glpat", "rt", []string{"read_api"}, pgtype.Timestamptz{Time: exp, Valid: true}))

		idents, err := repo.ListIdentities(context.Background(), testUserID)
		require.NoError(t, err)
		require.Len(t, idents, 2)
		assert.Equal(t, forge.HostGitHub, idents[0].Host)
		assert.True(t, idents[0].HasRequiredScope())
		assert.Nil(t, idents[0].ExpiresAt)
		require.NotNil(t, idents[1].ExpiresAt)
		assert.True(t, exp.Equal(*idents[1].ExpiresAt))
	})

	t.Run("get missing is not linked", func(t *testing.T) {
		mock, repo := newMock(t)
		mock.ExpectQuery(regexp.QuoteMeta("and host = $2::git_host")).
			WithArgs(testUserID, "gitlab").
			WillReturnError(pgx.ErrNoRows)

		_, err := repo.GetIdentity(context.Background(), testUserID, forge.HostGitLab)
		assert.ErrorIs(t, err, forge.ErrIdentityNotLinked)
	})

	t.Run("upsert", func(t *testing.T) {
		mock, repo := newMock(t)
		mock.ExpectExec(regexp.QuoteMeta("on conflict (user_id, host) do update")).
			WithArgs(testUserID, "github", "42", "octo", "gho_x", "", []string{"repo"}, pgtype.Timestamptz{}).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		err := repo.UpsertIdentity(context.Background(), testUserID, forge.Identity{
			Host: forge.HostGitHub, ForgeUserID: "42", Login: "octo", AccessToken: "gho_x", Scopes: []string{"repo"},
		})
		require.NoError(t, err)
	})

	t.Run("upsert of an account linked elsewhere", func(t *testing.T) {
		mock, repo := newMock(t)
		mock.ExpectExec(regexp.QuoteMeta("insert into forge_identities")).
			WithArgs(testUserID, "github", "42", "octo", "gho_x", "", []string{}, pgtype.Timestamptz{}).
			WillReturnError(&pgconn.PgError{Code: "23505"})

		err := repo.UpsertIdentity(context.Background(), testUserID, forge.Identity{
			Host: forge.HostGitHub, ForgeUserID: "42", Login: "octo", AccessToken: "gho_x",
		})
		assert.True(t, errors.Is(err, ErrIdentityInUse))
	})

	t.Run("delete", func(t *testing.T) {
		mock, repo := newMock(t)
		mock.ExpectExec(regexp.QuoteMeta("delete from forge_identities")).
			WithArgs(testUserID, "github").
			WillReturnResult(pgxmock.NewResult("DELETE", 1))

		ok, err := repo.DeleteIdentity(context.Background(), testUserID, forge.HostGitHub)
		require.NoError(t, err)
		assert.True(t, ok)
	})
}
