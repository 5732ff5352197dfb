package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oss-listings/claims-backend/internal/forge"
	"github.com/oss-listings/claims-backend/internal/projects/domain"
)

const projectID = "6f1c2a7e-9b7d-4c1e-8f0a-2d3b4c5d6e7f"
const userID = "0a1b2c3d-4e5f-4a6b-8c7d-9e0f1a2b3c4d"

var columns = []string{
	"id", "name", "description", "git_repo_url", "git_host",
	"logo_url", "tags", "is_looking_for_contributors", "has_been_acquired",
	"owner_user_id", "ownership_type", "claimed_at", "created_at", "updated_at",
}

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

func TestSetOwnerIfUnset(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	update := regexp.QuoteMeta("where id = $1::uuid and owner_user_id is null and claimed_at is null")

	t.Run("first writer wins", func(t *testing.T) {
		mock, repo := newMock(t)
		mock.ExpectExec(update).
			WithArgs(projectID, userID, "personal", now).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		ok, err := repo.SetOwnerIfUnset(context.Background(), projectID, userID, domain.OwnershipPersonal, now)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("already owned matches no row", func(t *testing.T) {
		mock, repo := newMock(t)
		mock.ExpectExec(update).
			WithArgs(projectID, userID, "organization", now).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		ok, err := repo.SetOwnerIfUnset(context.Background(), projectID, userID, domain.OwnershipOrganization, now)
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestGetByID(t *testing.T) {
	t.Run("malformed id is not found", func(t *testing.T) {
		_, repo := newMock(t)
		_, err := repo.GetByID(context.Background(), "not-a-uuid")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("missing row is not found", func(t *testing.T) {
		mock, repo := newMock(t)
		mock.ExpectQuery(regexp.QuoteMeta("from projects where id = $1::uuid")).
			WithArgs(projectID).
			WillReturnError(pgx.ErrNoRows)

		_, err := repo.GetByID(context.Background(), projectID)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("scans claimed project", func(t *testing.T) {
		mock, repo := newMock(t)
		created := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
		claimed := time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC)
		mock.ExpectQuery(regexp.QuoteMeta("from projects where id = $1::uuid")).
			WithArgs(projectID).
			WillReturnRows(mock.NewRows(columns).AddRow(
				projectID, "octo", "a tool", "https://github.com/octo/tool", "github",
				"", []string{"web", "ai"}, true, false,
				pgtype.Text{String: userID, Valid: true},
				pgtype.Text{String: "personal", Valid: true},
				pgtype.Timestamptz{Time: claimed, Valid: true},
				created, created,
			))

		p, err := repo.GetByID(context.Background(), projectID)
		require.NoError(t, err)
		assert.Equal(t, forge.HostGitHub, p.GitHost)
		assert.Equal(t, []domain.Tag{"web", "ai"}, p.Tags)
		require.NotNil(t, p.OwnerUserID)
		assert.Equal(t, userID, *p.OwnerUserID)
		require.NotNil(t, p.OwnershipType)
		assert.Equal(t, domain.OwnershipPersonal, *p.OwnershipType)
		require.NotNil(t, p.ClaimedAt)
		assert.True(t, claimed.Equal(*p.ClaimedAt))
		assert.True(t, p.IsClaimed())
	})

	t.Run("unclaimed project has nil ownership", func(t *testing.T) {
		mock, repo := newMock(t)
		now := time.Now()
		mock.ExpectQuery(regexp.QuoteMeta("from projects where id = $1::uuid")).
			WithArgs(projectID).
			WillReturnRows(mock.NewRows(columns).AddRow(
				projectID, "octo", "", "https://gitlab.com/g/app", "gitlab",
				"", []string{}, false, false,
				pgtype.Text{}, pgtype.Text{}, pgtype.Timestamptz{},
				now, now,
			))

		p, err := repo.GetByID(context.Background(), projectID)
		require.NoError(t, err)
		assert.Equal(t, forge.HostGitLab, p.GitHost)
		assert.Nil(t, p.OwnerUserID)
		assert.Nil(t, p.OwnershipType)
		assert.Nil(t, p.ClaimedAt)
		assert.False(t, p.IsClaimed())
	})
}

func TestList_BuildsFilter(t *testing.T) {
	mock, repo := newMock(t)
	host := forge.HostGitHub
	claimed := false

	mock.ExpectQuery(regexp.QuoteMeta("where git_host = $1::git_host and claimed_at is null order by created_at desc limit $2 offset $3")).
		WithArgs("github", 50, 0).
		WillReturnRows(mock.NewRows(columns))

	out, err := repo.List(context.Background(), domain.Filter{Host: &host, Claimed: &claimed})
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestSetLogo(t *testing.T) {
	mock, repo := newMock(t)
	mock.ExpectExec(regexp.QuoteMeta("where id = $1::uuid and owner_user_id = $2::uuid")).
		WithArgs(projectID, userID, "https://cdn.example.com/logo.png").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	ok, err := repo.SetLogo(context.Background(), projectID, userID, "https://cdn.example.com/logo.png")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestListClaimed_ClampsPaging(t *testing.T) {
	mock, repo := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("where claimed_at is not null")).
		WithArgs(50, 0).
		WillReturnRows(mock.NewRows(columns))

	out, err := repo.ListClaimed(context.Background(), -3, -10)
	require.NoError(t, err)
	assert.Empty(t, out)
}
