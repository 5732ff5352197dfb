package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/oss-listings/claims-backend/internal/forge"
	"github.com/oss-listings/claims-backend/internal/projects/domain"
)

// DBTX is the subset of *pgxpool.Pool the repository uses.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const (
	defaultLimit = 50
	maxLimit     = 200
)

const projectColumns = `
id::text, name, coalesce(description, ''), coalesce(git_repo_url, ''), coalesce(git_host::text, ''),
coalesce(logo_url, ''), coalesce(tags::text[], '{}'), is_looking_for_contributors, has_been_acquired,
owner_user_id::text, ownership_type::text, claimed_at, created_at, updated_at`

// Repo provides persistence operations for projects
type Repo struct {
	db DBTX
}

func NewRepo(db DBTX) *Repo {
	return &Repo{db: db}
}

// GetByID loads a project. Malformed ids are reported as not found.
func (r *Repo) GetByID(ctx context.Context, id string) (*domain.Project, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrNotFound
	}

	q := `select ` + projectColumns + ` from projects where id = $1::uuid;`
	p, err := scanProject(r.db.QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

// List returns projects matching f, newest first.
func (r *Repo) List(ctx context.Context, f domain.Filter) ([]domain.Project, error) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.Host != nil {
		where = append(where, "git_host = "+arg(string(*f.Host))+"::git_host")
	}
	if f.Tag != nil {
		where = append(where, arg(string(*f.Tag))+"::project_tag = any(tags)")
	}
	if f.LookingForContributors != nil {
		where = append(where, "is_looking_for_contributors = "+arg(*f.LookingForContributors))
	}
	if f.Claimed != nil {
		if *f.Claimed {
			where = append(where, "claimed_at is not null")
		} else {
			where = append(where, "claimed_at is null")
		}
	}

	limit := f.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	offset := f.Offset
	if offset < 0 {
		offset = 0
	}

	q := `select ` + projectColumns + ` from projects`
	if len(where) > 0 {
		q += ` where ` + strings.Join(where, " and ")
	}
	q += ` order by created_at desc limit ` + arg(limit) + ` offset ` + arg(offset) + `;`

	return r.query(ctx, q, args...)
}

// ListClaimed returns claimed projects, most recently claimed first.
func (r *Repo) ListClaimed(ctx context.Context, limit, offset int) ([]domain.Project, error) {
	if limit <= 0 || limit > maxLimit {
		limit = defaultLimit
	}
	if offset < 0 {
		offset = 0
	}
	q := `select ` + projectColumns + `
from projects
where claimed_at is not null
order by claimed_at desc
limit $1 offset $2;`
	return r.query(ctx, q, limit, offset)
}

// ListWithRepositories returns every project that points at a forge repository.
func (r *Repo) ListWithRepositories(ctx context.Context) ([]domain.Project, error) {
	q := `select ` + projectColumns + `
from projects
where git_repo_url is not null and git_host is not null
order by id;`
	return r.query(ctx, q)
}

// SetOwnerIfUnset records a claim in a single conditional update. It returns
// false, without changing anything, when the project is already owned.
func (r *Repo) SetOwnerIfUnset(ctx context.Context, projectID, userID string, ownership domain.OwnershipType, now time.Time) (bool, error) {
	const q = `
update projects
set owner_user_id = $2::uuid, ownership_type = $3::ownership_type, claimed_at = $4, updated_at = now()
where id = $1::uuid and owner_user_id is null and claimed_at is null;
`
	ct, err := r.db.Exec(ctx, q, projectID, userID, string(ownership), now)
	if err != nil {
		return false, fmt.Errorf("set owner: %w", err)
	}
	return ct.RowsAffected() == 1, nil
}

// SetLogo replaces the logo of a project owned by ownerUserID.
func (r *Repo) SetLogo(ctx context.Context, projectID, ownerUserID, logoURL string) (bool, error) {
	const q = `
update projects
set logo_url = $3, updated_at = now()
where id = $1::uuid and owner_user_id = $2::uuid;
`
	ct, err := r.db.Exec(ctx, q, projectID, ownerUserID, logoURL)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() > 0, nil
}

func (r *Repo) query(ctx context.Context, q string, args ...any) ([]domain.Project, error) {
	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Project, 0, 16)
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func scanProject(row pgx.Row) (*domain.Project, error) {
	var (
		p         domain.Project
		host      string
		tags      []string
		ownerID   pgtype.Text
		ownership pgtype.Text
		claimedAt pgtype.Timestamptz
	)
	err := row.Scan(
		&p.ID, &p.Name, &p.Description, &p.GitRepoURL, &host,
		&p.LogoURL, &tags, &p.IsLookingForContributors, &p.HasBeenAcquired,
		&ownerID, &ownership, &claimedAt, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	// Unknown hosts stay empty and are rejected later as unsupported.
	if h, err := forge.ParseHost(host); err == nil {
		p.GitHost = h
	}
	p.Tags = make([]domain.Tag, 0, len(tags))
	for _, t := range tags {
		p.Tags = append(p.Tags, domain.Tag(t))
	}
	if ownerID.Valid {
		p.OwnerUserID = &ownerID.String
	}
	if ownership.Valid {
		ot := domain.OwnershipType(ownership.String)
		p.OwnershipType = &ot
	}
	if claimedAt.Valid {
		t := claimedAt.Time
		p.ClaimedAt = &t
	}
	return &p, nil
}
