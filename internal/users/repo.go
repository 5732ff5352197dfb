package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/oss-listings/claims-backend/internal/forge"
)

// DBTX is satisfied by *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const uniqueViolation = "23505"

type Repo struct {
	db DBTX
}

func NewRepo(db DBTX) *Repo {
	return &Repo{db: db}
}

// EnsureUser creates the user on first sign-in and refreshes profile fields
// afterwards. It returns the database id.
func (r *Repo) EnsureUser(ctx context.Context, u UpsertUser) (string, error) {
	if u.FirebaseUID == "" {
		return "", fmt.Errorf("firebase_uid required")
	}

	const q = `
insert into users (firebase_uid, email, display_name, photo_url, updated_at)
values ($1, nullif($2,''), nullif($3,''), nullif($4,''), now())
on conflict (firebase_uid) do update
set
  email = coalesce(excluded.email, users.email),
  display_name = coalesce(excluded.display_name, users.display_name),
  photo_url = coalesce(excluded.photo_url, users.photo_url),
  updated_at = now()
returning id::text;
`
	var id string
	if err := r.db.QueryRow(ctx, q, u.FirebaseUID, u.Email, u.DisplayName, u.PhotoURL).Scan(&id); err != nil {
		return "", err
	}
	return id, nil
}

const userColumns = `id::text, firebase_uid, coalesce(email, ''), coalesce(display_name, ''),
coalesce(photo_url, ''), role::text, created_at, updated_at`

func (r *Repo) GetByID(ctx context.Context, id string) (*User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	q := `select ` + userColumns + ` from users where id = $1::uuid;`
	return scanUser(r.db.QueryRow(ctx, q, id))
}

// Role returns the stored role of a user.
func (r *Repo) Role(ctx context.Context, id string) (Role, error) {
	if _, err := uuid.Parse(id); err != nil {
		return "", ErrNotFound
	}
	var role string
	err := r.db.QueryRow(ctx, `select role::text from users where id = $1::uuid;`, id).Scan(&role)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return Role(role), nil
}

func (r *Repo) UpdateProfile(ctx context.Context, id string, upd ProfileUpdate) (*User, error) {
	q := `
update users
set display_name = coalesce($2, display_name), photo_url = coalesce($3, photo_url), updated_at = now()
where id = $1::uuid
returning ` + userColumns + `;`
	return scanUser(r.db.QueryRow(ctx, q, id, upd.DisplayName, upd.PhotoURL))
}

func scanUser(row pgx.Row) (*User, error) {
	var (
		u    User
		role string
	)
	err := row.Scan(&u.ID, &u.FirebaseUID, &u.Email, &u.DisplayName, &u.PhotoURL, &role, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	u.Role = Role(role)
	return &u, nil
}

const identityColumns = `host::text, forge_user_id, login, access_token, coalesce(refresh_token, ''),
coalesce(scopes, '{}'), expires_at`

// ListIdentities returns the forge accounts linked to a user, at most one per host.
func (r *Repo) ListIdentities(ctx context.Context, userID string) ([]forge.Identity, error) {
	q := `select ` + identityColumns + ` from forge_identities where user_id = $1::uuid order by host;`
	rows, err := r.db.Query(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []forge.Identity
	for rows.Next() {
		ident, err := scanIdentity(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *ident)
	}
	return out, rows.Err()
}

func (r *Repo) GetIdentity(ctx context.Context, userID string, host forge.Host) (*forge.Identity, error) {
	q := `select ` + identityColumns + ` from forge_identities where user_id = $1::uuid and host = $2::git_host;`
	ident, err := scanIdentity(r.db.QueryRow(ctx, q, userID, string(host)))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, forge.ErrIdentityNotLinked
	}
	return ident, err
}

// UpsertIdentity links, or relinks, the user's account on ident.Host.
func (r *Repo) UpsertIdentity(ctx context.Context, userID string, ident forge.Identity) error {
	const q = `
insert into forge_identities (user_id, host, forge_user_id, login, access_token, refresh_token, scopes, expires_at, updated_at)
values ($1::uuid, $2::git_host, $3, $4, $5, nullif($6,''), $7, $8, now())
on conflict (user_id, host) do update
set
  forge_user_id = excluded.forge_user_id,
  login = excluded.login,
  access_token = excluded.access_token,
  refresh_token = excluded.refresh_token,
  scopes = excluded.scopes,
  expires_at = excluded.expires_at,
  updated_at = now();
`
	var expires pgtype.Timestamptz
	if ident.ExpiresAt != nil {
		expires = pgtype.Timestamptz{Time: *ident.ExpiresAt, Valid: true}
	}
	scopes := ident.Scopes
	if scopes == nil {
		scopes = []string{}
	}

	_, err := r.db.Exec(ctx, q, userID, string(ident.Host), ident.ForgeUserID, ident.Login,
		ident.AccessToken, ident.RefreshToken, scopes, expires)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrIdentityInUse
	}
	return err
}

func (r *Repo) DeleteIdentity(ctx context.Context, userID string, host forge.Host) (bool, error) {
	ct, err := r.db.Exec(ctx, `delete from forge_identities where user_id = $1::uuid and host = $2::git_host;`, userID, string(host))
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() > 0, nil
}

func scanIdentity(row pgx.Row) (*forge.Identity, error) {
	var (
		ident   forge.Identity
		host    string
		expires pgtype.Timestamptz
	)
	if err := row.Scan(&host, &ident.ForgeUserID, &ident.Login, &ident.AccessToken, &ident.RefreshToken, &ident.Scopes, &expires); err != nil {
		return nil, err
	}
	ident.Host = forge.Host(host)
	if expires.Valid {
		t := expires.Time
		ident.ExpiresAt = &t
	}
	return &ident, nil
}
