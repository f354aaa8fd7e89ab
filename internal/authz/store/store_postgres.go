package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"watchpost/internal/authz/models"
	id "watchpost/pkg/domain"
)

const uniqueViolationCode = "23505"

type PostgresPrincipalStore struct {
	pool *pgxpool.Pool
}

func NewPostgresPrincipalStore(pool *pgxpool.Pool) *PostgresPrincipalStore {
	return &PostgresPrincipalStore{pool: pool}
}

func (s *PostgresPrincipalStore) Create(ctx context.Context, principal *models.Principal) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO principals (id, email, role, created_at)
		VALUES ($1, $2, $3, $4)`,
		principal.ID, models.NormalizeEmail(principal.Email), string(principal.Role), principal.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return ErrEmailTaken
		}
		return fmt.Errorf("insert principal: %w", err)
	}
	return nil
}

func (s *PostgresPrincipalStore) Get(ctx context.Context, principalID id.PrincipalID) (*models.Principal, error) {
	return s.scanOne(s.pool.QueryRow(ctx, `
		SELECT id, email, role, created_at FROM principals WHERE id = $1`, principalID))
}

func (s *PostgresPrincipalStore) GetByEmail(ctx context.Context, email string) (*models.Principal, error) {
	return s.scanOne(s.pool.QueryRow(ctx, `
		SELECT id, email, role, created_at FROM principals WHERE email = $1`,
		models.NormalizeEmail(email)))
}

func (s *PostgresPrincipalStore) UpdateRole(ctx context.Context, principalID id.PrincipalID, role models.Role) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE principals SET role = $2, updated_at = now() WHERE id = $1`, principalID, string(role))
	if err != nil {
		return fmt.Errorf("update principal role: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrPrincipalNotFound
	}
	return nil
}

func (s *PostgresPrincipalStore) scanOne(row pgx.Row) (*models.Principal, error) {
	var principal models.Principal
	var role string
	err := row.Scan(&principal.ID, &principal.Email, &role, &principal.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPrincipalNotFound
		}
		return nil, fmt.Errorf("scan principal: %w", err)
	}
	principal.Role = models.Role(role)
	return &principal, nil
}

type PostgresInviteStore struct {
	pool *pgxpool.Pool
}

func NewPostgresInviteStore(pool *pgxpool.Pool) *PostgresInviteStore {
	return &PostgresInviteStore{pool: pool}
}

func (s *PostgresInviteStore) Create(ctx context.Context, invite *models.Invite) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO trusted_invites (id, email, invited_by, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (email) DO UPDATE
		SET id = EXCLUDED.id, invited_by = EXCLUDED.invited_by,
		    created_at = EXCLUDED.created_at, expires_at = EXCLUDED.expires_at`,
		invite.ID, models.NormalizeEmail(invite.Email), invite.InvitedBy, invite.CreatedAt, invite.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("insert invite: %w", err)
	}
	return nil
}

func (s *PostgresInviteStore) Consume(ctx context.Context, email string) (*models.Invite, error) {
	// DELETE ... RETURNING makes consumption atomic: exactly one concurrent
	// caller sees the row.
	row := s.pool.QueryRow(ctx, `
		DELETE FROM trusted_invites WHERE email = $1
		RETURNING id, email, invited_by, created_at, expires_at`,
		models.NormalizeEmail(email),
	)
	var invite models.Invite
	err := row.Scan(&invite.ID, &invite.Email, &invite.InvitedBy, &invite.CreatedAt, &invite.ExpiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInviteNotFound
		}
		return nil, fmt.Errorf("consume invite: %w", err)
	}
	return &invite, nil
}
