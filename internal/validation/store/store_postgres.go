package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"watchpost/internal/validation/models"
	id "watchpost/pkg/domain"
)

const uniqueViolationCode = "23505"

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Create(ctx context.Context, validation *models.Validation) error {
	// Anonymous validators carry no principal; store NULL, not the nil UUID.
	var principalID *uuid.UUID
	if !validation.PrincipalID.IsNil() {
		u := uuid.UUID(validation.PrincipalID)
		principalID = &u
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO validations (id, sighting_id, device_fingerprint, is_within_range, principal_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		validation.ID, validation.SightingID, validation.DeviceFingerprint,
		validation.IsWithinRange, principalID, validation.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return ErrDuplicate
		}
		return fmt.Errorf("insert validation: %w", err)
	}
	return nil
}

func (s *PostgresStore) CountBySighting(ctx context.Context, sightingID id.SightingID) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM validations WHERE sighting_id = $1`, sightingID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count validations: %w", err)
	}
	return count, nil
}
