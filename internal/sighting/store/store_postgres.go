package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"watchpost/internal/sighting/models"
	id "watchpost/pkg/domain"
)

// PostgresStore persists sightings in PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgres constructs a PostgreSQL-backed sighting store.
func NewPostgres(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Create(ctx context.Context, sighting *models.Sighting) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin create sighting: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		INSERT INTO sightings (id, created_at, event_time, latitude, longitude, activity_type, notes, validations_count, status)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), $8, $9)`,
		sighting.ID, sighting.CreatedAt, sighting.EventTime,
		sighting.Latitude, sighting.Longitude,
		sighting.ActivityType, sighting.Notes,
		sighting.ValidationsCount, string(sighting.Status),
	)
	if err != nil {
		return fmt.Errorf("insert sighting: %w", err)
	}

	for position, media := range sighting.Media {
		_, err = tx.Exec(ctx, `
			INSERT INTO sighting_media (sighting_id, position, storage_path, mime_type)
			VALUES ($1, $2, $3, $4)`,
			sighting.ID, position, media.StoragePath, media.MimeType,
		)
		if err != nil {
			return fmt.Errorf("insert sighting media: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit create sighting: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, sightingID id.SightingID) (*models.Sighting, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, created_at, event_time, latitude, longitude, activity_type, COALESCE(notes, ''), validations_count, status
		FROM sightings WHERE id = $1`, sightingID)

	sighting, err := scanSighting(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get sighting: %w", err)
	}

	media, err := s.loadMedia(ctx, []id.SightingID{sightingID})
	if err != nil {
		return nil, err
	}
	sighting.Media = media[sightingID]
	return sighting, nil
}

func (s *PostgresStore) List(ctx context.Context, filter models.ListFilter) ([]*models.Sighting, error) {
	query := `
		SELECT id, created_at, event_time, latitude, longitude, activity_type, COALESCE(notes, ''), validations_count, status
		FROM sightings`
	args := []any{}
	if filter.Bounds != nil {
		query += ` WHERE latitude BETWEEN $1 AND $2 AND longitude BETWEEN $3 AND $4`
		args = append(args, filter.Bounds.MinLat, filter.Bounds.MaxLat, filter.Bounds.MinLng, filter.Bounds.MaxLng)
	}
	query += ` ORDER BY created_at DESC`
	if filter.Limit > 0 {
		query += fmt.Sprintf(` LIMIT %d`, filter.Limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list sightings: %w", err)
	}
	defer rows.Close()

	var sightings []*models.Sighting
	var ids []id.SightingID
	for rows.Next() {
		sighting, err := scanSighting(rows)
		if err != nil {
			return nil, fmt.Errorf("scan sighting: %w", err)
		}
		sightings = append(sightings, sighting)
		ids = append(ids, sighting.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list sightings: %w", err)
	}

	media, err := s.loadMedia(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, sighting := range sightings {
		sighting.Media = media[sighting.ID]
	}
	return sightings, nil
}

func (s *PostgresStore) UpdateDerived(ctx context.Context, sightingID id.SightingID, count int, status models.Status) error {
	// The status guard makes confirmed terminal even when two recomputations
	// race a manual confirm.
	tag, err := s.pool.Exec(ctx, `
		UPDATE sightings SET validations_count = $2, status = $3
		WHERE id = $1 AND status <> 'confirmed'`,
		sightingID, count, string(status),
	)
	if err != nil {
		return fmt.Errorf("update derived fields: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return s.ensureExists(ctx, sightingID)
	}
	return nil
}

func (s *PostgresStore) SetConfirmed(ctx context.Context, sightingID id.SightingID) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE sightings SET status = 'confirmed' WHERE id = $1`, sightingID)
	if err != nil {
		return fmt.Errorf("confirm sighting: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) AppendMedia(ctx context.Context, sightingID id.SightingID, media models.MediaRef) error {
	// Keyed on the sightings row so a missing sighting yields zero rows
	// instead of an FK violation.
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO sighting_media (sighting_id, position, storage_path, mime_type)
		SELECT s.id, COALESCE(MAX(m.position) + 1, 0), $2, $3
		FROM sightings s
		LEFT JOIN sighting_media m ON m.sighting_id = s.id
		WHERE s.id = $1
		GROUP BY s.id`,
		sightingID, media.StoragePath, media.MimeType,
	)
	if err != nil {
		return fmt.Errorf("append sighting media: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ensureExists(ctx context.Context, sightingID id.SightingID) error {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM sightings WHERE id = $1)`, sightingID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check sighting exists: %w", err)
	}
	if !exists {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) loadMedia(ctx context.Context, ids []id.SightingID) (map[id.SightingID][]models.MediaRef, error) {
	grouped := make(map[id.SightingID][]models.MediaRef, len(ids))
	if len(ids) == 0 {
		return grouped, nil
	}

	uuids := make([]uuid.UUID, len(ids))
	for i, sightingID := range ids {
		uuids[i] = uuid.UUID(sightingID)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT sighting_id, storage_path, mime_type
		FROM sighting_media WHERE sighting_id = ANY($1)
		ORDER BY sighting_id, position`, uuids)
	if err != nil {
		return nil, fmt.Errorf("load sighting media: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var sightingID id.SightingID
		var media models.MediaRef
		if err := rows.Scan(&sightingID, &media.StoragePath, &media.MimeType); err != nil {
			return nil, fmt.Errorf("scan sighting media: %w", err)
		}
		grouped[sightingID] = append(grouped[sightingID], media)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load sighting media: %w", err)
	}
	return grouped, nil
}

func scanSighting(row pgx.Row) (*models.Sighting, error) {
	var sighting models.Sighting
	var status string
	err := row.Scan(
		&sighting.ID, &sighting.CreatedAt, &sighting.EventTime,
		&sighting.Latitude, &sighting.Longitude,
		&sighting.ActivityType, &sighting.Notes,
		&sighting.ValidationsCount, &status,
	)
	if err != nil {
		return nil, err
	}
	sighting.Status = models.Status(status)
	return &sighting, nil
}
