package pgluggage

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"

	"github.com/BearBump/BagTrace/internal/models"
)

const matchColumns = `id, lost_luggage_id, found_luggage_id, similarity, status, created_at, updated_at`

func scanMatch(row rowScanner) (*models.MatchRecord, error) {
	var m models.MatchRecord
	if err := row.Scan(&m.ID, &m.LostLuggageID, &m.FoundLuggageID, &m.Similarity, &m.Status, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return nil, err
	}
	return &m, nil
}

// UpsertMatches is idempotent per (lost, found) pair: a repeat refreshes
// similarity and updated_at and keeps the status a human may have set.
func (s *Storage) UpsertMatches(ctx context.Context, matches []models.MatchRecord) error {
	if len(matches) == 0 {
		return nil
	}
	now := time.Now().UTC()

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, m := range matches {
		status := m.Status
		if status == "" {
			status = models.MatchStatusPending
		}
		_, err := tx.Exec(ctx, `
INSERT INTO matches (lost_luggage_id, found_luggage_id, similarity, status, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$5)
ON CONFLICT (lost_luggage_id, found_luggage_id)
DO UPDATE SET similarity = EXCLUDED.similarity, updated_at = EXCLUDED.updated_at
`, m.LostLuggageID, m.FoundLuggageID, m.Similarity, status, now)
		if err != nil {
			return errors.Wrap(err, "upsert match")
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return errors.Wrap(err, "commit tx")
	}
	return nil
}

func (s *Storage) ListMatchesByLostIDs(ctx context.Context, lostIDs []uuid.UUID) ([]*models.MatchRecord, error) {
	if len(lostIDs) == 0 {
		return []*models.MatchRecord{}, nil
	}
	rows, err := s.db.Query(ctx, `
SELECT `+matchColumns+`
FROM matches
WHERE lost_luggage_id = ANY($1::uuid[])
ORDER BY similarity DESC, id
`, uuidStrings(lostIDs))
	if err != nil {
		return nil, errors.Wrap(err, "select matches")
	}
	defer rows.Close()

	out := []*models.MatchRecord{}
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan match")
		}
		out = append(out, m)
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}
	return out, nil
}

func (s *Storage) UpdateMatchStatus(ctx context.Context, id uint64, status string) (*models.MatchRecord, error) {
	row := s.db.QueryRow(ctx, `
UPDATE matches SET status = $2, updated_at = now()
WHERE id = $1
RETURNING `+matchColumns, id, status)
	m, err := scanMatch(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errors.Wrapf(ErrNotFound, "match %d", id)
	}
	if err != nil {
		return nil, errors.Wrap(err, "update match status")
	}
	return m, nil
}
