package pgluggage

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"
	"github.com/pkg/errors"

	"github.com/BearBump/BagTrace/internal/models"
)

// Даём kafka-конвейеру фору, прежде чем свипер подберёт запись.
const embedGrace = 2 * time.Minute

const luggageColumns = `
  id, owner_id, status, image_url, description, metadata,
  embedding, embed_fail_count, last_embed_error, next_embed_at,
  created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLuggage(row rowScanner) (*models.LuggageRecord, error) {
	var (
		l         models.LuggageRecord
		embedding *pgvector.Vector
		metadata  map[string]any
	)
	if err := row.Scan(
		&l.ID, &l.OwnerID, &l.Status, &l.ImageURL, &l.Description, &metadata,
		&embedding, &l.EmbedFailCount, &l.LastEmbedError, &l.NextEmbedAt,
		&l.CreatedAt, &l.UpdatedAt,
	); err != nil {
		return nil, err
	}
	l.Metadata = metadata
	if embedding != nil {
		l.Embedding = embedding.Slice()
	}
	return &l, nil
}

func collectLuggage(rows pgx.Rows) ([]*models.LuggageRecord, error) {
	defer rows.Close()
	out := []*models.LuggageRecord{}
	for rows.Next() {
		l, err := scanLuggage(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan luggage")
		}
		out = append(out, l)
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}
	return out, nil
}

func (s *Storage) CreateLuggage(ctx context.Context, in models.LuggageCreateInput) (*models.LuggageRecord, error) {
	now := time.Now().UTC()
	var metadata any
	if len(in.Metadata) > 0 {
		metadata = in.Metadata
	}

	row := s.db.QueryRow(ctx, `
INSERT INTO luggage (
  id, owner_id, status, image_url, description, metadata, next_embed_at, created_at, updated_at
)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$8)
RETURNING`+luggageColumns,
		uuid.New(), in.OwnerID, in.Status, in.ImageURL, in.Description, metadata, now.Add(embedGrace), now)

	l, err := scanLuggage(row)
	if err != nil {
		return nil, errors.Wrap(err, "insert luggage")
	}
	return l, nil
}

func (s *Storage) GetLuggage(ctx context.Context, id uuid.UUID) (*models.LuggageRecord, error) {
	row := s.db.QueryRow(ctx, `SELECT`+luggageColumns+` FROM luggage WHERE id = $1`, id)
	l, err := scanLuggage(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errors.Wrapf(ErrNotFound, "luggage %s", id)
	}
	if err != nil {
		return nil, errors.Wrap(err, "select luggage")
	}
	return l, nil
}

func (s *Storage) GetLuggageByIDs(ctx context.Context, ids []uuid.UUID) ([]*models.LuggageRecord, error) {
	if len(ids) == 0 {
		return []*models.LuggageRecord{}, nil
	}
	rows, err := s.db.Query(ctx, `SELECT`+luggageColumns+` FROM luggage WHERE id = ANY($1::uuid[])`, uuidStrings(ids))
	if err != nil {
		return nil, errors.Wrap(err, "select luggage by ids")
	}
	return collectLuggage(rows)
}

func (s *Storage) ListLuggageByOwner(ctx context.Context, ownerID string) ([]*models.LuggageRecord, error) {
	rows, err := s.db.Query(ctx, `SELECT`+luggageColumns+` FROM luggage WHERE owner_id = $1 ORDER BY created_at DESC, id`, ownerID)
	if err != nil {
		return nil, errors.Wrap(err, "select owner luggage")
	}
	return collectLuggage(rows)
}

// AttachEmbedding stores the vector and clears the retry bookkeeping.
func (s *Storage) AttachEmbedding(ctx context.Context, id uuid.UUID, embedding []float32) error {
	tag, err := s.db.Exec(ctx, `
UPDATE luggage
SET embedding = $2,
    embed_fail_count = 0,
    last_embed_error = NULL,
    next_embed_at = NULL,
    updated_at = now()
WHERE id = $1
`, id, pgvector.NewVector(embedding))
	if err != nil {
		return errors.Wrap(err, "attach embedding")
	}
	if tag.RowsAffected() == 0 {
		return errors.Wrapf(ErrNotFound, "luggage %s", id)
	}
	return nil
}

func (s *Storage) MarkEmbeddingFailed(ctx context.Context, id uuid.UUID, errText string, nextAt time.Time) error {
	_, err := s.db.Exec(ctx, `
UPDATE luggage
SET embed_fail_count = embed_fail_count + 1,
    last_embed_error = $2,
    next_embed_at = $3,
    updated_at = now()
WHERE id = $1
`, id, errText, nextAt.UTC())
	return errors.Wrap(err, "mark embedding failed")
}

// ClaimPendingEmbeddings выбирает записи без эмбеддинга, у которых подошёл срок,
// и продлевает next_embed_at на lease. Использует SELECT ... FOR UPDATE SKIP LOCKED.
func (s *Storage) ClaimPendingEmbeddings(ctx context.Context, now time.Time, limit int, lease time.Duration) ([]*models.LuggageRecord, error) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, errors.Wrap(err, "begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	rows, err := tx.Query(ctx, `
SELECT`+luggageColumns+`
FROM luggage
WHERE embedding IS NULL
  AND next_embed_at IS NOT NULL
  AND next_embed_at <= $1
ORDER BY next_embed_at ASC
LIMIT $2
FOR UPDATE SKIP LOCKED
`, now.UTC(), limit)
	if err != nil {
		return nil, errors.Wrap(err, "select pending embeddings")
	}
	picked, err := collectLuggage(rows)
	if err != nil {
		return nil, err
	}

	leaseUntil := now.UTC().Add(lease)
	for _, l := range picked {
		if _, err := tx.Exec(ctx, `UPDATE luggage SET next_embed_at = $2, updated_at = now() WHERE id = $1`, l.ID, leaseUntil); err != nil {
			return nil, errors.Wrap(err, "lease luggage")
		}
		l.NextEmbedAt = &leaseUntil
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, errors.Wrap(err, "commit tx")
	}
	return picked, nil
}

// SearchSimilar returns records with cosine similarity >= threshold, best first.
func (s *Storage) SearchSimilar(ctx context.Context, q models.SimilarityQuery) ([]models.MatchCandidate, error) {
	rows, err := s.db.Query(ctx, `
SELECT id, LEAST(1.0, 1 - (embedding <=> $1::vector)) AS similarity
FROM luggage
WHERE embedding IS NOT NULL
  AND vector_dims(embedding) = vector_dims($1::vector)
  AND ($4 = '' OR status = $4)
  AND 1 - (embedding <=> $1::vector) >= $2
ORDER BY embedding <=> $1::vector ASC, id
LIMIT $3
`, pgvector.NewVector(q.Embedding), q.Threshold, q.Limit, q.Status)
	if err != nil {
		return nil, errors.Wrap(err, "search similar")
	}
	defer rows.Close()

	out := []models.MatchCandidate{}
	for rows.Next() {
		var c models.MatchCandidate
		if err := rows.Scan(&c.LuggageID, &c.Similarity); err != nil {
			return nil, errors.Wrap(err, "scan candidate")
		}
		out = append(out, c)
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}
	return out, nil
}

func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.String())
	}
	return out
}
