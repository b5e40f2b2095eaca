package pgluggage

import (
	"context"

	"github.com/pkg/errors"
)

func (s *Storage) initSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		`
CREATE TABLE IF NOT EXISTS luggage (
  id UUID PRIMARY KEY,
  owner_id TEXT NOT NULL,
  status TEXT NOT NULL,
  image_url TEXT NOT NULL DEFAULT '',
  description TEXT NOT NULL DEFAULT '',
  metadata JSONB NULL,
  embedding vector NULL,
  embed_fail_count INT NOT NULL DEFAULT 0,
  last_embed_error TEXT NULL,
  next_embed_at TIMESTAMPTZ NULL,
  created_at TIMESTAMPTZ NOT NULL,
  updated_at TIMESTAMPTZ NOT NULL
)`,
		`CREATE INDEX IF NOT EXISTS idx_luggage_owner_id ON luggage(owner_id, created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_luggage_pending_embed ON luggage(next_embed_at) WHERE embedding IS NULL`,
		// found_luggage_id без FK: найденная сторона может быть удалена или ещё не синхронизирована.
		`
CREATE TABLE IF NOT EXISTS matches (
  id BIGSERIAL PRIMARY KEY,
  lost_luggage_id UUID NOT NULL REFERENCES luggage(id) ON DELETE CASCADE,
  found_luggage_id UUID NOT NULL,
  similarity DOUBLE PRECISION NOT NULL CHECK (similarity >= 0 AND similarity <= 1),
  status TEXT NOT NULL,
  created_at TIMESTAMPTZ NOT NULL,
  updated_at TIMESTAMPTZ NOT NULL,
  UNIQUE (lost_luggage_id, found_luggage_id)
)`,
		`CREATE INDEX IF NOT EXISTS idx_matches_lost_similarity ON matches(lost_luggage_id, similarity DESC)`,
	}

	for _, q := range stmts {
		if _, err := s.db.Exec(ctx, q); err != nil {
			return errors.Wrap(err, "init schema")
		}
	}
	return nil
}
