package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	LuggageStatusLost     = "lost"
	LuggageStatusFound    = "found"
	LuggageStatusMatched  = "matched"
	LuggageStatusResolved = "resolved"
)

const (
	MatchStatusPending  = "pending"
	MatchStatusAccepted = "accepted"
	MatchStatusRejected = "rejected"
	MatchStatusResolved = "resolved"
)

type LuggageRecord struct {
	ID          uuid.UUID
	OwnerID     string
	Status      string
	ImageURL    string
	Description string
	Metadata    map[string]any

	// Embedding is nil until the embedding pipeline attaches it.
	Embedding []float32

	EmbedFailCount int32
	LastEmbedError *string
	NextEmbedAt    *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

type LuggageCreateInput struct {
	OwnerID     string
	Status      string
	ImageURL    string
	Description string
	Metadata    map[string]any
}

type MatchRecord struct {
	ID             uint64
	LostLuggageID  uuid.UUID
	FoundLuggageID uuid.UUID
	Similarity     float64
	Status         string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type MatchCandidate struct {
	LuggageID  uuid.UUID
	Similarity float64
}

type SimilarityQuery struct {
	Embedding []float32
	Threshold float64
	Limit     int
	Status    string // пусто = любой статус
}

// MatchView is a match with both sides resolved.
type MatchView struct {
	Match MatchRecord
	Lost  *LuggageRecord
	Found *LuggageRecord
}
