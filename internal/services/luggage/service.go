package luggage

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/BearBump/BagTrace/internal/broker/messages"
	"github.com/BearBump/BagTrace/internal/metrics"
	"github.com/BearBump/BagTrace/internal/models"
)

var (
	ErrInvalidInput    = errors.New("invalid input")
	ErrEmbeddingFailed = errors.New("embedding failed")
)

const publishAttempts = 3

type Repository interface {
	CreateLuggage(ctx context.Context, in models.LuggageCreateInput) (*models.LuggageRecord, error)
	GetLuggage(ctx context.Context, id uuid.UUID) (*models.LuggageRecord, error)
	ListLuggageByOwner(ctx context.Context, ownerID string) ([]*models.LuggageRecord, error)
	AttachEmbedding(ctx context.Context, id uuid.UUID, embedding []float32) error
	MarkEmbeddingFailed(ctx context.Context, id uuid.UUID, errText string, nextAt time.Time) error
	UpdateMatchStatus(ctx context.Context, id uint64, status string) (*models.MatchRecord, error)
}

type Producer interface {
	Publish(ctx context.Context, topic string, key, value []byte) error
}

type Embedder interface {
	Embed(ctx context.Context, imageURL string) ([]float32, error)
}

type Matcher interface {
	FindMatches(ctx context.Context, luggageID uuid.UUID) ([]models.MatchCandidate, error)
}

type Service struct {
	repo     Repository
	producer Producer
	topic    string

	embedder Embedder
	matcher  Matcher
	backoff  *Backoff
	metrics  *metrics.Metrics

	now func() time.Time
}

func New(repo Repository, producer Producer, topic string) *Service {
	if topic == "" {
		topic = messages.DefaultLuggageReportedTopic
	}
	return &Service{
		repo:     repo,
		producer: producer,
		topic:    topic,
		backoff:  NewBackoff(DefaultBackoffConfig()),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// WithPipeline wires the embedding side used by the worker.
func (s *Service) WithPipeline(embedder Embedder, matcher Matcher, backoff *Backoff, m *metrics.Metrics) *Service {
	s.embedder = embedder
	s.matcher = matcher
	if backoff != nil {
		s.backoff = backoff
	}
	s.metrics = m
	return s
}

func validateCreate(in models.LuggageCreateInput) error {
	if strings.TrimSpace(in.OwnerID) == "" {
		return errors.Wrap(ErrInvalidInput, "ownerId is required")
	}
	if in.Status != models.LuggageStatusLost && in.Status != models.LuggageStatusFound {
		return errors.Wrapf(ErrInvalidInput, "status must be %q or %q", models.LuggageStatusLost, models.LuggageStatusFound)
	}
	if strings.TrimSpace(in.ImageURL) == "" {
		return errors.Wrap(ErrInvalidInput, "imageUrl is required")
	}
	return nil
}

// Report stores a new lost or found item and announces it for embedding.
// A failed announcement is logged only: the backfill sweeper picks the record up later.
func (s *Service) Report(ctx context.Context, in models.LuggageCreateInput) (*models.LuggageRecord, error) {
	in.OwnerID = strings.TrimSpace(in.OwnerID)
	in.Status = strings.ToLower(strings.TrimSpace(in.Status))
	in.ImageURL = strings.TrimSpace(in.ImageURL)
	if err := validateCreate(in); err != nil {
		return nil, err
	}

	rec, err := s.repo.CreateLuggage(ctx, in)
	if err != nil {
		return nil, errors.Wrap(err, "create luggage")
	}

	if err := s.publishReported(ctx, rec); err != nil {
		slog.Warn("publish luggage reported failed", "luggage_id", rec.ID.String(), "error", err.Error())
	}
	slog.Info("luggage reported", "luggage_id", rec.ID.String(), "owner_id", rec.OwnerID, "status", rec.Status)
	return rec, nil
}

func (s *Service) publishReported(ctx context.Context, rec *models.LuggageRecord) error {
	if s.producer == nil {
		return errors.New("producer not configured")
	}
	b, err := json.Marshal(messages.LuggageReported{
		LuggageID:  rec.ID,
		OwnerID:    rec.OwnerID,
		Status:     rec.Status,
		ImageURL:   rec.ImageURL,
		ReportedAt: rec.CreatedAt,
	})
	if err != nil {
		return errors.Wrap(err, "marshal kafka msg")
	}

	key := []byte(rec.ID.String())
	var pubErr error
	for i := 0; i < publishAttempts; i++ {
		if pubErr = s.producer.Publish(ctx, s.topic, key, b); pubErr == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(100*(i+1)) * time.Millisecond):
		}
	}
	return pubErr
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.LuggageRecord, error) {
	return s.repo.GetLuggage(ctx, id)
}

func (s *Service) ListByOwner(ctx context.Context, ownerID string) ([]*models.LuggageRecord, error) {
	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return nil, errors.Wrap(ErrInvalidInput, "ownerId is required")
	}
	return s.repo.ListLuggageByOwner(ctx, ownerID)
}

func (s *Service) UpdateMatchStatus(ctx context.Context, matchID uint64, status string) (*models.MatchRecord, error) {
	status = strings.ToLower(strings.TrimSpace(status))
	switch status {
	case models.MatchStatusPending, models.MatchStatusAccepted, models.MatchStatusRejected, models.MatchStatusResolved:
	default:
		return nil, errors.Wrapf(ErrInvalidInput, "unknown match status %q", status)
	}
	m, err := s.repo.UpdateMatchStatus(ctx, matchID, status)
	if err != nil {
		return nil, err
	}
	slog.Info("match status updated", "match_id", matchID, "status", status)
	return m, nil
}

// ProcessEmbedding attaches an embedding if missing, then searches matches for lost items.
// On embedder failure the retry is scheduled and ErrEmbeddingFailed is returned.
func (s *Service) ProcessEmbedding(ctx context.Context, rec *models.LuggageRecord) ([]models.MatchCandidate, error) {
	if len(rec.Embedding) == 0 {
		if s.embedder == nil {
			return nil, errors.New("embedder not configured")
		}
		emb, err := s.embedder.Embed(ctx, rec.ImageURL)
		if err != nil {
			s.metrics.EmbeddingFailed()
			next := s.now().Add(s.backoff.Delay(rec.EmbedFailCount + 1))
			if mErr := s.repo.MarkEmbeddingFailed(ctx, rec.ID, err.Error(), next); mErr != nil {
				return nil, errors.Wrap(mErr, "mark embedding failed")
			}
			slog.Warn("embedding failed", "luggage_id", rec.ID.String(), "fail_count", rec.EmbedFailCount+1,
				"next_embed_at", next, "error", err.Error())
			return nil, errors.Wrap(ErrEmbeddingFailed, err.Error())
		}
		if err := s.repo.AttachEmbedding(ctx, rec.ID, emb); err != nil {
			return nil, errors.Wrap(err, "attach embedding")
		}
		slog.Debug("embedding attached", "luggage_id", rec.ID.String(), "dims", len(emb))
	}

	if rec.Status != models.LuggageStatusLost || s.matcher == nil {
		return nil, nil
	}
	return s.matcher.FindMatches(ctx, rec.ID)
}

// HandleReported is the kafka handler. Only transient storage problems are returned,
// so that the message is redelivered; anything else is logged and acknowledged.
func (s *Service) HandleReported(ctx context.Context, _ []byte, value []byte) error {
	var msg messages.LuggageReported
	if err := json.Unmarshal(value, &msg); err != nil || msg.LuggageID == uuid.Nil {
		slog.Error("bad luggage reported message", "value", string(value))
		return nil
	}

	rec, err := s.repo.GetLuggage(ctx, msg.LuggageID)
	if errors.Is(err, models.ErrNotFound) {
		slog.Warn("reported luggage not found", "luggage_id", msg.LuggageID.String())
		return nil
	}
	if err != nil {
		return errors.Wrap(err, "load luggage")
	}

	if _, err := s.ProcessEmbedding(ctx, rec); err != nil && !errors.Is(err, ErrEmbeddingFailed) {
		return err
	}
	return nil
}
