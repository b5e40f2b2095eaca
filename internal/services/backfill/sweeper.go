package backfill

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"

	"github.com/BearBump/BagTrace/internal/metrics"
	"github.com/BearBump/BagTrace/internal/models"
	"github.com/BearBump/BagTrace/internal/services/luggage"
)

type Repository interface {
	ClaimPendingEmbeddings(ctx context.Context, now time.Time, limit int, lease time.Duration) ([]*models.LuggageRecord, error)
}

type Processor interface {
	ProcessEmbedding(ctx context.Context, rec *models.LuggageRecord) ([]models.MatchCandidate, error)
}

// Sweeper periodically retries luggage that the kafka path did not embed.
type Sweeper struct {
	repo    Repository
	proc    Processor
	metrics *metrics.Metrics

	pollInterval time.Duration
	batchSize    int
	concurrency  int
	lease        time.Duration

	triggerCh chan struct{}

	startedAtUnixNano   int64
	lastCycleUnixNano   atomic.Int64
	lastTriggerUnixNano atomic.Int64
	totalClaimed        atomic.Int64
	totalProcessed      atomic.Int64
	totalErrors         atomic.Int64
	inFlight            atomic.Int64
	lastErrorMu         sync.Mutex
	lastError           string
}

func New(repo Repository, proc Processor, m *metrics.Metrics) *Sweeper {
	return &Sweeper{
		repo:              repo,
		proc:              proc,
		metrics:           m,
		pollInterval:      30 * time.Second,
		batchSize:         50,
		concurrency:       4,
		lease:             5 * time.Minute,
		triggerCh:         make(chan struct{}, 1),
		startedAtUnixNano: time.Now().UTC().UnixNano(),
	}
}

func (s *Sweeper) WithSettings(pollInterval time.Duration, batchSize, concurrency int, lease time.Duration) *Sweeper {
	if pollInterval > 0 {
		s.pollInterval = pollInterval
	}
	if batchSize > 0 {
		s.batchSize = batchSize
	}
	if concurrency > 0 {
		s.concurrency = concurrency
	}
	if lease > 0 {
		s.lease = lease
	}
	return s
}

// Trigger forces an immediate sweep (best-effort, non-blocking).
func (s *Sweeper) Trigger() {
	s.lastTriggerUnixNano.Store(time.Now().UTC().UnixNano())
	select {
	case s.triggerCh <- struct{}{}:
	default:
	}
}

type Stats struct {
	StartedAt      time.Time  `json:"startedAt"`
	LastCycleAt    *time.Time `json:"lastCycleAt,omitempty"`
	LastTriggerAt  *time.Time `json:"lastTriggerAt,omitempty"`
	TotalClaimed   int64      `json:"totalClaimed"`
	TotalProcessed int64      `json:"totalProcessed"`
	TotalErrors    int64      `json:"totalErrors"`
	InFlight       int64      `json:"inFlight"`
	LastError      string     `json:"lastError,omitempty"`
}

func (s *Sweeper) Stats() Stats {
	st := Stats{
		StartedAt:      time.Unix(0, s.startedAtUnixNano).UTC(),
		TotalClaimed:   s.totalClaimed.Load(),
		TotalProcessed: s.totalProcessed.Load(),
		TotalErrors:    s.totalErrors.Load(),
		InFlight:       s.inFlight.Load(),
	}
	if n := s.lastCycleUnixNano.Load(); n > 0 {
		t := time.Unix(0, n).UTC()
		st.LastCycleAt = &t
	}
	if n := s.lastTriggerUnixNano.Load(); n > 0 {
		t := time.Unix(0, n).UTC()
		st.LastTriggerAt = &t
	}
	s.lastErrorMu.Lock()
	st.LastError = s.lastError
	s.lastErrorMu.Unlock()
	return st
}

func (s *Sweeper) Run(ctx context.Context) error {
	t := time.NewTicker(s.pollInterval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			s.runOnce(ctx)
		case <-s.triggerCh:
			s.runOnce(ctx)
		}
	}
}

func (s *Sweeper) setLastError(err error) {
	s.lastErrorMu.Lock()
	s.lastError = err.Error()
	s.lastErrorMu.Unlock()
}

func (s *Sweeper) runOnce(ctx context.Context) {
	now := time.Now().UTC()
	s.lastCycleUnixNano.Store(now.UnixNano())

	items, err := s.repo.ClaimPendingEmbeddings(ctx, now, s.batchSize, s.lease)
	if err != nil {
		slog.Error("claim pending embeddings", "error", err.Error())
		s.setLastError(err)
		return
	}
	s.totalClaimed.Add(int64(len(items)))
	if len(items) == 0 {
		return
	}

	sem := make(chan struct{}, s.concurrency)
	var wg sync.WaitGroup
	for _, rec := range items {
		sem <- struct{}{}
		wg.Add(1)
		s.inFlight.Add(1)
		go func(rec *models.LuggageRecord) {
			defer func() {
				s.inFlight.Add(-1)
				<-sem
				wg.Done()
			}()
			if _, err := s.proc.ProcessEmbedding(ctx, rec); err != nil {
				s.totalErrors.Add(1)
				s.setLastError(err)
				if errors.Is(err, luggage.ErrEmbeddingFailed) {
					slog.Warn("backfill embedding deferred", "luggage_id", rec.ID.String(), "error", err.Error())
				} else {
					slog.Error("backfill luggage", "luggage_id", rec.ID.String(), "error", err.Error())
				}
			}
			s.totalProcessed.Add(1)
		}(rec)
	}
	wg.Wait()
	s.metrics.BackfillDone(len(items))
	slog.Info("backfill cycle done", "claimed", len(items))
}
