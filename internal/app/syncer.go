package service

import (
	"context"
	"sync"
	"time"

	"github.com/okian/ratebook/internal/adapters/persistence"
	"github.com/okian/ratebook/internal/adapters/repository"
	"github.com/okian/ratebook/internal/domain/model"
	"github.com/okian/ratebook/pkg/logger"
	"github.com/okian/ratebook/pkg/metrics"
)

// Syncer moves complete snapshots between a store and a persistence backend.
type Syncer struct {
	store   repository.Store
	backend persistence.Backend
	logger  logger.Logger

	saveOnce sync.Once
	saveErr  error
}

// NewSyncer binds store to backend. A nil log uses the global logger.
func NewSyncer(store repository.Store, backend persistence.Backend, log logger.Logger) *Syncer {
	if log == nil {
		log = logger.Get()
	}
	return &Syncer{store: store, backend: backend, logger: log.Named("sync")}
}

// Load replaces the store contents with the backend's ratings. On failure
// the store is left as it was.
func (s *Syncer) Load(ctx context.Context) error {
	start := time.Now()
	s.logger.Info(ctx, "loading ratings",
		logger.String("backend", s.backend.Name()),
		logger.String("path", s.backend.Location()),
	)

	var records int
	err := s.store.Restore(ctx, func(ctx context.Context) ([]model.Rating, error) {
		ratings, err := s.backend.Load(ctx)
		records = len(ratings)
		return ratings, err
	})
	elapsed := time.Since(start)
	metrics.RecordPersistence(s.backend.Name(), "load", float64(elapsed.Milliseconds()), records, err)
	if err != nil {
		s.logger.Error(ctx, "failed to load ratings",
			logger.String("path", s.backend.Location()),
			logger.Error(err),
		)
		return err
	}

	s.logger.Info(ctx, "ratings loaded",
		logger.Int("records", records),
		logger.Duration("duration", elapsed),
	)
	return nil
}

// Save writes the current snapshot to the backend. Only the first call
// performs the write; later calls return its result.
func (s *Syncer) Save(ctx context.Context) error {
	s.saveOnce.Do(func() {
		s.saveErr = s.save(ctx)
	})
	return s.saveErr
}

func (s *Syncer) save(ctx context.Context) error {
	start := time.Now()
	var records int
	err := s.store.Persist(ctx, func(ctx context.Context, ratings []model.Rating) error {
		records = len(ratings)
		return s.backend.Save(ctx, ratings)
	})
	elapsed := time.Since(start)
	metrics.RecordPersistence(s.backend.Name(), "save", float64(elapsed.Milliseconds()), records, err)
	if err != nil {
		s.logger.Error(ctx, "failed to save ratings",
			logger.String("backend", s.backend.Name()),
			logger.String("path", s.backend.Location()),
			logger.Error(err),
		)
		return err
	}

	s.logger.Info(ctx, "ratings saved",
		logger.String("path", s.backend.Location()),
		logger.Int("records", records),
		logger.Duration("duration", elapsed),
	)
	return nil
}
