package repository

import "github.com/okian/ratebook/internal/domain/model"

// Option applies a configuration option to the MemoryStore.
type Option func(*MemoryStore)

// WithRatings seeds the store. Later duplicates of a key overwrite earlier ones.
func WithRatings(ratings []model.Rating) Option {
	return func(s *MemoryStore) {
		for _, r := range ratings {
			s.put(r.Owner, r.Item, r.Value)
		}
	}
}

// WithMetrics enables or disables metric recording for the store.
func WithMetrics(enabled bool) Option {
	return func(s *MemoryStore) {
		s.metricsEnabled = enabled
	}
}
