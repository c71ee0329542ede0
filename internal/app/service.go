// Package service provides the rating service behind the HTTP API and CLI.
package service

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/okian/ratebook/internal/adapters/codec"
	"github.com/okian/ratebook/internal/adapters/persistence"
	"github.com/okian/ratebook/internal/adapters/repository"
	"github.com/okian/ratebook/internal/domain/model"
	"github.com/okian/ratebook/pkg/logger"
)

// Service answers rating queries and mutations for one domain.
type Service struct {
	mu sync.RWMutex

	// Core components
	domain    model.Domain
	store     repository.Store
	codec     *codec.Codec
	backend   persistence.Backend
	syncer    *Syncer
	normalize model.Normalizer

	// Configuration
	schemaFile string
	saveOnStop bool

	// State
	started bool

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithDomain selects the domain. Defaults to model.Puzzles.
func WithDomain(d model.Domain) Option {
	return func(s *Service) {
		if d.Name != "" {
			s.domain = d
		}
	}
}

// WithStore sets the rating store. Defaults to a new MemoryStore.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithBackend loads ratings from b on Start and saves them on Stop.
func WithBackend(b persistence.Backend) Option {
	return func(s *Service) {
		s.backend = b
	}
}

// WithCodec sets the document codec used by Export.
func WithCodec(c *codec.Codec) Option {
	return func(s *Service) {
		if c != nil {
			s.codec = c
		}
	}
}

// WithSchemaFile overrides the embedded schema of the default codec.
func WithSchemaFile(path string) Option {
	return func(s *Service) {
		s.schemaFile = path
	}
}

// WithNormalizeNames title-cases owner and item names when enabled.
func WithNormalizeNames(enabled bool) Option {
	return func(s *Service) {
		s.normalize = model.NewNormalizer(enabled)
	}
}

// WithSaveOnStop controls whether Stop saves to the backend.
func WithSaveOnStop(enabled bool) Option {
	return func(s *Service) {
		s.saveOnStop = enabled
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a Service over an empty store unless WithStore is given.
// Start loads persisted ratings.
func New(opts ...Option) *Service {
	s := &Service{
		domain:     model.Puzzles,
		normalize:  model.TitleCase,
		saveOnStop: true,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.store == nil {
		s.store = repository.NewMemoryStore(repository.WithMetrics(true))
	}
	return s
}

// Start builds missing components and loads persisted ratings. A load
// failure leaves the service stopped.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.logger.Info(ctx, "starting rating service...", logger.String("domain", s.domain.Name))

	if s.codec == nil {
		c, err := codec.New(s.domain,
			codec.WithSchemaFile(s.schemaFile),
			codec.WithNormalizer(s.normalize),
		)
		if err != nil {
			return fmt.Errorf("build codec: %w", err)
		}
		s.codec = c
	}
	if s.backend != nil {
		s.syncer = NewSyncer(s.store, s.backend, s.logger)
		if err := s.syncer.Load(ctx); err != nil {
			return err
		}
	}

	s.started = true
	s.logger.Info(ctx, "rating service started",
		logger.Int("ratings", s.store.Count(ctx)),
		logger.Bool("persistent", s.backend != nil),
	)
	return nil
}

// Stop saves the ratings when configured to and marks the service stopped.
// The save runs at most once even if Stop is called again.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}
	s.logger.Info(ctx, "stopping rating service...")

	var err error
	if s.saveOnStop && s.syncer != nil {
		err = s.syncer.Save(ctx)
	}
	s.started = false
	s.logger.Info(ctx, "rating service stopped")
	return err
}

// Domain returns the configured domain.
func (s *Service) Domain() model.Domain {
	return s.domain
}

// Started reports whether Start has completed.
func (s *Service) Started() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started
}

// ParseRating parses a decimal integer rating and checks its range.
func ParseRating(raw string) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, &ValidationError{Field: "rating", Value: raw, Reason: "must be an integer"}
	}
	if err := checkRating(v); err != nil {
		return 0, err
	}
	return v, nil
}

func checkRating(v int) error {
	if !model.InRange(v) {
		return &ValidationError{
			Field:  "rating",
			Value:  strconv.Itoa(v),
			Reason: fmt.Sprintf("must be between %d and %d", model.MinRating, model.MaxRating),
		}
	}
	return nil
}

func (s *Service) name(field, raw string) (string, error) {
	n := s.normalize(raw)
	if n == "" {
		return "", &ValidationError{Field: field, Value: raw, Reason: "must not be blank"}
	}
	return n, nil
}

func (s *Service) key(owner, item string) (string, string, error) {
	o, err := s.name(s.domain.OwnerField, owner)
	if err != nil {
		return "", "", err
	}
	i, err := s.name(s.domain.ItemField, item)
	if err != nil {
		return "", "", err
	}
	return o, i, nil
}

// Owners returns the sorted owners with at least one rating.
func (s *Service) Owners(ctx context.Context) []string {
	return s.store.ListOwners(ctx)
}

// Items returns the sorted items with at least one rating.
func (s *Service) Items(ctx context.Context) []string {
	return s.store.ListItems(ctx)
}

// OwnerRatings returns item -> rating for owner, or repository.ErrNotFound
// when the owner has no ratings.
func (s *Service) OwnerRatings(ctx context.Context, owner string) (map[string]int, error) {
	o, err := s.name(s.domain.OwnerField, owner)
	if err != nil {
		return nil, err
	}
	rs := s.store.RatingsForOwner(ctx, o)
	if len(rs) == 0 {
		return nil, fmt.Errorf("%w: %s %q", repository.ErrNotFound, s.domain.OwnerField, o)
	}
	out := make(map[string]int, len(rs))
	for _, r := range rs {
		out[r.Item] = r.Value
	}
	return out, nil
}

// ItemRatings returns owner -> rating for item, or repository.ErrNotFound
// when nobody rated it.
func (s *Service) ItemRatings(ctx context.Context, item string) (map[string]int, error) {
	i, err := s.name(s.domain.ItemField, item)
	if err != nil {
		return nil, err
	}
	rs := s.store.RatingsForItem(ctx, i)
	if len(rs) == 0 {
		return nil, fmt.Errorf("%w: %s %q", repository.ErrNotFound, s.domain.ItemField, i)
	}
	out := make(map[string]int, len(rs))
	for _, r := range rs {
		out[r.Owner] = r.Value
	}
	return out, nil
}

// Rating returns the rating owner gave item.
func (s *Service) Rating(ctx context.Context, owner, item string) (int, error) {
	o, i, err := s.key(owner, item)
	if err != nil {
		return 0, err
	}
	return s.store.Get(ctx, o, i)
}

// CreateRating adds a rating; repository.ErrExists if already rated.
func (s *Service) CreateRating(ctx context.Context, owner, item string, value int) (model.Rating, error) {
	o, i, err := s.key(owner, item)
	if err != nil {
		return model.Rating{}, err
	}
	if err := checkRating(value); err != nil {
		return model.Rating{}, err
	}
	if err := s.store.Insert(ctx, o, i, value); err != nil {
		return model.Rating{}, err
	}
	return model.Rating{Owner: o, Item: i, Value: value}, nil
}

// UpdateRating changes a rating; repository.ErrNotFound if absent.
func (s *Service) UpdateRating(ctx context.Context, owner, item string, value int) (model.Rating, error) {
	o, i, err := s.key(owner, item)
	if err != nil {
		return model.Rating{}, err
	}
	if err := checkRating(value); err != nil {
		return model.Rating{}, err
	}
	if err := s.store.Update(ctx, o, i, value); err != nil {
		return model.Rating{}, err
	}
	return model.Rating{Owner: o, Item: i, Value: value}, nil
}

// PutRating creates or replaces a rating and reports whether it was created.
func (s *Service) PutRating(ctx context.Context, owner, item string, value int) (model.Rating, bool, error) {
	o, i, err := s.key(owner, item)
	if err != nil {
		return model.Rating{}, false, err
	}
	if err := checkRating(value); err != nil {
		return model.Rating{}, false, err
	}
	created, err := s.store.Upsert(ctx, o, i, value)
	if err != nil {
		return model.Rating{}, false, err
	}
	return model.Rating{Owner: o, Item: i, Value: value}, created, nil
}

// DeleteRating removes a rating; repository.ErrNotFound if absent.
func (s *Service) DeleteRating(ctx context.Context, owner, item string) error {
	o, i, err := s.key(owner, item)
	if err != nil {
		return err
	}
	return s.store.Delete(ctx, o, i)
}

// AllRatings groups every rating as owner -> item -> rating.
func (s *Service) AllRatings(ctx context.Context) map[string]map[string]int {
	out := make(map[string]map[string]int)
	for _, r := range s.store.Snapshot(ctx) {
		m, ok := out[r.Owner]
		if !ok {
			m = make(map[string]int)
			out[r.Owner] = m
		}
		m[r.Item] = r.Value
	}
	return out
}

// ItemSummaries lists each item's ratings, ordered by owner name.
func (s *Service) ItemSummaries(ctx context.Context) map[string][]int {
	out := make(map[string][]int)
	for _, r := range s.store.Snapshot(ctx) {
		out[r.Item] = append(out[r.Item], r.Value)
	}
	return out
}

// CommonItems returns the sorted items every owner rated at least
// minRating. A minRating below MinRating counts any rating. The answer is
// computed from one snapshot so concurrent writes cannot split it.
func (s *Service) CommonItems(ctx context.Context, minRating int) []string {
	owners := make(map[string]struct{})
	counts := make(map[string]int)
	for _, r := range s.store.Snapshot(ctx) {
		owners[r.Owner] = struct{}{}
		if r.Value >= minRating {
			counts[r.Item]++
		}
	}

	common := make([]string, 0, len(counts))
	for item, n := range counts {
		if n == len(owners) {
			common = append(common, item)
		}
	}
	sort.Strings(common)
	return common
}

// Export encodes the current snapshot as a ratings document.
func (s *Service) Export(ctx context.Context) ([]byte, error) {
	if s.codec == nil {
		return nil, ErrNotStarted
	}
	return s.codec.Encode(s.store.Snapshot(ctx))
}

// Stats returns service statistics for monitoring.
func (s *Service) Stats(ctx context.Context) map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started": s.started,
		"domain":  s.domain.Name,
	}
	if s.started {
		snap := s.store.Snapshot(ctx)
		owners := make(map[string]struct{})
		items := make(map[string]struct{})
		for _, r := range snap {
			owners[r.Owner] = struct{}{}
			items[r.Item] = struct{}{}
		}
		stats["ratings"] = len(snap)
		stats["owners"] = len(owners)
		stats["items"] = len(items)
		if s.backend != nil {
			stats["backend"] = s.backend.Name()
		}
	}
	return stats
}
