package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/okian/ratebook/internal/domain/model"
	"github.com/okian/ratebook/pkg/metrics"
)

// Store operation results used as metric labels.
const (
	resultOK       = "ok"
	resultNotFound = "not_found"
	resultExists   = "exists"
	resultError    = "error"
)

// set is a string set used by the derived indices.
type set map[string]struct{}

func (s set) sorted() []string {
	out := make([]string, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// MemoryStore is the in-memory Store implementation.
//
// ratings is the primary map; byOwner and byItem are derived indices that
// always mirror its keys. All three are guarded by mu. An owner or item with
// no remaining ratings has no index entry.
type MemoryStore struct {
	mu      sync.RWMutex
	ratings map[model.Key]int
	byOwner map[string]set
	byItem  map[string]set

	metricsEnabled bool
}

// NewMemoryStore constructs an empty store with configuration options.
func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{
		ratings:        make(map[model.Key]int),
		byOwner:        make(map[string]set),
		byItem:         make(map[string]set),
		metricsEnabled: true,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// put writes a rating and its index entries. Caller holds the write lock.
func (s *MemoryStore) put(owner, item string, value int) bool {
	k := model.Key{Owner: owner, Item: item}
	_, existed := s.ratings[k]
	s.ratings[k] = value
	if existed {
		return false
	}
	if s.byOwner[owner] == nil {
		s.byOwner[owner] = make(set)
	}
	s.byOwner[owner][item] = struct{}{}
	if s.byItem[item] == nil {
		s.byItem[item] = make(set)
	}
	s.byItem[item][owner] = struct{}{}
	return true
}

// remove deletes a rating and prunes empty index entries. Caller holds the
// write lock.
func (s *MemoryStore) remove(owner, item string) bool {
	k := model.Key{Owner: owner, Item: item}
	if _, ok := s.ratings[k]; !ok {
		return false
	}
	delete(s.ratings, k)
	if items := s.byOwner[owner]; items != nil {
		delete(items, item)
		if len(items) == 0 {
			delete(s.byOwner, owner)
		}
	}
	if owners := s.byItem[item]; owners != nil {
		delete(owners, owner)
		if len(owners) == 0 {
			delete(s.byItem, item)
		}
	}
	return true
}

// sizes returns the rating, owner and item counts. Caller holds a lock.
func (s *MemoryStore) sizes() (int, int, int) {
	return len(s.ratings), len(s.byOwner), len(s.byItem)
}

func (s *MemoryStore) observe(op, result string, start time.Time) {
	if !s.metricsEnabled {
		return
	}
	metrics.RecordStoreOperation(op, result)
	metrics.RecordStoreLatency(op, float64(time.Since(start).Microseconds())/1000)
	if result == resultNotFound {
		metrics.RecordErrorByComponent("repository", resultNotFound)
	}
}

func (s *MemoryStore) publishSize(ratings, owners, items int) {
	if s.metricsEnabled {
		metrics.UpdateStoreSize(ratings, owners, items)
	}
}

// Upsert implements Store.Upsert.
func (s *MemoryStore) Upsert(_ context.Context, owner, item string, value int) (bool, error) {
	start := time.Now()

	s.mu.Lock()
	created := s.put(owner, item, value)
	r, o, i := s.sizes()
	s.mu.Unlock()

	s.observe("upsert", resultOK, start)
	if created {
		s.publishSize(r, o, i)
	}
	return created, nil
}

// Insert implements Store.Insert.
func (s *MemoryStore) Insert(_ context.Context, owner, item string, value int) error {
	start := time.Now()

	s.mu.Lock()
	if _, ok := s.ratings[model.Key{Owner: owner, Item: item}]; ok {
		s.mu.Unlock()
		s.observe("insert", resultExists, start)
		return fmt.Errorf("%w: %s/%s", ErrExists, owner, item)
	}
	s.put(owner, item, value)
	r, o, i := s.sizes()
	s.mu.Unlock()

	s.observe("insert", resultOK, start)
	s.publishSize(r, o, i)
	return nil
}

// Update implements Store.Update.
func (s *MemoryStore) Update(_ context.Context, owner, item string, value int) error {
	start := time.Now()
	k := model.Key{Owner: owner, Item: item}

	s.mu.Lock()
	if _, ok := s.ratings[k]; !ok {
		s.mu.Unlock()
		s.observe("update", resultNotFound, start)
		return fmt.Errorf("%w: %s/%s", ErrNotFound, owner, item)
	}
	s.ratings[k] = value
	s.mu.Unlock()

	s.observe("update", resultOK, start)
	return nil
}

// Get implements Store.Get.
func (s *MemoryStore) Get(_ context.Context, owner, item string) (int, error) {
	start := time.Now()

	s.mu.RLock()
	v, ok := s.ratings[model.Key{Owner: owner, Item: item}]
	s.mu.RUnlock()

	if !ok {
		s.observe("get", resultNotFound, start)
		return 0, fmt.Errorf("%w: %s/%s", ErrNotFound, owner, item)
	}
	s.observe("get", resultOK, start)
	return v, nil
}

// RatingFor implements Store.RatingFor.
func (s *MemoryStore) RatingFor(ctx context.Context, item, owner string) (int, error) {
	return s.Get(ctx, owner, item)
}

// Delete implements Store.Delete.
func (s *MemoryStore) Delete(_ context.Context, owner, item string) error {
	start := time.Now()

	s.mu.Lock()
	removed := s.remove(owner, item)
	r, o, i := s.sizes()
	s.mu.Unlock()

	if !removed {
		s.observe("delete", resultNotFound, start)
		return fmt.Errorf("%w: %s/%s", ErrNotFound, owner, item)
	}
	s.observe("delete", resultOK, start)
	s.publishSize(r, o, i)
	return nil
}

// ListOwners implements Store.ListOwners.
func (s *MemoryStore) ListOwners(_ context.Context) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0, len(s.byOwner))
	for owner := range s.byOwner {
		out = append(out, owner)
	}
	sort.Strings(out)
	return out
}

// ListItems implements Store.ListItems.
func (s *MemoryStore) ListItems(_ context.Context) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0, len(s.byItem))
	for item := range s.byItem {
		out = append(out, item)
	}
	sort.Strings(out)
	return out
}

// RatingsForOwner implements Store.RatingsForOwner.
func (s *MemoryStore) RatingsForOwner(_ context.Context, owner string) []model.ItemRating {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := s.byOwner[owner].sorted()
	out := make([]model.ItemRating, 0, len(items))
	for _, item := range items {
		out = append(out, model.ItemRating{Item: item, Value: s.ratings[model.Key{Owner: owner, Item: item}]})
	}
	return out
}

// RatingsForItem implements Store.RatingsForItem.
func (s *MemoryStore) RatingsForItem(_ context.Context, item string) []model.OwnerRating {
	s.mu.RLock()
	defer s.mu.RUnlock()

	owners := s.byItem[item].sorted()
	out := make([]model.OwnerRating, 0, len(owners))
	for _, owner := range owners {
		out = append(out, model.OwnerRating{Owner: owner, Value: s.ratings[model.Key{Owner: owner, Item: item}]})
	}
	return out
}

// Snapshot implements Store.Snapshot.
func (s *MemoryStore) Snapshot(_ context.Context) []model.Rating {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *MemoryStore) snapshotLocked() []model.Rating {
	out := make([]model.Rating, 0, len(s.ratings))
	for k, v := range s.ratings {
		out = append(out, model.Rating{Owner: k.Owner, Item: k.Item, Value: v})
	}
	model.SortRatings(out)
	return out
}

// Count implements Store.Count.
func (s *MemoryStore) Count(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.ratings)
}

// Restore implements Store.Restore.
func (s *MemoryStore) Restore(ctx context.Context, load LoadFunc) error {
	start := time.Now()

	s.mu.Lock()
	ratings, err := load(ctx)
	if err != nil {
		s.mu.Unlock()
		s.observe("restore", resultError, start)
		return err
	}

	fresh := NewMemoryStore(WithMetrics(false))
	for _, r := range ratings {
		if !fresh.put(r.Owner, r.Item, r.Value) {
			s.mu.Unlock()
			s.observe("restore", resultError, start)
			return fmt.Errorf("%w: %s", ErrDuplicateKey, r.Key())
		}
	}
	s.ratings, s.byOwner, s.byItem = fresh.ratings, fresh.byOwner, fresh.byItem
	r, o, i := s.sizes()
	s.mu.Unlock()

	s.observe("restore", resultOK, start)
	s.publishSize(r, o, i)
	return nil
}

// Persist implements Store.Persist.
func (s *MemoryStore) Persist(ctx context.Context, save SaveFunc) error {
	start := time.Now()

	s.mu.RLock()
	err := save(ctx, s.snapshotLocked())
	s.mu.RUnlock()

	if err != nil {
		s.observe("persist", resultError, start)
		return err
	}
	s.observe("persist", resultOK, start)
	return nil
}
