// Package repository defines the rating store interface and errors.
package repository

import (
	"context"

	"github.com/okian/ratebook/internal/domain/model"
)

// LoadFunc produces the full set of ratings to restore into a store.
type LoadFunc func(ctx context.Context) ([]model.Rating, error)

// SaveFunc receives a consistent snapshot of a store for persisting.
type SaveFunc func(ctx context.Context, ratings []model.Rating) error

// Store provides read/write access to the rating state.
type Store interface {
	// Upsert inserts or overwrites the rating for (owner, item).
	// Returns true when a new key was created.
	Upsert(ctx context.Context, owner, item string, value int) (bool, error)
	// Insert adds a rating. Returns ErrExists if (owner, item) is already rated.
	Insert(ctx context.Context, owner, item string, value int) error
	// Update overwrites an existing rating. Returns ErrNotFound if absent.
	Update(ctx context.Context, owner, item string, value int) error

	// Get returns the rating for (owner, item) or ErrNotFound.
	Get(ctx context.Context, owner, item string) (int, error)
	// Delete removes the rating for (owner, item) or returns ErrNotFound.
	Delete(ctx context.Context, owner, item string) error

	// ListOwners returns the sorted owners that rated at least one item.
	ListOwners(ctx context.Context) []string
	// ListItems returns the sorted items rated by at least one owner.
	ListItems(ctx context.Context) []string
	// RatingsForOwner returns the owner's ratings sorted by item; empty if unknown.
	RatingsForOwner(ctx context.Context, owner string) []model.ItemRating
	// RatingsForItem returns the item's ratings sorted by owner; empty if unknown.
	RatingsForItem(ctx context.Context, item string) []model.OwnerRating
	// RatingFor returns the rating owner gave item or ErrNotFound.
	RatingFor(ctx context.Context, item, owner string) (int, error)

	// Snapshot returns all ratings ordered by owner, then item.
	Snapshot(ctx context.Context) []model.Rating
	// Count returns the number of ratings.
	Count(ctx context.Context) int

	// Restore replaces the store contents with the output of load. The store
	// is locked for the whole call and left untouched if load fails.
	Restore(ctx context.Context, load LoadFunc) error
	// Persist passes a snapshot to save while holding the store lock, so no
	// mutation can interleave with the save.
	Persist(ctx context.Context, save SaveFunc) error
}
