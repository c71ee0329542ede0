// Package model contains domain models passed between layers.
package model

import (
	"cmp"
	"slices"
)

// Rating bounds, inclusive.
const (
	MinRating = 1
	MaxRating = 10
)

// Rating is a single score an owner gave to an item.
type Rating struct {
	Owner string `json:"owner"`
	Item  string `json:"item"`
	Value int    `json:"rating"`
}

// Key returns the unique key of the rating.
func (r Rating) Key() Key {
	return Key{Owner: r.Owner, Item: r.Item}
}

// Key identifies a rating. At most one rating exists per key.
type Key struct {
	Owner string
	Item  string
}

func (k Key) String() string {
	return k.Owner + "/" + k.Item
}

// ItemRating is one entry of an owner's ratings.
type ItemRating struct {
	Item  string `json:"item"`
	Value int    `json:"rating"`
}

// OwnerRating is one entry of an item's ratings.
type OwnerRating struct {
	Owner string `json:"owner"`
	Value int    `json:"rating"`
}

// InRange reports whether v lies within [MinRating, MaxRating].
func InRange(v int) bool {
	return v >= MinRating && v <= MaxRating
}

// CompareRatings orders ratings by owner, then item.
func CompareRatings(a, b Rating) int {
	if c := cmp.Compare(a.Owner, b.Owner); c != 0 {
		return c
	}
	return cmp.Compare(a.Item, b.Item)
}

// SortRatings sorts rs in place by owner, then item.
func SortRatings(rs []Rating) {
	slices.SortFunc(rs, CompareRatings)
}
