package loadtest

import (
	"context"
	"errors"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/okian/ratebook/internal/domain/model"
)

// ErrMismatch reports that the server did not hold every submitted rating.
var ErrMismatch = errors.New("load test found mismatches")

// Mismatch is a rating that read back differently. Got is 0 when the
// rating was missing.
type Mismatch struct {
	Key  model.Key
	Want int
	Got  int
}

// verify reads back every owner's ratings and compares them with sent.
func verify(ctx context.Context, c *client, workers int, sent []model.Rating, stats *Stats) ([]Mismatch, error) {
	want := make(map[string]map[string]int)
	for _, r := range sent {
		if want[r.Owner] == nil {
			want[r.Owner] = make(map[string]int)
		}
		want[r.Owner][r.Item] = r.Value
	}

	var (
		mu  sync.Mutex
		out []Mismatch
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for owner, items := range want {
		g.Go(func() error {
			got, err := c.ownerRatings(gctx, owner)
			if err != nil {
				return err
			}
			found := compare(owner, items, got)
			mu.Lock()
			out = append(out, found...)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(out, func(i, j int) bool {
		return model.CompareRatings(
			model.Rating{Owner: out[i].Key.Owner, Item: out[i].Key.Item},
			model.Rating{Owner: out[j].Key.Owner, Item: out[j].Key.Item},
		) < 0
	})
	stats.Mismatched = len(out)
	stats.Verified = len(sent) - len(out)
	return out, nil
}

// compare lists the items whose rating in got differs from want. Extra
// ratings on the server are not mismatches.
func compare(owner string, want, got map[string]int) []Mismatch {
	var out []Mismatch
	for item, v := range want {
		if got[item] != v {
			out = append(out, Mismatch{Key: model.Key{Owner: owner, Item: item}, Want: v, Got: got[item]})
		}
	}
	return out
}
