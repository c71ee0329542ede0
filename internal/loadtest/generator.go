package loadtest

import (
	"crypto/rand"
	"math/big"
	"runtime"
	"strconv"

	"github.com/okian/ratebook/internal/domain/model"
)

// Owners rate roughly one item in rateOneIn.
const (
	rateOneIn        = 2
	workerMultiplier = 2
)

func defaultWorkers() int {
	return runtime.NumCPU() * workerMultiplier
}

// randInt returns a uniform value in [0, n) using crypto/rand.
func randInt(n int) int {
	v, _ := rand.Int(rand.Reader, big.NewInt(int64(n)))
	return int(v.Int64())
}

// names returns count title-cased names such as "Solver 7".
func names(field string, count int) []string {
	out := make([]string, count)
	for i := range out {
		out[i] = model.TitleCase(field + " " + strconv.Itoa(i+1))
	}
	return out
}

// Generate builds a random rating set for cfg: every owner rates at least
// one item and every value lies in the accepted range.
func Generate(cfg Config) []model.Rating {
	owners := names(cfg.Domain.OwnerField, cfg.Owners)
	items := names(cfg.Domain.ItemField, cfg.Items)
	if len(items) == 0 {
		return nil
	}

	var out []model.Rating
	for _, owner := range owners {
		forced := randInt(len(items))
		for i, item := range items {
			if i != forced && randInt(rateOneIn) != 0 {
				continue
			}
			out = append(out, model.Rating{
				Owner: owner,
				Item:  item,
				Value: model.MinRating + randInt(model.MaxRating-model.MinRating+1),
			})
		}
	}
	model.SortRatings(out)
	return out
}
