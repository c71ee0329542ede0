package loadtest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/ratebook/internal/adapters/codec"
	"github.com/okian/ratebook/internal/domain/model"
	"github.com/okian/ratebook/pkg/logger"
)

// File permission constants.
const (
	directoryPermission = 0o750
	filePermission      = 0o600
)

// Run generates ratings, submits them concurrently, reads every owner back
// and compares. A run with failed submissions or mismatches returns
// ErrMismatch along with the stats.
func Run(ctx context.Context, cfg Config, log logger.Logger) (*Stats, error) {
	if err := cfg.withDefaults(); err != nil {
		return nil, err
	}
	stats := &Stats{StartTime: time.Now()}
	c := newClient(cfg)

	log.Info(ctx, "starting ratebook load test",
		logger.String("baseURL", cfg.BaseURL),
		logger.String("domain", cfg.Domain.Name),
		logger.Int("owners", cfg.Owners),
		logger.Int("items", cfg.Items),
		logger.Int("workers", cfg.Workers),
		logger.Duration("timeout", cfg.Timeout))

	if err := c.health(ctx); err != nil {
		return nil, fmt.Errorf("service health check failed: %w", err)
	}

	ratings := Generate(cfg)
	stats.Generated = len(ratings)
	log.Info(ctx, "generated ratings", logger.Int("count", len(ratings)))

	if err := submit(ctx, c, cfg.Workers, ratings, stats); err != nil {
		return nil, fmt.Errorf("rating submission failed: %w", err)
	}
	log.Info(ctx, "rating submission completed",
		logger.Int("created", stats.Created),
		logger.Int("updated", stats.Updated),
		logger.Int("failed", stats.Failed))

	mismatches, err := verify(ctx, c, cfg.Workers, ratings, stats)
	if err != nil {
		return nil, fmt.Errorf("result verification failed: %w", err)
	}
	for _, m := range mismatches {
		log.Warn(ctx, "rating mismatch", logger.String("key", m.Key.String()),
			logger.Int("want", m.Want), logger.Int("got", m.Got))
	}

	if cfg.OutputFile != "" {
		if err := saveRatings(cfg, ratings); err != nil {
			log.Warn(ctx, "failed to save ratings to file", logger.Error(err))
		} else {
			log.Info(ctx, "ratings saved to file", logger.String("filename", cfg.OutputFile))
		}
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	logStats(ctx, log, stats)

	if stats.Failed > 0 || stats.Mismatched > 0 {
		return stats, fmt.Errorf("%w: %d failed, %d mismatched", ErrMismatch, stats.Failed, stats.Mismatched)
	}
	return stats, nil
}

// submit PUTs every rating with at most workers requests in flight.
func submit(ctx context.Context, c *client, workers int, ratings []model.Rating, stats *Stats) error {
	var created, updated, failed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, r := range ratings {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			switch c.put(gctx, r) {
			case resultCreated:
				created.Add(1)
			case resultUpdated:
				updated.Add(1)
			default:
				failed.Add(1)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	stats.Created = int(created.Load())
	stats.Updated = int(updated.Load())
	stats.Failed = int(failed.Load())
	stats.Submitted = stats.Created + stats.Updated + stats.Failed
	return nil
}

// saveRatings writes the generated ratings as a ratings document.
func saveRatings(cfg Config, ratings []model.Rating) error {
	c, err := codec.New(cfg.Domain)
	if err != nil {
		return err
	}
	doc, err := c.Encode(ratings)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(cfg.OutputFile); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	return os.WriteFile(cfg.OutputFile, doc, filePermission)
}

func logStats(ctx context.Context, log logger.Logger, stats *Stats) {
	var perSecond float64
	if stats.Duration > 0 {
		perSecond = float64(stats.Submitted) / stats.Duration.Seconds()
	}
	log.Info(ctx, "final statistics",
		logger.Int("generated", stats.Generated),
		logger.Int("submitted", stats.Submitted),
		logger.Int("created", stats.Created),
		logger.Int("updated", stats.Updated),
		logger.Int("failed", stats.Failed),
		logger.Int("verified", stats.Verified),
		logger.Int("mismatched", stats.Mismatched),
		logger.Duration("duration", stats.Duration),
		logger.Float64("requestsPerSecond", perSecond))
}
