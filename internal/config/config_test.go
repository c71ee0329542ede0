package config_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/ratebook/internal/config"
	"github.com/okian/ratebook/internal/domain/model"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New(context.Background())

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.Domain, convey.ShouldEqual, "puzzles")
			convey.So(cfg.Backend, convey.ShouldEqual, "json")
			convey.So(cfg.DataFile, convey.ShouldEqual, "ratings.json")
			convey.So(cfg.NormalizeNames, convey.ShouldBeTrue)
			convey.So(cfg.SaveOnShutdown, convey.ShouldBeTrue)
			convey.So(cfg.ShutdownTimeout(), convey.ShouldEqual, 10*time.Second)
			convey.So(cfg.MetricsEnabled, convey.ShouldBeTrue)
			convey.So(cfg.MetricsRefresh(), convey.ShouldEqual, 10*time.Second)
		})

		convey.Convey("And it should validate", func() {
			convey.So(cfg.Validate(context.Background()), convey.ShouldBeNil)
			d, err := cfg.ResolveDomain()
			convey.So(err, convey.ShouldBeNil)
			convey.So(d, convey.ShouldResemble, model.Puzzles)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	ctx := context.Background()

	for _, tc := range []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"empty addr", func(c *config.Config) { c.Addr = " " }},
		{"unknown domain", func(c *config.Config) { c.Domain = "recipes" }},
		{"unknown backend", func(c *config.Config) { c.Backend = "redis" }},
		{"json without file", func(c *config.Config) { c.DataFile = "" }},
		{"sqlite without dsn", func(c *config.Config) { c.Backend = "sqlite" }},
		{"postgres without dsn", func(c *config.Config) { c.Backend = "postgres" }},
		{"bad log format", func(c *config.Config) { c.LogFormat = "xml" }},
		{"zero shutdown timeout", func(c *config.Config) { c.ShutdownTimeoutMS = 0 }},
		{"negative metrics refresh", func(c *config.Config) { c.MetricsRefreshMS = -5 }},
	} {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.New(ctx)
			tc.mutate(cfg)
			if err := cfg.Validate(ctx); !errors.Is(err, config.ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}

	t.Run("sqlite with dsn", func(t *testing.T) {
		cfg := config.New(ctx)
		cfg.Backend = "SQLite"
		cfg.DSN = "ratings.db"
		if err := cfg.Validate(ctx); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("domain names are case-insensitive", func(t *testing.T) {
		cfg := config.New(ctx)
		cfg.Domain = "BoardGames"
		if err := cfg.Validate(ctx); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})
}
