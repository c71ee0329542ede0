package config_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/ratebook/internal/config"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()
		defer clearConfigEnvVars()

		convey.Convey("When loading config with defaults only", func() {
			cfg, err := config.Load(ctx, "")

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
				convey.So(cfg.Backend, convey.ShouldEqual, "json")
				convey.So(cfg.NormalizeNames, convey.ShouldBeTrue)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("RATEBOOK_ADDR", ":8080")
			_ = os.Setenv("RATEBOOK_DOMAIN", "boardgames")
			_ = os.Setenv("RATEBOOK_DATA_FILE", "/data/games.json")
			_ = os.Setenv("RATEBOOK_NORMALIZE_NAMES", "false")
			_ = os.Setenv("RATEBOOK_SHUTDOWN_TIMEOUT_MS", "2500")
			_ = os.Setenv("RATEBOOK_METRICS_ENABLED", "false")
			_ = os.Setenv("RATEBOOK_METRICS_REFRESH_MS", "500")

			cfg, err := config.Load(ctx, "")

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.Domain, convey.ShouldEqual, "boardgames")
				convey.So(cfg.DataFile, convey.ShouldEqual, "/data/games.json")
				convey.So(cfg.NormalizeNames, convey.ShouldBeFalse)
				convey.So(cfg.ShutdownTimeoutMS, convey.ShouldEqual, 2500)
				convey.So(cfg.MetricsEnabled, convey.ShouldBeFalse)
				convey.So(cfg.MetricsRefresh(), convey.ShouldEqual, 500*time.Millisecond)
			})
		})

		convey.Convey("When loading config with YAML file", func() {
			path := filepath.Join(t.TempDir(), "ratebook.yaml")
			yaml := "addr: \":7070\"\nbackend: sqlite\ndsn: /tmp/ratings.db\nlog_format: json\nsave_on_shutdown: false\n"
			convey.So(os.WriteFile(path, []byte(yaml), 0o600), convey.ShouldBeNil)

			convey.Convey("Then the file overrides defaults", func() {
				cfg, err := config.Load(ctx, path)
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":7070")
				convey.So(cfg.Backend, convey.ShouldEqual, "sqlite")
				convey.So(cfg.DSN, convey.ShouldEqual, "/tmp/ratings.db")
				convey.So(cfg.LogFormat, convey.ShouldEqual, "json")
				convey.So(cfg.SaveOnShutdown, convey.ShouldBeFalse)
				convey.So(cfg.Validate(ctx), convey.ShouldBeNil)
			})

			convey.Convey("And the file is found through RATEBOOK_CONFIG", func() {
				_ = os.Setenv(config.EnvConfig, path)
				cfg, err := config.Load(ctx, "")
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":7070")
			})

			convey.Convey("And env vars override the file", func() {
				_ = os.Setenv("RATEBOOK_ADDR", ":6060")
				cfg, err := config.Load(ctx, path)
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":6060")
			})
		})

		convey.Convey("When the config file does not exist", func() {
			_, err := config.Load(ctx, filepath.Join(t.TempDir(), "missing.yaml"))

			convey.Convey("Then ErrLoadConfig is returned", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
			})
		})
	})
}

func clearConfigEnvVars() {
	for _, k := range []string{
		config.EnvConfig,
		"RATEBOOK_ADDR",
		"RATEBOOK_DOMAIN",
		"RATEBOOK_DATA_FILE",
		"RATEBOOK_NORMALIZE_NAMES",
		"RATEBOOK_SHUTDOWN_TIMEOUT_MS",
		"RATEBOOK_METRICS_ENABLED",
		"RATEBOOK_METRICS_REFRESH_MS",
	} {
		_ = os.Unsetenv(k)
	}
}
