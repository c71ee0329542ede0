package loadtest

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/ratebook/internal/adapters/codec"
	"github.com/okian/ratebook/internal/adapters/http/api"
	"github.com/okian/ratebook/internal/adapters/repository"
	service "github.com/okian/ratebook/internal/app"
	"github.com/okian/ratebook/internal/domain/model"
	"github.com/okian/ratebook/pkg/logger"
)

func init() {
	if err := logger.Init(logger.WithWriter(io.Discard)); err != nil {
		panic(err)
	}
}

func newRatingServer(t *testing.T, d model.Domain) *httptest.Server {
	t.Helper()
	svc := service.New(
		service.WithDomain(d),
		service.WithStore(repository.NewMemoryStore(repository.WithMetrics(false))),
	)
	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("start service: %v", err)
	}
	mux := http.NewServeMux()
	api.NewServer(svc).Register(context.Background(), mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestGenerate(t *testing.T) {
	Convey("Given a board game config", t, func() {
		cfg := Config{Domain: model.BoardGames, Owners: 5, Items: 8}

		Convey("When ratings are generated", func() {
			ratings := Generate(cfg)

			Convey("Then every owner rates something within range", func() {
				owners := map[string]bool{}
				seen := map[model.Key]bool{}
				for _, r := range ratings {
					owners[r.Owner] = true
					So(model.InRange(r.Value), ShouldBeTrue)
					So(seen[r.Key()], ShouldBeFalse)
					seen[r.Key()] = true
				}
				So(len(owners), ShouldEqual, 5)
				So(owners["Player 1"], ShouldBeTrue)
				So(ratings[0].Owner, ShouldEqual, "Player 1")
			})
		})

		Convey("When there are no items", func() {
			cfg.Items = 0
			So(Generate(cfg), ShouldBeEmpty)
		})
	})
}

func TestConfigDefaults(t *testing.T) {
	Convey("Given configs", t, func() {
		Convey("A missing base url is rejected", func() {
			cfg := Config{Domain: model.Puzzles}
			So(errors.Is(cfg.withDefaults(), ErrConfig), ShouldBeTrue)
		})

		Convey("A negative count is rejected", func() {
			cfg := Config{BaseURL: "http://x", Domain: model.Puzzles, Owners: -1}
			So(errors.Is(cfg.withDefaults(), ErrConfig), ShouldBeTrue)
		})

		Convey("Zero values take the defaults", func() {
			cfg := Config{BaseURL: "http://x", Domain: model.Puzzles}
			So(cfg.withDefaults(), ShouldBeNil)
			So(cfg.Owners, ShouldEqual, DefaultOwners)
			So(cfg.Items, ShouldEqual, DefaultItems)
			So(cfg.Workers, ShouldBeGreaterThan, 0)
			So(cfg.Timeout, ShouldEqual, DefaultTimeout)
		})
	})
}

func TestRun(t *testing.T) {
	Convey("Given a running ratings server", t, func() {
		ctx := context.Background()
		srv := newRatingServer(t, model.Puzzles)
		out := filepath.Join(t.TempDir(), "sent", "ratings.json")
		cfg := Config{BaseURL: srv.URL, Domain: model.Puzzles, Owners: 4, Items: 6, Workers: 3, OutputFile: out}

		Convey("When the load test runs", func() {
			stats, err := Run(ctx, cfg, logger.Get())

			Convey("Then every rating is created and reads back", func() {
				So(err, ShouldBeNil)
				So(stats.Submitted, ShouldEqual, stats.Generated)
				So(stats.Created, ShouldEqual, stats.Generated)
				So(stats.Failed, ShouldEqual, 0)
				So(stats.Mismatched, ShouldEqual, 0)
				So(stats.Verified, ShouldEqual, stats.Generated)
			})

			Convey("Then the sent ratings are saved as a valid document", func() {
				doc, err := os.ReadFile(out)
				So(err, ShouldBeNil)
				c, err := codec.New(model.Puzzles)
				So(err, ShouldBeNil)
				ratings, err := c.ValidateAndDecode(doc)
				So(err, ShouldBeNil)
				So(len(ratings), ShouldEqual, stats.Generated)
			})

			Convey("And a second run updates existing ratings", func() {
				again, err := Run(ctx, Config{BaseURL: srv.URL, Domain: model.Puzzles, Owners: 4, Items: 6, Workers: 3}, logger.Get())
				So(err, ShouldBeNil)
				So(again.Updated+again.Created, ShouldEqual, again.Generated)
				So(again.Mismatched, ShouldEqual, 0)
			})
		})
	})

	Convey("Given a server that forgets ratings", t, func() {
		mux := http.NewServeMux()
		mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
		mux.HandleFunc("PUT /api/puzzles/{item}/{owner}", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusCreated)
		})
		mux.HandleFunc("GET /api/solvers/{owner}", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		})
		srv := httptest.NewServer(mux)
		defer srv.Close()

		Convey("When the load test runs", func() {
			stats, err := Run(context.Background(), Config{BaseURL: srv.URL, Domain: model.Puzzles, Owners: 2, Items: 3}, logger.Get())

			Convey("Then every rating is reported as a mismatch", func() {
				So(errors.Is(err, ErrMismatch), ShouldBeTrue)
				So(stats.Mismatched, ShouldEqual, stats.Generated)
				So(stats.Verified, ShouldEqual, 0)
			})
		})
	})

	Convey("Given a server that is down", t, func() {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()

		Convey("Then the health check fails the run", func() {
			_, err := Run(context.Background(), Config{BaseURL: url, Domain: model.Puzzles}, logger.Get())
			So(err, ShouldNotBeNil)
		})
	})
}
