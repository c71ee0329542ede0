package persistence

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/ratebook/internal/adapters/codec"
	"github.com/okian/ratebook/internal/domain/model"
)

func puzzleCodec(t *testing.T) *codec.Codec {
	t.Helper()
	c, err := codec.New(model.Puzzles)
	if err != nil {
		t.Fatalf("codec: %v", err)
	}
	return c
}

var sample = []model.Rating{
	{Owner: "Ann", Item: "Maze", Value: 4},
	{Owner: "Ann", Item: "Tiger", Value: 9},
	{Owner: "Emily", Item: "Tiger", Value: 3},
}

func TestJSONFile(t *testing.T) {
	ctx := context.Background()

	Convey("Given a JSON backend in an empty directory", t, func() {
		dir := t.TempDir()
		path := filepath.Join(dir, "ratings.json")
		b := NewJSONFile(path, puzzleCodec(t))

		Convey("Loading a missing file yields no ratings", func() {
			got, err := b.Load(ctx)
			So(err, ShouldBeNil)
			So(got, ShouldBeEmpty)
		})

		Convey("Saved ratings load back unchanged", func() {
			So(b.Save(ctx, sample), ShouldBeNil)
			got, err := b.Load(ctx)
			So(err, ShouldBeNil)
			So(cmp.Diff(sample, got), ShouldBeEmpty)

			Convey("And no temporary files are left behind", func() {
				entries, err := os.ReadDir(dir)
				So(err, ShouldBeNil)
				So(len(entries), ShouldEqual, 1)
				So(entries[0].Name(), ShouldEqual, "ratings.json")
			})
		})

		Convey("Saving into a missing directory creates it", func() {
			nested := NewJSONFile(filepath.Join(dir, "a", "b", "ratings.json"), puzzleCodec(t))
			So(nested.Save(ctx, sample[:1]), ShouldBeNil)
			_, err := os.Stat(filepath.Join(dir, "a", "b", "ratings.json"))
			So(err, ShouldBeNil)
		})

		Convey("A document missing a field is a schema error", func() {
			So(os.WriteFile(path, []byte(`[{"solver":"Emily","rating":5}]`), 0o600), ShouldBeNil)
			_, err := b.Load(ctx)
			So(errors.Is(err, codec.ErrSchema), ShouldBeTrue)
		})

		Convey("A document with repeated pairs is a decode error", func() {
			doc := `[{"solver":"A","puzzle":"B","rating":1},{"solver":"A","puzzle":"B","rating":2}]`
			So(os.WriteFile(path, []byte(doc), 0o600), ShouldBeNil)
			_, err := b.Load(ctx)
			So(errors.Is(err, codec.ErrDecode), ShouldBeTrue)
		})

		Convey("An unreadable path is a persistence error", func() {
			So(os.Mkdir(path, 0o755), ShouldBeNil)
			_, err := b.Load(ctx)
			So(errors.Is(err, ErrPersistence), ShouldBeTrue)

			var pe *Error
			So(errors.As(err, &pe), ShouldBeTrue)
			So(pe.Op, ShouldEqual, "load")
			So(pe.Path, ShouldEqual, path)
		})
	})
}

func TestSQLTable_SQLite(t *testing.T) {
	ctx := context.Background()

	Convey("Given a sqlite table", t, func() {
		dsn := filepath.Join(t.TempDir(), "ratings.db")
		tbl, err := OpenSQLTable(ctx, SQLite, dsn)
		So(err, ShouldBeNil)
		Reset(func() { tbl.Close() })

		So(tbl.Name(), ShouldEqual, BackendSQLite)

		Convey("A fresh table is empty", func() {
			got, err := tbl.Load(ctx)
			So(err, ShouldBeNil)
			So(got, ShouldBeEmpty)
		})

		Convey("Save replaces the previous contents", func() {
			So(tbl.Save(ctx, sample), ShouldBeNil)
			So(tbl.Save(ctx, sample[1:]), ShouldBeNil)

			got, err := tbl.Load(ctx)
			So(err, ShouldBeNil)
			So(cmp.Diff(sample[1:], got), ShouldBeEmpty)
		})

		Convey("A failed save leaves the table untouched", func() {
			So(tbl.Save(ctx, sample), ShouldBeNil)
			dup := append([]model.Rating{}, sample...)
			dup = append(dup, sample[0])
			err := tbl.Save(ctx, dup)
			So(errors.Is(err, ErrPersistence), ShouldBeTrue)

			got, err := tbl.Load(ctx)
			So(err, ShouldBeNil)
			So(cmp.Diff(sample, got), ShouldBeEmpty)
		})

		Convey("Reopening sees the saved rows", func() {
			So(tbl.Save(ctx, sample), ShouldBeNil)
			again, err := OpenSQLTable(ctx, SQLite, dsn)
			So(err, ShouldBeNil)
			defer again.Close()
			got, err := again.Load(ctx)
			So(err, ShouldBeNil)
			So(len(got), ShouldEqual, len(sample))
		})
	})
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	c := puzzleCodec(t)

	b, err := Open(ctx, "JSON", "ratings.json", "", c)
	if err != nil {
		t.Fatalf("open json: %v", err)
	}
	if b.Name() != BackendJSON || b.Location() != "ratings.json" {
		t.Errorf("unexpected backend %s at %s", b.Name(), b.Location())
	}

	if _, err := Open(ctx, "redis", "", "", c); !errors.Is(err, ErrUnknownBackend) {
		t.Errorf("expected ErrUnknownBackend, got %v", err)
	}
	if _, err := Open(ctx, BackendPostgres, "", "", c); !errors.Is(err, ErrPersistence) {
		t.Errorf("expected ErrPersistence for empty dsn, got %v", err)
	}
}

func TestRebind(t *testing.T) {
	q := `INSERT INTO ratings (owner, item, rating) VALUES (?, ?, ?)`
	if got := SQLite.rebind(q); got != q {
		t.Errorf("sqlite rebind changed query: %s", got)
	}
	want := `INSERT INTO ratings (owner, item, rating) VALUES ($1, $2, $3)`
	if got := Postgres.rebind(q); got != want {
		t.Errorf("postgres rebind = %s, want %s", got, want)
	}
}

func TestRedact(t *testing.T) {
	got := redact("postgres://app:secret@db:5432/ratings?sslmode=disable")
	if got != "postgres://app:xxxxx@db:5432/ratings?sslmode=disable" {
		t.Errorf("unexpected redaction: %s", got)
	}
	if got := redact("/var/lib/ratebook.db"); got != "/var/lib/ratebook.db" {
		t.Errorf("plain path changed: %s", got)
	}
}
