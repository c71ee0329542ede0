package codec

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/ratebook/internal/domain/model"
)

func mustCodec(t *testing.T, d model.Domain, opts ...Option) *Codec {
	t.Helper()
	c, err := New(d, opts...)
	if err != nil {
		t.Fatalf("new codec: %v", err)
	}
	return c
}

func violationPaths(err error) []string {
	var se *SchemaError
	if !errors.As(err, &se) {
		return nil
	}
	paths := make([]string, len(se.Violations))
	for i, v := range se.Violations {
		paths[i] = v.Path
	}
	return paths
}

func TestCodec_Validate(t *testing.T) {
	c := mustCodec(t, model.Puzzles)

	Convey("Given the puzzles codec", t, func() {
		Convey("A well formed document passes", func() {
			doc := []byte(`[{"solver":"Emily","puzzle":"Tiger","rating":5}]`)
			So(c.Validate(doc), ShouldBeNil)
		})

		Convey("An empty array passes", func() {
			So(c.Validate([]byte(`[]`)), ShouldBeNil)
		})

		Convey("A record without the item field is a schema error", func() {
			err := c.Validate([]byte(`[{"solver":"Emily","rating":5}]`))
			So(errors.Is(err, ErrSchema), ShouldBeTrue)
			So(violationPaths(err), ShouldContain, "/0")
			So(err.Error(), ShouldContainSubstring, "puzzle")
		})

		Convey("Every violation in the document is reported", func() {
			doc := []byte(`[
				{"solver":"A","puzzle":"B","rating":11},
				{"solver":"","puzzle":"C","rating":2},
				{"solver":"D","puzzle":"E","rating":"7"}
			]`)
			paths := violationPaths(c.Validate(doc))
			So(paths, ShouldContain, "/0/rating")
			So(paths, ShouldContain, "/1/solver")
			So(paths, ShouldContain, "/2/rating")
		})

		Convey("Unknown fields are rejected", func() {
			doc := []byte(`[{"solver":"A","puzzle":"B","rating":3,"note":"x"}]`)
			So(errors.Is(c.Validate(doc), ErrSchema), ShouldBeTrue)
		})

		Convey("A top level object is rejected", func() {
			doc := []byte(`{"solver":"A","puzzle":"B","rating":3}`)
			So(violationPaths(c.Validate(doc)), ShouldContain, "/")
		})

		Convey("Invalid JSON is reported at the root", func() {
			err := c.Validate([]byte(`[{"solver":`))
			So(violationPaths(err), ShouldResemble, []string{"/"})
		})

		Convey("Repeated properties within a record are reported", func() {
			doc := []byte(`[{"solver":"A","puzzle":"B","rating":3,"rating":4}]`)
			err := c.Validate(doc)
			So(errors.Is(err, ErrSchema), ShouldBeTrue)
			So(violationPaths(err), ShouldContain, "/0/rating")
		})
	})
}

func TestCodec_Decode(t *testing.T) {
	c := mustCodec(t, model.Puzzles, WithNormalizer(model.TitleCase))

	Convey("Given a codec that title-cases names", t, func() {
		Convey("Records decode in document order with normalized names", func() {
			doc := []byte(`[
				{"solver":"ziggy","puzzle":"the mystic maze","rating":9},
				{"solver":"Emily","puzzle":"Tiger","rating":5.0}
			]`)
			got, err := c.ValidateAndDecode(doc)
			So(err, ShouldBeNil)
			So(got, ShouldResemble, []model.Rating{
				{Owner: "Ziggy", Item: "The Mystic Maze", Value: 9},
				{Owner: "Emily", Item: "Tiger", Value: 5},
			})
		})

		Convey("Every duplicated pair is reported", func() {
			doc := []byte(`[
				{"solver":"Emily","puzzle":"Tiger","rating":5},
				{"solver":"emily","puzzle":"tiger","rating":2},
				{"solver":"Bo","puzzle":"Maze","rating":1},
				{"solver":"Bo","puzzle":"maze","rating":3},
				{"solver":"Bo","puzzle":"MAZE","rating":4}
			]`)
			_, err := c.ValidateAndDecode(doc)
			So(errors.Is(err, ErrDecode), ShouldBeTrue)

			var de *DecodeError
			So(errors.As(err, &de), ShouldBeTrue)
			So(de.Duplicates, ShouldResemble, []model.Key{
				{Owner: "Emily", Item: "Tiger"},
				{Owner: "Bo", Item: "Maze"},
			})
		})

		Convey("A schema error stops decoding", func() {
			_, err := c.ValidateAndDecode([]byte(`[{"solver":"Emily","rating":5}]`))
			So(errors.Is(err, ErrSchema), ShouldBeTrue)
		})
	})
}

func TestCodec_Encode(t *testing.T) {
	c := mustCodec(t, model.Puzzles)

	out, err := c.Encode([]model.Rating{{Owner: "Emily", Item: "Tiger", Value: 3}})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	want := "[\n  {\n    \"solver\": \"Emily\",\n    \"puzzle\": \"Tiger\",\n    \"rating\": 3\n  }\n]\n"
	if diff := cmp.Diff(want, string(out)); diff != "" {
		t.Errorf("encoded document mismatch (-want +got):\n%s", diff)
	}

	empty, err := c.Encode(nil)
	if err != nil {
		t.Fatalf("encode empty: %v", err)
	}
	if string(empty) != "[]\n" {
		t.Errorf("expected empty array, got %q", empty)
	}
}

func TestCodec_RoundTrip(t *testing.T) {
	for _, d := range []model.Domain{model.Puzzles, model.BoardGames} {
		t.Run(d.Name, func(t *testing.T) {
			c := mustCodec(t, d)
			in := []model.Rating{
				{Owner: "Ann", Item: "Azul", Value: 1},
				{Owner: "Ann", Item: "Catan", Value: 10},
				{Owner: "Ben", Item: "Azul", Value: 7},
				{Owner: `Quote "Q"`, Item: "Slash/Item", Value: 4},
			}
			doc, err := c.Encode(in)
			if err != nil {
				t.Fatalf("encode: %v", err)
			}
			got, err := c.ValidateAndDecode(doc)
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if diff := cmp.Diff(in, got); diff != "" {
				t.Errorf("round trip mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCodec_BoardGameFields(t *testing.T) {
	c := mustCodec(t, model.BoardGames)

	Convey("Given the board games codec", t, func() {
		Convey("player and game are the record fields", func() {
			got, err := c.ValidateAndDecode([]byte(`[{"player":"Sam","game":"Azul","rating":8}]`))
			So(err, ShouldBeNil)
			So(got, ShouldResemble, []model.Rating{{Owner: "Sam", Item: "Azul", Value: 8}})
		})

		Convey("puzzle field names are rejected", func() {
			err := c.Validate([]byte(`[{"solver":"Sam","puzzle":"Azul","rating":8}]`))
			So(errors.Is(err, ErrSchema), ShouldBeTrue)
		})
	})
}

func TestCodec_SchemaFile(t *testing.T) {
	Convey("Given a schema file that narrows ratings to 1..5", t, func() {
		raw, err := SchemaFor(model.Puzzles)
		So(err, ShouldBeNil)
		narrowed := strings.Replace(string(raw), `"maximum": 10`, `"maximum": 5`, 1)
		path := filepath.Join(t.TempDir(), "narrow.schema.json")
		So(os.WriteFile(path, []byte(narrowed), 0o600), ShouldBeNil)

		c, err := New(model.Puzzles, WithSchemaFile(path))
		So(err, ShouldBeNil)

		Convey("Ratings above the new maximum are violations", func() {
			err := c.Validate([]byte(`[{"solver":"A","puzzle":"B","rating":6}]`))
			So(violationPaths(err), ShouldContain, "/0/rating")
		})
	})

	Convey("A missing schema file fails construction", t, func() {
		_, err := New(model.Puzzles, WithSchemaFile(filepath.Join(t.TempDir(), "absent.json")))
		So(err, ShouldNotBeNil)
	})

	Convey("An unknown domain has no schema", t, func() {
		_, err := New(model.Domain{Name: "recipes"})
		So(errors.Is(err, model.ErrUnknownDomain), ShouldBeTrue)
	})
}
