// Package codec converts between rating documents and ratings.
//
// A document is a JSON array of records, each holding the owner field, the
// item field and an integer "rating". Field names depend on the domain
// (solver/puzzle, player/game). Documents are validated against the domain's
// JSON Schema before they are decoded.
package codec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/okian/ratebook/internal/domain/model"
	"github.com/okian/ratebook/pkg/metrics"
)

// ratingField is the JSON field holding the rating value in every domain.
const ratingField = "rating"

// Codec validates, decodes and encodes rating documents for one domain.
// It holds no rating state and is safe for concurrent use.
type Codec struct {
	domain     model.Domain
	schema     *jsonschema.Schema
	schemaFile string
	normalize  model.Normalizer
}

// Option applies a configuration option to the Codec.
type Option func(*Codec)

// WithSchemaFile validates against the schema stored at path instead of the
// embedded one.
func WithSchemaFile(path string) Option {
	return func(c *Codec) {
		c.schemaFile = strings.TrimSpace(path)
	}
}

// WithNormalizer canonicalizes owner and item names while decoding.
func WithNormalizer(n model.Normalizer) Option {
	return func(c *Codec) {
		if n != nil {
			c.normalize = n
		}
	}
}

// New builds a Codec for domain d and compiles its schema.
func New(d model.Domain, opts ...Option) (*Codec, error) {
	c := &Codec{
		domain:    d,
		normalize: strings.TrimSpace,
	}
	for _, opt := range opts {
		opt(c)
	}

	var err error
	if c.schemaFile != "" {
		c.schema, err = loadSchemaFile(c.schemaFile)
	} else {
		var raw []byte
		raw, err = SchemaFor(d)
		if err == nil {
			c.schema, err = compileSchema(schemaBaseURL+d.Name+".schema.json", raw)
		}
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Domain returns the domain this codec was built for.
func (c *Codec) Domain() model.Domain {
	return c.domain
}

// Validate checks doc against the schema and reports every violation it
// finds, including properties repeated within one record.
func (c *Codec) Validate(doc []byte) error {
	violations := schemaViolations(c.schema, doc)
	violations = append(violations, duplicateProperties(doc)...)
	if len(violations) == 0 {
		return nil
	}
	sortViolations(violations)
	metrics.RecordSchemaViolations(len(violations))
	return &SchemaError{Violations: violations}
}

// Decode turns a validated document into ratings in document order. Names are
// normalized first, so records that differ only in spelling collide. All
// colliding (owner, item) pairs are reported in one DecodeError.
func (c *Codec) Decode(doc []byte) ([]model.Rating, error) {
	dec := json.NewDecoder(bytes.NewReader(doc))
	dec.UseNumber()

	var records []map[string]any
	if err := dec.Decode(&records); err != nil {
		return nil, &DecodeError{Reason: err.Error()}
	}

	ratings := make([]model.Rating, 0, len(records))
	seen := make(map[model.Key]int, len(records))
	var dups []model.Key
	for i, rec := range records {
		r, err := c.decodeRecord(rec)
		if err != nil {
			return nil, &DecodeError{Reason: fmt.Sprintf("record %d: %v", i, err)}
		}
		k := r.Key()
		switch seen[k] {
		case 0:
			ratings = append(ratings, r)
		case 1:
			dups = append(dups, k)
		}
		seen[k]++
	}
	if len(dups) > 0 {
		return nil, &DecodeError{Duplicates: dups}
	}
	return ratings, nil
}

func (c *Codec) decodeRecord(rec map[string]any) (model.Rating, error) {
	owner, ok := rec[c.domain.OwnerField].(string)
	if !ok {
		return model.Rating{}, fmt.Errorf("%q must be a string", c.domain.OwnerField)
	}
	item, ok := rec[c.domain.ItemField].(string)
	if !ok {
		return model.Rating{}, fmt.Errorf("%q must be a string", c.domain.ItemField)
	}
	num, ok := rec[ratingField].(json.Number)
	if !ok {
		return model.Rating{}, fmt.Errorf("%q must be an integer", ratingField)
	}
	v, err := integer(num)
	if err != nil {
		return model.Rating{}, fmt.Errorf("%q must be an integer: %w", ratingField, err)
	}
	return model.Rating{Owner: c.normalize(owner), Item: c.normalize(item), Value: v}, nil
}

// integer accepts integral numbers written with a fraction or exponent
// ("5.0", "5e0"), as JSON Schema does.
func integer(num json.Number) (int, error) {
	if v, err := num.Int64(); err == nil {
		return int(v), nil
	}
	f, err := num.Float64()
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return 0, fmt.Errorf("%s is not an integer", num)
	}
	return int(f), nil
}

// ValidateAndDecode runs Validate, then Decode.
func (c *Codec) ValidateAndDecode(doc []byte) ([]model.Rating, error) {
	if err := c.Validate(doc); err != nil {
		return nil, err
	}
	return c.Decode(doc)
}

// Encode renders ratings as a document with the domain's field names, one
// record per line of the array.
func (c *Codec) Encode(ratings []model.Rating) ([]byte, error) {
	recs := make([]record, len(ratings))
	for i, r := range ratings {
		recs[i] = record{domain: &c.domain, rating: r}
	}
	out, err := json.MarshalIndent(recs, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode ratings: %w", err)
	}
	return append(out, '\n'), nil
}

// record marshals a rating with domain field names in a fixed order.
type record struct {
	domain *model.Domain
	rating model.Rating
}

func (r record) MarshalJSON() ([]byte, error) {
	var b bytes.Buffer
	b.WriteByte('{')
	for i, f := range []struct {
		name  string
		value any
	}{
		{r.domain.OwnerField, r.rating.Owner},
		{r.domain.ItemField, r.rating.Item},
		{ratingField, r.rating.Value},
	} {
		if i > 0 {
			b.WriteByte(',')
		}
		k, err := json.Marshal(f.name)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(f.value)
		if err != nil {
			return nil, err
		}
		b.Write(k)
		b.WriteByte(':')
		b.Write(v)
	}
	b.WriteByte('}')
	return b.Bytes(), nil
}
