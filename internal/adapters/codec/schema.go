package codec

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/okian/ratebook/internal/domain/model"
)

//go:embed schema/*.schema.json
var schemaFS embed.FS

const schemaBaseURL = "https://github.com/okian/ratebook/schema/"

// SchemaFor returns the checked-in JSON Schema for a domain.
func SchemaFor(d model.Domain) ([]byte, error) {
	raw, err := schemaFS.ReadFile("schema/" + d.Name + ".schema.json")
	if err != nil {
		return nil, fmt.Errorf("%w: no schema for domain %q", model.ErrUnknownDomain, d.Name)
	}
	return raw, nil
}

// compileSchema compiles raw under url.
func compileSchema(url string, raw []byte) (*jsonschema.Schema, error) {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("parse schema %s: %w", url, err)
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource(url, doc); err != nil {
		return nil, fmt.Errorf("add schema %s: %w", url, err)
	}
	sch, err := c.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile schema %s: %w", url, err)
	}
	return sch, nil
}

// loadSchemaFile compiles the schema stored at path.
func loadSchemaFile(path string) (*jsonschema.Schema, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve schema path: %w", err)
	}
	raw, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("read schema: %w", err)
	}
	return compileSchema(abs, raw)
}

// schemaViolations validates doc against sch and flattens the error tree
// into leaf violations.
func schemaViolations(sch *jsonschema.Schema, doc []byte) []Violation {
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(doc))
	if err != nil {
		return []Violation{{Path: "/", Message: "invalid JSON: " + err.Error()}}
	}
	err = sch.Validate(inst)
	if err == nil {
		return nil
	}
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return []Violation{{Path: "/", Message: err.Error()}}
	}
	p := message.NewPrinter(language.English)
	var out []Violation
	collectLeaves(ve, p, &out)
	return out
}

func collectLeaves(ve *jsonschema.ValidationError, p *message.Printer, out *[]Violation) {
	if len(ve.Causes) == 0 {
		*out = append(*out, Violation{
			Path:    pointer(ve.InstanceLocation),
			Message: ve.ErrorKind.LocalizedString(p),
		})
		return
	}
	for _, c := range ve.Causes {
		collectLeaves(c, p, out)
	}
}

// duplicateProperties scans doc token by token and reports object keys that
// appear more than once in the same object. encoding/json keeps the last
// one silently, so schema validation alone cannot see them.
func duplicateProperties(doc []byte) []Violation {
	var out []Violation
	// Syntax errors are reported by schema validation.
	_ = scanValue(json.NewDecoder(bytes.NewReader(doc)), nil, &out)
	return out
}

func scanValue(dec *json.Decoder, path []string, out *[]Violation) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	delim, ok := tok.(json.Delim)
	if !ok {
		return nil
	}
	switch delim {
	case '{':
		seen := make(map[string]struct{})
		for dec.More() {
			kt, err := dec.Token()
			if err != nil {
				return err
			}
			key, _ := kt.(string)
			child := append(append([]string(nil), path...), key)
			if _, dup := seen[key]; dup {
				*out = append(*out, Violation{
					Path:    pointer(child),
					Message: fmt.Sprintf("duplicate property %s", strconv.Quote(key)),
				})
			}
			seen[key] = struct{}{}
			if err := scanValue(dec, child, out); err != nil {
				return err
			}
		}
	case '[':
		for i := 0; dec.More(); i++ {
			child := append(append([]string(nil), path...), strconv.Itoa(i))
			if err := scanValue(dec, child, out); err != nil {
				return err
			}
		}
	}
	_, err = dec.Token()
	return err
}

var pointerEscaper = strings.NewReplacer("~", "~0", "/", "~1")

// pointer renders a JSON pointer; the root is "/".
func pointer(tokens []string) string {
	if len(tokens) == 0 {
		return "/"
	}
	var b strings.Builder
	for _, t := range tokens {
		b.WriteByte('/')
		b.WriteString(pointerEscaper.Replace(t))
	}
	return b.String()
}

func sortViolations(vs []Violation) {
	sort.SliceStable(vs, func(i, j int) bool {
		if vs[i].Path != vs[j].Path {
			return vs[i].Path < vs[j].Path
		}
		return vs[i].Message < vs[j].Message
	})
}
