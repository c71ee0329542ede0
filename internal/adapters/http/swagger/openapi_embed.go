package swagger

import (
	"bytes"
	_ "embed"
	"fmt"
	"text/template"

	"github.com/okian/ratebook/internal/domain/model"
)

//go:embed openapi.yaml.tmpl
var openAPITemplate string

var openAPI = template.Must(template.New("openapi").Parse(openAPITemplate))

type openAPIData struct {
	model.Domain
	OwnerTitle, ItemTitle   string
	OwnersTitle, ItemsTitle string
	Min, Max                int
}

// OpenAPI renders the OpenAPI document for domain d.
func OpenAPI(d model.Domain) ([]byte, error) {
	data := openAPIData{
		Domain:      d,
		OwnerTitle:  model.TitleCase(d.OwnerField),
		ItemTitle:   model.TitleCase(d.ItemField),
		OwnersTitle: model.TitleCase(d.OwnersPath),
		ItemsTitle:  model.TitleCase(d.ItemsPath),
		Min:         model.MinRating,
		Max:         model.MaxRating,
	}
	var buf bytes.Buffer
	if err := openAPI.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRender, err)
	}
	return buf.Bytes(), nil
}
