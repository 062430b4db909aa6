// Package catalog holds the fixed table of tracked indicators.
package catalog

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"macrodash/internal/model"
)

//go:embed catalog.yaml
var defaultTable []byte

var ErrEmpty = errors.New("catalog: no indicators defined")

// Catalog is an ordered, read-only list of indicator specs.
type Catalog struct {
	specs []model.IndicatorSpec
}

type table struct {
	Indicators []model.IndicatorSpec `yaml:"indicators" validate:"dive"`
}

var defaultCatalog = mustLoad(defaultTable)

func Default() Catalog {
	return defaultCatalog
}

func Load(r io.Reader) (Catalog, error) {
	var t table
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&t); err != nil {
		if errors.Is(err, io.EOF) {
			return Catalog{}, ErrEmpty
		}
		return Catalog{}, fmt.Errorf("catalog: decode: %w", err)
	}
	if err := validate(t); err != nil {
		return Catalog{}, err
	}
	return Catalog{specs: t.Indicators}, nil
}

func LoadFile(path string) (Catalog, error) {
	file, err := os.Open(path)
	if err != nil {
		return Catalog{}, err
	}
	defer file.Close()
	return Load(file)
}

// FromSpecs builds a catalog from specs already in memory, applying the same
// validation as Load.
func FromSpecs(specs []model.IndicatorSpec) (Catalog, error) {
	t := table{Indicators: append([]model.IndicatorSpec(nil), specs...)}
	if err := validate(t); err != nil {
		return Catalog{}, err
	}
	return Catalog{specs: t.Indicators}, nil
}

func mustLoad(data []byte) Catalog {
	c, err := Load(bytes.NewReader(data))
	if err != nil {
		panic(err)
	}
	return c
}

func validate(t table) error {
	if len(t.Indicators) == 0 {
		return ErrEmpty
	}
	if err := validator.New().Struct(t); err != nil {
		return fmt.Errorf("catalog: invalid indicator: %w", err)
	}
	seen := make(map[string]struct{}, len(t.Indicators))
	for _, spec := range t.Indicators {
		id := strings.TrimSpace(spec.ID)
		if id != spec.ID {
			return fmt.Errorf("catalog: id %q has surrounding whitespace", spec.ID)
		}
		if _, ok := seen[id]; ok {
			return fmt.Errorf("catalog: duplicate id %s", id)
		}
		seen[id] = struct{}{}
	}
	return nil
}

// Specs returns a copy of the specs in display order.
func (c Catalog) Specs() []model.IndicatorSpec {
	return append([]model.IndicatorSpec(nil), c.specs...)
}

func (c Catalog) Len() int {
	return len(c.specs)
}

func (c Catalog) Lookup(id string) (model.IndicatorSpec, bool) {
	for _, spec := range c.specs {
		if spec.ID == id {
			return spec, true
		}
	}
	return model.IndicatorSpec{}, false
}

func (c Catalog) IDs() []string {
	ids := make([]string, 0, len(c.specs))
	for _, spec := range c.specs {
		ids = append(ids, spec.ID)
	}
	return ids
}
