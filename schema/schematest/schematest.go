// Package schematest has default schemas and exchange documents for testing.
package schematest

import (
	"github.com/pkg/errors"

	"github.com/mb0/step/schema"
)

// Fixture bundles an analyzed schema registry with its raw source.
type Fixture struct {
	*schema.Registry
	Raw string
}

func New(name, raw string) (*Fixture, error) {
	reg, err := schema.AnalyzeString(name, raw)
	if err != nil {
		return nil, errors.Wrap(err, "analyze fixture")
	}
	return &Fixture{Registry: reg, Raw: raw}, nil
}

func Must(f *Fixture, err error) *Fixture {
	if err != nil {
		panic(err)
	}
	return f
}

// GeomFixture returns the analyzed geometry schema.
func GeomFixture() (*Fixture, error) { return New("geom.exp", GeomRaw) }

// UnitFixture returns the analyzed two-schema unit source.
func UnitFixture() (*Fixture, error) { return New("unit.exp", UnitRaw) }
