package testkit

import (
	"math/rand/v2"

	"sxfit/ports"

	"gonum.org/v1/gonum/stat/distuv"
)

// FieldShape describes how one synthetic field is drawn.
type FieldShape struct {
	Name string
	// Mean and Sigma of a Gaussian; Sigma == 0 with Uniform set draws U[Min, Max).
	Mean    float64
	Sigma   float64
	Uniform bool
	Min     float64
	Max     float64
	// SmearOf, when set, makes this field a Gaussian smear (Sigma) of an
	// earlier field; used for observed/truth pairs.
	SmearOf string
}

// EventGeneratorConfig configures the synthetic event generator
type EventGeneratorConfig struct {
	Events int
	Seed   uint64
	Fields []FieldShape
}

// EventGenerator produces reproducible synthetic detector events
type EventGenerator struct {
	config EventGeneratorConfig
	rng    *rand.Rand
}

// NewEventGenerator creates a new event generator
func NewEventGenerator(config EventGeneratorConfig) *EventGenerator {
	return &EventGenerator{
		config: config,
		rng:    rand.New(rand.NewPCG(config.Seed, config.Seed^0x9e3779b97f4a7c15)),
	}
}

// Generate draws every event and returns them as a raw dataset.
func (g *EventGenerator) Generate() *ports.RawDataset {
	fields := make([]string, len(g.config.Fields))
	index := make(map[string]int, len(fields))
	for i, f := range g.config.Fields {
		fields[i] = f.Name
		index[f.Name] = i
	}

	unit := distuv.Normal{Mu: 0, Sigma: 1, Src: g.rng}
	ds := &ports.RawDataset{Fields: fields, Values: make([]float64, 0, g.config.Events*len(fields))}
	row := make([]float64, len(fields))
	for e := 0; e < g.config.Events; e++ {
		for i, f := range g.config.Fields {
			switch {
			case f.SmearOf != "":
				row[i] = row[index[f.SmearOf]] + f.Sigma*unit.Rand()
			case f.Uniform:
				row[i] = f.Min + (f.Max-f.Min)*g.rng.Float64()
			default:
				row[i] = f.Mean + f.Sigma*unit.Rand()
			}
		}
		ds.Values = append(ds.Values, row...)
	}
	return ds
}
