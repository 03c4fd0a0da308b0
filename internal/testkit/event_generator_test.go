package testkit

import (
	"context"
	"testing"

	"sxfit/domain/core"

	"github.com/montanaflynn/stats"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventGenerator_Deterministic(t *testing.T) {
	config := EventGeneratorConfig{
		Events: 200,
		Seed:   42,
		Fields: []FieldShape{
			{Name: "mc_energy", Mean: 2.5, Sigma: 0.3},
			{Name: "energy", SmearOf: "mc_energy", Sigma: 0.1},
			{Name: "radius", Uniform: true, Min: 0, Max: 6000},
		},
	}

	a := NewEventGenerator(config).Generate()
	b := NewEventGenerator(config).Generate()

	rows, cols := a.Rank()
	assert.Equal(t, 200, rows)
	assert.Equal(t, 3, cols)
	assert.Equal(t, a.Values, b.Values)
}

func TestEventGenerator_Shapes(t *testing.T) {
	ds := NewEventGenerator(EventGeneratorConfig{
		Events: 5000,
		Seed:   7,
		Fields: []FieldShape{
			{Name: "energy", Mean: 3.0, Sigma: 0.5},
			{Name: "radius", Uniform: true, Min: 0, Max: 100},
		},
	}).Generate()

	energy, err := Project(ds, []string{"energy"})
	require.NoError(t, err)
	mean, err := stats.Mean(energy.Values)
	require.NoError(t, err)
	sd, err := stats.StandardDeviation(energy.Values)
	require.NoError(t, err)
	assert.InDelta(t, 3.0, mean, 0.05)
	assert.InDelta(t, 0.5, sd, 0.05)

	radius, err := Project(ds, []string{"radius"})
	require.NoError(t, err)
	lo, _ := stats.Min(radius.Values)
	hi, _ := stats.Max(radius.Values)
	assert.GreaterOrEqual(t, lo, 0.0)
	assert.Less(t, hi, 100.0)
}

func TestMemorySource(t *testing.T) {
	src := NewMemorySource()
	src.Put("a.mem", Rows([]string{"energy", "radius"}, []float64{1, 10}, []float64{2, 20}))
	src.PutTable("b.mem", "bkg", Rows([]string{"energy"}, []float64{5}))

	ds, err := src.ReadDataset(context.Background(), "a.mem", "", []string{"radius", "energy"})
	require.NoError(t, err)
	assert.Equal(t, []string{"radius", "energy"}, ds.Fields)
	assert.Equal(t, []float64{10, 1, 20, 2}, ds.Values)

	_, err = src.ReadDataset(context.Background(), "a.mem", "", []string{"time"})
	assert.ErrorIs(t, err, core.ErrInvalidReference)

	_, err = src.ReadDataset(context.Background(), "b.mem", "signal", nil)
	assert.ErrorIs(t, err, core.ErrIO)

	ds, err = src.ReadDataset(context.Background(), "b.mem", "bkg", nil)
	require.NoError(t, err)
	assert.Equal(t, []float64{5}, ds.Values)
	assert.Equal(t, []string{"a.mem", "a.mem", "b.mem", "b.mem"}, src.Reads())
}
