package pdf

import (
	"fmt"
	"math"

	"sxfit/domain/core"
	"sxfit/domain/model"

	"go-hep.org/x/hep/hbook"
	"gonum.org/v1/gonum/floats"
)

// Axis is one binned dimension over the closed interval [Lower, Upper].
type Axis struct {
	Bins  int
	Lower float64
	Upper float64
}

// AxisOf returns the binning of an observable.
func AxisOf(o model.Observable) Axis {
	return Axis{Bins: o.Bins, Lower: o.Lower, Upper: o.Upper}
}

// AxesOf returns the binning of each observable, in order.
func AxesOf(observables []model.Observable) []Axis {
	axes := make([]Axis, len(observables))
	for i, o := range observables {
		axes[i] = AxisOf(o)
	}
	return axes
}

// Width returns the bin width.
func (a Axis) Width() float64 {
	return (a.Upper - a.Lower) / float64(a.Bins)
}

// Index returns the bin holding v. v == Upper falls in the last bin;
// values outside the interval have no bin.
func (a Axis) Index(v float64) (int, bool) {
	if v < a.Lower || v > a.Upper || math.IsNaN(v) {
		return 0, false
	}
	i := int(math.Floor((v - a.Lower) / a.Width()))
	if i >= a.Bins {
		i = a.Bins - 1
	}
	return i, true
}

// Centre returns the midpoint of bin i.
func (a Axis) Centre(i int) float64 {
	return a.Lower + (float64(i)+0.5)*a.Width()
}

func (a Axis) validate() error {
	if a.Bins <= 0 || !(a.Upper > a.Lower) {
		return core.NewConfigError("axis", fmt.Sprintf("need bins > 0 and upper > lower, got %d [%g, %g]", a.Bins, a.Lower, a.Upper))
	}
	return nil
}

// Histogram is a dense n-dimensional histogram stored row-major, with the
// last axis varying fastest.
type Histogram struct {
	Axes     []Axis
	Contents []float64
	strides  []int
}

// NewHistogram creates an empty histogram over axes.
func NewHistogram(axes []Axis) (*Histogram, error) {
	if len(axes) == 0 {
		return nil, core.NewDimensionMismatchError("histogram dimensions", 1, 0)
	}
	strides := make([]int, len(axes))
	size := 1
	for d := len(axes) - 1; d >= 0; d-- {
		if err := axes[d].validate(); err != nil {
			return nil, err
		}
		strides[d] = size
		size *= axes[d].Bins
	}
	return &Histogram{
		Axes:     append([]Axis(nil), axes...),
		Contents: make([]float64, size),
		strides:  strides,
	}, nil
}

// Dim returns the number of axes.
func (h *Histogram) Dim() int {
	return len(h.Axes)
}

// Index returns the flat bin index of point, or false when any coordinate
// is out of range.
func (h *Histogram) Index(point []float64) (int, bool) {
	flat := 0
	for d, a := range h.Axes {
		i, ok := a.Index(point[d])
		if !ok {
			return 0, false
		}
		flat += i * h.strides[d]
	}
	return flat, true
}

// Fill adds w to the bin holding point and reports whether it was in range.
func (h *Histogram) Fill(point []float64, w float64) bool {
	flat, ok := h.Index(point)
	if ok {
		h.Contents[flat] += w
	}
	return ok
}

// At returns the content of the bin with per-axis indices idx.
func (h *Histogram) At(idx ...int) float64 {
	flat := 0
	for d, i := range idx {
		flat += i * h.strides[d]
	}
	return h.Contents[flat]
}

// Centre writes the bin-centre coordinates of flat bin index into out.
func (h *Histogram) Centre(flat int, out []float64) {
	for d, a := range h.Axes {
		i := (flat / h.strides[d]) % a.Bins
		out[d] = a.Centre(i)
	}
}

// Sum returns the total content.
func (h *Histogram) Sum() float64 {
	return floats.Sum(h.Contents)
}

// Normalize scales the contents to sum to one. An empty histogram is left unchanged.
func (h *Histogram) Normalize() {
	if s := h.Sum(); s != 0 {
		floats.Scale(1/s, h.Contents)
	}
}

// Clone returns a deep copy.
func (h *Histogram) Clone() *Histogram {
	return &Histogram{
		Axes:     append([]Axis(nil), h.Axes...),
		Contents: append([]float64(nil), h.Contents...),
		strides:  append([]int(nil), h.strides...),
	}
}

// Project sums over every axis but dim and returns a 1D histogram.
func (h *Histogram) Project(dim int) (*hbook.H1D, error) {
	if dim < 0 || dim >= h.Dim() {
		return nil, core.NewDimensionMismatchError("projection axis", h.Dim()-1, dim)
	}
	a := h.Axes[dim]
	out := hbook.NewH1D(a.Bins, a.Lower, a.Upper)
	for flat, w := range h.Contents {
		if w == 0 {
			continue
		}
		i := (flat / h.strides[dim]) % a.Bins
		out.Fill(a.Centre(i), w)
	}
	return out, nil
}

// Project2D sums over every axis but x and y and returns a 2D histogram.
func (h *Histogram) Project2D(x, y int) (*hbook.H2D, error) {
	if x < 0 || x >= h.Dim() || y < 0 || y >= h.Dim() || x == y {
		return nil, core.NewDimensionMismatchError("projection axes", h.Dim(), x)
	}
	ax, ay := h.Axes[x], h.Axes[y]
	out := hbook.NewH2D(ax.Bins, ax.Lower, ax.Upper, ay.Bins, ay.Lower, ay.Upper)
	for flat, w := range h.Contents {
		if w == 0 {
			continue
		}
		i := (flat / h.strides[x]) % ax.Bins
		j := (flat / h.strides[y]) % ay.Bins
		out.Fill(ax.Centre(i), ay.Centre(j), w)
	}
	return out, nil
}
