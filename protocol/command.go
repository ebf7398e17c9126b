// File: protocol/command.go
// Package protocol
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Typed command variants. Each kind owns exactly the fields it needs;
// NewHeader flattens a variant into the wire record and Header.Command
// rebuilds it.

package protocol

// Wildcard is the target name used when a command names no target.
const Wildcard = "*"

// Default axis labels used when a caller leaves them empty.
const (
	DefaultAxisUnit = "arb. u."
	DefaultXName    = "X axis"
	DefaultYName    = "Y axis"
	DefaultZName    = "Z axis"
)

// Command is a sealed tagged variant, one implementation per Kind.
type Command interface {
	Kind() Kind
	Target() string
	fill(h *Header)
}

// Axis names one plot axis and its unit.
type Axis struct {
	Name string
	Unit string
}

// PlotSeries replaces the data of a 1-D curve.
type PlotSeries struct {
	Name      string
	Label     string
	StartStep StepOrigin
}

// PlotImage replaces the data of a 2-D image. Steps holds the x then y
// origin/step pair; nil lets the consumer use pixel indices.
type PlotImage struct {
	Name    string
	Steps   StepOrigins
	X, Y, Z Axis
}

// PlotXY replaces a parametric curve. Its payload is a (2, n) array of x then y.
type PlotXY struct {
	Name    string
	Label   string
	X, Y    Axis
	Scatter bool
}

// AppendSeries appends a single point to a 1-D curve. It carries no payload.
type AppendSeries struct {
	Name      string
	Label     string
	Value     float64
	StartStep StepOrigin
	X, Y      Axis
}

// AppendXY appends an (x, y) point to a parametric curve. It carries no payload.
type AppendXY struct {
	Name  string
	Label string
	X, Y  float64
}

// AppendImage appends a row or frame to an image.
type AppendImage struct {
	Name    string
	Steps   StepOrigins
	X, Y, Z Axis
}

// SetLabel attaches a text label to a target.
type SetLabel struct {
	Name string
	Text string
}

// Clear empties a target, or every target for the wildcard name.
type Clear struct{ Name string }

// Hide closes the view of a target without dropping it.
type Hide struct{ Name string }

// Remove drops a target.
type Remove struct{ Name string }

// Barrier is the content-free sentinel sent after every synchronous command.
type Barrier struct{}

func (PlotSeries) Kind() Kind   { return KindPlotSeries }
func (PlotImage) Kind() Kind    { return KindPlotImage }
func (PlotXY) Kind() Kind       { return KindPlotXY }
func (AppendSeries) Kind() Kind { return KindAppendSeries }
func (AppendXY) Kind() Kind     { return KindAppendXY }
func (AppendImage) Kind() Kind  { return KindAppendImage }
func (SetLabel) Kind() Kind     { return KindSetLabel }
func (Clear) Kind() Kind        { return KindClear }
func (Hide) Kind() Kind         { return KindHide }
func (Remove) Kind() Kind       { return KindRemove }
func (Barrier) Kind() Kind      { return KindBarrier }

func (c PlotSeries) Target() string   { return targetName(c.Name) }
func (c PlotImage) Target() string    { return targetName(c.Name) }
func (c PlotXY) Target() string       { return targetName(c.Name) }
func (c AppendSeries) Target() string { return targetName(c.Name) }
func (c AppendXY) Target() string     { return targetName(c.Name) }
func (c AppendImage) Target() string  { return targetName(c.Name) }
func (c SetLabel) Target() string     { return targetName(c.Name) }
func (c Clear) Target() string        { return targetName(c.Name) }
func (c Hide) Target() string         { return targetName(c.Name) }
func (c Remove) Target() string       { return targetName(c.Name) }
func (Barrier) Target() string        { return "none" }

func (c PlotSeries) fill(h *Header) {
	h.Label = c.Label
	h.StartStep = StepOrigins{c.StartStep}
}

func (c PlotImage) fill(h *Header) {
	h.StartStep = c.Steps
	h.setAxes(c.X, c.Y, c.Z)
}

func (c PlotXY) fill(h *Header) {
	h.Label = c.Label
	h.setAxes(c.X, c.Y, Axis{})
	h.Scatter = c.Scatter
}

func (c AppendSeries) fill(h *Header) {
	h.Label = c.Label
	h.Value = NumberValue(c.Value)
	h.StartStep = StepOrigins{c.StartStep}
	h.setAxes(c.X, c.Y, Axis{})
}

func (c AppendXY) fill(h *Header) {
	h.Label = c.Label
	h.Value = PairValue(c.X, c.Y)
}

func (c AppendImage) fill(h *Header) {
	h.StartStep = c.Steps
	h.setAxes(c.X, c.Y, c.Z)
}

func (c SetLabel) fill(h *Header) {
	h.Value = TextValue(c.Text)
}

func (Clear) fill(*Header)   {}
func (Hide) fill(*Header)    {}
func (Remove) fill(*Header)  {}
func (Barrier) fill(*Header) {}

func targetName(name string) string {
	if name == "" {
		return Wildcard
	}
	return name
}

// WithDefaults fills empty axis names and units the way the plotting layer expects.
func (a Axis) WithDefaults(name string) Axis {
	if a.Name == "" {
		a.Name = name
	}
	if a.Unit == "" {
		a.Unit = DefaultAxisUnit
	}
	return a
}
