// File: client/ops.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package client

import (
	"fmt"

	"github.com/momentics/hioload-liveplot/api"
	"github.com/momentics/hioload-liveplot/protocol"
)

// ErrExtentConflict is returned when both an extent and explicit origin/step
// pairs are given for the same plot.
var ErrExtentConflict = fmt.Errorf("%w: extent and start/step are mutually exclusive", api.ErrInvalidArgument)

type plotOptions struct {
	label   string
	scatter bool
	x, y, z protocol.Axis

	startStep   *protocol.StepOrigin
	extent      *[2]float64
	imageSteps  protocol.StepOrigins
	imageExtent *[2][2]float64
}

// PlotOption tunes a single plot or append call.
type PlotOption func(*plotOptions)

// WithLabel sets the curve label.
func WithLabel(label string) PlotOption {
	return func(o *plotOptions) { o.label = label }
}

// WithStartStep maps sample i of a curve to start + i*step.
func WithStartStep(start, step float64) PlotOption {
	return func(o *plotOptions) {
		o.startStep = &protocol.StepOrigin{Start: start, Step: step}
	}
}

// WithExtent spreads the samples of a curve over [lo, hi).
func WithExtent(lo, hi float64) PlotOption {
	return func(o *plotOptions) { o.extent = &[2]float64{lo, hi} }
}

// WithImageSteps sets the x and y origin/step pairs of an image.
func WithImageSteps(x, y protocol.StepOrigin) PlotOption {
	return func(o *plotOptions) { o.imageSteps = protocol.StepOrigins{x, y} }
}

// WithImageExtent spreads an image over [x0, x1) by [y0, y1).
func WithImageExtent(x0, x1, y0, y1 float64) PlotOption {
	return func(o *plotOptions) { o.imageExtent = &[2][2]float64{{x0, x1}, {y0, y1}} }
}

// WithAxes names the axes. Empty names and units fall back to defaults.
func WithAxes(x, y, z protocol.Axis) PlotOption {
	return func(o *plotOptions) { o.x, o.y, o.z = x, y, z }
}

// WithScatter draws a parametric curve as unconnected points.
func WithScatter() PlotOption {
	return func(o *plotOptions) { o.scatter = true }
}

func collect(opts []PlotOption) plotOptions {
	var o plotOptions
	for _, opt := range opts {
		opt(&o)
	}
	o.x = o.x.WithDefaults(protocol.DefaultXName)
	o.y = o.y.WithDefaults(protocol.DefaultYName)
	o.z = o.z.WithDefaults(protocol.DefaultZName)
	return o
}

// seriesStep resolves the origin/step of an n-sample curve.
func (o plotOptions) seriesStep(n int) (protocol.StepOrigin, error) {
	switch {
	case o.extent != nil && o.startStep != nil:
		return protocol.StepOrigin{}, ErrExtentConflict
	case o.extent != nil:
		return protocol.StepFromExtent(o.extent[0], o.extent[1], n), nil
	case o.startStep != nil:
		return *o.startStep, nil
	}
	return protocol.DefaultStepOrigin, nil
}

// imageStepsFor resolves the x and y origin/step of an image with the given
// shape. The last two dimensions are x then y.
func (o plotOptions) imageStepsFor(shape []int) (protocol.StepOrigins, error) {
	switch {
	case o.imageExtent != nil && o.imageSteps != nil:
		return nil, ErrExtentConflict
	case o.imageExtent != nil:
		if len(shape) < 2 {
			return nil, fmt.Errorf("%w: image extent needs a 2-D array, got shape %v", api.ErrInvalidArgument, shape)
		}
		nx, ny := shape[len(shape)-2], shape[len(shape)-1]
		e := o.imageExtent
		return protocol.StepOrigins{
			protocol.StepFromExtent(e[0][0], e[0][1], nx),
			protocol.StepFromExtent(e[1][0], e[1][1], ny),
		}, nil
	}
	return o.imageSteps, nil
}

func shapeOf(arr protocol.Array) ([]int, error) {
	p, err := protocol.EncodeArray(arr)
	if err != nil {
		return nil, err
	}
	return p.Shape, nil
}

// PlotSeries replaces the 1-D curve name with arr.
func (s *Session) PlotSeries(name string, arr protocol.Array, opts ...PlotOption) error {
	o := collect(opts)
	shape, err := shapeOf(arr)
	if err != nil {
		return err
	}
	if len(shape) != 1 {
		return fmt.Errorf("%w: series needs a 1-D array, got shape %v", api.ErrInvalidArgument, shape)
	}
	step, err := o.seriesStep(shape[0])
	if err != nil {
		return err
	}
	return s.Send(protocol.PlotSeries{Name: name, Label: o.label, StartStep: step}, &arr)
}

// PlotImage replaces the image name with a 2-D array or a stack of frames.
func (s *Session) PlotImage(name string, arr protocol.Array, opts ...PlotOption) error {
	o := collect(opts)
	shape, err := shapeOf(arr)
	if err != nil {
		return err
	}
	if len(shape) != 2 && len(shape) != 3 {
		return fmt.Errorf("%w: image needs a 2-D or 3-D array, got shape %v", api.ErrInvalidArgument, shape)
	}
	steps, err := o.imageStepsFor(shape)
	if err != nil {
		return err
	}
	return s.Send(protocol.PlotImage{Name: name, Steps: steps, X: o.x, Y: o.y, Z: o.z}, &arr)
}

// PlotXY replaces the parametric curve name with the points (xs[i], ys[i]).
func (s *Session) PlotXY(name string, xs, ys []float64, opts ...PlotOption) error {
	o := collect(opts)
	arr, err := protocol.XY(xs, ys)
	if err != nil {
		return fmt.Errorf("%w: %w", api.ErrInvalidArgument, err)
	}
	cmd := protocol.PlotXY{Name: name, Label: o.label, X: o.x, Y: o.y, Scatter: o.scatter}
	return s.Send(cmd, &arr)
}

// AppendSeries appends one sample to the curve name.
func (s *Session) AppendSeries(name string, value float64, opts ...PlotOption) error {
	o := collect(opts)
	step := protocol.DefaultStepOrigin
	if o.startStep != nil {
		step = *o.startStep
	}
	cmd := protocol.AppendSeries{Name: name, Label: o.label, Value: value, StartStep: step, X: o.x, Y: o.y}
	return s.Send(cmd, nil)
}

// AppendXY appends the point (x, y) to the parametric curve name.
func (s *Session) AppendXY(name string, x, y float64, opts ...PlotOption) error {
	o := collect(opts)
	return s.Send(protocol.AppendXY{Name: name, Label: o.label, X: x, Y: y}, nil)
}

// AppendImage appends a row or frame to the image name.
func (s *Session) AppendImage(name string, arr protocol.Array, opts ...PlotOption) error {
	o := collect(opts)
	shape, err := shapeOf(arr)
	if err != nil {
		return err
	}
	steps, err := o.imageStepsFor(shape)
	if err != nil {
		return err
	}
	return s.Send(protocol.AppendImage{Name: name, Steps: steps, X: o.x, Y: o.y, Z: o.z}, &arr)
}

// SetLabel attaches text to the target name.
func (s *Session) SetLabel(name, text string) error {
	return s.Send(protocol.SetLabel{Name: name, Text: text}, nil)
}

// Clear empties the target name, or every target when name is empty or "*".
func (s *Session) Clear(name string) error {
	return s.Send(protocol.Clear{Name: name}, nil)
}

// Hide closes the view of the target name.
func (s *Session) Hide(name string) error {
	return s.Send(protocol.Hide{Name: name}, nil)
}

// Remove drops the target name.
func (s *Session) Remove(name string) error {
	return s.Send(protocol.Remove{Name: name}, nil)
}
