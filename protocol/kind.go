// File: protocol/kind.go
// Package protocol
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Closed set of command kinds carried in the fixed-width header.

package protocol

// Kind is the operation tag of a command header.
type Kind string

const (
	KindPlotSeries   Kind = "plot_series"
	KindPlotImage    Kind = "plot_image"
	KindPlotXY       Kind = "plot_xy"
	KindAppendSeries Kind = "append_series"
	KindAppendXY     Kind = "append_xy"
	KindAppendImage  Kind = "append_image"
	KindSetLabel     Kind = "set_label"
	KindClear        Kind = "clear"
	KindHide         Kind = "hide"
	KindRemove       Kind = "remove"
	KindBarrier      Kind = "barrier"
)

// Kinds lists every valid kind in wire order of declaration.
var Kinds = []Kind{
	KindPlotSeries, KindPlotImage, KindPlotXY,
	KindAppendSeries, KindAppendXY, KindAppendImage,
	KindSetLabel, KindClear, KindHide, KindRemove, KindBarrier,
}

// Valid reports whether k belongs to the closed set.
func (k Kind) Valid() bool {
	for _, v := range Kinds {
		if v == k {
			return true
		}
	}
	return false
}

// Rank is the dimensionality the consumer should expect: 1 for curves, 2 for images.
// Kinds that carry no plot data report 0.
func (k Kind) Rank() int {
	switch k {
	case KindPlotSeries, KindPlotXY, KindAppendSeries, KindAppendXY:
		return 1
	case KindPlotImage, KindAppendImage:
		return 2
	default:
		return 0
	}
}

// Synchronous reports whether a send of this kind is followed by a barrier,
// so the caller regains control only once the consumer accepted the data.
func (k Kind) Synchronous() bool {
	switch k {
	case KindPlotSeries, KindPlotImage, KindPlotXY,
		KindAppendSeries, KindAppendXY, KindAppendImage, KindSetLabel:
		return true
	default:
		return false
	}
}

// CarriesPayload reports whether commands of this kind must bring an array.
// Every other kind is header-only and must not.
func (k Kind) CarriesPayload() bool {
	switch k {
	case KindPlotSeries, KindPlotImage, KindPlotXY, KindAppendImage, KindBarrier:
		return true
	default:
		return false
	}
}

func (k Kind) String() string {
	return string(k)
}
