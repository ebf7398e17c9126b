// File: protocol/header.go
// Package protocol implements the fixed-width command header codec.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// A header is a JSON document right-padded with spaces to FrameWidth bytes,
// so the consumer reads headers off the control channel without a length prefix.

package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/momentics/hioload-liveplot/api"
)

// FrameWidth is the exact size of every encoded header. Both peers must agree on it.
const FrameWidth = 300

// frameFill pads the populated document up to FrameWidth.
const frameFill = ' '

// ErrUnknownKind is returned when a decoded header names an operation outside the closed set.
var ErrUnknownKind = fmt.Errorf("unknown command kind")

// Header is the flat wire record shared by every command kind.
// Fields a kind does not use stay at their zero value and are omitted.
type Header struct {
	Name      string      `json:"name"`
	Operation Kind        `json:"operation"`
	Rank      int         `json:"rank,omitempty"`
	ArrSize   int         `json:"arrsize"`
	DType     string      `json:"dtype,omitempty"`
	Shape     []int       `json:"shape,omitempty"`
	StartStep StepOrigins `json:"start_step,omitempty"`
	Label     string      `json:"label,omitempty"`
	Value     *Value      `json:"value,omitempty"`
	XUnit     string      `json:"X,omitempty"`
	YUnit     string      `json:"Y,omitempty"`
	ZUnit     string      `json:"Z,omitempty"`
	XName     string      `json:"Xname,omitempty"`
	YName     string      `json:"Yname,omitempty"`
	ZName     string      `json:"Zname,omitempty"`
	Scatter   bool        `json:"Scatter,omitempty"`
}

// NewHeader flattens cmd into a wire record. p describes the payload, or is nil
// for header-only commands.
func NewHeader(cmd Command, p *Payload) Header {
	h := Header{
		Name:      cmd.Target(),
		Operation: cmd.Kind(),
		Rank:      cmd.Kind().Rank(),
	}
	cmd.fill(&h)
	if p != nil {
		h.ArrSize = len(p.Bytes)
		h.DType = p.DType
		h.Shape = append([]int(nil), p.Shape...)
	}
	return h
}

// HasPayload reports whether the consumer must read ArrSize bytes from the segment.
func (h Header) HasPayload() bool {
	return h.ArrSize > 0
}

// Command rebuilds the typed variant carried by h.
func (h Header) Command() (Command, error) {
	switch h.Operation {
	case KindPlotSeries:
		return PlotSeries{Name: h.Name, Label: h.Label, StartStep: h.StartStep.first()}, nil
	case KindPlotImage:
		x, y, z := h.axes()
		return PlotImage{Name: h.Name, Steps: h.StartStep, X: x, Y: y, Z: z}, nil
	case KindPlotXY:
		x, y, _ := h.axes()
		return PlotXY{Name: h.Name, Label: h.Label, X: x, Y: y, Scatter: h.Scatter}, nil
	case KindAppendSeries:
		x, y, _ := h.axes()
		v, _ := h.Value.Number()
		return AppendSeries{Name: h.Name, Label: h.Label, Value: v, StartStep: h.StartStep.first(), X: x, Y: y}, nil
	case KindAppendXY:
		p, _ := h.Value.Pair()
		return AppendXY{Name: h.Name, Label: h.Label, X: p[0], Y: p[1]}, nil
	case KindAppendImage:
		x, y, z := h.axes()
		return AppendImage{Name: h.Name, Steps: h.StartStep, X: x, Y: y, Z: z}, nil
	case KindSetLabel:
		t, _ := h.Value.Text()
		return SetLabel{Name: h.Name, Text: t}, nil
	case KindClear:
		return Clear{Name: h.Name}, nil
	case KindHide:
		return Hide{Name: h.Name}, nil
	case KindRemove:
		return Remove{Name: h.Name}, nil
	case KindBarrier:
		return Barrier{}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownKind, h.Operation)
}

func (h *Header) setAxes(x, y, z Axis) {
	h.XName, h.XUnit = x.Name, x.Unit
	h.YName, h.YUnit = y.Name, y.Unit
	h.ZName, h.ZUnit = z.Name, z.Unit
}

func (h Header) axes() (x, y, z Axis) {
	return Axis{Name: h.XName, Unit: h.XUnit},
		Axis{Name: h.YName, Unit: h.YUnit},
		Axis{Name: h.ZName, Unit: h.ZUnit}
}

// EncodeHeader renders h into exactly FrameWidth bytes.
// It fails with *api.HeaderTooLargeError before any I/O when the document does not fit.
func EncodeHeader(h Header) ([]byte, error) {
	doc, err := json.Marshal(h)
	if err != nil {
		return nil, fmt.Errorf("encode header: %w", err)
	}
	doc = bareNonFinite(doc)
	if len(doc) > FrameWidth {
		return nil, &api.HeaderTooLargeError{Len: len(doc), Limit: FrameWidth}
	}
	block := make([]byte, FrameWidth)
	n := copy(block, doc)
	for i := n; i < FrameWidth; i++ {
		block[i] = frameFill
	}
	return block, nil
}

// DecodeHeader parses a FrameWidth block. Trailing fill is ignored.
func DecodeHeader(block []byte) (Header, error) {
	var h Header
	if len(block) != FrameWidth {
		return h, fmt.Errorf("%w: header block is %d bytes, want %d", api.ErrInvalidArgument, len(block), FrameWidth)
	}
	doc := bytes.TrimRight(block, " \x00")
	if err := json.Unmarshal(markNonFinite(doc), &h); err != nil {
		return h, fmt.Errorf("decode header: %w", err)
	}
	if !h.Operation.Valid() {
		return h, fmt.Errorf("%w: %q", ErrUnknownKind, h.Operation)
	}
	return h, nil
}
