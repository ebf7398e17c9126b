// File: protocol/value.go
// Author: momentics <momentics@gmail.com>
//
// Polymorphic header fields. start_step is a single [start, step] pair for
// curves and a list of pairs for images; value is a number, an (x, y) pair
// or a text label depending on the command kind.

package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
)

// nonFinite lists the bare tokens the header document uses for values JSON
// cannot express, longest first. Inside encoding/json they travel as marker
// strings. JSON encoders write lower-case \u escapes, so the upper-case
// marker cannot collide with real text.
var nonFinite = []struct {
	bare   []byte
	marker []byte
	value  float64
}{
	{[]byte("-Infinity"), []byte(`"\u001F-Infinity"`), math.Inf(-1)},
	{[]byte("Infinity"), []byte(`"\u001FInfinity"`), math.Inf(1)},
	{[]byte("NaN"), []byte(`"\u001FNaN"`), math.NaN()},
}

// bareNonFinite replaces markers with bare NaN and Infinity tokens.
func bareNonFinite(doc []byte) []byte {
	for _, t := range nonFinite {
		doc = bytes.ReplaceAll(doc, t.marker, t.bare)
	}
	return doc
}

// markNonFinite turns bare NaN and Infinity tokens outside strings into
// markers so encoding/json accepts the document.
func markNonFinite(doc []byte) []byte {
	var out []byte
	last := 0
	inString, escaped := false, false
	for i := 0; i < len(doc); i++ {
		c := doc[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		if c == '"' {
			inString = true
			continue
		}
		for _, t := range nonFinite {
			if bytes.HasPrefix(doc[i:], t.bare) {
				out = append(out, doc[last:i]...)
				out = append(out, t.marker...)
				i += len(t.bare) - 1
				last = i + 1
				break
			}
		}
	}
	if out == nil {
		return doc
	}
	return append(out, doc[last:]...)
}

// jsonFloat is a float64 that survives NaN and infinities.
type jsonFloat float64

func (f jsonFloat) MarshalJSON() ([]byte, error) {
	v := float64(f)
	switch {
	case math.IsNaN(v):
		return nonFinite[2].marker, nil
	case math.IsInf(v, -1):
		return nonFinite[0].marker, nil
	case math.IsInf(v, 1):
		return nonFinite[1].marker, nil
	}
	return json.Marshal(v)
}

func (f *jsonFloat) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	for _, t := range nonFinite {
		if bytes.Equal(b, t.marker) {
			*f = jsonFloat(t.value)
			return nil
		}
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*f = jsonFloat(v)
	return nil
}

func isMarker(b []byte) bool {
	for _, t := range nonFinite {
		if bytes.Equal(b, t.marker) {
			return true
		}
	}
	return false
}

// StepOrigin maps sample indices to axis coordinates: x = Start + i*Step.
type StepOrigin struct {
	Start float64
	Step  float64
}

// DefaultStepOrigin maps sample i to coordinate i.
var DefaultStepOrigin = StepOrigin{Start: 0, Step: 1}

// StepFromExtent derives the origin/step pair covering [lo, hi) with n samples.
func StepFromExtent(lo, hi float64, n int) StepOrigin {
	if n <= 0 {
		return StepOrigin{Start: lo, Step: 0}
	}
	return StepOrigin{Start: lo, Step: (hi - lo) / float64(n)}
}

func (s StepOrigin) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]jsonFloat{jsonFloat(s.Start), jsonFloat(s.Step)})
}

func (s *StepOrigin) UnmarshalJSON(b []byte) error {
	var pair [2]jsonFloat
	if err := json.Unmarshal(b, &pair); err != nil {
		return fmt.Errorf("start_step: %w", err)
	}
	s.Start, s.Step = float64(pair[0]), float64(pair[1])
	return nil
}

// StepOrigins holds one pair per axis. A single pair is encoded flat.
type StepOrigins []StepOrigin

func (s StepOrigins) MarshalJSON() ([]byte, error) {
	if len(s) == 1 {
		return json.Marshal(s[0])
	}
	return json.Marshal([]StepOrigin(s))
}

func (s *StepOrigins) UnmarshalJSON(b []byte) error {
	var items []json.RawMessage
	if err := json.Unmarshal(b, &items); err != nil {
		return fmt.Errorf("start_step: %w", err)
	}
	if len(items) == 0 {
		*s = nil
		return nil
	}
	if first := bytes.TrimSpace(items[0]); len(first) > 0 && first[0] == '[' {
		out := make(StepOrigins, len(items))
		for i, it := range items {
			if err := out[i].UnmarshalJSON(it); err != nil {
				return err
			}
		}
		*s = out
		return nil
	}
	var one StepOrigin
	if err := one.UnmarshalJSON(b); err != nil {
		return err
	}
	*s = StepOrigins{one}
	return nil
}

func (s StepOrigins) first() StepOrigin {
	if len(s) == 0 {
		return StepOrigin{}
	}
	return s[0]
}

type valueKind uint8

const (
	valueNumber valueKind = iota + 1
	valuePair
	valueText
)

// Value is the free-form scalar field of append and label commands.
type Value struct {
	kind valueKind
	num  float64
	pair [2]float64
	text string
}

// NumberValue wraps a single sample.
func NumberValue(v float64) *Value { return &Value{kind: valueNumber, num: v} }

// PairValue wraps an (x, y) point.
func PairValue(x, y float64) *Value { return &Value{kind: valuePair, pair: [2]float64{x, y}} }

// TextValue wraps a label.
func TextValue(t string) *Value { return &Value{kind: valueText, text: t} }

// Number returns the sample if v holds one.
func (v *Value) Number() (float64, bool) {
	if v == nil || v.kind != valueNumber {
		return 0, false
	}
	return v.num, true
}

// Pair returns the point if v holds one.
func (v *Value) Pair() ([2]float64, bool) {
	if v == nil || v.kind != valuePair {
		return [2]float64{}, false
	}
	return v.pair, true
}

// Text returns the label if v holds one.
func (v *Value) Text() (string, bool) {
	if v == nil || v.kind != valueText {
		return "", false
	}
	return v.text, true
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case valueNumber:
		return jsonFloat(v.num).MarshalJSON()
	case valuePair:
		return json.Marshal([2]jsonFloat{jsonFloat(v.pair[0]), jsonFloat(v.pair[1])})
	case valueText:
		return json.Marshal(v.text)
	}
	return []byte("null"), nil
}

func (v *Value) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return fmt.Errorf("value: empty document")
	}
	if isMarker(b) {
		var f jsonFloat
		if err := f.UnmarshalJSON(b); err != nil {
			return err
		}
		*v = Value{kind: valueNumber, num: float64(f)}
		return nil
	}
	switch b[0] {
	case '"':
		v.kind = valueText
		return json.Unmarshal(b, &v.text)
	case '[':
		var pair [2]jsonFloat
		if err := json.Unmarshal(b, &pair); err != nil {
			return err
		}
		v.kind = valuePair
		v.pair = [2]float64{float64(pair[0]), float64(pair[1])}
		return nil
	case 'n':
		*v = Value{}
		return nil
	}
	var f jsonFloat
	if err := f.UnmarshalJSON(b); err != nil {
		return err
	}
	*v = Value{kind: valueNumber, num: float64(f)}
	return nil
}
