package protocol_test

import (
	"bytes"
	"encoding/json"
	"math"
	"strings"
	"testing"

	"github.com/momentics/hioload-liveplot/api"
	"github.com/momentics/hioload-liveplot/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	xAxis = protocol.Axis{Name: "time", Unit: "s"}
	yAxis = protocol.Axis{Name: "volts", Unit: "V"}
	zAxis = protocol.Axis{Name: "counts", Unit: "arb. u."}
)

func TestCommandsSurviveHeaderCodec(t *testing.T) {
	steps := protocol.StepOrigins{{Start: 0, Step: 0.5}, {Start: -1, Step: 2}}
	cases := []protocol.Command{
		protocol.PlotSeries{Name: "signal", Label: "raw", StartStep: protocol.StepOrigin{Start: 1, Step: 0.1}},
		protocol.PlotImage{Name: "img", Steps: steps, X: xAxis, Y: yAxis, Z: zAxis},
		protocol.PlotImage{Name: "img", X: xAxis, Y: yAxis, Z: zAxis},
		protocol.PlotXY{Name: "orbit", Label: "l", X: xAxis, Y: yAxis, Scatter: true},
		protocol.AppendSeries{Name: "s", Label: "l", Value: 0, StartStep: protocol.DefaultStepOrigin, X: xAxis, Y: yAxis},
		protocol.AppendXY{Name: "xy", Label: "l", X: 1.5, Y: -2},
		protocol.AppendImage{Name: "img", Steps: steps, X: xAxis, Y: yAxis, Z: zAxis},
		protocol.SetLabel{Name: "s", Text: "hello"},
		protocol.Clear{Name: "s"},
		protocol.Hide{Name: "s"},
		protocol.Remove{Name: "s"},
		protocol.Barrier{},
	}
	for _, cmd := range cases {
		t.Run(cmd.Kind().String(), func(t *testing.T) {
			block, err := protocol.EncodeHeader(protocol.NewHeader(cmd, nil))
			require.NoError(t, err)
			require.Len(t, block, protocol.FrameWidth)

			h, err := protocol.DecodeHeader(block)
			require.NoError(t, err)
			assert.Equal(t, cmd.Kind(), h.Operation)
			assert.Equal(t, cmd.Kind().Rank(), h.Rank)
			got, err := h.Command()
			require.NoError(t, err)
			assert.Equal(t, cmd, got)
		})
	}
}

func TestHeaderCarriesPayloadDescription(t *testing.T) {
	p, err := protocol.EncodeArray(protocol.Matrix(make([]int16, 6), 2, 3))
	require.NoError(t, err)
	h := protocol.NewHeader(protocol.PlotImage{Name: "img"}, &p)

	block, err := protocol.EncodeHeader(h)
	require.NoError(t, err)
	got, err := protocol.DecodeHeader(block)
	require.NoError(t, err)
	assert.True(t, got.HasPayload())
	assert.Equal(t, 12, got.ArrSize)
	assert.Equal(t, protocol.DTypeInt16, got.DType)
	assert.Equal(t, []int{2, 3}, got.Shape)
	assert.Equal(t, 2, got.Rank)
}

func TestHeaderBlockLayout(t *testing.T) {
	block, err := protocol.EncodeHeader(protocol.NewHeader(protocol.Clear{}, nil))
	require.NoError(t, err)

	doc := bytes.TrimRight(block, " ")
	assert.True(t, json.Valid(doc))
	assert.Equal(t, strings.Repeat(" ", protocol.FrameWidth-len(doc)), string(block[len(doc):]))

	var raw map[string]any
	require.NoError(t, json.Unmarshal(doc, &raw))
	assert.Equal(t, "*", raw["name"])
	assert.Equal(t, "clear", raw["operation"])
	assert.Equal(t, 0.0, raw["arrsize"])
}

func TestHeaderWireNames(t *testing.T) {
	cmd := protocol.AppendSeries{Name: "s", Value: 2, StartStep: protocol.DefaultStepOrigin, X: xAxis, Y: yAxis}
	block, err := protocol.EncodeHeader(protocol.NewHeader(cmd, nil))
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimRight(block, " "), &raw))
	assert.Equal(t, []any{0.0, 1.0}, raw["start_step"])
	assert.Equal(t, 2.0, raw["value"])
	assert.Equal(t, "time", raw["Xname"])
	assert.Equal(t, "s", raw["X"])
	assert.Equal(t, "V", raw["Y"])
}

func TestNonFiniteValuesSurviveHeaderCodec(t *testing.T) {
	roundTrip := func(t *testing.T, cmd protocol.Command) (string, protocol.Command) {
		t.Helper()
		block, err := protocol.EncodeHeader(protocol.NewHeader(cmd, nil))
		require.NoError(t, err)
		h, err := protocol.DecodeHeader(block)
		require.NoError(t, err)
		got, err := h.Command()
		require.NoError(t, err)
		return string(bytes.TrimRight(block, " ")), got
	}

	doc, got := roundTrip(t, protocol.AppendSeries{
		Name: "s", Value: math.NaN(), StartStep: protocol.StepOrigin{Start: math.Inf(-1), Step: 1},
	})
	assert.Contains(t, doc, `"value":NaN`)
	assert.Contains(t, doc, `"start_step":[-Infinity,1]`)
	series := got.(protocol.AppendSeries)
	assert.True(t, math.IsNaN(series.Value))
	assert.True(t, math.IsInf(series.StartStep.Start, -1))
	assert.Equal(t, 1.0, series.StartStep.Step)

	doc, got = roundTrip(t, protocol.AppendXY{Name: "xy", X: math.Inf(1), Y: -2})
	assert.Contains(t, doc, `"value":[Infinity,-2]`)
	xy := got.(protocol.AppendXY)
	assert.True(t, math.IsInf(xy.X, 1))
	assert.Equal(t, -2.0, xy.Y)

	for _, text := range []string{"NaN", "-Infinity", "\x1fNaN", `["NaN"]`} {
		_, got = roundTrip(t, protocol.SetLabel{Name: "NaN", Text: text})
		assert.Equal(t, protocol.SetLabel{Name: "NaN", Text: text}, got)
	}
}

func TestDecodeHeaderAcceptsBareNonFiniteTokens(t *testing.T) {
	block := []byte(`{"name": "s", "operation": "append_xy", "arrsize": 0, "value": [NaN, -Infinity]}`)
	block = append(block, bytes.Repeat([]byte(" "), protocol.FrameWidth-len(block))...)

	h, err := protocol.DecodeHeader(block)
	require.NoError(t, err)
	got, err := h.Command()
	require.NoError(t, err)
	xy := got.(protocol.AppendXY)
	assert.True(t, math.IsNaN(xy.X))
	assert.True(t, math.IsInf(xy.Y, -1))
}

func TestEmptyNameIsWildcard(t *testing.T) {
	for _, cmd := range []protocol.Command{protocol.Clear{}, protocol.PlotSeries{}, protocol.SetLabel{}} {
		assert.Equal(t, protocol.Wildcard, protocol.NewHeader(cmd, nil).Name)
	}
	assert.Equal(t, "none", protocol.NewHeader(protocol.Barrier{}, nil).Name)
}

func TestHeaderTooLarge(t *testing.T) {
	h := protocol.NewHeader(protocol.SetLabel{Name: "s", Text: strings.Repeat("x", 300)}, nil)
	_, err := protocol.EncodeHeader(h)
	require.Error(t, err)
	assert.ErrorIs(t, err, api.ErrHeaderTooLarge)
	var tooLarge *api.HeaderTooLargeError
	require.ErrorAs(t, err, &tooLarge)
	assert.Greater(t, tooLarge.Len, protocol.FrameWidth)
	assert.Equal(t, protocol.FrameWidth, tooLarge.Limit)
}

func TestDecodeHeaderRejects(t *testing.T) {
	_, err := protocol.DecodeHeader([]byte(`{"name":"s"}`))
	assert.ErrorIs(t, err, api.ErrInvalidArgument)

	block := []byte(`{"name":"s","operation":"explode","arrsize":0}`)
	block = append(block, bytes.Repeat([]byte(" "), protocol.FrameWidth-len(block))...)
	_, err = protocol.DecodeHeader(block)
	assert.ErrorIs(t, err, protocol.ErrUnknownKind)

	garbage := bytes.Repeat([]byte("{"), protocol.FrameWidth)
	_, err = protocol.DecodeHeader(garbage)
	assert.Error(t, err)
}

func TestKindProperties(t *testing.T) {
	for _, k := range protocol.Kinds {
		assert.True(t, k.Valid(), k)
	}
	assert.False(t, protocol.Kind("none").Valid())

	assert.True(t, protocol.KindSetLabel.Synchronous())
	assert.False(t, protocol.KindClear.Synchronous())
	assert.False(t, protocol.KindBarrier.Synchronous())

	assert.True(t, protocol.KindBarrier.CarriesPayload())
	assert.False(t, protocol.KindAppendSeries.CarriesPayload())
	assert.Equal(t, 2, protocol.KindAppendImage.Rank())
	assert.Equal(t, 0, protocol.KindRemove.Rank())
}

func TestStepFromExtent(t *testing.T) {
	assert.Equal(t, protocol.StepOrigin{Start: 0, Step: 2}, protocol.StepFromExtent(0, 10, 5))
	assert.Equal(t, protocol.StepOrigin{Start: 3, Step: 0}, protocol.StepFromExtent(3, 4, 0))
}

func TestAxisDefaults(t *testing.T) {
	a := protocol.Axis{}.WithDefaults(protocol.DefaultXName)
	assert.Equal(t, protocol.Axis{Name: "X axis", Unit: "arb. u."}, a)
	b := protocol.Axis{Name: "t", Unit: "s"}.WithDefaults(protocol.DefaultXName)
	assert.Equal(t, protocol.Axis{Name: "t", Unit: "s"}, b)
}
