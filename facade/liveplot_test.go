package facade_test

import (
	"testing"
	"time"

	"github.com/momentics/hioload-liveplot/api"
	"github.com/momentics/hioload-liveplot/client"
	"github.com/momentics/hioload-liveplot/control"
	"github.com/momentics/hioload-liveplot/facade"
	"github.com/momentics/hioload-liveplot/fake"
	"github.com/momentics/hioload-liveplot/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

func newFacade(t *testing.T) (*facade.LivePlot, *[]*fake.Segment) {
	t.Helper()
	cfg := control.DefaultConfig()
	cfg.SegmentSize = 1024
	var segs []*fake.Segment
	lp, err := facade.New(cfg,
		facade.WithLogger(zaptest.NewLogger(t)),
		facade.WithSessionOptions(
			client.WithChannelDialer(func(string, time.Duration, *zap.Logger) (api.ControlChannel, error) {
				return fake.NewAutoAckChannel(), nil
			}),
			client.WithSegmentFactory(fake.Factory(nil, &segs)),
		),
	)
	require.NoError(t, err)
	return lp, &segs
}

func TestFacadeLifecycle(t *testing.T) {
	lp, segs := newFacade(t)

	a, err := lp.Connect()
	require.NoError(t, err)
	b, err := lp.Connect()
	require.NoError(t, err)
	assert.NotEqual(t, a.Key(), b.Key())
	assert.Equal(t, 2, lp.Sessions())
	assert.Equal(t, 2, lp.Control().Stats()["debug.facade.sessions"])

	require.NoError(t, a.PlotSeries("s", protocol.Vector([]float64{1, 2})))
	assert.Equal(t, 1.0, lp.Control().Stats()["liveplot_commands_total{kind=plot_series}"])

	require.NoError(t, lp.Shutdown())
	assert.Zero(t, lp.Sessions())
	assert.False(t, a.IsConnected())
	assert.False(t, b.IsConnected())
	for _, seg := range *segs {
		assert.True(t, seg.Detached())
	}

	_, err = lp.Connect()
	assert.ErrorIs(t, err, facade.ErrShutdown)
}

func TestFacadeRelease(t *testing.T) {
	lp, segs := newFacade(t)
	defer lp.Shutdown()

	s, err := lp.Connect()
	require.NoError(t, err)
	require.NoError(t, lp.Release(s))
	assert.Zero(t, lp.Sessions())
	assert.True(t, (*segs)[0].Detached())
}

func TestFacadeConnectFailure(t *testing.T) {
	cfg := control.DefaultConfig()
	lp, err := facade.New(cfg,
		facade.WithLogger(zap.NewNop()),
		facade.WithSessionOptions(client.WithChannelDialer(func(string, time.Duration, *zap.Logger) (api.ControlChannel, error) {
			return nil, api.ErrEndpointUnreachable
		})),
	)
	require.NoError(t, err)
	defer lp.Shutdown()

	_, err = lp.Connect()
	assert.ErrorIs(t, err, api.ErrHandshakeFailed)
	assert.Zero(t, lp.Sessions())
}

func TestCloseOnExitDisarm(t *testing.T) {
	lp, _ := newFacade(t)
	stop := lp.CloseOnExit()
	stop()
	stop()
	lp.CloseOnExit()
	require.NoError(t, lp.Shutdown())
}

func TestFacadeRejectsBadConfig(t *testing.T) {
	cfg := control.DefaultConfig()
	cfg.SegmentSize = -1
	_, err := facade.New(cfg)
	assert.ErrorIs(t, err, api.ErrInvalidArgument)
}
