package capture

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSource replays scripted event batches, one per Poll.
type fakeSource struct {
	batches    [][]Event
	issued     []Command
	issueErr   error
	connectErr error
}

func (f *fakeSource) Connect() error    { return f.connectErr }
func (f *fakeSource) Disconnect() error { return nil }

func (f *fakeSource) Issue(cmd Command) error {
	if f.issueErr != nil {
		return f.issueErr
	}
	f.issued = append(f.issued, cmd)
	return nil
}

func (f *fakeSource) Poll() []Event {
	if len(f.batches) == 0 {
		return nil
	}
	batch := f.batches[0]
	f.batches = f.batches[1:]
	return batch
}

func (f *fakeSource) push(events ...Event) {
	f.batches = append(f.batches, events)
}

func testFrame() *Frame {
	return &Frame{
		Joints: map[string]JointData{
			"Hips": {Position: [3]float64{0, 95, 0}, Rotation: [4]float64{1, 0, 0, 0}},
		},
		Timestamp: 1.5,
	}
}

// newTestConnector wires a connector to a scripted source and a
// manually advanced clock.
func newTestConnector(t *testing.T, src *fakeSource) (*Connector, *time.Time) {
	t.Helper()
	c := NewConnector(src, Options{
		StabilizeDuration:  20 * time.Second,
		CalibrationTimeout: 60 * time.Second,
	})
	clock := time.Unix(1000, 0)
	c.now = func() time.Time { return clock }
	require.NoError(t, c.Connect())
	return c, &clock
}

func TestCommandsRequireConnection(t *testing.T) {
	c := NewConnector(&fakeSource{}, Options{})

	assert.ErrorIs(t, c.StartCapture(), ErrNotConnected)
	assert.ErrorIs(t, c.StopCapture(), ErrNotConnected)
	assert.Nil(t, c.PollAndUpdate())
}

func TestConnectFailure(t *testing.T) {
	c := NewConnector(&fakeSource{connectErr: errors.New("broker down")}, Options{})

	require.Error(t, c.Connect())
	assert.Equal(t, StateError, c.State())
}

func TestSingleOutstandingCommand(t *testing.T) {
	src := &fakeSource{}
	c, _ := newTestConnector(t, src)

	require.NoError(t, c.StartCapture())
	assert.ErrorIs(t, c.StartCapture(), ErrCommandPending)
	assert.ErrorIs(t, c.StopCapture(), ErrCommandPending)
	assert.Len(t, src.issued, 1, "rejected commands must not reach the source")
}

func TestCaptureStartsOnFirstFrame(t *testing.T) {
	src := &fakeSource{}
	c, clock := newTestConnector(t, src)

	require.NoError(t, c.StartCapture())
	src.push(FrameEvent{Frame: testFrame()})

	frame := c.PollAndUpdate()
	require.NotNil(t, frame)
	assert.Equal(t, StateCapturing, c.State())
	assert.Equal(t, PhaseStabilizing, c.Phase())
	assert.Same(t, frame, c.LatestFrame())

	// Still stabilizing before the window elapses.
	*clock = clock.Add(10 * time.Second)
	src.push(FrameEvent{Frame: testFrame()})
	c.PollAndUpdate()
	assert.Equal(t, PhaseStabilizing, c.Phase())

	*clock = clock.Add(10 * time.Second)
	src.push(FrameEvent{Frame: testFrame()})
	c.PollAndUpdate()
	assert.Equal(t, PhaseReady, c.Phase())
	assert.True(t, c.CanCalibrate())
	assert.False(t, c.ReadyForRecord(), "recording needs calibration first")
}

// stabilize drives the connector into the Ready phase.
func stabilize(t *testing.T, c *Connector, src *fakeSource, clock *time.Time) {
	t.Helper()
	require.NoError(t, c.StartCapture())
	src.push(FrameEvent{Frame: testFrame()})
	c.PollAndUpdate()
	*clock = clock.Add(21 * time.Second)
	src.push(FrameEvent{Frame: testFrame()})
	c.PollAndUpdate()
	require.Equal(t, PhaseReady, c.Phase())
}

func TestCalibrationLifecycle(t *testing.T) {
	src := &fakeSource{}
	c, clock := newTestConnector(t, src)
	stabilize(t, c, src, clock)

	require.NoError(t, c.StartCalibration())
	assert.Equal(t, StateCalibrating, c.State())
	assert.Equal(t, CalibPreparing, c.Calibration())

	src.push(ProgressEvent{Stage: CalibCountdown, Pose: "T-Pose", Countdown: 3})
	c.PollAndUpdate()
	assert.Equal(t, CalibCountdown, c.Calibration())
	assert.Contains(t, c.CalibrationMessage(), "T-Pose")
	assert.Contains(t, c.CalibrationMessage(), "3s")

	src.push(ProgressEvent{Stage: CalibInProgress, Pose: "T-Pose", Percent: 60})
	c.PollAndUpdate()
	assert.Equal(t, CalibInProgress, c.Calibration())

	src.push(ResultEvent{Command: CmdCalibrate, Code: 0})
	c.PollAndUpdate()
	assert.Equal(t, CalibCompleted, c.Calibration())
	assert.Equal(t, PhaseCalibrated, c.Phase())
	assert.Equal(t, StateCapturing, c.State())
	assert.True(t, c.ReadyForRecord())
}

func TestCalibrationRequiresReadyPhase(t *testing.T) {
	src := &fakeSource{}
	c, _ := newTestConnector(t, src)

	// Not capturing at all.
	assert.ErrorIs(t, c.StartCalibration(), ErrNotReady)

	// Capturing but still stabilizing.
	require.NoError(t, c.StartCapture())
	src.push(FrameEvent{Frame: testFrame()})
	c.PollAndUpdate()
	require.Equal(t, PhaseStabilizing, c.Phase())
	assert.ErrorIs(t, c.StartCalibration(), ErrNotReady)
}

func TestCalibrationFailureIsRecoverable(t *testing.T) {
	src := &fakeSource{}
	c, clock := newTestConnector(t, src)
	stabilize(t, c, src, clock)

	require.NoError(t, c.StartCalibration())
	src.push(ResultEvent{Command: CmdCalibrate, Code: 2, Message: "device not ready"})
	c.PollAndUpdate()

	assert.Equal(t, CalibFailed, c.Calibration())
	assert.Equal(t, StateCapturing, c.State())
	assert.Equal(t, PhaseReady, c.Phase())
	assert.False(t, c.ReadyForRecord())

	// The pending slot is free again, so a retry is accepted.
	require.NoError(t, c.StartCalibration())
}

func TestCalibrationTimeout(t *testing.T) {
	src := &fakeSource{}
	c, clock := newTestConnector(t, src)
	stabilize(t, c, src, clock)

	require.NoError(t, c.StartCalibration())
	*clock = clock.Add(61 * time.Second)
	c.PollAndUpdate()

	assert.Equal(t, CalibFailed, c.Calibration())
	assert.Equal(t, PhaseReady, c.Phase())
	assert.Equal(t, StateCapturing, c.State())
	require.NoError(t, c.StartCalibration(), "retry after timeout")
}

func TestUnmatchedResultIgnored(t *testing.T) {
	src := &fakeSource{}
	c, clock := newTestConnector(t, src)
	stabilize(t, c, src, clock)

	src.push(ResultEvent{Command: CmdCalibrate, Code: 0})
	c.PollAndUpdate()
	assert.Equal(t, CalibNone, c.Calibration(), "stray result must not complete a calibration")
	assert.NotEqual(t, PhaseCalibrated, c.Phase())
}

func TestStopCaptureResult(t *testing.T) {
	src := &fakeSource{}
	c, clock := newTestConnector(t, src)
	stabilize(t, c, src, clock)

	require.NoError(t, c.StopCapture())
	src.push(ResultEvent{Command: CmdStopCapture, Code: 0})
	c.PollAndUpdate()

	assert.Equal(t, StateConnected, c.State())
	assert.False(t, c.ReadyForRecord())
}

func TestLatestFrameKeepsFreshest(t *testing.T) {
	src := &fakeSource{}
	c, _ := newTestConnector(t, src)
	require.NoError(t, c.StartCapture())

	first := testFrame()
	second := testFrame()
	second.Timestamp = 2.5
	src.push(FrameEvent{Frame: first}, FrameEvent{Frame: second})

	got := c.PollAndUpdate()
	require.NotNil(t, got)
	assert.Same(t, second, got, "the newest frame of the batch wins")
	assert.Same(t, second, c.LatestFrame())
}

func TestStatusTextPerState(t *testing.T) {
	src := &fakeSource{}
	c, clock := newTestConnector(t, src)
	assert.Equal(t, "Connected", c.StatusText())

	require.NoError(t, c.StartCapture())
	src.push(FrameEvent{Frame: testFrame()})
	c.PollAndUpdate()
	assert.Contains(t, c.StatusText(), "Stabilizing")

	*clock = clock.Add(21 * time.Second)
	src.push(FrameEvent{Frame: testFrame()})
	c.PollAndUpdate()
	assert.Contains(t, c.StatusText(), "Ready for Calibration")

	// No frames for longer than the data timeout.
	*clock = clock.Add(10 * time.Second)
	assert.Contains(t, c.StatusText(), "Waiting for Data")
}

func TestDisconnectResetsWorkflow(t *testing.T) {
	src := &fakeSource{}
	c, clock := newTestConnector(t, src)
	stabilize(t, c, src, clock)

	require.NoError(t, c.Disconnect())
	assert.Equal(t, StateDisconnected, c.State())
	assert.Equal(t, PhaseIdle, c.Phase())
	assert.ErrorIs(t, c.StartCapture(), ErrNotConnected)
	// Active captures get a best-effort stop command on the way out.
	assert.Equal(t, CmdStopCapture, src.issued[len(src.issued)-1])
}

func TestFrameApplyAndSamples(t *testing.T) {
	frame := testFrame()
	samples := frame.Samples()
	require.Contains(t, samples, "Hips")
	assert.Equal(t, 95.0, samples["Hips"].Position.Y)
	assert.Equal(t, 1.0, samples["Hips"].Rotation.W)
}
