package capture

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandNameRoundTrip(t *testing.T) {
	for _, cmd := range []Command{CmdStartCapture, CmdStopCapture, CmdCalibrate} {
		got, ok := commandFromName(cmd.String())
		require.True(t, ok, cmd)
		assert.Equal(t, cmd, got)
	}
	_, ok := commandFromName("reboot")
	assert.False(t, ok)
}

func TestProgressStageMapping(t *testing.T) {
	cases := map[string]CalibrationState{
		"prepare":   CalibPreparing,
		"countdown": CalibCountdown,
		"progress":  CalibInProgress,
	}
	for name, want := range cases {
		got, ok := progressStage(name)
		require.True(t, ok, name)
		assert.Equal(t, want, got)
	}
	_, ok := progressStage("result")
	assert.False(t, ok)
}

func TestPollDrainsInboxWithoutBlocking(t *testing.T) {
	s := NewMQTTSource(MQTTConfig{})

	assert.Empty(t, s.Poll(), "empty inbox polls empty")

	s.deliver(FrameEvent{Frame: testFrame()})
	s.deliver(ResultEvent{Command: CmdCalibrate, Code: 0})

	events := s.Poll()
	require.Len(t, events, 2)
	assert.IsType(t, FrameEvent{}, events[0])
	assert.IsType(t, ResultEvent{}, events[1])

	assert.Empty(t, s.Poll(), "inbox drained")
}

func TestDeliverDropsWhenFull(t *testing.T) {
	s := NewMQTTSource(MQTTConfig{})
	for i := 0; i < inboxSize+10; i++ {
		s.deliver(FrameEvent{Frame: testFrame()})
	}
	assert.Len(t, s.Poll(), inboxSize, "overflow is dropped, never blocks")
}
