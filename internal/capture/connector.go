// Copyright (c) 2026 PN Mocap
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package capture drives a motion capture source: connection state,
// the stabilize/calibrate workflow, and a latest-frame slot that
// favors freshness over completeness.
package capture

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"
)

// Default workflow timing; overridable through Options.
const (
	DefaultStabilizeDuration  = 20 * time.Second
	DefaultCalibrationTimeout = 60 * time.Second
	DefaultDataTimeout        = 5 * time.Second
)

var (
	ErrNotConnected   = errors.New("capture: not connected")
	ErrCommandPending = errors.New("capture: another command is pending")
	ErrNotReady       = errors.New("capture: not ready")
)

// Options tunes the connector's workflow timing. Zero values fall
// back to the defaults.
type Options struct {
	StabilizeDuration  time.Duration
	CalibrationTimeout time.Duration
	DataTimeout        time.Duration
}

// Connector owns the capture workflow state machine. All methods are
// intended for the owner's poll loop goroutine; only the latest-frame
// slot is safe to read concurrently.
type Connector struct {
	src  Source
	opts Options

	mu     sync.Mutex
	latest *Frame

	state    ConnectionState
	phase    CapturePhase
	calState CalibrationState

	// pending is the single outstanding command, nil when idle.
	pending *Command

	capturing bool

	stabilizeStart     time.Time
	stabilizeRemaining time.Duration

	calibStart     time.Time
	calibPose      string
	calibCountdown int
	calibPercent   int

	frameCount int
	fpsSince   time.Time
	fps        float64

	lastData time.Time

	now func() time.Time
}

// NewConnector wraps a source with the capture workflow.
func NewConnector(src Source, opts Options) *Connector {
	if opts.StabilizeDuration <= 0 {
		opts.StabilizeDuration = DefaultStabilizeDuration
	}
	if opts.CalibrationTimeout <= 0 {
		opts.CalibrationTimeout = DefaultCalibrationTimeout
	}
	if opts.DataTimeout <= 0 {
		opts.DataTimeout = DefaultDataTimeout
	}
	return &Connector{
		src:   src,
		opts:  opts,
		state: StateDisconnected,
		phase: PhaseIdle,
		now:   time.Now,
	}
}

// Connect establishes the source link.
func (c *Connector) Connect() error {
	c.state = StateConnecting
	if err := c.src.Connect(); err != nil {
		c.state = StateError
		return fmt.Errorf("capture: connect: %w", err)
	}
	c.state = StateConnected
	c.fpsSince = c.now()
	log.Printf("capture: connected")
	return nil
}

// Disconnect tears the link down, stopping an active capture first on
// a best-effort basis.
func (c *Connector) Disconnect() error {
	if c.capturing {
		if err := c.src.Issue(CmdStopCapture); err != nil {
			log.Printf("capture: stop on disconnect: %v", err)
		}
	}
	err := c.src.Disconnect()
	c.state = StateDisconnected
	c.phase = PhaseIdle
	c.calState = CalibNone
	c.pending = nil
	c.capturing = false
	if err != nil {
		return fmt.Errorf("capture: disconnect: %w", err)
	}
	log.Printf("capture: disconnected")
	return nil
}

// Connected reports whether the source link is up.
func (c *Connector) Connected() bool {
	return c.state != StateDisconnected && c.state != StateConnecting && c.state != StateError
}

func (c *Connector) issue(cmd Command) error {
	if !c.Connected() {
		return ErrNotConnected
	}
	if c.pending != nil {
		return fmt.Errorf("%w (%s)", ErrCommandPending, *c.pending)
	}
	if err := c.src.Issue(cmd); err != nil {
		return fmt.Errorf("capture: issue %s: %w", cmd, err)
	}
	pending := cmd
	c.pending = &pending
	log.Printf("capture: %s command sent", cmd)
	return nil
}

// StartCapture asks the source to begin streaming frames. The capture
// is considered started once the first frame arrives.
func (c *Connector) StartCapture() error {
	return c.issue(CmdStartCapture)
}

// StopCapture asks the source to stop streaming.
func (c *Connector) StopCapture() error {
	return c.issue(CmdStopCapture)
}

// CanCalibrate reports whether a calibration request would be
// accepted right now.
func (c *Connector) CanCalibrate() bool {
	return c.capturing && c.phase == PhaseReady && c.pending == nil
}

// StartCalibration begins the source-driven calibration workflow.
// Only valid while capturing and stabilized.
func (c *Connector) StartCalibration() error {
	if !c.capturing {
		return fmt.Errorf("%w: not capturing", ErrNotReady)
	}
	if c.phase != PhaseReady {
		return fmt.Errorf("%w: capture phase is %s", ErrNotReady, c.phase)
	}
	if err := c.issue(CmdCalibrate); err != nil {
		return err
	}
	c.state = StateCalibrating
	c.calState = CalibPreparing
	c.calibStart = c.now()
	c.calibPercent = 0
	log.Printf("capture: calibration started (timeout %s)", c.opts.CalibrationTimeout)
	return nil
}

// ReadyForRecord reports whether recording would produce calibrated
// data: capturing, stabilized and successfully calibrated.
func (c *Connector) ReadyForRecord() bool {
	return c.capturing && c.phase == PhaseCalibrated && c.calState == CalibCompleted
}

// PollAndUpdate drains the source's pending events, advances the
// state machine and returns the newest frame seen in this batch, nil
// when none arrived. It never blocks.
func (c *Connector) PollAndUpdate() *Frame {
	if !c.Connected() {
		return nil
	}

	var frame *Frame
	for _, ev := range c.src.Poll() {
		switch ev := ev.(type) {
		case FrameEvent:
			c.handleFrame(ev)
			frame = ev.Frame
		case ProgressEvent:
			c.handleProgress(ev)
		case ResultEvent:
			c.handleResult(ev)
		case ErrorEvent:
			log.Printf("capture: source error: %v", ev.Err)
		}
	}

	if frame != nil {
		c.mu.Lock()
		c.latest = frame
		c.mu.Unlock()
	}

	c.checkCalibrationTimeout()
	return frame
}

func (c *Connector) handleFrame(ev FrameEvent) {
	now := c.now()

	// A frame while StartCapture is pending proves the source honored
	// the command even if its result reply got lost.
	if c.pending != nil && *c.pending == CmdStartCapture {
		c.pending = nil
	}

	if !c.capturing && c.pending == nil {
		c.capturing = true
		c.state = StateCapturing
		c.phase = PhaseStabilizing
		c.stabilizeStart = now
		c.stabilizeRemaining = c.opts.StabilizeDuration
		log.Printf("capture: capturing started, stabilizing for %s", c.opts.StabilizeDuration)
	}

	calibrating := c.pending != nil && *c.pending == CmdCalibrate
	if c.phase == PhaseStabilizing && !calibrating {
		elapsed := now.Sub(c.stabilizeStart)
		c.stabilizeRemaining = max(0, c.opts.StabilizeDuration-elapsed)
		if elapsed >= c.opts.StabilizeDuration {
			c.phase = PhaseReady
			log.Printf("capture: stabilized, ready for calibration")
		}
	}

	c.updateFPS(now)
	c.lastData = now
}

func (c *Connector) handleProgress(ev ProgressEvent) {
	if c.pending == nil || *c.pending != CmdCalibrate {
		return
	}
	c.calState = ev.Stage
	c.calibPose = ev.Pose
	c.calibCountdown = ev.Countdown
	c.calibPercent = ev.Percent
}

func (c *Connector) handleResult(ev ResultEvent) {
	if c.pending == nil || *c.pending != ev.Command {
		log.Printf("capture: ignoring result for %s (no matching pending command)", ev.Command)
		return
	}
	c.pending = nil

	if ev.Code != 0 {
		log.Printf("capture: %s failed: %s (code %d)", ev.Command, ev.Message, ev.Code)
		if ev.Command == CmdCalibrate {
			c.calState = CalibFailed
			c.calibStart = time.Time{}
			c.state = StateCapturing
		}
		return
	}

	switch ev.Command {
	case CmdStopCapture:
		c.capturing = false
		c.state = StateConnected
		log.Printf("capture: capture stopped")
	case CmdStartCapture:
		log.Printf("capture: capture start acknowledged")
	case CmdCalibrate:
		c.state = StateCapturing
		c.calState = CalibCompleted
		c.calibPercent = 100
		c.phase = PhaseCalibrated
		c.calibStart = time.Time{}
		log.Printf("capture: calibration completed")
	}
}

// checkCalibrationTimeout fails a calibration that got no terminal
// reply in time and restores the machine so the user can retry.
func (c *Connector) checkCalibrationTimeout() {
	if c.calibStart.IsZero() || c.pending == nil || *c.pending != CmdCalibrate {
		return
	}
	if c.now().Sub(c.calibStart) < c.opts.CalibrationTimeout {
		return
	}
	log.Printf("capture: calibration timed out after %s", c.opts.CalibrationTimeout)
	c.calState = CalibFailed
	c.calibStart = time.Time{}
	c.calibPercent = 0
	c.pending = nil
	c.state = StateCapturing
	if c.phase != PhaseCalibrated {
		c.phase = PhaseReady
	}
}

func (c *Connector) updateFPS(now time.Time) {
	c.frameCount++
	if elapsed := now.Sub(c.fpsSince); elapsed >= time.Second {
		c.fps = float64(c.frameCount) / elapsed.Seconds()
		c.frameCount = 0
		c.fpsSince = now
	}
}

// LatestFrame returns the newest frame seen so far, nil before the
// first frame. Safe to call from any goroutine.
func (c *Connector) LatestFrame() *Frame {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.latest
}

// State returns the connection state.
func (c *Connector) State() ConnectionState { return c.state }

// Phase returns the capture phase.
func (c *Connector) Phase() CapturePhase { return c.phase }

// Calibration returns the calibration state.
func (c *Connector) Calibration() CalibrationState { return c.calState }

// FPS returns the measured incoming frame rate.
func (c *Connector) FPS() float64 { return c.fps }

// StatusText renders the connection state for display, with phase
// detail while capturing.
func (c *Connector) StatusText() string {
	switch c.state {
	case StateConnecting:
		return "Connecting..."
	case StateCalibrating:
		return "Calibrating..."
	case StateCapturing:
		if !c.lastData.IsZero() && c.now().Sub(c.lastData) > c.opts.DataTimeout {
			return "Capturing: Waiting for Data..."
		}
		switch c.phase {
		case PhaseStabilizing:
			return fmt.Sprintf("Capturing: Stabilizing (%ds)", int(c.stabilizeRemaining.Seconds()))
		case PhaseReady:
			return "Capturing: Ready for Calibration"
		case PhaseCalibrated:
			return fmt.Sprintf("Capturing: Calibrated (%.1f FPS)", c.fps)
		default:
			return "Capturing: Idle"
		}
	default:
		return c.state.String()
	}
}

// PhaseMessage renders the capture phase as a user-facing prompt.
func (c *Connector) PhaseMessage() string {
	switch c.phase {
	case PhaseStabilizing:
		return fmt.Sprintf("Stabilizing - please stay still (%ds)", int(c.stabilizeRemaining.Seconds()))
	case PhaseReady:
		return "Stable - calibration can begin"
	case PhaseCalibrated:
		return "Calibrated - ready to record"
	}
	return ""
}

// CalibrationMessage renders the calibration workflow as a
// user-facing prompt.
func (c *Connector) CalibrationMessage() string {
	pose := c.calibPose
	if pose == "" {
		pose = "calibration pose"
	}
	switch c.calState {
	case CalibPreparing:
		return fmt.Sprintf("Hold the %s - preparing...", pose)
	case CalibCountdown:
		return fmt.Sprintf("Hold the %s - starting in %ds", pose, c.calibCountdown)
	case CalibInProgress:
		return fmt.Sprintf("Calibrating (%s)... %d%%", pose, c.calibPercent)
	case CalibCompleted:
		return "Calibration completed - ready to record"
	case CalibFailed:
		return "Calibration failed - please retry"
	}
	return ""
}

// OverallStatus prefers an active calibration message over the phase
// message.
func (c *Connector) OverallStatus() string {
	if c.calState != CalibNone && c.calState != CalibCompleted {
		return c.CalibrationMessage()
	}
	return c.PhaseMessage()
}
