package capture

import (
	"github.com/pnmocap/motion_computer/internal/geom"
	"github.com/pnmocap/motion_computer/internal/skeleton"
)

// JointData is one joint's wire sample. Position is (x, y, z) in cm,
// rotation is a (w, x, y, z) quaternion.
type JointData struct {
	Position [3]float64 `json:"position"`
	Rotation [4]float64 `json:"rotation"`
}

// Sample converts the wire sample into the internal representation.
func (d JointData) Sample() skeleton.JointSample {
	return skeleton.JointSample{
		Position: geom.Vec3{X: d.Position[0], Y: d.Position[1], Z: d.Position[2]},
		Rotation: geom.Quat{W: d.Rotation[0], X: d.Rotation[1], Y: d.Rotation[2], Z: d.Rotation[3]},
	}
}

// Frame is one streamed capture frame as it arrives from a source.
type Frame struct {
	Joints    map[string]JointData `json:"joints"`
	Timestamp float64              `json:"timestamp"`
}

// Samples converts the frame's joints into internal samples.
func (f *Frame) Samples() map[string]skeleton.JointSample {
	out := make(map[string]skeleton.JointSample, len(f.Joints))
	for name, d := range f.Joints {
		out[name] = d.Sample()
	}
	return out
}

// Apply writes the frame's samples into a pose aligned to s. Joints
// absent from the frame keep their identity sample.
func (f *Frame) Apply(s *skeleton.Skeleton, p *skeleton.Pose) {
	p.Reset()
	for name, d := range f.Joints {
		if i, ok := s.Index(name); ok {
			p.Samples[i] = d.Sample()
		}
	}
	p.Timestamp = f.Timestamp
}

// Event is anything a Source can report from a poll.
type Event interface{ isEvent() }

// FrameEvent carries one streamed frame.
type FrameEvent struct {
	Frame *Frame
}

// ProgressEvent reports calibration progress while a calibrate
// command is running.
type ProgressEvent struct {
	Stage     CalibrationState // CalibPreparing, CalibCountdown or CalibInProgress
	Pose      string
	Countdown int
	Percent   int
}

// ResultEvent is the final reply to an issued command. Code 0 means
// success.
type ResultEvent struct {
	Command Command
	Code    int
	Message string
}

// ErrorEvent reports a source-side failure.
type ErrorEvent struct {
	Err error
}

func (FrameEvent) isEvent()    {}
func (ProgressEvent) isEvent() {}
func (ResultEvent) isEvent()   {}
func (ErrorEvent) isEvent()    {}

// Source delivers frames and command replies from a capture device or
// service. Poll must never block; it returns whatever arrived since
// the previous poll.
type Source interface {
	Connect() error
	Disconnect() error
	Issue(cmd Command) error
	Poll() []Event
}
