// Copyright (c) 2026 PN Mocap
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package recorder buffers streamed motion frames and exports them as
// a BVH document.
package recorder

import (
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/pnmocap/motion_computer/internal/bvh"
	"github.com/pnmocap/motion_computer/internal/skeleton"
)

// ErrEmptyBuffer is returned when an export finds nothing to write.
var ErrEmptyBuffer = errors.New("recorder: no frames recorded")

// Frame is one buffered frame: an index within the recording, the
// offset from recording start in seconds, and the captured samples.
type Frame struct {
	Index     int
	Timestamp float64
	Joints    map[string]skeleton.JointSample
}

// Recorder buffers frames between Start and Stop. All mutating
// methods hold the lock for the whole check-then-act sequence, so a
// Record racing a Stop either lands fully before it or not at all.
type Recorder struct {
	mu        sync.Mutex
	frames    []Frame
	recording bool
	counter   int
	startTime time.Time
	frameTime float64
	targetFPS float64

	now func() time.Time
}

// New returns an idle recorder with a 60 FPS default frame time.
func New() *Recorder {
	return &Recorder{
		frameTime: 1.0 / 60.0,
		targetFPS: 60,
		now:       time.Now,
	}
}

// Start clears the buffer and begins recording at the given target
// FPS (60 when fps <= 0).
func (r *Recorder) Start(fps float64) {
	if fps <= 0 {
		fps = 60
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames = r.frames[:0]
	r.recording = true
	r.counter = 0
	r.startTime = r.now()
	r.targetFPS = fps
	r.frameTime = 1.0 / fps
	log.Printf("recorder: recording started at %g FPS", fps)
}

// Stop ends the recording and returns the buffered frame count.
func (r *Recorder) Stop() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.recording = false
	total := len(r.frames)
	log.Printf("recorder: recording stopped, %d frames (%.2fs)", total, float64(total)*r.frameTime)
	return total
}

// Record buffers one frame. The sample map is value-copied so later
// mutation by the caller cannot corrupt the buffer. A no-op while not
// recording.
func (r *Recorder) Record(joints map[string]skeleton.JointSample) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.recording {
		return
	}
	copied := make(map[string]skeleton.JointSample, len(joints))
	for name, sample := range joints {
		copied[name] = sample
	}
	r.frames = append(r.frames, Frame{
		Index:     r.counter,
		Timestamp: r.now().Sub(r.startTime).Seconds(),
		Joints:    copied,
	})
	r.counter++
}

// Recording reports whether a recording is active.
func (r *Recorder) Recording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.recording
}

// Count returns the buffered frame count.
func (r *Recorder) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.frames)
}

// Frame returns the buffered frame at index i for playback.
func (r *Recorder) Frame(i int) (Frame, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if i < 0 || i >= len(r.frames) {
		return Frame{}, false
	}
	return r.frames[i], true
}

// Duration returns the recording length implied by the frame count
// and the target frame time.
func (r *Recorder) Duration() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return float64(len(r.frames)) * r.frameTime
}

// Clear drops the buffer and stops any active recording.
func (r *Recorder) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames = nil
	r.counter = 0
	r.recording = false
	log.Printf("recorder: buffer cleared")
}

// StatusText renders the recorder state for display.
func (r *Recorder) StatusText() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch {
	case r.recording:
		elapsed := r.now().Sub(r.startTime).Seconds()
		return fmt.Sprintf("Recording: %d frames (%.1fs)", r.counter, elapsed)
	case len(r.frames) > 0:
		return fmt.Sprintf("Recorded: %d frames (%.1fs)", len(r.frames), float64(len(r.frames))*r.frameTime)
	default:
		return "No recording"
	}
}

// ExportBVH writes the buffer to path as a BVH document. The exported
// joint set is the canonical export order filtered to the joints the
// first buffered frame actually carries; the root is always included.
func (r *Recorder) ExportBVH(path string) error {
	r.mu.Lock()
	order, frames, frameTime := r.exportSnapshot()
	r.mu.Unlock()

	if len(frames) == 0 {
		return ErrEmptyBuffer
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("recorder: create %s: %w", path, err)
	}
	defer f.Close()

	if err := bvh.Export(f, frames, frameTime, order); err != nil {
		return err
	}
	log.Printf("recorder: BVH exported to %s (%d joints, %d frames)", path, len(order), len(frames))
	return nil
}

// exportSnapshot assembles export inputs under the caller's lock.
func (r *Recorder) exportSnapshot() ([]string, []map[string]skeleton.JointSample, float64) {
	if len(r.frames) == 0 {
		return nil, nil, r.frameTime
	}
	available := r.frames[0].Joints
	order := make([]string, 0, len(skeleton.ExportOrder))
	for _, name := range skeleton.ExportOrder {
		if _, ok := available[name]; ok || name == "Hips" {
			order = append(order, name)
		}
	}
	frames := make([]map[string]skeleton.JointSample, len(r.frames))
	for i := range r.frames {
		frames[i] = r.frames[i].Joints
	}
	return order, frames, r.frameTime
}
