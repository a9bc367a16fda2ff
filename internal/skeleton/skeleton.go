// Copyright (c) 2026 PN Mocap
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package skeleton models a joint hierarchy as an arena of joint records
// addressed by index. Topology is immutable once a Skeleton is built;
// per-frame data (motion rows, poses) lives outside the skeleton.
package skeleton

import (
	"fmt"

	"github.com/pnmocap/motion_computer/internal/geom"
)

// NoParent marks the root joint's parent index.
const NoParent = -1

// Joint is one node of the hierarchy. Parent and Children are arena
// indices into the owning Skeleton.
type Joint struct {
	Name     string
	Parent   int
	Children []int

	// Offset is the rest translation from the parent, in cm.
	Offset geom.Vec3

	// Channels are the joint's animated channels in declaration order.
	// ChannelOffset is the global index of the first one within a
	// motion row; the counter runs across the whole skeleton.
	Channels      []Channel
	ChannelOffset int

	// EndSite is the leaf tip offset, nil when the joint has none.
	EndSite *geom.Vec3
}

// Skeleton is an immutable joint arena with a name lookup table.
// The root is always at index 0.
type Skeleton struct {
	joints []Joint
	byName map[string]int
}

// New builds a Skeleton from an ordered joint slice. The first joint
// must be the only root and every parent must precede its children.
func New(joints []Joint) (*Skeleton, error) {
	if len(joints) == 0 {
		return nil, fmt.Errorf("skeleton: no joints")
	}
	if joints[0].Parent != NoParent {
		return nil, fmt.Errorf("skeleton: joint 0 %q is not a root", joints[0].Name)
	}
	byName := make(map[string]int, len(joints))
	for i, j := range joints {
		if _, dup := byName[j.Name]; dup {
			return nil, fmt.Errorf("skeleton: duplicate joint name %q", j.Name)
		}
		byName[j.Name] = i
		if i == 0 {
			continue
		}
		if j.Parent == NoParent {
			return nil, fmt.Errorf("skeleton: joint %q is a second root", j.Name)
		}
		if j.Parent < 0 || j.Parent >= i {
			return nil, fmt.Errorf("skeleton: joint %q has parent index %d out of order", j.Name, j.Parent)
		}
	}
	owned := make([]Joint, len(joints))
	copy(owned, joints)
	return &Skeleton{joints: owned, byName: byName}, nil
}

// Len returns the number of joints.
func (s *Skeleton) Len() int { return len(s.joints) }

// Joint returns the joint record at index i.
func (s *Skeleton) Joint(i int) *Joint { return &s.joints[i] }

// Index returns the arena index of the named joint.
func (s *Skeleton) Index(name string) (int, bool) {
	i, ok := s.byName[name]
	return i, ok
}

// ChannelCount returns the total channel count across all joints,
// which is the expected motion row width.
func (s *Skeleton) ChannelCount() int {
	n := 0
	for i := range s.joints {
		n += len(s.joints[i].Channels)
	}
	return n
}

// JointSample is one joint's streamed transform sample.
type JointSample struct {
	Position geom.Vec3
	Rotation geom.Quat
}

// Pose holds one streamed frame's samples aligned to a skeleton's
// joint indices. Joints without data keep identity samples.
type Pose struct {
	Samples   []JointSample
	Timestamp float64
}

// NewPose returns a pose sized for s with every sample at identity.
func NewPose(s *Skeleton) *Pose {
	p := &Pose{Samples: make([]JointSample, s.Len())}
	p.Reset()
	return p
}

// Reset restores every sample to the identity transform.
func (p *Pose) Reset() {
	for i := range p.Samples {
		p.Samples[i] = JointSample{Rotation: geom.QuatIdentity}
	}
	p.Timestamp = 0
}
