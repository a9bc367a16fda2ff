// Copyright (c) 2026 PN Mocap
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package fk evaluates forward kinematics: world transforms for every
// joint of a skeleton, either from an offline motion row or from a
// streamed pose of position/quaternion samples.
package fk

import (
	"github.com/pnmocap/motion_computer/internal/geom"
	"github.com/pnmocap/motion_computer/internal/skeleton"
)

// Evaluate computes world transforms for one offline motion row into
// world, which must have length s.Len(). The root translates by its
// position channels (its rest offset is ignored), every other joint
// starts from parent x T(offset); declared rotation channels are then
// applied in declaration order. Channel values missing from a short
// row read as zero, so Evaluate is total over malformed rows.
func Evaluate(s *skeleton.Skeleton, row []float64, world []geom.Mat4) {
	evalJoint(s, row, world, 0)
}

// EvaluateAlloc is Evaluate with a freshly allocated result slice.
func EvaluateAlloc(s *skeleton.Skeleton, row []float64) []geom.Mat4 {
	world := make([]geom.Mat4, s.Len())
	Evaluate(s, row, world)
	return world
}

func evalJoint(s *skeleton.Skeleton, row []float64, world []geom.Mat4, idx int) {
	j := s.Joint(idx)

	var m geom.Mat4
	if j.Parent == skeleton.NoParent {
		pos := geom.Vec3{
			X: channelValue(j, row, skeleton.XPosition),
			Y: channelValue(j, row, skeleton.YPosition),
			Z: channelValue(j, row, skeleton.ZPosition),
		}
		m = geom.Translation(pos)
	} else {
		m = world[j.Parent].Mul(geom.Translation(j.Offset))
	}

	for i, ch := range j.Channels {
		if !ch.IsRotation() {
			continue
		}
		deg := rowValue(row, j.ChannelOffset+i)
		switch ch {
		case skeleton.XRotation:
			m = m.Mul(geom.RotationX(deg))
		case skeleton.YRotation:
			m = m.Mul(geom.RotationY(deg))
		case skeleton.ZRotation:
			m = m.Mul(geom.RotationZ(deg))
		}
	}
	world[idx] = m

	for _, child := range j.Children {
		evalJoint(s, row, world, child)
	}
}

// channelValue reads the named channel from the row, zero when the
// joint does not declare it.
func channelValue(j *skeleton.Joint, row []float64, want skeleton.Channel) float64 {
	for i, ch := range j.Channels {
		if ch == want {
			return rowValue(row, j.ChannelOffset+i)
		}
	}
	return 0
}

func rowValue(row []float64, idx int) float64 {
	if idx < 0 || idx >= len(row) {
		return 0
	}
	return row[idx]
}

// EvaluateStream computes world transforms for a streamed pose. The
// root is T(position) x R(quat); every other joint is
// parent x T(restOffset) x R(quat). Joints the stream did not cover
// carry identity samples and so collapse to the rest pose.
func EvaluateStream(s *skeleton.Skeleton, pose *skeleton.Pose, world []geom.Mat4) {
	for i := 0; i < s.Len(); i++ {
		j := s.Joint(i)
		sample := pose.Samples[i]
		rot := sample.Rotation.Mat4()
		if j.Parent == skeleton.NoParent {
			world[i] = geom.Translation(sample.Position).Mul(rot)
		} else {
			world[i] = world[j.Parent].Mul(geom.Translation(j.Offset)).Mul(rot)
		}
	}
}

// WorldPosition returns the world position of joint idx.
func WorldPosition(world []geom.Mat4, idx int) geom.Vec3 {
	return world[idx].Translation()
}

// EndSitePosition returns the world position of the joint's end site,
// false when the joint has none.
func EndSitePosition(s *skeleton.Skeleton, world []geom.Mat4, idx int) (geom.Vec3, bool) {
	j := s.Joint(idx)
	if j.EndSite == nil {
		return geom.Vec3{}, false
	}
	return world[idx].TransformPoint(*j.EndSite), true
}
