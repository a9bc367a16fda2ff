// Copyright (c) 2026 PN Mocap
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package kinematics derives per-frame quantities from a parsed motion
// sequence: world joint positions, finite-difference velocities and
// accelerations, and anatomical joint angles.
package kinematics

import (
	"math"

	"github.com/pnmocap/motion_computer/internal/fk"
	"github.com/pnmocap/motion_computer/internal/geom"
	"github.com/pnmocap/motion_computer/internal/skeleton"
)

// Series is the full derived dataset for a motion sequence. The outer
// index is the frame, the inner index the skeleton joint index.
type Series struct {
	FrameTime     float64
	Positions     [][]geom.Vec3
	Velocities    [][]geom.Vec3
	Accelerations [][]geom.Vec3
	// Angles holds the anatomical angles of each frame, keyed
	// "parent_joint" in degrees.
	Angles []map[string]float64
}

// Compute evaluates forward kinematics for every frame and derives
// velocities, accelerations and anatomical angles.
//
// Derivatives use backward differences: V(i) = (P(i)-P(i-1))/dt and
// A(i) = (V(i)-V(i-1))/dt. Both are exactly zero for the first two
// frames, where no meaningful difference exists yet.
func Compute(s *skeleton.Skeleton, frames [][]float64, frameTime float64) *Series {
	n := len(frames)
	series := &Series{
		FrameTime:     frameTime,
		Positions:     make([][]geom.Vec3, n),
		Velocities:    make([][]geom.Vec3, n),
		Accelerations: make([][]geom.Vec3, n),
		Angles:        make([]map[string]float64, n),
	}

	world := make([]geom.Mat4, s.Len())
	for i, row := range frames {
		fk.Evaluate(s, row, world)
		positions := make([]geom.Vec3, s.Len())
		for j := range positions {
			positions[j] = world[j].Translation()
		}
		series.Positions[i] = positions
		series.Angles[i] = AnatomicalAngles(s, positions)
	}

	for i := 0; i < n; i++ {
		vel := make([]geom.Vec3, s.Len())
		acc := make([]geom.Vec3, s.Len())
		if i >= 2 && frameTime > 0 {
			prevVel := series.Velocities[i-1]
			for j := range vel {
				vel[j] = series.Positions[i][j].Sub(series.Positions[i-1][j]).Scale(1 / frameTime)
				acc[j] = vel[j].Sub(prevVel[j]).Scale(1 / frameTime)
			}
		}
		series.Velocities[i] = vel
		series.Accelerations[i] = acc
	}
	return series
}

// AnatomicalAngles computes the angle at each joint between the
// vectors toward its parent and toward each of its children, keyed
// "parent_joint". A joint with several children writes the same key
// repeatedly, so the last child in arena order wins. Two fixed triples
// are always attempted: back bend (Hips, Spine, Spine2) and head down
// (Spine2, Neck, Head). Angles are degrees rounded to 2 decimals;
// triples with missing joints or degenerate vectors are omitted.
func AnatomicalAngles(s *skeleton.Skeleton, positions []geom.Vec3) map[string]float64 {
	angles := make(map[string]float64)

	vertexAngle := func(parentName, jointName, childName string) (float64, bool) {
		pi, ok := s.Index(parentName)
		if !ok {
			return 0, false
		}
		ji, ok := s.Index(jointName)
		if !ok {
			return 0, false
		}
		ci, ok := s.Index(childName)
		if !ok {
			return 0, false
		}
		toParent := positions[pi].Sub(positions[ji])
		toChild := positions[ci].Sub(positions[ji])
		deg, ok := geom.AngleBetween(toParent, toChild)
		if !ok {
			return 0, false
		}
		return math.Round(deg*100) / 100, true
	}

	for _, name := range skeleton.DrawOrder {
		idx, ok := s.Index(name)
		if !ok {
			continue
		}
		j := s.Joint(idx)
		if j.Parent == skeleton.NoParent {
			continue
		}
		parentName := s.Joint(j.Parent).Name
		for _, child := range j.Children {
			key := parentName + "_" + name
			if deg, ok := vertexAngle(parentName, name, s.Joint(child).Name); ok {
				angles[key] = deg
			}
		}
	}

	if deg, ok := vertexAngle("Hips", "Spine", "Spine2"); ok {
		angles["Hips_Spine"] = deg
	}
	if deg, ok := vertexAngle("Spine2", "Neck", "Head"); ok {
		angles["Spine2_Neck"] = deg
	}
	return angles
}
