// Copyright (c) 2026 PN Mocap
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package bvh

import (
	"fmt"
	"io"
	"strings"

	"github.com/pnmocap/motion_computer/internal/geom"
	"github.com/pnmocap/motion_computer/internal/skeleton"
)

// Export writes a complete BVH document for the given recorded frames.
// Each frame maps joint names to their sampled transform; order lists
// the joints to export (root first). Rotations are written as ZXY
// Euler angles regardless of how the source expressed them, so a
// round trip through Export is lossy in channel layout but not in the
// rotation itself.
func Export(w io.Writer, frames []map[string]skeleton.JointSample, frameTime float64, order []string) error {
	if len(frames) == 0 {
		return fmt.Errorf("bvh: no frames to export")
	}
	if len(order) == 0 || order[0] != "Hips" {
		return fmt.Errorf("bvh: export order must start with the root joint")
	}

	var b strings.Builder
	writeHierarchy(&b, order)
	b.WriteString("MOTION\n")
	fmt.Fprintf(&b, "Frames: %d\n", len(frames))
	fmt.Fprintf(&b, "Frame Time: %.6f\n", frameTime)
	if _, err := io.WriteString(w, b.String()); err != nil {
		return fmt.Errorf("bvh: write header: %w", err)
	}

	for _, frame := range frames {
		if _, err := io.WriteString(w, FrameLine(frame, order)+"\n"); err != nil {
			return fmt.Errorf("bvh: write frame: %w", err)
		}
	}
	return nil
}

// writeHierarchy emits the HIERARCHY block in canonical form: the root
// with 6 channels, every other joint with 3 ZXY rotation channels, and
// End Site blocks on childless joints with known tip offsets.
func writeHierarchy(b *strings.Builder, order []string) {
	b.WriteString("HIERARCHY\n")
	writeJoint(b, order, "Hips", 0, true)
}

func writeJoint(b *strings.Builder, order []string, name string, indent int, isRoot bool) {
	prefix := strings.Repeat("    ", indent)
	offset := skeleton.DefaultOffsets[name]

	if isRoot {
		fmt.Fprintf(b, "%sROOT %s\n", prefix, name)
	} else {
		fmt.Fprintf(b, "%sJOINT %s\n", prefix, name)
	}
	fmt.Fprintf(b, "%s{\n", prefix)
	fmt.Fprintf(b, "%s    OFFSET %.2f %.2f %.2f\n", prefix, offset.X, offset.Y, offset.Z)
	if isRoot {
		fmt.Fprintf(b, "%s    CHANNELS 6 Xposition Yposition Zposition Zrotation Xrotation Yrotation\n", prefix)
	} else {
		fmt.Fprintf(b, "%s    CHANNELS 3 Zrotation Xrotation Yrotation\n", prefix)
	}

	var children []string
	for _, j := range order {
		if skeleton.ParentTable[j] == name {
			children = append(children, j)
		}
	}
	for _, child := range children {
		writeJoint(b, order, child, indent+1, false)
	}
	if len(children) == 0 {
		if end, ok := skeleton.EndSites[name]; ok {
			fmt.Fprintf(b, "%s    End Site\n", prefix)
			fmt.Fprintf(b, "%s    {\n", prefix)
			fmt.Fprintf(b, "%s        OFFSET %.2f %.2f %.2f\n", prefix, end.X, end.Y, end.Z)
			fmt.Fprintf(b, "%s    }\n", prefix)
		}
	}
	fmt.Fprintf(b, "%s}\n", prefix)
}

// FrameLine renders one motion row: root position then per-joint ZXY
// Euler angles, space separated with 6 decimals. Joints missing from
// the frame contribute identity samples.
func FrameLine(frame map[string]skeleton.JointSample, order []string) string {
	values := make([]float64, 0, 3+3*len(order))
	for _, name := range order {
		sample, ok := frame[name]
		if !ok {
			sample = skeleton.JointSample{Rotation: geom.QuatIdentity}
		}
		if name == "Hips" {
			values = append(values, sample.Position.X, sample.Position.Y, sample.Position.Z)
		}
		z, x, y := sample.Rotation.EulerZXY()
		values = append(values, z, x, y)
	}

	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprintf("%.6f", v)
	}
	return strings.Join(parts, " ")
}
