// Copyright (c) 2026 PN Mocap
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package geom

import "math"

// Quat is a rotation quaternion in (w, x, y, z) order, the order the
// capture wire format uses.
type Quat struct {
	W float64 `json:"w"`
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// QuatIdentity is the no-rotation quaternion.
var QuatIdentity = Quat{W: 1}

// gimbalThreshold marks where the ZXY extraction loses the Y degree of
// freedom and the fallback branch takes over.
const gimbalThreshold = 0.99999

// Mat4 returns the homogeneous rotation transform of q.
func (q Quat) Mat4() Mat4 {
	w, x, y, z := q.W, q.X, q.Y, q.Z
	return Mat4{
		{1 - 2*(y*y+z*z), 2 * (x*y - z*w), 2 * (x*z + y*w), 0},
		{2 * (x*y + z*w), 1 - 2*(x*x+z*z), 2 * (y*z - x*w), 0},
		{2 * (x*z - y*w), 2 * (y*z + x*w), 1 - 2*(x*x+y*y), 0},
		{0, 0, 0, 1},
	}
}

// EulerZXY extracts intrinsic ZXY Euler angles from q, in degrees,
// returned in (Z, X, Y) order to match BVH rotation channel order.
// Near the gimbal singularity (|sin(x)| >= 0.99999) Y is forced to zero
// and Z absorbs the remaining rotation.
func (q Quat) EulerZXY() (zDeg, xDeg, yDeg float64) {
	w, x, y, z := q.W, q.X, q.Y, q.Z
	m00 := 1 - 2*y*y - 2*z*z
	m01 := 2*x*y - 2*z*w
	m10 := 2*x*y + 2*z*w
	m11 := 1 - 2*x*x - 2*z*z
	m20 := 2*x*z - 2*y*w
	m21 := 2*y*z + 2*x*w
	m22 := 1 - 2*x*x - 2*y*y

	var zRot, xRot, yRot float64
	if math.Abs(m21) < gimbalThreshold {
		xRot = math.Asin(-m21)
		zRot = math.Atan2(m01, m11)
		yRot = math.Atan2(m20, m22)
	} else {
		xRot = math.Copysign(math.Pi/2, -m21)
		zRot = math.Atan2(-m10, m00)
		yRot = 0
	}

	const radToDeg = 180 / math.Pi
	return zRot * radToDeg, xRot * radToDeg, yRot * radToDeg
}
