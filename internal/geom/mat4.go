// Copyright (c) 2026 PN Mocap
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package geom

import "math"

// Mat4 is a 4x4 row-major homogeneous transform.
type Mat4 [4][4]float64

// Identity returns the identity transform.
func Identity() Mat4 {
	return Mat4{
		{1, 0, 0, 0},
		{0, 1, 0, 0},
		{0, 0, 1, 0},
		{0, 0, 0, 1},
	}
}

// Translation returns a pure translation transform.
func Translation(v Vec3) Mat4 {
	m := Identity()
	m[0][3] = v.X
	m[1][3] = v.Y
	m[2][3] = v.Z
	return m
}

// RotationX returns a rotation of deg degrees about the X axis.
func RotationX(deg float64) Mat4 {
	s, c := math.Sincos(deg * math.Pi / 180)
	m := Identity()
	m[1][1], m[1][2] = c, -s
	m[2][1], m[2][2] = s, c
	return m
}

// RotationY returns a rotation of deg degrees about the Y axis.
func RotationY(deg float64) Mat4 {
	s, c := math.Sincos(deg * math.Pi / 180)
	m := Identity()
	m[0][0], m[0][2] = c, s
	m[2][0], m[2][2] = -s, c
	return m
}

// RotationZ returns a rotation of deg degrees about the Z axis.
func RotationZ(deg float64) Mat4 {
	s, c := math.Sincos(deg * math.Pi / 180)
	m := Identity()
	m[0][0], m[0][1] = c, -s
	m[1][0], m[1][1] = s, c
	return m
}

// Mul returns m * o.
func (m Mat4) Mul(o Mat4) Mat4 {
	var r Mat4
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			var sum float64
			for k := 0; k < 4; k++ {
				sum += m[i][k] * o[k][j]
			}
			r[i][j] = sum
		}
	}
	return r
}

// Translation returns the transform's translation column.
func (m Mat4) Translation() Vec3 {
	return Vec3{m[0][3], m[1][3], m[2][3]}
}

// TransformPoint applies the transform to a point.
func (m Mat4) TransformPoint(v Vec3) Vec3 {
	return Vec3{
		m[0][0]*v.X + m[0][1]*v.Y + m[0][2]*v.Z + m[0][3],
		m[1][0]*v.X + m[1][1]*v.Y + m[1][2]*v.Z + m[1][3],
		m[2][0]*v.X + m[2][1]*v.Y + m[2][2]*v.Z + m[2][3],
	}
}
