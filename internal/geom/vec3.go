// Copyright (c) 2026 PN Mocap
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package geom

import "math"

// Vec3 is a 3D vector. Positions are centimeters unless noted otherwise.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

func (v Vec3) Add(o Vec3) Vec3 {
	return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z}
}

func (v Vec3) Sub(o Vec3) Vec3 {
	return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z}
}

func (v Vec3) Scale(s float64) Vec3 {
	return Vec3{v.X * s, v.Y * s, v.Z * s}
}

func (v Vec3) Dot(o Vec3) float64 {
	return v.X*o.X + v.Y*o.Y + v.Z*o.Z
}

func (v Vec3) Norm() float64 {
	return math.Sqrt(v.Dot(v))
}

// AngleBetween returns the angle between u and v in degrees. The second
// return value is false when either vector is too short to define a
// direction (norm <= 1e-6).
func AngleBetween(u, v Vec3) (float64, bool) {
	nu, nv := u.Norm(), v.Norm()
	if nu <= 1e-6 || nv <= 1e-6 {
		return 0, false
	}
	cos := u.Dot(v) / (nu * nv)
	if cos > 1 {
		cos = 1
	} else if cos < -1 {
		cos = -1
	}
	return math.Acos(cos) * 180 / math.Pi, true
}
