package geom

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVec3Basics(t *testing.T) {
	a := Vec3{1, 2, 3}
	b := Vec3{4, -2, 1}

	assert.Equal(t, Vec3{5, 0, 4}, a.Add(b))
	assert.Equal(t, Vec3{-3, 4, 2}, a.Sub(b))
	assert.Equal(t, Vec3{2, 4, 6}, a.Scale(2))
	assert.InDelta(t, 3.0, a.Dot(b), 1e-12)
	assert.InDelta(t, math.Sqrt(14), a.Norm(), 1e-12)
}

func TestAngleBetween(t *testing.T) {
	deg, ok := AngleBetween(Vec3{1, 0, 0}, Vec3{0, 1, 0})
	require.True(t, ok)
	assert.InDelta(t, 90, deg, 1e-9)

	deg, ok = AngleBetween(Vec3{0, 1, 0}, Vec3{0, -1, 0})
	require.True(t, ok)
	assert.InDelta(t, 180, deg, 1e-9)

	// Collinear slightly-past-unit cosines must clamp, not NaN.
	deg, ok = AngleBetween(Vec3{1e3, 0, 0}, Vec3{1e-3, 0, 0})
	require.True(t, ok)
	assert.InDelta(t, 0, deg, 1e-9)

	_, ok = AngleBetween(Vec3{}, Vec3{1, 0, 0})
	assert.False(t, ok, "degenerate vector must be rejected")
}

func TestMat4Compose(t *testing.T) {
	m := Translation(Vec3{1, 2, 3}).Mul(RotationZ(90))
	p := m.TransformPoint(Vec3{1, 0, 0})

	assert.InDelta(t, 1, p.X, 1e-9)
	assert.InDelta(t, 3, p.Y, 1e-9)
	assert.InDelta(t, 3, p.Z, 1e-9)
	assert.Equal(t, Vec3{1, 2, 3}, m.Translation())
}

func TestRotationMatrices(t *testing.T) {
	px := RotationX(90).TransformPoint(Vec3{0, 1, 0})
	assert.InDelta(t, 0, px.Y, 1e-9)
	assert.InDelta(t, 1, px.Z, 1e-9)

	py := RotationY(90).TransformPoint(Vec3{0, 0, 1})
	assert.InDelta(t, 1, py.X, 1e-9)
	assert.InDelta(t, 0, py.Z, 1e-9)

	pz := RotationZ(90).TransformPoint(Vec3{1, 0, 0})
	assert.InDelta(t, 0, pz.X, 1e-9)
	assert.InDelta(t, 1, pz.Y, 1e-9)
}

func TestQuatMat4MatchesAxisRotations(t *testing.T) {
	s, c := math.Sincos(math.Pi / 4) // half-angle of 90 degrees
	cases := []struct {
		name string
		q    Quat
		want Mat4
	}{
		{"z90", Quat{W: c, Z: s}, RotationZ(90)},
		{"x90", Quat{W: c, X: s}, RotationX(90)},
		{"y90", Quat{W: c, Y: s}, RotationY(90)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := tc.q.Mat4()
			for i := 0; i < 4; i++ {
				for j := 0; j < 4; j++ {
					assert.InDelta(t, tc.want[i][j], got[i][j], 1e-9)
				}
			}
		})
	}
}

func TestEulerZXY(t *testing.T) {
	s, c := math.Sincos(math.Pi / 4)

	z, x, y := QuatIdentity.EulerZXY()
	assert.InDelta(t, 0, z, 1e-9)
	assert.InDelta(t, 0, x, 1e-9)
	assert.InDelta(t, 0, y, 1e-9)

	// The extraction is passive: a +90 degree active rotation about an
	// axis reads back as -90 on that channel.
	z, x, y = Quat{W: c, Z: s}.EulerZXY()
	assert.InDelta(t, -90, z, 1e-6)
	assert.InDelta(t, 0, x, 1e-6)
	assert.InDelta(t, 0, y, 1e-6)

	z, x, y = Quat{W: c, Y: s}.EulerZXY()
	assert.InDelta(t, 0, z, 1e-6)
	assert.InDelta(t, 0, x, 1e-6)
	assert.InDelta(t, -90, y, 1e-6)
}

func TestEulerZXYGimbal(t *testing.T) {
	s, c := math.Sincos(math.Pi / 4)

	// Pure 90 degree X rotation sits exactly on the singularity.
	z, x, y := Quat{W: c, X: s}.EulerZXY()
	assert.InDelta(t, -90, x, 1e-6)
	assert.InDelta(t, 0, y, 1e-9, "Y must be forced to zero at the singularity")
	assert.InDelta(t, 0, z, 1e-6)

	z, x, y = Quat{W: c, X: -s}.EulerZXY()
	assert.InDelta(t, 90, x, 1e-6)
	assert.InDelta(t, 0, y, 1e-9)
	assert.InDelta(t, 0, z, 1e-6)
}
