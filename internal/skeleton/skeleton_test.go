package skeleton

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pnmocap/motion_computer/internal/geom"
)

func TestNewValidation(t *testing.T) {
	_, err := New(nil)
	assert.Error(t, err, "empty skeleton")

	_, err = New([]Joint{{Name: "A", Parent: 0}})
	assert.Error(t, err, "first joint must be the root")

	_, err = New([]Joint{
		{Name: "A", Parent: NoParent},
		{Name: "A", Parent: 0},
	})
	assert.Error(t, err, "duplicate names")

	_, err = New([]Joint{
		{Name: "A", Parent: NoParent},
		{Name: "B", Parent: NoParent},
	})
	assert.Error(t, err, "second root")

	_, err = New([]Joint{
		{Name: "A", Parent: NoParent},
		{Name: "B", Parent: 2},
	})
	assert.Error(t, err, "parent must precede child")
}

func TestSkeletonLookups(t *testing.T) {
	s, err := New([]Joint{
		{Name: "A", Parent: NoParent, Channels: []Channel{XPosition, YPosition, ZPosition}},
		{Name: "B", Parent: 0, Channels: []Channel{ZRotation, XRotation, YRotation}, ChannelOffset: 3},
	})
	require.NoError(t, err)

	assert.Equal(t, 2, s.Len())
	assert.Equal(t, 6, s.ChannelCount())

	i, ok := s.Index("B")
	require.True(t, ok)
	assert.Equal(t, "B", s.Joint(i).Name)

	_, ok = s.Index("missing")
	assert.False(t, ok)
}

func TestChannelPredicates(t *testing.T) {
	assert.True(t, XRotation.IsRotation())
	assert.False(t, XRotation.IsPosition())
	assert.True(t, ZPosition.IsPosition())
	assert.True(t, YPosition.Valid())
	assert.False(t, Channel("Wrotation").Valid())
}

func TestNewDefault(t *testing.T) {
	s := NewDefault()

	require.Equal(t, len(ExportOrder), s.Len())
	root := s.Joint(0)
	assert.Equal(t, "Hips", root.Name)
	assert.Equal(t, NoParent, root.Parent)
	assert.Len(t, root.Channels, 6)

	// Root has 6 channels, everything else 3 ZXY rotations.
	assert.Equal(t, 6+3*(len(ExportOrder)-1), s.ChannelCount())

	for _, name := range ExportOrder {
		i, ok := s.Index(name)
		require.True(t, ok, name)
		j := s.Joint(i)

		wantParent := ParentTable[name]
		if wantParent == "" {
			assert.Equal(t, NoParent, j.Parent, name)
		} else {
			assert.Equal(t, wantParent, s.Joint(j.Parent).Name, name)
		}
		assert.Equal(t, DefaultOffsets[name], j.Offset, name)

		if end, ok := EndSites[name]; ok {
			require.NotNil(t, j.EndSite, name)
			assert.Equal(t, end, *j.EndSite, name)
			assert.Empty(t, j.Children, "end sites only on leaves: %s", name)
		}
	}

	// Channel offsets tile the motion row without gaps.
	offset := 0
	for i := 0; i < s.Len(); i++ {
		assert.Equal(t, offset, s.Joint(i).ChannelOffset, s.Joint(i).Name)
		offset += len(s.Joint(i).Channels)
	}
}

func TestPoseReset(t *testing.T) {
	s := NewDefault()
	p := NewPose(s)
	require.Len(t, p.Samples, s.Len())

	p.Samples[3] = JointSample{
		Position: geom.Vec3{X: 1},
		Rotation: geom.Quat{W: 0.5, X: 0.5},
	}
	p.Timestamp = 42

	p.Reset()
	assert.Equal(t, JointSample{Rotation: geom.QuatIdentity}, p.Samples[3])
	assert.Zero(t, p.Timestamp)
}
