package skeleton

import "github.com/pnmocap/motion_computer/internal/geom"

// DrawOrder is the canonical full-body traversal order used for
// drawing and for the anatomical angle sweep. Fingers included.
var DrawOrder = []string{
	"Hips",
	"RightUpLeg", "RightLeg", "RightFoot",
	"LeftUpLeg", "LeftLeg", "LeftFoot",
	"Spine", "Spine1", "Spine2",
	"Neck", "Neck1", "Head",
	"RightShoulder", "RightArm", "RightForeArm", "RightHand",
	"RightHandThumb1", "RightHandThumb2", "RightHandThumb3",
	"RightInHandIndex", "RightHandIndex1", "RightHandIndex2", "RightHandIndex3",
	"RightInHandMiddle", "RightHandMiddle1", "RightHandMiddle2", "RightHandMiddle3",
	"RightInHandRing", "RightHandRing1", "RightHandRing2", "RightHandRing3",
	"RightInHandPinky", "RightHandPinky1", "RightHandPinky2", "RightHandPinky3",
	"LeftShoulder", "LeftArm", "LeftForeArm", "LeftHand",
	"LeftHandThumb1", "LeftHandThumb2", "LeftHandThumb3",
	"LeftInHandIndex", "LeftHandIndex1", "LeftHandIndex2", "LeftHandIndex3",
	"LeftInHandMiddle", "LeftHandMiddle1", "LeftHandMiddle2", "LeftHandMiddle3",
	"LeftInHandRing", "LeftHandRing1", "LeftHandRing2", "LeftHandRing3",
	"LeftInHandPinky", "LeftHandPinky1", "LeftHandPinky2", "LeftHandPinky3",
	"Spine3",
}

// ExportOrder is the 21-joint body hierarchy used for BVH export.
// Channel order follows this list: the root carries 6 channels, every
// other joint 3 rotation channels.
var ExportOrder = []string{
	"Hips",
	"RightUpLeg", "RightLeg", "RightFoot",
	"LeftUpLeg", "LeftLeg", "LeftFoot",
	"Spine", "Spine1", "Spine2",
	"Neck", "Neck1", "Head",
	"RightShoulder", "RightArm", "RightForeArm", "RightHand",
	"LeftShoulder", "LeftArm", "LeftForeArm", "LeftHand",
}

// ParentTable maps each exportable joint to its parent. The root maps
// to the empty string.
var ParentTable = map[string]string{
	"Hips":          "",
	"RightUpLeg":    "Hips",
	"RightLeg":      "RightUpLeg",
	"RightFoot":     "RightLeg",
	"LeftUpLeg":     "Hips",
	"LeftLeg":       "LeftUpLeg",
	"LeftFoot":      "LeftLeg",
	"Spine":         "Hips",
	"Spine1":        "Spine",
	"Spine2":        "Spine1",
	"Neck":          "Spine2",
	"Neck1":         "Neck",
	"Head":          "Neck1",
	"RightShoulder": "Spine2",
	"RightArm":      "RightShoulder",
	"RightForeArm":  "RightArm",
	"RightHand":     "RightForeArm",
	"LeftShoulder":  "Spine2",
	"LeftArm":       "LeftShoulder",
	"LeftForeArm":   "LeftArm",
	"LeftHand":      "LeftForeArm",
}

// DefaultOffsets holds the rest offsets of the default body, in cm.
var DefaultOffsets = map[string]geom.Vec3{
	"Hips":          {},
	"RightUpLeg":    {X: -8.5},
	"RightLeg":      {Y: -40},
	"RightFoot":     {Y: -40},
	"LeftUpLeg":     {X: 8.5},
	"LeftLeg":       {Y: -40},
	"LeftFoot":      {Y: -40},
	"Spine":         {Y: 10},
	"Spine1":        {Y: 10},
	"Spine2":        {Y: 10},
	"Neck":          {Y: 10},
	"Neck1":         {Y: 5},
	"Head":          {Y: 8},
	"RightShoulder": {X: -5, Y: 8},
	"RightArm":      {X: -12},
	"RightForeArm":  {X: -25},
	"RightHand":     {X: -25},
	"LeftShoulder":  {X: 5, Y: 8},
	"LeftArm":       {X: 12},
	"LeftForeArm":   {X: 25},
	"LeftHand":      {X: 25},
}

// EndSites holds the leaf tip offsets, in cm.
var EndSites = map[string]geom.Vec3{
	"RightFoot": {Y: -7.85, Z: 14.28},
	"LeftFoot":  {Y: -7.85, Z: 14.28},
	"Head":      {Y: 16.45},
	"RightHand": {X: -8},
	"LeftHand":  {X: 8},
}

// NewDefault builds the default 21-joint body skeleton used by the
// live capture path. Offsets, parents and end sites come from the
// canonical tables; channels mirror the export layout.
func NewDefault() *Skeleton {
	joints := make([]Joint, 0, len(ExportOrder))
	index := make(map[string]int, len(ExportOrder))
	channelOffset := 0
	for _, name := range ExportOrder {
		j := Joint{
			Name:          name,
			Parent:        NoParent,
			Offset:        DefaultOffsets[name],
			ChannelOffset: channelOffset,
		}
		if parent := ParentTable[name]; parent != "" {
			j.Parent = index[parent]
			j.Channels = []Channel{ZRotation, XRotation, YRotation}
		} else {
			j.Channels = []Channel{
				XPosition, YPosition, ZPosition,
				ZRotation, XRotation, YRotation,
			}
		}
		channelOffset += len(j.Channels)
		if end, ok := EndSites[name]; ok {
			e := end
			j.EndSite = &e
		}
		index[name] = len(joints)
		joints = append(joints, j)
	}
	for i := range joints {
		if p := joints[i].Parent; p != NoParent {
			joints[p].Children = append(joints[p].Children, i)
		}
	}
	s, err := New(joints)
	if err != nil {
		panic(err) // static tables, must not fail
	}
	return s
}
