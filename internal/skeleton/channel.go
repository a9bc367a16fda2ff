package skeleton

// Channel is one animated degree of freedom on a joint, named by its
// BVH channel tag.
type Channel string

const (
	XPosition Channel = "Xposition"
	YPosition Channel = "Yposition"
	ZPosition Channel = "Zposition"
	XRotation Channel = "Xrotation"
	YRotation Channel = "Yrotation"
	ZRotation Channel = "Zrotation"
)

// IsRotation reports whether the channel is a rotation channel.
func (c Channel) IsRotation() bool {
	return c == XRotation || c == YRotation || c == ZRotation
}

// IsPosition reports whether the channel is a position channel.
func (c Channel) IsPosition() bool {
	return c == XPosition || c == YPosition || c == ZPosition
}

// Valid reports whether the channel tag is one of the six known tags.
func (c Channel) Valid() bool {
	return c.IsRotation() || c.IsPosition()
}
