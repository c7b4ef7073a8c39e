package pose

import (
	"fmt"
	"math"
)

// VisibilityThreshold is the minimum visibility a landmark needs to take part
// in an angle measurement. Landmarks at or below it make the angle indeterminate.
const VisibilityThreshold = 0.5

// Triple names the three landmarks of a joint angle; B is the vertex.
type Triple struct {
	A Joint `json:"a"`
	B Joint `json:"b"`
	C Joint `json:"c"`
}

// String returns the triple as "a-b-c".
func (t Triple) String() string {
	return fmt.Sprintf("%s-%s-%s", t.A, t.B, t.C)
}

// Joints returns the triple's joints in order.
func (t Triple) Joints() [3]Joint {
	return [3]Joint{t.A, t.B, t.C}
}

// Angle returns the angle in degrees at b formed by the segments b→a and b→c.
// The result is in [0, 180]. ok is false when any landmark is not visible or
// when either segment has zero length.
func Angle(a, b, c Landmark) (degrees float64, ok bool) {
	if !a.Visible() || !b.Visible() || !c.Visible() {
		return 0, false
	}

	bax, bay := a.X-b.X, a.Y-b.Y
	bcx, bcy := c.X-b.X, c.Y-b.Y

	magBA := math.Hypot(bax, bay)
	magBC := math.Hypot(bcx, bcy)
	if magBA == 0 || magBC == 0 {
		return 0, false
	}

	cos := (bax*bcx + bay*bcy) / (magBA * magBC)
	cos = math.Max(-1, math.Min(1, cos))

	degrees = math.Acos(cos) * 180 / math.Pi
	if math.IsNaN(degrees) || math.IsInf(degrees, 0) {
		return 0, false
	}
	return degrees, true
}

// Angle measures t on the frame. ok is false when a joint is missing or the
// angle is indeterminate.
func (f *Frame) Angle(t Triple) (degrees float64, ok bool) {
	a, okA := f.Landmark(t.A)
	b, okB := f.Landmark(t.B)
	c, okC := f.Landmark(t.C)
	if !okA || !okB || !okC {
		return 0, false
	}
	return Angle(a, b, c)
}
