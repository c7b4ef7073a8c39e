// Package pose provides body landmark types and joint angle geometry.
package pose

import (
	"fmt"
	"sort"
)

// Joint identifies a body landmark. Values follow the MediaPipe pose convention.
// See: https://developers.google.com/mediapipe/solutions/vision/pose_landmarker
type Joint int

const (
	Nose          Joint = 0
	LeftShoulder  Joint = 11
	RightShoulder Joint = 12
	LeftElbow     Joint = 13
	RightElbow    Joint = 14
	LeftWrist     Joint = 15
	RightWrist    Joint = 16
	LeftHip       Joint = 23
	RightHip      Joint = 24
	LeftKnee      Joint = 25
	RightKnee     Joint = 26
	LeftAnkle     Joint = 27
	RightAnkle    Joint = 28
)

// NumLandmarks is the number of landmarks MediaPipe reports per pose.
const NumLandmarks = 33

var jointNames = map[Joint]string{
	Nose:          "nose",
	LeftShoulder:  "left_shoulder",
	RightShoulder: "right_shoulder",
	LeftElbow:     "left_elbow",
	RightElbow:    "right_elbow",
	LeftWrist:     "left_wrist",
	RightWrist:    "right_wrist",
	LeftHip:       "left_hip",
	RightHip:      "right_hip",
	LeftKnee:      "left_knee",
	RightKnee:     "right_knee",
	LeftAnkle:     "left_ankle",
	RightAnkle:    "right_ankle",
}

var jointsByName = func() map[string]Joint {
	m := make(map[string]Joint, len(jointNames))
	for j, name := range jointNames {
		m[name] = j
	}
	return m
}()

// Joints returns every named joint in index order.
func Joints() []Joint {
	joints := make([]Joint, 0, len(jointNames))
	for j := range jointNames {
		joints = append(joints, j)
	}
	sort.Slice(joints, func(i, k int) bool { return joints[i] < joints[k] })
	return joints
}

// ParseJoint returns the joint with the given snake_case name.
func ParseJoint(name string) (Joint, error) {
	j, ok := jointsByName[name]
	if !ok {
		return 0, fmt.Errorf("unknown joint %q", name)
	}
	return j, nil
}

// String returns the snake_case name of the joint.
func (j Joint) String() string {
	if name, ok := jointNames[j]; ok {
		return name
	}
	return fmt.Sprintf("landmark_%d", int(j))
}

// Valid reports whether j is one of the named joints.
func (j Joint) Valid() bool {
	_, ok := jointNames[j]
	return ok
}

// MarshalText encodes the joint by name so frames serialize as readable JSON objects.
func (j Joint) MarshalText() ([]byte, error) {
	if !j.Valid() {
		return nil, fmt.Errorf("unknown joint %d", int(j))
	}
	return []byte(j.String()), nil
}

// UnmarshalText decodes a joint from its snake_case name.
func (j *Joint) UnmarshalText(text []byte) error {
	parsed, err := ParseJoint(string(text))
	if err != nil {
		return err
	}
	*j = parsed
	return nil
}

// Landmark is a single detected body point in normalized image coordinates.
type Landmark struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Visibility float64 `json:"visibility"`
}

// Visible reports whether the detector is confident enough in the landmark to use it.
func (l Landmark) Visible() bool {
	return l.Visibility > VisibilityThreshold
}

// Frame holds the landmarks of one detected pose. Joints absent from the
// frame are treated as missing. A nil *Frame means no pose was detected.
type Frame struct {
	Landmarks map[Joint]Landmark `json:"landmarks"`
}

// NewFrame creates an empty frame.
func NewFrame() *Frame {
	return &Frame{Landmarks: make(map[Joint]Landmark)}
}

// Set stores the landmark for j and returns the frame for chaining.
func (f *Frame) Set(j Joint, l Landmark) *Frame {
	if f.Landmarks == nil {
		f.Landmarks = make(map[Joint]Landmark)
	}
	f.Landmarks[j] = l
	return f
}

// Remove deletes the landmark for j.
func (f *Frame) Remove(j Joint) {
	delete(f.Landmarks, j)
}

// Landmark returns the landmark for j and whether it is present.
func (f *Frame) Landmark(j Joint) (Landmark, bool) {
	if f == nil {
		return Landmark{}, false
	}
	l, ok := f.Landmarks[j]
	return l, ok
}

// Len returns the number of landmarks in the frame.
func (f *Frame) Len() int {
	if f == nil {
		return 0
	}
	return len(f.Landmarks)
}

// Clone returns a deep copy of the frame.
func (f *Frame) Clone() *Frame {
	if f == nil {
		return nil
	}
	c := &Frame{Landmarks: make(map[Joint]Landmark, len(f.Landmarks))}
	for j, l := range f.Landmarks {
		c.Landmarks[j] = l
	}
	return c
}
