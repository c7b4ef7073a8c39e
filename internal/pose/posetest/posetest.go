// Package posetest builds synthetic pose frames with exact joint angles for tests,
// the mock detector and recorded fixtures.
package posetest

import (
	"math"

	"github.com/ayusman/formcheck/internal/pose"
)

// Visibility is the visibility given to every generated landmark.
const Visibility = 0.99

const (
	thigh   = 0.2
	shin    = 0.2
	torso   = 0.25
	upper   = 0.15
	forearm = 0.15
)

// ray returns the landmark length away from origin in direction deg, measured
// counter-clockwise from the +x axis with y growing downward as in image space.
func ray(origin pose.Landmark, deg, length float64) pose.Landmark {
	rad := deg * math.Pi / 180
	return pose.Landmark{
		X:          origin.X + length*math.Cos(rad),
		Y:          origin.Y - length*math.Sin(rad),
		Visibility: Visibility,
	}
}

func at(x, y float64) pose.Landmark {
	return pose.Landmark{X: x, Y: y, Visibility: Visibility}
}

// Body describes the left and right side joint angles of a synthetic pose.
type Body struct {
	LeftKnee   float64
	RightKnee  float64
	LeftTorso  float64
	RightTorso float64
	LeftElbow  float64
	RightElbow float64
}

// Frame builds the pose described by b.
func (b Body) Frame() *pose.Frame {
	f := pose.NewFrame()
	f.Set(pose.Nose, at(0.5, 0.08))

	// Each knee sits below its hip; the ankle swings away from the thigh by the knee angle.
	lKnee := at(0.45, 0.65)
	lHip := ray(lKnee, 90, thigh)
	f.Set(pose.LeftKnee, lKnee).
		Set(pose.LeftHip, lHip).
		Set(pose.LeftAnkle, ray(lKnee, 90+b.LeftKnee, shin))

	rKnee := at(0.55, 0.65)
	rHip := ray(rKnee, 90, thigh)
	f.Set(pose.RightKnee, rKnee).
		Set(pose.RightHip, rHip).
		Set(pose.RightAnkle, ray(rKnee, 90-b.RightKnee, shin))

	// The torso angle is measured at the hip between the shoulder and the knee.
	lShoulder := ray(lHip, 270-b.LeftTorso, torso)
	rShoulder := ray(rHip, 270+b.RightTorso, torso)
	f.Set(pose.LeftShoulder, lShoulder).Set(pose.RightShoulder, rShoulder)

	lElbow := ray(lShoulder, 270, upper)
	rElbow := ray(rShoulder, 270, upper)
	f.Set(pose.LeftElbow, lElbow).
		Set(pose.LeftWrist, ray(lElbow, 90+b.LeftElbow, forearm)).
		Set(pose.RightElbow, rElbow).
		Set(pose.RightWrist, ray(rElbow, 90-b.RightElbow, forearm))

	return f
}

// Standing returns an upright pose with straight legs and arms hanging.
func Standing() *pose.Frame {
	return Body{
		LeftKnee: 178, RightKnee: 178,
		LeftTorso: 178, RightTorso: 178,
		LeftElbow: 172, RightElbow: 172,
	}.Frame()
}

// Squat returns a pose with the given knee and torso angles on both sides.
func Squat(knee, torsoAngle float64) *pose.Frame {
	return Body{
		LeftKnee: knee, RightKnee: knee,
		LeftTorso: torsoAngle, RightTorso: torsoAngle,
		LeftElbow: 172, RightElbow: 172,
	}.Frame()
}

// Arm returns a standing pose with both elbows at the given angle.
func Arm(elbow float64) *pose.Frame {
	return Body{
		LeftKnee: 178, RightKnee: 178,
		LeftTorso: 178, RightTorso: 178,
		LeftElbow: elbow, RightElbow: elbow,
	}.Frame()
}

// Lunge returns a pose with the front (left) and back (right) knee angles.
func Lunge(front, back float64) *pose.Frame {
	return Body{
		LeftKnee: front, RightKnee: back,
		LeftTorso: 175, RightTorso: 175,
		LeftElbow: 172, RightElbow: 172,
	}.Frame()
}

// Hide lowers the visibility of the given joints below the usable threshold.
func Hide(f *pose.Frame, joints ...pose.Joint) *pose.Frame {
	for _, j := range joints {
		if l, ok := f.Landmark(j); ok {
			l.Visibility = 0.2
			f.Set(j, l)
		}
	}
	return f
}

// Drop removes the given joints from the frame.
func Drop(f *pose.Frame, joints ...pose.Joint) *pose.Frame {
	for _, j := range joints {
		f.Remove(j)
	}
	return f
}
