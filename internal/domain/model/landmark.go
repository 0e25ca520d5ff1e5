// Package model contains domain models passed between pipeline stages.
package model

import "fmt"

// Joint is a closed enumeration of the tracked body joints. The pose
// collaborator must supply a coordinate for every joint on every frame;
// reliability is expressed through the per-landmark confidence instead of
// missing entries.
type Joint int

// Tracked joints, in wire order.
const (
	Nose Joint = iota
	LeftShoulder
	RightShoulder
	LeftElbow
	RightElbow
	LeftWrist
	RightWrist
	LeftHip
	RightHip
	LeftKnee
	RightKnee
	LeftAnkle
	RightAnkle

	jointCount
)

// JointCount is the size of the closed joint set.
const JointCount = int(jointCount)

var jointNames = [...]string{
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

// String returns the wire name of the joint.
func (j Joint) String() string {
	if j < 0 || j >= jointCount {
		return fmt.Sprintf("joint(%d)", int(j))
	}
	return jointNames[j]
}

// ParseJoint maps a wire name to a Joint. Unknown names are a validation
// error, never silently dropped.
func ParseJoint(name string) (Joint, error) {
	for j, n := range jointNames {
		if n == name {
			return Joint(j), nil
		}
	}
	return 0, fmt.Errorf("unknown joint %q", name)
}

// Hand selects the shooting side for side-dependent metrics.
type Hand int

// Shooting-hand values.
const (
	RightHanded Hand = iota
	LeftHanded
)

// ParseHand maps a config string to a Hand.
func ParseHand(s string) (Hand, error) {
	switch s {
	case "", "right":
		return RightHanded, nil
	case "left":
		return LeftHanded, nil
	}
	return 0, fmt.Errorf("unknown handedness %q", s)
}

// Landmark is a single tracked joint position in normalized image
// coordinates (x right, y down) with a confidence in [0,1].
type Landmark struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Confidence float64 `json:"confidence"`
}

// Frame holds the landmarks observed at one sample instant. Index is
// monotonically increasing; the sample rate comes from configuration.
type Frame struct {
	Index     int
	Landmarks [JointCount]Landmark
}

// Reliable reports whether the joint's confidence clears the floor on this
// frame. Metrics reading an unreliable joint are undefined for the frame.
func (f *Frame) Reliable(j Joint, floor float64) bool {
	return f.Landmarks[j].Confidence >= floor
}

// coreJoints are the joints that must be trackable for analysis to make
// sense at all; coverage is measured against these.
var coreJoints = []Joint{
	LeftShoulder, RightShoulder,
	LeftElbow, RightElbow,
	LeftWrist, RightWrist,
	LeftHip, RightHip,
}

// Coverage returns the fraction of frames on which every core joint is
// reliable. The caller aborts analysis when this falls below the configured
// minimum.
func Coverage(frames []Frame, floor float64) float64 {
	if len(frames) == 0 {
		return 0
	}
	covered := 0
	for i := range frames {
		ok := true
		for _, j := range coreJoints {
			if !frames[i].Reliable(j, floor) {
				ok = false
				break
			}
		}
		if ok {
			covered++
		}
	}
	return float64(covered) / float64(len(frames))
}
