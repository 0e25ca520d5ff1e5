package model_test

import (
	"testing"

	"github.com/apexsports/shotform/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestJointNames(t *testing.T) {
	Convey("Given the closed joint set", t, func() {
		Convey("Then every joint round-trips through its wire name", func() {
			for j := 0; j < model.JointCount; j++ {
				joint := model.Joint(j)
				parsed, err := model.ParseJoint(joint.String())
				So(err, ShouldBeNil)
				So(parsed, ShouldEqual, joint)
			}
		})

		Convey("Then known names parse to the expected joints", func() {
			j, err := model.ParseJoint("right_wrist")
			So(err, ShouldBeNil)
			So(j, ShouldEqual, model.RightWrist)

			j, err = model.ParseJoint("left_ankle")
			So(err, ShouldBeNil)
			So(j, ShouldEqual, model.LeftAnkle)
		})

		Convey("Then unknown names are a validation error", func() {
			_, err := model.ParseJoint("left_eyebrow")
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "unknown joint")
		})

		Convey("Then out-of-range joints stringify defensively", func() {
			So(model.Joint(99).String(), ShouldEqual, "joint(99)")
		})
	})
}

func TestParseHand(t *testing.T) {
	Convey("Given handedness config strings", t, func() {
		Convey("Then the empty string defaults to right-handed", func() {
			h, err := model.ParseHand("")
			So(err, ShouldBeNil)
			So(h, ShouldEqual, model.RightHanded)
		})

		Convey("Then explicit sides parse", func() {
			h, err := model.ParseHand("right")
			So(err, ShouldBeNil)
			So(h, ShouldEqual, model.RightHanded)

			h, err = model.ParseHand("left")
			So(err, ShouldBeNil)
			So(h, ShouldEqual, model.LeftHanded)
		})

		Convey("Then anything else is rejected", func() {
			_, err := model.ParseHand("ambidextrous")
			So(err, ShouldNotBeNil)
		})
	})
}

func TestFrameReliability(t *testing.T) {
	Convey("Given a frame with mixed confidences", t, func() {
		var f model.Frame
		for j := range f.Landmarks {
			f.Landmarks[j] = model.Landmark{X: 0.5, Y: 0.5, Confidence: 0.9}
		}
		f.Landmarks[model.LeftKnee].Confidence = 0.2

		Convey("Then reliability is a per-joint floor check", func() {
			So(f.Reliable(model.RightWrist, 0.5), ShouldBeTrue)
			So(f.Reliable(model.LeftKnee, 0.5), ShouldBeFalse)
			So(f.Reliable(model.LeftKnee, 0.1), ShouldBeTrue)
		})
	})
}

func TestCoverage(t *testing.T) {
	frame := func(conf float64) model.Frame {
		var f model.Frame
		for j := range f.Landmarks {
			f.Landmarks[j] = model.Landmark{Confidence: conf}
		}
		return f
	}

	Convey("Given frame sequences of varying quality", t, func() {
		Convey("Then full confidence gives full coverage", func() {
			frames := []model.Frame{frame(0.9), frame(0.9), frame(0.9), frame(0.9)}
			So(model.Coverage(frames, 0.5), ShouldEqual, 1.0)
		})

		Convey("Then occluded frames reduce coverage proportionally", func() {
			frames := []model.Frame{frame(0.9), frame(0.2), frame(0.9), frame(0.2)}
			So(model.Coverage(frames, 0.5), ShouldEqual, 0.5)
		})

		Convey("Then one unreliable core joint spoils a frame", func() {
			f := frame(0.9)
			f.Landmarks[model.LeftShoulder].Confidence = 0.1
			frames := []model.Frame{f, frame(0.9)}
			So(model.Coverage(frames, 0.5), ShouldEqual, 0.5)
		})

		Convey("Then non-core joints do not count against coverage", func() {
			f := frame(0.9)
			f.Landmarks[model.Nose].Confidence = 0.0
			f.Landmarks[model.LeftAnkle].Confidence = 0.0
			frames := []model.Frame{f}
			So(model.Coverage(frames, 0.5), ShouldEqual, 1.0)
		})

		Convey("Then an empty sequence has zero coverage", func() {
			So(model.Coverage(nil, 0.5), ShouldEqual, 0.0)
		})
	})
}
