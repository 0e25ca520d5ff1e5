// Package synth generates deterministic landmark sequences for a jump shot.
//
// The ideal shot is a 60-frame right-handed motion built from piecewise
// keyframes in normalized image coordinates (y grows downward). Options
// inject specific technique flaws on top of the ideal skeleton, either by
// reshaping the trajectory or by perturbing joints in a frame range, so
// every catalog rule can be exercised with a known expected outcome.
package synth

import (
	"github.com/apexsports/shotform/internal/domain/model"
)

// FrameCount is the length of every generated shot.
const FrameCount = 60

// Keyframe boundaries of the ideal motion. The segmenter's dwell rules put
// the Rise boundary on the first frame the wrist actually moves, one past
// riseFrame.
const (
	loadFrame    = 10 // knees bend here
	riseFrame    = 20 // wrist starts rising on the next frame
	releaseFrame = 30 // wrist height peak
	followFrame  = 35 // release window ends, arm starts settling
	landingFrame = 45 // wrist still from the next frame on
)

// Skeleton anchors in normalized image coordinates.
const (
	leftShoulderX  = 0.44
	rightShoulderX = 0.56
	shoulderY      = 0.45
	leftHipX       = 0.46
	rightHipX      = 0.54
	hipY           = 0.65
	kneeY          = 0.80
	ankleY         = 0.95
	noseX          = 0.50
	noseY          = 0.35

	wristX      = 0.58
	guideWristX = 0.50
	setWristY   = 0.60 // wrist at the set point, just below the hip line

	defaultPeakWristY = 0.30
	lowPeakWristY     = 0.50
	followDropPerFrm  = 0.003
	noReleaseRisePerF = 0.01

	straightKneeDx = 0.0100 // ~8 degree knee bend, below the load trigger
	loadedKneeDx   = 0.0606 // ~44 degree knee bend
	shallowKneeDx  = 0.0237 // ~18 degree knee bend, loads but under threshold

	elbowFoldDx = 0.02 // folded elbow sits forward of the wrist
	elbowFoldDy = 0.10 // and below it
	elbowExtDx  = 0.005

	flareShiftX      = 0.08  // elbow flare perturbation
	snapShiftX       = 0.10  // early wrist snap perturbation
	guideDriftPerFrm = 0.01  // guide hand drift per release frame
	tiltShiftY       = 0.032 // ~15 degree shoulder tilt

	collapsedExtension = 0.3 // arm folds back in after the release

	defaultConfidence  = 0.9
	occludedConfidence = 0.2
)

// injection perturbs an already-built frame sequence.
type injection func(frames []model.Frame)

// Option applies a configuration option to the Generator.
type Option func(*Generator)

// WithElbowFlare pushes the shooting elbow outward through the release
// window, about 1.9x the flare threshold. The release anchor frame itself is
// left untouched so the perturbation cannot shift the segmentation.
func WithElbowFlare() Option {
	return func(g *Generator) {
		g.injections = append(g.injections, func(frames []model.Frame) {
			for i := releaseFrame + 1; i < followFrame; i++ {
				frames[i].Landmarks[model.RightElbow].X += flareShiftX
			}
		})
	}
}

// WithShallowKneeBend loads the legs to only ~18 degrees, deep enough to
// enter the Load phase but well under the knee-bend threshold.
func WithShallowKneeBend() Option {
	return func(g *Generator) {
		g.loadKneeDx = shallowKneeDx
	}
}

// WithGuideHandDrift slides the guide hand laterally through the release
// window at ~1.5 body units per second.
func WithGuideHandDrift() Option {
	return func(g *Generator) {
		g.injections = append(g.injections, func(frames []model.Frame) {
			for i := releaseFrame + 1; i < followFrame; i++ {
				frames[i].Landmarks[model.LeftWrist].X += guideDriftPerFrm * float64(i-releaseFrame)
			}
		})
	}
}

// WithEarlyWristSnap tips the forearm forward during the late rise, past
// the early-snap tilt threshold.
func WithEarlyWristSnap() Option {
	return func(g *Generator) {
		g.injections = append(g.injections, func(frames []model.Frame) {
			for i := riseFrame + 4; i < releaseFrame; i++ {
				frames[i].Landmarks[model.RightWrist].X += snapShiftX
			}
		})
	}
}

// WithShoulderTilt drops one shoulder ~15 degrees from the follow-through
// to the end of the shot.
func WithShoulderTilt() Option {
	return func(g *Generator) {
		g.injections = append(g.injections, func(frames []model.Frame) {
			for i := followFrame; i < FrameCount; i++ {
				frames[i].Landmarks[model.RightShoulder].Y += tiltShiftY
			}
		})
	}
}

// WithLowRelease drops the wrist to 0.75 body units above the hips through
// the release window, well under the release-height threshold. The anchor
// frame keeps the normal peak so the segmentation stays put.
func WithLowRelease() Option {
	return func(g *Generator) {
		g.injections = append(g.injections, func(frames []model.Frame) {
			for i := releaseFrame + 1; i < followFrame; i++ {
				frames[i].Landmarks[model.RightWrist].Y = lowPeakWristY
			}
		})
	}
}

// WithShortFollowThrough collapses the arm right after the release instead
// of holding the extension.
func WithShortFollowThrough() Option {
	return func(g *Generator) {
		g.followExtension = collapsedExtension
	}
}

// WithoutLoad keeps the knees straight for the whole shot, so the Load
// phase is never entered and segmentation degenerates.
func WithoutLoad() Option {
	return func(g *Generator) {
		g.loadKneeDx = straightKneeDx
	}
}

// WithoutRelease keeps the wrist rising to the last frame, so no height
// peak exists and segmentation degenerates.
func WithoutRelease() Option {
	return func(g *Generator) {
		g.noRelease = true
	}
}

// WithOcclusion drops every joint's confidence below any sane reliability
// floor on frames [start, end].
func WithOcclusion(start, end int) Option {
	return func(g *Generator) {
		g.injections = append(g.injections, func(frames []model.Frame) {
			for i := start; i <= end && i < len(frames); i++ {
				for j := range frames[i].Landmarks {
					frames[i].Landmarks[j].Confidence = occludedConfidence
				}
			}
		})
	}
}

// WithShoulderOcclusion hides only the shoulders from the follow-through
// on, leaving segmentation intact while the shoulder-tilt metric goes
// undefined.
func WithShoulderOcclusion() Option {
	return func(g *Generator) {
		g.injections = append(g.injections, func(frames []model.Frame) {
			for i := followFrame; i < len(frames); i++ {
				frames[i].Landmarks[model.LeftShoulder].Confidence = occludedConfidence
				frames[i].Landmarks[model.RightShoulder].Confidence = occludedConfidence
			}
		})
	}
}

// Generator builds synthetic shots. The same generator always produces the
// same frames.
type Generator struct {
	peakWristY      float64
	loadKneeDx      float64
	followExtension float64
	noRelease       bool
	injections      []injection
}

// NewGenerator creates a generator for the ideal shot, modified by options.
func NewGenerator(opts ...Option) *Generator {
	g := &Generator{
		peakWristY:      defaultPeakWristY,
		loadKneeDx:      loadedKneeDx,
		followExtension: 1,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Frames builds the landmark sequence.
func (g *Generator) Frames() []model.Frame {
	frames := make([]model.Frame, FrameCount)
	for i := range frames {
		frames[i].Index = i
		g.pose(i, &frames[i])
	}
	for _, inj := range g.injections {
		inj(frames)
	}
	return frames
}

// Submission wraps the frames as a queued unit of work.
func (g *Generator) Submission(shotID, sessionID string) model.ShotSubmission {
	return model.ShotSubmission{
		ShotID:    shotID,
		SessionID: sessionID,
		Frames:    g.Frames(),
	}
}

// pose fills one frame of the ideal skeleton.
func (g *Generator) pose(i int, f *model.Frame) {
	wy := g.wristY(i)
	gy := wy + 0.02
	kneeDx := g.kneeDx(i)
	e := g.extension(i)

	set := func(j model.Joint, x, y float64) {
		f.Landmarks[j] = model.Landmark{X: x, Y: y, Confidence: defaultConfidence}
	}

	set(model.Nose, noseX, noseY)
	set(model.LeftShoulder, leftShoulderX, shoulderY)
	set(model.RightShoulder, rightShoulderX, shoulderY)
	set(model.LeftHip, leftHipX, hipY)
	set(model.RightHip, rightHipX, hipY)
	set(model.LeftKnee, leftHipX-kneeDx, kneeY)
	set(model.RightKnee, rightHipX+kneeDx, kneeY)
	set(model.LeftAnkle, leftHipX, ankleY)
	set(model.RightAnkle, rightHipX, ankleY)

	set(model.RightWrist, wristX, wy)
	set(model.LeftWrist, guideWristX, gy)
	set(model.LeftElbow, guideWristX-elbowFoldDx, gy+elbowFoldDy)

	// The shooting elbow blends from a folded set-point position to a
	// near-collinear extended one as the arm straightens.
	foldX, foldY := wristX+elbowFoldDx, wy+elbowFoldDy
	extX := (rightShoulderX+wristX)/2 + elbowExtDx
	extY := (shoulderY + wy) / 2
	set(model.RightElbow, (1-e)*foldX+e*extX, (1-e)*foldY+e*extY)
}

// wristY is the shooting wrist's vertical trajectory.
func (g *Generator) wristY(i int) float64 {
	if g.noRelease {
		if i <= riseFrame {
			return setWristY
		}
		return setWristY - noReleaseRisePerF*float64(i-riseFrame)
	}
	switch {
	case i <= riseFrame:
		return setWristY
	case i <= releaseFrame:
		t := float64(i-riseFrame) / float64(releaseFrame-riseFrame)
		return setWristY + (g.peakWristY-setWristY)*t
	case i < followFrame:
		return g.peakWristY
	case i <= landingFrame:
		return g.peakWristY + followDropPerFrm*float64(i-(followFrame-1))
	default:
		return g.peakWristY + followDropPerFrm*float64(landingFrame-(followFrame-1))
	}
}

// kneeDx is the horizontal knee offset controlling the knee-bend angle.
func (g *Generator) kneeDx(i int) float64 {
	switch {
	case i < loadFrame:
		return straightKneeDx
	case i <= riseFrame:
		return g.loadKneeDx
	case i <= releaseFrame:
		t := float64(i-riseFrame) / float64(releaseFrame-riseFrame)
		return g.loadKneeDx + (straightKneeDx-g.loadKneeDx)*t
	default:
		return straightKneeDx
	}
}

// extension is the fold-to-extended blend of the shooting arm.
func (g *Generator) extension(i int) float64 {
	switch {
	case i <= riseFrame:
		return 0
	case i <= releaseFrame:
		return float64(i-riseFrame) / float64(releaseFrame-riseFrame)
	default:
		return g.followExtension
	}
}
