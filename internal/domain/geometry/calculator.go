package geometry

import (
	"math"

	"github.com/apexsports/shotform/internal/domain/model"
)

// Default calculator configuration constants.
const (
	defaultReliabilityFloor = 0.5
	defaultFrameRate        = 30.0
	radToDeg                = 180.0 / math.Pi
	minBodyScale            = 1e-6
)

// Option applies a configuration option to the Calculator.
type Option func(*Calculator)

// WithReliabilityFloor sets the confidence floor below which a joint is
// treated as unreliable for a frame.
func WithReliabilityFloor(floor float64) Option {
	return func(c *Calculator) {
		if floor >= 0 && floor <= 1 {
			c.floor = floor
		}
	}
}

// WithFrameRate sets the sample rate used by velocity metrics.
func WithFrameRate(fps float64) Option {
	return func(c *Calculator) {
		if fps > 0 {
			c.rate = fps
		}
	}
}

// WithHandedness selects the shooting side.
func WithHandedness(h model.Hand) Option {
	return func(c *Calculator) {
		c.hand = h
	}
}

// Calculator computes the metric trace for a shot. It is a pure function of
// the frames plus its static configuration and is safe for concurrent use.
type Calculator struct {
	floor float64
	rate  float64
	hand  model.Hand
}

// NewCalculator creates a calculator with configuration options.
func NewCalculator(opts ...Option) *Calculator {
	c := &Calculator{
		floor: defaultReliabilityFloor,
		rate:  defaultFrameRate,
		hand:  model.RightHanded,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// side resolves the shooting-side and guide-side joints.
func (c *Calculator) side() (shoulder, elbow, wrist, hip, knee, ankle, guideWrist model.Joint) {
	if c.hand == model.LeftHanded {
		return model.LeftShoulder, model.LeftElbow, model.LeftWrist,
			model.LeftHip, model.LeftKnee, model.LeftAnkle, model.RightWrist
	}
	return model.RightShoulder, model.RightElbow, model.RightWrist,
		model.RightHip, model.RightKnee, model.RightAnkle, model.LeftWrist
}

// Compute derives the full metric trace. Positional metrics come straight
// from each frame; velocity metrics difference consecutive frames and are
// undefined on frame 0 or whenever either endpoint is undefined.
func (c *Calculator) Compute(frames []model.Frame) *Trace {
	n := len(frames)
	t := &Trace{
		frames: n,
		rate:   c.rate,
		series: make(map[Metric][]Sample, len(Metrics())),
	}
	for _, m := range Metrics() {
		t.series[m] = make([]Sample, n)
	}

	shoulder, elbow, wrist, hip, knee, ankle, guideWrist := c.side()

	for i := range frames {
		f := &frames[i]

		scale, scaleOK := c.bodyScale(f)

		if c.reliable(f, shoulder, elbow, wrist) {
			t.series[ElbowAngle][i] = defined(angle(
				f.Landmarks[shoulder], f.Landmarks[elbow], f.Landmarks[wrist]))
		}
		if c.reliable(f, hip, knee, ankle) {
			t.series[KneeBend][i] = defined(180 - angle(
				f.Landmarks[hip], f.Landmarks[knee], f.Landmarks[ankle]))
		}
		if scaleOK && c.reliable(f, wrist, model.LeftHip, model.RightHip) {
			hipY := (f.Landmarks[model.LeftHip].Y + f.Landmarks[model.RightHip].Y) / 2
			// Image y grows downward, so height above the hips is hipY - wristY.
			t.series[WristHeight][i] = defined((hipY - f.Landmarks[wrist].Y) / scale)
		}
		if scaleOK && c.reliable(f, shoulder, elbow) {
			t.series[ElbowFlareOffset][i] = defined(
				math.Abs(f.Landmarks[elbow].X-f.Landmarks[shoulder].X) / scale)
		}
		if c.reliable(f, model.LeftShoulder, model.RightShoulder) {
			dx := f.Landmarks[model.RightShoulder].X - f.Landmarks[model.LeftShoulder].X
			dy := f.Landmarks[model.RightShoulder].Y - f.Landmarks[model.LeftShoulder].Y
			t.series[ShoulderTilt][i] = defined(math.Abs(math.Atan2(dy, math.Abs(dx))) * radToDeg)
		}
		if scaleOK && c.reliable(f, wrist, guideWrist) {
			dx := f.Landmarks[guideWrist].X - f.Landmarks[wrist].X
			dy := f.Landmarks[guideWrist].Y - f.Landmarks[wrist].Y
			t.series[GuideHandGap][i] = defined(math.Hypot(dx, dy) / scale)
		}
		if c.reliable(f, elbow, wrist) {
			dx := f.Landmarks[wrist].X - f.Landmarks[elbow].X
			dy := f.Landmarks[wrist].Y - f.Landmarks[elbow].Y
			// Deviation of the forearm from vertical.
			t.series[ForearmTilt][i] = defined(math.Abs(math.Atan2(dx, -dy)) * radToDeg)
		}
	}

	c.differentiate(t, frames, WristRiseSpeed, WristHeight)
	c.differentiate(t, frames, ElbowExtensionSpeed, ElbowAngle)
	c.lateralSpeed(t, frames, GuideHandDriftSpeed, guideWrist)
	c.hipDrift(t, frames)

	return t
}

// bodyScale returns the shoulder-midpoint to hip-midpoint distance, the
// unit for scale-invariant metrics. Undefined when any of those joints is
// unreliable or the subject collapses to a point.
func (c *Calculator) bodyScale(f *model.Frame) (float64, bool) {
	if !c.reliable(f, model.LeftShoulder, model.RightShoulder, model.LeftHip, model.RightHip) {
		return 0, false
	}
	sx := (f.Landmarks[model.LeftShoulder].X + f.Landmarks[model.RightShoulder].X) / 2
	sy := (f.Landmarks[model.LeftShoulder].Y + f.Landmarks[model.RightShoulder].Y) / 2
	hx := (f.Landmarks[model.LeftHip].X + f.Landmarks[model.RightHip].X) / 2
	hy := (f.Landmarks[model.LeftHip].Y + f.Landmarks[model.RightHip].Y) / 2
	scale := math.Hypot(sx-hx, sy-hy)
	if scale < minBodyScale {
		return 0, false
	}
	return scale, true
}

func (c *Calculator) reliable(f *model.Frame, joints ...model.Joint) bool {
	for _, j := range joints {
		if !f.Reliable(j, c.floor) {
			return false
		}
	}
	return true
}

// differentiate fills dst with the per-second delta of src. No
// interpolation: a gap in src leaves a gap in dst.
func (c *Calculator) differentiate(t *Trace, frames []model.Frame, dst, src Metric) {
	out := t.series[dst]
	in := t.series[src]
	for i := 1; i < len(frames); i++ {
		if in[i].Defined && in[i-1].Defined {
			out[i] = defined((in[i].Value - in[i-1].Value) * c.rate)
		}
	}
}

// lateralSpeed fills dst with the joint's horizontal speed in body units/s.
func (c *Calculator) lateralSpeed(t *Trace, frames []model.Frame, dst Metric, j model.Joint) {
	out := t.series[dst]
	for i := 1; i < len(frames); i++ {
		prev, cur := &frames[i-1], &frames[i]
		scale, ok := c.bodyScale(cur)
		if !ok || !c.reliable(prev, j) || !c.reliable(cur, j) {
			continue
		}
		dx := math.Abs(cur.Landmarks[j].X - prev.Landmarks[j].X)
		out[i] = defined(dx / scale * c.rate)
	}
}

// hipDrift fills HipDriftSpeed with the hip midpoint's lateral speed.
func (c *Calculator) hipDrift(t *Trace, frames []model.Frame) {
	out := t.series[HipDriftSpeed]
	for i := 1; i < len(frames); i++ {
		prev, cur := &frames[i-1], &frames[i]
		scale, ok := c.bodyScale(cur)
		if !ok || !c.reliable(prev, model.LeftHip, model.RightHip) ||
			!c.reliable(cur, model.LeftHip, model.RightHip) {
			continue
		}
		px := (prev.Landmarks[model.LeftHip].X + prev.Landmarks[model.RightHip].X) / 2
		cx := (cur.Landmarks[model.LeftHip].X + cur.Landmarks[model.RightHip].X) / 2
		out[i] = defined(math.Abs(cx-px) / scale * c.rate)
	}
}

// angle returns the angle at vertex b between segments b-a and b-c, in
// degrees within [0, 180].
func angle(a, b, c model.Landmark) float64 {
	v1x, v1y := a.X-b.X, a.Y-b.Y
	v2x, v2y := c.X-b.X, c.Y-b.Y
	n1 := math.Hypot(v1x, v1y)
	n2 := math.Hypot(v2x, v2y)
	if n1 < minBodyScale || n2 < minBodyScale {
		return 0
	}
	cos := (v1x*v2x + v1y*v2y) / (n1 * n2)
	cos = math.Max(-1, math.Min(1, cos))
	return math.Acos(cos) * radToDeg
}

func defined(v float64) Sample {
	return Sample{Value: v, Defined: true}
}
