// Package geometry derives named biomechanical metrics from landmark frames.
package geometry

// Metric names the per-frame scalars the calculator produces. Angles are in
// degrees; heights and distances are in body-scale units (fractions of the
// shoulder-to-hip distance) so values are comparable across subjects and
// camera distances; speeds are those units per second.
type Metric string

// The fixed metric set.
const (
	// ElbowAngle is the shoulder-elbow-wrist angle of the shooting arm.
	ElbowAngle Metric = "elbow_angle"
	// KneeBend is the flexion of the shooting-side knee, expressed as
	// 180 minus the hip-knee-ankle angle so a straight leg reads near zero.
	KneeBend Metric = "knee_bend"
	// WristHeight is the shooting wrist's height above the hip line.
	WristHeight Metric = "wrist_height"
	// WristRiseSpeed is the vertical velocity of the shooting wrist.
	WristRiseSpeed Metric = "wrist_rise_speed"
	// ElbowExtensionSpeed is the rate of change of ElbowAngle in deg/s.
	ElbowExtensionSpeed Metric = "elbow_extension_speed"
	// ElbowFlareOffset is the lateral offset of the shooting elbow from its
	// shoulder.
	ElbowFlareOffset Metric = "elbow_flare_offset"
	// ShoulderTilt is the shoulder line's deviation from horizontal.
	ShoulderTilt Metric = "shoulder_tilt"
	// GuideHandGap is the distance between guide wrist and shooting wrist.
	GuideHandGap Metric = "guide_hand_gap"
	// GuideHandDriftSpeed is the lateral speed of the guide wrist.
	GuideHandDriftSpeed Metric = "guide_hand_drift_speed"
	// ForearmTilt is the shooting forearm's deviation from vertical, a
	// proxy for premature wrist pronation.
	ForearmTilt Metric = "forearm_tilt"
	// HipDriftSpeed is the lateral speed of the hip midpoint, a
	// center-of-mass drift proxy.
	HipDriftSpeed Metric = "hip_drift_speed"
)

// Metrics returns the full metric set in a fixed order, used when building
// per-phase summaries.
func Metrics() []Metric {
	return []Metric{
		ElbowAngle,
		KneeBend,
		WristHeight,
		WristRiseSpeed,
		ElbowExtensionSpeed,
		ElbowFlareOffset,
		ShoulderTilt,
		GuideHandGap,
		GuideHandDriftSpeed,
		ForearmTilt,
		HipDriftSpeed,
	}
}

// Sample is a metric value for one frame. Defined is false when a required
// joint was unreliable; undefined samples are never interpolated over.
type Sample struct {
	Value   float64
	Defined bool
}

// Trace is the metric time series for one shot, indexed by frame.
type Trace struct {
	frames int
	rate   float64
	series map[Metric][]Sample
}

// Frames returns the number of frames in the trace.
func (t *Trace) Frames() int { return t.frames }

// Rate returns the sample rate in frames per second.
func (t *Trace) Rate() float64 { return t.rate }

// At returns the sample for a metric at a frame index. Out-of-range indices
// read as undefined.
func (t *Trace) At(m Metric, i int) Sample {
	s, ok := t.series[m]
	if !ok || i < 0 || i >= len(s) {
		return Sample{}
	}
	return s[i]
}

// Series returns the full per-frame slice for one metric.
func (t *Trace) Series(m Metric) []Sample {
	return t.series[m]
}
