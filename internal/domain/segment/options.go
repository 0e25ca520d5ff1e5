package segment

// Default segmentation thresholds. Speeds are in body units per second,
// angles in degrees, dwells in frames.
const (
	defaultMinDwell       = 2
	defaultMaxDwell       = 90
	defaultReleaseWindow  = 5
	defaultStillnessDwell = 3
	defaultLoadKneeBend   = 15.0
	defaultRiseSpeed      = 0.5
	defaultStillness      = 0.3
)

// Option applies a configuration option to the Segmenter.
type Option func(*Segmenter)

// WithMinDwell sets the consecutive-frame dwell a transition predicate must
// hold before the machine changes state.
func WithMinDwell(frames int) Option {
	return func(s *Segmenter) {
		if frames > 0 {
			s.minDwell = frames
		}
	}
}

// WithMaxDwell sets the maximum frames a state may last before the
// remainder is declared Unclassified.
func WithMaxDwell(frames int) Option {
	return func(s *Segmenter) {
		if frames > 0 {
			s.maxDwell = frames
		}
	}
}

// WithReleaseWindow sets the fixed length of the Release interval.
func WithReleaseWindow(frames int) Option {
	return func(s *Segmenter) {
		if frames > 0 {
			s.releaseWindow = frames
		}
	}
}

// WithStillnessDwell sets the consecutive still frames ending FollowThrough.
func WithStillnessDwell(frames int) Option {
	return func(s *Segmenter) {
		if frames > 0 {
			s.stillnessDwell = frames
		}
	}
}

// WithLoadKneeBend sets the knee-bend threshold that opens the Load phase.
func WithLoadKneeBend(deg float64) Option {
	return func(s *Segmenter) {
		if deg > 0 {
			s.loadKneeBend = deg
		}
	}
}

// WithRiseSpeed sets the upward wrist speed that opens the Rise phase.
func WithRiseSpeed(speed float64) Option {
	return func(s *Segmenter) {
		if speed > 0 {
			s.riseSpeed = speed
		}
	}
}

// WithStillness sets the wrist-speed threshold under which the shot is
// considered settled.
func WithStillness(speed float64) Option {
	return func(s *Segmenter) {
		if speed > 0 {
			s.stillness = speed
		}
	}
}
