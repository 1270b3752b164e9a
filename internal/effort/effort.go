// Package effort turns cleaned activity streams into ascent and descent
// totals, best efforts, best climbs and per-distance splits.
package effort

import (
	"math"
	"sort"

	"github.com/google/uuid"
)

// Kind tells a best distance effort from a best climb.
type Kind string

const (
	KindDistance Kind = "best_distance"
	KindClimb    Kind = "best_climb"
)

// Standard effort distances in meters.
const (
	Distance400m     = 400
	Distance1K       = 1000
	Distance1Mile    = 1609.344
	Distance5K       = 5000
	Distance10K      = 10000
	DistanceHalfMara = 21097.5
	DistanceMarathon = 42195
)

// ActivityEffort is one computed record, immutable once built.
type ActivityEffort struct {
	ID            string  `json:"id"`
	ActivityID    int64   `json:"activity_id"`
	Kind          Kind    `json:"kind"`
	Target        float64 `json:"target,omitempty"`
	Distance      float64 `json:"distance"`
	Seconds       float64 `json:"seconds"`
	AltitudeDelta float64 `json:"altitude_delta"`
	StartIndex    int     `json:"start_index"`
	EndIndex      int     `json:"end_index"`
}

// Speed is the average speed in m/s.
func (e ActivityEffort) Speed() float64 {
	if e.Seconds <= 0 {
		return 0
	}
	return e.Distance / e.Seconds
}

// Gradient is altitude change over distance covered.
func (e ActivityEffort) Gradient() float64 {
	if e.Distance <= 0 {
		return 0
	}
	return e.AltitudeDelta / e.Distance
}

// Options tunes a Scanner.
type Options struct {
	// Targets are the best-effort distances in meters.
	Targets []float64
	// ExcludePaused measures efforts on moving time instead of elapsed
	// time when the stream carries a moving flag.
	ExcludePaused bool
	// SplitEvery is the split length in meters; zero disables splits.
	SplitEvery float64
}

func DefaultOptions() Options {
	return Options{
		Targets: []float64{
			Distance400m,
			Distance1K,
			Distance1Mile,
			Distance5K,
			Distance10K,
			DistanceHalfMara,
			DistanceMarathon,
		},
		ExcludePaused: false,
		SplitEvery:    1000,
	}
}

// Track is the cleaned, index-aligned input of a scan. Time may be nil for
// geometry-only tracks, in which case only altitude metrics are produced.
type Track struct {
	Time     []float64
	Distance []float64
	Altitude []float64
	Moving   []bool
}

// Result is everything a scan derives from one track.
type Result struct {
	Ascent  float64          `json:"ascent"`
	Descent float64          `json:"descent"`
	Efforts []ActivityEffort `json:"efforts"`
	Splits  []Split          `json:"splits,omitempty"`
}

type Scanner struct {
	opts Options
}

func NewScanner(opts Options) *Scanner {
	targets := append([]float64(nil), opts.Targets...)
	sort.Float64s(targets)
	opts.Targets = targets
	return &Scanner{opts: opts}
}

// Scan runs every scan over track. Best distance efforts come first in
// ascending target order, the best climb last.
func (s *Scanner) Scan(activityID int64, track Track) Result {
	result := Result{
		Ascent:  Ascent(track.Altitude),
		Descent: Descent(track.Altitude),
	}

	if len(track.Time) > 0 {
		clock := track.Time
		if s.opts.ExcludePaused && len(track.Moving) == len(track.Time) {
			clock = MovingTime(track.Time, track.Moving)
		}

		for _, target := range s.opts.Targets {
			w, ok := BestEffort(track.Distance, clock, target)
			if !ok {
				continue
			}
			w.Altitude = altitudeDelta(track.Altitude, w.Start, w.End)
			e := newEffort(activityID, KindDistance, w)
			e.Target = target
			result.Efforts = append(result.Efforts, e)
		}

		result.Splits = Splits(track.Distance, clock, track.Altitude, s.opts.SplitEvery)
	}

	if w, ok := BestClimb(track.Distance, track.Altitude); ok {
		if len(track.Time) > w.End {
			w.Seconds = track.Time[w.End] - track.Time[w.Start]
		}
		result.Efforts = append(result.Efforts, newEffort(activityID, KindClimb, w))
	}

	return result
}

func newEffort(activityID int64, kind Kind, w Window) ActivityEffort {
	return ActivityEffort{
		ID:            uuid.NewString(),
		ActivityID:    activityID,
		Kind:          kind,
		Distance:      w.Distance,
		Seconds:       w.Seconds,
		AltitudeDelta: w.Altitude,
		StartIndex:    w.Start,
		EndIndex:      w.End,
	}
}

func altitudeDelta(altitude []float64, start, end int) float64 {
	if end >= len(altitude) || math.IsNaN(altitude[start]) || math.IsNaN(altitude[end]) {
		return 0
	}
	return altitude[end] - altitude[start]
}
