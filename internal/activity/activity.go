package activity

import (
	"errors"
	"fmt"
	"time"

	"github.com/briangreenhill/ridgeline/internal/effort"
	"github.com/briangreenhill/ridgeline/internal/geo"
)

var ErrInvalidStream = errors.New("invalid stream")

// Activity is the summary a provider hands over with each recording.
type Activity struct {
	ID                 int64     `json:"id"`
	Name               string    `json:"name"`
	Type               string    `json:"type"`
	StartDate          time.Time `json:"start_date"`
	Distance           float64   `json:"distance"`
	MovingTime         float64   `json:"moving_time"`
	ElapsedTime        float64   `json:"elapsed_time"`
	TotalElevationGain float64   `json:"total_elevation_gain"`
	Polyline           string    `json:"polyline,omitempty"`
}

// Stream holds the index-aligned samples of one activity. Time and
// Distance are offsets from the start. Time may be nil for untimed
// geometry; the optional arrays are either nil or full length. Unknown
// altitude samples are NaN.
type Stream struct {
	Time     []float64        `json:"time,omitempty"`
	Distance []float64        `json:"distance"`
	Altitude []float64        `json:"altitude,omitempty"`
	Moving   []bool           `json:"moving,omitempty"`
	LatLng   []geo.Coordinate `json:"latlng,omitempty"`
}

func (s *Stream) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Distance)
}

// Validate reports the first broken stream invariant.
func (s *Stream) Validate() error {
	n := s.Len()
	if n == 0 {
		return fmt.Errorf("%w: no samples", ErrInvalidStream)
	}

	lengths := []struct {
		name string
		n    int
	}{
		{"time", len(s.Time)},
		{"altitude", len(s.Altitude)},
		{"moving", len(s.Moving)},
		{"latlng", len(s.LatLng)},
	}
	for _, l := range lengths {
		if l.n != 0 && l.n != n {
			return fmt.Errorf("%w: %s has %d samples, distance has %d", ErrInvalidStream, l.name, l.n, n)
		}
	}

	if s.Distance[0] != 0 {
		return fmt.Errorf("%w: distance starts at %f", ErrInvalidStream, s.Distance[0])
	}
	if len(s.Time) > 0 && s.Time[0] != 0 {
		return fmt.Errorf("%w: time starts at %f", ErrInvalidStream, s.Time[0])
	}

	for i := 1; i < n; i++ {
		if s.Distance[i] < s.Distance[i-1] {
			return fmt.Errorf("%w: distance decreases at sample %d", ErrInvalidStream, i)
		}
		if len(s.Time) > 0 && s.Time[i] <= s.Time[i-1] {
			return fmt.Errorf("%w: time does not increase at sample %d", ErrInvalidStream, i)
		}
	}

	return nil
}

// Normalize shifts time and distance so both start at zero.
func (s *Stream) Normalize() {
	if s.Len() == 0 {
		return
	}
	if d0 := s.Distance[0]; d0 != 0 {
		for i := range s.Distance {
			s.Distance[i] -= d0
		}
	}
	if len(s.Time) > 0 {
		if t0 := s.Time[0]; t0 != 0 {
			for i := range s.Time {
				s.Time[i] -= t0
			}
		}
	}
}

// Input is one activity to analyze. Precision applies to the polyline
// and defaults to geo.DefaultPrecision.
type Input struct {
	Activity  Activity
	Stream    *Stream
	Precision float64
}

// Analysis is the outcome of analyzing one Input.
type Analysis struct {
	Activity        Activity                `json:"activity"`
	Ascent          float64                 `json:"ascent"`
	Descent         float64                 `json:"descent"`
	Efforts         []effort.ActivityEffort `json:"efforts"`
	Splits          []effort.Split          `json:"splits,omitempty"`
	UnknownAltitude int                     `json:"unknown_altitude"`
}

// Record is the summary Stats are folded from.
func (a Analysis) Record() effort.Record {
	gain := a.Ascent
	if gain == 0 {
		gain = a.Activity.TotalElevationGain
	}
	return effort.Record{
		ActivityID:    a.Activity.ID,
		Type:          a.Activity.Type,
		Start:         a.Activity.StartDate,
		Distance:      a.Activity.Distance,
		ElevationGain: gain,
	}
}
