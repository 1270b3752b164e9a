package activity

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/briangreenhill/ridgeline/internal/dem"
	"github.com/briangreenhill/ridgeline/internal/effort"
	"github.com/briangreenhill/ridgeline/internal/geo"
)

type elevationFunc func(geo.Coordinate) (float64, error)

func (f elevationFunc) Elevation(c geo.Coordinate) (float64, error) { return f(c) }

// latitudeHeight puts every point 100 m higher per 0.001° north.
var latitudeHeight = elevationFunc(func(c geo.Coordinate) (float64, error) {
	return math.Round(c.Lat * 1e5), nil
})

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestAnalyzer(elevation ElevationSource) *Analyzer {
	return NewAnalyzer(effort.NewScanner(effort.DefaultOptions()), elevation, 4, discardLogger())
}

func northbound(id int64) Input {
	s := &Stream{
		Time:     []float64{0, 10, 20, 30, 40},
		Distance: []float64{0, 100, 200, 300, 400},
	}
	for i := range s.Distance {
		s.LatLng = append(s.LatLng, geo.Coordinate{Lat: float64(i) * 0.001, Lng: 0})
	}
	return Input{Activity: Activity{ID: id, Type: "Run"}, Stream: s}
}

func TestAnalyzeResolvesAltitude(t *testing.T) {
	a, err := newTestAnalyzer(latitudeHeight).Analyze(context.Background(), northbound(1))
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if a.Ascent != 400 || a.Descent != 0 {
		t.Errorf("Expected 400 m ascent and no descent, got %v and %v", a.Ascent, a.Descent)
	}
	if a.UnknownAltitude != 0 {
		t.Errorf("Expected every sample resolved, got %d unknown", a.UnknownAltitude)
	}
	if a.Activity.Distance != 400 || a.Activity.ElapsedTime != 40 {
		t.Errorf("Expected distance and time filled from the stream, got %+v", a.Activity)
	}

	var found bool
	for _, e := range a.Efforts {
		if e.Kind == effort.KindDistance && e.Target == effort.Distance400m {
			found = true
			if e.Seconds != 40 {
				t.Errorf("Expected the 400m effort to take 40s, got %v", e.Seconds)
			}
		}
	}
	if !found {
		t.Errorf("Expected a 400m effort in %+v", a.Efforts)
	}

	last := a.Efforts[len(a.Efforts)-1]
	if last.Kind != effort.KindClimb || last.AltitudeDelta != 400 {
		t.Errorf("Expected the whole track as best climb, got %+v", last)
	}
}

func TestAnalyzeIsolatesFailedLookups(t *testing.T) {
	flaky := elevationFunc(func(c geo.Coordinate) (float64, error) {
		if c.Lat == 0.002 {
			return 0, dem.ErrNoData
		}
		return latitudeHeight(c)
	})

	a, err := newTestAnalyzer(flaky).Analyze(context.Background(), northbound(1))
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if a.UnknownAltitude != 1 {
		t.Errorf("Expected 1 unknown sample, got %d", a.UnknownAltitude)
	}
	// the gap is bridged from 100 m to 300 m
	if a.Ascent != 400 || a.Descent != 0 {
		t.Errorf("Expected 400 m ascent and no descent, got %v and %v", a.Ascent, a.Descent)
	}
}

func TestAnalyzeKeepsRecordedAltitude(t *testing.T) {
	in := northbound(1)
	in.Stream.Altitude = []float64{10, 10, math.NaN(), 10, 10}

	var calls atomic.Int32
	counting := elevationFunc(func(c geo.Coordinate) (float64, error) {
		calls.Add(1)
		return 10, nil
	})

	a, err := newTestAnalyzer(counting).Analyze(context.Background(), in)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("Expected only the missing sample to be looked up, got %d lookups", calls.Load())
	}
	if a.Ascent != 0 || a.UnknownAltitude != 0 {
		t.Errorf("Expected a flat resolved track, got %+v", a)
	}
}

func TestAnalyzePolylineOnly(t *testing.T) {
	in := Input{Activity: Activity{ID: 3, Type: "Ride", Polyline: "_p~iF~ps|U_ulLnnqC_mqNvxq`@"}}

	a, err := newTestAnalyzer(nil).Analyze(context.Background(), in)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	want := geo.Haversine(geo.Coordinate{Lat: 38.5, Lng: -120.2}, geo.Coordinate{Lat: 40.7, Lng: -120.95}) +
		geo.Haversine(geo.Coordinate{Lat: 40.7, Lng: -120.95}, geo.Coordinate{Lat: 43.252, Lng: -126.453})
	if math.Abs(a.Activity.Distance-want) > 1 {
		t.Errorf("Expected distance %v, got %v", want, a.Activity.Distance)
	}
	if len(a.Efforts) != 0 {
		t.Errorf("Expected no efforts from untimed geometry without altitude, got %+v", a.Efforts)
	}
}

func TestAnalyzeAlignsPolylineToStream(t *testing.T) {
	in := Input{
		Activity: Activity{ID: 4, Type: "Run", Polyline: "_p~iF~ps|U_ulLnnqC"},
		Stream: &Stream{
			Time:     []float64{0, 1, 2},
			Distance: []float64{0, 50, 100},
		},
	}

	var seen []geo.Coordinate
	recording := elevationFunc(func(c geo.Coordinate) (float64, error) {
		seen = append(seen, c)
		return 0, nil
	})

	if _, err := NewAnalyzer(effort.NewScanner(effort.DefaultOptions()), recording, 1, discardLogger()).Analyze(context.Background(), in); err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if len(seen) != 3 {
		t.Fatalf("Expected 3 lookups, got %d", len(seen))
	}
	if !geo.NearlyEqual(seen[0], geo.Coordinate{Lat: 38.5, Lng: -120.2}, 1e-9) ||
		!geo.NearlyEqual(seen[2], geo.Coordinate{Lat: 40.7, Lng: -120.95}, 1e-9) {
		t.Errorf("Expected the ends of the route, got %v", seen)
	}
	if seen[1].Lat <= 38.5 || seen[1].Lat >= 40.7 {
		t.Errorf("Expected the midpoint between the ends, got %v", seen[1])
	}
}

func TestAnalyzeSkipsBadPolyline(t *testing.T) {
	in := northbound(5)
	in.Stream.LatLng = nil
	in.Stream.Altitude = []float64{0, 1, 2, 3, 4}
	in.Activity.Polyline = "_p~iF~ps|"

	a, err := newTestAnalyzer(latitudeHeight).Analyze(context.Background(), in)
	if err != nil {
		t.Fatalf("Expected the stream to be analyzed without geometry, got %v", err)
	}
	if a.Ascent != 4 {
		t.Errorf("Expected recorded altitude to be used, got ascent %v", a.Ascent)
	}
}

func TestAnalyzeInvalidStream(t *testing.T) {
	in := northbound(6)
	in.Stream.Time = []float64{0, 10, 10, 30, 40}

	if _, err := newTestAnalyzer(nil).Analyze(context.Background(), in); !errors.Is(err, ErrInvalidStream) {
		t.Errorf("Expected ErrInvalidStream, got %v", err)
	}
	if _, err := newTestAnalyzer(nil).Analyze(context.Background(), Input{}); !errors.Is(err, ErrInvalidStream) {
		t.Errorf("Expected ErrInvalidStream for an empty input, got %v", err)
	}
}

func TestAnalyzeAll(t *testing.T) {
	broken := northbound(2)
	broken.Stream.Distance = []float64{0, 100, 50, 300, 400}

	exploding := northbound(3)
	for i := range exploding.Stream.LatLng {
		exploding.Stream.LatLng[i].Lat += 60
	}

	panicky := elevationFunc(func(c geo.Coordinate) (float64, error) {
		if c.Lat > 50 {
			panic("corrupt tile")
		}
		return latitudeHeight(c)
	})

	inputs := []Input{northbound(1), broken, exploding, northbound(4)}

	var done atomic.Int32
	outcomes := newTestAnalyzer(panicky).AnalyzeAll(context.Background(), inputs, func() { done.Add(1) })

	if len(outcomes) != len(inputs) {
		t.Fatalf("Expected %d outcomes, got %d", len(inputs), len(outcomes))
	}
	if done.Load() != int32(len(inputs)) {
		t.Errorf("Expected progress for every input, got %d", done.Load())
	}

	for _, i := range []int{0, 3} {
		if outcomes[i].Err != nil {
			t.Errorf("outcome %d: unexpected error %v", i, outcomes[i].Err)
		}
		if outcomes[i].Analysis.Activity.ID != inputs[i].Activity.ID {
			t.Errorf("outcome %d: expected activity %d, got %d", i, inputs[i].Activity.ID, outcomes[i].Analysis.Activity.ID)
		}
		if outcomes[i].Analysis.Ascent != 400 {
			t.Errorf("outcome %d: expected 400 m ascent, got %v", i, outcomes[i].Analysis.Ascent)
		}
	}

	if !errors.Is(outcomes[1].Err, ErrInvalidStream) {
		t.Errorf("Expected ErrInvalidStream for the broken stream, got %v", outcomes[1].Err)
	}
	if outcomes[2].Err == nil || !strings.Contains(outcomes[2].Err.Error(), "corrupt tile") {
		t.Errorf("Expected the panic to be reported, got %v", outcomes[2].Err)
	}
}

func TestAnalyzeLogMessages(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	flaky := elevationFunc(func(c geo.Coordinate) (float64, error) {
		if c.Lat == 0.002 {
			return 0, dem.ErrNoData
		}
		return latitudeHeight(c)
	})
	analyzer := NewAnalyzer(effort.NewScanner(effort.DefaultOptions()), flaky, 1, logger)

	badPolyline := northbound(2)
	badPolyline.Stream.LatLng = nil
	badPolyline.Stream.Altitude = []float64{0, 1, 2, 3, 4}
	badPolyline.Activity.Polyline = "_p~iF~ps|"

	broken := northbound(3)
	broken.Stream.Distance = []float64{0, 100, 50, 300, 400}

	analyzer.AnalyzeAll(context.Background(), []Input{northbound(1), badPolyline, broken}, nil)

	for _, msg := range []string{
		"Analyzed activity",
		"Elevation lookup failed",
		"Altitude unknown for some samples",
		"Skipping activity geometry",
		"Error analyzing activity",
	} {
		if !strings.Contains(buf.String(), `msg="`+msg+`"`) {
			t.Errorf("Expected a %q log line in:\n%s", msg, buf.String())
		}
	}
}
