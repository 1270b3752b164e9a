package activity

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"strings"
	"time"

	"github.com/tkrajina/gpxgo/gpx"
	"github.com/tormoder/fit"

	"github.com/briangreenhill/ridgeline/internal/geo"
)

// ReadFile picks a reader by the file extension.
func ReadFile(name string, r io.Reader) (Input, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".gpx":
		return ReadGPX(r)
	case ".fit":
		return ReadFIT(r)
	case ".json":
		return ReadStravaJSON(r)
	}
	return Input{}, fmt.Errorf("unsupported activity file %s", name)
}

// idFromBytes derives a stable activity ID from the raw file, so importing
// the same file twice replaces the earlier copy.
func idFromBytes(data []byte) int64 {
	sha := sha256.Sum256(data)
	return int64(binary.BigEndian.Uint64(sha[:8]) & math.MaxInt64)
}

func ReadGPX(r io.Reader) (Input, error) {
	contents, err := io.ReadAll(r)
	if err != nil {
		return Input{}, err
	}

	g, err := gpx.ParseBytes(contents)
	if err != nil {
		return Input{}, fmt.Errorf("error parsing gpx: %w", err)
	}

	act := Activity{
		ID:   idFromBytes(contents),
		Name: g.Name,
	}

	var stream Stream
	var prev *gpx.GPXPoint
	var start time.Time
	timed := true
	total := 0.0

	for _, track := range g.Tracks {
		if act.Name == "" {
			act.Name = track.Name
		}
		if act.Type == "" {
			act.Type = track.Type
		}
		for _, segment := range track.Segments {
			for i := range segment.Points {
				point := segment.Points[i]
				if point.Timestamp.IsZero() {
					timed = false
				}

				if prev != nil {
					if timed && !point.Timestamp.After(prev.Timestamp) {
						continue
					}
					total += prev.Distance2D(&point)
				} else {
					start = point.Timestamp
				}

				stream.Distance = append(stream.Distance, total)
				stream.Time = append(stream.Time, point.Timestamp.Sub(start).Seconds())
				stream.LatLng = append(stream.LatLng, geo.Coordinate{Lat: point.Point.Latitude, Lng: point.Point.Longitude})
				if point.Elevation.NotNull() {
					stream.Altitude = append(stream.Altitude, point.Elevation.Value())
				} else {
					stream.Altitude = append(stream.Altitude, math.NaN())
				}
				prev = &point
			}
		}
	}

	if stream.Len() == 0 {
		return Input{}, fmt.Errorf("%w: gpx has no track points", ErrInvalidStream)
	}
	if !timed {
		stream.Time = nil
	}
	if allNaN(stream.Altitude) {
		stream.Altitude = nil
	}

	act.StartDate = start
	act.Distance = total
	if n := len(stream.Time); n > 0 {
		act.ElapsedTime = stream.Time[n-1]
		act.MovingTime = g.MovingData().MovingTime
	}
	act.TotalElevationGain = g.UphillDownhill().Uphill

	return Input{Activity: act, Stream: &stream}, nil
}

func ReadFIT(r io.Reader) (Input, error) {
	contents, err := io.ReadAll(r)
	if err != nil {
		return Input{}, err
	}

	decoded, err := fit.Decode(bytes.NewReader(contents))
	if err != nil {
		return Input{}, fmt.Errorf("decode FIT file: %w", err)
	}
	file, err := decoded.Activity()
	if err != nil {
		return Input{}, fmt.Errorf("activity FIT expected: %w", err)
	}

	act := Activity{ID: idFromBytes(contents)}
	if len(file.Sessions) > 0 {
		session := file.Sessions[0]
		act.Type = strings.TrimPrefix(fmt.Sprint(session.Sport), "Sport")
		act.MovingTime = positive(session.GetTotalTimerTimeScaled())
		if session.TotalAscent != math.MaxUint16 {
			act.TotalElevationGain = float64(session.TotalAscent)
		}
	}

	var stream Stream
	var start time.Time
	hasPosition := false
	distance := 0.0

	for _, rec := range file.Records {
		if rec == nil || rec.Timestamp.IsZero() || fit.IsBaseTime(rec.Timestamp) {
			continue
		}
		if start.IsZero() {
			start = rec.Timestamp
		}
		offset := rec.Timestamp.Sub(start).Seconds()
		if n := len(stream.Time); n > 0 && offset <= stream.Time[n-1] {
			continue
		}

		if d := rec.GetDistanceScaled(); !math.IsNaN(d) && d > distance {
			distance = d
		}

		altitude := rec.GetEnhancedAltitudeScaled()
		if math.IsNaN(altitude) {
			altitude = rec.GetAltitudeScaled()
		}

		position := geo.Coordinate{Lat: math.NaN(), Lng: math.NaN()}
		if !rec.PositionLat.Invalid() && !rec.PositionLong.Invalid() {
			position = geo.Coordinate{Lat: rec.PositionLat.Degrees(), Lng: rec.PositionLong.Degrees()}
			hasPosition = true
		}

		stream.Time = append(stream.Time, offset)
		stream.Distance = append(stream.Distance, distance)
		stream.Altitude = append(stream.Altitude, altitude)
		stream.LatLng = append(stream.LatLng, position)
	}

	if stream.Len() == 0 {
		return Input{}, fmt.Errorf("%w: FIT file has no records", ErrInvalidStream)
	}
	stream.Normalize()
	if allNaN(stream.Altitude) {
		stream.Altitude = nil
	}
	if !hasPosition {
		stream.LatLng = nil
	}

	act.StartDate = start
	act.Distance = stream.Distance[stream.Len()-1]
	act.ElapsedTime = stream.Time[len(stream.Time)-1]
	act.Name = fmt.Sprintf("%s %s", act.Type, start.Format("2006-01-02"))

	return Input{Activity: act, Stream: &stream}, nil
}

type streamData[T any] struct {
	Data []T `json:"data"`
}

// stravaExport is an activity plus its streams fetched with key_by_type.
type stravaExport struct {
	Activity struct {
		ID                 int64     `json:"id"`
		Name               string    `json:"name"`
		Type               string    `json:"type"`
		SportType          string    `json:"sport_type"`
		StartDate          time.Time `json:"start_date"`
		Distance           float64   `json:"distance"`
		MovingTime         float64   `json:"moving_time"`
		ElapsedTime        float64   `json:"elapsed_time"`
		TotalElevationGain float64   `json:"total_elevation_gain"`
		Map                struct {
			Polyline        string `json:"polyline"`
			SummaryPolyline string `json:"summary_polyline"`
		} `json:"map"`
	} `json:"activity"`
	Streams *struct {
		Time     *streamData[float64]    `json:"time"`
		Distance *streamData[float64]    `json:"distance"`
		Altitude *streamData[float64]    `json:"altitude"`
		Moving   *streamData[bool]       `json:"moving"`
		LatLng   *streamData[[2]float64] `json:"latlng"`
	} `json:"streams"`
}

// ReadStravaJSON reads an activity as exported from the Strava API.
func ReadStravaJSON(r io.Reader) (Input, error) {
	var export stravaExport
	if err := json.NewDecoder(r).Decode(&export); err != nil {
		return Input{}, fmt.Errorf("error decoding activity json: %w", err)
	}

	a := export.Activity
	act := Activity{
		ID:                 a.ID,
		Name:               a.Name,
		Type:               a.SportType,
		StartDate:          a.StartDate,
		Distance:           a.Distance,
		MovingTime:         a.MovingTime,
		ElapsedTime:        a.ElapsedTime,
		TotalElevationGain: a.TotalElevationGain,
		Polyline:           a.Map.Polyline,
	}
	if act.Type == "" {
		act.Type = a.Type
	}
	if act.Polyline == "" {
		act.Polyline = a.Map.SummaryPolyline
	}

	in := Input{Activity: act}
	s := export.Streams
	if s == nil || s.Distance == nil {
		return in, nil
	}

	stream := &Stream{Distance: s.Distance.Data}
	if s.Time != nil {
		stream.Time = s.Time.Data
	}
	if s.Altitude != nil {
		stream.Altitude = s.Altitude.Data
	}
	if s.Moving != nil {
		stream.Moving = s.Moving.Data
	}
	if s.LatLng != nil {
		stream.LatLng = make([]geo.Coordinate, len(s.LatLng.Data))
		for i, ll := range s.LatLng.Data {
			stream.LatLng[i] = geo.Coordinate{Lat: ll[0], Lng: ll[1]}
		}
	}
	stream.Normalize()
	in.Stream = stream

	return in, nil
}

func allNaN(values []float64) bool {
	for _, v := range values {
		if !math.IsNaN(v) {
			return false
		}
	}
	return true
}

func positive(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}
