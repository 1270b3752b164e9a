package activity

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"golang.org/x/sync/errgroup"

	"github.com/briangreenhill/ridgeline/internal/effort"
	"github.com/briangreenhill/ridgeline/internal/geo"
)

// ElevationSource resolves terrain height for a point. *dem.Cache is the
// production implementation.
type ElevationSource interface {
	Elevation(geo.Coordinate) (float64, error)
}

type Analyzer struct {
	scanner   *effort.Scanner
	elevation ElevationSource
	workers   int
	logger    *slog.Logger
}

// NewAnalyzer wires a scanner to an optional elevation source. A nil
// source leaves missing altitude unknown.
func NewAnalyzer(scanner *effort.Scanner, elevation ElevationSource, workers int, logger *slog.Logger) *Analyzer {
	if workers < 1 {
		workers = 1
	}
	return &Analyzer{
		scanner:   scanner,
		elevation: elevation,
		workers:   workers,
		logger:    logger,
	}
}

// Analyze derives ascent, descent, splits and best efforts for one activity.
func (a *Analyzer) Analyze(ctx context.Context, in Input) (Analysis, error) {
	act := in.Activity
	logger := a.logger.With(slog.Int64("activity", act.ID))

	precision := in.Precision
	if precision == 0 {
		precision = geo.DefaultPrecision
	}

	stream := in.Stream
	if act.Polyline != "" && (stream == nil || stream.LatLng == nil) {
		points, err := geo.DecodePolyline(act.Polyline, precision)
		switch {
		case err != nil:
			logger.Warn("Skipping activity geometry", slog.Any("error", err))
		case len(points) == 0:
		case stream == nil:
			stream = &Stream{Distance: geo.PathLength(points), LatLng: points}
		default:
			aligned := *stream
			aligned.LatLng = alignPolyline(stream.Distance, points)
			stream = &aligned
		}
	}

	if err := stream.Validate(); err != nil {
		return Analysis{}, fmt.Errorf("activity %d: %w", act.ID, err)
	}

	altitude, err := a.resolveAltitude(ctx, logger, stream)
	if err != nil {
		return Analysis{}, err
	}

	unknown := 0
	for _, v := range altitude {
		if math.IsNaN(v) {
			unknown++
		}
	}
	if unknown > 0 {
		logger.Warn("Altitude unknown for some samples",
			slog.Int("unknown", unknown),
			slog.Int("samples", stream.Len()))
	}

	result := a.scanner.Scan(act.ID, effort.Track{
		Time:     stream.Time,
		Distance: stream.Distance,
		Altitude: effort.SmoothAltitude(altitude),
		Moving:   stream.Moving,
	})

	if act.Distance == 0 {
		act.Distance = stream.Distance[stream.Len()-1]
	}
	if act.ElapsedTime == 0 && len(stream.Time) > 0 {
		act.ElapsedTime = stream.Time[len(stream.Time)-1]
	}

	logger.Debug("Analyzed activity",
		slog.Int("samples", stream.Len()),
		slog.Int("efforts", len(result.Efforts)))

	return Analysis{
		Activity:        act,
		Ascent:          result.Ascent,
		Descent:         result.Descent,
		Efforts:         result.Efforts,
		Splits:          result.Splits,
		UnknownAltitude: unknown,
	}, nil
}

// resolveAltitude fills samples without a recorded altitude from the
// elevation source. Samples that cannot be resolved stay NaN.
func (a *Analyzer) resolveAltitude(ctx context.Context, logger *slog.Logger, s *Stream) ([]float64, error) {
	if s.Altitude == nil && (s.LatLng == nil || a.elevation == nil) {
		return nil, nil
	}

	altitude := make([]float64, s.Len())
	if s.Altitude != nil {
		copy(altitude, s.Altitude)
	} else {
		for i := range altitude {
			altitude[i] = math.NaN()
		}
	}
	if s.LatLng == nil || a.elevation == nil {
		return altitude, nil
	}

	for i, p := range s.LatLng {
		if !math.IsNaN(altitude[i]) || math.IsNaN(p.Lat) || math.IsNaN(p.Lng) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		elevation, err := a.elevation.Elevation(p)
		if err != nil {
			logger.Debug("Elevation lookup failed",
				slog.Int("sample", i),
				slog.String("point", p.String()),
				slog.Any("error", err))
			continue
		}
		altitude[i] = elevation
	}

	return altitude, nil
}

// alignPolyline places each stream sample on the decoded route at the same
// fraction of total distance.
func alignPolyline(distance []float64, points []geo.Coordinate) []geo.Coordinate {
	aligned := make([]geo.Coordinate, len(distance))
	if len(distance) == 0 {
		return aligned
	}
	if len(points) == 1 {
		for i := range aligned {
			aligned[i] = points[0]
		}
		return aligned
	}

	along := geo.PathLength(points)
	routeLength := along[len(along)-1]
	streamLength := distance[len(distance)-1]

	j := 0
	for i, d := range distance {
		target := 0.0
		if streamLength > 0 {
			target = d / streamLength * routeLength
		}
		for j < len(along)-2 && along[j+1] < target {
			j++
		}

		segment := along[j+1] - along[j]
		if segment <= 0 {
			aligned[i] = points[j]
			continue
		}
		f := math.Max(0, math.Min(1, (target-along[j])/segment))
		aligned[i] = geo.Coordinate{
			Lat: points[j].Lat + f*(points[j+1].Lat-points[j].Lat),
			Lng: points[j].Lng + f*(points[j+1].Lng-points[j].Lng),
		}
	}

	return aligned
}

// Outcome is the result of one activity in a batch. Exactly one of
// Analysis and Err is meaningful.
type Outcome struct {
	Analysis Analysis
	Err      error
}

// AnalyzeAll analyzes inputs on a bounded pool of workers. Outcomes are in
// input order and a failing activity never stops the others. progress, if
// set, is called once per finished activity from the worker goroutines.
func (a *Analyzer) AnalyzeAll(ctx context.Context, inputs []Input, progress func()) []Outcome {
	outcomes := make([]Outcome, len(inputs))

	var g errgroup.Group
	g.SetLimit(a.workers)

	for i, in := range inputs {
		g.Go(func() error {
			outcomes[i] = a.analyzeIsolated(ctx, in)
			if outcomes[i].Err != nil {
				a.logger.Error("Error analyzing activity",
					slog.Int64("activity", in.Activity.ID),
					slog.Any("error", outcomes[i].Err))
			}
			if progress != nil {
				progress()
			}
			return nil
		})
	}
	_ = g.Wait()

	return outcomes
}

func (a *Analyzer) analyzeIsolated(ctx context.Context, in Input) (out Outcome) {
	defer func() {
		if r := recover(); r != nil {
			out = Outcome{Err: fmt.Errorf("activity %d: panic: %v", in.Activity.ID, r)}
		}
	}()

	analysis, err := a.Analyze(ctx, in)
	return Outcome{Analysis: analysis, Err: err}
}
