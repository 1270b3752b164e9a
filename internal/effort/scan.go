package effort

import "math"

// Window is a contiguous index range [Start, End] of a track.
type Window struct {
	Start    int
	End      int
	Distance float64
	Seconds  float64
	Altitude float64
}

// Ascent sums the positive altitude changes between adjacent known
// samples. An unknown (NaN) sample is bridged: the change is measured from
// the last known sample to the next known one.
func Ascent(altitude []float64) float64 {
	var total float64
	for _, d := range changes(altitude) {
		if d > 0 {
			total += d
		}
	}
	return total
}

// Descent sums the negative altitude changes, as a positive number.
func Descent(altitude []float64) float64 {
	var total float64
	for _, d := range changes(altitude) {
		if d < 0 {
			total -= d
		}
	}
	return total
}

func changes(altitude []float64) []float64 {
	var out []float64
	last := math.NaN()
	for _, a := range altitude {
		if math.IsNaN(a) {
			continue
		}
		if !math.IsNaN(last) {
			out = append(out, a-last)
		}
		last = a
	}
	return out
}

// BestEffort finds the shortest-duration window covering at least target
// meters. clock must be index-aligned with distance and non-decreasing;
// distance must be non-decreasing. Both pointers only move forward, so the
// scan is linear. Ties keep the earliest start. ok is false when the track
// never covers target.
func BestEffort(distance, clock []float64, target float64) (best Window, ok bool) {
	n := min(len(distance), len(clock))
	if target <= 0 || n < 2 {
		return Window{}, false
	}

	j := 0
	for i := 0; i < n; i++ {
		if j < i {
			j = i
		}
		for j < n && distance[j]-distance[i] < target {
			j++
		}
		if j == n {
			break
		}

		seconds := clock[j] - clock[i]
		if !ok || seconds < best.Seconds {
			best = Window{
				Start:    i,
				End:      j,
				Distance: distance[j] - distance[i],
				Seconds:  seconds,
			}
			ok = true
		}
	}

	return best, ok
}

// BestClimb returns the maximal non-decreasing altitude run with the
// steepest average gradient. Ties go to the longer run. Unknown samples
// end a run.
func BestClimb(distance, altitude []float64) (best Window, ok bool) {
	n := min(len(distance), len(altitude))
	var bestGradient float64

	consider := func(start, end int) {
		if end <= start || math.IsNaN(altitude[start]) {
			return
		}
		gain := altitude[end] - altitude[start]
		covered := distance[end] - distance[start]
		if gain <= 0 || covered <= 0 {
			return
		}
		gradient := gain / covered
		if !ok || gradient > bestGradient || (gradient == bestGradient && covered > best.Distance) {
			best = Window{Start: start, End: end, Distance: covered, Altitude: gain}
			bestGradient = gradient
			ok = true
		}
	}

	start := 0
	for i := 1; i <= n; i++ {
		if i < n && !math.IsNaN(altitude[i]) && !math.IsNaN(altitude[i-1]) && altitude[i] >= altitude[i-1] {
			continue
		}
		consider(start, i-1)
		start = i
	}

	return best, ok
}

// MovingTime builds a clock that stands still across samples flagged as
// not moving. The first sample is always at zero.
func MovingTime(elapsed []float64, moving []bool) []float64 {
	clock := make([]float64, len(elapsed))
	for i := 1; i < len(elapsed); i++ {
		clock[i] = clock[i-1]
		if i < len(moving) && !moving[i] {
			continue
		}
		clock[i] += elapsed[i] - elapsed[i-1]
	}
	return clock
}

// Split is one fixed-distance slice of a track.
type Split struct {
	Distance  float64 `json:"distance"`
	Seconds   float64 `json:"seconds"`
	Elevation float64 `json:"elevation"`
}

// Splits cuts the track every `every` meters. The last split carries
// whatever distance remains.
func Splits(distance, clock, altitude []float64, every float64) []Split {
	n := min(len(distance), len(clock))
	if every <= 0 || n < 2 {
		return nil
	}

	elevation := func(from, to int) float64 {
		if to >= len(altitude) || math.IsNaN(altitude[from]) || math.IsNaN(altitude[to]) {
			return 0
		}
		return altitude[to] - altitude[from]
	}

	var splits []Split
	start := 0
	boundary := every
	for i := 1; i < n; i++ {
		if distance[i] < boundary {
			continue
		}
		splits = append(splits, Split{
			Distance:  distance[i] - distance[start],
			Seconds:   clock[i] - clock[start],
			Elevation: elevation(start, i),
		})
		start = i
		for boundary <= distance[i] {
			boundary += every
		}
	}

	if last := n - 1; last > start && distance[last] > distance[start] {
		splits = append(splits, Split{
			Distance:  distance[last] - distance[start],
			Seconds:   clock[last] - clock[start],
			Elevation: elevation(start, last),
		})
	}

	return splits
}
