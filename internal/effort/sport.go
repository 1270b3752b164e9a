package effort

import (
	"fmt"
	"math"
	"strings"
)

// Sport is the broad class of an activity. It only decides how speeds
// are presented.
type Sport int

const (
	SportOther Sport = iota
	SportRun
	SportWalk
	SportRide
	SportSwim
)

var sports = map[string]Sport{
	"run":              SportRun,
	"trailrun":         SportRun,
	"virtualrun":       SportRun,
	"walk":             SportWalk,
	"hike":             SportWalk,
	"ride":             SportRide,
	"virtualride":      SportRide,
	"ebikeride":        SportRide,
	"gravelride":       SportRide,
	"mountainbikeride": SportRide,
	"swim":             SportSwim,
	"running":          SportRun,
	"walking":          SportWalk,
	"hiking":           SportWalk,
	"cycling":          SportRide,
	"swimming":         SportSwim,
}

// SportOf classifies an activity type name such as "Run" or "TrailRun".
func SportOf(activityType string) Sport {
	if s, ok := sports[strings.ToLower(activityType)]; ok {
		return s
	}
	return SportOther
}

// UsesPace reports whether speeds are shown as time per distance.
func (s Sport) UsesPace() bool {
	return s == SportRun || s == SportWalk
}

func (s Sport) String() string {
	switch s {
	case SportRun:
		return "run"
	case SportWalk:
		return "walk"
	case SportRide:
		return "ride"
	case SportSwim:
		return "swim"
	}
	return "other"
}

const metersPerMile = 1609.344

// Format carries the presentation settings. It is passed to every call
// instead of living in package state.
type Format struct {
	Imperial bool
}

// Speed renders meters covered in seconds: pace for running and walking,
// km/h (or mph) for everything else.
func (f Format) Speed(sport Sport, meters, seconds float64) string {
	if meters <= 0 || seconds <= 0 {
		return "-"
	}

	unit := 1000.0
	if f.Imperial {
		unit = metersPerMile
	}

	if sport.UsesPace() {
		pace := math.Round(seconds / (meters / unit))
		suffix := "/km"
		if f.Imperial {
			suffix = "/mi"
		}
		return fmt.Sprintf("%d:%02d %s", int(pace)/60, int(pace)%60, suffix)
	}

	perHour := (meters / unit) / (seconds / 3600)
	if f.Imperial {
		return fmt.Sprintf("%.1f mph", perHour)
	}
	return fmt.Sprintf("%.1f km/h", perHour)
}

func (f Format) Distance(meters float64) string {
	if f.Imperial {
		return fmt.Sprintf("%.2f mi", meters/metersPerMile)
	}
	return fmt.Sprintf("%.2f km", meters/1000)
}

// Duration renders seconds as h:mm:ss, or m:ss under an hour.
func (f Format) Duration(seconds float64) string {
	total := int(math.Round(seconds))
	h, m, s := total/3600, (total%3600)/60, total%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

func (f Format) Gradient(ratio float64) string {
	return fmt.Sprintf("%.1f%%", ratio*100)
}

func (f Format) Elevation(meters float64) string {
	if f.Imperial {
		return fmt.Sprintf("%.0f ft", meters*3.28084)
	}
	return fmt.Sprintf("%.0f m", meters)
}

var effortNames = map[float64]string{
	Distance400m:     "400m",
	Distance1K:       "1k",
	Distance1Mile:    "1 mile",
	Distance5K:       "5k",
	Distance10K:      "10k",
	DistanceHalfMara: "half marathon",
	DistanceMarathon: "marathon",
}

// Label names an effort for display.
func (f Format) Label(e ActivityEffort) string {
	if e.Kind == KindClimb {
		return "best climb"
	}
	if name, ok := effortNames[e.Target]; ok {
		return name
	}
	return f.Distance(e.Target)
}
