package effort

import (
	"fmt"
	"time"
)

// Record is the per-activity summary Stats are folded from.
type Record struct {
	ActivityID    int64
	Type          string
	Start         time.Time
	Distance      float64
	ElevationGain float64
}

type Stats struct {
	Count         int     `json:"count"`
	Distance      float64 `json:"distance"`
	ElevationGain float64 `json:"elevation_gain"`
}

func (s *Stats) Add(r Record) {
	s.Count++
	s.Distance += r.Distance
	s.ElevationGain += r.ElevationGain
}

// Aggregate folds records into one Stats per grouping key.
func Aggregate(records []Record, key func(Record) string) map[string]Stats {
	groups := make(map[string]Stats)
	for _, r := range records {
		k := key(r)
		s := groups[k]
		s.Add(r)
		groups[k] = s
	}
	return groups
}

func ByType(r Record) string {
	return SportOf(r.Type).String()
}

func ByYear(r Record) string {
	return fmt.Sprintf("%04d", r.Start.Year())
}

func ByMonth(r Record) string {
	return r.Start.Format("2006-01")
}

// Grouping returns the key function registered under name.
func Grouping(name string) (func(Record) string, error) {
	switch name {
	case "", "type":
		return ByType, nil
	case "year":
		return ByYear, nil
	case "month":
		return ByMonth, nil
	}
	return nil, fmt.Errorf("unknown grouping %q", name)
}
