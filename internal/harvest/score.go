package harvest

import (
	"fmt"
	"math"
	"strconv"

	"github.com/i474232898/harvest-advisor/internal/weather"
)

// DefaultIdealTemperature is used when no target range is given.
const DefaultIdealTemperature = 25.0

// Policy scores a single day's temperature. Higher is better.
type Policy interface {
	Score(temperature float64) float64
}

// Ideal scores by closeness to one ideal temperature.
type Ideal float64

func (i Ideal) Score(t float64) float64 {
	return -math.Abs(t - float64(i))
}

// Range scores by closeness to the nearer boundary of [Min, Max].
// Temperatures inside the range get no bonus over ones just outside it.
type Range struct {
	Min float64
	Max float64
}

func (r Range) Score(t float64) float64 {
	return -math.Min(math.Abs(t-r.Min), math.Abs(t-r.Max))
}

// ScoreResult is the selected day with its rationale.
type ScoreResult struct {
	Date   *string `json:"date"`
	Reason string  `json:"reason"`
	Score  float64 `json:"-"`
}

// HasDate reports whether a day was selected.
func (r ScoreResult) HasDate() bool {
	return r.Date != nil
}

// DateOr returns the selected date or fallback.
func (r ScoreResult) DateOr(fallback string) string {
	if r.Date == nil {
		return fallback
	}
	return *r.Date
}

// Scorer picks the best harvest day of a temperature series.
type Scorer interface {
	Best(days []weather.DatedValue, policy Policy) ScoreResult
}

// Engine is the linear-scan Scorer.
type Engine struct{}

// Best scans days in order and keeps the first day with the strictly highest score.
// NaN temperatures produce NaN scores, which never compare greater and so are
// never selected. An empty series yields a nil date and an empty reason.
func (Engine) Best(days []weather.DatedValue, policy Policy) ScoreResult {
	res := ScoreResult{Score: math.Inf(-1)}

	for _, d := range days {
		score := policy.Score(d.Value)
		if score > res.Score {
			date := d.Date
			res.Score = score
			res.Date = &date
			res.Reason = fmt.Sprintf("Average temperature of %s°C, ideal for harvest.", formatTemp(d.Value))
		}
	}
	return res
}

func formatTemp(t float64) string {
	return strconv.FormatFloat(t, 'f', -1, 64)
}
