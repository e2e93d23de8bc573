package weather

import "fmt"

// NASA POWER parameter codes requested for each fetch.
const (
	ParamTemperature   = "T2M"               // temperature at 2m, °C
	ParamPrecipitation = "PRECTOTCORR"       // corrected precipitation, mm/day
	ParamSolar         = "ALLSKY_SFC_SW_DWN" // solar radiation, used as a humidity stand-in
)

// DefaultParameters is the parameter set of the extended climate fetch.
var DefaultParameters = []string{ParamTemperature, ParamPrecipitation, ParamSolar}

// Coordinates is a geocoded point.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

func (c Coordinates) String() string {
	return fmt.Sprintf("%.4f,%.4f", c.Lat, c.Lon)
}

// DailyObservation holds every requested measurement for one calendar day.
type DailyObservation struct {
	Date   string             `json:"date"` // YYYYMMDD
	Values map[string]float64 `json:"values"`
}

// Value returns the measurement for a parameter code.
func (d DailyObservation) Value(param string) (float64, bool) {
	v, ok := d.Values[param]
	return v, ok
}

// DatedValue is one (date, value) pair of a single-parameter series.
type DatedValue struct {
	Date  string
	Value float64
}

// ClimateSeries is a date-indexed set of daily measurements.
// Days keep the order of the upstream response, which is chronological.
type ClimateSeries struct {
	Parameters []string           `json:"parameters"`
	Days       []DailyObservation `json:"days"`
}

// Len returns the number of days in the series.
func (s *ClimateSeries) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Days)
}

// Series extracts the ordered values of one parameter, skipping days without it.
func (s *ClimateSeries) Series(param string) []DatedValue {
	if s == nil {
		return nil
	}
	out := make([]DatedValue, 0, len(s.Days))
	for _, d := range s.Days {
		if v, ok := d.Values[param]; ok {
			out = append(out, DatedValue{Date: d.Date, Value: v})
		}
	}
	return out
}

// Temperatures is shorthand for Series(ParamTemperature).
func (s *ClimateSeries) Temperatures() []DatedValue {
	return s.Series(ParamTemperature)
}
