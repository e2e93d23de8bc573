package weather

import "math"

// SeriesSummary condenses a climate series for display next to the daily table.
type SeriesSummary struct {
	Days          int     `json:"days"`
	MinTempC      float64 `json:"minTemperatureC"`
	MaxTempC      float64 `json:"maxTemperatureC"`
	MeanTempC     float64 `json:"meanTemperatureC"`
	TotalPrecipMm float64 `json:"totalPrecipitationMm"`
	MeanSolar     float64 `json:"meanSolar"`
}

// Summarize averages and bounds the series. Missing parameters contribute nothing;
// an empty series yields a zero summary.
func Summarize(s *ClimateSeries) SeriesSummary {
	if s.Len() == 0 {
		return SeriesSummary{}
	}

	var (
		sumTemp   float64
		nTemp     int
		sumSolar  float64
		nSolar    int
		sumPrecip float64
	)
	minTemp := math.Inf(1)
	maxTemp := math.Inf(-1)

	for _, d := range s.Days {
		if t, ok := d.Values[ParamTemperature]; ok {
			sumTemp += t
			nTemp++
			minTemp = math.Min(minTemp, t)
			maxTemp = math.Max(maxTemp, t)
		}
		if p, ok := d.Values[ParamPrecipitation]; ok {
			sumPrecip += p
		}
		if r, ok := d.Values[ParamSolar]; ok {
			sumSolar += r
			nSolar++
		}
	}

	out := SeriesSummary{
		Days:          len(s.Days),
		TotalPrecipMm: sumPrecip,
	}
	if nTemp > 0 {
		out.MinTempC = minTemp
		out.MaxTempC = maxTemp
		out.MeanTempC = sumTemp / float64(nTemp)
	}
	if nSolar > 0 {
		out.MeanSolar = sumSolar / float64(nSolar)
	}
	return out
}
