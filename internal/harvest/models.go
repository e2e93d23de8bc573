package harvest

import (
	"strings"
	"time"

	"github.com/i474232898/harvest-advisor/internal/cropinfo"
	"github.com/i474232898/harvest-advisor/internal/weather"
)

// PlanRequest carries the raw form fields of one submission.
type PlanRequest struct {
	CropType  string `json:"cropType" form:"cropType"`
	Location  string `json:"location" form:"location"`
	StartDate string `json:"startDate" form:"startDate"`
	EndDate   string `json:"endDate" form:"endDate"`
	MinTemp   string `json:"minTemp" form:"minTemp"`
	MaxTemp   string `json:"maxTemp" form:"maxTemp"`
}

// Query is a sanitized and validated submission.
type Query struct {
	CropType  string `json:"cropType" validate:"required"`
	Location  string `json:"location" validate:"required"`
	StartDate string `json:"startDate" validate:"required"`
	EndDate   string `json:"endDate" validate:"required"`
	Range     *Range `json:"range,omitempty"`
}

// Policy returns the scoring policy for the query: the target range when one was
// given, otherwise the ideal temperature.
func (q Query) Policy(ideal float64) Policy {
	if q.Range != nil {
		return *q.Range
	}
	return Ideal(ideal)
}

// QueryRecord is the persisted snapshot of one submission and its recommendation.
type QueryRecord struct {
	ID              string      `json:"id"`
	CropType        string      `json:"cropType"`
	Location        string      `json:"location"`
	StartDate       string      `json:"startDate"`
	EndDate         string      `json:"endDate"`
	MinTemp         *float64    `json:"minTemp,omitempty"`
	MaxTemp         *float64    `json:"maxTemp,omitempty"`
	BestHarvestDate ScoreResult `json:"bestHarvestDate"`
	CreatedAt       time.Time   `json:"createdAt"`
}

// PlanResult is everything one submission produced. It is owned by the session
// created for that submission.
type PlanResult struct {
	Query       Query                  `json:"query"`
	Coordinates weather.Coordinates    `json:"coordinates"`
	Series      *weather.ClimateSeries `json:"series"`
	Summary     weather.SeriesSummary  `json:"summary"`
	Best        ScoreResult            `json:"best"`
	Record      QueryRecord            `json:"record"`
	CropInfo    []cropinfo.SearchItem  `json:"cropInfo,omitempty"`

	ClimateHTML  string `json:"climateHtml"`
	BestHTML     string `json:"bestHtml"`
	CropInfoHTML string `json:"cropInfoHtml,omitempty"`

	// Non-fatal failures, shown to the user next to the results.
	CropInfoError string `json:"cropInfoError,omitempty"`
	HistoryError  string `json:"historyError,omitempty"`
}

// PanelHTML joins the rendered fragments in display order.
func (r *PlanResult) PanelHTML() string {
	var b strings.Builder
	b.WriteString(r.ClimateHTML)
	b.WriteString(r.BestHTML)
	b.WriteString(r.CropInfoHTML)
	return b.String()
}
