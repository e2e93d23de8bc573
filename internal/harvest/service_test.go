package harvest

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/i474232898/harvest-advisor/internal/apperrors"
	"github.com/i474232898/harvest-advisor/internal/cropinfo"
	"github.com/i474232898/harvest-advisor/internal/geocode"
	"github.com/i474232898/harvest-advisor/internal/logger"
	"github.com/i474232898/harvest-advisor/internal/weather"
	"github.com/i474232898/harvest-advisor/internal/weather/providers"
)

type fakeClimate struct {
	series *weather.ClimateSeries
	err    error
	calls  int
	start  string
	end    string
}

func (f *fakeClimate) Name() string { return "fake" }

func (f *fakeClimate) FetchDaily(_ context.Context, _ weather.Coordinates, start, end string) (*weather.ClimateSeries, error) {
	f.calls++
	f.start, f.end = start, end
	return f.series, f.err
}

type fakeCrops struct {
	items []cropinfo.SearchItem
	err   error
	query string
}

func (f *fakeCrops) Search(_ context.Context, crop string) ([]cropinfo.SearchItem, error) {
	f.query = crop
	return f.items, f.err
}

type fakeHistory struct {
	records []QueryRecord
	err     error
}

func (f *fakeHistory) Append(_ context.Context, rec QueryRecord) error {
	if f.err != nil {
		return f.err
	}
	f.records = append(f.records, rec)
	return nil
}

type fakeRenderer struct {
	calls []string
}

func (f *fakeRenderer) Climate(*weather.ClimateSeries, weather.SeriesSummary) (string, error) {
	f.calls = append(f.calls, "climate")
	return "<climate>", nil
}

func (f *fakeRenderer) Best(ScoreResult) (string, error) {
	f.calls = append(f.calls, "best")
	return "<best>", nil
}

func (f *fakeRenderer) CropInfo([]cropinfo.SearchItem) (string, error) {
	f.calls = append(f.calls, "crop")
	return "<crop>", nil
}

type countingScorer struct {
	calls int
}

func (c *countingScorer) Best(days []weather.DatedValue, policy Policy) ScoreResult {
	c.calls++
	return Engine{}.Best(days, policy)
}

func series(temps ...float64) *weather.ClimateSeries {
	s := &weather.ClimateSeries{Parameters: []string{weather.ParamTemperature}}
	for i, t := range temps {
		s.Days = append(s.Days, weather.DailyObservation{
			Date:   time.Date(2024, 1, 1+i, 0, 0, 0, 0, time.UTC).Format("20060102"),
			Values: map[string]float64{weather.ParamTemperature: t},
		})
	}
	return s
}

type fixture struct {
	climate  *fakeClimate
	crops    *fakeCrops
	history  *fakeHistory
	renderer *fakeRenderer
	scorer   *countingScorer
	svc      *Service
}

func newFixture() *fixture {
	f := &fixture{
		climate:  &fakeClimate{series: series(20, 25, 30)},
		crops:    &fakeCrops{items: []cropinfo.SearchItem{{Link: "https://example.org", Title: "Soy", Snippet: "warm"}}},
		history:  &fakeHistory{},
		renderer: &fakeRenderer{},
		scorer:   &countingScorer{},
	}
	f.svc = NewService(f.climate, f.crops, f.history, f.renderer, DefaultIdealTemperature, logger.Discard())
	f.svc.scorer = f.scorer
	f.svc.now = func() time.Time { return time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC) }
	f.svc.newID = func() string { return "id-1" }
	return f
}

func validRequest() PlanRequest {
	return PlanRequest{
		CropType:  "soja",
		Location:  "Sorriso, MT",
		StartDate: "2024-01-01",
		EndDate:   "2024-01-03",
	}
}

var selected = geocode.Fixed{Lat: -12.5, Lon: -55.7}

func TestPlanHappyPath(t *testing.T) {
	f := newFixture()

	res, err := f.svc.Plan(context.Background(), validRequest(), selected)
	require.NoError(t, err)

	require.Equal(t, "20240101", f.climate.start)
	require.Equal(t, "20240103", f.climate.end)
	require.Equal(t, "20240102", res.Best.DateOr(""))
	require.Equal(t, "Average temperature of 25°C, ideal for harvest.", res.Best.Reason)
	require.Equal(t, []string{"climate", "best", "crop"}, f.renderer.calls)
	require.Equal(t, "<climate><best><crop>", res.PanelHTML())
	require.Equal(t, "soja", f.crops.query)
	require.Empty(t, res.CropInfoError)
	require.Empty(t, res.HistoryError)

	require.Len(t, f.history.records, 1)
	rec := f.history.records[0]
	require.Equal(t, "id-1", rec.ID)
	require.Equal(t, "Sorriso, MT", rec.Location)
	require.Nil(t, rec.MinTemp)
	require.Equal(t, "20240102", *rec.BestHarvestDate.Date)
	require.Equal(t, 3, res.Summary.Days)
}

func TestPlanRangeMode(t *testing.T) {
	f := newFixture()
	f.climate.series = series(10, 40)

	req := validRequest()
	req.MinTemp, req.MaxTemp = "20", "30"
	res, err := f.svc.Plan(context.Background(), req, selected)
	require.NoError(t, err)

	require.Equal(t, "20240101", res.Best.DateOr(""))
	rec := f.history.records[0]
	require.NotNil(t, rec.MinTemp)
	require.Equal(t, 20.0, *rec.MinTemp)
	require.Equal(t, 30.0, *rec.MaxTemp)
}

func TestPlanSanitizesFields(t *testing.T) {
	f := newFixture()

	req := validRequest()
	req.CropType = "<b>soja</b>"
	res, err := f.svc.Plan(context.Background(), req, selected)
	require.NoError(t, err)
	require.Equal(t, "&lt;b&gt;soja&lt;/b&gt;", res.Query.CropType)
	require.Equal(t, "&lt;b&gt;soja&lt;/b&gt;", f.history.records[0].CropType)
}

func TestPlanMissingFieldAbortsBeforeFetch(t *testing.T) {
	f := newFixture()

	req := validRequest()
	req.EndDate = ""
	_, err := f.svc.Plan(context.Background(), req, selected)
	require.Error(t, err)
	require.True(t, apperrors.IsCode(err, apperrors.CodeInvalidInput))
	require.Zero(t, f.climate.calls)
	require.Empty(t, f.history.records)
}

func TestPlanNoSelectionAbortsBeforeFetch(t *testing.T) {
	f := newFixture()

	_, err := f.svc.Plan(context.Background(), validRequest(), geocode.NewFormSelection("", "", ""))
	require.Error(t, err)
	require.True(t, apperrors.IsCode(err, apperrors.CodeNoPlaceSelected))
	require.ErrorIs(t, err, geocode.ErrNoPlaceSelected)
	require.Zero(t, f.climate.calls)

	_, err = f.svc.Plan(context.Background(), validRequest(), nil)
	require.True(t, apperrors.IsCode(err, apperrors.CodeNoPlaceSelected))
}

func TestPlanClimateFailureStopsPipeline(t *testing.T) {
	f := newFixture()
	f.climate.series = nil
	f.climate.err = errors.New("server error: 503")

	res, err := f.svc.Plan(context.Background(), validRequest(), selected)
	require.Nil(t, res)
	require.True(t, apperrors.IsCode(err, apperrors.CodeClimateUnavailable))

	require.Equal(t, 1, f.climate.calls)
	require.Zero(t, f.scorer.calls)
	require.Empty(t, f.renderer.calls)
	require.Empty(t, f.history.records)
	require.Empty(t, f.crops.query)
}

func TestPlanClimateResponseWithoutTemperature(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"messages":["Invalid coordinates"]}`))
	}))
	defer srv.Close()

	f := newFixture()
	climate := providers.NewNASAPowerProvider(srv.Client(), srv.URL, "AG", logger.Discard())
	f.svc = NewService(climate, f.crops, f.history, f.renderer, DefaultIdealTemperature, logger.Discard())
	f.svc.scorer = f.scorer

	res, err := f.svc.Plan(context.Background(), validRequest(), selected)
	require.Nil(t, res)
	require.True(t, apperrors.IsCode(err, apperrors.CodeClimateUnavailable))
	require.ErrorIs(t, err, providers.ErrNoTemperatureSeries)

	require.Zero(t, f.scorer.calls)
	require.Empty(t, f.renderer.calls)
	require.Empty(t, f.history.records)
	require.Empty(t, f.crops.query)
}

func TestPlanHistoryFailureIsNotFatal(t *testing.T) {
	f := newFixture()
	f.history.err = errors.New("disk full")

	res, err := f.svc.Plan(context.Background(), validRequest(), selected)
	require.NoError(t, err)
	require.NotEmpty(t, res.HistoryError)
	require.Equal(t, "20240102", res.Best.DateOr(""))
	require.Equal(t, "<crop>", res.CropInfoHTML)
}

func TestPlanCropSearchFailureIsNotFatal(t *testing.T) {
	f := newFixture()
	f.crops.err = errors.New("quota exceeded")

	res, err := f.svc.Plan(context.Background(), validRequest(), selected)
	require.NoError(t, err)
	require.NotEmpty(t, res.CropInfoError)
	require.Empty(t, res.CropInfoHTML)
	require.Equal(t, []string{"climate", "best"}, f.renderer.calls)
	require.Len(t, f.history.records, 1)
}

func TestPlanEmptySeries(t *testing.T) {
	f := newFixture()
	f.climate.series = &weather.ClimateSeries{}

	res, err := f.svc.Plan(context.Background(), validRequest(), selected)
	require.NoError(t, err)
	require.False(t, res.Best.HasDate())
	require.Empty(t, res.Best.Reason)
	require.Nil(t, f.history.records[0].BestHarvestDate.Date)
}

func TestPlanWithoutCropSearcher(t *testing.T) {
	f := newFixture()
	f.svc.crops = nil

	res, err := f.svc.Plan(context.Background(), validRequest(), selected)
	require.NoError(t, err)
	require.Empty(t, res.CropInfoError)
	require.Equal(t, []string{"climate", "best"}, f.renderer.calls)
}
