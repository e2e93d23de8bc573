package harvest

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/i474232898/harvest-advisor/internal/apperrors"
	"github.com/i474232898/harvest-advisor/internal/cropinfo"
	"github.com/i474232898/harvest-advisor/internal/geocode"
	"github.com/i474232898/harvest-advisor/internal/weather"
)

// CropSearcher looks up crop growing conditions.
type CropSearcher interface {
	Search(ctx context.Context, crop string) ([]cropinfo.SearchItem, error)
}

// HistoryStore persists submitted queries.
type HistoryStore interface {
	Append(ctx context.Context, rec QueryRecord) error
}

// Renderer turns pipeline outputs into HTML fragments.
type Renderer interface {
	Climate(series *weather.ClimateSeries, summary weather.SeriesSummary) (string, error)
	Best(res ScoreResult) (string, error)
	CropInfo(items []cropinfo.SearchItem) (string, error)
}

const (
	msgClimateUnavailable = "Error fetching climate data. Please try again later."
	msgCropInfoFailed     = "Error fetching crop information. Please try again later."
	msgHistoryFailed      = "The query could not be saved to history."
)

// Service runs one submission through the planning pipeline. Steps run one after
// another; nothing is retried.
type Service struct {
	climate  weather.Provider
	crops    CropSearcher
	history  HistoryStore
	renderer Renderer
	scorer   Scorer
	ideal    float64
	logger   *slog.Logger

	now   func() time.Time
	newID func() string
}

// NewService creates a new Service. A nil crops searcher skips the crop-info step.
func NewService(climate weather.Provider, crops CropSearcher, history HistoryStore, renderer Renderer, ideal float64, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		climate:  climate,
		crops:    crops,
		history:  history,
		renderer: renderer,
		scorer:   Engine{},
		ideal:    ideal,
		logger:   logger.With("component", "harvest.service"),
		now:      func() time.Time { return time.Now().UTC() },
		newID:    uuid.NewString,
	}
}

// Plan validates the request, fetches the climate series for the selected place,
// picks the best harvest day, records the query and looks up crop conditions.
//
// Validation and climate failures abort before any later step runs. History and
// crop-info failures are logged and reported on the result.
func (s *Service) Plan(ctx context.Context, req PlanRequest, sel geocode.SelectionSource) (*PlanResult, error) {
	q, err := NormalizeRequest(req)
	if err != nil {
		return nil, err
	}

	var coords weather.Coordinates
	ok := false
	if sel != nil {
		coords, ok = sel.CurrentSelection()
	}
	if !ok {
		return nil, apperrors.Wrap(apperrors.CodeNoPlaceSelected, "Please select a valid location.", geocode.ErrNoPlaceSelected)
	}

	log := s.logger.With("crop", q.CropType, "coords", coords.String(), "start", q.StartDate, "end", q.EndDate)

	series, err := s.climate.FetchDaily(ctx, coords, q.StartDate, q.EndDate)
	if err != nil {
		log.Error("climate fetch failed", "provider", s.climate.Name(), "error", err)
		return nil, apperrors.Wrap(apperrors.CodeClimateUnavailable, msgClimateUnavailable, err)
	}

	res := &PlanResult{
		Query:       q,
		Coordinates: coords,
		Series:      series,
		Summary:     weather.Summarize(series),
	}

	if res.ClimateHTML, err = s.renderer.Climate(series, res.Summary); err != nil {
		return nil, err
	}

	res.Best = s.scorer.Best(series.Temperatures(), q.Policy(s.ideal))
	if res.BestHTML, err = s.renderer.Best(res.Best); err != nil {
		return nil, err
	}

	res.Record = s.record(q, res.Best)
	if err := s.history.Append(ctx, res.Record); err != nil {
		log.Error("history write failed", "code", apperrors.CodeHistoryWriteFailed, "error", err)
		res.HistoryError = msgHistoryFailed
	}

	s.lookupCrop(ctx, log, res)

	log.Info("plan complete", "days", series.Len(), "best", res.Best.DateOr("none"))
	return res, nil
}

func (s *Service) record(q Query, best ScoreResult) QueryRecord {
	rec := QueryRecord{
		ID:              s.newID(),
		CropType:        q.CropType,
		Location:        q.Location,
		StartDate:       q.StartDate,
		EndDate:         q.EndDate,
		BestHarvestDate: best,
		CreatedAt:       s.now(),
	}
	if q.Range != nil {
		minT, maxT := q.Range.Min, q.Range.Max
		rec.MinTemp, rec.MaxTemp = &minT, &maxT
	}
	return rec
}

func (s *Service) lookupCrop(ctx context.Context, log *slog.Logger, res *PlanResult) {
	if s.crops == nil {
		return
	}

	items, err := s.crops.Search(ctx, res.Query.CropType)
	if err != nil {
		if errors.Is(err, cropinfo.ErrNotConfigured) {
			log.Warn("crop search skipped", "code", apperrors.CodeCropInfoUnavailable, "error", err)
		} else {
			log.Error("crop search failed", "code", apperrors.CodeCropInfoUnavailable, "error", err)
		}
		res.CropInfoError = msgCropInfoFailed
		return
	}

	html, err := s.renderer.CropInfo(items)
	if err != nil {
		log.Error("crop info render failed", "code", apperrors.CodeCropInfoUnavailable, "error", err)
		res.CropInfoError = msgCropInfoFailed
		return
	}
	res.CropInfo = items
	res.CropInfoHTML = html
}
