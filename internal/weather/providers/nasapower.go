package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/sony/gobreaker"

	"github.com/i474232898/harvest-advisor/internal/common"
	"github.com/i474232898/harvest-advisor/internal/weather"
)

const defaultPowerURL = "https://power.larc.nasa.gov/api/temporal/daily/point"

// ErrNoTemperatureSeries is returned when a successful response carries no T2M data.
var ErrNoTemperatureSeries = errors.New("nasa power response has no temperature series")

// NASAPowerProvider implements weather.Provider for the NASA POWER daily point API.
type NASAPowerProvider struct {
	name       string
	baseURL    string
	community  string
	parameters []string
	client     *http.Client
	circuit    *gobreaker.CircuitBreaker
	logger     *slog.Logger
}

// NewNASAPowerProvider builds the provider. An empty baseURL or community falls back
// to the public endpoint and the agroclimatology community.
func NewNASAPowerProvider(client *http.Client, baseURL, community string, logger *slog.Logger) *NASAPowerProvider {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = defaultPowerURL
	}
	if strings.TrimSpace(community) == "" {
		community = "AG"
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &NASAPowerProvider{
		name:       "nasa-power",
		baseURL:    strings.TrimRight(baseURL, "/"),
		community:  community,
		parameters: weather.DefaultParameters,
		client:     client,
		circuit:    common.NewBreaker("nasa-power"),
		logger:     logger.With("component", "providers.nasapower"),
	}
}

func (p *NASAPowerProvider) Name() string {
	return p.name
}

// FetchDaily issues exactly one request for the date range (YYYYMMDD, inclusive).
func (p *NASAPowerProvider) FetchDaily(ctx context.Context, coords weather.Coordinates, start, end string) (*weather.ClimateSeries, error) {
	values := url.Values{}
	values.Set("parameters", strings.Join(p.parameters, ","))
	values.Set("community", p.community)
	values.Set("longitude", fmt.Sprintf("%f", coords.Lon))
	values.Set("latitude", fmt.Sprintf("%f", coords.Lat))
	values.Set("start", start)
	values.Set("end", end)
	values.Set("format", "JSON")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s?%s", p.baseURL, values.Encode()), nil)
	if err != nil {
		return nil, fmt.Errorf("build nasa power request: %w", err)
	}

	resp, err := common.DoOnce(ctx, p.client, p.circuit, req)
	if err != nil {
		p.logger.Error("climate request failed", "coords", coords.String(), "start", start, "end", end, "error", err)
		return nil, fmt.Errorf("nasa power request: %w", err)
	}
	defer resp.Body.Close()

	var payload struct {
		Properties *struct {
			Parameter map[string]orderedValues `json:"parameter"`
		} `json:"properties"`
		Messages []string `json:"messages"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode nasa power response: %w", err)
	}
	if payload.Properties == nil {
		p.logger.Error("climate response has no properties", "coords", coords.String(), "messages", payload.Messages)
		return nil, fmt.Errorf("%w: missing properties", ErrNoTemperatureSeries)
	}
	if _, ok := payload.Properties.Parameter[weather.ParamTemperature]; !ok {
		p.logger.Error("climate response has no temperature series", "coords", coords.String(), "messages", payload.Messages)
		return nil, fmt.Errorf("%w: %s absent", ErrNoTemperatureSeries, weather.ParamTemperature)
	}

	series := normalizeParameters(p.parameters, payload.Properties.Parameter)
	p.logger.Debug("climate series fetched", "coords", coords.String(), "days", series.Len())
	return series, nil
}

// normalizeParameters pivots per-parameter date maps into per-day observations.
// Day order is taken from the first requested parameter present in the response;
// dates only seen in later parameters are appended in their own order.
func normalizeParameters(params []string, raw map[string]orderedValues) *weather.ClimateSeries {
	series := &weather.ClimateSeries{}
	index := make(map[string]int)

	for _, code := range params {
		values, ok := raw[code]
		if !ok {
			continue
		}
		series.Parameters = append(series.Parameters, code)
		for _, dv := range values {
			i, seen := index[dv.Date]
			if !seen {
				i = len(series.Days)
				index[dv.Date] = i
				series.Days = append(series.Days, weather.DailyObservation{
					Date:   dv.Date,
					Values: make(map[string]float64, len(params)),
				})
			}
			series.Days[i].Values[code] = dv.Value
		}
	}
	return series
}

// orderedValues decodes a JSON object of date -> number keeping key order,
// which encoding/json maps would lose.
type orderedValues []weather.DatedValue

func (o *orderedValues) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("expected object of daily values, got %v", tok)
	}

	var out orderedValues
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("unexpected key token %v", keyTok)
		}
		var num json.Number
		if err := dec.Decode(&num); err != nil {
			return fmt.Errorf("value for %s: %w", key, err)
		}
		v, err := num.Float64()
		if err != nil {
			return fmt.Errorf("value for %s: %w", key, err)
		}
		out = append(out, weather.DatedValue{Date: key, Value: v})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}

	*o = out
	return nil
}
