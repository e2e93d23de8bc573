package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/i474232898/harvest-advisor/internal/common"
	"github.com/i474232898/harvest-advisor/internal/logger"
	"github.com/i474232898/harvest-advisor/internal/weather"
)

const powerBody = `{
  "type": "Feature",
  "properties": {
    "parameter": {
      "T2M": {"20240103": 30.0, "20240101": 20.5, "20240102": 25},
      "PRECTOTCORR": {"20240103": 0.0, "20240101": 1.25, "20240102": 3.5},
      "ALLSKY_SFC_SW_DWN": {"20240103": 21.1, "20240101": 18.4, "20240102": -999}
    }
  },
  "messages": []
}`

func TestNASAPowerFetchDaily(t *testing.T) {
	var gotQuery map[string]string
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		gotQuery = map[string]string{}
		for k := range r.URL.Query() {
			gotQuery[k] = r.URL.Query().Get(k)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(powerBody))
	}))
	defer srv.Close()

	p := NewNASAPowerProvider(srv.Client(), srv.URL, "", logger.Discard())
	series, err := p.FetchDaily(context.Background(), weather.Coordinates{Lat: -23.55, Lon: -46.63}, "20240101", "20240103")
	require.NoError(t, err)
	require.EqualValues(t, 1, atomic.LoadInt32(&calls))

	require.Equal(t, "T2M,PRECTOTCORR,ALLSKY_SFC_SW_DWN", gotQuery["parameters"])
	require.Equal(t, "AG", gotQuery["community"])
	require.Equal(t, "-46.630000", gotQuery["longitude"])
	require.Equal(t, "-23.550000", gotQuery["latitude"])
	require.Equal(t, "20240101", gotQuery["start"])
	require.Equal(t, "20240103", gotQuery["end"])
	require.Equal(t, "JSON", gotQuery["format"])

	// Response order is preserved, not re-sorted.
	require.Equal(t, 3, series.Len())
	require.Equal(t, []weather.DatedValue{
		{Date: "20240103", Value: 30},
		{Date: "20240101", Value: 20.5},
		{Date: "20240102", Value: 25},
	}, series.Temperatures())

	precip, ok := series.Days[1].Value(weather.ParamPrecipitation)
	require.True(t, ok)
	require.Equal(t, 1.25, precip)

	fill, ok := series.Days[2].Value(weather.ParamSolar)
	require.True(t, ok)
	require.Equal(t, -999.0, fill)
}

func TestNASAPowerNonSuccessStatus(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnprocessableEntity)
		_ = json.NewEncoder(w).Encode(map[string]any{"messages": []string{"start date after end date"}})
	}))
	defer srv.Close()

	p := NewNASAPowerProvider(srv.Client(), srv.URL, "AG", logger.Discard())
	series, err := p.FetchDaily(context.Background(), weather.Coordinates{}, "20240105", "20240101")
	require.Error(t, err)
	require.Nil(t, series)
	require.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestNASAPowerMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"properties":{"parameter":{"T2M":[1,2,3]}}}`))
	}))
	defer srv.Close()

	p := NewNASAPowerProvider(srv.Client(), srv.URL, "AG", logger.Discard())
	_, err := p.FetchDaily(context.Background(), weather.Coordinates{}, "20240101", "20240102")
	require.Error(t, err)
}

func TestNASAPowerEmptyTemperatureSeries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"properties":{"parameter":{"T2M":{}}}}`))
	}))
	defer srv.Close()

	p := NewNASAPowerProvider(srv.Client(), srv.URL, "AG", logger.Discard())
	series, err := p.FetchDaily(context.Background(), weather.Coordinates{}, "20240101", "20240102")
	require.NoError(t, err)
	require.Equal(t, 0, series.Len())
}

func TestNASAPowerMissingTemperatureSeries(t *testing.T) {
	bodies := map[string]string{
		"empty object":     `{}`,
		"messages only":    `{"messages":["Invalid request"]}`,
		"empty parameters": `{"properties":{"parameter":{}}}`,
		"no T2M":           `{"properties":{"parameter":{"PRECTOTCORR":{"20240101":1.0}}}}`,
	}
	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(body))
			}))
			defer srv.Close()

			p := NewNASAPowerProvider(srv.Client(), srv.URL, "AG", logger.Discard())
			series, err := p.FetchDaily(context.Background(), weather.Coordinates{}, "20240101", "20240102")
			require.ErrorIs(t, err, ErrNoTemperatureSeries)
			require.Nil(t, series)
		})
	}
}

func TestNASAPowerRejectedInputKeepsBreakerClosed(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, `{"messages":["start date is after end date"]}`, http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	p := NewNASAPowerProvider(srv.Client(), srv.URL, "AG", logger.Discard())
	for i := 0; i < 8; i++ {
		_, err := p.FetchDaily(context.Background(), weather.Coordinates{}, "20240105", "20240101")
		require.ErrorIs(t, err, common.ErrUnexpected)
		require.NotErrorIs(t, err, common.ErrCircuitOpen)
	}
	require.EqualValues(t, 8, atomic.LoadInt32(&calls))
}
