package geocode

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/kelvins/geocoder"

	"github.com/i474232898/harvest-advisor/internal/weather"
)

// ErrNoPlaceSelected means the user typed a location without picking a
// geometry-bearing suggestion.
var ErrNoPlaceSelected = errors.New("please select a valid location")

// ErrCoordinatesOutOfRange rejects a latitude outside -90..90 or a longitude
// outside -180..180.
var ErrCoordinatesOutOfRange = errors.New("latitude must be within -90..90 and longitude within -180..180")

// SelectionSource exposes the coordinates of the currently selected place.
type SelectionSource interface {
	CurrentSelection() (weather.Coordinates, bool)
}

// FormSelection is the place picked in the browser autocomplete widget. The page's
// place_changed handler writes the geometry into hidden form fields.
type FormSelection struct {
	PlaceID string
	coords  weather.Coordinates
	ok      bool
}

// NewFormSelection parses the posted lat/lng. Empty, non-numeric or out-of-range
// values leave the selection empty.
func NewFormSelection(placeID, lat, lng string) FormSelection {
	sel := FormSelection{PlaceID: strings.TrimSpace(placeID)}

	la, errLat := strconv.ParseFloat(strings.TrimSpace(lat), 64)
	lo, errLng := strconv.ParseFloat(strings.TrimSpace(lng), 64)
	if errLat != nil || errLng != nil {
		return sel
	}
	if !validCoordinates(la, lo) {
		return sel
	}

	sel.coords = weather.Coordinates{Lat: la, Lon: lo}
	sel.ok = true
	return sel
}

func (f FormSelection) CurrentSelection() (weather.Coordinates, bool) {
	return f.coords, f.ok
}

// NaN fails both comparisons.
func validCoordinates(lat, lon float64) bool {
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

// Fixed is a selection known up front, e.g. coordinates passed on the command line.
type Fixed weather.Coordinates

// NewFixed range-checks coordinates supplied outside the autocomplete widget.
func NewFixed(lat, lon float64) (Fixed, error) {
	if !validCoordinates(lat, lon) {
		return Fixed{}, fmt.Errorf("%w: got %g,%g", ErrCoordinatesOutOfRange, lat, lon)
	}
	return Fixed{Lat: lat, Lon: lon}, nil
}

func (f Fixed) CurrentSelection() (weather.Coordinates, bool) {
	return weather.Coordinates(f), true
}

// GeocoderSource resolves typed addresses with the Google Geocoding API. Select
// plays the role of picking a suggestion; CurrentSelection reports the last
// successful pick.
type GeocoderSource struct {
	mu      sync.RWMutex
	coords  weather.Coordinates
	ok      bool
	geocode func(geocoder.Address) (geocoder.Location, error)
	logger  *slog.Logger
}

// NewGeocoderSource configures the geocoder with a Google Maps API key.
func NewGeocoderSource(apiKey string, logger *slog.Logger) *GeocoderSource {
	geocoder.ApiKey = apiKey
	if logger == nil {
		logger = slog.Default()
	}
	return &GeocoderSource{
		geocode: geocoder.Geocoding,
		logger:  logger.With("component", "geocode.geocoder"),
	}
}

// Select geocodes the address and, on success, makes it the current selection.
// A failed lookup clears any previous selection.
func (g *GeocoderSource) Select(address string) error {
	address = strings.TrimSpace(address)

	g.mu.Lock()
	defer g.mu.Unlock()
	g.ok = false

	if address == "" {
		return ErrNoPlaceSelected
	}

	loc, err := g.geocode(geocoder.Address{City: address})
	if err != nil {
		g.logger.Warn("geocoding failed", "address", address, "error", err)
		return errors.Join(ErrNoPlaceSelected, err)
	}

	g.coords = weather.Coordinates{Lat: loc.Latitude, Lon: loc.Longitude}
	g.ok = true
	g.logger.Debug("place selected", "address", address, "coords", g.coords.String())
	return nil
}

func (g *GeocoderSource) CurrentSelection() (weather.Coordinates, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.coords, g.ok
}
