package weather

import "context"

// Provider abstracts a daily climate data source (e.g. NASA POWER).
type Provider interface {
	Name() string
	FetchDaily(ctx context.Context, coords Coordinates, start, end string) (*ClimateSeries, error)
}
