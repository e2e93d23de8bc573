package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/i474232898/harvest-advisor/internal/config"
	"github.com/i474232898/harvest-advisor/internal/cropinfo"
	"github.com/i474232898/harvest-advisor/internal/harvest"
	"github.com/i474232898/harvest-advisor/internal/render"
	"github.com/i474232898/harvest-advisor/internal/scheduler"
	"github.com/i474232898/harvest-advisor/internal/store"
	"github.com/i474232898/harvest-advisor/internal/weather/providers"
)

// App holds the components shared by the server and the CLI.
type App struct {
	Config   *config.AppConfig
	Planner  *harvest.Service
	History  *store.History
	Renderer *render.Renderer
	Guide    *cropinfo.Guide

	kv     store.KV
	logger *slog.Logger
}

// Build wires the planning pipeline from configuration.
func Build(cfg *config.AppConfig, logger *slog.Logger) (*App, error) {
	// Shared HTTP client for outbound calls.
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}

	kv, err := openKV(cfg.HistoryDBPath, logger)
	if err != nil {
		return nil, err
	}

	renderer, err := render.New()
	if err != nil {
		kv.Close()
		return nil, err
	}
	guide, err := cropinfo.LoadGuide()
	if err != nil {
		kv.Close()
		return nil, err
	}

	climate := providers.NewNASAPowerProvider(httpClient, cfg.PowerBaseURL, cfg.PowerCommunity, logger)

	var crops harvest.CropSearcher
	if cfg.SearchEnabled() {
		crops = cropinfo.NewSearchClient(httpClient, cfg.SearchBaseURL, cfg.SearchAPIKey, cfg.SearchEngineID, logger)
	} else {
		logger.Warn("crop search disabled: SEARCH_API_KEY or SEARCH_ENGINE_ID not set")
	}

	history := store.NewHistory(kv, logger)

	return &App{
		Config:   cfg,
		Planner:  harvest.NewService(climate, crops, history, renderer, cfg.IdealTemperature, logger),
		History:  history,
		Renderer: renderer,
		Guide:    guide,
		kv:       kv,
		logger:   logger,
	}, nil
}

func openKV(path string, logger *slog.Logger) (store.KV, error) {
	if path == "" {
		logger.Info("history kept in memory")
		return store.NewMemoryKV(), nil
	}
	kv, err := store.NewSQLiteKV(path, logger)
	if err != nil {
		return nil, fmt.Errorf("open history store: %w", err)
	}
	logger.Info("history stored in sqlite", "path", path)
	return kv, nil
}

// MaintenanceTasks lists the periodic jobs for the configured backends.
func (a *App) MaintenanceTasks() []scheduler.Task {
	cp, ok := a.kv.(interface {
		Checkpoint(ctx context.Context) error
	})
	if !ok {
		return nil
	}
	return []scheduler.Task{{Name: "history-wal-checkpoint", Run: cp.Checkpoint}}
}

// Close releases the history store.
func (a *App) Close() error {
	return a.kv.Close()
}
