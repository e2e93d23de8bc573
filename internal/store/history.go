package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/i474232898/harvest-advisor/internal/harvest"
)

// HistoryKey is the storage key holding the JSON list of query records.
const HistoryKey = "history"

// History is the append-only list of submitted queries kept under one KV key.
// Appends are read-modify-write without locking; concurrent writers may lose
// updates.
type History struct {
	kv     KV
	key    string
	logger *slog.Logger
}

// NewHistory wraps kv. The list lives under HistoryKey.
func NewHistory(kv KV, logger *slog.Logger) *History {
	if logger == nil {
		logger = slog.Default()
	}
	return &History{kv: kv, key: HistoryKey, logger: logger.With("component", "store.history")}
}

// Append reads the stored list, adds rec at the end and rewrites the list.
// A missing or unparsable stored value counts as an empty list.
func (h *History) Append(ctx context.Context, rec harvest.QueryRecord) error {
	entries, err := h.load(ctx)
	if err != nil {
		return err
	}

	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode history record: %w", err)
	}
	entries = append(entries, raw)

	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}
	if err := h.kv.Set(ctx, h.key, string(data)); err != nil {
		return fmt.Errorf("write history: %w", err)
	}
	return nil
}

// List returns the stored records in submission order. Entries that do not
// decode as records are skipped.
func (h *History) List(ctx context.Context) ([]harvest.QueryRecord, error) {
	entries, err := h.load(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]harvest.QueryRecord, 0, len(entries))
	for i, raw := range entries {
		var rec harvest.QueryRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			h.logger.Debug("skipping history entry", "index", i, "error", err)
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

// load keeps entries as raw JSON so records written by other versions survive
// a rewrite untouched.
func (h *History) load(ctx context.Context) ([]json.RawMessage, error) {
	value, ok, err := h.kv.Get(ctx, h.key)
	if err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}
	if !ok {
		return nil, nil
	}

	var entries []json.RawMessage
	if err := json.Unmarshal([]byte(value), &entries); err != nil {
		h.logger.Warn("stored history is not a JSON list, starting over", "error", err)
		return nil, nil
	}
	return entries, nil
}
