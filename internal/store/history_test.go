package store

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/i474232898/harvest-advisor/internal/harvest"
	"github.com/i474232898/harvest-advisor/internal/logger"
)

func record(i int) harvest.QueryRecord {
	date := fmt.Sprintf("202401%02d", i+1)
	return harvest.QueryRecord{
		ID:        fmt.Sprintf("rec-%d", i),
		CropType:  "soja",
		Location:  "Sorriso, MT",
		StartDate: "20240101",
		EndDate:   "20240131",
		BestHarvestDate: harvest.ScoreResult{
			Date:   &date,
			Reason: "Average temperature of 25°C, ideal for harvest.",
		},
		CreatedAt: time.Date(2024, 2, 1, 12, i, 0, 0, time.UTC),
	}
}

func TestHistoryAppendKeepsOrder(t *testing.T) {
	ctx := context.Background()
	h := NewHistory(NewMemoryKV(), logger.Discard())

	const n = 5
	for i := 0; i < n; i++ {
		require.NoError(t, h.Append(ctx, record(i)))
	}

	list, err := h.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, n)
	for i, rec := range list {
		require.Equal(t, fmt.Sprintf("rec-%d", i), rec.ID)
		require.Equal(t, fmt.Sprintf("202401%02d", i+1), *rec.BestHarvestDate.Date)
	}
}

func TestHistoryCorruptedValueStartsEmpty(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	require.NoError(t, kv.Set(ctx, HistoryKey, "{not json"))

	h := NewHistory(kv, logger.Discard())
	list, err := h.List(ctx)
	require.NoError(t, err)
	require.Empty(t, list)

	require.NoError(t, h.Append(ctx, record(0)))
	list, err = h.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, "rec-0", list[0].ID)
}

func TestHistoryNonListValueStartsEmpty(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	require.NoError(t, kv.Set(ctx, HistoryKey, `{"cropType":"soja"}`))

	h := NewHistory(kv, logger.Discard())
	require.NoError(t, h.Append(ctx, record(1)))

	raw, ok, err := kv.Get(ctx, HistoryKey)
	require.NoError(t, err)
	require.True(t, ok)

	var stored []map[string]any
	require.NoError(t, json.Unmarshal([]byte(raw), &stored))
	require.Len(t, stored, 1)
	require.Equal(t, "rec-1", stored[0]["id"])
}

func TestHistoryStoredShape(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	h := NewHistory(kv, logger.Discard())

	minT, maxT := 20.0, 30.0
	rec := record(0)
	rec.MinTemp, rec.MaxTemp = &minT, &maxT
	require.NoError(t, h.Append(ctx, rec))

	raw, _, err := kv.Get(ctx, HistoryKey)
	require.NoError(t, err)

	var stored []map[string]any
	require.NoError(t, json.Unmarshal([]byte(raw), &stored))
	require.Len(t, stored, 1)
	require.Equal(t, "soja", stored[0]["cropType"])
	require.Equal(t, 20.0, stored[0]["minTemp"])
	best := stored[0]["bestHarvestDate"].(map[string]any)
	require.Equal(t, "20240101", best["date"])
	require.Equal(t, "Average temperature of 25°C, ideal for harvest.", best["reason"])
}

func TestHistoryKeepsForeignEntries(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	require.NoError(t, kv.Set(ctx, HistoryKey, `[{"cropType":"milho","bestHarvestDate":{"date":null,"reason":""}}, 42]`))

	h := NewHistory(kv, logger.Discard())
	require.NoError(t, h.Append(ctx, record(2)))

	raw, _, err := kv.Get(ctx, HistoryKey)
	require.NoError(t, err)
	var stored []json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(raw), &stored))
	require.Len(t, stored, 3)
	require.JSONEq(t, "42", string(stored[1]))

	list, err := h.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Nil(t, list[0].BestHarvestDate.Date)
	require.Equal(t, "rec-2", list[1].ID)
}

func TestSQLiteHistoryPersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "history.db")

	kv, err := NewSQLiteKV(path, logger.Discard())
	require.NoError(t, err)
	h := NewHistory(kv, logger.Discard())
	for i := 0; i < 3; i++ {
		require.NoError(t, h.Append(ctx, record(i)))
	}
	require.NoError(t, kv.Checkpoint(ctx))
	require.NoError(t, kv.Close())

	kv, err = NewSQLiteKV(path, logger.Discard())
	require.NoError(t, err)
	defer kv.Close()

	list, err := NewHistory(kv, logger.Discard()).List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	require.Equal(t, "rec-0", list[0].ID)
	require.Equal(t, "rec-2", list[2].ID)
	require.True(t, list[1].CreatedAt.Equal(record(1).CreatedAt))
}

func TestSQLiteKVGetMissing(t *testing.T) {
	kv, err := NewSQLiteKV(filepath.Join(t.TempDir(), "kv.db"), logger.Discard())
	require.NoError(t, err)
	defer kv.Close()

	_, ok, err := kv.Get(context.Background(), "absent")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, kv.Set(context.Background(), "k", "v1"))
	require.NoError(t, kv.Set(context.Background(), "k", "v2"))
	v, ok, err := kv.Get(context.Background(), "k")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "v2", v)
}
