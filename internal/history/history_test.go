package history

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skufu/diagnosis-dispatcher/internal/diagnosis"
)

func exerciseStore(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, store.Ping(ctx))

	conf := 0.8
	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.Record(ctx, Entry{
		ID: "older", Category: "diabetes", Class: 0, Label: "Negative (Non-Diabetic)",
		Inputs: map[string]float64{"Glucose": 90}, CreatedAt: base,
	}))
	require.NoError(t, store.Record(ctx, Entry{
		ID: "newer", Category: "heart", Class: 1, Label: "Positive (Heart Disease)",
		Confidence: &conf, Inputs: map[string]float64{"Age": 64, "STDepression": 2.5}, CreatedAt: base.Add(time.Minute),
	}))

	entries, err := store.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "newer", entries[0].ID)
	assert.Equal(t, 1, entries[0].Class)
	require.NotNil(t, entries[0].Confidence)
	assert.InDelta(t, 0.8, *entries[0].Confidence, 1e-9)
	assert.Equal(t, 2.5, entries[0].Inputs["STDepression"])
	assert.True(t, entries[0].CreatedAt.Equal(base.Add(time.Minute)))

	assert.Equal(t, "older", entries[1].ID)
	assert.Nil(t, entries[1].Confidence)

	limited, err := store.Recent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "newer", limited[0].ID)

	err = store.Record(ctx, Entry{ID: "older", Category: "diabetes", CreatedAt: base})
	assert.Error(t, err, "duplicate id must be rejected")
}

func TestSQLiteStore(t *testing.T) {
	store, err := Open(context.Background(), DriverSQLite, filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	defer store.Close()

	exerciseStore(t, store)
}

func TestPostgresStore(t *testing.T) {
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	store, err := NewPostgresStore(ctx, url)
	require.NoError(t, err)
	defer store.Close()

	_, err = store.pool.Exec(ctx, "TRUNCATE predictions")
	require.NoError(t, err)

	exerciseStore(t, store)
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), "mongo", "")
	assert.ErrorContains(t, err, "unknown history driver")
}

func TestFromResult(t *testing.T) {
	conf := 0.6
	res := &diagnosis.PredictionResult{
		ID: "id-1", Category: "thyroid", Class: 1, Label: "Positive (Hypo-Thyroid)",
		Confidence: &conf, Inputs: map[string]float64{"TSH": 12},
		CreatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	e := FromResult(res)
	assert.Equal(t, "id-1", e.ID)
	assert.Equal(t, "thyroid", e.Category)
	assert.Equal(t, 12.0, e.Inputs["TSH"])
	assert.Equal(t, res.CreatedAt, e.CreatedAt)
}

func TestClampLimit(t *testing.T) {
	assert.Equal(t, 50, clampLimit(0))
	assert.Equal(t, 7, clampLimit(7))
	assert.Equal(t, MaxLimit, clampLimit(10_000))
}
