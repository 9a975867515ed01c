// Package history keeps an optional audit trail of served predictions.
package history

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Skufu/diagnosis-dispatcher/internal/diagnosis"
)

// Entry is one recorded prediction.
type Entry struct {
	ID         string             `json:"id"`
	Category   string             `json:"category"`
	Class      int                `json:"class"`
	Label      string             `json:"label"`
	Confidence *float64           `json:"confidence,omitempty"`
	Inputs     map[string]float64 `json:"inputs"`
	CreatedAt  time.Time          `json:"created_at"`
}

// Store persists entries. Implementations are safe for concurrent use.
type Store interface {
	Record(ctx context.Context, e Entry) error
	Recent(ctx context.Context, limit int) ([]Entry, error)
	Ping(ctx context.Context) error
	Close()
}

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	MaxLimit = 500
)

// Open connects to the store selected by driver.
func Open(ctx context.Context, driver, url string) (Store, error) {
	switch driver {
	case DriverPostgres:
		return NewPostgresStore(ctx, url)
	case DriverSQLite, "":
		return NewSQLiteStore(ctx, url)
	default:
		return nil, fmt.Errorf("unknown history driver %q", driver)
	}
}

func FromResult(res *diagnosis.PredictionResult) Entry {
	return Entry{
		ID:         res.ID,
		Category:   res.Category,
		Class:      res.Class,
		Label:      res.Label,
		Confidence: res.Confidence,
		Inputs:     res.Inputs,
		CreatedAt:  res.CreatedAt,
	}
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return 50
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

func encodeInputs(in map[string]float64) (string, error) {
	if in == nil {
		in = map[string]float64{}
	}
	b, err := json.Marshal(in)
	if err != nil {
		return "", fmt.Errorf("encode inputs: %w", err)
	}
	return string(b), nil
}

func decodeInputs(s string) (map[string]float64, error) {
	out := map[string]float64{}
	if s == "" {
		return out, nil
	}
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil, fmt.Errorf("decode inputs: %w", err)
	}
	return out, nil
}
