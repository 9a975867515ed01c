package diagnosis

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/Skufu/diagnosis-dispatcher/internal/classifier"
)

// Loader resolves an artifact reference to a classifier.
type Loader interface {
	Load(ctx context.Context, path string) (classifier.Classifier, error)
}

type entry struct {
	spec    CategorySpec
	model   classifier.Classifier
	loadErr *ArtifactLoadError
}

// Registry binds categories to loaded classifiers. It is immutable after
// NewRegistry returns and safe for concurrent use.
type Registry struct {
	order   []string
	entries map[string]*entry
}

// CategoryStatus reports whether a category can serve predictions.
type CategoryStatus struct {
	Key       string `json:"key"`
	Available bool   `json:"available"`
	Error     string `json:"error,omitempty"`
}

// NewRegistry loads one artifact per category. A category whose artifact is
// missing or invalid is kept but marked unavailable; only a malformed
// catalog fails construction. overrides replaces a category's artifact path
// by key.
func NewRegistry(ctx context.Context, catalog []CategorySpec, loader Loader, overrides map[string]string, logger *zap.Logger) (*Registry, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Registry{entries: make(map[string]*entry, len(catalog))}

	for _, spec := range catalog {
		if err := spec.check(); err != nil {
			return nil, fmt.Errorf("invalid catalog: %w", err)
		}
		if _, dup := r.entries[spec.Key]; dup {
			return nil, fmt.Errorf("invalid catalog: duplicate category %q", spec.Key)
		}
		if p, ok := overrides[spec.Key]; ok && p != "" {
			spec.Artifact = p
		}
		spec.Fields = append([]FieldSpec(nil), spec.Fields...)

		e := &entry{spec: spec}
		model, err := loader.Load(ctx, spec.Artifact)
		if err != nil {
			e.loadErr = &ArtifactLoadError{Category: spec.Key, Path: spec.Artifact, Err: err}
			logger.Warn("Model unavailable",
				zap.String("category", spec.Key),
				zap.String("artifact", spec.Artifact),
				zap.Error(err))
		} else {
			e.model = model
			logger.Info("Model loaded",
				zap.String("category", spec.Key),
				zap.String("artifact", spec.Artifact),
				zap.Int("expected_features", classifier.ExpectedFeatures(model)))
			if n := classifier.ExpectedFeatures(model); n > 0 && n != len(spec.Fields) {
				logger.Warn("Model feature count differs from declared fields",
					zap.String("category", spec.Key),
					zap.Int("model", n),
					zap.Int("fields", len(spec.Fields)))
			}
		}

		r.order = append(r.order, spec.Key)
		r.entries[spec.Key] = e
	}

	return r, nil
}

// Keys returns category keys in catalog order.
func (r *Registry) Keys() []string {
	return append([]string(nil), r.order...)
}

func (r *Registry) Status() []CategoryStatus {
	out := make([]CategoryStatus, 0, len(r.order))
	for _, key := range r.order {
		e := r.entries[key]
		st := CategoryStatus{Key: key, Available: e.model != nil}
		if e.loadErr != nil {
			st.Error = e.loadErr.Error()
		}
		out = append(out, st)
	}
	return out
}

// AvailableCount is the number of categories with a loaded classifier.
func (r *Registry) AvailableCount() int {
	n := 0
	for _, e := range r.entries {
		if e.model != nil {
			n++
		}
	}
	return n
}

func (r *Registry) lookup(key string) (*entry, error) {
	e, ok := r.entries[key]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCategory, key)
	}
	return e, nil
}
