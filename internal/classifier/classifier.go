package classifier

import (
	"context"
	"errors"
	"fmt"
)

// Classifier is a binary decision model. Predict returns 0 or 1.
type Classifier interface {
	Predict(ctx context.Context, features []float64) (int, error)
}

// FeatureCounter is implemented by classifiers that know how many features
// they were fitted on. Zero means the model does not expose a count.
type FeatureCounter interface {
	ExpectedFeatures() int
}

// Probabilistic is implemented by classifiers that can report P(class 1).
type Probabilistic interface {
	Probability(ctx context.Context, features []float64) (float64, error)
}

var ErrFeatureCount = errors.New("feature count mismatch")

// ExpectedFeatures returns the count c exposes, or 0.
func ExpectedFeatures(c Classifier) int {
	if fc, ok := c.(FeatureCounter); ok {
		return fc.ExpectedFeatures()
	}
	return 0
}

func checkLen(want int, features []float64) error {
	if want > 0 && len(features) != want {
		return fmt.Errorf("%w: model expects %d, got %d", ErrFeatureCount, want, len(features))
	}
	return nil
}

// Outcome is a predicted class with its P(class 1) when the model reports one.
type Outcome struct {
	Class       int
	Probability *float64
}

// Evaluator is implemented by classifiers that produce class and
// probability in a single call.
type Evaluator interface {
	Evaluate(ctx context.Context, features []float64) (Outcome, error)
}

// Evaluate runs c once for its class and, when supported, its probability.
func Evaluate(ctx context.Context, c Classifier, features []float64) (Outcome, error) {
	if ev, ok := c.(Evaluator); ok {
		return ev.Evaluate(ctx, features)
	}
	class, err := c.Predict(ctx, features)
	if err != nil {
		return Outcome{}, err
	}
	out := Outcome{Class: class}
	if pc, ok := c.(Probabilistic); ok {
		p, err := pc.Probability(ctx, features)
		if err != nil {
			return Outcome{}, fmt.Errorf("probability: %w", err)
		}
		out.Probability = &p
	}
	return out, nil
}
