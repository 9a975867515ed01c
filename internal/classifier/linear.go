package classifier

import (
	"context"
	"errors"
	"fmt"
	"math"
)

// Scaler standardizes inputs as (x - mean) / scale before the linear term.
type Scaler struct {
	Mean  []float64 `json:"mean" yaml:"mean"`
	Scale []float64 `json:"scale" yaml:"scale"`
}

func (s *Scaler) validate(n int) error {
	if s == nil {
		return nil
	}
	if len(s.Mean) != n || len(s.Scale) != n {
		return fmt.Errorf("scaler expects %d mean/scale entries, got %d/%d", n, len(s.Mean), len(s.Scale))
	}
	for i, v := range s.Scale {
		if v == 0 {
			return fmt.Errorf("scaler: zero scale at index %d", i)
		}
	}
	return nil
}

// LinearModel holds the parameters shared by logistic regression and the
// linear SVM.
type LinearModel struct {
	Weights   []float64 `json:"weights" yaml:"weights"`
	Intercept float64   `json:"intercept" yaml:"intercept"`
	Scaler    *Scaler   `json:"scaler,omitempty" yaml:"scaler,omitempty"`
}

func (m *LinearModel) validate() error {
	if len(m.Weights) == 0 {
		return errors.New("weights must not be empty")
	}
	return m.Scaler.validate(len(m.Weights))
}

func (m *LinearModel) decision(features []float64) (float64, error) {
	if err := checkLen(len(m.Weights), features); err != nil {
		return 0, err
	}
	z := m.Intercept
	for i, w := range m.Weights {
		x := features[i]
		if m.Scaler != nil {
			x = (x - m.Scaler.Mean[i]) / m.Scaler.Scale[i]
		}
		z += w * x
	}
	if math.IsNaN(z) || math.IsInf(z, 0) {
		return 0, fmt.Errorf("non-finite decision value %v", z)
	}
	return z, nil
}

func (m *LinearModel) ExpectedFeatures() int { return len(m.Weights) }

// Logistic is a fitted logistic regression.
type Logistic struct {
	LinearModel `yaml:",inline"`
	Threshold   float64 `json:"threshold,omitempty" yaml:"threshold,omitempty"`
}

func (l *Logistic) validate() error {
	if l.Threshold == 0 {
		l.Threshold = 0.5
	}
	if l.Threshold <= 0 || l.Threshold >= 1 {
		return fmt.Errorf("threshold %v outside (0,1)", l.Threshold)
	}
	return l.LinearModel.validate()
}

func (l *Logistic) Probability(_ context.Context, features []float64) (float64, error) {
	z, err := l.decision(features)
	if err != nil {
		return 0, err
	}
	return 1 / (1 + math.Exp(-z)), nil
}

func (l *Logistic) Predict(ctx context.Context, features []float64) (int, error) {
	p, err := l.Probability(ctx, features)
	if err != nil {
		return 0, err
	}
	if p >= l.Threshold {
		return 1, nil
	}
	return 0, nil
}

// LinearSVM predicts class 1 when the decision value is non-negative.
type LinearSVM struct {
	LinearModel `yaml:",inline"`
}

func (s *LinearSVM) Predict(_ context.Context, features []float64) (int, error) {
	z, err := s.decision(features)
	if err != nil {
		return 0, err
	}
	if z >= 0 {
		return 1, nil
	}
	return 0, nil
}
