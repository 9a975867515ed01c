package diagnosis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Skufu/diagnosis-dispatcher/internal/classifier"
)

// PredictionResult is the outcome of one dispatch call.
type PredictionResult struct {
	ID         string             `json:"id"`
	Category   string             `json:"category"`
	Inputs     map[string]float64 `json:"inputs,omitempty"`
	Vector     []float64          `json:"vector"`
	Class      int                `json:"class"`
	Label      string             `json:"label"`
	Positive   bool               `json:"positive"`
	Confidence *float64           `json:"confidence,omitempty"`
	CreatedAt  time.Time          `json:"created_at"`
}

// Description is the read-only view of a category handed to form builders.
type Description struct {
	CategorySpec
	Available        bool `json:"available"`
	ExpectedFeatures int  `json:"expected_features"`
}

// Dispatcher validates inputs and invokes the classifier bound to a
// category. It holds no mutable state.
type Dispatcher struct {
	registry *Registry
	timeout  time.Duration
	now      func() time.Time
	newID    func() string
}

type DispatcherOption func(*Dispatcher)

// WithTimeout bounds each classifier invocation. Zero disables the bound.
func WithTimeout(d time.Duration) DispatcherOption {
	return func(disp *Dispatcher) { disp.timeout = d }
}

func WithClock(now func() time.Time) DispatcherOption {
	return func(disp *Dispatcher) { disp.now = now }
}

func NewDispatcher(registry *Registry, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		registry: registry,
		timeout:  5 * time.Second,
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Dispatcher) Registry() *Registry { return d.registry }

func (d *Dispatcher) Describe(key string) (Description, error) {
	e, err := d.registry.lookup(key)
	if err != nil {
		return Description{}, err
	}
	return describe(e), nil
}

// Categories describes every category in catalog order.
func (d *Dispatcher) Categories() []Description {
	out := make([]Description, 0, len(d.registry.order))
	for _, key := range d.registry.order {
		out = append(out, describe(d.registry.entries[key]))
	}
	return out
}

func describe(e *entry) Description {
	spec := e.spec
	spec.Fields = append([]FieldSpec(nil), spec.Fields...)
	desc := Description{CategorySpec: spec, Available: e.model != nil, ExpectedFeatures: len(spec.Fields)}
	if e.model != nil {
		if n := classifier.ExpectedFeatures(e.model); n > 0 {
			desc.ExpectedFeatures = n
		}
	}
	return desc
}

// Validate projects values onto the category's field order. Every field is
// required; extra keys are ignored.
func (d *Dispatcher) Validate(key string, values map[string]any) ([]float64, error) {
	e, err := d.registry.lookup(key)
	if err != nil {
		return nil, err
	}
	vector := make([]float64, len(e.spec.Fields))
	for i, f := range e.spec.Fields {
		raw, ok := values[f.Name]
		if !ok || raw == nil {
			return nil, &ValidationError{Field: f.Name, Reason: "is required"}
		}
		v, err := coerce(f, raw)
		if err != nil {
			return nil, err
		}
		vector[i] = v
	}
	return vector, nil
}

func coerce(f FieldSpec, raw any) (float64, error) {
	v, err := toFloat(raw)
	if err != nil {
		return 0, &ValidationError{Field: f.Name, Reason: err.Error()}
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, &ValidationError{Field: f.Name, Reason: "must be a finite number"}
	}
	if f.Type == Integer && v != math.Trunc(v) {
		return 0, &ValidationError{Field: f.Name, Reason: "must be a whole number"}
	}
	if v < f.Min || v > f.Max {
		return 0, &ValidationError{
			Field:  f.Name,
			Reason: fmt.Sprintf("must be between %s and %s", formatNumber(f.Min), formatNumber(f.Max)),
		}
	}
	return v, nil
}

func toFloat(raw any) (float64, error) {
	switch v := raw.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case uint:
		return float64(v), nil
	case uint32:
		return float64(v), nil
	case uint64:
		return float64(v), nil
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0, errors.New("is not a number")
		}
		return f, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, errors.New("is not a number")
		}
		return f, nil
	default:
		return 0, fmt.Errorf("has unsupported type %T", raw)
	}
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// Predict runs the category's classifier on vector. The model's own feature
// count, when it exposes one, takes precedence over the declared fields.
func (d *Dispatcher) Predict(ctx context.Context, key string, vector []float64) (*PredictionResult, error) {
	e, err := d.registry.lookup(key)
	if err != nil {
		return nil, &UnavailableModelError{Category: key, Err: err}
	}
	if e.model == nil {
		return nil, unavailable(key, e)
	}

	expected := classifier.ExpectedFeatures(e.model)
	if expected <= 0 {
		expected = len(e.spec.Fields)
	}
	if len(vector) != expected {
		return nil, &ShapeMismatchError{Expected: expected, Actual: len(vector)}
	}

	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	input := append([]float64(nil), vector...)
	out, err := classifier.Evaluate(ctx, e.model, input)
	if err != nil {
		return nil, &InferenceError{Category: key, Err: err}
	}
	if out.Class != 0 && out.Class != 1 {
		return nil, &InferenceError{Category: key, Err: fmt.Errorf("classifier returned label %d", out.Class)}
	}

	res := &PredictionResult{
		ID:        d.newID(),
		Category:  key,
		Vector:    append([]float64(nil), vector...),
		Class:     out.Class,
		Label:     e.spec.Labels.For(out.Class),
		Positive:  out.Class == 1,
		CreatedAt: d.now().UTC(),
	}
	if out.Probability != nil {
		c := *out.Probability
		if out.Class == 0 {
			c = 1 - c
		}
		res.Confidence = &c
	}
	return res, nil
}

func unavailable(key string, e *entry) error {
	var cause error
	if e.loadErr != nil {
		cause = e.loadErr
	}
	return &UnavailableModelError{Category: key, Err: cause}
}

// Diagnose validates values and predicts, echoing the named inputs. A
// category without a model fails as unavailable before its inputs are
// checked.
func (d *Dispatcher) Diagnose(ctx context.Context, key string, values map[string]any) (*PredictionResult, error) {
	e, err := d.registry.lookup(key)
	if err != nil {
		return nil, err
	}
	if e.model == nil {
		return nil, unavailable(key, e)
	}
	vector, err := d.Validate(key, values)
	if err != nil {
		return nil, err
	}
	res, err := d.Predict(ctx, key, vector)
	if err != nil {
		return nil, err
	}
	res.Inputs = make(map[string]float64, len(e.spec.Fields))
	for i, f := range e.spec.Fields {
		res.Inputs[f.Name] = vector[i]
	}
	return res, nil
}
