package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"
)

const defaultRemoteTimeout = 10 * time.Second

// Remote delegates inference to an HTTP model server.
type Remote struct {
	URL       string   `json:"url" yaml:"url"`
	NFeatures int      `json:"n_features,omitempty" yaml:"n_features,omitempty"`
	Timeout   Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`

	httpClient *http.Client
}

type remoteRequest struct {
	Features []float64 `json:"features"`
}

type remoteResponse struct {
	Label       *int     `json:"label"`
	Probability *float64 `json:"probability,omitempty"`
}

func (r *Remote) validate() error {
	if r.URL == "" {
		return errors.New("remote model requires url")
	}
	timeout := time.Duration(r.Timeout)
	if timeout <= 0 {
		timeout = defaultRemoteTimeout
	}
	r.httpClient = &http.Client{Timeout: timeout}
	return nil
}

func (r *Remote) ExpectedFeatures() int { return r.NFeatures }

func (r *Remote) Predict(ctx context.Context, features []float64) (int, error) {
	resp, err := r.call(ctx, features)
	if err != nil {
		return 0, err
	}
	return *resp.Label, nil
}

// Evaluate issues a single request for both label and probability.
func (r *Remote) Evaluate(ctx context.Context, features []float64) (Outcome, error) {
	resp, err := r.call(ctx, features)
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{Class: *resp.Label, Probability: resp.Probability}, nil
}

// Probability fails when the server does not return one.
func (r *Remote) Probability(ctx context.Context, features []float64) (float64, error) {
	resp, err := r.call(ctx, features)
	if err != nil {
		return 0, err
	}
	if resp.Probability == nil {
		return 0, errors.New("model server returned no probability")
	}
	return *resp.Probability, nil
}

func (r *Remote) call(ctx context.Context, features []float64) (*remoteResponse, error) {
	if err := checkLen(r.NFeatures, features); err != nil {
		return nil, err
	}

	jsonData, err := json.Marshal(remoteRequest{Features: features})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.URL, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("model server returned status %d: %s", resp.StatusCode, string(body))
	}

	var result remoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if result.Label == nil {
		return nil, errors.New("model server response has no label")
	}
	if p := result.Probability; p != nil && (math.IsNaN(*p) || *p < 0 || *p > 1) {
		return nil, fmt.Errorf("model server probability %v outside [0,1]", *p)
	}
	return &result, nil
}

// Duration accepts Go duration strings ("2s") in artifacts and config.
type Duration time.Duration

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("duration must be a string: %w", err)
	}
	return d.parse(s)
}

func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	return d.parse(s)
}

func (d *Duration) parse(s string) error {
	if s == "" {
		*d = 0
		return nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}
