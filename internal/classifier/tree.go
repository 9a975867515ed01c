package classifier

import (
	"context"
	"errors"
	"fmt"
)

// Node is one entry of a flattened decision tree. Leaves have Left and Right
// set to -1.
type Node struct {
	Feature     int      `json:"feature" yaml:"feature"`
	Threshold   float64  `json:"threshold" yaml:"threshold"`
	Left        int      `json:"left" yaml:"left"`
	Right       int      `json:"right" yaml:"right"`
	Class       int      `json:"class" yaml:"class"`
	Probability *float64 `json:"probability,omitempty" yaml:"probability,omitempty"`
}

func (n Node) leaf() bool { return n.Left < 0 && n.Right < 0 }

// DecisionTree walks from node 0; x[feature] <= threshold goes left.
type DecisionTree struct {
	NFeatures int    `json:"n_features,omitempty" yaml:"n_features,omitempty"`
	Nodes     []Node `json:"nodes" yaml:"nodes"`
}

func (t *DecisionTree) validate() error {
	if len(t.Nodes) == 0 {
		return errors.New("tree has no nodes")
	}
	if t.NFeatures < 0 {
		return fmt.Errorf("negative n_features %d", t.NFeatures)
	}
	return nil
}

func (t *DecisionTree) ExpectedFeatures() int { return t.NFeatures }

func (t *DecisionTree) leaf(features []float64) (Node, error) {
	if err := checkLen(t.NFeatures, features); err != nil {
		return Node{}, err
	}
	idx := 0
	// A well-formed tree visits each node at most once on a path.
	for steps := 0; steps <= len(t.Nodes); steps++ {
		if idx < 0 || idx >= len(t.Nodes) {
			return Node{}, fmt.Errorf("node index %d out of range", idx)
		}
		n := t.Nodes[idx]
		if n.leaf() {
			return n, nil
		}
		if n.Feature < 0 || n.Feature >= len(features) {
			return Node{}, fmt.Errorf("node %d splits on feature %d, vector has %d", idx, n.Feature, len(features))
		}
		if features[n.Feature] <= n.Threshold {
			idx = n.Left
		} else {
			idx = n.Right
		}
	}
	return Node{}, errors.New("tree path exceeds node count")
}

func (t *DecisionTree) Predict(_ context.Context, features []float64) (int, error) {
	n, err := t.leaf(features)
	if err != nil {
		return 0, err
	}
	return n.Class, nil
}

// Probability returns the leaf's P(class 1). Leaves without a recorded
// probability are treated as pure.
func (t *DecisionTree) Probability(_ context.Context, features []float64) (float64, error) {
	n, err := t.leaf(features)
	if err != nil {
		return 0, err
	}
	if n.Probability == nil {
		return float64(n.Class), nil
	}
	p := *n.Probability
	if p < 0 || p > 1 {
		return 0, fmt.Errorf("leaf probability %v outside [0,1]", p)
	}
	return p, nil
}
