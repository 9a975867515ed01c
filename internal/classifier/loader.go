package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Model kinds accepted in artifact files.
const (
	KindLogistic     = "logistic"
	KindLinearSVM    = "linear_svm"
	KindDecisionTree = "decision_tree"
	KindRemote       = "remote"
)

type envelope struct {
	Kind string `json:"kind" yaml:"kind"`
}

// FileLoader reads model artifacts from disk. Relative paths resolve
// against Dir.
type FileLoader struct {
	Dir string
}

func NewFileLoader(dir string) *FileLoader {
	return &FileLoader{Dir: dir}
}

// Load reads and decodes the artifact at path. A missing file yields an
// error matching fs.ErrNotExist.
func (l *FileLoader) Load(ctx context.Context, path string) (Classifier, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !filepath.IsAbs(path) && l.Dir != "" {
		path = filepath.Join(l.Dir, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read artifact: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yml", ".yaml":
		return Decode(data, yaml.Unmarshal)
	default:
		return Decode(data, json.Unmarshal)
	}
}

// Decode builds a classifier from an artifact body using unmarshal for the
// given encoding.
func Decode(data []byte, unmarshal func([]byte, any) error) (Classifier, error) {
	var env envelope
	if err := unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode artifact: %w", err)
	}

	var (
		model    Classifier
		validate func() error
	)
	switch env.Kind {
	case KindLogistic:
		m := &Logistic{}
		model, validate = m, m.validate
	case KindLinearSVM:
		m := &LinearSVM{}
		model, validate = m, m.LinearModel.validate
	case KindDecisionTree:
		m := &DecisionTree{}
		model, validate = m, m.validate
	case KindRemote:
		m := &Remote{}
		model, validate = m, m.validate
	case "":
		return nil, fmt.Errorf("decode artifact: missing kind")
	default:
		return nil, fmt.Errorf("decode artifact: unknown kind %q", env.Kind)
	}

	if err := unmarshal(data, model); err != nil {
		return nil, fmt.Errorf("decode %s artifact: %w", env.Kind, err)
	}
	if err := validate(); err != nil {
		return nil, fmt.Errorf("invalid %s artifact: %w", env.Kind, err)
	}
	return model, nil
}
