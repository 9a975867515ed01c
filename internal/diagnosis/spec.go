package diagnosis

import "fmt"

// NumericType is the declared type of a field value.
type NumericType string

const (
	Integer NumericType = "integer"
	Real    NumericType = "real"
)

// FieldSpec declares one input of a category.
type FieldSpec struct {
	Name    string      `json:"name"`
	Label   string      `json:"label"`
	Type    NumericType `json:"type"`
	Min     float64     `json:"min"`
	Max     float64     `json:"max"`
	Default float64     `json:"default"`
	// Options names discrete values for select-style inputs.
	Options []Option `json:"options,omitempty"`
}

type Option struct {
	Value float64 `json:"value"`
	Label string  `json:"label"`
}

// Labels maps predicted class to display text.
type Labels struct {
	Negative string `json:"negative"`
	Positive string `json:"positive"`
}

func (l Labels) For(class int) string {
	if class == 1 {
		return l.Positive
	}
	return l.Negative
}

// CategorySpec describes one disease category. Field order determines the
// position of each value in the classifier's input vector.
type CategorySpec struct {
	Key      string      `json:"key"`
	Title    string      `json:"title"`
	Artifact string      `json:"-"`
	Fields   []FieldSpec `json:"fields"`
	Labels   Labels      `json:"labels"`
}

func (c CategorySpec) field(name string) (FieldSpec, bool) {
	for _, f := range c.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldSpec{}, false
}

func (c CategorySpec) check() error {
	if c.Key == "" {
		return fmt.Errorf("category with empty key")
	}
	if len(c.Fields) == 0 {
		return fmt.Errorf("category %q has no fields", c.Key)
	}
	seen := make(map[string]bool, len(c.Fields))
	for _, f := range c.Fields {
		if seen[f.Name] {
			return fmt.Errorf("category %q: duplicate field %q", c.Key, f.Name)
		}
		seen[f.Name] = true
		if f.Min > f.Max {
			return fmt.Errorf("category %q: field %q has min > max", c.Key, f.Name)
		}
		if f.Type != Integer && f.Type != Real {
			return fmt.Errorf("category %q: field %q has unknown type %q", c.Key, f.Name, f.Type)
		}
	}
	return nil
}
