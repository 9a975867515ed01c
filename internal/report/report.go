// Package report renders prediction results as downloadable plain text.
package report

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"text/template"
	"time"

	"github.com/Skufu/diagnosis-dispatcher/internal/diagnosis"
)

const disclaimer = "This report is generated by a screening model and is not a medical diagnosis. Consult a qualified clinician."

// HealthScore is a 0-100 heuristic where higher is healthier. It uses the
// model's confidence when available and fixed scores otherwise.
func HealthScore(res *diagnosis.PredictionResult) int {
	if res.Confidence == nil {
		if res.Positive {
			return 30
		}
		return 80
	}
	pNegative := *res.Confidence
	if res.Positive {
		pNegative = 1 - pNegative
	}
	return int(math.Round(math.Max(0, math.Min(1, pNegative)) * 100))
}

type line struct {
	Label string
	Value string
}

type view struct {
	Title       string
	GeneratedAt string
	ID          string
	Inputs      []line
	Result      string
	Confidence  string
	HealthScore int
	Disclaimer  string
}

var tmpl = template.Must(template.New("report").Parse(`{{.Title}} Report
Generated: {{.GeneratedAt}}
Prediction ID: {{.ID}}

Inputs
{{range .Inputs}}  {{.Label}}: {{.Value}}
{{end}}
Result: {{.Result}}
Confidence: {{.Confidence}}
Health score: {{.HealthScore}}/100

{{.Disclaimer}}
`))

// Render formats res using desc for field labels and order. Values come
// from res.Inputs when present and from res.Vector otherwise.
func Render(desc diagnosis.Description, res *diagnosis.PredictionResult, now time.Time) (string, error) {
	v := view{
		Title:       desc.Title,
		GeneratedAt: now.UTC().Format(time.RFC3339),
		ID:          res.ID,
		Result:      res.Label,
		Confidence:  "n/a",
		HealthScore: HealthScore(res),
		Disclaimer:  disclaimer,
	}
	if res.Confidence != nil {
		v.Confidence = fmt.Sprintf("%.1f%%", *res.Confidence*100)
	}
	for i, f := range desc.Fields {
		value, ok := res.Inputs[f.Name]
		if !ok {
			if i >= len(res.Vector) {
				return "", fmt.Errorf("result has no value for %s", f.Name)
			}
			value = res.Vector[i]
		}
		v.Inputs = append(v.Inputs, line{Label: f.Label, Value: formatValue(f, value)})
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, v); err != nil {
		return "", fmt.Errorf("render report: %w", err)
	}
	return buf.String(), nil
}

func formatValue(f diagnosis.FieldSpec, value float64) string {
	num := strconv.FormatFloat(value, 'f', -1, 64)
	for _, o := range f.Options {
		if o.Value == value {
			return o.Label
		}
	}
	return num
}

// Filename is the suggested attachment name for a report.
func Filename(res *diagnosis.PredictionResult) string {
	return fmt.Sprintf("%s-report-%s.txt", res.Category, res.CreatedAt.UTC().Format("20060102-150405"))
}
