package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Skufu/diagnosis-dispatcher/internal/classifier"
	"github.com/Skufu/diagnosis-dispatcher/internal/diagnosis"
	"github.com/Skufu/diagnosis-dispatcher/internal/history"
)

type mapLoader map[string]classifier.Classifier

func (l mapLoader) Load(_ context.Context, path string) (classifier.Classifier, error) {
	if c, ok := l[path]; ok {
		return c, nil
	}
	return nil, fmt.Errorf("read artifact: %w", fs.ErrNotExist)
}

type fakeStore struct {
	err     error
	entries []history.Entry
}

func (f *fakeStore) Record(_ context.Context, e history.Entry) error {
	f.entries = append(f.entries, e)
	return nil
}

func (f *fakeStore) Recent(context.Context, int) ([]history.Entry, error) { return f.entries, f.err }
func (f *fakeStore) Ping(context.Context) error                           { return f.err }
func (f *fakeStore) Close()                                               {}

// glucoseModel is positive from Glucose 118 upwards.
func glucoseModel() classifier.Classifier {
	return &classifier.Logistic{
		LinearModel: classifier.LinearModel{Weights: []float64{0, 0.05, 0, 0, 0, 0, 0, 0}, Intercept: -5.9},
		Threshold:   0.5,
	}
}

func newTestRouter(t *testing.T, store history.Store) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	reg, err := diagnosis.NewRegistry(context.Background(), diagnosis.DefaultCatalog(),
		mapLoader{"diabetes_model.json": glucoseModel()}, nil, nil)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	now := func() time.Time { return time.Date(2026, 10, 16, 8, 0, 0, 0, time.UTC) }
	return NewRouter(diagnosis.NewDispatcher(reg, diagnosis.WithClock(now)), nil, Options{History: store, Now: now})
}

func do(router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	return w
}

const diabetesBody = `{"values": {
	"Pregnancies": 2, "Glucose": 120, "BloodPressure": 70, "SkinThickness": 20,
	"Insulin": 80, "BMI": 25.0, "PedigreeFunction": 0.5, "Age": 30
}}`

func TestRouterHealthz(t *testing.T) {
	router := newTestRouter(t, nil)

	w := do(router, "GET", "/healthz", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"status":"ok"`) {
		t.Fatalf("unexpected body: %s", w.Body.String())
	}
}

func TestRouterReadyz(t *testing.T) {
	w := do(newTestRouter(t, nil), "GET", "/readyz", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	var body struct {
		Available int                        `json:"available"`
		History   string                     `json:"history"`
		Models    []diagnosis.CategoryStatus `json:"models"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Available != 1 || body.History != "disabled" || len(body.Models) != 5 {
		t.Fatalf("unexpected readiness: %+v", body)
	}

	w = do(newTestRouter(t, &fakeStore{err: errors.New("locked")}), "GET", "/readyz", "")
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 for unhealthy history, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "unhealthy: locked") {
		t.Fatalf("unexpected body: %s", w.Body.String())
	}
}

func TestCategories(t *testing.T) {
	router := newTestRouter(t, nil)

	w := do(router, "GET", "/api/categories", "")
	var list struct {
		Categories []diagnosis.Description `json:"categories"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(list.Categories) != 5 || list.Categories[0].Key != "diabetes" || !list.Categories[0].Available {
		t.Fatalf("unexpected categories: %+v", list.Categories)
	}

	w = do(router, "GET", "/api/categories/heart", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"name":"Thalassemia"`) {
		t.Fatalf("unexpected describe response %d: %s", w.Code, w.Body.String())
	}

	w = do(router, "GET", "/api/categories/kidney", "")
	if w.Code != http.StatusNotFound || !strings.Contains(w.Body.String(), "unknown_category") {
		t.Fatalf("expected 404 unknown_category, got %d: %s", w.Code, w.Body.String())
	}
}

func TestPredict(t *testing.T) {
	store := &fakeStore{}
	router := newTestRouter(t, store)

	w := do(router, "POST", "/api/categories/diabetes/predict", diabetesBody)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var res diagnosis.PredictionResult
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.Label != "Positive (Diabetic)" || res.Confidence == nil {
		t.Fatalf("unexpected result: %+v", res)
	}
	want := []float64{2, 120, 70, 20, 80, 25, 0.5, 30}
	for i := range want {
		if res.Vector[i] != want[i] {
			t.Fatalf("vector mismatch at %d: %v", i, res.Vector)
		}
	}
	if len(store.entries) != 1 || store.entries[0].ID != res.ID {
		t.Fatalf("expected prediction to be recorded, got %+v", store.entries)
	}
}

func TestPredictValidation(t *testing.T) {
	router := newTestRouter(t, nil)

	w := do(router, "POST", "/api/categories/diabetes/predict", strings.Replace(diabetesBody, `"Glucose": 120`, `"Glucose": 500`, 1))
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for validation failure, got %d", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, "validation_failed") || !strings.Contains(body, `"field":"Glucose"`) {
		t.Fatalf("expected validation error response, got %s", body)
	}
}

func TestPredictUnavailableModel(t *testing.T) {
	router := newTestRouter(t, nil)

	w := do(router, "POST", "/api/categories/thyroid/predict", `{"values": {
		"Age": 40, "TSH": 1, "T3": 1, "TT4": 100, "T4U": 1, "FTI": 100, "TBG": 20}}`)
	if w.Code != http.StatusServiceUnavailable || !strings.Contains(w.Body.String(), "model_unavailable") {
		t.Fatalf("expected 503 model_unavailable, got %d: %s", w.Code, w.Body.String())
	}
}

func TestPredictUnavailableModelSkipsValidation(t *testing.T) {
	router := newTestRouter(t, nil)

	w := do(router, "POST", "/api/categories/thyroid/predict", `{"values": {}}`)
	if w.Code != http.StatusServiceUnavailable || !strings.Contains(w.Body.String(), "model_unavailable") {
		t.Fatalf("expected 503 model_unavailable for empty form, got %d: %s", w.Code, w.Body.String())
	}
}

func TestPredictInvalidPayload(t *testing.T) {
	router := newTestRouter(t, nil)

	w := do(router, "POST", "/api/categories/diabetes/predict", `{"values": [`)
	if w.Code != http.StatusBadRequest || !strings.Contains(w.Body.String(), "invalid_payload") {
		t.Fatalf("expected 400 invalid_payload, got %d: %s", w.Code, w.Body.String())
	}
}

func TestReport(t *testing.T) {
	router := newTestRouter(t, nil)

	w := do(router, "POST", "/api/categories/diabetes/report", diabetesBody)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Fatalf("unexpected content type %q", ct)
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "diabetes-report-20261016-080000.txt") {
		t.Fatalf("unexpected content disposition %q", cd)
	}
	body := w.Body.String()
	for _, want := range []string{"Diabetes Prediction Report", "Glucose: 120", "Result: Positive (Diabetic)", "Confidence: 52.5%"} {
		if !strings.Contains(body, want) {
			t.Fatalf("report missing %q:\n%s", want, body)
		}
	}
}

func TestReportDoesNotRecordHistory(t *testing.T) {
	store := &fakeStore{}
	router := newTestRouter(t, store)

	w := do(router, "POST", "/api/categories/diabetes/report", diabetesBody)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if len(store.entries) != 0 {
		t.Fatalf("expected report not to be recorded, got %+v", store.entries)
	}
}

func TestRecentPredictions(t *testing.T) {
	w := do(newTestRouter(t, nil), "GET", "/api/predictions", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 when history disabled, got %d", w.Code)
	}

	store, err := history.NewSQLiteStore(context.Background(), filepath.Join(t.TempDir(), "h.db"))
	if err != nil {
		t.Fatalf("sqlite: %v", err)
	}
	defer store.Close()
	router := newTestRouter(t, store)

	do(router, "POST", "/api/categories/diabetes/predict", diabetesBody)
	w = do(router, "GET", "/api/predictions?limit=5", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"total":1`) {
		t.Fatalf("unexpected history response %d: %s", w.Code, w.Body.String())
	}

	w = do(router, "GET", "/api/predictions?limit=zero", "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad limit, got %d", w.Code)
	}
}

// Ensure limitBodySize middleware allows small payloads and blocks large ones.
func TestLimitBodySize(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(limitBodySize(10))
	router.POST("/echo", func(c *gin.Context) {
		_, err := c.GetRawData()
		if err != nil {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "too large"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	t.Run("within limit", func(t *testing.T) {
		w := do(router, "POST", "/echo", "12345")
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
	})

	t.Run("over limit", func(t *testing.T) {
		w := do(router, "POST", "/echo", "01234567890")
		if w.Code != http.StatusRequestEntityTooLarge {
			t.Fatalf("expected 413, got %d", w.Code)
		}
	})
}

func TestPredictPayloadTooLarge(t *testing.T) {
	gin.SetMode(gin.TestMode)
	reg, err := diagnosis.NewRegistry(context.Background(), diagnosis.DefaultCatalog(), mapLoader{}, nil, nil)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	router := NewRouter(diagnosis.NewDispatcher(reg), nil, Options{MaxBodyBytes: 16})

	w := do(router, "POST", "/api/categories/diabetes/predict", diabetesBody)
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d: %s", w.Code, w.Body.String())
	}
}
