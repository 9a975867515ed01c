package server

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Skufu/diagnosis-dispatcher/internal/diagnosis"
	"github.com/Skufu/diagnosis-dispatcher/internal/history"
	"github.com/Skufu/diagnosis-dispatcher/internal/report"
)

type predictRequest struct {
	Values map[string]any `json:"values"`
}

func (s *Server) listCategories(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"categories": s.dispatcher.Categories()})
}

func (s *Server) describeCategory(c *gin.Context) {
	desc, err := s.dispatcher.Describe(c.Param("key"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, desc)
}

func (s *Server) predict(c *gin.Context) {
	res, ok := s.diagnose(c, true)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, res)
}

// report re-runs the prediction to render it. It is not recorded again so
// history holds one row per served prediction.
func (s *Server) report(c *gin.Context) {
	res, ok := s.diagnose(c, false)
	if !ok {
		return
	}
	desc, err := s.dispatcher.Describe(res.Category)
	if err != nil {
		s.writeError(c, err)
		return
	}
	text, err := report.Render(desc, res, s.now())
	if err != nil {
		s.logger.Error("Failed to render report", zap.String("category", res.Category), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "report_failed"})
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, report.Filename(res)))
	c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(text))
}

func (s *Server) diagnose(c *gin.Context, record bool) (*diagnosis.PredictionResult, bool) {
	var payload predictRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "payload_too_large"})
			return nil, false
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_payload"})
		return nil, false
	}

	key := c.Param("key")
	res, err := s.dispatcher.Diagnose(c.Request.Context(), key, payload.Values)
	if err != nil {
		s.writeError(c, err)
		return nil, false
	}

	if record && s.history != nil {
		if err := s.history.Record(c.Request.Context(), history.FromResult(res)); err != nil {
			s.logger.Warn("Failed to record prediction", zap.String("id", res.ID), zap.Error(err))
		}
	}
	s.logger.Debug("Prediction served",
		zap.String("id", res.ID),
		zap.String("category", key),
		zap.Int("class", res.Class))
	return res, true
}

func (s *Server) recentPredictions(c *gin.Context) {
	if s.history == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "history_disabled"})
		return
	}
	limit := 50
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_limit"})
			return
		}
		limit = n
	}
	entries, err := s.history.Recent(c.Request.Context(), limit)
	if err != nil {
		s.logger.Error("Failed to load history", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "history_unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"predictions": entries, "total": len(entries)})
}

// writeError maps dispatcher errors to responses. Unavailable models and bad
// input get distinct codes so the UI can tell them apart.
func (s *Server) writeError(c *gin.Context, err error) {
	var (
		validation  *diagnosis.ValidationError
		unavailable *diagnosis.UnavailableModelError
		shape       *diagnosis.ShapeMismatchError
		inference   *diagnosis.InferenceError
	)
	switch {
	case errors.Is(err, diagnosis.ErrUnknownCategory):
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown_category", "message": err.Error()})
	case errors.As(err, &validation):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":   "validation_failed",
			"field":   validation.Field,
			"reason":  validation.Reason,
			"message": validation.Error(),
		})
	case errors.As(err, &unavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":    "model_unavailable",
			"category": unavailable.Category,
			"message":  "This prediction is not available yet.",
		})
	case errors.As(err, &shape):
		s.logger.Error("Model input shape mismatch", zap.Int("expected", shape.Expected), zap.Int("actual", shape.Actual))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":    "shape_mismatch",
			"expected": shape.Expected,
			"actual":   shape.Actual,
		})
	case errors.As(err, &inference):
		s.logger.Error("Inference failed", zap.String("category", inference.Category), zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "inference_failed", "message": err.Error()})
	default:
		s.logger.Error("Unexpected dispatcher error", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
	}
}
