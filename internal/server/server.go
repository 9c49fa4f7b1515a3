package server

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/agenthands/spliced/internal/core"
	"github.com/agenthands/spliced/internal/core/model"
)

type Server struct {
	Engine *core.Engine
	Log    *slog.Logger
}

func NewServer(engine *core.Engine, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{Engine: engine, Log: log}
}

func (s *Server) SetupRouter() *gin.Engine {
	r := gin.Default()

	r.GET("/healthz", s.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.POST("/predict", s.Predict)
	r.GET("/splices/:id/predictions", s.Predictions)

	return r
}

func (s *Server) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":     "ok",
		"predictors": s.Engine.Names(),
		"persistent": s.Engine.Driver != nil,
	})
}

// Predict takes a splice description as the body. Repeating the predictor
// query parameter restricts the run to those predictors.
func (s *Server) Predict(c *gin.Context) {
	splice, err := model.Decode(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	result, err := s.Engine.Predict(ctx, splice, c.QueryArray("predictor")...)
	if err != nil {
		if errors.Is(err, core.ErrUnknownPredictor) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		s.Log.Error("prediction failed", "splice", splice.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to predict splice"})
		return
	}

	if err := s.Engine.SaveResult(ctx, splice, result); err != nil {
		s.Log.Error("failed to store predictions", "splice", splice.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store predictions"})
		return
	}

	c.JSON(http.StatusOK, result)
}

func (s *Server) Predictions(c *gin.Context) {
	id := c.Param("id")
	result, err := s.Engine.LoadPredictions(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, core.ErrNoPredictions) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		s.Log.Error("failed to load predictions", "splice", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load predictions"})
		return
	}
	c.JSON(http.StatusOK, result)
}
