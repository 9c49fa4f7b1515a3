package core

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenthands/spliced/internal/config"
	"github.com/agenthands/spliced/internal/core/model"
	"github.com/agenthands/spliced/internal/core/predict"
	"github.com/agenthands/spliced/internal/oracle"
)

func TestNewPredictors_MissingToolsDisableOnlyTheirPredictor(t *testing.T) {
	cfg := config.Default()
	cfg.Tools.Abicompat = "spliced-test-no-such-abicompat"
	cfg.Tools.Smeagle = "spliced-test-no-such-smeagle"
	cfg.Tools.PackageManager = ""

	predictors := NewPredictors(cfg, nil)
	e := NewEngine(predictors, nil, nil)
	assert.Equal(t, []string{model.PredictorSymbols, model.PredictorLibabigail, model.PredictorSmeagle}, e.Names())

	_, err := predictors[1].Predict(context.Background(), testSplice())
	require.Error(t, err)
	assert.ErrorIs(t, err, predict.ErrPredictorDisabled)
	assert.ErrorIs(t, err, oracle.ErrToolNotFound)

	res, err := e.Predict(context.Background(), testSplice())
	require.NoError(t, err)
	assert.NotContains(t, res.Predictions, model.PredictorLibabigail)
	assert.NotContains(t, res.Predictions, model.PredictorSmeagle)
}

func TestOpen_WithoutGraphStore(t *testing.T) {
	cfg := config.Default()
	e, err := Open(context.Background(), cfg, nil)
	require.NoError(t, err)
	assert.Nil(t, e.Driver)
	assert.Len(t, e.Predictors, 3)
	assert.NoError(t, e.Close(context.Background()))
}
