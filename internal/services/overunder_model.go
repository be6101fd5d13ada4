package services

import (
	"math"

	"github.com/JemAndrew/football-betting-bot/internal/config"
	"github.com/JemAndrew/football-betting-bot/internal/models"
	"go.uber.org/zap"
)

// OverUnderModel predicts the total-goals line, blending the Poisson
// grid with each side's historical over rate when enough games exist.
type OverUnderModel struct {
	poisson *PoissonModel
	logger  *zap.Logger
}

func NewOverUnderModel(cfg config.PoissonConfig, logger *zap.Logger) *OverUnderModel {
	return &OverUnderModel{
		poisson: NewPoissonModel(cfg, logger),
		logger:  logger.Named("over-under"),
	}
}

func (m *OverUnderModel) Predict(f *MatchFeatures) ModelPrediction {
	homeXG, awayXG := m.poisson.ExpectedGoals(f)
	grid := m.poisson.MarketProbabilities(homeXG, awayXG)

	over25 := grid.Over25
	// Blend with observed over rates, weighted toward the model.
	if f.EnoughHistory {
		historical := (f.HomeStats.Over25Rate + f.AwayStats.Over25Rate) / 2
		over25 = 0.7*over25 + 0.3*historical
	}
	over25 = math.Min(0.95, math.Max(0.05, over25))

	totalXG := homeXG + awayXG
	confidence := 1.0
	if !f.EnoughHistory {
		confidence *= 0.7
	}
	// Totals near the 2.5 line are coin flips either way.
	if math.Abs(totalXG-2.5) < 0.3 {
		confidence *= 0.8
	}

	m.logger.Debug("over/under prediction",
		zap.Float64("total_xg", totalXG),
		zap.Float64("over_25", over25))

	// Only the totals lines: leaving the rest of the grid zeroed
	// keeps this model out of markets it does not price.
	markets := MarketProbs{
		Over05:  grid.Over05,
		Over15:  grid.Over15,
		Over25:  over25,
		Over35:  grid.Over35,
		Under25: 1 - over25,
	}

	return ModelPrediction{
		Model:      models.ModelOverUnder,
		HomeXG:     homeXG,
		AwayXG:     awayXG,
		Markets:    markets,
		Confidence: confidence,
	}
}
