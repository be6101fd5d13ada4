package services

import (
	"math"

	"github.com/JemAndrew/football-betting-bot/internal/config"
	"github.com/JemAndrew/football-betting-bot/internal/models"
	"go.uber.org/zap"
)

// CleanSheetModel predicts each side keeping the opposition out. The
// clean sheet chance is simply the Poisson mass at zero for the
// opponent's goal expectancy.
type CleanSheetModel struct {
	poisson *PoissonModel
	logger  *zap.Logger
}

func NewCleanSheetModel(cfg config.PoissonConfig, logger *zap.Logger) *CleanSheetModel {
	return &CleanSheetModel{
		poisson: NewPoissonModel(cfg, logger),
		logger:  logger.Named("clean-sheet"),
	}
}

func (m *CleanSheetModel) Predict(f *MatchFeatures) ModelPrediction {
	homeXG, awayXG := m.poisson.ExpectedGoals(f)

	homeClean := poissonPMF(0, awayXG)
	awayClean := poissonPMF(0, homeXG)

	confidence := 1.0
	if !f.EnoughHistory {
		confidence *= 0.8
	}
	// A very low goal expectancy usually means thin data rather than
	// a genuinely impenetrable defence.
	if homeXG < 0.5 || awayXG < 0.5 {
		confidence *= 0.85
	}
	if math.Max(homeClean, awayClean) > 0.6 {
		confidence *= 0.9
	}

	m.logger.Debug("clean sheet prediction",
		zap.Float64("home_clean", homeClean),
		zap.Float64("away_clean", awayClean))

	return ModelPrediction{
		Model:  models.ModelCleanSheet,
		HomeXG: homeXG,
		AwayXG: awayXG,
		Markets: MarketProbs{
			HomeCleanSheet: homeClean,
			AwayCleanSheet: awayClean,
			BTTS:           (1 - homeClean) * (1 - awayClean),
		},
		Confidence: confidence,
	}
}
