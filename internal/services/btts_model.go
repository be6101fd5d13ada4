package services

import (
	"math"

	"github.com/JemAndrew/football-betting-bot/internal/config"
	"github.com/JemAndrew/football-betting-bot/internal/models"
	"go.uber.org/zap"
)

// Per-league adjustments for both-teams-to-score rates. Serie A is the
// defensive outlier; the Bundesliga trades goals freely.
var bttsLeagueAdjustment = map[string]float64{
	"PL":  1.0,
	"PD":  0.95,
	"BL1": 1.05,
	"SA":  0.85,
	"FL1": 0.95,
}

// BTTSModel predicts both-teams-to-score directly from scoring
// probabilities instead of the full scoreline grid: the chance a side
// scores at all is one minus the Poisson mass at zero.
type BTTSModel struct {
	poisson *PoissonModel
	cfg     config.PoissonConfig
	logger  *zap.Logger
}

func NewBTTSModel(cfg config.PoissonConfig, logger *zap.Logger) *BTTSModel {
	return &BTTSModel{
		poisson: NewPoissonModel(cfg, logger),
		cfg:     cfg,
		logger:  logger.Named("btts"),
	}
}

// ScoringProbability is the chance a team scores at least once given
// its goal expectancy.
func ScoringProbability(expectedGoals float64) float64 {
	return 1 - poissonPMF(0, expectedGoals)
}

func (m *BTTSModel) Predict(f *MatchFeatures, leagueID string) ModelPrediction {
	homeXG, awayXG := m.poisson.ExpectedGoals(f)

	btts := ScoringProbability(homeXG) * ScoringProbability(awayXG)
	if adj, ok := bttsLeagueAdjustment[leagueID]; ok {
		btts *= adj
	}
	btts = math.Min(0.95, math.Max(0.05, btts))

	totalXG := homeXG + awayXG
	confidence := 1.0
	if !f.EnoughHistory {
		confidence *= 0.7
	}
	if f.H2H == nil || f.H2H.MatchesPlayed == 0 {
		confidence *= 0.85
	}
	// Extremes of goal expectancy are where the model is least sure.
	if totalXG < 1.5 {
		confidence *= 0.8
	} else if totalXG > 4.0 {
		confidence *= 0.9
	}

	m.logger.Debug("btts prediction",
		zap.String("league", leagueID),
		zap.Float64("btts", btts),
		zap.Float64("confidence", confidence))

	return ModelPrediction{
		Model:  models.ModelBTTS,
		HomeXG: homeXG,
		AwayXG: awayXG,
		Markets: MarketProbs{
			BTTS:           btts,
			HomeCleanSheet: 1 - ScoringProbability(awayXG),
			AwayCleanSheet: 1 - ScoringProbability(homeXG),
		},
		Confidence: confidence,
	}
}
