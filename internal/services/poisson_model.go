package services

import (
	"math"

	"github.com/JemAndrew/football-betting-bot/internal/config"
	"github.com/JemAndrew/football-betting-bot/internal/models"
	"go.uber.org/zap"
)

// Expected goals are clamped to a sane band: even the worst sides
// score occasionally and nobody averages five.
const (
	minExpectedGoals = 0.2
	maxExpectedGoals = 5.0
)

// poissonPMF is P(X = k) for X ~ Poisson(lambda).
func poissonPMF(k int, lambda float64) float64 {
	if k < 0 || lambda <= 0 {
		return 0
	}
	logP := float64(k)*math.Log(lambda) - lambda - logFactorial(k)
	return math.Exp(logP)
}

func logFactorial(n int) float64 {
	lf, _ := math.Lgamma(float64(n) + 1)
	return lf
}

// MarketProbs holds every market probability derived from one
// scoreline grid.
type MarketProbs struct {
	HomeWin        float64 `json:"home_win"`
	Draw           float64 `json:"draw"`
	AwayWin        float64 `json:"away_win"`
	Over05         float64 `json:"over_05"`
	Over15         float64 `json:"over_15"`
	Over25         float64 `json:"over_25"`
	Over35         float64 `json:"over_35"`
	Under25        float64 `json:"under_25"`
	BTTS           float64 `json:"btts"`
	HomeCleanSheet float64 `json:"home_clean_sheet"`
	AwayCleanSheet float64 `json:"away_clean_sheet"`

	LikelyHomeGoals int     `json:"likely_home_goals"`
	LikelyAwayGoals int     `json:"likely_away_goals"`
	LikelyScoreProb float64 `json:"likely_score_prob"`
}

// ByMarket returns the probability for a stored market key.
func (p MarketProbs) ByMarket(market string) (float64, bool) {
	switch market {
	case models.MarketHomeWin:
		return p.HomeWin, true
	case models.MarketDraw:
		return p.Draw, true
	case models.MarketAwayWin:
		return p.AwayWin, true
	case models.MarketOver25:
		return p.Over25, true
	case models.MarketUnder25:
		return p.Under25, true
	case models.MarketBTTSYes:
		return p.BTTS, true
	case models.MarketBTTSNo:
		return 1 - p.BTTS, true
	case models.MarketHomeClean:
		return p.HomeCleanSheet, true
	case models.MarketAwayClean:
		return p.AwayCleanSheet, true
	default:
		return 0, false
	}
}

// PoissonModel estimates expected goals from team strengths and turns
// them into market probabilities through a Poisson scoreline grid.
type PoissonModel struct {
	cfg    config.PoissonConfig
	logger *zap.Logger
}

func NewPoissonModel(cfg config.PoissonConfig, logger *zap.Logger) *PoissonModel {
	return &PoissonModel{cfg: cfg, logger: logger.Named("poisson")}
}

// ExpectedGoals estimates each side's goal expectancy:
//
//	home xG = home attack x away defence x league home avg x home advantage
//	away xG = away attack x home defence x league away avg
//
// then nudges both by the Elo gap and the recent form gap.
func (m *PoissonModel) ExpectedGoals(f *MatchFeatures) (homeXG, awayXG float64) {
	homeXG = f.HomeStats.AttackStrength * f.AwayStats.DefenceStrength *
		f.League.HomeGoalsPerGame * m.cfg.HomeAdvantage
	awayXG = f.AwayStats.AttackStrength * f.HomeStats.DefenceStrength *
		f.League.AwayGoalsPerGame

	if m.cfg.EloWeight > 0 {
		// 200 Elo points is roughly a quarter more strength.
		eloMultiplier := 1 + (f.HomeElo-f.AwayElo)/1000*m.cfg.EloWeight
		if eloMultiplier > 0 {
			homeXG *= eloMultiplier
			awayXG /= eloMultiplier
		}
	}

	if m.cfg.FormWeight > 0 && f.HomeForm != nil && f.AwayForm != nil {
		// One point per game of form difference moves xG by ten
		// percent before weighting.
		formDiff := f.HomeForm.PointsPerGame - f.AwayForm.PointsPerGame
		formMultiplier := 1 + formDiff*0.1*m.cfg.FormWeight
		if formMultiplier > 0 {
			homeXG *= formMultiplier
			awayXG /= formMultiplier
		}
	}

	homeXG = math.Min(math.Max(homeXG, minExpectedGoals), maxExpectedGoals)
	awayXG = math.Min(math.Max(awayXG, minExpectedGoals), maxExpectedGoals)
	return homeXG, awayXG
}

// MarketProbabilities aggregates the scoreline grid up to MaxGoals
// per side into betting markets.
func (m *PoissonModel) MarketProbabilities(homeXG, awayXG float64) MarketProbs {
	maxGoals := m.cfg.MaxGoals
	if maxGoals <= 0 {
		maxGoals = 10
	}

	homeProbs := make([]float64, maxGoals+1)
	awayProbs := make([]float64, maxGoals+1)
	for i := 0; i <= maxGoals; i++ {
		homeProbs[i] = poissonPMF(i, homeXG)
		awayProbs[i] = poissonPMF(i, awayXG)
	}

	var p MarketProbs
	for h := 0; h <= maxGoals; h++ {
		for a := 0; a <= maxGoals; a++ {
			prob := homeProbs[h] * awayProbs[a]
			total := h + a

			switch {
			case h > a:
				p.HomeWin += prob
			case h < a:
				p.AwayWin += prob
			default:
				p.Draw += prob
			}
			if total > 0 {
				p.Over05 += prob
			}
			if total > 1 {
				p.Over15 += prob
			}
			if total > 2 {
				p.Over25 += prob
			}
			if total > 3 {
				p.Over35 += prob
			}
			if h > 0 && a > 0 {
				p.BTTS += prob
			}
			if a == 0 {
				p.HomeCleanSheet += prob
			}
			if h == 0 {
				p.AwayCleanSheet += prob
			}
			if prob > p.LikelyScoreProb {
				p.LikelyScoreProb = prob
				p.LikelyHomeGoals = h
				p.LikelyAwayGoals = a
			}
		}
	}
	p.Under25 = 1 - p.Over25
	return p
}

// Predict runs the full model for one match's features.
func (m *PoissonModel) Predict(f *MatchFeatures) ModelPrediction {
	homeXG, awayXG := m.ExpectedGoals(f)
	probs := m.MarketProbabilities(homeXG, awayXG)

	confidence := 1.0
	if !f.EnoughHistory {
		confidence *= 0.7
	}
	if f.H2H == nil || f.H2H.MatchesPlayed == 0 {
		confidence *= 0.85
	}

	m.logger.Debug("poisson prediction",
		zap.Float64("home_xg", homeXG),
		zap.Float64("away_xg", awayXG),
		zap.Float64("home_win", probs.HomeWin))

	return ModelPrediction{
		Model:      models.ModelPoisson,
		HomeXG:     homeXG,
		AwayXG:     awayXG,
		Markets:    probs,
		Confidence: confidence,
	}
}

// ModelPrediction is one model's output for one match.
type ModelPrediction struct {
	Model      string      `json:"model"`
	HomeXG     float64     `json:"home_xg"`
	AwayXG     float64     `json:"away_xg"`
	Markets    MarketProbs `json:"markets"`
	Confidence float64     `json:"confidence"`
}
