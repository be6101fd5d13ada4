package services

import (
	"fmt"

	"github.com/JemAndrew/football-betting-bot/internal/config"
	"github.com/JemAndrew/football-betting-bot/internal/models"
	"go.uber.org/zap"
)

// Ensemble methods.
const (
	EnsembleWeightedAverage = "weighted_average"
	EnsembleSimpleAverage   = "simple_average"
	EnsembleVoting          = "voting"
	EnsembleMaxConfidence   = "max_confidence"
)

// allMarkets is every market key the models can emit.
var allMarkets = []string{
	models.MarketHomeWin,
	models.MarketDraw,
	models.MarketAwayWin,
	models.MarketOver25,
	models.MarketUnder25,
	models.MarketBTTSYes,
	models.MarketBTTSNo,
	models.MarketHomeClean,
	models.MarketAwayClean,
}

// Ensemble combines the outputs of several models into one prediction
// per market. A model contributes to a market only when it actually
// priced it; weights are renormalized over the contributing models.
type Ensemble struct {
	cfg    config.EnsembleConfig
	logger *zap.Logger
}

func NewEnsemble(cfg config.EnsembleConfig, logger *zap.Logger) (*Ensemble, error) {
	switch cfg.Method {
	case "", EnsembleWeightedAverage, EnsembleSimpleAverage, EnsembleVoting, EnsembleMaxConfidence:
	default:
		return nil, fmt.Errorf("unknown ensemble method %q", cfg.Method)
	}
	if cfg.Method == "" {
		cfg.Method = EnsembleWeightedAverage
	}
	return &Ensemble{cfg: cfg, logger: logger.Named("ensemble")}, nil
}

// Combine merges model predictions into a single market probability
// map plus an overall confidence.
func (e *Ensemble) Combine(predictions []ModelPrediction) (map[string]float64, float64, error) {
	if len(predictions) == 0 {
		return nil, 0, fmt.Errorf("no model predictions to combine")
	}

	weights := e.cfg.Weights
	if len(weights) == 0 {
		weights = make([]float64, len(predictions))
		for i := range weights {
			weights[i] = 1.0 / float64(len(predictions))
		}
	}
	if len(weights) != len(predictions) {
		return nil, 0, fmt.Errorf("have %d weights for %d models", len(weights), len(predictions))
	}

	combined := make(map[string]float64, len(allMarkets))
	for _, market := range allMarkets {
		value, ok := e.combineMarket(market, predictions, weights)
		if ok {
			combined[market] = value
		}
	}

	confidence := 0.0
	switch e.cfg.Method {
	case EnsembleMaxConfidence:
		for _, p := range predictions {
			if p.Confidence > confidence {
				confidence = p.Confidence
			}
		}
	default:
		for _, p := range predictions {
			confidence += p.Confidence
		}
		confidence /= float64(len(predictions))
	}

	e.logger.Debug("combined predictions",
		zap.String("method", e.cfg.Method),
		zap.Int("models", len(predictions)),
		zap.Float64("confidence", confidence))
	return combined, confidence, nil
}

func (e *Ensemble) combineMarket(market string, predictions []ModelPrediction, weights []float64) (float64, bool) {
	type contribution struct {
		prob       float64
		weight     float64
		confidence float64
	}
	var contribs []contribution
	for i, p := range predictions {
		// An exact 0 or 1 means the model never priced this market;
		// real probabilities are clamped well inside the unit interval.
		prob, ok := p.Markets.ByMarket(market)
		if !ok || prob == 0 || prob == 1 {
			continue
		}
		contribs = append(contribs, contribution{prob: prob, weight: weights[i], confidence: p.Confidence})
	}
	if len(contribs) == 0 {
		return 0, false
	}

	switch e.cfg.Method {
	case EnsembleSimpleAverage:
		sum := 0.0
		for _, c := range contribs {
			sum += c.prob
		}
		return sum / float64(len(contribs)), true

	case EnsembleVoting:
		// Majority says yes at the 0.5 line; the result is the vote
		// share, not a calibrated probability.
		yes := 0
		for _, c := range contribs {
			if c.prob > 0.5 {
				yes++
			}
		}
		return float64(yes) / float64(len(contribs)), true

	case EnsembleMaxConfidence:
		best := contribs[0]
		for _, c := range contribs[1:] {
			if c.confidence > best.confidence {
				best = c
			}
		}
		return best.prob, true

	default: // weighted average
		totalWeight := 0.0
		for _, c := range contribs {
			totalWeight += c.weight
		}
		sum := 0.0
		for _, c := range contribs {
			sum += c.prob * (c.weight / totalWeight)
		}
		return sum, true
	}
}
