package services

import (
	"context"
	"fmt"
	"time"

	"github.com/JemAndrew/football-betting-bot/internal/config"
	"github.com/JemAndrew/football-betting-bot/internal/models"
	"github.com/JemAndrew/football-betting-bot/internal/oddsmath"
	"github.com/JemAndrew/football-betting-bot/internal/validate"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// PredictionService runs every model over upcoming fixtures, persists
// the per-model and ensemble probabilities, and scans stored odds for
// value.
type PredictionService interface {
	// PredictMatch runs all models for one fixture and stores the
	// resulting predictions.
	PredictMatch(ctx context.Context, matchID uint) ([]models.Prediction, error)
	// PredictUpcoming predicts every scheduled fixture within the
	// next daysAhead days.
	PredictUpcoming(ctx context.Context, daysAhead int) (int, error)
	// Predictions lists the stored predictions for a match.
	Predictions(ctx context.Context, matchID uint) ([]models.Prediction, error)
	// ValueBets compares ensemble probabilities to the best stored
	// odds and returns opportunities clearing the edge threshold.
	ValueBets(ctx context.Context, bankroll float64) ([]models.ValueBetResponse, error)
}

type predictionService struct {
	db         *gorm.DB
	features   FeatureService
	poisson    *PoissonModel
	btts       *BTTSModel
	overUnder  *OverUnderModel
	cleanSheet *CleanSheetModel
	ensemble   *Ensemble
	betting    config.BettingConfig
	logger     *zap.Logger
}

func NewPredictionService(
	db *gorm.DB,
	features FeatureService,
	mc *config.ModelConfig,
	logger *zap.Logger,
) (PredictionService, error) {
	ensemble, err := NewEnsemble(mc.Ensemble, logger)
	if err != nil {
		return nil, err
	}
	return &predictionService{
		db:         db,
		features:   features,
		poisson:    NewPoissonModel(mc.Poisson, logger),
		btts:       NewBTTSModel(mc.Poisson, logger),
		overUnder:  NewOverUnderModel(mc.Poisson, logger),
		cleanSheet: NewCleanSheetModel(mc.Poisson, logger),
		ensemble:   ensemble,
		betting:    mc.Betting,
		logger:     logger.Named("prediction"),
	}, nil
}

func (s *predictionService) PredictMatch(ctx context.Context, matchID uint) ([]models.Prediction, error) {
	var match models.Match
	if err := s.db.WithContext(ctx).First(&match, matchID).Error; err != nil {
		return nil, fmt.Errorf("loading match %d: %w", matchID, err)
	}
	if match.Finished() {
		return nil, fmt.Errorf("match %d already finished", matchID)
	}

	f, err := s.features.MatchFeatures(ctx, &match)
	if err != nil {
		return nil, fmt.Errorf("building features for match %d: %w", matchID, err)
	}

	modelPreds := []ModelPrediction{
		s.poisson.Predict(f),
		s.btts.Predict(f, match.LeagueID),
		s.overUnder.Predict(f),
		s.cleanSheet.Predict(f),
	}

	combined, confidence, err := s.ensemble.Combine(modelPreds)
	if err != nil {
		return nil, err
	}

	// Replace any previous run's predictions for this match.
	tx := s.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	if err := tx.Where("match_id = ?", matchID).Delete(&models.Prediction{}).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	var stored []models.Prediction
	persist := func(model, market string, prob, conf float64) error {
		if err := validate.Probability(prob); err != nil {
			return fmt.Errorf("%s %s: %w", model, market, err)
		}
		p := models.Prediction{
			MatchID:     matchID,
			Model:       model,
			Market:      market,
			Probability: prob,
			Confidence:  conf,
		}
		if fair, err := oddsmath.FairOdds(prob); err == nil {
			p.FairOdds = fair
		}
		if err := tx.Create(&p).Error; err != nil {
			return err
		}
		stored = append(stored, p)
		return nil
	}

	for _, mp := range modelPreds {
		for _, market := range allMarkets {
			// 0 and 1 mean the model never priced this market, the
			// same convention the ensemble uses.
			prob, ok := mp.Markets.ByMarket(market)
			if !ok || prob == 0 || prob == 1 {
				continue
			}
			if err := persist(mp.Model, market, prob, mp.Confidence); err != nil {
				tx.Rollback()
				return nil, err
			}
		}
	}
	for market, prob := range combined {
		if err := persist(models.ModelEnsemble, market, prob, confidence); err != nil {
			tx.Rollback()
			return nil, err
		}
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	s.logger.Info("match predicted",
		zap.Uint("match_id", matchID),
		zap.Int("predictions", len(stored)),
		zap.Float64("confidence", confidence))
	return stored, nil
}

func (s *predictionService) PredictUpcoming(ctx context.Context, daysAhead int) (int, error) {
	now := time.Now()
	var matches []models.Match
	err := s.db.WithContext(ctx).
		Where("status = ? AND date BETWEEN ? AND ?",
			models.StatusScheduled, now, now.AddDate(0, 0, daysAhead)).
		Order("date ASC").
		Find(&matches).Error
	if err != nil {
		return 0, err
	}

	predicted := 0
	for _, m := range matches {
		if _, err := s.PredictMatch(ctx, m.ID); err != nil {
			s.logger.Warn("prediction failed",
				zap.Uint("match_id", m.ID), zap.Error(err))
			continue
		}
		predicted++
	}
	return predicted, nil
}

func (s *predictionService) Predictions(ctx context.Context, matchID uint) ([]models.Prediction, error) {
	var predictions []models.Prediction
	err := s.db.WithContext(ctx).
		Where("match_id = ?", matchID).
		Order("model, market").
		Find(&predictions).Error
	return predictions, err
}

func (s *predictionService) ValueBets(ctx context.Context, bankroll float64) ([]models.ValueBetResponse, error) {
	now := time.Now()
	var matches []models.Match
	err := s.db.WithContext(ctx).
		Preload("HomeTeam").Preload("AwayTeam").
		Where("status = ? AND date > ?", models.StatusScheduled, now).
		Find(&matches).Error
	if err != nil {
		return nil, err
	}

	var valueBets []models.ValueBetResponse
	for _, match := range matches {
		var predictions []models.Prediction
		err := s.db.WithContext(ctx).
			Where("match_id = ? AND model = ?", match.ID, models.ModelEnsemble).
			Find(&predictions).Error
		if err != nil {
			return nil, err
		}

		for _, pred := range predictions {
			if pred.Confidence < s.betting.MinConfidence {
				continue
			}

			best, err := s.bestOdds(ctx, match.ID, pred.Market)
			if err != nil {
				return nil, err
			}
			if best == nil {
				continue
			}

			edge := oddsmath.Edge(pred.Probability, best.Price)
			if edge < s.betting.MinEdge {
				continue
			}

			valueBets = append(valueBets, models.ValueBetResponse{
				MatchID:     match.ID,
				HomeTeam:    match.HomeTeam.Name,
				AwayTeam:    match.AwayTeam.Name,
				Market:      pred.Market,
				Bookmaker:   best.Bookmaker,
				Price:       best.Price,
				Probability: pred.Probability,
				Edge:        edge,
				ExpectedVal: oddsmath.ExpectedValue(pred.Probability, best.Price),
				Stake:       s.suggestStake(pred.Probability, best.Price, bankroll),
			})
		}
	}

	s.logger.Info("value scan finished",
		zap.Int("fixtures", len(matches)),
		zap.Int("value_bets", len(valueBets)))
	return valueBets, nil
}

// bestOdds returns the newest best price per bookmaker for a market.
func (s *predictionService) bestOdds(ctx context.Context, matchID uint, market string) (*models.Odds, error) {
	var odds []models.Odds
	err := s.db.WithContext(ctx).
		Where("match_id = ? AND market = ?", matchID, market).
		Order("captured_at DESC").
		Find(&odds).Error
	if err != nil {
		return nil, err
	}
	if len(odds) == 0 {
		return nil, nil
	}

	// Keep only each bookmaker's latest snapshot, then take the top.
	latest := make(map[string]models.Odds)
	for _, o := range odds {
		if _, seen := latest[o.Bookmaker]; !seen {
			latest[o.Bookmaker] = o
		}
	}
	var best *models.Odds
	for _, o := range latest {
		o := o
		if best == nil || o.Price > best.Price {
			best = &o
		}
	}
	return best, nil
}

// suggestStake sizes the bet at a quarter Kelly, capped by the
// bankroll fraction limit.
func (s *predictionService) suggestStake(probability, price, bankroll float64) float64 {
	if bankroll <= 0 {
		return 0
	}
	b := price - 1
	kelly := (probability*b - (1 - probability)) / b
	if kelly <= 0 {
		return 0
	}
	fraction := kelly / 4
	if fraction > s.betting.MaxStakePct {
		fraction = s.betting.MaxStakePct
	}
	stake := bankroll * fraction
	if err := validate.Stake(stake, bankroll); err != nil {
		return bankroll * s.betting.MaxStakePct
	}
	return stake
}
