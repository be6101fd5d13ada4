package services

import (
	"context"
	"sort"
	"time"

	"github.com/JemAndrew/football-betting-bot/internal/models"
	"github.com/JemAndrew/football-betting-bot/internal/validate"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// CleanStats counts what a cleaning pass touched.
type CleanStats struct {
	MatchesChecked    int    `json:"matches_checked"`
	OutliersFixed     int    `json:"outliers_fixed"`
	OutliersFlagged   int    `json:"outliers_flagged"`
	ValuesImputed     int    `json:"values_imputed"`
	DuplicatesRemoved int    `json:"duplicates_removed"`
	OutlierMatchIDs   []uint `json:"outlier_match_ids,omitempty"`
}

// CleanerService repairs and flags bad match data before it reaches
// the feature builders. Negative counts are zeroed, implausible highs
// are flagged but kept (a 9-0 does happen), missing corner and card
// counts are imputed from league averages, and duplicate match and
// odds rows are removed.
type CleanerService interface {
	CleanMatches(ctx context.Context, daysBack int) (*CleanStats, error)
	ImputeMissing(ctx context.Context) (int, error)
	// RemoveDuplicates deletes duplicated match and odds rows,
	// keeping the record with more data (matches) or the newest
	// snapshot (odds).
	RemoveDuplicates(ctx context.Context) (int, error)
	// DetectOutliers flags matches whose total goals fall outside
	// 1.5 IQR of the recent distribution.
	DetectOutliers(ctx context.Context) ([]uint, error)
}

type cleanerService struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewCleanerService(db *gorm.DB, logger *zap.Logger) CleanerService {
	return &cleanerService{db: db, logger: logger.Named("cleaner")}
}

func (s *cleanerService) CleanMatches(ctx context.Context, daysBack int) (*CleanStats, error) {
	since := time.Now().AddDate(0, 0, -daysBack)

	var matches []models.Match
	err := s.db.WithContext(ctx).
		Where("date >= ? AND status = ?", since, models.StatusFinished).
		Find(&matches).Error
	if err != nil {
		return nil, err
	}

	stats := &CleanStats{MatchesChecked: len(matches)}
	for i := range matches {
		if s.cleanMatch(ctx, &matches[i], stats) {
			if err := s.db.WithContext(ctx).Save(&matches[i]).Error; err != nil {
				return nil, err
			}
		}
	}

	imputed, err := s.ImputeMissing(ctx)
	if err != nil {
		return nil, err
	}
	stats.ValuesImputed = imputed

	removed, err := s.RemoveDuplicates(ctx)
	if err != nil {
		return nil, err
	}
	stats.DuplicatesRemoved = removed

	outliers, err := s.DetectOutliers(ctx)
	if err != nil {
		return nil, err
	}
	stats.OutlierMatchIDs = outliers
	stats.OutliersFlagged += len(outliers)

	s.logger.Info("cleaning pass finished",
		zap.Int("checked", stats.MatchesChecked),
		zap.Int("fixed", stats.OutliersFixed),
		zap.Int("flagged", stats.OutliersFlagged),
		zap.Int("imputed", stats.ValuesImputed),
		zap.Int("duplicates", stats.DuplicatesRemoved))
	return stats, nil
}

// cleanMatch zeroes negative counts and flags implausible highs.
// Returns true when the record changed.
func (s *cleanerService) cleanMatch(_ context.Context, m *models.Match, stats *CleanStats) bool {
	changed := false
	fix := func(field string, v *int, max int) {
		if v == nil {
			return
		}
		if *v < 0 {
			s.logger.Warn("negative count zeroed",
				zap.Uint("match_id", m.ID), zap.String("field", field), zap.Int("value", *v))
			*v = 0
			stats.OutliersFixed++
			changed = true
		}
		if *v > max {
			// High values are flagged, not auto-fixed: a 9-0 happens.
			s.logger.Warn("suspicious count",
				zap.Uint("match_id", m.ID), zap.String("field", field), zap.Int("value", *v))
			stats.OutliersFlagged++
		}
	}

	fix("home_goals", m.HomeGoals, validate.MaxGoals)
	fix("away_goals", m.AwayGoals, validate.MaxGoals)
	fix("home_corners", m.HomeCorners, validate.MaxCorners)
	fix("away_corners", m.AwayCorners, validate.MaxCorners)
	fix("home_cards", m.HomeCards, validate.MaxCards)
	fix("away_cards", m.AwayCards, validate.MaxCards)

	if m.Finished() && (m.HomeGoals == nil || m.AwayGoals == nil) {
		s.logger.Warn("finished match missing score", zap.Uint("match_id", m.ID))
	}
	return changed
}

func (s *cleanerService) ImputeMissing(ctx context.Context) (int, error) {
	avgs, err := s.leagueAverages(ctx)
	if err != nil {
		return 0, err
	}

	var matches []models.Match
	err = s.db.WithContext(ctx).
		Where("status = ?", models.StatusFinished).
		Where("home_corners IS NULL OR away_corners IS NULL OR home_cards IS NULL OR away_cards IS NULL").
		Find(&matches).Error
	if err != nil {
		return 0, err
	}

	imputed := 0
	for i := range matches {
		m := &matches[i]
		avg, ok := avgs[m.LeagueID]
		if !ok {
			continue
		}
		// Per-side value is half the match average.
		halfCorners := int(avg.corners / 2)
		halfCards := int(avg.cards / 2)

		changed := false
		if m.HomeCorners == nil {
			v := halfCorners
			m.HomeCorners = &v
			imputed++
			changed = true
		}
		if m.AwayCorners == nil {
			v := halfCorners
			m.AwayCorners = &v
			imputed++
			changed = true
		}
		if m.HomeCards == nil {
			v := halfCards
			m.HomeCards = &v
			imputed++
			changed = true
		}
		if m.AwayCards == nil {
			v := halfCards
			m.AwayCards = &v
			imputed++
			changed = true
		}
		if changed {
			if err := s.db.WithContext(ctx).Save(m).Error; err != nil {
				return imputed, err
			}
		}
	}
	return imputed, nil
}

func (s *cleanerService) RemoveDuplicates(ctx context.Context) (int, error) {
	matches, err := s.dedupeMatches(ctx)
	if err != nil {
		return 0, err
	}
	odds, err := s.dedupeOdds(ctx)
	if err != nil {
		return matches, err
	}
	if matches+odds > 0 {
		s.logger.Info("duplicates removed",
			zap.Int("matches", matches), zap.Int("odds", odds))
	}
	return matches + odds, nil
}

// dedupeMatches removes repeated fixtures: same teams and league with
// kickoffs within an hour of each other. The row carrying more data
// survives.
func (s *cleanerService) dedupeMatches(ctx context.Context) (int, error) {
	var matches []models.Match
	err := s.db.WithContext(ctx).Order("date ASC").Find(&matches).Error
	if err != nil {
		return 0, err
	}

	removed := 0
	deleted := make(map[uint]bool)
	for i := range matches {
		if deleted[matches[i].ID] {
			continue
		}
		for j := i + 1; j < len(matches); j++ {
			a, b := &matches[i], &matches[j]
			if deleted[b.ID] {
				continue
			}
			if a.HomeTeamID != b.HomeTeamID || a.AwayTeamID != b.AwayTeamID || a.LeagueID != b.LeagueID {
				continue
			}
			gap := b.Date.Sub(a.Date)
			if gap < 0 {
				gap = -gap
			}
			if gap >= time.Hour {
				continue
			}

			keep, drop := a, b
			if matchFieldCount(b) > matchFieldCount(a) {
				keep, drop = b, a
			}
			s.logger.Warn("duplicate match removed",
				zap.Uint("match_id", drop.ID), zap.Uint("kept", keep.ID))
			if err := s.db.WithContext(ctx).Delete(&models.Match{}, drop.ID).Error; err != nil {
				return removed, err
			}
			deleted[drop.ID] = true
			removed++
			if drop == a {
				break
			}
		}
	}
	return removed, nil
}

// matchFieldCount counts the populated stat fields, used to pick
// which of two duplicate rows to keep.
func matchFieldCount(m *models.Match) int {
	n := 0
	for _, v := range []*int{m.HomeGoals, m.AwayGoals, m.HomeCorners, m.AwayCorners, m.HomeCards, m.AwayCards} {
		if v != nil {
			n++
		}
	}
	return n
}

// dedupeOdds keeps only the newest snapshot per match, bookmaker,
// market and selection. Older rows go when they repeat the kept price
// or were captured within a minute of it; genuine line movement stays.
func (s *cleanerService) dedupeOdds(ctx context.Context) (int, error) {
	type group struct {
		MatchID   uint
		Bookmaker string
		Market    string
		Selection string
	}
	var groups []group
	err := s.db.WithContext(ctx).Model(&models.Odds{}).
		Select("match_id, bookmaker, market, selection").
		Group("match_id, bookmaker, market, selection").
		Having("COUNT(*) > 1").
		Scan(&groups).Error
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, g := range groups {
		var rows []models.Odds
		err := s.db.WithContext(ctx).
			Where("match_id = ? AND bookmaker = ? AND market = ? AND selection = ?",
				g.MatchID, g.Bookmaker, g.Market, g.Selection).
			Order("captured_at DESC").
			Find(&rows).Error
		if err != nil {
			return removed, err
		}
		if len(rows) < 2 {
			continue
		}

		kept := rows[0]
		for _, o := range rows[1:] {
			samePrice := o.Price == kept.Price
			closeInTime := kept.CapturedAt.Sub(o.CapturedAt) < time.Minute
			if !samePrice && !closeInTime {
				continue
			}
			if err := s.db.WithContext(ctx).Delete(&models.Odds{}, o.ID).Error; err != nil {
				return removed, err
			}
			removed++
		}
	}
	return removed, nil
}

type leagueCountAvg struct {
	corners float64
	cards   float64
}

func (s *cleanerService) leagueAverages(ctx context.Context) (map[string]leagueCountAvg, error) {
	var matches []models.Match
	err := s.db.WithContext(ctx).
		Where("status = ? AND home_corners IS NOT NULL AND away_corners IS NOT NULL", models.StatusFinished).
		Find(&matches).Error
	if err != nil {
		return nil, err
	}

	type acc struct {
		corners, cards, n, cardsN int
	}
	byLeague := make(map[string]*acc)
	for _, m := range matches {
		a, ok := byLeague[m.LeagueID]
		if !ok {
			a = &acc{}
			byLeague[m.LeagueID] = a
		}
		a.corners += *m.HomeCorners + *m.AwayCorners
		a.n++
		if m.HomeCards != nil && m.AwayCards != nil {
			a.cards += *m.HomeCards + *m.AwayCards
			a.cardsN++
		}
	}

	avgs := make(map[string]leagueCountAvg, len(byLeague))
	for league, a := range byLeague {
		avg := leagueCountAvg{corners: 10.5, cards: 3.8}
		if a.n > 0 {
			avg.corners = float64(a.corners) / float64(a.n)
		}
		if a.cardsN > 0 {
			avg.cards = float64(a.cards) / float64(a.cardsN)
		}
		avgs[league] = avg
	}
	return avgs, nil
}

const outlierMinSample = 30

func (s *cleanerService) DetectOutliers(ctx context.Context) ([]uint, error) {
	var matches []models.Match
	err := s.db.WithContext(ctx).
		Where("status = ? AND home_goals IS NOT NULL AND away_goals IS NOT NULL", models.StatusFinished).
		Find(&matches).Error
	if err != nil {
		return nil, err
	}
	if len(matches) < outlierMinSample {
		return nil, nil
	}

	values := make([]float64, len(matches))
	for i, m := range matches {
		values[i] = float64(*m.HomeGoals + *m.AwayGoals)
	}

	lower, upper := iqrBounds(values, 1.5)
	var outliers []uint
	for i, m := range matches {
		if values[i] < lower || values[i] > upper {
			outliers = append(outliers, m.ID)
		}
	}
	return outliers, nil
}

// iqrBounds returns the [Q1 - t*IQR, Q3 + t*IQR] fence.
func iqrBounds(values []float64, threshold float64) (lower, upper float64) {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	q1 := percentile(sorted, 0.25)
	q3 := percentile(sorted, 0.75)
	iqr := q3 - q1
	return q1 - threshold*iqr, q3 + threshold*iqr
}

// percentile linearly interpolates on pre-sorted data.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	pos := p * float64(len(sorted)-1)
	lo := int(pos)
	if lo >= len(sorted)-1 {
		return sorted[len(sorted)-1]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[lo+1]*frac
}
