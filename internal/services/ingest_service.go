package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/JemAndrew/football-betting-bot/internal/api"
	"github.com/JemAndrew/football-betting-bot/internal/models"
	"github.com/JemAndrew/football-betting-bot/internal/oddsmath"
	"github.com/JemAndrew/football-betting-bot/internal/validate"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// IngestStats counts what an ingest run stored.
type IngestStats struct {
	Fetched int `json:"fetched"`
	Created int `json:"created"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
}

// IngestService pulls fixtures, results and odds from the feeds into
// the operational database.
type IngestService interface {
	// SyncTeams seeds a league's current squad list at the default
	// rating, so odds events can match before the first results sync.
	SyncTeams(ctx context.Context, leagueID string) (*IngestStats, error)
	// SyncResults stores finished matches for a league over the past
	// daysBack days.
	SyncResults(ctx context.Context, leagueID string, daysBack int) (*IngestStats, error)
	// SyncFixtures stores scheduled matches over the next daysAhead days.
	SyncFixtures(ctx context.Context, leagueID string, daysAhead int) (*IngestStats, error)
	// SyncOdds stores current bookmaker prices against known fixtures.
	SyncOdds(ctx context.Context, leagueID string) (*IngestStats, error)
}

type ingestService struct {
	db       *gorm.DB
	football *api.FootballDataClient
	odds     *api.OddsClient
	logger   *zap.Logger
}

func NewIngestService(db *gorm.DB, football *api.FootballDataClient, odds *api.OddsClient, logger *zap.Logger) IngestService {
	return &ingestService{db: db, football: football, odds: odds, logger: logger.Named("ingest")}
}

func (s *ingestService) SyncTeams(ctx context.Context, leagueID string) (*IngestStats, error) {
	fetched, err := s.football.Teams(ctx, leagueID)
	if err != nil {
		return nil, err
	}
	return s.storeTeams(ctx, leagueID, fetched)
}

func (s *ingestService) storeTeams(ctx context.Context, leagueID string, fetched []api.FDTeam) (*IngestStats, error) {
	stats := &IngestStats{Fetched: len(fetched)}
	for _, ft := range fetched {
		name := oddsmath.StandardizeTeamName(ft.Name)
		var existing models.Team
		err := s.db.WithContext(ctx).Where("name = ?", name).First(&existing).Error
		if err == nil {
			stats.Skipped++
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		team := models.Team{
			Name:       name,
			LeagueID:   leagueID,
			ExternalID: &ft.ID,
			CurrentElo: models.DefaultElo,
		}
		if err := s.db.WithContext(ctx).Create(&team).Error; err != nil {
			return nil, err
		}
		stats.Created++
	}

	s.logger.Info("teams synced",
		zap.String("league", leagueID),
		zap.Int("fetched", stats.Fetched),
		zap.Int("created", stats.Created))
	return stats, nil
}

func (s *ingestService) SyncResults(ctx context.Context, leagueID string, daysBack int) (*IngestStats, error) {
	now := time.Now()
	fetched, err := s.football.Results(ctx, leagueID, now.AddDate(0, 0, -daysBack), now)
	if err != nil {
		return nil, err
	}
	return s.storeMatches(ctx, leagueID, fetched)
}

func (s *ingestService) SyncFixtures(ctx context.Context, leagueID string, daysAhead int) (*IngestStats, error) {
	fetched, err := s.football.Fixtures(ctx, leagueID, daysAhead)
	if err != nil {
		return nil, err
	}
	return s.storeMatches(ctx, leagueID, fetched)
}

func (s *ingestService) storeMatches(ctx context.Context, leagueID string, fetched []api.FDMatch) (*IngestStats, error) {
	stats := &IngestStats{Fetched: len(fetched)}
	for _, fm := range fetched {
		if err := s.storeMatch(ctx, leagueID, fm, stats); err != nil {
			s.logger.Warn("match skipped",
				zap.Int64("external_id", fm.ID), zap.Error(err))
			stats.Skipped++
		}
	}
	s.logger.Info("matches synced",
		zap.String("league", leagueID),
		zap.Int("fetched", stats.Fetched),
		zap.Int("created", stats.Created),
		zap.Int("updated", stats.Updated),
		zap.Int("skipped", stats.Skipped))
	return stats, nil
}

func (s *ingestService) storeMatch(ctx context.Context, leagueID string, fm api.FDMatch, stats *IngestStats) error {
	if fm.Status == "FINISHED" && fm.Score.FullTime.Home != nil && fm.Score.FullTime.Away != nil {
		errs := validate.Match(validate.MatchData{
			Date:      fm.UTCDate,
			HomeGoals: *fm.Score.FullTime.Home,
			AwayGoals: *fm.Score.FullTime.Away,
		})
		if len(errs) > 0 {
			return fmt.Errorf("invalid match data: %v", errs[0])
		}
	}

	tx := s.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return tx.Error
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	home, err := findOrCreateTeam(tx, leagueID, fm.HomeTeam)
	if err != nil {
		tx.Rollback()
		return err
	}
	away, err := findOrCreateTeam(tx, leagueID, fm.AwayTeam)
	if err != nil {
		tx.Rollback()
		return err
	}

	var refereeID *uint
	if name := fm.Referee(); name != "" {
		ref, err := findOrCreateReferee(tx, name)
		if err != nil {
			tx.Rollback()
			return err
		}
		refereeID = &ref.ID
	}

	externalID := fmt.Sprint(fm.ID)
	var match models.Match
	err = tx.Where("external_id = ?", externalID).First(&match).Error
	created := errors.Is(err, gorm.ErrRecordNotFound)
	if err != nil && !created {
		tx.Rollback()
		return err
	}

	match.ExternalID = externalID
	match.Date = fm.UTCDate
	match.HomeTeamID = home.ID
	match.AwayTeamID = away.ID
	match.LeagueID = leagueID
	match.Status = mapStatus(fm.Status)
	match.HomeGoals = fm.Score.FullTime.Home
	match.AwayGoals = fm.Score.FullTime.Away
	if refereeID != nil {
		match.RefereeID = refereeID
	}

	if created {
		err = tx.Create(&match).Error
	} else {
		err = tx.Save(&match).Error
	}
	if err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit().Error; err != nil {
		return err
	}

	if created {
		stats.Created++
	} else {
		stats.Updated++
	}
	return nil
}

func mapStatus(fdStatus string) string {
	switch fdStatus {
	case "FINISHED":
		return models.StatusFinished
	case "POSTPONED", "SUSPENDED", "CANCELLED":
		return models.StatusPostponed
	default:
		return models.StatusScheduled
	}
}

func findOrCreateTeam(tx *gorm.DB, leagueID string, ft api.FDTeam) (*models.Team, error) {
	name := oddsmath.StandardizeTeamName(ft.Name)

	var team models.Team
	err := tx.Where("name = ?", name).First(&team).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		team = models.Team{
			Name:       name,
			LeagueID:   leagueID,
			ExternalID: &ft.ID,
			CurrentElo: models.DefaultElo,
		}
		if err := tx.Create(&team).Error; err != nil {
			return nil, err
		}
		return &team, nil
	}
	if err != nil {
		return nil, err
	}
	return &team, nil
}

func findOrCreateReferee(tx *gorm.DB, name string) (*models.Referee, error) {
	var ref models.Referee
	err := tx.Where("name = ?", name).First(&ref).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		ref = models.Referee{Name: name}
		if err := tx.Create(&ref).Error; err != nil {
			return nil, err
		}
		return &ref, nil
	}
	if err != nil {
		return nil, err
	}
	return &ref, nil
}

// oddsMarketKey maps an odds API market and outcome to our market key.
func oddsMarketKey(event api.Event, marketKey string, outcome api.Outcome) (market, selection string, ok bool) {
	switch marketKey {
	case "h2h":
		switch oddsmath.StandardizeTeamName(outcome.Name) {
		case oddsmath.StandardizeTeamName(event.HomeTeam):
			return models.MarketHomeWin, "home", true
		case oddsmath.StandardizeTeamName(event.AwayTeam):
			return models.MarketAwayWin, "away", true
		}
		if outcome.Name == "Draw" {
			return models.MarketDraw, "draw", true
		}
	case "totals":
		// Bookmakers quote their own main line; only the 2.5 goal
		// line maps onto our stored markets.
		if outcome.Point != nil && *outcome.Point != 2.5 {
			return "", "", false
		}
		switch outcome.Name {
		case "Over":
			return models.MarketOver25, "over", true
		case "Under":
			return models.MarketUnder25, "under", true
		}
	case "btts":
		switch outcome.Name {
		case "Yes":
			return models.MarketBTTSYes, "yes", true
		case "No":
			return models.MarketBTTSNo, "no", true
		}
	}
	return "", "", false
}

func (s *ingestService) SyncOdds(ctx context.Context, leagueID string) (*IngestStats, error) {
	events, err := s.odds.Odds(ctx, leagueID, "h2h,totals")
	if err != nil {
		return nil, err
	}

	stats := &IngestStats{Fetched: len(events)}
	for _, event := range events {
		match, err := s.matchForEvent(ctx, event)
		if err != nil {
			s.logger.Debug("no stored fixture for odds event",
				zap.String("home", event.HomeTeam),
				zap.String("away", event.AwayTeam),
				zap.Error(err))
			stats.Skipped++
			continue
		}

		if price, bookie, ok := event.BestPrice("h2h", event.HomeTeam); ok {
			s.logger.Debug("best home price",
				zap.String("home", event.HomeTeam),
				zap.Float64("price", price),
				zap.String("bookmaker", bookie))
		}

		for _, bookmaker := range event.Bookmakers {
			for _, market := range bookmaker.Markets {
				for _, outcome := range market.Outcomes {
					marketKey, selection, ok := oddsMarketKey(event, market.Key, outcome)
					if !ok {
						continue
					}
					if err := validate.Odds(outcome.Price); err != nil {
						s.logger.Warn("odds rejected",
							zap.String("bookmaker", bookmaker.Title), zap.Error(err))
						continue
					}
					odds := models.Odds{
						MatchID:   match.ID,
						Bookmaker: bookmaker.Title,
						Market:    marketKey,
						Selection: selection,
						Price:     outcome.Price,
					}
					if err := s.db.WithContext(ctx).Create(&odds).Error; err != nil {
						return stats, err
					}
					stats.Created++
				}
			}
		}
	}

	s.logger.Info("odds synced",
		zap.String("league", leagueID),
		zap.Int("events", stats.Fetched),
		zap.Int("prices", stats.Created),
		zap.Int("unmatched", stats.Skipped))
	return stats, nil
}

// matchForEvent finds the stored fixture an odds event refers to by
// standardized team names and a kickoff window.
func (s *ingestService) matchForEvent(ctx context.Context, event api.Event) (*models.Match, error) {
	homeName := oddsmath.StandardizeTeamName(event.HomeTeam)
	awayName := oddsmath.StandardizeTeamName(event.AwayTeam)

	var home, away models.Team
	if err := s.db.WithContext(ctx).Where("name = ?", homeName).First(&home).Error; err != nil {
		return nil, fmt.Errorf("unknown home team %q: %w", homeName, err)
	}
	if err := s.db.WithContext(ctx).Where("name = ?", awayName).First(&away).Error; err != nil {
		return nil, fmt.Errorf("unknown away team %q: %w", awayName, err)
	}

	var match models.Match
	err := s.db.WithContext(ctx).
		Where("home_team_id = ? AND away_team_id = ?", home.ID, away.ID).
		Where("date BETWEEN ? AND ?",
			event.CommenceTime.Add(-12*time.Hour), event.CommenceTime.Add(12*time.Hour)).
		First(&match).Error
	if err != nil {
		return nil, fmt.Errorf("no fixture near %s: %w", event.CommenceTime, err)
	}
	return &match, nil
}
