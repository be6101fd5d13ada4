package services

import (
	"context"
	"time"

	"github.com/JemAndrew/football-betting-bot/internal/config"
	"github.com/JemAndrew/football-betting-bot/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// League-wide fallbacks used when a league has too little history to
// compute its own baselines.
const (
	defaultLeagueGoalsPerGame     = 2.8
	defaultLeagueHomeGoalsPerGame = 1.5
	defaultLeagueAwayGoalsPerGame = 1.3
	defaultLeagueBTTSRate         = 0.52
	defaultLeagueOver25Rate       = 0.48
)

// LeagueAverages is the statistical baseline teams are measured against.
type LeagueAverages struct {
	GoalsPerGame     float64 `json:"goals_per_game"`
	HomeGoalsPerGame float64 `json:"home_goals_per_game"`
	AwayGoalsPerGame float64 `json:"away_goals_per_game"`
	BTTSRate         float64 `json:"btts_rate"`
	Over25Rate       float64 `json:"over_25_rate"`
	SampleSize       int     `json:"sample_size"`
}

// TeamStats is a team's attacking and defensive output relative to its
// league. Strength 1.0 means exactly league average; attack above 1.0
// is good, defence below 1.0 is good.
type TeamStats struct {
	GamesPlayed        int     `json:"games_played"`
	GoalsForPerGame    float64 `json:"goals_for_per_game"`
	GoalsAgstPerGame   float64 `json:"goals_against_per_game"`
	AttackStrength     float64 `json:"attack_strength"`
	DefenceStrength    float64 `json:"defence_strength"`
	CleanSheetRate     float64 `json:"clean_sheet_rate"`
	FailedToScore      float64 `json:"failed_to_score_rate"`
	BTTSRate           float64 `json:"btts_rate"`
	Over25Rate         float64 `json:"over_25_rate"`
	DaysSinceLastMatch int     `json:"days_since_last_match"`
}

// One side winning over 60% of meetings suggests a hold over the
// opponent; five meetings is the floor for trusting the record.
const (
	h2hEdgeWinRate      = 0.6
	h2hSufficientGames  = 5
	h2hMaxDominance     = 3.0
	h2hNeutralDominance = 1.0
)

// HeadToHead summarizes past meetings between two teams, from the
// perspective of the first (home) team. Dominance is the ratio of the
// home side's win rate to the away side's; PsychologicalEdge names
// which side has historically held the upper hand.
type HeadToHead struct {
	MatchesPlayed     int     `json:"matches_played"`
	HomeWins          int     `json:"home_wins"`
	Draws             int     `json:"draws"`
	AwayWins          int     `json:"away_wins"`
	AvgTotalGoals     float64 `json:"avg_total_goals"`
	BTTSRate          float64 `json:"btts_rate"`
	Dominance         float64 `json:"dominance"`
	PsychologicalEdge string  `json:"psychological_edge"`
	SufficientHistory bool    `json:"sufficient_history"`
}

// RefereeProfile describes an official's card and corner tendencies.
type RefereeProfile struct {
	Name               string  `json:"name"`
	MatchesOfficiated  int     `json:"matches_officiated"`
	AvgCardsPerGame    float64 `json:"avg_cards_per_game"`
	AvgCornersPerGame  float64 `json:"avg_corners_per_game"`
	AffectsCardsMarket bool    `json:"affects_cards_market"`
}

// League averages for officials without enough history of their own.
const (
	defaultRefereeCards   = 3.8
	defaultRefereeCorners = 10.5
	refereeMinMatches     = 10
)

// MatchFeatures is the full pre-kickoff input vector for the
// prediction models.
type MatchFeatures struct {
	HomeElo       float64         `json:"home_elo"`
	AwayElo       float64         `json:"away_elo"`
	HomeForm      *TeamForm       `json:"home_form"`
	AwayForm      *TeamForm       `json:"away_form"`
	HomeStats     *TeamStats      `json:"home_stats"`
	AwayStats     *TeamStats      `json:"away_stats"`
	League        *LeagueAverages `json:"league"`
	H2H           *HeadToHead     `json:"h2h"`
	Referee       *RefereeProfile `json:"referee,omitempty"`
	HomeXGFactor  float64         `json:"home_xg_factor"`
	AwayXGFactor  float64         `json:"away_xg_factor"`
	EnoughHistory bool            `json:"enough_history"`
}

// FeatureService assembles model inputs from stored match history.
type FeatureService interface {
	LeagueAverages(ctx context.Context, leagueID string, before time.Time) (*LeagueAverages, error)
	TeamStats(ctx context.Context, teamID uint, isHome bool, before time.Time) (*TeamStats, error)
	HeadToHead(ctx context.Context, homeTeamID, awayTeamID uint, before time.Time) (*HeadToHead, error)
	RefereeProfile(ctx context.Context, refereeID uint) (*RefereeProfile, error)
	// MatchFeatures builds the complete feature vector for one
	// upcoming match.
	MatchFeatures(ctx context.Context, match *models.Match) (*MatchFeatures, error)
}

type featureService struct {
	db     *gorm.DB
	cfg    config.PoissonConfig
	form   FormService
	logger *zap.Logger
}

func NewFeatureService(db *gorm.DB, cfg config.PoissonConfig, form FormService, logger *zap.Logger) FeatureService {
	return &featureService{db: db, cfg: cfg, form: form, logger: logger.Named("features")}
}

func (s *featureService) lookbackStart(before time.Time) time.Time {
	return before.AddDate(0, 0, -s.cfg.LookbackDays)
}

func (s *featureService) LeagueAverages(ctx context.Context, leagueID string, before time.Time) (*LeagueAverages, error) {
	var matches []models.Match
	err := s.db.WithContext(ctx).
		Where("league_id = ? AND status = ? AND date >= ? AND date < ?",
			leagueID, models.StatusFinished, s.lookbackStart(before), before).
		Where("home_goals IS NOT NULL AND away_goals IS NOT NULL").
		Find(&matches).Error
	if err != nil {
		return nil, err
	}

	if len(matches) < s.cfg.MinGames {
		return &LeagueAverages{
			GoalsPerGame:     defaultLeagueGoalsPerGame,
			HomeGoalsPerGame: defaultLeagueHomeGoalsPerGame,
			AwayGoalsPerGame: defaultLeagueAwayGoalsPerGame,
			BTTSRate:         defaultLeagueBTTSRate,
			Over25Rate:       defaultLeagueOver25Rate,
			SampleSize:       len(matches),
		}, nil
	}

	var homeGoals, awayGoals, btts, over25 int
	for _, m := range matches {
		homeGoals += *m.HomeGoals
		awayGoals += *m.AwayGoals
		if *m.HomeGoals > 0 && *m.AwayGoals > 0 {
			btts++
		}
		if *m.HomeGoals+*m.AwayGoals > 2 {
			over25++
		}
	}

	n := float64(len(matches))
	return &LeagueAverages{
		GoalsPerGame:     float64(homeGoals+awayGoals) / n,
		HomeGoalsPerGame: float64(homeGoals) / n,
		AwayGoalsPerGame: float64(awayGoals) / n,
		BTTSRate:         float64(btts) / n,
		Over25Rate:       float64(over25) / n,
		SampleSize:       len(matches),
	}, nil
}

func (s *featureService) TeamStats(ctx context.Context, teamID uint, isHome bool, before time.Time) (*TeamStats, error) {
	var team models.Team
	if err := s.db.WithContext(ctx).First(&team, teamID).Error; err != nil {
		return nil, err
	}
	league, err := s.LeagueAverages(ctx, team.LeagueID, before)
	if err != nil {
		return nil, err
	}

	var matches []models.Match
	err = s.db.WithContext(ctx).
		Where("(home_team_id = ? OR away_team_id = ?) AND status = ? AND date >= ? AND date < ?",
			teamID, teamID, models.StatusFinished, s.lookbackStart(before), before).
		Where("home_goals IS NOT NULL AND away_goals IS NOT NULL").
		Find(&matches).Error
	if err != nil {
		return nil, err
	}

	stats := &TeamStats{AttackStrength: 1.0, DefenceStrength: 1.0}
	if len(matches) > 0 {
		// Rest days feed into fatigue analysis downstream.
		latest := matches[0].Date
		for _, m := range matches[1:] {
			if m.Date.After(latest) {
				latest = m.Date
			}
		}
		stats.DaysSinceLastMatch = int(before.Sub(latest).Hours() / 24)
	}
	if len(matches) < s.cfg.MinGames {
		return stats, nil
	}

	var goalsFor, goalsAgainst, cleanSheets, failedToScore, btts, over25 int
	for _, m := range matches {
		gf, ga := *m.HomeGoals, *m.AwayGoals
		if m.AwayTeamID == teamID {
			gf, ga = ga, gf
		}
		goalsFor += gf
		goalsAgainst += ga
		if ga == 0 {
			cleanSheets++
		}
		if gf == 0 {
			failedToScore++
		}
		if gf > 0 && ga > 0 {
			btts++
		}
		if gf+ga > 2 {
			over25++
		}
	}

	n := float64(len(matches))
	stats.GamesPlayed = len(matches)
	stats.GoalsForPerGame = float64(goalsFor) / n
	stats.GoalsAgstPerGame = float64(goalsAgainst) / n
	stats.CleanSheetRate = float64(cleanSheets) / n
	stats.FailedToScore = float64(failedToScore) / n
	stats.BTTSRate = float64(btts) / n
	stats.Over25Rate = float64(over25) / n

	// Strengths compare a team's per-game output to the scoring rate
	// of the opposite venue: a home side's attack is measured against
	// how much visiting sides usually concede.
	if isHome {
		stats.AttackStrength = stats.GoalsForPerGame / league.HomeGoalsPerGame
		stats.DefenceStrength = stats.GoalsAgstPerGame / league.AwayGoalsPerGame
	} else {
		stats.AttackStrength = stats.GoalsForPerGame / league.AwayGoalsPerGame
		stats.DefenceStrength = stats.GoalsAgstPerGame / league.HomeGoalsPerGame
	}
	return stats, nil
}

func (s *featureService) HeadToHead(ctx context.Context, homeTeamID, awayTeamID uint, before time.Time) (*HeadToHead, error) {
	var matches []models.Match
	err := s.db.WithContext(ctx).
		Where("((home_team_id = ? AND away_team_id = ?) OR (home_team_id = ? AND away_team_id = ?))",
			homeTeamID, awayTeamID, awayTeamID, homeTeamID).
		Where("status = ? AND date < ?", models.StatusFinished, before).
		Where("home_goals IS NOT NULL AND away_goals IS NOT NULL").
		Order("date DESC").
		Limit(10).
		Find(&matches).Error
	if err != nil {
		return nil, err
	}

	h2h := &HeadToHead{
		MatchesPlayed:     len(matches),
		Dominance:         h2hNeutralDominance,
		PsychologicalEdge: "neutral",
		SufficientHistory: len(matches) >= h2hSufficientGames,
	}
	if len(matches) == 0 {
		return h2h, nil
	}

	var totalGoals, btts int
	for _, m := range matches {
		hg, ag := *m.HomeGoals, *m.AwayGoals
		totalGoals += hg + ag
		if hg > 0 && ag > 0 {
			btts++
		}

		winnerID := uint(0)
		switch {
		case hg > ag:
			winnerID = m.HomeTeamID
		case ag > hg:
			winnerID = m.AwayTeamID
		}
		switch winnerID {
		case homeTeamID:
			h2h.HomeWins++
		case awayTeamID:
			h2h.AwayWins++
		default:
			h2h.Draws++
		}
	}

	n := float64(len(matches))
	h2h.AvgTotalGoals = float64(totalGoals) / n
	h2h.BTTSRate = float64(btts) / n

	homeWinRate := float64(h2h.HomeWins) / n
	awayWinRate := float64(h2h.AwayWins) / n
	switch {
	case awayWinRate > 0:
		h2h.Dominance = homeWinRate / awayWinRate
	case homeWinRate > 0:
		h2h.Dominance = h2hMaxDominance
	}
	switch {
	case homeWinRate > h2hEdgeWinRate:
		h2h.PsychologicalEdge = "home"
	case awayWinRate > h2hEdgeWinRate:
		h2h.PsychologicalEdge = "away"
	}
	return h2h, nil
}

func (s *featureService) RefereeProfile(ctx context.Context, refereeID uint) (*RefereeProfile, error) {
	var ref models.Referee
	if err := s.db.WithContext(ctx).First(&ref, refereeID).Error; err != nil {
		return nil, err
	}

	profile := &RefereeProfile{
		Name:              ref.Name,
		MatchesOfficiated: ref.MatchesOfficiated,
		AvgCardsPerGame:   defaultRefereeCards,
		AvgCornersPerGame: defaultRefereeCorners,
	}
	if ref.MatchesOfficiated >= refereeMinMatches {
		if ref.AvgCards != nil {
			profile.AvgCardsPerGame = *ref.AvgCards
		}
		if ref.AvgCorners != nil {
			profile.AvgCornersPerGame = *ref.AvgCorners
		}
	}
	profile.AffectsCardsMarket = profile.AvgCardsPerGame-defaultRefereeCards > 0.5 ||
		defaultRefereeCards-profile.AvgCardsPerGame > 0.5
	return profile, nil
}

func (s *featureService) MatchFeatures(ctx context.Context, match *models.Match) (*MatchFeatures, error) {
	var home, away models.Team
	if err := s.db.WithContext(ctx).First(&home, match.HomeTeamID).Error; err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).First(&away, match.AwayTeamID).Error; err != nil {
		return nil, err
	}

	homeForm, awayForm, err := s.form.MatchForm(ctx, match)
	if err != nil {
		return nil, err
	}
	homeStats, err := s.TeamStats(ctx, match.HomeTeamID, true, match.Date)
	if err != nil {
		return nil, err
	}
	awayStats, err := s.TeamStats(ctx, match.AwayTeamID, false, match.Date)
	if err != nil {
		return nil, err
	}
	league, err := s.LeagueAverages(ctx, match.LeagueID, match.Date)
	if err != nil {
		return nil, err
	}
	h2h, err := s.HeadToHead(ctx, match.HomeTeamID, match.AwayTeamID, match.Date)
	if err != nil {
		return nil, err
	}

	f := &MatchFeatures{
		HomeElo:   home.CurrentElo,
		AwayElo:   away.CurrentElo,
		HomeForm:  homeForm,
		AwayForm:  awayForm,
		HomeStats: homeStats,
		AwayStats: awayStats,
		League:    league,
		H2H:       h2h,
		// The xG factor pairs each attack with the opposing defence.
		HomeXGFactor:  homeStats.AttackStrength * awayStats.DefenceStrength,
		AwayXGFactor:  awayStats.AttackStrength * homeStats.DefenceStrength,
		EnoughHistory: homeStats.GamesPlayed >= s.cfg.MinGames && awayStats.GamesPlayed >= s.cfg.MinGames,
	}

	if match.RefereeID != nil {
		ref, err := s.RefereeProfile(ctx, *match.RefereeID)
		if err == nil {
			f.Referee = ref
		} else {
			s.logger.Debug("referee profile unavailable",
				zap.Uint("referee_id", *match.RefereeID), zap.Error(err))
		}
	}
	return f, nil
}
