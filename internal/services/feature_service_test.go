package services

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/JemAndrew/football-betting-bot/internal/models"
)

func floatPtr(v float64) *float64 {
	return &v
}

func TestLeagueAveragesFallsBackOnThinHistory(t *testing.T) {
	db := setupTestDB(t)
	cfg := testModelConfig()
	form := NewFormService(db, cfg.Form, nopLogger())
	svc := NewFeatureService(db, cfg.Poisson, form, nopLogger())

	home := seedTeam(t, db, "Arsenal", "PL", 1500)
	away := seedTeam(t, db, "Chelsea", "PL", 1500)
	seedFinished(t, db, home, away, time.Now().AddDate(0, 0, -7), 2, 1)

	avg, err := svc.LeagueAverages(context.Background(), "PL", time.Now())
	if err != nil {
		t.Fatalf("LeagueAverages failed: %v", err)
	}
	if avg.SampleSize != 1 {
		t.Errorf("expected sample size 1, got %d", avg.SampleSize)
	}
	if avg.GoalsPerGame != defaultLeagueGoalsPerGame {
		t.Errorf("expected default goals per game %.2f, got %.2f",
			defaultLeagueGoalsPerGame, avg.GoalsPerGame)
	}
	if avg.BTTSRate != defaultLeagueBTTSRate {
		t.Errorf("expected default BTTS rate, got %.2f", avg.BTTSRate)
	}
}

func TestLeagueAveragesFromHistory(t *testing.T) {
	db := setupTestDB(t)
	cfg := testModelConfig()
	form := NewFormService(db, cfg.Form, nopLogger())
	svc := NewFeatureService(db, cfg.Poisson, form, nopLogger())

	home := seedTeam(t, db, "Arsenal", "PL", 1500)
	away := seedTeam(t, db, "Chelsea", "PL", 1500)

	base := time.Now().AddDate(0, 0, -40)
	scores := [][2]int{{2, 1}, {0, 0}, {3, 1}, {1, 1}, {2, 0}}
	for i, s := range scores {
		seedFinished(t, db, home, away, base.AddDate(0, 0, i), s[0], s[1])
	}

	avg, err := svc.LeagueAverages(context.Background(), "PL", time.Now())
	if err != nil {
		t.Fatalf("LeagueAverages failed: %v", err)
	}
	if avg.SampleSize != 5 {
		t.Fatalf("expected 5 matches, got %d", avg.SampleSize)
	}
	if math.Abs(avg.HomeGoalsPerGame-1.6) > 1e-9 {
		t.Errorf("expected 1.6 home goals per game, got %.2f", avg.HomeGoalsPerGame)
	}
	if math.Abs(avg.AwayGoalsPerGame-0.6) > 1e-9 {
		t.Errorf("expected 0.6 away goals per game, got %.2f", avg.AwayGoalsPerGame)
	}
	// 2-1, 3-1 saw both sides score.
	if math.Abs(avg.BTTSRate-0.4) > 1e-9 {
		t.Errorf("expected BTTS rate 0.4, got %.2f", avg.BTTSRate)
	}
	// 2-1, 3-1 went over 2.5.
	if math.Abs(avg.Over25Rate-0.4) > 1e-9 {
		t.Errorf("expected over 2.5 rate 0.4, got %.2f", avg.Over25Rate)
	}
}

func TestTeamStatsNeutralWithoutHistory(t *testing.T) {
	db := setupTestDB(t)
	cfg := testModelConfig()
	form := NewFormService(db, cfg.Form, nopLogger())
	svc := NewFeatureService(db, cfg.Poisson, form, nopLogger())

	team := seedTeam(t, db, "Arsenal", "PL", 1500)
	stats, err := svc.TeamStats(context.Background(), team.ID, true, time.Now())
	if err != nil {
		t.Fatalf("TeamStats failed: %v", err)
	}
	if stats.AttackStrength != 1.0 || stats.DefenceStrength != 1.0 {
		t.Errorf("expected neutral strengths, got attack %.2f defence %.2f",
			stats.AttackStrength, stats.DefenceStrength)
	}
	if stats.GamesPlayed != 0 {
		t.Errorf("expected 0 games, got %d", stats.GamesPlayed)
	}
}

func TestTeamStatsStrengthRelativeToLeague(t *testing.T) {
	db := setupTestDB(t)
	cfg := testModelConfig()
	form := NewFormService(db, cfg.Form, nopLogger())
	svc := NewFeatureService(db, cfg.Poisson, form, nopLogger())
	ctx := context.Background()

	strong := seedTeam(t, db, "Arsenal", "PL", 1600)
	weak := seedTeam(t, db, "Luton", "PL", 1400)
	filler1 := seedTeam(t, db, "Brentford", "PL", 1500)
	filler2 := seedTeam(t, db, "Fulham", "PL", 1500)

	base := time.Now().AddDate(0, 0, -40)
	// Arsenal win 3-0 at home five times.
	for i := 0; i < 5; i++ {
		seedFinished(t, db, strong, weak, base.AddDate(0, 0, i), 3, 0)
	}
	// Filler matches drag the league average down: 1-1 five times.
	for i := 0; i < 5; i++ {
		seedFinished(t, db, filler1, filler2, base.AddDate(0, 0, i), 1, 1)
	}

	stats, err := svc.TeamStats(ctx, strong.ID, true, time.Now())
	if err != nil {
		t.Fatalf("TeamStats failed: %v", err)
	}
	// League: 10 matches, 20 home goals, 5 away goals.
	// Arsenal at home: 3.0 scored vs league 2.0 -> attack 1.5;
	// 0.0 conceded vs league away rate 0.5 -> defence 0.0.
	if math.Abs(stats.AttackStrength-1.5) > 1e-9 {
		t.Errorf("expected attack strength 1.5, got %.4f", stats.AttackStrength)
	}
	if math.Abs(stats.DefenceStrength) > 1e-9 {
		t.Errorf("expected defence strength 0, got %.4f", stats.DefenceStrength)
	}
	if math.Abs(stats.CleanSheetRate-1.0) > 1e-9 {
		t.Errorf("expected clean sheet rate 1.0, got %.2f", stats.CleanSheetRate)
	}
}

func TestTeamStatsDaysSinceLastMatch(t *testing.T) {
	db := setupTestDB(t)
	cfg := testModelConfig()
	form := NewFormService(db, cfg.Form, nopLogger())
	svc := NewFeatureService(db, cfg.Poisson, form, nopLogger())
	ctx := context.Background()

	arsenal := seedTeam(t, db, "Arsenal", "PL", 1500)
	chelsea := seedTeam(t, db, "Chelsea", "PL", 1500)

	cutoff := time.Now()
	seedFinished(t, db, arsenal, chelsea, cutoff.AddDate(0, 0, -20), 1, 0)
	seedFinished(t, db, chelsea, arsenal, cutoff.AddDate(0, 0, -6), 2, 2)

	stats, err := svc.TeamStats(ctx, arsenal.ID, true, cutoff)
	if err != nil {
		t.Fatalf("TeamStats failed: %v", err)
	}
	// Rest days come from the most recent game even when the sample
	// is too thin for strength ratings.
	if stats.DaysSinceLastMatch != 6 {
		t.Errorf("expected 6 rest days, got %d", stats.DaysSinceLastMatch)
	}
	if stats.AttackStrength != 1.0 {
		t.Errorf("two games must stay below the ratings threshold, got %.2f", stats.AttackStrength)
	}
}

func TestHeadToHeadAttribution(t *testing.T) {
	db := setupTestDB(t)
	cfg := testModelConfig()
	form := NewFormService(db, cfg.Form, nopLogger())
	svc := NewFeatureService(db, cfg.Poisson, form, nopLogger())
	ctx := context.Background()

	arsenal := seedTeam(t, db, "Arsenal", "PL", 1500)
	chelsea := seedTeam(t, db, "Chelsea", "PL", 1500)

	base := time.Now().AddDate(0, -6, 0)
	seedFinished(t, db, arsenal, chelsea, base, 2, 0)                  // Arsenal win
	seedFinished(t, db, chelsea, arsenal, base.AddDate(0, 1, 0), 0, 1) // Arsenal win away
	seedFinished(t, db, chelsea, arsenal, base.AddDate(0, 2, 0), 2, 2) // draw
	seedFinished(t, db, arsenal, chelsea, base.AddDate(0, 3, 0), 0, 3) // Chelsea win

	h2h, err := svc.HeadToHead(ctx, arsenal.ID, chelsea.ID, time.Now())
	if err != nil {
		t.Fatalf("HeadToHead failed: %v", err)
	}
	if h2h.MatchesPlayed != 4 {
		t.Fatalf("expected 4 meetings, got %d", h2h.MatchesPlayed)
	}
	if h2h.HomeWins != 2 || h2h.Draws != 1 || h2h.AwayWins != 1 {
		t.Errorf("expected 2-1-1 from Arsenal's perspective, got %d-%d-%d",
			h2h.HomeWins, h2h.Draws, h2h.AwayWins)
	}
	if math.Abs(h2h.AvgTotalGoals-2.5) > 1e-9 {
		t.Errorf("expected 2.5 goals per meeting, got %.2f", h2h.AvgTotalGoals)
	}
	if math.Abs(h2h.BTTSRate-0.25) > 1e-9 {
		t.Errorf("expected BTTS rate 0.25, got %.2f", h2h.BTTSRate)
	}
	// 0.5 versus 0.25 win rate: ahead, but not a psychological hold.
	if math.Abs(h2h.Dominance-2.0) > 1e-9 {
		t.Errorf("expected dominance 2.0, got %.2f", h2h.Dominance)
	}
	if h2h.PsychologicalEdge != "neutral" {
		t.Errorf("expected neutral edge at a 0.5 win rate, got %q", h2h.PsychologicalEdge)
	}
	if h2h.SufficientHistory {
		t.Error("four meetings must not count as sufficient history")
	}
}

func TestHeadToHeadPsychologicalEdge(t *testing.T) {
	db := setupTestDB(t)
	cfg := testModelConfig()
	form := NewFormService(db, cfg.Form, nopLogger())
	svc := NewFeatureService(db, cfg.Poisson, form, nopLogger())
	ctx := context.Background()

	arsenal := seedTeam(t, db, "Arsenal", "PL", 1500)
	chelsea := seedTeam(t, db, "Chelsea", "PL", 1500)

	// Arsenal wins four of five meetings.
	base := time.Now().AddDate(-1, 0, 0)
	seedFinished(t, db, arsenal, chelsea, base, 2, 0)
	seedFinished(t, db, chelsea, arsenal, base.AddDate(0, 1, 0), 0, 1)
	seedFinished(t, db, arsenal, chelsea, base.AddDate(0, 2, 0), 3, 1)
	seedFinished(t, db, chelsea, arsenal, base.AddDate(0, 3, 0), 1, 2)
	seedFinished(t, db, chelsea, arsenal, base.AddDate(0, 4, 0), 2, 0)

	h2h, err := svc.HeadToHead(ctx, arsenal.ID, chelsea.ID, time.Now())
	if err != nil {
		t.Fatalf("HeadToHead failed: %v", err)
	}
	if math.Abs(h2h.Dominance-4.0) > 1e-9 {
		t.Errorf("expected dominance 4.0, got %.2f", h2h.Dominance)
	}
	if h2h.PsychologicalEdge != "home" {
		t.Errorf("expected home edge at a 0.8 win rate, got %q", h2h.PsychologicalEdge)
	}
	if !h2h.SufficientHistory {
		t.Error("five meetings must count as sufficient history")
	}

	empty, err := svc.HeadToHead(ctx, arsenal.ID, chelsea.ID, base.AddDate(0, 0, -1))
	if err != nil {
		t.Fatalf("HeadToHead failed: %v", err)
	}
	if empty.Dominance != 1.0 || empty.PsychologicalEdge != "neutral" || empty.SufficientHistory {
		t.Errorf("expected neutral defaults without meetings, got %+v", empty)
	}
}

func TestRefereeProfileUsesDefaultsBelowThreshold(t *testing.T) {
	db := setupTestDB(t)
	cfg := testModelConfig()
	form := NewFormService(db, cfg.Form, nopLogger())
	svc := NewFeatureService(db, cfg.Poisson, form, nopLogger())

	ref := models.Referee{
		Name:              "M. Oliver",
		MatchesOfficiated: 3,
		AvgCards:          floatPtr(6.2),
		AvgCorners:        floatPtr(12.0),
	}
	if err := db.Create(&ref).Error; err != nil {
		t.Fatalf("seeding referee: %v", err)
	}

	profile, err := svc.RefereeProfile(context.Background(), ref.ID)
	if err != nil {
		t.Fatalf("RefereeProfile failed: %v", err)
	}
	if profile.AvgCardsPerGame != defaultRefereeCards {
		t.Errorf("expected default cards %.1f below threshold, got %.1f",
			defaultRefereeCards, profile.AvgCardsPerGame)
	}
	if profile.AffectsCardsMarket {
		t.Error("defaults should not flag the cards market")
	}
}

func TestRefereeProfileOwnStats(t *testing.T) {
	db := setupTestDB(t)
	cfg := testModelConfig()
	form := NewFormService(db, cfg.Form, nopLogger())
	svc := NewFeatureService(db, cfg.Poisson, form, nopLogger())

	ref := models.Referee{
		Name:              "A. Taylor",
		MatchesOfficiated: 25,
		AvgCards:          floatPtr(5.1),
		AvgCorners:        floatPtr(11.2),
	}
	if err := db.Create(&ref).Error; err != nil {
		t.Fatalf("seeding referee: %v", err)
	}

	profile, err := svc.RefereeProfile(context.Background(), ref.ID)
	if err != nil {
		t.Fatalf("RefereeProfile failed: %v", err)
	}
	if profile.AvgCardsPerGame != 5.1 {
		t.Errorf("expected own card average 5.1, got %.1f", profile.AvgCardsPerGame)
	}
	if !profile.AffectsCardsMarket {
		t.Error("a 5.1-card referee should flag the cards market")
	}
}

func TestMatchFeaturesWiring(t *testing.T) {
	db := setupTestDB(t)
	cfg := testModelConfig()
	form := NewFormService(db, cfg.Form, nopLogger())
	svc := NewFeatureService(db, cfg.Poisson, form, nopLogger())
	ctx := context.Background()

	home := seedTeam(t, db, "Arsenal", "PL", 1620)
	away := seedTeam(t, db, "Chelsea", "PL", 1480)
	match := seedScheduled(t, db, home, away, time.Now().AddDate(0, 0, 3))

	f, err := svc.MatchFeatures(ctx, &match)
	if err != nil {
		t.Fatalf("MatchFeatures failed: %v", err)
	}
	if f.HomeElo != 1620 || f.AwayElo != 1480 {
		t.Errorf("expected ratings carried through, got %.0f / %.0f", f.HomeElo, f.AwayElo)
	}
	if f.EnoughHistory {
		t.Error("two teams with no matches should not count as enough history")
	}
	// Neutral strengths multiply out to neutral xG factors.
	if math.Abs(f.HomeXGFactor-1.0) > 1e-9 || math.Abs(f.AwayXGFactor-1.0) > 1e-9 {
		t.Errorf("expected neutral xG factors, got %.4f / %.4f", f.HomeXGFactor, f.AwayXGFactor)
	}
	if f.Referee != nil {
		t.Error("no referee was assigned")
	}
}
