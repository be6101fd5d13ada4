package services

import (
	"context"
	"testing"
	"time"

	"github.com/JemAndrew/football-betting-bot/internal/models"
)

func TestCleanMatchesZeroesNegativeCounts(t *testing.T) {
	db := setupTestDB(t)
	svc := NewCleanerService(db, nopLogger())

	home := seedTeam(t, db, "Arsenal", "PL", 1500)
	away := seedTeam(t, db, "Chelsea", "PL", 1500)
	match := seedFinished(t, db, home, away, time.Now().AddDate(0, 0, -3), 2, 1)
	match.HomeCorners = intPtr(-2)
	match.AwayCards = intPtr(-1)
	if err := db.Save(&match).Error; err != nil {
		t.Fatalf("updating match: %v", err)
	}

	stats, err := svc.CleanMatches(context.Background(), 30)
	if err != nil {
		t.Fatalf("CleanMatches failed: %v", err)
	}
	if stats.MatchesChecked != 1 {
		t.Errorf("expected 1 match checked, got %d", stats.MatchesChecked)
	}
	if stats.OutliersFixed != 2 {
		t.Errorf("expected 2 fixes, got %d", stats.OutliersFixed)
	}

	var got models.Match
	if err := db.First(&got, match.ID).Error; err != nil {
		t.Fatalf("reloading match: %v", err)
	}
	if got.HomeCorners == nil || *got.HomeCorners != 0 {
		t.Errorf("expected corners zeroed, got %v", got.HomeCorners)
	}
	if got.AwayCards == nil || *got.AwayCards != 0 {
		t.Errorf("expected cards zeroed, got %v", got.AwayCards)
	}
}

func TestCleanMatchesFlagsHighsWithoutFixing(t *testing.T) {
	db := setupTestDB(t)
	svc := NewCleanerService(db, nopLogger())

	home := seedTeam(t, db, "Arsenal", "PL", 1500)
	away := seedTeam(t, db, "Chelsea", "PL", 1500)
	match := seedFinished(t, db, home, away, time.Now().AddDate(0, 0, -3), 16, 0)

	stats, err := svc.CleanMatches(context.Background(), 30)
	if err != nil {
		t.Fatalf("CleanMatches failed: %v", err)
	}
	if stats.OutliersFlagged != 1 {
		t.Errorf("expected 1 flag, got %d", stats.OutliersFlagged)
	}
	if stats.OutliersFixed != 0 {
		t.Errorf("high values must not be auto-fixed, got %d fixes", stats.OutliersFixed)
	}

	var got models.Match
	if err := db.First(&got, match.ID).Error; err != nil {
		t.Fatalf("reloading match: %v", err)
	}
	if *got.HomeGoals != 16 {
		t.Errorf("flagged score must be left alone, got %d", *got.HomeGoals)
	}
}

func TestImputeMissingUsesLeagueAverages(t *testing.T) {
	db := setupTestDB(t)
	svc := NewCleanerService(db, nopLogger())
	ctx := context.Background()

	home := seedTeam(t, db, "Arsenal", "PL", 1500)
	away := seedTeam(t, db, "Chelsea", "PL", 1500)

	// Complete matches establish the league baseline: 12 corners and
	// 4 cards per match.
	base := time.Now().AddDate(0, 0, -30)
	for i := 0; i < 3; i++ {
		m := seedFinished(t, db, home, away, base.AddDate(0, 0, i), 1, 1)
		m.HomeCorners = intPtr(7)
		m.AwayCorners = intPtr(5)
		m.HomeCards = intPtr(2)
		m.AwayCards = intPtr(2)
		if err := db.Save(&m).Error; err != nil {
			t.Fatalf("updating match: %v", err)
		}
	}
	gappy := seedFinished(t, db, home, away, base.AddDate(0, 0, 10), 2, 0)

	imputed, err := svc.ImputeMissing(ctx)
	if err != nil {
		t.Fatalf("ImputeMissing failed: %v", err)
	}
	if imputed != 4 {
		t.Errorf("expected 4 imputed values, got %d", imputed)
	}

	var got models.Match
	if err := db.First(&got, gappy.ID).Error; err != nil {
		t.Fatalf("reloading match: %v", err)
	}
	if got.HomeCorners == nil || *got.HomeCorners != 6 {
		t.Errorf("expected 6 corners per side, got %v", got.HomeCorners)
	}
	if got.HomeCards == nil || *got.HomeCards != 2 {
		t.Errorf("expected 2 cards per side, got %v", got.HomeCards)
	}
}

func TestImputeMissingSkipsUnknownLeague(t *testing.T) {
	db := setupTestDB(t)
	svc := NewCleanerService(db, nopLogger())

	home := seedTeam(t, db, "Lyon", "FL1", 1500)
	away := seedTeam(t, db, "Lille", "FL1", 1500)
	// No complete FL1 matches exist, so there is no baseline to
	// impute from.
	seedFinished(t, db, home, away, time.Now().AddDate(0, 0, -5), 1, 0)

	imputed, err := svc.ImputeMissing(context.Background())
	if err != nil {
		t.Fatalf("ImputeMissing failed: %v", err)
	}
	if imputed != 0 {
		t.Errorf("expected nothing imputed without a baseline, got %d", imputed)
	}
}

func TestDetectOutliersNeedsSample(t *testing.T) {
	db := setupTestDB(t)
	svc := NewCleanerService(db, nopLogger())

	home := seedTeam(t, db, "Arsenal", "PL", 1500)
	away := seedTeam(t, db, "Chelsea", "PL", 1500)
	for i := 0; i < 10; i++ {
		seedFinished(t, db, home, away, time.Now().AddDate(0, 0, -i-1), 1, 1)
	}
	seedFinished(t, db, home, away, time.Now().AddDate(0, 0, -20), 9, 5)

	outliers, err := svc.DetectOutliers(context.Background())
	if err != nil {
		t.Fatalf("DetectOutliers failed: %v", err)
	}
	if len(outliers) != 0 {
		t.Errorf("expected no flags below the minimum sample, got %d", len(outliers))
	}
}

func TestDetectOutliersFlagsExtremeTotals(t *testing.T) {
	db := setupTestDB(t)
	svc := NewCleanerService(db, nopLogger())

	home := seedTeam(t, db, "Arsenal", "PL", 1500)
	away := seedTeam(t, db, "Chelsea", "PL", 1500)

	base := time.Now().AddDate(0, 0, -90)
	// A tight distribution of 2-1 and 1-1 results.
	for i := 0; i < 20; i++ {
		seedFinished(t, db, home, away, base.AddDate(0, 0, i), 2, 1)
	}
	for i := 20; i < 40; i++ {
		seedFinished(t, db, home, away, base.AddDate(0, 0, i), 1, 1)
	}
	freak := seedFinished(t, db, home, away, base.AddDate(0, 0, 41), 9, 5)

	outliers, err := svc.DetectOutliers(context.Background())
	if err != nil {
		t.Fatalf("DetectOutliers failed: %v", err)
	}
	if len(outliers) != 1 || outliers[0] != freak.ID {
		t.Errorf("expected only the 9-5 flagged, got %v", outliers)
	}
}

func TestRemoveDuplicateMatchesKeepsRicherRecord(t *testing.T) {
	db := setupTestDB(t)
	svc := NewCleanerService(db, nopLogger())

	home := seedTeam(t, db, "Arsenal", "PL", 1500)
	away := seedTeam(t, db, "Chelsea", "PL", 1500)
	date := time.Now().AddDate(0, 0, -3)

	bare := seedFinished(t, db, home, away, date, 2, 1)
	rich := seedFinished(t, db, home, away, date.Add(30*time.Minute), 2, 1)
	rich.HomeCorners = intPtr(6)
	rich.AwayCorners = intPtr(4)
	if err := db.Save(&rich).Error; err != nil {
		t.Fatalf("updating match: %v", err)
	}
	// Same teams but a week apart: a legitimate rematch, not a dupe.
	rematch := seedFinished(t, db, home, away, date.AddDate(0, 0, 7), 0, 0)

	removed, err := svc.RemoveDuplicates(context.Background())
	if err != nil {
		t.Fatalf("RemoveDuplicates failed: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 duplicate removed, got %d", removed)
	}

	if err := db.First(&models.Match{}, bare.ID).Error; err == nil {
		t.Error("the row with less data must be the one removed")
	}
	if err := db.First(&models.Match{}, rich.ID).Error; err != nil {
		t.Errorf("the richer row must survive: %v", err)
	}
	if err := db.First(&models.Match{}, rematch.ID).Error; err != nil {
		t.Errorf("a rematch outside the window must survive: %v", err)
	}
}

func TestRemoveDuplicateOddsKeepsNewestSnapshot(t *testing.T) {
	db := setupTestDB(t)
	svc := NewCleanerService(db, nopLogger())

	home := seedTeam(t, db, "Arsenal", "PL", 1500)
	away := seedTeam(t, db, "Chelsea", "PL", 1500)
	match := seedScheduled(t, db, home, away, time.Now().AddDate(0, 0, 2))

	now := time.Now()
	insert := func(price float64, captured time.Time) models.Odds {
		row := models.Odds{
			MatchID:    match.ID,
			Bookmaker:  "Bet365",
			Market:     models.MarketHomeWin,
			Selection:  "home",
			Price:      price,
			CapturedAt: captured,
		}
		if err := db.Create(&row).Error; err != nil {
			t.Fatalf("seeding odds: %v", err)
		}
		return row
	}

	// Same price re-inserted by a later sync run: duplicate.
	stale := insert(2.10, now.Add(-2*time.Hour))
	newest := insert(2.10, now)
	// A different price captured hours earlier is line movement.
	moved := insert(2.30, now.Add(-6*time.Hour))

	removed, err := svc.RemoveDuplicates(context.Background())
	if err != nil {
		t.Fatalf("RemoveDuplicates failed: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 duplicate removed, got %d", removed)
	}

	if err := db.First(&models.Odds{}, stale.ID).Error; err == nil {
		t.Error("the re-inserted identical price must be removed")
	}
	if err := db.First(&models.Odds{}, newest.ID).Error; err != nil {
		t.Errorf("the newest snapshot must survive: %v", err)
	}
	if err := db.First(&models.Odds{}, moved.ID).Error; err != nil {
		t.Errorf("line movement must survive: %v", err)
	}
}
