package services

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/JemAndrew/football-betting-bot/internal/models"
)

func TestExpectedScoreEqualRatings(t *testing.T) {
	db := setupTestDB(t)
	svc := NewEloService(db, testModelConfig().Elo, nopLogger())

	// Without home advantage two equal teams split evenly.
	neutral := svc.ExpectedScore(1500, 1500, false)
	if math.Abs(neutral-0.5) > 1e-9 {
		t.Errorf("expected 0.5 for equal ratings, got %.4f", neutral)
	}

	// Home advantage tips the balance.
	home := svc.ExpectedScore(1500, 1500, true)
	if home <= 0.5 {
		t.Errorf("expected home edge above 0.5, got %.4f", home)
	}

	// Probabilities are complementary from either side.
	strong := svc.ExpectedScore(1700, 1500, false)
	weak := svc.ExpectedScore(1500, 1700, false)
	if math.Abs(strong+weak-1.0) > 1e-9 {
		t.Errorf("expected complementary probabilities, got %.4f + %.4f", strong, weak)
	}
}

func TestUpdateRatingsWinnerGains(t *testing.T) {
	db := setupTestDB(t)
	svc := NewEloService(db, testModelConfig().Elo, nopLogger())
	ctx := context.Background()

	home := seedTeam(t, db, "Arsenal", "PL", 1500)
	away := seedTeam(t, db, "Chelsea", "PL", 1500)
	match := seedFinished(t, db, home, away, time.Now().AddDate(0, 0, -1), 3, 0)

	if err := svc.UpdateRatings(ctx, &match); err != nil {
		t.Fatalf("UpdateRatings failed: %v", err)
	}

	var updatedHome, updatedAway models.Team
	if err := db.First(&updatedHome, home.ID).Error; err != nil {
		t.Fatalf("loading home: %v", err)
	}
	if err := db.First(&updatedAway, away.ID).Error; err != nil {
		t.Fatalf("loading away: %v", err)
	}

	if updatedHome.CurrentElo <= 1500 {
		t.Errorf("winner should gain rating, got %.1f", updatedHome.CurrentElo)
	}
	if updatedAway.CurrentElo >= 1500 {
		t.Errorf("loser should drop rating, got %.1f", updatedAway.CurrentElo)
	}

	// Changes are zero-sum.
	gain := updatedHome.CurrentElo - 1500
	loss := 1500 - updatedAway.CurrentElo
	if math.Abs(gain-loss) > 1e-9 {
		t.Errorf("rating changes should be symmetric: gain %.4f, loss %.4f", gain, loss)
	}
}

func TestUpdateRatingsGoalDifferenceScales(t *testing.T) {
	ctx := context.Background()

	// Same fixture, different scorelines: the thrashing moves more.
	narrowDB := setupTestDB(t)
	narrowSvc := NewEloService(narrowDB, testModelConfig().Elo, nopLogger())
	h1 := seedTeam(t, narrowDB, "Leeds", "PL", 1500)
	a1 := seedTeam(t, narrowDB, "Everton", "PL", 1500)
	m1 := seedFinished(t, narrowDB, h1, a1, time.Now().AddDate(0, 0, -1), 1, 0)
	if err := narrowSvc.UpdateRatings(ctx, &m1); err != nil {
		t.Fatalf("UpdateRatings failed: %v", err)
	}

	bigDB := setupTestDB(t)
	bigSvc := NewEloService(bigDB, testModelConfig().Elo, nopLogger())
	h2 := seedTeam(t, bigDB, "Leeds", "PL", 1500)
	a2 := seedTeam(t, bigDB, "Everton", "PL", 1500)
	m2 := seedFinished(t, bigDB, h2, a2, time.Now().AddDate(0, 0, -1), 5, 0)
	if err := bigSvc.UpdateRatings(ctx, &m2); err != nil {
		t.Fatalf("UpdateRatings failed: %v", err)
	}

	var narrowHome, bigHome models.Team
	if err := narrowDB.First(&narrowHome, h1.ID).Error; err != nil {
		t.Fatal(err)
	}
	if err := bigDB.First(&bigHome, h2.ID).Error; err != nil {
		t.Fatal(err)
	}
	if bigHome.CurrentElo <= narrowHome.CurrentElo {
		t.Errorf("5-0 should move rating more than 1-0: %.2f vs %.2f",
			bigHome.CurrentElo, narrowHome.CurrentElo)
	}
}

func TestUpdateRatingsRejectsUnfinished(t *testing.T) {
	db := setupTestDB(t)
	svc := NewEloService(db, testModelConfig().Elo, nopLogger())

	home := seedTeam(t, db, "Arsenal", "PL", 1500)
	away := seedTeam(t, db, "Chelsea", "PL", 1500)
	match := seedScheduled(t, db, home, away, time.Now().AddDate(0, 0, 3))

	if err := svc.UpdateRatings(context.Background(), &match); err == nil {
		t.Error("expected error for unfinished match")
	}
}

func TestRebuildReplaysHistory(t *testing.T) {
	db := setupTestDB(t)
	svc := NewEloService(db, testModelConfig().Elo, nopLogger())
	ctx := context.Background()

	strong := seedTeam(t, db, "Manchester City", "PL", 1500)
	weak := seedTeam(t, db, "Luton Town", "PL", 1500)

	base := time.Now().AddDate(0, -2, 0)
	for i := 0; i < 4; i++ {
		seedFinished(t, db, strong, weak, base.AddDate(0, 0, i*7), 3, 0)
	}

	n, err := svc.Rebuild(ctx)
	if err != nil {
		t.Fatalf("Rebuild failed: %v", err)
	}
	if n != 4 {
		t.Errorf("expected 4 matches replayed, got %d", n)
	}

	var s, w models.Team
	if err := db.First(&s, strong.ID).Error; err != nil {
		t.Fatal(err)
	}
	if err := db.First(&w, weak.ID).Error; err != nil {
		t.Fatal(err)
	}
	if s.CurrentElo <= w.CurrentElo {
		t.Errorf("repeat winner should rank higher: %.1f vs %.1f", s.CurrentElo, w.CurrentElo)
	}
	if s.CurrentElo <= models.DefaultElo {
		t.Errorf("winner should be above default, got %.1f", s.CurrentElo)
	}
}

func TestPredictOutcomeSumsToOne(t *testing.T) {
	db := setupTestDB(t)
	svc := NewEloService(db, testModelConfig().Elo, nopLogger())

	home, draw, away := svc.PredictOutcome(1600, 1500)
	total := home + draw + away
	if math.Abs(total-1.0) > 1e-9 {
		t.Errorf("probabilities should sum to 1, got %.6f", total)
	}
	if home <= away {
		t.Errorf("stronger home side should be favourite: %.3f vs %.3f", home, away)
	}
}
