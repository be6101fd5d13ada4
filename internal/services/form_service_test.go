package services

import (
	"context"
	"math"
	"testing"
	"time"
)

func TestTeamFormEmptyHistory(t *testing.T) {
	db := setupTestDB(t)
	svc := NewFormService(db, testModelConfig().Form, nopLogger())

	team := seedTeam(t, db, "Arsenal", "PL", 1500)
	form, err := svc.TeamForm(context.Background(), team.ID, time.Now(), AnyVenue)
	if err != nil {
		t.Fatalf("TeamForm failed: %v", err)
	}
	if form.GamesPlayed != 0 {
		t.Errorf("expected 0 games, got %d", form.GamesPlayed)
	}
	if form.Momentum != MomentumNeutral {
		t.Errorf("expected neutral momentum with no history, got %q", form.Momentum)
	}
}

func TestTeamFormCountsResults(t *testing.T) {
	db := setupTestDB(t)
	svc := NewFormService(db, testModelConfig().Form, nopLogger())
	ctx := context.Background()

	team := seedTeam(t, db, "Arsenal", "PL", 1500)
	opp := seedTeam(t, db, "Chelsea", "PL", 1500)

	base := time.Now().AddDate(0, -1, 0)
	// Oldest to newest: W, W, D, L, W from the team's perspective.
	seedFinished(t, db, team, opp, base, 2, 0)
	seedFinished(t, db, team, opp, base.AddDate(0, 0, 7), 1, 0)
	seedFinished(t, db, opp, team, base.AddDate(0, 0, 14), 1, 1)
	seedFinished(t, db, opp, team, base.AddDate(0, 0, 21), 3, 0)
	seedFinished(t, db, team, opp, base.AddDate(0, 0, 28), 2, 1)

	form, err := svc.TeamForm(ctx, team.ID, time.Now(), AnyVenue)
	if err != nil {
		t.Fatalf("TeamForm failed: %v", err)
	}

	if form.GamesPlayed != 5 {
		t.Fatalf("expected 5 games, got %d", form.GamesPlayed)
	}
	if form.Wins != 3 || form.Draws != 1 || form.Losses != 1 {
		t.Errorf("expected 3W 1D 1L, got %dW %dD %dL", form.Wins, form.Draws, form.Losses)
	}
	if form.Points != 10 {
		t.Errorf("expected 10 points, got %d", form.Points)
	}
	if math.Abs(form.PointsPerGame-2.0) > 1e-9 {
		t.Errorf("expected 2.0 ppg, got %.2f", form.PointsPerGame)
	}
	// Newest first: W L D W W.
	if form.FormString != "WLDWW" {
		t.Errorf("expected form string WLDWW, got %q", form.FormString)
	}
	if form.CleanSheets != 2 {
		t.Errorf("expected 2 clean sheets, got %d", form.CleanSheets)
	}
	if form.FailedToScore != 1 {
		t.Errorf("expected 1 blank, got %d", form.FailedToScore)
	}
}

func TestTeamFormWeightsRecentGames(t *testing.T) {
	db := setupTestDB(t)
	svc := NewFormService(db, testModelConfig().Form, nopLogger())
	ctx := context.Background()

	team := seedTeam(t, db, "Arsenal", "PL", 1500)
	opp := seedTeam(t, db, "Chelsea", "PL", 1500)

	base := time.Now().AddDate(0, -1, 0)
	// Two old losses, then a recent win.
	seedFinished(t, db, opp, team, base, 2, 0)
	seedFinished(t, db, opp, team, base.AddDate(0, 0, 7), 1, 0)
	seedFinished(t, db, team, opp, base.AddDate(0, 0, 14), 1, 0)

	form, err := svc.TeamForm(ctx, team.ID, time.Now(), AnyVenue)
	if err != nil {
		t.Fatalf("TeamForm failed: %v", err)
	}

	// The newest game has weight 1.0, so the single win contributes
	// its full 3 points to weighted form.
	if math.Abs(form.WeightedPoints-3.0) > 1e-9 {
		t.Errorf("expected weighted points 3.0, got %.4f", form.WeightedPoints)
	}
}

func TestTeamFormRespectsLookback(t *testing.T) {
	db := setupTestDB(t)
	cfg := testModelConfig().Form
	svc := NewFormService(db, cfg, nopLogger())
	ctx := context.Background()

	team := seedTeam(t, db, "Arsenal", "PL", 1500)
	opp := seedTeam(t, db, "Chelsea", "PL", 1500)

	base := time.Now().AddDate(0, -3, 0)
	for i := 0; i < 8; i++ {
		seedFinished(t, db, team, opp, base.AddDate(0, 0, i*7), 1, 0)
	}

	form, err := svc.TeamForm(ctx, team.ID, time.Now(), AnyVenue)
	if err != nil {
		t.Fatalf("TeamForm failed: %v", err)
	}
	if form.GamesPlayed != cfg.LookbackGames {
		t.Errorf("expected window of %d games, got %d", cfg.LookbackGames, form.GamesPlayed)
	}
}

func TestTeamFormVenueSplit(t *testing.T) {
	db := setupTestDB(t)
	svc := NewFormService(db, testModelConfig().Form, nopLogger())
	ctx := context.Background()

	team := seedTeam(t, db, "Arsenal", "PL", 1500)
	opp := seedTeam(t, db, "Chelsea", "PL", 1500)

	base := time.Now().AddDate(0, -1, 0)
	seedFinished(t, db, team, opp, base, 2, 0)                  // home win
	seedFinished(t, db, opp, team, base.AddDate(0, 0, 7), 3, 0) // away loss

	homeForm, err := svc.TeamForm(ctx, team.ID, time.Now(), HomeOnly)
	if err != nil {
		t.Fatalf("TeamForm home failed: %v", err)
	}
	awayForm, err := svc.TeamForm(ctx, team.ID, time.Now(), AwayOnly)
	if err != nil {
		t.Fatalf("TeamForm away failed: %v", err)
	}

	if homeForm.GamesPlayed != 1 || homeForm.Wins != 1 {
		t.Errorf("expected 1 home win, got %+v", homeForm)
	}
	if awayForm.GamesPlayed != 1 || awayForm.Losses != 1 {
		t.Errorf("expected 1 away loss, got %+v", awayForm)
	}
}

func TestMomentumDetectsTrend(t *testing.T) {
	db := setupTestDB(t)
	svc := NewFormService(db, testModelConfig().Form, nopLogger())
	ctx := context.Background()

	team := seedTeam(t, db, "Arsenal", "PL", 1500)
	opp := seedTeam(t, db, "Chelsea", "PL", 1500)

	base := time.Now().AddDate(0, -1, 0)
	// Two old losses followed by two recent wins: improving.
	seedFinished(t, db, opp, team, base, 2, 0)
	seedFinished(t, db, opp, team, base.AddDate(0, 0, 7), 1, 0)
	seedFinished(t, db, team, opp, base.AddDate(0, 0, 14), 2, 0)
	seedFinished(t, db, team, opp, base.AddDate(0, 0, 21), 1, 0)

	form, err := svc.TeamForm(ctx, team.ID, time.Now(), AnyVenue)
	if err != nil {
		t.Fatalf("TeamForm failed: %v", err)
	}
	if form.Momentum != MomentumPositive {
		t.Errorf("expected positive momentum, got %q", form.Momentum)
	}
}

func TestTeamFormExcludesFutureAndUnfinished(t *testing.T) {
	db := setupTestDB(t)
	svc := NewFormService(db, testModelConfig().Form, nopLogger())
	ctx := context.Background()

	team := seedTeam(t, db, "Arsenal", "PL", 1500)
	opp := seedTeam(t, db, "Chelsea", "PL", 1500)

	cutoff := time.Now().AddDate(0, 0, -10)
	seedFinished(t, db, team, opp, cutoff.AddDate(0, 0, -5), 2, 0)
	// Finished after the cutoff: must not count.
	seedFinished(t, db, team, opp, cutoff.AddDate(0, 0, 5), 4, 0)
	// Still scheduled: must not count.
	seedScheduled(t, db, team, opp, cutoff.AddDate(0, 0, -2))

	form, err := svc.TeamForm(ctx, team.ID, cutoff, AnyVenue)
	if err != nil {
		t.Fatalf("TeamForm failed: %v", err)
	}
	if form.GamesPlayed != 1 {
		t.Errorf("expected only the pre-cutoff finished match, got %d games", form.GamesPlayed)
	}
}
