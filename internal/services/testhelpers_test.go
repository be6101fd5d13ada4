package services

import (
	"testing"
	"time"

	"github.com/JemAndrew/football-betting-bot/internal/config"
	"github.com/JemAndrew/football-betting-bot/internal/models"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// setupTestDB opens an in-memory SQLite database with all tables migrated.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("opening test DB: %v", err)
	}
	err = db.AutoMigrate(
		&models.Team{},
		&models.Referee{},
		&models.Match{},
		&models.Odds{},
		&models.Prediction{},
		&models.Bet{},
	)
	if err != nil {
		t.Fatalf("migrating test DB: %v", err)
	}
	return db
}

func testModelConfig() *config.ModelConfig {
	return config.DefaultModelConfig()
}

func nopLogger() *zap.Logger {
	return zap.NewNop()
}

func intPtr(v int) *int {
	return &v
}

// seedTeam inserts a team with a given rating.
func seedTeam(t *testing.T, db *gorm.DB, name, leagueID string, elo float64) models.Team {
	t.Helper()
	team := models.Team{Name: name, LeagueID: leagueID, CurrentElo: elo}
	if err := db.Create(&team).Error; err != nil {
		t.Fatalf("seeding team %s: %v", name, err)
	}
	return team
}

// seedFinished inserts a finished match between two teams.
func seedFinished(t *testing.T, db *gorm.DB, home, away models.Team, date time.Time, homeGoals, awayGoals int) models.Match {
	t.Helper()
	match := models.Match{
		ExternalID: date.Format("20060102150405") + home.Name + away.Name,
		Date:       date,
		HomeTeamID: home.ID,
		AwayTeamID: away.ID,
		LeagueID:   home.LeagueID,
		Status:     models.StatusFinished,
		HomeGoals:  intPtr(homeGoals),
		AwayGoals:  intPtr(awayGoals),
	}
	if err := db.Create(&match).Error; err != nil {
		t.Fatalf("seeding match: %v", err)
	}
	return match
}

// seedScheduled inserts an upcoming fixture.
func seedScheduled(t *testing.T, db *gorm.DB, home, away models.Team, date time.Time) models.Match {
	t.Helper()
	match := models.Match{
		ExternalID: "fixture-" + date.Format("20060102150405") + home.Name,
		Date:       date,
		HomeTeamID: home.ID,
		AwayTeamID: away.ID,
		LeagueID:   home.LeagueID,
		Status:     models.StatusScheduled,
	}
	if err := db.Create(&match).Error; err != nil {
		t.Fatalf("seeding fixture: %v", err)
	}
	return match
}
