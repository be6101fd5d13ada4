package services

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/JemAndrew/football-betting-bot/internal/database/migrations"
	"github.com/JemAndrew/football-betting-bot/internal/models"
	"github.com/JemAndrew/football-betting-bot/internal/oddsmath"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// WarehouseConfig wires the ETL between the operational database and
// the analytics warehouse.
type WarehouseConfig struct {
	SourceDB  *gorm.DB
	TargetDB  *pgxpool.Pool
	BatchSize int
	StartDate time.Time
	EndDate   time.Time
}

// WarehouseGenerator exports cleaned match history into the Postgres
// warehouse and derives the model training features there. Each run is
// tracked under a unique execution ID in analytics.pipeline_logs.
type WarehouseGenerator struct {
	cfg         *WarehouseConfig
	logger      *zap.Logger
	executionID string
}

func NewWarehouseGenerator(cfg *WarehouseConfig, logger *zap.Logger) *WarehouseGenerator {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 500
	}
	return &WarehouseGenerator{
		cfg:         cfg,
		logger:      logger.Named("warehouse"),
		executionID: uuid.New().String(),
	}
}

// Generate runs the full pipeline: migrate, export matches and odds,
// build features, validate.
func (g *WarehouseGenerator) Generate(ctx context.Context) error {
	g.logger.Info("warehouse generation started",
		zap.String("execution_id", g.executionID),
		zap.Time("start", g.cfg.StartDate),
		zap.Time("end", g.cfg.EndDate))
	started := time.Now()

	if err := g.runMigrations(ctx); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	if err := g.exportMatches(ctx); err != nil {
		g.logPhase(ctx, "export_matches", "failed", 0)
		return fmt.Errorf("exporting matches: %w", err)
	}
	if err := g.exportOdds(ctx); err != nil {
		g.logPhase(ctx, "export_odds", "failed", 0)
		return fmt.Errorf("exporting odds: %w", err)
	}
	if err := g.buildFeatures(ctx); err != nil {
		g.logPhase(ctx, "features", "failed", 0)
		return fmt.Errorf("building features: %w", err)
	}
	if err := g.validateQuality(ctx); err != nil {
		g.logPhase(ctx, "validation", "failed", 0)
		return fmt.Errorf("validating quality: %w", err)
	}

	g.logPhase(ctx, "complete", "success", 0)
	g.logger.Info("warehouse generation finished", zap.Duration("took", time.Since(started)))
	return nil
}

// runMigrations applies the embedded warehouse schema. Idempotent: the
// schema_migrations version row short-circuits repeat runs.
func (g *WarehouseGenerator) runMigrations(ctx context.Context) error {
	g.logPhase(ctx, "migrate", "running", 0)

	var applied bool
	err := g.cfg.TargetDB.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM pg_tables
			WHERE schemaname = 'public' AND tablename = 'schema_migrations'
		)`).Scan(&applied)
	if err == nil && applied {
		err = g.cfg.TargetDB.QueryRow(ctx, `
			SELECT EXISTS (
				SELECT 1 FROM public.schema_migrations
				WHERE version = 'warehouse_v1.0.0'
			)`).Scan(&applied)
		if err == nil && applied {
			g.logger.Info("warehouse schema already applied")
			g.logPhase(ctx, "migrate", "success", 0)
			return nil
		}
	}

	schemaSQL, err := migrations.Files.ReadFile("warehouse_schema.sql")
	if err != nil {
		return fmt.Errorf("reading embedded schema: %w", err)
	}
	if _, err := g.cfg.TargetDB.Exec(ctx, string(schemaSQL)); err != nil {
		g.logPhase(ctx, "migrate", "failed", 0)
		return err
	}

	for _, schema := range []string{"curated", "features", "analytics"} {
		var exists bool
		err := g.cfg.TargetDB.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM pg_namespace WHERE nspname = $1)`, schema).Scan(&exists)
		if err != nil || !exists {
			return fmt.Errorf("schema %q missing after migration", schema)
		}
	}

	g.logPhase(ctx, "migrate", "success", 0)
	return nil
}

// logPhase upserts the run's progress row. Logging failures are not
// fatal to the pipeline.
func (g *WarehouseGenerator) logPhase(ctx context.Context, phase, status string, records int) {
	_, err := g.cfg.TargetDB.Exec(ctx, `
		INSERT INTO analytics.pipeline_logs (execution_id, started_at, status, phase, records_processed)
		VALUES ($1, NOW(), $2, $3, $4)
		ON CONFLICT (execution_id) DO UPDATE SET
			status = EXCLUDED.status,
			phase = EXCLUDED.phase,
			finished_at = CASE WHEN EXCLUDED.status IN ('success', 'failed') THEN NOW() ELSE NULL END,
			records_processed = EXCLUDED.records_processed
	`, g.executionID, status, phase, records)
	if err != nil {
		g.logger.Warn("pipeline log write failed", zap.Error(err))
	}
}

type curatedMatch struct {
	id          string
	playedAt    time.Time
	leagueID    string
	homeTeam    string
	awayTeam    string
	homeGoals   int
	awayGoals   int
	homeCorners *int
	awayCorners *int
	homeCards   *int
	awayCards   *int
	referee     *string
	season      string
}

func (g *WarehouseGenerator) exportMatches(ctx context.Context) error {
	g.logPhase(ctx, "export_matches", "running", 0)

	var matches []models.Match
	err := g.cfg.SourceDB.WithContext(ctx).
		Preload("HomeTeam").Preload("AwayTeam").Preload("Referee").
		Where("status = ? AND date BETWEEN ? AND ?",
			models.StatusFinished, g.cfg.StartDate, g.cfg.EndDate).
		Where("home_goals IS NOT NULL AND away_goals IS NOT NULL").
		Order("date ASC").
		Find(&matches).Error
	if err != nil {
		return err
	}

	batch := make([]curatedMatch, 0, g.cfg.BatchSize)
	processed := 0
	for _, m := range matches {
		row := curatedMatch{
			id:          fmt.Sprintf("match_%s", m.ExternalID),
			playedAt:    m.Date,
			leagueID:    m.LeagueID,
			homeTeam:    m.HomeTeam.Name,
			awayTeam:    m.AwayTeam.Name,
			homeGoals:   *m.HomeGoals,
			awayGoals:   *m.AwayGoals,
			homeCorners: m.HomeCorners,
			awayCorners: m.AwayCorners,
			homeCards:   m.HomeCards,
			awayCards:   m.AwayCards,
			season:      oddsmath.SeasonLabel(m.Date),
		}
		if m.Referee != nil {
			row.referee = &m.Referee.Name
		}
		batch = append(batch, row)

		if len(batch) >= g.cfg.BatchSize {
			if err := g.insertMatchBatch(ctx, batch); err != nil {
				return err
			}
			processed += len(batch)
			batch = batch[:0]
			g.logger.Debug("match batch exported", zap.Int("processed", processed))
		}
	}
	if len(batch) > 0 {
		if err := g.insertMatchBatch(ctx, batch); err != nil {
			return err
		}
		processed += len(batch)
	}

	g.logger.Info("matches exported", zap.Int("count", processed))
	g.logPhase(ctx, "export_matches", "success", processed)
	return nil
}

func (g *WarehouseGenerator) insertMatchBatch(ctx context.Context, batch []curatedMatch) error {
	if len(batch) == 0 {
		return nil
	}

	const cols = 13
	valueStrings := make([]string, 0, len(batch))
	valueArgs := make([]any, 0, len(batch)*cols)
	for i, m := range batch {
		base := i * cols
		placeholders := make([]string, cols)
		for j := range placeholders {
			placeholders[j] = fmt.Sprintf("$%d", base+j+1)
		}
		valueStrings = append(valueStrings, "("+strings.Join(placeholders, ", ")+")")
		valueArgs = append(valueArgs,
			m.id, m.playedAt, m.leagueID, m.homeTeam, m.awayTeam,
			m.homeGoals, m.awayGoals, m.homeCorners, m.awayCorners,
			m.homeCards, m.awayCards, m.referee, m.season)
	}

	query := fmt.Sprintf(`
		INSERT INTO curated.matches (
			id, played_at, league_id, home_team, away_team,
			home_goals, away_goals, home_corners, away_corners,
			home_cards, away_cards, referee, season
		)
		VALUES %s
		ON CONFLICT (id) DO UPDATE SET
			home_goals = EXCLUDED.home_goals,
			away_goals = EXCLUDED.away_goals,
			home_corners = EXCLUDED.home_corners,
			away_corners = EXCLUDED.away_corners,
			home_cards = EXCLUDED.home_cards,
			away_cards = EXCLUDED.away_cards
	`, strings.Join(valueStrings, ","))

	_, err := g.cfg.TargetDB.Exec(ctx, query, valueArgs...)
	return err
}

func (g *WarehouseGenerator) exportOdds(ctx context.Context) error {
	g.logPhase(ctx, "export_odds", "running", 0)

	var odds []models.Odds
	err := g.cfg.SourceDB.WithContext(ctx).
		Joins("JOIN matches ON matches.id = odds.match_id").
		Where("matches.status = ? AND matches.date BETWEEN ? AND ?",
			models.StatusFinished, g.cfg.StartDate, g.cfg.EndDate).
		Preload("Match").
		Find(&odds).Error
	if err != nil {
		return err
	}

	processed := 0
	for _, o := range odds {
		_, err := g.cfg.TargetDB.Exec(ctx, `
			INSERT INTO curated.odds (match_id, bookmaker, market, selection, price, captured_at)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (match_id, bookmaker, market, selection, captured_at) DO NOTHING
		`, fmt.Sprintf("match_%s", o.Match.ExternalID), o.Bookmaker, o.Market, o.Selection, o.Price, o.CapturedAt)
		if err != nil {
			return err
		}
		processed++
	}

	g.logger.Info("odds exported", zap.Int("count", processed))
	g.logPhase(ctx, "export_odds", "success", processed)
	return nil
}

// buildFeatures replays the exported matches in date order, carrying
// Elo ratings and rolling form so every feature row reflects only what
// was known before kickoff.
func (g *WarehouseGenerator) buildFeatures(ctx context.Context) error {
	g.logPhase(ctx, "features", "running", 0)

	rows, err := g.cfg.TargetDB.Query(ctx, `
		SELECT id, played_at, home_team, away_team, home_goals, away_goals
		FROM curated.matches
		ORDER BY played_at ASC
	`)
	if err != nil {
		return err
	}
	defer rows.Close()

	type replayMatch struct {
		id        string
		playedAt  time.Time
		home      string
		away      string
		homeGoals int
		awayGoals int
	}
	var replay []replayMatch
	for rows.Next() {
		var m replayMatch
		if err := rows.Scan(&m.id, &m.playedAt, &m.home, &m.away, &m.homeGoals, &m.awayGoals); err != nil {
			return err
		}
		replay = append(replay, m)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	elo := make(map[string]float64)
	rating := func(team string) float64 {
		if r, ok := elo[team]; ok {
			return r
		}
		return models.DefaultElo
	}
	recentPoints := make(map[string][]int)
	form := func(team string) *float64 {
		pts := recentPoints[team]
		if len(pts) == 0 {
			return nil
		}
		sum := 0
		for _, p := range pts {
			sum += p
		}
		ppg := float64(sum) / float64(len(pts))
		return &ppg
	}
	push := func(team string, pts int) {
		window := append(recentPoints[team], pts)
		if len(window) > 5 {
			window = window[1:]
		}
		recentPoints[team] = window
	}

	processed := 0
	for _, m := range replay {
		homeElo, awayElo := rating(m.home), rating(m.away)

		outcome := "D"
		if m.homeGoals > m.awayGoals {
			outcome = "H"
		} else if m.awayGoals > m.homeGoals {
			outcome = "A"
		}
		total := m.homeGoals + m.awayGoals

		_, err := g.cfg.TargetDB.Exec(ctx, `
			INSERT INTO features.match_features (
				match_id, played_at, home_elo, away_elo, elo_diff,
				home_form, away_form, total_goals, btts, over_25, outcome
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			ON CONFLICT (match_id) DO UPDATE SET
				home_elo = EXCLUDED.home_elo,
				away_elo = EXCLUDED.away_elo,
				elo_diff = EXCLUDED.elo_diff,
				home_form = EXCLUDED.home_form,
				away_form = EXCLUDED.away_form,
				total_goals = EXCLUDED.total_goals,
				btts = EXCLUDED.btts,
				over_25 = EXCLUDED.over_25,
				outcome = EXCLUDED.outcome
		`, m.id, m.playedAt, homeElo, awayElo, homeElo-awayElo,
			form(m.home), form(m.away), total,
			m.homeGoals > 0 && m.awayGoals > 0, total > 2, outcome)
		if err != nil {
			return err
		}

		// Roll state forward with the standard Elo update.
		expected := 1.0 / (1.0 + math.Pow(10, (awayElo-homeElo-100)/400.0))
		homeActual, awayActual := actualScore(m.homeGoals, m.awayGoals)
		elo[m.home] = homeElo + 20*(homeActual-expected)
		elo[m.away] = awayElo + 20*(awayActual-(1-expected))
		push(m.home, oddsmath.FormPoints(m.homeGoals, m.awayGoals))
		push(m.away, oddsmath.FormPoints(m.awayGoals, m.homeGoals))
		processed++
	}

	g.logger.Info("features built", zap.Int("count", processed))
	g.logPhase(ctx, "features", "success", processed)
	return nil
}

func (g *WarehouseGenerator) validateQuality(ctx context.Context) error {
	g.logPhase(ctx, "validation", "running", 0)

	metrics := make(map[string]any)

	var matchCount, featureCount int
	if err := g.cfg.TargetDB.QueryRow(ctx, `SELECT COUNT(*) FROM curated.matches`).Scan(&matchCount); err != nil {
		return err
	}
	if err := g.cfg.TargetDB.QueryRow(ctx, `SELECT COUNT(*) FROM features.match_features`).Scan(&featureCount); err != nil {
		return err
	}
	metrics["total_matches"] = matchCount
	metrics["total_features"] = featureCount

	coverage := 0.0
	if matchCount > 0 {
		coverage = float64(featureCount) / float64(matchCount)
	}
	metrics["feature_coverage"] = coverage

	var badScores int
	err := g.cfg.TargetDB.QueryRow(ctx, `
		SELECT COUNT(*) FROM curated.matches
		WHERE home_goals < 0 OR away_goals < 0 OR home_goals > 15 OR away_goals > 15
	`).Scan(&badScores)
	if err != nil {
		return err
	}
	metrics["invalid_scores"] = badScores

	metricsJSON, _ := json.Marshal(metrics)
	_, err = g.cfg.TargetDB.Exec(ctx, `
		INSERT INTO analytics.quality_reports (report_date, metrics, created_at)
		VALUES (CURRENT_DATE, $1, NOW())
		ON CONFLICT (report_date) DO UPDATE SET
			metrics = EXCLUDED.metrics,
			updated_at = NOW()
	`, string(metricsJSON))
	if err != nil {
		return err
	}

	g.logger.Info("quality validated",
		zap.Int("matches", matchCount),
		zap.Float64("feature_coverage", coverage),
		zap.Int("invalid_scores", badScores))
	g.logPhase(ctx, "validation", "success", 0)
	return nil
}
