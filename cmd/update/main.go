// Command update runs the data pipeline from the terminal: sync
// results and fixtures, refresh odds, rebuild ratings, clean stored
// data, predict upcoming matches and export the warehouse.
package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/JemAndrew/football-betting-bot/internal/api"
	"github.com/JemAndrew/football-betting-bot/internal/config"
	"github.com/JemAndrew/football-betting-bot/internal/database"
	"github.com/JemAndrew/football-betting-bot/internal/datadir"
	"github.com/JemAndrew/football-betting-bot/internal/logging"
	"github.com/JemAndrew/football-betting-bot/internal/services"
)

var (
	cfg      *config.Config
	modelCfg *config.ModelConfig
	logger   *zap.Logger

	flagLeagues   []string
	flagDaysBack  int
	flagDaysAhead int
)

func main() {
	root := &cobra.Command{
		Use:           "update",
		Short:         "Run the betting data pipeline",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if cfg, err = config.Load(); err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			if modelCfg, err = config.LoadModelConfig("config/model.yaml"); err != nil {
				return fmt.Errorf("loading model config: %w", err)
			}
			if logger, err = logging.New(cfg.LogLevel); err != nil {
				return fmt.Errorf("building logger: %w", err)
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logger != nil {
				_ = logger.Sync()
			}
		},
	}

	root.PersistentFlags().StringSliceVar(&flagLeagues, "leagues", nil,
		"league codes to process (default: all configured)")

	teamsCmd := &cobra.Command{
		Use:   "teams",
		Short: "Seed each league's current squad list",
		RunE:  runTeams,
	}

	resultsCmd := &cobra.Command{
		Use:   "results",
		Short: "Sync finished matches and update ratings",
		RunE:  runResults,
	}
	resultsCmd.Flags().IntVar(&flagDaysBack, "days", 7, "how many days back to fetch")

	fixturesCmd := &cobra.Command{
		Use:   "fixtures",
		Short: "Sync upcoming fixtures",
		RunE:  runFixtures,
	}
	fixturesCmd.Flags().IntVar(&flagDaysAhead, "days", 7, "how many days ahead to fetch")

	oddsCmd := &cobra.Command{
		Use:   "odds",
		Short: "Sync current bookmaker odds",
		RunE:  runOdds,
	}

	eloCmd := &cobra.Command{
		Use:   "elo",
		Short: "Rebuild all ratings from stored history",
		RunE:  runElo,
	}

	cleanCmd := &cobra.Command{
		Use:   "clean",
		Short: "Repair and flag bad match data",
		RunE:  runClean,
	}
	cleanCmd.Flags().IntVar(&flagDaysBack, "days", 30, "how many days back to check")

	predictCmd := &cobra.Command{
		Use:   "predict",
		Short: "Predict upcoming fixtures and settle finished bets",
		RunE:  runPredict,
	}
	predictCmd.Flags().IntVar(&flagDaysAhead, "days", 7, "how many days ahead to predict")

	warehouseCmd := &cobra.Command{
		Use:   "warehouse",
		Short: "Export match history and features to the warehouse",
		RunE:  runWarehouse,
	}
	warehouseCmd.Flags().IntVar(&flagDaysBack, "days", 3650, "how many days of history to export")

	datadirCmd := &cobra.Command{
		Use:   "datadir [init|verify]",
		Short: "Create or verify the data directory layout",
		Args:  cobra.ExactArgs(1),
		RunE:  runDatadir,
	}

	allCmd := &cobra.Command{
		Use:   "all",
		Short: "Run the full daily pipeline",
		RunE:  runAll,
	}
	allCmd.Flags().IntVar(&flagDaysBack, "days-back", 7, "how many days back to fetch results")
	allCmd.Flags().IntVar(&flagDaysAhead, "days-ahead", 7, "how many days ahead to fetch and predict")

	root.AddCommand(teamsCmd, resultsCmd, fixturesCmd, oddsCmd, eloCmd,
		cleanCmd, predictCmd, warehouseCmd, datadirCmd, allCmd)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func leagues() []string {
	if len(flagLeagues) > 0 {
		return flagLeagues
	}
	return modelCfg.Leagues
}

func openDB() (*gorm.DB, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("connecting database: %w", err)
	}
	if err := database.AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("migrating database: %w", err)
	}
	return db, nil
}

func newIngest(db *gorm.DB) (services.IngestService, error) {
	cache, err := api.NewFileCache(datadir.CacheDir(cfg.DataRoot), time.Hour)
	if err != nil {
		return nil, fmt.Errorf("opening API cache: %w", err)
	}
	football := api.NewFootballDataClient(cfg.FootballDataKey, cache, logger)
	odds := api.NewOddsClient(cfg.OddsAPIKey, cache, logger)
	return services.NewIngestService(db, football, odds, logger), nil
}

func runTeams(cmd *cobra.Command, args []string) error {
	db, err := openDB()
	if err != nil {
		return err
	}
	ingest, err := newIngest(db)
	if err != nil {
		return err
	}

	for _, league := range leagues() {
		stats, err := ingest.SyncTeams(cmd.Context(), league)
		if err != nil {
			return fmt.Errorf("syncing %s teams: %w", league, err)
		}
		fmt.Printf("%s: %d teams, %d new\n", league, stats.Fetched, stats.Created)
	}
	return nil
}

func runResults(cmd *cobra.Command, args []string) error {
	db, err := openDB()
	if err != nil {
		return err
	}
	ingest, err := newIngest(db)
	if err != nil {
		return err
	}

	for _, league := range leagues() {
		stats, err := ingest.SyncResults(cmd.Context(), league, flagDaysBack)
		if err != nil {
			return fmt.Errorf("syncing %s results: %w", league, err)
		}
		logger.Info("results synced",
			zap.String("league", league),
			zap.Int("created", stats.Created),
			zap.Int("updated", stats.Updated))
	}

	// New results shift the ratings.
	elo := services.NewEloService(db, modelCfg.Elo, logger)
	updated, err := elo.Rebuild(cmd.Context())
	if err != nil {
		return fmt.Errorf("rebuilding ratings: %w", err)
	}
	logger.Info("ratings rebuilt", zap.Int("matches", updated))
	return nil
}

func runFixtures(cmd *cobra.Command, args []string) error {
	db, err := openDB()
	if err != nil {
		return err
	}
	ingest, err := newIngest(db)
	if err != nil {
		return err
	}

	for _, league := range leagues() {
		stats, err := ingest.SyncFixtures(cmd.Context(), league, flagDaysAhead)
		if err != nil {
			return fmt.Errorf("syncing %s fixtures: %w", league, err)
		}
		logger.Info("fixtures synced",
			zap.String("league", league),
			zap.Int("created", stats.Created),
			zap.Int("updated", stats.Updated))
	}
	return nil
}

func runOdds(cmd *cobra.Command, args []string) error {
	db, err := openDB()
	if err != nil {
		return err
	}
	ingest, err := newIngest(db)
	if err != nil {
		return err
	}

	for _, league := range leagues() {
		stats, err := ingest.SyncOdds(cmd.Context(), league)
		if err != nil {
			return fmt.Errorf("syncing %s odds: %w", league, err)
		}
		logger.Info("odds synced",
			zap.String("league", league),
			zap.Int("prices", stats.Created),
			zap.Int("unmatched", stats.Skipped))
	}
	return nil
}

func runElo(cmd *cobra.Command, args []string) error {
	db, err := openDB()
	if err != nil {
		return err
	}
	elo := services.NewEloService(db, modelCfg.Elo, logger)
	updated, err := elo.Rebuild(cmd.Context())
	if err != nil {
		return err
	}
	logger.Info("ratings rebuilt", zap.Int("matches", updated))
	return nil
}

func runClean(cmd *cobra.Command, args []string) error {
	db, err := openDB()
	if err != nil {
		return err
	}
	cleaner := services.NewCleanerService(db, logger)
	stats, err := cleaner.CleanMatches(cmd.Context(), flagDaysBack)
	if err != nil {
		return err
	}
	logger.Info("data cleaned",
		zap.Int("checked", stats.MatchesChecked),
		zap.Int("fixed", stats.OutliersFixed),
		zap.Int("flagged", stats.OutliersFlagged),
		zap.Int("imputed", stats.ValuesImputed))
	return nil
}

func runPredict(cmd *cobra.Command, args []string) error {
	db, err := openDB()
	if err != nil {
		return err
	}

	form := services.NewFormService(db, modelCfg.Form, logger)
	features := services.NewFeatureService(db, modelCfg.Poisson, form, logger)
	prediction, err := services.NewPredictionService(db, features, modelCfg, logger)
	if err != nil {
		return err
	}

	predicted, err := prediction.PredictUpcoming(cmd.Context(), flagDaysAhead)
	if err != nil {
		return err
	}
	logger.Info("fixtures predicted", zap.Int("count", predicted))

	bets := services.NewBetService(db, logger)
	settled, err := bets.SettleFinished(cmd.Context())
	if err != nil {
		return err
	}
	logger.Info("bets settled", zap.Int("count", settled))

	valueBets, err := prediction.ValueBets(cmd.Context(), 1000)
	if err != nil {
		return err
	}
	for _, vb := range valueBets {
		fmt.Printf("%s v %s  %s @ %.2f (%s)  p=%.3f edge=%.3f stake=%.2f\n",
			vb.HomeTeam, vb.AwayTeam, vb.Market, vb.Price, vb.Bookmaker,
			vb.Probability, vb.Edge, vb.Stake)
	}
	return nil
}

func runWarehouse(cmd *cobra.Command, args []string) error {
	if cfg.WarehouseDSN == "" {
		return fmt.Errorf("WAREHOUSE_DSN not set")
	}
	db, err := openDB()
	if err != nil {
		return err
	}
	pool, err := pgxpool.New(cmd.Context(), cfg.WarehouseDSN)
	if err != nil {
		return fmt.Errorf("connecting warehouse: %w", err)
	}
	defer pool.Close()

	gen := services.NewWarehouseGenerator(&services.WarehouseConfig{
		SourceDB:  db,
		TargetDB:  pool,
		StartDate: time.Now().AddDate(0, 0, -flagDaysBack),
		EndDate:   time.Now(),
	}, logger)
	return gen.Generate(cmd.Context())
}

func runDatadir(cmd *cobra.Command, args []string) error {
	switch args[0] {
	case "init":
		if err := datadir.Init(cfg.DataRoot); err != nil {
			return err
		}
		fmt.Println("data directory ready at", cfg.DataRoot)
		return nil
	case "verify":
		missing, err := datadir.Verify(cfg.DataRoot)
		if err != nil {
			return err
		}
		if len(missing) > 0 {
			return fmt.Errorf("missing directories: %s", strings.Join(missing, ", "))
		}
		fmt.Println("data directory layout complete")
		return nil
	default:
		return fmt.Errorf("unknown subcommand %q, want init or verify", args[0])
	}
}

func runAll(cmd *cobra.Command, args []string) error {
	if err := datadir.Init(cfg.DataRoot); err != nil {
		return err
	}
	if err := runResults(cmd, args); err != nil {
		return err
	}
	if err := runFixtures(cmd, args); err != nil {
		return err
	}
	if err := runOdds(cmd, args); err != nil {
		return err
	}
	if err := runClean(cmd, args); err != nil {
		return err
	}
	return runPredict(cmd, args)
}
