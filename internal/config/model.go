package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// EloConfig tunes the rating model.
type EloConfig struct {
	KFactor       float64 `yaml:"k_factor"`
	HomeAdvantage float64 `yaml:"home_advantage"`
	GoalWeight    float64 `yaml:"goal_weight"`
}

// FormConfig tunes the recent-form model.
type FormConfig struct {
	LookbackGames int     `yaml:"lookback_games"`
	Decay         float64 `yaml:"decay"`
	VenueSplit    bool    `yaml:"venue_split"`
}

// PoissonConfig tunes the goal expectancy model.
type PoissonConfig struct {
	HomeAdvantage float64 `yaml:"home_advantage"`
	MaxGoals      int     `yaml:"max_goals"`
	EloWeight     float64 `yaml:"elo_weight"`
	FormWeight    float64 `yaml:"form_weight"`
	LookbackDays  int     `yaml:"lookback_days"`
	MinGames      int     `yaml:"min_games"`
}

// EnsembleConfig selects how individual model outputs are combined.
// Method is one of weighted_average, simple_average, voting or
// max_confidence.
type EnsembleConfig struct {
	Method  string    `yaml:"method"`
	Weights []float64 `yaml:"weights"`
}

// BettingConfig bounds which value bets are worth staking.
type BettingConfig struct {
	MinEdge       float64 `yaml:"min_edge"`
	MaxStakePct   float64 `yaml:"max_stake_pct"`
	MinConfidence float64 `yaml:"min_confidence"`
}

// ModelConfig carries the tuning parameters for the rating, form and
// prediction models. Loaded from config/model.yaml; any field left out
// of the file keeps its default.
type ModelConfig struct {
	Elo      EloConfig      `yaml:"elo"`
	Form     FormConfig     `yaml:"form"`
	Poisson  PoissonConfig  `yaml:"poisson"`
	Ensemble EnsembleConfig `yaml:"ensemble"`
	Betting  BettingConfig  `yaml:"betting"`
	Leagues  []string       `yaml:"leagues"`
}

// DefaultModelConfig returns a complete working parameter set.
func DefaultModelConfig() *ModelConfig {
	return &ModelConfig{
		Elo: EloConfig{
			KFactor:       20.0,
			HomeAdvantage: 100.0,
			GoalWeight:    1.0,
		},
		Form: FormConfig{
			LookbackGames: 5,
			Decay:         0.9,
			VenueSplit:    true,
		},
		Poisson: PoissonConfig{
			HomeAdvantage: 1.3,
			MaxGoals:      10,
			EloWeight:     0.3,
			FormWeight:    0.2,
			LookbackDays:  90,
			MinGames:      5,
		},
		Ensemble: EnsembleConfig{
			Method: "weighted_average",
		},
		Betting: BettingConfig{
			MinEdge:       0.05,
			MaxStakePct:   0.05,
			MinConfidence: 0.6,
		},
		Leagues: []string{"PL", "PD", "BL1", "SA", "FL1"},
	}
}

// LoadModelConfig reads path over the defaults. A missing file is not an
// error; the defaults are a complete configuration.
func LoadModelConfig(path string) (*ModelConfig, error) {
	mc := DefaultModelConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return mc, nil
		}
		return nil, fmt.Errorf("read model config: %w", err)
	}

	if err := yaml.Unmarshal(data, mc); err != nil {
		return nil, fmt.Errorf("parse model config %s: %w", path, err)
	}
	return mc, nil
}
