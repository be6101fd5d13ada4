// Package validate guards the boundaries of the pipeline: everything
// coming from an external feed or going into a bet passes through here.
package validate

import (
	"fmt"
	"time"
)

// Bounds enforced on external and derived data.
const (
	MinOdds = 1.01
	MaxOdds = 100.0

	MaxGoals   = 15
	MaxCorners = 30
	MaxCards   = 12

	MinElo = 1000.0
	MaxElo = 2500.0

	MaxStakeFraction = 0.05
)

// Odds rejects decimal prices outside the plausible bookmaker range.
func Odds(price float64) error {
	if price < MinOdds || price > MaxOdds {
		return fmt.Errorf("odds %.3f outside valid range [%.2f, %.2f]", price, MinOdds, MaxOdds)
	}
	return nil
}

// Probability rejects values outside [0, 1].
func Probability(p float64) error {
	if p < 0 || p > 1 {
		return fmt.Errorf("probability %.4f outside [0, 1]", p)
	}
	return nil
}

// Score rejects negative or implausibly large goal counts.
func Score(goals int) error {
	if goals < 0 {
		return fmt.Errorf("negative goal count %d", goals)
	}
	if goals > MaxGoals {
		return fmt.Errorf("goal count %d exceeds maximum %d", goals, MaxGoals)
	}
	return nil
}

// Elo rejects ratings that have drifted outside the working band.
func Elo(rating float64) error {
	if rating < MinElo || rating > MaxElo {
		return fmt.Errorf("elo rating %.1f outside [%.0f, %.0f]", rating, MinElo, MaxElo)
	}
	return nil
}

// Stake enforces the bankroll cap on a single bet.
func Stake(stake, bankroll float64) error {
	if stake <= 0 {
		return fmt.Errorf("stake must be positive, got %.2f", stake)
	}
	if bankroll <= 0 {
		return fmt.Errorf("bankroll must be positive, got %.2f", bankroll)
	}
	if max := bankroll * MaxStakeFraction; stake > max {
		return fmt.Errorf("stake %.2f exceeds %.0f%% of bankroll (max %.2f)",
			stake, MaxStakeFraction*100, max)
	}
	return nil
}

// MatchData sanity-checks a finished match before it enters the store.
type MatchData struct {
	Date        time.Time
	HomeGoals   int
	AwayGoals   int
	HomeCorners *int
	AwayCorners *int
	HomeCards   *int
	AwayCards   *int
}

// Match returns every problem found with a finished match record.
func Match(m MatchData) []error {
	var errs []error
	if m.Date.IsZero() {
		errs = append(errs, fmt.Errorf("match date is zero"))
	}
	if err := Score(m.HomeGoals); err != nil {
		errs = append(errs, fmt.Errorf("home goals: %w", err))
	}
	if err := Score(m.AwayGoals); err != nil {
		errs = append(errs, fmt.Errorf("away goals: %w", err))
	}
	for _, c := range []struct {
		name string
		val  *int
		max  int
	}{
		{"home corners", m.HomeCorners, MaxCorners},
		{"away corners", m.AwayCorners, MaxCorners},
		{"home cards", m.HomeCards, MaxCards},
		{"away cards", m.AwayCards, MaxCards},
	} {
		if c.val == nil {
			continue
		}
		if *c.val < 0 {
			errs = append(errs, fmt.Errorf("%s: negative count %d", c.name, *c.val))
		} else if *c.val > c.max {
			errs = append(errs, fmt.Errorf("%s: count %d exceeds maximum %d", c.name, *c.val, c.max))
		}
	}
	return errs
}
