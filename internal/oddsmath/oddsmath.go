// Package oddsmath holds the betting arithmetic shared by the models
// and the value bet scanner: price conversions, implied probabilities,
// bookmaker margin handling and a few season/team helpers.
package oddsmath

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// ImpliedProbability converts a decimal price to the probability the
// bookmaker is charging for.
func ImpliedProbability(decimalOdds float64) (float64, error) {
	if decimalOdds <= 1.0 {
		return 0, fmt.Errorf("decimal odds must be greater than 1.0, got %.3f", decimalOdds)
	}
	return 1.0 / decimalOdds, nil
}

// FairOdds converts a probability back to a margin-free decimal price.
func FairOdds(probability float64) (float64, error) {
	if probability <= 0 || probability > 1 {
		return 0, fmt.Errorf("probability must be in (0, 1], got %.4f", probability)
	}
	return 1.0 / probability, nil
}

// Overround sums the implied probabilities of a complete market. A fair
// book sums to 1.0; anything above is the bookmaker's margin.
func Overround(prices []float64) (float64, error) {
	if len(prices) == 0 {
		return 0, fmt.Errorf("no prices given")
	}
	total := 0.0
	for _, p := range prices {
		ip, err := ImpliedProbability(p)
		if err != nil {
			return 0, err
		}
		total += ip
	}
	return total, nil
}

// RemoveMargin rescales a market's implied probabilities so they sum
// to 1.0, distributing the overround proportionally.
func RemoveMargin(prices []float64) ([]float64, error) {
	total, err := Overround(prices)
	if err != nil {
		return nil, err
	}
	probs := make([]float64, len(prices))
	for i, p := range prices {
		probs[i] = (1.0 / p) / total
	}
	return probs, nil
}

// Edge is the model's advantage over the market price: positive when
// the model thinks the outcome is more likely than the price implies.
func Edge(probability, decimalOdds float64) float64 {
	return probability - 1.0/decimalOdds
}

// ExpectedValue is the per-unit-stake expectation of a bet.
func ExpectedValue(probability, decimalOdds float64) float64 {
	return probability*decimalOdds - 1.0
}

// FractionalToDecimal parses prices like "5/2" into decimal form.
func FractionalToDecimal(num, den int) (float64, error) {
	if den <= 0 || num < 0 {
		return 0, fmt.Errorf("invalid fractional odds %d/%d", num, den)
	}
	return float64(num)/float64(den) + 1.0, nil
}

// AmericanToDecimal converts moneyline odds to decimal form.
func AmericanToDecimal(american float64) (float64, error) {
	switch {
	case american >= 100:
		return american/100.0 + 1.0, nil
	case american <= -100:
		return 100.0/-american + 1.0, nil
	default:
		return 0, fmt.Errorf("american odds must be outside (-100, 100), got %.0f", american)
	}
}

// DecayWeights returns n exponential weights, newest first, where each
// older game counts decay times the one after it.
func DecayWeights(n int, decay float64) []float64 {
	weights := make([]float64, n)
	for i := range weights {
		weights[i] = math.Pow(decay, float64(i))
	}
	return weights
}

// FormPoints maps a result from the team's perspective to league points.
func FormPoints(goalsFor, goalsAgainst int) int {
	switch {
	case goalsFor > goalsAgainst:
		return 3
	case goalsFor == goalsAgainst:
		return 1
	default:
		return 0
	}
}

// SeasonLabel names the season a date falls in. European seasons roll
// over in August, so July 2024 is still "2023-24".
func SeasonLabel(date time.Time) string {
	year := date.Year()
	if date.Month() < time.August {
		year--
	}
	return fmt.Sprintf("%d-%02d", year, (year+1)%100)
}

var teamSuffixes = []string{" FC", " AFC", " CF"}

var teamAliases = map[string]string{
	"Man United":    "Manchester United",
	"Man Utd":       "Manchester United",
	"Man City":      "Manchester City",
	"Spurs":         "Tottenham Hotspur",
	"Wolves":        "Wolverhampton Wanderers",
	"Nott'm Forest": "Nottingham Forest",
	"Sheffield Utd": "Sheffield United",
	"Newcastle":     "Newcastle United",
	"West Ham":      "West Ham United",
	"Brighton":      "Brighton & Hove Albion",
	"Leicester":     "Leicester City",
	"Leeds":         "Leeds United",
}

// StandardizeTeamName normalizes the spelling differences between the
// fixture feed and the odds feed so both resolve to the same team row.
func StandardizeTeamName(name string) string {
	name = strings.TrimSpace(name)
	for _, suffix := range teamSuffixes {
		name = strings.TrimSuffix(name, suffix)
	}
	if canonical, ok := teamAliases[name]; ok {
		return canonical
	}
	return name
}
