package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

const (
	oddsAPIBaseURL = "https://api.the-odds-api.com/v4"

	// Free tier monthly quota. Tracked locally since cached responses
	// do not hit the API at all.
	oddsAPIMonthlyQuota = 500
	lowQuotaThreshold   = 50
)

// SportKeys maps football-data competition codes to odds API sport keys.
var SportKeys = map[string]string{
	"PL":  "soccer_epl",
	"PD":  "soccer_spain_la_liga",
	"BL1": "soccer_germany_bundesliga",
	"SA":  "soccer_italy_serie_a",
	"FL1": "soccer_france_ligue_one",
	"CL":  "soccer_uefa_champs_league",
	"EL":  "soccer_uefa_europa_league",
}

// OddsClient talks to the-odds-api.com. Authentication is an apiKey
// query parameter. The free tier has 500 requests per month, so odds
// responses are cached for 24 hours and usage is counted.
type OddsClient struct {
	client *Client
	logger *zap.Logger
	used   atomic.Int64
}

func NewOddsClient(apiKey string, cache *FileCache, logger *zap.Logger) *OddsClient {
	logger = logger.Named("odds-api")
	c := &OddsClient{logger: logger}
	c.client = NewClient(ClientConfig{
		BaseURL:           oddsAPIBaseURL,
		RequestsPerMinute: 30,
		Cache:             cache,
		Auth: func(_ *http.Request, params url.Values) url.Values {
			params.Set("apiKey", apiKey)
			return params
		},
		OnUpstream: c.trackUsage,
	}, logger)
	return c
}

// QuotaRemaining returns the estimated requests left this month.
func (c *OddsClient) QuotaRemaining() int {
	remaining := oddsAPIMonthlyQuota - int(c.used.Load())
	if remaining < 0 {
		return 0
	}
	return remaining
}

func (c *OddsClient) trackUsage() {
	used := c.used.Add(1)
	if remaining := oddsAPIMonthlyQuota - int(used); remaining < lowQuotaThreshold {
		c.logger.Warn("odds API quota running low", zap.Int("remaining", remaining))
	}
}

// Event is one upcoming match with bookmaker odds attached.
type Event struct {
	ID           string      `json:"id"`
	SportKey     string      `json:"sport_key"`
	CommenceTime time.Time   `json:"commence_time"`
	HomeTeam     string      `json:"home_team"`
	AwayTeam     string      `json:"away_team"`
	Bookmakers   []Bookmaker `json:"bookmakers"`
}

type Bookmaker struct {
	Key     string       `json:"key"`
	Title   string       `json:"title"`
	Markets []OddsMarket `json:"markets"`
}

type OddsMarket struct {
	Key      string    `json:"key"`
	Outcomes []Outcome `json:"outcomes"`
}

type Outcome struct {
	Name  string   `json:"name"`
	Price float64  `json:"price"`
	Point *float64 `json:"point,omitempty"`
}

// Odds fetches current odds for a competition. markets is a comma
// separated list such as "h2h,totals".
func (c *OddsClient) Odds(ctx context.Context, competition, markets string) ([]Event, error) {
	sportKey, ok := SportKeys[competition]
	if !ok {
		return nil, fmt.Errorf("no odds API sport key for competition %q", competition)
	}
	if markets == "" {
		markets = "h2h"
	}

	params := url.Values{}
	params.Set("regions", "uk")
	params.Set("markets", markets)
	params.Set("oddsFormat", "decimal")
	params.Set("dateFormat", "iso")

	var events []Event
	if err := c.client.Get(ctx, "/sports/"+sportKey+"/odds", params, &events); err != nil {
		return nil, fmt.Errorf("fetching %s odds: %w", competition, err)
	}
	return events, nil
}

// Sport is one entry of the odds API sports catalogue.
type Sport struct {
	Key          string `json:"key"`
	Group        string `json:"group"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	Active       bool   `json:"active"`
	HasOutrights bool   `json:"has_outrights"`
}

// Sports lists the in-season sports the API currently covers.
func (c *OddsClient) Sports(ctx context.Context) ([]Sport, error) {
	var sports []Sport
	if err := c.client.Get(ctx, "/sports", url.Values{}, &sports); err != nil {
		return nil, fmt.Errorf("fetching sports: %w", err)
	}
	return sports, nil
}

// EventOdds fetches odds for a single event, which allows markets the
// bulk endpoint does not carry.
func (c *OddsClient) EventOdds(ctx context.Context, competition, eventID, markets string) (*Event, error) {
	sportKey, ok := SportKeys[competition]
	if !ok {
		return nil, fmt.Errorf("no odds API sport key for competition %q", competition)
	}
	if markets == "" {
		markets = "h2h"
	}

	params := url.Values{}
	params.Set("regions", "uk")
	params.Set("markets", markets)
	params.Set("oddsFormat", "decimal")
	params.Set("dateFormat", "iso")

	var event Event
	if err := c.client.Get(ctx, "/sports/"+sportKey+"/events/"+eventID+"/odds", params, &event); err != nil {
		return nil, fmt.Errorf("fetching event %s odds: %w", eventID, err)
	}
	return &event, nil
}

// BestPrice returns the highest price any bookmaker offers for a named
// outcome in a market, false when no bookmaker prices it.
func (e Event) BestPrice(marketKey, outcomeName string) (price float64, bookmaker string, ok bool) {
	for _, b := range e.Bookmakers {
		for _, m := range b.Markets {
			if m.Key != marketKey {
				continue
			}
			for _, o := range m.Outcomes {
				if o.Name == outcomeName && o.Price > price {
					price = o.Price
					bookmaker = b.Title
					ok = true
				}
			}
		}
	}
	return price, bookmaker, ok
}
