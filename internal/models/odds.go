package models

import "time"

// Market keys stored on odds and prediction rows.
const (
	MarketHomeWin   = "home_win"
	MarketDraw      = "draw"
	MarketAwayWin   = "away_win"
	MarketOver25    = "over_25"
	MarketUnder25   = "under_25"
	MarketBTTSYes   = "btts_yes"
	MarketBTTSNo    = "btts_no"
	MarketHomeClean = "home_clean_sheet"
	MarketAwayClean = "away_clean_sheet"
)

// Odds is one bookmaker price snapshot for one market selection.
type Odds struct {
	ID         uint      `json:"id" gorm:"primaryKey;column:id"`
	MatchID    uint      `json:"match_id" gorm:"column:match_id;not null;index"`
	Match      Match     `json:"-" gorm:"foreignKey:MatchID;constraint:OnDelete:CASCADE"`
	Bookmaker  string    `json:"bookmaker" gorm:"column:bookmaker;size:50;not null"`
	Market     string    `json:"market" gorm:"column:market;size:50;not null;index"`
	Selection  string    `json:"selection" gorm:"column:selection;size:50"`
	Price      float64   `json:"price" gorm:"column:price;not null"`
	CapturedAt time.Time `json:"captured_at" gorm:"column:captured_at;autoCreateTime"`
}

func (Odds) TableName() string {
	return "odds"
}
