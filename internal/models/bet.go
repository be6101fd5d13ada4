package models

import "time"

// Bet settlement results.
const (
	BetPending = "PENDING"
	BetWon     = "WON"
	BetLost    = "LOST"
	BetVoid    = "VOID"
)

// Bet is a placed (or paper-traded) stake on one market selection.
type Bet struct {
	ID        uint       `json:"id" gorm:"primaryKey;column:id"`
	MatchID   uint       `json:"match_id" gorm:"column:match_id;not null;index"`
	Match     Match      `json:"-" gorm:"foreignKey:MatchID"`
	Market    string     `json:"market" gorm:"column:market;size:50;not null"`
	Selection string     `json:"selection" gorm:"column:selection;size:50"`
	Stake     float64    `json:"stake" gorm:"column:stake;not null"`
	Price     float64    `json:"price" gorm:"column:price;not null"`
	Edge      float64    `json:"edge" gorm:"column:edge"`
	Strategy  string     `json:"strategy" gorm:"column:strategy;size:50"`
	Result    string     `json:"result" gorm:"column:result;size:20;default:'PENDING'"`
	Profit    float64    `json:"profit" gorm:"column:profit"`
	PlacedAt  time.Time  `json:"placed_at" gorm:"column:placed_at;autoCreateTime"`
	SettledAt *time.Time `json:"settled_at,omitempty" gorm:"column:settled_at"`
}

func (Bet) TableName() string {
	return "bets"
}

// Settle marks the bet with a result and computes profit at the taken price.
func (b *Bet) Settle(result string, at time.Time) {
	b.Result = result
	b.SettledAt = &at
	switch result {
	case BetWon:
		b.Profit = b.Stake * (b.Price - 1)
	case BetLost:
		b.Profit = -b.Stake
	default:
		b.Profit = 0
	}
}
