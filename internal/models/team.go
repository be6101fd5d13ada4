package models

import "time"

// DefaultElo is the rating every new team starts on.
const DefaultElo = 1500.0

// Team stores team identity and its current Elo rating.
type Team struct {
	ID         uint      `json:"id" gorm:"primaryKey;column:id"`
	Name       string    `json:"name" gorm:"column:name;size:100;not null;uniqueIndex"`
	LeagueID   string    `json:"league_id" gorm:"column:league_id;size:10;not null;index"`
	ExternalID *int64    `json:"external_id" gorm:"column:external_id;index"`
	CurrentElo float64   `json:"current_elo" gorm:"column:current_elo;default:1500"`
	UpdatedAt  time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

func (Team) TableName() string {
	return "teams"
}
