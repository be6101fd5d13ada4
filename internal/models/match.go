package models

import "time"

// Match statuses as reported by football-data.org.
const (
	StatusScheduled = "SCHEDULED"
	StatusFinished  = "FINISHED"
	StatusPostponed = "POSTPONED"
)

// Match relates two teams on a date, carrying the result once played.
// Score, corner and card fields stay nil until the data source provides
// them.
type Match struct {
	ID         uint   `json:"id" gorm:"primaryKey;column:id"`
	ExternalID string `json:"external_id" gorm:"column:external_id;size:50;uniqueIndex"`

	Date       time.Time `json:"date" gorm:"column:date;not null;index"`
	HomeTeamID uint      `json:"home_team_id" gorm:"column:home_team_id;not null;index"`
	HomeTeam   Team      `json:"home_team" gorm:"foreignKey:HomeTeamID"`
	AwayTeamID uint      `json:"away_team_id" gorm:"column:away_team_id;not null;index"`
	AwayTeam   Team      `json:"away_team" gorm:"foreignKey:AwayTeamID"`
	LeagueID   string    `json:"league_id" gorm:"column:league_id;size:10;not null;index"`

	HomeGoals   *int `json:"home_goals" gorm:"column:home_goals"`
	AwayGoals   *int `json:"away_goals" gorm:"column:away_goals"`
	HomeCorners *int `json:"home_corners" gorm:"column:home_corners"`
	AwayCorners *int `json:"away_corners" gorm:"column:away_corners"`
	HomeCards   *int `json:"home_cards" gorm:"column:home_cards"`
	AwayCards   *int `json:"away_cards" gorm:"column:away_cards"`

	RefereeID *uint    `json:"referee_id" gorm:"column:referee_id"`
	Referee   *Referee `json:"referee,omitempty" gorm:"foreignKey:RefereeID"`

	Status string `json:"status" gorm:"column:status;size:20;default:'SCHEDULED';index"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

func (Match) TableName() string {
	return "matches"
}

// TotalGoals returns home+away goals, or nil while the result is unknown.
func (m *Match) TotalGoals() *int {
	if m.HomeGoals == nil || m.AwayGoals == nil {
		return nil
	}
	total := *m.HomeGoals + *m.AwayGoals
	return &total
}

// BothScored reports whether both sides found the net.
func (m *Match) BothScored() *bool {
	if m.HomeGoals == nil || m.AwayGoals == nil {
		return nil
	}
	b := *m.HomeGoals > 0 && *m.AwayGoals > 0
	return &b
}

// Finished reports whether a result is available.
func (m *Match) Finished() bool {
	return m.Status == StatusFinished && m.HomeGoals != nil && m.AwayGoals != nil
}
