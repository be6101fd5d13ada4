package models

// Referee stores per-official averages built up from finished matches.
type Referee struct {
	ID                uint     `json:"id" gorm:"primaryKey;column:id"`
	Name              string   `json:"name" gorm:"column:name;size:100;not null;uniqueIndex"`
	AvgCards          *float64 `json:"avg_cards" gorm:"column:avg_cards"`
	AvgCorners        *float64 `json:"avg_corners" gorm:"column:avg_corners"`
	MatchesOfficiated int      `json:"matches_officiated" gorm:"column:matches_officiated;default:0"`
}

func (Referee) TableName() string {
	return "referees"
}
