package models

import "time"

// Model names recorded against predictions.
const (
	ModelPoisson    = "poisson"
	ModelBTTS       = "btts"
	ModelOverUnder  = "over_under"
	ModelCleanSheet = "clean_sheet"
	ModelEnsemble   = "ensemble"
)

// Prediction is one model's probability for one market on one match.
type Prediction struct {
	ID          uint      `json:"id" gorm:"primaryKey;column:id"`
	MatchID     uint      `json:"match_id" gorm:"column:match_id;not null;index"`
	Match       Match     `json:"-" gorm:"foreignKey:MatchID;constraint:OnDelete:CASCADE"`
	Model       string    `json:"model" gorm:"column:model;size:50;not null;index"`
	Market      string    `json:"market" gorm:"column:market;size:50;not null"`
	Probability float64   `json:"probability" gorm:"column:probability;not null"`
	FairOdds    float64   `json:"fair_odds" gorm:"column:fair_odds"`
	Confidence  float64   `json:"confidence" gorm:"column:confidence"`
	CreatedAt   time.Time `json:"created_at" gorm:"column:created_at;autoCreateTime"`
}

func (Prediction) TableName() string {
	return "predictions"
}
