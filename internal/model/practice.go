package model

// swagger:model
type Practice struct {
	BaseModel
	Name      string            `gorm:"size:100;not null" json:"name"`
	LevelID   *uint             `gorm:"index" json:"levelId,omitempty"`
	Level     *Level            `json:"level,omitempty"`
	CreatorID uint              `gorm:"index" json:"creatorId"`
	Problems  []PracticeProblem `json:"problems,omitempty"`
}

func (Practice) TableName() string {
	return "practices"
}

// swagger:model
type PracticeProblem struct {
	BaseModel
	PracticeID uint     `gorm:"uniqueIndex:idx_practice_problem;not null" json:"practiceId"`
	ProblemID  uint     `gorm:"uniqueIndex:idx_practice_problem;not null" json:"problemId"`
	Problem    *Problem `json:"problem,omitempty"`
	Points     int      `gorm:"default:1" json:"points"`
	SortOrder  int      `gorm:"default:0" json:"order"`
}

func (PracticeProblem) TableName() string {
	return "practice_problems"
}
