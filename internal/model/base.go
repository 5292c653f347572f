package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// swagger:model
type BaseModel struct {
	ID        uint           `gorm:"primaryKey;autoIncrement" json:"id"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func GenerateUUID() string {
	return uuid.New().String()
}

// All 返回需要迁移的全部模型，顺序即建表顺序
func All() []interface{} {
	return []interface{}{
		&User{},
		&Organization{},
		&OrganizationRequest{},
		&ProblemGroup{},
		&Level{},
		&Problem{},
		&Answer{},
		&Contest{},
		&ContestProblem{},
		&ContestParticipation{},
		&ContestSolution{},
		&Submission{},
		&SubmissionProblem{},
		&Practice{},
		&PracticeProblem{},
		&BlogPost{},
	}
}
