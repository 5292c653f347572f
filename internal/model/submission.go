package model

import "time"

const (
	ResultAccepted    = "AC"
	ResultWrongAnswer = "WA"
	ResultPending     = "PE"
)

// swagger:model
type Submission struct {
	BaseModel
	ParticipationID *uint               `gorm:"index" json:"participationId,omitempty"`
	ProfileID       *uint               `gorm:"index" json:"profileId,omitempty"`
	Profile         *User               `gorm:"foreignKey:ProfileID" json:"profile,omitempty"`
	ContestID       *uint               `gorm:"index" json:"contestId,omitempty"`
	PracticeID      *uint               `gorm:"index" json:"practiceId,omitempty"`
	IsContest       bool                `gorm:"default:false" json:"isContest"`
	Date            time.Time           `gorm:"index" json:"date"`
	Time            *time.Time          `json:"time,omitempty"`
	Points          float64             `gorm:"default:0" json:"points"`
	MaxPoints       float64             `gorm:"default:1" json:"maxPoints"`
	Result          string              `gorm:"size:3;default:'PE';index" json:"result"`
	Problems        []SubmissionProblem `json:"problems,omitempty"`
}

func (Submission) TableName() string {
	return "submissions"
}

func (s *Submission) Graded() bool {
	return s.Result == ResultAccepted || s.Result == ResultWrongAnswer
}

// CompletedAt 提交完成时间，缺省回退到创建时间
func (s *Submission) CompletedAt() time.Time {
	if s.Time != nil {
		return *s.Time
	}
	return s.Date
}

// swagger:model
type SubmissionProblem struct {
	BaseModel
	SubmissionID      uint     `gorm:"uniqueIndex:idx_submission_contest_problem;uniqueIndex:idx_submission_practice_problem;not null" json:"submissionId"`
	ContestProblemID  *uint    `gorm:"uniqueIndex:idx_submission_contest_problem" json:"contestProblemId,omitempty"`
	PracticeProblemID *uint    `gorm:"uniqueIndex:idx_submission_practice_problem" json:"practiceProblemId,omitempty"`
	Result            bool     `gorm:"default:false" json:"result"`
	Points            *float64 `json:"points,omitempty"`
	Output            string   `gorm:"type:text" json:"output"`
}

func (SubmissionProblem) TableName() string {
	return "submission_problems"
}
