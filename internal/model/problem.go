package model

import "regexp"

type Difficulty string

const (
	DifficultyNewbie  Difficulty = "newbie"
	DifficultyAmateur Difficulty = "amateur"
	DifficultyExpert  Difficulty = "expert"
	DifficultyCMaster Difficulty = "cmaster"
	DifficultyMaster  Difficulty = "master"
	DifficultyGMaster Difficulty = "gmaster"
)

func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyNewbie, DifficultyAmateur, DifficultyExpert,
		DifficultyCMaster, DifficultyMaster, DifficultyGMaster:
		return true
	}
	return false
}

type AnswerType string

const (
	AnswerMultipleChoice AnswerType = "mc"
	AnswerFill           AnswerType = "fill"
)

// CodePattern 题目代码与比赛 key 共用
var CodePattern = regexp.MustCompile(`^[a-z0-9]+$`)

// swagger:model
type ProblemGroup struct {
	BaseModel
	Name     string `gorm:"size:20;uniqueIndex;not null" json:"name"`
	FullName string `gorm:"size:100" json:"fullName"`
}

func (ProblemGroup) TableName() string {
	return "problem_groups"
}

// swagger:model
type Level struct {
	BaseModel
	Name        string `gorm:"size:50;uniqueIndex;not null" json:"name"`
	Description string `gorm:"type:text" json:"description"`
	SortOrder   int    `gorm:"default:0" json:"order"`
}

func (Level) TableName() string {
	return "levels"
}

// swagger:model
type Problem struct {
	BaseModel
	Code                  string         `gorm:"size:20;uniqueIndex;not null" json:"code"`
	Name                  string         `gorm:"size:100;index;not null" json:"name"`
	Description           string         `gorm:"type:text" json:"description"`
	GroupID               *uint          `gorm:"index" json:"groupId,omitempty"`
	Group                 *ProblemGroup  `json:"group,omitempty"`
	LevelID               *uint          `gorm:"index" json:"levelId,omitempty"`
	Level                 *Level         `json:"level,omitempty"`
	Difficulty            Difficulty     `gorm:"size:10;default:'newbie';index" json:"difficulty"`
	ProblemType           string         `gorm:"size:50" json:"problemType"`
	IsPublic              bool           `gorm:"default:false;index" json:"isPublic"`
	IsOrganizationPrivate bool           `gorm:"default:false" json:"isOrganizationPrivate"`
	Organizations         []Organization `gorm:"many2many:problem_organizations;" json:"organizations,omitempty"`
	Authors               []User         `gorm:"many2many:problem_authors;" json:"authors,omitempty"`
	AnswerType            AnswerType     `gorm:"size:4;default:'mc'" json:"answerType"`
	Answers               []Answer       `json:"answers,omitempty"`
	IsFullMarkup          bool           `gorm:"default:false" json:"isFullMarkup"`
}

func (Problem) TableName() string {
	return "problems"
}

func (p *Problem) IsAuthor(userID uint) bool {
	for _, a := range p.Authors {
		if a.ID == userID {
			return true
		}
	}
	return false
}

// CorrectAnswers 选择题返回标记为正确的选项，填空题返回全部答案行
func (p *Problem) CorrectAnswers() []Answer {
	if p.AnswerType == AnswerFill {
		return p.Answers
	}
	var out []Answer
	for _, a := range p.Answers {
		if a.IsCorrect {
			out = append(out, a)
		}
	}
	return out
}

// swagger:model
type Answer struct {
	BaseModel
	ProblemID   uint   `gorm:"index;not null" json:"problemId"`
	Description string `gorm:"size:255;not null" json:"description"`
	IsCorrect   bool   `gorm:"default:false" json:"isCorrect,omitempty"`
}

func (Answer) TableName() string {
	return "problem_answers"
}
