package model

import "time"

const (
	ScoreboardVisible            = "V"
	ScoreboardAfterContest       = "C"
	ScoreboardAfterParticipation = "P"
)

const (
	ParticipationLive     = 0
	ParticipationSpectate = -1

	// DisqualifiedScore 被取消资格的参赛记录固定分数
	DisqualifiedScore = -9999
)

// swagger:model
type Contest struct {
	BaseModel
	Key                   string           `gorm:"size:20;uniqueIndex;not null" json:"key"`
	Name                  string           `gorm:"size:100;index;not null" json:"name"`
	Description           string           `gorm:"type:text" json:"description"`
	Summary               string           `gorm:"type:text" json:"summary"`
	StartTime             time.Time        `gorm:"index;not null" json:"startTime"`
	EndTime               time.Time        `gorm:"index;not null" json:"endTime"`
	Authors               []User           `gorm:"many2many:contest_authors;" json:"authors,omitempty"`
	Curators              []User           `gorm:"many2many:contest_curators;" json:"curators,omitempty"`
	IsVisible             bool             `gorm:"default:false" json:"isVisible"`
	IsPrivate             bool             `gorm:"default:false" json:"isPrivate"`
	PrivateContestants    []User           `gorm:"many2many:contest_private_contestants;" json:"-"`
	IsOrganizationPrivate bool             `gorm:"default:false" json:"isOrganizationPrivate"`
	Organizations         []Organization   `gorm:"many2many:contest_organizations;" json:"organizations,omitempty"`
	ViewContestScoreboard []User           `gorm:"many2many:contest_scoreboard_viewers;" json:"-"`
	ScoreboardVisibility  string           `gorm:"size:1;default:'V'" json:"scoreboardVisibility"`
	AccessCode            string           `gorm:"size:255" json:"-"`
	BannedUsers           []User           `gorm:"many2many:contest_banned_users;" json:"-"`
	FormatName            string           `gorm:"size:32;default:'default'" json:"formatName"`
	FormatConfig          string           `gorm:"type:text" json:"formatConfig,omitempty"`
	ProblemLabelScript    string           `gorm:"type:text" json:"-"`
	PointsPrecision       int              `gorm:"not null" json:"pointsPrecision"`
	UserCount             int              `gorm:"default:0" json:"userCount"`
	OgImage               string           `gorm:"size:150" json:"ogImage"`
	LogoOverrideImage     string           `gorm:"size:150" json:"logoOverrideImage"`
	Problems              []ContestProblem `json:"problems,omitempty"`
}

func (Contest) TableName() string {
	return "contests"
}

func (c *Contest) Started(now time.Time) bool {
	return !now.Before(c.StartTime)
}

func (c *Contest) Ended(now time.Time) bool {
	return !now.Before(c.EndTime)
}

// CanJoin 比赛是否已开始
func (c *Contest) CanJoin(now time.Time) bool {
	return c.Started(now)
}

func (c *Contest) ContestWindowLength() time.Duration {
	return c.EndTime.Sub(c.StartTime)
}

func containsUser(users []User, id uint) bool {
	for _, u := range users {
		if u.ID == id {
			return true
		}
	}
	return false
}

func (c *Contest) IsAuthor(userID uint) bool {
	return containsUser(c.Authors, userID)
}

// IsEditor 作者或协管员
func (c *Contest) IsEditor(userID uint) bool {
	return containsUser(c.Authors, userID) || containsUser(c.Curators, userID)
}

func (c *Contest) IsPrivateContestant(userID uint) bool {
	return containsUser(c.PrivateContestants, userID)
}

func (c *Contest) IsScoreboardViewer(userID uint) bool {
	return containsUser(c.ViewContestScoreboard, userID)
}

func (c *Contest) IsBanned(userID uint) bool {
	return containsUser(c.BannedUsers, userID)
}

func (c *Contest) OrganizationIDs() []uint {
	ids := make([]uint, 0, len(c.Organizations))
	for _, o := range c.Organizations {
		ids = append(ids, o.ID)
	}
	return ids
}

// swagger:model
type ContestProblem struct {
	BaseModel
	ContestID uint     `gorm:"uniqueIndex:idx_contest_problem;not null" json:"contestId"`
	ProblemID uint     `gorm:"uniqueIndex:idx_contest_problem;not null" json:"problemId"`
	Problem   *Problem `json:"problem,omitempty"`
	Points    int      `gorm:"not null;default:1" json:"points"`
	SortOrder int      `gorm:"index;default:0" json:"order"`
}

func (ContestProblem) TableName() string {
	return "contest_problems"
}

// swagger:model
type ContestParticipation struct {
	BaseModel
	ContestID      uint      `gorm:"uniqueIndex:idx_participation_contest_user_virtual;not null" json:"contestId"`
	Contest        *Contest  `json:"contest,omitempty"`
	UserID         uint      `gorm:"uniqueIndex:idx_participation_contest_user_virtual;not null" json:"userId"`
	User           *User     `json:"user,omitempty"`
	RealStart      time.Time `json:"realStart"`
	Score          float64   `gorm:"default:0;index" json:"score"`
	Cumtime        uint      `gorm:"default:0" json:"cumtime"`
	IsDisqualified bool      `gorm:"default:false" json:"isDisqualified"`
	Tiebreaker     float64   `gorm:"default:0" json:"tiebreaker"`
	Virtual        int       `gorm:"uniqueIndex:idx_participation_contest_user_virtual;default:0" json:"virtual"`
	FormatData     string    `gorm:"type:text" json:"-"`
}

func (ContestParticipation) TableName() string {
	return "contest_participations"
}

func (p *ContestParticipation) Live() bool {
	return p.Virtual == ParticipationLive
}

func (p *ContestParticipation) Spectate() bool {
	return p.Virtual == ParticipationSpectate
}

// Start 正式或观战参赛以比赛开始时间为准，虚拟参赛以实际开始时间为准
func (p *ContestParticipation) Start(c *Contest) time.Time {
	if p.Live() || p.Spectate() {
		return c.StartTime
	}
	return p.RealStart
}

func (p *ContestParticipation) EndTime(c *Contest) time.Time {
	if p.Spectate() {
		return c.EndTime
	}
	if p.Virtual > 0 {
		return p.RealStart.Add(c.ContestWindowLength())
	}
	return c.EndTime
}

func (p *ContestParticipation) Ended(c *Contest, now time.Time) bool {
	return !now.Before(p.EndTime(c))
}

// swagger:model
type ContestSolution struct {
	BaseModel
	ContestID    uint      `gorm:"uniqueIndex;not null" json:"contestId"`
	Authors      []User    `gorm:"many2many:contest_solution_authors;" json:"authors,omitempty"`
	IsPublic     bool      `gorm:"default:false" json:"isPublic"`
	PublishOn    time.Time `json:"publishOn"`
	IsFullMarkup bool      `gorm:"default:false" json:"isFullMarkup"`
	Content      string    `gorm:"type:text" json:"content"`
}

func (ContestSolution) TableName() string {
	return "contest_solutions"
}
