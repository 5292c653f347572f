package model

import "time"

type DisplayRank string

const (
	RankUser   DisplayRank = "user"
	RankSetter DisplayRank = "setter"
	RankAdmin  DisplayRank = "admin"
)

func (r DisplayRank) Valid() bool {
	switch r {
	case RankUser, RankSetter, RankAdmin:
		return true
	}
	return false
}

// swagger:model
type User struct {
	BaseModel
	Username         string         `gorm:"size:150;uniqueIndex;not null" json:"username"`
	Email            string         `gorm:"size:100;uniqueIndex;not null" json:"email"`
	FullName         string         `gorm:"size:150" json:"fullName"`
	Password         string         `gorm:"size:100;not null" json:"-"`
	DisplayRank      DisplayRank    `gorm:"size:10;default:'user';index" json:"displayRank"`
	About            string         `gorm:"type:text" json:"about"`
	Points           float64        `gorm:"default:0" json:"points"`
	Timezone         string         `gorm:"size:50;default:'Asia/Ho_Chi_Minh'" json:"timezone"`
	Avatar           string         `gorm:"size:255" json:"avatar"`
	Organizations    []Organization `gorm:"many2many:organization_members;" json:"organizations,omitempty"`
	CurrentContestID *uint          `gorm:"index" json:"currentContestId,omitempty"`
	IsActive         bool           `gorm:"not null" json:"isActive"`
	LastSeen         time.Time      `json:"lastSeen"`
}

func (User) TableName() string {
	return "users"
}

// DisplayName 优先显示全名
func (u *User) DisplayName() string {
	if u.FullName != "" {
		return u.FullName
	}
	return u.Username
}

func (u *User) IsSuperuser() bool {
	return u.DisplayRank == RankAdmin
}

func (u *User) HasPerm(p Permission) bool {
	return u.DisplayRank.HasPerm(p)
}
