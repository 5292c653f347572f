package service

import "emath_backend/internal/model"

// Viewer 发起请求的用户，nil 表示匿名
type Viewer struct {
	UserID           uint
	Username         string
	Rank             model.DisplayRank
	OrganizationIDs  []uint
	CurrentContestID *uint
}

func (v *Viewer) Authenticated() bool {
	return v != nil && v.UserID != 0
}

func (v *Viewer) HasPerm(p model.Permission) bool {
	return v.Authenticated() && v.Rank.HasPerm(p)
}

func (v *Viewer) IsSuperuser() bool {
	return v.Authenticated() && v.Rank == model.RankAdmin
}

func (v *Viewer) InOrganization(ids []uint) bool {
	if !v.Authenticated() {
		return false
	}
	for _, want := range ids {
		for _, have := range v.OrganizationIDs {
			if want == have {
				return true
			}
		}
	}
	return false
}

// NewViewer 由已加载组织的用户构造
func NewViewer(user *model.User) *Viewer {
	if user == nil {
		return nil
	}
	ids := make([]uint, 0, len(user.Organizations))
	for _, o := range user.Organizations {
		ids = append(ids, o.ID)
	}
	return &Viewer{
		UserID:           user.ID,
		Username:         user.Username,
		Rank:             user.DisplayRank,
		OrganizationIDs:  ids,
		CurrentContestID: user.CurrentContestID,
	}
}
