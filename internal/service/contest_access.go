package service

import (
	"emath_backend/internal/model"
	"emath_backend/internal/util"
	"time"
)

func privateContestError(c *model.Contest) error {
	orgs := make([]string, 0, len(c.Organizations))
	for _, o := range c.Organizations {
		orgs = append(orgs, o.Name)
	}
	return &util.PrivateContestError{
		Name:                  c.Name,
		IsPrivate:             c.IsPrivate,
		IsOrganizationPrivate: c.IsOrganizationPrivate,
		Organizations:         orgs,
	}
}

// AccessCheck 判断用户能否访问比赛，返回 ErrContestInaccessible 或 *util.PrivateContestError
func AccessCheck(v *Viewer, c *model.Contest) error {
	if !v.Authenticated() {
		if !c.IsVisible {
			return util.ErrContestInaccessible
		}
		if c.IsPrivate || c.IsOrganizationPrivate {
			return privateContestError(c)
		}
		return nil
	}

	if v.HasPerm(model.PermSeePrivateContest) || v.HasPerm(model.PermEditAllContest) {
		return nil
	}
	if c.IsEditor(v.UserID) {
		return nil
	}
	if !c.IsVisible {
		return util.ErrContestInaccessible
	}
	if !c.IsPrivate && !c.IsOrganizationPrivate {
		return nil
	}
	if c.IsScoreboardViewer(v.UserID) {
		return nil
	}

	inPrivate := !c.IsPrivate || c.IsPrivateContestant(v.UserID)
	inOrg := !c.IsOrganizationPrivate || v.InOrganization(c.OrganizationIDs())
	if inPrivate && inOrg {
		return nil
	}
	return privateContestError(c)
}

func IsContestAccessibleBy(v *Viewer, c *model.Contest) bool {
	return AccessCheck(v, c) == nil
}

// IsContestEditableBy 管理员，或拥有编辑权限的作者/协管员
func IsContestEditableBy(v *Viewer, c *model.Contest) bool {
	if !v.Authenticated() {
		return false
	}
	if v.HasPerm(model.PermEditAllContest) {
		return true
	}
	return v.HasPerm(model.PermEditOwnContest) && c.IsEditor(v.UserID)
}

func isCurrentContest(current *model.ContestParticipation, c *model.Contest) bool {
	return current != nil && current.ContestID == c.ID
}

// ShowScoreboard 比赛开始后公开，C/P 模式要等比赛结束
func ShowScoreboard(c *model.Contest, now time.Time) bool {
	if !c.Started(now) {
		return false
	}
	if c.ScoreboardVisibility != model.ScoreboardVisible && !c.Ended(now) {
		return false
	}
	return true
}

// CanSeeFullScoreboard live 为用户在该比赛的正式参赛记录，可为 nil
func CanSeeFullScoreboard(v *Viewer, c *model.Contest, live *model.ContestParticipation, now time.Time) bool {
	if ShowScoreboard(c, now) {
		return true
	}
	if !v.Authenticated() {
		return false
	}
	if v.HasPerm(model.PermSeePrivateContest) || IsContestEditableBy(v, c) {
		return true
	}
	if c.IsScoreboardViewer(v.UserID) {
		return true
	}
	return c.ScoreboardVisibility == model.ScoreboardAfterParticipation &&
		live != nil && live.Live() && live.Ended(c, now)
}

// CanSeeOwnScoreboard 不能看完整排行榜时，比赛中的用户仍可看到自己的成绩
func CanSeeOwnScoreboard(v *Viewer, c *model.Contest, current, live *model.ContestParticipation, now time.Time) bool {
	if CanSeeFullScoreboard(v, c, live, now) {
		return true
	}
	if !c.Started(now) {
		return false
	}
	return v.Authenticated() && isCurrentContest(current, c)
}
