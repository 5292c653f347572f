package service

import (
	"emath_backend/internal/model"
	"emath_backend/internal/util"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func accessContest() *model.Contest {
	c := &model.Contest{
		Key:                  "spring",
		Name:                 "Spring Cup",
		StartTime:            testNow.Add(-time.Hour),
		EndTime:              testNow.Add(time.Hour),
		IsVisible:            true,
		ScoreboardVisibility: model.ScoreboardVisible,
	}
	c.ID = 1
	return c
}

func userViewer(id uint, rank model.DisplayRank, orgs ...uint) *Viewer {
	return &Viewer{UserID: id, Username: "u", Rank: rank, OrganizationIDs: orgs}
}

func TestAccessCheckHiddenContest(t *testing.T) {
	c := accessContest()
	c.IsVisible = false
	c.Authors = []model.User{{BaseModel: model.BaseModel{ID: 7}}}

	assert.ErrorIs(t, AccessCheck(nil, c), util.ErrContestInaccessible)
	assert.ErrorIs(t, AccessCheck(userViewer(2, model.RankUser), c), util.ErrContestInaccessible)
	assert.ErrorIs(t, AccessCheck(userViewer(3, model.RankSetter), c), util.ErrContestInaccessible)
	assert.NoError(t, AccessCheck(userViewer(7, model.RankSetter), c))
	assert.NoError(t, AccessCheck(userViewer(9, model.RankAdmin), c))
}

func TestAccessCheckPrivateContest(t *testing.T) {
	c := accessContest()
	c.IsPrivate = true
	c.PrivateContestants = []model.User{{BaseModel: model.BaseModel{ID: 4}}}

	err := AccessCheck(nil, c)
	var private *util.PrivateContestError
	if assert.True(t, errors.As(err, &private)) {
		assert.True(t, private.IsPrivate)
		assert.Equal(t, "Spring Cup", private.Name)
	}
	assert.True(t, errors.As(AccessCheck(userViewer(2, model.RankUser), c), &private))
	assert.NoError(t, AccessCheck(userViewer(4, model.RankUser), c))
}

func TestAccessCheckOrganizationPrivate(t *testing.T) {
	c := accessContest()
	c.IsOrganizationPrivate = true
	org := model.Organization{Name: "Lop 10A"}
	org.ID = 5
	c.Organizations = []model.Organization{org}

	var private *util.PrivateContestError
	err := AccessCheck(userViewer(2, model.RankUser, 6), c)
	if assert.True(t, errors.As(err, &private)) {
		assert.Equal(t, []string{"Lop 10A"}, private.Organizations)
	}
	assert.NoError(t, AccessCheck(userViewer(2, model.RankUser, 6, 5), c))

	// 同时私有时两个条件都要满足
	c.IsPrivate = true
	assert.Error(t, AccessCheck(userViewer(2, model.RankUser, 5), c))
	c.PrivateContestants = []model.User{{BaseModel: model.BaseModel{ID: 2}}}
	assert.NoError(t, AccessCheck(userViewer(2, model.RankUser, 5), c))
}

func TestAccessCheckScoreboardViewer(t *testing.T) {
	c := accessContest()
	c.IsPrivate = true
	c.ViewContestScoreboard = []model.User{{BaseModel: model.BaseModel{ID: 8}}}
	assert.NoError(t, AccessCheck(userViewer(8, model.RankUser), c))
}

func TestIsContestEditableBy(t *testing.T) {
	c := accessContest()
	c.Curators = []model.User{{BaseModel: model.BaseModel{ID: 3}}}

	assert.False(t, IsContestEditableBy(nil, c))
	assert.True(t, IsContestEditableBy(userViewer(3, model.RankSetter), c))
	// 普通用户即使是协管员也没有编辑权限
	assert.False(t, IsContestEditableBy(userViewer(3, model.RankUser), c))
	assert.True(t, IsContestEditableBy(userViewer(10, model.RankAdmin), c))
}

func TestScoreboardVisibility(t *testing.T) {
	c := accessContest()
	assert.True(t, ShowScoreboard(c, testNow))
	assert.False(t, ShowScoreboard(c, c.StartTime.Add(-time.Minute)))

	c.ScoreboardVisibility = model.ScoreboardAfterContest
	assert.False(t, ShowScoreboard(c, testNow))
	assert.True(t, ShowScoreboard(c, c.EndTime))

	v := userViewer(2, model.RankUser)
	assert.False(t, CanSeeFullScoreboard(v, c, nil, testNow))

	current := &model.ContestParticipation{ContestID: c.ID, UserID: 2}
	assert.True(t, CanSeeOwnScoreboard(v, c, current, current, testNow))
	assert.False(t, CanSeeOwnScoreboard(v, c, nil, nil, testNow))
}

func TestScoreboardAfterParticipation(t *testing.T) {
	c := accessContest()
	c.ScoreboardVisibility = model.ScoreboardAfterParticipation
	v := userViewer(2, model.RankUser)

	live := &model.ContestParticipation{ContestID: c.ID, UserID: 2, Virtual: model.ParticipationLive}
	assert.False(t, CanSeeFullScoreboard(v, c, live, testNow))
	assert.True(t, CanSeeFullScoreboard(v, c, live, c.EndTime))
}
