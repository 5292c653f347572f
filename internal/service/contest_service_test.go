package service

import (
	"context"
	"emath_backend/internal/contestformat"
	"emath_backend/internal/model"
	"emath_backend/internal/testutil"
	"emath_backend/internal/util"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// contestRequest 以比赛现有设置构造修改请求
func contestRequest(c *model.Contest, problems ...ContestProblemRequest) *ContestRequest {
	return &ContestRequest{
		Key:                  c.Key,
		Name:                 c.Name,
		StartTime:            c.StartTime,
		EndTime:              c.EndTime,
		IsVisible:            c.IsVisible,
		ScoreboardVisibility: c.ScoreboardVisibility,
		FormatName:           c.FormatName,
		Problems:             problems,
	}
}

func TestCreateContest(t *testing.T) {
	env := newTestEnv(t)
	setter := testutil.CreateUser(t, env.db, "setter", model.RankSetter)
	user := testutil.CreateUser(t, env.db, "hoa", model.RankUser)
	p := testutil.CreateMCProblem(t, env.db, "olp1", []string{"1", "2"}, 1)

	req := &ContestRequest{
		Key:                "olympic",
		Name:               "Olympic round",
		StartTime:          testNow.Add(time.Hour),
		EndTime:            testNow.Add(3 * time.Hour),
		ProblemLabelScript: "function(n) return string.char(65 + n) end",
		Problems:           []ContestProblemRequest{{Code: p.Code}},
	}

	_, err := env.contests.Create(env.viewer(t, user), req)
	assert.ErrorIs(t, err, util.ErrPermissionDenied)

	contest, err := env.contests.Create(env.viewer(t, setter), req)
	require.NoError(t, err)
	assert.True(t, contest.IsAuthor(setter.ID))
	assert.Equal(t, contestformat.DefaultName, contest.FormatName)
	assert.Equal(t, model.ScoreboardVisible, contest.ScoreboardVisibility)
	assert.Equal(t, 3, contest.PointsPrecision)

	var cps []model.ContestProblem
	require.NoError(t, env.db.Where("contest_id = ?", contest.ID).Find(&cps).Error)
	require.Len(t, cps, 1)
	assert.Equal(t, p.ID, cps[0].ProblemID)
	assert.Equal(t, 1, cps[0].Points)
	assert.Equal(t, 1, cps[0].SortOrder)

	labels, err := contestformat.Labels(contest, &contestformat.DefaultFormat{}, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, labels)
}

func TestCreateContestValidation(t *testing.T) {
	env := newTestEnv(t)
	admin := testutil.CreateUser(t, env.db, "admin", model.RankAdmin)
	p := testutil.CreateMCProblem(t, env.db, "valp1", []string{"1", "2"}, 0)

	base := func() *ContestRequest {
		return &ContestRequest{
			Key:       "round",
			Name:      "Round",
			StartTime: testNow,
			EndTime:   testNow.Add(time.Hour),
			Problems:  []ContestProblemRequest{{Code: p.Code}},
		}
	}
	tests := []struct {
		name   string
		mutate func(*ContestRequest)
		want   error
	}{
		{"ends before start", func(r *ContestRequest) { r.EndTime = r.StartTime.Add(-time.Minute) }, util.ErrValidation},
		{"zero length", func(r *ContestRequest) { r.EndTime = r.StartTime }, util.ErrValidation},
		{"unknown format", func(r *ContestRequest) { r.FormatName = "ioi" }, util.ErrUnknownContestFormat},
		{"label script syntax", func(r *ContestRequest) { r.ProblemLabelScript = "function(n" }, util.ErrInvalidLabelScript},
		{"label script not string", func(r *ContestRequest) { r.ProblemLabelScript = "function(n) return n end" }, util.ErrInvalidLabelScript},
		{"bad key", func(r *ContestRequest) { r.Key = "Round 1" }, util.ErrValidation},
		{"precision", func(r *ContestRequest) { r.PointsPrecision = intPtr(11) }, util.ErrValidation},
		{"scoreboard visibility", func(r *ContestRequest) { r.ScoreboardVisibility = "X" }, util.ErrValidation},
		{"unknown problem", func(r *ContestRequest) { r.Problems = []ContestProblemRequest{{Code: "nope"}} }, util.ErrValidation},
		{"duplicate problem", func(r *ContestRequest) { r.Problems = append(r.Problems, ContestProblemRequest{Code: p.Code}) }, util.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := base()
			tt.mutate(req)
			_, err := env.contests.Create(env.viewer(t, admin), req)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	var n int64
	require.NoError(t, env.db.Model(&model.Contest{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestUpdateContestValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := testutil.CreateUser(t, env.db, "admin", model.RankAdmin)
	setter := testutil.CreateUser(t, env.db, "setter", model.RankSetter)
	contest := env.ongoingContest(t, "upd")

	req := contestRequest(contest)
	req.EndTime = contest.StartTime.Add(-time.Hour)
	_, err := env.contests.Update(ctx, env.viewer(t, admin), contest.Key, req)
	assert.ErrorIs(t, err, util.ErrValidation)

	// 非作者的出题人不能修改
	_, err = env.contests.Update(ctx, env.viewer(t, setter), contest.Key, contestRequest(contest))
	assert.ErrorIs(t, err, util.ErrPermissionDenied)

	stored, err := env.contests.ContestRepo.FindByKey(contest.Key)
	require.NoError(t, err)
	assert.True(t, stored.EndTime.Equal(contest.EndTime))
}

func participationFor(t *testing.T, env *testEnv, contestID, userID uint) model.ContestParticipation {
	t.Helper()
	var p model.ContestParticipation
	require.NoError(t, env.db.Where("contest_id = ? AND user_id = ?", contestID, userID).First(&p).Error)
	return p
}

func TestUpdateContestProblemsKeepsScores(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := testutil.CreateUser(t, env.db, "lan", model.RankUser)
	admin := testutil.CreateUser(t, env.db, "admin", model.RankAdmin)
	f := newContestFixture(t, env, "edit")

	_, err := env.contests.Join(ctx, env.viewer(t, user), f.contest.Key, "")
	require.NoError(t, err)
	v := env.viewer(t, user)
	task, err := env.submissions.StartContestTask(v, f.contest.Key)
	require.NoError(t, err)
	_, err = env.submissions.SubmitContestTask(ctx, v, f.contest.Key, &SubmitTaskRequest{
		SubmissionID: task.Submission.ID,
		Answers: map[uint]string{
			f.cps[0].ID: f.correct(0),
			f.cps[1].ID: f.correct(1),
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 100.0, participationFor(t, env, f.contest.ID, user.ID).Score)

	// 同样的题目，分值 1 -> 2
	_, err = env.contests.Update(ctx, env.viewer(t, admin), f.contest.Key, contestRequest(f.contest,
		ContestProblemRequest{Code: f.problems[0].Code, Points: 2},
		ContestProblemRequest{Code: f.problems[1].Code, Points: 2},
	))
	require.NoError(t, err)

	cps, err := env.contests.ContestRepo.Problems(f.contest.ID)
	require.NoError(t, err)
	require.Len(t, cps, 2)
	assert.Equal(t, f.cps[0].ID, cps[0].ID)
	assert.Equal(t, f.cps[1].ID, cps[1].ID)
	assert.Equal(t, 2, cps[0].Points)

	p := participationFor(t, env, f.contest.ID, user.ID)
	assert.Equal(t, 100.0, p.Score)
	data, err := contestformat.ParseFormatData(p.FormatData)
	require.NoError(t, err)
	assert.True(t, data[fmt.Sprint(f.cps[0].ID)].Status)
	assert.True(t, data[fmt.Sprint(f.cps[1].ID)].Status)

	var stored model.Submission
	require.NoError(t, env.db.First(&stored, task.Submission.ID).Error)
	assert.Equal(t, model.ResultAccepted, stored.Result)
	assert.Equal(t, 4.0, stored.Points)
	assert.Equal(t, 4.0, stored.MaxPoints)

	// 去掉第二题并加入新题，总分不变时也要重新评分
	extra := testutil.CreateMCProblem(t, env.db, "editp2", []string{"5", "6"}, 0)
	_, err = env.contests.Update(ctx, env.viewer(t, admin), f.contest.Key, contestRequest(f.contest,
		ContestProblemRequest{Code: f.problems[0].Code, Points: 2},
		ContestProblemRequest{Code: extra.Code, Points: 2},
	))
	require.NoError(t, err)

	cps, err = env.contests.ContestRepo.Problems(f.contest.ID)
	require.NoError(t, err)
	require.Len(t, cps, 2)
	assert.Equal(t, f.cps[0].ID, cps[0].ID)
	assert.Equal(t, extra.ID, cps[1].ProblemID)
	assert.NotEqual(t, f.cps[1].ID, cps[1].ID)

	require.NoError(t, env.db.First(&stored, task.Submission.ID).Error)
	assert.Equal(t, model.ResultWrongAnswer, stored.Result)
	assert.Equal(t, 2.0, stored.Points)
	assert.Equal(t, 50.0, participationFor(t, env, f.contest.ID, user.ID).Score)
}
