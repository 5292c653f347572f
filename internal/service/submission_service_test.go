package service

import (
	"context"
	"emath_backend/internal/model"
	"emath_backend/internal/testutil"
	"emath_backend/internal/util"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type contestFixture struct {
	contest  *model.Contest
	problems []*model.Problem
	cps      []*model.ContestProblem
}

// newContestFixture 进行中的比赛，两道选择题各 1 分，正确答案为第一个选项
func newContestFixture(t *testing.T, env *testEnv, key string) *contestFixture {
	t.Helper()
	f := &contestFixture{contest: env.ongoingContest(t, key)}
	for i := 0; i < 2; i++ {
		p := testutil.CreateMCProblem(t, env.db, fmt.Sprintf("%sp%d", key, i), []string{"12", "13", "14"}, 0)
		f.problems = append(f.problems, p)
		f.cps = append(f.cps, testutil.AddContestProblem(t, env.db, f.contest, p, 1, i+1))
	}
	return f
}

func (f *contestFixture) correct(i int) string {
	return fmt.Sprint(f.problems[i].Answers[0].ID)
}

func TestContestTaskFlow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := testutil.CreateUser(t, env.db, "phuong", model.RankUser)
	f := newContestFixture(t, env, "flow")

	_, err := env.submissions.StartContestTask(env.viewer(t, user), f.contest.Key)
	assert.ErrorIs(t, err, util.ErrNotInContest)

	_, err = env.contests.Join(ctx, env.viewer(t, user), f.contest.Key, "")
	require.NoError(t, err)
	v := env.viewer(t, user)

	task, err := env.submissions.StartContestTask(v, f.contest.Key)
	require.NoError(t, err)
	require.Len(t, task.Problems, 2)
	assert.Equal(t, "1", task.Problems[0].Label)
	require.Len(t, task.Problems[0].Options, 3)
	assert.Equal(t, "A", task.Problems[0].Options[0].Label)
	require.NotNil(t, task.EndTime)
	assert.True(t, task.EndTime.Equal(f.contest.EndTime))

	// 未提交前再次开始返回同一份作答
	again, err := env.submissions.StartContestTask(v, f.contest.Key)
	require.NoError(t, err)
	assert.Equal(t, task.Submission.ID, again.Submission.ID)

	sub, err := env.submissions.SubmitContestTask(ctx, v, f.contest.Key, &SubmitTaskRequest{
		SubmissionID: task.Submission.ID,
		Answers: map[uint]string{
			f.cps[0].ID: f.correct(0),
			f.cps[1].ID: " 12 ",
		},
	})
	require.NoError(t, err)
	assert.Equal(t, model.ResultAccepted, sub.Result)
	assert.Equal(t, 2.0, sub.Points)
	assert.Equal(t, 2.0, sub.MaxPoints)

	_, err = env.submissions.SubmitContestTask(ctx, v, f.contest.Key, &SubmitTaskRequest{
		SubmissionID: task.Submission.ID,
		Answers:      map[uint]string{f.cps[0].ID: f.correct(0)},
	})
	assert.ErrorIs(t, err, util.ErrDuplicateSubmission)

	var p model.ContestParticipation
	require.NoError(t, env.db.Where("contest_id = ? AND user_id = ?", f.contest.ID, user.ID).First(&p).Error)
	assert.Equal(t, 100.0, p.Score)
	assert.Equal(t, uint(3600), p.Cumtime)

	ranking, err := env.contests.Ranking(ctx, v, f.contest.Key)
	require.NoError(t, err)
	assert.True(t, ranking.Full)
	require.Len(t, ranking.Rows, 1)
	assert.Equal(t, "1", ranking.Rows[0].Rank)
	assert.Equal(t, "phuong", ranking.Rows[0].Username)
}

func TestContestWrongAnswer(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := testutil.CreateUser(t, env.db, "quang", model.RankUser)
	f := newContestFixture(t, env, "wrong")

	_, err := env.contests.Join(ctx, env.viewer(t, user), f.contest.Key, "")
	require.NoError(t, err)
	v := env.viewer(t, user)
	task, err := env.submissions.StartContestTask(v, f.contest.Key)
	require.NoError(t, err)

	sub, err := env.submissions.SubmitContestTask(ctx, v, f.contest.Key, &SubmitTaskRequest{
		SubmissionID: task.Submission.ID,
		Answers: map[uint]string{
			f.cps[0].ID: f.correct(0),
			f.cps[1].ID: fmt.Sprint(f.problems[1].Answers[2].ID),
		},
	})
	require.NoError(t, err)
	assert.Equal(t, model.ResultWrongAnswer, sub.Result)
	assert.Equal(t, 1.0, sub.Points)

	// 重新评分结果不变
	admin := testutil.CreateUser(t, env.db, "admin", model.RankAdmin)
	n, err := env.contests.Rejudge(ctx, env.viewer(t, admin), f.contest.Key)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	var stored model.Submission
	require.NoError(t, env.db.First(&stored, sub.ID).Error)
	assert.Equal(t, model.ResultWrongAnswer, stored.Result)
	assert.Equal(t, 1.0, stored.Points)

	var p model.ContestParticipation
	require.NoError(t, env.db.Where("contest_id = ? AND user_id = ?", f.contest.ID, user.ID).First(&p).Error)
	assert.Equal(t, 50.0, p.Score)
}

// 空白作答同样评分，评分后结果不可再改
func TestGradedSubmissionIsFinal(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := testutil.CreateUser(t, env.db, "nhung", model.RankUser)
	f := newContestFixture(t, env, "final")

	_, err := env.contests.Join(ctx, env.viewer(t, user), f.contest.Key, "")
	require.NoError(t, err)
	v := env.viewer(t, user)
	task, err := env.submissions.StartContestTask(v, f.contest.Key)
	require.NoError(t, err)

	sub, err := env.submissions.SubmitContestTask(ctx, v, f.contest.Key, &SubmitTaskRequest{
		SubmissionID: task.Submission.ID,
		Answers:      map[uint]string{},
	})
	require.NoError(t, err)
	assert.Equal(t, model.ResultWrongAnswer, sub.Result)
	assert.Equal(t, 0.0, sub.Points)

	_, err = env.submissions.SubmitContestTask(ctx, v, f.contest.Key, &SubmitTaskRequest{
		SubmissionID: task.Submission.ID,
		Answers: map[uint]string{
			f.cps[0].ID: f.correct(0),
			f.cps[1].ID: f.correct(1),
		},
	})
	assert.ErrorIs(t, err, util.ErrDuplicateSubmission)

	var stored model.Submission
	require.NoError(t, env.db.First(&stored, task.Submission.ID).Error)
	assert.Equal(t, model.ResultWrongAnswer, stored.Result)
	assert.Equal(t, 0.0, stored.Points)
	var answers int64
	require.NoError(t, env.db.Model(&model.SubmissionProblem{}).Where("submission_id = ?", stored.ID).Count(&answers).Error)
	assert.Zero(t, answers)
}

func TestSubmitAfterParticipationEnded(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := testutil.CreateUser(t, env.db, "son", model.RankUser)
	f := newContestFixture(t, env, "late")

	_, err := env.contests.Join(ctx, env.viewer(t, user), f.contest.Key, "")
	require.NoError(t, err)
	v := env.viewer(t, user)
	task, err := env.submissions.StartContestTask(v, f.contest.Key)
	require.NoError(t, err)

	env.contests.Now = func() time.Time { return f.contest.EndTime.Add(time.Minute) }
	_, err = env.submissions.SubmitContestTask(ctx, v, f.contest.Key, &SubmitTaskRequest{
		SubmissionID: task.Submission.ID,
		Answers:      map[uint]string{f.cps[0].ID: f.correct(0)},
	})
	assert.ErrorIs(t, err, util.ErrParticipationEnded)
}

func TestSubmitOtherUsersSubmission(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := testutil.CreateUser(t, env.db, "thu", model.RankUser)
	other := testutil.CreateUser(t, env.db, "uyen", model.RankUser)
	f := newContestFixture(t, env, "steal")

	_, err := env.contests.Join(ctx, env.viewer(t, owner), f.contest.Key, "")
	require.NoError(t, err)
	task, err := env.submissions.StartContestTask(env.viewer(t, owner), f.contest.Key)
	require.NoError(t, err)

	_, err = env.submissions.SubmitContestTask(ctx, env.viewer(t, other), f.contest.Key, &SubmitTaskRequest{
		SubmissionID: task.Submission.ID,
		Answers:      map[uint]string{f.cps[0].ID: f.correct(0)},
	})
	assert.ErrorIs(t, err, util.ErrNotFound)
}

func TestEditorialHiddenDuringContest(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := testutil.CreateUser(t, env.db, "admin", model.RankAdmin)
	user := testutil.CreateUser(t, env.db, "vy", model.RankUser)
	contest := env.ongoingContest(t, "editorial")

	_, err := env.contests.Editorial(env.viewer(t, user), contest.Key)
	assert.ErrorIs(t, err, util.ErrEditorialUnavailable)

	_, err = env.contests.SaveEditorial(env.viewer(t, admin), contest.Key, &EditorialRequest{
		Content:   "Loi giai",
		IsPublic:  true,
		PublishOn: testNow.Add(-time.Minute),
	})
	require.NoError(t, err)

	solution, err := env.contests.Editorial(env.viewer(t, user), contest.Key)
	require.NoError(t, err)
	assert.Equal(t, "Loi giai", solution.Content)

	_, err = env.contests.Join(ctx, env.viewer(t, user), contest.Key, "")
	require.NoError(t, err)
	_, err = env.contests.Editorial(env.viewer(t, user), contest.Key)
	assert.ErrorIs(t, err, util.ErrEditorialUnavailable)
}

func TestSubmissionListVisibility(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := testutil.CreateUser(t, env.db, "xuan", model.RankUser)
	f := newContestFixture(t, env, "listing")

	_, err := env.contests.Join(ctx, env.viewer(t, user), f.contest.Key, "")
	require.NoError(t, err)
	v := env.viewer(t, user)
	task, err := env.submissions.StartContestTask(v, f.contest.Key)
	require.NoError(t, err)
	_, err = env.submissions.SubmitContestTask(ctx, v, f.contest.Key, &SubmitTaskRequest{
		SubmissionID: task.Submission.ID,
		Answers:      map[uint]string{f.cps[0].ID: f.correct(0)},
	})
	require.NoError(t, err)

	page, err := env.submissions.List(v, &SubmissionListRequest{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)

	got, err := env.submissions.Get(v, task.Submission.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ResultWrongAnswer, got.Result)
}
