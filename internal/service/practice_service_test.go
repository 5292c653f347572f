package service

import (
	"context"
	"emath_backend/internal/model"
	"emath_backend/internal/testutil"
	"emath_backend/internal/util"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssemblePracticeCarriesShortfall(t *testing.T) {
	candidates := map[model.Difficulty][]uint{
		model.DifficultyMaster:  {10},
		model.DifficultyCMaster: {20, 21},
		model.DifficultyExpert:  {30, 31, 32},
		model.DifficultyNewbie:  {40, 41, 42, 43, 44, 45},
	}
	got := AssemblePractice(candidates, noShuffle)
	// gmaster 缺 1 题由 master 补，master 只有 1 题再由 cmaster 补；amateur 缺的 2 题由 newbie 补
	assert.Equal(t, []uint{10, 20, 21, 30, 31, 40, 41, 42, 43, 44}, got)
}

func TestAssemblePracticeEmpty(t *testing.T) {
	assert.Empty(t, AssemblePractice(map[model.Difficulty][]uint{}, noShuffle))
}

func TestPracticeFlow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := testutil.CreateUser(t, env.db, "yen", model.RankUser)

	level := &model.Level{Name: "Lop 6"}
	require.NoError(t, env.db.Create(level).Error)
	var problems []*model.Problem
	for i := 0; i < 4; i++ {
		p := testutil.CreateFillProblem(t, env.db, fmt.Sprintf("pr%d", i), fmt.Sprint(i*i))
		require.NoError(t, env.db.Model(p).Update("level_id", level.ID).Error)
		problems = append(problems, p)
	}
	// 不足的档位全部选入，非公开题目不参与组卷
	hidden := testutil.CreateFillProblem(t, env.db, "hidden", "0")
	require.NoError(t, env.db.Model(hidden).Updates(map[string]interface{}{"level_id": level.ID, "is_public": false}).Error)

	_, err := env.practices.CreatePractice(nil, &CreatePracticeRequest{LevelID: level.ID})
	assert.ErrorIs(t, err, util.ErrUnauthorized)

	v := env.viewer(t, user)
	practice, err := env.practices.CreatePractice(v, &CreatePracticeRequest{LevelID: level.ID})
	require.NoError(t, err)
	require.Len(t, practice.Problems, 4)
	for _, pp := range practice.Problems {
		assert.NotEqual(t, hidden.ID, pp.ProblemID)
		require.NotNil(t, pp.Problem)
		assert.Empty(t, pp.Problem.Answers)
	}

	list, total, err := env.practices.List(v, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Len(t, list, 1)

	task, err := env.submissions.StartPracticeTask(v, practice.ID)
	require.NoError(t, err)
	require.Len(t, task.Problems, 4)

	answers := map[uint]string{}
	for _, pp := range practice.Problems {
		answers[pp.ID] = solutionFor(problems, pp.ProblemID)
	}
	sub, err := env.submissions.SubmitPracticeTask(ctx, v, practice.ID, &SubmitTaskRequest{SubmissionID: task.Submission.ID, Answers: answers})
	require.NoError(t, err)
	assert.Equal(t, model.ResultAccepted, sub.Result)
	assert.Equal(t, 4.0, sub.Points)

	// 已评分的练习不能再次提交
	_, err = env.submissions.SubmitPracticeTask(ctx, v, practice.ID, &SubmitTaskRequest{SubmissionID: task.Submission.ID, Answers: map[uint]string{}})
	assert.ErrorIs(t, err, util.ErrDuplicateSubmission)

	_, err = env.practices.CreatePractice(v, &CreatePracticeRequest{LevelID: level.ID + 100})
	assert.ErrorIs(t, err, util.ErrValidation)
}

func solutionFor(problems []*model.Problem, id uint) string {
	for _, p := range problems {
		if p.ID == id {
			return p.Answers[0].Description
		}
	}
	return ""
}
