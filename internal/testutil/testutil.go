// Package testutil 提供基于 sqlite 的测试数据库与常用测试数据
package testutil

import (
	"emath_backend/internal/model"
	"emath_backend/pkg/database"
	"emath_backend/pkg/logger"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const Password = "secret123"

// NewDB 每个测试使用独立的 sqlite 文件并完成迁移
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()
	logger.InitNop()

	dsn := filepath.Join(t.TempDir(), "test.db") + "?_pragma=busy_timeout(5000)"
	db, err := gorm.Open(sqlite.Open(dsn), database.GormConfig(gormlogger.Silent))
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })
	return db
}

func CreateUser(t *testing.T, db *gorm.DB, username string, rank model.DisplayRank) *model.User {
	t.Helper()
	hashed, err := bcrypt.GenerateFromPassword([]byte(Password), bcrypt.MinCost)
	require.NoError(t, err)

	user := &model.User{
		Username:    username,
		Email:       username + "@example.com",
		Password:    string(hashed),
		DisplayRank: rank,
		IsActive:    true,
		LastSeen:    time.Now(),
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

// CreateMCProblem 创建公开的选择题，correct 为正确选项下标
func CreateMCProblem(t *testing.T, db *gorm.DB, code string, options []string, correct int) *model.Problem {
	t.Helper()
	problem := &model.Problem{
		Code:       code,
		Name:       "Problem " + code,
		Difficulty: model.DifficultyNewbie,
		IsPublic:   true,
		AnswerType: model.AnswerMultipleChoice,
	}
	for i, o := range options {
		problem.Answers = append(problem.Answers, model.Answer{Description: o, IsCorrect: i == correct})
	}
	require.NoError(t, db.Create(problem).Error)
	return problem
}

// CreateFillProblem 创建公开的填空题
func CreateFillProblem(t *testing.T, db *gorm.DB, code, answer string) *model.Problem {
	t.Helper()
	problem := &model.Problem{
		Code:       code,
		Name:       "Problem " + code,
		Difficulty: model.DifficultyNewbie,
		IsPublic:   true,
		AnswerType: model.AnswerFill,
		Answers:    []model.Answer{{Description: answer}},
	}
	require.NoError(t, db.Create(problem).Error)
	return problem
}

// CreateContest 创建公开可见的比赛，opts 可在保存前修改字段
func CreateContest(t *testing.T, db *gorm.DB, key string, start, end time.Time, opts ...func(*model.Contest)) *model.Contest {
	t.Helper()
	contest := &model.Contest{
		Key:                  key,
		Name:                 fmt.Sprintf("Contest %s", key),
		StartTime:            start,
		EndTime:              end,
		IsVisible:            true,
		ScoreboardVisibility: model.ScoreboardVisible,
		FormatName:           "default",
		PointsPrecision:      3,
	}
	for _, opt := range opts {
		opt(contest)
	}
	require.NoError(t, db.Create(contest).Error)
	return contest
}

// AddContestProblem 把题目加入比赛，返回比赛题目记录
func AddContestProblem(t *testing.T, db *gorm.DB, contest *model.Contest, problem *model.Problem, points, order int) *model.ContestProblem {
	t.Helper()
	cp := &model.ContestProblem{ContestID: contest.ID, ProblemID: problem.ID, Points: points, SortOrder: order}
	require.NoError(t, db.Create(cp).Error)
	return cp
}
