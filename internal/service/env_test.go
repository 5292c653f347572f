package service

import (
	"emath_backend/internal/config"
	"emath_backend/internal/model"
	"emath_backend/internal/repository"
	"emath_backend/internal/testutil"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var testNow = time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)

type testEnv struct {
	db            *gorm.DB
	users         *UserService
	contests      *ContestService
	submissions   *SubmissionService
	practices     *PracticeService
	organizations *OrganizationService
	blog          *BlogService
}

func noShuffle(int, func(i, j int)) {}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := testutil.NewDB(t)

	userRepo := repository.NewUserRepository(db)
	orgRepo := repository.NewOrganizationRepository(db)
	problemRepo := repository.NewProblemRepository(db)
	contestRepo := repository.NewContestRepository(db)
	participationRepo := repository.NewParticipationRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	practiceRepo := repository.NewPracticeRepository(db)

	judge := NewJudgeService(submissionRepo, contestRepo, practiceRepo)
	scoring := NewScoringService(contestRepo, participationRepo, submissionRepo, judge, nil, nil)
	contests := NewContestService(db, contestRepo, participationRepo, userRepo, problemRepo, orgRepo, submissionRepo, scoring, config.ContestConfig{
		DefaultPointsPrecision: 3,
		MaxVirtualJoinRetries:  5,
	})
	contests.Now = func() time.Time { return testNow }

	submissions := NewSubmissionService(db, submissionRepo, contestRepo, practiceRepo, userRepo, contests, judge)
	submissions.Shuffle = noShuffle

	practices := NewPracticeService(practiceRepo, problemRepo)
	practices.Shuffle = noShuffle

	blog := NewBlogService(repository.NewBlogRepository(db))
	blog.Now = func() time.Time { return testNow }

	return &testEnv{
		db:            db,
		users:         NewUserService(userRepo, participationRepo),
		contests:      contests,
		submissions:   submissions,
		practices:     practices,
		organizations: NewOrganizationService(db, orgRepo, userRepo, nil),
		blog:          blog,
	}
}

// viewer 重新加载用户，拿到最新的当前比赛与组织
func (e *testEnv) viewer(t *testing.T, user *model.User) *Viewer {
	t.Helper()
	v, err := e.users.LoadViewer(user.ID)
	require.NoError(t, err)
	return v
}

// ongoingContest 已开始一小时、还剩一小时的公开比赛
func (e *testEnv) ongoingContest(t *testing.T, key string, opts ...func(*model.Contest)) *model.Contest {
	t.Helper()
	return testutil.CreateContest(t, e.db, key, testNow.Add(-time.Hour), testNow.Add(time.Hour), opts...)
}

func (e *testEnv) endedContest(t *testing.T, key string, opts ...func(*model.Contest)) *model.Contest {
	t.Helper()
	return testutil.CreateContest(t, e.db, key, testNow.Add(-3*time.Hour), testNow.Add(-time.Hour), opts...)
}

func (e *testEnv) countParticipations(t *testing.T, contestID, userID uint) int64 {
	t.Helper()
	var n int64
	require.NoError(t, e.db.Model(&model.ContestParticipation{}).
		Where("contest_id = ? AND user_id = ?", contestID, userID).Count(&n).Error)
	return n
}
