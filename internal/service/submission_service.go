package service

import (
	"context"
	"emath_backend/internal/contestformat"
	"emath_backend/internal/model"
	"emath_backend/internal/repository"
	"emath_backend/internal/util"
	"emath_backend/pkg/logger"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type SubmissionService struct {
	DB             *gorm.DB
	SubmissionRepo *repository.SubmissionRepository
	ContestRepo    *repository.ContestRepository
	PracticeRepo   *repository.PracticeRepository
	UserRepo       *repository.UserRepository
	Contests       *ContestService
	Judge          *JudgeService
	// Shuffle 打乱题目与选项顺序，测试中可替换
	Shuffle func(n int, swap func(i, j int))
}

func NewSubmissionService(
	db *gorm.DB,
	submissionRepo *repository.SubmissionRepository,
	contestRepo *repository.ContestRepository,
	practiceRepo *repository.PracticeRepository,
	userRepo *repository.UserRepository,
	contests *ContestService,
	judge *JudgeService,
) *SubmissionService {
	return &SubmissionService{
		DB:             db,
		SubmissionRepo: submissionRepo,
		ContestRepo:    contestRepo,
		PracticeRepo:   practiceRepo,
		UserRepo:       userRepo,
		Contests:       contests,
		Judge:          judge,
		Shuffle:        rand.Shuffle,
	}
}

type TaskOption struct {
	ID          uint   `json:"id"`
	Label       string `json:"label"`
	Description string `json:"description"`
}

// TaskProblem 作答页面的一道题，ID 为比赛题目或练习题目的 id
type TaskProblem struct {
	ID          uint             `json:"id"`
	Label       string           `json:"label"`
	Code        string           `json:"code"`
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Points      int              `json:"points"`
	AnswerType  model.AnswerType `json:"answerType"`
	Options     []TaskOption     `json:"options,omitempty"`
}

type Task struct {
	Submission *model.Submission `json:"submission"`
	Problems   []TaskProblem     `json:"problems"`
	EndTime    *time.Time        `json:"endTime,omitempty"`
}

// SubmitTaskRequest 键为比赛题目或练习题目 id
type SubmitTaskRequest struct {
	SubmissionID uint            `json:"submissionId" binding:"required"`
	Answers      map[uint]string `json:"answers" binding:"required"`
}

func (s *SubmissionService) shuffle(n int, swap func(i, j int)) {
	if s.Shuffle != nil {
		s.Shuffle(n, swap)
	}
}

// taskProblem 选择题的选项打乱后按 A、B、C 编号，填空题不返回答案
func (s *SubmissionService) taskProblem(id uint, label string, points int, problem *model.Problem) TaskProblem {
	tp := TaskProblem{ID: id, Label: label, Points: points}
	if problem == nil {
		return tp
	}
	tp.Code = problem.Code
	tp.Name = problem.Name
	tp.Description = problem.Description
	tp.AnswerType = problem.AnswerType
	if problem.AnswerType != model.AnswerMultipleChoice {
		return tp
	}

	options := make([]TaskOption, 0, len(problem.Answers))
	for _, a := range problem.Answers {
		options = append(options, TaskOption{ID: a.ID, Description: a.Description})
	}
	s.shuffle(len(options), func(i, j int) { options[i], options[j] = options[j], options[i] })
	for i := range options {
		options[i].Label = string(rune('A' + i))
	}
	tp.Options = options
	return tp
}

// taskParticipation 作答使用的参赛记录：当前所在比赛，或编辑者的观战记录
func (s *SubmissionService) taskParticipation(v *Viewer, contest *model.Contest, now time.Time) (*model.ContestParticipation, error) {
	current, err := s.Contests.currentParticipation(v)
	if err != nil {
		return nil, err
	}
	if isCurrentContest(current, contest) {
		return current, nil
	}
	if contest.IsEditor(v.UserID) {
		return s.Contests.getOrCreateParticipation(contest.ID, v.UserID, model.ParticipationSpectate, now)
	}
	return nil, util.ErrNotInContest
}

// StartContestTask 返回最近一次未提交的作答，没有时新建
func (s *SubmissionService) StartContestTask(v *Viewer, key string) (*Task, error) {
	if !v.Authenticated() {
		return nil, util.ErrUnauthorized
	}
	contest, err := s.Contests.accessibleContest(v, key)
	if err != nil {
		return nil, err
	}
	now := s.Contests.now()
	if !contest.Started(now) && !contest.IsEditor(v.UserID) {
		return nil, util.ErrContestNotStarted
	}
	p, err := s.taskParticipation(v, contest, now)
	if err != nil {
		return nil, err
	}
	if p.Ended(contest, now) {
		return nil, util.ErrParticipationEnded
	}

	sub, err := s.SubmissionRepo.LatestPendingForParticipation(p.ID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		sub = &model.Submission{
			ParticipationID: &p.ID,
			ProfileID:       &v.UserID,
			ContestID:       &contest.ID,
			IsContest:       true,
			Date:            now,
			Result:          model.ResultPending,
		}
		if err := s.SubmissionRepo.Create(sub); err != nil {
			return nil, err
		}
	}

	problems, err := s.ContestRepo.Problems(contest.ID)
	if err != nil {
		return nil, err
	}
	format, err := contestformat.New(contest)
	if err != nil {
		return nil, err
	}
	labels, err := contestformat.Labels(contest, format, len(problems))
	if err != nil {
		return nil, err
	}

	task := &Task{Submission: sub, Problems: make([]TaskProblem, 0, len(problems))}
	for i, cp := range problems {
		task.Problems = append(task.Problems, s.taskProblem(cp.ID, labels[i], cp.Points, cp.Problem))
	}
	s.shuffle(len(task.Problems), func(i, j int) {
		task.Problems[i], task.Problems[j] = task.Problems[j], task.Problems[i]
	})
	end := p.EndTime(contest)
	task.EndTime = &end
	return task, nil
}

// saveAnswers 写入作答并记录完成时间，作答已提交或已评分时返回 ErrDuplicateSubmission
func (s *SubmissionService) saveAnswers(sub *model.Submission, problems []model.SubmissionProblem, now time.Time) error {
	if sub.Result != model.ResultPending || sub.Time != nil {
		return util.ErrDuplicateSubmission
	}
	return s.DB.Transaction(func(tx *gorm.DB) error {
		repo := s.SubmissionRepo.WithTx(tx)
		ok, err := repo.MarkSubmitted(sub.ID, now)
		if err != nil {
			return err
		}
		if !ok {
			return util.ErrDuplicateSubmission
		}
		if err := repo.AddProblems(problems); err != nil {
			if util.IsDuplicateKey(err) {
				return util.ErrDuplicateSubmission
			}
			return err
		}
		sub.Time = &now
		sub.Problems = problems
		return nil
	})
}

// SubmitContestTask 保存作答、评分并重算参赛成绩
func (s *SubmissionService) SubmitContestTask(ctx context.Context, v *Viewer, key string, req *SubmitTaskRequest) (*model.Submission, error) {
	if !v.Authenticated() {
		return nil, util.ErrUnauthorized
	}
	contest, err := s.Contests.accessibleContest(v, key)
	if err != nil {
		return nil, err
	}
	sub, err := s.SubmissionRepo.FindByID(req.SubmissionID)
	if err != nil {
		return nil, util.TranslateDBError(err)
	}
	if sub.ContestID == nil || *sub.ContestID != contest.ID || sub.ParticipationID == nil {
		return nil, fmt.Errorf("%w: submission %d", util.ErrNotFound, req.SubmissionID)
	}
	p, err := s.Contests.ParticipationRepo.FindByID(*sub.ParticipationID)
	if err != nil {
		return nil, util.TranslateDBError(err)
	}
	if p.UserID != v.UserID {
		return nil, fmt.Errorf("%w: submission %d", util.ErrNotFound, req.SubmissionID)
	}
	now := s.Contests.now()
	if p.Ended(contest, now) {
		return nil, util.ErrParticipationEnded
	}

	contestProblems, err := s.ContestRepo.Problems(contest.ID)
	if err != nil {
		return nil, err
	}
	answers := make([]model.SubmissionProblem, 0, len(req.Answers))
	for i := range contestProblems {
		cpID := contestProblems[i].ID
		output, ok := req.Answers[cpID]
		if !ok {
			continue
		}
		answers = append(answers, model.SubmissionProblem{SubmissionID: sub.ID, ContestProblemID: &cpID, Output: output})
	}

	if err := s.saveAnswers(sub, answers, now); err != nil {
		return nil, err
	}
	if err := s.Judge.Judge(ctx, sub); err != nil {
		return nil, err
	}
	if err := s.Contests.Scoring.Recompute(ctx, contest, p); err != nil {
		return nil, err
	}

	logger.Log.Info("Contest submission judged",
		zap.String("contest", contest.Key),
		zap.Uint("submissionID", sub.ID),
		zap.String("result", sub.Result),
		zap.Float64("points", sub.Points),
	)
	return sub, nil
}

func (s *SubmissionService) loadPractice(id uint) (*model.Practice, error) {
	practice, err := s.PracticeRepo.FindByID(id)
	if err != nil {
		return nil, util.TranslateDBError(err)
	}
	return practice, nil
}

// StartPracticeTask 练习作答，规则与比赛相同
func (s *SubmissionService) StartPracticeTask(v *Viewer, practiceID uint) (*Task, error) {
	if !v.Authenticated() {
		return nil, util.ErrUnauthorized
	}
	practice, err := s.loadPractice(practiceID)
	if err != nil {
		return nil, err
	}

	sub, err := s.SubmissionRepo.LatestPendingForPractice(v.UserID, practice.ID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		sub = &model.Submission{
			ProfileID:  &v.UserID,
			PracticeID: &practice.ID,
			Date:       s.Contests.now(),
			Result:     model.ResultPending,
		}
		if err := s.SubmissionRepo.Create(sub); err != nil {
			return nil, err
		}
	}

	task := &Task{Submission: sub, Problems: make([]TaskProblem, 0, len(practice.Problems))}
	for i, pp := range practice.Problems {
		task.Problems = append(task.Problems, s.taskProblem(pp.ID, fmt.Sprint(i+1), pp.Points, pp.Problem))
	}
	return task, nil
}

func (s *SubmissionService) SubmitPracticeTask(ctx context.Context, v *Viewer, practiceID uint, req *SubmitTaskRequest) (*model.Submission, error) {
	if !v.Authenticated() {
		return nil, util.ErrUnauthorized
	}
	practice, err := s.loadPractice(practiceID)
	if err != nil {
		return nil, err
	}
	sub, err := s.SubmissionRepo.FindByID(req.SubmissionID)
	if err != nil {
		return nil, util.TranslateDBError(err)
	}
	if sub.PracticeID == nil || *sub.PracticeID != practice.ID || sub.ProfileID == nil || *sub.ProfileID != v.UserID {
		return nil, fmt.Errorf("%w: submission %d", util.ErrNotFound, req.SubmissionID)
	}

	answers := make([]model.SubmissionProblem, 0, len(req.Answers))
	for i := range practice.Problems {
		ppID := practice.Problems[i].ID
		output, ok := req.Answers[ppID]
		if !ok {
			continue
		}
		answers = append(answers, model.SubmissionProblem{SubmissionID: sub.ID, PracticeProblemID: &ppID, Output: output})
	}

	if err := s.saveAnswers(sub, answers, s.Contests.now()); err != nil {
		return nil, err
	}
	if err := s.Judge.Judge(ctx, sub); err != nil {
		return nil, err
	}
	return sub, nil
}

// restrict 提交列表可见性：比赛中只看本场（无完整排行榜权限时只看自己），
// 其余情况可看自己的、练习的以及排行榜公开或已结束比赛的提交
func (s *SubmissionService) restrict(v *Viewer) (func(*gorm.DB) *gorm.DB, error) {
	now := s.Contests.now()
	current, err := s.Contests.currentParticipation(v)
	if err != nil {
		return nil, err
	}
	if current != nil {
		contest, err := s.ContestRepo.FindByID(current.ContestID)
		if err != nil {
			return nil, util.TranslateDBError(err)
		}
		live, err := s.Contests.liveParticipation(v, contest)
		if err != nil {
			return nil, err
		}
		full := CanSeeFullScoreboard(v, contest, live, now)
		userID := v.UserID
		return func(q *gorm.DB) *gorm.DB {
			q = q.Where("submissions.contest_id = ?", contest.ID)
			if !full {
				q = q.Where("submissions.profile_id = ?", userID)
			}
			return q
		}, nil
	}

	if v.HasPerm(model.PermSeePrivateContest) || v.HasPerm(model.PermViewAllSubmission) {
		return nil, nil
	}
	if !v.Authenticated() {
		open := s.ContestRepo.OpenSubmissionContests(0, now)
		return func(q *gorm.DB) *gorm.DB {
			return q.Where("submissions.contest_id IS NULL OR submissions.contest_id IN (?)", open)
		}, nil
	}
	userID := v.UserID
	open := s.ContestRepo.OpenSubmissionContests(userID, now)
	return func(q *gorm.DB) *gorm.DB {
		return q.Where("submissions.profile_id = ? OR submissions.contest_id IS NULL OR submissions.contest_id IN (?)", userID, open)
	}, nil
}

type SubmissionListRequest struct {
	Username   string `form:"user"`
	ContestKey string `form:"contest"`
	PracticeID uint   `form:"practice"`
	Result     string `form:"result"`
	Page       int    `form:"page"`
	Limit      int    `form:"limit"`
}

type SubmissionPage struct {
	Items []model.Submission       `json:"items"`
	Total int64                    `json:"total"`
	Stats []repository.ResultCount `json:"stats"`
}

// List 已评分的提交及按结果统计
func (s *SubmissionService) List(v *Viewer, req *SubmissionListRequest) (*SubmissionPage, error) {
	restrict, err := s.restrict(v)
	if err != nil {
		return nil, err
	}
	if req.Page < 1 {
		req.Page = 1
	}
	if req.Limit < 1 || req.Limit > util.MaxPageSize {
		req.Limit = util.DefaultPageSize
	}
	filter := repository.SubmissionFilter{
		PracticeID: req.PracticeID,
		Result:     req.Result,
		Restrict:   restrict,
		Page:       req.Page,
		Limit:      req.Limit,
	}
	if req.Username != "" {
		user, err := s.UserRepo.FindByUsername(req.Username)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, util.ErrUserNotFound
			}
			return nil, err
		}
		filter.ProfileID = user.ID
	}
	if req.ContestKey != "" {
		contest, err := s.Contests.accessibleContest(v, req.ContestKey)
		if err != nil {
			return nil, err
		}
		filter.ContestID = contest.ID
	}

	items, total, err := s.SubmissionRepo.List(filter)
	if err != nil {
		return nil, err
	}
	stats, err := s.SubmissionRepo.ResultStats(filter)
	if err != nil {
		return nil, err
	}
	return &SubmissionPage{Items: items, Total: total, Stats: stats}, nil
}

// Get 单个提交，本人总是可见，否则与列表规则一致
func (s *SubmissionService) Get(v *Viewer, id uint) (*model.Submission, error) {
	sub, err := s.SubmissionRepo.FindByID(id)
	if err != nil {
		return nil, util.TranslateDBError(err)
	}
	if v.Authenticated() && sub.ProfileID != nil && *sub.ProfileID == v.UserID {
		return sub, nil
	}

	restrict, err := s.restrict(v)
	if err != nil {
		return nil, err
	}
	_, total, err := s.SubmissionRepo.List(repository.SubmissionFilter{ID: id, Restrict: restrict, Page: 1, Limit: 1})
	if err != nil {
		return nil, err
	}
	if total == 0 {
		return nil, fmt.Errorf("%w: submission %d", util.ErrNotFound, id)
	}
	return sub, nil
}
