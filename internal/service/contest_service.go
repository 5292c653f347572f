package service

import (
	"context"
	"emath_backend/internal/config"
	"emath_backend/internal/contestformat"
	"emath_backend/internal/model"
	"emath_backend/internal/repository"
	"emath_backend/internal/util"
	"emath_backend/pkg/logger"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ContestService struct {
	DB                *gorm.DB
	ContestRepo       *repository.ContestRepository
	ParticipationRepo *repository.ParticipationRepository
	UserRepo          *repository.UserRepository
	ProblemRepo       *repository.ProblemRepository
	OrganizationRepo  *repository.OrganizationRepository
	SubmissionRepo    *repository.SubmissionRepository
	Scoring           *ScoringService
	Now               func() time.Time

	mu       sync.RWMutex
	settings config.ContestConfig
}

func NewContestService(
	db *gorm.DB,
	contestRepo *repository.ContestRepository,
	participationRepo *repository.ParticipationRepository,
	userRepo *repository.UserRepository,
	problemRepo *repository.ProblemRepository,
	organizationRepo *repository.OrganizationRepository,
	submissionRepo *repository.SubmissionRepository,
	scoring *ScoringService,
	settings config.ContestConfig,
) *ContestService {
	return &ContestService{
		DB:                db,
		ContestRepo:       contestRepo,
		ParticipationRepo: participationRepo,
		UserRepo:          userRepo,
		ProblemRepo:       problemRepo,
		OrganizationRepo:  organizationRepo,
		SubmissionRepo:    submissionRepo,
		Scoring:           scoring,
		Now:               time.Now,
		settings:          settings,
	}
}

// ApplyConfig 配置热更新
func (s *ContestService) ApplyConfig(settings config.ContestConfig) {
	s.mu.Lock()
	s.settings = settings
	s.mu.Unlock()
}

func (s *ContestService) config() config.ContestConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

func (s *ContestService) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

type ContestProblemRequest struct {
	Code   string `json:"code" binding:"required"`
	Points int    `json:"points"`
	Order  int    `json:"order"`
}

type ContestRequest struct {
	Key                   string                  `json:"key"`
	Name                  string                  `json:"name" binding:"required"`
	Description           string                  `json:"description"`
	Summary               string                  `json:"summary"`
	StartTime             time.Time               `json:"startTime" binding:"required"`
	EndTime               time.Time               `json:"endTime" binding:"required"`
	IsVisible             bool                    `json:"isVisible"`
	IsPrivate             bool                    `json:"isPrivate"`
	IsOrganizationPrivate bool                    `json:"isOrganizationPrivate"`
	AuthorIDs             []uint                  `json:"authorIds"`
	CuratorIDs            []uint                  `json:"curatorIds"`
	PrivateContestantIDs  []uint                  `json:"privateContestantIds"`
	OrganizationIDs       []uint                  `json:"organizationIds"`
	ScoreboardViewerIDs   []uint                  `json:"scoreboardViewerIds"`
	ScoreboardVisibility  string                  `json:"scoreboardVisibility"`
	AccessCode            string                  `json:"accessCode"`
	FormatName            string                  `json:"formatName"`
	FormatConfig          string                  `json:"formatConfig"`
	ProblemLabelScript    string                  `json:"problemLabelScript"`
	PointsPrecision       *int                    `json:"pointsPrecision"`
	OgImage               string                  `json:"ogImage"`
	Problems              []ContestProblemRequest `json:"problems"`
}

// ValidateContest 保存前校验比赛字段
func ValidateContest(c *model.Contest) error {
	if !model.CodePattern.MatchString(c.Key) {
		return fmt.Errorf("%w: contest key must match %s", util.ErrValidation, model.CodePattern.String())
	}
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("%w: contest name is required", util.ErrValidation)
	}
	if !c.StartTime.Before(c.EndTime) {
		return fmt.Errorf("%w: contest must start before it ends", util.ErrValidation)
	}
	if !contestformat.Exists(c.FormatName) {
		return fmt.Errorf("%w: %s", util.ErrUnknownContestFormat, c.FormatName)
	}
	if c.PointsPrecision < 0 || c.PointsPrecision > 10 {
		return fmt.Errorf("%w: points precision must be between 0 and 10", util.ErrValidation)
	}
	switch c.ScoreboardVisibility {
	case model.ScoreboardVisible, model.ScoreboardAfterContest, model.ScoreboardAfterParticipation:
	default:
		return fmt.Errorf("%w: unknown scoreboard visibility %q", util.ErrValidation, c.ScoreboardVisibility)
	}
	if strings.TrimSpace(c.ProblemLabelScript) != "" {
		labeler, err := contestformat.CompileLabelScript(c.ProblemLabelScript)
		if err != nil {
			return err
		}
		if _, err := labeler(0); err != nil {
			return err
		}
	}
	return nil
}

func (s *ContestService) loadContest(key string) (*model.Contest, error) {
	contest, err := s.ContestRepo.FindByKey(key)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", util.ErrContestInaccessible, key)
		}
		return nil, err
	}
	return contest, nil
}

func (s *ContestService) accessibleContest(v *Viewer, key string) (*model.Contest, error) {
	contest, err := s.loadContest(key)
	if err != nil {
		return nil, err
	}
	if err := AccessCheck(v, contest); err != nil {
		return nil, err
	}
	return contest, nil
}

func (s *ContestService) editableContest(v *Viewer, key string) (*model.Contest, error) {
	contest, err := s.accessibleContest(v, key)
	if err != nil {
		return nil, err
	}
	if !IsContestEditableBy(v, contest) {
		return nil, util.ErrPermissionDenied
	}
	return contest, nil
}

// currentParticipation 用户当前所在的参赛记录，没有时返回 nil
func (s *ContestService) currentParticipation(v *Viewer) (*model.ContestParticipation, error) {
	if !v.Authenticated() || v.CurrentContestID == nil {
		return nil, nil
	}
	p, err := s.ParticipationRepo.FindByID(*v.CurrentContestID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return p, nil
}

func (s *ContestService) findParticipation(contestID, userID uint, virtual int) (*model.ContestParticipation, error) {
	p, err := s.ParticipationRepo.Find(contestID, userID, virtual)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return p, nil
}

func (s *ContestService) liveParticipation(v *Viewer, contest *model.Contest) (*model.ContestParticipation, error) {
	if !v.Authenticated() {
		return nil, nil
	}
	return s.findParticipation(contest.ID, v.UserID, model.ParticipationLive)
}

type ContestProblemView struct {
	ID         uint             `json:"id"`
	Label      string           `json:"label"`
	Code       string           `json:"code"`
	Name       string           `json:"name"`
	Points     int              `json:"points"`
	Difficulty model.Difficulty `json:"difficulty"`
	AnswerType model.AnswerType `json:"answerType"`
}

type ContestDetail struct {
	Contest        *model.Contest              `json:"contest"`
	Problems       []ContestProblemView        `json:"problems"`
	Started        bool                        `json:"started"`
	Ended          bool                        `json:"ended"`
	CanEdit        bool                        `json:"canEdit"`
	HasAccessCode  bool                        `json:"hasAccessCode"`
	InContest      bool                        `json:"inContest"`
	Participation  *model.ContestParticipation `json:"participation,omitempty"`
	ShowScoreboard bool                        `json:"showScoreboard"`
	HasEditorial   bool                        `json:"hasEditorial"`
}

func (s *ContestService) problemViews(contest *model.Contest) ([]ContestProblemView, error) {
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
	views := make([]ContestProblemView, 0, len(problems))
	for i, cp := range problems {
		view := ContestProblemView{ID: cp.ID, Label: labels[i], Points: cp.Points}
		if cp.Problem != nil {
			view.Code = cp.Problem.Code
			view.Name = cp.Problem.Name
			view.Difficulty = cp.Problem.Difficulty
			view.AnswerType = cp.Problem.AnswerType
		}
		views = append(views, view)
	}
	return views, nil
}

// Get 比赛详情，题目列表在比赛开始后或对编辑者可见
func (s *ContestService) Get(v *Viewer, key string) (*ContestDetail, error) {
	contest, err := s.accessibleContest(v, key)
	if err != nil {
		return nil, err
	}
	now := s.now()
	current, err := s.currentParticipation(v)
	if err != nil {
		return nil, err
	}
	live, err := s.liveParticipation(v, contest)
	if err != nil {
		return nil, err
	}

	detail := &ContestDetail{
		Contest:        contest,
		Problems:       []ContestProblemView{},
		Started:        contest.Started(now),
		Ended:          contest.Ended(now),
		CanEdit:        IsContestEditableBy(v, contest),
		HasAccessCode:  contest.AccessCode != "",
		InContest:      isCurrentContest(current, contest),
		ShowScoreboard: CanSeeOwnScoreboard(v, contest, current, live, now),
	}
	if detail.InContest {
		detail.Participation = current
	} else if live != nil {
		detail.Participation = live
	}
	if detail.Started || detail.CanEdit {
		if detail.Problems, err = s.problemViews(contest); err != nil {
			return nil, err
		}
	}
	if solution, err := s.ContestRepo.FindSolution(contest.ID); err == nil {
		detail.HasEditorial = solutionAccessible(v, contest, solution, now) && current == nil
	}
	return detail, nil
}

type ContestList struct {
	Active  []model.ContestParticipation `json:"active"`
	Present []model.Contest              `json:"present"`
	Future  []model.Contest              `json:"future"`
	Past    []model.Contest              `json:"past"`
}

// List 按进行中、未开始、已结束分组的可见比赛
func (s *ContestService) List(v *Viewer) (*ContestList, error) {
	filter := repository.ContestListFilter{}
	if v.Authenticated() {
		filter.UserID = v.UserID
		filter.OrganizationIDs = v.OrganizationIDs
		filter.SeeAll = v.HasPerm(model.PermSeePrivateContest) || v.HasPerm(model.PermEditAllContest)
	}
	contests, err := s.ContestRepo.List(filter)
	if err != nil {
		return nil, err
	}

	now := s.now()
	list := &ContestList{
		Active:  []model.ContestParticipation{},
		Present: []model.Contest{},
		Future:  []model.Contest{},
		Past:    []model.Contest{},
	}
	for _, c := range contests {
		switch {
		case !c.Started(now):
			// 未开始的比赛按开始时间升序
			list.Future = append([]model.Contest{c}, list.Future...)
		case c.Ended(now):
			list.Past = append(list.Past, c)
		default:
			list.Present = append(list.Present, c)
		}
	}

	if v.Authenticated() {
		ps, err := s.ParticipationRepo.ListByUser(v.UserID)
		if err != nil {
			return nil, err
		}
		for _, p := range ps {
			if p.Contest == nil || p.Spectate() || p.Ended(p.Contest, now) || !p.Contest.Started(now) {
				continue
			}
			list.Active = append(list.Active, p)
		}
	}
	return list, nil
}

func (s *ContestService) ListFormats() []contestformat.Choice {
	return contestformat.Choices()
}

func (s *ContestService) usersByIDs(ids []uint) ([]model.User, error) {
	users, err := s.UserRepo.FindByIDs(ids)
	if err != nil {
		return nil, err
	}
	if len(users) != len(uniqueIDs(ids)) {
		return nil, fmt.Errorf("%w: unknown user in %v", util.ErrValidation, ids)
	}
	return users, nil
}

func uniqueIDs(ids []uint) map[uint]struct{} {
	set := make(map[uint]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func (s *ContestService) applyRequest(v *Viewer, contest *model.Contest, req *ContestRequest) error {
	contest.Name = strings.TrimSpace(req.Name)
	contest.Description = req.Description
	contest.Summary = req.Summary
	contest.StartTime = req.StartTime
	contest.EndTime = req.EndTime
	contest.IsPrivate = req.IsPrivate
	contest.IsOrganizationPrivate = req.IsOrganizationPrivate
	contest.AccessCode = req.AccessCode
	contest.FormatConfig = req.FormatConfig
	contest.ProblemLabelScript = req.ProblemLabelScript
	contest.OgImage = req.OgImage

	if req.IsVisible != contest.IsVisible && !v.HasPerm(model.PermChangeContestVisible) {
		return fmt.Errorf("%w: cannot change contest visibility", util.ErrPermissionDenied)
	}
	contest.IsVisible = req.IsVisible

	contest.ScoreboardVisibility = req.ScoreboardVisibility
	if contest.ScoreboardVisibility == "" {
		contest.ScoreboardVisibility = model.ScoreboardVisible
	}
	contest.FormatName = req.FormatName
	if contest.FormatName == "" {
		contest.FormatName = contestformat.DefaultName
	}
	if req.PointsPrecision != nil {
		contest.PointsPrecision = *req.PointsPrecision
	} else if contest.ID == 0 {
		contest.PointsPrecision = s.config().DefaultPointsPrecision
	}

	var err error
	if contest.Authors, err = s.usersByIDs(req.AuthorIDs); err != nil {
		return err
	}
	if contest.Curators, err = s.usersByIDs(req.CuratorIDs); err != nil {
		return err
	}
	if contest.PrivateContestants, err = s.usersByIDs(req.PrivateContestantIDs); err != nil {
		return err
	}
	if contest.ViewContestScoreboard, err = s.usersByIDs(req.ScoreboardViewerIDs); err != nil {
		return err
	}
	contest.Organizations, err = s.OrganizationRepo.FindByIDs(req.OrganizationIDs)
	if err != nil {
		return err
	}
	if len(contest.Organizations) != len(uniqueIDs(req.OrganizationIDs)) {
		return fmt.Errorf("%w: unknown organization in %v", util.ErrValidation, req.OrganizationIDs)
	}
	return nil
}

func (s *ContestService) resolveProblems(reqs []ContestProblemRequest) ([]model.ContestProblem, error) {
	codes := make([]string, 0, len(reqs))
	for _, r := range reqs {
		codes = append(codes, r.Code)
	}
	found, err := s.ProblemRepo.FindByCodes(codes)
	if err != nil {
		return nil, err
	}
	byCode := make(map[string]uint, len(found))
	for _, p := range found {
		byCode[p.Code] = p.ID
	}

	seen := make(map[uint]bool, len(reqs))
	problems := make([]model.ContestProblem, 0, len(reqs))
	for i, r := range reqs {
		id, ok := byCode[r.Code]
		if !ok {
			return nil, fmt.Errorf("%w: unknown problem %s", util.ErrValidation, r.Code)
		}
		if seen[id] {
			return nil, fmt.Errorf("%w: problem %s listed twice", util.ErrValidation, r.Code)
		}
		seen[id] = true
		points := r.Points
		if points <= 0 {
			points = 1
		}
		order := r.Order
		if order == 0 {
			order = i + 1
		}
		problems = append(problems, model.ContestProblem{ProblemID: id, Points: points, SortOrder: order})
	}
	return problems, nil
}

// Create 创建比赛，创建者自动成为作者
func (s *ContestService) Create(v *Viewer, req *ContestRequest) (*model.Contest, error) {
	if !v.HasPerm(model.PermEditOwnContest) && !v.HasPerm(model.PermEditAllContest) {
		return nil, util.ErrPermissionDenied
	}
	contest := &model.Contest{Key: strings.TrimSpace(req.Key)}
	if err := s.applyRequest(v, contest, req); err != nil {
		return nil, err
	}
	if !contest.IsAuthor(v.UserID) {
		creator, err := s.UserRepo.FindByID(v.UserID)
		if err != nil {
			return nil, util.TranslateDBError(err)
		}
		contest.Authors = append(contest.Authors, *creator)
	}
	if err := ValidateContest(contest); err != nil {
		return nil, err
	}
	problems, err := s.resolveProblems(req.Problems)
	if err != nil {
		return nil, err
	}

	err = s.DB.Transaction(func(tx *gorm.DB) error {
		repo := s.ContestRepo.WithTx(tx)
		if err := repo.Create(contest); err != nil {
			return err
		}
		return repo.SyncProblems(contest.ID, problems)
	})
	if err != nil {
		return nil, util.TranslateDBError(err)
	}
	logger.Log.Info("Contest created", zap.String("contest", contest.Key), zap.Uint("userID", v.UserID))
	return contest, nil
}

// Update 修改比赛设置与题目，之后重算全部参赛成绩
func (s *ContestService) Update(ctx context.Context, v *Viewer, key string, req *ContestRequest) (*model.Contest, error) {
	contest, err := s.editableContest(v, key)
	if err != nil {
		return nil, err
	}
	if err := s.applyRequest(v, contest, req); err != nil {
		return nil, err
	}
	if err := ValidateContest(contest); err != nil {
		return nil, err
	}

	var problems []model.ContestProblem
	if req.Problems != nil {
		if problems, err = s.resolveProblems(req.Problems); err != nil {
			return nil, err
		}
	}

	err = s.DB.Transaction(func(tx *gorm.DB) error {
		repo := s.ContestRepo.WithTx(tx)
		if err := repo.Update(contest); err != nil {
			return err
		}
		if req.Problems == nil {
			return nil
		}
		return repo.SyncProblems(contest.ID, problems)
	})
	if err != nil {
		return nil, util.TranslateDBError(err)
	}

	// 题目列表变化时旧的小题评分可能失效，按保存的作答重新评分
	if req.Problems != nil {
		_, err = s.rejudgeContest(ctx, contest)
	} else {
		err = s.Scoring.RecomputeContest(ctx, contest)
	}
	if err != nil {
		return nil, err
	}
	return contest, nil
}

// SetDisqualified 取消或恢复参赛资格，取消资格同时禁止该用户再次加入
func (s *ContestService) SetDisqualified(ctx context.Context, v *Viewer, key string, participationID uint, disqualified bool) (*model.ContestParticipation, error) {
	contest, err := s.editableContest(v, key)
	if err != nil {
		return nil, err
	}
	p, err := s.ParticipationRepo.FindByID(participationID)
	if err != nil {
		return nil, util.TranslateDBError(err)
	}
	if p.ContestID != contest.ID {
		return nil, fmt.Errorf("%w: participation %d", util.ErrNotFound, participationID)
	}

	p.IsDisqualified = disqualified
	if err := s.Scoring.Recompute(ctx, contest, p); err != nil {
		return nil, err
	}

	user := &model.User{BaseModel: model.BaseModel{ID: p.UserID}}
	if disqualified {
		if err := s.UserRepo.ClearCurrentContestIf(p.UserID, p.ID); err != nil {
			return nil, err
		}
		if err := s.ContestRepo.AddBanned(contest, user); err != nil {
			return nil, err
		}
	} else if err := s.ContestRepo.RemoveBanned(contest, user); err != nil {
		return nil, err
	}

	logger.Log.Info("Participation disqualification changed",
		zap.String("contest", contest.Key),
		zap.Uint("participationID", p.ID),
		zap.Bool("disqualified", disqualified),
	)
	return p, nil
}

// Rejudge 按保存的作答重新评分比赛的全部提交，返回评分数量
func (s *ContestService) Rejudge(ctx context.Context, v *Viewer, key string) (int, error) {
	contest, err := s.editableContest(v, key)
	if err != nil {
		return 0, err
	}
	return s.rejudgeContest(ctx, contest)
}

func (s *ContestService) rejudgeContest(ctx context.Context, contest *model.Contest) (int, error) {
	subs, err := s.SubmissionRepo.GradedByContest(contest.ID)
	if err != nil {
		return 0, err
	}
	for i := range subs {
		if err := s.Scoring.Judge.Judge(ctx, &subs[i]); err != nil {
			return 0, err
		}
	}
	if err := s.Scoring.RecomputeContest(ctx, contest); err != nil {
		return 0, err
	}
	logger.Log.Info("Contest rejudged", zap.String("contest", contest.Key), zap.Int("submissions", len(subs)))
	return len(subs), nil
}

func solutionAccessible(v *Viewer, contest *model.Contest, solution *model.ContestSolution, now time.Time) bool {
	if solution.IsPublic && solution.PublishOn.Before(now) {
		return true
	}
	return IsContestEditableBy(v, contest)
}

// Editorial 比赛题解，比赛中不可查看
func (s *ContestService) Editorial(v *Viewer, key string) (*model.ContestSolution, error) {
	contest, err := s.accessibleContest(v, key)
	if err != nil {
		return nil, err
	}
	solution, err := s.ContestRepo.FindSolution(contest.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrEditorialUnavailable
		}
		return nil, err
	}
	current, err := s.currentParticipation(v)
	if err != nil {
		return nil, err
	}
	if current != nil || !solutionAccessible(v, contest, solution, s.now()) {
		return nil, util.ErrEditorialUnavailable
	}
	return solution, nil
}

type EditorialRequest struct {
	Content      string    `json:"content" binding:"required"`
	IsPublic     bool      `json:"isPublic"`
	PublishOn    time.Time `json:"publishOn"`
	IsFullMarkup bool      `json:"isFullMarkup"`
	AuthorIDs    []uint    `json:"authorIds"`
}

func (s *ContestService) SaveEditorial(v *Viewer, key string, req *EditorialRequest) (*model.ContestSolution, error) {
	contest, err := s.editableContest(v, key)
	if err != nil {
		return nil, err
	}
	solution, err := s.ContestRepo.FindSolution(contest.ID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		solution = &model.ContestSolution{ContestID: contest.ID}
	}

	solution.Content = req.Content
	solution.IsPublic = req.IsPublic
	solution.IsFullMarkup = req.IsFullMarkup
	solution.PublishOn = req.PublishOn
	if solution.PublishOn.IsZero() {
		solution.PublishOn = s.now()
	}
	if solution.Authors, err = s.usersByIDs(req.AuthorIDs); err != nil {
		return nil, err
	}

	if err := s.ContestRepo.SaveSolution(solution); err != nil {
		return nil, util.TranslateDBError(err)
	}
	return solution, nil
}
