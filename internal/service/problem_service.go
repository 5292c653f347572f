package service

import (
	"emath_backend/internal/model"
	"emath_backend/internal/repository"
	"emath_backend/internal/util"
	"emath_backend/pkg/logger"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ProblemService struct {
	ProblemRepo      *repository.ProblemRepository
	UserRepo         *repository.UserRepository
	OrganizationRepo *repository.OrganizationRepository
}

func NewProblemService(
	problemRepo *repository.ProblemRepository,
	userRepo *repository.UserRepository,
	organizationRepo *repository.OrganizationRepository,
) *ProblemService {
	return &ProblemService{
		ProblemRepo:      problemRepo,
		UserRepo:         userRepo,
		OrganizationRepo: organizationRepo,
	}
}

type AnswerRequest struct {
	Description string `json:"description" binding:"required"`
	IsCorrect   bool   `json:"isCorrect"`
}

type ProblemRequest struct {
	Code                  string           `json:"code"`
	Name                  string           `json:"name" binding:"required"`
	Description           string           `json:"description"`
	GroupID               *uint            `json:"groupId"`
	LevelID               *uint            `json:"levelId"`
	Difficulty            model.Difficulty `json:"difficulty"`
	ProblemType           string           `json:"problemType"`
	IsPublic              bool             `json:"isPublic"`
	IsOrganizationPrivate bool             `json:"isOrganizationPrivate"`
	OrganizationIDs       []uint           `json:"organizationIds"`
	AuthorIDs             []uint           `json:"authorIds"`
	AnswerType            model.AnswerType `json:"answerType"`
	Answers               []AnswerRequest  `json:"answers" binding:"required"`
	IsFullMarkup          bool             `json:"isFullMarkup"`
}

// ValidateAnswers 选择题必须恰有一个正确选项，填空题必须恰有一个答案
func ValidateAnswers(answerType model.AnswerType, answers []model.Answer) error {
	switch answerType {
	case model.AnswerMultipleChoice:
		correct := 0
		for _, a := range answers {
			if a.IsCorrect {
				correct++
			}
		}
		if correct != 1 {
			return fmt.Errorf("%w: multiple choice problem needs exactly one correct answer, got %d", util.ErrValidation, correct)
		}
	case model.AnswerFill:
		if len(answers) != 1 {
			return fmt.Errorf("%w: fill-in problem needs exactly one answer, got %d", util.ErrValidation, len(answers))
		}
	default:
		return fmt.Errorf("%w: unknown answer type %q", util.ErrValidation, answerType)
	}
	for _, a := range answers {
		if strings.TrimSpace(a.Description) == "" {
			return fmt.Errorf("%w: answer text is required", util.ErrValidation)
		}
	}
	return nil
}

func ValidateProblem(p *model.Problem) error {
	if !model.CodePattern.MatchString(p.Code) {
		return fmt.Errorf("%w: problem code must match %s", util.ErrValidation, model.CodePattern.String())
	}
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%w: problem name is required", util.ErrValidation)
	}
	if !p.Difficulty.Valid() {
		return fmt.Errorf("%w: unknown difficulty %q", util.ErrValidation, p.Difficulty)
	}
	return ValidateAnswers(p.AnswerType, p.Answers)
}

func problemOrganizationIDs(p *model.Problem) []uint {
	ids := make([]uint, 0, len(p.Organizations))
	for _, o := range p.Organizations {
		ids = append(ids, o.ID)
	}
	return ids
}

// IsProblemAccessibleBy 公开题目对所有人可见，组织私有题目仅对组织成员可见
func IsProblemAccessibleBy(v *Viewer, p *model.Problem) bool {
	if v.HasPerm(model.PermSeePrivateProblem) || v.HasPerm(model.PermEditAllProblem) {
		return true
	}
	if v.Authenticated() && p.IsAuthor(v.UserID) {
		return true
	}
	if !p.IsPublic {
		return false
	}
	if !p.IsOrganizationPrivate {
		return true
	}
	return v.HasPerm(model.PermSeeOrganizationProblem) || v.InOrganization(problemOrganizationIDs(p))
}

func IsProblemEditableBy(v *Viewer, p *model.Problem) bool {
	if v.HasPerm(model.PermEditAllProblem) {
		return true
	}
	if p.IsPublic && v.HasPerm(model.PermEditPublicProblem) {
		return true
	}
	return v.HasPerm(model.PermEditOwnProblem) && p.IsAuthor(v.UserID)
}

type ProblemListRequest struct {
	Search     string           `form:"search"`
	GroupID    uint             `form:"group"`
	Difficulty model.Difficulty `form:"difficulty"`
	Page       int              `form:"page"`
	Limit      int              `form:"limit"`
}

func (s *ProblemService) List(v *Viewer, req *ProblemListRequest) ([]model.Problem, int64, error) {
	filter := repository.ProblemFilter{
		Search:     strings.TrimSpace(req.Search),
		GroupID:    req.GroupID,
		Difficulty: req.Difficulty,
		SeeAll:     v.HasPerm(model.PermSeePrivateProblem) || v.HasPerm(model.PermEditAllProblem),
		Page:       req.Page,
		Limit:      req.Limit,
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 || filter.Limit > util.MaxPageSize {
		filter.Limit = util.DefaultPageSize
	}
	if v.Authenticated() {
		filter.UserID = v.UserID
		filter.OrganizationIDs = v.OrganizationIDs
	}
	return s.ProblemRepo.List(filter)
}

type ProblemDetail struct {
	*model.Problem
	CanEdit bool `json:"canEdit"`
}

func (s *ProblemService) load(code string) (*model.Problem, error) {
	problem, err := s.ProblemRepo.FindByCode(code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: problem %s", util.ErrNotFound, code)
		}
		return nil, err
	}
	return problem, nil
}

// Get 题目详情，非编辑者看不到正确答案
func (s *ProblemService) Get(v *Viewer, code string) (*ProblemDetail, error) {
	problem, err := s.load(code)
	if err != nil {
		return nil, err
	}
	if !IsProblemAccessibleBy(v, problem) {
		return nil, fmt.Errorf("%w: problem %s", util.ErrNotFound, code)
	}

	detail := &ProblemDetail{Problem: problem, CanEdit: IsProblemEditableBy(v, problem)}
	if !detail.CanEdit {
		if problem.AnswerType == model.AnswerFill {
			problem.Answers = nil
		}
		for i := range problem.Answers {
			problem.Answers[i].IsCorrect = false
		}
	}
	return detail, nil
}

func (s *ProblemService) apply(problem *model.Problem, req *ProblemRequest) error {
	problem.Name = strings.TrimSpace(req.Name)
	problem.Description = req.Description
	problem.GroupID = req.GroupID
	problem.LevelID = req.LevelID
	problem.Difficulty = req.Difficulty
	if problem.Difficulty == "" {
		problem.Difficulty = model.DifficultyNewbie
	}
	problem.ProblemType = req.ProblemType
	problem.IsPublic = req.IsPublic
	problem.IsOrganizationPrivate = req.IsOrganizationPrivate
	problem.AnswerType = req.AnswerType
	if problem.AnswerType == "" {
		problem.AnswerType = model.AnswerMultipleChoice
	}
	problem.IsFullMarkup = req.IsFullMarkup

	problem.Answers = make([]model.Answer, 0, len(req.Answers))
	for _, a := range req.Answers {
		problem.Answers = append(problem.Answers, model.Answer{
			Description: strings.TrimSpace(a.Description),
			IsCorrect:   a.IsCorrect,
		})
	}

	var err error
	if problem.Authors, err = s.UserRepo.FindByIDs(req.AuthorIDs); err != nil {
		return err
	}
	if len(problem.Authors) != len(uniqueIDs(req.AuthorIDs)) {
		return fmt.Errorf("%w: unknown user in %v", util.ErrValidation, req.AuthorIDs)
	}
	if problem.Organizations, err = s.OrganizationRepo.FindByIDs(req.OrganizationIDs); err != nil {
		return err
	}
	if len(problem.Organizations) != len(uniqueIDs(req.OrganizationIDs)) {
		return fmt.Errorf("%w: unknown organization in %v", util.ErrValidation, req.OrganizationIDs)
	}
	if problem.LevelID != nil {
		if _, err := s.ProblemRepo.FindLevel(*problem.LevelID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: unknown level %d", util.ErrValidation, *problem.LevelID)
			}
			return err
		}
	}
	return nil
}

// Create 创建题目，创建者自动成为作者
func (s *ProblemService) Create(v *Viewer, req *ProblemRequest) (*model.Problem, error) {
	if !v.HasPerm(model.PermEditOwnProblem) && !v.HasPerm(model.PermEditAllProblem) {
		return nil, util.ErrPermissionDenied
	}
	problem := &model.Problem{Code: strings.TrimSpace(req.Code)}
	if err := s.apply(problem, req); err != nil {
		return nil, err
	}
	if !problem.IsAuthor(v.UserID) {
		creator, err := s.UserRepo.FindByID(v.UserID)
		if err != nil {
			return nil, util.TranslateDBError(err)
		}
		problem.Authors = append(problem.Authors, *creator)
	}
	if err := ValidateProblem(problem); err != nil {
		return nil, err
	}
	if err := s.ProblemRepo.Create(problem); err != nil {
		return nil, util.TranslateDBError(err)
	}
	logger.Log.Info("Problem created", zap.String("code", problem.Code), zap.Uint("userID", v.UserID))
	return problem, nil
}

// Update 整体替换题目内容与答案，题目代码不可修改
func (s *ProblemService) Update(v *Viewer, code string, req *ProblemRequest) (*model.Problem, error) {
	problem, err := s.load(code)
	if err != nil {
		return nil, err
	}
	if !IsProblemEditableBy(v, problem) {
		return nil, util.ErrPermissionDenied
	}
	if err := s.apply(problem, req); err != nil {
		return nil, err
	}
	if err := ValidateProblem(problem); err != nil {
		return nil, err
	}
	if err := s.ProblemRepo.Update(problem); err != nil {
		return nil, util.TranslateDBError(err)
	}
	return problem, nil
}

func (s *ProblemService) Groups() ([]model.ProblemGroup, error) {
	return s.ProblemRepo.ListGroups()
}

type ProblemGroupRequest struct {
	Name     string `json:"name" binding:"required"`
	FullName string `json:"fullName"`
}

func (s *ProblemService) CreateGroup(v *Viewer, req *ProblemGroupRequest) (*model.ProblemGroup, error) {
	if !v.HasPerm(model.PermEditAllProblem) {
		return nil, util.ErrPermissionDenied
	}
	group := &model.ProblemGroup{Name: strings.TrimSpace(req.Name), FullName: req.FullName}
	if err := s.ProblemRepo.CreateGroup(group); err != nil {
		return nil, util.TranslateDBError(err)
	}
	return group, nil
}

func (s *ProblemService) Levels() ([]model.Level, error) {
	return s.ProblemRepo.ListLevels()
}

type LevelRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	Order       int    `json:"order"`
}

func (s *ProblemService) CreateLevel(v *Viewer, req *LevelRequest) (*model.Level, error) {
	if !v.HasPerm(model.PermEditAllProblem) {
		return nil, util.ErrPermissionDenied
	}
	level := &model.Level{Name: strings.TrimSpace(req.Name), Description: req.Description, SortOrder: req.Order}
	if err := s.ProblemRepo.CreateLevel(level); err != nil {
		return nil, util.TranslateDBError(err)
	}
	return level, nil
}
