package repository

import (
	"emath_backend/internal/model"

	"gorm.io/gorm"
)

type ProblemRepository struct {
	DB *gorm.DB
}

func NewProblemRepository(db *gorm.DB) *ProblemRepository {
	return &ProblemRepository{DB: db}
}

// ProblemFilter 题库列表的可见性与筛选条件
type ProblemFilter struct {
	Search     string
	GroupID    uint
	Difficulty model.Difficulty
	// SeeAll 为 true 时不做可见性过滤
	SeeAll          bool
	UserID          uint
	OrganizationIDs []uint
	Page            int
	Limit           int
}

// Create 题目及其答案在同一事务中写入
func (r *ProblemRepository) Create(problem *model.Problem) error {
	return r.DB.Create(problem).Error
}

// Update 更新题目字段并整体替换答案与关联
func (r *ProblemRepository) Update(problem *model.Problem) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Answers", "Authors", "Organizations", "Group", "Level").Save(problem).Error; err != nil {
			return err
		}
		if err := tx.Where("problem_id = ?", problem.ID).Delete(&model.Answer{}).Error; err != nil {
			return err
		}
		for i := range problem.Answers {
			problem.Answers[i].ID = 0
			problem.Answers[i].ProblemID = problem.ID
		}
		if len(problem.Answers) > 0 {
			if err := tx.Create(&problem.Answers).Error; err != nil {
				return err
			}
		}
		if err := tx.Model(problem).Association("Authors").Replace(problem.Authors); err != nil {
			return err
		}
		return tx.Model(problem).Association("Organizations").Replace(problem.Organizations)
	})
}

func (r *ProblemRepository) FindByCode(code string) (*model.Problem, error) {
	var problem model.Problem
	err := r.DB.Preload("Answers").Preload("Authors").Preload("Organizations").
		Preload("Group").Preload("Level").
		Where("code = ?", code).First(&problem).Error
	if err != nil {
		return nil, err
	}
	return &problem, nil
}

func (r *ProblemRepository) FindByID(id uint) (*model.Problem, error) {
	var problem model.Problem
	if err := r.DB.Preload("Answers").First(&problem, id).Error; err != nil {
		return nil, err
	}
	return &problem, nil
}

func (r *ProblemRepository) FindByCodes(codes []string) ([]model.Problem, error) {
	var problems []model.Problem
	if len(codes) == 0 {
		return problems, nil
	}
	err := r.DB.Where("code IN ?", codes).Find(&problems).Error
	return problems, err
}

func (r *ProblemRepository) visibleQuery(f ProblemFilter) *gorm.DB {
	query := r.DB.Model(&model.Problem{})
	if f.SeeAll {
		return query
	}
	if f.UserID == 0 {
		return query.Where("problems.is_public = ? AND problems.is_organization_private = ?", true, false)
	}

	authored := r.DB.Table("problem_authors").Select("problem_id").Where("user_id = ?", f.UserID)
	cond := r.DB.Where("problems.is_public = ? AND problems.is_organization_private = ?", true, false).
		Or("problems.id IN (?)", authored)
	if len(f.OrganizationIDs) > 0 {
		inOrg := r.DB.Table("problem_organizations").Select("problem_id").Where("organization_id IN ?", f.OrganizationIDs)
		cond = cond.Or("problems.is_public = ? AND problems.is_organization_private = ? AND problems.id IN (?)", true, true, inOrg)
	}
	return query.Where(cond)
}

// List 按可见性过滤后的题目分页列表
func (r *ProblemRepository) List(f ProblemFilter) ([]model.Problem, int64, error) {
	var problems []model.Problem
	var total int64

	query := r.visibleQuery(f)
	if f.Search != "" {
		like := "%" + f.Search + "%"
		query = query.Where("problems.code LIKE ? OR problems.name LIKE ?", like, like)
	}
	if f.GroupID != 0 {
		query = query.Where("problems.group_id = ?", f.GroupID)
	}
	if f.Difficulty != "" {
		query = query.Where("problems.difficulty = ?", f.Difficulty)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := query.Preload("Group").Order("problems.code ASC").
		Offset((f.Page - 1) * f.Limit).Limit(f.Limit).Find(&problems).Error
	return problems, total, err
}

// PublicIDsByDifficulty 练习组卷使用的公开题目 id
func (r *ProblemRepository) PublicIDsByDifficulty(difficulty model.Difficulty, levelID *uint) ([]uint, error) {
	var ids []uint
	query := r.DB.Model(&model.Problem{}).
		Where("is_public = ? AND is_organization_private = ? AND difficulty = ?", true, false, difficulty)
	if levelID != nil {
		query = query.Where("level_id = ?", *levelID)
	}
	err := query.Order("id ASC").Pluck("id", &ids).Error
	return ids, err
}

func (r *ProblemRepository) ListGroups() ([]model.ProblemGroup, error) {
	var groups []model.ProblemGroup
	err := r.DB.Order("name ASC").Find(&groups).Error
	return groups, err
}

func (r *ProblemRepository) CreateGroup(group *model.ProblemGroup) error {
	return r.DB.Create(group).Error
}

func (r *ProblemRepository) ListLevels() ([]model.Level, error) {
	var levels []model.Level
	err := r.DB.Order("sort_order ASC, id ASC").Find(&levels).Error
	return levels, err
}

func (r *ProblemRepository) FindLevel(id uint) (*model.Level, error) {
	var level model.Level
	if err := r.DB.First(&level, id).Error; err != nil {
		return nil, err
	}
	return &level, nil
}

func (r *ProblemRepository) CreateLevel(level *model.Level) error {
	return r.DB.Create(level).Error
}
