package repository

import (
	"emath_backend/internal/model"
	"time"

	"gorm.io/gorm"
)

type ContestRepository struct {
	DB *gorm.DB
}

func NewContestRepository(db *gorm.DB) *ContestRepository {
	return &ContestRepository{DB: db}
}

func (r *ContestRepository) WithTx(tx *gorm.DB) *ContestRepository {
	return &ContestRepository{DB: tx}
}

// ContestListFilter 比赛列表可见性条件，UserID 为 0 表示匿名
type ContestListFilter struct {
	SeeAll          bool
	UserID          uint
	OrganizationIDs []uint
}

// accessRelations 访问控制需要的全部关联
var accessRelations = []string{
	"Authors", "Curators", "PrivateContestants", "Organizations", "ViewContestScoreboard",
}

func (r *ContestRepository) withAccessRelations(query *gorm.DB) *gorm.DB {
	for _, rel := range accessRelations {
		query = query.Preload(rel)
	}
	return query
}

func (r *ContestRepository) Create(contest *model.Contest) error {
	return r.DB.Create(contest).Error
}

// Update 保存比赛字段并替换多对多关联
func (r *ContestRepository) Update(contest *model.Contest) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		omit := append([]string{"Problems", "BannedUsers"}, accessRelations...)
		if err := tx.Omit(omit...).Save(contest).Error; err != nil {
			return err
		}
		if err := tx.Model(contest).Association("Authors").Replace(contest.Authors); err != nil {
			return err
		}
		if err := tx.Model(contest).Association("Curators").Replace(contest.Curators); err != nil {
			return err
		}
		if err := tx.Model(contest).Association("PrivateContestants").Replace(contest.PrivateContestants); err != nil {
			return err
		}
		if err := tx.Model(contest).Association("Organizations").Replace(contest.Organizations); err != nil {
			return err
		}
		return tx.Model(contest).Association("ViewContestScoreboard").Replace(contest.ViewContestScoreboard)
	})
}

func (r *ContestRepository) FindByKey(key string) (*model.Contest, error) {
	var contest model.Contest
	if err := r.withAccessRelations(r.DB).Where("`key` = ?", key).First(&contest).Error; err != nil {
		return nil, err
	}
	return &contest, nil
}

func (r *ContestRepository) FindByID(id uint) (*model.Contest, error) {
	var contest model.Contest
	if err := r.withAccessRelations(r.DB).First(&contest, id).Error; err != nil {
		return nil, err
	}
	return &contest, nil
}

// List 可见比赛，按开始时间倒序
func (r *ContestRepository) List(f ContestListFilter) ([]model.Contest, error) {
	var contests []model.Contest
	query := r.DB.Model(&model.Contest{}).Preload("Organizations")

	if !f.SeeAll {
		if f.UserID == 0 {
			query = query.Where("is_visible = ? AND is_private = ? AND is_organization_private = ?", true, false, false)
		} else {
			query = query.Where(r.visibleCondition(f))
		}
	}
	err := query.Order("start_time DESC, `key` ASC").Find(&contests).Error
	return contests, err
}

func (r *ContestRepository) visibleCondition(f ContestListFilter) *gorm.DB {
	editor := r.DB.Table("contest_authors").Select("contest_id").Where("user_id = ?", f.UserID)
	curator := r.DB.Table("contest_curators").Select("contest_id").Where("user_id = ?", f.UserID)
	viewer := r.DB.Table("contest_scoreboard_viewers").Select("contest_id").Where("user_id = ?", f.UserID)
	contestant := r.DB.Table("contest_private_contestants").Select("contest_id").Where("user_id = ?", f.UserID)

	orgIDs := f.OrganizationIDs
	if len(orgIDs) == 0 {
		// IN () 在部分方言中非法
		orgIDs = []uint{0}
	}
	inOrg := r.DB.Table("contest_organizations").Select("contest_id").Where("organization_id IN ?", orgIDs)

	visible := r.DB.Where("is_visible = ?", true).Where(
		r.DB.Where("is_private = ? AND is_organization_private = ?", false, false).
			Or("id IN (?)", viewer).
			Or("is_private = ? AND is_organization_private = ? AND id IN (?)", true, false, contestant).
			Or("is_private = ? AND is_organization_private = ? AND id IN (?)", false, true, inOrg).
			Or("is_private = ? AND is_organization_private = ? AND id IN (?) AND id IN (?)", true, true, contestant, inOrg),
	)
	return r.DB.Where(visible).Or("id IN (?)", editor).Or("id IN (?)", curator)
}

// OpenSubmissionContests 提交对其他用户公开的比赛 id 子查询：排行榜公开、已结束或用户为编辑者
func (r *ContestRepository) OpenSubmissionContests(userID uint, now time.Time) *gorm.DB {
	query := r.DB.Model(&model.Contest{}).Select("id")
	if userID == 0 {
		return query.Where("scoreboard_visibility = ? OR end_time < ?", model.ScoreboardVisible, now)
	}
	editor := r.DB.Table("contest_authors").Select("contest_id").Where("user_id = ?", userID)
	curator := r.DB.Table("contest_curators").Select("contest_id").Where("user_id = ?", userID)
	return query.Where("scoreboard_visibility = ? OR end_time < ? OR id IN (?) OR id IN (?)",
		model.ScoreboardVisible, now, editor, curator)
}

// ListEditable 用户作为作者或协管员的比赛
func (r *ContestRepository) ListEditable(userID uint) ([]model.Contest, error) {
	var contests []model.Contest
	editor := r.DB.Table("contest_authors").Select("contest_id").Where("user_id = ?", userID)
	curator := r.DB.Table("contest_curators").Select("contest_id").Where("user_id = ?", userID)
	err := r.DB.Where("id IN (?) OR id IN (?)", editor, curator).Order("start_time DESC").Find(&contests).Error
	return contests, err
}

// Problems 按顺序返回比赛题目，包含题目与答案
func (r *ContestRepository) Problems(contestID uint) ([]model.ContestProblem, error) {
	var problems []model.ContestProblem
	err := r.DB.Preload("Problem").Preload("Problem.Answers").
		Where("contest_id = ?", contestID).
		Order("sort_order ASC, id ASC").
		Find(&problems).Error
	return problems, err
}

func (r *ContestRepository) FindProblem(contestID, contestProblemID uint) (*model.ContestProblem, error) {
	var cp model.ContestProblem
	err := r.DB.Preload("Problem").Preload("Problem.Answers").
		Where("contest_id = ? AND id = ?", contestID, contestProblemID).
		First(&cp).Error
	if err != nil {
		return nil, err
	}
	return &cp, nil
}

// SyncProblems 按题目对齐比赛题目列表：保留的题目原地更新分值与顺序，
// 移除的删除，新增的插入。已保留题目的 ID 不变，已有作答仍指向它们
func (r *ContestRepository) SyncProblems(contestID uint, problems []model.ContestProblem) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		var existing []model.ContestProblem
		if err := tx.Where("contest_id = ?", contestID).Find(&existing).Error; err != nil {
			return err
		}
		byProblem := make(map[uint]uint, len(existing))
		for _, cp := range existing {
			byProblem[cp.ProblemID] = cp.ID
		}

		kept := make(map[uint]bool, len(problems))
		for i := range problems {
			cp := &problems[i]
			cp.ContestID = contestID
			kept[cp.ProblemID] = true
			if id, ok := byProblem[cp.ProblemID]; ok {
				cp.ID = id
				err := tx.Model(&model.ContestProblem{}).Where("id = ?", id).
					Updates(map[string]interface{}{"points": cp.Points, "sort_order": cp.SortOrder}).Error
				if err != nil {
					return err
				}
				continue
			}
			cp.ID = 0
			if err := tx.Create(cp).Error; err != nil {
				return err
			}
		}

		var removed []uint
		for _, cp := range existing {
			if !kept[cp.ProblemID] {
				removed = append(removed, cp.ID)
			}
		}
		if len(removed) == 0 {
			return nil
		}
		return tx.Unscoped().Where("id IN ?", removed).Delete(&model.ContestProblem{}).Error
	})
}

func (r *ContestRepository) IsBanned(contestID, userID uint) (bool, error) {
	var count int64
	err := r.DB.Table("contest_banned_users").
		Where("contest_id = ? AND user_id = ?", contestID, userID).
		Count(&count).Error
	return count > 0, err
}

func (r *ContestRepository) AddBanned(contest *model.Contest, user *model.User) error {
	return r.DB.Model(contest).Association("BannedUsers").Append(user)
}

func (r *ContestRepository) RemoveBanned(contest *model.Contest, user *model.User) error {
	return r.DB.Model(contest).Association("BannedUsers").Delete(user)
}

// RefreshUserCount 以正式参赛记录数更新参赛人数
func (r *ContestRepository) RefreshUserCount(contestID uint) error {
	var count int64
	if err := r.DB.Model(&model.ContestParticipation{}).
		Where("contest_id = ? AND `virtual` = ?", contestID, model.ParticipationLive).
		Count(&count).Error; err != nil {
		return err
	}
	return r.DB.Model(&model.Contest{}).Where("id = ?", contestID).UpdateColumn("user_count", count).Error
}

func (r *ContestRepository) FindSolution(contestID uint) (*model.ContestSolution, error) {
	var solution model.ContestSolution
	if err := r.DB.Preload("Authors").Where("contest_id = ?", contestID).First(&solution).Error; err != nil {
		return nil, err
	}
	return &solution, nil
}

// SaveSolution 保存题解并替换作者列表
func (r *ContestRepository) SaveSolution(solution *model.ContestSolution) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Authors").Save(solution).Error; err != nil {
			return err
		}
		return tx.Model(solution).Association("Authors").Replace(solution.Authors)
	})
}
