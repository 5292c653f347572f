package repository

import (
	"emath_backend/internal/model"

	"gorm.io/gorm"
)

type ParticipationRepository struct {
	DB *gorm.DB
}

func NewParticipationRepository(db *gorm.DB) *ParticipationRepository {
	return &ParticipationRepository{DB: db}
}

func (r *ParticipationRepository) WithTx(tx *gorm.DB) *ParticipationRepository {
	return &ParticipationRepository{DB: tx}
}

func (r *ParticipationRepository) Create(p *model.ContestParticipation) error {
	return r.DB.Create(p).Error
}

func (r *ParticipationRepository) Save(p *model.ContestParticipation) error {
	return r.DB.Omit("Contest", "User").Save(p).Error
}

func (r *ParticipationRepository) FindByID(id uint) (*model.ContestParticipation, error) {
	var p model.ContestParticipation
	if err := r.DB.Preload("User").First(&p, id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// Find 按 (contest, user, virtual) 唯一键查找
func (r *ParticipationRepository) Find(contestID, userID uint, virtual int) (*model.ContestParticipation, error) {
	var p model.ContestParticipation
	err := r.DB.Preload("User").
		Where("contest_id = ? AND user_id = ? AND `virtual` = ?", contestID, userID, virtual).
		First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// MaxVirtual 用户在该比赛中最大的参赛序号，没有时返回 0，包含已软删除的记录
func (r *ParticipationRepository) MaxVirtual(contestID, userID uint) (int, error) {
	var n int
	err := r.DB.Unscoped().Model(&model.ContestParticipation{}).
		Where("contest_id = ? AND user_id = ?", contestID, userID).
		Select("COALESCE(MAX(`virtual`), 0)").
		Row().Scan(&n)
	return n, err
}

// ListLive 比赛的全部正式参赛记录
func (r *ParticipationRepository) ListLive(contestID uint) ([]model.ContestParticipation, error) {
	var ps []model.ContestParticipation
	err := r.DB.Preload("User").
		Where("contest_id = ? AND `virtual` = ?", contestID, model.ParticipationLive).
		Order("is_disqualified ASC, score DESC, cumtime ASC, tiebreaker ASC").
		Find(&ps).Error
	return ps, err
}

func (r *ParticipationRepository) ListByContest(contestID uint) ([]model.ContestParticipation, error) {
	var ps []model.ContestParticipation
	err := r.DB.Where("contest_id = ?", contestID).Order("id ASC").Find(&ps).Error
	return ps, err
}

// ListByUser 用户参加过的比赛记录，包含比赛信息
func (r *ParticipationRepository) ListByUser(userID uint) ([]model.ContestParticipation, error) {
	var ps []model.ContestParticipation
	query := r.DB.Preload("Contest")
	for _, rel := range accessRelations {
		query = query.Preload("Contest." + rel)
	}
	err := query.Where("user_id = ?", userID).Order("real_start DESC").Find(&ps).Error
	return ps, err
}
