package repository

import (
	"emath_backend/internal/model"
	"time"

	"gorm.io/gorm"
)

type UserRepository struct {
	DB *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{DB: db}
}

func (r *UserRepository) WithTx(tx *gorm.DB) *UserRepository {
	return &UserRepository{DB: tx}
}

func (r *UserRepository) Create(user *model.User) error {
	return r.DB.Create(user).Error
}

func (r *UserRepository) FindByID(id uint) (*model.User, error) {
	var user model.User
	if err := r.DB.First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) FindByUsername(username string) (*model.User, error) {
	var user model.User
	if err := r.DB.Where("username = ?", username).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) FindByEmail(email string) (*model.User, error) {
	var user model.User
	if err := r.DB.Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) FindByIDs(ids []uint) ([]model.User, error) {
	var users []model.User
	if len(ids) == 0 {
		return users, nil
	}
	err := r.DB.Where("id IN ?", ids).Find(&users).Error
	return users, err
}

// FindWithOrganizations 加载用户及其所属组织
func (r *UserRepository) FindWithOrganizations(id uint) (*model.User, error) {
	var user model.User
	if err := r.DB.Preload("Organizations").First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) Update(user *model.User) error {
	return r.DB.Save(user).Error
}

// List 分页列出活跃用户，sort 支持 username / points
func (r *UserRepository) List(page, limit int, sort string) ([]model.User, int64, error) {
	var users []model.User
	var total int64

	query := r.DB.Model(&model.User{}).Where("is_active = ?", true)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	order := "username ASC"
	if sort == "points" {
		order = "points DESC, username ASC"
	}
	err := query.Order(order).Offset((page - 1) * limit).Limit(limit).Find(&users).Error
	return users, total, err
}

func (r *UserRepository) OrganizationIDs(userID uint) ([]uint, error) {
	var ids []uint
	err := r.DB.Table("organization_members").
		Where("user_id = ?", userID).
		Pluck("organization_id", &ids).Error
	return ids, err
}

func (r *UserRepository) SetCurrentContest(userID uint, participationID *uint) error {
	return r.DB.Model(&model.User{}).
		Where("id = ?", userID).
		Update("current_contest_id", participationID).Error
}

// ClearCurrentContestIf 仅当指针仍指向该参赛记录时清空
func (r *UserRepository) ClearCurrentContestIf(userID, participationID uint) error {
	return r.DB.Model(&model.User{}).
		Where("id = ? AND current_contest_id = ?", userID, participationID).
		Update("current_contest_id", nil).Error
}

// FindInContest 当前处于比赛中的用户
func (r *UserRepository) FindInContest() ([]model.User, error) {
	var users []model.User
	err := r.DB.Where("current_contest_id IS NOT NULL").Find(&users).Error
	return users, err
}

func (r *UserRepository) UpdateLastSeen(userID uint) error {
	return r.DB.Model(&model.User{}).
		Where("id = ?", userID).
		UpdateColumn("last_seen", time.Now()).Error
}
