package repository

import (
	"emath_backend/internal/model"

	"gorm.io/gorm"
)

type PracticeRepository struct {
	DB *gorm.DB
}

func NewPracticeRepository(db *gorm.DB) *PracticeRepository {
	return &PracticeRepository{DB: db}
}

// Create 练习及题目列表一并写入
func (r *PracticeRepository) Create(practice *model.Practice) error {
	return r.DB.Create(practice).Error
}

func (r *PracticeRepository) FindByID(id uint) (*model.Practice, error) {
	var practice model.Practice
	err := r.DB.Preload("Level").
		Preload("Problems", func(db *gorm.DB) *gorm.DB { return db.Order("sort_order ASC, id ASC") }).
		Preload("Problems.Problem").
		Preload("Problems.Problem.Answers").
		First(&practice, id).Error
	if err != nil {
		return nil, err
	}
	return &practice, nil
}

func (r *PracticeRepository) ListByCreator(creatorID uint, page, limit int) ([]model.Practice, int64, error) {
	var practices []model.Practice
	var total int64

	query := r.DB.Model(&model.Practice{}).Where("creator_id = ?", creatorID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := query.Preload("Level").Order("created_at DESC").
		Offset((page - 1) * limit).Limit(limit).Find(&practices).Error
	return practices, total, err
}
