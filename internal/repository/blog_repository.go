package repository

import (
	"emath_backend/internal/model"
	"time"

	"gorm.io/gorm"
)

type BlogRepository struct {
	DB *gorm.DB
}

func NewBlogRepository(db *gorm.DB) *BlogRepository {
	return &BlogRepository{DB: db}
}

func (r *BlogRepository) Create(post *model.BlogPost) error {
	return r.DB.Create(post).Error
}

func (r *BlogRepository) Update(post *model.BlogPost) error {
	return r.DB.Omit("Author").Save(post).Error
}

func (r *BlogRepository) Delete(id uint) error {
	return r.DB.Delete(&model.BlogPost{}, id).Error
}

func (r *BlogRepository) FindByID(id uint) (*model.BlogPost, error) {
	var post model.BlogPost
	if err := r.DB.Preload("Author").First(&post, id).Error; err != nil {
		return nil, err
	}
	return &post, nil
}

// ListPublished 已发布的可见文章，最新的在前
func (r *BlogRepository) ListPublished(now time.Time, page, limit int) ([]model.BlogPost, int64, error) {
	var posts []model.BlogPost
	var total int64

	query := r.DB.Model(&model.BlogPost{}).Where("visible = ? AND publish_on <= ?", true, now)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := query.Preload("Author").Order("publish_on DESC, id DESC").
		Offset((page - 1) * limit).Limit(limit).Find(&posts).Error
	return posts, total, err
}
