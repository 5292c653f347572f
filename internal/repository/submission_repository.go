package repository

import (
	"emath_backend/internal/model"
	"time"

	"gorm.io/gorm"
)

type SubmissionRepository struct {
	DB *gorm.DB
}

func NewSubmissionRepository(db *gorm.DB) *SubmissionRepository {
	return &SubmissionRepository{DB: db}
}

func (r *SubmissionRepository) WithTx(tx *gorm.DB) *SubmissionRepository {
	return &SubmissionRepository{DB: tx}
}

// SubmissionFilter 提交列表筛选条件
type SubmissionFilter struct {
	ID         uint
	ProfileID  uint
	ContestID  uint
	PracticeID uint
	Result     string
	// Restrict 非空时追加可见性条件
	Restrict func(*gorm.DB) *gorm.DB
	Page     int
	Limit    int
}

func (r *SubmissionRepository) Create(sub *model.Submission) error {
	return r.DB.Create(sub).Error
}

func (r *SubmissionRepository) FindByID(id uint) (*model.Submission, error) {
	var sub model.Submission
	if err := r.DB.Preload("Problems").Preload("Profile").First(&sub, id).Error; err != nil {
		return nil, err
	}
	return &sub, nil
}

// SaveGrade 在事务中保存评分结果及各小题结果
func (r *SubmissionRepository) SaveGrade(sub *model.Submission) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.Submission{}).Where("id = ?", sub.ID).Updates(map[string]interface{}{
			"points":     sub.Points,
			"max_points": sub.MaxPoints,
			"result":     sub.Result,
			"time":       sub.Time,
		}).Error; err != nil {
			return err
		}
		for i := range sub.Problems {
			sp := &sub.Problems[i]
			if err := tx.Model(&model.SubmissionProblem{}).Where("id = ?", sp.ID).Updates(map[string]interface{}{
				"result": sp.Result,
				"points": sp.Points,
			}).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// AddProblems 写入学生答案
func (r *SubmissionRepository) AddProblems(problems []model.SubmissionProblem) error {
	if len(problems) == 0 {
		return nil
	}
	return r.DB.Create(&problems).Error
}

// MarkSubmitted 为未提交的作答写入完成时间，作答已提交或已评分时返回 false
func (r *SubmissionRepository) MarkSubmitted(submissionID uint, at time.Time) (bool, error) {
	res := r.DB.Model(&model.Submission{}).
		Where("id = ? AND result = ? AND time IS NULL", submissionID, model.ResultPending).
		Update("time", at)
	return res.RowsAffected > 0, res.Error
}

// LatestPendingForParticipation 参赛记录最近一次未提交的作答
func (r *SubmissionRepository) LatestPendingForParticipation(participationID uint) (*model.Submission, error) {
	var sub model.Submission
	err := r.DB.Where("participation_id = ? AND result = ?", participationID, model.ResultPending).
		Order("date DESC, id DESC").First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *SubmissionRepository) LatestPendingForPractice(profileID, practiceID uint) (*model.Submission, error) {
	var sub model.Submission
	err := r.DB.Where("profile_id = ? AND practice_id = ? AND result = ?", profileID, practiceID, model.ResultPending).
		Order("date DESC, id DESC").First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// GradedByParticipation 已评分的提交，包含小题结果
func (r *SubmissionRepository) GradedByParticipation(participationID uint) ([]model.Submission, error) {
	var subs []model.Submission
	err := r.DB.Preload("Problems").
		Where("participation_id = ? AND result IN ?", participationID, []string{model.ResultAccepted, model.ResultWrongAnswer}).
		Order("date ASC, id ASC").
		Find(&subs).Error
	return subs, err
}

func (r *SubmissionRepository) GradedByContest(contestID uint) ([]model.Submission, error) {
	var subs []model.Submission
	err := r.DB.Preload("Problems").
		Where("contest_id = ? AND result IN ?", contestID, []string{model.ResultAccepted, model.ResultWrongAnswer}).
		Order("id ASC").
		Find(&subs).Error
	return subs, err
}

func (r *SubmissionRepository) filtered(f SubmissionFilter) *gorm.DB {
	query := r.DB.Model(&model.Submission{}).Where("submissions.result <> ?", model.ResultPending)
	if f.ID != 0 {
		query = query.Where("submissions.id = ?", f.ID)
	}
	if f.ProfileID != 0 {
		query = query.Where("submissions.profile_id = ?", f.ProfileID)
	}
	if f.ContestID != 0 {
		query = query.Where("submissions.contest_id = ?", f.ContestID)
	}
	if f.PracticeID != 0 {
		query = query.Where("submissions.practice_id = ?", f.PracticeID)
	}
	if f.Restrict != nil {
		query = f.Restrict(query)
	}
	return query
}

func (r *SubmissionRepository) List(f SubmissionFilter) ([]model.Submission, int64, error) {
	var subs []model.Submission
	var total int64

	query := r.filtered(f)
	if f.Result != "" {
		query = query.Where("submissions.result = ?", f.Result)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := query.Preload("Profile").Order("submissions.date DESC, submissions.id DESC").
		Offset((f.Page - 1) * f.Limit).Limit(f.Limit).Find(&subs).Error
	return subs, total, err
}

type ResultCount struct {
	Result string `json:"result"`
	Count  int64  `json:"count"`
}

// ResultStats 按结果分组计数，忽略 Result 筛选
func (r *SubmissionRepository) ResultStats(f SubmissionFilter) ([]ResultCount, error) {
	var stats []ResultCount
	err := r.filtered(f).
		Select("submissions.result AS result, COUNT(*) AS count").
		Group("submissions.result").
		Order("submissions.result ASC").
		Scan(&stats).Error
	return stats, err
}
