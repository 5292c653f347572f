package repository

import (
	"emath_backend/internal/model"

	"gorm.io/gorm"
)

type OrganizationRepository struct {
	DB *gorm.DB
}

func NewOrganizationRepository(db *gorm.DB) *OrganizationRepository {
	return &OrganizationRepository{DB: db}
}

func (r *OrganizationRepository) WithTx(tx *gorm.DB) *OrganizationRepository {
	return &OrganizationRepository{DB: tx}
}

func (r *OrganizationRepository) Create(org *model.Organization) error {
	return r.DB.Create(org).Error
}

func (r *OrganizationRepository) Update(org *model.Organization) error {
	return r.DB.Omit("Admins", "Members").Save(org).Error
}

func (r *OrganizationRepository) FindByID(id uint) (*model.Organization, error) {
	var org model.Organization
	if err := r.DB.Preload("Admins").First(&org, id).Error; err != nil {
		return nil, err
	}
	return &org, nil
}

func (r *OrganizationRepository) FindBySlug(slug string) (*model.Organization, error) {
	var org model.Organization
	if err := r.DB.Preload("Admins").Where("slug = ?", slug).First(&org).Error; err != nil {
		return nil, err
	}
	return &org, nil
}

func (r *OrganizationRepository) FindByIDs(ids []uint) ([]model.Organization, error) {
	var orgs []model.Organization
	if len(ids) == 0 {
		return orgs, nil
	}
	err := r.DB.Where("id IN ?", ids).Find(&orgs).Error
	return orgs, err
}

func (r *OrganizationRepository) List(page, limit int) ([]model.Organization, int64, error) {
	var orgs []model.Organization
	var total int64

	if err := r.DB.Model(&model.Organization{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := r.DB.Order("name ASC").Offset((page - 1) * limit).Limit(limit).Find(&orgs).Error
	return orgs, total, err
}

func (r *OrganizationRepository) CountMembers(orgID uint) (int64, error) {
	var count int64
	err := r.DB.Table("organization_members").Where("organization_id = ?", orgID).Count(&count).Error
	return count, err
}

func (r *OrganizationRepository) IsMember(orgID, userID uint) (bool, error) {
	var count int64
	err := r.DB.Table("organization_members").
		Where("organization_id = ? AND user_id = ?", orgID, userID).
		Count(&count).Error
	return count > 0, err
}

func (r *OrganizationRepository) AddMember(org *model.Organization, user *model.User) error {
	return r.DB.Model(org).Association("Members").Append(user)
}

func (r *OrganizationRepository) RemoveMember(org *model.Organization, user *model.User) error {
	return r.DB.Model(org).Association("Members").Delete(user)
}

func (r *OrganizationRepository) AddAdmin(org *model.Organization, user *model.User) error {
	return r.DB.Model(org).Association("Admins").Append(user)
}

func (r *OrganizationRepository) Members(orgID uint, page, limit int) ([]model.User, int64, error) {
	var users []model.User
	var total int64

	query := r.DB.Model(&model.User{}).
		Joins("JOIN organization_members om ON om.user_id = users.id").
		Where("om.organization_id = ?", orgID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := query.Order("users.points DESC").Offset((page - 1) * limit).Limit(limit).Find(&users).Error
	return users, total, err
}

func (r *OrganizationRepository) CreateRequest(req *model.OrganizationRequest) error {
	return r.DB.Create(req).Error
}

func (r *OrganizationRepository) FindRequest(id uint) (*model.OrganizationRequest, error) {
	var req model.OrganizationRequest
	if err := r.DB.Preload("User").First(&req, id).Error; err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *OrganizationRepository) HasPendingRequest(orgID, userID uint) (bool, error) {
	var count int64
	err := r.DB.Model(&model.OrganizationRequest{}).
		Where("organization_id = ? AND user_id = ? AND state = ?", orgID, userID, model.RequestPending).
		Count(&count).Error
	return count > 0, err
}

func (r *OrganizationRepository) ListRequests(orgID uint, state string) ([]model.OrganizationRequest, error) {
	var reqs []model.OrganizationRequest
	query := r.DB.Preload("User").Where("organization_id = ?", orgID)
	if state != "" {
		query = query.Where("state = ?", state)
	}
	err := query.Order("created_at DESC").Find(&reqs).Error
	return reqs, err
}

func (r *OrganizationRepository) UpdateRequestState(id uint, state string) error {
	return r.DB.Model(&model.OrganizationRequest{}).Where("id = ?", id).Update("state", state).Error
}
