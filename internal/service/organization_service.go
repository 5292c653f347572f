package service

import (
	"context"
	"emath_backend/internal/model"
	"emath_backend/internal/repository"
	"emath_backend/internal/util"
	"emath_backend/pkg/logger"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/gosimple/slug"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type OrganizationService struct {
	DB               *gorm.DB
	OrganizationRepo *repository.OrganizationRepository
	UserRepo         *repository.UserRepository
	Storage          *StorageService
}

func NewOrganizationService(
	db *gorm.DB,
	organizationRepo *repository.OrganizationRepository,
	userRepo *repository.UserRepository,
	storage *StorageService,
) *OrganizationService {
	return &OrganizationService{
		DB:               db,
		OrganizationRepo: organizationRepo,
		UserRepo:         userRepo,
		Storage:          storage,
	}
}

type OrganizationRequest struct {
	Name       string `json:"name" binding:"required,max=128"`
	Slug       string `json:"slug"`
	ShortName  string `json:"shortName" binding:"max=20"`
	About      string `json:"about"`
	IsOpen     bool   `json:"isOpen"`
	Slots      *int   `json:"slots"`
	AccessCode string `json:"accessCode" binding:"max=7"`
}

func (s *OrganizationService) load(slugName string) (*model.Organization, error) {
	org, err := s.OrganizationRepo.FindBySlug(slugName)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: organization %s", util.ErrNotFound, slugName)
		}
		return nil, err
	}
	return org, nil
}

// canAdminister 组织管理员或拥有全局组织编辑权限
func canAdminister(v *Viewer, org *model.Organization) bool {
	if v.HasPerm(model.PermEditAllOrganization) {
		return true
	}
	return v.Authenticated() && org.IsAdmin(v.UserID)
}

func applyOrganization(org *model.Organization, req *OrganizationRequest) error {
	org.Name = strings.TrimSpace(req.Name)
	org.ShortName = strings.TrimSpace(req.ShortName)
	org.About = req.About
	org.IsOpen = req.IsOpen
	org.AccessCode = strings.TrimSpace(req.AccessCode)
	if req.Slots != nil && *req.Slots < 0 {
		return fmt.Errorf("%w: slots must not be negative", util.ErrValidation)
	}
	org.Slots = req.Slots
	if org.Name == "" {
		return fmt.Errorf("%w: organization name is required", util.ErrValidation)
	}
	return nil
}

// Create 管理员或出题人创建组织，创建者成为管理员和成员
func (s *OrganizationService) Create(v *Viewer, req *OrganizationRequest) (*model.Organization, error) {
	if !v.IsSuperuser() && (!v.Authenticated() || v.Rank != model.RankSetter) {
		return nil, util.ErrPermissionDenied
	}
	org := &model.Organization{}
	if err := applyOrganization(org, req); err != nil {
		return nil, err
	}
	org.Slug = slug.Make(req.Slug)
	if org.Slug == "" {
		org.Slug = slug.Make(org.Name)
	}
	if org.Slug == "" {
		return nil, fmt.Errorf("%w: organization slug is empty", util.ErrValidation)
	}

	creator, err := s.UserRepo.FindByID(v.UserID)
	if err != nil {
		return nil, util.TranslateDBError(err)
	}
	org.Admins = []model.User{*creator}
	org.Members = []model.User{*creator}
	if err := s.OrganizationRepo.Create(org); err != nil {
		return nil, util.TranslateDBError(err)
	}
	logger.Log.Info("Organization created", zap.String("slug", org.Slug), zap.Uint("userID", v.UserID))
	return org, nil
}

func (s *OrganizationService) Update(v *Viewer, slugName string, req *OrganizationRequest) (*model.Organization, error) {
	org, err := s.load(slugName)
	if err != nil {
		return nil, err
	}
	if !canAdminister(v, org) {
		return nil, util.ErrPermissionDenied
	}
	if err := applyOrganization(org, req); err != nil {
		return nil, err
	}
	if err := s.OrganizationRepo.Update(org); err != nil {
		return nil, util.TranslateDBError(err)
	}
	return org, nil
}

func (s *OrganizationService) List(page, limit int) ([]model.Organization, int64, error) {
	return s.OrganizationRepo.List(util.ClampPage(page, limit))
}

type OrganizationDetail struct {
	*model.Organization
	MemberCount int64 `json:"memberCount"`
	IsMember    bool  `json:"isMember"`
	CanEdit     bool  `json:"canEdit"`
}

func (s *OrganizationService) Get(v *Viewer, slugName string) (*OrganizationDetail, error) {
	org, err := s.load(slugName)
	if err != nil {
		return nil, err
	}
	count, err := s.OrganizationRepo.CountMembers(org.ID)
	if err != nil {
		return nil, err
	}
	return &OrganizationDetail{
		Organization: org,
		MemberCount:  count,
		IsMember:     v.InOrganization([]uint{org.ID}),
		CanEdit:      canAdminister(v, org),
	}, nil
}

func (s *OrganizationService) Members(slugName string, page, limit int) ([]model.User, int64, error) {
	org, err := s.load(slugName)
	if err != nil {
		return nil, 0, err
	}
	page, limit = util.ClampPage(page, limit)
	return s.OrganizationRepo.Members(org.ID, page, limit)
}

// addMember 在事务内检查名额后加入成员
func addMember(repo *repository.OrganizationRepository, org *model.Organization, user *model.User) error {
	if org.Slots != nil {
		count, err := repo.CountMembers(org.ID)
		if err != nil {
			return err
		}
		if count >= int64(*org.Slots) {
			return util.ErrOrganizationFull
		}
	}
	return repo.AddMember(org, user)
}

type JoinOrganizationRequest struct {
	AccessCode string `json:"accessCode"`
	Reason     string `json:"reason"`
}

// JoinResult Joined 为 false 时表示已提交申请等待审核
type JoinResult struct {
	Joined  bool                       `json:"joined"`
	Request *model.OrganizationRequest `json:"request,omitempty"`
}

// Join 开放组织直接加入；封闭组织凭邀请码加入，否则提交申请
func (s *OrganizationService) Join(v *Viewer, slugName string, req *JoinOrganizationRequest) (*JoinResult, error) {
	if !v.Authenticated() {
		return nil, util.ErrUnauthorized
	}
	org, err := s.load(slugName)
	if err != nil {
		return nil, err
	}
	member, err := s.OrganizationRepo.IsMember(org.ID, v.UserID)
	if err != nil {
		return nil, err
	}
	if member {
		return nil, util.ErrAlreadyMember
	}
	user, err := s.UserRepo.FindByID(v.UserID)
	if err != nil {
		return nil, util.TranslateDBError(err)
	}

	byCode := org.AccessCode != "" && req.AccessCode == org.AccessCode
	if org.IsOpen || byCode {
		err := s.DB.Transaction(func(tx *gorm.DB) error {
			return addMember(s.OrganizationRepo.WithTx(tx), org, user)
		})
		if err != nil {
			return nil, err
		}
		logger.Log.Info("Organization joined", zap.String("slug", org.Slug), zap.Uint("userID", v.UserID))
		return &JoinResult{Joined: true}, nil
	}
	if req.AccessCode != "" {
		return nil, fmt.Errorf("%w: invalid access code", util.ErrValidation)
	}

	pending, err := s.OrganizationRepo.HasPendingRequest(org.ID, v.UserID)
	if err != nil {
		return nil, err
	}
	if pending {
		return nil, util.ErrRequestPending
	}
	request := &model.OrganizationRequest{
		UserID:         v.UserID,
		OrganizationID: org.ID,
		State:          model.RequestPending,
		Reason:         strings.TrimSpace(req.Reason),
	}
	if err := s.OrganizationRepo.CreateRequest(request); err != nil {
		return nil, util.TranslateDBError(err)
	}
	return &JoinResult{Request: request}, nil
}

func (s *OrganizationService) Leave(v *Viewer, slugName string) error {
	if !v.Authenticated() {
		return util.ErrUnauthorized
	}
	org, err := s.load(slugName)
	if err != nil {
		return err
	}
	member, err := s.OrganizationRepo.IsMember(org.ID, v.UserID)
	if err != nil {
		return err
	}
	if !member {
		return fmt.Errorf("%w: not a member of %s", util.ErrValidation, org.Slug)
	}
	return s.OrganizationRepo.RemoveMember(org, &model.User{BaseModel: model.BaseModel{ID: v.UserID}})
}

func (s *OrganizationService) Requests(v *Viewer, slugName, state string) ([]model.OrganizationRequest, error) {
	org, err := s.load(slugName)
	if err != nil {
		return nil, err
	}
	if !canAdminister(v, org) {
		return nil, util.ErrPermissionDenied
	}
	return s.OrganizationRepo.ListRequests(org.ID, state)
}

// ReviewRequest 审核入组申请，通过时受名额限制
func (s *OrganizationService) ReviewRequest(v *Viewer, slugName string, requestID uint, approve bool) error {
	org, err := s.load(slugName)
	if err != nil {
		return err
	}
	if !canAdminister(v, org) {
		return util.ErrPermissionDenied
	}
	request, err := s.OrganizationRepo.FindRequest(requestID)
	if err != nil {
		return util.TranslateDBError(err)
	}
	if request.OrganizationID != org.ID {
		return fmt.Errorf("%w: request %d", util.ErrNotFound, requestID)
	}
	if request.State != model.RequestPending {
		return fmt.Errorf("%w: request already reviewed", util.ErrConflict)
	}

	if !approve {
		return s.OrganizationRepo.UpdateRequestState(request.ID, model.RequestRejected)
	}
	return s.DB.Transaction(func(tx *gorm.DB) error {
		repo := s.OrganizationRepo.WithTx(tx)
		member, err := repo.IsMember(org.ID, request.UserID)
		if err != nil {
			return err
		}
		if !member {
			if err := addMember(repo, org, request.User); err != nil {
				return err
			}
		}
		return repo.UpdateRequestState(request.ID, model.RequestApproved)
	})
}

// UploadLogo 保存组织logo并更新地址
func (s *OrganizationService) UploadLogo(ctx context.Context, v *Viewer, slugName, filename string, reader io.Reader, size int64, contentType string) (*model.Organization, error) {
	org, err := s.load(slugName)
	if err != nil {
		return nil, err
	}
	if !canAdminister(v, org) {
		return nil, util.ErrPermissionDenied
	}
	url, err := s.Storage.UploadImage(ctx, "organizations/"+org.Slug, filename, reader, size, contentType)
	if err != nil {
		return nil, err
	}
	org.Logo = url
	if err := s.OrganizationRepo.Update(org); err != nil {
		return nil, util.TranslateDBError(err)
	}
	return org, nil
}
