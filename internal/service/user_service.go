package service

import (
	"emath_backend/internal/model"
	"emath_backend/internal/repository"
	"emath_backend/internal/util"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// UserService 处理用户相关的业务逻辑
type UserService struct {
	UserRepo          *repository.UserRepository
	ParticipationRepo *repository.ParticipationRepository
}

func NewUserService(userRepo *repository.UserRepository, participationRepo *repository.ParticipationRepository) *UserService {
	return &UserService{
		UserRepo:          userRepo,
		ParticipationRepo: participationRepo,
	}
}

// LoadViewer 加载请求用户及其组织，用户不存在或已停用时返回 ErrUnauthorized
func (s *UserService) LoadViewer(userID uint) (*Viewer, error) {
	user, err := s.UserRepo.FindWithOrganizations(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrUnauthorized
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, util.ErrUnauthorized
	}
	return NewViewer(user), nil
}

// UserProfile 公开资料及正式参赛记录
type UserProfile struct {
	User           *model.User                  `json:"user"`
	Participations []model.ContestParticipation `json:"participations"`
}

func (s *UserService) GetProfile(v *Viewer, username string) (*UserProfile, error) {
	user, err := s.UserRepo.FindByUsername(username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrUserNotFound
		}
		return nil, err
	}
	user, err = s.UserRepo.FindWithOrganizations(user.ID)
	if err != nil {
		return nil, util.TranslateDBError(err)
	}

	ps, err := s.ParticipationRepo.ListByUser(user.ID)
	if err != nil {
		return nil, err
	}
	profile := &UserProfile{User: user, Participations: []model.ContestParticipation{}}
	for _, p := range ps {
		if !p.Live() || p.Contest == nil || !IsContestAccessibleBy(v, p.Contest) {
			continue
		}
		profile.Participations = append(profile.Participations, p)
	}
	return profile, nil
}

func (s *UserService) List(page, limit int, sort string) ([]model.User, int64, error) {
	return s.UserRepo.List(page, limit, sort)
}

type UpdateProfileRequest struct {
	FullName *string `json:"fullName"`
	About    *string `json:"about"`
	Timezone *string `json:"timezone"`
	Avatar   *string `json:"avatar"`
}

func (s *UserService) UpdateProfile(v *Viewer, req *UpdateProfileRequest) (*model.User, error) {
	if !v.Authenticated() {
		return nil, util.ErrUnauthorized
	}
	user, err := s.UserRepo.FindByID(v.UserID)
	if err != nil {
		return nil, util.TranslateDBError(err)
	}
	if req.FullName != nil {
		user.FullName = strings.TrimSpace(*req.FullName)
	}
	if req.About != nil {
		user.About = *req.About
	}
	if req.Timezone != nil {
		if _, err := time.LoadLocation(*req.Timezone); err != nil {
			return nil, fmt.Errorf("%w: unknown timezone %q", util.ErrValidation, *req.Timezone)
		}
		user.Timezone = *req.Timezone
	}
	if req.Avatar != nil {
		user.Avatar = *req.Avatar
	}
	if err := s.UserRepo.Update(user); err != nil {
		return nil, util.TranslateDBError(err)
	}
	return user, nil
}

type ChangePasswordRequest struct {
	OldPassword string `json:"oldPassword" binding:"required"`
	NewPassword string `json:"newPassword" binding:"required,min=6"`
}

func (s *UserService) ChangePassword(v *Viewer, req *ChangePasswordRequest) error {
	if !v.Authenticated() {
		return util.ErrUnauthorized
	}
	user, err := s.UserRepo.FindByID(v.UserID)
	if err != nil {
		return util.TranslateDBError(err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.OldPassword)); err != nil {
		return fmt.Errorf("%w: wrong password", util.ErrValidation)
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	user.Password = string(hashed)
	return s.UserRepo.Update(user)
}

type UpdateUserRequest struct {
	DisplayRank *model.DisplayRank `json:"displayRank"`
	IsActive    *bool              `json:"isActive"`
}

// AdminUpdate 管理员修改用户角色或停用账号
func (s *UserService) AdminUpdate(v *Viewer, username string, req *UpdateUserRequest) (*model.User, error) {
	if !v.IsSuperuser() {
		return nil, util.ErrPermissionDenied
	}
	user, err := s.UserRepo.FindByUsername(username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrUserNotFound
		}
		return nil, err
	}
	if req.DisplayRank != nil {
		if !req.DisplayRank.Valid() {
			return nil, fmt.Errorf("%w: unknown rank %q", util.ErrValidation, *req.DisplayRank)
		}
		user.DisplayRank = *req.DisplayRank
	}
	if req.IsActive != nil {
		user.IsActive = *req.IsActive
	}
	if err := s.UserRepo.Update(user); err != nil {
		return nil, util.TranslateDBError(err)
	}
	return user, nil
}
