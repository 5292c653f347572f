package service

import (
	"emath_backend/internal/config"
	"emath_backend/internal/model"
	"emath_backend/internal/repository"
	"emath_backend/internal/util"
	"emath_backend/pkg/logger"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type AuthService struct {
	UserRepo *repository.UserRepository
	JWT      config.JWTConfig
}

func NewAuthService(userRepo *repository.UserRepository, jwtCfg config.JWTConfig) *AuthService {
	return &AuthService{
		UserRepo: userRepo,
		JWT:      jwtCfg,
	}
}

type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=3,max=150"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
	FullName string `json:"fullName"`
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type LoginResponse struct {
	Token string      `json:"token"`
	User  *model.User `json:"user"`
}

func (s *AuthService) Register(req *RegisterRequest) (*model.User, error) {
	username := strings.TrimSpace(req.Username)
	email := strings.ToLower(strings.TrimSpace(req.Email))

	if _, err := s.UserRepo.FindByUsername(username); err == nil {
		return nil, util.ErrUsernameTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if _, err := s.UserRepo.FindByEmail(email); err == nil {
		return nil, util.ErrEmailRegistered
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user := &model.User{
		Username:    username,
		Email:       email,
		FullName:    strings.TrimSpace(req.FullName),
		Password:    string(hashedPassword),
		DisplayRank: model.RankUser,
		IsActive:    true,
		LastSeen:    time.Now(),
	}
	if err := s.UserRepo.Create(user); err != nil {
		return nil, util.TranslateDBError(err)
	}
	logger.Log.Info("User registered", zap.Uint("userID", user.ID), zap.String("username", user.Username))
	return user, nil
}

// Login 用户名或邮箱登录
func (s *AuthService) Login(req *LoginRequest) (*LoginResponse, error) {
	login := strings.TrimSpace(req.Username)
	user, err := s.UserRepo.FindByUsername(login)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		user, err = s.UserRepo.FindByEmail(strings.ToLower(login))
	}
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrInvalidCredentials
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, util.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, util.ErrInvalidCredentials
	}

	token, err := util.GenerateJWT(user, s.JWT.Secret, s.JWT.ExpireTime)
	if err != nil {
		return nil, err
	}
	if err := s.UserRepo.UpdateLastSeen(user.ID); err != nil {
		logger.Log.Warn("Update last seen failed", zap.Uint("userID", user.ID), zap.Error(err))
	}
	return &LoginResponse{Token: token, User: user}, nil
}
