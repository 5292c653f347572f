package service

import (
	"emath_backend/internal/model"
	"emath_backend/internal/repository"
	"emath_backend/internal/util"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gosimple/slug"
	"gorm.io/gorm"
)

type BlogService struct {
	BlogRepo *repository.BlogRepository
	Now      func() time.Time
}

func NewBlogService(blogRepo *repository.BlogRepository) *BlogService {
	return &BlogService{BlogRepo: blogRepo, Now: time.Now}
}

type BlogPostRequest struct {
	Title     string     `json:"title" binding:"required,max=100"`
	Content   string     `json:"content"`
	PublishOn *time.Time `json:"publishOn"`
	Visible   bool       `json:"visible"`
}

func (s *BlogService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func canEditPost(v *Viewer, post *model.BlogPost) bool {
	if v.HasPerm(model.PermEditAllPost) {
		return true
	}
	return v.HasPerm(model.PermChangeBlogPost) && post.AuthorID == v.UserID
}

// isPostVisible 未发布的文章只对可编辑者可见
func (s *BlogService) isPostVisible(v *Viewer, post *model.BlogPost) bool {
	if post.Visible && !post.PublishOn.After(s.now()) {
		return true
	}
	return canEditPost(v, post)
}

func (s *BlogService) List(page, limit int) ([]model.BlogPost, int64, error) {
	page, limit = util.ClampPage(page, limit)
	return s.BlogRepo.ListPublished(s.now(), page, limit)
}

func (s *BlogService) load(id uint) (*model.BlogPost, error) {
	post, err := s.BlogRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: post %d", util.ErrNotFound, id)
		}
		return nil, err
	}
	return post, nil
}

func (s *BlogService) Get(v *Viewer, id uint) (*model.BlogPost, error) {
	post, err := s.load(id)
	if err != nil {
		return nil, err
	}
	if !s.isPostVisible(v, post) {
		return nil, fmt.Errorf("%w: post %d", util.ErrNotFound, id)
	}
	return post, nil
}

func (s *BlogService) apply(post *model.BlogPost, req *BlogPostRequest) error {
	post.Title = strings.TrimSpace(req.Title)
	if post.Title == "" {
		return fmt.Errorf("%w: title is required", util.ErrValidation)
	}
	post.Slug = slug.Make(post.Title)
	post.Content = req.Content
	post.Visible = req.Visible
	if req.PublishOn != nil {
		post.PublishOn = *req.PublishOn
	} else if post.PublishOn.IsZero() {
		post.PublishOn = s.now()
	}
	return nil
}

func (s *BlogService) Create(v *Viewer, req *BlogPostRequest) (*model.BlogPost, error) {
	if !v.HasPerm(model.PermChangeBlogPost) && !v.HasPerm(model.PermEditAllPost) {
		return nil, util.ErrPermissionDenied
	}
	post := &model.BlogPost{AuthorID: v.UserID}
	if err := s.apply(post, req); err != nil {
		return nil, err
	}
	if err := s.BlogRepo.Create(post); err != nil {
		return nil, util.TranslateDBError(err)
	}
	return post, nil
}

func (s *BlogService) Update(v *Viewer, id uint, req *BlogPostRequest) (*model.BlogPost, error) {
	post, err := s.load(id)
	if err != nil {
		return nil, err
	}
	if !canEditPost(v, post) {
		return nil, util.ErrPermissionDenied
	}
	if err := s.apply(post, req); err != nil {
		return nil, err
	}
	if err := s.BlogRepo.Update(post); err != nil {
		return nil, util.TranslateDBError(err)
	}
	return post, nil
}

func (s *BlogService) Delete(v *Viewer, id uint) error {
	post, err := s.load(id)
	if err != nil {
		return err
	}
	if !canEditPost(v, post) {
		return util.ErrPermissionDenied
	}
	return s.BlogRepo.Delete(post.ID)
}
