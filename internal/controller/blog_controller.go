package controller

import (
	"emath_backend/internal/service"
	"emath_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type BlogController struct {
	BlogService *service.BlogService
	UserService *service.UserService
}

func NewBlogController(blogService *service.BlogService, userService *service.UserService) *BlogController {
	return &BlogController{
		BlogService: blogService,
		UserService: userService,
	}
}

// ListPosts godoc
// @Summary 博客列表
// @Description 已发布的文章，最新的在前
// @Tags 博客
// @Produce  json
// @Param   page query int false "页码" default(1)
// @Param   limit query int false "每页条数" default(20)
// @Success 200 {object} util.Response{data=util.PageResponse} "成功"
// @Router /api/blog [get]
func (c *BlogController) ListPosts(ctx *gin.Context) {
	page, limit := util.Pagination(ctx)
	posts, total, err := c.BlogService.List(page, limit)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, pageResponse(posts, total, page, limit))
}

// GetPost godoc
// @Summary 博客详情
// @Tags 博客
// @Produce  json
// @Param   id path int true "文章ID"
// @Success 200 {object} util.Response{data=model.BlogPost} "成功"
// @Failure 404 {object} util.Response "文章不存在"
// @Router /api/blog/{id} [get]
func (c *BlogController) GetPost(ctx *gin.Context) {
	v, ok := currentViewer(ctx, c.UserService)
	if !ok {
		return
	}
	post, err := c.BlogService.Get(v, util.MustParseUint(ctx.Param("id")))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, post)
}

// CreatePost godoc
// @Summary 发布博客
// @Tags 博客
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body service.BlogPostRequest true "文章"
// @Success 201 {object} util.Response{data=model.BlogPost} "创建成功"
// @Failure 403 {object} util.Response "权限不足"
// @Router /api/blog [post]
func (c *BlogController) CreatePost(ctx *gin.Context) {
	var req service.BlogPostRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	v, ok := currentViewer(ctx, c.UserService)
	if !ok {
		return
	}
	post, err := c.BlogService.Create(v, &req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, post)
}

// UpdatePost godoc
// @Summary 更新博客
// @Tags 博客
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "文章ID"
// @Param   body body service.BlogPostRequest true "文章"
// @Success 200 {object} util.Response{data=model.BlogPost} "成功"
// @Failure 403 {object} util.Response "权限不足"
// @Router /api/blog/{id} [put]
func (c *BlogController) UpdatePost(ctx *gin.Context) {
	var req service.BlogPostRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	v, ok := currentViewer(ctx, c.UserService)
	if !ok {
		return
	}
	post, err := c.BlogService.Update(v, util.MustParseUint(ctx.Param("id")), &req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, post)
}

// DeletePost godoc
// @Summary 删除博客
// @Tags 博客
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "文章ID"
// @Success 200 {object} util.Response "成功"
// @Failure 403 {object} util.Response "权限不足"
// @Router /api/blog/{id} [delete]
func (c *BlogController) DeletePost(ctx *gin.Context) {
	v, ok := currentViewer(ctx, c.UserService)
	if !ok {
		return
	}
	if err := c.BlogService.Delete(v, util.MustParseUint(ctx.Param("id"))); err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}
