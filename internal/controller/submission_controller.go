package controller

import (
	"emath_backend/internal/service"
	"emath_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type SubmissionController struct {
	SubmissionService *service.SubmissionService
	UserService       *service.UserService
}

func NewSubmissionController(submissionService *service.SubmissionService, userService *service.UserService) *SubmissionController {
	return &SubmissionController{
		SubmissionService: submissionService,
		UserService:       userService,
	}
}

// ListSubmissions godoc
// @Summary 提交列表
// @Description 已评分的提交及按结果统计，按可见性过滤
// @Tags 提交
// @Produce  json
// @Param   user query string false "用户名"
// @Param   contest query string false "比赛代码"
// @Param   practice query int false "练习ID"
// @Param   result query string false "结果 AC/WA"
// @Param   page query int false "页码" default(1)
// @Param   limit query int false "每页条数" default(20)
// @Success 200 {object} util.Response{data=service.SubmissionPage} "成功"
// @Router /api/submissions [get]
func (c *SubmissionController) ListSubmissions(ctx *gin.Context) {
	var req service.SubmissionListRequest
	if err := ctx.ShouldBindQuery(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	v, ok := currentViewer(ctx, c.UserService)
	if !ok {
		return
	}
	page, err := c.SubmissionService.List(v, &req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, page)
}

// GetSubmission godoc
// @Summary 提交详情
// @Tags 提交
// @Produce  json
// @Param   id path int true "提交ID"
// @Success 200 {object} util.Response{data=model.Submission} "成功"
// @Failure 404 {object} util.Response "提交不存在或不可见"
// @Router /api/submissions/{id} [get]
func (c *SubmissionController) GetSubmission(ctx *gin.Context) {
	v, ok := currentViewer(ctx, c.UserService)
	if !ok {
		return
	}
	sub, err := c.SubmissionService.Get(v, util.MustParseUint(ctx.Param("id")))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, sub)
}
