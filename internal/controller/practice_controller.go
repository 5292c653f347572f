package controller

import (
	"emath_backend/internal/service"
	"emath_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type PracticeController struct {
	PracticeService   *service.PracticeService
	SubmissionService *service.SubmissionService
	UserService       *service.UserService
}

func NewPracticeController(
	practiceService *service.PracticeService,
	submissionService *service.SubmissionService,
	userService *service.UserService,
) *PracticeController {
	return &PracticeController{
		PracticeService:   practiceService,
		SubmissionService: submissionService,
		UserService:       userService,
	}
}

// ListPractices godoc
// @Summary 我的练习
// @Tags 练习
// @Produce  json
// @Security ApiKeyAuth
// @Param   page query int false "页码" default(1)
// @Param   limit query int false "每页条数" default(20)
// @Success 200 {object} util.Response{data=util.PageResponse} "成功"
// @Router /api/practice [get]
func (c *PracticeController) ListPractices(ctx *gin.Context) {
	v, ok := currentViewer(ctx, c.UserService)
	if !ok {
		return
	}
	page, limit := util.Pagination(ctx)
	practices, total, err := c.PracticeService.List(v, page, limit)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, pageResponse(practices, total, page, limit))
}

// CreatePractice godoc
// @Summary 生成练习
// @Description 按难度档位从指定等级的公开题目中随机组卷
// @Tags 练习
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body service.CreatePracticeRequest true "等级"
// @Success 201 {object} util.Response{data=model.Practice} "创建成功"
// @Failure 400 {object} util.Response "等级不存在或没有题目"
// @Router /api/practice [post]
func (c *PracticeController) CreatePractice(ctx *gin.Context) {
	var req service.CreatePracticeRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	v, ok := currentViewer(ctx, c.UserService)
	if !ok {
		return
	}
	practice, err := c.PracticeService.CreatePractice(v, &req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, practice)
}

// GetPractice godoc
// @Summary 练习详情
// @Tags 练习
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "练习ID"
// @Success 200 {object} util.Response{data=model.Practice} "成功"
// @Router /api/practice/{id} [get]
func (c *PracticeController) GetPractice(ctx *gin.Context) {
	v, ok := currentViewer(ctx, c.UserService)
	if !ok {
		return
	}
	practice, err := c.PracticeService.Get(v, util.MustParseUint(ctx.Param("id")))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, practice)
}

// StartTask godoc
// @Summary 开始练习
// @Tags 练习
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "练习ID"
// @Success 200 {object} util.Response{data=service.Task} "成功"
// @Router /api/practice/{id}/tasks [get]
func (c *PracticeController) StartTask(ctx *gin.Context) {
	v, ok := currentViewer(ctx, c.UserService)
	if !ok {
		return
	}
	task, err := c.SubmissionService.StartPracticeTask(v, util.MustParseUint(ctx.Param("id")))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, task)
}

// SubmitTask godoc
// @Summary 提交练习
// @Tags 练习
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "练习ID"
// @Param   body body service.SubmitTaskRequest true "答案"
// @Success 200 {object} util.Response{data=model.Submission} "评分结果"
// @Failure 409 {object} util.Response "重复提交"
// @Router /api/practice/{id}/submit [post]
func (c *PracticeController) SubmitTask(ctx *gin.Context) {
	var req service.SubmitTaskRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	v, ok := currentViewer(ctx, c.UserService)
	if !ok {
		return
	}
	sub, err := c.SubmissionService.SubmitPracticeTask(ctx.Request.Context(), v, util.MustParseUint(ctx.Param("id")), &req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, sub)
}
