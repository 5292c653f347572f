package controller

import (
	"emath_backend/internal/service"
	"emath_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type ProblemController struct {
	ProblemService *service.ProblemService
	UserService    *service.UserService
}

func NewProblemController(problemService *service.ProblemService, userService *service.UserService) *ProblemController {
	return &ProblemController{
		ProblemService: problemService,
		UserService:    userService,
	}
}

// ListProblems godoc
// @Summary 题目列表
// @Description 只返回当前用户可见的题目
// @Tags 题目
// @Produce  json
// @Param   search query string false "按代码或名称搜索"
// @Param   group query int false "题目分组"
// @Param   difficulty query string false "难度"
// @Param   page query int false "页码" default(1)
// @Param   limit query int false "每页条数" default(20)
// @Success 200 {object} util.Response{data=util.PageResponse} "成功"
// @Router /api/problems [get]
func (c *ProblemController) ListProblems(ctx *gin.Context) {
	var req service.ProblemListRequest
	if err := ctx.ShouldBindQuery(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	v, ok := currentViewer(ctx, c.UserService)
	if !ok {
		return
	}
	problems, total, err := c.ProblemService.List(v, &req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	page, limit := util.ClampPage(req.Page, req.Limit)
	util.Success(ctx, pageResponse(problems, total, page, limit))
}

// GetProblem godoc
// @Summary 题目详情
// @Tags 题目
// @Produce  json
// @Param   code path string true "题目代码"
// @Success 200 {object} util.Response{data=service.ProblemDetail} "成功"
// @Failure 404 {object} util.Response "题目不存在"
// @Router /api/problems/{code} [get]
func (c *ProblemController) GetProblem(ctx *gin.Context) {
	v, ok := currentViewer(ctx, c.UserService)
	if !ok {
		return
	}
	detail, err := c.ProblemService.Get(v, ctx.Param("code"))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, detail)
}

// CreateProblem godoc
// @Summary 创建题目
// @Tags 题目
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body service.ProblemRequest true "题目"
// @Success 201 {object} util.Response{data=model.Problem} "创建成功"
// @Failure 400 {object} util.Response "答案校验失败"
// @Failure 403 {object} util.Response "权限不足"
// @Router /api/problems [post]
func (c *ProblemController) CreateProblem(ctx *gin.Context) {
	var req service.ProblemRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	v, ok := currentViewer(ctx, c.UserService)
	if !ok {
		return
	}
	problem, err := c.ProblemService.Create(v, &req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, problem)
}

// UpdateProblem godoc
// @Summary 更新题目
// @Tags 题目
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   code path string true "题目代码"
// @Param   body body service.ProblemRequest true "题目"
// @Success 200 {object} util.Response{data=model.Problem} "成功"
// @Failure 400 {object} util.Response "答案校验失败"
// @Failure 403 {object} util.Response "权限不足"
// @Router /api/problems/{code} [put]
func (c *ProblemController) UpdateProblem(ctx *gin.Context) {
	var req service.ProblemRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	v, ok := currentViewer(ctx, c.UserService)
	if !ok {
		return
	}
	problem, err := c.ProblemService.Update(v, ctx.Param("code"), &req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, problem)
}

// ListGroups godoc
// @Summary 题目分组
// @Tags 题目
// @Produce  json
// @Success 200 {object} util.Response{data=[]model.ProblemGroup} "成功"
// @Router /api/problem-groups [get]
func (c *ProblemController) ListGroups(ctx *gin.Context) {
	groups, err := c.ProblemService.Groups()
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, groups)
}

// CreateGroup godoc
// @Summary 创建题目分组
// @Tags 题目
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body service.ProblemGroupRequest true "分组"
// @Success 201 {object} util.Response{data=model.ProblemGroup} "创建成功"
// @Router /api/problem-groups [post]
func (c *ProblemController) CreateGroup(ctx *gin.Context) {
	var req service.ProblemGroupRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	v, ok := currentViewer(ctx, c.UserService)
	if !ok {
		return
	}
	group, err := c.ProblemService.CreateGroup(v, &req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, group)
}

// ListLevels godoc
// @Summary 等级列表
// @Tags 题目
// @Produce  json
// @Success 200 {object} util.Response{data=[]model.Level} "成功"
// @Router /api/levels [get]
func (c *ProblemController) ListLevels(ctx *gin.Context) {
	levels, err := c.ProblemService.Levels()
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, levels)
}

// CreateLevel godoc
// @Summary 创建等级
// @Tags 题目
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body service.LevelRequest true "等级"
// @Success 201 {object} util.Response{data=model.Level} "创建成功"
// @Router /api/levels [post]
func (c *ProblemController) CreateLevel(ctx *gin.Context) {
	var req service.LevelRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	v, ok := currentViewer(ctx, c.UserService)
	if !ok {
		return
	}
	level, err := c.ProblemService.CreateLevel(v, &req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, level)
}
