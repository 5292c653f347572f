package controller

import (
	"emath_backend/internal/service"
	"emath_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type ContestController struct {
	ContestService    *service.ContestService
	SubmissionService *service.SubmissionService
	UserService       *service.UserService
	Hub               *service.ScoreboardHub
}

func NewContestController(
	contestService *service.ContestService,
	submissionService *service.SubmissionService,
	userService *service.UserService,
	hub *service.ScoreboardHub,
) *ContestController {
	return &ContestController{
		ContestService:    contestService,
		SubmissionService: submissionService,
		UserService:       userService,
		Hub:               hub,
	}
}

// ListContests godoc
// @Summary 比赛列表
// @Description 按进行中、未开始、已结束分组返回当前用户可见的比赛
// @Tags 比赛
// @Produce  json
// @Success 200 {object} util.Response{data=service.ContestList} "成功"
// @Router /api/contests [get]
func (c *ContestController) ListContests(ctx *gin.Context) {
	v, ok := currentViewer(ctx, c.UserService)
	if !ok {
		return
	}
	list, err := c.ContestService.List(v)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, list)
}

// ListFormats godoc
// @Summary 比赛赛制
// @Tags 比赛
// @Produce  json
// @Success 200 {object} util.Response{data=[]contestformat.Choice} "成功"
// @Router /api/contest-formats [get]
func (c *ContestController) ListFormats(ctx *gin.Context) {
	util.Success(ctx, c.ContestService.ListFormats())
}

// GetContest godoc
// @Summary 比赛详情
// @Tags 比赛
// @Produce  json
// @Param   key path string true "比赛代码"
// @Success 200 {object} util.Response{data=service.ContestDetail} "成功"
// @Failure 403 {object} util.Response{data=util.PrivateContestError} "私有比赛"
// @Failure 404 {object} util.Response "比赛不存在"
// @Router /api/contests/{key} [get]
func (c *ContestController) GetContest(ctx *gin.Context) {
	v, ok := currentViewer(ctx, c.UserService)
	if !ok {
		return
	}
	detail, err := c.ContestService.Get(v, ctx.Param("key"))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, detail)
}

// CreateContest godoc
// @Summary 创建比赛
// @Tags 比赛
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body service.ContestRequest true "比赛"
// @Success 201 {object} util.Response{data=model.Contest} "创建成功"
// @Failure 400 {object} util.Response "校验失败"
// @Failure 403 {object} util.Response "权限不足"
// @Router /api/contests [post]
func (c *ContestController) CreateContest(ctx *gin.Context) {
	var req service.ContestRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	v, ok := currentViewer(ctx, c.UserService)
	if !ok {
		return
	}
	contest, err := c.ContestService.Create(v, &req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, contest)
}

// UpdateContest godoc
// @Summary 更新比赛
// @Description 保存后重新计算全部参赛成绩
// @Tags 比赛
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   key path string true "比赛代码"
// @Param   body body service.ContestRequest true "比赛"
// @Success 200 {object} util.Response{data=model.Contest} "成功"
// @Failure 403 {object} util.Response "权限不足"
// @Router /api/contests/{key} [put]
func (c *ContestController) UpdateContest(ctx *gin.Context) {
	var req service.ContestRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	v, ok := currentViewer(ctx, c.UserService)
	if !ok {
		return
	}
	contest, err := c.ContestService.Update(ctx.Request.Context(), v, ctx.Param("key"), &req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, contest)
}

type JoinContestRequest struct {
	AccessCode string `json:"accessCode"`
}

// Join godoc
// @Summary 加入比赛
// @Description 比赛进行中为正式参赛，结束后为虚拟参赛
// @Tags 比赛
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   key path string true "比赛代码"
// @Param   body body JoinContestRequest false "访问码"
// @Success 200 {object} util.Response{data=model.ContestParticipation} "成功"
// @Failure 403 {object} util.Response "被禁止或需要访问码"
// @Failure 409 {object} util.Response "已在其他比赛中"
// @Router /api/contests/{key}/join [post]
func (c *ContestController) Join(ctx *gin.Context) {
	var req JoinContestRequest
	if ctx.Request.ContentLength > 0 {
		if err := ctx.ShouldBindJSON(&req); err != nil {
			util.BadRequest(ctx, err.Error())
			return
		}
	}
	v, ok := currentViewer(ctx, c.UserService)
	if !ok {
		return
	}
	participation, err := c.ContestService.Join(ctx.Request.Context(), v, ctx.Param("key"), req.AccessCode)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, participation)
}

// Leave godoc
// @Summary 离开比赛
// @Tags 比赛
// @Produce  json
// @Security ApiKeyAuth
// @Param   key path string true "比赛代码"
// @Success 200 {object} util.Response "成功"
// @Failure 404 {object} util.Response "不在该比赛中"
// @Router /api/contests/{key}/leave [post]
func (c *ContestController) Leave(ctx *gin.Context) {
	v, ok := currentViewer(ctx, c.UserService)
	if !ok {
		return
	}
	if err := c.ContestService.Leave(v, ctx.Param("key")); err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// Ranking godoc
// @Summary 比赛排名
// @Tags 比赛
// @Produce  json
// @Param   key path string true "比赛代码"
// @Success 200 {object} util.Response{data=service.Ranking} "成功"
// @Failure 404 {object} util.Response "比赛不存在或排名不可见"
// @Router /api/contests/{key}/ranking [get]
func (c *ContestController) Ranking(ctx *gin.Context) {
	v, ok := currentViewer(ctx, c.UserService)
	if !ok {
		return
	}
	ranking, err := c.ContestService.Ranking(ctx.Request.Context(), v, ctx.Param("key"))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, ranking)
}

// StartTask godoc
// @Summary 开始答题
// @Description 返回待提交的答卷及乱序后的题目
// @Tags 比赛
// @Produce  json
// @Security ApiKeyAuth
// @Param   key path string true "比赛代码"
// @Success 200 {object} util.Response{data=service.Task} "成功"
// @Failure 400 {object} util.Response "比赛未开始或已结束"
// @Router /api/contests/{key}/tasks [get]
func (c *ContestController) StartTask(ctx *gin.Context) {
	v, ok := currentViewer(ctx, c.UserService)
	if !ok {
		return
	}
	task, err := c.SubmissionService.StartContestTask(v, ctx.Param("key"))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, task)
}

// SubmitTask godoc
// @Summary 提交答卷
// @Tags 比赛
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   key path string true "比赛代码"
// @Param   body body service.SubmitTaskRequest true "答案"
// @Success 200 {object} util.Response{data=model.Submission} "评分结果"
// @Failure 409 {object} util.Response "重复提交"
// @Router /api/contests/{key}/submit [post]
func (c *ContestController) SubmitTask(ctx *gin.Context) {
	var req service.SubmitTaskRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	v, ok := currentViewer(ctx, c.UserService)
	if !ok {
		return
	}
	sub, err := c.SubmissionService.SubmitContestTask(ctx.Request.Context(), v, ctx.Param("key"), &req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, sub)
}

// GetEditorial godoc
// @Summary 比赛题解
// @Tags 比赛
// @Produce  json
// @Param   key path string true "比赛代码"
// @Success 200 {object} util.Response{data=model.ContestSolution} "成功"
// @Failure 404 {object} util.Response "题解不可见"
// @Router /api/contests/{key}/editorial [get]
func (c *ContestController) GetEditorial(ctx *gin.Context) {
	v, ok := currentViewer(ctx, c.UserService)
	if !ok {
		return
	}
	solution, err := c.ContestService.Editorial(v, ctx.Param("key"))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, solution)
}

// SaveEditorial godoc
// @Summary 保存比赛题解
// @Tags 比赛
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   key path string true "比赛代码"
// @Param   body body service.EditorialRequest true "题解"
// @Success 200 {object} util.Response{data=model.ContestSolution} "成功"
// @Failure 403 {object} util.Response "权限不足"
// @Router /api/contests/{key}/editorial [put]
func (c *ContestController) SaveEditorial(ctx *gin.Context) {
	var req service.EditorialRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	v, ok := currentViewer(ctx, c.UserService)
	if !ok {
		return
	}
	solution, err := c.ContestService.SaveEditorial(v, ctx.Param("key"), &req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, solution)
}

type DisqualifyRequest struct {
	Disqualified bool `json:"disqualified"`
}

// Disqualify godoc
// @Summary 取消或恢复参赛资格
// @Tags 比赛
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   key path string true "比赛代码"
// @Param   id path int true "参赛记录ID"
// @Param   body body DisqualifyRequest true "是否取消资格"
// @Success 200 {object} util.Response{data=model.ContestParticipation} "成功"
// @Failure 403 {object} util.Response "权限不足"
// @Router /api/contests/{key}/participations/{id}/disqualify [post]
func (c *ContestController) Disqualify(ctx *gin.Context) {
	var req DisqualifyRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	v, ok := currentViewer(ctx, c.UserService)
	if !ok {
		return
	}
	id := util.MustParseUint(ctx.Param("id"))
	p, err := c.ContestService.SetDisqualified(ctx.Request.Context(), v, ctx.Param("key"), id, req.Disqualified)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, p)
}

// Rejudge godoc
// @Summary 重新评测比赛
// @Tags 比赛
// @Produce  json
// @Security ApiKeyAuth
// @Param   key path string true "比赛代码"
// @Success 200 {object} util.Response{data=object} "重新评测的提交数"
// @Failure 403 {object} util.Response "权限不足"
// @Router /api/contests/{key}/rejudge [post]
func (c *ContestController) Rejudge(ctx *gin.Context) {
	v, ok := currentViewer(ctx, c.UserService)
	if !ok {
		return
	}
	n, err := c.ContestService.Rejudge(ctx.Request.Context(), v, ctx.Param("key"))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"rejudged": n})
}

// ScoreboardWS godoc
// @Summary 排名实时推送
// @Description 排名变化时推送 ranking_changed 消息，token 通过查询参数传递
// @Tags 比赛
// @Param   key path string true "比赛代码"
// @Param   token query string false "JWT"
// @Router /api/contests/{key}/ws [get]
func (c *ContestController) ScoreboardWS(ctx *gin.Context) {
	v, ok := currentViewer(ctx, c.UserService)
	if !ok {
		return
	}
	if _, err := c.ContestService.Ranking(ctx.Request.Context(), v, ctx.Param("key")); err != nil {
		util.HandleError(ctx, err)
		return
	}
	detail, err := c.ContestService.Get(v, ctx.Param("key"))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	var userID uint
	if v != nil {
		userID = v.UserID
	}
	service.ServeScoreboardWs(c.Hub, ctx.Writer, ctx.Request, detail.Contest.ID, userID)
}
