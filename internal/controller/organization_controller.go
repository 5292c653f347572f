package controller

import (
	"emath_backend/internal/service"
	"emath_backend/internal/util"
	"io"

	"github.com/gin-gonic/gin"
)

type OrganizationController struct {
	OrganizationService *service.OrganizationService
	UserService         *service.UserService
}

func NewOrganizationController(organizationService *service.OrganizationService, userService *service.UserService) *OrganizationController {
	return &OrganizationController{
		OrganizationService: organizationService,
		UserService:         userService,
	}
}

// ListOrganizations godoc
// @Summary 组织列表
// @Tags 组织
// @Produce  json
// @Param   page query int false "页码" default(1)
// @Param   limit query int false "每页条数" default(20)
// @Success 200 {object} util.Response{data=util.PageResponse} "成功"
// @Router /api/organizations [get]
func (c *OrganizationController) ListOrganizations(ctx *gin.Context) {
	page, limit := util.Pagination(ctx)
	orgs, total, err := c.OrganizationService.List(page, limit)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, pageResponse(orgs, total, page, limit))
}

// GetOrganization godoc
// @Summary 组织详情
// @Tags 组织
// @Produce  json
// @Param   slug path string true "组织标识"
// @Success 200 {object} util.Response{data=service.OrganizationDetail} "成功"
// @Failure 404 {object} util.Response "组织不存在"
// @Router /api/organizations/{slug} [get]
func (c *OrganizationController) GetOrganization(ctx *gin.Context) {
	v, ok := currentViewer(ctx, c.UserService)
	if !ok {
		return
	}
	detail, err := c.OrganizationService.Get(v, ctx.Param("slug"))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, detail)
}

// CreateOrganization godoc
// @Summary 创建组织
// @Tags 组织
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body service.OrganizationRequest true "组织信息"
// @Success 201 {object} util.Response{data=model.Organization} "创建成功"
// @Failure 403 {object} util.Response "权限不足"
// @Failure 409 {object} util.Response "标识已存在"
// @Router /api/organizations [post]
func (c *OrganizationController) CreateOrganization(ctx *gin.Context) {
	var req service.OrganizationRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	v, ok := currentViewer(ctx, c.UserService)
	if !ok {
		return
	}
	org, err := c.OrganizationService.Create(v, &req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, org)
}

// UpdateOrganization godoc
// @Summary 更新组织
// @Tags 组织
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   slug path string true "组织标识"
// @Param   body body service.OrganizationRequest true "组织信息"
// @Success 200 {object} util.Response{data=model.Organization} "成功"
// @Failure 403 {object} util.Response "权限不足"
// @Router /api/organizations/{slug} [put]
func (c *OrganizationController) UpdateOrganization(ctx *gin.Context) {
	var req service.OrganizationRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	v, ok := currentViewer(ctx, c.UserService)
	if !ok {
		return
	}
	org, err := c.OrganizationService.Update(v, ctx.Param("slug"), &req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, org)
}

// ListMembers godoc
// @Summary 组织成员
// @Tags 组织
// @Produce  json
// @Param   slug path string true "组织标识"
// @Param   page query int false "页码" default(1)
// @Param   limit query int false "每页条数" default(20)
// @Success 200 {object} util.Response{data=util.PageResponse} "成功"
// @Router /api/organizations/{slug}/members [get]
func (c *OrganizationController) ListMembers(ctx *gin.Context) {
	page, limit := util.Pagination(ctx)
	users, total, err := c.OrganizationService.Members(ctx.Param("slug"), page, limit)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, pageResponse(users, total, page, limit))
}

// Join godoc
// @Summary 加入组织
// @Description 开放组织直接加入；封闭组织需要邀请码，否则提交申请
// @Tags 组织
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   slug path string true "组织标识"
// @Param   body body service.JoinOrganizationRequest false "邀请码或申请理由"
// @Success 200 {object} util.Response{data=service.JoinResult} "成功"
// @Failure 409 {object} util.Response "已是成员或名额已满"
// @Router /api/organizations/{slug}/join [post]
func (c *OrganizationController) Join(ctx *gin.Context) {
	var req service.JoinOrganizationRequest
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
	result, err := c.OrganizationService.Join(v, ctx.Param("slug"), &req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, result)
}

// Leave godoc
// @Summary 退出组织
// @Tags 组织
// @Produce  json
// @Security ApiKeyAuth
// @Param   slug path string true "组织标识"
// @Success 200 {object} util.Response "成功"
// @Router /api/organizations/{slug}/leave [post]
func (c *OrganizationController) Leave(ctx *gin.Context) {
	v, ok := currentViewer(ctx, c.UserService)
	if !ok {
		return
	}
	if err := c.OrganizationService.Leave(v, ctx.Param("slug")); err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// ListRequests godoc
// @Summary 入组申请列表
// @Tags 组织
// @Produce  json
// @Security ApiKeyAuth
// @Param   slug path string true "组织标识"
// @Param   state query string false "申请状态 P/A/R"
// @Success 200 {object} util.Response{data=[]model.OrganizationRequest} "成功"
// @Failure 403 {object} util.Response "权限不足"
// @Router /api/organizations/{slug}/requests [get]
func (c *OrganizationController) ListRequests(ctx *gin.Context) {
	v, ok := currentViewer(ctx, c.UserService)
	if !ok {
		return
	}
	reqs, err := c.OrganizationService.Requests(v, ctx.Param("slug"), ctx.Query("state"))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, reqs)
}

type ReviewRequestBody struct {
	Approve bool `json:"approve"`
}

// ReviewRequest godoc
// @Summary 审核入组申请
// @Tags 组织
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   slug path string true "组织标识"
// @Param   id path int true "申请ID"
// @Param   body body ReviewRequestBody true "是否通过"
// @Success 200 {object} util.Response "成功"
// @Failure 409 {object} util.Response "名额已满或已审核"
// @Router /api/organizations/{slug}/requests/{id} [put]
func (c *OrganizationController) ReviewRequest(ctx *gin.Context) {
	var body ReviewRequestBody
	if err := ctx.ShouldBindJSON(&body); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	v, ok := currentViewer(ctx, c.UserService)
	if !ok {
		return
	}
	id := util.MustParseUint(ctx.Param("id"))
	if err := c.OrganizationService.ReviewRequest(v, ctx.Param("slug"), id, body.Approve); err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// UploadLogo godoc
// @Summary 上传组织logo
// @Tags 组织
// @Accept  multipart/form-data
// @Produce  json
// @Security ApiKeyAuth
// @Param   slug path string true "组织标识"
// @Param   file formData file true "图片文件"
// @Success 200 {object} util.Response{data=model.Organization} "成功"
// @Failure 400 {object} util.Response "文件类型或大小不符"
// @Router /api/organizations/{slug}/logo [post]
func (c *OrganizationController) UploadLogo(ctx *gin.Context) {
	fileHeader, err := ctx.FormFile("file")
	if err != nil {
		util.BadRequest(ctx, "missing file")
		return
	}
	v, ok := currentViewer(ctx, c.UserService)
	if !ok {
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	defer file.Close()

	contentType, err := util.ValidateMimeType(file, []string{util.MimeImage})
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	org, err := c.OrganizationService.UploadLogo(ctx.Request.Context(), v, ctx.Param("slug"),
		fileHeader.Filename, file, fileHeader.Size, contentType)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, org)
}
