package controller

import (
	"emath_backend/internal/service"
	"emath_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// ViewerLoader 根据 token 中的用户 ID 加载当前用户
type ViewerLoader interface {
	LoadViewer(userID uint) (*service.Viewer, error)
}

// currentViewer 未登录返回 nil viewer；加载失败时已写入响应，ok 为 false
func currentViewer(ctx *gin.Context, loader ViewerLoader) (v *service.Viewer, ok bool) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		return nil, true
	}
	v, err := loader.LoadViewer(claims.UserID)
	if err != nil {
		util.HandleError(ctx, err)
		return nil, false
	}
	return v, true
}

func pageResponse(list interface{}, total int64, page, limit int) util.PageResponse {
	return util.PageResponse{List: list, Total: total, Page: page, Limit: limit}
}
