package util

import (
	"emath_backend/pkg/logger"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Response 统一响应结构
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// PageResponse 分页响应结构
type PageResponse struct {
	List  interface{} `json:"list"`
	Total int64       `json:"total"`
	Page  int         `json:"page"`
	Limit int         `json:"limit"`
}

// PrivateContestError 私有比赛的提示信息，返回 403 并附带加入所需条件
type PrivateContestError struct {
	Name                  string   `json:"name"`
	IsPrivate             bool     `json:"isPrivate"`
	IsOrganizationPrivate bool     `json:"isOrganizationPrivate"`
	Organizations         []string `json:"organizations,omitempty"`
}

func (e *PrivateContestError) Error() string {
	return ErrContestPrivate.Error() + ": " + e.Name
}

func (e *PrivateContestError) Unwrap() error {
	return ErrContestPrivate
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    http.StatusOK,
		Message: "success",
		Data:    data,
	})
}

func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{
		Code:    http.StatusCreated,
		Message: "created",
		Data:    data,
	})
}

func Error(c *gin.Context, code int, message string) {
	c.JSON(code, Response{
		Code:    code,
		Message: message,
	})
}

func Unauthorized(c *gin.Context) {
	Error(c, http.StatusUnauthorized, "Unauthorized")
}

func Forbidden(c *gin.Context) {
	Error(c, http.StatusForbidden, "Forbidden")
}

func BadRequest(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, message)
}

func NotFound(c *gin.Context) {
	Error(c, http.StatusNotFound, "Resource not found")
}

func InternalServerError(c *gin.Context) {
	Error(c, http.StatusInternalServerError, "Internal server error")
}

func LogInternalError(c *gin.Context, err error) {
	logger.Log.Error("Internal server error",
		zap.String("path", c.FullPath()),
		zap.Error(err),
	)
	InternalServerError(c)
}

// HTTPStatusFromError 根据错误分类返回状态码
func HTTPStatusFromError(err error) int {
	switch {
	case errors.Is(err, ErrContestPrivate):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrContestInaccessible):
		return http.StatusNotFound
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// HandleError 统一处理 service 返回的错误
func HandleError(c *gin.Context, err error) {
	status := HTTPStatusFromError(err)
	if status == http.StatusInternalServerError {
		LogInternalError(c, err)
		return
	}

	var private *PrivateContestError
	if errors.As(err, &private) {
		c.JSON(status, Response{Code: status, Message: err.Error(), Data: private})
		return
	}

	if errors.Is(err, ErrContestInaccessible) {
		Error(c, status, ErrContestInaccessible.Error())
		return
	}
	Error(c, status, err.Error())
}
