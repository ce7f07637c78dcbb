package controller

import (
	"errors"
	"io"
	"strconv"
	"strings"

	"peekify_backend/internal/service"
	"peekify_backend/internal/util"

	"github.com/gin-gonic/gin"
)

const maxAvatarSize = 5 << 20 // 5MB

type UserController struct {
	UserService *service.UserService
}

func NewUserController(userService *service.UserService) *UserController {
	return &UserController{UserService: userService}
}

// @Summary 我的资料
// @Description 获取当前用户完整资料
// @Tags 用户
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response
// @Router /api/users/me [get]
func (c *UserController) GetMe(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	user, err := c.UserService.GetUser(claims.UserID)
	if err != nil {
		if errors.Is(err, util.ErrUserNotFound) {
			util.NotFound(ctx, err.Error())
			return
		}
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, user)
}

// @Summary 更新资料
// @Description 局部更新昵称、用户名、简介、隐私级别、时区和通知时间
// @Tags 用户
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param profile body service.UpdateProfileRequest true "要更新的字段"
// @Success 200 {object} util.Response
// @Router /api/users/me [patch]
func (c *UserController) UpdateMe(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var req service.UpdateProfileRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	user, err := c.UserService.UpdateProfile(claims.UserID, &req)
	if err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	util.Success(ctx, user)
}

// @Summary 上传头像
// @Description 上传新头像，仅支持图片，最大 5MB
// @Tags 用户
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param avatar formData file true "头像文件"
// @Success 200 {object} util.Response
// @Router /api/users/me/avatar [post]
func (c *UserController) UploadAvatar(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	file, header, err := ctx.Request.FormFile("avatar")
	if err != nil {
		util.BadRequest(ctx, "缺少头像文件")
		return
	}
	defer file.Close()

	if header.Size > maxAvatarSize {
		util.BadRequest(ctx, "头像文件不能超过 5MB")
		return
	}

	contentType := header.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		util.BadRequest(ctx, "只支持图片文件")
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, maxAvatarSize))
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	url, err := c.UserService.UpdateAvatar(claims.UserID, data, header.Filename, contentType)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"avatarUrl": url})
}

// @Summary 用户主页
// @Description 查看其他用户的公开主页，受隐私级别限制
// @Tags 用户
// @Produce json
// @Security BearerAuth
// @Param id path int true "用户ID"
// @Success 200 {object} util.Response
// @Router /api/users/{id} [get]
func (c *UserController) GetProfile(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	targetID, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		util.BadRequest(ctx, "无效的用户ID")
		return
	}

	profile, err := c.UserService.GetPublicProfile(claims.UserID, uint(targetID))
	if err != nil {
		switch {
		case errors.Is(err, util.ErrUserNotFound):
			util.NotFound(ctx, err.Error())
		case errors.Is(err, util.ErrPermissionDenied):
			util.Forbidden(ctx, "该用户的主页不公开")
		default:
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Success(ctx, profile)
}

// @Summary 搜索用户
// @Description 按用户名或昵称搜索，关键词至少 2 个字符
// @Tags 用户
// @Produce json
// @Security BearerAuth
// @Param q query string true "搜索关键词"
// @Param limit query int false "返回数量" default(20)
// @Success 200 {object} util.Response
// @Router /api/users/search [get]
func (c *UserController) Search(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "20"))
	profiles, err := c.UserService.SearchUsers(claims.UserID, ctx.Query("q"), limit)
	if err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	util.Success(ctx, gin.H{"users": profiles})
}
