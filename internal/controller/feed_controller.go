package controller

import (
	"errors"
	"strconv"

	"peekify_backend/internal/service"
	"peekify_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type FeedController struct {
	FeedService *service.FeedService
}

func NewFeedController(feedService *service.FeedService) *FeedController {
	return &FeedController{FeedService: feedService}
}

// @Summary 动态流
// @Description 自己和好友的动态，按时间倒序
// @Tags 动态
// @Produce json
// @Security BearerAuth
// @Param limit query int false "每页数量" default(20)
// @Param offset query int false "偏移量" default(0)
// @Success 200 {object} util.Response
// @Router /api/feed [get]
func (c *FeedController) GetFeed(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(ctx.DefaultQuery("offset", "0"))

	items, total, err := c.FeedService.GetFeed(claims.UserID, limit, offset)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{
		"items":  items,
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}

// @Summary 用户动态
// @Description 指定用户的动态，受隐私级别限制
// @Tags 动态
// @Produce json
// @Security BearerAuth
// @Param id path int true "用户ID"
// @Param limit query int false "每页数量" default(20)
// @Param offset query int false "偏移量" default(0)
// @Success 200 {object} util.Response
// @Router /api/feed/user/{id} [get]
func (c *FeedController) GetUserFeed(ctx *gin.Context) {
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

	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(ctx.DefaultQuery("offset", "0"))

	items, total, err := c.FeedService.GetUserFeed(claims.UserID, uint(targetID), limit, offset)
	if err != nil {
		switch {
		case errors.Is(err, util.ErrUserNotFound):
			util.NotFound(ctx, err.Error())
		case errors.Is(err, util.ErrPermissionDenied):
			util.Forbidden(ctx, "该用户的动态不公开")
		default:
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Success(ctx, gin.H{
		"items":  items,
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}

// @Summary 动态详情
// @Tags 动态
// @Produce json
// @Security BearerAuth
// @Param id path string true "动态ID"
// @Success 200 {object} util.Response
// @Router /api/feed/{id} [get]
func (c *FeedController) GetFeedItem(ctx *gin.Context) {
	item, err := c.FeedService.GetFeedItem(ctx.Param("id"))
	if err != nil {
		if errors.Is(err, util.ErrFeedItemNotFound) {
			util.NotFound(ctx, err.Error())
			return
		}
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, item)
}

type createFeedItemRequest struct {
	Type    string                 `json:"type" binding:"required"`
	Content map[string]interface{} `json:"content" binding:"required"`
}

// @Summary 发布动态
// @Description 手动发布一条动态（每日单曲通常由后台任务自动发布）
// @Tags 动态
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param item body createFeedItemRequest true "动态内容"
// @Success 201 {object} util.Response
// @Router /api/feed [post]
func (c *FeedController) CreateFeedItem(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var req createFeedItemRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	item, err := c.FeedService.CreateFeedItem(claims.UserID, req.Type, req.Content)
	if err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	util.Created(ctx, item)
}
