package controller

import (
	"errors"
	"strconv"

	"peekify_backend/internal/service"
	"peekify_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type FriendController struct {
	FriendshipService *service.FriendshipService
}

func NewFriendController(friendshipService *service.FriendshipService) *FriendController {
	return &FriendController{FriendshipService: friendshipService}
}

type sendRequestBody struct {
	ReceiverID uint `json:"receiverId" binding:"required"`
}

// @Summary 发送好友申请
// @Description 对方已向我发过申请时直接互相成为好友
// @Tags 好友
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body sendRequestBody true "接收者"
// @Success 201 {object} util.Response
// @Router /api/friends/requests [post]
func (c *FriendController) SendRequest(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var req sendRequestBody
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, "缺少接收者 ID")
		return
	}

	request, autoAccepted, err := c.FriendshipService.SendRequest(claims.UserID, req.ReceiverID)
	if err != nil {
		switch {
		case errors.Is(err, util.ErrUserNotFound):
			util.NotFound(ctx, err.Error())
		case errors.Is(err, util.ErrSelfRequest),
			errors.Is(err, util.ErrAlreadyFriends),
			errors.Is(err, util.ErrRequestPending):
			util.BadRequest(ctx, err.Error())
		default:
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Created(ctx, gin.H{
		"request":      request,
		"autoAccepted": autoAccepted,
	})
}

// @Summary 接受好友申请
// @Tags 好友
// @Produce json
// @Security BearerAuth
// @Param id path string true "申请ID"
// @Success 200 {object} util.Response
// @Router /api/friends/requests/{id}/accept [post]
func (c *FriendController) AcceptRequest(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	err := c.FriendshipService.AcceptRequest(claims.UserID, ctx.Param("id"))
	if err != nil {
		c.writeRequestError(ctx, err, "只能接受发给自己的申请")
		return
	}
	util.Success(ctx, nil)
}

// @Summary 拒绝好友申请
// @Tags 好友
// @Produce json
// @Security BearerAuth
// @Param id path string true "申请ID"
// @Success 200 {object} util.Response
// @Router /api/friends/requests/{id}/decline [post]
func (c *FriendController) DeclineRequest(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	err := c.FriendshipService.DeclineRequest(claims.UserID, ctx.Param("id"))
	if err != nil {
		c.writeRequestError(ctx, err, "只能拒绝发给自己的申请")
		return
	}
	util.Success(ctx, nil)
}

func (c *FriendController) writeRequestError(ctx *gin.Context, err error, forbiddenMsg string) {
	switch {
	case errors.Is(err, util.ErrRequestNotFound):
		util.NotFound(ctx, err.Error())
	case errors.Is(err, util.ErrPermissionDenied):
		util.Forbidden(ctx, forbiddenMsg)
	case errors.Is(err, util.ErrRequestFinalized):
		util.BadRequest(ctx, err.Error())
	default:
		util.LogInternalError(ctx, err)
	}
}

// @Summary 好友列表
// @Description 按成为好友的时间倒序
// @Tags 好友
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response
// @Router /api/friends [get]
func (c *FriendController) GetFriends(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	friends, err := c.FriendshipService.GetFriends(claims.UserID)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"friends": friends})
}

// @Summary 待处理申请
// @Description 收到的和发出的待处理好友申请
// @Tags 好友
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response
// @Router /api/friends/requests [get]
func (c *FriendController) GetRequests(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	received, sent, err := c.FriendshipService.PendingRequests(claims.UserID)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{
		"received": received,
		"sent":     sent,
	})
}

// @Summary 删除好友
// @Description 解除好友关系，双方都会从对方的好友列表消失
// @Tags 好友
// @Produce json
// @Security BearerAuth
// @Param id path int true "好友的用户ID"
// @Success 200 {object} util.Response
// @Router /api/friends/{id} [delete]
func (c *FriendController) RemoveFriend(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	friendID, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		util.BadRequest(ctx, "无效的用户ID")
		return
	}

	if err := c.FriendshipService.RemoveFriend(claims.UserID, uint(friendID)); err != nil {
		if errors.Is(err, util.ErrFriendshipNotFound) {
			util.NotFound(ctx, err.Error())
			return
		}
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}
