package controller

import (
	"peekify_backend/internal/service"
	"peekify_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type NotificationController struct {
	NotificationService *service.NotificationService
}

func NewNotificationController(notificationService *service.NotificationService) *NotificationController {
	return &NotificationController{NotificationService: notificationService}
}

type subscribeRequest struct {
	Endpoint string `json:"endpoint" binding:"required"`
	Keys     struct {
		P256dh string `json:"p256dh" binding:"required"`
		Auth   string `json:"auth" binding:"required"`
	} `json:"keys" binding:"required"`
}

// @Summary 订阅推送
// @Description 登记浏览器 Web Push 订阅
// @Tags 通知
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param subscription body subscribeRequest true "浏览器订阅对象"
// @Success 201 {object} util.Response
// @Router /api/notifications/subscribe [post]
func (c *NotificationController) Subscribe(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var req subscribeRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, "订阅信息不完整")
		return
	}

	if err := c.NotificationService.Subscribe(claims.UserID, req.Endpoint, req.Keys.P256dh, req.Keys.Auth); err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Created(ctx, nil)
}

type unsubscribeRequest struct {
	Endpoint string `json:"endpoint" binding:"required"`
}

// @Summary 取消订阅
// @Tags 通知
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param subscription body unsubscribeRequest true "要取消的 endpoint"
// @Success 200 {object} util.Response
// @Router /api/notifications/unsubscribe [post]
func (c *NotificationController) Unsubscribe(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var req unsubscribeRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, "缺少 endpoint")
		return
	}

	if err := c.NotificationService.Unsubscribe(claims.UserID, req.Endpoint); err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// @Summary VAPID 公钥
// @Description 前端发起订阅时需要的服务端公钥
// @Tags 通知
// @Produce json
// @Success 200 {object} util.Response
// @Router /api/notifications/vapid-key [get]
func (c *NotificationController) VAPIDKey(ctx *gin.Context) {
	util.Success(ctx, gin.H{"publicKey": c.NotificationService.VAPIDPublicKey()})
}
