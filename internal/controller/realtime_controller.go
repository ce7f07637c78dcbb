package controller

import (
	"peekify_backend/internal/service"
	"peekify_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type RealtimeController struct {
	Hub *service.EventHub
}

func NewRealtimeController(hub *service.EventHub) *RealtimeController {
	return &RealtimeController{Hub: hub}
}

// @Summary WebSocket 连接
// @Description 升级为 WebSocket，接收动态、评论、表态和好友事件
// @Tags 实时
// @Security BearerAuth
// @Router /api/ws [get]
func (c *RealtimeController) HandleWS(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}
	service.ServeWs(c.Hub, ctx.Writer, ctx.Request, claims.UserID)
}

// @Summary 在线状态
// @Description 查询某个用户是否在线
// @Tags 实时
// @Produce json
// @Security BearerAuth
// @Param id path int true "用户ID"
// @Success 200 {object} util.Response
// @Router /api/users/{id}/online [get]
func (c *RealtimeController) IsOnline(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	id, err := parseUintParam(ctx, "id")
	if err != nil {
		util.BadRequest(ctx, "无效的用户ID")
		return
	}
	util.Success(ctx, gin.H{"online": c.Hub.IsUserOnline(id)})
}
