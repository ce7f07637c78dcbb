package controller

import (
	"errors"

	"peekify_backend/internal/service"
	"peekify_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type ReactionController struct {
	ReactionService *service.ReactionService
}

func NewReactionController(reactionService *service.ReactionService) *ReactionController {
	return &ReactionController{ReactionService: reactionService}
}

type reactionRequest struct {
	Emoji string `json:"emoji" binding:"required"`
}

// @Summary 添加表态
// @Description 给动态添加 emoji 表态，同一 emoji 不能重复
// @Tags 表态
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "动态ID"
// @Param reaction body reactionRequest true "emoji"
// @Success 201 {object} util.Response
// @Router /api/feed/{id}/reactions [post]
func (c *ReactionController) AddReaction(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var req reactionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, "emoji 不能为空")
		return
	}

	view, err := c.ReactionService.AddReaction(claims.UserID, ctx.Param("id"), req.Emoji)
	if err != nil {
		switch {
		case errors.Is(err, util.ErrFeedItemNotFound):
			util.NotFound(ctx, err.Error())
		case errors.Is(err, util.ErrAlreadyReacted):
			util.BadRequest(ctx, err.Error())
		default:
			util.BadRequest(ctx, err.Error())
		}
		return
	}
	util.Created(ctx, view)
}

// @Summary 移除表态
// @Description 撤掉自己对动态的全部表态
// @Tags 表态
// @Produce json
// @Security BearerAuth
// @Param id path string true "动态ID"
// @Success 200 {object} util.Response
// @Router /api/feed/{id}/reactions [delete]
func (c *ReactionController) RemoveReaction(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	err := c.ReactionService.RemoveReaction(claims.UserID, ctx.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, util.ErrFeedItemNotFound), errors.Is(err, util.ErrReactionNotFound):
			util.NotFound(ctx, err.Error())
		default:
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Success(ctx, nil)
}

// @Summary 表态列表
// @Description 动态的全部表态明细和按 emoji 聚合的摘要
// @Tags 表态
// @Produce json
// @Security BearerAuth
// @Param id path string true "动态ID"
// @Success 200 {object} util.Response
// @Router /api/feed/{id}/reactions [get]
func (c *ReactionController) GetReactions(ctx *gin.Context) {
	views, summary, err := c.ReactionService.GetReactions(ctx.Param("id"))
	if err != nil {
		if errors.Is(err, util.ErrFeedItemNotFound) {
			util.NotFound(ctx, err.Error())
			return
		}
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{
		"reactions": views,
		"summary":   summary,
	})
}
