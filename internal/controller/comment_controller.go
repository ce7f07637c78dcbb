package controller

import (
	"errors"

	"peekify_backend/internal/service"
	"peekify_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type CommentController struct {
	CommentService *service.CommentService
}

func NewCommentController(commentService *service.CommentService) *CommentController {
	return &CommentController{CommentService: commentService}
}

type addCommentRequest struct {
	Content string `json:"content" binding:"required"`
}

// @Summary 发表评论
// @Tags 评论
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "动态ID"
// @Param comment body addCommentRequest true "评论内容"
// @Success 201 {object} util.Response
// @Router /api/feed/{id}/comments [post]
func (c *CommentController) AddComment(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var req addCommentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, "评论内容不能为空")
		return
	}

	view, err := c.CommentService.AddComment(claims.UserID, ctx.Param("id"), req.Content)
	if err != nil {
		switch {
		case errors.Is(err, util.ErrFeedItemNotFound):
			util.NotFound(ctx, err.Error())
		case errors.Is(err, util.ErrEmptyContent):
			util.BadRequest(ctx, err.Error())
		default:
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Created(ctx, view)
}

// @Summary 评论列表
// @Description 指定动态的全部评论，按时间正序
// @Tags 评论
// @Produce json
// @Security BearerAuth
// @Param id path string true "动态ID"
// @Success 200 {object} util.Response
// @Router /api/feed/{id}/comments [get]
func (c *CommentController) GetComments(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	views, err := c.CommentService.GetComments(claims.UserID, ctx.Param("id"))
	if err != nil {
		if errors.Is(err, util.ErrFeedItemNotFound) {
			util.NotFound(ctx, err.Error())
			return
		}
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"comments": views})
}

// @Summary 删除评论
// @Description 只能删除自己发表的评论
// @Tags 评论
// @Produce json
// @Security BearerAuth
// @Param id path string true "评论ID"
// @Success 200 {object} util.Response
// @Router /api/comments/{id} [delete]
func (c *CommentController) DeleteComment(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	err := c.CommentService.DeleteComment(claims.UserID, ctx.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, util.ErrCommentNotFound):
			util.NotFound(ctx, err.Error())
		case errors.Is(err, util.ErrPermissionDenied):
			util.Forbidden(ctx, "只能删除自己的评论")
		default:
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Success(ctx, nil)
}

// @Summary 点赞/取消点赞
// @Description 开关式点赞，重复调用在点赞和取消之间切换
// @Tags 评论
// @Produce json
// @Security BearerAuth
// @Param id path string true "评论ID"
// @Success 200 {object} util.Response
// @Router /api/comments/{id}/like [post]
func (c *CommentController) ToggleLike(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	liked, likeCount, err := c.CommentService.ToggleLike(claims.UserID, ctx.Param("id"))
	if err != nil {
		if errors.Is(err, util.ErrCommentNotFound) {
			util.NotFound(ctx, err.Error())
			return
		}
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{
		"liked":     liked,
		"likeCount": likeCount,
	})
}

// @Summary 点赞的人
// @Description 点过赞的用户列表，最近点赞的在前
// @Tags 评论
// @Produce json
// @Security BearerAuth
// @Param id path string true "评论ID"
// @Success 200 {object} util.Response
// @Router /api/comments/{id}/likes [get]
func (c *CommentController) GetLikers(ctx *gin.Context) {
	users, err := c.CommentService.GetLikers(ctx.Param("id"))
	if err != nil {
		if errors.Is(err, util.ErrCommentNotFound) {
			util.NotFound(ctx, err.Error())
			return
		}
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"users": users})
}
