package controller

import (
	"net/url"

	"peekify_backend/internal/config"
	"peekify_backend/internal/service"
	"peekify_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type AuthController struct {
	AuthService *service.AuthService
	Cfg         *config.Config
}

func NewAuthController(authService *service.AuthService, cfg *config.Config) *AuthController {
	return &AuthController{AuthService: authService, Cfg: cfg}
}

// @Summary Spotify 登录
// @Description 跳转到 Spotify 授权页面
// @Tags 认证
// @Produce json
// @Success 307
// @Router /api/auth/login [get]
func (c *AuthController) Login(ctx *gin.Context) {
	authURL, err := c.AuthService.LoginURL(ctx.Request.Context())
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	ctx.Redirect(307, authURL)
}

// @Summary 授权回调
// @Description Spotify 授权完成后的回调，换取站内令牌并跳回前端
// @Tags 认证
// @Produce json
// @Param code query string true "授权码"
// @Param state query string true "防 CSRF 状态码"
// @Router /api/auth/callback [get]
func (c *AuthController) Callback(ctx *gin.Context) {
	if errMsg := ctx.Query("error"); errMsg != "" {
		ctx.Redirect(302, c.Cfg.Spotify.FrontendURL+"/login?error="+url.QueryEscape(errMsg))
		return
	}

	code := ctx.Query("code")
	state := ctx.Query("state")
	if code == "" || state == "" {
		util.BadRequest(ctx, "缺少 code 或 state 参数")
		return
	}

	token, _, err := c.AuthService.HandleCallback(ctx.Request.Context(), code, state)
	if err != nil {
		ctx.Redirect(302, c.Cfg.Spotify.FrontendURL+"/login?error="+url.QueryEscape(err.Error()))
		return
	}

	ctx.Redirect(302, c.Cfg.Spotify.FrontendURL+"/auth/success?token="+url.QueryEscape(token))
}

// @Summary 当前用户
// @Description 获取当前登录用户信息
// @Tags 认证
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response
// @Router /api/auth/me [get]
func (c *AuthController) Me(ctx *gin.Context) {
	user := c.AuthService.GetCurrentUser(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}
	util.Success(ctx, user)
}

// @Summary 退出登录
// @Description 删除服务端保存的 Spotify 令牌
// @Tags 认证
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response
// @Router /api/auth/logout [post]
func (c *AuthController) Logout(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}
	if err := c.AuthService.Logout(claims.UserID); err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}
