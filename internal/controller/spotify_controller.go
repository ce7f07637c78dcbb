package controller

import (
	"errors"
	"net/http"
	"strconv"

	"peekify_backend/internal/service"
	"peekify_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type SpotifyController struct {
	Spotify *service.SpotifyClient
}

func NewSpotifyController(spotifyClient *service.SpotifyClient) *SpotifyController {
	return &SpotifyController{Spotify: spotifyClient}
}

// writeSpotifyError Spotify 错误到 HTTP 状态码的映射
func writeSpotifyError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, util.ErrNoActiveDevice):
		util.Error(ctx, http.StatusNotFound, "没有可用的播放设备")
	case errors.Is(err, util.ErrPremiumRequired):
		util.Error(ctx, http.StatusForbidden, "该操作需要 Spotify Premium")
	case errors.Is(err, util.ErrSpotifyUnauthorized):
		util.Error(ctx, http.StatusUnauthorized, "Spotify 授权已失效，请重新登录")
	default:
		util.LogInternalError(ctx, err)
	}
}

type queueRequest struct {
	TrackURI string `json:"trackUri" binding:"required"`
	DeviceID string `json:"deviceId"`
}

// @Summary 加入队列
// @Description 把曲目加入当前设备的播放队列，需要活跃设备和 Premium
// @Tags Spotify
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body queueRequest true "曲目"
// @Success 200 {object} util.Response
// @Router /api/spotify/queue [post]
func (c *SpotifyController) AddToQueue(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var req queueRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, "缺少 trackUri")
		return
	}

	if err := c.Spotify.AddToQueue(ctx.Request.Context(), claims.UserID, req.TrackURI, req.DeviceID); err != nil {
		writeSpotifyError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// @Summary 播放曲目
// @Description 在活跃设备上立即播放，需要 Premium
// @Tags Spotify
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body queueRequest true "曲目"
// @Success 200 {object} util.Response
// @Router /api/spotify/play [post]
func (c *SpotifyController) Play(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var req queueRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, "缺少 trackUri")
		return
	}

	if err := c.Spotify.Play(ctx.Request.Context(), claims.UserID, req.TrackURI, req.DeviceID); err != nil {
		writeSpotifyError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// @Summary 设备列表
// @Tags Spotify
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response
// @Router /api/spotify/devices [get]
func (c *SpotifyController) Devices(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	devices, err := c.Spotify.Devices(ctx.Request.Context(), claims.UserID)
	if err != nil {
		writeSpotifyError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"devices": devices})
}

// @Summary 正在播放
// @Description 当前正在播放的曲目，没有播放时 data 为空
// @Tags Spotify
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response
// @Router /api/spotify/currently-playing [get]
func (c *SpotifyController) CurrentlyPlaying(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	playing, err := c.Spotify.CurrentlyPlaying(ctx.Request.Context(), claims.UserID)
	if err != nil {
		writeSpotifyError(ctx, err)
		return
	}
	util.Success(ctx, playing)
}

// @Summary 曲目搜索
// @Tags Spotify
// @Produce json
// @Security BearerAuth
// @Param q query string true "搜索关键词"
// @Param type query string false "搜索类型" default(track)
// @Param limit query int false "返回数量" default(20)
// @Success 200 {object} util.Response
// @Router /api/spotify/search [get]
func (c *SpotifyController) Search(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	query := ctx.Query("q")
	if query == "" {
		util.BadRequest(ctx, "缺少搜索关键词")
		return
	}
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "20"))

	result, err := c.Spotify.Search(ctx.Request.Context(), claims.UserID, query, ctx.DefaultQuery("type", "track"), limit)
	if err != nil {
		writeSpotifyError(ctx, err)
		return
	}
	util.Success(ctx, result)
}
