package controller

import (
	"errors"
	"strconv"
	"time"

	"peekify_backend/internal/service"
	"peekify_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type HistoryController struct {
	HistoryService *service.HistoryService
}

func NewHistoryController(historyService *service.HistoryService) *HistoryController {
	return &HistoryController{HistoryService: historyService}
}

// @Summary 同步播放历史
// @Description 从 Spotify 增量拉取最近播放记录（开销较大，单独限流）
// @Tags 播放历史
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response
// @Router /api/history/sync [post]
func (c *HistoryController) Sync(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	result, err := c.HistoryService.SyncHistory(ctx.Request.Context(), claims.UserID)
	if err != nil {
		writeSpotifyError(ctx, err)
		return
	}
	util.Success(ctx, result)
}

// @Summary 播放历史
// @Description 按时间范围查询，默认最近 30 天
// @Tags 播放历史
// @Produce json
// @Security BearerAuth
// @Param start query string false "起始时间 (RFC3339)"
// @Param end query string false "结束时间 (RFC3339)"
// @Param limit query int false "每页数量" default(50)
// @Param offset query int false "偏移量" default(0)
// @Success 200 {object} util.Response
// @Router /api/history [get]
func (c *HistoryController) GetHistory(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	start, end, err := parseTimeRange(ctx)
	if err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(ctx.DefaultQuery("offset", "0"))

	records, total, err := c.HistoryService.GetHistory(claims.UserID, start, end, limit, offset)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{
		"records": records,
		"total":   total,
		"limit":   limit,
		"offset":  offset,
	})
}

// @Summary 收听统计
// @Description 播放次数、不同曲目数、不同歌手数和总时长
// @Tags 播放历史
// @Produce json
// @Security BearerAuth
// @Param start query string false "起始时间 (RFC3339)"
// @Param end query string false "结束时间 (RFC3339)"
// @Success 200 {object} util.Response
// @Router /api/history/stats [get]
func (c *HistoryController) GetStats(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	start, end, err := parseTimeRange(ctx)
	if err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	stats, err := c.HistoryService.GetStats(claims.UserID, start, end)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, stats)
}

// @Summary 今日回放
// @Description 用户时区下今天播放最多的一首歌，还没听歌时返回空
// @Tags 播放历史
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response
// @Router /api/history/today [get]
func (c *HistoryController) GetTodaysReplay(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	top, err := c.HistoryService.TodaysReplay(claims.UserID)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"track": top})
}

func parseTimeRange(ctx *gin.Context) (start, end time.Time, err error) {
	if v := ctx.Query("start"); v != "" {
		start, err = time.Parse(time.RFC3339, v)
		if err != nil {
			return start, end, errors.New("start 时间格式应为 RFC3339")
		}
	}
	if v := ctx.Query("end"); v != "" {
		end, err = time.Parse(time.RFC3339, v)
		if err != nil {
			return start, end, errors.New("end 时间格式应为 RFC3339")
		}
	}
	return start, end, nil
}
