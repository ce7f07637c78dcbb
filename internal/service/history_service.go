package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"peekify_backend/internal/model"
	"peekify_backend/internal/repository"
	"peekify_backend/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const syncMaxPages = 4

type HistoryService struct {
	HistoryRepo *repository.HistoryRepository
	UserRepo    *repository.UserRepository
	FeedRepo    *repository.FeedRepository
	Spotify     *SpotifyClient
	Feed        *FeedService
	Notifier    *NotificationService
}

func NewHistoryService(historyRepo *repository.HistoryRepository, userRepo *repository.UserRepository,
	feedRepo *repository.FeedRepository, spotifyClient *SpotifyClient,
	feedService *FeedService, notifier *NotificationService) *HistoryService {
	return &HistoryService{
		HistoryRepo: historyRepo,
		UserRepo:    userRepo,
		FeedRepo:    feedRepo,
		Spotify:     spotifyClient,
		Feed:        feedService,
		Notifier:    notifier,
	}
}

// SyncResult 一次同步的结果
type SyncResult struct {
	Fetched  int   `json:"fetched"`
	Inserted int64 `json:"inserted"`
}

// SyncHistory 从 Spotify 增量拉取播放历史，游标取库里最近一条的时间
func (s *HistoryService) SyncHistory(ctx context.Context, userID uint) (*SyncResult, error) {
	after, err := s.HistoryRepo.LatestPlayedAt(userID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	records, err := s.Spotify.RecentlyPlayed(ctx, userID, after, syncMaxPages)
	if err != nil && len(records) == 0 {
		return nil, err
	}

	inserted, dbErr := s.HistoryRepo.UpsertPlays(records)
	if dbErr != nil {
		return nil, dbErr
	}

	logger.Log.Info("History synced",
		zap.Uint("userId", userID),
		zap.Int("fetched", len(records)),
		zap.Int64("inserted", inserted))
	return &SyncResult{Fetched: len(records), Inserted: inserted}, err
}

// GetHistory 默认回看最近 30 天
func (s *HistoryService) GetHistory(userID uint, start, end time.Time, limit, offset int) ([]model.PlayRecord, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if end.IsZero() {
		end = time.Now()
	}
	if start.IsZero() {
		start = end.AddDate(0, 0, -30)
	}
	return s.HistoryRepo.FindRange(userID, start, end, limit, offset)
}

func (s *HistoryService) GetStats(userID uint, start, end time.Time) (*repository.ListeningStats, error) {
	if end.IsZero() {
		end = time.Now()
	}
	if start.IsZero() {
		start = end.AddDate(0, 0, -30)
	}
	return s.HistoryRepo.Stats(userID, start, end)
}

// dayWindow 用户时区下 now 所在自然日的起止
func dayWindow(tz string, now time.Time) (start, end time.Time) {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		loc = time.UTC
	}
	local := now.In(loc)
	start = time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 0, 1)
}

// TodaysReplay 用户时区下今天播放最多的一首，次数并列取最近播放的
func (s *HistoryService) TodaysReplay(userID uint) (*repository.TopTrack, error) {
	user, err := s.UserRepo.FindByID(userID)
	if err != nil {
		return nil, err
	}

	start, end := dayWindow(user.Timezone, time.Now())
	top, err := s.HistoryRepo.TopTrackBetween(userID, start, end)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return top, err
}

// ProcessDailyReveals 到达用户设定的通知时间后，把当天最常听的歌发布成动态。
// 由后台定时任务驱动，幂等：同一天只会发布一次
func (s *HistoryService) ProcessDailyReveals(now time.Time) {
	err := s.UserRepo.FindInBatches(200, func(users []model.User) error {
		for i := range users {
			s.revealFor(&users[i], now)
		}
		return nil
	})
	if err != nil {
		logger.Log.Error("Daily reveal scan failed", zap.Error(err))
	}
}

func (s *HistoryService) revealFor(user *model.User, now time.Time) {
	loc, err := time.LoadLocation(user.Timezone)
	if err != nil {
		loc = time.UTC
	}
	local := now.In(loc)

	// 还没到用户设定的揭晓时间
	if local.Format("15:04") < user.NotificationTime {
		return
	}

	start, end := dayWindow(user.Timezone, now)
	exists, err := s.FeedRepo.HasItemBetween(user.ID, model.FeedItemTypeDailySong, start, end)
	if err != nil || exists {
		return
	}

	top, err := s.HistoryRepo.TopTrackBetween(user.ID, start, end)
	if err != nil {
		// 今天没听歌就没有内容可发
		return
	}

	content := map[string]interface{}{
		"trackId":     top.TrackID,
		"trackName":   top.TrackName,
		"artistName":  top.ArtistName,
		"albumName":   top.AlbumName,
		"albumArtUrl": top.AlbumArtURL,
		"durationMs":  top.DurationMs,
		"playCount":   top.PlayCount,
		"date":        local.Format("2006-01-02"),
	}
	if _, err := s.Feed.CreateFeedItem(user.ID, model.FeedItemTypeDailySong, content); err != nil {
		logger.Log.Error("Failed to publish daily song",
			zap.Uint("userId", user.ID), zap.Error(err))
		return
	}

	logger.Log.Info("Daily song revealed",
		zap.Uint("userId", user.ID), zap.String("trackId", top.TrackID))

	if s.Notifier != nil {
		s.Notifier.Notify(user.ID, PushPayload{
			Title: "今日单曲",
			Body:  fmt.Sprintf("你今天听得最多的是 %s - %s", top.TrackName, top.ArtistName),
			URL:   "/feed",
			Tag:   "daily-song-" + local.Format("2006-01-02"),
		})
	}
}
