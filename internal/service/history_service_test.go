package service

import (
	"testing"
	"time"

	"peekify_backend/internal/model"
	"peekify_backend/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newHistoryService(db *gorm.DB) *HistoryService {
	return NewHistoryService(
		repository.NewHistoryRepository(db),
		repository.NewUserRepository(db),
		repository.NewFeedRepository(db),
		nil,
		newFeedService(db),
		nil,
	)
}

func seedPlays(t *testing.T, db *gorm.DB, userID uint, plays []model.PlayRecord) {
	t.Helper()
	repo := repository.NewHistoryRepository(db)
	for i := range plays {
		plays[i].UserID = userID
	}
	_, err := repo.UpsertPlays(plays)
	require.NoError(t, err)
}

func playAt(trackID, trackName string, playedAt time.Time) model.PlayRecord {
	return model.PlayRecord{
		TrackID:    trackID,
		TrackName:  trackName,
		ArtistName: "artist",
		PlayedAt:   playedAt,
		DurationMs: 180000,
	}
}

func TestUpsertPlaysDedupe(t *testing.T) {
	db := setupTestDB(t)
	repo := repository.NewHistoryRepository(db)
	alice := createTestUser(t, db, "sp_alice", "alice")

	at := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)
	batch := []model.PlayRecord{
		{UserID: alice.ID, TrackID: "t1", TrackName: "one", PlayedAt: at},
		{UserID: alice.ID, TrackID: "t2", TrackName: "two", PlayedAt: at.Add(time.Minute)},
	}
	inserted, err := repo.UpsertPlays(batch)
	require.NoError(t, err)
	assert.EqualValues(t, 2, inserted)

	// 重复同步同一批记录不会写入第二遍
	again := []model.PlayRecord{
		{UserID: alice.ID, TrackID: "t1", TrackName: "one", PlayedAt: at},
		{UserID: alice.ID, TrackID: "t2", TrackName: "two", PlayedAt: at.Add(time.Minute)},
		{UserID: alice.ID, TrackID: "t1", TrackName: "one", PlayedAt: at.Add(2 * time.Minute)},
	}
	inserted, err = repo.UpsertPlays(again)
	require.NoError(t, err)
	assert.EqualValues(t, 1, inserted)
}

func TestTopTrackBetween(t *testing.T) {
	db := setupTestDB(t)
	repo := repository.NewHistoryRepository(db)
	alice := createTestUser(t, db, "sp_alice", "alice")

	day := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)
	seedPlays(t, db, alice.ID, []model.PlayRecord{
		playAt("t1", "one", day.Add(8*time.Hour)),
		playAt("t1", "one", day.Add(9*time.Hour)),
		playAt("t2", "two", day.Add(10*time.Hour)),
		// 窗口之外的不计
		playAt("t2", "two", day.Add(-time.Hour)),
	})

	top, err := repo.TopTrackBetween(alice.ID, day, day.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Equal(t, "t1", top.TrackID)
	assert.EqualValues(t, 2, top.PlayCount)

	t.Run("tie broken by most recent play", func(t *testing.T) {
		seedPlays(t, db, alice.ID, []model.PlayRecord{
			playAt("t2", "two", day.Add(11*time.Hour)),
		})
		top, err := repo.TopTrackBetween(alice.ID, day, day.AddDate(0, 0, 1))
		require.NoError(t, err)
		assert.Equal(t, "t2", top.TrackID)
	})

	t.Run("no plays in window", func(t *testing.T) {
		bob := createTestUser(t, db, "sp_bob", "bob")
		_, err := repo.TopTrackBetween(bob.ID, day, day.AddDate(0, 0, 1))
		assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	})
}

func TestListeningStats(t *testing.T) {
	db := setupTestDB(t)
	svc := newHistoryService(db)
	alice := createTestUser(t, db, "sp_alice", "alice")

	day := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)
	seedPlays(t, db, alice.ID, []model.PlayRecord{
		playAt("t1", "one", day.Add(1*time.Hour)),
		playAt("t1", "one", day.Add(2*time.Hour)),
		playAt("t2", "two", day.Add(3*time.Hour)),
	})

	stats, err := svc.GetStats(alice.ID, day, day.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.EqualValues(t, 3, stats.TotalPlays)
	assert.EqualValues(t, 2, stats.DistinctTracks)
	assert.EqualValues(t, 1, stats.DistinctArtists)
	assert.EqualValues(t, 3*180000, stats.TotalMs)
	assert.Equal(t, "artist", stats.TopArtist)
}

func TestDayWindow(t *testing.T) {
	// UTC 晚上 23 点在东京已经是第二天
	now := time.Date(2026, 8, 27, 23, 30, 0, 0, time.UTC)

	start, end := dayWindow("UTC", now)
	assert.Equal(t, time.Date(2026, 8, 27, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, 24*time.Hour, end.Sub(start))

	tokyo, err := time.LoadLocation("Asia/Tokyo")
	require.NoError(t, err)
	start, _ = dayWindow("Asia/Tokyo", now)
	assert.Equal(t, time.Date(2026, 8, 28, 0, 0, 0, 0, tokyo), start)

	// 无效时区退回 UTC
	start, _ = dayWindow("Not/AZone", now)
	assert.Equal(t, time.Date(2026, 8, 27, 0, 0, 0, 0, time.UTC), start)
}

func TestTodaysReplay(t *testing.T) {
	db := setupTestDB(t)
	svc := newHistoryService(db)
	alice := createTestUser(t, db, "sp_alice", "alice")

	t.Run("nil when nothing played today", func(t *testing.T) {
		top, err := svc.TodaysReplay(alice.ID)
		require.NoError(t, err)
		assert.Nil(t, top)
	})

	t.Run("returns today's most played", func(t *testing.T) {
		now := time.Now().UTC()
		seedPlays(t, db, alice.ID, []model.PlayRecord{
			playAt("t1", "one", now.Add(-2*time.Hour)),
			playAt("t1", "one", now.Add(-time.Hour)),
		})
		top, err := svc.TodaysReplay(alice.ID)
		require.NoError(t, err)
		require.NotNil(t, top)
		assert.Equal(t, "t1", top.TrackID)
	})
}

func TestRevealFor(t *testing.T) {
	day := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)
	afterReveal := day.Add(10 * time.Hour) // 默认揭晓时间 09:00

	countDailyItems := func(t *testing.T, db *gorm.DB, userID uint) int64 {
		t.Helper()
		var n int64
		require.NoError(t, db.Model(&model.FeedItem{}).
			Where("user_id = ? AND type = ?", userID, model.FeedItemTypeDailySong).
			Count(&n).Error)
		return n
	}

	t.Run("publishes once after notification time", func(t *testing.T) {
		db := setupTestDB(t)
		svc := newHistoryService(db)
		alice := createTestUser(t, db, "sp_alice", "alice")
		seedPlays(t, db, alice.ID, []model.PlayRecord{
			playAt("t1", "one", day.Add(8*time.Hour)),
		})

		svc.revealFor(alice, afterReveal)
		assert.EqualValues(t, 1, countDailyItems(t, db, alice.ID))

		// 同一天重复触发是幂等的
		svc.revealFor(alice, afterReveal.Add(time.Hour))
		assert.EqualValues(t, 1, countDailyItems(t, db, alice.ID))
	})

	t.Run("waits for notification time", func(t *testing.T) {
		db := setupTestDB(t)
		svc := newHistoryService(db)
		alice := createTestUser(t, db, "sp_alice", "alice")
		alice.NotificationTime = "20:00"
		require.NoError(t, db.Save(alice).Error)
		seedPlays(t, db, alice.ID, []model.PlayRecord{
			playAt("t1", "one", day.Add(8*time.Hour)),
		})

		svc.revealFor(alice, afterReveal)
		assert.EqualValues(t, 0, countDailyItems(t, db, alice.ID))

		svc.revealFor(alice, day.Add(21*time.Hour))
		assert.EqualValues(t, 1, countDailyItems(t, db, alice.ID))
	})

	t.Run("skips when nothing was played", func(t *testing.T) {
		db := setupTestDB(t)
		svc := newHistoryService(db)
		alice := createTestUser(t, db, "sp_alice", "alice")

		svc.revealFor(alice, afterReveal)
		assert.EqualValues(t, 0, countDailyItems(t, db, alice.ID))
	})

	t.Run("ProcessDailyReveals covers all users", func(t *testing.T) {
		db := setupTestDB(t)
		svc := newHistoryService(db)
		alice := createTestUser(t, db, "sp_alice", "alice")
		bob := createTestUser(t, db, "sp_bob", "bob")
		seedPlays(t, db, alice.ID, []model.PlayRecord{playAt("t1", "one", day.Add(8*time.Hour))})
		seedPlays(t, db, bob.ID, []model.PlayRecord{playAt("t2", "two", day.Add(8*time.Hour))})

		svc.ProcessDailyReveals(afterReveal)
		assert.EqualValues(t, 1, countDailyItems(t, db, alice.ID))
		assert.EqualValues(t, 1, countDailyItems(t, db, bob.ID))
	})
}
