package service

import (
	"fmt"
	"testing"

	"peekify_backend/internal/model"
	"peekify_backend/internal/repository"
	"peekify_backend/pkg/logger"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func init() {
	logger.Log = zap.NewNop()
}

// setupTestDB 每个测试一个独立的内存库
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&model.User{},
		&model.SpotifyToken{},
		&model.FeedItem{},
		&model.Comment{},
		&model.CommentLike{},
		&model.Reaction{},
		&model.Friendship{},
		&model.FriendRequest{},
		&model.PlayRecord{},
	))
	return db
}

func createTestUser(t *testing.T, db *gorm.DB, spotifyID, username string) *model.User {
	t.Helper()
	user := &model.User{
		SpotifyID:        spotifyID,
		Email:            username + "@example.com",
		DisplayName:      username,
		Username:         username,
		PrivacyLevel:     model.PrivacyPublic,
		Timezone:         "UTC",
		NotificationTime: "09:00",
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func makeFriends(t *testing.T, db *gorm.DB, a, b uint) {
	t.Helper()
	repo := repository.NewFriendshipRepository(db, nil)
	require.NoError(t, repo.CreatePair(a, b))
}
