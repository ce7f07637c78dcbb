package service

import (
	"testing"

	"peekify_backend/internal/model"
	"peekify_backend/internal/repository"
	"peekify_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newCommentService(db *gorm.DB) *CommentService {
	return NewCommentService(
		repository.NewCommentRepository(db),
		repository.NewFeedRepository(db),
		nil, nil,
	)
}

func createTestFeedItem(t *testing.T, db *gorm.DB, userID uint) *model.FeedItem {
	t.Helper()
	item := &model.FeedItem{
		UserID:  userID,
		Type:    model.FeedItemTypeDailySong,
		Content: []byte(`{"trackName":"song"}`),
	}
	require.NoError(t, db.Create(item).Error)
	return item
}

func TestAddComment(t *testing.T) {
	t.Run("rejects empty content", func(t *testing.T) {
		db := setupTestDB(t)
		svc := newCommentService(db)
		alice := createTestUser(t, db, "sp_alice", "alice")
		item := createTestFeedItem(t, db, alice.ID)

		_, err := svc.AddComment(alice.ID, item.ID, "   ")
		assert.ErrorIs(t, err, util.ErrEmptyContent)
	})

	t.Run("missing feed item", func(t *testing.T) {
		db := setupTestDB(t)
		svc := newCommentService(db)
		alice := createTestUser(t, db, "sp_alice", "alice")

		_, err := svc.AddComment(alice.ID, "no-such-item", "hello")
		assert.ErrorIs(t, err, util.ErrFeedItemNotFound)
	})

	t.Run("trims and returns view with user", func(t *testing.T) {
		db := setupTestDB(t)
		svc := newCommentService(db)
		alice := createTestUser(t, db, "sp_alice", "alice")
		item := createTestFeedItem(t, db, alice.ID)

		view, err := svc.AddComment(alice.ID, item.ID, "  hello  ")
		require.NoError(t, err)
		assert.Equal(t, "hello", view.Content)
		assert.Equal(t, "alice", view.User.Username)
	})
}

func TestGetComments(t *testing.T) {
	db := setupTestDB(t)
	svc := newCommentService(db)
	alice := createTestUser(t, db, "sp_alice", "alice")
	bob := createTestUser(t, db, "sp_bob", "bob")
	item := createTestFeedItem(t, db, alice.ID)

	_, err := svc.AddComment(alice.ID, item.ID, "first")
	require.NoError(t, err)
	second, err := svc.AddComment(bob.ID, item.ID, "second")
	require.NoError(t, err)

	_, _, err = svc.ToggleLike(alice.ID, second.ID)
	require.NoError(t, err)

	views, err := svc.GetComments(alice.ID, item.ID)
	require.NoError(t, err)
	require.Len(t, views, 2)

	// 正序：老评论在前
	assert.Equal(t, "first", views[0].Content)
	assert.Equal(t, "second", views[1].Content)

	assert.EqualValues(t, 1, views[1].LikeCount)
	assert.True(t, views[1].HasLiked)
	assert.False(t, views[0].HasLiked)
}

func TestDeleteComment(t *testing.T) {
	t.Run("author only", func(t *testing.T) {
		db := setupTestDB(t)
		svc := newCommentService(db)
		alice := createTestUser(t, db, "sp_alice", "alice")
		bob := createTestUser(t, db, "sp_bob", "bob")
		item := createTestFeedItem(t, db, alice.ID)

		view, err := svc.AddComment(bob.ID, item.ID, "hello")
		require.NoError(t, err)

		// 动态作者也不能删除别人的评论
		assert.ErrorIs(t, svc.DeleteComment(alice.ID, view.ID), util.ErrPermissionDenied)
		assert.NoError(t, svc.DeleteComment(bob.ID, view.ID))
		assert.ErrorIs(t, svc.DeleteComment(bob.ID, view.ID), util.ErrCommentNotFound)
	})

	t.Run("cascade removes likes", func(t *testing.T) {
		db := setupTestDB(t)
		svc := newCommentService(db)
		alice := createTestUser(t, db, "sp_alice", "alice")
		item := createTestFeedItem(t, db, alice.ID)

		view, err := svc.AddComment(alice.ID, item.ID, "hello")
		require.NoError(t, err)
		_, _, err = svc.ToggleLike(alice.ID, view.ID)
		require.NoError(t, err)

		require.NoError(t, svc.DeleteComment(alice.ID, view.ID))

		var count int64
		require.NoError(t, db.Model(&model.CommentLike{}).Count(&count).Error)
		assert.Zero(t, count)
	})
}

func TestToggleLike(t *testing.T) {
	db := setupTestDB(t)
	svc := newCommentService(db)
	alice := createTestUser(t, db, "sp_alice", "alice")
	bob := createTestUser(t, db, "sp_bob", "bob")
	item := createTestFeedItem(t, db, alice.ID)

	view, err := svc.AddComment(alice.ID, item.ID, "hello")
	require.NoError(t, err)

	liked, count, err := svc.ToggleLike(bob.ID, view.ID)
	require.NoError(t, err)
	assert.True(t, liked)
	assert.EqualValues(t, 1, count)

	// 再点一次取消
	liked, count, err = svc.ToggleLike(bob.ID, view.ID)
	require.NoError(t, err)
	assert.False(t, liked)
	assert.EqualValues(t, 0, count)

	// 第三次又点上
	liked, count, err = svc.ToggleLike(bob.ID, view.ID)
	require.NoError(t, err)
	assert.True(t, liked)
	assert.EqualValues(t, 1, count)

	_, _, err = svc.ToggleLike(bob.ID, "no-such-comment")
	assert.ErrorIs(t, err, util.ErrCommentNotFound)
}

func TestGetLikers(t *testing.T) {
	db := setupTestDB(t)
	svc := newCommentService(db)
	alice := createTestUser(t, db, "sp_alice", "alice")
	bob := createTestUser(t, db, "sp_bob", "bob")
	item := createTestFeedItem(t, db, alice.ID)

	view, err := svc.AddComment(alice.ID, item.ID, "hello")
	require.NoError(t, err)

	_, _, err = svc.ToggleLike(alice.ID, view.ID)
	require.NoError(t, err)
	_, _, err = svc.ToggleLike(bob.ID, view.ID)
	require.NoError(t, err)

	likers, err := svc.GetLikers(view.ID)
	require.NoError(t, err)
	assert.Len(t, likers, 2)
}
