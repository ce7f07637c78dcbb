package service

import (
	"testing"

	"peekify_backend/internal/repository"
	"peekify_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newReactionService(db *gorm.DB) *ReactionService {
	return NewReactionService(
		repository.NewReactionRepository(db),
		repository.NewFeedRepository(db),
		nil, nil,
	)
}

func TestAddReaction(t *testing.T) {
	t.Run("same emoji only once per user", func(t *testing.T) {
		db := setupTestDB(t)
		svc := newReactionService(db)
		alice := createTestUser(t, db, "sp_alice", "alice")
		item := createTestFeedItem(t, db, alice.ID)

		_, err := svc.AddReaction(alice.ID, item.ID, "🔥")
		require.NoError(t, err)

		_, err = svc.AddReaction(alice.ID, item.ID, "🔥")
		assert.ErrorIs(t, err, util.ErrAlreadyReacted)
	})

	t.Run("different emojis coexist", func(t *testing.T) {
		db := setupTestDB(t)
		svc := newReactionService(db)
		alice := createTestUser(t, db, "sp_alice", "alice")
		item := createTestFeedItem(t, db, alice.ID)

		_, err := svc.AddReaction(alice.ID, item.ID, "🔥")
		require.NoError(t, err)
		_, err = svc.AddReaction(alice.ID, item.ID, "❤️")
		require.NoError(t, err)

		views, _, err := svc.GetReactions(item.ID)
		require.NoError(t, err)
		assert.Len(t, views, 2)
	})

	t.Run("validates emoji and feed item", func(t *testing.T) {
		db := setupTestDB(t)
		svc := newReactionService(db)
		alice := createTestUser(t, db, "sp_alice", "alice")
		item := createTestFeedItem(t, db, alice.ID)

		_, err := svc.AddReaction(alice.ID, item.ID, "   ")
		assert.Error(t, err)

		_, err = svc.AddReaction(alice.ID, "no-such-item", "🔥")
		assert.ErrorIs(t, err, util.ErrFeedItemNotFound)
	})
}

func TestRemoveReaction(t *testing.T) {
	db := setupTestDB(t)
	svc := newReactionService(db)
	alice := createTestUser(t, db, "sp_alice", "alice")
	bob := createTestUser(t, db, "sp_bob", "bob")
	item := createTestFeedItem(t, db, alice.ID)

	_, err := svc.AddReaction(alice.ID, item.ID, "🔥")
	require.NoError(t, err)
	_, err = svc.AddReaction(alice.ID, item.ID, "❤️")
	require.NoError(t, err)

	// 只能删自己的
	assert.ErrorIs(t, svc.RemoveReaction(bob.ID, item.ID), util.ErrReactionNotFound)

	// 按用户整体撤销，不区分 emoji
	require.NoError(t, svc.RemoveReaction(alice.ID, item.ID))
	views, _, err := svc.GetReactions(item.ID)
	require.NoError(t, err)
	assert.Empty(t, views)

	assert.ErrorIs(t, svc.RemoveReaction(alice.ID, item.ID), util.ErrReactionNotFound)
}

func TestGetReactionsSummary(t *testing.T) {
	db := setupTestDB(t)
	svc := newReactionService(db)
	alice := createTestUser(t, db, "sp_alice", "alice")
	bob := createTestUser(t, db, "sp_bob", "bob")
	eve := createTestUser(t, db, "sp_eve", "eve")
	item := createTestFeedItem(t, db, alice.ID)

	for _, r := range []struct {
		userID uint
		emoji  string
	}{
		{alice.ID, "🔥"},
		{bob.ID, "🔥"},
		{eve.ID, "🎵"},
	} {
		_, err := svc.AddReaction(r.userID, item.ID, r.emoji)
		require.NoError(t, err)
	}

	views, summary, err := svc.GetReactions(item.ID)
	require.NoError(t, err)
	assert.Len(t, views, 3)
	require.Len(t, summary, 2)

	total := 0
	groups := map[string]EmojiSummary{}
	for _, s := range summary {
		groups[s.Emoji] = s
		total += s.Count
	}
	assert.Equal(t, 2, groups["🔥"].Count)
	assert.Equal(t, 1, groups["🎵"].Count)
	assert.Equal(t, 3, total)

	// 每组带上表态用户本身
	fireUsers := make([]string, 0, 2)
	for _, u := range groups["🔥"].Users {
		fireUsers = append(fireUsers, u.Username)
	}
	assert.ElementsMatch(t, []string{"alice", "bob"}, fireUsers)
	require.Len(t, groups["🎵"].Users, 1)
	assert.Equal(t, "eve", groups["🎵"].Users[0].Username)
}
