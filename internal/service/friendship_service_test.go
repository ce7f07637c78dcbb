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

func newFriendshipService(db *gorm.DB) *FriendshipService {
	return NewFriendshipService(
		repository.NewFriendshipRepository(db, nil),
		repository.NewUserRepository(db),
		nil, nil,
	)
}

func TestSendRequest(t *testing.T) {
	t.Run("cannot add yourself", func(t *testing.T) {
		db := setupTestDB(t)
		svc := newFriendshipService(db)
		alice := createTestUser(t, db, "sp_alice", "alice")

		_, _, err := svc.SendRequest(alice.ID, alice.ID)
		assert.ErrorIs(t, err, util.ErrSelfRequest)
	})

	t.Run("receiver must exist", func(t *testing.T) {
		db := setupTestDB(t)
		svc := newFriendshipService(db)
		alice := createTestUser(t, db, "sp_alice", "alice")

		_, _, err := svc.SendRequest(alice.ID, 9999)
		assert.ErrorIs(t, err, util.ErrUserNotFound)
	})

	t.Run("creates pending request", func(t *testing.T) {
		db := setupTestDB(t)
		svc := newFriendshipService(db)
		alice := createTestUser(t, db, "sp_alice", "alice")
		bob := createTestUser(t, db, "sp_bob", "bob")

		req, autoAccepted, err := svc.SendRequest(alice.ID, bob.ID)
		require.NoError(t, err)
		assert.False(t, autoAccepted)
		assert.Equal(t, model.RequestPending, req.Status)

		// 重复发送被拒
		_, _, err = svc.SendRequest(alice.ID, bob.ID)
		assert.ErrorIs(t, err, util.ErrRequestPending)
	})

	t.Run("mutual requests become friends immediately", func(t *testing.T) {
		db := setupTestDB(t)
		svc := newFriendshipService(db)
		alice := createTestUser(t, db, "sp_alice", "alice")
		bob := createTestUser(t, db, "sp_bob", "bob")

		_, _, err := svc.SendRequest(alice.ID, bob.ID)
		require.NoError(t, err)

		req, autoAccepted, err := svc.SendRequest(bob.ID, alice.ID)
		require.NoError(t, err)
		assert.True(t, autoAccepted)
		assert.Equal(t, model.RequestAccepted, req.Status)

		repo := repository.NewFriendshipRepository(db, nil)
		isFriend, err := repo.IsFriend(alice.ID, bob.ID)
		require.NoError(t, err)
		assert.True(t, isFriend)
		isFriend, err = repo.IsFriend(bob.ID, alice.ID)
		require.NoError(t, err)
		assert.True(t, isFriend)
	})

	t.Run("already friends", func(t *testing.T) {
		db := setupTestDB(t)
		svc := newFriendshipService(db)
		alice := createTestUser(t, db, "sp_alice", "alice")
		bob := createTestUser(t, db, "sp_bob", "bob")
		makeFriends(t, db, alice.ID, bob.ID)

		_, _, err := svc.SendRequest(alice.ID, bob.ID)
		assert.ErrorIs(t, err, util.ErrAlreadyFriends)
	})
}

func TestAcceptRequest(t *testing.T) {
	t.Run("only receiver can accept", func(t *testing.T) {
		db := setupTestDB(t)
		svc := newFriendshipService(db)
		alice := createTestUser(t, db, "sp_alice", "alice")
		bob := createTestUser(t, db, "sp_bob", "bob")
		eve := createTestUser(t, db, "sp_eve", "eve")

		req, _, err := svc.SendRequest(alice.ID, bob.ID)
		require.NoError(t, err)

		assert.ErrorIs(t, svc.AcceptRequest(eve.ID, req.ID), util.ErrPermissionDenied)
		assert.ErrorIs(t, svc.AcceptRequest(alice.ID, req.ID), util.ErrPermissionDenied)
	})

	t.Run("accept creates friendship both directions", func(t *testing.T) {
		db := setupTestDB(t)
		svc := newFriendshipService(db)
		alice := createTestUser(t, db, "sp_alice", "alice")
		bob := createTestUser(t, db, "sp_bob", "bob")

		req, _, err := svc.SendRequest(alice.ID, bob.ID)
		require.NoError(t, err)
		require.NoError(t, svc.AcceptRequest(bob.ID, req.ID))

		friends, err := svc.GetFriends(alice.ID)
		require.NoError(t, err)
		require.Len(t, friends, 1)
		assert.Equal(t, bob.ID, friends[0].ID)

		friends, err = svc.GetFriends(bob.ID)
		require.NoError(t, err)
		require.Len(t, friends, 1)
		assert.Equal(t, alice.ID, friends[0].ID)
	})

	t.Run("finalized request cannot change", func(t *testing.T) {
		db := setupTestDB(t)
		svc := newFriendshipService(db)
		alice := createTestUser(t, db, "sp_alice", "alice")
		bob := createTestUser(t, db, "sp_bob", "bob")

		req, _, err := svc.SendRequest(alice.ID, bob.ID)
		require.NoError(t, err)
		require.NoError(t, svc.AcceptRequest(bob.ID, req.ID))

		assert.ErrorIs(t, svc.AcceptRequest(bob.ID, req.ID), util.ErrRequestFinalized)
		assert.ErrorIs(t, svc.DeclineRequest(bob.ID, req.ID), util.ErrRequestFinalized)
	})

	t.Run("missing request", func(t *testing.T) {
		db := setupTestDB(t)
		svc := newFriendshipService(db)
		bob := createTestUser(t, db, "sp_bob", "bob")

		assert.ErrorIs(t, svc.AcceptRequest(bob.ID, "no-such-id"), util.ErrRequestNotFound)
	})
}

func TestDeclineRequest(t *testing.T) {
	db := setupTestDB(t)
	svc := newFriendshipService(db)
	alice := createTestUser(t, db, "sp_alice", "alice")
	bob := createTestUser(t, db, "sp_bob", "bob")

	req, _, err := svc.SendRequest(alice.ID, bob.ID)
	require.NoError(t, err)
	require.NoError(t, svc.DeclineRequest(bob.ID, req.ID))

	// 拒绝后不建立好友关系
	repo := repository.NewFriendshipRepository(db, nil)
	isFriend, err := repo.IsFriend(alice.ID, bob.ID)
	require.NoError(t, err)
	assert.False(t, isFriend)

	// 终态不能再接受
	assert.ErrorIs(t, svc.AcceptRequest(bob.ID, req.ID), util.ErrRequestFinalized)
}

func TestRemoveFriend(t *testing.T) {
	t.Run("removes both directions and old requests", func(t *testing.T) {
		db := setupTestDB(t)
		svc := newFriendshipService(db)
		alice := createTestUser(t, db, "sp_alice", "alice")
		bob := createTestUser(t, db, "sp_bob", "bob")

		req, _, err := svc.SendRequest(alice.ID, bob.ID)
		require.NoError(t, err)
		require.NoError(t, svc.AcceptRequest(bob.ID, req.ID))

		require.NoError(t, svc.RemoveFriend(bob.ID, alice.ID))

		repo := repository.NewFriendshipRepository(db, nil)
		isFriend, err := repo.IsFriend(alice.ID, bob.ID)
		require.NoError(t, err)
		assert.False(t, isFriend)

		var count int64
		require.NoError(t, db.Model(&model.FriendRequest{}).Count(&count).Error)
		assert.Zero(t, count, "历史申请应被清理，方便以后重新添加")

		// 删除后可以重新发起申请
		_, _, err = svc.SendRequest(alice.ID, bob.ID)
		assert.NoError(t, err)
	})

	t.Run("not friends", func(t *testing.T) {
		db := setupTestDB(t)
		svc := newFriendshipService(db)
		alice := createTestUser(t, db, "sp_alice", "alice")
		bob := createTestUser(t, db, "sp_bob", "bob")

		assert.ErrorIs(t, svc.RemoveFriend(alice.ID, bob.ID), util.ErrFriendshipNotFound)
	})
}

func TestPendingRequests(t *testing.T) {
	db := setupTestDB(t)
	svc := newFriendshipService(db)
	alice := createTestUser(t, db, "sp_alice", "alice")
	bob := createTestUser(t, db, "sp_bob", "bob")
	eve := createTestUser(t, db, "sp_eve", "eve")

	_, _, err := svc.SendRequest(alice.ID, bob.ID)
	require.NoError(t, err)
	_, _, err = svc.SendRequest(bob.ID, eve.ID)
	require.NoError(t, err)

	received, sent, err := svc.PendingRequests(bob.ID)
	require.NoError(t, err)
	require.Len(t, received, 1)
	require.Len(t, sent, 1)
	assert.Equal(t, alice.ID, received[0].SenderID)
	assert.Equal(t, eve.ID, sent[0].ReceiverID)
}
