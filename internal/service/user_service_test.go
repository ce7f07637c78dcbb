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

func newUserService(db *gorm.DB) *UserService {
	return NewUserService(
		repository.NewUserRepository(db),
		repository.NewFriendshipRepository(db, nil),
		nil,
	)
}

func strPtr(s string) *string { return &s }

func TestUpdateProfile(t *testing.T) {
	t.Run("updates all fields", func(t *testing.T) {
		db := setupTestDB(t)
		svc := newUserService(db)
		alice := createTestUser(t, db, "sp_alice", "alice")

		user, err := svc.UpdateProfile(alice.ID, &UpdateProfileRequest{
			DisplayName:      strPtr("Alice W"),
			Username:         strPtr("alice_w"),
			Bio:              strPtr("music diary"),
			PrivacyLevel:     strPtr("friends"),
			Timezone:         strPtr("Asia/Tokyo"),
			NotificationTime: strPtr("21:30"),
		})
		require.NoError(t, err)
		assert.Equal(t, "Alice W", user.DisplayName)
		assert.Equal(t, "alice_w", user.Username)
		assert.Equal(t, model.PrivacyFriends, user.PrivacyLevel)
		assert.Equal(t, "Asia/Tokyo", user.Timezone)
		assert.Equal(t, "21:30", user.NotificationTime)
	})

	t.Run("rejects invalid values", func(t *testing.T) {
		db := setupTestDB(t)
		svc := newUserService(db)
		alice := createTestUser(t, db, "sp_alice", "alice")

		cases := []struct {
			name string
			req  *UpdateProfileRequest
		}{
			{"blank display name", &UpdateProfileRequest{DisplayName: strPtr("   ")}},
			{"username too short", &UpdateProfileRequest{Username: strPtr("ab")}},
			{"username bad chars", &UpdateProfileRequest{Username: strPtr("has space")}},
			{"bio too long", &UpdateProfileRequest{Bio: strPtr(string(make([]byte, 501)))}},
			{"unknown privacy level", &UpdateProfileRequest{PrivacyLevel: strPtr("secret")}},
			{"bogus timezone", &UpdateProfileRequest{Timezone: strPtr("Not/AZone")}},
			{"bad time format", &UpdateProfileRequest{NotificationTime: strPtr("25:00")}},
			{"no fields", &UpdateProfileRequest{}},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				_, err := svc.UpdateProfile(alice.ID, tc.req)
				assert.Error(t, err)
			})
		}
	})

	t.Run("username must be unique", func(t *testing.T) {
		db := setupTestDB(t)
		svc := newUserService(db)
		alice := createTestUser(t, db, "sp_alice", "alice")
		createTestUser(t, db, "sp_bob", "bob")

		_, err := svc.UpdateProfile(alice.ID, &UpdateProfileRequest{Username: strPtr("bob")})
		assert.Error(t, err)

		// 改成自己当前的用户名是允许的
		_, err = svc.UpdateProfile(alice.ID, &UpdateProfileRequest{Username: strPtr("alice")})
		assert.NoError(t, err)
	})
}

func TestGetPublicProfile(t *testing.T) {
	db := setupTestDB(t)
	svc := newUserService(db)
	alice := createTestUser(t, db, "sp_alice", "alice")
	bob := createTestUser(t, db, "sp_bob", "bob")
	eve := createTestUser(t, db, "sp_eve", "eve")
	makeFriends(t, db, alice.ID, bob.ID)

	setPrivacy := func(t *testing.T, userID uint, level model.PrivacyLevel) {
		t.Helper()
		require.NoError(t, db.Model(&model.User{}).Where("id = ?", userID).
			Update("privacy_level", level).Error)
	}

	t.Run("public visible to anyone", func(t *testing.T) {
		profile, err := svc.GetPublicProfile(eve.ID, alice.ID)
		require.NoError(t, err)
		assert.Equal(t, "alice", profile.Username)
	})

	t.Run("friends level needs friendship", func(t *testing.T) {
		setPrivacy(t, alice.ID, model.PrivacyFriends)

		_, err := svc.GetPublicProfile(bob.ID, alice.ID)
		assert.NoError(t, err)

		_, err = svc.GetPublicProfile(eve.ID, alice.ID)
		assert.ErrorIs(t, err, util.ErrPermissionDenied)
	})

	t.Run("private hidden from everyone but self", func(t *testing.T) {
		setPrivacy(t, alice.ID, model.PrivacyPrivate)

		_, err := svc.GetPublicProfile(bob.ID, alice.ID)
		assert.ErrorIs(t, err, util.ErrPermissionDenied)

		_, err = svc.GetPublicProfile(alice.ID, alice.ID)
		assert.NoError(t, err)
	})

	t.Run("missing user", func(t *testing.T) {
		_, err := svc.GetPublicProfile(alice.ID, 9999)
		assert.ErrorIs(t, err, util.ErrUserNotFound)
	})
}

func TestSearchUsers(t *testing.T) {
	db := setupTestDB(t)
	svc := newUserService(db)
	viewer := createTestUser(t, db, "sp_viewer", "viewer")
	createTestUser(t, db, "sp_1", "alice")
	createTestUser(t, db, "sp_2", "alice_cooper")
	createTestUser(t, db, "sp_3", "malice")

	t.Run("query too short", func(t *testing.T) {
		_, err := svc.SearchUsers(viewer.ID, " a ", 10)
		assert.Error(t, err)
	})

	t.Run("exact match ranks first", func(t *testing.T) {
		results, err := svc.SearchUsers(viewer.ID, "alice", 10)
		require.NoError(t, err)
		require.Len(t, results, 3)
		assert.Equal(t, "alice", results[0].Username)
	})

	t.Run("excludes the viewer", func(t *testing.T) {
		results, err := svc.SearchUsers(viewer.ID, "viewer", 10)
		require.NoError(t, err)
		assert.Empty(t, results)
	})

	t.Run("relevance tiers", func(t *testing.T) {
		// 完整用户名 > 完整昵称 > 用户名前缀 > 昵称前缀
		createTestUser(t, db, "sp_4", "nick")
		zed := createTestUser(t, db, "sp_5", "zed")
		require.NoError(t, db.Model(zed).Update("display_name", "Nick").Error)
		createTestUser(t, db, "sp_6", "nickel")
		wren := createTestUser(t, db, "sp_7", "wren")
		require.NoError(t, db.Model(wren).Update("display_name", "Nickleback").Error)

		results, err := svc.SearchUsers(viewer.ID, "nick", 10)
		require.NoError(t, err)
		require.Len(t, results, 4)
		assert.Equal(t, "nick", results[0].Username)
		assert.Equal(t, "zed", results[1].Username)
		assert.Equal(t, "nickel", results[2].Username)
		assert.Equal(t, "wren", results[3].Username)
	})
}
