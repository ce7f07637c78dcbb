package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"peekify_backend/internal/config"
	"peekify_backend/internal/model"
	"peekify_backend/internal/repository"
	"peekify_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
	"gorm.io/gorm"
)

// newSpotifyClient 指向本地 httptest 服务，令牌给足有效期避免触发刷新
func newSpotifyClient(t *testing.T, db *gorm.DB, baseURL string) *SpotifyClient {
	t.Helper()
	client := NewSpotifyClient(&config.Config{}, repository.NewTokenRepository(db))
	client.BaseURL = baseURL
	return client
}

func seedToken(t *testing.T, db *gorm.DB, userID uint, expiry time.Time) {
	t.Helper()
	repo := repository.NewTokenRepository(db)
	require.NoError(t, repo.Upsert(&model.SpotifyToken{
		UserID:       userID,
		AccessToken:  "valid-token",
		RefreshToken: "refresh-token",
		Expiry:       expiry,
	}))
}

func TestSpotifyErrorMapping(t *testing.T) {
	cases := []struct {
		status int
		want   error
	}{
		{http.StatusUnauthorized, util.ErrSpotifyUnauthorized},
		{http.StatusForbidden, util.ErrPremiumRequired},
		{http.StatusNotFound, util.ErrNoActiveDevice},
	}
	for _, tc := range cases {
		t.Run(fmt.Sprintf("status %d", tc.status), func(t *testing.T) {
			db := setupTestDB(t)
			alice := createTestUser(t, db, "sp_alice", "alice")
			seedToken(t, db, alice.ID, time.Now().Add(time.Hour))

			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
			}))
			defer srv.Close()

			client := newSpotifyClient(t, db, srv.URL)
			_, err := client.Devices(context.Background(), alice.ID)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestSpotifyMissingToken(t *testing.T) {
	db := setupTestDB(t)
	alice := createTestUser(t, db, "sp_alice", "alice")

	client := newSpotifyClient(t, db, "http://unused.invalid")
	_, err := client.Devices(context.Background(), alice.ID)
	assert.ErrorIs(t, err, util.ErrSpotifyUnauthorized)
}

func TestCurrentlyPlayingNoContent(t *testing.T) {
	db := setupTestDB(t)
	alice := createTestUser(t, db, "sp_alice", "alice")
	seedToken(t, db, alice.ID, time.Now().Add(time.Hour))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	client := newSpotifyClient(t, db, srv.URL)
	playing, err := client.CurrentlyPlaying(context.Background(), alice.ID)
	require.NoError(t, err)
	assert.Nil(t, playing)
}

func TestRecentlyPlayedPagination(t *testing.T) {
	db := setupTestDB(t)
	alice := createTestUser(t, db, "sp_alice", "alice")
	seedToken(t, db, alice.ID, time.Now().Add(time.Hour))

	playedAt := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	page := func(trackID string, cursor string) map[string]interface{} {
		body := map[string]interface{}{
			"items": []map[string]interface{}{
				{
					"played_at": playedAt.Format(time.RFC3339),
					"track": map[string]interface{}{
						"id":          trackID,
						"name":        "song " + trackID,
						"duration_ms": 200000,
						"artists":     []map[string]interface{}{{"name": "artist"}},
						"album": map[string]interface{}{
							"name":   "album",
							"images": []map[string]interface{}{{"url": "http://img"}},
						},
					},
				},
			},
		}
		if cursor != "" {
			body["cursors"] = map[string]interface{}{"before": cursor}
		}
		return body
	}

	var requests []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests = append(requests, r.URL.RawQuery)
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("before") == "" {
			// 第一页带游标，指向下一页
			json.NewEncoder(w).Encode(page("t1", "cursor-1"))
			return
		}
		// 第二页没有游标，分页到此结束
		json.NewEncoder(w).Encode(page("t2", ""))
	}))
	defer srv.Close()

	client := newSpotifyClient(t, db, srv.URL)
	records, err := client.RecentlyPlayed(context.Background(), alice.ID, time.Time{}, 4)
	require.NoError(t, err)

	require.Len(t, records, 2)
	assert.Equal(t, "t1", records[0].TrackID)
	assert.Equal(t, "t2", records[1].TrackID)
	assert.Equal(t, "artist", records[0].ArtistName)
	assert.Equal(t, alice.ID, records[0].UserID)
	assert.True(t, records[0].PlayedAt.Equal(playedAt))

	require.Len(t, requests, 2)
	assert.Contains(t, requests[1], "before=cursor-1")
}

func TestRecentlyPlayedRespectsMaxPages(t *testing.T) {
	db := setupTestDB(t)
	alice := createTestUser(t, db, "sp_alice", "alice")
	seedToken(t, db, alice.ID, time.Now().Add(time.Hour))

	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		// 每页都声称还有下一页
		fmt.Fprintf(w, `{"items":[{"played_at":"2026-08-28T0%d:00:00Z","track":{"id":"t%d","name":"n"}}],"cursors":{"before":"c%d"}}`, calls, calls, calls)
	}))
	defer srv.Close()

	client := newSpotifyClient(t, db, srv.URL)
	records, err := client.RecentlyPlayed(context.Background(), alice.ID, time.Time{}, 2)
	require.NoError(t, err)
	assert.Len(t, records, 2)
	assert.Equal(t, 2, calls)
}

func TestTokenRefreshPersisted(t *testing.T) {
	db := setupTestDB(t)
	alice := createTestUser(t, db, "sp_alice", "alice")
	// 已过期的令牌会先走刷新
	seedToken(t, db, alice.ID, time.Now().Add(-time.Hour))

	var mux http.ServeMux
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"access_token":"fresh-token","refresh_token":"fresh-refresh","token_type":"Bearer","expires_in":3600}`)
	})
	mux.HandleFunc("/me/player/devices", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer fresh-token", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"devices":[{"id":"d1","name":"desk","type":"Computer","is_active":true}]}`)
	})
	srv := httptest.NewServer(&mux)
	defer srv.Close()

	client := newSpotifyClient(t, db, srv.URL)
	client.OAuth.Endpoint = oauth2.Endpoint{
		AuthURL:  srv.URL + "/authorize",
		TokenURL: srv.URL + "/token",
	}

	devices, err := client.Devices(context.Background(), alice.ID)
	require.NoError(t, err)
	require.Len(t, devices, 1)
	assert.Equal(t, "d1", devices[0].ID)

	stored, err := repository.NewTokenRepository(db).GetByUserID(alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "fresh-token", stored.AccessToken)
	assert.Equal(t, "fresh-refresh", stored.RefreshToken)
	assert.WithinDuration(t, time.Now().Add(time.Hour), stored.Expiry, time.Minute)
}
