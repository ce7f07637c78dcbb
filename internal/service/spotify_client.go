package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"peekify_backend/internal/config"
	"peekify_backend/internal/model"
	"peekify_backend/internal/repository"
	"peekify_backend/internal/util"
	"peekify_backend/pkg/logger"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/spotify"
)

const (
	spotifyAPIBase = "https://api.spotify.com/v1"
	// 令牌剩余有效期低于该值时提前刷新
	tokenRefreshLeeway = 60 * time.Second
)

// SpotifyClient 封装 Spotify Web API，负责令牌自动刷新和错误语义转换
type SpotifyClient struct {
	OAuth     *oauth2.Config
	TokenRepo *repository.TokenRepository
	HTTP      *http.Client
	BaseURL   string
}

func NewSpotifyClient(cfg *config.Config, tokenRepo *repository.TokenRepository) *SpotifyClient {
	return &SpotifyClient{
		OAuth: &oauth2.Config{
			ClientID:     cfg.Spotify.ClientID,
			ClientSecret: cfg.Spotify.ClientSecret,
			RedirectURL:  cfg.Spotify.RedirectURL,
			Endpoint:     spotify.Endpoint,
			Scopes: []string{
				"user-read-email",
				"user-read-private",
				"user-read-recently-played",
				"user-read-currently-playing",
				"user-read-playback-state",
				"user-modify-playback-state",
			},
		},
		TokenRepo: tokenRepo,
		HTTP:      &http.Client{Timeout: 15 * time.Second},
		BaseURL:   spotifyAPIBase,
	}
}

// accessTokenFor 取出用户令牌，临期则刷新并回写数据库
func (s *SpotifyClient) accessTokenFor(ctx context.Context, userID uint) (string, error) {
	stored, err := s.TokenRepo.GetByUserID(userID)
	if err != nil {
		return "", util.ErrSpotifyUnauthorized
	}

	if time.Until(stored.Expiry) > tokenRefreshLeeway {
		return stored.AccessToken, nil
	}

	src := s.OAuth.TokenSource(ctx, &oauth2.Token{
		AccessToken:  stored.AccessToken,
		RefreshToken: stored.RefreshToken,
		Expiry:       stored.Expiry,
	})
	fresh, err := src.Token()
	if err != nil {
		logger.Log.Warn("Spotify token refresh failed", zap.Uint("userId", userID), zap.Error(err))
		return "", util.ErrSpotifyUnauthorized
	}

	stored.AccessToken = fresh.AccessToken
	stored.Expiry = fresh.Expiry
	if fresh.RefreshToken != "" {
		stored.RefreshToken = fresh.RefreshToken
	}
	if err := s.TokenRepo.Upsert(stored); err != nil {
		logger.Log.Error("Failed to persist refreshed token", zap.Uint("userId", userID), zap.Error(err))
	}
	return fresh.AccessToken, nil
}

func (s *SpotifyClient) do(ctx context.Context, userID uint, method, path string, body interface{}) (*http.Response, error) {
	token, err := s.accessTokenFor(ctx, userID)
	if err != nil {
		return nil, err
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.BaseURL+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.HTTP.Do(req)
	if err != nil {
		return nil, err
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		resp.Body.Close()
		return nil, util.ErrSpotifyUnauthorized
	case http.StatusForbidden:
		resp.Body.Close()
		return nil, util.ErrPremiumRequired
	case http.StatusNotFound:
		resp.Body.Close()
		return nil, util.ErrNoActiveDevice
	}
	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("spotify api: %s %s: %d: %s", method, path, resp.StatusCode, string(raw))
	}
	return resp, nil
}

// SpotifyProfile Spotify 账号信息
type SpotifyProfile struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Images      []struct {
		URL string `json:"url"`
	} `json:"images"`
}

// Profile 获取当前授权账号的个人信息
func (s *SpotifyClient) Profile(ctx context.Context, token string) (*SpotifyProfile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.BaseURL+"/me", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := s.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, util.ErrSpotifyUnauthorized
	}

	var profile SpotifyProfile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

type recentlyPlayedResponse struct {
	Items []struct {
		PlayedAt time.Time `json:"played_at"`
		Track    struct {
			ID         string `json:"id"`
			Name       string `json:"name"`
			DurationMs int    `json:"duration_ms"`
			Artists    []struct {
				Name string `json:"name"`
			} `json:"artists"`
			Album struct {
				Name   string `json:"name"`
				Images []struct {
					URL string `json:"url"`
				} `json:"images"`
			} `json:"album"`
		} `json:"track"`
	} `json:"items"`
	Cursors *struct {
		Before string `json:"before"`
	} `json:"cursors"`
}

// RecentlyPlayed 游标分页拉取播放历史，最早到 after 时间点，最多 maxPages 页
func (s *SpotifyClient) RecentlyPlayed(ctx context.Context, userID uint, after time.Time, maxPages int) ([]model.PlayRecord, error) {
	var records []model.PlayRecord
	before := ""

	for page := 0; page < maxPages; page++ {
		path := "/me/player/recently-played?limit=50"
		if !after.IsZero() {
			path += "&after=" + strconv.FormatInt(after.UnixMilli(), 10)
		}
		if before != "" {
			path += "&before=" + before
		}

		resp, err := s.do(ctx, userID, http.MethodGet, path, nil)
		if err != nil {
			return records, err
		}

		var body recentlyPlayedResponse
		err = json.NewDecoder(resp.Body).Decode(&body)
		resp.Body.Close()
		if err != nil {
			return records, err
		}
		if len(body.Items) == 0 {
			break
		}

		for _, item := range body.Items {
			artist := ""
			if len(item.Track.Artists) > 0 {
				artist = item.Track.Artists[0].Name
			}
			albumArt := ""
			if len(item.Track.Album.Images) > 0 {
				albumArt = item.Track.Album.Images[0].URL
			}
			records = append(records, model.PlayRecord{
				UserID:      userID,
				TrackID:     item.Track.ID,
				TrackName:   item.Track.Name,
				ArtistName:  artist,
				AlbumName:   item.Track.Album.Name,
				AlbumArtURL: albumArt,
				DurationMs:  item.Track.DurationMs,
				PlayedAt:    item.PlayedAt,
			})
		}

		if body.Cursors == nil || body.Cursors.Before == "" {
			break
		}
		before = body.Cursors.Before
	}
	return records, nil
}

// AddToQueue 把曲目加入用户当前设备的播放队列
func (s *SpotifyClient) AddToQueue(ctx context.Context, userID uint, trackURI, deviceID string) error {
	path := "/me/player/queue?uri=" + url.QueryEscape(trackURI)
	if deviceID != "" {
		path += "&device_id=" + url.QueryEscape(deviceID)
	}
	resp, err := s.do(ctx, userID, http.MethodPost, path, nil)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

// Play 在用户的活跃设备上播放曲目
func (s *SpotifyClient) Play(ctx context.Context, userID uint, trackURI, deviceID string) error {
	path := "/me/player/play"
	if deviceID != "" {
		path += "?device_id=" + url.QueryEscape(deviceID)
	}
	body := map[string]interface{}{
		"uris": []string{trackURI},
	}
	resp, err := s.do(ctx, userID, http.MethodPut, path, body)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

// SpotifyDevice 可用播放设备
type SpotifyDevice struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Type     string `json:"type"`
	IsActive bool   `json:"is_active"`
}

func (s *SpotifyClient) Devices(ctx context.Context, userID uint) ([]SpotifyDevice, error) {
	resp, err := s.do(ctx, userID, http.MethodGet, "/me/player/devices", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var body struct {
		Devices []SpotifyDevice `json:"devices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, err
	}
	return body.Devices, nil
}

// CurrentlyPlaying 当前播放曲目，没有播放时返回 nil
func (s *SpotifyClient) CurrentlyPlaying(ctx context.Context, userID uint) (map[string]interface{}, error) {
	resp, err := s.do(ctx, userID, http.MethodGet, "/me/player/currently-playing", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return nil, nil
	}

	var body map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, err
	}
	return body, nil
}

// Search 曲目搜索，结果原样透传给前端
func (s *SpotifyClient) Search(ctx context.Context, userID uint, query, searchType string, limit int) (map[string]interface{}, error) {
	if searchType == "" {
		searchType = "track"
	}
	if limit <= 0 || limit > 50 {
		limit = 20
	}
	params := url.Values{}
	params.Set("q", query)
	params.Set("type", searchType)
	params.Set("limit", strconv.Itoa(limit))

	resp, err := s.do(ctx, userID, http.MethodGet, "/search?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var body map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, err
	}
	return body, nil
}
