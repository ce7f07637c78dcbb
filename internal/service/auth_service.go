package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"peekify_backend/internal/config"
	"peekify_backend/internal/model"
	"peekify_backend/internal/repository"
	"peekify_backend/internal/util"
	"peekify_backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const oauthStateTTL = 10 * time.Minute

var usernameSanitizer = regexp.MustCompile(`[^a-zA-Z0-9_]`)

// AuthService Spotify OAuth 登录流程：授权跳转、回调换码、签发站内 JWT
type AuthService struct {
	UserRepo  *repository.UserRepository
	TokenRepo *repository.TokenRepository
	Spotify   *SpotifyClient
	Redis     *redis.Client
	Cfg       *config.Config
}

func NewAuthService(userRepo *repository.UserRepository, tokenRepo *repository.TokenRepository,
	spotifyClient *SpotifyClient, rdb *redis.Client, cfg *config.Config) *AuthService {
	return &AuthService{
		UserRepo:  userRepo,
		TokenRepo: tokenRepo,
		Spotify:   spotifyClient,
		Redis:     rdb,
		Cfg:       cfg,
	}
}

// LoginURL 生成授权跳转地址，state 存入 Redis 防 CSRF
func (s *AuthService) LoginURL(ctx context.Context) (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	state := hex.EncodeToString(buf)

	if err := s.Redis.Set(ctx, "auth:state:"+state, "1", oauthStateTTL).Err(); err != nil {
		return "", err
	}
	return s.Spotify.OAuth.AuthCodeURL(state), nil
}

// HandleCallback 校验 state、用授权码换取令牌并登录（首次登录自动注册）
func (s *AuthService) HandleCallback(ctx context.Context, code, state string) (string, *model.User, error) {
	deleted, err := s.Redis.Del(ctx, "auth:state:"+state).Result()
	if err != nil || deleted == 0 {
		return "", nil, errors.New("无效的授权状态，请重新登录")
	}

	token, err := s.Spotify.OAuth.Exchange(ctx, code)
	if err != nil {
		logger.Log.Warn("Spotify code exchange failed", zap.Error(err))
		return "", nil, errors.New("Spotify 授权失败")
	}

	profile, err := s.Spotify.Profile(ctx, token.AccessToken)
	if err != nil {
		return "", nil, err
	}

	user, err := s.UserRepo.FindBySpotifyID(profile.ID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		user = &model.User{
			SpotifyID:   profile.ID,
			Email:       profile.Email,
			DisplayName: profile.DisplayName,
			Username:    s.generateUsername(profile),
		}
		if len(profile.Images) > 0 {
			user.Avatar = profile.Images[0].URL
		}
		if err := s.UserRepo.Create(user); err != nil {
			return "", nil, err
		}
		logger.Log.Info("New user registered via Spotify",
			zap.Uint("userId", user.ID), zap.String("spotifyId", user.SpotifyID))
	} else if err != nil {
		return "", nil, err
	} else {
		// 老用户回写最新的账号信息
		updates := map[string]interface{}{
			"email":        profile.Email,
			"display_name": profile.DisplayName,
		}
		if err := s.UserRepo.UpdateColumns(user.ID, updates); err != nil {
			logger.Log.Warn("Failed to refresh user profile", zap.Uint("userId", user.ID), zap.Error(err))
		}
	}

	if err := s.TokenRepo.Upsert(&model.SpotifyToken{
		UserID:       user.ID,
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		Expiry:       token.Expiry,
		Scope:        strings.Join(s.Spotify.OAuth.Scopes, " "),
	}); err != nil {
		return "", nil, err
	}

	jwtToken, err := util.GenerateJWT(user, s.Cfg.JWT.Secret, s.Cfg.JWT.ExpireTime)
	if err != nil {
		return "", nil, err
	}
	return jwtToken, user, nil
}

// generateUsername 从 Spotify 账号派生唯一用户名，冲突时追加随机后缀
func (s *AuthService) generateUsername(profile *SpotifyProfile) string {
	base := strings.ToLower(usernameSanitizer.ReplaceAllString(profile.DisplayName, ""))
	if len(base) < 3 {
		base = strings.ToLower(usernameSanitizer.ReplaceAllString(profile.ID, ""))
	}
	if len(base) < 3 {
		base = "listener"
	}
	if len(base) > 40 {
		base = base[:40]
	}

	candidate := base
	for i := 0; i < 5; i++ {
		if _, err := s.UserRepo.FindByUsername(candidate); errors.Is(err, gorm.ErrRecordNotFound) {
			return candidate
		}
		buf := make([]byte, 3)
		rand.Read(buf)
		candidate = fmt.Sprintf("%s_%s", base, hex.EncodeToString(buf))
	}
	return candidate
}

// Logout 删除 Spotify 令牌，站内 JWT 由前端丢弃
func (s *AuthService) Logout(userID uint) error {
	return s.TokenRepo.DeleteByUserID(userID)
}

func (s *AuthService) GetCurrentUser(c *gin.Context) *model.User {
	claims := util.GetUserFromContext(c)
	if claims == nil {
		return nil
	}

	user, _ := s.UserRepo.FindByID(claims.UserID)
	return user
}
