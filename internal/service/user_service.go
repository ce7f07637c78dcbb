package service

import (
	"errors"
	"regexp"
	"strings"
	"time"

	"peekify_backend/internal/model"
	"peekify_backend/internal/repository"
	"peekify_backend/internal/util"

	"gorm.io/gorm"
)

var (
	usernamePattern         = regexp.MustCompile(`^[a-zA-Z0-9_]{3,50}$`)
	notificationTimePattern = regexp.MustCompile(`^([01]\d|2[0-3]):([0-5]\d)$`)
)

type UserService struct {
	UserRepo       *repository.UserRepository
	FriendshipRepo *repository.FriendshipRepository
	Storage        *StorageService
}

func NewUserService(userRepo *repository.UserRepository, friendRepo *repository.FriendshipRepository,
	storage *StorageService) *UserService {
	return &UserService{
		UserRepo:       userRepo,
		FriendshipRepo: friendRepo,
		Storage:        storage,
	}
}

func (s *UserService) GetUser(userID uint) (*model.User, error) {
	user, err := s.UserRepo.FindByID(userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrUserNotFound
	}
	return user, err
}

// UpdateProfileRequest 指针字段区分"没传"和"传了空值"
type UpdateProfileRequest struct {
	DisplayName      *string `json:"displayName"`
	Username         *string `json:"username"`
	Bio              *string `json:"bio"`
	PrivacyLevel     *string `json:"privacyLevel"`
	Timezone         *string `json:"timezone"`
	NotificationTime *string `json:"notificationTime"`
}

func (s *UserService) UpdateProfile(userID uint, req *UpdateProfileRequest) (*model.User, error) {
	updates := map[string]interface{}{}

	if req.DisplayName != nil {
		name := strings.TrimSpace(*req.DisplayName)
		if name == "" {
			return nil, errors.New("昵称不能为空")
		}
		updates["display_name"] = name
	}
	if req.Username != nil {
		if !usernamePattern.MatchString(*req.Username) {
			return nil, errors.New("用户名只能包含字母、数字和下划线，长度 3-50")
		}
		if existing, err := s.UserRepo.FindByUsername(*req.Username); err == nil && existing.ID != userID {
			return nil, errors.New("用户名已被占用")
		}
		updates["username"] = *req.Username
	}
	if req.Bio != nil {
		if len(*req.Bio) > 500 {
			return nil, errors.New("个人简介不能超过 500 字")
		}
		updates["bio"] = *req.Bio
	}
	if req.PrivacyLevel != nil {
		switch model.PrivacyLevel(*req.PrivacyLevel) {
		case model.PrivacyPrivate, model.PrivacyFriends, model.PrivacyPublic:
			updates["privacy_level"] = *req.PrivacyLevel
		default:
			return nil, errors.New("无效的隐私级别")
		}
	}
	if req.Timezone != nil {
		if _, err := time.LoadLocation(*req.Timezone); err != nil {
			return nil, errors.New("无效的时区")
		}
		updates["timezone"] = *req.Timezone
	}
	if req.NotificationTime != nil {
		if !notificationTimePattern.MatchString(*req.NotificationTime) {
			return nil, errors.New("通知时间格式应为 HH:MM")
		}
		updates["notification_time"] = *req.NotificationTime
	}

	if len(updates) == 0 {
		return nil, errors.New("没有需要更新的字段")
	}

	if err := s.UserRepo.UpdateColumns(userID, updates); err != nil {
		return nil, err
	}
	return s.GetUser(userID)
}

// GetPublicProfile 查看他人主页，按隐私级别裁剪
func (s *UserService) GetPublicProfile(viewerID, targetID uint) (*model.PublicProfile, error) {
	user, err := s.UserRepo.FindByID(targetID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}

	if viewerID != targetID {
		switch user.PrivacyLevel {
		case model.PrivacyPrivate:
			return nil, util.ErrPermissionDenied
		case model.PrivacyFriends:
			isFriend, err := s.FriendshipRepo.IsFriend(viewerID, targetID)
			if err != nil {
				return nil, err
			}
			if !isFriend {
				return nil, util.ErrPermissionDenied
			}
		}
	}

	profile := user.Public()
	return &profile, nil
}

// SearchUsers 关键词至少两个字符
func (s *UserService) SearchUsers(viewerID uint, query string, limit int) ([]model.PublicProfile, error) {
	query = strings.TrimSpace(query)
	if len(query) < 2 {
		return nil, errors.New("搜索关键词至少需要 2 个字符")
	}
	if limit <= 0 || limit > 50 {
		limit = 20
	}

	users, err := s.UserRepo.Search(query, viewerID, limit)
	if err != nil {
		return nil, err
	}

	profiles := make([]model.PublicProfile, 0, len(users))
	for _, u := range users {
		profiles = append(profiles, u.Public())
	}
	return profiles, nil
}

// UpdateAvatar 上传新头像并回写地址
func (s *UserService) UpdateAvatar(userID uint, data []byte, filename, contentType string) (string, error) {
	url, err := s.Storage.UploadAvatar(userID, data, filename, contentType)
	if err != nil {
		return "", err
	}
	if err := s.UserRepo.UpdateAvatar(userID, url); err != nil {
		return "", err
	}
	return url, nil
}
