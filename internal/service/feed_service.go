package service

import (
	"encoding/json"
	"errors"

	"peekify_backend/internal/model"
	"peekify_backend/internal/repository"
	"peekify_backend/internal/util"
	"peekify_backend/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type FeedService struct {
	FeedRepo       *repository.FeedRepository
	UserRepo       *repository.UserRepository
	FriendshipRepo *repository.FriendshipRepository
	Hub            *EventHub
}

func NewFeedService(feedRepo *repository.FeedRepository, userRepo *repository.UserRepository,
	friendRepo *repository.FriendshipRepository, hub *EventHub) *FeedService {
	return &FeedService{
		FeedRepo:       feedRepo,
		UserRepo:       userRepo,
		FriendshipRepo: friendRepo,
		Hub:            hub,
	}
}

// FeedItemView 动态列表条目
type FeedItemView struct {
	ID            string              `json:"id"`
	Type          string              `json:"type"`
	Content       json.RawMessage     `json:"content"`
	User          model.PublicProfile `json:"user"`
	CommentCount  int64               `json:"commentCount"`
	ReactionCount int64               `json:"reactionCount"`
	CreatedAt     string              `json:"createdAt"`
}

// GetFeed 全站动态流 = 自己 + 好友的动态，倒序分页
func (s *FeedService) GetFeed(viewerID uint, limit, offset int) ([]FeedItemView, int64, error) {
	if limit <= 0 || limit > 50 {
		limit = 20
	}

	friendIDs, err := s.FriendshipRepo.GetFriendIDsCached(viewerID)
	if err != nil {
		return nil, 0, err
	}
	userIDs := append(friendIDs, viewerID)

	items, total, err := s.FeedRepo.FindWithCounts(userIDs, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return s.toViews(items), total, nil
}

// GetUserFeed 某个用户的动态，按隐私级别裁剪
func (s *FeedService) GetUserFeed(viewerID, targetID uint, limit, offset int) ([]FeedItemView, int64, error) {
	if limit <= 0 || limit > 50 {
		limit = 20
	}

	if viewerID != targetID {
		target, err := s.UserRepo.FindByID(targetID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, 0, util.ErrUserNotFound
		}
		if err != nil {
			return nil, 0, err
		}

		switch target.PrivacyLevel {
		case model.PrivacyPrivate:
			return nil, 0, util.ErrPermissionDenied
		case model.PrivacyFriends:
			isFriend, err := s.FriendshipRepo.IsFriend(viewerID, targetID)
			if err != nil {
				return nil, 0, err
			}
			if !isFriend {
				return nil, 0, util.ErrPermissionDenied
			}
		}
	}

	items, total, err := s.FeedRepo.FindWithCounts([]uint{targetID}, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return s.toViews(items), total, nil
}

func (s *FeedService) GetFeedItem(id string) (*FeedItemView, error) {
	item, err := s.FeedRepo.FindByIDWithUser(id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrFeedItemNotFound
	}
	if err != nil {
		return nil, err
	}
	view := s.toView(repository.FeedItemWithCounts{FeedItem: *item})
	return &view, nil
}

// CreateFeedItem 发布动态并实时通知好友
func (s *FeedService) CreateFeedItem(userID uint, itemType string, content map[string]interface{}) (*FeedItemView, error) {
	if itemType == "" || len(content) == 0 {
		return nil, errors.New("动态类型和内容不能为空")
	}

	raw, err := json.Marshal(content)
	if err != nil {
		return nil, err
	}

	item := &model.FeedItem{
		UserID:  userID,
		Type:    itemType,
		Content: datatypes.JSON(raw),
	}
	if err := s.FeedRepo.Create(item); err != nil {
		return nil, err
	}

	hydrated, err := s.FeedRepo.FindByIDWithUser(item.ID)
	if err != nil {
		return nil, err
	}
	view := s.toView(repository.FeedItemWithCounts{FeedItem: *hydrated})

	s.notifyFriends(userID, WSMessage{
		Type: EventFeedUpdate,
		Data: view,
	})
	return &view, nil
}

// notifyFriends 异步推送，不阻塞请求
func (s *FeedService) notifyFriends(userID uint, msg WSMessage) {
	if s.Hub == nil {
		return
	}
	go func() {
		ids, err := s.FriendshipRepo.GetFriendIDsCached(userID)
		if err != nil {
			logger.Log.Warn("Failed to load friend ids for notify", zap.Uint("userId", userID), zap.Error(err))
			return
		}
		if len(ids) > 0 {
			s.Hub.PushToUsers(ids, msg)
		}
	}()
}

func (s *FeedService) toViews(items []repository.FeedItemWithCounts) []FeedItemView {
	views := make([]FeedItemView, 0, len(items))
	for _, item := range items {
		views = append(views, s.toView(item))
	}
	return views
}

func (s *FeedService) toView(item repository.FeedItemWithCounts) FeedItemView {
	return FeedItemView{
		ID:            item.ID,
		Type:          item.Type,
		Content:       json.RawMessage(item.Content),
		User:          item.User.Public(),
		CommentCount:  item.CommentCount,
		ReactionCount: item.ReactionCount,
		CreatedAt:     item.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}
}
