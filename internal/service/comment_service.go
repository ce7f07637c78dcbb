package service

import (
	"errors"
	"strings"

	"peekify_backend/internal/model"
	"peekify_backend/internal/repository"
	"peekify_backend/internal/util"

	"gorm.io/gorm"
)

type CommentService struct {
	CommentRepo *repository.CommentRepository
	FeedRepo    *repository.FeedRepository
	Hub         *EventHub
	Notifier    *NotificationService
}

func NewCommentService(commentRepo *repository.CommentRepository, feedRepo *repository.FeedRepository,
	hub *EventHub, notifier *NotificationService) *CommentService {
	return &CommentService{
		CommentRepo: commentRepo,
		FeedRepo:    feedRepo,
		Hub:         hub,
		Notifier:    notifier,
	}
}

// CommentView 评论条目，带点赞数和当前用户是否已点赞
type CommentView struct {
	ID        string              `json:"id"`
	Content   string              `json:"content"`
	User      model.PublicProfile `json:"user"`
	LikeCount int64               `json:"likeCount"`
	HasLiked  bool                `json:"hasLiked"`
	CreatedAt string              `json:"createdAt"`
}

// AddComment 发表评论，通知动态作者
func (s *CommentService) AddComment(userID uint, feedItemID, content string) (*CommentView, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, util.ErrEmptyContent
	}

	item, err := s.FeedRepo.FindByID(feedItemID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrFeedItemNotFound
	}
	if err != nil {
		return nil, err
	}

	comment := &model.Comment{
		FeedItemID: feedItemID,
		UserID:     userID,
		Content:    content,
	}
	if err := s.CommentRepo.Create(comment); err != nil {
		return nil, err
	}

	hydrated, err := s.CommentRepo.FindByID(comment.ID)
	if err != nil {
		return nil, err
	}
	view := s.toView(hydrated, 0, false)

	// 通知动态作者，自己评论自己不提醒
	if item.UserID != userID {
		if s.Hub != nil {
			s.Hub.PushToUsers([]uint{item.UserID}, WSMessage{
				Type: EventNewComment,
				Data: map[string]interface{}{
					"feedItemId": feedItemID,
					"comment":    view,
				},
			})
		}
		if s.Notifier != nil {
			s.Notifier.Notify(item.UserID, PushPayload{
				Title: "新评论",
				Body:  hydrated.User.DisplayName + " 评论了你的动态",
				URL:   "/feed/" + feedItemID,
				Tag:   "comment-" + feedItemID,
			})
		}
	}
	return &view, nil
}

// GetComments 评论正序，附带点赞信息
func (s *CommentService) GetComments(viewerID uint, feedItemID string) ([]CommentView, error) {
	if _, err := s.FeedRepo.FindByID(feedItemID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrFeedItemNotFound
		}
		return nil, err
	}

	comments, err := s.CommentRepo.FindByFeedItem(feedItemID)
	if err != nil {
		return nil, err
	}

	views := make([]CommentView, 0, len(comments))
	for i := range comments {
		likeCount, err := s.CommentRepo.CountLikes(comments[i].ID)
		if err != nil {
			return nil, err
		}
		hasLiked, err := s.CommentRepo.HasLiked(comments[i].ID, viewerID)
		if err != nil {
			return nil, err
		}
		views = append(views, s.toView(&comments[i], likeCount, hasLiked))
	}
	return views, nil
}

// DeleteComment 只有评论作者本人能删除
func (s *CommentService) DeleteComment(userID uint, commentID string) error {
	comment, err := s.CommentRepo.FindByID(commentID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return util.ErrCommentNotFound
	}
	if err != nil {
		return err
	}
	if comment.UserID != userID {
		return util.ErrPermissionDenied
	}
	return s.CommentRepo.DeleteCascade(commentID)
}

// ToggleLike 点赞/取消点赞，返回最新状态
func (s *CommentService) ToggleLike(userID uint, commentID string) (liked bool, likeCount int64, err error) {
	comment, err := s.CommentRepo.FindByID(commentID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, 0, util.ErrCommentNotFound
	}
	if err != nil {
		return false, 0, err
	}

	liked, err = s.CommentRepo.ToggleLike(commentID, userID)
	if err != nil {
		return false, 0, err
	}
	likeCount, err = s.CommentRepo.CountLikes(commentID)
	if err != nil {
		return false, 0, err
	}

	// 点赞才提醒，取消不提醒
	if liked && comment.UserID != userID && s.Notifier != nil {
		s.Notifier.Notify(comment.UserID, PushPayload{
			Title: "新点赞",
			Body:  "有人赞了你的评论",
			URL:   "/feed/" + comment.FeedItemID,
			Tag:   "like-" + commentID,
		})
	}
	return liked, likeCount, nil
}

func (s *CommentService) GetLikers(commentID string) ([]model.PublicProfile, error) {
	if _, err := s.CommentRepo.FindByID(commentID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrCommentNotFound
		}
		return nil, err
	}

	users, err := s.CommentRepo.ListLikers(commentID)
	if err != nil {
		return nil, err
	}
	profiles := make([]model.PublicProfile, 0, len(users))
	for _, u := range users {
		profiles = append(profiles, u.Public())
	}
	return profiles, nil
}

func (s *CommentService) toView(comment *model.Comment, likeCount int64, hasLiked bool) CommentView {
	return CommentView{
		ID:        comment.ID,
		Content:   comment.Content,
		User:      comment.User.Public(),
		LikeCount: likeCount,
		HasLiked:  hasLiked,
		CreatedAt: comment.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}
}
