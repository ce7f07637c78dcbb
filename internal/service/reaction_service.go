package service

import (
	"errors"
	"strings"
	"unicode/utf8"

	"peekify_backend/internal/model"
	"peekify_backend/internal/repository"
	"peekify_backend/internal/util"

	"gorm.io/gorm"
)

type ReactionService struct {
	ReactionRepo *repository.ReactionRepository
	FeedRepo     *repository.FeedRepository
	Hub          *EventHub
	Notifier     *NotificationService
}

func NewReactionService(reactionRepo *repository.ReactionRepository, feedRepo *repository.FeedRepository,
	hub *EventHub, notifier *NotificationService) *ReactionService {
	return &ReactionService{
		ReactionRepo: reactionRepo,
		FeedRepo:     feedRepo,
		Hub:          hub,
		Notifier:     notifier,
	}
}

// ReactionView 单条表态
type ReactionView struct {
	ID        string              `json:"id"`
	Emoji     string              `json:"emoji"`
	User      model.PublicProfile `json:"user"`
	CreatedAt string              `json:"createdAt"`
}

// EmojiSummary 按 emoji 聚合的计数和表态用户
type EmojiSummary struct {
	Emoji string                `json:"emoji"`
	Count int                   `json:"count"`
	Users []model.PublicProfile `json:"users"`
}

// AddReaction 同一用户可以用不同 emoji 表态多次，同一 emoji 只能一次
func (s *ReactionService) AddReaction(userID uint, feedItemID, emoji string) (*ReactionView, error) {
	emoji = strings.TrimSpace(emoji)
	if emoji == "" || utf8.RuneCountInString(emoji) > 8 {
		return nil, errors.New("无效的 emoji")
	}

	item, err := s.FeedRepo.FindByID(feedItemID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrFeedItemNotFound
	}
	if err != nil {
		return nil, err
	}

	reaction := &model.Reaction{
		FeedItemID: feedItemID,
		UserID:     userID,
		Emoji:      emoji,
	}
	if err := s.ReactionRepo.Add(reaction); err != nil {
		return nil, err
	}

	view := ReactionView{
		ID:        reaction.ID,
		Emoji:     reaction.Emoji,
		CreatedAt: reaction.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}

	if item.UserID != userID {
		if s.Hub != nil {
			s.Hub.PushToUsers([]uint{item.UserID}, WSMessage{
				Type: EventNewReaction,
				Data: map[string]interface{}{
					"feedItemId": feedItemID,
					"emoji":      emoji,
					"userId":     userID,
				},
			})
		}
		if s.Notifier != nil {
			s.Notifier.Notify(item.UserID, PushPayload{
				Title: "新表态",
				Body:  "有人用 " + emoji + " 回应了你的动态",
				URL:   "/feed/" + feedItemID,
				Tag:   "reaction-" + feedItemID,
			})
		}
	}
	return &view, nil
}

// RemoveReaction 撤掉自己在这条动态上的全部表态，按用户而不是按 emoji 删除
func (s *ReactionService) RemoveReaction(userID uint, feedItemID string) error {
	if _, err := s.FeedRepo.FindByID(feedItemID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return util.ErrFeedItemNotFound
		}
		return err
	}
	return s.ReactionRepo.RemoveByUser(feedItemID, userID)
}

// GetReactions 表态明细 + 聚合摘要，摘要按首次出现顺序排列（明细是新的在前）
func (s *ReactionService) GetReactions(feedItemID string) ([]ReactionView, []EmojiSummary, error) {
	if _, err := s.FeedRepo.FindByID(feedItemID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, util.ErrFeedItemNotFound
		}
		return nil, nil, err
	}

	reactions, err := s.ReactionRepo.ListByFeedItem(feedItemID)
	if err != nil {
		return nil, nil, err
	}

	views := make([]ReactionView, 0, len(reactions))
	groups := map[string][]model.PublicProfile{}
	var order []string
	for _, r := range reactions {
		profile := r.User.Public()
		views = append(views, ReactionView{
			ID:        r.ID,
			Emoji:     r.Emoji,
			User:      profile,
			CreatedAt: r.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
		})
		if _, seen := groups[r.Emoji]; !seen {
			order = append(order, r.Emoji)
		}
		groups[r.Emoji] = append(groups[r.Emoji], profile)
	}

	summary := make([]EmojiSummary, 0, len(order))
	for _, emoji := range order {
		users := groups[emoji]
		summary = append(summary, EmojiSummary{Emoji: emoji, Count: len(users), Users: users})
	}
	return views, summary, nil
}
