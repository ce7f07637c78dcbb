package repository

import (
	"time"

	"peekify_backend/internal/model"

	"gorm.io/gorm"
)

type FeedRepository struct {
	DB *gorm.DB
}

func NewFeedRepository(db *gorm.DB) *FeedRepository {
	return &FeedRepository{DB: db}
}

// FeedItemWithCounts 附带评论数与表态数的动态条目
type FeedItemWithCounts struct {
	model.FeedItem
	CommentCount  int64 `json:"commentCount"`
	ReactionCount int64 `json:"reactionCount"`
}

func (r *FeedRepository) Create(item *model.FeedItem) error {
	return r.DB.Create(item).Error
}

func (r *FeedRepository) FindByID(id string) (*model.FeedItem, error) {
	var item model.FeedItem
	err := r.DB.First(&item, "id = ?", id).Error
	return &item, err
}

func (r *FeedRepository) FindByIDWithUser(id string) (*model.FeedItem, error) {
	var item model.FeedItem
	err := r.DB.Preload("User").First(&item, "id = ?", id).Error
	return &item, err
}

// FindWithCounts 查询指定用户集合的动态，倒序分页，评论数和表态数用子查询一次带出
func (r *FeedRepository) FindWithCounts(userIDs []uint, limit, offset int) ([]FeedItemWithCounts, int64, error) {
	if len(userIDs) == 0 {
		return []FeedItemWithCounts{}, 0, nil
	}

	var total int64
	if err := r.DB.Model(&model.FeedItem{}).
		Where("user_id IN ?", userIDs).
		Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var items []model.FeedItem
	err := r.DB.Preload("User").
		Where("user_id IN ?", userIDs).
		Order("created_at DESC, id DESC").
		Limit(limit).Offset(offset).
		Find(&items).Error
	if err != nil {
		return nil, 0, err
	}
	if len(items) == 0 {
		return []FeedItemWithCounts{}, total, nil
	}

	ids := make([]string, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ID)
	}

	commentCounts, err := r.countByFeedItem(&model.Comment{}, ids)
	if err != nil {
		return nil, 0, err
	}
	reactionCounts, err := r.countByFeedItem(&model.Reaction{}, ids)
	if err != nil {
		return nil, 0, err
	}

	result := make([]FeedItemWithCounts, 0, len(items))
	for _, item := range items {
		result = append(result, FeedItemWithCounts{
			FeedItem:      item,
			CommentCount:  commentCounts[item.ID],
			ReactionCount: reactionCounts[item.ID],
		})
	}
	return result, total, nil
}

func (r *FeedRepository) countByFeedItem(mdl interface{}, feedItemIDs []string) (map[string]int64, error) {
	type row struct {
		FeedItemID string
		Count      int64
	}
	var rows []row
	err := r.DB.Model(mdl).
		Select("feed_item_id, COUNT(*) AS count").
		Where("feed_item_id IN ?", feedItemIDs).
		Group("feed_item_id").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int64, len(rows))
	for _, r := range rows {
		counts[r.FeedItemID] = r.Count
	}
	return counts, nil
}

// HasItemBetween 判断用户在给定时间窗内是否已有某类动态，用于每日回放去重
func (r *FeedRepository) HasItemBetween(userID uint, itemType string, start, end time.Time) (bool, error) {
	var count int64
	err := r.DB.Model(&model.FeedItem{}).
		Where("user_id = ? AND type = ? AND created_at >= ? AND created_at < ?", userID, itemType, start, end).
		Count(&count).Error
	return count > 0, err
}

func (r *FeedRepository) Delete(id string) error {
	return r.DB.Delete(&model.FeedItem{}, "id = ?", id).Error
}
