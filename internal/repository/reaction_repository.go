package repository

import (
	"peekify_backend/internal/model"
	"peekify_backend/internal/util"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ReactionRepository struct {
	DB *gorm.DB
}

func NewReactionRepository(db *gorm.DB) *ReactionRepository {
	return &ReactionRepository{DB: db}
}

// Add 同一用户对同一动态的同一 emoji 只能表态一次，冲突即报已表态
func (r *ReactionRepository) Add(reaction *model.Reaction) error {
	res := r.DB.Clauses(clause.OnConflict{DoNothing: true}).Create(reaction)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return util.ErrAlreadyReacted
	}
	return nil
}

// RemoveByUser 删除该用户在这条动态上的全部表态
func (r *ReactionRepository) RemoveByUser(feedItemID string, userID uint) error {
	res := r.DB.Where("feed_item_id = ? AND user_id = ?", feedItemID, userID).
		Delete(&model.Reaction{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return util.ErrReactionNotFound
	}
	return nil
}

// ListByFeedItem 新表态在前
func (r *ReactionRepository) ListByFeedItem(feedItemID string) ([]model.Reaction, error) {
	var reactions []model.Reaction
	err := r.DB.Preload("User").
		Where("feed_item_id = ?", feedItemID).
		Order("created_at DESC, id DESC").
		Find(&reactions).Error
	return reactions, err
}
