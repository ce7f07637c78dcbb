package repository

import (
	"peekify_backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CommentRepository struct {
	DB *gorm.DB
}

func NewCommentRepository(db *gorm.DB) *CommentRepository {
	return &CommentRepository{DB: db}
}

func (r *CommentRepository) Create(comment *model.Comment) error {
	return r.DB.Create(comment).Error
}

func (r *CommentRepository) FindByID(id string) (*model.Comment, error) {
	var comment model.Comment
	err := r.DB.Preload("User").First(&comment, "id = ?", id).Error
	return &comment, err
}

// FindByFeedItem 按时间正序返回，老评论在前
func (r *CommentRepository) FindByFeedItem(feedItemID string) ([]model.Comment, error) {
	var comments []model.Comment
	err := r.DB.Preload("User").
		Where("feed_item_id = ?", feedItemID).
		Order("created_at ASC, id ASC").
		Find(&comments).Error
	return comments, err
}

// DeleteCascade 删除评论及其点赞记录
func (r *CommentRepository) DeleteCascade(id string) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("comment_id = ?", id).Delete(&model.CommentLike{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Comment{}, "id = ?", id).Error
	})
}

// ToggleLike 原子开关：插入成功即点赞；唯一键冲突说明已点过，转为取消
func (r *CommentRepository) ToggleLike(commentID string, userID uint) (liked bool, err error) {
	like := &model.CommentLike{CommentID: commentID, UserID: userID}
	res := r.DB.Clauses(clause.OnConflict{DoNothing: true}).Create(like)
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected > 0 {
		return true, nil
	}
	err = r.DB.Where("comment_id = ? AND user_id = ?", commentID, userID).
		Delete(&model.CommentLike{}).Error
	return false, err
}

func (r *CommentRepository) CountLikes(commentID string) (int64, error) {
	var count int64
	err := r.DB.Model(&model.CommentLike{}).Where("comment_id = ?", commentID).Count(&count).Error
	return count, err
}

func (r *CommentRepository) HasLiked(commentID string, userID uint) (bool, error) {
	var count int64
	err := r.DB.Model(&model.CommentLike{}).
		Where("comment_id = ? AND user_id = ?", commentID, userID).
		Count(&count).Error
	return count > 0, err
}

// ListLikers 最近点赞的人排在前面
func (r *CommentRepository) ListLikers(commentID string) ([]model.User, error) {
	var users []model.User
	err := r.DB.Model(&model.User{}).
		Joins("JOIN comment_likes cl ON cl.user_id = users.id").
		Where("cl.comment_id = ?", commentID).
		Order("cl.created_at DESC").
		Find(&users).Error
	return users, err
}
