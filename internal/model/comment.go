package model

import "time"

type Comment struct {
	UUIDBase
	FeedItemID string `gorm:"index;type:varchar(36);not null" json:"feedItemId"`
	UserID     uint   `gorm:"index;not null" json:"userId"`
	User       User   `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Content    string `gorm:"type:text;not null" json:"content"`
}

func (Comment) TableName() string {
	return "comments"
}

// CommentLike (comment, user) 唯一，点赞为开关式
type CommentLike struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	CommentID string    `gorm:"uniqueIndex:idx_comment_user;type:varchar(36)" json:"commentId"`
	UserID    uint      `gorm:"uniqueIndex:idx_comment_user" json:"userId"`
	User      User      `gorm:"foreignKey:UserID" json:"user,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

func (CommentLike) TableName() string {
	return "comment_likes"
}
