package model

import "gorm.io/datatypes"

const FeedItemTypeDailySong = "daily_song"

// FeedItem 动态流条目，创建后不可修改
type FeedItem struct {
	UUIDBase
	UserID  uint           `gorm:"index;not null" json:"userId"`
	User    User           `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Type    string         `gorm:"size:32;not null" json:"type"`
	Content datatypes.JSON `gorm:"not null" json:"content"`
}

func (FeedItem) TableName() string {
	return "feed_items"
}
