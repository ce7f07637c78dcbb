package model

// Reaction (feed item, user, emoji) 唯一；同一用户可对同一条目使用不同表情
type Reaction struct {
	UUIDBase
	FeedItemID string `gorm:"uniqueIndex:idx_feed_user_emoji;type:varchar(36)" json:"feedItemId"`
	UserID     uint   `gorm:"uniqueIndex:idx_feed_user_emoji" json:"userId"`
	Emoji      string `gorm:"uniqueIndex:idx_feed_user_emoji;size:16" json:"emoji"`
	User       User   `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

func (Reaction) TableName() string {
	return "reactions"
}
