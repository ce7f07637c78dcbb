package model

// PushSubscription Web Push 订阅，端点在全表唯一
type PushSubscription struct {
	BaseModel
	UserID   uint   `gorm:"index;not null" json:"userId"`
	Endpoint string `gorm:"size:512;uniqueIndex:idx_push_endpoint,length:191;not null" json:"endpoint"`
	P256dh   string `gorm:"size:255;not null" json:"-"`
	Auth     string `gorm:"size:255;not null" json:"-"`
}

func (PushSubscription) TableName() string {
	return "push_subscriptions"
}
