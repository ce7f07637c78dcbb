package model

import "time"

type PrivacyLevel string

const (
	PrivacyPrivate PrivacyLevel = "private"
	PrivacyFriends PrivacyLevel = "friends"
	PrivacyPublic  PrivacyLevel = "public"
)

// swagger:model User
type User struct {
	BaseModel
	SpotifyID        string       `gorm:"size:100;uniqueIndex;not null" json:"spotifyId"`
	Email            string       `gorm:"size:100;index" json:"email"`
	DisplayName      string       `gorm:"size:100;not null" json:"displayName"`
	Username         string       `gorm:"size:50;uniqueIndex" json:"username"`
	Bio              string       `gorm:"size:500" json:"bio"`
	Avatar           string       `gorm:"size:255" json:"avatar"`
	PrivacyLevel     PrivacyLevel `gorm:"size:10;default:'public'" json:"privacyLevel"`
	Timezone         string       `gorm:"size:64;default:'UTC'" json:"timezone"`
	NotificationTime string       `gorm:"size:5;default:'09:00'" json:"notificationTime"` // HH:MM 本地时间
	LastSeen         time.Time    `gorm:"autoCreateTime" json:"lastSeen"`
}

func (User) TableName() string {
	return "users"
}

// PublicProfile 对外公开的用户字段
type PublicProfile struct {
	ID          uint   `json:"id"`
	DisplayName string `json:"displayName"`
	Username    string `json:"username"`
	Avatar      string `json:"avatar"`
	Bio         string `json:"bio"`
}

func (u *User) Public() PublicProfile {
	return PublicProfile{
		ID:          u.ID,
		DisplayName: u.DisplayName,
		Username:    u.Username,
		Avatar:      u.Avatar,
		Bio:         u.Bio,
	}
}
