package model

import "time"

// SpotifyToken 每个用户一行，保存 Spotify 的访问/刷新令牌
type SpotifyToken struct {
	BaseModel
	UserID       uint      `gorm:"uniqueIndex;not null" json:"userId"`
	AccessToken  string    `gorm:"type:text;not null" json:"-"`
	RefreshToken string    `gorm:"type:text;not null" json:"-"`
	Expiry       time.Time `json:"expiry"`
	Scope        string    `gorm:"size:255" json:"scope"`
}

func (SpotifyToken) TableName() string {
	return "spotify_tokens"
}
