package model

import "time"

// PlayRecord 一次播放记录，(user, track, played_at) 唯一防止重复同步
type PlayRecord struct {
	BaseModel
	UserID      uint      `gorm:"uniqueIndex:idx_user_track_played;not null" json:"userId"`
	TrackID     string    `gorm:"uniqueIndex:idx_user_track_played;size:64;not null" json:"trackId"`
	PlayedAt    time.Time `gorm:"uniqueIndex:idx_user_track_played;not null" json:"playedAt"`
	TrackName   string    `gorm:"size:255" json:"trackName"`
	ArtistName  string    `gorm:"size:255" json:"artistName"`
	AlbumName   string    `gorm:"size:255" json:"albumName"`
	AlbumArtURL string    `gorm:"size:255" json:"albumArtUrl"`
	DurationMs  int       `json:"durationMs"`
}

func (PlayRecord) TableName() string {
	return "play_records"
}
