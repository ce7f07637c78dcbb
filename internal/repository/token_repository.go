package repository

import (
	"peekify_backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type TokenRepository struct {
	DB *gorm.DB
}

func NewTokenRepository(db *gorm.DB) *TokenRepository {
	return &TokenRepository{DB: db}
}

// Upsert 每个用户只保留一份 Spotify 令牌
func (r *TokenRepository) Upsert(token *model.SpotifyToken) error {
	return r.DB.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"access_token", "refresh_token", "expiry", "scope", "updated_at",
		}),
	}).Create(token).Error
}

func (r *TokenRepository) GetByUserID(userID uint) (*model.SpotifyToken, error) {
	var token model.SpotifyToken
	err := r.DB.Where("user_id = ?", userID).First(&token).Error
	return &token, err
}

func (r *TokenRepository) DeleteByUserID(userID uint) error {
	return r.DB.Where("user_id = ?", userID).Delete(&model.SpotifyToken{}).Error
}
