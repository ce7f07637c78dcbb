package repository

import (
	"peekify_backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PushRepository struct {
	DB *gorm.DB
}

func NewPushRepository(db *gorm.DB) *PushRepository {
	return &PushRepository{DB: db}
}

// Save 同一 endpoint 重复订阅时更新密钥与归属用户
func (r *PushRepository) Save(sub *model.PushSubscription) error {
	return r.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "endpoint"}},
		DoUpdates: clause.AssignmentColumns([]string{"user_id", "p256dh", "auth", "updated_at"}),
	}).Create(sub).Error
}

func (r *PushRepository) DeleteByEndpoint(userID uint, endpoint string) error {
	return r.DB.Where("user_id = ? AND endpoint = ?", userID, endpoint).
		Delete(&model.PushSubscription{}).Error
}

func (r *PushRepository) ListByUser(userID uint) ([]model.PushSubscription, error) {
	var subs []model.PushSubscription
	err := r.DB.Where("user_id = ?", userID).Find(&subs).Error
	return subs, err
}

func (r *PushRepository) Delete(id uint) error {
	return r.DB.Delete(&model.PushSubscription{}, id).Error
}
