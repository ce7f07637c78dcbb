package repository

import (
	"time"

	"peekify_backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type UserRepository struct {
	DB *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{DB: db}
}

func (r *UserRepository) Create(user *model.User) error {
	return r.DB.Create(user).Error
}

func (r *UserRepository) FindByID(id uint) (*model.User, error) {
	var user model.User
	err := r.DB.First(&user, id).Error
	return &user, err
}

func (r *UserRepository) FindBySpotifyID(spotifyID string) (*model.User, error) {
	var user model.User
	err := r.DB.Where("spotify_id = ?", spotifyID).First(&user).Error
	return &user, err
}

func (r *UserRepository) FindByUsername(username string) (*model.User, error) {
	var user model.User
	err := r.DB.Where("username = ?", username).First(&user).Error
	return &user, err
}

func (r *UserRepository) Update(user *model.User) error {
	return r.DB.Save(user).Error
}

// UpdateColumns 只更新给定列，避免 Save 覆盖未修改字段
func (r *UserRepository) UpdateColumns(userID uint, columns map[string]interface{}) error {
	return r.DB.Model(&model.User{}).Where("id = ?", userID).Updates(columns).Error
}

func (r *UserRepository) UpdateAvatar(userID uint, url string) error {
	return r.DB.Model(&model.User{}).Where("id = ?", userID).Update("avatar", url).Error
}

func (r *UserRepository) UpdateLastSeen(userID uint) error {
	return r.DB.Model(&model.User{}).Where("id = ?", userID).Update("last_seen", time.Now()).Error
}

// FindInBatches 分批遍历全量用户，供后台任务使用
func (r *UserRepository) FindInBatches(batchSize int, fn func(users []model.User) error) error {
	var users []model.User
	return r.DB.FindInBatches(&users, batchSize, func(tx *gorm.DB, batch int) error {
		return fn(users)
	}).Error
}

// Search 按用户名/昵称模糊搜索，完整命中优先于前缀命中，前缀命中优先于中间命中
func (r *UserRepository) Search(query string, excludeID uint, limit int) ([]model.User, error) {
	var users []model.User
	term := "%" + query + "%"
	prefix := query + "%"
	relevance := clause.OrderBy{
		Expression: clause.Expr{
			SQL: `CASE
				WHEN LOWER(username) = LOWER(?) THEN 0
				WHEN LOWER(display_name) = LOWER(?) THEN 1
				WHEN LOWER(username) LIKE LOWER(?) THEN 2
				WHEN LOWER(display_name) LIKE LOWER(?) THEN 3
				ELSE 4 END, username ASC`,
			Vars:               []interface{}{query, query, prefix, prefix},
			WithoutParentheses: true,
		},
	}
	err := r.DB.
		Where("(LOWER(username) LIKE LOWER(?) OR LOWER(display_name) LIKE LOWER(?))", term, term).
		Where("id <> ?", excludeID).
		Clauses(relevance).
		Limit(limit).
		Find(&users).Error
	return users, err
}
