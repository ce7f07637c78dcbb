package repository

import (
	"time"

	"peekify_backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type HistoryRepository struct {
	DB *gorm.DB
}

func NewHistoryRepository(db *gorm.DB) *HistoryRepository {
	return &HistoryRepository{DB: db}
}

// UpsertPlays 批量写入播放记录，重复同步靠唯一键静默跳过，返回实际新增条数
func (r *HistoryRepository) UpsertPlays(records []model.PlayRecord) (int64, error) {
	if len(records) == 0 {
		return 0, nil
	}
	res := r.DB.Clauses(clause.OnConflict{DoNothing: true}).CreateInBatches(&records, 100)
	return res.RowsAffected, res.Error
}

func (r *HistoryRepository) FindRange(userID uint, start, end time.Time, limit, offset int) ([]model.PlayRecord, int64, error) {
	var total int64
	q := r.DB.Model(&model.PlayRecord{}).
		Where("user_id = ? AND played_at >= ? AND played_at < ?", userID, start, end)
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var records []model.PlayRecord
	err := q.Order("played_at DESC").
		Limit(limit).Offset(offset).
		Find(&records).Error
	return records, total, err
}

// TopTrack 时间窗内播放次数最多的曲目，次数并列时取最近播放的一首
type TopTrack struct {
	TrackID      string    `json:"trackId"`
	TrackName    string    `json:"trackName"`
	ArtistName   string    `json:"artistName"`
	AlbumName    string    `json:"albumName"`
	AlbumArtURL  string    `json:"albumArtUrl"`
	DurationMs   int       `json:"durationMs"`
	PlayCount    int64     `json:"playCount"`
	LastPlayedAt time.Time `json:"lastPlayedAt"`
}

func (r *HistoryRepository) TopTrackBetween(userID uint, start, end time.Time) (*TopTrack, error) {
	var top TopTrack
	err := r.DB.Model(&model.PlayRecord{}).
		Select(`track_id,
			MAX(track_name) AS track_name,
			MAX(artist_name) AS artist_name,
			MAX(album_name) AS album_name,
			MAX(album_art_url) AS album_art_url,
			MAX(duration_ms) AS duration_ms,
			COUNT(*) AS play_count,
			MAX(played_at) AS last_played_at`).
		Where("user_id = ? AND played_at >= ? AND played_at < ?", userID, start, end).
		Group("track_id").
		Order("play_count DESC, last_played_at DESC").
		Limit(1).
		Scan(&top).Error
	if err != nil {
		return nil, err
	}
	if top.TrackID == "" {
		return nil, gorm.ErrRecordNotFound
	}
	return &top, nil
}

// ListeningStats 收听统计
type ListeningStats struct {
	TotalPlays      int64  `json:"totalPlays"`
	DistinctTracks  int64  `json:"distinctTracks"`
	DistinctArtists int64  `json:"distinctArtists"`
	TotalMs         int64  `json:"totalMs"`
	TopArtist       string `json:"topArtist"`
}

func (r *HistoryRepository) Stats(userID uint, start, end time.Time) (*ListeningStats, error) {
	var stats ListeningStats
	err := r.DB.Model(&model.PlayRecord{}).
		Select(`COUNT(*) AS total_plays,
			COUNT(DISTINCT track_id) AS distinct_tracks,
			COUNT(DISTINCT artist_name) AS distinct_artists,
			COALESCE(SUM(duration_ms), 0) AS total_ms`).
		Where("user_id = ? AND played_at >= ? AND played_at < ?", userID, start, end).
		Scan(&stats).Error
	if err != nil || stats.TotalPlays == 0 {
		return &stats, err
	}

	err = r.DB.Model(&model.PlayRecord{}).
		Select("artist_name").
		Where("user_id = ? AND played_at >= ? AND played_at < ?", userID, start, end).
		Group("artist_name").
		Order("COUNT(*) DESC").
		Limit(1).
		Scan(&stats.TopArtist).Error
	return &stats, err
}

// LatestPlayedAt 用户最近一条播放记录的时间，增量同步的游标
func (r *HistoryRepository) LatestPlayedAt(userID uint) (time.Time, error) {
	var record model.PlayRecord
	err := r.DB.Where("user_id = ?", userID).
		Order("played_at DESC").
		First(&record).Error
	if err != nil {
		return time.Time{}, err
	}
	return record.PlayedAt, nil
}
