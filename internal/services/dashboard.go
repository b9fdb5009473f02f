package services

import (
	"context"
	"math"
	"time"

	"github.com/Rahul23Kumar58Yadav/Excel-Analytics-Dashboard-sub001/internal/config"
	"github.com/Rahul23Kumar58Yadav/Excel-Analytics-Dashboard-sub001/internal/models"
	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"gorm.io/gorm"
)

const (
	DefaultDashboardDays = 30
	MaxDashboardDays     = 365
	topUploaderCount     = 5
)

type GroupCount struct {
	Name  string `json:"name"`
	Count int64  `json:"count"`
}

// Metric compares a window with the window of equal length before it.
type Metric struct {
	Current  int64   `json:"current"`
	Previous int64   `json:"previous"`
	Change   float64 `json:"change"`
}

type Uploader struct {
	UserID    uuid.UUID `json:"userId"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	FileCount int64     `json:"fileCount"`
	Bytes     int64     `json:"bytes"`
}

type DailyPoint struct {
	Date  string `json:"date"`
	Count int64  `json:"count"`
	Bytes int64  `json:"bytes"`
}

type DashboardTotals struct {
	Users        int64 `json:"users"`
	ActiveUsers  int64 `json:"activeUsers"`
	Admins       int64 `json:"admins"`
	Files        int64 `json:"files"`
	Charts       int64 `json:"charts"`
	StorageBytes int64 `json:"storageBytes"`
	Downloads    int64 `json:"downloads"`
}

type DashboardWindow struct {
	NewUsers    Metric `json:"newUsers"`
	Uploads     Metric `json:"uploads"`
	Charts      Metric `json:"charts"`
	UploadBytes Metric `json:"uploadBytes"`
}

type DashboardStats struct {
	Days            int             `json:"days"`
	GeneratedAt     time.Time       `json:"generatedAt"`
	Totals          DashboardTotals `json:"totals"`
	Window          DashboardWindow `json:"window"`
	FilesByStatus   []GroupCount    `json:"filesByStatus"`
	FilesByMimeType []GroupCount    `json:"filesByMimeType"`
	ChartsByType    []GroupCount    `json:"chartsByType"`
	TopUploaders    []Uploader      `json:"topUploaders"`
	DailyUploads    []DailyPoint    `json:"dailyUploads"`
}

// PercentChange returns the change from previous to current in percent,
// rounded to two decimals. With no previous value any growth counts as 100.
func PercentChange(current, previous int64) float64 {
	if previous == 0 {
		if current > 0 {
			return 100
		}
		return 0
	}
	change := float64(current-previous) / float64(previous) * 100
	return math.Round(change*100) / 100
}

// StatsService computes dashboard and per-user statistics. Dashboard
// results are cached per window length.
type StatsService struct {
	DB    *gorm.DB
	cache *expirable.LRU[int, *DashboardStats]
	now   func() time.Time
}

func NewStatsService(db *gorm.DB, cfg config.DashboardConfig) *StatsService {
	size := cfg.CacheSize
	if size < 1 {
		size = 1
	}
	return &StatsService{
		DB:    db,
		cache: expirable.NewLRU[int, *DashboardStats](size, nil, cfg.CacheTTL),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Invalidate drops cached dashboards after admin changes.
func (s *StatsService) Invalidate() {
	s.cache.Purge()
}

func (s *StatsService) Dashboard(ctx context.Context, days int) (*DashboardStats, error) {
	if days < 1 || days > MaxDashboardDays {
		days = DefaultDashboardDays
	}
	if cached, ok := s.cache.Get(days); ok {
		dashboardCacheHits.Inc()
		return cached, nil
	}
	dashboardCacheMisses.Inc()

	stats, err := s.computeDashboard(ctx, days)
	if err != nil {
		return nil, err
	}
	s.cache.Add(days, stats)
	return stats, nil
}

func (s *StatsService) computeDashboard(ctx context.Context, days int) (*DashboardStats, error) {
	db := s.DB.WithContext(ctx)
	now := s.now()
	window := time.Duration(days) * 24 * time.Hour
	since := now.Add(-window)
	prevSince := since.Add(-window)

	stats := &DashboardStats{Days: days, GeneratedAt: now}
	t := &stats.Totals

	counts := []struct {
		dst   *int64
		query *gorm.DB
	}{
		{&t.Users, db.Model(&models.User{})},
		{&t.ActiveUsers, db.Model(&models.User{}).Where("status = ?", models.UserStatusActive)},
		{&t.Admins, db.Model(&models.User{}).Where("role = ?", models.UserRoleAdmin)},
		{&t.Files, db.Model(&models.File{})},
		{&t.Charts, db.Model(&models.Chart{})},
	}
	for _, c := range counts {
		if err := c.query.Count(c.dst).Error; err != nil {
			return nil, err
		}
	}
	if err := db.Model(&models.File{}).Select("COALESCE(SUM(size), 0)").Scan(&t.StorageBytes).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.File{}).Select("COALESCE(SUM(download_count), 0)").Scan(&t.Downloads).Error; err != nil {
		return nil, err
	}

	var err error
	w := &stats.Window
	if w.NewUsers, err = windowCount(db, &models.User{}, "", since, prevSince, now); err != nil {
		return nil, err
	}
	if w.Uploads, err = windowCount(db, &models.File{}, "", since, prevSince, now); err != nil {
		return nil, err
	}
	if w.Charts, err = windowCount(db, &models.Chart{}, "", since, prevSince, now); err != nil {
		return nil, err
	}
	if w.UploadBytes, err = windowCount(db, &models.File{}, "size", since, prevSince, now); err != nil {
		return nil, err
	}

	if stats.FilesByStatus, err = groupCounts(db.Model(&models.File{}), "status"); err != nil {
		return nil, err
	}
	if stats.FilesByMimeType, err = groupCounts(db.Model(&models.File{}), "mime_type"); err != nil {
		return nil, err
	}
	if stats.ChartsByType, err = groupCounts(db.Model(&models.Chart{}), "chart_type"); err != nil {
		return nil, err
	}

	stats.TopUploaders = []Uploader{}
	if err := db.Table("files").
		Select("files.owner_id AS user_id, users.name AS name, users.email AS email, COUNT(files.id) AS file_count, COALESCE(SUM(files.size), 0) AS bytes").
		Joins("JOIN users ON users.id = files.owner_id").
		Group("files.owner_id, users.name, users.email").
		Order("file_count DESC").
		Limit(topUploaderCount).
		Scan(&stats.TopUploaders).Error; err != nil {
		return nil, err
	}

	if stats.DailyUploads, err = dailyUploads(db, since, now); err != nil {
		return nil, err
	}
	return stats, nil
}

// windowCount counts rows (or sums sumColumn) created in [since, now) and
// in the window before it.
func windowCount(db *gorm.DB, model any, sumColumn string, since, prevSince, now time.Time) (Metric, error) {
	measure := func(from, to time.Time) (int64, error) {
		q := db.Model(model).Where("created_at >= ? AND created_at < ?", from, to)
		var v int64
		if sumColumn == "" {
			err := q.Count(&v).Error
			return v, err
		}
		err := q.Select("COALESCE(SUM(" + sumColumn + "), 0)").Scan(&v).Error
		return v, err
	}

	cur, err := measure(since, now)
	if err != nil {
		return Metric{}, err
	}
	prev, err := measure(prevSince, since)
	if err != nil {
		return Metric{}, err
	}
	return Metric{Current: cur, Previous: prev, Change: PercentChange(cur, prev)}, nil
}

func groupCounts(q *gorm.DB, column string) ([]GroupCount, error) {
	out := []GroupCount{}
	err := q.Select(column + " AS name, COUNT(*) AS count").
		Group(column).
		Order("count DESC").
		Scan(&out).Error
	return out, err
}

// dailyUploads returns one point per UTC day in the window, zero-filled.
func dailyUploads(db *gorm.DB, since, now time.Time) ([]DailyPoint, error) {
	var rows []struct {
		CreatedAt time.Time
		Size      int64
	}
	if err := db.Model(&models.File{}).
		Select("created_at, size").
		Where("created_at >= ?", since).
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	byDay := make(map[string]*DailyPoint)
	var points []DailyPoint
	start := time.Date(since.Year(), since.Month(), since.Day(), 0, 0, 0, 0, time.UTC)
	for d := start; !d.After(now); d = d.AddDate(0, 0, 1) {
		points = append(points, DailyPoint{Date: d.Format("2006-01-02")})
	}
	for i := range points {
		byDay[points[i].Date] = &points[i]
	}
	for _, r := range rows {
		if p, ok := byDay[r.CreatedAt.UTC().Format("2006-01-02")]; ok {
			p.Count++
			p.Bytes += r.Size
		}
	}
	return points, nil
}
