package services

import (
	"context"
	"math"

	"github.com/Rahul23Kumar58Yadav/Excel-Analytics-Dashboard-sub001/internal/models"
)

type ColumnStats struct {
	Name         string   `json:"name"`
	Count        int      `json:"count"`
	NumericCount int      `json:"numericCount"`
	BlankCount   int      `json:"blankCount"`
	Min          *float64 `json:"min,omitempty"`
	Max          *float64 `json:"max,omitempty"`
	Sum          *float64 `json:"sum,omitempty"`
	Mean         *float64 `json:"mean,omitempty"`
}

// ComputeColumnStats summarises every column. Numeric aggregates are only
// reported for columns with at least one numeric cell.
func ComputeColumnStats(t *Table) []ColumnStats {
	out := make([]ColumnStats, 0, len(t.Columns))
	for _, col := range t.Columns {
		cs := ColumnStats{Name: col}
		var minV, maxV, sum float64
		for _, row := range t.Rows {
			v := row[col]
			if v == nil {
				cs.BlankCount++
				continue
			}
			cs.Count++
			f, ok := v.(float64)
			if !ok {
				continue
			}
			if cs.NumericCount == 0 {
				minV, maxV = f, f
			}
			minV = math.Min(minV, f)
			maxV = math.Max(maxV, f)
			sum += f
			cs.NumericCount++
		}
		if cs.NumericCount > 0 {
			mean := sum / float64(cs.NumericCount)
			cs.Min, cs.Max, cs.Sum, cs.Mean = &minV, &maxV, &sum, &mean
		}
		out = append(out, cs)
	}
	return out
}

type UserSummary struct {
	Files         int64         `json:"files"`
	FilesByStatus []GroupCount  `json:"filesByStatus"`
	StorageBytes  int64         `json:"storageBytes"`
	Downloads     int64         `json:"downloads"`
	Charts        int64         `json:"charts"`
	ChartsByType  []GroupCount  `json:"chartsByType"`
	RecentFiles   []models.File `json:"recentFiles"`
	UnreadAlerts  int64         `json:"unreadNotifications"`
}

// UserSummary aggregates the user's own files and charts.
func (s *StatsService) UserSummary(ctx context.Context, user *models.User, notifications *NotificationService) (*UserSummary, error) {
	db := s.DB.WithContext(ctx)
	sum := &UserSummary{}
	if err := db.Model(&models.File{}).Where("owner_id = ?", user.ID).Count(&sum.Files).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.File{}).Where("owner_id = ?", user.ID).
		Select("COALESCE(SUM(size), 0)").Scan(&sum.StorageBytes).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.File{}).Where("owner_id = ?", user.ID).
		Select("COALESCE(SUM(download_count), 0)").Scan(&sum.Downloads).Error; err != nil {
		return nil, err
	}

	var err error
	if sum.FilesByStatus, err = groupCounts(db.Model(&models.File{}).Where("owner_id = ?", user.ID), "status"); err != nil {
		return nil, err
	}
	if err := db.Model(&models.Chart{}).Where("owner_id = ?", user.ID).Count(&sum.Charts).Error; err != nil {
		return nil, err
	}
	if sum.ChartsByType, err = groupCounts(db.Model(&models.Chart{}).Where("owner_id = ?", user.ID), "chart_type"); err != nil {
		return nil, err
	}

	sum.RecentFiles = []models.File{}
	if err := db.Where("owner_id = ?", user.ID).Order("created_at DESC").Limit(5).Find(&sum.RecentFiles).Error; err != nil {
		return nil, err
	}

	if notifications != nil {
		if sum.UnreadAlerts, err = notifications.UnreadCount(ctx, user); err != nil {
			return nil, err
		}
	}
	return sum, nil
}
