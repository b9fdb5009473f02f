package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Rahul23Kumar58Yadav/Excel-Analytics-Dashboard-sub001/internal/config"
	"github.com/Rahul23Kumar58Yadav/Excel-Analytics-Dashboard-sub001/internal/models"
	"github.com/Rahul23Kumar58Yadav/Excel-Analytics-Dashboard-sub001/pkg/logger"
	"github.com/Rahul23Kumar58Yadav/Excel-Analytics-Dashboard-sub001/pkg/utils"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type NotificationInput struct {
	Title     string
	Message   string
	Type      models.NotificationType
	Priority  models.NotificationPriority
	Link      *string
	Metadata  map[string]any
	ExpiresAt *time.Time
}

type NotificationService struct {
	DB         *gorm.DB
	defaultTTL time.Duration
	now        func() time.Time

	stopOnce sync.Once
	stop     chan struct{}
}

func NewNotificationService(db *gorm.DB, cfg config.NotificationConfig) *NotificationService {
	return &NotificationService{
		DB:         db,
		defaultTTL: cfg.DefaultTTL,
		now:        func() time.Time { return time.Now().UTC() },
		stop:       make(chan struct{}),
	}
}

// Notify sends a notification to a single user.
func (s *NotificationService) Notify(ctx context.Context, recipientID uuid.UUID, in NotificationInput) (*models.Notification, error) {
	return s.create(ctx, &recipientID, in)
}

// Broadcast sends a notification to every admin.
func (s *NotificationService) Broadcast(ctx context.Context, in NotificationInput) (*models.Notification, error) {
	return s.create(ctx, nil, in)
}

func (s *NotificationService) create(ctx context.Context, recipientID *uuid.UUID, in NotificationInput) (*models.Notification, error) {
	if in.Title == "" || in.Message == "" {
		return nil, errors.New("title and message are required")
	}
	if in.Type == "" {
		in.Type = models.NotificationTypeInfo
	}
	if !models.ValidNotificationType(in.Type) {
		return nil, fmt.Errorf("invalid notification type %q", in.Type)
	}
	if in.Priority == "" {
		in.Priority = models.NotificationPriorityMedium
	}
	if !models.ValidNotificationPriority(in.Priority) {
		return nil, fmt.Errorf("invalid notification priority %q", in.Priority)
	}

	n := models.Notification{
		Title:       in.Title,
		Message:     in.Message,
		Type:        in.Type,
		Priority:    in.Priority,
		RecipientID: recipientID,
		Link:        in.Link,
		ExpiresAt:   in.ExpiresAt,
	}
	if n.ExpiresAt == nil && s.defaultTTL > 0 {
		exp := s.now().Add(s.defaultTTL)
		n.ExpiresAt = &exp
	}
	if len(in.Metadata) > 0 {
		raw, err := json.Marshal(in.Metadata)
		if err != nil {
			return nil, err
		}
		n.Metadata = datatypes.JSON(raw)
	}

	if err := s.DB.WithContext(ctx).Create(&n).Error; err != nil {
		return nil, err
	}
	return &n, nil
}

// notifySafe is for side-channel notifications whose failure must not fail
// the operation that triggered them.
func (s *NotificationService) notifySafe(ctx context.Context, recipientID *uuid.UUID, in NotificationInput) {
	if s == nil {
		return
	}
	if _, err := s.create(ctx, recipientID, in); err != nil {
		logger.Error("notification_create_failed", err, map[string]any{"title": in.Title})
	}
}

// visible limits a query to unexpired notifications addressed to user,
// plus broadcasts when user is an admin.
func (s *NotificationService) visible(db *gorm.DB, user *models.User) *gorm.DB {
	db = db.Where("notifications.expires_at IS NULL OR notifications.expires_at > ?", s.now())
	if user.IsAdmin() {
		return db.Where("notifications.recipient_id = ? OR notifications.recipient_id IS NULL", user.ID)
	}
	return db.Where("notifications.recipient_id = ?", user.ID)
}

func unreadBy(db *gorm.DB, userID uuid.UUID) *gorm.DB {
	return db.Where("NOT EXISTS (SELECT 1 FROM notification_reads nr WHERE nr.notification_id = notifications.id AND nr.user_id = ?)", userID)
}

func (s *NotificationService) List(ctx context.Context, user *models.User, unreadOnly bool, p utils.PaginationParams) ([]models.Notification, int64, error) {
	query := s.visible(s.DB.WithContext(ctx).Model(&models.Notification{}), user)
	if unreadOnly {
		query = unreadBy(query, user.ID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var items []models.Notification
	if err := utils.ApplyPagination(query.Order("notifications.created_at DESC"), p).Find(&items).Error; err != nil {
		return nil, 0, err
	}
	if err := s.fillRead(ctx, user.ID, items); err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (s *NotificationService) fillRead(ctx context.Context, userID uuid.UUID, items []models.Notification) error {
	if len(items) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, len(items))
	for i := range items {
		ids[i] = items[i].ID
	}

	var readIDs []uuid.UUID
	if err := s.DB.WithContext(ctx).Model(&models.NotificationRead{}).
		Where("user_id = ? AND notification_id IN ?", userID, ids).
		Pluck("notification_id", &readIDs).Error; err != nil {
		return err
	}
	read := make(map[uuid.UUID]bool, len(readIDs))
	for _, id := range readIDs {
		read[id] = true
	}
	for i := range items {
		items[i].Read = read[items[i].ID]
	}
	return nil
}

func (s *NotificationService) UnreadCount(ctx context.Context, user *models.User) (int64, error) {
	var count int64
	err := unreadBy(s.visible(s.DB.WithContext(ctx).Model(&models.Notification{}), user), user.ID).
		Count(&count).Error
	return count, err
}

func (s *NotificationService) get(ctx context.Context, user *models.User, id uuid.UUID) (*models.Notification, error) {
	var n models.Notification
	err := s.visible(s.DB.WithContext(ctx), user).First(&n, "notifications.id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func (s *NotificationService) MarkRead(ctx context.Context, user *models.User, id uuid.UUID) (*models.Notification, error) {
	n, err := s.get(ctx, user, id)
	if err != nil {
		return nil, err
	}
	read := models.NotificationRead{NotificationID: n.ID, UserID: user.ID, ReadAt: s.now()}
	if err := s.DB.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&read).Error; err != nil {
		return nil, err
	}
	n.Read = true
	return n, nil
}

func (s *NotificationService) MarkAllRead(ctx context.Context, user *models.User) (int64, error) {
	var ids []uuid.UUID
	query := unreadBy(s.visible(s.DB.WithContext(ctx).Model(&models.Notification{}), user), user.ID)
	if err := query.Pluck("notifications.id", &ids).Error; err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}

	now := s.now()
	reads := make([]models.NotificationRead, len(ids))
	for i, id := range ids {
		reads[i] = models.NotificationRead{NotificationID: id, UserID: user.ID, ReadAt: now}
	}
	if err := s.DB.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).CreateInBatches(reads, 200).Error; err != nil {
		return 0, err
	}
	return int64(len(ids)), nil
}

// Delete removes a notification. Recipients delete their own; broadcasts
// can only be deleted by admins, which visible already enforces.
func (s *NotificationService) Delete(ctx context.Context, user *models.User, id uuid.UUID) error {
	n, err := s.get(ctx, user, id)
	if err != nil {
		return err
	}
	return s.deleteIDs(s.DB.WithContext(ctx), []uuid.UUID{n.ID})
}

func (s *NotificationService) deleteIDs(db *gorm.DB, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("notification_id IN ?", ids).Delete(&models.NotificationRead{}).Error; err != nil {
			return err
		}
		return tx.Where("id IN ?", ids).Delete(&models.Notification{}).Error
	})
}

// DeleteNotificationsForUser removes everything addressed to the user and their read
// markers. It runs inside the caller's transaction.
func DeleteNotificationsForUser(tx *gorm.DB, userID uuid.UUID) error {
	if err := tx.Where("user_id = ?", userID).Delete(&models.NotificationRead{}).Error; err != nil {
		return err
	}
	if err := tx.Where("notification_id IN (?)",
		tx.Model(&models.Notification{}).Select("id").Where("recipient_id = ?", userID),
	).Delete(&models.NotificationRead{}).Error; err != nil {
		return err
	}
	return tx.Where("recipient_id = ?", userID).Delete(&models.Notification{}).Error
}

// DeleteExpired removes notifications whose expiry has passed.
func (s *NotificationService) DeleteExpired(ctx context.Context) (int64, error) {
	var ids []uuid.UUID
	if err := s.DB.WithContext(ctx).Model(&models.Notification{}).
		Where("expires_at IS NOT NULL AND expires_at <= ?", s.now()).
		Pluck("id", &ids).Error; err != nil {
		return 0, err
	}
	if err := s.deleteIDs(s.DB.WithContext(ctx), ids); err != nil {
		return 0, err
	}
	notificationsExpiredTotal.Add(float64(len(ids)))
	return int64(len(ids)), nil
}

// StartCleanup deletes expired notifications every interval until Stop.
func (s *NotificationService) StartCleanup(interval time.Duration) {
	if interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-s.stop:
				return
			case <-ticker.C:
				n, err := s.DeleteExpired(context.Background())
				if err != nil {
					logger.Error("notification_cleanup_failed", err, nil)
					continue
				}
				if n > 0 {
					logger.Info("notification_cleanup", map[string]any{"deleted": n})
				}
			}
		}
	}()
}

func (s *NotificationService) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
}

// AdminList returns every notification, including read markers, for the
// admin console.
func (s *NotificationService) AdminList(ctx context.Context, broadcastOnly bool, p utils.PaginationParams) ([]models.Notification, int64, error) {
	query := s.DB.WithContext(ctx).Model(&models.Notification{}).
		Where("expires_at IS NULL OR expires_at > ?", s.now())
	if broadcastOnly {
		query = query.Where("recipient_id IS NULL")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var items []models.Notification
	err := utils.ApplyPagination(query.Preload("ReadBy").Order("created_at DESC"), p).Find(&items).Error
	return items, total, err
}
