package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type NotificationType string

const (
	NotificationTypeInfo    NotificationType = "info"
	NotificationTypeSuccess NotificationType = "success"
	NotificationTypeWarning NotificationType = "warning"
	NotificationTypeError   NotificationType = "error"
	NotificationTypeSystem  NotificationType = "system"
)

func ValidNotificationType(t NotificationType) bool {
	switch t {
	case NotificationTypeInfo, NotificationTypeSuccess, NotificationTypeWarning,
		NotificationTypeError, NotificationTypeSystem:
		return true
	default:
		return false
	}
}

type NotificationPriority string

const (
	NotificationPriorityLow    NotificationPriority = "low"
	NotificationPriorityMedium NotificationPriority = "medium"
	NotificationPriorityHigh   NotificationPriority = "high"
	NotificationPriorityUrgent NotificationPriority = "urgent"
)

func ValidNotificationPriority(p NotificationPriority) bool {
	switch p {
	case NotificationPriorityLow, NotificationPriorityMedium, NotificationPriorityHigh,
		NotificationPriorityUrgent:
		return true
	default:
		return false
	}
}

// Notification is addressed to a single recipient, or broadcast to every
// admin when RecipientID is nil. Read state is tracked per reader in
// NotificationRead; Read is filled in for the viewing user.
type Notification struct {
	BaseModel
	Title       string               `json:"title" gorm:"type:varchar(255);not null"`
	Message     string               `json:"message" gorm:"type:text;not null"`
	Type        NotificationType     `json:"type" gorm:"type:varchar(20);not null;default:'info';index"`
	Priority    NotificationPriority `json:"priority" gorm:"type:varchar(20);not null;default:'medium'"`
	RecipientID *uuid.UUID           `json:"recipientID,omitempty" gorm:"type:uuid;index"`
	ExpiresAt   *time.Time           `json:"expiresAt,omitempty" gorm:"index"`
	Link        *string              `json:"link,omitempty" gorm:"type:text"`
	Metadata    datatypes.JSON       `json:"metadata,omitempty"`

	Read   bool               `json:"read" gorm:"-"`
	ReadBy []NotificationRead `json:"readBy,omitempty" gorm:"foreignKey:NotificationID"`
}

func (Notification) TableName() string {
	return "notifications"
}

func (n *Notification) IsBroadcast() bool {
	return n.RecipientID == nil
}

type NotificationRead struct {
	NotificationID uuid.UUID `json:"notificationID" gorm:"type:uuid;primaryKey"`
	UserID         uuid.UUID `json:"userID" gorm:"type:uuid;primaryKey"`
	ReadAt         time.Time `json:"readAt" gorm:"not null"`
}

func (NotificationRead) TableName() string {
	return "notification_reads"
}
