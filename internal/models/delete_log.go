package models

import "time"

// ImageDeleteLog records an image that was physically deleted by cleanup
type ImageDeleteLog struct {
	ID         uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	ImageID    int64     `gorm:"not null;index" json:"imageId"`
	ImmobileID int64     `gorm:"not null;index" json:"immobileId"`
	URL        string    `gorm:"type:text" json:"url"`
	RemovedAt  time.Time `json:"removedAt"`
	DeletedAt  time.Time `gorm:"not null;autoCreateTime;index" json:"deletedAt"`
	Reason     string    `gorm:"type:varchar(50);not null" json:"reason"`
}

// TableName specifies the table name
func (ImageDeleteLog) TableName() string {
	return "image_delete_logs"
}

// DeleteReason constants
const (
	DeleteReasonImmobileRemoved = "immobile_removed"
	DeleteReasonManual          = "manual_deletion"
)
