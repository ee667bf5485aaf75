package models

import "time"

// Immobile is the property listing images belong to
type Immobile struct {
	ID      int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	Title   string `gorm:"type:varchar(255);not null" json:"title"`
	OwnerID string `gorm:"type:varchar(64);index" json:"ownerId,omitempty"`

	// soft delete state
	Status    ImmobileStatus `gorm:"type:varchar(20);not null;default:'active';index" json:"status"`
	RemovedAt *time.Time     `json:"removedAt,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

// ImmobileStatus is the publication state of a listing
type ImmobileStatus string

const (
	ImmobileStatusActive  ImmobileStatus = "active"
	ImmobileStatusRemoved ImmobileStatus = "removed"
)

// TableName specifies the table name for Immobile
func (Immobile) TableName() string {
	return "immobiles"
}

// IsActive reports whether the listing is still published
func (i *Immobile) IsActive() bool {
	return i.Status == ImmobileStatusActive
}

// MarkAsRemoved soft-deletes the listing
func (i *Immobile) MarkAsRemoved() {
	i.Status = ImmobileStatusRemoved
	now := time.Now()
	i.RemovedAt = &now
}
