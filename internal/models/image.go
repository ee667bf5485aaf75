package models

// Image is a stored reference to a picture of a property listing
type Image struct {
	ID         int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	URL        string `gorm:"type:text;not null" json:"url"`
	ImmobileID int64  `gorm:"not null;index" json:"immobileId"`

	// Relationship
	Immobile *Immobile `gorm:"foreignKey:ImmobileID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"-"`
}

// TableName specifies the table name for Image
func (Image) TableName() string {
	return "images"
}
