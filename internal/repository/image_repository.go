package repository

import (
	"context"
	"errors"
	"fmt"

	"immobile-portal/internal/database"
	"immobile-portal/internal/models"

	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned when a lookup matches no row
	ErrNotFound = errors.New("record not found")
	// ErrImmobileNotFound is returned when images reference a property that does not exist
	ErrImmobileNotFound = errors.New("immobile not found")
)

const createBatchSize = 100

// ImageRepository persists listing images
type ImageRepository interface {
	FindAll(ctx context.Context) ([]models.Image, error)
	FindByID(ctx context.Context, id int64) (*models.Image, error)
	CreateMany(ctx context.Context, images []models.Image) (int64, error)
}

var _ ImageRepository = (*GormImageRepository)(nil)

// GormImageRepository implements ImageRepository on gorm
type GormImageRepository struct {
	db *gorm.DB
}

// NewImageRepository creates a new GormImageRepository
func NewImageRepository(db *gorm.DB) *GormImageRepository {
	return &GormImageRepository{db: db}
}

// FindAll returns every stored image ordered by id
func (r *GormImageRepository) FindAll(ctx context.Context) ([]models.Image, error) {
	images := make([]models.Image, 0)
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&images).Error; err != nil {
		return nil, fmt.Errorf("failed to list images: %w", err)
	}
	return images, nil
}

// FindByID returns the image with the given id or ErrNotFound
func (r *GormImageRepository) FindByID(ctx context.Context, id int64) (*models.Image, error) {
	var image models.Image
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&image).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get image %d: %w", id, err)
	}
	return &image, nil
}

// CreateMany inserts all images in one transaction and returns the number of rows created.
// Either every row is stored or none is.
func (r *GormImageRepository) CreateMany(ctx context.Context, images []models.Image) (int64, error) {
	if len(images) == 0 {
		return 0, nil
	}

	var created int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Omit("Immobile").CreateInBatches(&images, createBatchSize)
		if result.Error != nil {
			return result.Error
		}
		created = result.RowsAffected
		return nil
	})
	if database.IsForeignKeyViolation(err) {
		return 0, ErrImmobileNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to create images: %w", err)
	}
	return created, nil
}
