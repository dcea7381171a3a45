package artworks

import (
	"context"
	"fmt"

	"github.com/angelmondragon/auction-archive/internal/repo"
	"github.com/angelmondragon/auction-archive/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository handles artwork persistence.
type Repository struct {
	repo.Base
}

// NewRepository binds a GORM DB to artwork operations.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// CreateWithTx inserts the row inside the provided transaction.
func (r *Repository) CreateWithTx(tx *gorm.DB, artwork *models.Artwork) error {
	if tx == nil {
		return gorm.ErrInvalidTransaction
	}
	if artwork == nil {
		return fmt.Errorf("artwork is required")
	}
	return tx.Create(artwork).Error
}

// ListOrdered returns every row ordered by author, then newest auction first.
func (r *Repository) ListOrdered(ctx context.Context) ([]models.Artwork, error) {
	var rows []models.Artwork
	if err := r.DB(ctx).
		Order("author ASC").
		Order("auction_date DESC").
		Order("created_at DESC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Authors returns the distinct author names in ascending order.
func (r *Repository) Authors(ctx context.Context) ([]string, error) {
	var authors []string
	if err := r.DB(ctx).
		Model(&models.Artwork{}).
		Distinct("author").
		Order("author ASC").
		Pluck("author", &authors).Error; err != nil {
		return nil, err
	}
	return authors, nil
}

// FindByID loads an artwork by its UUID.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Artwork, error) {
	var artwork models.Artwork
	if err := r.DB(ctx).Where("id = ?", id).First(&artwork).Error; err != nil {
		return nil, err
	}
	return &artwork, nil
}

// Delete removes the row; a missing row reports gorm.ErrRecordNotFound.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.DB(ctx).Where("id = ?", id).Delete(&models.Artwork{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
