package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Artwork is one committed auction lot. Rows are written once and never updated.
type Artwork struct {
	ID                uuid.UUID       `gorm:"column:id;primaryKey"`
	Author            string          `gorm:"column:author;not null;index"`
	Technique         *string         `gorm:"column:technique"`
	HammerPrice       decimal.Decimal `gorm:"column:hammer_price;not null"`
	HeightCM          decimal.Decimal `gorm:"column:height_cm;not null"`
	WidthCM           decimal.Decimal `gorm:"column:width_cm;not null"`
	CommissionPct     decimal.Decimal `gorm:"column:commission_pct;not null"`
	RealPrice         decimal.Decimal `gorm:"column:real_price;not null"`
	Ratio             decimal.Decimal `gorm:"column:ratio;not null"`
	AuctionHouse      string          `gorm:"column:auction_house;not null"`
	AuctionDate       time.Time       `gorm:"column:auction_date;not null"`
	ArtworkImageRef   string          `gorm:"column:artwork_image_ref;not null"`
	DatasheetImageRef string          `gorm:"column:datasheet_image_ref;not null"`
	CreatedAt         time.Time       `gorm:"column:created_at;autoCreateTime"`
}

func (Artwork) TableName() string {
	return "artworks"
}
