package artworks

import (
	"time"

	"github.com/angelmondragon/auction-archive/pkg/db/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const DateLayout = "2006-01-02"

// Image is one uploaded file. The content type is sniffed, never trusted.
type Image struct {
	FileName string
	Data     []byte
}

// CommitInput carries the user-confirmed fields plus both images. Nil
// CommissionPct and AuctionDate fall back to configured defaults.
type CommitInput struct {
	Author        string
	Technique     string
	HammerPrice   decimal.Decimal
	HeightCM      decimal.Decimal
	WidthCM       decimal.Decimal
	CommissionPct *decimal.Decimal
	AuctionHouse  string
	AuctionDate   *time.Time
	Artwork       *Image
	Datasheet     *Image
}

// ArtworkDTO exposes a committed record with resolvable image URLs.
type ArtworkDTO struct {
	ID                uuid.UUID       `json:"id"`
	Author            string          `json:"author"`
	Technique         *string         `json:"technique,omitempty"`
	HammerPrice       decimal.Decimal `json:"hammer_price"`
	HeightCM          decimal.Decimal `json:"height_cm"`
	WidthCM           decimal.Decimal `json:"width_cm"`
	CommissionPct     decimal.Decimal `json:"commission_pct"`
	RealPrice         decimal.Decimal `json:"real_price"`
	Ratio             decimal.Decimal `json:"ratio"`
	AuctionHouse      string          `json:"auction_house"`
	AuctionDate       string          `json:"auction_date"`
	ArtworkImageRef   string          `json:"artwork_image_ref"`
	DatasheetImageRef string          `json:"datasheet_image_ref"`
	ArtworkImageURL   string          `json:"artwork_image_url"`
	DatasheetImageURL string          `json:"datasheet_image_url"`
	CreatedAt         time.Time       `json:"created_at"`
}

// AuthorGroup is the query-time grouping of records by author.
type AuthorGroup struct {
	Author   string       `json:"author"`
	Count    int          `json:"count"`
	Artworks []ArtworkDTO `json:"artworks"`
}

// FromModel maps a persisted row; urlFor resolves object keys to URLs.
func FromModel(m *models.Artwork, urlFor func(string) string) *ArtworkDTO {
	if m == nil {
		return nil
	}
	dto := &ArtworkDTO{
		ID:                m.ID,
		Author:            m.Author,
		Technique:         m.Technique,
		HammerPrice:       m.HammerPrice,
		HeightCM:          m.HeightCM,
		WidthCM:           m.WidthCM,
		CommissionPct:     m.CommissionPct,
		RealPrice:         m.RealPrice,
		Ratio:             m.Ratio,
		AuctionHouse:      m.AuctionHouse,
		AuctionDate:       m.AuctionDate.UTC().Format(DateLayout),
		ArtworkImageRef:   m.ArtworkImageRef,
		DatasheetImageRef: m.DatasheetImageRef,
		CreatedAt:         m.CreatedAt,
	}
	if urlFor != nil {
		dto.ArtworkImageURL = urlFor(m.ArtworkImageRef)
		dto.DatasheetImageURL = urlFor(m.DatasheetImageRef)
	}
	return dto
}

// groupByAuthor expects rows already ordered by author, then newest first.
func groupByAuthor(rows []models.Artwork, urlFor func(string) string) []AuthorGroup {
	groups := make([]AuthorGroup, 0)
	for i := range rows {
		dto := FromModel(&rows[i], urlFor)
		if n := len(groups); n == 0 || groups[n-1].Author != dto.Author {
			groups = append(groups, AuthorGroup{Author: dto.Author})
		}
		g := &groups[len(groups)-1]
		g.Artworks = append(g.Artworks, *dto)
		g.Count++
	}
	return groups
}
