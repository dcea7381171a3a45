package artworks

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/auction-archive/internal/extraction"
	"github.com/angelmondragon/auction-archive/pkg/db"
	"github.com/angelmondragon/auction-archive/pkg/db/models"
	pkgerrors "github.com/angelmondragon/auction-archive/pkg/errors"
	"github.com/angelmondragon/auction-archive/pkg/logger"
	"github.com/angelmondragon/auction-archive/pkg/storage"
)

const defaultStorageTimeout = 30 * time.Second

type artworksRepository interface {
	CreateWithTx(tx *gorm.DB, artwork *models.Artwork) error
	ListOrdered(ctx context.Context) ([]models.Artwork, error)
	Authors(ctx context.Context) ([]string, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Artwork, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Observer receives commit and delete outcomes; pkg/metrics implements it.
type Observer interface {
	ObserveCommit(success bool)
	ObserveDelete(success bool)
}

// Service exposes valuation, persistence and retrieval of artworks.
type Service interface {
	Commit(ctx context.Context, input CommitInput) (*ArtworkDTO, error)
	ListByAuthor(ctx context.Context) ([]AuthorGroup, error)
	Authors(ctx context.Context) ([]string, error)
	Get(ctx context.Context, id uuid.UUID) (*ArtworkDTO, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// Options holds commit defaults and limits.
type Options struct {
	DefaultCommissionPct decimal.Decimal
	DefaultAuctionHouse  string
	MaxImageBytes        int64
	StorageTimeout       time.Duration
	// Now is injectable so the default auction date is testable.
	Now func() time.Time
}

type service struct {
	repo     artworksRepository
	tx       txRunner
	store    storage.BlobStore
	opts     Options
	logg     *logger.Logger
	observer Observer
}

// NewService wires the repository, transaction runner and blob store.
func NewService(repo artworksRepository, tx txRunner, store storage.BlobStore, opts Options, logg *logger.Logger, observer Observer) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("artworks repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if store == nil {
		return nil, fmt.Errorf("blob store required")
	}
	if opts.DefaultCommissionPct.IsNegative() {
		return nil, fmt.Errorf("default commission must be non-negative")
	}
	if opts.StorageTimeout <= 0 {
		opts.StorageTimeout = defaultStorageTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{repo: repo, tx: tx, store: store, opts: opts, logg: logg, observer: observer}, nil
}

func (s *service) Commit(ctx context.Context, input CommitInput) (dto *ArtworkDTO, err error) {
	defer func() {
		if s.observer != nil {
			s.observer.ObserveCommit(err == nil)
		}
	}()

	if err := requireImages(input); err != nil {
		return nil, err
	}
	artworkType, err := sniffImage(KindArtwork, input.Artwork, s.opts.MaxImageBytes)
	if err != nil {
		return nil, err
	}
	datasheetType, err := sniffImage(KindDatasheet, input.Datasheet, s.opts.MaxImageBytes)
	if err != nil {
		return nil, err
	}

	row, err := s.buildRow(input)
	if err != nil {
		return nil, err
	}

	ns := Namespace(row.Author)
	row.ArtworkImageRef = ObjectKey(ns, KindArtwork, row.ID, input.Artwork.FileName)
	row.DatasheetImageRef = ObjectKey(ns, KindDatasheet, row.ID, input.Datasheet.FileName)

	ctx = s.logg.WithArtworkID(ctx, row.ID.String())

	if err := s.put(ctx, storage.Object{Key: row.ArtworkImageRef, ContentType: artworkType, Data: input.Artwork.Data}); err != nil {
		return nil, commitFailure(err, "artwork_upload")
	}
	if err := s.put(ctx, storage.Object{Key: row.DatasheetImageRef, ContentType: datasheetType, Data: input.Datasheet.Data}); err != nil {
		s.rollback(ctx, row.ArtworkImageRef)
		return nil, commitFailure(err, "datasheet_upload")
	}

	if err := s.insert(ctx, row); err != nil {
		s.logg.Error(s.logg.WithField(ctx, "error_dump", pkgerrors.Dump(err)), "artwork insert failed", err)
		s.rollback(ctx, row.ArtworkImageRef, row.DatasheetImageRef)
		return nil, commitFailure(err, "insert")
	}

	s.logg.Info(s.logg.WithField(ctx, "author", row.Author), "artwork committed")
	return FromModel(row, s.store.URL), nil
}

func (s *service) buildRow(input CommitInput) (*models.Artwork, error) {
	for field, v := range map[string]decimal.Decimal{
		"hammer_price": input.HammerPrice,
		"height_cm":    input.HeightCM,
		"width_cm":     input.WidthCM,
	} {
		if v.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, field+" must be non-negative").
				WithDetails(map[string]any{"field": field})
		}
	}

	pct := s.opts.DefaultCommissionPct
	if input.CommissionPct != nil {
		pct = *input.CommissionPct
	}
	if pct.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "commission_pct must be non-negative").
			WithDetails(map[string]any{"field": "commission_pct"})
	}

	house := strings.TrimSpace(input.AuctionHouse)
	if house == "" {
		house = s.opts.DefaultAuctionHouse
	}

	auctionDate := s.opts.Now()
	if input.AuctionDate != nil && !input.AuctionDate.IsZero() {
		auctionDate = *input.AuctionDate
	}

	var technique *string
	if clean := strings.TrimSpace(input.Technique); clean != "" {
		t := extraction.NormalizeTechnique(clean)
		technique = &t
	}

	valuation := Valuate(input.HammerPrice, pct, input.HeightCM, input.WidthCM)

	return &models.Artwork{
		ID:            uuid.New(),
		Author:        extraction.NormalizeAuthor(input.Author),
		Technique:     technique,
		HammerPrice:   input.HammerPrice,
		HeightCM:      input.HeightCM,
		WidthCM:       input.WidthCM,
		CommissionPct: pct,
		RealPrice:     valuation.RealPrice,
		Ratio:         valuation.Ratio,
		AuctionHouse:  house,
		AuctionDate:   dateOnly(auctionDate),
		CreatedAt:     s.opts.Now().UTC(),
	}, nil
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func (s *service) put(ctx context.Context, obj storage.Object) error {
	ctx, cancel := context.WithTimeout(ctx, s.opts.StorageTimeout)
	defer cancel()
	return s.store.Put(ctx, obj)
}

// insert bounds the row write by the same timeout as the blob writes.
func (s *service) insert(ctx context.Context, row *models.Artwork) error {
	ctx, cancel := context.WithTimeout(ctx, s.opts.StorageTimeout)
	defer cancel()
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.repo.CreateWithTx(tx, row)
	})
}

func (s *service) deleteRow(ctx context.Context, id uuid.UUID) error {
	ctx, cancel := context.WithTimeout(ctx, s.opts.StorageTimeout)
	defer cancel()
	return s.repo.Delete(ctx, id)
}

func (s *service) remove(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, s.opts.StorageTimeout)
	defer cancel()
	return s.store.Delete(ctx, key)
}

// rollback removes already-written blobs; it runs even if the request was
// canceled so no orphan images are left behind.
func (s *service) rollback(ctx context.Context, keys ...string) {
	ctx = context.WithoutCancel(ctx)
	var errs error
	for _, key := range keys {
		if err := s.remove(ctx, key); err != nil && !storage.IsNotFound(err) {
			errs = multierr.Append(errs, err)
		}
	}
	if errs != nil {
		s.logg.Error(s.logg.WithField(ctx, "keys", keys), "commit rollback incomplete", errs)
	}
}

func commitFailure(err error, stage string) error {
	return pkgerrors.Wrap(pkgerrors.CodeCommitFailure, err, "commit failed at "+stage).
		WithDetails(map[string]any{"stage": stage})
}

func (s *service) ListByAuthor(ctx context.Context) ([]AuthorGroup, error) {
	rows, err := s.repo.ListOrdered(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list artworks")
	}
	return groupByAuthor(rows, s.store.URL), nil
}

func (s *service) Authors(ctx context.Context) ([]string, error) {
	authors, err := s.repo.Authors(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list authors")
	}
	if authors == nil {
		authors = []string{}
	}
	return authors, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*ArtworkDTO, error) {
	row, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	return FromModel(row, s.store.URL), nil
}

func (s *service) find(ctx context.Context, id uuid.UUID) (*models.Artwork, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "artwork id is required")
	}
	row, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "artwork not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load artwork")
	}
	return row, nil
}

// Delete removes both blobs, then the row. Missing blobs are tolerated; any
// other storage failure keeps the row so the delete can be retried.
func (s *service) Delete(ctx context.Context, id uuid.UUID) (err error) {
	defer func() {
		if s.observer != nil {
			s.observer.ObserveDelete(err == nil)
		}
	}()

	row, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	ctx = s.logg.WithArtworkID(ctx, row.ID.String())

	var blobErrs error
	for _, key := range []string{row.ArtworkImageRef, row.DatasheetImageRef} {
		if key == "" {
			continue
		}
		if err := s.remove(ctx, key); err != nil {
			if storage.IsNotFound(err) {
				s.logg.WarnErr(s.logg.WithField(ctx, "key", key), "image already missing", err)
				continue
			}
			blobErrs = multierr.Append(blobErrs, err)
		}
	}
	if blobErrs != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, blobErrs, "delete artwork images").
			WithDetails(map[string]any{"failures": len(multierr.Errors(blobErrs))})
	}

	if err := s.deleteRow(ctx, row.ID); err != nil {
		if db.IsNotFound(err) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "artwork not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete artwork row")
	}

	s.logg.Info(ctx, "artwork deleted")
	return nil
}
