package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/auction-archive/api/middleware"
	"github.com/angelmondragon/auction-archive/api/responses"
	"github.com/angelmondragon/auction-archive/api/validators"
	"github.com/angelmondragon/auction-archive/internal/artworks"
	"github.com/angelmondragon/auction-archive/internal/sessions"
	pkgerrors "github.com/angelmondragon/auction-archive/pkg/errors"
	"github.com/angelmondragon/auction-archive/pkg/logger"
)

// ArtworkCreate commits a reviewed record with its artwork and datasheet
// images.
func ArtworkCreate(svc sessions.Service, maxBytes int64, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := middleware.SessionFromContext(r.Context())
		if sess == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "session context missing"))
			return
		}

		if err := validators.ParseMultipart(w, r, maxBytes, 2); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		form, err := validators.BindCommitForm(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := commitInput(form)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		artworkFile, err := validators.FormFile(r, "artwork", maxBytes)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		datasheetFile, err := validators.FormFile(r, "datasheet", maxBytes)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input.Artwork = toImage(artworkFile)
		input.Datasheet = toImage(datasheetFile)

		dto, err := svc.Commit(r.Context(), sess.ID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, dto)
	}
}

func commitInput(form *validators.CommitForm) (artworks.CommitInput, error) {
	input := artworks.CommitInput{
		Author:       form.Author,
		Technique:    form.Technique,
		AuctionHouse: form.AuctionHouse,
	}

	var err error
	if input.HammerPrice, err = validators.ParseDecimal("hammer_price", form.HammerPrice); err != nil {
		return input, err
	}
	if input.HeightCM, err = validators.ParseDecimal("height_cm", form.HeightCM); err != nil {
		return input, err
	}
	if input.WidthCM, err = validators.ParseDecimal("width_cm", form.WidthCM); err != nil {
		return input, err
	}
	if form.CommissionPct != "" {
		pct, err := validators.ParseDecimal("commission_pct", form.CommissionPct)
		if err != nil {
			return input, err
		}
		input.CommissionPct = &pct
	}
	if form.AuctionDate != "" {
		date, err := time.Parse(artworks.DateLayout, form.AuctionDate)
		if err != nil {
			return input, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid auction date").
				WithDetails(map[string]string{"auction_date": "must match " + artworks.DateLayout})
		}
		input.AuctionDate = &date
	}
	return input, nil
}

func toImage(file *validators.UploadedFile) *artworks.Image {
	if file == nil {
		return nil
	}
	return &artworks.Image{FileName: file.Name, Data: file.Data}
}

// ArtworkList returns every record grouped by author.
func ArtworkList(svc artworks.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		groups, err := svc.ListByAuthor(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, groups)
	}
}

// ArtworkAuthors returns the distinct authors in the archive.
func ArtworkAuthors(svc artworks.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authors, err := svc.Authors(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, authors)
	}
}

func ArtworkGet(svc artworks.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := artworkIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		dto, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto)
	}
}

// ArtworkDelete removes a record and its stored images.
func ArtworkDelete(svc artworks.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := artworkIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithArtworkID(ctx, id.String())
		}
		if err := svc.Delete(ctx, id); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}

func artworkIDParam(r *http.Request) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, "artworkId"))
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid artwork id")
	}
	return id, nil
}
