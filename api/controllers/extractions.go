package controllers

import (
	"net/http"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/angelmondragon/auction-archive/api/middleware"
	"github.com/angelmondragon/auction-archive/api/responses"
	"github.com/angelmondragon/auction-archive/api/validators"
	"github.com/angelmondragon/auction-archive/internal/artworks"
	"github.com/angelmondragon/auction-archive/internal/sessions"
	pkgerrors "github.com/angelmondragon/auction-archive/pkg/errors"
	"github.com/angelmondragon/auction-archive/pkg/logger"
)

// VisionKeyHeader carries the caller's own vision API key. It is used for
// the request only and never stored.
const VisionKeyHeader = "X-Vision-Api-Key"

// ExtractionCreate reads the uploaded datasheet and stores the candidate as
// the session's pending record.
func ExtractionCreate(svc sessions.Service, maxBytes int64, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := middleware.SessionFromContext(r.Context())
		if sess == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "session context missing"))
			return
		}

		if err := validators.ParseMultipart(w, r, maxBytes, 1); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		file, err := validators.FormFile(r, "datasheet", maxBytes)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if file == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeMissingImages, "datasheet image is required").
				WithDetails(map[string]any{"missing": []string{"datasheet"}}))
			return
		}

		mtype := mimetype.Detect(file.Data)
		if !mimetype.EqualsAny(mtype.String(), artworks.AllowedImageTypes...) {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "datasheet must be an image").
				WithDetails(map[string]string{"datasheet": "unsupported type " + mtype.String()}))
			return
		}

		credential := strings.TrimSpace(r.Header.Get(VisionKeyHeader))
		result, err := svc.Extract(r.Context(), sess.ID, credential, file.Data, mtype.String())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// ExtractionPending returns the session's pending candidate.
func ExtractionPending(svc sessions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := middleware.SessionFromContext(r.Context())
		if sess == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "session context missing"))
			return
		}
		candidate, err := svc.Pending(r.Context(), sess.ID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, candidate)
	}
}

// ExtractionCancel discards the pending candidate without committing.
func ExtractionCancel(svc sessions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := middleware.SessionFromContext(r.Context())
		if sess == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "session context missing"))
			return
		}
		if err := svc.Cancel(r.Context(), sess.ID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}
