package controllers

import (
	"net/http"

	"github.com/angelmondragon/auction-archive/api/middleware"
	"github.com/angelmondragon/auction-archive/api/responses"
	"github.com/angelmondragon/auction-archive/internal/extraction"
	"github.com/angelmondragon/auction-archive/internal/sessions"
	"github.com/angelmondragon/auction-archive/pkg/config"
	pkgerrors "github.com/angelmondragon/auction-archive/pkg/errors"
	"github.com/angelmondragon/auction-archive/pkg/logger"
)

type sessionView struct {
	SessionID string                `json:"session_id"`
	Model     string                `json:"model,omitempty"`
	Pending   *extraction.Candidate `json:"pending,omitempty"`
}

// SessionStart opens a review session and sets the session cookie.
func SessionStart(svc sessions.Service, cfg *config.Config, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		started, err := svc.Start(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		http.SetCookie(w, &http.Cookie{
			Name:     cfg.Session.CookieName,
			Value:    started.Token,
			Path:     "/",
			Expires:  started.ExpiresAt,
			HttpOnly: true,
			Secure:   cfg.App.IsProd(),
			SameSite: http.SameSiteLaxMode,
		})
		responses.WriteSuccessStatus(w, http.StatusCreated, started)
	}
}

// SessionCurrent returns the caller's session with its cached model and
// pending candidate.
func SessionCurrent(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := middleware.SessionFromContext(r.Context())
		if sess == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "session context missing"))
			return
		}
		responses.WriteSuccess(w, sessionView{SessionID: sess.ID, Model: sess.Model, Pending: sess.Pending})
	}
}
