package sessions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/auction-archive/internal/artworks"
	"github.com/angelmondragon/auction-archive/internal/extraction"
	"github.com/angelmondragon/auction-archive/pkg/auth"
	"github.com/angelmondragon/auction-archive/pkg/config"
	pkgerrors "github.com/angelmondragon/auction-archive/pkg/errors"
	"github.com/angelmondragon/auction-archive/pkg/logger"
)

// Started is returned when a new review session is opened.
type Started struct {
	SessionID string    `json:"session_id"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Service coordinates one user's extract, review and commit cycle.
type Service interface {
	Start(ctx context.Context) (*Started, error)
	Resolve(ctx context.Context, token string) (*Session, error)
	Extract(ctx context.Context, sessionID, credential string, image []byte, mimeType string) (*extraction.Result, error)
	Pending(ctx context.Context, sessionID string) (*extraction.Candidate, error)
	Cancel(ctx context.Context, sessionID string) error
	Commit(ctx context.Context, sessionID string, input artworks.CommitInput) (*artworks.ArtworkDTO, error)
}

type service struct {
	store     Store
	extractor extraction.Service
	artworks  artworks.Service
	cfg       config.SessionConfig
	logg      *logger.Logger
	now       func() time.Time
}

// NewService builds the session workspace.
func NewService(store Store, extractor extraction.Service, artworksSvc artworks.Service, cfg config.SessionConfig, logg *logger.Logger) (Service, error) {
	if store == nil {
		return nil, fmt.Errorf("session store required")
	}
	if extractor == nil {
		return nil, fmt.Errorf("extraction service required")
	}
	if artworksSvc == nil {
		return nil, fmt.Errorf("artworks service required")
	}
	if cfg.Secret == "" {
		return nil, fmt.Errorf("session secret required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{store: store, extractor: extractor, artworks: artworksSvc, cfg: cfg, logg: logg, now: time.Now}, nil
}

func (s *service) Start(ctx context.Context) (*Started, error) {
	now := s.now().UTC()
	sess := &Session{ID: uuid.NewString(), CreatedAt: now, UpdatedAt: now}

	token, err := auth.MintSessionToken(s.cfg, now, sess.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint session token")
	}
	if err := s.store.Save(ctx, sess); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save session")
	}

	s.logg.Info(s.logg.WithSessionID(ctx, sess.ID), "session started")
	return &Started{SessionID: sess.ID, Token: token, ExpiresAt: now.Add(s.cfg.TTL)}, nil
}

func (s *service) Resolve(ctx context.Context, token string) (*Session, error) {
	claims, err := auth.ParseSessionToken(s.cfg, token)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid session token")
	}
	return s.load(ctx, claims.SessionID)
}

func (s *service) load(ctx context.Context, id string) (*Session, error) {
	sess, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "session expired")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load session")
	}
	return sess, nil
}

func (s *service) save(ctx context.Context, sess *Session) error {
	sess.UpdatedAt = s.now().UTC()
	if err := s.store.Save(ctx, sess); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save session")
	}
	return nil
}

// Extract reads the datasheet with the session's cached model, selecting one
// on first use. A failed extraction leaves no pending candidate behind.
func (s *service) Extract(ctx context.Context, sessionID, credential string, image []byte, mimeType string) (*extraction.Result, error) {
	sess, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	ctx = s.logg.WithSessionID(ctx, sess.ID)

	if sess.Model == "" {
		model, err := s.extractor.SelectModel(ctx, credential)
		if err != nil {
			return nil, err
		}
		sess.Model = model
	}

	result, extractErr := s.extractor.Extract(ctx, extraction.Request{
		Credential: credential,
		Model:      sess.Model,
		Image:      image,
		MimeType:   mimeType,
	})
	if extractErr != nil {
		sess.Pending = nil
		if err := s.save(ctx, sess); err != nil {
			s.logg.WarnErr(ctx, "session not updated after failed extraction", err)
		}
		return nil, extractErr
	}

	candidate := result.Candidate
	sess.Pending = &candidate
	if err := s.save(ctx, sess); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) Pending(ctx context.Context, sessionID string) (*extraction.Candidate, error) {
	sess, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Pending == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no pending candidate")
	}
	return sess.Pending, nil
}

func (s *service) Cancel(ctx context.Context, sessionID string) error {
	sess, err := s.load(ctx, sessionID)
	if err != nil {
		return err
	}
	if sess.Pending == nil {
		return nil
	}
	sess.Pending = nil
	return s.save(ctx, sess)
}

// Commit persists the confirmed record and clears the pending candidate.
func (s *service) Commit(ctx context.Context, sessionID string, input artworks.CommitInput) (*artworks.ArtworkDTO, error) {
	sess, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	ctx = s.logg.WithSessionID(ctx, sess.ID)

	dto, err := s.artworks.Commit(ctx, input)
	if err != nil {
		return nil, err
	}

	sess.Pending = nil
	if err := s.save(ctx, sess); err != nil {
		s.logg.WarnErr(ctx, "session not cleared after commit", err)
	}
	return dto, nil
}
