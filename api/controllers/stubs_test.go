package controllers

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/auction-archive/api/middleware"
	"github.com/angelmondragon/auction-archive/internal/artworks"
	"github.com/angelmondragon/auction-archive/internal/extraction"
	"github.com/angelmondragon/auction-archive/internal/sessions"
	pkgerrors "github.com/angelmondragon/auction-archive/pkg/errors"
	"github.com/angelmondragon/auction-archive/pkg/logger"
)

var (
	pngBytes  = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")
	jpegBytes = []byte("\xff\xd8\xff\xe0\x00\x10JFIF\x00\x01\x01\x00\x00\x01\x00\x01\x00\x00")
	heicBytes = []byte("\x00\x00\x00\x18ftypheic\x00\x00\x00\x00mif1heic")
)

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Level: logger.ParseLevel("debug"), Format: logger.FormatJSON, Output: io.Discard})
}

type stubSessions struct {
	extractErr  error
	commitErr   error
	credential  string
	mimeType    string
	commitInput artworks.CommitInput
	cancelled   bool
	pending     *extraction.Candidate
}

func (s *stubSessions) Start(context.Context) (*sessions.Started, error) {
	return &sessions.Started{SessionID: "s1", Token: "tok", ExpiresAt: time.Now().Add(time.Hour)}, nil
}

func (s *stubSessions) Resolve(context.Context, string) (*sessions.Session, error) {
	return &sessions.Session{ID: "s1"}, nil
}

func (s *stubSessions) Extract(_ context.Context, _ string, credential string, _ []byte, mimeType string) (*extraction.Result, error) {
	s.credential = credential
	s.mimeType = mimeType
	if s.extractErr != nil {
		return nil, s.extractErr
	}
	return &extraction.Result{Candidate: extraction.Candidate{Author: "JOAQUÍN SOROLLA"}, Model: "models/gemini-2.5-flash", Attempts: 1}, nil
}

func (s *stubSessions) Pending(context.Context, string) (*extraction.Candidate, error) {
	if s.pending == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no pending candidate")
	}
	return s.pending, nil
}

func (s *stubSessions) Cancel(context.Context, string) error {
	s.cancelled = true
	return nil
}

func (s *stubSessions) Commit(_ context.Context, _ string, input artworks.CommitInput) (*artworks.ArtworkDTO, error) {
	s.commitInput = input
	if s.commitErr != nil {
		return nil, s.commitErr
	}
	return &artworks.ArtworkDTO{ID: uuid.New(), Author: "JOAQUÍN SOROLLA"}, nil
}

type stubArtworks struct {
	groups    []artworks.AuthorGroup
	deleteErr error
	deleted   []uuid.UUID
}

func (s *stubArtworks) Commit(context.Context, artworks.CommitInput) (*artworks.ArtworkDTO, error) {
	return nil, nil
}

func (s *stubArtworks) ListByAuthor(context.Context) ([]artworks.AuthorGroup, error) {
	return s.groups, nil
}

func (s *stubArtworks) Authors(context.Context) ([]string, error) {
	return []string{"JOAQUÍN SOROLLA"}, nil
}

func (s *stubArtworks) Get(_ context.Context, id uuid.UUID) (*artworks.ArtworkDTO, error) {
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "artwork not found")
}

func (s *stubArtworks) Delete(_ context.Context, id uuid.UUID) error {
	s.deleted = append(s.deleted, id)
	return s.deleteErr
}

type formFile struct {
	field, name string
	data        []byte
}

func multipartBody(t *testing.T, fields map[string]string, files ...formFile) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	for _, f := range files {
		part, err := mw.CreateFormFile(f.field, f.name)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := part.Write(f.data); err != nil {
			t.Fatalf("write form file: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}
	return &body, mw.FormDataContentType()
}

func withSession(req *http.Request) *http.Request {
	return req.WithContext(middleware.WithSession(req.Context(), &sessions.Session{ID: "s1"}))
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}
