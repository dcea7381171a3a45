package sessions

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/auction-archive/internal/artworks"
	"github.com/angelmondragon/auction-archive/internal/extraction"
	"github.com/angelmondragon/auction-archive/pkg/config"
	pkgerrors "github.com/angelmondragon/auction-archive/pkg/errors"
	"github.com/angelmondragon/auction-archive/pkg/logger"
)

type stubExtractor struct {
	models     []string
	selectErr  error
	extractErr error
	result     *extraction.Result
	selects    int
	requests   []extraction.Request
}

func (s *stubExtractor) SelectModel(context.Context, string) (string, error) {
	s.selects++
	if s.selectErr != nil {
		return "", s.selectErr
	}
	return s.models[0], nil
}

func (s *stubExtractor) Extract(_ context.Context, req extraction.Request) (*extraction.Result, error) {
	s.requests = append(s.requests, req)
	if s.extractErr != nil {
		return nil, s.extractErr
	}
	res := *s.result
	res.Model = req.Model
	return &res, nil
}

type stubArtworks struct {
	commits   int
	commitErr error
}

func (s *stubArtworks) Commit(context.Context, artworks.CommitInput) (*artworks.ArtworkDTO, error) {
	s.commits++
	if s.commitErr != nil {
		return nil, s.commitErr
	}
	return &artworks.ArtworkDTO{ID: uuid.New(), Author: "JOAQUÍN SOROLLA"}, nil
}

func (s *stubArtworks) ListByAuthor(context.Context) ([]artworks.AuthorGroup, error) { return nil, nil }
func (s *stubArtworks) Authors(context.Context) ([]string, error) { return nil, nil }
func (s *stubArtworks) Get(context.Context, uuid.UUID) (*artworks.ArtworkDTO, error) {
	return nil, nil
}
func (s *stubArtworks) Delete(context.Context, uuid.UUID) error { return nil }

func testConfig() config.SessionConfig {
	return config.SessionConfig{Secret: "secret", Issuer: "auction-archive", TTL: time.Hour}
}

func sorollaCandidate() extraction.Candidate {
	return extraction.Candidate{
		Author:      "JOAQUÍN SOROLLA",
		Technique:   "Óleo sobre lienzo",
		HammerPrice: decimal.RequireFromString("1000"),
		HeightCM:    decimal.RequireFromString("50"),
		WidthCM:     decimal.RequireFromString("70"),
	}
}

func newTestService(t *testing.T, ext *stubExtractor, arts *stubArtworks) (Service, *MemoryStore) {
	t.Helper()
	store := NewMemoryStore(time.Hour)
	svc, err := NewService(store, ext, arts, testConfig(), logger.Nop())
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, store
}

func TestStartAndResolve(t *testing.T) {
	svc, _ := newTestService(t, &stubExtractor{}, &stubArtworks{})
	ctx := context.Background()

	started, err := svc.Start(ctx)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if started.Token == "" || started.SessionID == "" {
		t.Fatalf("unexpected start result %+v", started)
	}

	sess, err := svc.Resolve(ctx, started.Token)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if sess.ID != started.SessionID {
		t.Fatalf("expected session %s, got %s", started.SessionID, sess.ID)
	}

	if _, err := svc.Resolve(ctx, "not-a-token"); !pkgerrors.Is(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestResolveExpiredSession(t *testing.T) {
	svc, store := newTestService(t, &stubExtractor{}, &stubArtworks{})
	ctx := context.Background()

	started, err := svc.Start(ctx)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := store.Delete(ctx, started.SessionID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := svc.Resolve(ctx, started.Token); !pkgerrors.Is(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected unauthorized for dropped session, got %v", err)
	}
}

func TestExtractCachesModelAndStoresPending(t *testing.T) {
	ext := &stubExtractor{
		models: []string{"models/gemini-2.5-flash"},
		result: &extraction.Result{Candidate: sorollaCandidate(), Attempts: 1},
	}
	svc, _ := newTestService(t, ext, &stubArtworks{})
	ctx := context.Background()

	started, err := svc.Start(ctx)
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	for i := 0; i < 2; i++ {
		res, err := svc.Extract(ctx, started.SessionID, "key", []byte("img"), "image/png")
		if err != nil {
			t.Fatalf("extract %d: %v", i, err)
		}
		if res.Model != "models/gemini-2.5-flash" {
			t.Fatalf("unexpected model %q", res.Model)
		}
	}
	if ext.selects != 1 {
		t.Fatalf("expected one model selection, got %d", ext.selects)
	}
	for _, req := range ext.requests {
		if req.Model != "models/gemini-2.5-flash" || req.Credential != "key" {
			t.Fatalf("unexpected request %+v", req)
		}
	}

	pending, err := svc.Pending(ctx, started.SessionID)
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if pending.Author != "JOAQUÍN SOROLLA" || !pending.HammerPrice.Equal(decimal.NewFromInt(1000)) {
		t.Fatalf("unexpected pending candidate %+v", pending)
	}
}

func TestFailedExtractionClearsPending(t *testing.T) {
	ext := &stubExtractor{
		models: []string{"models/gemini-2.5-flash"},
		result: &extraction.Result{Candidate: sorollaCandidate(), Attempts: 1},
	}
	svc, _ := newTestService(t, ext, &stubArtworks{})
	ctx := context.Background()

	started, _ := svc.Start(ctx)
	if _, err := svc.Extract(ctx, started.SessionID, "key", []byte("img"), "image/png"); err != nil {
		t.Fatalf("extract: %v", err)
	}

	ext.extractErr = pkgerrors.New(pkgerrors.CodeMalformedResponse, "unreadable reply")
	_, err := svc.Extract(ctx, started.SessionID, "key", []byte("img"), "image/png")
	if !pkgerrors.Is(err, pkgerrors.CodeMalformedResponse) {
		t.Fatalf("expected malformed response, got %v", err)
	}
	if _, err := svc.Pending(ctx, started.SessionID); !pkgerrors.Is(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected no pending candidate, got %v", err)
	}
}

func TestExtractSelectionFailure(t *testing.T) {
	ext := &stubExtractor{selectErr: pkgerrors.New(pkgerrors.CodeNoCompatibleModel, "none")}
	svc, store := newTestService(t, ext, &stubArtworks{})
	ctx := context.Background()

	started, _ := svc.Start(ctx)
	if _, err := svc.Extract(ctx, started.SessionID, "key", []byte("img"), "image/png"); !pkgerrors.Is(err, pkgerrors.CodeNoCompatibleModel) {
		t.Fatalf("expected no compatible model, got %v", err)
	}
	if len(ext.requests) != 0 {
		t.Fatalf("expected no generate calls, got %d", len(ext.requests))
	}
	sess, err := store.Get(ctx, started.SessionID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if sess.Model != "" {
		t.Fatalf("expected no cached model, got %q", sess.Model)
	}
}

func TestCancelAndCommitClearPending(t *testing.T) {
	ext := &stubExtractor{
		models: []string{"models/gemini-2.5-flash"},
		result: &extraction.Result{Candidate: sorollaCandidate(), Attempts: 1},
	}
	arts := &stubArtworks{}
	svc, _ := newTestService(t, ext, arts)
	ctx := context.Background()
	started, _ := svc.Start(ctx)

	if _, err := svc.Extract(ctx, started.SessionID, "key", []byte("img"), "image/png"); err != nil {
		t.Fatalf("extract: %v", err)
	}
	if err := svc.Cancel(ctx, started.SessionID); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if _, err := svc.Pending(ctx, started.SessionID); !pkgerrors.Is(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected pending cleared by cancel, got %v", err)
	}
	if arts.commits != 0 {
		t.Fatalf("cancel must not commit")
	}

	if _, err := svc.Extract(ctx, started.SessionID, "key", []byte("img"), "image/png"); err != nil {
		t.Fatalf("extract: %v", err)
	}
	dto, err := svc.Commit(ctx, started.SessionID, artworks.CommitInput{})
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	if dto == nil || arts.commits != 1 {
		t.Fatalf("expected one commit, got %d", arts.commits)
	}
	if _, err := svc.Pending(ctx, started.SessionID); !pkgerrors.Is(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected pending cleared by commit, got %v", err)
	}
}

func TestCommitFailureKeepsPending(t *testing.T) {
	ext := &stubExtractor{
		models: []string{"models/gemini-2.5-flash"},
		result: &extraction.Result{Candidate: sorollaCandidate(), Attempts: 1},
	}
	arts := &stubArtworks{commitErr: pkgerrors.New(pkgerrors.CodeCommitFailure, "storage down")}
	svc, _ := newTestService(t, ext, arts)
	ctx := context.Background()
	started, _ := svc.Start(ctx)

	if _, err := svc.Extract(ctx, started.SessionID, "key", []byte("img"), "image/png"); err != nil {
		t.Fatalf("extract: %v", err)
	}
	if _, err := svc.Commit(ctx, started.SessionID, artworks.CommitInput{}); !pkgerrors.Is(err, pkgerrors.CodeCommitFailure) {
		t.Fatalf("expected commit failure, got %v", err)
	}
	if _, err := svc.Pending(ctx, started.SessionID); err != nil {
		t.Fatalf("expected pending to survive failed commit: %v", err)
	}
}

func TestSessionsAreIsolated(t *testing.T) {
	ext := &stubExtractor{
		models: []string{"models/gemini-2.5-flash"},
		result: &extraction.Result{Candidate: sorollaCandidate(), Attempts: 1},
	}
	svc, _ := newTestService(t, ext, &stubArtworks{})
	ctx := context.Background()

	a, _ := svc.Start(ctx)
	b, _ := svc.Start(ctx)
	if _, err := svc.Extract(ctx, a.SessionID, "key-a", []byte("img"), "image/png"); err != nil {
		t.Fatalf("extract: %v", err)
	}
	if _, err := svc.Pending(ctx, b.SessionID); !pkgerrors.Is(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected session b to have no pending candidate, got %v", err)
	}
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	if _, err := NewService(nil, &stubExtractor{}, &stubArtworks{}, testConfig(), nil); err == nil {
		t.Fatal("expected error without store")
	}
	cfg := testConfig()
	cfg.Secret = ""
	if _, err := NewService(NewMemoryStore(time.Hour), &stubExtractor{}, &stubArtworks{}, cfg, nil); err == nil {
		t.Fatal("expected error without secret")
	}
}

