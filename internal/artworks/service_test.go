package artworks

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/auction-archive/pkg/errors"
)

func TestCommitSorollaScenario(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	dto, err := env.svc.Commit(ctx, sorollaInput())
	require.NoError(t, err)

	assert.Equal(t, "JOAQUÍN SOROLLA", dto.Author)
	require.NotNil(t, dto.Technique)
	assert.Equal(t, "Óleo sobre lienzo", *dto.Technique)
	assert.True(t, dto.RealPrice.Equal(dec("1266")), "real price %s", dto.RealPrice)
	assert.True(t, dto.Ratio.Equal(dec("0.36171429")), "ratio %s", dto.Ratio)
	assert.True(t, dto.CommissionPct.Equal(dec("26.6")))
	assert.Equal(t, "Ansorena", dto.AuctionHouse)
	assert.Equal(t, "2025-03-10", dto.AuctionDate)

	wantArtwork := fmt.Sprintf("JOAQUÍN_SOROLLA/artwork_%s_cuadro.png", dto.ID)
	wantDatasheet := fmt.Sprintf("JOAQUÍN_SOROLLA/datasheet_%s_ficha.jpg", dto.ID)
	assert.Equal(t, wantArtwork, dto.ArtworkImageRef)
	assert.Equal(t, wantDatasheet, dto.DatasheetImageRef)
	assert.Equal(t, "https://cdn.example/fotos/"+wantArtwork, dto.ArtworkImageURL)

	assert.ElementsMatch(t, []string{wantArtwork, wantDatasheet}, env.store.keys())
	assert.Equal(t, "image/png", env.store.objects[wantArtwork].ContentType)
	assert.Equal(t, "image/jpeg", env.store.objects[wantDatasheet].ContentType)

	stored, err := env.svc.Get(ctx, dto.ID)
	require.NoError(t, err)
	assert.True(t, stored.RealPrice.Equal(dec("1266")))
	assert.True(t, stored.Ratio.Equal(dec("0.36171429")), "stored ratio %s", stored.Ratio)
	assert.Equal(t, "2025-03-10", stored.AuctionDate)
}

func TestCommitRoundTripsFractionalFields(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	pct := dec("18.75")
	date := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)
	in := CommitInput{
		Author:        "Ana Gómez",
		Technique:     "acuarela sobre papel",
		HammerPrice:   dec("1234.56"),
		HeightCM:      dec("45.5"),
		WidthCM:       dec("60.25"),
		CommissionPct: &pct,
		AuctionHouse:  "Subastas Segre",
		AuctionDate:   &date,
		Artwork:       &Image{FileName: "acuarela.png", Data: pngBytes},
		Datasheet:     &Image{FileName: "ficha.jpg", Data: jpegBytes},
	}

	dto, err := env.svc.Commit(ctx, in)
	require.NoError(t, err)
	assert.True(t, dto.RealPrice.Equal(dec("1466.04")), "real price %s", dto.RealPrice)
	assert.True(t, dto.Ratio.Equal(dec("1466.04").DivRound(dec("2741.375"), RatioPlaces)), "ratio %s", dto.Ratio)

	groups, err := env.svc.ListByAuthor(ctx)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	require.Len(t, groups[0].Artworks, 1)
	got := groups[0].Artworks[0]

	assert.Equal(t, dto.ID, got.ID)
	assert.Equal(t, "ANA GÓMEZ", got.Author)
	require.NotNil(t, got.Technique)
	assert.Equal(t, "Acuarela sobre papel", *got.Technique)
	assert.True(t, got.HammerPrice.Equal(in.HammerPrice), "hammer %s", got.HammerPrice)
	assert.True(t, got.HeightCM.Equal(in.HeightCM), "height %s", got.HeightCM)
	assert.True(t, got.WidthCM.Equal(in.WidthCM), "width %s", got.WidthCM)
	assert.True(t, got.CommissionPct.Equal(pct), "commission %s", got.CommissionPct)
	assert.True(t, got.RealPrice.Equal(dto.RealPrice), "real price %s", got.RealPrice)
	assert.True(t, got.Ratio.Equal(dto.Ratio), "ratio %s", got.Ratio)
	assert.Equal(t, "Subastas Segre", got.AuctionHouse)
	assert.Equal(t, "2024-06-15", got.AuctionDate)
	assert.Equal(t, dto.ArtworkImageRef, got.ArtworkImageRef)
	assert.Equal(t, dto.DatasheetImageRef, got.DatasheetImageRef)
}

func TestCommitZeroHeightKeepsRealPrice(t *testing.T) {
	env := newTestEnv(t)
	in := sorollaInput()
	in.HeightCM = dec("0")
	pct := dec("20")
	in.CommissionPct = &pct

	dto, err := env.svc.Commit(context.Background(), in)
	require.NoError(t, err)
	assert.True(t, dto.RealPrice.Equal(dec("1200")))
	assert.True(t, dto.Ratio.IsZero())
}

func TestCommitBlankAuthorAndTechnique(t *testing.T) {
	env := newTestEnv(t)
	in := sorollaInput()
	in.Author = "   "
	in.Technique = ""
	in.AuctionHouse = " Christie's "
	date := time.Date(2024, 11, 2, 22, 0, 0, 0, time.UTC)
	in.AuctionDate = &date

	dto, err := env.svc.Commit(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, "DESCONOCIDO", dto.Author)
	assert.Nil(t, dto.Technique)
	assert.Equal(t, "Christie's", dto.AuctionHouse)
	assert.Equal(t, "2024-11-02", dto.AuctionDate)
	assert.True(t, strings.HasPrefix(dto.ArtworkImageRef, "DESCONOCIDO/artwork_"))
}

func TestCommitMissingImages(t *testing.T) {
	env := newTestEnv(t)
	in := sorollaInput()
	in.Artwork = nil
	in.Datasheet = &Image{FileName: "ficha.jpg"}

	_, err := env.svc.Commit(context.Background(), in)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeMissingImages, typed.Code())
	assert.Equal(t, map[string]any{"missing": []string{KindArtwork, KindDatasheet}}, typed.Details())
	assert.Empty(t, env.store.keys())
	assert.Zero(t, env.countRows(t))
}

func TestCommitRejectsNonImagesAndNegatives(t *testing.T) {
	env := newTestEnv(t)

	in := sorollaInput()
	in.Datasheet = &Image{FileName: "ficha.txt", Data: []byte("just some text")}
	_, err := env.svc.Commit(context.Background(), in)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation), "got %v", err)

	in = sorollaInput()
	in.WidthCM = dec("-1")
	_, err = env.svc.Commit(context.Background(), in)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation), "got %v", err)

	in = sorollaInput()
	in.Artwork = &Image{FileName: "big.png", Data: append(append([]byte{}, pngBytes...), make([]byte, 2<<20)...)}
	_, err = env.svc.Commit(context.Background(), in)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation), "got %v", err)

	assert.Empty(t, env.store.keys())
	assert.Zero(t, env.countRows(t))
}

func TestCommitAcceptsHEICDatasheet(t *testing.T) {
	env := newTestEnv(t)
	in := sorollaInput()
	in.Datasheet = &Image{FileName: "ficha.heic", Data: heicBytes}

	dto, err := env.svc.Commit(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, "image/heic", env.store.objects[dto.DatasheetImageRef].ContentType)
}

func TestCommitIdenticalFileNamesGetDistinctKeys(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	first, err := env.svc.Commit(ctx, sorollaInput())
	require.NoError(t, err)
	second, err := env.svc.Commit(ctx, sorollaInput())
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
	assert.NotEqual(t, first.ArtworkImageRef, second.ArtworkImageRef)
	assert.NotEqual(t, first.DatasheetImageRef, second.DatasheetImageRef)
	assert.Len(t, env.store.keys(), 4)
	assert.EqualValues(t, 2, env.countRows(t))
}

func TestCommitArtworkUploadFailureWritesNothing(t *testing.T) {
	env := newTestEnv(t)
	env.store.failPut["/artwork_"] = errors.New("bucket unavailable")

	_, err := env.svc.Commit(context.Background(), sorollaInput())
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeCommitFailure, typed.Code())
	assert.Equal(t, map[string]any{"stage": "artwork_upload"}, typed.Details())
	assert.Empty(t, env.store.keys())
	assert.Empty(t, env.store.deletes)
	assert.Zero(t, env.countRows(t))
}

func TestCommitDatasheetUploadFailureRemovesArtwork(t *testing.T) {
	env := newTestEnv(t)
	env.store.failPut["/datasheet_"] = errors.New("bucket unavailable")

	_, err := env.svc.Commit(context.Background(), sorollaInput())
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeCommitFailure), "got %v", err)
	assert.Empty(t, env.store.keys())
	require.Len(t, env.store.deletes, 1)
	assert.Contains(t, env.store.deletes[0], "/artwork_")
	assert.Zero(t, env.countRows(t))
}

func TestCommitInsertFailureRemovesBothImages(t *testing.T) {
	env := newTestEnvWithRepo(t, func(r *Repository) artworksRepository { return failingRepo{r} })

	_, err := env.svc.Commit(context.Background(), sorollaInput())
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeCommitFailure, typed.Code())
	assert.Equal(t, map[string]any{"stage": "insert"}, typed.Details())
	assert.Empty(t, env.store.keys())
	assert.Len(t, env.store.deletes, 2)
	assert.Zero(t, env.countRows(t))
}

func TestRowWritesAreBoundedByStorageTimeout(t *testing.T) {
	var repo *deadlineRepo
	env := newTestEnvWithRepo(t, func(r *Repository) artworksRepository {
		repo = &deadlineRepo{Repository: r}
		return repo
	})
	ctx := context.Background()

	dto, err := env.svc.Commit(ctx, sorollaInput())
	require.NoError(t, err)
	assert.True(t, repo.insertDeadline, "insert ran without a deadline")

	require.NoError(t, env.svc.Delete(ctx, dto.ID))
	assert.True(t, repo.deleteDeadline, "delete ran without a deadline")
}

func TestListByAuthorGroupsAndOrders(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	commit := func(author, date string) *ArtworkDTO {
		t.Helper()
		in := sorollaInput()
		in.Author = author
		d, err := time.Parse(DateLayout, date)
		require.NoError(t, err)
		in.AuctionDate = &d
		dto, err := env.svc.Commit(ctx, in)
		require.NoError(t, err)
		return dto
	}

	oldSorolla := commit("Sorolla", "2023-05-01")
	newSorolla := commit("sorolla", "2024-05-01")
	sameDay := commit("SOROLLA", "2024-05-01")
	goya := commit("Goya", "2022-01-01")

	groups, err := env.svc.ListByAuthor(ctx)
	require.NoError(t, err)
	require.Len(t, groups, 2)

	assert.Equal(t, "GOYA", groups[0].Author)
	assert.Equal(t, 1, groups[0].Count)
	assert.Equal(t, goya.ID, groups[0].Artworks[0].ID)

	assert.Equal(t, "SOROLLA", groups[1].Author)
	require.Len(t, groups[1].Artworks, 3)
	ids := []uuid.UUID{groups[1].Artworks[0].ID, groups[1].Artworks[1].ID, groups[1].Artworks[2].ID}
	// same auction date: the later insert comes first
	assert.Equal(t, []uuid.UUID{sameDay.ID, newSorolla.ID, oldSorolla.ID}, ids)

	again, err := env.svc.ListByAuthor(ctx)
	require.NoError(t, err)
	assert.Equal(t, groups, again)

	authors, err := env.svc.Authors(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"GOYA", "SOROLLA"}, authors)
}

func TestListByAuthorEmpty(t *testing.T) {
	env := newTestEnv(t)

	groups, err := env.svc.ListByAuthor(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, groups)
	assert.Empty(t, groups)

	authors, err := env.svc.Authors(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{}, authors)
}

func TestDeleteRemovesRowAndImages(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	dto, err := env.svc.Commit(ctx, sorollaInput())
	require.NoError(t, err)

	require.NoError(t, env.svc.Delete(ctx, dto.ID))
	assert.Empty(t, env.store.keys())
	assert.Zero(t, env.countRows(t))

	_, err = env.svc.Get(ctx, dto.ID)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeNotFound), "got %v", err)

	groups, err := env.svc.ListByAuthor(ctx)
	require.NoError(t, err)
	assert.Empty(t, groups)
}

func TestDeleteToleratesMissingImages(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	dto, err := env.svc.Commit(ctx, sorollaInput())
	require.NoError(t, err)
	delete(env.store.objects, dto.ArtworkImageRef)

	require.NoError(t, env.svc.Delete(ctx, dto.ID))
	assert.Empty(t, env.store.keys())
	assert.Zero(t, env.countRows(t))
}

func TestDeleteKeepsRowOnStorageError(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	dto, err := env.svc.Commit(ctx, sorollaInput())
	require.NoError(t, err)
	env.store.deleteErr = errors.New("permission denied")

	err = env.svc.Delete(ctx, dto.ID)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeDependency), "got %v", err)
	assert.EqualValues(t, 1, env.countRows(t))

	env.store.deleteErr = nil
	require.NoError(t, env.svc.Delete(ctx, dto.ID))
	assert.Zero(t, env.countRows(t))
}

func TestDeleteUnknownID(t *testing.T) {
	env := newTestEnv(t)

	err := env.svc.Delete(context.Background(), uuid.New())
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeNotFound), "got %v", err)

	err = env.svc.Delete(context.Background(), uuid.Nil)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation), "got %v", err)
}

type countingObserver struct {
	commits map[bool]int
	deletes map[bool]int
}

func (c *countingObserver) ObserveCommit(success bool) { c.commits[success]++ }
func (c *countingObserver) ObserveDelete(success bool) { c.deletes[success]++ }

func TestObserverSeesOutcomes(t *testing.T) {
	client := openTestDB(t)
	store := newMemStore()
	obs := &countingObserver{commits: map[bool]int{}, deletes: map[bool]int{}}
	svc, err := NewService(NewRepository(client.DB()), client, store, Options{DefaultCommissionPct: dec("26.6")}, nil, obs)
	require.NoError(t, err)

	ctx := context.Background()
	dto, err := svc.Commit(ctx, sorollaInput())
	require.NoError(t, err)
	_, err = svc.Commit(ctx, CommitInput{})
	require.Error(t, err)
	require.NoError(t, svc.Delete(ctx, dto.ID))

	assert.Equal(t, map[bool]int{true: 1, false: 1}, obs.commits)
	assert.Equal(t, map[bool]int{true: 1}, obs.deletes)
}
