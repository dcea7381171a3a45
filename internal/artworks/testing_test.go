package artworks

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/auction-archive/pkg/db"
	"github.com/angelmondragon/auction-archive/pkg/db/models"
	"github.com/angelmondragon/auction-archive/pkg/migrate"
	"github.com/angelmondragon/auction-archive/pkg/storage"
)

var (
	pngBytes  = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")
	jpegBytes = []byte("\xff\xd8\xff\xe0\x00\x10JFIF\x00\x01\x01\x00\x00\x01\x00\x01\x00\x00")
	heicBytes = []byte("\x00\x00\x00\x18ftypheic\x00\x00\x00\x00mif1heic")
)

// memStore is an in-memory BlobStore with switchable failures.
type memStore struct {
	mu        sync.Mutex
	objects   map[string]storage.Object
	failPut   map[string]error // keyed by substring of the object key
	deleteErr error
	deletes   []string
}

func newMemStore() *memStore {
	return &memStore{objects: map[string]storage.Object{}, failPut: map[string]error{}}
}

func (m *memStore) Put(_ context.Context, obj storage.Object) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for marker, err := range m.failPut {
		if strings.Contains(obj.Key, marker) {
			return err
		}
	}
	m.objects[obj.Key] = obj
	return nil
}

func (m *memStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deletes = append(m.deletes, key)
	if m.deleteErr != nil {
		return m.deleteErr
	}
	if _, ok := m.objects[key]; !ok {
		return storage.ErrObjectNotFound
	}
	delete(m.objects, key)
	return nil
}

func (m *memStore) URL(key string) string {
	return storage.JoinURL("https://cdn.example/fotos", key)
}

func (m *memStore) Ping(context.Context) error { return nil }

func (m *memStore) keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.objects))
	for k := range m.objects {
		out = append(out, k)
	}
	return out
}

// failingRepo rejects every insert.
type failingRepo struct {
	*Repository
}

func (failingRepo) CreateWithTx(*gorm.DB, *models.Artwork) error {
	return errors.New("disk full")
}

// deadlineRepo records whether row writes run under a deadline.
type deadlineRepo struct {
	*Repository
	insertDeadline bool
	deleteDeadline bool
}

func (d *deadlineRepo) CreateWithTx(tx *gorm.DB, artwork *models.Artwork) error {
	_, d.insertDeadline = tx.Statement.Context.Deadline()
	return d.Repository.CreateWithTx(tx, artwork)
}

func (d *deadlineRepo) Delete(ctx context.Context, id uuid.UUID) error {
	_, d.deleteDeadline = ctx.Deadline()
	return d.Repository.Delete(ctx, id)
}

type testEnv struct {
	svc    Service
	store  *memStore
	repo   *Repository
	client *db.Client
	now    time.Time
}

func openTestDB(t *testing.T) *db.Client {
	t.Helper()
	conn, err := db.Open(sqlite.Open("file::memory:"))
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, migrate.Run(context.Background(), sqlDB, db.DialectSQLite, "up"))
	return db.NewFromConn(conn, db.DialectSQLite)
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWithRepo(t, nil)
}

func newTestEnvWithRepo(t *testing.T, wrap func(*Repository) artworksRepository) *testEnv {
	t.Helper()
	client := openTestDB(t)
	repo := NewRepository(client.DB())
	store := newMemStore()

	var r artworksRepository = repo
	if wrap != nil {
		r = wrap(repo)
	}

	env := &testEnv{store: store, repo: repo, client: client, now: time.Date(2025, 3, 10, 15, 30, 0, 0, time.UTC)}
	tick := 0
	svc, err := NewService(r, client, store, Options{
		DefaultCommissionPct: decimal.RequireFromString("26.6"),
		DefaultAuctionHouse:  "Ansorena",
		MaxImageBytes:        1 << 20,
		StorageTimeout:       time.Second,
		Now: func() time.Time {
			tick++
			return env.now.Add(time.Duration(tick) * time.Millisecond)
		},
	}, nil, nil)
	require.NoError(t, err)
	env.svc = svc
	return env
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func sorollaInput() CommitInput {
	return CommitInput{
		Author:      "  joaquín   sorolla ",
		Technique:   "óleo sobre lienzo",
		HammerPrice: dec("1000"),
		HeightCM:    dec("50"),
		WidthCM:     dec("70"),
		Artwork:     &Image{FileName: "cuadro.png", Data: pngBytes},
		Datasheet:   &Image{FileName: "ficha.jpg", Data: jpegBytes},
	}
}

func (e *testEnv) countRows(t *testing.T) int64 {
	t.Helper()
	var n int64
	require.NoError(t, e.client.DB().Model(&models.Artwork{}).Count(&n).Error)
	return n
}
