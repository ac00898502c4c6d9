package service

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"docvault/internal/audit"
	"docvault/internal/cache"
	"docvault/internal/logger"
	"docvault/internal/model"
	"docvault/internal/repository"
	"docvault/internal/repository/memory"
	repoMocks "docvault/internal/repository/mocks"
	"docvault/internal/storage"
	storeMocks "docvault/internal/storage/mocks"
	"docvault/internal/thumbnail"
)

type fixture struct {
	store      *memory.Store
	blobs      *storage.MemoryStorage
	metrics    *Metrics
	opts       Options
	docs       DocumentService
	queries    QueryService
	histories  HistoryService
	categories CategoryService
	category   *model.Category
	actor      string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clock := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)
	opts := Options{
		Cache:   cache.New(cache.NewMemory(), "test"),
		Metrics: NewMetrics(prometheus.NewRegistry()),
		Logger:  logger.Discard(),
		Now: func() time.Time {
			clock = clock.Add(time.Second)
			return clock
		},
	}

	f := &fixture{
		store:   memory.NewStore(),
		blobs:   storage.NewMemory(),
		metrics: opts.Metrics,
		opts:    opts,
		actor:   uuid.NewString(),
	}
	f.docs = NewDocumentService(f.store, f.blobs, thumbnail.New(), opts)
	f.queries = NewQueryService(f.store, opts)
	f.histories = NewHistoryService(f.store, opts)
	f.categories = NewCategoryService(f.store, opts)

	cat, err := f.categories.Create(context.Background(), CategoryInput{Name: "Contracts"})
	require.NoError(t, err)
	f.category = cat
	return f
}

func (f *fixture) create(t *testing.T, title string, file *FileInput) *model.Document {
	t.Helper()
	doc, err := f.docs.Create(context.Background(), f.actor, CreateInput{Title: title, CategoryID: f.category.ID}, file)
	require.NoError(t, err)
	return doc
}

func (f *fixture) history(t *testing.T, docID string) []model.DocumentHistory {
	t.Helper()
	res, err := f.store.Histories().List(context.Background(), repository.HistoryFilter{DocumentID: docID})
	require.NoError(t, err)
	return res.Items
}

func (f *fixture) allHistory(t *testing.T) int {
	t.Helper()
	res, err := f.store.Histories().List(context.Background(), repository.HistoryFilter{})
	require.NoError(t, err)
	return res.Total
}

func (f *fixture) exists(t *testing.T, key string) bool {
	t.Helper()
	ok, err := f.blobs.Exists(context.Background(), key)
	require.NoError(t, err)
	return ok
}

func pngFile(t *testing.T, name string, w, h int) *FileInput {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x += 7 {
		for y := 0; y < h; y += 7 {
			img.Set(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 90, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return &FileInput{Name: name, ContentType: "image/png", Reader: &buf}
}

func textFile(name, content string) *FileInput {
	return &FileInput{Name: name, ContentType: "text/plain", Reader: strings.NewReader(content)}
}

func readAll(t *testing.T, rc io.ReadCloser) []byte {
	t.Helper()
	defer rc.Close()
	b, err := io.ReadAll(rc)
	require.NoError(t, err)
	return b
}

func TestDocumentService_Create_Validation(t *testing.T) {
	ctx := context.Background()
	unknownStatus := model.DocumentStatus("shredded")

	tests := []struct {
		name      string
		actor     string
		input     func(f *fixture) CreateInput
		file      *FileInput
		wantField string
	}{
		{
			name:      "blank title",
			input:     func(f *fixture) CreateInput { return CreateInput{Title: "   ", CategoryID: f.category.ID} },
			wantField: "title",
		},
		{
			name: "title too long",
			input: func(f *fixture) CreateInput {
				return CreateInput{Title: strings.Repeat("é", 256), CategoryID: f.category.ID}
			},
			wantField: "title",
		},
		{
			name: "unknown status",
			input: func(f *fixture) CreateInput {
				return CreateInput{Title: "Lease", CategoryID: f.category.ID, Status: unknownStatus}
			},
			wantField: "status",
		},
		{
			name:      "missing category",
			input:     func(f *fixture) CreateInput { return CreateInput{Title: "Lease"} },
			wantField: "category_id",
		},
		{
			name:      "malformed category",
			input:     func(f *fixture) CreateInput { return CreateInput{Title: "Lease", CategoryID: "not-a-uuid"} },
			wantField: "category_id",
		},
		{
			name:      "unknown category",
			input:     func(f *fixture) CreateInput { return CreateInput{Title: "Lease", CategoryID: uuid.NewString()} },
			wantField: "category_id",
		},
		{
			name:      "empty file",
			input:     func(f *fixture) CreateInput { return CreateInput{Title: "Lease", CategoryID: f.category.ID} },
			file:      textFile("lease.txt", ""),
			wantField: "file",
		},
		{
			name:  "file over the upload limit",
			input: func(f *fixture) CreateInput { return CreateInput{Title: "Lease", CategoryID: f.category.ID} },
			file: &FileInput{
				Name:   "big.bin",
				Reader: bytes.NewReader(make([]byte, 10<<20+1)),
			},
			wantField: "file",
		},
		{
			name:      "missing actor",
			actor:     " ",
			input:     func(f *fixture) CreateInput { return CreateInput{Title: "Lease", CategoryID: f.category.ID} },
			wantField: "user_id",
		},
		{
			name:      "malformed actor",
			actor:     "alice",
			input:     func(f *fixture) CreateInput { return CreateInput{Title: "Lease", CategoryID: f.category.ID} },
			wantField: "user_id",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			actor := f.actor
			if tt.actor != "" {
				actor = tt.actor
			}

			doc, err := f.docs.Create(ctx, actor, tt.input(f), tt.file)

			assert.Nil(t, doc)
			assert.ErrorIs(t, err, ErrValidation)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.wantField, verr.Field)
			assert.Zero(t, f.allHistory(t))
			assert.Empty(t, f.blobs.Keys())
		})
	}
}

func TestDocumentService_Create_RecordsSnapshot(t *testing.T) {
	f := newFixture(t)

	doc := f.create(t, "  Lease agreement ", nil)

	assert.Equal(t, "Lease agreement", doc.Title)
	assert.Equal(t, model.StatusActive, doc.Status)
	assert.Equal(t, f.actor, doc.OwnerID)
	assert.False(t, doc.HasFile())

	entries := f.history(t, doc.ID)
	require.Len(t, entries, 1)
	assert.Equal(t, model.ActionCreated, entries[0].Action)
	require.NotNil(t, entries[0].ActorID)
	assert.Equal(t, f.actor, *entries[0].ActorID)
	assert.Equal(t, audit.Snapshot(doc), entries[0].Details)
	assert.Nil(t, entries[0].Details["file_size"])

	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.mutations.WithLabelValues("created")))
}

func TestDocumentService_Create_ImageGetsThumbnail(t *testing.T) {
	f := newFixture(t)

	doc := f.create(t, "Floor plan", pngFile(t, "plan.PNG", 640, 480))

	assert.Regexp(t, regexp.MustCompile(`^documents/2025/03/14/[0-9a-f]{40}\.PNG$`), doc.FilePath)
	assert.Equal(t, "plan.PNG", doc.FileName)
	assert.Equal(t, "image/png", doc.FileType)
	assert.Positive(t, doc.FileSize)
	assert.True(t, f.exists(t, doc.FilePath))

	rc, info, err := f.docs.Thumbnail(context.Background(), doc.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ThumbnailPathFor(doc.FilePath), info.Key)
	cfg, _, err := image.DecodeConfig(bytes.NewReader(readAll(t, rc)))
	require.NoError(t, err)
	assert.Equal(t, 200, cfg.Width)
	assert.Equal(t, 150, cfg.Height)
}

func TestDocumentService_Create_NonImageHasNoThumbnail(t *testing.T) {
	f := newFixture(t)

	doc := f.create(t, "Notes", textFile("notes.txt", "hello world"))

	assert.Equal(t, "text/plain", doc.FileType)
	assert.Equal(t, int64(11), doc.FileSize)
	assert.Equal(t, []string{doc.FilePath}, f.blobs.Keys())

	_, _, err := f.docs.Thumbnail(context.Background(), doc.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDocumentService_Create_UndecodableImageSkipsThumbnail(t *testing.T) {
	f := newFixture(t)

	doc := f.create(t, "Scan", &FileInput{
		Name:        "scan.png",
		ContentType: "image/png",
		Reader:      bytes.NewReader([]byte{0x01, 0x02, 0x03, 0x04}),
	})

	assert.Equal(t, "image/png", doc.FileType)
	assert.Equal(t, []string{doc.FilePath}, f.blobs.Keys())
	assert.Len(t, f.history(t, doc.ID), 1)
}

func TestDocumentService_Create_StorageFailure(t *testing.T) {
	f := newFixture(t)
	f.blobs.FailPuts(errors.New("bucket unavailable"))

	doc, err := f.docs.Create(context.Background(), f.actor,
		CreateInput{Title: "Lease", CategoryID: f.category.ID}, textFile("lease.txt", "terms"))

	assert.Nil(t, doc)
	assert.ErrorIs(t, err, ErrStorage)
	assert.Zero(t, f.allHistory(t))

	list, err := f.queries.List(context.Background(), 0, 0)
	require.NoError(t, err)
	assert.Zero(t, list.Total)
}

func TestDocumentService_Create_CommitFailureLeavesNothing(t *testing.T) {
	f := newFixture(t)
	f.store.FailCommit(errors.New("connection reset"))

	doc, err := f.docs.Create(context.Background(), f.actor,
		CreateInput{Title: "Lease", CategoryID: f.category.ID}, pngFile(t, "lease.png", 300, 300))

	assert.Nil(t, doc)
	assert.ErrorIs(t, err, ErrTransaction)
	assert.ErrorIs(t, err, repository.ErrCommit)
	assert.Zero(t, f.allHistory(t))
	assert.Empty(t, f.blobs.Keys())
	assert.Len(t, f.blobs.DeleteAttempts(), 2)

	list, err := f.queries.List(context.Background(), 0, 0)
	require.NoError(t, err)
	assert.Zero(t, list.Total)
}

func TestDocumentService_Update(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	doc := f.create(t, "Draft", nil)

	title := "Final"
	res, err := f.docs.Update(ctx, f.actor, doc.ID, UpdateInput{Title: &title}, nil)
	require.NoError(t, err)

	assert.True(t, res.Changed)
	assert.Equal(t, "Final", res.Document.Title)
	assert.True(t, res.Document.UpdatedAt.After(doc.UpdatedAt))
	assert.Equal(t, doc.CreatedAt, res.Document.CreatedAt)

	entries := f.history(t, doc.ID)
	require.Len(t, entries, 2)
	assert.Equal(t, model.ActionUpdated, entries[1].Action)
	assert.Equal(t, map[string]any{"title": "Final"}, entries[1].Details)
}

func TestDocumentService_Update_NoChanges(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	doc := f.create(t, "Draft", nil)

	same := "Draft"
	status := model.StatusActive
	for _, in := range []UpdateInput{{}, {Title: &same, Status: &status}} {
		res, err := f.docs.Update(ctx, f.actor, doc.ID, in, nil)
		require.NoError(t, err)
		assert.False(t, res.Changed)
		assert.Equal(t, doc.ID, res.Document.ID)
	}
	assert.Len(t, f.history(t, doc.ID), 1)
	assert.Zero(t, testutil.ToFloat64(f.metrics.mutations.WithLabelValues("updated")))
}

func TestDocumentService_Update_ReplacesFile(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	doc := f.create(t, "Photo", pngFile(t, "a.png", 400, 400))
	oldThumb := doc.ThumbnailPath()
	require.True(t, f.exists(t, oldThumb))

	res, err := f.docs.Update(ctx, f.actor, doc.ID, UpdateInput{}, pngFile(t, "b.png", 100, 50))
	require.NoError(t, err)

	assert.True(t, res.Changed)
	assert.Empty(t, res.Warnings)
	assert.NotEqual(t, doc.FilePath, res.Document.FilePath)
	assert.Equal(t, "b.png", res.Document.FileName)
	assert.True(t, f.exists(t, res.Document.FilePath))
	assert.True(t, f.exists(t, res.Document.ThumbnailPath()))
	assert.False(t, f.exists(t, doc.FilePath))
	assert.False(t, f.exists(t, oldThumb))
	assert.Subset(t, f.blobs.DeleteAttempts(), []string{doc.FilePath, oldThumb})

	entries := f.history(t, doc.ID)
	require.Len(t, entries, 2)
	assert.Equal(t, res.Document.FilePath, entries[1].Details["file_path"])
	assert.Equal(t, "b.png", entries[1].Details["file_name"])
	assert.NotContains(t, entries[1].Details, "file_type")
}

func TestDocumentService_Update_OldBlobCleanupFailureIsAWarning(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	doc := f.create(t, "Photo", pngFile(t, "a.png", 300, 300))
	f.blobs.FailDeletes(errors.New("permission denied"))

	res, err := f.docs.Update(ctx, f.actor, doc.ID, UpdateInput{}, textFile("a.txt", "now text"))
	require.NoError(t, err)

	assert.True(t, res.Changed)
	require.Len(t, res.Warnings, 2)
	for _, w := range res.Warnings {
		assert.ErrorIs(t, w, ErrStorage)
	}
	assert.Equal(t, []string{doc.FilePath, doc.ThumbnailPath()}, f.blobs.DeleteAttempts())
	assert.Equal(t, 2.0, testutil.ToFloat64(f.metrics.cleanupFailures))
	assert.Len(t, f.history(t, doc.ID), 2)
}

func TestDocumentService_Update_CommitFailureLeavesNothing(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	doc := f.create(t, "Contract", textFile("v1.txt", "version one"))
	f.store.FailCommit(errors.New("serialization failure"))

	title := "Contract v2"
	res, err := f.docs.Update(ctx, f.actor, doc.ID, UpdateInput{Title: &title}, textFile("v2.txt", "version two"))

	assert.Nil(t, res)
	assert.ErrorIs(t, err, ErrTransaction)
	assert.Equal(t, []string{doc.FilePath}, f.blobs.Keys())
	assert.Len(t, f.history(t, doc.ID), 1)

	got, err := f.docs.Get(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "Contract", got.Title)
	assert.Equal(t, doc.FilePath, got.FilePath)
}

func TestDocumentService_Update_Errors(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	doc := f.create(t, "Draft", nil)
	gone := f.create(t, "Gone", nil)
	_, err := f.docs.Delete(ctx, f.actor, gone.ID)
	require.NoError(t, err)

	title := "x"
	badStatus := model.DocumentStatus("lost")
	unknownCategory := uuid.NewString()

	tests := []struct {
		name    string
		id      string
		input   UpdateInput
		wantErr error
	}{
		{name: "unknown id", id: uuid.NewString(), input: UpdateInput{Title: &title}, wantErr: ErrNotFound},
		{name: "malformed id", id: "42", input: UpdateInput{Title: &title}, wantErr: ErrNotFound},
		{name: "soft-deleted", id: gone.ID, input: UpdateInput{Title: &title}, wantErr: ErrNotFound},
		{name: "bad status", id: doc.ID, input: UpdateInput{Status: &badStatus}, wantErr: ErrValidation},
		{name: "unknown category", id: doc.ID, input: UpdateInput{CategoryID: &unknownCategory}, wantErr: ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := f.docs.Update(ctx, f.actor, tt.id, tt.input, nil)
			assert.Nil(t, res)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
	assert.Len(t, f.history(t, doc.ID), 1)
}

func TestDocumentService_Delete(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	doc := f.create(t, "Budget", pngFile(t, "budget.png", 250, 100))
	keep := f.create(t, "Budget notes", nil)

	res, err := f.docs.Delete(ctx, f.actor, doc.ID)
	require.NoError(t, err)
	assert.True(t, res.Changed)
	require.NotNil(t, res.Document.DeletedAt)
	assert.Empty(t, res.Warnings)
	assert.Empty(t, f.blobs.Keys())

	_, err = f.docs.Get(ctx, doc.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	trashed, err := f.docs.GetWithTrashed(ctx, doc.ID)
	require.NoError(t, err)
	assert.True(t, trashed.IsDeleted())

	list, err := f.queries.List(ctx, 0, 0)
	require.NoError(t, err)
	require.Len(t, list.Items, 1)
	assert.Equal(t, keep.ID, list.Items[0].ID)

	found, err := f.queries.Search(ctx, "budget", 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, found.Total)

	byCat, err := f.queries.ByCategory(ctx, f.category.ID, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, byCat.Total)

	hist, err := f.histories.ForDocument(ctx, doc.ID, 0, 0)
	require.NoError(t, err)
	require.Len(t, hist.Items, 2)
	last := hist.Items[1]
	assert.Equal(t, model.ActionDeleted, last.Action)
	assert.Equal(t, audit.Snapshot(doc), last.Details)

	_, err = f.docs.Delete(ctx, f.actor, doc.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDocumentService_Delete_CommitFailureKeepsDocumentAndBlobs(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	doc := f.create(t, "Keep me", textFile("keep.txt", "content"))
	f.store.FailCommit(errors.New("deadlock detected"))

	res, err := f.docs.Delete(ctx, f.actor, doc.ID)

	assert.Nil(t, res)
	assert.ErrorIs(t, err, ErrTransaction)
	_, err = f.docs.Get(ctx, doc.ID)
	assert.NoError(t, err)
	assert.Len(t, f.history(t, doc.ID), 1)
	assert.Empty(t, f.blobs.DeleteAttempts())
	assert.True(t, f.exists(t, doc.FilePath))
}

func TestDocumentService_Delete_WithoutActorRecordsNilActor(t *testing.T) {
	f := newFixture(t)
	doc := f.create(t, "System cleanup", nil)

	_, err := f.docs.Delete(context.Background(), "", doc.ID)
	require.NoError(t, err)

	entries := f.history(t, doc.ID)
	require.Len(t, entries, 2)
	assert.Nil(t, entries[1].ActorID)
}

func TestDocumentService_Download(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	withFile := f.create(t, "Readme", textFile("readme.txt", "read me"))
	bare := f.create(t, "No file", nil)

	rc, doc, err := f.docs.Download(ctx, withFile.ID)
	require.NoError(t, err)
	assert.Equal(t, "read me", string(readAll(t, rc)))
	assert.Equal(t, withFile.ID, doc.ID)

	_, _, err = f.docs.Download(ctx, bare.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	u, err := f.docs.DownloadURL(ctx, withFile.ID, time.Minute)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(u, "memory:///"+withFile.FilePath))
}

func TestDocumentService_Download_StorageErrors(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	cat, err := NewCategoryService(store, Options{Logger: logger.Discard()}).Create(ctx, CategoryInput{Name: "Misc"})
	require.NoError(t, err)

	seed := func(t *testing.T) *model.Document {
		now := time.Now().UTC()
		doc, err := store.Documents().Create(ctx, &model.Document{
			ID: uuid.NewString(), Title: "t", Status: model.StatusActive, CategoryID: cat.ID, OwnerID: uuid.NewString(),
			FilePath: "documents/2025/01/01/abc.pdf", FileName: "a.pdf", FileType: "application/pdf", FileSize: 3,
			CreatedAt: now, UpdatedAt: now,
		})
		require.NoError(t, err)
		return doc
	}

	tests := []struct {
		name       string
		setupMocks func(mStore *storeMocks.MockStorage)
		wantErr    error
	}{
		{
			name: "object missing",
			setupMocks: func(mStore *storeMocks.MockStorage) {
				mStore.On("Get", mock.Anything, "documents/2025/01/01/abc.pdf").
					Return(nil, storage.ObjectInfo{}, storage.ErrObjectNotFound)
			},
			wantErr: ErrNotFound,
		},
		{
			name: "backend failure",
			setupMocks: func(mStore *storeMocks.MockStorage) {
				mStore.On("Get", mock.Anything, "documents/2025/01/01/abc.pdf").
					Return(nil, storage.ObjectInfo{}, errors.New("i/o timeout"))
			},
			wantErr: ErrStorage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mStore := new(storeMocks.MockStorage)
			tt.setupMocks(mStore)
			svc := NewDocumentService(store, mStore, nil, Options{Logger: logger.Discard()})

			rc, doc, err := svc.Download(ctx, seed(t).ID)

			assert.Nil(t, rc)
			assert.Nil(t, doc)
			assert.ErrorIs(t, err, tt.wantErr)
			mStore.AssertExpectations(t)
		})
	}
}

func TestDocumentService_Get(t *testing.T) {
	ctx := context.Background()
	id := uuid.NewString()

	tests := []struct {
		name       string
		id         string
		setupMocks func(mRepo *repoMocks.MockDocumentRepository)
		wantErr    error
	}{
		{
			name: "found",
			id:   id,
			setupMocks: func(mRepo *repoMocks.MockDocumentRepository) {
				mRepo.On("FindByID", mock.Anything, id).Return(&model.Document{ID: id, Title: "Found"}, nil)
			},
		},
		{
			name: "not found",
			id:   id,
			setupMocks: func(mRepo *repoMocks.MockDocumentRepository) {
				mRepo.On("FindByID", mock.Anything, id).Return(nil, repository.ErrNotFound)
			},
			wantErr: ErrNotFound,
		},
		{
			name: "database failure",
			id:   id,
			setupMocks: func(mRepo *repoMocks.MockDocumentRepository) {
				mRepo.On("FindByID", mock.Anything, id).Return(nil, errors.New("connection refused"))
			},
			wantErr: ErrTransaction,
		},
		{
			name:       "malformed id never reaches the repository",
			id:         "../etc/passwd",
			setupMocks: func(mRepo *repoMocks.MockDocumentRepository) {},
			wantErr:    ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mRepo := new(repoMocks.MockDocumentRepository)
			mStore := new(repoMocks.MockStore)
			mStore.On("Documents").Return(mRepo).Maybe()
			tt.setupMocks(mRepo)

			svc := NewDocumentService(mStore, storage.NewMemory(), nil, Options{Logger: logger.Discard()})
			doc, err := svc.Get(ctx, tt.id)

			if tt.wantErr != nil {
				assert.Nil(t, doc)
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
				assert.Equal(t, "Found", doc.Title)
			}
			mRepo.AssertExpectations(t)
		})
	}
}

func TestDocumentService_Delete_BeginFailure(t *testing.T) {
	ctx := context.Background()
	mStore := new(repoMocks.MockStore)
	mStore.On("WithinTx", mock.Anything).Return(errors.New("too many connections"))

	svc := NewDocumentService(mStore, storage.NewMemory(), nil, Options{Logger: logger.Discard()})
	res, err := svc.Delete(ctx, uuid.NewString(), uuid.NewString())

	assert.Nil(t, res)
	assert.ErrorIs(t, err, ErrTransaction)
	var terr *TransactionError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, "delete document", terr.Op)
	mStore.AssertExpectations(t)
}

func TestBlobName(t *testing.T) {
	tests := []struct {
		original string
		wantExt  string
	}{
		{"report.pdf", ".pdf"},
		{"photo.JPeG", ".JPeG"},
		{`C:\Users\me\scan.tiff`, ".tiff"},
		{"archive.tar.gz", ".gz"},
		{"noext", ""},
		{"weird.p$f", ""},
		{".", ""},
	}
	for _, tt := range tests {
		t.Run(tt.original, func(t *testing.T) {
			name, err := blobName(tt.original)
			require.NoError(t, err)
			assert.Regexp(t, `^[0-9a-f]{40}`+regexp.QuoteMeta(tt.wantExt)+`$`, name)
		})
	}
}

func TestTxFailure(t *testing.T) {
	verr := invalid("name", "is required")
	assert.Same(t, verr, txFailure("op", verr))

	nf := &NotFoundError{Entity: "document", ID: "1"}
	assert.Same(t, nf, txFailure("op", nf))

	wrapped := txFailure("create document", errors.New("boom"))
	assert.ErrorIs(t, wrapped, ErrTransaction)
	assert.EqualError(t, wrapped, "create document: boom")
}
