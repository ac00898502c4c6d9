package service

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"docvault/internal/audit"
	"docvault/internal/cache"
	"docvault/internal/model"
	"docvault/internal/repository"
	"docvault/internal/storage"
	"docvault/internal/thumbnail"
)

const maxTitleLength = 255

// FileInput is an uploaded file. Name is the client-supplied file name and
// ContentType the declared type, used only when sniffing is inconclusive.
type FileInput struct {
	Name        string
	ContentType string
	Reader      io.Reader
}

// CreateInput holds the attributes of a new document.
type CreateInput struct {
	Title       string
	Description string
	CategoryID  string
	// Status defaults to active.
	Status model.DocumentStatus
}

// UpdateInput is a partial update. Nil fields are left unchanged.
type UpdateInput struct {
	Title       *string
	Description *string
	CategoryID  *string
	Status      *model.DocumentStatus
}

func (in UpdateInput) apply(doc *model.Document) {
	if in.Title != nil {
		doc.Title = *in.Title
	}
	if in.Description != nil {
		doc.Description = *in.Description
	}
	if in.CategoryID != nil {
		doc.CategoryID = *in.CategoryID
	}
	if in.Status != nil {
		doc.Status = *in.Status
	}
}

// MutationResult is returned by Update and Delete. Warnings lists blob
// cleanup failures that did not prevent the mutation from committing.
type MutationResult struct {
	Changed  bool
	Document *model.Document
	Warnings []error
}

// Thumbnailer renders a bounded preview of an image.
type Thumbnailer interface {
	MakeThumbnail(src []byte, maxW, maxH int, preserveAspect, noUpscale bool) ([]byte, error)
}

// DocumentService is the record manager. Every mutation commits together
// with exactly one history entry, or not at all.
type DocumentService interface {
	// Create stores the optional file (plus a thumbnail for images), then
	// inserts the document and its "created" entry in one unit of work.
	// Uploaded blobs are removed again if the unit of work fails.
	Create(ctx context.Context, actorID string, in CreateInput, file *FileInput) (*model.Document, error)

	// Update applies a partial update and optionally replaces the file.
	// A request that changes nothing reports Changed=false and records nothing.
	Update(ctx context.Context, actorID, id string, in UpdateInput, file *FileInput) (*MutationResult, error)

	// Delete soft-deletes the document, records the pre-delete snapshot and
	// removes its blobs. Blob failures end up in Warnings.
	Delete(ctx context.Context, actorID, id string) (*MutationResult, error)

	// Get returns an active document.
	Get(ctx context.Context, id string) (*model.Document, error)

	// GetWithTrashed also resolves soft-deleted documents.
	GetWithTrashed(ctx context.Context, id string) (*model.Document, error)

	// Download streams the attached file. The caller closes the reader.
	Download(ctx context.Context, id string) (io.ReadCloser, *model.Document, error)

	// DownloadURL returns a time-limited URL for the attached file.
	DownloadURL(ctx context.Context, id string, expiry time.Duration) (string, error)

	// Thumbnail streams the preview of an image document.
	Thumbnail(ctx context.Context, id string) (io.ReadCloser, storage.ObjectInfo, error)
}

type documentService struct {
	store    repository.Store
	blobs    storage.Storage
	thumbs   Thumbnailer
	recorder *audit.Recorder
	opts     Options
}

// NewDocumentService constructs a new DocumentService.
func NewDocumentService(store repository.Store, blobs storage.Storage, thumbs Thumbnailer, opts Options) DocumentService {
	opts = opts.withDefaults()
	return &documentService{
		store:    store,
		blobs:    blobs,
		thumbs:   thumbs,
		recorder: audit.NewRecorder(opts.Now),
		opts:     opts,
	}
}

func (s *documentService) Create(ctx context.Context, actorID string, in CreateInput, file *FileInput) (doc *model.Document, err error) {
	ctx, span := startSpan(ctx, "DocumentService.Create")
	defer func() { endSpan(span, err) }()

	if strings.TrimSpace(actorID) == "" {
		return nil, invalid("user_id", "is required")
	}
	if err := checkActor(actorID); err != nil {
		return nil, err
	}
	title, err := normalizeTitle(in.Title)
	if err != nil {
		return nil, err
	}
	status := in.Status
	if status == "" {
		status = model.StatusActive
	}
	if !status.Valid() {
		return nil, invalid("status", "must be active or archived")
	}
	if err := s.checkCategory(ctx, in.CategoryID); err != nil {
		return nil, err
	}
	var data []byte
	if file != nil {
		if data, err = s.readFile(file); err != nil {
			return nil, err
		}
	}

	now := s.opts.now()
	doc = &model.Document{
		ID:          uuid.NewString(),
		Title:       title,
		Description: in.Description,
		Status:      status,
		CategoryID:  in.CategoryID,
		OwnerID:     actorID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	var upload *storedFile
	if file != nil {
		if upload, err = s.storeFile(ctx, file, data); err != nil {
			return nil, err
		}
		upload.apply(doc)
	}

	var stored *model.Document
	err = s.store.WithinTx(ctx, func(tx repository.Store) error {
		if err := tx.Users().Ensure(ctx, actorID); err != nil {
			return err
		}
		created, err := tx.Documents().Create(ctx, doc)
		if err != nil {
			return err
		}
		if _, err := s.recorder.Record(ctx, tx.Histories(), created.ID, &actorID, model.ActionCreated, audit.Snapshot(created)); err != nil {
			return err
		}
		stored = created
		return nil
	})
	if err != nil {
		if upload != nil {
			s.discard(ctx, doc.ID, upload.paths()...)
		}
		return nil, txFailure("create document", err)
	}

	s.committed(ctx, model.ActionCreated)
	s.opts.Logger.InfoContext(ctx, "document created", "document_id", stored.ID, "user_id", actorID)
	return stored, nil
}

func (s *documentService) Update(ctx context.Context, actorID, id string, in UpdateInput, file *FileInput) (res *MutationResult, err error) {
	ctx, span := startSpan(ctx, "DocumentService.Update")
	defer func() { endSpan(span, err) }()

	if err := checkActor(actorID); err != nil {
		return nil, err
	}
	current, err := s.load(ctx, id, false)
	if err != nil {
		return nil, err
	}

	if in.Title != nil {
		title, err := normalizeTitle(*in.Title)
		if err != nil {
			return nil, err
		}
		in.Title = &title
	}
	if in.Status != nil && !in.Status.Valid() {
		return nil, invalid("status", "must be active or archived")
	}
	if in.CategoryID != nil && *in.CategoryID != current.CategoryID {
		if err := s.checkCategory(ctx, *in.CategoryID); err != nil {
			return nil, err
		}
	}
	var data []byte
	if file != nil {
		if data, err = s.readFile(file); err != nil {
			return nil, err
		}
	}

	if file == nil {
		next := *current
		in.apply(&next)
		if len(audit.Changes(current, &next)) == 0 {
			return &MutationResult{Changed: false, Document: current}, nil
		}
	}

	var upload *storedFile
	if file != nil {
		if upload, err = s.storeFile(ctx, file, data); err != nil {
			return nil, err
		}
	}

	var before, updated *model.Document
	err = s.store.WithinTx(ctx, func(tx repository.Store) error {
		found, err := tx.Documents().FindByID(ctx, id)
		if err != nil {
			return notFoundOr("document", id, err)
		}
		next := *found
		in.apply(&next)
		if upload != nil {
			upload.apply(&next)
		}
		next.UpdatedAt = s.opts.now()

		changes := audit.Changes(found, &next)
		if len(changes) == 0 {
			before = found
			return nil
		}
		if actorID != "" {
			if err := tx.Users().Ensure(ctx, actorID); err != nil {
				return err
			}
		}
		saved, err := tx.Documents().Update(ctx, &next)
		if err != nil {
			return notFoundOr("document", id, err)
		}
		if _, err := s.recorder.Record(ctx, tx.Histories(), id, &actorID, model.ActionUpdated, changes); err != nil {
			return err
		}
		before, updated = found, saved
		return nil
	})
	if err != nil {
		if upload != nil {
			s.discard(ctx, id, upload.paths()...)
		}
		return nil, txFailure("update document", err)
	}
	if updated == nil {
		return &MutationResult{Changed: false, Document: before}, nil
	}

	s.committed(ctx, model.ActionUpdated)
	res = &MutationResult{Changed: true, Document: updated}
	if upload != nil && before.HasFile() {
		res.Warnings = s.discard(ctx, id, before.FilePath, before.ThumbnailPath())
	}
	s.opts.Logger.InfoContext(ctx, "document updated", "document_id", id, "user_id", actorID, "file_replaced", upload != nil)
	return res, nil
}

func (s *documentService) Delete(ctx context.Context, actorID, id string) (res *MutationResult, err error) {
	ctx, span := startSpan(ctx, "DocumentService.Delete")
	defer func() { endSpan(span, err) }()

	if err := checkActor(actorID); err != nil {
		return nil, err
	}
	if !validID(id) {
		return nil, &NotFoundError{Entity: "document", ID: id}
	}

	now := s.opts.now()
	var deleted model.Document
	err = s.store.WithinTx(ctx, func(tx repository.Store) error {
		found, err := tx.Documents().FindByID(ctx, id)
		if err != nil {
			return notFoundOr("document", id, err)
		}
		if actorID != "" {
			if err := tx.Users().Ensure(ctx, actorID); err != nil {
				return err
			}
		}
		if err := tx.Documents().SoftDelete(ctx, id, now); err != nil {
			return notFoundOr("document", id, err)
		}
		if _, err := s.recorder.Record(ctx, tx.Histories(), id, &actorID, model.ActionDeleted, audit.Snapshot(found)); err != nil {
			return err
		}
		deleted = *found
		deleted.UpdatedAt = now
		deleted.DeletedAt = &now
		return nil
	})
	if err != nil {
		return nil, txFailure("delete document", err)
	}

	s.committed(ctx, model.ActionDeleted)
	res = &MutationResult{Changed: true, Document: &deleted}
	if deleted.HasFile() {
		res.Warnings = s.discard(ctx, id, deleted.FilePath, deleted.ThumbnailPath())
	}
	s.opts.Logger.InfoContext(ctx, "document deleted", "document_id", id, "user_id", actorID)
	return res, nil
}

func (s *documentService) Get(ctx context.Context, id string) (doc *model.Document, err error) {
	ctx, span := startSpan(ctx, "DocumentService.Get")
	defer func() { endSpan(span, err) }()
	return s.load(ctx, id, false)
}

func (s *documentService) GetWithTrashed(ctx context.Context, id string) (doc *model.Document, err error) {
	ctx, span := startSpan(ctx, "DocumentService.GetWithTrashed")
	defer func() { endSpan(span, err) }()
	return s.load(ctx, id, true)
}

func (s *documentService) Download(ctx context.Context, id string) (rc io.ReadCloser, doc *model.Document, err error) {
	ctx, span := startSpan(ctx, "DocumentService.Download")
	defer func() { endSpan(span, err) }()

	doc, err = s.load(ctx, id, false)
	if err != nil {
		return nil, nil, err
	}
	if !doc.HasFile() {
		return nil, nil, &NotFoundError{Entity: "file", ID: id}
	}
	rc, _, err = s.blobs.Get(ctx, doc.FilePath)
	if err != nil {
		return nil, nil, blobFailure("file", id, doc.FilePath, err)
	}
	return rc, doc, nil
}

func (s *documentService) DownloadURL(ctx context.Context, id string, expiry time.Duration) (u string, err error) {
	ctx, span := startSpan(ctx, "DocumentService.DownloadURL")
	defer func() { endSpan(span, err) }()

	doc, err := s.load(ctx, id, false)
	if err != nil {
		return "", err
	}
	if !doc.HasFile() {
		return "", &NotFoundError{Entity: "file", ID: id}
	}
	if expiry <= 0 {
		expiry = 15 * time.Minute
	}
	u, err = s.blobs.PresignGet(ctx, doc.FilePath, expiry)
	if err != nil {
		return "", &StorageError{Op: "presign", Path: doc.FilePath, Err: err}
	}
	return u, nil
}

func (s *documentService) Thumbnail(ctx context.Context, id string) (rc io.ReadCloser, info storage.ObjectInfo, err error) {
	ctx, span := startSpan(ctx, "DocumentService.Thumbnail")
	defer func() { endSpan(span, err) }()

	doc, err := s.load(ctx, id, false)
	if err != nil {
		return nil, storage.ObjectInfo{}, err
	}
	p := doc.ThumbnailPath()
	if p == "" {
		return nil, storage.ObjectInfo{}, &NotFoundError{Entity: "thumbnail", ID: id}
	}
	rc, info, err = s.blobs.Get(ctx, p)
	if err != nil {
		return nil, storage.ObjectInfo{}, blobFailure("thumbnail", id, p, err)
	}
	return rc, info, nil
}

func (s *documentService) load(ctx context.Context, id string, trashed bool) (*model.Document, error) {
	if !validID(id) {
		return nil, &NotFoundError{Entity: "document", ID: id}
	}
	find := s.store.Documents().FindByID
	if trashed {
		find = s.store.Documents().FindByIDWithTrashed
	}
	doc, err := find(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, &NotFoundError{Entity: "document", ID: id}
		}
		return nil, &TransactionError{Op: "load document", Err: err}
	}
	return doc, nil
}

func (s *documentService) checkCategory(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return invalid("category_id", "is required")
	}
	if !validID(id) {
		return invalid("category_id", "must reference an existing category")
	}
	if _, err := s.store.Categories().FindByID(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return invalid("category_id", "must reference an existing category")
		}
		return &TransactionError{Op: "load category", Err: err}
	}
	return nil
}

func (s *documentService) readFile(f *FileInput) ([]byte, error) {
	if f.Reader == nil {
		return nil, invalid("file", "is required")
	}
	name := baseName(f.Name)
	if name == "" {
		return nil, invalid("file", "name is required")
	}
	if utf8.RuneCountInString(name) > maxTitleLength {
		return nil, invalid("file", "name must not exceed 255 characters")
	}
	data, err := io.ReadAll(io.LimitReader(f.Reader, s.opts.MaxUploadBytes+1))
	if err != nil {
		return nil, invalid("file", "could not be read: "+err.Error())
	}
	if int64(len(data)) > s.opts.MaxUploadBytes {
		return nil, invalid("file", fmt.Sprintf("must not exceed %d bytes", s.opts.MaxUploadBytes))
	}
	if len(data) == 0 {
		return nil, invalid("file", "is empty")
	}
	return data, nil
}

// storedFile describes blobs written for one upload.
type storedFile struct {
	path      string
	name      string
	mime      string
	size      int64
	thumbnail string
}

func (f *storedFile) apply(doc *model.Document) {
	doc.FilePath = f.path
	doc.FileName = f.name
	doc.FileType = f.mime
	doc.FileSize = f.size
}

func (f *storedFile) paths() []string {
	return []string{f.path, f.thumbnail}
}

// storeFile uploads data under documents/YYYY/MM/DD/ with a random name and,
// for images, a thumbnail next to it. A thumbnail that cannot be rendered is
// skipped; one that cannot be stored fails the upload.
func (s *documentService) storeFile(ctx context.Context, f *FileInput, data []byte) (*storedFile, error) {
	name, err := blobName(f.Name)
	if err != nil {
		return nil, &StorageError{Op: "name", Path: f.Name, Err: err}
	}
	key := path.Join("documents", s.opts.now().Format("2006/01/02"), name)
	mime := thumbnail.DetectMIME(data, f.ContentType)

	_, err = s.blobs.Put(ctx, key, bytes.NewReader(data), storage.PutObjectOptions{
		Size:        int64(len(data)),
		ContentType: mime,
		Metadata:    map[string]string{"original-filename": baseName(f.Name)},
	})
	if err != nil {
		return nil, &StorageError{Op: "put", Path: key, Err: err}
	}
	out := &storedFile{path: key, name: baseName(f.Name), mime: mime, size: int64(len(data))}

	if !strings.HasPrefix(mime, "image/") || s.thumbs == nil {
		return out, nil
	}
	thumb, err := s.thumbs.MakeThumbnail(data, s.opts.ThumbnailWidth, s.opts.ThumbnailHeight, true, true)
	if err != nil {
		s.opts.Logger.WarnContext(ctx, "thumbnail skipped", "path", key, "error", err)
		return out, nil
	}
	thumbKey := model.ThumbnailPathFor(key)
	_, err = s.blobs.Put(ctx, thumbKey, bytes.NewReader(thumb), storage.PutObjectOptions{
		Size:        int64(len(thumb)),
		ContentType: thumbnail.DetectMIME(thumb, mime),
	})
	if err != nil {
		s.discard(ctx, "", key)
		return nil, &StorageError{Op: "put", Path: thumbKey, Err: err}
	}
	out.thumbnail = thumbKey
	return out, nil
}

// discard deletes blobs best-effort. Failures are logged, counted and
// returned as warnings.
func (s *documentService) discard(ctx context.Context, documentID string, paths ...string) []error {
	ctx = context.WithoutCancel(ctx)
	var warnings []error
	for _, p := range paths {
		if p == "" {
			continue
		}
		if err := s.blobs.Delete(ctx, p); err != nil {
			s.opts.Metrics.cleanupFailed()
			s.opts.Logger.WarnContext(ctx, "blob cleanup failed", "document_id", documentID, "path", p, "error", err)
			warnings = append(warnings, &StorageError{Op: "delete", Path: p, Err: err})
		}
	}
	return warnings
}

// committed runs after a document mutation commits.
func (s *documentService) committed(ctx context.Context, action model.HistoryAction) {
	s.opts.Metrics.mutation(action)
	for _, ns := range []cache.Namespace{cache.Documents, cache.Categories} {
		if err := s.opts.Cache.Invalidate(ctx, ns); err != nil {
			s.opts.Logger.WarnContext(ctx, "cache invalidation failed", "namespace", string(ns), "error", err)
		}
	}
}

// checkActor accepts an empty actor (recorded as anonymous) or a UUID.
func checkActor(actorID string) error {
	if actorID != "" && !validID(actorID) {
		return invalid("user_id", "must be a UUID")
	}
	return nil
}

func normalizeTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", invalid("title", "is required")
	}
	if utf8.RuneCountInString(title) > maxTitleLength {
		return "", invalid("title", "must not exceed 255 characters")
	}
	return title, nil
}

func notFoundOr(entity, id string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return &NotFoundError{Entity: entity, ID: id}
	}
	return err
}

func blobFailure(entity, id, p string, err error) error {
	if errors.Is(err, storage.ErrObjectNotFound) {
		return &NotFoundError{Entity: entity, ID: id}
	}
	return &StorageError{Op: "get", Path: p, Err: err}
}

func baseName(name string) string {
	name = strings.TrimSpace(strings.ReplaceAll(name, "\\", "/"))
	if name == "" {
		return ""
	}
	b := path.Base(name)
	if b == "." || b == "/" {
		return ""
	}
	return b
}

var randomHex = func() (string, error) {
	b := make([]byte, 20)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// blobName is 40 random hex characters plus the original extension.
func blobName(original string) (string, error) {
	n, err := randomHex()
	if err != nil {
		return "", err
	}
	return n + extension(original), nil
}

func extension(name string) string {
	ext := path.Ext(baseName(name))
	if len(ext) < 2 || len(ext) > 16 {
		return ""
	}
	for _, r := range ext[1:] {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
			return ""
		}
	}
	return ext
}
