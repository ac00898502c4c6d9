// Package service holds the document use cases: the record manager that
// owns every mutation and its audit entry, plus the read-side query,
// category and history services.
package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"docvault/internal/cache"
	"docvault/internal/config"
	"docvault/internal/model"
)

var tracer = otel.Tracer("docvault/service")

// Options tune the services. Zero values take the defaults below.
type Options struct {
	MaxUploadBytes  int64
	ThumbnailWidth  int
	ThumbnailHeight int
	PageSize        int
	MaxPageSize     int
	RecentDefault   int

	Cache   *cache.Cache
	Metrics *Metrics
	Logger  *slog.Logger
	Now     func() time.Time
}

// OptionsFromConfig maps the documents config onto Options.
func OptionsFromConfig(cfg config.DocumentsConfig) Options {
	return Options{
		MaxUploadBytes:  cfg.MaxUploadBytes,
		ThumbnailWidth:  cfg.ThumbnailWidth,
		ThumbnailHeight: cfg.ThumbnailHeight,
		PageSize:        cfg.PageSize,
		MaxPageSize:     cfg.MaxPageSize,
	}
}

func (o Options) withDefaults() Options {
	if o.MaxUploadBytes <= 0 {
		o.MaxUploadBytes = 10 << 20
	}
	if o.ThumbnailWidth <= 0 {
		o.ThumbnailWidth = 200
	}
	if o.ThumbnailHeight <= 0 {
		o.ThumbnailHeight = 200
	}
	if o.PageSize <= 0 {
		o.PageSize = 10
	}
	if o.MaxPageSize <= 0 {
		o.MaxPageSize = 100
	}
	if o.MaxPageSize < o.PageSize {
		o.MaxPageSize = o.PageSize
	}
	if o.RecentDefault <= 0 {
		o.RecentDefault = 5
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

func (o Options) now() time.Time {
	return o.Now().UTC()
}

// page clamps limit into [1, MaxPageSize] and offset to >= 0.
func (o Options) page(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = o.PageSize
	}
	if limit > o.MaxPageSize {
		limit = o.MaxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// validID reports whether id is a well-formed identifier. Malformed ids can
// never match a row, so callers treat them as not found.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return tracer.Start(ctx, name)
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// DocumentListResult is a page of documents.
type DocumentListResult struct {
	Items  []model.Document `json:"data"`
	Total  int              `json:"total"`
	Limit  int              `json:"limit"`
	Offset int              `json:"offset"`
}

// HistoryListResult is a page of history entries.
type HistoryListResult struct {
	Items  []model.DocumentHistory `json:"data"`
	Total  int                     `json:"total"`
	Limit  int                     `json:"limit"`
	Offset int                     `json:"offset"`
}
