package handler

import (
	"mime"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"docvault/internal/model"
	"docvault/internal/policy"
	"docvault/internal/service"
)

const (
	defaultLinkExpiry = 15 * time.Minute
	maxLinkExpiry     = 7 * 24 * time.Hour
)

// mutationResponse is the body of update and delete responses.
type mutationResponse struct {
	Changed  bool            `json:"changed"`
	Data     *model.Document `json:"data"`
	Warnings []string        `json:"warnings,omitempty"`
}

func newMutationResponse(res *service.MutationResult) mutationResponse {
	out := mutationResponse{Changed: res.Changed, Data: res.Document}
	for _, w := range res.Warnings {
		out.Warnings = append(out.Warnings, w.Error())
	}
	return out
}

// loadAuthorized resolves :id and checks action against the document.
func loadAuthorized(c *fiber.Ctx, docs service.DocumentService, action policy.Action) (*model.Actor, *model.Document, error) {
	if _, err := authorize(c, policy.ViewAny, nil); err != nil {
		return nil, nil, err
	}
	id, err := parseID(c)
	if err != nil {
		return nil, nil, err
	}
	doc, err := docs.Get(c.UserContext(), id)
	if err != nil {
		return nil, nil, err
	}
	actor, err := authorize(c, action, doc)
	if err != nil {
		return nil, nil, err
	}
	return actor, doc, nil
}

// ListDocuments godoc
// @Summary List documents
// @Description search takes precedence over category_id; results are newest first.
// @Tags documents
// @Produce json
// @Param search query string false "Case-insensitive match on title or description"
// @Param category_id query string false "Category filter"
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Success 200 {object} service.DocumentListResult
// @Failure 400 {object} errorPayload
// @Router /documents [get]
func ListDocuments(q service.QueryService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, err := authorize(c, policy.ViewAny, nil); err != nil {
			return writeServiceError(c, err)
		}
		limit, offset, err := pageParams(c)
		if err != nil {
			return writeServiceError(c, err)
		}

		ctx := c.UserContext()
		var res *service.DocumentListResult
		switch {
		case c.Query("search") != "":
			res, err = q.Search(ctx, c.Query("search"), limit, offset)
		case c.Query("category_id") != "":
			res, err = q.ByCategory(ctx, c.Query("category_id"), limit, offset)
		default:
			res, err = q.List(ctx, limit, offset)
		}
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(res)
	}
}

// RecentDocuments godoc
// @Summary Newest documents
// @Tags documents
// @Param limit query int false "Number of documents (default 5)"
// @Success 200 {object} map[string][]model.Document
// @Router /documents/recent [get]
func RecentDocuments(q service.QueryService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, err := authorize(c, policy.ViewAny, nil); err != nil {
			return writeServiceError(c, err)
		}
		n, err := intQuery(c, "limit")
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_LIMIT", "invalid limit")
		}
		docs, err := q.Recent(c.UserContext(), n)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(fiber.Map{"data": docs})
	}
}

// MyDocuments lists the caller's own documents.
func MyDocuments(q service.QueryService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := authorize(c, policy.ViewAny, nil)
		if err != nil {
			return writeServiceError(c, err)
		}
		limit, offset, err := pageParams(c)
		if err != nil {
			return writeServiceError(c, err)
		}
		res, err := q.ByOwner(c.UserContext(), actor.ID, limit, offset)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(res)
	}
}

// CreateDocument godoc
// @Summary Create a document
// @Tags documents
// @Accept multipart/form-data
// @Produce json
// @Param title formData string true "Title"
// @Param description formData string false "Description"
// @Param category_id formData string true "Category"
// @Param status formData string false "active or archived"
// @Param document formData file false "Attached file"
// @Success 201 {object} model.Document
// @Failure 422 {object} errorPayload
// @Failure 502 {object} errorPayload
// @Router /documents [post]
func CreateDocument(docs service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := authorize(c, policy.Create, nil)
		if err != nil {
			return writeServiceError(c, err)
		}
		form, file, cleanup, err := readDocumentForm(c)
		defer cleanup()
		if err != nil {
			return writeServiceError(c, err)
		}

		doc, err := docs.Create(c.UserContext(), actor.ID, form.createInput(), file)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(doc)
	}
}

// GetDocument godoc
// @Summary Get a document
// @Tags documents
// @Param id path string true "Document ID"
// @Success 200 {object} model.Document
// @Failure 400 {object} errorPayload
// @Failure 403 {object} errorPayload
// @Failure 404 {object} errorPayload
// @Router /documents/{id} [get]
func GetDocument(docs service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		_, doc, err := loadAuthorized(c, docs, policy.View)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(doc)
	}
}

// UpdateDocument godoc
// @Summary Update a document
// @Description Partial update; a new file replaces the old one.
// @Tags documents
// @Accept multipart/form-data
// @Param id path string true "Document ID"
// @Success 200 {object} mutationResponse
// @Router /documents/{id} [put]
func UpdateDocument(docs service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, doc, err := loadAuthorized(c, docs, policy.Update)
		if err != nil {
			return writeServiceError(c, err)
		}
		form, file, cleanup, err := readDocumentForm(c)
		defer cleanup()
		if err != nil {
			return writeServiceError(c, err)
		}

		res, err := docs.Update(c.UserContext(), actor.ID, doc.ID, form.updateInput(), file)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(newMutationResponse(res))
	}
}

// DeleteDocument godoc
// @Summary Soft-delete a document
// @Tags documents
// @Param id path string true "Document ID"
// @Success 200 {object} mutationResponse
// @Router /documents/{id} [delete]
func DeleteDocument(docs service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, doc, err := loadAuthorized(c, docs, policy.Delete)
		if err != nil {
			return writeServiceError(c, err)
		}
		res, err := docs.Delete(c.UserContext(), actor.ID, doc.ID)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(newMutationResponse(res))
	}
}

// DownloadDocument streams the attached file.
func DownloadDocument(docs service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		_, doc, err := loadAuthorized(c, docs, policy.View)
		if err != nil {
			return writeServiceError(c, err)
		}
		rc, doc, err := docs.Download(c.UserContext(), doc.ID)
		if err != nil {
			return writeServiceError(c, err)
		}

		c.Set(fiber.HeaderContentType, doc.FileType)
		c.Set(fiber.HeaderContentDisposition, mime.FormatMediaType("attachment", map[string]string{"filename": doc.FileName}))
		return c.SendStream(rc, int(doc.FileSize))
	}
}

// DocumentDownloadURL returns a presigned link. ?expires is in seconds.
func DocumentDownloadURL(docs service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		_, doc, err := loadAuthorized(c, docs, policy.View)
		if err != nil {
			return writeServiceError(c, err)
		}
		expiry := defaultLinkExpiry
		if raw := c.Query("expires"); raw != "" {
			secs, err := strconv.Atoi(raw)
			if err != nil || secs <= 0 {
				return writeError(c, fiber.StatusBadRequest, "INVALID_EXPIRES", "invalid expires")
			}
			expiry = min(time.Duration(secs)*time.Second, maxLinkExpiry)
		}

		u, err := docs.DownloadURL(c.UserContext(), doc.ID, expiry)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(fiber.Map{
			"url":        u,
			"expires_at": time.Now().Add(expiry).UTC(),
		})
	}
}

// DocumentThumbnail streams the preview of an image document.
func DocumentThumbnail(docs service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		_, doc, err := loadAuthorized(c, docs, policy.View)
		if err != nil {
			return writeServiceError(c, err)
		}
		rc, info, err := docs.Thumbnail(c.UserContext(), doc.ID)
		if err != nil {
			return writeServiceError(c, err)
		}
		if info.ContentType != "" {
			c.Set(fiber.HeaderContentType, info.ContentType)
		}
		c.Set(fiber.HeaderCacheControl, "private, max-age=3600")
		return c.SendStream(rc, int(info.Size))
	}
}
